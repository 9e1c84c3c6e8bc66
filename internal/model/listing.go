package model

import "time"

// Listing represents one real-estate project entry, possibly describing several unit variants.
// Prices, Sizes and UnitTypes are index-aligned where extraction could align them.
// This is a pure domain model; persistence layers map it to their own shapes.
type Listing struct {
	ID          string    `json:"id"`
	Developer   string    `json:"developer"`
	Project     string    `json:"project"`
	Prices      []float64 `json:"price"`
	Sizes       []string  `json:"size"`
	UnitTypes   []string  `json:"unitType"`
	Status      string    `json:"status"`
	LaunchDate  string    `json:"launchDate"`
	Notes       string    `json:"notes"`
	BrochureRef string    `json:"brochure,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ListingUpdate carries the administrative fields that may change after creation.
// Nil fields are left as stored. CreatedAt and ID are intentionally absent.
type ListingUpdate struct {
	Developer   *string    `json:"developer"`
	Project     *string    `json:"project"`
	Prices      *[]float64 `json:"price"`
	Sizes       *[]string  `json:"size"`
	UnitTypes   *[]string  `json:"unitType"`
	Status      *string    `json:"status"`
	LaunchDate  *string    `json:"launchDate"`
	Notes       *string    `json:"notes"`
	BrochureRef *string    `json:"brochure"`
}

// Apply copies the fields present in u onto l, leaving identity and creation
// time untouched.
func (u ListingUpdate) Apply(l *Listing) {
	setIfPresent(&l.Developer, u.Developer)
	setIfPresent(&l.Project, u.Project)
	setIfPresent(&l.Prices, u.Prices)
	setIfPresent(&l.Sizes, u.Sizes)
	setIfPresent(&l.UnitTypes, u.UnitTypes)
	setIfPresent(&l.Status, u.Status)
	setIfPresent(&l.LaunchDate, u.LaunchDate)
	setIfPresent(&l.Notes, u.Notes)
	setIfPresent(&l.BrochureRef, u.BrochureRef)
}

func setIfPresent[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
