package repository

import (
	"context"

	"propertybot/internal/model"
)

// ListingRepository defines data access for listings.
// No business logic here, strictly persistence operations.
type ListingRepository interface {
	// Create inserts a new listing. The caller sets ID and CreatedAt.
	Create(ctx context.Context, l *model.Listing) (*model.Listing, error)

	// FindByID returns a listing by its ID, or ErrNotFound.
	FindByID(ctx context.Context, id string) (*model.Listing, error)

	// List returns a page of listings, newest first, and the total count.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.Listing], error)

	// Update replaces the mutable fields of an existing listing and returns
	// the stored record, or ErrNotFound.
	Update(ctx context.Context, l *model.Listing) (*model.Listing, error)

	// Delete removes a listing by ID. It returns nil if the row did not exist.
	Delete(ctx context.Context, id string) error

	// Ping checks connectivity with the backing store.
	Ping(ctx context.Context) error
}
