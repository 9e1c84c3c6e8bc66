package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"propertybot/internal/model"
	"propertybot/internal/repository"
)

// ListingListResult is the service-level DTO for paginated listings.
type ListingListResult struct {
	Items []model.Listing `json:"data"`
	Total int             `json:"total"`
}

// ListingService defines the use cases for listing records.
type ListingService interface {
	// Create assigns an ID and creation time when missing and stores the listing.
	Create(ctx context.Context, l *model.Listing) (*model.Listing, error)

	// List returns listings using limit/offset and a total count.
	List(ctx context.Context, limit, offset int) (*ListingListResult, error)

	// Get returns a single listing by its ID.
	Get(ctx context.Context, id string) (*model.Listing, error)

	// Update applies an administrative edit. ID and CreatedAt never change.
	Update(ctx context.Context, id string, upd model.ListingUpdate) (*model.Listing, error)

	// Delete removes a listing by ID.
	Delete(ctx context.Context, id string) error

	// Ping checks the listing store.
	Ping(ctx context.Context) error
}

type listingService struct {
	repo repository.ListingRepository
	now  func() time.Time
}

// NewListingService constructs a new ListingService.
func NewListingService(repo repository.ListingRepository) ListingService {
	return &listingService{repo: repo, now: time.Now}
}

func (s *listingService) Create(ctx context.Context, l *model.Listing) (*model.Listing, error) {
	rec := *l
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now().UTC()
	}
	return s.repo.Create(ctx, &rec)
}

// List returns paginated listings without exposing repository types.
func (s *listingService) List(ctx context.Context, limit, offset int) (*ListingListResult, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.repo.List(ctx, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &ListingListResult{Items: res.Items, Total: res.Total}, nil
}

func validateID(id string) error {
	if id == "" {
		return ErrIDRequired
	}
	if _, err := uuid.Parse(id); err != nil {
		return ErrInvalidID
	}
	return nil
}

func (s *listingService) Get(ctx context.Context, id string) (*model.Listing, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	l, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return l, nil
}

func (s *listingService) Update(ctx context.Context, id string, upd model.ListingUpdate) (*model.Listing, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	upd.Apply(current)
	out, err := s.repo.Update(ctx, current)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return out, nil
}

// Delete checks the listing exists, then deletes its record.
func (s *listingService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *listingService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
