package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"propertybot/internal/model"
	"propertybot/internal/repository"
)

// ListingPostgres is a PostgreSQL implementation of repository.ListingRepository.
// The unit arrays are stored as JSONB so their order and alignment survive.
type ListingPostgres struct {
	db *sql.DB
}

// NewListingPostgres creates a new ListingPostgres repository.
func NewListingPostgres(db *sql.DB) *ListingPostgres {
	return &ListingPostgres{db: db}
}

var _ repository.ListingRepository = (*ListingPostgres)(nil)

const listingColumns = `id, developer, project, prices, sizes, unit_types, status, launch_date, notes, brochure_ref, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(s rowScanner) (*model.Listing, error) {
	var (
		l                        model.Listing
		prices, sizes, unitTypes []byte
	)
	if err := s.Scan(
		&l.ID,
		&l.Developer,
		&l.Project,
		&prices,
		&sizes,
		&unitTypes,
		&l.Status,
		&l.LaunchDate,
		&l.Notes,
		&l.BrochureRef,
		&l.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(prices, &l.Prices); err != nil {
		return nil, fmt.Errorf("decode prices: %w", err)
	}
	if err := json.Unmarshal(sizes, &l.Sizes); err != nil {
		return nil, fmt.Errorf("decode sizes: %w", err)
	}
	if err := json.Unmarshal(unitTypes, &l.UnitTypes); err != nil {
		return nil, fmt.Errorf("decode unit types: %w", err)
	}
	return &l, nil
}

// jsonArrays encodes the unit arrays as JSON text. Nil slices become [].
func jsonArrays(l *model.Listing) (prices, sizes, unitTypes string, err error) {
	enc := func(v any) (string, error) {
		b, err := json.Marshal(v)
		return string(b), err
	}
	p := l.Prices
	if p == nil {
		p = []float64{}
	}
	s := l.Sizes
	if s == nil {
		s = []string{}
	}
	u := l.UnitTypes
	if u == nil {
		u = []string{}
	}
	if prices, err = enc(p); err != nil {
		return
	}
	if sizes, err = enc(s); err != nil {
		return
	}
	unitTypes, err = enc(u)
	return
}

// Create inserts a new listing row and returns the stored record.
func (r *ListingPostgres) Create(ctx context.Context, l *model.Listing) (*model.Listing, error) {
	prices, sizes, unitTypes, err := jsonArrays(l)
	if err != nil {
		return nil, err
	}
	const q = `
		INSERT INTO listings (id, developer, project, prices, sizes, unit_types, status, launch_date, notes, brochure_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + listingColumns
	row := r.db.QueryRowContext(ctx, q,
		l.ID,
		l.Developer,
		l.Project,
		prices,
		sizes,
		unitTypes,
		l.Status,
		l.LaunchDate,
		l.Notes,
		l.BrochureRef,
		l.CreatedAt,
	)
	return scanListing(row)
}

// FindByID fetches a single listing by its ID.
func (r *ListingPostgres) FindByID(ctx context.Context, id string) (*model.Listing, error) {
	const q = `SELECT ` + listingColumns + ` FROM listings WHERE id = $1`
	l, err := scanListing(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return l, nil
}

// List returns listings using LIMIT/OFFSET pagination and a total count.
func (r *ListingPostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Listing], error) {
	const qCount = `SELECT COUNT(*) FROM listings`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount).Scan(&total); err != nil {
		return nil, err
	}

	const qList = `SELECT ` + listingColumns + ` FROM listings ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, qList, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Listing, 0)
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Listing]{
		Items: items,
		Total: total,
	}, nil
}

// Update overwrites the mutable columns. id and created_at never change.
func (r *ListingPostgres) Update(ctx context.Context, l *model.Listing) (*model.Listing, error) {
	prices, sizes, unitTypes, err := jsonArrays(l)
	if err != nil {
		return nil, err
	}
	const q = `
		UPDATE listings
		SET developer = $2, project = $3, prices = $4, sizes = $5, unit_types = $6,
		    status = $7, launch_date = $8, notes = $9, brochure_ref = $10
		WHERE id = $1
		RETURNING ` + listingColumns
	row := r.db.QueryRowContext(ctx, q,
		l.ID,
		l.Developer,
		l.Project,
		prices,
		sizes,
		unitTypes,
		l.Status,
		l.LaunchDate,
		l.Notes,
		l.BrochureRef,
	)
	out, err := scanListing(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return out, nil
}

// Delete removes a listing by ID. It does not return an error if the row does not exist.
func (r *ListingPostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM listings WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}

// Ping checks the connection pool.
func (r *ListingPostgres) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
