package service

import (
	"context"
	"errors"
	"io"

	"propertybot/internal/brochure"
	"propertybot/internal/storage"
)

// BrochureService serves stored brochure files.
type BrochureService interface {
	// Open returns the content of a stored brochure by its sanitized filename.
	Open(ctx context.Context, filename string) (io.ReadCloser, storage.ObjectInfo, error)
}

type brochureService struct {
	store storage.Storage
}

// NewBrochureService constructs a new BrochureService.
func NewBrochureService(store storage.Storage) BrochureService {
	return &brochureService{store: store}
}

func (s *brochureService) Open(ctx context.Context, filename string) (io.ReadCloser, storage.ObjectInfo, error) {
	if filename == "" || brochure.Sanitize(filename) != filename || filename == "." || filename == ".." {
		return nil, storage.ObjectInfo{}, ErrBrochureNotFound
	}
	rc, info, err := s.store.Get(ctx, brochure.Key(filename))
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, storage.ObjectInfo{}, ErrBrochureNotFound
		}
		return nil, storage.ObjectInfo{}, err
	}
	return rc, info, nil
}
