package service

import "errors"

var (
	ErrIDRequired       = errors.New("id is required")
	ErrInvalidID        = errors.New("id must be a UUID")
	ErrNotFound         = errors.New("listing not found")
	ErrEmptyMessage     = errors.New("message text is empty")
	ErrUnsupportedMedia = errors.New("unsupported media type")
	ErrCaptureFailed    = errors.New("brochure capture failed")
	ErrPersistFailed    = errors.New("listing could not be persisted")
	ErrBrochureNotFound = errors.New("brochure not found")
)
