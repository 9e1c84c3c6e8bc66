package model

import (
	"errors"
	"fmt"
	"time"
)

// MessageKind distinguishes text bodies from media attachments.
type MessageKind string

const (
	KindText     MessageKind = "text"
	KindDocument MessageKind = "document"
)

// ErrInvalidMessage is returned when a RawMessage does not match its kind.
var ErrInvalidMessage = errors.New("invalid raw message")

// RawMessage is the normalized form every source adapter produces before
// handing a message to the ingestion gateway.
type RawMessage struct {
	ID              string
	SourceGroupID   string
	SourceGroupName string
	SenderID        string
	SenderName      string
	Timestamp       time.Time
	Kind            MessageKind

	Body string

	MediaBytes    []byte
	MediaMimeType string
	MediaFilename string

	// BrochureRef is set on the text notification derived from a captured
	// brochure so the resulting listing points at the stored file.
	BrochureRef string
}

// Validate checks that exactly the payload matching Kind is populated.
func (m RawMessage) Validate() error {
	hasMedia := len(m.MediaBytes) > 0
	switch m.Kind {
	case KindText:
		if hasMedia {
			return fmt.Errorf("%w: text message carries media", ErrInvalidMessage)
		}
	case KindDocument:
		if !hasMedia {
			return fmt.Errorf("%w: document message without media", ErrInvalidMessage)
		}
		if m.Body != "" {
			return fmt.Errorf("%w: document message carries a text body", ErrInvalidMessage)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidMessage, m.Kind)
	}
	return nil
}

// Origin returns the most readable identifier of the source group.
func (m RawMessage) Origin() string {
	if m.SourceGroupName != "" {
		return m.SourceGroupName
	}
	return m.SourceGroupID
}

// Sender returns the sender display name, or the sender id when no name is known.
func (m RawMessage) Sender() string {
	if m.SenderName != "" {
		return m.SenderName
	}
	return m.SenderID
}
