// Package brochure stores PDF attachments and turns each one into a text
// notification that flows through the normal listing pipeline.
package brochure

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"propertybot/internal/logger"
	"propertybot/internal/model"
	"propertybot/internal/storage"
)

// KeyPrefix is the storage namespace for brochures.
const KeyPrefix = "brochures/"

const pdfMime = "application/pdf"

// ErrNoContent is returned when a document message has no bytes.
var ErrNoContent = errors.New("brochure has no content")

var unsafeRun = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Sanitize replaces every maximal run of characters outside [A-Za-z0-9._-]
// with a single underscore. Sanitize(Sanitize(s)) == Sanitize(s).
func Sanitize(name string) string {
	return unsafeRun.ReplaceAllString(name, "_")
}

// IsPDF reports whether the attachment is a PDF by mime type or extension.
func IsPDF(mimeType, filename string) bool {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	if mt == pdfMime {
		return true
	}
	return strings.EqualFold(filepath.Ext(filename), ".pdf")
}

// Key returns the storage key for a sanitized filename.
func Key(filename string) string {
	return KeyPrefix + filename
}

// Title derives a human-readable title from a brochure filename.
func Title(filename string) string {
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	return strings.TrimSpace(strings.ReplaceAll(stem, "_", " "))
}

// Capturer writes brochures to storage.
type Capturer struct {
	store storage.Storage
	now   func() time.Time
	log   zerolog.Logger
}

// NewCapturer returns a Capturer backed by store.
func NewCapturer(store storage.Storage) *Capturer {
	return &Capturer{
		store: store,
		now:   time.Now,
		log:   logger.Component("brochure"),
	}
}

// Capture stores the document carried by msg and returns the stored file
// together with the derived text notification. The notification carries
// BrochureRef so the listing built from it links to the file.
func (c *Capturer) Capture(ctx context.Context, msg model.RawMessage) (*model.BrochureFile, model.RawMessage, error) {
	if len(msg.MediaBytes) == 0 {
		return nil, model.RawMessage{}, ErrNoContent
	}

	at := c.now().UTC()
	name := msg.MediaFilename
	if strings.TrimSpace(name) == "" {
		name = fmt.Sprintf("brochure_%d.pdf", at.UnixMilli())
	}
	filename := Sanitize(name)
	key := Key(filename)

	contentType := msg.MediaMimeType
	if contentType == "" {
		contentType = pdfMime
	}

	info, err := c.store.Put(ctx, key, bytes.NewReader(msg.MediaBytes), storage.PutObjectOptions{
		Size:        int64(len(msg.MediaBytes)),
		ContentType: contentType,
		Metadata: map[string]string{
			"original-filename": msg.MediaFilename,
			"source-group":      msg.Origin(),
		},
	})
	if err != nil {
		return nil, model.RawMessage{}, fmt.Errorf("store brochure: %w", err)
	}

	file := &model.BrochureFile{
		Filename:    filename,
		Key:         info.Key,
		Size:        info.Size,
		ContentType: contentType,
		CapturedAt:  at,
	}

	c.log.Info().
		Str("event", "brochure_captured").
		Str("filename", filename).
		Str("group", msg.Origin()).
		Int64("size", file.Size).
		Msg("brochure stored")

	notice := model.RawMessage{
		ID:              msg.ID,
		SourceGroupID:   msg.SourceGroupID,
		SourceGroupName: msg.SourceGroupName,
		SenderID:        msg.SenderID,
		SenderName:      msg.SenderName,
		Timestamp:       msg.Timestamp,
		Kind:            model.KindText,
		Body:            Notification(file, msg),
		BrochureRef:     filename,
	}
	return file, notice, nil
}

// Notification renders the text that stands in for a captured brochure.
// The first line doubles as the listing title.
func Notification(file *model.BrochureFile, msg model.RawMessage) string {
	var b strings.Builder
	title := Title(file.Filename)
	if title == "" {
		title = file.Filename
	}
	b.WriteString(title)
	b.WriteString("\nBrochure: ")
	b.WriteString(file.Filename)
	if origin := msg.Origin(); origin != "" {
		b.WriteString("\nGroup: ")
		b.WriteString(origin)
	}
	if sender := msg.Sender(); sender != "" {
		b.WriteString("\nFrom: ")
		b.WriteString(sender)
	}
	b.WriteString("\nAt: ")
	b.WriteString(file.CapturedAt.Format(time.RFC3339))
	return b.String()
}
