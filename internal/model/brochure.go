package model

import "time"

// BrochureFile describes a captured PDF brochure. Files are addressed by their
// sanitized filename; capturing the same name twice overwrites the earlier bytes.
type BrochureFile struct {
	Filename    string    `json:"filename"`
	Key         string    `json:"key"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	CapturedAt  time.Time `json:"captured_at"`
}
