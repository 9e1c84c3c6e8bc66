package waha

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"propertybot/internal/source/chat"
)

type webhookEvent struct {
	Event   string         `json:"event"`
	Session string         `json:"session"`
	Payload messagePayload `json:"payload"`
}

type messagePayload struct {
	ID          string        `json:"id"`
	Timestamp   int64         `json:"timestamp"`
	From        string        `json:"from"`
	Participant string        `json:"participant"`
	FromMe      bool          `json:"fromMe"`
	Body        string        `json:"body"`
	HasMedia    bool          `json:"hasMedia"`
	Media       *mediaPayload `json:"media"`
	Data        struct {
		NotifyName string `json:"notifyName"`
	} `json:"_data"`
}

type mediaPayload struct {
	URL      string `json:"url"`
	MimeType string `json:"mimetype"`
	Filename string `json:"filename"`
}

// Headers WAHA sets when a webhook HMAC key is configured.
const (
	SignatureHeader          = "X-Webhook-Hmac"
	SignatureAlgorithmHeader = "X-Webhook-Hmac-Algorithm"
)

// ErrSessionMismatch is returned for events that belong to another session.
var ErrSessionMismatch = errors.New("waha event for another session")

// VerifySignature reports whether signature is the hex HMAC-SHA512 of body
// under key.
func VerifySignature(body []byte, signature, key string) bool {
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil || len(got) == 0 {
		return false
	}
	mac := hmac.New(sha512.New, []byte(key))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

// ParseEvent decodes a WAHA webhook body. ok is false for events other than
// incoming messages. When session is set, events for any other session fail
// with ErrSessionMismatch.
func ParseEvent(body []byte, session string) (ev chat.Event, ok bool, err error) {
	var w webhookEvent
	if err := json.Unmarshal(body, &w); err != nil {
		return chat.Event{}, false, fmt.Errorf("decode waha event: %w", err)
	}
	if session != "" && w.Session != session {
		return chat.Event{}, false, fmt.Errorf("%w: %q", ErrSessionMismatch, w.Session)
	}
	if w.Event != "message" {
		return chat.Event{}, false, nil
	}

	p := w.Payload
	ev = chat.Event{
		MessageID:  p.ID,
		ChatID:     p.From,
		IsGroup:    strings.HasSuffix(p.From, groupSuffix),
		FromMe:     p.FromMe,
		SenderID:   p.From,
		SenderName: p.Data.NotifyName,
		Body:       p.Body,
	}
	if p.Participant != "" {
		ev.SenderID = p.Participant
	}
	if p.Timestamp > 0 {
		ev.Timestamp = time.Unix(p.Timestamp, 0).UTC()
	}
	if p.HasMedia && p.Media != nil && p.Media.URL != "" {
		ev.Media = &chat.Media{
			URL:      p.Media.URL,
			MimeType: p.Media.MimeType,
			Filename: p.Media.Filename,
		}
	}
	return ev, true, nil
}
