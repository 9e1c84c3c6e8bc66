// Package webhook parses the chat platform's webhook deliveries into
// normalized messages.
package webhook

import (
	"crypto/subtle"
	"strconv"
	"strings"
	"time"

	"propertybot/internal/model"
)

// Payload is the top-level webhook delivery.
type Payload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string `json:"field"`
	Value Value  `json:"value"`
}

type Value struct {
	MessagingProduct string    `json:"messaging_product"`
	Metadata         Metadata  `json:"metadata"`
	Contacts         []Contact `json:"contacts"`
	Messages         []Message `json:"messages"`
}

type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

type Contact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

type Message struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
}

// Messages returns the text messages with a non-empty body, in payload order.
// Every other message type is skipped.
func Messages(p Payload) []model.RawMessage {
	var out []model.RawMessage
	for _, e := range p.Entry {
		for _, ch := range e.Changes {
			names := make(map[string]string, len(ch.Value.Contacts))
			for _, c := range ch.Value.Contacts {
				names[c.WaID] = c.Profile.Name
			}
			for _, m := range ch.Value.Messages {
				if m.Type != "text" || m.Text == nil || strings.TrimSpace(m.Text.Body) == "" {
					continue
				}
				out = append(out, model.RawMessage{
					ID:            m.ID,
					SourceGroupID: ch.Value.Metadata.PhoneNumberID,
					SenderID:      m.From,
					SenderName:    names[m.From],
					Timestamp:     parseUnix(m.Timestamp),
					Kind:          model.KindText,
					Body:          m.Text.Body,
				})
			}
		}
	}
	return out
}

func parseUnix(s string) time.Time {
	sec, err := strconv.ParseInt(s, 10, 64)
	if err != nil || sec <= 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

// Verify implements the subscription handshake: it returns the challenge and
// true when mode is "subscribe" and token equals the configured secret.
// An empty secret never verifies.
func Verify(mode, token, challenge, secret string) (string, bool) {
	if mode != "subscribe" || secret == "" {
		return "", false
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
		return "", false
	}
	return challenge, true
}
