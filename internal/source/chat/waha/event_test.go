package waha

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEvent_GroupText(t *testing.T) {
	body := []byte(`{
		"event": "message",
		"session": "property-bot-session",
		"payload": {
			"id": "false_120363@g.us_ABC",
			"timestamp": 1767225600,
			"from": "120363@g.us",
			"participant": "971500000000@c.us",
			"fromMe": false,
			"body": "Skyline Towers by Acme",
			"hasMedia": false,
			"_data": {"notifyName": "Agent"}
		}
	}`)

	ev, ok, err := ParseEvent(body, "property-bot-session")

	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "false_120363@g.us_ABC", ev.MessageID)
	assert.Equal(t, "120363@g.us", ev.ChatID)
	assert.True(t, ev.IsGroup)
	assert.False(t, ev.FromMe)
	assert.Equal(t, "971500000000@c.us", ev.SenderID)
	assert.Equal(t, "Agent", ev.SenderName)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), ev.Timestamp)
	assert.Equal(t, "Skyline Towers by Acme", ev.Body)
	assert.Nil(t, ev.Media)
}

func TestParseEvent_DirectMessageWithMedia(t *testing.T) {
	body := []byte(`{"event":"message","payload":{"id":"m2","from":"971500000000@c.us","hasMedia":true,
		"media":{"url":"http://bridge/api/files/x.pdf","mimetype":"application/pdf","filename":"x.pdf"}}}`)

	ev, ok, err := ParseEvent(body, "")

	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, ev.IsGroup)
	assert.Equal(t, "971500000000@c.us", ev.SenderID)
	assert.True(t, ev.Timestamp.IsZero())
	require.NotNil(t, ev.Media)
	assert.Equal(t, "application/pdf", ev.Media.MimeType)
	assert.Equal(t, "x.pdf", ev.Media.Filename)
}

func TestParseEvent_OtherEventsSkipped(t *testing.T) {
	_, ok, err := ParseEvent([]byte(`{"event":"session.status","payload":{"status":"WORKING"}}`), "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestParseEvent_InvalidJSON(t *testing.T) {
	_, _, err := ParseEvent([]byte(`{`), "s1")
	assert.Error(t, err)
}

func TestParseEvent_OtherSessionRejected(t *testing.T) {
	body := []byte(`{"event":"message","session":"intruder","payload":{"id":"m3","from":"120363@g.us","body":"hi"}}`)

	_, ok, err := ParseEvent(body, "property-bot-session")

	assert.ErrorIs(t, err, ErrSessionMismatch)
	assert.False(t, ok)

	_, ok, err = ParseEvent([]byte(`{"event":"message","payload":{"id":"m4","from":"120363@g.us"}}`), "property-bot-session")
	assert.ErrorIs(t, err, ErrSessionMismatch)
	assert.False(t, ok)
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"event":"message"}`)
	mac := hmac.New(sha512.New, []byte("hook-key"))
	mac.Write(body)
	sig := hex.EncodeToString(mac.Sum(nil))

	assert.True(t, VerifySignature(body, sig, "hook-key"))
	assert.False(t, VerifySignature(body, sig, "other-key"))
	assert.False(t, VerifySignature([]byte(`{"event":"tampered"}`), sig, "hook-key"))
	assert.False(t, VerifySignature(body, "", "hook-key"))
	assert.False(t, VerifySignature(body, "not-hex", "hook-key"))
}
