// Package source contains the plumbing shared by message source adapters:
// handing normalized messages to the ingestion gateway, either in-process or
// over HTTP, and dispatching them asynchronously.
package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"propertybot/internal/model"
	"propertybot/internal/service"
)

// Forwarder hands one message to the ingestion gateway.
type Forwarder interface {
	Forward(ctx context.Context, msg model.RawMessage) error
}

// LocalForwarder calls the gateway in-process.
type LocalForwarder struct {
	gw service.Gateway
}

// NewLocalForwarder returns a Forwarder that ingests through gw directly.
func NewLocalForwarder(gw service.Gateway) *LocalForwarder {
	return &LocalForwarder{gw: gw}
}

func (f *LocalForwarder) Forward(ctx context.Context, msg model.RawMessage) error {
	_, err := f.gw.Ingest(ctx, msg)
	return err
}

// TextPayload is the JSON body accepted by the gateway's process-message endpoint.
type TextPayload struct {
	Raw        string `json:"raw"`
	MessageID  string `json:"messageId,omitempty"`
	GroupID    string `json:"groupId,omitempty"`
	GroupName  string `json:"groupName,omitempty"`
	Sender     string `json:"sender,omitempty"`
	SenderName string `json:"senderName,omitempty"`
	Timestamp  string `json:"timestamp,omitempty"`
}

// HTTPForwarder posts messages to a gateway reachable over HTTP.
type HTTPForwarder struct {
	endpoint string
	client   *http.Client
}

// NewHTTPForwarder returns a forwarder for the API group at endpoint,
// e.g. http://localhost:5000/api.
func NewHTTPForwarder(endpoint string, timeout time.Duration) *HTTPForwarder {
	return &HTTPForwarder{
		endpoint: strings.TrimRight(endpoint, "/"),
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (f *HTTPForwarder) Forward(ctx context.Context, msg model.RawMessage) error {
	var (
		req *http.Request
		err error
	)
	if msg.Kind == model.KindDocument {
		req, err = f.documentRequest(ctx, msg)
	} else {
		req, err = f.textRequest(ctx, msg)
	}
	if err != nil {
		return err
	}
	if msg.ID != "" {
		req.Header.Set("X-Request-ID", msg.ID)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("forward to gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gateway responded %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func (f *HTTPForwarder) textRequest(ctx context.Context, msg model.RawMessage) (*http.Request, error) {
	body, err := json.Marshal(TextPayload{
		Raw:        msg.Body,
		MessageID:  msg.ID,
		GroupID:    msg.SourceGroupID,
		GroupName:  msg.SourceGroupName,
		Sender:     msg.SenderID,
		SenderName: msg.SenderName,
		Timestamp:  formatTimestamp(msg.Timestamp),
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint+"/process-message", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (f *HTTPForwarder) documentRequest(ctx context.Context, msg model.RawMessage) (*http.Request, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"messageId", msg.ID},
		{"groupId", msg.SourceGroupID},
		{"groupName", msg.SourceGroupName},
		{"sender", msg.SenderID},
		{"senderName", msg.SenderName},
		{"timestamp", formatTimestamp(msg.Timestamp)},
	}
	for _, kv := range fields {
		if kv[1] == "" {
			continue
		}
		if err := w.WriteField(kv[0], kv[1]); err != nil {
			return nil, err
		}
	}

	contentType := msg.MediaMimeType
	if contentType == "" {
		contentType = "application/pdf"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, msg.MediaFilename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(msg.MediaBytes); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint+"/process-brochure", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req, nil
}
