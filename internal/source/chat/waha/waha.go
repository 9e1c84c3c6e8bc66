// Package waha talks to a WAHA (WhatsApp HTTP API) bridge that owns the
// logged-in chat session.
package waha

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"propertybot/internal/logger"
	"propertybot/internal/source/chat"
)

const (
	statusWorking   = "WORKING"
	maxMediaBytes   = 64 << 20
	groupSuffix     = "@g.us"
	defaultTimeout  = 30 * time.Second
	groupNameTTL    = 30 * time.Minute
	groupNamePurge  = time.Hour
	apiKeyHeaderKey = "X-Api-Key"
)

var (
	ErrSessionNotFound = errors.New("waha session not found")
	ErrMediaTooLarge   = errors.New("media exceeds size limit")
	ErrForeignMedia    = errors.New("media url is not served by the bridge")
)

// Client is a thin WAHA REST client. It implements chat.SessionManager,
// chat.MediaDownloader and chat.GroupNamer.
type Client struct {
	baseURL string
	base    *url.URL
	session string
	apiKey  string
	http    *http.Client
	groups  *cache.Cache
	log     zerolog.Logger
}

// NewClient returns a client for the bridge at baseURL driving session.
func NewClient(baseURL, session, apiKey string) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	base, _ := url.Parse(baseURL)
	return &Client{
		baseURL: baseURL,
		base:    base,
		session: session,
		apiKey:  apiKey,
		http: &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		groups: cache.New(groupNameTTL, groupNamePurge),
		log:    logger.Component("waha"),
	}
}

type sessionInfo struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// Status returns the bridge-reported session status, e.g. WORKING or SCAN_QR_CODE.
func (c *Client) Status(ctx context.Context) (string, error) {
	var info sessionInfo
	status, err := c.do(ctx, http.MethodGet, "/api/sessions/"+url.PathEscape(c.session), nil, &info)
	if err != nil {
		return "", err
	}
	if status == http.StatusNotFound {
		return "", ErrSessionNotFound
	}
	return info.Status, nil
}

// IsAlive reports whether the session is logged in and receiving messages.
func (c *Client) IsAlive(ctx context.Context) bool {
	s, err := c.Status(ctx)
	if err != nil {
		c.log.Debug().Err(err).Msg("session status unavailable")
		return false
	}
	return s == statusWorking
}

// Reinitialize restarts the session, creating it when the bridge does not know it.
func (c *Client) Reinitialize(ctx context.Context) error {
	status, err := c.do(ctx, http.MethodPost, "/api/sessions/"+url.PathEscape(c.session)+"/restart", nil, nil)
	if err != nil {
		return err
	}
	if status != http.StatusNotFound {
		return nil
	}
	_, err = c.do(ctx, http.MethodPost, "/api/sessions/start", map[string]string{"name": c.session}, nil)
	return err
}

// Download fetches an attachment. Relative media URLs are resolved against the
// bridge; absolute ones must point at the bridge's own scheme and host.
func (c *Client) Download(ctx context.Context, m chat.Media) ([]byte, error) {
	target, err := c.mediaURL(m.URL)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download media: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("download media: bridge responded %d", resp.StatusCode)
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes+1))
	if err != nil {
		return nil, fmt.Errorf("download media: %w", err)
	}
	if len(b) > maxMediaBytes {
		return nil, ErrMediaTooLarge
	}
	return b, nil
}

func (c *Client) mediaURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("download media: %w", err)
	}
	if u.Scheme == "" && u.Host == "" {
		return c.baseURL + "/" + strings.TrimLeft(raw, "/"), nil
	}
	if c.base == nil || !strings.EqualFold(u.Scheme, c.base.Scheme) || !strings.EqualFold(u.Host, c.base.Host) {
		return "", fmt.Errorf("%w: %s", ErrForeignMedia, u.Redacted())
	}
	return u.String(), nil
}

type groupInfo struct {
	Subject string `json:"subject"`
	Name    string `json:"name"`
}

// GroupName returns the group's subject, cached for groupNameTTL.
func (c *Client) GroupName(ctx context.Context, chatID string) (string, error) {
	if v, ok := c.groups.Get(chatID); ok {
		return v.(string), nil
	}
	var info groupInfo
	status, err := c.do(ctx, http.MethodGet, "/api/"+url.PathEscape(c.session)+"/groups/"+url.PathEscape(chatID), nil, &info)
	if err != nil {
		return "", err
	}
	if status == http.StatusNotFound {
		return "", fmt.Errorf("group %s not found", chatID)
	}
	name := info.Subject
	if name == "" {
		name = info.Name
	}
	c.groups.SetDefault(chatID, name)
	return name, nil
}

// do sends a JSON request. A 404 is returned as a status, not an error, so
// callers can distinguish a missing resource from a failing bridge.
func (c *Client) do(ctx context.Context, method, path string, in, out any) (int, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return 0, err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("waha %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return resp.StatusCode, nil
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return resp.StatusCode, fmt.Errorf("waha %s %s responded %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode waha response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeaderKey, c.apiKey)
	}
}
