// Package chat adapts events from a chat-automation client (a logged-in
// messenger session) into normalized messages for the ingestion gateway.
package chat

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"propertybot/internal/brochure"
	"propertybot/internal/classify"
	"propertybot/internal/logger"
	"propertybot/internal/metrics"
	"propertybot/internal/model"
)

// Media points at an attachment that can be fetched from the client.
type Media struct {
	URL      string
	MimeType string
	Filename string
}

// Event is one incoming message as reported by the chat client.
type Event struct {
	MessageID  string
	ChatID     string
	ChatName   string
	IsGroup    bool
	FromMe     bool
	SenderID   string
	SenderName string
	Timestamp  time.Time
	Body       string
	Media      *Media
}

// MediaDownloader fetches attachment bytes.
type MediaDownloader interface {
	Download(ctx context.Context, m Media) ([]byte, error)
}

// GroupNamer resolves a group's display name.
type GroupNamer interface {
	GroupName(ctx context.Context, chatID string) (string, error)
}

// Sink receives accepted messages.
type Sink interface {
	Dispatch(msgs ...model.RawMessage)
}

// Action reports what the adapter did with an event.
type Action string

const (
	ActionForwardedText     Action = "forwarded_text"
	ActionForwardedDocument Action = "forwarded_document"
	ActionNotGroup          Action = "ignored_not_group"
	ActionSelf              Action = "ignored_self"
	ActionUnsupportedMedia  Action = "ignored_media"
	ActionEmpty             Action = "ignored_empty"
	ActionRejected          Action = "rejected"
)

// Adapter filters chat events and hands accepted ones to a Sink.
type Adapter struct {
	classifier *classify.Classifier
	downloader MediaDownloader
	names      GroupNamer
	sink       Sink
	timeout    time.Duration
	metrics    *metrics.Pipeline
	log        zerolog.Logger
	wg         sync.WaitGroup
}

// NewAdapter returns an adapter. names and m may be nil.
func NewAdapter(c *classify.Classifier, d MediaDownloader, names GroupNamer, sink Sink, timeout time.Duration, m *metrics.Pipeline) *Adapter {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Adapter{
		classifier: c,
		downloader: d,
		names:      names,
		sink:       sink,
		timeout:    timeout,
		metrics:    m,
		log:        logger.Component("chat"),
	}
}

// Submit handles ev on its own goroutine.
func (a *Adapter) Submit(ev Event) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				a.log.Error().Bytes("stack", debug.Stack()).Msg("panic recovered")
				a.drop(ev, fmt.Errorf("panic: %v", rec))
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		if _, err := a.HandleEvent(ctx, ev); err != nil {
			a.drop(ev, err)
		}
	}()
}

func (a *Adapter) drop(ev Event, err error) {
	a.log.Error().
		Str("event", "chat_event_failed").
		Str("message_id", ev.MessageID).
		Str("chat_id", ev.ChatID).
		Err(err).
		Msg("chat event dropped")
	a.metrics.ForwardFailure("chat")
}

// Wait blocks until every submitted event has been handled.
func (a *Adapter) Wait() {
	a.wg.Wait()
}

// HandleEvent applies the group-only and self-message filters, downloads PDF
// attachments and gates text through the classifier.
func (a *Adapter) HandleEvent(ctx context.Context, ev Event) (Action, error) {
	if !ev.IsGroup {
		return ActionNotGroup, nil
	}
	if ev.FromMe {
		return ActionSelf, nil
	}

	msg := model.RawMessage{
		ID:              ev.MessageID,
		SourceGroupID:   ev.ChatID,
		SourceGroupName: a.groupName(ctx, ev),
		SenderID:        ev.SenderID,
		SenderName:      ev.SenderName,
		Timestamp:       ev.Timestamp,
	}

	if ev.Media != nil {
		if brochure.IsPDF(ev.Media.MimeType, ev.Media.Filename) {
			b, err := a.downloader.Download(ctx, *ev.Media)
			if err != nil {
				return "", fmt.Errorf("download brochure: %w", err)
			}
			msg.Kind = model.KindDocument
			msg.MediaBytes = b
			msg.MediaMimeType = ev.Media.MimeType
			msg.MediaFilename = ev.Media.Filename
			a.sink.Dispatch(msg)
			return ActionForwardedDocument, nil
		}
		if strings.TrimSpace(ev.Body) == "" {
			return ActionUnsupportedMedia, nil
		}
	}

	if strings.TrimSpace(ev.Body) == "" {
		return ActionEmpty, nil
	}
	if verdict, reason := a.classifier.Explain(ev.Body); verdict == classify.Reject {
		a.log.Debug().
			Str("message_id", ev.MessageID).
			Str("group", msg.Origin()).
			Str("reason", reason).
			Msg("chat message classified as noise")
		return ActionRejected, nil
	}

	msg.Kind = model.KindText
	msg.Body = ev.Body
	a.log.Info().
		Str("message_id", ev.MessageID).
		Str("group", msg.Origin()).
		Msg("forwarding group message")
	a.sink.Dispatch(msg)
	return ActionForwardedText, nil
}

func (a *Adapter) groupName(ctx context.Context, ev Event) string {
	if ev.ChatName != "" || a.names == nil {
		return ev.ChatName
	}
	name, err := a.names.GroupName(ctx, ev.ChatID)
	if err != nil {
		a.log.Debug().Str("chat_id", ev.ChatID).Err(err).Msg("group name lookup failed")
		return ""
	}
	return name
}
