package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"propertybot/internal/brochure"
	"propertybot/internal/classify"
	"propertybot/internal/extract"
	"propertybot/internal/logger"
	"propertybot/internal/metrics"
	"propertybot/internal/model"
)

// Outcome is the terminal state of an accepted call to Ingest.
type Outcome string

const (
	OutcomePersisted Outcome = "persisted"
	OutcomeRejected  Outcome = "rejected"
)

// IngestResult describes what happened to one message.
type IngestResult struct {
	Outcome  Outcome
	Listing  *model.Listing
	Brochure *model.BrochureFile
	// Reason is the matched reject phrase for rejected messages.
	Reason string
	// Degraded is set when extraction found no unit variant.
	Degraded bool
}

// BrochureCapturer stores a document message and returns the derived text notification.
type BrochureCapturer interface {
	Capture(ctx context.Context, msg model.RawMessage) (*model.BrochureFile, model.RawMessage, error)
}

// Gateway is the single entry point for every message source.
type Gateway interface {
	// Ingest classifies, extracts and persists a text message, or captures a
	// PDF document and ingests the notification derived from it.
	Ingest(ctx context.Context, msg model.RawMessage) (*IngestResult, error)
}

type gateway struct {
	classifier *classify.Classifier
	extractor  *extract.Extractor
	listings   ListingService
	capturer   BrochureCapturer
	metrics    *metrics.Pipeline
	log        zerolog.Logger
}

// NewGateway wires the pipeline stages. m may be nil.
func NewGateway(c *classify.Classifier, e *extract.Extractor, listings ListingService, capturer BrochureCapturer, m *metrics.Pipeline) Gateway {
	return &gateway{
		classifier: c,
		extractor:  e,
		listings:   listings,
		capturer:   capturer,
		metrics:    m,
		log:        logger.Component("gateway"),
	}
}

func (g *gateway) Ingest(ctx context.Context, msg model.RawMessage) (*IngestResult, error) {
	if err := msg.Validate(); err != nil {
		g.metrics.Message(metrics.OutcomeInvalid)
		return nil, err
	}
	if msg.Kind == model.KindDocument {
		return g.ingestDocument(ctx, msg)
	}
	return g.ingestText(ctx, msg)
}

func (g *gateway) ingestDocument(ctx context.Context, msg model.RawMessage) (*IngestResult, error) {
	if !brochure.IsPDF(msg.MediaMimeType, msg.MediaFilename) {
		g.metrics.Message(metrics.OutcomeInvalid)
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMedia, msg.MediaMimeType)
	}
	file, notice, err := g.capturer.Capture(ctx, msg)
	if err != nil {
		g.log.Error().
			Str("event", "brochure_capture_failed").
			Str("group", msg.Origin()).
			Str("filename", msg.MediaFilename).
			Err(err).
			Msg("brochure capture failed")
		g.metrics.Message(metrics.OutcomePersistFailed)
		return nil, fmt.Errorf("%w: %w", ErrCaptureFailed, err)
	}

	res, err := g.ingestText(ctx, notice)
	if err != nil {
		return nil, err
	}
	res.Brochure = file
	return res, nil
}

func (g *gateway) ingestText(ctx context.Context, msg model.RawMessage) (*IngestResult, error) {
	if strings.TrimSpace(msg.Body) == "" {
		g.metrics.Message(metrics.OutcomeInvalid)
		return nil, ErrEmptyMessage
	}

	verdict, reason := g.classifier.Explain(msg.Body)
	if verdict == classify.Reject {
		g.log.Info().
			Str("event", "message_rejected").
			Str("group", msg.Origin()).
			Str("sender", msg.Sender()).
			Str("reason", reason).
			Msg("message classified as noise")
		g.metrics.Message(metrics.OutcomeRejected)
		return &IngestResult{Outcome: OutcomeRejected, Reason: reason}, nil
	}

	ext := g.extractor.Extract(msg.Body)
	if ext.Degraded() {
		g.log.Warn().
			Str("event", "extraction_degraded").
			Str("group", msg.Origin()).
			Str("project", ext.Project).
			Msg("no unit variant recognised, storing placeholders")
	}

	stored, err := g.listings.Create(ctx, &model.Listing{
		Developer:   ext.Developer,
		Project:     ext.Project,
		Prices:      ext.Prices,
		Sizes:       ext.Sizes,
		UnitTypes:   ext.UnitTypes,
		Status:      ext.Status,
		LaunchDate:  ext.LaunchDate,
		Notes:       ext.Notes,
		BrochureRef: msg.BrochureRef,
	})
	if err != nil {
		g.log.Error().
			Str("event", "persist_failed").
			Str("group", msg.Origin()).
			Str("project", ext.Project).
			Err(err).
			Msg("listing store rejected the record")
		g.metrics.Message(metrics.OutcomePersistFailed)
		return nil, fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}

	g.log.Info().
		Str("event", "listing_persisted").
		Str("id", stored.ID).
		Str("project", stored.Project).
		Str("group", msg.Origin()).
		Int("units", ext.Units).
		Msg("listing stored")
	g.metrics.Message(metrics.OutcomePersisted)

	return &IngestResult{Outcome: OutcomePersisted, Listing: stored, Degraded: ext.Degraded()}, nil
}
