package source

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"propertybot/internal/config"
	"propertybot/internal/logger"
	"propertybot/internal/metrics"
	"propertybot/internal/model"
)

// Dispatcher forwards messages fire-and-forget. Each message gets its own
// goroutine, started in arrival order; completions may interleave. Failures
// are logged and counted, never retried.
type Dispatcher struct {
	source  string
	fwd     Forwarder
	limiter *rate.Limiter
	timeout time.Duration
	metrics *metrics.Pipeline
	log     zerolog.Logger
	wg      sync.WaitGroup
}

// NewDispatcher returns a Dispatcher labelled source for logs and metrics.
func NewDispatcher(source string, fwd Forwarder, cfg config.ForwardConfig, m *metrics.Pipeline) *Dispatcher {
	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		source:  source,
		fwd:     fwd,
		limiter: rate.NewLimiter(limit, burst),
		timeout: timeout,
		metrics: m,
		log:     logger.Component("dispatcher").With().Str("source", source).Logger(),
	}
}

// Dispatch starts forwarding msgs and returns immediately.
func (d *Dispatcher) Dispatch(msgs ...model.RawMessage) {
	for _, msg := range msgs {
		d.wg.Add(1)
		go d.forward(msg)
	}
}

func (d *Dispatcher) forward(msg model.RawMessage) {
	defer d.wg.Done()
	defer func() {
		if rec := recover(); rec != nil {
			d.log.Error().Bytes("stack", debug.Stack()).Msg("panic recovered")
			d.fail(msg, fmt.Errorf("panic: %v", rec))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.limiter.Wait(ctx); err != nil {
		d.fail(msg, err)
		return
	}
	if err := d.fwd.Forward(ctx, msg); err != nil {
		d.fail(msg, err)
		return
	}
	d.log.Debug().Str("message_id", msg.ID).Str("group", msg.Origin()).Msg("message forwarded")
}

func (d *Dispatcher) fail(msg model.RawMessage, err error) {
	d.log.Error().
		Str("event", "forward_failed").
		Str("message_id", msg.ID).
		Str("group", msg.Origin()).
		Str("kind", string(msg.Kind)).
		Err(err).
		Msg("message dropped")
	d.metrics.ForwardFailure(d.source)
}

// Wait blocks until every dispatched message has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
