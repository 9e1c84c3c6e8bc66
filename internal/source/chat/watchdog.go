package chat

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"propertybot/internal/logger"
)

// SessionManager owns the chat client session.
type SessionManager interface {
	IsAlive(ctx context.Context) bool
	Reinitialize(ctx context.Context) error
}

// Watchdog periodically checks the session and re-initialises it when it is
// not alive. It never exits on failure; the next tick tries again.
type Watchdog struct {
	session  SessionManager
	interval time.Duration
	log      zerolog.Logger
}

// NewWatchdog returns a watchdog checking s every interval.
func NewWatchdog(s SessionManager, interval time.Duration) *Watchdog {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Watchdog{session: s, interval: interval, log: logger.Component("watchdog")}
}

// Check runs one liveness probe. It reports whether a re-initialisation was
// attempted and the error it returned.
func (w *Watchdog) Check(ctx context.Context) (bool, error) {
	if w.session.IsAlive(ctx) {
		return false, nil
	}
	w.log.Warn().Str("event", "session_down").Msg("chat session not alive, re-initialising")
	if err := w.session.Reinitialize(ctx); err != nil {
		w.log.Error().Str("event", "session_reinit_failed").Err(err).Msg("re-initialisation failed")
		return true, err
	}
	w.log.Info().Str("event", "session_reinitialized").Msg("chat session re-initialised")
	return true, nil
}

// Run checks immediately and then on every tick until ctx is done.
func (w *Watchdog) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		checkCtx, cancel := context.WithTimeout(ctx, w.interval)
		_, _ = w.Check(checkCtx)
		cancel()

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
