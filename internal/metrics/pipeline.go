// Package metrics holds the Prometheus counters of the listing pipeline.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Pipeline outcomes.
const (
	OutcomePersisted     = "persisted"
	OutcomeRejected      = "rejected"
	OutcomePersistFailed = "persist_failed"
	OutcomeInvalid       = "invalid"
)

// Pipeline counts terminal states of ingested messages and failed forwards.
// A nil *Pipeline is valid and records nothing.
type Pipeline struct {
	messages        *prometheus.CounterVec
	forwardFailures *prometheus.CounterVec
}

// NewPipeline creates the counters and registers them on reg. Counters that
// are already registered on reg are reused.
func NewPipeline(reg prometheus.Registerer) (*Pipeline, error) {
	messages := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listing_pipeline_messages_total",
			Help: "Messages that reached a terminal pipeline state, by outcome.",
		},
		[]string{"outcome"},
	)
	failures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listing_forward_failures_total",
			Help: "Messages a source adapter failed to hand to the gateway, by source.",
		},
		[]string{"source"},
	)

	var err error
	if messages, err = register(reg, messages); err != nil {
		return nil, err
	}
	if failures, err = register(reg, failures); err != nil {
		return nil, err
	}
	return &Pipeline{messages: messages, forwardFailures: failures}, nil
}

func register(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return c, nil
}

// Message records one message ending in outcome.
func (p *Pipeline) Message(outcome string) {
	if p == nil {
		return
	}
	p.messages.WithLabelValues(outcome).Inc()
}

// ForwardFailure records a message lost between an adapter and the gateway.
func (p *Pipeline) ForwardFailure(source string) {
	if p == nil {
		return
	}
	p.forwardFailures.WithLabelValues(source).Inc()
}
