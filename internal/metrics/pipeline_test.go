package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := NewPipeline(reg)
	require.NoError(t, err)

	p.Message(OutcomePersisted)
	p.Message(OutcomePersisted)
	p.Message(OutcomeRejected)
	p.ForwardFailure("webhook")

	assert.Equal(t, 2.0, testutil.ToFloat64(p.messages.WithLabelValues(OutcomePersisted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.messages.WithLabelValues(OutcomeRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.forwardFailures.WithLabelValues("webhook")))
}

func TestNewPipeline_ReusesRegisteredCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPipeline(reg)
	require.NoError(t, err)
	second, err := NewPipeline(reg)
	require.NoError(t, err)

	first.Message(OutcomeRejected)
	second.Message(OutcomeRejected)

	assert.Equal(t, 2.0, testutil.ToFloat64(first.messages.WithLabelValues(OutcomeRejected)))
}

func TestNilPipeline(t *testing.T) {
	var p *Pipeline
	assert.NotPanics(t, func() {
		p.Message(OutcomePersisted)
		p.ForwardFailure("chat")
	})
}
