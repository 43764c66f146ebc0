package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/msgflow/internal/runtime/models"
	"github.com/drblury/msgflow/internal/runtime/pipeline"
	"github.com/drblury/msgflow/internal/runtime/registry"
)

type handler string

func (h handler) ID() string { return string(h) }

func TestRegisterIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	require.NoError(t, c.Register())
	require.NoError(t, c.Register())

	other := NewCollector(reg)
	require.NoError(t, other.Register())
}

func TestObserveRegistrations(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())
	require.NoError(t, c.Register())

	r := registry.New[handler]("test", registry.Settings{Observer: c})
	require.NoError(t, r.Register(handler("a")))
	require.NoError(t, r.Register(handler("a")))

	strict := registry.New[handler]("strict", registry.Settings{Observer: c, StrictIDs: true})
	require.NoError(t, strict.Register(handler("a")))
	require.Error(t, strict.Register(handler("a")))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.registrationsTotal.WithLabelValues("test", "accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.registrationsTotal.WithLabelValues("test", "duplicate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.registrationsTotal.WithLabelValues("strict", "rejected")))

	snap := c.Snapshot()
	assert.Equal(t, uint64(1), snap.Families["test"].Accepted)
	assert.Equal(t, uint64(1), snap.Families["test"].Duplicates)
	assert.Equal(t, uint64(1), snap.Families["strict"].Rejected)
	assert.False(t, snap.Families["test"].LastUpdatedAt.IsZero())
}

func TestObserveSelections(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.ObserveSelection("content_renderer", registry.OutcomeFallback)
	c.ObserveSelection("content_renderer", registry.OutcomeMatched)
	c.ObserveSelection("message_action", registry.OutcomeEmpty)

	snap := c.Snapshot()
	assert.Equal(t, uint64(1), snap.Families["content_renderer"].Fallbacks)
	assert.Equal(t, uint64(1), snap.Families["content_renderer"].Matched)
	assert.Equal(t, uint64(1), snap.Families["message_action"].Empty)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.selectionsTotal.WithLabelValues("content_renderer", "fallback")))
}

func TestPipelineHooks(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())
	p := pipeline.New(pipeline.Options{Hooks: c.PipelineHooks()})
	require.NoError(t, p.Register(pipeline.Func{
		Name: "seed",
		Rank: 2,
		Apply: func(_ context.Context, pm models.ProcessedMessage) models.ProcessedMessage {
			pm.Mentions = append(pm.Mentions, models.Mention{Text: "@a"})
			return pm
		},
	}))
	require.NoError(t, p.Register(pipeline.Func{
		Name: "wipe",
		Rank: 1,
		Apply: func(_ context.Context, pm models.ProcessedMessage) models.ProcessedMessage {
			pm.Mentions = pm.Mentions[:0]
			return pm
		},
	}))

	p.Process(context.Background(), models.Message{})
	p.Process(context.Background(), models.Message{})

	snap := c.Snapshot()
	assert.Equal(t, uint64(2), snap.PipelineRuns)
	assert.Equal(t, uint64(2), snap.AppendOnlyViolations)
	assert.Equal(t, 2.0, testutil.ToFloat64(c.violationsTotal.WithLabelValues("wipe")))
	assert.Equal(t, 2, testutil.CollectAndCount(c.processorDuration))
}

func TestBridgeCounters(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())
	c.RecordPlanPublished("plain_text")
	c.RecordPlanPublished("plain_text")
	c.RecordUnprocessable()

	assert.Equal(t, 2.0, testutil.ToFloat64(c.plansPublishedTotal.WithLabelValues("plain_text")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.unprocessableTotal))

	c.Reset()
	snap := c.Snapshot()
	assert.Zero(t, snap.PlansPublished)
	assert.Empty(t, snap.Families)
}
