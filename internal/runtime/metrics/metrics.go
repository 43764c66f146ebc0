// Package metrics exposes registry, pipeline and bridge statistics as
// Prometheus collectors and as an in-memory snapshot for the HTTP API.
package metrics

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/drblury/msgflow/internal/runtime/pipeline"
	"github.com/drblury/msgflow/internal/runtime/registry"
)

const namespace = "msgflow"

var durationBuckets = []float64{.00005, .0001, .00025, .0005, .001, .0025, .005, .01, .05, .1}

// FamilyStats counts events of one capability family.
type FamilyStats struct {
	Accepted      uint64    `json:"accepted"`
	Duplicates    uint64    `json:"duplicates"`
	Rejected      uint64    `json:"rejected"`
	Matched       uint64    `json:"matched"`
	Fallbacks     uint64    `json:"fallbacks"`
	Empty         uint64    `json:"empty"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
}

// Snapshot is a point-in-time copy of the collector's counters.
type Snapshot struct {
	Families             map[string]FamilyStats `json:"families"`
	PipelineRuns         uint64                 `json:"pipeline_runs"`
	AppendOnlyViolations uint64                 `json:"append_only_violations"`
	PlansPublished       uint64                 `json:"plans_published"`
	Unprocessable        uint64                 `json:"unprocessable"`
	CollectedAt          time.Time              `json:"collected_at"`
}

// Collector implements registry.Observer and provides pipeline hooks.
type Collector struct {
	mu sync.RWMutex

	families      map[string]*FamilyStats
	runs          uint64
	violations    uint64
	published     uint64
	unprocessable uint64

	registrationsTotal  *prometheus.CounterVec
	selectionsTotal     *prometheus.CounterVec
	runDuration         prometheus.Histogram
	processorDuration   *prometheus.HistogramVec
	violationsTotal     *prometheus.CounterVec
	plansPublishedTotal *prometheus.CounterVec
	unprocessableTotal  prometheus.Counter

	registerer prometheus.Registerer
	registered bool
}

func newCounterVec(subsystem, name, help string, labels []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

func newHistogramVec(subsystem, name, help string, labels []string) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
			Buckets:   durationBuckets,
		},
		labels,
	)
}

// NewCollector creates a collector. A nil registerer selects the default
// Prometheus registerer.
func NewCollector(registerer prometheus.Registerer) *Collector {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	runDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "run_duration_seconds",
		Help:      "Duration of a full pipeline run",
		Buckets:   durationBuckets,
	})
	unprocessable := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "bridge",
		Name:      "unprocessable_messages_total",
		Help:      "Inbound messages that could not be decoded",
	})

	return &Collector{
		families:            make(map[string]*FamilyStats),
		registerer:          registerer,
		registrationsTotal:  newCounterVec("registry", "registrations_total", "Handler registrations by family and result", []string{"family", "result"}),
		selectionsTotal:     newCounterVec("registry", "selections_total", "Handler selections by family and outcome", []string{"family", "outcome"}),
		runDuration:         runDuration,
		processorDuration:   newHistogramVec("pipeline", "processor_duration_seconds", "Duration of a single processor step", []string{"processor"}),
		violationsTotal:     newCounterVec("pipeline", "append_only_violations_total", "Processor results that removed or rewrote earlier enrichment", []string{"processor"}),
		plansPublishedTotal: newCounterVec("bridge", "plans_published_total", "Render plans published, by content renderer", []string{"renderer"}),
		unprocessableTotal:  unprocessable,
	}
}

// Register registers the Prometheus collectors. Safe to call multiple times.
func (c *Collector) Register() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.registered {
		return nil
	}
	collectors := []prometheus.Collector{
		c.registrationsTotal,
		c.selectionsTotal,
		c.runDuration,
		c.processorDuration,
		c.violationsTotal,
		c.plansPublishedTotal,
		c.unprocessableTotal,
	}
	for _, col := range collectors {
		if err := c.registerer.Register(col); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return err
			}
		}
	}
	c.registered = true
	return nil
}

// ObserveRegistration implements registry.Observer.
func (c *Collector) ObserveRegistration(family, _ string, result registry.RegistrationResult) {
	c.mu.Lock()
	stats := c.familyLocked(family)
	switch result {
	case registry.RegistrationAccepted:
		stats.Accepted++
	case registry.RegistrationDuplicate:
		stats.Duplicates++
	case registry.RegistrationRejected:
		stats.Rejected++
	}
	c.mu.Unlock()

	c.registrationsTotal.WithLabelValues(family, string(result)).Inc()
}

// ObserveSelection implements registry.Observer.
func (c *Collector) ObserveSelection(family string, outcome registry.Outcome) {
	c.mu.Lock()
	stats := c.familyLocked(family)
	switch outcome {
	case registry.OutcomeMatched:
		stats.Matched++
	case registry.OutcomeFallback:
		stats.Fallbacks++
	case registry.OutcomeEmpty:
		stats.Empty++
	}
	c.mu.Unlock()

	c.selectionsTotal.WithLabelValues(family, string(outcome)).Inc()
}

// PipelineHooks records run and processor durations and append-only
// violations.
func (c *Collector) PipelineHooks() pipeline.Hooks {
	return pipeline.MetricsHooks(
		func(processorID string, d time.Duration) {
			c.processorDuration.WithLabelValues(processorID).Observe(d.Seconds())
		},
		func(d time.Duration) {
			c.mu.Lock()
			c.runs++
			c.mu.Unlock()
			c.runDuration.Observe(d.Seconds())
		},
		func(processorID string) {
			c.mu.Lock()
			c.violations++
			c.mu.Unlock()
			c.violationsTotal.WithLabelValues(processorID).Inc()
		},
	)
}

// RecordPlanPublished counts a plan published by the bridge.
func (c *Collector) RecordPlanPublished(renderer string) {
	c.mu.Lock()
	c.published++
	c.mu.Unlock()
	c.plansPublishedTotal.WithLabelValues(renderer).Inc()
}

// RecordUnprocessable counts an inbound message routed to the poison queue.
func (c *Collector) RecordUnprocessable() {
	c.mu.Lock()
	c.unprocessable++
	c.mu.Unlock()
	c.unprocessableTotal.Inc()
}

// Snapshot returns a copy of the in-memory counters.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snapshot := Snapshot{
		Families:             make(map[string]FamilyStats, len(c.families)),
		PipelineRuns:         c.runs,
		AppendOnlyViolations: c.violations,
		PlansPublished:       c.published,
		Unprocessable:        c.unprocessable,
		CollectedAt:          time.Now(),
	}
	for family, stats := range c.families {
		snapshot.Families[family] = *stats
	}
	return snapshot
}

// Reset clears every counter. Meant for tests.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.families = make(map[string]*FamilyStats)
	c.runs, c.violations, c.published, c.unprocessable = 0, 0, 0, 0
	c.registrationsTotal.Reset()
	c.selectionsTotal.Reset()
	c.processorDuration.Reset()
	c.violationsTotal.Reset()
	c.plansPublishedTotal.Reset()
}

func (c *Collector) familyLocked(family string) *FamilyStats {
	stats, ok := c.families[family]
	if !ok {
		stats = &FamilyStats{}
		c.families[family] = stats
	}
	stats.LastUpdatedAt = time.Now()
	return stats
}
