// Package pipeline folds a Message through priority-ordered processors into a
// ProcessedMessage.
//
// Processors are kept in a ranked registry: every registration re-sorts the
// list by priority descending, so a run only has to copy the list and walk
// it. Registrations that land while a run is in flight affect later runs
// only.
package pipeline

import (
	"context"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	idspkg "github.com/drblury/msgflow/internal/runtime/ids"
	loggingpkg "github.com/drblury/msgflow/internal/runtime/logging"
	"github.com/drblury/msgflow/internal/runtime/models"
	"github.com/drblury/msgflow/internal/runtime/registry"
)

// Family is the registry family name used for processors.
const Family = "message_processor"

const tracerName = "github.com/drblury/msgflow/pipeline"

// Processor enriches a ProcessedMessage. Implementations only append to the
// enrichment lists; entries added by earlier processors must survive.
type Processor interface {
	ID() string
	Priority() int
	Process(ctx context.Context, pm models.ProcessedMessage) models.ProcessedMessage
}

// Options configures a Pipeline. Every field is optional.
type Options struct {
	Logger    loggingpkg.ServiceLogger
	Observer  registry.Observer
	StrictIDs bool
	Hooks     Hooks
	Tracer    trace.Tracer
	// NewRunID overrides the ULID generator used for run ids.
	NewRunID func() string
}

// Pipeline is the processor registry plus the fold over it.
type Pipeline struct {
	*registry.Registry[Processor]

	logger   loggingpkg.ServiceLogger
	hooks    Hooks
	tracer   trace.Tracer
	newRunID func() string
}

// New builds an empty pipeline.
func New(opts Options) *Pipeline {
	logger := loggingpkg.OrNop(opts.Logger)
	settings := registry.Settings{Logger: logger, Observer: opts.Observer, StrictIDs: opts.StrictIDs}

	p := &Pipeline{
		Registry: registry.NewRanked[Processor](Family, settings, func(proc Processor) int {
			return proc.Priority()
		}),
		logger:   logger.With(loggingpkg.LogFields{"component": "pipeline"}),
		hooks:    opts.Hooks,
		tracer:   opts.Tracer,
		newRunID: opts.NewRunID,
	}
	if p.tracer == nil {
		p.tracer = otel.Tracer(tracerName)
	}
	if p.newRunID == nil {
		p.newRunID = idspkg.CreateULID
	}
	return p
}

// Process runs msg through a snapshot of the registered processors. With no
// processors the result carries empty enrichment lists and a fresh run id.
// Panics raised by processors or hooks reach the caller unchanged.
func (p *Pipeline) Process(ctx context.Context, msg models.Message) models.ProcessedMessage {
	if ctx == nil {
		ctx = context.Background()
	}
	snapshot := p.All()
	runID := p.newRunID()

	ctx, span := p.tracer.Start(ctx, "msgflow.pipeline.process", trace.WithAttributes(
		attribute.String("msgflow.run_id", runID),
		attribute.String("msgflow.message_guid", msg.GUID),
		attribute.Int("msgflow.processors", len(snapshot)),
	))
	defer span.End()

	run := RunContext{
		Context:     ctx,
		RunID:       runID,
		MessageGUID: msg.GUID,
		Processors:  len(snapshot),
		StartedAt:   time.Now(),
	}
	if p.hooks.OnProcessStart != nil {
		p.hooks.OnProcessStart(run)
	}

	acc := models.NewProcessedMessage(msg, runID)
	for _, proc := range snapshot {
		acc = p.apply(ctx, run, proc, acc)
	}

	run.Duration = time.Since(run.StartedAt)
	span.SetAttributes(
		attribute.Int("msgflow.highlights", len(acc.Highlights)),
		attribute.Int("msgflow.detected_codes", len(acc.DetectedCodes)),
		attribute.Int("msgflow.mentions", len(acc.Mentions)),
	)
	if p.hooks.OnProcessDone != nil {
		p.hooks.OnProcessDone(run)
	}
	return acc
}

func (p *Pipeline) apply(ctx context.Context, run RunContext, proc Processor, prev models.ProcessedMessage) models.ProcessedMessage {
	id := proc.ID()
	procCtx, span := p.tracer.Start(ctx, "msgflow.processor", trace.WithAttributes(
		attribute.String("msgflow.processor_id", id),
	))
	defer span.End()

	started := time.Now()
	next := proc.Process(procCtx, prev.Clone())

	run.Context = procCtx
	run.ProcessorID = id
	run.Duration = time.Since(started)

	if violated := guardAppendOnly(prev, &next); len(violated) > 0 {
		run.Violations = violated
		span.SetAttributes(attribute.StringSlice("msgflow.append_only_violations", violated))
		p.logger.Info("Processor removed or rewrote earlier enrichment; previous entries restored", loggingpkg.LogFields{
			"processor_id": id,
			"run_id":       run.RunID,
			"lists":        violated,
		})
		if p.hooks.OnAppendOnlyViolation != nil {
			p.hooks.OnAppendOnlyViolation(run)
		}
	}
	if p.hooks.OnProcessorDone != nil {
		p.hooks.OnProcessorDone(run)
	}
	return next
}

// guardAppendOnly makes next an extension of prev. The message and run id are
// always restored; for each list whose existing prefix was changed the
// previous entries are restored and only the processor's new tail is kept.
// It returns the names of the lists that had to be repaired.
func guardAppendOnly(prev models.ProcessedMessage, next *models.ProcessedMessage) []string {
	next.Message = prev.Message
	next.RunID = prev.RunID

	var violated []string
	var ok bool
	if next.DetectedCodes, ok = keepPrefix(prev.DetectedCodes, next.DetectedCodes); !ok {
		violated = append(violated, "detected_codes")
	}
	if next.Highlights, ok = keepPrefix(prev.Highlights, next.Highlights); !ok {
		violated = append(violated, "highlights")
	}
	if next.Mentions, ok = keepPrefix(prev.Mentions, next.Mentions); !ok {
		violated = append(violated, "mentions")
	}
	if prev.LinkURL != "" && next.LinkURL != prev.LinkURL {
		next.LinkURL = prev.LinkURL
		violated = append(violated, "link_url")
	}
	return violated
}

func keepPrefix[T comparable](prev, next []T) ([]T, bool) {
	if len(next) >= len(prev) && slices.Equal(next[:len(prev)], prev) {
		if next == nil {
			return []T{}, true
		}
		return next, true
	}
	repaired := slices.Clone(prev)
	if repaired == nil {
		repaired = []T{}
	}
	if len(next) > len(prev) {
		repaired = append(repaired, next[len(prev):]...)
	}
	return repaired, false
}
