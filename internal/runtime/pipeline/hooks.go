package pipeline

import (
	"context"
	"time"

	loggingpkg "github.com/drblury/msgflow/internal/runtime/logging"
)

// RunContext describes one pipeline run, or one processor step within it, to
// hooks.
type RunContext struct {
	// Context carries the run's span. For processor steps it is the
	// processor's child span.
	Context     context.Context
	RunID       string
	MessageGUID string
	// Processors is the size of the snapshot the run folds over.
	Processors int
	// ProcessorID is set for OnProcessorDone and OnAppendOnlyViolation.
	ProcessorID string
	StartedAt   time.Time
	// Duration of the whole run in OnProcessDone, of the step otherwise.
	Duration time.Duration
	// Violations names the lists a processor tried to shrink or rewrite.
	Violations []string
}

// Hooks are optional callbacks around a pipeline run. Nil hooks are skipped.
// Hooks run synchronously on the calling goroutine; a panicking hook aborts
// the run.
type Hooks struct {
	OnProcessStart        func(RunContext)
	OnProcessorDone       func(RunContext)
	OnProcessDone         func(RunContext)
	OnAppendOnlyViolation func(RunContext)
}

// Merge combines two Hooks. Hooks from other run after hooks from h.
func (h Hooks) Merge(other Hooks) Hooks {
	return Hooks{
		OnProcessStart:        chain(h.OnProcessStart, other.OnProcessStart),
		OnProcessorDone:       chain(h.OnProcessorDone, other.OnProcessorDone),
		OnProcessDone:         chain(h.OnProcessDone, other.OnProcessDone),
		OnAppendOnlyViolation: chain(h.OnAppendOnlyViolation, other.OnAppendOnlyViolation),
	}
}

func chain(a, b func(RunContext)) func(RunContext) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(run RunContext) {
		a(run)
		b(run)
	}
}

// LoggingHooks logs run boundaries at debug level and processor steps at
// trace level.
func LoggingHooks(logger loggingpkg.ServiceLogger) Hooks {
	logger = loggingpkg.OrNop(logger)
	return Hooks{
		OnProcessStart: func(run RunContext) {
			logger.Debug("Pipeline run started", loggingpkg.LogFields{
				"run_id":       run.RunID,
				"message_guid": run.MessageGUID,
				"processors":   run.Processors,
			})
		},
		OnProcessorDone: func(run RunContext) {
			logger.Trace("Processor finished", loggingpkg.LogFields{
				"run_id":       run.RunID,
				"processor_id": run.ProcessorID,
				"duration_us":  run.Duration.Microseconds(),
			})
		},
		OnProcessDone: func(run RunContext) {
			logger.Debug("Pipeline run completed", loggingpkg.LogFields{
				"run_id":       run.RunID,
				"message_guid": run.MessageGUID,
				"duration_us":  run.Duration.Microseconds(),
			})
		},
	}
}

// MetricsHooks adapts plain callbacks into Hooks.
func MetricsHooks(onProcessor func(processorID string, d time.Duration), onRun func(d time.Duration), onViolation func(processorID string)) Hooks {
	var hooks Hooks
	if onProcessor != nil {
		hooks.OnProcessorDone = func(run RunContext) { onProcessor(run.ProcessorID, run.Duration) }
	}
	if onRun != nil {
		hooks.OnProcessDone = func(run RunContext) { onRun(run.Duration) }
	}
	if onViolation != nil {
		hooks.OnAppendOnlyViolation = func(run RunContext) { onViolation(run.ProcessorID) }
	}
	return hooks
}
