package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/drblury/msgflow/internal/runtime/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func appendMention(id string, priority int, text string) Func {
	return Func{
		Name: id,
		Rank: priority,
		Apply: func(_ context.Context, pm models.ProcessedMessage) models.ProcessedMessage {
			pm.Mentions = append(pm.Mentions, models.Mention{Text: text})
			return pm
		},
	}
}

func TestProcessWithoutProcessors(t *testing.T) {
	p := New(Options{NewRunID: func() string { return "run-1" }})
	msg := models.Message{GUID: "g1", Text: "hello"}

	pm := p.Process(context.Background(), msg)

	assert.Equal(t, "run-1", pm.RunID)
	assert.Equal(t, msg, pm.Message)
	assert.NotNil(t, pm.DetectedCodes)
	assert.NotNil(t, pm.Highlights)
	assert.NotNil(t, pm.Mentions)
	assert.Empty(t, pm.DetectedCodes)
	assert.Empty(t, pm.Highlights)
	assert.Empty(t, pm.Mentions)
}

func TestProcessGeneratesRunIDs(t *testing.T) {
	p := New(Options{})
	first := p.Process(context.Background(), models.Message{})
	second := p.Process(context.Background(), models.Message{})

	assert.NotEmpty(t, first.RunID)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestProcessFoldsInPriorityOrder(t *testing.T) {
	p := New(Options{})
	var seen []int
	require.NoError(t, p.Register(Func{
		Name: "high",
		Rank: 100,
		Apply: func(_ context.Context, pm models.ProcessedMessage) models.ProcessedMessage {
			seen = append(seen, len(pm.Mentions))
			pm.Mentions = append(pm.Mentions, models.Mention{Text: "@high"})
			return pm
		},
	}))
	require.NoError(t, p.Register(Func{
		Name: "low",
		Rank: 50,
		Apply: func(_ context.Context, pm models.ProcessedMessage) models.ProcessedMessage {
			seen = append(seen, len(pm.Mentions))
			pm.Mentions = append(pm.Mentions, models.Mention{Text: "@low"})
			return pm
		},
	}))

	pm := p.Process(context.Background(), models.Message{Text: "x"})

	assert.Equal(t, []int{0, 1}, seen)
	assert.Equal(t, []string{"@high", "@low"}, pm.MentionTexts())
}

func TestRegisterResortsByPriority(t *testing.T) {
	p := New(Options{})
	require.NoError(t, p.Register(appendMention("low", 50, "@low")))
	require.NoError(t, p.Register(appendMention("high", 100, "@high")))

	assert.Equal(t, []string{"high", "low"}, p.IDs())
	pm := p.Process(context.Background(), models.Message{})
	assert.Equal(t, []string{"@high", "@low"}, pm.MentionTexts())
}

func TestProcessSnapshotIsolation(t *testing.T) {
	p := New(Options{})
	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, p.Register(Func{
		Name: "blocking",
		Rank: 100,
		Apply: func(_ context.Context, pm models.ProcessedMessage) models.ProcessedMessage {
			close(started)
			<-release
			pm.Mentions = append(pm.Mentions, models.Mention{Text: "@blocking"})
			return pm
		},
	}))

	var (
		wg       sync.WaitGroup
		inFlight models.ProcessedMessage
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		inFlight = p.Process(context.Background(), models.Message{Text: "x"})
	}()

	<-started
	require.NoError(t, p.Register(appendMention("late", 1000, "@late")))
	close(release)
	wg.Wait()

	assert.Equal(t, []string{"@blocking"}, inFlight.MentionTexts())

	p.Reset()
	require.NoError(t, p.Register(appendMention("late", 1000, "@late")))
	next := p.Process(context.Background(), models.Message{Text: "x"})
	assert.Equal(t, []string{"@late"}, next.MentionTexts())
}

func TestProcessDoesNotMutateInput(t *testing.T) {
	p := New(Options{})
	require.NoError(t, p.Register(Func{
		Name: "mutator",
		Rank: 1,
		Apply: func(_ context.Context, pm models.ProcessedMessage) models.ProcessedMessage {
			pm.Message.Attachments[0].Filename = "changed"
			pm.Message.Text = "changed"
			return pm
		},
	}))
	msg := models.Message{Text: "original", Attachments: []models.Attachment{{Filename: "a.png"}}}

	pm := p.Process(context.Background(), msg)

	assert.Equal(t, "a.png", msg.Attachments[0].Filename)
	assert.Equal(t, "original", pm.Message.Text)
	assert.Equal(t, "a.png", pm.Message.Attachments[0].Filename)
}

func TestAppendOnlyGuardRestoresEntries(t *testing.T) {
	var violations []RunContext
	p := New(Options{Hooks: Hooks{
		OnAppendOnlyViolation: func(run RunContext) { violations = append(violations, run) },
	}})
	require.NoError(t, p.Register(appendMention("first", 100, "@first")))
	require.NoError(t, p.Register(Func{
		Name: "clearer",
		Rank: 50,
		Apply: func(_ context.Context, pm models.ProcessedMessage) models.ProcessedMessage {
			pm.Mentions = nil
			pm.Highlights = append(pm.Highlights, models.TextHighlight{Text: "x", End: 1, Type: models.HighlightLink})
			return pm
		},
	}))
	require.NoError(t, p.Register(Func{
		Name: "rewriter",
		Rank: 10,
		Apply: func(_ context.Context, pm models.ProcessedMessage) models.ProcessedMessage {
			pm.Mentions[0].Text = "@rewritten"
			pm.Mentions = append(pm.Mentions, models.Mention{Text: "@added"})
			return pm
		},
	}))

	pm := p.Process(context.Background(), models.Message{Text: "x"})

	assert.Equal(t, []string{"@first", "@added"}, pm.MentionTexts())
	assert.Len(t, pm.Highlights, 1)
	require.Len(t, violations, 2)
	assert.Equal(t, "clearer", violations[0].ProcessorID)
	assert.Equal(t, []string{"mentions"}, violations[0].Violations)
	assert.Equal(t, "rewriter", violations[1].ProcessorID)
}

func TestHooksObserveRun(t *testing.T) {
	var events []string
	hooks := Hooks{
		OnProcessStart: func(run RunContext) { events = append(events, "start") },
		OnProcessDone:  func(run RunContext) { events = append(events, "done") },
	}.Merge(Hooks{
		OnProcessorDone: func(run RunContext) { events = append(events, "processor:"+run.ProcessorID) },
		OnProcessDone:   func(run RunContext) { events = append(events, "done-2") },
	})
	p := New(Options{Hooks: hooks})
	require.NoError(t, p.Register(appendMention("a", 2, "@a")))
	require.NoError(t, p.Register(appendMention("b", 1, "@b")))

	p.Process(context.Background(), models.Message{})

	assert.Equal(t, []string{"start", "processor:a", "processor:b", "done", "done-2"}, events)
}

func TestMetricsHooksAdaptCallbacks(t *testing.T) {
	var processors []string
	var runs int
	hooks := MetricsHooks(
		func(id string, _ time.Duration) { processors = append(processors, id) },
		func(time.Duration) { runs++ },
		nil,
	)
	assert.Nil(t, hooks.OnAppendOnlyViolation)

	p := New(Options{Hooks: hooks})
	require.NoError(t, p.Register(appendMention("only", 1, "@x")))
	p.Process(context.Background(), models.Message{})

	assert.Equal(t, []string{"only"}, processors)
	assert.Equal(t, 1, runs)
}

func TestProcessorPanicPropagates(t *testing.T) {
	p := New(Options{})
	require.NoError(t, p.Register(Func{
		Name: "panics",
		Rank: 1,
		Apply: func(context.Context, models.ProcessedMessage) models.ProcessedMessage {
			panic("boom")
		},
	}))

	assert.PanicsWithValue(t, "boom", func() {
		p.Process(context.Background(), models.Message{})
	})
}

func TestLoggingHooksDoNotPanicWithNilLogger(t *testing.T) {
	p := New(Options{Hooks: LoggingHooks(nil)})
	require.NoError(t, p.Register(appendMention("a", 1, "@a")))
	assert.NotPanics(t, func() {
		p.Process(context.Background(), models.Message{GUID: "g"})
	})
}
