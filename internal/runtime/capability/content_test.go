package capability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/msgflow/internal/runtime/models"
	"github.com/drblury/msgflow/internal/runtime/pipeline"
	"github.com/drblury/msgflow/internal/runtime/registry"
)

func TestContentRendererFallbackOnEmptyRegistry(t *testing.T) {
	obs := newRecordingObserver()
	reg := NewContentRendererRegistry(registry.Settings{Observer: obs})

	r := reg.Renderer(processed("hello"))

	require.NotNil(t, r)
	assert.Equal(t, PlainTextRendererID, r.ID())
	assert.Equal(t, []registry.Outcome{registry.OutcomeFallback}, obs.outcomes[FamilyContentRenderer])
}

func TestContentRendererFallbackWhenNothingMatches(t *testing.T) {
	reg := NewContentRendererRegistry(registry.Settings{})
	require.NoError(t, reg.Register(stubContentRenderer{id: "never", priority: 100}))

	assert.Equal(t, PlainTextRendererID, reg.Renderer(processed("hello")).ID())
}

func TestContentRendererHigherPriorityWins(t *testing.T) {
	low := stubContentRenderer{id: "low", priority: 1, accept: true}
	high := stubContentRenderer{id: "high", priority: 2, accept: true}

	for _, order := range [][]ContentRenderer{{low, high}, {high, low}} {
		reg := NewContentRendererRegistry(registry.Settings{})
		for _, r := range order {
			require.NoError(t, reg.Register(r))
		}
		assert.Equal(t, "high", reg.Renderer(processed("x")).ID())
	}
}

func TestBuiltInContentRenderers(t *testing.T) {
	reg := NewContentRendererRegistry(registry.Settings{})
	require.NoError(t, reg.Register(HighlightedTextRenderer{}))
	require.NoError(t, reg.Register(LinkPreviewRenderer{}))

	p := pipeline.New(pipeline.Options{})
	for _, proc := range pipeline.DefaultProcessors() {
		require.NoError(t, p.Register(proc))
	}

	tests := []struct {
		text string
		want string
		kind BlockKind
	}{
		{text: "just words", want: PlainTextRendererID, kind: BlockText},
		{text: "hi @carol", want: HighlightedTextRendererID, kind: BlockHighlightedText},
		{text: "  https://go.dev/blog ", want: LinkPreviewRendererID, kind: BlockLinkPreview},
		{text: "see https://go.dev/blog", want: HighlightedTextRendererID, kind: BlockHighlightedText},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			pm := p.Process(t.Context(), models.Message{Text: tt.text})
			block := reg.Render(pm, RenderContext{})

			assert.Equal(t, tt.want, block.RendererID)
			assert.Equal(t, tt.kind, block.Kind)
		})
	}
}

func TestHighlightedTextRendererSegments(t *testing.T) {
	pm := processed("hi @carol")
	pm.Highlights = append(pm.Highlights, models.TextHighlight{Text: "@carol", Start: 3, End: 9, Type: models.HighlightMention})

	block := HighlightedTextRenderer{}.Render(pm, RenderContext{})

	assert.Equal(t, []pipeline.Segment{
		{Text: "hi ", Start: 0, End: 3},
		{Text: "@carol", Start: 3, End: 9, Type: models.HighlightMention},
	}, block.Segments)
}

func TestLinkPreviewCarriesURL(t *testing.T) {
	pm := processed("go.dev")
	pm.Highlights = append(pm.Highlights, models.TextHighlight{Text: "go.dev", Start: 0, End: 6, Type: models.HighlightLink})
	pm.LinkURL = "https://go.dev"

	require.True(t, LinkPreviewRenderer{}.CanRender(pm))
	assert.Equal(t, "https://go.dev", LinkPreviewRenderer{}.Render(pm, RenderContext{}).URL)
}
