package capability

import (
	"strings"

	"github.com/drblury/msgflow/internal/runtime/models"
	"github.com/drblury/msgflow/internal/runtime/pipeline"
	"github.com/drblury/msgflow/internal/runtime/registry"
)

// ContentRendererRegistry picks the highest-priority content renderer that
// accepts a message.
type ContentRendererRegistry struct {
	*registry.Registry[ContentRenderer]
	fallback ContentRenderer
}

// NewContentRendererRegistry creates an empty content renderer registry.
func NewContentRendererRegistry(settings registry.Settings) *ContentRendererRegistry {
	return &ContentRendererRegistry{
		Registry: registry.New[ContentRenderer](FamilyContentRenderer, settings),
		fallback: PlainTextRenderer{},
	}
}

// Renderer never returns nil; without a match it returns PlainTextRenderer.
func (r *ContentRendererRegistry) Renderer(pm models.ProcessedMessage) ContentRenderer {
	h, ok := registry.SelectByPriority(r.All(), func(h ContentRenderer) bool {
		return h.CanRender(pm)
	})
	if !ok {
		r.Record(registry.OutcomeFallback)
		return r.fallback
	}
	r.Record(registry.OutcomeMatched)
	return h
}

// Render selects a renderer and runs it.
func (r *ContentRendererRegistry) Render(pm models.ProcessedMessage, rctx RenderContext) Block {
	return r.Renderer(pm).Render(pm, rctx)
}

const (
	PlainTextRendererID       = "plain_text"
	HighlightedTextRendererID = "highlighted_text"
	LinkPreviewRendererID     = "link_preview"
)

// PlainTextRenderer shows the text as is. It accepts every message.
type PlainTextRenderer struct{}

func (PlainTextRenderer) ID() string                             { return PlainTextRendererID }
func (PlainTextRenderer) Priority() int                          { return 0 }
func (PlainTextRenderer) CanRender(models.ProcessedMessage) bool { return true }

func (PlainTextRenderer) Render(pm models.ProcessedMessage, _ RenderContext) Block {
	return Block{RendererID: PlainTextRendererID, Kind: BlockText, Text: pm.Message.Text}
}

// HighlightedTextRenderer splits the text into plain and highlighted segments.
type HighlightedTextRenderer struct{}

func (HighlightedTextRenderer) ID() string    { return HighlightedTextRendererID }
func (HighlightedTextRenderer) Priority() int { return 10 }

func (HighlightedTextRenderer) CanRender(pm models.ProcessedMessage) bool {
	return pm.Message.HasText() && len(pm.Highlights) > 0
}

func (HighlightedTextRenderer) Render(pm models.ProcessedMessage, _ RenderContext) Block {
	return Block{
		RendererID: HighlightedTextRendererID,
		Kind:       BlockHighlightedText,
		Text:       pm.Message.Text,
		Segments:   pipeline.Compose(pm.Message.Text, pm.Highlights),
	}
}

// LinkPreviewRenderer shows a preview card for messages that consist of a
// single link.
type LinkPreviewRenderer struct{}

func (LinkPreviewRenderer) ID() string    { return LinkPreviewRendererID }
func (LinkPreviewRenderer) Priority() int { return 30 }

func (LinkPreviewRenderer) CanRender(pm models.ProcessedMessage) bool {
	if pm.LinkURL == "" {
		return false
	}
	text := strings.TrimSpace(pm.Message.Text)
	for _, h := range pm.HighlightsOf(models.HighlightLink) {
		if h.Text == text {
			return true
		}
	}
	return false
}

func (LinkPreviewRenderer) Render(pm models.ProcessedMessage, _ RenderContext) Block {
	return Block{
		RendererID: LinkPreviewRendererID,
		Kind:       BlockLinkPreview,
		Text:       pm.Message.Text,
		URL:        pm.LinkURL,
	}
}
