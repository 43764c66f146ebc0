package extensions

import (
	"github.com/drblury/msgflow/internal/runtime/capability"
	"github.com/drblury/msgflow/internal/runtime/registry"
)

// HandlerInfo describes one registered handler.
type HandlerInfo struct {
	ID       string                    `json:"id"`
	Priority *int                      `json:"priority,omitempty"`
	Position capability.BubblePosition `json:"position,omitempty"`
	Title    string                    `json:"title,omitempty"`
	Types    []string                  `json:"types,omitempty"`
}

// Inventory lists the registered handlers of every family in list order.
type Inventory struct {
	Processors          []HandlerInfo `json:"processors"`
	ContentRenderers    []HandlerInfo `json:"content_renderers"`
	AttachmentRenderers []HandlerInfo `json:"attachment_renderers"`
	Decorators          []HandlerInfo `json:"decorators"`
	Actions             []HandlerInfo `json:"actions"`
	AttachmentTypes     []HandlerInfo `json:"attachment_types"`
}

// Inventory snapshots every registry.
func (c *Container) Inventory() Inventory {
	return Inventory{
		Processors:          describe(c.Pipeline.All(), prioritized),
		ContentRenderers:    describe(c.ContentRenderers.All(), prioritized),
		AttachmentRenderers: describe(c.AttachmentRenderers.All(), prioritized),
		Decorators: describe(c.Decorators.All(), func(d capability.BubbleDecorator, info *HandlerInfo) {
			info.Position = d.Position()
		}),
		Actions: describe(c.Actions.All(), func(a capability.MessageAction, info *HandlerInfo) {
			info.Title = a.Title()
		}),
		AttachmentTypes: describe(c.AttachmentTypes.All(), func(h capability.AttachmentTypeHandler, info *HandlerInfo) {
			info.Types = h.SupportedTypes()
		}),
	}
}

func describe[H registry.Handler](handlers []H, detail func(H, *HandlerInfo)) []HandlerInfo {
	out := make([]HandlerInfo, 0, len(handlers))
	for _, h := range handlers {
		info := HandlerInfo{ID: h.ID()}
		detail(h, &info)
		out = append(out, info)
	}
	return out
}

func prioritized[H registry.Prioritized](h H, info *HandlerInfo) {
	p := h.Priority()
	info.Priority = &p
}
