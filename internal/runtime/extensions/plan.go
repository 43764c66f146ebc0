package extensions

import (
	"context"

	"github.com/drblury/msgflow/internal/runtime/capability"
	"github.com/drblury/msgflow/internal/runtime/models"
)

// PlanContext carries the client-side context a render plan depends on.
type PlanContext struct {
	Render    capability.RenderContext
	Decorator capability.DecoratorContext
}

// ActionInfo names an action the client can offer.
type ActionInfo struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// RenderPlan is everything a client needs to draw one message.
type RenderPlan struct {
	RunID       string                  `json:"run_id"`
	MessageGUID string                  `json:"message_guid"`
	Processed   models.ProcessedMessage `json:"processed"`
	// Content is nil for attachment-only messages.
	Content *capability.Block `json:"content,omitempty"`
	// Attachments is nil when the message has none.
	Attachments *capability.Block       `json:"attachments,omitempty"`
	Decorations []capability.Decoration `json:"decorations"`
	Actions     []ActionInfo            `json:"actions"`
}

// ContentRendererID returns the id of the renderer chosen for the text, or
// the attachment renderer for attachment-only messages.
func (p RenderPlan) ContentRendererID() string {
	switch {
	case p.Content != nil:
		return p.Content.RendererID
	case p.Attachments != nil:
		return p.Attachments.RendererID
	}
	return ""
}

// Plan enriches msg and resolves every handler the client needs for it.
func (c *Container) Plan(ctx context.Context, msg models.Message, pctx PlanContext) RenderPlan {
	pm := c.Pipeline.Process(ctx, msg)

	plan := RenderPlan{
		RunID:       pm.RunID,
		MessageGUID: msg.GUID,
		Processed:   pm,
		Decorations: []capability.Decoration{},
		Actions:     []ActionInfo{},
	}
	if msg.HasText() || !msg.HasAttachments() {
		block := c.ContentRenderers.Render(pm, pctx.Render)
		plan.Content = &block
	}
	if msg.HasAttachments() {
		block := c.AttachmentRenderers.Render(pm.Message.Attachments, pctx.Render)
		plan.Attachments = &block
	}
	for _, position := range capability.Positions() {
		plan.Decorations = append(plan.Decorations, c.Decorators.Decorate(pm, pctx.Decorator, position)...)
	}
	for _, action := range c.Actions.AvailableActions(pm) {
		plan.Actions = append(plan.Actions, ActionInfo{ID: action.ID(), Title: action.Title()})
	}
	return plan
}
