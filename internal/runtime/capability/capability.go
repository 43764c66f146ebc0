// Package capability defines the five handler families a rendering client
// queries after enrichment, their registries and the built-in handlers.
//
// Registries never fail a query. Renderer families fall back to a fixed
// handler, the other families answer with an empty result.
package capability

import (
	"context"
	"time"

	"github.com/drblury/msgflow/internal/runtime/models"
)

// Family names, used for logs and metric labels.
const (
	FamilyContentRenderer    = "content_renderer"
	FamilyAttachmentRenderer = "attachment_renderer"
	FamilyBubbleDecorator    = "bubble_decorator"
	FamilyMessageAction      = "message_action"
	FamilyAttachmentType     = "attachment_type"
)

// RenderContext is supplied by the client at render time and never stored.
type RenderContext struct {
	ConversationID string
	IsGroup        bool
	// MaxWidth is the available bubble width in points; zero means
	// unconstrained.
	MaxWidth int
}

// ContentRenderer renders the text part of a message.
type ContentRenderer interface {
	ID() string
	Priority() int
	CanRender(pm models.ProcessedMessage) bool
	Render(pm models.ProcessedMessage, rctx RenderContext) Block
}

// AttachmentRenderer renders the attachment list of a message as one block.
type AttachmentRenderer interface {
	ID() string
	Priority() int
	CanRender(atts []models.Attachment) bool
	Render(atts []models.Attachment, rctx RenderContext) Block
}

// BubblePosition places a decoration around a message bubble.
type BubblePosition string

const (
	PositionTop      BubblePosition = "top"
	PositionBottom   BubblePosition = "bottom"
	PositionLeading  BubblePosition = "leading"
	PositionTrailing BubblePosition = "trailing"
	PositionOverlay  BubblePosition = "overlay"
)

// Positions lists every bubble position in layout order.
func Positions() []BubblePosition {
	return []BubblePosition{PositionTop, PositionLeading, PositionTrailing, PositionBottom, PositionOverlay}
}

// DecoratorContext describes where a message sits in the conversation view.
type DecoratorContext struct {
	IsGroup        bool
	IsFirstInGroup bool
	IsLastInGroup  bool
	// SenderName is the display name resolved by the client; decorators
	// fall back to the raw sender handle.
	SenderName string
	// Location renders timestamps; nil means time.Local.
	Location *time.Location
}

// Decoration is the output of a bubble decorator.
type Decoration struct {
	DecoratorID string         `json:"decorator_id"`
	Position    BubblePosition `json:"position"`
	Text        string         `json:"text"`
}

// BubbleDecorator adds chrome around a message bubble.
type BubbleDecorator interface {
	ID() string
	Position() BubblePosition
	ShouldDecorate(pm models.ProcessedMessage, dctx DecoratorContext) bool
	Decorate(pm models.ProcessedMessage, dctx DecoratorContext) Decoration
}

// MessageAction is a user-triggered operation on a message.
type MessageAction interface {
	ID() string
	Title() string
	IsAvailable(pm models.ProcessedMessage) bool
	Perform(ctx context.Context, pm models.ProcessedMessage) error
}

// AttachmentTypeHandler processes attachments of the MIME types it lists.
// Patterns are exact types or "type/*".
type AttachmentTypeHandler interface {
	ID() string
	SupportedTypes() []string
	Handle(ctx context.Context, att models.Attachment) error
}
