package capability

import (
	"time"

	"github.com/drblury/msgflow/internal/runtime/models"
	"github.com/drblury/msgflow/internal/runtime/registry"
)

// DecoratorRegistry answers which decorators apply at one bubble position.
type DecoratorRegistry struct {
	*registry.Registry[BubbleDecorator]
}

// NewDecoratorRegistry creates an empty decorator registry.
func NewDecoratorRegistry(settings registry.Settings) *DecoratorRegistry {
	return &DecoratorRegistry{Registry: registry.New[BubbleDecorator](FamilyBubbleDecorator, settings)}
}

// Decorators returns, in registration order, the decorators placed at
// position that want to decorate pm. The result may be empty.
func (r *DecoratorRegistry) Decorators(pm models.ProcessedMessage, dctx DecoratorContext, position BubblePosition) []BubbleDecorator {
	matched := registry.Filter(r.All(), func(d BubbleDecorator) bool {
		return d.Position() == position && d.ShouldDecorate(pm, dctx)
	})
	if len(matched) == 0 {
		r.Record(registry.OutcomeEmpty)
	} else {
		r.Record(registry.OutcomeMatched)
	}
	return matched
}

// Decorate runs every applicable decorator at position.
func (r *DecoratorRegistry) Decorate(pm models.ProcessedMessage, dctx DecoratorContext, position BubblePosition) []Decoration {
	decorators := r.Decorators(pm, dctx, position)
	out := make([]Decoration, 0, len(decorators))
	for _, d := range decorators {
		out = append(out, d.Decorate(pm, dctx))
	}
	return out
}

const (
	SenderNameDecoratorID = "sender_name"
	TimestampDecoratorID  = "timestamp"
	CodeBadgeDecoratorID  = "code_badge"
)

// SenderNameDecorator labels the first incoming message of a group run in a
// group conversation.
type SenderNameDecorator struct{}

func (SenderNameDecorator) ID() string               { return SenderNameDecoratorID }
func (SenderNameDecorator) Position() BubblePosition { return PositionTop }

func (SenderNameDecorator) ShouldDecorate(pm models.ProcessedMessage, dctx DecoratorContext) bool {
	return dctx.IsGroup && dctx.IsFirstInGroup && !pm.Message.IsFromMe
}

func (SenderNameDecorator) Decorate(pm models.ProcessedMessage, dctx DecoratorContext) Decoration {
	name := dctx.SenderName
	if name == "" {
		name = pm.Message.Sender
	}
	return Decoration{DecoratorID: SenderNameDecoratorID, Position: PositionTop, Text: name}
}

// TimestampDecorator shows the send time under the last message of a run.
type TimestampDecorator struct {
	// Layout is a time.Format layout; empty means "15:04".
	Layout string
}

func (TimestampDecorator) ID() string               { return TimestampDecoratorID }
func (TimestampDecorator) Position() BubblePosition { return PositionBottom }

func (TimestampDecorator) ShouldDecorate(pm models.ProcessedMessage, dctx DecoratorContext) bool {
	return dctx.IsLastInGroup && !pm.Message.Timestamp.IsZero()
}

func (d TimestampDecorator) Decorate(pm models.ProcessedMessage, dctx DecoratorContext) Decoration {
	layout := d.Layout
	if layout == "" {
		layout = "15:04"
	}
	loc := dctx.Location
	if loc == nil {
		loc = time.Local
	}
	return Decoration{
		DecoratorID: TimestampDecoratorID,
		Position:    PositionBottom,
		Text:        pm.Message.Timestamp.In(loc).Format(layout),
	}
}

// CodeBadgeDecorator marks messages that carry a one-time code.
type CodeBadgeDecorator struct{}

func (CodeBadgeDecorator) ID() string               { return CodeBadgeDecoratorID }
func (CodeBadgeDecorator) Position() BubblePosition { return PositionTrailing }

func (CodeBadgeDecorator) ShouldDecorate(pm models.ProcessedMessage, _ DecoratorContext) bool {
	return len(pm.DetectedCodes) > 0
}

func (CodeBadgeDecorator) Decorate(pm models.ProcessedMessage, _ DecoratorContext) Decoration {
	code, _ := pm.BestCode()
	return Decoration{DecoratorID: CodeBadgeDecoratorID, Position: PositionTrailing, Text: code.Value}
}
