package runtime

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/msgflow/internal/runtime/capability"
	errspkg "github.com/drblury/msgflow/internal/runtime/errors"
	"github.com/drblury/msgflow/internal/runtime/extensions"
	idspkg "github.com/drblury/msgflow/internal/runtime/ids"
	loggingpkg "github.com/drblury/msgflow/internal/runtime/logging"
	metadatapkg "github.com/drblury/msgflow/internal/runtime/metadata"
	"github.com/drblury/msgflow/internal/runtime/models"
)

// enrichHandler decodes an inbound Message, plans it and emits the plan on
// the outbound topic. Payloads that cannot be decoded are unprocessable.
func (s *Service) enrichHandler(msg *message.Message) ([]*message.Message, error) {
	var in models.Message
	if err := s.codec.Unmarshal(msg.Payload, &in); err != nil {
		s.metrics.RecordUnprocessable()
		return nil, &UnprocessableMessageError{payload: string(msg.Payload), err: err}
	}
	if in.GUID == "" {
		s.metrics.RecordUnprocessable()
		return nil, &UnprocessableMessageError{payload: string(msg.Payload), err: errspkg.ErrMessageRequired}
	}

	md := metadatapkg.FromWatermill(msg.Metadata)
	plan := s.extensions.Plan(msg.Context(), in, planContextFrom(in, md))

	payload, err := s.codec.Marshal(plan)
	if err != nil {
		return nil, fmt.Errorf("encode render plan: %w", err)
	}

	renderer := plan.ContentRendererID()
	out := message.NewMessage(idspkg.CreateULID(), payload)
	out.Metadata.Set(metadatapkg.KeyCorrelationID, msg.Metadata.Get(metadatapkg.KeyCorrelationID))
	out.Metadata.Set(metadatapkg.KeyRunID, plan.RunID)
	out.Metadata.Set(metadatapkg.KeyContentRenderer, renderer)
	out.Metadata.Set(metadatapkg.KeyEventType, metadatapkg.EventTypePlan)
	out.Metadata.Set(metadatapkg.KeyWireFormat, string(s.codec.Format()))

	s.metrics.RecordPlanPublished(renderer)
	s.Logger.Debug("Published render plan", loggingpkg.LogFields{
		"message_guid":     in.GUID,
		"run_id":           plan.RunID,
		"content_renderer": renderer,
		"decorations":      len(plan.Decorations),
		"actions":          len(plan.Actions),
	})

	return []*message.Message{out}, nil
}

// planContextFrom reads render hints from metadata. A message with no group
// hints is treated as a standalone bubble, both first and last in its group.
func planContextFrom(msg models.Message, md metadatapkg.Metadata) extensions.PlanContext {
	isGroup := md.Bool(metadatapkg.KeyIsGroup, false)
	return extensions.PlanContext{
		Render: capability.RenderContext{
			ConversationID: msg.ConversationID,
			IsGroup:        isGroup,
			MaxWidth:       md.Int(metadatapkg.KeyMaxWidth, 0),
		},
		Decorator: capability.DecoratorContext{
			IsGroup:        isGroup,
			IsFirstInGroup: md.Bool(metadatapkg.KeyFirstInGroup, true),
			IsLastInGroup:  md.Bool(metadatapkg.KeyLastInGroup, true),
			SenderName:     md[metadatapkg.KeySenderName],
		},
	}
}

// RenderHints converts a PlanContext back into the metadata Submit sends.
func RenderHints(pctx extensions.PlanContext) metadatapkg.Metadata {
	md := metadatapkg.New(
		metadatapkg.KeyIsGroup, strconv.FormatBool(pctx.Decorator.IsGroup || pctx.Render.IsGroup),
		metadatapkg.KeyFirstInGroup, strconv.FormatBool(pctx.Decorator.IsFirstInGroup),
		metadatapkg.KeyLastInGroup, strconv.FormatBool(pctx.Decorator.IsLastInGroup),
	)
	if pctx.Decorator.SenderName != "" {
		md[metadatapkg.KeySenderName] = pctx.Decorator.SenderName
	}
	if pctx.Render.MaxWidth > 0 {
		md[metadatapkg.KeyMaxWidth] = strconv.Itoa(pctx.Render.MaxWidth)
	}
	return md
}

// Submit encodes msg with the configured wire format and publishes it on the
// inbound topic. Extra metadata, such as RenderHints, travels with it.
func (s *Service) Submit(ctx context.Context, msg models.Message, md metadatapkg.Metadata) error {
	if msg.GUID == "" {
		return errspkg.ErrMessageRequired
	}
	if s.publisher == nil {
		return errspkg.ErrPublisherRequired
	}

	payload, err := s.codec.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	wm := message.NewMessage(idspkg.CreateULID(), payload)
	md.Apply(wm)
	if wm.Metadata.Get(metadatapkg.KeyCorrelationID) == "" {
		wm.Metadata.Set(metadatapkg.KeyCorrelationID, idspkg.CreateULID())
	}
	wm.Metadata.Set(metadatapkg.KeyEventType, metadatapkg.EventTypeMessage)
	wm.Metadata.Set(metadatapkg.KeyWireFormat, string(s.codec.Format()))
	wm.SetContext(ctx)

	return s.publisher.Publish(s.Conf.InboundTopic, wm)
}

// Plan builds a render plan synchronously, bypassing the bus.
func (s *Service) Plan(ctx context.Context, msg models.Message, pctx extensions.PlanContext) extensions.RenderPlan {
	return s.extensions.Plan(ctx, msg, pctx)
}

// Plans subscribes to the outbound topic on the service's own transport.
// It suits in-process transports where the client runs next to the bridge.
func (s *Service) Plans(ctx context.Context) (<-chan *message.Message, error) {
	if s.subscriber == nil {
		return nil, errors.New("subscriber is not initialised")
	}
	return s.subscriber.Subscribe(ctx, s.Conf.OutboundTopic)
}
