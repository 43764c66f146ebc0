// Package extensions bundles every capability registry and the enrichment
// pipeline into one Container that is built at startup and passed to the
// components that register or query handlers.
package extensions

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/trace"

	"github.com/drblury/msgflow/internal/runtime/capability"
	loggingpkg "github.com/drblury/msgflow/internal/runtime/logging"
	"github.com/drblury/msgflow/internal/runtime/models"
	"github.com/drblury/msgflow/internal/runtime/pipeline"
	"github.com/drblury/msgflow/internal/runtime/registry"
)

// Options configures a Container. The zero value is usable.
type Options struct {
	Logger loggingpkg.ServiceLogger
	// Observer receives registration and selection events of every family.
	Observer registry.Observer
	// StrictIDs rejects duplicate handler ids in every family.
	StrictIDs     bool
	PipelineHooks pipeline.Hooks
	Tracer        trace.Tracer
}

// Container owns one registry per capability family plus the pipeline.
type Container struct {
	ContentRenderers    *capability.ContentRendererRegistry
	AttachmentRenderers *capability.AttachmentRendererRegistry
	Decorators          *capability.DecoratorRegistry
	Actions             *capability.ActionRegistry
	AttachmentTypes     *capability.AttachmentTypeRegistry
	Pipeline            *pipeline.Pipeline

	logger loggingpkg.ServiceLogger
}

// New creates a container with empty registries.
func New(opts Options) *Container {
	logger := loggingpkg.OrNop(opts.Logger)
	settings := registry.Settings{Logger: logger, Observer: opts.Observer, StrictIDs: opts.StrictIDs}

	return &Container{
		ContentRenderers:    capability.NewContentRendererRegistry(settings),
		AttachmentRenderers: capability.NewAttachmentRendererRegistry(settings),
		Decorators:          capability.NewDecoratorRegistry(settings),
		Actions:             capability.NewActionRegistry(settings),
		AttachmentTypes:     capability.NewAttachmentTypeRegistry(settings),
		Pipeline: pipeline.New(pipeline.Options{
			Logger:    logger,
			Observer:  opts.Observer,
			StrictIDs: opts.StrictIDs,
			Hooks:     opts.PipelineHooks,
			Tracer:    opts.Tracer,
		}),
		logger: logger,
	}
}

// Dependencies are the collaborators the built-in handlers delegate to.
type Dependencies struct {
	Clipboard capability.Clipboard
	URLOpener capability.URLOpener
	// TimestampLayout overrides the timestamp decorator's time layout.
	TimestampLayout string
	// AttachmentTypeHandlers are registered after the built-ins, in order.
	AttachmentTypeHandlers []capability.AttachmentTypeHandler
}

// RegisterDefaults registers the built-in processors and handlers. It stops
// at the first registration error, which only happens with strict ids when a
// built-in id is already taken.
func (c *Container) RegisterDefaults(deps Dependencies) error {
	for _, proc := range pipeline.DefaultProcessors() {
		if err := c.Pipeline.Register(proc); err != nil {
			return fmt.Errorf("register processor: %w", err)
		}
	}
	for _, r := range []capability.ContentRenderer{
		capability.PlainTextRenderer{},
		capability.HighlightedTextRenderer{},
		capability.LinkPreviewRenderer{},
	} {
		if err := c.ContentRenderers.Register(r); err != nil {
			return fmt.Errorf("register content renderer: %w", err)
		}
	}
	for _, r := range []capability.AttachmentRenderer{
		capability.DocumentRenderer{},
		capability.SingleImageRenderer{},
		capability.VideoRenderer{},
		capability.AudioRenderer{},
		capability.StickerRenderer{},
		capability.ImageGalleryRenderer{},
	} {
		if err := c.AttachmentRenderers.Register(r); err != nil {
			return fmt.Errorf("register attachment renderer: %w", err)
		}
	}
	for _, d := range []capability.BubbleDecorator{
		capability.SenderNameDecorator{},
		capability.TimestampDecorator{Layout: deps.TimestampLayout},
		capability.CodeBadgeDecorator{},
	} {
		if err := c.Decorators.Register(d); err != nil {
			return fmt.Errorf("register decorator: %w", err)
		}
	}
	for _, a := range []capability.MessageAction{
		capability.CopyTextAction{Clipboard: deps.Clipboard},
		capability.CopyCodeAction{Clipboard: deps.Clipboard},
		capability.OpenLinkAction{Opener: deps.URLOpener},
	} {
		if err := c.Actions.Register(a); err != nil {
			return fmt.Errorf("register action: %w", err)
		}
	}
	for _, h := range deps.AttachmentTypeHandlers {
		if err := c.AttachmentTypes.Register(h); err != nil {
			return fmt.Errorf("register attachment type handler: %w", err)
		}
	}

	c.logger.Info("Registered default extensions", loggingpkg.LogFields{
		"processors":           c.Pipeline.Len(),
		"content_renderers":    c.ContentRenderers.Len(),
		"attachment_renderers": c.AttachmentRenderers.Len(),
		"decorators":           c.Decorators.Len(),
		"actions":              c.Actions.Len(),
		"attachment_types":     c.AttachmentTypes.Len(),
	})
	return nil
}

// Reset empties every registry.
func (c *Container) Reset() {
	c.Pipeline.Reset()
	c.ContentRenderers.Reset()
	c.AttachmentRenderers.Reset()
	c.Decorators.Reset()
	c.Actions.Reset()
	c.AttachmentTypes.Reset()
}

// Process runs the enrichment pipeline.
func (c *Container) Process(ctx context.Context, msg models.Message) models.ProcessedMessage {
	return c.Pipeline.Process(ctx, msg)
}
