package capability

import (
	"context"
	"slices"

	"github.com/drblury/msgflow/internal/runtime/models"
	"github.com/drblury/msgflow/internal/runtime/registry"
)

// AttachmentTypeRegistry routes attachments by MIME type. The first
// registered handler with a matching pattern wins; there is no specificity
// ranking between "image/*" and "image/jpeg".
type AttachmentTypeRegistry struct {
	*registry.Registry[AttachmentTypeHandler]
}

// NewAttachmentTypeRegistry creates an empty attachment type handler registry.
func NewAttachmentTypeRegistry(settings registry.Settings) *AttachmentTypeRegistry {
	return &AttachmentTypeRegistry{Registry: registry.New[AttachmentTypeHandler](FamilyAttachmentType, settings)}
}

// HandlerFor returns nil when no handler accepts mime.
func (r *AttachmentTypeRegistry) HandlerFor(mime string) AttachmentTypeHandler {
	h, ok := registry.First(r.All(), func(h AttachmentTypeHandler) bool {
		return slices.ContainsFunc(h.SupportedTypes(), func(pattern string) bool {
			return models.MatchMIME(pattern, mime)
		})
	})
	if !ok {
		r.Record(registry.OutcomeEmpty)
		return nil
	}
	r.Record(registry.OutcomeMatched)
	return h
}

// Handle dispatches att to its handler. It reports false when no handler
// accepts the attachment's type.
func (r *AttachmentTypeRegistry) Handle(ctx context.Context, att models.Attachment) (bool, error) {
	h := r.HandlerFor(att.MIMEType)
	if h == nil {
		return false, nil
	}
	return true, h.Handle(ctx, att)
}

// TypeHandlerFunc adapts a function into an AttachmentTypeHandler.
type TypeHandlerFunc struct {
	Name  string
	Types []string
	Fn    func(ctx context.Context, att models.Attachment) error
}

func (f TypeHandlerFunc) ID() string               { return f.Name }
func (f TypeHandlerFunc) SupportedTypes() []string { return slices.Clone(f.Types) }

func (f TypeHandlerFunc) Handle(ctx context.Context, att models.Attachment) error {
	if f.Fn == nil {
		return nil
	}
	return f.Fn(ctx, att)
}
