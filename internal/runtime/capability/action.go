package capability

import (
	"context"
	"fmt"

	errspkg "github.com/drblury/msgflow/internal/runtime/errors"
	"github.com/drblury/msgflow/internal/runtime/models"
	"github.com/drblury/msgflow/internal/runtime/registry"
)

// Clipboard receives text copied by message actions.
type Clipboard interface {
	Copy(ctx context.Context, text string) error
}

// URLOpener opens links on behalf of message actions.
type URLOpener interface {
	Open(ctx context.Context, url string) error
}

// ActionRegistry lists the actions available on a message.
type ActionRegistry struct {
	*registry.Registry[MessageAction]
}

// NewActionRegistry creates an empty action registry.
func NewActionRegistry(settings registry.Settings) *ActionRegistry {
	return &ActionRegistry{Registry: registry.New[MessageAction](FamilyMessageAction, settings)}
}

// AvailableActions returns, in registration order, every action available on
// pm. The result may be empty.
func (r *ActionRegistry) AvailableActions(pm models.ProcessedMessage) []MessageAction {
	available := registry.Filter(r.All(), func(a MessageAction) bool {
		return a.IsAvailable(pm)
	})
	if len(available) == 0 {
		r.Record(registry.OutcomeEmpty)
	} else {
		r.Record(registry.OutcomeMatched)
	}
	return available
}

// Perform runs the first available action with the given id.
func (r *ActionRegistry) Perform(ctx context.Context, id string, pm models.ProcessedMessage) error {
	for _, action := range r.AvailableActions(pm) {
		if action.ID() == id {
			if err := action.Perform(ctx, pm); err != nil {
				return fmt.Errorf("perform action %q: %w", id, err)
			}
			return nil
		}
	}
	return fmt.Errorf("%w: %q", errspkg.ErrUnknownAction, id)
}

const (
	CopyTextActionID = "copy_text"
	CopyCodeActionID = "copy_code"
	OpenLinkActionID = "open_link"
)

// CopyTextAction copies the message text.
type CopyTextAction struct {
	Clipboard Clipboard
}

func (CopyTextAction) ID() string    { return CopyTextActionID }
func (CopyTextAction) Title() string { return "Copy" }

func (CopyTextAction) IsAvailable(pm models.ProcessedMessage) bool {
	return pm.Message.HasText()
}

func (a CopyTextAction) Perform(ctx context.Context, pm models.ProcessedMessage) error {
	if a.Clipboard == nil {
		return errspkg.ErrCollaboratorRequired
	}
	return a.Clipboard.Copy(ctx, pm.Message.Text)
}

// CopyCodeAction copies the detected code, preferring high confidence.
type CopyCodeAction struct {
	Clipboard Clipboard
}

func (CopyCodeAction) ID() string    { return CopyCodeActionID }
func (CopyCodeAction) Title() string { return "Copy Code" }

func (CopyCodeAction) IsAvailable(pm models.ProcessedMessage) bool {
	return len(pm.DetectedCodes) > 0
}

func (a CopyCodeAction) Perform(ctx context.Context, pm models.ProcessedMessage) error {
	if a.Clipboard == nil {
		return errspkg.ErrCollaboratorRequired
	}
	code, ok := pm.BestCode()
	if !ok {
		return nil
	}
	return a.Clipboard.Copy(ctx, code.Value)
}

// OpenLinkAction opens the message's first link.
type OpenLinkAction struct {
	Opener URLOpener
}

func (OpenLinkAction) ID() string    { return OpenLinkActionID }
func (OpenLinkAction) Title() string { return "Open Link" }

func (OpenLinkAction) IsAvailable(pm models.ProcessedMessage) bool {
	return pm.LinkURL != ""
}

func (a OpenLinkAction) Perform(ctx context.Context, pm models.ProcessedMessage) error {
	if a.Opener == nil {
		return errspkg.ErrCollaboratorRequired
	}
	return a.Opener.Open(ctx, pm.LinkURL)
}
