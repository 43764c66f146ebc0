package capability

import (
	"context"
	"sync"

	"github.com/drblury/msgflow/internal/runtime/models"
	"github.com/drblury/msgflow/internal/runtime/registry"
)

type recordingObserver struct {
	mu       sync.Mutex
	outcomes map[string][]registry.Outcome
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{outcomes: map[string][]registry.Outcome{}}
}

func (o *recordingObserver) ObserveRegistration(string, string, registry.RegistrationResult) {}

func (o *recordingObserver) ObserveSelection(family string, outcome registry.Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes[family] = append(o.outcomes[family], outcome)
}

func processed(text string, atts ...models.Attachment) models.ProcessedMessage {
	return models.NewProcessedMessage(models.Message{GUID: "g-1", Text: text, Attachments: atts}, "run-1")
}

func image(name string) models.Attachment {
	return models.Attachment{Filename: name, MIMEType: "image/jpeg"}
}

type fakeClipboard struct {
	copied []string
	err    error
}

func (c *fakeClipboard) Copy(_ context.Context, text string) error {
	c.copied = append(c.copied, text)
	return c.err
}

type fakeOpener struct {
	opened []string
}

func (o *fakeOpener) Open(_ context.Context, url string) error {
	o.opened = append(o.opened, url)
	return nil
}

type stubContentRenderer struct {
	id       string
	priority int
	accept   bool
}

func (s stubContentRenderer) ID() string                             { return s.id }
func (s stubContentRenderer) Priority() int                          { return s.priority }
func (s stubContentRenderer) CanRender(models.ProcessedMessage) bool { return s.accept }

func (s stubContentRenderer) Render(pm models.ProcessedMessage, _ RenderContext) Block {
	return Block{RendererID: s.id, Kind: BlockText, Text: pm.Message.Text}
}

type stubAction struct {
	id        string
	available bool
	performed *[]string
}

func (a stubAction) ID() string                               { return a.id }
func (a stubAction) Title() string                            { return a.id }
func (a stubAction) IsAvailable(models.ProcessedMessage) bool { return a.available }

func (a stubAction) Perform(context.Context, models.ProcessedMessage) error {
	if a.performed != nil {
		*a.performed = append(*a.performed, a.id)
	}
	return nil
}

type stubDecorator struct {
	id       string
	position BubblePosition
	accept   bool
}

func (d stubDecorator) ID() string                                                    { return d.id }
func (d stubDecorator) Position() BubblePosition                                      { return d.position }
func (d stubDecorator) ShouldDecorate(models.ProcessedMessage, DecoratorContext) bool { return d.accept }

func (d stubDecorator) Decorate(models.ProcessedMessage, DecoratorContext) Decoration {
	return Decoration{DecoratorID: d.id, Position: d.position, Text: d.id}
}
