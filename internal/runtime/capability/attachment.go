package capability

import (
	"github.com/drblury/msgflow/internal/runtime/models"
	"github.com/drblury/msgflow/internal/runtime/registry"
)

// AttachmentRendererRegistry picks the highest-priority attachment renderer
// that accepts an attachment list.
type AttachmentRendererRegistry struct {
	*registry.Registry[AttachmentRenderer]
	fallback AttachmentRenderer
}

// NewAttachmentRendererRegistry creates an empty attachment renderer registry.
func NewAttachmentRendererRegistry(settings registry.Settings) *AttachmentRendererRegistry {
	return &AttachmentRendererRegistry{
		Registry: registry.New[AttachmentRenderer](FamilyAttachmentRenderer, settings),
		fallback: DocumentRenderer{},
	}
}

// Renderer never returns nil; without a match it returns DocumentRenderer.
func (r *AttachmentRendererRegistry) Renderer(atts []models.Attachment) AttachmentRenderer {
	h, ok := registry.SelectByPriority(r.All(), func(h AttachmentRenderer) bool {
		return h.CanRender(atts)
	})
	if !ok {
		r.Record(registry.OutcomeFallback)
		return r.fallback
	}
	r.Record(registry.OutcomeMatched)
	return h
}

// Render selects a renderer and runs it.
func (r *AttachmentRendererRegistry) Render(atts []models.Attachment, rctx RenderContext) Block {
	return r.Renderer(atts).Render(atts, rctx)
}

const (
	DocumentRendererID     = "document"
	SingleImageRendererID  = "single_image"
	VideoRendererID        = "video"
	AudioRendererID        = "audio"
	StickerRendererID      = "sticker"
	ImageGalleryRendererID = "image_gallery"
)

// DocumentRenderer lists attachments as generic file rows. It accepts
// everything.
type DocumentRenderer struct{}

func (DocumentRenderer) ID() string                         { return DocumentRendererID }
func (DocumentRenderer) Priority() int                      { return 0 }
func (DocumentRenderer) CanRender([]models.Attachment) bool { return true }

func (DocumentRenderer) Render(atts []models.Attachment, _ RenderContext) Block {
	return attachmentBlock(DocumentRendererID, BlockDocument, atts)
}

// SingleImageRenderer shows exactly one image.
type SingleImageRenderer struct{}

func (SingleImageRenderer) ID() string    { return SingleImageRendererID }
func (SingleImageRenderer) Priority() int { return 50 }

func (SingleImageRenderer) CanRender(atts []models.Attachment) bool {
	return len(atts) == 1 && atts[0].IsImage() && !atts[0].IsSticker
}

func (SingleImageRenderer) Render(atts []models.Attachment, _ RenderContext) Block {
	return attachmentBlock(SingleImageRendererID, BlockImage, atts)
}

// VideoRenderer shows exactly one video.
type VideoRenderer struct{}

func (VideoRenderer) ID() string    { return VideoRendererID }
func (VideoRenderer) Priority() int { return 50 }

func (VideoRenderer) CanRender(atts []models.Attachment) bool {
	return len(atts) == 1 && atts[0].IsVideo()
}

func (VideoRenderer) Render(atts []models.Attachment, _ RenderContext) Block {
	return attachmentBlock(VideoRendererID, BlockVideo, atts)
}

// AudioRenderer shows exactly one audio clip.
type AudioRenderer struct{}

func (AudioRenderer) ID() string    { return AudioRendererID }
func (AudioRenderer) Priority() int { return 50 }

func (AudioRenderer) CanRender(atts []models.Attachment) bool {
	return len(atts) == 1 && atts[0].IsAudio()
}

func (AudioRenderer) Render(atts []models.Attachment, _ RenderContext) Block {
	return attachmentBlock(AudioRendererID, BlockAudio, atts)
}

// StickerRenderer shows a single sticker without bubble chrome.
type StickerRenderer struct{}

func (StickerRenderer) ID() string    { return StickerRendererID }
func (StickerRenderer) Priority() int { return 60 }

func (StickerRenderer) CanRender(atts []models.Attachment) bool {
	return len(atts) == 1 && atts[0].IsSticker
}

func (StickerRenderer) Render(atts []models.Attachment, _ RenderContext) Block {
	return attachmentBlock(StickerRendererID, BlockImage, atts)
}

// ImageGalleryRenderer lays out two or more images in a grid.
type ImageGalleryRenderer struct{}

func (ImageGalleryRenderer) ID() string    { return ImageGalleryRendererID }
func (ImageGalleryRenderer) Priority() int { return 100 }

func (ImageGalleryRenderer) CanRender(atts []models.Attachment) bool {
	return models.CountImages(atts) >= 2
}

func (ImageGalleryRenderer) Render(atts []models.Attachment, rctx RenderContext) Block {
	images := make([]models.Attachment, 0, len(atts))
	for _, att := range atts {
		if att.IsImage() {
			images = append(images, att)
		}
	}
	block := attachmentBlock(ImageGalleryRendererID, BlockGallery, images)
	block.Columns = galleryColumns(len(images), rctx.MaxWidth)
	return block
}

// minGalleryCell is the narrowest gallery cell in points.
const minGalleryCell = 80

func galleryColumns(images, maxWidth int) int {
	columns := 3
	switch {
	case images <= 2, images == 4:
		columns = 2
	}
	if maxWidth > 0 {
		for columns > 1 && maxWidth/columns < minGalleryCell {
			columns--
		}
	}
	return columns
}

func attachmentBlock(id string, kind BlockKind, atts []models.Attachment) Block {
	copied := make([]models.Attachment, len(atts))
	for i, att := range atts {
		copied[i] = att.Clone()
	}
	return Block{RendererID: id, Kind: kind, Attachments: copied}
}
