package capability

import (
	"github.com/drblury/msgflow/internal/runtime/models"
	"github.com/drblury/msgflow/internal/runtime/pipeline"
)

// BlockKind tells the client which view to build for a Block.
type BlockKind string

const (
	BlockText            BlockKind = "text"
	BlockHighlightedText BlockKind = "highlighted_text"
	BlockLinkPreview     BlockKind = "link_preview"
	BlockImage           BlockKind = "image"
	BlockGallery         BlockKind = "gallery"
	BlockVideo           BlockKind = "video"
	BlockAudio           BlockKind = "audio"
	BlockDocument        BlockKind = "document"
)

// Block is the render output handed to the client.
type Block struct {
	RendererID  string              `json:"renderer_id"`
	Kind        BlockKind           `json:"kind"`
	Text        string              `json:"text,omitempty"`
	Segments    []pipeline.Segment  `json:"segments,omitempty"`
	URL         string              `json:"url,omitempty"`
	Attachments []models.Attachment `json:"attachments,omitempty"`
	Columns     int                 `json:"columns,omitempty"`
}
