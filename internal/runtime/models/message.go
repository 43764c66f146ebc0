// Package models holds the values that flow through the extension engine:
// the read-only Message produced by the message store and the
// ProcessedMessage accumulated by the enrichment pipeline.
package models

import (
	"strings"
	"time"
)

// DefaultMIMEType is used for attachments whose type is missing or malformed.
const DefaultMIMEType = "application/octet-stream"

// Message is a single chat message as read from the upstream store. Values
// handed to the engine are treated as immutable; use Clone before editing.
type Message struct {
	ID             int64        `json:"id"`
	GUID           string       `json:"guid"`
	Text           string       `json:"text,omitempty"`
	Timestamp      time.Time    `json:"timestamp"`
	IsFromMe       bool         `json:"is_from_me"`
	ConversationID string       `json:"conversation_id"`
	Sender         string       `json:"sender,omitempty"`
	Service        string       `json:"service,omitempty"`
	Attachments    []Attachment `json:"attachments,omitempty"`
}

// HasText reports whether the message carries text. Attachment-only
// messages have none.
func (m Message) HasText() bool {
	return m.Text != ""
}

// HasAttachments reports whether at least one attachment is present.
func (m Message) HasAttachments() bool {
	return len(m.Attachments) > 0
}

// Clone returns a deep copy, including attachment thumbnails.
func (m Message) Clone() Message {
	cloned := m
	if m.Attachments != nil {
		cloned.Attachments = make([]Attachment, len(m.Attachments))
		for i, att := range m.Attachments {
			cloned.Attachments[i] = att.Clone()
		}
	}
	return cloned
}

// Attachment describes a file attached to a message.
type Attachment struct {
	ID         int64  `json:"id"`
	GUID       string `json:"guid"`
	Filename   string `json:"filename"`
	MIMEType   string `json:"mime_type"`
	TotalBytes int64  `json:"total_bytes"`
	Thumbnail  []byte `json:"thumbnail,omitempty"`
	IsOutgoing bool   `json:"is_outgoing"`
	IsSticker  bool   `json:"is_sticker"`
}

// Clone copies the attachment including its thumbnail bytes.
func (a Attachment) Clone() Attachment {
	if a.Thumbnail != nil {
		a.Thumbnail = append([]byte(nil), a.Thumbnail...)
	}
	return a
}

// Type returns the normalized MIME type.
func (a Attachment) Type() string {
	return NormalizeMIME(a.MIMEType)
}

// PrimaryType returns the part before the slash, e.g. "image".
func (a Attachment) PrimaryType() string {
	primary, _ := splitMIME(a.Type())
	return primary
}

func (a Attachment) IsImage() bool { return a.PrimaryType() == "image" }
func (a Attachment) IsVideo() bool { return a.PrimaryType() == "video" }
func (a Attachment) IsAudio() bool { return a.PrimaryType() == "audio" }

// CountImages returns how many attachments are images.
func CountImages(atts []Attachment) int {
	n := 0
	for _, att := range atts {
		if att.IsImage() {
			n++
		}
	}
	return n
}

// NormalizeMIME lowercases a MIME type, strips parameters and guarantees the
// two-part type/subtype form.
func NormalizeMIME(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	primary, sub := splitMIME(mime)
	if primary == "" || sub == "" || strings.Contains(sub, "/") {
		return DefaultMIMEType
	}
	return mime
}

// MatchMIME reports whether pattern accepts mime. A pattern matches either by
// exact equality or, in the "type/*" form, by primary type. Comparison is
// case-insensitive.
func MatchMIME(pattern, mime string) bool {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	mime = NormalizeMIME(mime)
	if pattern == mime {
		return true
	}
	primary, sub := splitMIME(pattern)
	if sub != "*" || primary == "" {
		return false
	}
	mimePrimary, _ := splitMIME(mime)
	return primary == mimePrimary
}

func splitMIME(mime string) (string, string) {
	primary, sub, ok := strings.Cut(mime, "/")
	if !ok {
		return mime, ""
	}
	return primary, sub
}
