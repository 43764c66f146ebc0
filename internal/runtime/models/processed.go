package models

import "unicode/utf8"

// HighlightType tags a span of message text.
type HighlightType string

const (
	HighlightCode        HighlightType = "code"
	HighlightLink        HighlightType = "link"
	HighlightPhoneNumber HighlightType = "phoneNumber"
	HighlightMention     HighlightType = "mention"
	HighlightEmail       HighlightType = "email"
)

// Confidence grades a detected code.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
)

// TextHighlight marks a span of the original message text. Start and End are
// code-point offsets, End exclusive.
type TextHighlight struct {
	Text  string        `json:"text"`
	Start int           `json:"start"`
	End   int           `json:"end"`
	Type  HighlightType `json:"type"`
}

// Overlaps reports whether the highlight shares at least one code point with
// [start, end).
func (h TextHighlight) Overlaps(start, end int) bool {
	return h.Start < end && start < h.End
}

// DetectedCode is a one-time code found in the message text.
type DetectedCode struct {
	Value      string     `json:"value"`
	Confidence Confidence `json:"confidence"`
}

// Mention is a raw "@handle" occurrence. It is never resolved to a contact.
type Mention struct {
	Text   string `json:"text"`
	Handle string `json:"handle"`
	Start  int    `json:"start"`
	End    int    `json:"end"`
}

// ProcessedMessage is the accumulator of one pipeline run. Processors only
// append to its lists.
type ProcessedMessage struct {
	Message       Message         `json:"message"`
	RunID         string          `json:"run_id"`
	DetectedCodes []DetectedCode  `json:"detected_codes"`
	Highlights    []TextHighlight `json:"highlights"`
	Mentions      []Mention       `json:"mentions"`
	LinkURL       string          `json:"link_url,omitempty"`
}

// NewProcessedMessage wraps msg with empty, non-nil enrichment lists.
func NewProcessedMessage(msg Message, runID string) ProcessedMessage {
	return ProcessedMessage{
		Message:       msg.Clone(),
		RunID:         runID,
		DetectedCodes: []DetectedCode{},
		Highlights:    []TextHighlight{},
		Mentions:      []Mention{},
	}
}

// Clone copies every list so the copy can be appended to without touching
// the original backing arrays.
func (p ProcessedMessage) Clone() ProcessedMessage {
	cloned := p
	cloned.Message = p.Message.Clone()
	cloned.DetectedCodes = append(make([]DetectedCode, 0, len(p.DetectedCodes)), p.DetectedCodes...)
	cloned.Highlights = append(make([]TextHighlight, 0, len(p.Highlights)), p.Highlights...)
	cloned.Mentions = append(make([]Mention, 0, len(p.Mentions)), p.Mentions...)
	return cloned
}

// CodeValues returns the detected code values in detection order.
func (p ProcessedMessage) CodeValues() []string {
	values := make([]string, len(p.DetectedCodes))
	for i, code := range p.DetectedCodes {
		values[i] = code.Value
	}
	return values
}

// MentionTexts returns the raw mention texts in detection order.
func (p ProcessedMessage) MentionTexts() []string {
	texts := make([]string, len(p.Mentions))
	for i, m := range p.Mentions {
		texts[i] = m.Text
	}
	return texts
}

// BestCode returns the first high-confidence code, else the first code.
func (p ProcessedMessage) BestCode() (DetectedCode, bool) {
	for _, code := range p.DetectedCodes {
		if code.Confidence == ConfidenceHigh {
			return code, true
		}
	}
	if len(p.DetectedCodes) > 0 {
		return p.DetectedCodes[0], true
	}
	return DetectedCode{}, false
}

// HighlightsOf filters highlights by type, preserving order.
func (p ProcessedMessage) HighlightsOf(kind HighlightType) []TextHighlight {
	var out []TextHighlight
	for _, h := range p.Highlights {
		if h.Type == kind {
			out = append(out, h)
		}
	}
	return out
}

// Overlapping reports whether any existing highlight intersects [start, end).
func (p ProcessedMessage) Overlapping(start, end int) bool {
	for _, h := range p.Highlights {
		if h.Overlaps(start, end) {
			return true
		}
	}
	return false
}

// RuneSpan converts byte offsets into text to code-point offsets.
func RuneSpan(text string, byteStart, byteEnd int) (int, int) {
	start := utf8.RuneCountInString(text[:byteStart])
	return start, start + utf8.RuneCountInString(text[byteStart:byteEnd])
}
