package pipeline

import (
	"cmp"
	"slices"

	"github.com/drblury/msgflow/internal/runtime/models"
)

// Segment is a run of message text, either plain or covered by one highlight.
// Start and End are code-point offsets.
type Segment struct {
	Text  string               `json:"text"`
	Start int                  `json:"start"`
	End   int                  `json:"end"`
	Type  models.HighlightType `json:"type,omitempty"`
}

// Highlighted reports whether the segment carries a highlight.
func (s Segment) Highlighted() bool {
	return s.Type != ""
}

// Compose splits text into consecutive segments. Highlights out of range are
// ignored; when two highlights overlap the one listed first wins.
func Compose(text string, highlights []models.TextHighlight) []Segment {
	runes := []rune(text)
	segments := []Segment{}
	if len(runes) == 0 {
		return segments
	}

	accepted := make([]models.TextHighlight, 0, len(highlights))
	for _, h := range highlights {
		if h.Start < 0 || h.End > len(runes) || h.Start >= h.End {
			continue
		}
		clash := slices.ContainsFunc(accepted, func(a models.TextHighlight) bool {
			return a.Overlaps(h.Start, h.End)
		})
		if !clash {
			accepted = append(accepted, h)
		}
	}
	slices.SortFunc(accepted, func(a, b models.TextHighlight) int {
		return cmp.Compare(a.Start, b.Start)
	})

	pos := 0
	for _, h := range accepted {
		if h.Start > pos {
			segments = append(segments, Segment{Text: string(runes[pos:h.Start]), Start: pos, End: h.Start})
		}
		segments = append(segments, Segment{Text: string(runes[h.Start:h.End]), Start: h.Start, End: h.End, Type: h.Type})
		pos = h.End
	}
	if pos < len(runes) {
		segments = append(segments, Segment{Text: string(runes[pos:]), Start: pos, End: len(runes)})
	}
	return segments
}
