package pipeline

import (
	"context"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"mvdan.cc/xurls/v2"

	"github.com/drblury/msgflow/internal/runtime/models"
)

// Built-in processor ids and priorities. Codes run first so their digits are
// not claimed as phone numbers or link fragments.
const (
	CodeDetectorID        = "code_detector"
	MentionExtractorID    = "mention_extractor"
	LinkDetectorID        = "link_detector"
	PhoneNumberDetectorID = "phone_number_detector"

	CodeDetectorPriority        = 200
	MentionExtractorPriority    = 100
	LinkDetectorPriority        = 50
	PhoneNumberDetectorPriority = 40
)

// Func adapts a function into a Processor.
type Func struct {
	Name  string
	Rank  int
	Apply func(ctx context.Context, pm models.ProcessedMessage) models.ProcessedMessage
}

func (f Func) ID() string    { return f.Name }
func (f Func) Priority() int { return f.Rank }

func (f Func) Process(ctx context.Context, pm models.ProcessedMessage) models.ProcessedMessage {
	if f.Apply == nil {
		return pm
	}
	return f.Apply(ctx, pm)
}

// DefaultProcessors returns the built-in processors.
func DefaultProcessors() []Processor {
	return []Processor{
		NewCodeDetector(),
		NewMentionExtractor(),
		NewLinkDetector(),
		NewPhoneNumberDetector(),
	}
}

var (
	codeKeywordPattern = regexp.MustCompile(`(?i)\b(?:codes?|verification|passcodes?|otp|pin|2fa|security)\b`)
	codeValuePattern   = regexp.MustCompile(`\b(?:[A-Z]-)?[0-9]{4,8}\b`)
	codeURLPattern     = xurls.Relaxed()
)

// codeKeywordWindow is how many code points may separate a keyword from the
// code that follows it for the code to count as high confidence.
const codeKeywordWindow = 32

// CodeDetector finds one-time codes in messages that mention a code keyword.
type CodeDetector struct{}

func NewCodeDetector() *CodeDetector { return &CodeDetector{} }

func (*CodeDetector) ID() string    { return CodeDetectorID }
func (*CodeDetector) Priority() int { return CodeDetectorPriority }

func (*CodeDetector) Process(_ context.Context, pm models.ProcessedMessage) models.ProcessedMessage {
	text := pm.Message.Text
	keywords := codeKeywordPattern.FindAllStringIndex(text, -1)
	if len(keywords) == 0 {
		return pm
	}
	keywordEnds := make([]int, len(keywords))
	for i, loc := range keywords {
		_, keywordEnds[i] = models.RuneSpan(text, loc[0], loc[1])
	}

	urls := codeURLPattern.FindAllStringIndex(text, -1)
	for _, loc := range codeValuePattern.FindAllStringIndex(text, -1) {
		if partOfNumberGroup(text, loc[0], loc[1]) || insideSpan(urls, loc[0], loc[1]) {
			continue
		}
		start, end := models.RuneSpan(text, loc[0], loc[1])
		if pm.Overlapping(start, end) {
			continue
		}
		value := text[loc[0]:loc[1]]
		confidence := models.ConfidenceMedium
		for _, kwEnd := range keywordEnds {
			if kwEnd <= start && start-kwEnd <= codeKeywordWindow {
				confidence = models.ConfidenceHigh
				break
			}
		}
		pm.DetectedCodes = append(pm.DetectedCodes, models.DetectedCode{Value: value, Confidence: confidence})
		pm.Highlights = append(pm.Highlights, models.TextHighlight{
			Text:  value,
			Start: start,
			End:   end,
			Type:  models.HighlightCode,
		})
	}
	return pm
}

// insideSpan reports whether [start, end) lies within one of spans.
func insideSpan(spans [][]int, start, end int) bool {
	for _, span := range spans {
		if span[0] <= start && end <= span[1] {
			return true
		}
	}
	return false
}

// partOfNumberGroup reports whether text[start:end] is one group of a longer
// formatted number such as a phone number, a date or a decimal.
func partOfNumberGroup(text string, start, end int) bool {
	if start > 0 && strings.IndexByte("-+()./,", text[start-1]) >= 0 {
		return true
	}
	if start > 1 && text[start-1] == ' ' && (isDigit(text[start-2]) || text[start-2] == ')') {
		return true
	}
	if end+1 < len(text) && text[end] == ' ' && isDigit(text[end+1]) {
		return true
	}
	if end < len(text) {
		switch next := text[end]; {
		case strings.IndexByte("-()/", next) >= 0:
			return true
		case next == '.' || next == ',':
			return end+1 < len(text) && isDigit(text[end+1])
		}
	}
	return false
}

var mentionPattern = regexp.MustCompile(`@([\p{L}\p{N}_]+)`)

// MentionExtractor records raw "@handle" mentions. An "@" directly after a
// word character, slash, dot or colon is part of an address and is skipped.
type MentionExtractor struct{}

func NewMentionExtractor() *MentionExtractor { return &MentionExtractor{} }

func (*MentionExtractor) ID() string    { return MentionExtractorID }
func (*MentionExtractor) Priority() int { return MentionExtractorPriority }

func (*MentionExtractor) Process(_ context.Context, pm models.ProcessedMessage) models.ProcessedMessage {
	text := pm.Message.Text
	for _, loc := range mentionPattern.FindAllStringSubmatchIndex(text, -1) {
		if loc[0] > 0 {
			prev, _ := utf8.DecodeLastRuneInString(text[:loc[0]])
			if isWordRune(prev) || strings.ContainsRune("/.:@", prev) {
				continue
			}
		}
		start, end := models.RuneSpan(text, loc[0], loc[1])
		if pm.Overlapping(start, end) {
			continue
		}
		raw := text[loc[0]:loc[1]]
		pm.Mentions = append(pm.Mentions, models.Mention{
			Text:   raw,
			Handle: text[loc[2]:loc[3]],
			Start:  start,
			End:    end,
		})
		pm.Highlights = append(pm.Highlights, models.TextHighlight{
			Text:  raw,
			Start: start,
			End:   end,
			Type:  models.HighlightMention,
		})
	}
	return pm
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// LinkDetector highlights URLs and e-mail addresses. The first link in text
// order becomes the message's link preview target.
type LinkDetector struct {
	pattern *regexp.Regexp
}

func NewLinkDetector() *LinkDetector {
	return &LinkDetector{pattern: xurls.Relaxed()}
}

func (*LinkDetector) ID() string    { return LinkDetectorID }
func (*LinkDetector) Priority() int { return LinkDetectorPriority }

func (d *LinkDetector) Process(_ context.Context, pm models.ProcessedMessage) models.ProcessedMessage {
	text := pm.Message.Text
	for _, loc := range d.pattern.FindAllStringIndex(text, -1) {
		start, end := models.RuneSpan(text, loc[0], loc[1])
		if pm.Overlapping(start, end) {
			continue
		}
		raw := text[loc[0]:loc[1]]
		kind := models.HighlightLink
		if isEmailMatch(raw) {
			kind = models.HighlightEmail
		}
		pm.Highlights = append(pm.Highlights, models.TextHighlight{
			Text:  raw,
			Start: start,
			End:   end,
			Type:  kind,
		})
		if kind == models.HighlightLink && pm.LinkURL == "" {
			pm.LinkURL = NormalizeLink(raw)
		}
	}
	return pm
}

func isEmailMatch(raw string) bool {
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "mailto:") {
		return true
	}
	return !strings.Contains(lower, "://") && strings.Contains(lower, "@")
}

// NormalizeLink adds an https scheme to links written without one.
func NormalizeLink(raw string) string {
	if strings.Contains(raw, "://") {
		return raw
	}
	return "https://" + raw
}

var phonePattern = regexp.MustCompile(`\+?\(?[0-9][0-9 ().-]{5,}[0-9]`)

const (
	minPhoneDigits = 7
	maxPhoneDigits = 15
)

// PhoneNumberDetector highlights phone-like digit runs that no earlier
// processor claimed.
type PhoneNumberDetector struct{}

func NewPhoneNumberDetector() *PhoneNumberDetector { return &PhoneNumberDetector{} }

func (*PhoneNumberDetector) ID() string    { return PhoneNumberDetectorID }
func (*PhoneNumberDetector) Priority() int { return PhoneNumberDetectorPriority }

func (*PhoneNumberDetector) Process(_ context.Context, pm models.ProcessedMessage) models.ProcessedMessage {
	text := pm.Message.Text
	for _, loc := range phonePattern.FindAllStringIndex(text, -1) {
		raw := text[loc[0]:loc[1]]
		if digits := countDigits(raw); digits < minPhoneDigits || digits > maxPhoneDigits {
			continue
		}
		start, end := models.RuneSpan(text, loc[0], loc[1])
		if pm.Overlapping(start, end) {
			continue
		}
		pm.Highlights = append(pm.Highlights, models.TextHighlight{
			Text:  raw,
			Start: start,
			End:   end,
			Type:  models.HighlightPhoneNumber,
		})
	}
	return pm
}

func countDigits(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if isDigit(s[i]) {
			n++
		}
	}
	return n
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
