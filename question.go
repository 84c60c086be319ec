package questionpooler

import (
	"regexp"
	"strings"
)

// Placeholder patterns. A question matching OptionListPattern is never
// checked against FreeFillPattern.
var (
	OptionListPattern = regexp.MustCompile(`\[[A-Z ]*\]`)
	FreeFillPattern   = regexp.MustCompile(`\{[A-Z ]*\}`)
)

// NoQuestionText is the text of the empty-draw placeholder
const NoQuestionText = "empty"

// NoQuestion returns a fresh placeholder to hand out when nothing is left to draw
func NoQuestion() *Question {
	return &Question{Text: NoQuestionText}
}

// ParseQuestion classifies text without touching any options file
func ParseQuestion(text string) *Question {
	q := &Question{Text: text}
	switch {
	case OptionListPattern.MatchString(text):
		q.Kind = OptionsList
	case FreeFillPattern.MatchString(text):
		q.Kind = OptionsFreeFill
	default:
		q.Kind = OptionsNone
	}
	return q
}

// OptionSlug derives the options file slug from an [OPTION LIST] placeholder.
// "[FAVORITE COLOR]" becomes "favorite-color"; only the first space is replaced.
func OptionSlug(text string) (string, bool) {
	match := OptionListPattern.FindString(text)
	if match == "" {
		return "", false
	}
	slug := strings.Trim(match, "[]")
	slug = strings.Replace(slug, " ", "-", 1)
	return strings.ToLower(slug), true
}

// NewQuestion classifies text and, for option list questions, loads the
// companion options file. A missing options file is logged and leaves
// Options unset.
func (l *Loader) NewQuestion(text string) *Question {
	q := ParseQuestion(text)
	if q.Kind != OptionsList {
		return q
	}

	slug, _ := OptionSlug(text)
	resource := optionsResource(slug)
	options, err := l.LoadLines(resource)
	if err != nil {
		l.logger.Warn("No options file found", "slug", slug, "resource", resource, "question", text, "err", err)
		return q
	}

	q.Options = options
	return q
}

// Use marks the question as used. Calling it again has no effect.
func (q *Question) Use() {
	q.Used = true
}

// Matches reports whether two questions refer to the same text
func (q *Question) Matches(other *Question) bool {
	return other != nil && q.Text == other.Text
}
