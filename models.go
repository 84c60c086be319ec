package questionpooler

import (
	"fmt"
	"time"
)

// Question is one line of content owned by a single player's pool
type Question struct {
	Text    string      `json:"text"`
	Used    bool        `json:"used"`
	Kind    OptionsKind `json:"hasOptions"`
	Options []string    `json:"options,omitempty"` // set only for OptionsList with a readable companion file
}

// OptionsKind describes which placeholder, if any, a question carries
type OptionsKind int

const (
	OptionsNone OptionsKind = iota
	OptionsList
	OptionsFreeFill
)

func (k OptionsKind) String() string {
	switch k {
	case OptionsList:
		return "optionList"
	case OptionsFreeFill:
		return "freefill"
	default:
		return "none"
	}
}

// MarshalText keeps the wire names used by game clients
func (k OptionsKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses the wire name of an options kind
func (k *OptionsKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "optionList":
		*k = OptionsList
	case "freefill":
		*k = OptionsFreeFill
	case "none", "":
		*k = OptionsNone
	default:
		return fmt.Errorf("unknown options kind %q", string(b))
	}
	return nil
}

// Category names one of the question lists held by every pool
type Category string

const (
	CategoryAppearance Category = "appearance"
	CategoryInterests  Category = "interests"
)

// Categories lists the known categories in pool scan order
var Categories = []Category{CategoryAppearance, CategoryInterests}

// ParseCategory validates a category name coming from a client
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	switch c {
	case CategoryAppearance, CategoryInterests:
		return c, nil
	}
	return "", &PoolError{Op: "parse category", Kind: KindUnknownCategory, Category: c}
}

// QuestionSet is the pair of question lists owned by one player
type QuestionSet struct {
	Appearance []*Question `json:"appearance"`
	Interests  []*Question `json:"interests"`
}

// List returns the list for a category, or nil when the category is unknown
func (qs *QuestionSet) List(c Category) []*Question {
	switch c {
	case CategoryAppearance:
		return qs.Appearance
	case CategoryInterests:
		return qs.Interests
	}
	return nil
}

// EventType records what happened to a question during a session
type EventType string

const (
	EventDealt EventType = "dealt"
	EventUsed  EventType = "used"
)

// Event is one recorded draw or use of a question
type Event struct {
	SessionID   string    `json:"session_id"`
	PlayerIndex int       `json:"player_index"`
	Category    Category  `json:"category,omitempty"`
	Type        EventType `json:"type"`
	Text        string    `json:"text"`
	CreatedAt   time.Time `json:"created_at"`
}
