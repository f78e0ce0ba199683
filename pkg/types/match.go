package types

import "strings"

// ScreenTextElement is a piece of on-screen text with its bounding box in raw
// device pixels
type ScreenTextElement struct {
	Text   string `json:"text"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Center returns the centre point of the element's bounding box
func (e ScreenTextElement) Center() (int, int) {
	return e.X + e.Width/2, e.Y + e.Height/2
}

// MatchMode is the string comparison strategy used against on-screen text
type MatchMode string

const (
	MatchExact      MatchMode = "exact"
	MatchContains   MatchMode = "contains"
	MatchStartsWith MatchMode = "starts_with"
	MatchEndsWith   MatchMode = "ends_with"
	MatchRegex      MatchMode = "regex"
)

// ParseMatchMode accepts the canonical names plus a few common spellings
func ParseMatchMode(s string) (MatchMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "exact", "equals":
		return MatchExact, true
	case "contains", "":
		return MatchContains, true
	case "starts_with", "startswith", "prefix":
		return MatchStartsWith, true
	case "ends_with", "endswith", "suffix":
		return MatchEndsWith, true
	case "regex", "regexp":
		return MatchRegex, true
	}
	return "", false
}

// Region is an axis-aligned rectangle in device pixels
type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ContainsPoint reports whether (x, y) lies inside the rectangle, edges included
func (r Region) ContainsPoint(x, y int) bool {
	return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
}

// DefaultMinScore is the similarity needed to accept one of several candidates
const DefaultMinScore = 0.8

// MatchContext narrows and disambiguates a text search
type MatchContext struct {
	Region   *Region `json:"region,omitempty"`
	MinScore float64 `json:"minScore,omitempty"`
}

// MatchResult is the outcome of a text search. Score is only set when a
// candidate was chosen by similarity or was the single candidate of a
// contextual search.
type MatchResult struct {
	Matched bool               `json:"matched"`
	Element *ScreenTextElement `json:"element,omitempty"`
	Score   *float64           `json:"score,omitempty"`
}

// LowestPriority is used for targets that do not set one
const LowestPriority = int(^uint(0) >> 1)

// TextMatchTarget is one candidate of continuous multi-target polling
type TextMatchTarget struct {
	ID              string    `json:"id" yaml:"id"`
	Text            string    `json:"text" yaml:"text"`
	MatchMode       MatchMode `json:"matchMode" yaml:"matchMode"`
	Priority        *int      `json:"priority,omitempty" yaml:"priority,omitempty"`
	AutoClick       bool      `json:"autoClick,omitempty" yaml:"autoClick,omitempty"`
	DelayAfterClick int       `json:"delayAfterClick,omitempty" yaml:"delayAfterClick,omitempty"` // ms
}

// EffectivePriority returns the priority, or LowestPriority when unset
func (t TextMatchTarget) EffectivePriority() int {
	if t.Priority == nil {
		return LowestPriority
	}
	return *t.Priority
}
