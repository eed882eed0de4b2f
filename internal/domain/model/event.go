// Package model contains the match domain models passed between layers.
package model

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Competitor is one of the two fixed sides of a match.
type Competitor string

const (
	AthleteA Competitor = "athleteA"
	AthleteB Competitor = "athleteB"
)

// Competitors lists both sides in display order.
var Competitors = []Competitor{AthleteA, AthleteB}

// Valid reports whether c names a known side.
func (c Competitor) Valid() bool { return c == AthleteA || c == AthleteB }

// DefaultName is the placeholder display name for the side.
func (c Competitor) DefaultName() string {
	if c == AthleteB {
		return "Athlete B"
	}
	return "Athlete A"
}

// ActionKind tags the scoring action variant.
type ActionKind string

const (
	KindPoints    ActionKind = "points"
	KindAdvantage ActionKind = "advantage"
	KindPenalty   ActionKind = "penalty"
)

// Label is the human readable action name.
func (k ActionKind) Label() string {
	switch k {
	case KindPoints:
		return "Points"
	case KindAdvantage:
		return "Advantage"
	case KindPenalty:
		return "Penalty"
	default:
		return string(k)
	}
}

// Abbreviation is the scoreboard column header.
func (k ActionKind) Abbreviation() string {
	switch k {
	case KindPoints:
		return "PTS"
	case KindAdvantage:
		return "ADV"
	case KindPenalty:
		return "PEN"
	default:
		return strings.ToUpper(string(k))
	}
}

// Kinds lists the action kinds in scoreboard order.
var Kinds = []ActionKind{KindPoints, KindAdvantage, KindPenalty}

// Action is a tagged scoring action. Delta may be negative for manual
// corrections.
type Action struct {
	Kind  ActionKind `json:"kind" yaml:"kind"`
	Delta int        `json:"delta" yaml:"delta"`
}

// Points builds a points action.
func Points(delta int) Action { return Action{Kind: KindPoints, Delta: delta} }

// Advantage builds an advantage action.
func Advantage(delta int) Action { return Action{Kind: KindAdvantage, Delta: delta} }

// Penalty builds a penalty action.
func Penalty(delta int) Action { return Action{Kind: KindPenalty, Delta: delta} }

// Validate rejects unknown action kinds.
func (a Action) Validate() error {
	switch a.Kind {
	case KindPoints, KindAdvantage, KindPenalty:
		return nil
	default:
		return fmt.Errorf("%w: action kind %q", ErrInvalid, a.Kind)
	}
}

// ScoreEvent is a discrete, timestamped scoring action for one competitor.
type ScoreEvent struct {
	ID         uuid.UUID  `json:"id" yaml:"id"`
	Timestamp  float64    `json:"timestamp" yaml:"timestamp"` // seconds into the video, >= 0
	Competitor Competitor `json:"competitor" yaml:"competitor"`
	Action     Action     `json:"action" yaml:"action"`
	CreatedAt  time.Time  `json:"createdAt" yaml:"createdAt"` // insertion instant, tie-break for equal timestamps
}

// NewEvent creates an event with a fresh id stamped now.
func NewEvent(timestamp float64, competitor Competitor, action Action) ScoreEvent {
	return ScoreEvent{
		ID:         uuid.New(),
		Timestamp:  timestamp,
		Competitor: competitor,
		Action:     action,
		CreatedAt:  time.Now(),
	}
}

// Validate checks the event fields.
func (e ScoreEvent) Validate() error {
	if e.Timestamp < 0 {
		return fmt.Errorf("%w: negative timestamp %v", ErrInvalid, e.Timestamp)
	}
	if !e.Competitor.Valid() {
		return fmt.Errorf("%w: competitor %q", ErrInvalid, e.Competitor)
	}
	return e.Action.Validate()
}

// CompareEvents orders events by (timestamp, createdAt) ascending.
func CompareEvents(a, b ScoreEvent) int {
	if c := cmp.Compare(a.Timestamp, b.Timestamp); c != 0 {
		return c
	}
	return a.CreatedAt.Compare(b.CreatedAt)
}

// SortEvents sorts events in place by (timestamp, createdAt). The sort is
// stable so fully tied events keep their relative order.
func SortEvents(events []ScoreEvent) {
	slices.SortStableFunc(events, CompareEvents)
}

// SortedEvents returns a sorted copy of events.
func SortedEvents(events []ScoreEvent) []ScoreEvent {
	out := slices.Clone(events)
	SortEvents(out)
	return out
}

// UnmarshalJSON assigns a fresh id when the payload omits one.
func (e *ScoreEvent) UnmarshalJSON(data []byte) error {
	type alias ScoreEvent
	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.ID == uuid.Nil {
		raw.ID = uuid.New()
	}
	*e = ScoreEvent(raw)
	return nil
}
