package model

import "fmt"

// Breakdown is a per-competitor tally. Fields are signed and unbounded.
type Breakdown struct {
	Points     int `json:"points" yaml:"points"`
	Advantages int `json:"advantages" yaml:"advantages"`
	Penalties  int `json:"penalties" yaml:"penalties"`
}

// Field returns the tally for an action kind.
func (b Breakdown) Field(kind ActionKind) int {
	switch kind {
	case KindPoints:
		return b.Points
	case KindAdvantage:
		return b.Advantages
	case KindPenalty:
		return b.Penalties
	default:
		return 0
	}
}

func (b Breakdown) String() string {
	return fmt.Sprintf("%d/%d/%d", b.Points, b.Advantages, b.Penalties)
}

// ScoreState holds both breakdowns. The zero value is the zero-state.
type ScoreState struct {
	AthleteA Breakdown `json:"athleteA" yaml:"athleteA"`
	AthleteB Breakdown `json:"athleteB" yaml:"athleteB"`
}

// Breakdown returns the tally for c.
func (s ScoreState) Breakdown(c Competitor) Breakdown {
	if c == AthleteB {
		return s.AthleteB
	}
	return s.AthleteA
}

// With returns a copy of s with c's tally replaced.
func (s ScoreState) With(c Competitor, b Breakdown) ScoreState {
	if c == AthleteB {
		s.AthleteB = b
	} else {
		s.AthleteA = b
	}
	return s
}

// IsZero reports whether both tallies are zero.
func (s ScoreState) IsZero() bool { return s == ScoreState{} }

func (s ScoreState) String() string {
	return fmt.Sprintf("A:%s B:%s", s.AthleteA, s.AthleteB)
}
