// Package scoring folds an ordered score event log into a score state.
//
// Both functions are pure and total: they never fail and never mutate
// their input.
package scoring

import "github.com/okian/bjjscore/internal/domain/model"

// Apply adds the event's delta to the named field of its competitor's
// breakdown. The other competitor is left untouched.
func Apply(event model.ScoreEvent, state model.ScoreState) model.ScoreState {
	b := state.Breakdown(event.Competitor)
	switch event.Action.Kind {
	case model.KindPoints:
		b.Points += event.Action.Delta
	case model.KindAdvantage:
		b.Advantages += event.Action.Delta
	case model.KindPenalty:
		b.Penalties += event.Action.Delta
	default:
		return state
	}
	return state.With(event.Competitor, b)
}

// Reduce folds events in ascending (timestamp, createdAt) order starting from
// the zero-state.
func Reduce(events []model.ScoreEvent) model.ScoreState {
	var state model.ScoreState
	for _, e := range model.SortedEvents(events) {
		state = Apply(e, state)
	}
	return state
}

// ReduceUntil folds only events with timestamp <= t.
func ReduceUntil(events []model.ScoreEvent, t float64) model.ScoreState {
	var state model.ScoreState
	for _, e := range model.SortedEvents(events) {
		if e.Timestamp > t {
			break
		}
		state = Apply(e, state)
	}
	return state
}
