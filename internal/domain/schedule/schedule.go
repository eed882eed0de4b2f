// Package schedule converts a sparse event log into the discrete time to
// state samples consumed by the overlay renderer.
//
// Samples form a step function: a value holds until the next sample. Never
// interpolate between score samples.
package schedule

import (
	"github.com/okian/bjjscore/internal/domain/model"
	"github.com/okian/bjjscore/internal/domain/scoring"
)

const (
	// Epsilon guards key time division for zero-length matches.
	Epsilon = 1e-6

	// NoteFadeIn is the fade-in length starting at a note's timestamp.
	NoteFadeIn = 0.3
	// NoteHold is the offset from the note timestamp to the start of fade-out.
	NoteHold = 4.0
	// NoteFadeOut is the fade-out length.
	NoteFadeOut = 0.4
)

// Sample is the score in effect from Time until the next sample.
type Sample struct {
	Time  float64          `json:"time" yaml:"time"`
	State model.ScoreState `json:"state" yaml:"state"`
}

// NoteWindow is a note's visibility envelope in seconds.
type NoteWindow struct {
	Note         model.Note `json:"note" yaml:"note"`
	FadeInStart  float64    `json:"fadeInStart" yaml:"fadeInStart"`
	FadeInEnd    float64    `json:"fadeInEnd" yaml:"fadeInEnd"`
	FadeOutStart float64    `json:"fadeOutStart" yaml:"fadeOutStart"`
	FadeOutEnd   float64    `json:"fadeOutEnd" yaml:"fadeOutEnd"`
}

// Visible reports whether the note has non-zero opacity at t.
func (w NoteWindow) Visible(t float64) bool {
	return t > w.FadeInStart && t < w.FadeOutEnd
}

// Opacity is the note opacity at t following the linear fade envelope.
func (w NoteWindow) Opacity(t float64) float64 {
	switch {
	case t <= w.FadeInStart || t >= w.FadeOutEnd:
		return 0
	case t < w.FadeInEnd:
		return (t - w.FadeInStart) / (w.FadeInEnd - w.FadeInStart)
	case t <= w.FadeOutStart:
		return 1
	default:
		return (w.FadeOutEnd - t) / (w.FadeOutEnd - w.FadeOutStart)
	}
}

// Schedule is the full overlay timing for one export.
type Schedule struct {
	Duration float64      `json:"duration" yaml:"duration"`
	Samples  []Sample     `json:"samples" yaml:"samples"`
	Notes    []NoteWindow `json:"notes" yaml:"notes"`
}

// Build seeds a (0, zero) sample, emits one sample per event at
// min(timestamp, duration) carrying the cumulative state, and closes with a
// terminal sample at duration when the last sample ends earlier.
func Build(events []model.ScoreEvent, duration float64, notes []model.Note) Schedule {
	duration = max(duration, 0)
	samples := make([]Sample, 0, len(events)+2)
	samples = append(samples, Sample{})

	var state model.ScoreState
	for _, e := range model.SortedEvents(events) {
		state = scoring.Apply(e, state)
		samples = append(samples, Sample{Time: min(max(e.Timestamp, 0), duration), State: state})
	}
	if last := samples[len(samples)-1]; last.Time < duration {
		samples = append(samples, Sample{Time: duration, State: last.State})
	}

	return Schedule{
		Duration: duration,
		Samples:  samples,
		Notes:    Windows(notes),
	}
}

// Windows computes note envelopes. When notes overlap the most recent one
// wins: a note starts fading out at the earlier of its own hold end and the
// next note's timestamp. Notes sharing a timestamp keep only the last one.
func Windows(notes []model.Note) []NoteWindow {
	sorted := append([]model.Note(nil), notes...)
	model.SortNotes(sorted)

	out := make([]NoteWindow, 0, len(sorted))
	for i, n := range sorted {
		fadeOutStart := n.Timestamp + NoteHold
		if i+1 < len(sorted) {
			next := sorted[i+1].Timestamp
			if next <= n.Timestamp {
				continue
			}
			fadeOutStart = min(fadeOutStart, next)
		}
		out = append(out, NoteWindow{
			Note:         n,
			FadeInStart:  n.Timestamp,
			FadeInEnd:    min(n.Timestamp+NoteFadeIn, fadeOutStart),
			FadeOutStart: fadeOutStart,
			FadeOutEnd:   fadeOutStart + NoteFadeOut,
		})
	}
	return out
}

// KeyTime converts seconds to an animation fraction clamped to [0,1].
func KeyTime(t, duration float64) float64 {
	f := t / max(duration, Epsilon)
	return min(max(f, 0), 1)
}

// KeyTimes returns the key time fraction of every sample.
func (s Schedule) KeyTimes() []float64 {
	out := make([]float64, len(s.Samples))
	for i, sm := range s.Samples {
		out[i] = KeyTime(sm.Time, s.Duration)
	}
	return out
}

// StateAt evaluates the step function at t: the state of the last sample
// with Time <= t.
func (s Schedule) StateAt(t float64) model.ScoreState {
	var state model.ScoreState
	for _, sm := range s.Samples {
		if sm.Time > t {
			break
		}
		state = sm.State
	}
	return state
}

// VisibleNotes returns the notes with non-zero opacity at t.
func (s Schedule) VisibleNotes(t float64) []NoteWindow {
	var out []NoteWindow
	for _, w := range s.Notes {
		if w.Visible(t) {
			out = append(out, w)
		}
	}
	return out
}
