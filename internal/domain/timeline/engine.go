// Package timeline is the stateful, undoable score timeline for one match.
//
// The engine is not safe for concurrent use; callers serialize access.
package timeline

import (
	"context"
	"math"
	"slices"

	"github.com/google/uuid"

	"github.com/okian/bjjscore/internal/domain/model"
	"github.com/okian/bjjscore/internal/domain/scoring"
	"github.com/okian/bjjscore/pkg/logger"
	"github.com/okian/bjjscore/pkg/metrics"
)

// DefaultHistoryCapacity is the number of undo snapshots kept.
const DefaultHistoryCapacity = 50

// DefaultNoteWindow is the half-width, in seconds, used by NotesNear.
const DefaultNoteWindow = 4.0

// Engine owns the authoritative event log, the notes and the undo/redo
// history. Every mutation except Undo/Redo snapshots the previous log and
// clears the redo stack.
type Engine struct {
	events  []model.ScoreEvent
	notes   []model.Note
	current model.ScoreState

	capacity int
	undo     *history
	redo     *history

	logger logger.Logger
}

// New creates an empty engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		events:   []model.ScoreEvent{},
		notes:    []model.Note{},
		capacity: DefaultHistoryCapacity,
		logger:   logger.Named("timeline"),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.undo = newHistory(e.capacity)
	e.redo = newHistory(e.capacity)
	e.recompute()
	return e
}

// Events returns a copy of the ordered log.
func (e *Engine) Events() []model.ScoreEvent { return slices.Clone(e.events) }

// Notes returns a copy of the notes ordered by timestamp.
func (e *Engine) Notes() []model.Note { return slices.Clone(e.notes) }

// CurrentScore is the cached score, reduce(full log) after the last mutation
// or the playhead score after UpdateCurrentScore.
func (e *Engine) CurrentScore() model.ScoreState { return e.current }

// CanUndo reports whether Undo would change the log.
func (e *Engine) CanUndo() bool { return e.undo.len() > 0 }

// CanRedo reports whether Redo would change the log.
func (e *Engine) CanRedo() bool { return e.redo.len() > 0 }

// Event looks up an event by id.
func (e *Engine) Event(id uuid.UUID) (model.ScoreEvent, bool) {
	i := e.indexOf(id)
	if i < 0 {
		return model.ScoreEvent{}, false
	}
	return e.events[i], true
}

// AddEvent inserts event keeping the (timestamp, createdAt) order.
func (e *Engine) AddEvent(event model.ScoreEvent) {
	e.checkpoint()
	e.events = append(e.events, event)
	model.SortEvents(e.events)
	e.commit("add")
}

// UpdateEvent replaces the event with the same id. Unknown ids are a no-op
// and leave history untouched; the return value reports whether anything
// changed.
func (e *Engine) UpdateEvent(event model.ScoreEvent) bool {
	i := e.indexOf(event.ID)
	if i < 0 {
		return false
	}
	e.checkpoint()
	e.events[i] = event
	model.SortEvents(e.events)
	e.commit("update")
	return true
}

// RemoveEvent deletes the event with id. Unknown ids are a no-op.
func (e *Engine) RemoveEvent(id uuid.UUID) bool {
	i := e.indexOf(id)
	if i < 0 {
		return false
	}
	e.checkpoint()
	e.events = slices.Delete(e.events, i, i+1)
	e.commit("remove")
	return true
}

// Undo restores the previous log snapshot. Empty history is a no-op.
func (e *Engine) Undo() bool {
	prev, ok := e.undo.pop()
	if !ok {
		return false
	}
	e.redo.push(e.events)
	e.events = prev
	e.recompute()
	metrics.RecordTimelineUndo()
	e.logger.Debug(context.Background(), "undo", logger.Int("events", len(e.events)))
	return true
}

// Redo reapplies the most recently undone snapshot. Empty redo is a no-op.
func (e *Engine) Redo() bool {
	next, ok := e.redo.pop()
	if !ok {
		return false
	}
	e.undo.push(e.events)
	e.events = next
	e.recompute()
	metrics.RecordTimelineRedo()
	e.logger.Debug(context.Background(), "redo", logger.Int("events", len(e.events)))
	return true
}

// Configure replaces the log and notes wholesale and discards all history.
func (e *Engine) Configure(events []model.ScoreEvent, notes []model.Note) {
	e.events = model.SortedEvents(events)
	if e.events == nil {
		e.events = []model.ScoreEvent{}
	}
	e.notes = append([]model.Note{}, notes...)
	model.SortNotes(e.notes)
	e.undo.reset()
	e.redo.reset()
	e.recompute()
	metrics.RecordTimelineMutation("configure")
	e.logger.Debug(context.Background(), "timeline configured",
		logger.Int("events", len(e.events)),
		logger.Int("notes", len(e.notes)),
	)
}

// State recomputes the score from events with timestamp <= t. It does not
// consult the cached current score.
func (e *Engine) State(t float64) model.ScoreState {
	return scoring.ReduceUntil(e.events, t)
}

// UpdateCurrentScore sets the cached score to State(t), for playhead moves.
func (e *Engine) UpdateCurrentScore(t float64) {
	e.current = e.State(t)
}

// AddNote inserts a note keeping timestamp order. Notes are not part of the
// undo history.
func (e *Engine) AddNote(note model.Note) {
	e.notes = append(e.notes, note)
	model.SortNotes(e.notes)
}

// RemoveNote deletes the note with id.
func (e *Engine) RemoveNote(id uuid.UUID) bool {
	i := slices.IndexFunc(e.notes, func(n model.Note) bool { return n.ID == id })
	if i < 0 {
		return false
	}
	e.notes = slices.Delete(e.notes, i, i+1)
	return true
}

// NotesNear returns notes whose timestamp is within window seconds of t.
func (e *Engine) NotesNear(t, window float64) []model.Note {
	var out []model.Note
	for _, n := range e.notes {
		if math.Abs(n.Timestamp-t) <= window {
			out = append(out, n)
		}
	}
	return out
}

func (e *Engine) indexOf(id uuid.UUID) int {
	return slices.IndexFunc(e.events, func(ev model.ScoreEvent) bool { return ev.ID == id })
}

// checkpoint records the pre-mutation log and invalidates redo.
func (e *Engine) checkpoint() {
	e.undo.push(e.events)
	e.redo.reset()
}

func (e *Engine) commit(op string) {
	e.recompute()
	metrics.RecordTimelineMutation(op)
	e.logger.Debug(context.Background(), "timeline mutated",
		logger.String("op", op),
		logger.Int("events", len(e.events)),
		logger.Int("undo_depth", e.undo.len()),
	)
}

func (e *Engine) recompute() {
	e.current = scoring.Reduce(e.events)
	metrics.UpdateTimelineEvents(len(e.events))
}
