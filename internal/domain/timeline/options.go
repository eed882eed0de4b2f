package timeline

import (
	"github.com/okian/bjjscore/internal/domain/model"
	"github.com/okian/bjjscore/pkg/logger"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithHistoryCapacity bounds the undo history.
func WithHistoryCapacity(capacity int) Option {
	return func(e *Engine) {
		if capacity > 0 {
			e.capacity = capacity
		}
	}
}

// WithLogger sets a custom logger for the engine.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithContent seeds the engine with an initial log and notes. Seeding does not
// create history.
func WithContent(events []model.ScoreEvent, notes []model.Note) Option {
	return func(e *Engine) {
		e.events = model.SortedEvents(events)
		e.notes = append([]model.Note(nil), notes...)
		model.SortNotes(e.notes)
	}
}
