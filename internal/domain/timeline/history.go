package timeline

import (
	"slices"

	"github.com/okian/bjjscore/internal/domain/model"
)

// history is a bounded LIFO of full event log snapshots. Pushing past
// capacity evicts the oldest snapshot.
type history struct {
	capacity  int
	snapshots [][]model.ScoreEvent
}

func newHistory(capacity int) *history {
	return &history{capacity: capacity}
}

// push stores a copy of events.
func (h *history) push(events []model.ScoreEvent) {
	h.snapshots = append(h.snapshots, slices.Clone(events))
	if over := len(h.snapshots) - h.capacity; over > 0 {
		clear(h.snapshots[:over])
		h.snapshots = h.snapshots[over:]
	}
}

// pop removes and returns the newest snapshot.
func (h *history) pop() ([]model.ScoreEvent, bool) {
	n := len(h.snapshots)
	if n == 0 {
		return nil, false
	}
	top := h.snapshots[n-1]
	h.snapshots[n-1] = nil
	h.snapshots = h.snapshots[:n-1]
	return top, true
}

func (h *history) len() int { return len(h.snapshots) }

func (h *history) reset() {
	clear(h.snapshots)
	h.snapshots = h.snapshots[:0]
}
