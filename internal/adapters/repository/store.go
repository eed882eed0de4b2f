// Package repository persists the project catalog.
package repository

import (
	"context"
	"time"

	"github.com/okian/bjjscore/internal/domain/model"
	"github.com/okian/bjjscore/pkg/metrics"
)

// Store loads and saves the whole project collection. Save replaces the
// previous snapshot atomically; the order of projects is preserved.
type Store interface {
	// Load returns the saved projects. Returns ErrNotFound when nothing has
	// been saved yet and ErrCorrupt when the snapshot cannot be decoded.
	Load(ctx context.Context) ([]model.Project, error)

	// Save replaces the stored snapshot with projects.
	Save(ctx context.Context, projects []model.Project) error

	// Close releases the underlying resources.
	Close() error
}

// observe records the latency of a store operation started at begin.
func observe(operation string, begin time.Time) {
	metrics.RecordRepositoryLatency(operation, float64(time.Since(begin).Microseconds())/1000)
}
