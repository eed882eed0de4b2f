// Package types contains the shapes shared by the service and its API.
package types

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/okian/bjjscore/internal/domain/model"
)

// TimelineView is a snapshot of the active timeline.
type TimelineView struct {
	ProjectID    uuid.UUID          `json:"projectId" yaml:"projectId"`
	Events       []model.ScoreEvent `json:"events" yaml:"events"`
	Notes        []model.Note       `json:"notes" yaml:"notes"`
	CurrentScore model.ScoreState   `json:"currentScore" yaml:"currentScore"`
	CanUndo      bool               `json:"canUndo" yaml:"canUndo"`
	CanRedo      bool               `json:"canRedo" yaml:"canRedo"`
}

// ProjectPatch lists the project fields a caller may change. Nil fields are
// left untouched; events and notes change only through the timeline.
type ProjectPatch struct {
	Title             *string            `json:"title,omitempty"`
	Duration          *float64           `json:"duration,omitempty"`
	Metadata          *model.Metadata    `json:"metadata,omitempty"`
	ExportPreferences *model.Preferences `json:"exportPreferences,omitempty"`
}

// Validate rejects patches that would break project invariants.
func (p ProjectPatch) Validate() error {
	if p.Duration != nil && *p.Duration < 0 {
		return fmt.Errorf("%w: negative duration %v", model.ErrInvalid, *p.Duration)
	}
	if w := p.ExportPreferences; w != nil && (w.Watermark.Opacity < 0 || w.Watermark.Opacity > 1) {
		return fmt.Errorf("%w: watermark opacity %v outside [0,1]", model.ErrInvalid, w.Watermark.Opacity)
	}
	return nil
}

// Apply copies the set fields onto project.
func (p ProjectPatch) Apply(project *model.Project) {
	if p.Title != nil {
		project.Title = *p.Title
	}
	if p.Duration != nil {
		project.Duration = *p.Duration
	}
	if p.Metadata != nil {
		project.Metadata = *p.Metadata
	}
	if p.ExportPreferences != nil {
		project.ExportPreferences = *p.ExportPreferences
	}
}

// Stats summarises the service for monitoring.
type Stats struct {
	Started   bool   `json:"started"`
	Projects  int    `json:"projects"`
	ProjectID string `json:"projectId"`
	Events    int    `json:"events"`
	Notes     int    `json:"notes"`
	CanUndo   bool   `json:"canUndo"`
	CanRedo   bool   `json:"canRedo"`
	Exporting bool   `json:"exporting"`
}
