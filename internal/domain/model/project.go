package model

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// DefaultProjectTitle is used for freshly created projects.
const DefaultProjectTitle = "New Match"

// Note is a timestamped free-text annotation.
type Note struct {
	ID        uuid.UUID `json:"id" yaml:"id"`
	Timestamp float64   `json:"timestamp" yaml:"timestamp"`
	Text      string    `json:"text" yaml:"text"`
	IsPinned  bool      `json:"isPinned" yaml:"isPinned"`
}

// NewNote creates a note with a fresh id.
func NewNote(timestamp float64, text string) Note {
	return Note{ID: uuid.New(), Timestamp: timestamp, Text: text}
}

// SortNotes orders notes by timestamp, keeping insertion order for ties.
func SortNotes(notes []Note) {
	slices.SortStableFunc(notes, func(a, b Note) int {
		switch {
		case a.Timestamp < b.Timestamp:
			return -1
		case a.Timestamp > b.Timestamp:
			return 1
		default:
			return 0
		}
	})
}

// Metadata describes the match for the overlay banner.
type Metadata struct {
	Title                 string    `json:"title" yaml:"title"`
	AthleteAName          string    `json:"athleteAName" yaml:"athleteAName"`
	AthleteBName          string    `json:"athleteBName" yaml:"athleteBName"`
	Gym                   string    `json:"gym" yaml:"gym"`
	Date                  time.Time `json:"date" yaml:"date"`
	DisplayDuringPlayback bool      `json:"displayDuringPlayback" yaml:"displayDuringPlayback"`
}

// EmptyMetadata returns metadata with placeholder athlete names.
func EmptyMetadata() Metadata {
	return Metadata{
		AthleteAName:          AthleteA.DefaultName(),
		AthleteBName:          AthleteB.DefaultName(),
		Date:                  time.Now(),
		DisplayDuringPlayback: true,
	}
}

// Name returns the display name for c.
func (m Metadata) Name(c Competitor) string {
	if c == AthleteB {
		return m.AthleteBName
	}
	return m.AthleteAName
}

// Project is the aggregate owning the event log, notes and export settings.
// ID is stable across edits.
type Project struct {
	ID                uuid.UUID    `json:"id" yaml:"id"`
	CreatedAt         time.Time    `json:"createdAt" yaml:"createdAt"`
	UpdatedAt         time.Time    `json:"updatedAt" yaml:"updatedAt"`
	Title             string       `json:"title" yaml:"title"`
	SourceHandle      []byte       `json:"sourceHandle,omitempty" yaml:"sourceHandle,omitempty"`
	SourceFilename    string       `json:"sourceFilename,omitempty" yaml:"sourceFilename,omitempty"`
	Duration          float64      `json:"duration" yaml:"duration"`
	Events            []ScoreEvent `json:"events" yaml:"events"`
	Notes             []Note       `json:"notes" yaml:"notes"`
	Metadata          Metadata     `json:"metadata" yaml:"metadata"`
	ExportPreferences Preferences  `json:"exportPreferences" yaml:"exportPreferences"`
}

// NewProject returns an empty project with default settings.
func NewProject() Project {
	now := time.Now()
	return Project{
		ID:                uuid.New(),
		CreatedAt:         now,
		UpdatedAt:         now,
		Title:             DefaultProjectTitle,
		Events:            []ScoreEvent{},
		Notes:             []Note{},
		Metadata:          EmptyMetadata(),
		ExportPreferences: DefaultPreferences(),
	}
}

// Clone returns a deep copy so callers can mutate slices freely.
func (p Project) Clone() Project {
	p.SourceHandle = slices.Clone(p.SourceHandle)
	p.Events = slices.Clone(p.Events)
	p.Notes = slices.Clone(p.Notes)
	p.ExportPreferences.Watermark.Image = slices.Clone(p.ExportPreferences.Watermark.Image)
	return p
}
