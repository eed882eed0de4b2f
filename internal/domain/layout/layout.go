// Package layout maps an export canvas to the named overlay regions.
//
// All insets are fractions of the canvas, so the result scales linearly with
// canvas size.
package layout

import (
	"github.com/okian/bjjscore/internal/domain/geom"
	"github.com/okian/bjjscore/internal/domain/model"
)

const (
	// referenceEdge is the short canvas edge on which Margin is expressed.
	referenceEdge = 1080.0
	// Margin is the uniform safe-area inset on a reference-sized canvas.
	Margin = 40.0

	scoreboardFraction = 0.12
	metadataFraction   = 0.08
	notesFraction      = 0.20
)

// Metrics are the overlay regions for one canvas.
type Metrics struct {
	Aspect          model.AspectRatio `json:"aspect" yaml:"aspect"`
	Canvas          geom.Size         `json:"canvas" yaml:"canvas"`
	SafeArea        geom.Rect         `json:"safeArea" yaml:"safeArea"`
	ScoreboardFrame geom.Rect         `json:"scoreboardFrame" yaml:"scoreboardFrame"`
	MetadataFrame   geom.Rect         `json:"metadataFrame" yaml:"metadataFrame"`
	NotesFrame      geom.Rect         `json:"notesFrame" yaml:"notesFrame"`
}

// For computes the regions of canvas. The scoreboard occupies the bottom 12%
// of the safe area, metadata the top 8% and notes a centred 20% strip.
func For(aspect model.AspectRatio, canvas geom.Size) Metrics {
	inset := Margin * min(canvas.Width, canvas.Height) / referenceEdge
	safe := geom.RectOf(canvas).Inset(inset, inset)

	scoreboardHeight := safe.Height * scoreboardFraction
	metadataHeight := safe.Height * metadataFraction
	notesHeight := safe.Height * notesFraction

	return Metrics{
		Aspect:   aspect,
		Canvas:   canvas,
		SafeArea: safe,
		ScoreboardFrame: geom.Rect{
			X:      safe.MinX(),
			Y:      safe.MaxY() - scoreboardHeight,
			Width:  safe.Width,
			Height: scoreboardHeight,
		},
		MetadataFrame: geom.Rect{
			X:      safe.MinX(),
			Y:      safe.MinY(),
			Width:  safe.Width,
			Height: metadataHeight,
		},
		NotesFrame: geom.Rect{
			X:      safe.MinX(),
			Y:      safe.MidY() - notesHeight/2,
			Width:  safe.Width,
			Height: notesHeight,
		},
	}
}

// ForPreferences computes the regions of the export canvas described by p.
func ForPreferences(p model.Preferences) Metrics {
	return For(p.AspectRatio, p.RenderSize())
}
