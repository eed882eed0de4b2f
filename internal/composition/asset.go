// Package composition merges source media with the overlay scene into an
// export package an encoder can render.
package composition

import (
	"context"

	"github.com/okian/bjjscore/internal/domain/geom"
)

// TrackKind distinguishes media tracks.
type TrackKind string

const (
	TrackVideo TrackKind = "video"
	TrackAudio TrackKind = "audio"
	TrackOther TrackKind = "other"
)

// Track describes one stream of a source asset. Transform is the source's
// orientation-correcting transform; NaturalSize is the stored frame size
// before it is applied.
type Track struct {
	ID          int         `json:"id" yaml:"id"`
	Kind        TrackKind   `json:"kind" yaml:"kind"`
	Codec       string      `json:"codec,omitempty" yaml:"codec,omitempty"`
	NaturalSize geom.Size   `json:"naturalSize" yaml:"naturalSize"`
	Transform   geom.Affine `json:"transform" yaml:"transform"`
	Duration    float64     `json:"duration" yaml:"duration"`
	FrameRate   float64     `json:"frameRate,omitempty" yaml:"frameRate,omitempty"`
}

// Asset is an opened source file.
type Asset struct {
	Path     string  `json:"path" yaml:"path"`
	Duration float64 `json:"duration" yaml:"duration"`
	Tracks   []Track `json:"tracks" yaml:"tracks"`
}

// FirstTrack returns the first track of kind k.
func (a *Asset) FirstTrack(k TrackKind) (Track, bool) {
	for _, t := range a.Tracks {
		if t.Kind == k {
			return t, true
		}
	}
	return Track{}, false
}

// Opener loads track information for a readable file.
type Opener interface {
	Open(ctx context.Context, path string) (*Asset, error)
}
