package model

import (
	"fmt"

	"github.com/okian/bjjscore/internal/domain/geom"
)

// Resolution is an export resolution preset.
type Resolution string

const (
	Resolution720p  Resolution = "p720"
	Resolution1080p Resolution = "p1080"
	Resolution4K    Resolution = "p4K"
)

// Size returns the landscape pixel size of the preset.
func (r Resolution) Size() geom.Size {
	switch r {
	case Resolution720p:
		return geom.Size{Width: 1280, Height: 720}
	case Resolution4K:
		return geom.Size{Width: 3840, Height: 2160}
	default:
		return geom.Size{Width: 1920, Height: 1080}
	}
}

// DisplayName is the short preset label.
func (r Resolution) DisplayName() string {
	switch r {
	case Resolution720p:
		return "720p"
	case Resolution4K:
		return "4K"
	default:
		return "1080p"
	}
}

// AspectRatio is an export aspect ratio preset.
type AspectRatio string

const (
	AspectLandscape AspectRatio = "landscape16x9"
	AspectPortrait  AspectRatio = "portrait9x16"
	AspectSquare    AspectRatio = "square1x1"
)

// Ratio returns the preset as a width:height pair.
func (a AspectRatio) Ratio() geom.Size {
	switch a {
	case AspectPortrait:
		return geom.Size{Width: 9, Height: 16}
	case AspectSquare:
		return geom.Size{Width: 1, Height: 1}
	default:
		return geom.Size{Width: 16, Height: 9}
	}
}

// DisplayName is the short preset label.
func (a AspectRatio) DisplayName() string {
	r := a.Ratio()
	return fmt.Sprintf("%d:%d", int(r.Width), int(r.Height))
}

// RenderSize computes the export canvas for a resolution and aspect preset.
// Landscape uses the preset as-is. Portrait keeps the preset's long edge as
// the height and derives the width from the 9:16 ratio. Square uses the
// short edge for both sides. Results are truncated toward zero.
func RenderSize(r Resolution, a AspectRatio) geom.Size {
	base := r.Size()
	switch a {
	case AspectPortrait:
		height := max(base.Width, base.Height)
		ratio := a.Ratio()
		return geom.Size{Width: float64(int(height * ratio.Width / ratio.Height)), Height: float64(int(height))}
	case AspectSquare:
		side := float64(int(min(base.Width, base.Height)))
		return geom.Size{Width: side, Height: side}
	default:
		return geom.Size{Width: float64(int(base.Width)), Height: float64(int(base.Height))}
	}
}

// WatermarkPosition anchors the watermark on the canvas.
type WatermarkPosition string

const (
	WatermarkTopLeft     WatermarkPosition = "topLeft"
	WatermarkTopRight    WatermarkPosition = "topRight"
	WatermarkBottomLeft  WatermarkPosition = "bottomLeft"
	WatermarkBottomRight WatermarkPosition = "bottomRight"
	WatermarkCenter      WatermarkPosition = "center"
)

// Watermark configures the optional watermark image. Image is an opaque
// source handle for the image file; nil disables the watermark.
type Watermark struct {
	Image    []byte            `json:"image,omitempty" yaml:"image,omitempty"`
	Opacity  float64           `json:"opacity" yaml:"opacity"`
	Position WatermarkPosition `json:"position" yaml:"position"`
}

// Enabled reports whether a watermark image is configured.
func (w Watermark) Enabled() bool { return len(w.Image) > 0 }

// DefaultWatermark has no image, 65% opacity, top-right.
func DefaultWatermark() Watermark {
	return Watermark{Opacity: 0.65, Position: WatermarkTopRight}
}

// Preferences are the per-project export settings.
type Preferences struct {
	Resolution      Resolution  `json:"resolution" yaml:"resolution"`
	AspectRatio     AspectRatio `json:"aspectRatio" yaml:"aspectRatio"`
	IncludeMetadata bool        `json:"includeMetadata" yaml:"includeMetadata"`
	IncludeNotes    bool        `json:"includeNotes" yaml:"includeNotes"`
	Watermark       Watermark   `json:"watermark" yaml:"watermark"`
}

// DefaultPreferences is 1080p landscape with metadata and notes.
func DefaultPreferences() Preferences {
	return Preferences{
		Resolution:      Resolution1080p,
		AspectRatio:     AspectLandscape,
		IncludeMetadata: true,
		IncludeNotes:    true,
		Watermark:       DefaultWatermark(),
	}
}

// RenderSize is the export canvas for these preferences.
func (p Preferences) RenderSize() geom.Size {
	return RenderSize(p.Resolution, p.AspectRatio)
}
