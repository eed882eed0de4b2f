// Package overlay renders the scoreboard schedule into a layered scene with
// per-field keyframe animations that an encoder can burn into video.
package overlay

import (
	"github.com/okian/bjjscore/internal/domain/geom"
)

// LayerKind is the drawable type of a layer.
type LayerKind string

const (
	KindGroup LayerKind = "group"
	KindRect  LayerKind = "rect"
	KindText  LayerKind = "text"
	KindImage LayerKind = "image"
)

// Alignment is the horizontal text alignment inside a layer frame.
type Alignment string

const (
	AlignLeft   Alignment = "left"
	AlignCenter Alignment = "center"
	AlignRight  Alignment = "right"
)

// Property names an animated layer attribute.
type Property string

const (
	PropertyText    Property = "text"
	PropertyOpacity Property = "opacity"
)

// Calculation is the interpolation mode between keyframes.
type Calculation string

const (
	// Discrete holds each value until the next key time.
	Discrete Calculation = "discrete"
	// Linear interpolates between neighbouring key values.
	Linear Calculation = "linear"
)

// Layer is one drawable node. Frames are in export canvas pixels with the
// origin at the top-left corner. ContentsScale is always 1: text is
// rasterised at export resolution, never at a display's pixel density.
type Layer struct {
	Name          string    `json:"name" yaml:"name"`
	Kind          LayerKind `json:"kind" yaml:"kind"`
	Parent        string    `json:"parent,omitempty" yaml:"parent,omitempty"`
	Frame         geom.Rect `json:"frame" yaml:"frame"`
	Text          string    `json:"text,omitempty" yaml:"text,omitempty"`
	FontSize      float64   `json:"fontSize,omitempty" yaml:"fontSize,omitempty"`
	Bold          bool      `json:"bold,omitempty" yaml:"bold,omitempty"`
	Align         Alignment `json:"align,omitempty" yaml:"align,omitempty"`
	Color         string    `json:"color,omitempty" yaml:"color,omitempty"`
	Opacity       float64   `json:"opacity" yaml:"opacity"`
	CornerRadius  float64   `json:"cornerRadius,omitempty" yaml:"cornerRadius,omitempty"`
	ContentsScale float64   `json:"contentsScale" yaml:"contentsScale"`
	Image         []byte    `json:"image,omitempty" yaml:"image,omitempty"`
}

// TextKey sets a text value from KeyTime on.
type TextKey struct {
	KeyTime float64 `json:"keyTime" yaml:"keyTime"`
	Text    string  `json:"text" yaml:"text"`
}

// OpacityKey is an opacity value at KeyTime.
type OpacityKey struct {
	KeyTime float64 `json:"keyTime" yaml:"keyTime"`
	Opacity float64 `json:"opacity" yaml:"opacity"`
}

// Animation drives one property of one layer over Duration seconds. Key
// times are fractions of Duration in [0,1] and never decrease.
type Animation struct {
	Layer       string       `json:"layer" yaml:"layer"`
	Property    Property     `json:"property" yaml:"property"`
	Calculation Calculation  `json:"calculation" yaml:"calculation"`
	Duration    float64      `json:"duration" yaml:"duration"`
	Text        []TextKey    `json:"text,omitempty" yaml:"text,omitempty"`
	Opacity     []OpacityKey `json:"opacity,omitempty" yaml:"opacity,omitempty"`
}

// TextSegment is a half-open interval [Start, End) in seconds over which a
// discrete text animation shows Text.
type TextSegment struct {
	Start float64 `json:"start" yaml:"start"`
	End   float64 `json:"end" yaml:"end"`
	Text  string  `json:"text" yaml:"text"`
}

// TextAt evaluates a text animation at t seconds: the value of the last key
// whose time is not after t.
func (a Animation) TextAt(t float64) (string, bool) {
	if len(a.Text) == 0 {
		return "", false
	}
	out := a.Text[0].Text
	for _, k := range a.Text {
		if k.KeyTime*a.Duration > t {
			break
		}
		out = k.Text
	}
	return out, true
}

// OpacityAt evaluates an opacity animation at t seconds.
func (a Animation) OpacityAt(t float64) (float64, bool) {
	keys := a.Opacity
	if len(keys) == 0 {
		return 0, false
	}
	if t <= keys[0].KeyTime*a.Duration {
		return keys[0].Opacity, true
	}
	for i := 1; i < len(keys); i++ {
		t1 := keys[i].KeyTime * a.Duration
		if t > t1 {
			continue
		}
		prev := keys[i-1]
		if a.Calculation == Discrete {
			return prev.Opacity, true
		}
		t0 := prev.KeyTime * a.Duration
		if t1 <= t0 {
			return keys[i].Opacity, true
		}
		f := (t - t0) / (t1 - t0)
		return prev.Opacity + f*(keys[i].Opacity-prev.Opacity), true
	}
	return keys[len(keys)-1].Opacity, true
}

// Segments flattens a discrete text animation into non-empty intervals,
// merging neighbours that show the same text. The last segment ends at
// Duration.
func (a Animation) Segments() []TextSegment {
	var out []TextSegment
	for i, k := range a.Text {
		start := k.KeyTime * a.Duration
		end := a.Duration
		if i+1 < len(a.Text) {
			end = a.Text[i+1].KeyTime * a.Duration
		}
		if end <= start && i+1 < len(a.Text) {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Text == k.Text {
			out[n-1].End = end
			continue
		}
		out = append(out, TextSegment{Start: start, End: end, Text: k.Text})
	}
	return out
}

// Scene is the full overlay for one export canvas.
type Scene struct {
	Size       geom.Size   `json:"size" yaml:"size"`
	Duration   float64     `json:"duration" yaml:"duration"`
	Layers     []Layer     `json:"layers" yaml:"layers"`
	Animations []Animation `json:"animations" yaml:"animations"`
}

// Layer returns the named layer.
func (s *Scene) Layer(name string) (Layer, bool) {
	for _, l := range s.Layers {
		if l.Name == name {
			return l, true
		}
	}
	return Layer{}, false
}

// Animation returns the animation bound to a layer property.
func (s *Scene) Animation(layer string, p Property) (Animation, bool) {
	for _, a := range s.Animations {
		if a.Layer == layer && a.Property == p {
			return a, true
		}
	}
	return Animation{}, false
}

// TextAt is the text a layer shows at t seconds.
func (s *Scene) TextAt(layer string, t float64) string {
	if a, ok := s.Animation(layer, PropertyText); ok {
		if v, ok := a.TextAt(t); ok {
			return v
		}
	}
	l, _ := s.Layer(layer)
	return l.Text
}

// OpacityAt is the opacity of a layer at t seconds.
func (s *Scene) OpacityAt(layer string, t float64) float64 {
	if a, ok := s.Animation(layer, PropertyOpacity); ok {
		if v, ok := a.OpacityAt(t); ok {
			return v
		}
	}
	l, _ := s.Layer(layer)
	return l.Opacity
}
