// Package geom holds the small planar geometry types shared by layout,
// overlay and composition code.
package geom

import "math"

// Size is a width/height pair in canvas units.
type Size struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Point is a 2D coordinate.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Rect is an axis aligned rectangle with its origin at the top-left corner.
type Rect struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// RectOf returns a rectangle at the origin covering s.
func RectOf(s Size) Rect { return Rect{Width: s.Width, Height: s.Height} }

func (r Rect) MinX() float64 { return r.X }
func (r Rect) MinY() float64 { return r.Y }
func (r Rect) MaxX() float64 { return r.X + r.Width }
func (r Rect) MaxY() float64 { return r.Y + r.Height }
func (r Rect) MidX() float64 { return r.X + r.Width/2 }
func (r Rect) MidY() float64 { return r.Y + r.Height/2 }

// Size returns the rectangle dimensions.
func (r Rect) Size() Size { return Size{Width: r.Width, Height: r.Height} }

// Inset shrinks the rectangle by dx on the left and right and dy on the top
// and bottom.
func (r Rect) Inset(dx, dy float64) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, Width: r.Width - 2*dx, Height: r.Height - 2*dy}
}

// Scale multiplies origin and size by f.
func (r Rect) Scale(f float64) Rect {
	return Rect{X: r.X * f, Y: r.Y * f, Width: r.Width * f, Height: r.Height * f}
}

// Affine is a 2D affine transform in the conventional
// [a b 0; c d 0; tx ty 1] row-vector form.
type Affine struct {
	A  float64 `json:"a" yaml:"a"`
	B  float64 `json:"b" yaml:"b"`
	C  float64 `json:"c" yaml:"c"`
	D  float64 `json:"d" yaml:"d"`
	TX float64 `json:"tx" yaml:"tx"`
	TY float64 `json:"ty" yaml:"ty"`
}

// Identity is the identity transform.
var Identity = Affine{A: 1, D: 1}

// Rotation returns a transform rotating by the given number of degrees.
func Rotation(degrees float64) Affine {
	rad := degrees * math.Pi / 180
	sin, cos := math.Sincos(rad)
	return Affine{A: round(cos), B: round(sin), C: round(-sin), D: round(cos)}
}

// Scaling returns a uniform scale transform.
func Scaling(s float64) Affine { return Affine{A: s, D: s} }

// Translation returns a translation transform.
func Translation(tx, ty float64) Affine { return Affine{A: 1, D: 1, TX: tx, TY: ty} }

// Concat returns t followed by u.
func (t Affine) Concat(u Affine) Affine {
	return Affine{
		A:  t.A*u.A + t.B*u.C,
		B:  t.A*u.B + t.B*u.D,
		C:  t.C*u.A + t.D*u.C,
		D:  t.C*u.B + t.D*u.D,
		TX: t.TX*u.A + t.TY*u.C + u.TX,
		TY: t.TX*u.B + t.TY*u.D + u.TY,
	}
}

// Apply maps p through the transform.
func (t Affine) Apply(p Point) Point {
	return Point{X: p.X*t.A + p.Y*t.C + t.TX, Y: p.X*t.B + p.Y*t.D + t.TY}
}

// ApplySize maps a size through the linear part of the transform and returns
// the absolute extent, so a 90° rotation swaps width and height.
func (t Affine) ApplySize(s Size) Size {
	w := s.Width*t.A + s.Height*t.C
	h := s.Width*t.B + s.Height*t.D
	return Size{Width: math.Abs(w), Height: math.Abs(h)}
}

// IsIdentity reports whether t is the identity transform.
func (t Affine) IsIdentity() bool { return t == Identity }

// round snaps values within 1e-12 of an integer, which keeps right angle
// rotations exact.
func round(v float64) float64 {
	if r := math.Round(v); math.Abs(v-r) < 1e-12 {
		return r + 0 // normalise -0
	}
	return v
}
