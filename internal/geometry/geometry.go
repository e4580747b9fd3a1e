// Package geometry computes connector anchor points between card rectangles.
// All functions are pure and deterministic for identical inputs.
package geometry

import "math"

// Point is a location in canvas space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned rectangle given by its top-left corner and size.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Center returns the rectangle's center point.
func (r Rect) Center() Point {
	return Point{X: r.X + r.W/2, Y: r.Y + r.H/2}
}

// Measured reports whether the rectangle has a known layout size.
// The renderer reports zero width/height for nodes it has not measured yet.
func (r Rect) Measured() bool {
	return r.W > 0 && r.H > 0
}

// AnchorToward returns the point where the ray from r's center toward p
// first crosses r's boundary. Axis-degenerate rays (dx == 0 or dy == 0)
// use the infinite-scale convention: the other axis decides the crossing.
// When p coincides with the center the result is non-finite; callers must
// check with Finite before drawing.
func AnchorToward(r Rect, p Point) Point {
	c := r.Center()
	dx := p.X - c.X
	dy := p.Y - c.Y

	sx := math.Inf(1)
	if dx != 0 {
		sx = (r.W / 2) / math.Abs(dx)
	}
	sy := math.Inf(1)
	if dy != 0 {
		sy = (r.H / 2) / math.Abs(dy)
	}
	t := math.Min(sx, sy)

	return Point{X: c.X + dx*t, Y: c.Y + dy*t}
}

// Finite reports whether both coordinates are finite numbers.
func (p Point) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) &&
		!math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// ConnectorEndpoints computes where a straight connector between two card
// rectangles should terminate: on each rectangle's boundary along the ray
// toward the other rectangle's center. A side whose rectangle is not yet
// measured falls back to its raw renderer-supplied endpoint. ok is false
// when the connector must be suppressed (non-finite result, e.g. both
// centers coincide).
func ConnectorEndpoints(src, tgt Rect, rawSrc, rawTgt Point) (Point, Point, bool) {
	s := rawSrc
	t := rawTgt

	if src.Measured() && tgt.Measured() {
		s = AnchorToward(src, tgt.Center())
		t = AnchorToward(tgt, src.Center())
	}

	if !s.Finite() || !t.Finite() {
		return Point{}, Point{}, false
	}
	return s, t, true
}
