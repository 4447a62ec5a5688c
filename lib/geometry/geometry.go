// Copyright 2026 The Easel Authors
// SPDX-License-Identifier: Apache-2.0

// Package geometry provides the rectangle math and unit conversions
// the task pipeline and layout code build on.
//
// All coordinates follow the host convention: Y increases upward, so a
// rectangle's Top is numerically greater than its Bottom. Bounds are
// [left, top, right, bottom] in points.
package geometry

import "math"

// PointsPerMM is the exact conversion factor between millimetres and
// PostScript points used across the protocol.
const PointsPerMM = 2.83464567

// MMToPoints converts millimetres to points.
func MMToPoints(mm float64) float64 { return mm * PointsPerMM }

// PointsToMM converts points to millimetres.
func PointsToMM(pt float64) float64 { return pt / PointsPerMM }

// Rect is an axis-aligned rectangle in Y-up coordinates: Top > Bottom
// for any non-empty rect.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// Width returns the horizontal extent.
func (r Rect) Width() float64 { return r.Right - r.Left }

// Height returns the vertical extent (Y up: top minus bottom).
func (r Rect) Height() float64 { return r.Top - r.Bottom }

// Area returns Width*Height.
func (r Rect) Area() float64 { return r.Width() * r.Height() }

// Center returns the midpoint.
func (r Rect) Center() (x, y float64) {
	return (r.Left + r.Right) / 2, (r.Top + r.Bottom) / 2
}

// Translate returns the rect shifted by (dx, dy).
func (r Rect) Translate(dx, dy float64) Rect {
	return Rect{Left: r.Left + dx, Top: r.Top + dy, Right: r.Right + dx, Bottom: r.Bottom + dy}
}

// Expand returns the rect grown by margin on every side. Negative
// margins shrink it.
func (r Rect) Expand(margin float64) Rect {
	return Rect{
		Left:   r.Left - margin,
		Top:    r.Top + margin,
		Right:  r.Right + margin,
		Bottom: r.Bottom - margin,
	}
}

// Union returns the smallest rect containing both r and other.
func (r Rect) Union(other Rect) Rect {
	return Rect{
		Left:   math.Min(r.Left, other.Left),
		Top:    math.Max(r.Top, other.Top),
		Right:  math.Max(r.Right, other.Right),
		Bottom: math.Min(r.Bottom, other.Bottom),
	}
}

// Intersects reports whether the two rects overlap with positive area.
func (r Rect) Intersects(other Rect) bool {
	return r.Left < other.Right && other.Left < r.Right &&
		r.Bottom < other.Top && other.Bottom < r.Top
}

// FourTuple returns [left, top, right, bottom] in the order scripts
// and reports carry bounds.
func (r Rect) FourTuple() [4]float64 {
	return [4]float64{r.Left, r.Top, r.Right, r.Bottom}
}

// FromFourTuple builds a Rect from [left, top, right, bottom].
func FromFourTuple(b [4]float64) Rect {
	return Rect{Left: b[0], Top: b[1], Right: b[2], Bottom: b[3]}
}

// BoundsPolicy selects which bounds clipping groups report.
type BoundsPolicy struct {
	// UseMaskBoundsForClippedGroups reports the clipping path's
	// geometric bounds for a clipping group when true; the union of
	// the content (masked-out area included) when false. The host's
	// native visibleBounds uses content bounds, which is rarely what
	// layout code wants.
	UseMaskBoundsForClippedGroups bool
}

// DefaultPolicy returns the policy used when a caller does not choose:
// mask bounds on, matching the resolver library's behavior.
func DefaultPolicy() BoundsPolicy {
	return BoundsPolicy{UseMaskBoundsForClippedGroups: true}
}
