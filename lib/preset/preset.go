// Copyright 2026 The Easel Authors
// SPDX-License-Identifier: Apache-2.0

// Package preset divides artboards into named slot grids and fits
// items into slots.
//
// A preset names a columns x rows grid inside a margin, separated by a
// gutter. Slots are absolute artboard rectangles in Y-up coordinates,
// row-major from the top-left slot.
package preset

import (
	"fmt"
	"math"
	"sort"

	"github.com/easel-foundation/easel/lib/document"
	"github.com/easel-foundation/easel/lib/geometry"
)

// Grid is the shape of one preset.
type Grid struct {
	Columns int     `json:"columns"`
	Rows    int     `json:"rows"`
	Margin  float64 `json:"margin"`
	Gutter  float64 `json:"gutter"`
}

// Slots returns Columns*Rows.
func (g Grid) Slots() int { return g.Columns * g.Rows }

// Default slot spacing, in points. The scripting library carries the
// same values; keep them in lockstep.
const (
	defaultMargin = 20.0
	defaultGutter = 10.0
)

// Grids is the built-in preset set.
var Grids = map[string]Grid{
	"2x2": {Columns: 2, Rows: 2, Margin: defaultMargin, Gutter: defaultGutter},
	"3x1": {Columns: 3, Rows: 1, Margin: defaultMargin, Gutter: defaultGutter},
	"1x3": {Columns: 1, Rows: 3, Margin: defaultMargin, Gutter: defaultGutter},
	"2x3": {Columns: 2, Rows: 3, Margin: defaultMargin, Gutter: defaultGutter},
	"3x2": {Columns: 3, Rows: 2, Margin: defaultMargin, Gutter: defaultGutter},
	"1x2": {Columns: 1, Rows: 2, Margin: defaultMargin, Gutter: defaultGutter},
	"2x1": {Columns: 2, Rows: 1, Margin: defaultMargin, Gutter: defaultGutter},
}

// Names returns the preset names, sorted.
func Names() []string {
	names := make([]string, 0, len(Grids))
	for name := range Grids {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SlotGeometry computes the absolute slot rectangles for a preset on
// the given artboard, row-major from the top-left slot.
func SlotGeometry(name string, artboard geometry.Rect) ([]geometry.Rect, error) {
	grid, ok := Grids[name]
	if !ok {
		return nil, fmt.Errorf("unknown grid preset %q (have %v)", name, Names())
	}

	innerWidth := artboard.Width() - 2*grid.Margin
	innerHeight := artboard.Height() - 2*grid.Margin
	slotWidth := (innerWidth - float64(grid.Columns-1)*grid.Gutter) / float64(grid.Columns)
	slotHeight := (innerHeight - float64(grid.Rows-1)*grid.Gutter) / float64(grid.Rows)
	if slotWidth <= 0 || slotHeight <= 0 {
		return nil, fmt.Errorf("artboard %gx%g too small for preset %s",
			artboard.Width(), artboard.Height(), name)
	}

	innerLeft := artboard.Left + grid.Margin
	innerTop := artboard.Top - grid.Margin

	slots := make([]geometry.Rect, 0, grid.Slots())
	for row := 0; row < grid.Rows; row++ {
		for column := 0; column < grid.Columns; column++ {
			left := innerLeft + float64(column)*(slotWidth+grid.Gutter)
			top := innerTop - float64(row)*(slotHeight+grid.Gutter)
			slots = append(slots, geometry.Rect{
				Left: left, Top: top, Right: left + slotWidth, Bottom: top - slotHeight,
			})
		}
	}
	return slots, nil
}

// FitMode selects how an item is scaled into a slot.
type FitMode string

const (
	// FitContain scales the whole item inside the slot, leaving slack
	// on the shorter axis. The default.
	FitContain FitMode = "contain"

	// FitCover fills the slot completely, overflowing on the longer
	// axis.
	FitCover FitMode = "cover"
)

// Valid reports whether the mode is known. Empty means FitContain.
func (m FitMode) Valid() bool {
	return m == "" || m == FitContain || m == FitCover
}

// FitToSlot uniformly scales the item and centers it in the slot. The
// centering delta is measured on the bounds after scaling, so fitting
// an already-fitted item changes nothing.
func FitToSlot(item *document.Item, slot geometry.Rect, mode FitMode, policy geometry.BoundsPolicy) error {
	if !mode.Valid() {
		return fmt.Errorf("unknown fit mode %q", mode)
	}
	before := item.VisibleBounds(policy)
	if before.Width() <= 0 || before.Height() <= 0 {
		return fmt.Errorf("item %q has no visible extent", item.DisplayName())
	}

	scaleX := slot.Width() / before.Width()
	scaleY := slot.Height() / before.Height()
	factor := math.Min(scaleX, scaleY)
	if mode == FitCover {
		factor = math.Max(scaleX, scaleY)
	}
	item.Scale(factor, before.Left, before.Top)

	after := item.VisibleBounds(policy)
	slotCX, slotCY := slot.Center()
	afterCX, afterCY := after.Center()
	item.Translate(slotCX-afterCX, slotCY-afterCY)
	return nil
}
