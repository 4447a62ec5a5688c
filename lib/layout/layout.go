// Copyright 2026 The Easel Authors
// SPDX-License-Identifier: Apache-2.0

// Package layout arranges items into grids by moving them with
// visible-bounds deltas, so strokes and clipping masks never shift a
// layout.
package layout

import (
	"fmt"
	"math"
	"sort"

	"github.com/easel-foundation/easel/lib/document"
	"github.com/easel-foundation/easel/lib/geometry"
)

// orderBucket is the band size, in points, within which items count as
// the same row (or column) when sorting by current position. Looser
// than the task pipeline's reading order: grid sources are usually
// hand-placed and a touch misaligned.
const orderBucket = 5.0

// Order selects how items are sequenced before placement.
type Order int

const (
	// RowMajor reads top to bottom, left to right within a row band.
	RowMajor Order = iota

	// ColumnMajor reads left to right, top to bottom within a column
	// band.
	ColumnMajor
)

// Sort orders items in place by their current position. The sort is
// stable, so ties keep stacking order.
func Sort(items []*document.Item, order Order, policy geometry.BoundsPolicy) {
	bounds := make(map[*document.Item]geometry.Rect, len(items))
	for _, item := range items {
		bounds[item] = item.VisibleBounds(policy)
	}
	band := func(v float64) int { return int(math.Floor(v / orderBucket)) }

	switch order {
	case RowMajor:
		sort.SliceStable(items, func(i, j int) bool {
			a, b := bounds[items[i]], bounds[items[j]]
			if rowA, rowB := band(a.Top), band(b.Top); rowA != rowB {
				return rowA > rowB
			}
			return a.Left < b.Left
		})
	case ColumnMajor:
		sort.SliceStable(items, func(i, j int) bool {
			a, b := bounds[items[i]], bounds[items[j]]
			if colA, colB := band(a.Left), band(b.Left); colA != colB {
				return colA < colB
			}
			return a.Top > b.Top
		})
	}
}

// GridSpec describes one grid placement.
type GridSpec struct {
	// Columns is the number of cells per row. Required, >= 1.
	Columns int

	// GapX and GapY separate adjacent cells, in points.
	GapX float64
	GapY float64

	// OriginX, OriginY anchor the top-left corner of the first cell.
	OriginX float64
	OriginY float64

	// Order sequences the items into cells. Default RowMajor.
	Order Order
}

// Move is one planned translation.
type Move struct {
	Item *document.Item
	DX   float64
	DY   float64
}

// PlanGrid computes the moves that would arrange items into a grid,
// without touching the document. The cell size is the largest visible
// width and height in the set, so nothing overlaps. Items are placed
// in reading order of their current positions; each move is the delta
// between an item's visible top-left corner and its cell's. Items
// already in place get a zero move.
func PlanGrid(items []*document.Item, spec GridSpec, policy geometry.BoundsPolicy) ([]Move, error) {
	if spec.Columns < 1 {
		return nil, fmt.Errorf("grid needs at least one column, got %d", spec.Columns)
	}
	if len(items) == 0 {
		return nil, nil
	}

	ordered := append([]*document.Item(nil), items...)
	Sort(ordered, spec.Order, policy)

	var cellWidth, cellHeight float64
	for _, item := range ordered {
		bounds := item.VisibleBounds(policy)
		cellWidth = math.Max(cellWidth, bounds.Width())
		cellHeight = math.Max(cellHeight, bounds.Height())
	}

	moves := make([]Move, 0, len(ordered))
	for i, item := range ordered {
		row, column := i/spec.Columns, i%spec.Columns
		targetLeft := spec.OriginX + float64(column)*(cellWidth+spec.GapX)
		targetTop := spec.OriginY - float64(row)*(cellHeight+spec.GapY)

		bounds := item.VisibleBounds(policy)
		moves = append(moves, Move{Item: item, DX: targetLeft - bounds.Left, DY: targetTop - bounds.Top})
	}
	return moves, nil
}

// ApplyMoves performs the planned translations, skipping zero moves.
// Returns how many items actually moved.
func ApplyMoves(moves []Move) int {
	moved := 0
	for _, m := range moves {
		if m.DX != 0 || m.DY != 0 {
			m.Item.Translate(m.DX, m.DY)
			moved++
		}
	}
	return moved
}

// ArrangeGrid plans and applies a grid in one step. Returns how many
// items actually moved.
func ArrangeGrid(items []*document.Item, spec GridSpec, policy geometry.BoundsPolicy) (int, error) {
	moves, err := PlanGrid(items, spec, policy)
	if err != nil {
		return 0, err
	}
	return ApplyMoves(moves), nil
}

// BatchResize scales each item uniformly so its visible width matches
// targetWidth, anchored at the visible top-left corner. Items with no
// width are skipped. Returns how many items were resized.
func BatchResize(items []*document.Item, targetWidth float64, policy geometry.BoundsPolicy) (int, error) {
	if targetWidth <= 0 {
		return 0, fmt.Errorf("target width must be positive, got %g", targetWidth)
	}
	resized := 0
	for _, item := range items {
		before := item.VisibleBounds(policy)
		if before.Width() <= 0 {
			continue
		}
		item.Scale(targetWidth/before.Width(), before.Left, before.Top)
		resized++
	}
	return resized, nil
}
