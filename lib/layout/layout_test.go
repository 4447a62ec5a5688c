// Copyright 2026 The Easel Authors
// SPDX-License-Identifier: Apache-2.0

package layout

import (
	"math"
	"testing"

	"github.com/easel-foundation/easel/lib/document"
	"github.com/easel-foundation/easel/lib/geometry"
)

func rect(name string, left, top, width, height float64) *document.Item {
	return document.NewItem(document.KindPath, name, geometry.Rect{
		Left: left, Top: top, Right: left + width, Bottom: top - height,
	})
}

func TestSortRowMajorBandsNearAlignedRows(t *testing.T) {
	// b sits 3 pt below a: within the 5 pt band they are one row and
	// sort left to right. c is a clear row lower.
	a := rect("a", 100, 200, 10, 10)
	b := rect("b", 0, 197, 10, 10)
	c := rect("c", 50, 100, 10, 10)

	items := []*document.Item{a, c, b}
	Sort(items, RowMajor, geometry.DefaultPolicy())

	want := []*document.Item{b, a, c}
	for i := range want {
		if items[i] != want[i] {
			t.Fatalf("order[%d] = %s, want %s", i, items[i].Name, want[i].Name)
		}
	}
}

func TestSortColumnMajor(t *testing.T) {
	topLeft := rect("topLeft", 0, 200, 10, 10)
	bottomLeft := rect("bottomLeft", 2, 100, 10, 10)
	right := rect("right", 300, 200, 10, 10)

	items := []*document.Item{right, bottomLeft, topLeft}
	Sort(items, ColumnMajor, geometry.DefaultPolicy())

	want := []*document.Item{topLeft, bottomLeft, right}
	for i := range want {
		if items[i] != want[i] {
			t.Fatalf("order[%d] = %s, want %s", i, items[i].Name, want[i].Name)
		}
	}
}

func TestArrangeGridPlacesByVisibleBounds(t *testing.T) {
	// Three 100-wide rects into one row with an 8.5 pt gap starting at
	// x=40: lefts land at 40, 148.5, 257.
	items := []*document.Item{
		rect("one", 0, 500, 100, 50),
		rect("two", 10, 480, 100, 50),
		rect("three", 20, 460, 100, 50),
	}

	moved, err := ArrangeGrid(items, GridSpec{
		Columns: 3,
		GapX:    8.5,
		GapY:    8.5,
		OriginX: 40,
		OriginY: 500,
	}, geometry.DefaultPolicy())
	if err != nil {
		t.Fatalf("ArrangeGrid: %v", err)
	}
	if moved != 3 {
		t.Errorf("moved = %d, want 3", moved)
	}

	wantLefts := []float64{40, 148.5, 257}
	for i, item := range items {
		bounds := item.VisibleBounds(geometry.DefaultPolicy())
		if math.Abs(bounds.Left-wantLefts[i]) > 1e-9 {
			t.Errorf("%s left = %g, want %g", item.Name, bounds.Left, wantLefts[i])
		}
		if bounds.Top != 500 {
			t.Errorf("%s top = %g, want 500", item.Name, bounds.Top)
		}
	}
}

func TestArrangeGridUsesStrokeExpandedCell(t *testing.T) {
	plain := rect("plain", 0, 100, 50, 50)
	stroked := rect("stroked", 200, 100, 50, 50)
	stroked.Stroked = true
	stroked.StrokeWidth = 10 // visible width 60

	_, err := ArrangeGrid([]*document.Item{plain, stroked}, GridSpec{
		Columns: 2,
		GapX:    10,
		OriginX: 0,
		OriginY: 100,
	}, geometry.DefaultPolicy())
	if err != nil {
		t.Fatalf("ArrangeGrid: %v", err)
	}

	// Cell width is the stroked item's visible 60: the second column
	// starts at 60 + 10.
	bounds := stroked.VisibleBounds(geometry.DefaultPolicy())
	if math.Abs(bounds.Left-70) > 1e-9 {
		t.Errorf("stroked left = %g, want 70", bounds.Left)
	}
}

func TestArrangeGridWrapsRows(t *testing.T) {
	items := []*document.Item{
		rect("a", 0, 300, 50, 50),
		rect("b", 60, 300, 50, 50),
		rect("c", 120, 300, 50, 50),
	}

	if _, err := ArrangeGrid(items, GridSpec{
		Columns: 2,
		GapX:    10,
		GapY:    20,
		OriginX: 0,
		OriginY: 300,
	}, geometry.DefaultPolicy()); err != nil {
		t.Fatalf("ArrangeGrid: %v", err)
	}

	bounds := items[2].VisibleBounds(geometry.DefaultPolicy())
	if bounds.Left != 0 {
		t.Errorf("wrapped item left = %g, want 0", bounds.Left)
	}
	if want := 300.0 - (50 + 20); bounds.Top != want {
		t.Errorf("wrapped item top = %g, want %g", bounds.Top, want)
	}
}

func TestArrangeGridIsIdempotent(t *testing.T) {
	items := []*document.Item{
		rect("a", 7, 123, 40, 30),
		rect("b", 90, 119, 40, 30),
	}
	spec := GridSpec{Columns: 2, GapX: 12, OriginX: 0, OriginY: 200}

	if _, err := ArrangeGrid(items, spec, geometry.DefaultPolicy()); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	moved, err := ArrangeGrid(items, spec, geometry.DefaultPolicy())
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if moved != 0 {
		t.Errorf("second pass moved %d items, want 0", moved)
	}
}

func TestArrangeGridRejectsZeroColumns(t *testing.T) {
	if _, err := ArrangeGrid(nil, GridSpec{Columns: 0}, geometry.DefaultPolicy()); err == nil {
		t.Error("zero columns accepted")
	}
}

func TestBatchResizeAnchorsTopLeft(t *testing.T) {
	item := rect("art", 30, 200, 50, 80)

	resized, err := BatchResize([]*document.Item{item}, 100, geometry.DefaultPolicy())
	if err != nil {
		t.Fatalf("BatchResize: %v", err)
	}
	if resized != 1 {
		t.Errorf("resized = %d, want 1", resized)
	}

	bounds := item.VisibleBounds(geometry.DefaultPolicy())
	if bounds.Left != 30 || bounds.Top != 200 {
		t.Errorf("anchor moved: left=%g top=%g", bounds.Left, bounds.Top)
	}
	if math.Abs(bounds.Width()-100) > 1e-9 {
		t.Errorf("width = %g, want 100", bounds.Width())
	}
	if math.Abs(bounds.Height()-160) > 1e-9 {
		t.Errorf("height = %g, want 160 (uniform scale)", bounds.Height())
	}
}
