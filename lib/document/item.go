// Copyright 2026 The Easel Authors
// SPDX-License-Identifier: Apache-2.0

package document

import (
	"fmt"

	"github.com/easel-foundation/easel/lib/geometry"
)

// Kind is the host type name of an item.
type Kind string

const (
	KindPath     Kind = "PathItem"
	KindText     Kind = "TextFrame"
	KindGroup    Kind = "GroupItem"
	KindPlaced   Kind = "PlacedItem"
	KindRaster   Kind = "RasterItem"
	KindCompound Kind = "CompoundPathItem"
)

// Item is one node of the document tree. Leaf items carry their own
// geometric bounds; groups derive theirs from their children.
type Item struct {
	Kind   Kind
	Name   string
	Note   string
	Locked bool
	Hidden bool

	// Guide marks construction guides (excludable during collection).
	Guide bool

	// Stroked and StrokeWidth describe the outline. Visible bounds
	// extend half the stroke width past the geometric bounds on every
	// side.
	Stroked     bool
	StrokeWidth float64

	// Clipped marks a group as a clipping group: its first clipping
	// child masks the rest.
	Clipped bool

	// ClippingMask marks the path that acts as a clipping group's
	// mask.
	ClippingMask bool

	// Bounds are the geometric bounds of a leaf item. Ignored for
	// groups, whose bounds derive from children.
	Bounds geometry.Rect

	layer    *Layer
	parent   *Item
	children []*Item
}

// NewItem builds a leaf item.
func NewItem(kind Kind, name string, bounds geometry.Rect) *Item {
	return &Item{Kind: kind, Name: name, Bounds: bounds}
}

// NewGroup builds a group containing the given children, in
// back-to-front order.
func NewGroup(name string, children ...*Item) *Item {
	group := &Item{Kind: KindGroup, Name: name}
	for _, child := range children {
		group.AddChild(child)
	}
	return group
}

// AddChild appends a child at the front of the group's stacking order.
func (it *Item) AddChild(child *Item) *Item {
	child.parent = it
	child.layer = it.layer
	it.children = append(it.children, child)
	child.adoptLayer(it.layer)
	return child
}

// adoptLayer propagates layer ownership down a subtree. Append on a
// layer only sets the root item's layer, so groups attached later
// inherit here.
func (it *Item) adoptLayer(layer *Layer) {
	it.layer = layer
	for _, child := range it.children {
		child.adoptLayer(layer)
	}
}

// Children returns the direct children in stacking order.
func (it *Item) Children() []*Item {
	return append([]*Item(nil), it.children...)
}

// Descendants returns every transitive child in collection order.
func (it *Item) Descendants() []*Item {
	var all []*Item
	for _, child := range it.children {
		all = append(all, child)
		all = append(all, child.Descendants()...)
	}
	return all
}

// Parent returns the containing group, or false for an item sitting
// directly on its layer.
func (it *Item) Parent() (*Item, bool) {
	return it.parent, it.parent != nil
}

// OwningLayer returns the layer this item ultimately sits on.
func (it *Item) OwningLayer() *Layer { return it.layer }

// IsGroup reports whether the item is a group container.
func (it *Item) IsGroup() bool { return it.Kind == KindGroup }

// IsClippingGroup reports whether the item is a group with clipping
// enabled.
func (it *Item) IsClippingGroup() bool { return it.IsGroup() && it.Clipped }

// HasClippedAncestor reports whether any enclosing group is a
// clipping group. The mask path itself satisfies this (its parent is
// the clipping group); a top-level clipping group does not.
func (it *Item) HasClippedAncestor() bool {
	for parent := it.parent; parent != nil; parent = parent.parent {
		if parent.IsClippingGroup() {
			return true
		}
	}
	return false
}

// Mask returns the clipping path of a clipping group: the first child
// flagged as a mask, falling back to the backmost child.
func (it *Item) Mask() (*Item, bool) {
	if !it.IsClippingGroup() || len(it.children) == 0 {
		return nil, false
	}
	for _, child := range it.children {
		if child.ClippingMask {
			return child, true
		}
	}
	return it.children[0], true
}

// GeometricBounds returns the path bounds: for leaves the stored rect,
// for groups the union of all children's geometric bounds (mask
// included).
func (it *Item) GeometricBounds() geometry.Rect {
	if !it.IsGroup() || len(it.children) == 0 {
		return it.Bounds
	}
	bounds := it.children[0].GeometricBounds()
	for _, child := range it.children[1:] {
		bounds = bounds.Union(child.GeometricBounds())
	}
	return bounds
}

// VisibleBounds returns what the item occupies visually: geometric
// bounds grown by half the stroke width per side for stroked leaves;
// for groups the union of children's visible bounds; for clipping
// groups either the mask's geometric bounds or the content union,
// per policy.
func (it *Item) VisibleBounds(policy geometry.BoundsPolicy) geometry.Rect {
	if it.IsClippingGroup() && policy.UseMaskBoundsForClippedGroups {
		if mask, ok := it.Mask(); ok {
			return mask.GeometricBounds()
		}
	}
	if it.IsGroup() && len(it.children) > 0 {
		bounds := it.children[0].VisibleBounds(policy)
		for _, child := range it.children[1:] {
			bounds = bounds.Union(child.VisibleBounds(policy))
		}
		return bounds
	}
	if it.Stroked && it.StrokeWidth > 0 {
		return it.Bounds.Expand(it.StrokeWidth / 2)
	}
	return it.Bounds
}

// Translate shifts the item (and, for groups, every descendant) by
// (dx, dy) in Y-up coordinates.
func (it *Item) Translate(dx, dy float64) {
	if it.IsGroup() {
		for _, child := range it.children {
			child.Translate(dx, dy)
		}
		return
	}
	it.Bounds = it.Bounds.Translate(dx, dy)
}

// Scale resizes the item by factor around the anchor point (ax, ay).
// Stroke widths scale with the geometry, matching the host's "scale
// strokes" behavior, so visible bounds scale linearly.
func (it *Item) Scale(factor, ax, ay float64) {
	if it.IsGroup() {
		for _, child := range it.children {
			child.Scale(factor, ax, ay)
		}
		return
	}
	scale := func(v, anchor float64) float64 { return anchor + (v-anchor)*factor }
	it.Bounds = geometry.Rect{
		Left:   scale(it.Bounds.Left, ax),
		Top:    scale(it.Bounds.Top, ay),
		Right:  scale(it.Bounds.Right, ax),
		Bottom: scale(it.Bounds.Bottom, ay),
	}
	if it.Stroked {
		it.StrokeWidth *= factor
	}
}

// SetNote replaces the item's note. Locked items reject writes, like
// the host.
func (it *Item) SetNote(note string) error {
	if it.Locked {
		return fmt.Errorf("item %q is locked", it.DisplayName())
	}
	it.Note = note
	return nil
}

// DisplayName returns the item's name or its kind when unnamed.
func (it *Item) DisplayName() string {
	if it.Name != "" {
		return it.Name
	}
	return string(it.Kind)
}

// IndexPath returns the positional steps from the owning layer to
// this item: first the index within the layer, then the index within
// each enclosing group. Each step is found by linear scan of the
// parent's collection.
func (it *Item) IndexPath() []int {
	var reversed []int
	current := it
	for {
		parent, ok := current.Parent()
		if !ok {
			break
		}
		reversed = append(reversed, parent.indexOf(current))
		current = parent
	}
	if current.layer != nil {
		reversed = append(reversed, current.layer.indexOf(current))
	}
	// Reverse into outermost-first order.
	path := make([]int, len(reversed))
	for i, step := range reversed {
		path[len(reversed)-1-i] = step
	}
	return path
}

// indexOf returns the position of child in this group, or -1.
func (it *Item) indexOf(child *Item) int {
	for i, candidate := range it.children {
		if candidate == child {
			return i
		}
	}
	return -1
}
