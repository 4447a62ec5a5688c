// Copyright 2026 The Easel Authors
// SPDX-License-Identifier: Apache-2.0

package document

import (
	"fmt"

	"github.com/easel-foundation/easel/lib/geometry"
)

// Document is the root of the host tree.
type Document struct {
	Name string

	// Artboards are the drawing areas, in Y-up coordinates. Every
	// document has at least one; index 0 is the active artboard.
	Artboards []geometry.Rect

	layers    []*Layer
	selection []*Item
}

// New creates a document with a single artboard of the given size in
// points, its origin at (0, 0).
func New(name string, width, height float64) *Document {
	return &Document{
		Name:      name,
		Artboards: []geometry.Rect{{Left: 0, Top: height, Right: width, Bottom: 0}},
	}
}

// AddLayer appends a new top-level layer and returns it.
func (d *Document) AddLayer(name string) *Layer {
	layer := &Layer{Name: name, doc: d}
	d.layers = append(d.layers, layer)
	return layer
}

// Layers returns the top-level layers in stacking order.
func (d *Document) Layers() []*Layer {
	return append([]*Layer(nil), d.layers...)
}

// Layer returns the top-level layer with the given name. Matching is
// exact and does not descend into sublayers, mirroring the host's
// layer lookup.
func (d *Document) Layer(name string) (*Layer, error) {
	for _, layer := range d.layers {
		if layer.Name == name {
			return layer, nil
		}
	}
	return nil, fmt.Errorf("no layer named %q", name)
}

// AllItems returns every item on every layer (sublayers included) in
// collection order. When recursive is true, group children are
// included after their group.
func (d *Document) AllItems(recursive bool) []*Item {
	var items []*Item
	for _, layer := range d.layers {
		items = append(items, layer.AllItems(recursive)...)
	}
	return items
}

// Selection returns the currently selected items in selection order.
func (d *Document) Selection() []*Item {
	return append([]*Item(nil), d.selection...)
}

// Select replaces the current selection.
func (d *Document) Select(items ...*Item) {
	d.selection = append([]*Item(nil), items...)
}

// Layer is a named container of items. Layers may nest: a sublayer's
// items belong to it, not to its parent.
type Layer struct {
	Name   string
	Locked bool
	Hidden bool

	doc       *Document
	parent    *Layer
	sublayers []*Layer
	items     []*Item
}

// AddSublayer appends a nested layer and returns it.
func (l *Layer) AddSublayer(name string) *Layer {
	sub := &Layer{Name: name, doc: l.doc, parent: l}
	l.sublayers = append(l.sublayers, sub)
	return sub
}

// Sublayers returns the nested layers in stacking order.
func (l *Layer) Sublayers() []*Layer {
	return append([]*Layer(nil), l.sublayers...)
}

// Append adds an item at the front of this layer's stacking order.
func (l *Layer) Append(item *Item) *Item {
	item.layer = l
	item.parent = nil
	l.items = append(l.items, item)
	return item
}

// Items returns the layer's direct items in stacking order.
func (l *Layer) Items() []*Item {
	return append([]*Item(nil), l.items...)
}

// AllItems returns the layer's items followed by each sublayer's, in
// collection order. When recursive is true, group children follow
// their group.
func (l *Layer) AllItems(recursive bool) []*Item {
	var items []*Item
	for _, item := range l.items {
		items = append(items, item)
		if recursive {
			items = append(items, item.Descendants()...)
		}
	}
	for _, sub := range l.sublayers {
		items = append(items, sub.AllItems(recursive)...)
	}
	return items
}

// Parent returns the enclosing layer, or false for a top-level layer.
func (l *Layer) Parent() (*Layer, bool) {
	return l.parent, l.parent != nil
}

// Document returns the owning document: the typed root every upward
// walk terminates at.
func (l *Layer) Document() *Document { return l.doc }

// Path returns the /-joined layer chain from the top-level layer down
// to this one, e.g. "Layer 1/Detail".
func (l *Layer) Path() string {
	if l.parent == nil {
		return l.Name
	}
	return l.parent.Path() + "/" + l.Name
}

// indexOf returns the position of item in the layer's direct items,
// or -1.
func (l *Layer) indexOf(item *Item) int {
	for i, candidate := range l.items {
		if candidate == item {
			return i
		}
	}
	return -1
}
