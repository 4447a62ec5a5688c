// Copyright 2026 The Easel Authors
// SPDX-License-Identifier: Apache-2.0

package taskengine

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/easel-foundation/easel/lib/document"
	"github.com/easel-foundation/easel/lib/taskproto"
)

// Resolve enumerates the items a target selects, in the document's
// stacking order. Resolution is purely structural: no exclusion
// filtering and no reordering happens here. A nil target resolves the
// current selection.
func Resolve(doc *document.Document, target taskproto.Target) ([]*document.Item, error) {
	switch t := target.(type) {
	case nil:
		return doc.Selection(), nil
	case taskproto.SelectionTarget:
		return doc.Selection(), nil
	case taskproto.AllTarget:
		return doc.AllItems(t.Recursive), nil
	case taskproto.LayerTarget:
		layer, err := doc.Layer(t.Layer)
		if err != nil {
			return nil, err
		}
		return layer.AllItems(t.Recursive), nil
	case taskproto.QueryTarget:
		return resolveQuery(doc, t)
	case taskproto.CompoundTarget:
		var out []*document.Item
		for _, sub := range t.AnyOf {
			items, err := Resolve(doc, sub)
			if err != nil {
				return nil, err
			}
			out = append(out, items...)
		}
		// The compound's own exclude runs here; the selector's global
		// exclude still runs later, on the concatenated result.
		return ExcludeItems(out, t.Exclude), nil
	}
	return nil, fmt.Errorf("unresolvable target type %T", target)
}

func resolveQuery(doc *document.Document, q taskproto.QueryTarget) ([]*document.Item, error) {
	layers := doc.Layers()
	if q.Layer != "" {
		layer, err := doc.Layer(q.Layer)
		if err != nil {
			return nil, err
		}
		layers = []*document.Layer{layer}
	}

	var pattern *regexp.Regexp
	if q.Pattern != "" {
		re, err := compileGlob(q.Pattern)
		if err != nil {
			return nil, fmt.Errorf("query pattern %q: %w", q.Pattern, err)
		}
		pattern = re
	}

	var out []*document.Item
	for _, layer := range layers {
		for _, item := range layer.AllItems(q.Recursive) {
			if q.ItemType != "" && string(item.Kind) != q.ItemType {
				continue
			}
			if pattern != nil && !pattern.MatchString(item.Name) {
				continue
			}
			out = append(out, item)
		}
	}
	return out, nil
}

// compileGlob converts a name glob into an anchored regular expression:
// * matches any run of characters, ? matches exactly one, everything
// else is literal.
func compileGlob(glob string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range glob {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}

// ExcludeItems drops items matching any enabled key of the filter. A
// nil filter keeps everything. The input slice is not modified.
func ExcludeItems(items []*document.Item, filter *taskproto.ExcludeFilter) []*document.Item {
	if filter == nil {
		return items
	}
	out := make([]*document.Item, 0, len(items))
	for _, item := range items {
		if itemExcluded(item, filter) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func itemExcluded(item *document.Item, f *taskproto.ExcludeFilter) bool {
	switch {
	case f.Locked && item.Locked:
		return true
	case f.Hidden && item.Hidden:
		return true
	case f.Guides && item.Guide:
		return true
	case f.Clipped && item.HasClippedAncestor():
		return true
	}
	return false
}
