// Copyright 2026 The Easel Authors
// SPDX-License-Identifier: Apache-2.0

package taskengine

import (
	"testing"

	"github.com/easel-foundation/easel/lib/document"
	"github.com/easel-foundation/easel/lib/geometry"
	"github.com/easel-foundation/easel/lib/taskproto"
)

// queryDocument builds a two-layer document with mixed item kinds:
//
//	Background: bg_rect (path), caption (text)
//	Content:    logo_a (path), logo_b (path), group{nested_rect}
func queryDocument() *document.Document {
	doc := document.New("query.ai", 800, 600)

	background := doc.AddLayer("Background")
	background.Append(document.NewItem(document.KindPath, "bg_rect", geometry.Rect{Left: 0, Top: 600, Right: 800, Bottom: 0}))
	background.Append(document.NewItem(document.KindText, "caption", geometry.Rect{Left: 10, Top: 50, Right: 200, Bottom: 30}))

	content := doc.AddLayer("Content")
	content.Append(document.NewItem(document.KindPath, "logo_a", geometry.Rect{Left: 10, Top: 500, Right: 110, Bottom: 400}))
	content.Append(document.NewItem(document.KindPath, "logo_b", geometry.Rect{Left: 150, Top: 500, Right: 250, Bottom: 400}))
	nested := document.NewItem(document.KindPath, "nested_rect", geometry.Rect{Left: 300, Top: 500, Right: 400, Bottom: 400})
	content.Append(document.NewGroup("wrapper", nested))
	return doc
}

func names(items []*document.Item) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Name
	}
	return out
}

func TestResolveTargetKinds(t *testing.T) {
	doc := queryDocument()

	cases := []struct {
		name   string
		target taskproto.Target
		want   []string
	}{
		{
			name:   "all top-level",
			target: taskproto.AllTarget{},
			want:   []string{"bg_rect", "caption", "logo_a", "logo_b", "wrapper"},
		},
		{
			name:   "all recursive",
			target: taskproto.AllTarget{Recursive: true},
			want:   []string{"bg_rect", "caption", "logo_a", "logo_b", "wrapper", "nested_rect"},
		},
		{
			name:   "layer",
			target: taskproto.LayerTarget{Layer: "Background"},
			want:   []string{"bg_rect", "caption"},
		},
		{
			name:   "query by type",
			target: taskproto.QueryTarget{ItemType: string(document.KindText)},
			want:   []string{"caption"},
		},
		{
			name:   "query by glob pattern",
			target: taskproto.QueryTarget{Pattern: "logo_*"},
			want:   []string{"logo_a", "logo_b"},
		},
		{
			name:   "query single-character wildcard",
			target: taskproto.QueryTarget{Pattern: "logo_?"},
			want:   []string{"logo_a", "logo_b"},
		},
		{
			name:   "query scoped to layer, recursive",
			target: taskproto.QueryTarget{ItemType: string(document.KindPath), Layer: "Content", Recursive: true},
			want:   []string{"logo_a", "logo_b", "nested_rect"},
		},
		{
			name: "compound union",
			target: taskproto.CompoundTarget{AnyOf: []taskproto.Target{
				taskproto.QueryTarget{Pattern: "caption"},
				taskproto.QueryTarget{Pattern: "logo_a"},
			}},
			want: []string{"caption", "logo_a"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			items, err := Resolve(doc, tc.target)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			got := names(items)
			if len(got) != len(tc.want) {
				t.Fatalf("resolved %v, want %v", got, tc.want)
			}
			for i := range tc.want {
				if got[i] != tc.want[i] {
					t.Fatalf("resolved %v, want %v", got, tc.want)
				}
			}
		})
	}
}

func TestResolveSelection(t *testing.T) {
	doc := queryDocument()
	layer, _ := doc.Layer("Content")
	picked := layer.Items()[0]
	doc.Select(picked)

	for _, target := range []taskproto.Target{nil, taskproto.SelectionTarget{}} {
		items, err := Resolve(doc, target)
		if err != nil {
			t.Fatalf("Resolve(%T): %v", target, err)
		}
		if len(items) != 1 || items[0] != picked {
			t.Errorf("Resolve(%T) = %v", target, names(items))
		}
	}
}

func TestResolveUnknownLayerFails(t *testing.T) {
	doc := queryDocument()
	if _, err := Resolve(doc, taskproto.LayerTarget{Layer: "Nope"}); err == nil {
		t.Error("resolving a missing layer succeeded")
	}
	if _, err := Resolve(doc, taskproto.QueryTarget{Layer: "Nope"}); err == nil {
		t.Error("querying a missing layer succeeded")
	}
}

func TestCompoundExcludeRunsBeforeGlobalFilter(t *testing.T) {
	doc := document.New("compound.ai", 400, 400)
	layer := doc.AddLayer("L1")
	visible := layer.Append(document.NewItem(document.KindPath, "visible", geometry.Rect{Left: 0, Top: 10, Right: 10, Bottom: 0}))
	hidden := layer.Append(document.NewItem(document.KindPath, "hidden", geometry.Rect{Left: 20, Top: 10, Right: 30, Bottom: 0}))
	hidden.Hidden = true

	items, err := Resolve(doc, taskproto.CompoundTarget{
		AnyOf:   []taskproto.Target{taskproto.AllTarget{}},
		Exclude: &taskproto.ExcludeFilter{Hidden: true},
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(items) != 1 || items[0] != visible {
		t.Errorf("resolved %v, want [visible]", names(items))
	}
}

func TestExcludeItemsFilters(t *testing.T) {
	plain := document.NewItem(document.KindPath, "plain", geometry.Rect{Left: 0, Top: 10, Right: 10, Bottom: 0})
	locked := document.NewItem(document.KindPath, "locked", geometry.Rect{Left: 0, Top: 10, Right: 10, Bottom: 0})
	locked.Locked = true
	guide := document.NewItem(document.KindPath, "guide", geometry.Rect{Left: 0, Top: 10, Right: 10, Bottom: 0})
	guide.Guide = true

	mask := document.NewItem(document.KindPath, "mask", geometry.Rect{Left: 0, Top: 10, Right: 10, Bottom: 0})
	mask.ClippingMask = true
	inside := document.NewItem(document.KindPath, "inside", geometry.Rect{Left: 2, Top: 8, Right: 8, Bottom: 2})
	clipGroup := document.NewGroup("clip", mask, inside)
	clipGroup.Clipped = true

	all := []*document.Item{plain, locked, guide, inside}

	if got := ExcludeItems(all, nil); len(got) != len(all) {
		t.Errorf("nil filter dropped items: %v", names(got))
	}
	got := ExcludeItems(all, &taskproto.ExcludeFilter{Locked: true, Guides: true, Clipped: true})
	if len(got) != 1 || got[0] != plain {
		t.Errorf("filtered to %v, want [plain]", names(got))
	}
}
