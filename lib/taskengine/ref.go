// Copyright 2026 The Easel Authors
// SPDX-License-Identifier: Apache-2.0

package taskengine

import (
	"github.com/easel-foundation/easel/lib/document"
	"github.com/easel-foundation/easel/lib/taskproto"
)

// BuildRef assembles the external reference for one item: its volatile
// structural locator, its stable identity (if any), and its parsed
// tags.
func BuildRef(item *document.Item) taskproto.ItemRef {
	ref := taskproto.ItemRef{
		Locator: taskproto.Locator{
			IndexPath: item.IndexPath(),
		},
		Identity: taskproto.Identity{IDSource: taskproto.SourceNone},
		ItemType: string(item.Kind),
		ItemName: item.Name,
	}
	if layer := item.OwningLayer(); layer != nil {
		ref.Locator.LayerPath = layer.Path()
	}
	if id, source := ReadID(item); id != "" {
		ref.Identity = taskproto.Identity{ItemID: id, IDSource: source}
	}
	if tags := ParseTags(item); len(tags) > 0 {
		ref.Tags = tags
	}
	return ref
}
