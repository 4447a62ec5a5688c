// Copyright 2026 The Easel Authors
// SPDX-License-Identifier: Apache-2.0

package taskengine

import (
	"math"
	"sort"

	"github.com/easel-foundation/easel/lib/document"
	"github.com/easel-foundation/easel/lib/geometry"
	"github.com/easel-foundation/easel/lib/taskproto"
)

// spatialBucket is the band size, in points, used by the reading and
// column orderings. Items whose leading edge falls within the same
// band count as the same row (or column), so small alignment jitter
// does not flip their order.
const spatialBucket = 10.0

// SortItems reorders items in place according to the given mode. All
// modes are stable with respect to the incoming (stacking) order, so
// repeated runs over an unchanged document produce identical
// sequences. Spatial modes measure visible bounds under the given
// policy.
func SortItems(items []*document.Item, by taskproto.OrderBy, policy geometry.BoundsPolicy) {
	switch by {
	case "", taskproto.OrderZOrder:
		return
	case taskproto.OrderZOrderReverse:
		for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
			items[i], items[j] = items[j], items[i]
		}
		return
	case taskproto.OrderName:
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].Name < items[j].Name
		})
		return
	}

	// The remaining modes are spatial. Bounds are computed once per
	// item, not per comparison: visible bounds walk group subtrees.
	bounds := make([]geometry.Rect, len(items))
	for i, item := range items {
		bounds[i] = item.VisibleBounds(policy)
	}
	index := make(map[*document.Item]int, len(items))
	for i, item := range items {
		index[item] = i
	}
	rect := func(item *document.Item) geometry.Rect { return bounds[index[item]] }

	switch by {
	case taskproto.OrderReading:
		sort.SliceStable(items, func(i, j int) bool {
			a, b := rect(items[i]), rect(items[j])
			rowA, rowB := band(a.Top), band(b.Top)
			if rowA != rowB {
				return rowA > rowB // visual top first
			}
			return a.Left < b.Left
		})
	case taskproto.OrderColumn:
		sort.SliceStable(items, func(i, j int) bool {
			a, b := rect(items[i]), rect(items[j])
			colA, colB := band(a.Left), band(b.Left)
			if colA != colB {
				return colA < colB
			}
			return a.Top > b.Top
		})
	case taskproto.OrderPositionX:
		sort.SliceStable(items, func(i, j int) bool {
			return rect(items[i]).Left < rect(items[j]).Left
		})
	case taskproto.OrderPositionY:
		sort.SliceStable(items, func(i, j int) bool {
			return rect(items[i]).Top > rect(items[j]).Top
		})
	case taskproto.OrderArea:
		sort.SliceStable(items, func(i, j int) bool {
			return rect(items[i]).Area() < rect(items[j]).Area()
		})
	}
}

func band(v float64) int {
	return int(math.Floor(v / spatialBucket))
}
