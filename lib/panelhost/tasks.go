// Copyright 2026 The Easel Authors
// SPDX-License-Identifier: Apache-2.0

package panelhost

import (
	"encoding/json"
	"fmt"

	"github.com/easel-foundation/easel/lib/asset"
	"github.com/easel-foundation/easel/lib/document"
	"github.com/easel-foundation/easel/lib/geometry"
	"github.com/easel-foundation/easel/lib/layout"
	"github.com/easel-foundation/easel/lib/preset"
	"github.com/easel-foundation/easel/lib/taskengine"
	"github.com/easel-foundation/easel/lib/taskproto"
)

// runTask dispatches a payload to the builtin task set. Tasks the mock
// does not implement natively still run through the pipeline as pure
// collection (validate, collect, report), so selector and id-policy
// behavior stays observable.
func (h *Host) runTask(payload *taskproto.Payload) *taskproto.Report {
	doc := h.Document()
	switch payload.Task {
	case "query.items":
		return taskengine.RunWithRetry(h.executor, doc, payload, h.queryItemsTask())
	case "layout.grid":
		return taskengine.RunWithRetry(h.executor, doc, payload, h.gridTask())
	case "layout.fitToSlots":
		return taskengine.RunWithRetry(h.executor, doc, payload, h.fitToSlotsTask())
	default:
		return taskengine.RunWithRetry(h.executor, doc, payload, taskengine.Task[struct{}]{})
	}
}

// queryEntry is one reported item of query.items.
type queryEntry struct {
	ItemRef     taskproto.ItemRef  `json:"itemRef"`
	Name        string             `json:"name"`
	Type        string             `json:"type"`
	Bounds      map[string]float64 `json:"bounds"`
	Width       float64            `json:"width"`
	Height      float64            `json:"height"`
	Orientation asset.Orientation  `json:"orientation"`
}

func (h *Host) queryItemsTask() taskengine.Task[queryEntry] {
	return taskengine.Task[queryEntry]{
		Compute: func(items []*document.Item, _ map[string]any, report *taskproto.Report) ([]queryEntry, error) {
			entries := make([]queryEntry, 0, len(items))
			for _, item := range items {
				bounds := item.VisibleBounds(h.policy)
				entries = append(entries, queryEntry{
					ItemRef: taskengine.BuildRef(item),
					Name:    item.DisplayName(),
					Type:    string(item.Kind),
					Bounds: map[string]float64{
						"left": bounds.Left, "top": bounds.Top,
						"right": bounds.Right, "bottom": bounds.Bottom,
					},
					Width:       bounds.Width(),
					Height:      bounds.Height(),
					Orientation: asset.Classify(bounds.Width(), bounds.Height()).Orientation,
				})
			}
			report.Artifacts = map[string]any{"items": entries}
			return entries, nil
		},
	}
}

func (h *Host) gridTask() taskengine.Task[layout.Move] {
	return taskengine.Task[layout.Move]{
		Compute: func(items []*document.Item, params map[string]any, report *taskproto.Report) ([]layout.Move, error) {
			columns := int(floatParam(params, "columns", 1))
			spec := layout.GridSpec{
				Columns: columns,
				GapX:    floatParam(params, "gapX", 10),
				GapY:    floatParam(params, "gapY", 10),
			}

			originX, haveX := lookupFloat(params, "originX")
			originY, haveY := lookupFloat(params, "originY")
			if haveX && haveY {
				spec.OriginX, spec.OriginY = originX, originY
			} else {
				// Anchor at the bounding corner of the set itself.
				for i, item := range items {
					bounds := item.VisibleBounds(h.policy)
					if i == 0 || bounds.Left < spec.OriginX {
						spec.OriginX = bounds.Left
					}
					if i == 0 || bounds.Top > spec.OriginY {
						spec.OriginY = bounds.Top
					}
				}
			}

			return layout.PlanGrid(items, spec, h.policy)
		},
		Apply: func(moves []layout.Move, report *taskproto.Report) error {
			report.Stats.ItemsModified += layout.ApplyMoves(moves)
			return nil
		},
	}
}

// slotFit is one planned preset placement.
type slotFit struct {
	item *document.Item
	slot geometry.Rect
	mode preset.FitMode
}

func (h *Host) fitToSlotsTask() taskengine.Task[slotFit] {
	return taskengine.Task[slotFit]{
		Compute: func(items []*document.Item, params map[string]any, report *taskproto.Report) ([]slotFit, error) {
			name := stringParam(params, "preset")
			mode := preset.FitMode(stringParam(params, "mode"))
			if !mode.Valid() {
				return nil, fmt.Errorf("unknown fit mode %q", mode)
			}

			doc := h.Document()
			slots, err := preset.SlotGeometry(name, doc.Artboards[0])
			if err != nil {
				return nil, err
			}
			if len(items) > len(slots) {
				report.AddWarning(taskproto.StageCompute,
					fmt.Sprintf("%d item(s) beyond the last slot were left in place", len(items)-len(slots)))
			}

			fits := make([]slotFit, 0, min(len(items), len(slots)))
			for i, item := range items {
				if i >= len(slots) {
					break
				}
				slot := slots[i]
				bounds := item.VisibleBounds(h.policy)
				itemShape := asset.Classify(bounds.Width(), bounds.Height()).Orientation
				slotShape := asset.Classify(slot.Width(), slot.Height()).Orientation
				if itemShape != slotShape && itemShape != asset.Unknown {
					ref := taskengine.BuildRef(item)
					report.Warnings = append(report.Warnings, taskproto.TaskWarning{
						Stage:   taskproto.StageCompute,
						Message: fmt.Sprintf("%s item placed in a %s slot", itemShape, slotShape),
						ItemRef: &ref,
					})
				}
				fits = append(fits, slotFit{item: item, slot: slot, mode: mode})
			}
			return fits, nil
		},
		Apply: func(fits []slotFit, report *taskproto.Report) error {
			for _, fit := range fits {
				ok := taskengine.SafeExecute(report, taskproto.StageApply, fit.item, func() error {
					return preset.FitToSlot(fit.item, fit.slot, fit.mode, h.policy)
				})
				if ok {
					report.Stats.ItemsModified++
				}
			}
			return nil
		},
	}
}

func floatParam(params map[string]any, key string, fallback float64) float64 {
	if v, ok := lookupFloat(params, key); ok {
		return v
	}
	return fallback
}

func lookupFloat(params map[string]any, key string) (float64, bool) {
	switch v := params[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func stringParam(params map[string]any, key string) string {
	s, _ := params[key].(string)
	return s
}
