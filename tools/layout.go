// Copyright 2026 The Easel Authors
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/easel-foundation/easel/lib/geometry"
	"github.com/easel-foundation/easel/lib/preset"
	"github.com/easel-foundation/easel/lib/taskproto"
	"github.com/easel-foundation/easel/mcp"
)

// arrangeGridComputeBody positions the sorted items into a uniform
// grid. Cell size is the max visible extent across all items, so
// clipped groups and stroked paths get the room they render with.
const arrangeGridComputeBody = `    var sorted = sortItemsForGrid(items);
    var cellW = 0, cellH = 0;
    for (var i = 0; i < sorted.length; i++) {
        var info = getVisibleInfo(sorted[i]);
        if (info.width > cellW) cellW = info.width;
        if (info.height > cellH) cellH = info.height;
    }
    var actions = [];
    for (var j = 0; j < sorted.length; j++) {
        var row = Math.floor(j / params.columns);
        var col = j % params.columns;
        var left = params.originX + col * (cellW + params.gapX);
        var top = params.originY - row * (cellH + params.gapY);
        var b = getVisibleBounds(sorted[j]);
        actions.push({ item: sorted[j], dx: left - b[0], dy: top - b[1] });
    }
    return actions;`

const arrangeGridApplyBody = `    for (var i = 0; i < actions.length; i++) {
        var a = actions[i];
        if (a.dx !== 0 || a.dy !== 0) {
            a.item.translate(a.dx, a.dy);
            report.stats.itemsModified++;
        }
    }`

func arrangeGridTool(deps Deps) mcp.Tool {
	return mcp.Tool{
		Name:  "arrange_grid",
		Title: "Arrange Items in Grid",
		Description: "Arrange the targeted items into a uniform grid by their visible " +
			"bounds. Items sort into reading order (left to right within 5pt " +
			"row bands) before placement, so reruns are stable. Gaps and " +
			"origin accept points, or millimeters via the _mm variants.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"columns": map[string]any{
					"type":        "integer",
					"description": "Number of grid columns (required, >= 1)",
				},
				"gap": map[string]any{
					"type":        "number",
					"description": "Gap between cells in points (default 10)",
				},
				"gap_mm": map[string]any{
					"type":        "number",
					"description": "Gap between cells in millimeters (overrides gap)",
				},
				"origin_x": map[string]any{
					"type":        "number",
					"description": "Left edge of the first cell in points (default: leftmost item)",
				},
				"origin_y": map[string]any{
					"type":        "number",
					"description": "Top edge of the first cell in points (default: topmost item)",
				},
				"targets": map[string]any{
					"type":        "object",
					"description": "Target selector (default: current selection)",
				},
				"dry_run": map[string]any{
					"type":        "boolean",
					"description": "Plan the moves without touching the document",
				},
			},
			"required": []string{"columns"},
		},
		Annotations: mutating(),
		Run: func(ctx context.Context, arguments json.RawMessage) (string, error) {
			var args struct {
				Columns int             `json:"columns"`
				Gap     *float64        `json:"gap"`
				GapMM   *float64        `json:"gap_mm"`
				OriginX *float64        `json:"origin_x"`
				OriginY *float64        `json:"origin_y"`
				Targets json.RawMessage `json:"targets"`
				DryRun  bool            `json:"dry_run"`
			}
			if err := json.Unmarshal(arguments, &args); err != nil {
				return "", mcp.Validation("invalid arguments: %v", err)
			}
			if args.Columns < 1 {
				return "", mcp.Validation("columns must be at least 1, got %d", args.Columns)
			}

			gap := 10.0
			if args.Gap != nil {
				gap = *args.Gap
			}
			if args.GapMM != nil {
				gap = geometry.MMToPoints(*args.GapMM)
			}
			if gap < 0 {
				return "", mcp.Validation("gap must not be negative")
			}

			params := map[string]any{
				"columns": args.Columns,
				"gapX":    gap,
				"gapY":    gap,
			}
			payload := &taskproto.Payload{
				Task:    "layout.grid",
				Version: taskproto.Version,
				Params:  params,
				Options: taskproto.Options{DryRun: args.DryRun},
			}
			if len(args.Targets) > 0 {
				var selector taskproto.TargetSelector
				if err := json.Unmarshal(args.Targets, &selector); err != nil {
					return "", mcp.Validation("invalid target selector: %v", err)
				}
				payload.Targets = &selector
			}

			compute := arrangeGridComputeBody
			if args.OriginX != nil && args.OriginY != nil {
				params["originX"] = *args.OriginX
				params["originY"] = *args.OriginY
			} else {
				// Without an explicit origin the grid anchors at the
				// bounding corner of the items themselves.
				compute = originFromItemsPrelude + compute
			}

			return runTask(ctx, deps, taskCall{
				payload:   payload,
				computeFn: compute,
				applyFn:   arrangeGridApplyBody,
				includes:  []string{"layout"},
				tool:      "arrange_grid",
			})
		},
	}
}

// originFromItemsPrelude derives the grid origin from the collected
// items when the caller gave none: leftmost visible left, topmost
// visible top.
const originFromItemsPrelude = `    if (params.originX === undefined || params.originY === undefined) {
        var ox = null, oy = null;
        for (var p = 0; p < items.length; p++) {
            var pb = getVisibleBounds(items[p]);
            if (ox === null || pb[0] < ox) ox = pb[0];
            if (oy === null || pb[1] > oy) oy = pb[1];
        }
        params.originX = ox || 0;
        params.originY = oy || 0;
    }
`

// fitToSlotsComputeBody pairs items with preset slots on the active
// artboard, in collection order. Leftover items get a warning, not an
// error.
const fitToSlotsComputeBody = `    var doc = app.activeDocument;
    var artboard = doc.artboards[doc.artboards.getActiveArtboardIndex()];
    var slots = slotGeometry(params.preset, artboard);
    if (items.length > slots.length) {
        reportWarning(report, "compute", (items.length - slots.length) + " item(s) beyond the last slot were left in place");
    }
    var actions = [];
    var count = items.length < slots.length ? items.length : slots.length;
    for (var i = 0; i < count; i++) {
        actions.push({ item: items[i], slot: slots[i] });
    }
    return actions;`

const fitToSlotsApplyBody = `    for (var i = 0; i < actions.length; i++) {
        if (fitToSlot(actions[i].item, actions[i].slot, params.mode)) {
            report.stats.itemsModified++;
        }
    }`

func fitToSlotsTool(deps Deps) mcp.Tool {
	return mcp.Tool{
		Name:  "fit_to_slots",
		Title: "Fit Items to Preset Slots",
		Description: "Scale and center the targeted items into the slots of a named " +
			"grid preset on the active artboard. Presets: " +
			strings.Join(preset.Names(), ", ") + ". Modes: contain " +
			"(default, whole item visible) and cover (slot fully covered).",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"preset": map[string]any{
					"type":        "string",
					"description": "Preset name, e.g. \"2x2\"",
					"enum":        preset.Names(),
				},
				"mode": map[string]any{
					"type":        "string",
					"description": "Fit mode: contain or cover (default contain)",
					"enum":        []string{"contain", "cover"},
				},
				"targets": map[string]any{
					"type":        "object",
					"description": "Target selector (default: current selection)",
				},
				"dry_run": map[string]any{
					"type":        "boolean",
					"description": "Plan the fits without touching the document",
				},
			},
			"required": []string{"preset"},
		},
		Annotations: mutating(),
		Run: func(ctx context.Context, arguments json.RawMessage) (string, error) {
			var args struct {
				Preset  string          `json:"preset"`
				Mode    string          `json:"mode"`
				Targets json.RawMessage `json:"targets"`
				DryRun  bool            `json:"dry_run"`
			}
			if err := json.Unmarshal(arguments, &args); err != nil {
				return "", mcp.Validation("invalid arguments: %v", err)
			}
			if _, ok := preset.Grids[args.Preset]; !ok {
				return "", mcp.Validation("unknown preset %q (have: %s)", args.Preset, strings.Join(preset.Names(), ", "))
			}
			mode := preset.FitMode(args.Mode)
			if !mode.Valid() {
				return "", mcp.Validation("unknown fit mode %q (contain or cover)", args.Mode)
			}
			if mode == "" {
				mode = preset.FitContain
			}

			payload := &taskproto.Payload{
				Task:    "layout.fitToSlots",
				Version: taskproto.Version,
				Params: map[string]any{
					"preset": args.Preset,
					"mode":   string(mode),
				},
				Options: taskproto.Options{DryRun: args.DryRun},
			}
			if len(args.Targets) > 0 {
				var selector taskproto.TargetSelector
				if err := json.Unmarshal(args.Targets, &selector); err != nil {
					return "", mcp.Validation("invalid target selector: %v", err)
				}
				payload.Targets = &selector
			}

			return runTask(ctx, deps, taskCall{
				payload:   payload,
				computeFn: fitToSlotsComputeBody,
				applyFn:   fitToSlotsApplyBody,
				includes:  []string{"presets"},
				tool:      "fit_to_slots",
			})
		},
	}
}
