// Copyright 2026 The Easel Authors
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"encoding/json"

	"github.com/easel-foundation/easel/lib/taskproto"
	"github.com/easel-foundation/easel/mcp"
)

// queryComputeBody gathers item descriptions into both the actions
// array and report.artifacts.items — the artifact copy survives dryRun,
// where apply never runs.
const queryComputeBody = `    var actions = [];
    report.artifacts.items = [];
    for (var i = 0; i < items.length; i++) {
        var item = items[i];
        var info = getVisibleInfo(item);
        var entry = {
            itemRef: buildItemRef(item),
            name: item.name || "(unnamed)",
            type: item.typename,
            bounds: { left: info.bounds[0], top: info.bounds[1], right: info.bounds[2], bottom: info.bounds[3] },
            width: info.width,
            height: info.height
        };
        actions.push(entry);
        report.artifacts.items.push(entry);
    }
    return actions;`

func queryItemsTool(deps Deps) mcp.Tool {
	return mcp.Tool{
		Name:  "query_items",
		Title: "Query Items",
		Description: "Query document items with a declarative target selector and get " +
			"back stable item references with visible bounds. Read-only: runs " +
			"as a dry-run task. Target types: selection (default), all, layer, " +
			"query (itemType/pattern/layer), compound (anyOf).",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"targets": map[string]any{
					"type": "object",
					"description": "Target selector, e.g. {\"type\": \"query\", " +
						"\"itemType\": \"PathItem\", \"pattern\": \"rect_*\"}",
				},
				"include_trace": map[string]any{
					"type":        "boolean",
					"description": "Include the execution trace in the report",
				},
			},
		},
		Annotations: readOnly(),
		Run: func(ctx context.Context, arguments json.RawMessage) (string, error) {
			var args struct {
				Targets      json.RawMessage `json:"targets"`
				IncludeTrace bool            `json:"include_trace"`
			}
			if len(arguments) > 0 {
				if err := json.Unmarshal(arguments, &args); err != nil {
					return "", mcp.Validation("invalid arguments: %v", err)
				}
			}

			payload := &taskproto.Payload{
				Task:    "query.items",
				Version: taskproto.Version,
				Options: taskproto.Options{DryRun: true, Trace: args.IncludeTrace},
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
				computeFn: queryComputeBody,
				applyFn:   "    // dry run: results live in report.artifacts.items",
				tool:      "query_items",
			})
		},
	}
}
