// Copyright 2026 The Easel Authors
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/easel-foundation/easel/bridge"
	"github.com/easel-foundation/easel/lib/taskproto"
	"github.com/easel-foundation/easel/mcp"
)

func executeScriptTool(deps Deps) mcp.Tool {
	return mcp.Tool{
		Name:  "execute_script",
		Title: "Execute ExtendScript",
		Description: "Execute raw ExtendScript code in Illustrator. The primary tool " +
			"for freeform operations; use scripting_reference for syntax help. " +
			"Coordinates are in points with Y growing upward. Optional includes " +
			"inject standard libraries (see list_libraries) ahead of the script.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"script": map[string]any{
					"type":        "string",
					"description": "ExtendScript code to execute",
				},
				"description": map[string]any{
					"type":        "string",
					"description": "Short human-readable label shown in the panel log",
				},
				"includes": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Library names to inject, e.g. [\"geometry\", \"layout\"]",
				},
				"timeout": map[string]any{
					"type":        "integer",
					"description": "Per-call deadline in seconds (default 30)",
				},
			},
			"required": []string{"script"},
		},
		Annotations: mutating(),
		Run: func(ctx context.Context, arguments json.RawMessage) (string, error) {
			var args struct {
				Script      string   `json:"script"`
				Description string   `json:"description"`
				Includes    []string `json:"includes"`
				Timeout     int      `json:"timeout"`
			}
			if err := json.Unmarshal(arguments, &args); err != nil {
				return "", mcp.Validation("invalid arguments: %v", err)
			}
			if strings.TrimSpace(args.Script) == "" {
				return "", mcp.Validation("script is required")
			}

			script, err := deps.Resolver.Inject(args.Script, args.Includes)
			if err != nil {
				return "", mcp.NotFound("resolving libraries: %v", err)
			}

			command := &bridge.Command{
				Type: commandPreview(args.Description, args.Script),
				Tool: "execute_script",
			}
			response, err := deps.Broker.ExecuteScript(ctx, script, command, callOptions(args.Timeout))
			if err != nil {
				return "", err
			}
			return renderResult(response)
		},
	}
}

func executeTaskTool(deps Deps) mcp.Tool {
	return mcp.Tool{
		Name:  "execute_task",
		Title: "Execute Structured Task",
		Description: "Run a Task Protocol pipeline (validate, collect, compute, apply) " +
			"with declarative target selection, structured reports, dryRun and " +
			"trace modes. compute_fn and apply_fn are ExtendScript bodies: " +
			"compute receives (items, params, report) and returns an actions " +
			"array; apply receives (actions, report).",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"payload": map[string]any{
					"type":        "object",
					"description": "Task payload: {task, targets?, params?, options?}",
				},
				"compute_fn": map[string]any{
					"type":        "string",
					"description": "ExtendScript body of the compute stage",
				},
				"apply_fn": map[string]any{
					"type":        "string",
					"description": "ExtendScript body of the apply stage",
				},
				"collect_fn": map[string]any{
					"type":        "string",
					"description": "Collector function name (default collectTargets)",
				},
				"includes": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Extra libraries beyond task_executor",
				},
			},
			"required": []string{"payload", "compute_fn", "apply_fn"},
		},
		Annotations: mutating(),
		Run: func(ctx context.Context, arguments json.RawMessage) (string, error) {
			var args struct {
				Payload   json.RawMessage `json:"payload"`
				ComputeFn string          `json:"compute_fn"`
				ApplyFn   string          `json:"apply_fn"`
				CollectFn string          `json:"collect_fn"`
				Includes  []string        `json:"includes"`
			}
			if err := json.Unmarshal(arguments, &args); err != nil {
				return "", mcp.Validation("invalid arguments: %v", err)
			}
			payload, err := taskproto.DecodePayload(args.Payload)
			if err != nil {
				return "", mcp.Validation("%v", err)
			}
			if strings.TrimSpace(payload.Task) == "" {
				return "", mcp.Validation("payload.task is required")
			}
			if strings.TrimSpace(args.ComputeFn) == "" || strings.TrimSpace(args.ApplyFn) == "" {
				return "", mcp.Validation("compute_fn and apply_fn are required")
			}

			return runTask(ctx, deps, taskCall{
				payload:   payload,
				collectFn: args.CollectFn,
				computeFn: args.ComputeFn,
				applyFn:   args.ApplyFn,
				includes:  args.Includes,
				tool:      "execute_task",
			})
		},
	}
}

// taskCall is one assembled Task Protocol invocation.
type taskCall struct {
	payload   *taskproto.Payload
	collectFn string
	computeFn string
	applyFn   string
	includes  []string
	tool      string

	// timeoutSeconds overrides the broker deadline; zero derives it
	// from the payload options.
	timeoutSeconds int
}

// runTask assembles the executor script, makes the one broker call,
// and renders the returned report.
func runTask(ctx context.Context, deps Deps, call taskCall) (string, error) {
	script, err := buildTaskScript(call)
	if err != nil {
		return "", err
	}
	includes := append([]string{"task_executor"}, call.includes...)
	script, err = deps.Resolver.Inject(script, includes)
	if err != nil {
		return "", mcp.NotFound("resolving libraries: %v", err)
	}

	params := map[string]any{}
	if data, err := json.Marshal(call.payload); err == nil {
		// The full payload rides in the command so task-aware panels
		// can run it natively instead of evaluating the script text.
		json.Unmarshal(data, &params)
	}
	command := &bridge.Command{
		Type:   "task:" + call.payload.Task,
		Tool:   call.tool,
		Params: params,
	}

	timeout := call.timeoutSeconds
	if timeout <= 0 {
		timeout = call.payload.Options.Normalized().Timeout
	}
	deps.logger().Debug("executing task", "task", call.payload.Task, "tool", call.tool)

	response, err := deps.Broker.ExecuteScript(ctx, script, command, callOptions(timeout))
	if err != nil {
		return "", err
	}
	return renderTaskReport(call.payload.Task, response)
}

// buildTaskScript wraps the stage bodies and the payload into one
// executor invocation that evaluates to the serialized report.
func buildTaskScript(call taskCall) (string, error) {
	payloadJSON, err := json.Marshal(call.payload)
	if err != nil {
		return "", mcp.Validation("encoding payload: %v", err)
	}
	collectFn := call.collectFn
	if collectFn == "" {
		collectFn = "collectTargets"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "function compute(items, params, report) {\n%s\n}\n\n", call.computeFn)
	fmt.Fprintf(&b, "function apply(actions, report) {\n%s\n}\n\n", call.applyFn)
	fmt.Fprintf(&b, "var payload = %s;\n", payloadJSON)
	fmt.Fprintf(&b, "var report = executeTask(payload, %s, compute, apply);\n", collectFn)
	b.WriteString("JSON.stringify(report);\n")
	return b.String(), nil
}

// renderTaskReport parses the envelope result as a task report and
// renders the summary block above the raw JSON. An unparseable result
// is returned as-is so nothing is lost.
func renderTaskReport(taskName string, response *bridge.Response) (string, error) {
	if response.Error != "" {
		return "", mcp.Internal("script error: %s", response.Error)
	}
	value, err := response.DecodeResult()
	if err != nil {
		return "", mcp.Internal("decoding task report: %v", err)
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprintf("%v", value), nil
	}
	var report taskproto.Report
	if err := json.Unmarshal(raw, &report); err != nil {
		return string(raw), nil
	}

	pretty, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		pretty = raw
	}
	return report.Summary(taskName) + "\n\nRaw report:\n" + string(pretty), nil
}
