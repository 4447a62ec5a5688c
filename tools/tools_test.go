// Copyright 2026 The Easel Authors
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/easel-foundation/easel/bridge"
	"github.com/easel-foundation/easel/lib/scriptlib"
	"github.com/easel-foundation/easel/mcp"
)

// fakeBroker records the last call and returns a canned response.
type fakeBroker struct {
	lastScript  string
	lastCommand *bridge.Command
	lastOpts    bridge.CallOptions
	response    *bridge.Response
	err         error
	connected   bool
	calls       int
}

func (f *fakeBroker) ExecuteScript(_ context.Context, script string, command *bridge.Command, opts bridge.CallOptions) (*bridge.Response, error) {
	f.calls++
	f.lastScript = script
	f.lastCommand = command
	f.lastOpts = opts
	if f.err != nil {
		return nil, f.err
	}
	if f.response != nil {
		return f.response, nil
	}
	return &bridge.Response{ID: 1, Result: json.RawMessage(`"ok"`)}, nil
}

func (f *fakeBroker) Connected() bool       { return f.connected }
func (f *fakeBroker) PendingCount() int     { return 0 }
func (f *fakeBroker) Uptime() time.Duration { return 90 * time.Second }

func newDeps(t *testing.T, broker *fakeBroker) Deps {
	t.Helper()
	resolver, err := scriptlib.NewEmbedded()
	if err != nil {
		t.Fatalf("NewEmbedded: %v", err)
	}
	return Deps{Broker: broker, Resolver: resolver}
}

// findTool pulls one tool out of the catalog by name.
func findTool(t *testing.T, deps Deps, name string) mcp.Tool {
	t.Helper()
	for _, tool := range Catalog(deps) {
		if tool.Name == name {
			return tool
		}
	}
	t.Fatalf("tool %q not in catalog", name)
	return mcp.Tool{}
}

func run(t *testing.T, tool mcp.Tool, args string) (string, error) {
	t.Helper()
	return tool.Run(context.Background(), json.RawMessage(args))
}

// reportResponse wraps a task report in the envelope shape the panel
// produces: a string holding serialized JSON.
func reportResponse(t *testing.T, report map[string]any) *bridge.Response {
	t.Helper()
	inner, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("marshal report: %v", err)
	}
	outer, err := json.Marshal(string(inner))
	if err != nil {
		t.Fatalf("marshal outer: %v", err)
	}
	return &bridge.Response{ID: 1, Result: outer, DurationMS: 42}
}

func okReport() map[string]any {
	return map[string]any{
		"ok":       true,
		"stats":    map[string]any{"itemsProcessed": 3, "itemsModified": 3, "itemsSkipped": 0},
		"timing":   map[string]any{"collect_ms": 1, "compute_ms": 2, "apply_ms": 3, "total_ms": 6},
		"warnings": []any{},
		"errors":   []any{},
	}
}

func TestCatalogNamesAreUnique(t *testing.T) {
	deps := newDeps(t, &fakeBroker{})
	seen := map[string]bool{}
	for _, tool := range Catalog(deps) {
		if seen[tool.Name] {
			t.Errorf("duplicate tool name %q", tool.Name)
		}
		seen[tool.Name] = true
		if tool.InputSchema == nil {
			t.Errorf("tool %q has no input schema", tool.Name)
		}
		if tool.Annotations == nil {
			t.Errorf("tool %q has no annotations", tool.Name)
		}
	}
	if len(seen) != 8 {
		t.Errorf("catalog has %d tools, want 8", len(seen))
	}
}

func TestExecuteScriptInjectsLibraries(t *testing.T) {
	broker := &fakeBroker{connected: true}
	deps := newDeps(t, broker)
	tool := findTool(t, deps, "execute_script")

	out, err := run(t, tool, `{"script":"var b = getVisibleBounds(app.activeDocument.pageItems[0]);","includes":["geometry"]}`)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out != "ok" {
		t.Errorf("output = %q, want ok", out)
	}
	if !strings.Contains(broker.lastScript, "function getVisibleBounds") {
		t.Error("geometry library not injected into script")
	}
	if !strings.Contains(broker.lastScript, scriptlib.UserScriptSeparator) {
		t.Error("user script separator missing")
	}
	if !strings.Contains(broker.lastScript, "var b = getVisibleBounds") {
		t.Error("user script missing from assembled code")
	}
}

func TestExecuteScriptRequiresScript(t *testing.T) {
	deps := newDeps(t, &fakeBroker{})
	tool := findTool(t, deps, "execute_script")

	_, err := run(t, tool, `{"script":"  "}`)
	var toolErr *mcp.ToolError
	if !errors.As(err, &toolErr) || toolErr.Category != mcp.CategoryValidation {
		t.Fatalf("err = %v, want validation ToolError", err)
	}
}

func TestExecuteScriptUnknownLibrary(t *testing.T) {
	deps := newDeps(t, &fakeBroker{})
	tool := findTool(t, deps, "execute_script")

	_, err := run(t, tool, `{"script":"1+1;","includes":["nope"]}`)
	var toolErr *mcp.ToolError
	if !errors.As(err, &toolErr) || toolErr.Category != mcp.CategoryNotFound {
		t.Fatalf("err = %v, want not_found ToolError", err)
	}
}

func TestExecuteScriptTimeoutOption(t *testing.T) {
	broker := &fakeBroker{}
	deps := newDeps(t, broker)
	tool := findTool(t, deps, "execute_script")

	if _, err := run(t, tool, `{"script":"1;","timeout":120}`); err != nil {
		t.Fatalf("run: %v", err)
	}
	if broker.lastOpts.Timeout != 120*time.Second {
		t.Errorf("timeout = %v, want 120s", broker.lastOpts.Timeout)
	}
}

func TestExecuteScriptCommandPreviewFromDescription(t *testing.T) {
	broker := &fakeBroker{}
	deps := newDeps(t, broker)
	tool := findTool(t, deps, "execute_script")

	if _, err := run(t, tool, `{"script":"1;","description":"draw a red square"}`); err != nil {
		t.Fatalf("run: %v", err)
	}
	if broker.lastCommand.Type != "draw a red square" {
		t.Errorf("command type = %q", broker.lastCommand.Type)
	}
	if broker.lastCommand.Tool != "execute_script" {
		t.Errorf("command tool = %q", broker.lastCommand.Tool)
	}
}

func TestExecuteScriptBridgeErrorPropagates(t *testing.T) {
	broker := &fakeBroker{err: &bridge.Error{Kind: bridge.KindTimeout, Err: errors.New("no response")}}
	deps := newDeps(t, broker)
	tool := findTool(t, deps, "execute_script")

	_, err := run(t, tool, `{"script":"1;"}`)
	var bridgeErr *bridge.Error
	if !errors.As(err, &bridgeErr) || bridgeErr.Kind != bridge.KindTimeout {
		t.Fatalf("err = %v, want bridge timeout", err)
	}
}

func TestExecuteTaskAssemblesExecutorScript(t *testing.T) {
	broker := &fakeBroker{response: nil}
	broker.response = reportResponse(t, okReport())
	deps := newDeps(t, broker)
	tool := findTool(t, deps, "execute_task")

	out, err := run(t, tool, `{
		"payload": {"task": "align.left", "targets": {"type": "selection"}},
		"compute_fn": "return [];",
		"apply_fn": "return;"
	}`)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	script := broker.lastScript
	for _, want := range []string{
		"function compute(items, params, report) {",
		"function apply(actions, report) {",
		"executeTask(payload, collectTargets, compute, apply);",
		"JSON.stringify(report);",
		"var ErrorCodes",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("assembled script missing %q", want)
		}
	}
	if broker.lastCommand.Type != "task:align.left" {
		t.Errorf("command type = %q, want task:align.left", broker.lastCommand.Type)
	}
	if broker.lastCommand.Params["task"] != "align.left" {
		t.Errorf("command params missing task payload: %v", broker.lastCommand.Params)
	}
	if !strings.Contains(out, "✓ Task: align.left") {
		t.Errorf("output missing summary header:\n%s", out)
	}
	if !strings.Contains(out, "Raw report:") {
		t.Errorf("output missing raw report block:\n%s", out)
	}
}

func TestExecuteTaskTimeoutFromPayloadOptions(t *testing.T) {
	broker := &fakeBroker{response: nil}
	broker.response = reportResponse(t, okReport())
	deps := newDeps(t, broker)
	tool := findTool(t, deps, "execute_task")

	if _, err := run(t, tool, `{
		"payload": {"task": "t", "options": {"timeout": 90}},
		"compute_fn": "return [];",
		"apply_fn": "return;"
	}`); err != nil {
		t.Fatalf("run: %v", err)
	}
	if broker.lastOpts.Timeout != 90*time.Second {
		t.Errorf("timeout = %v, want 90s", broker.lastOpts.Timeout)
	}
}

func TestExecuteTaskRequiresTaskName(t *testing.T) {
	deps := newDeps(t, &fakeBroker{})
	tool := findTool(t, deps, "execute_task")

	_, err := run(t, tool, `{"payload": {}, "compute_fn": "x", "apply_fn": "y"}`)
	var toolErr *mcp.ToolError
	if !errors.As(err, &toolErr) || toolErr.Category != mcp.CategoryValidation {
		t.Fatalf("err = %v, want validation ToolError", err)
	}
}

func TestExecuteTaskRendersFailureReport(t *testing.T) {
	report := okReport()
	report["ok"] = false
	report["errors"] = []any{map[string]any{
		"stage":   "collect",
		"code":    "V001",
		"message": "no document is open",
	}}
	broker := &fakeBroker{response: reportResponse(t, report)}
	deps := newDeps(t, broker)
	tool := findTool(t, deps, "execute_task")

	out, err := run(t, tool, `{"payload": {"task": "t"}, "compute_fn": "x", "apply_fn": "y"}`)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, "✗ Task: t") {
		t.Errorf("failure summary missing:\n%s", out)
	}
	if !strings.Contains(out, "[collect V001] no document is open") {
		t.Errorf("error line missing:\n%s", out)
	}
}

func TestQueryItemsBuildsDryRunPayload(t *testing.T) {
	report := okReport()
	report["artifacts"] = map[string]any{"items": []any{}}
	broker := &fakeBroker{response: reportResponse(t, report)}
	deps := newDeps(t, broker)
	tool := findTool(t, deps, "query_items")

	if _, err := run(t, tool, `{"targets": {"type": "query", "itemType": "PathItem"}}`); err != nil {
		t.Fatalf("run: %v", err)
	}
	if broker.lastCommand.Type != "task:query.items" {
		t.Errorf("command type = %q", broker.lastCommand.Type)
	}
	options, _ := broker.lastCommand.Params["options"].(map[string]any)
	if options["dryRun"] != true {
		t.Errorf("payload options = %v, want dryRun true", options)
	}
	if !strings.Contains(broker.lastScript, "report.artifacts.items") {
		t.Error("compute body does not store artifacts")
	}
}

func TestQueryItemsIsReadOnly(t *testing.T) {
	deps := newDeps(t, &fakeBroker{})
	tool := findTool(t, deps, "query_items")
	if tool.Annotations.ReadOnlyHint == nil || !*tool.Annotations.ReadOnlyHint {
		t.Error("query_items must carry a read-only hint")
	}
}

func TestArrangeGridValidatesColumns(t *testing.T) {
	deps := newDeps(t, &fakeBroker{})
	tool := findTool(t, deps, "arrange_grid")

	_, err := run(t, tool, `{"columns": 0}`)
	var toolErr *mcp.ToolError
	if !errors.As(err, &toolErr) || toolErr.Category != mcp.CategoryValidation {
		t.Fatalf("err = %v, want validation ToolError", err)
	}
}

func TestArrangeGridConvertsMillimeterGap(t *testing.T) {
	broker := &fakeBroker{response: reportResponse(t, okReport())}
	deps := newDeps(t, broker)
	tool := findTool(t, deps, "arrange_grid")

	if _, err := run(t, tool, `{"columns": 3, "gap_mm": 10}`); err != nil {
		t.Fatalf("run: %v", err)
	}
	params, _ := broker.lastCommand.Params["params"].(map[string]any)
	gap, _ := params["gapX"].(float64)
	if gap < 28.34 || gap > 28.35 {
		t.Errorf("gapX = %v, want 10mm in points (~28.346)", gap)
	}
	if !strings.Contains(broker.lastScript, "sortItemsForGrid") {
		t.Error("layout library not injected")
	}
}

func TestArrangeGridDefaultOriginComesFromItems(t *testing.T) {
	broker := &fakeBroker{response: reportResponse(t, okReport())}
	deps := newDeps(t, broker)
	tool := findTool(t, deps, "arrange_grid")

	if _, err := run(t, tool, `{"columns": 2}`); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(broker.lastScript, "params.originX === undefined") {
		t.Error("item-derived origin prelude missing when origin not given")
	}

	if _, err := run(t, tool, `{"columns": 2, "origin_x": 40, "origin_y": 500}`); err != nil {
		t.Fatalf("run: %v", err)
	}
	if strings.Contains(broker.lastScript, "params.originX === undefined") {
		t.Error("prelude present despite explicit origin")
	}
	params, _ := broker.lastCommand.Params["params"].(map[string]any)
	if params["originX"] != 40.0 {
		t.Errorf("originX = %v, want 40", params["originX"])
	}
}

func TestFitToSlotsValidatesPreset(t *testing.T) {
	deps := newDeps(t, &fakeBroker{})
	tool := findTool(t, deps, "fit_to_slots")

	_, err := run(t, tool, `{"preset": "9x9"}`)
	var toolErr *mcp.ToolError
	if !errors.As(err, &toolErr) || toolErr.Category != mcp.CategoryValidation {
		t.Fatalf("err = %v, want validation ToolError", err)
	}
	if !strings.Contains(err.Error(), "9x9") {
		t.Errorf("error does not name the preset: %v", err)
	}
}

func TestFitToSlotsDefaultsToContain(t *testing.T) {
	broker := &fakeBroker{response: reportResponse(t, okReport())}
	deps := newDeps(t, broker)
	tool := findTool(t, deps, "fit_to_slots")

	if _, err := run(t, tool, `{"preset": "2x2"}`); err != nil {
		t.Fatalf("run: %v", err)
	}
	params, _ := broker.lastCommand.Params["params"].(map[string]any)
	if params["mode"] != "contain" {
		t.Errorf("mode = %v, want contain", params["mode"])
	}
	if broker.lastCommand.Type != "task:layout.fitToSlots" {
		t.Errorf("command type = %q", broker.lastCommand.Type)
	}
	if !strings.Contains(broker.lastScript, "function slotGeometry") {
		t.Error("presets library not injected")
	}
}

func TestStatusDisconnectedSkipsProbe(t *testing.T) {
	broker := &fakeBroker{connected: false}
	deps := newDeps(t, broker)
	tool := findTool(t, deps, "status")

	out, err := run(t, tool, `{}`)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, "panel: disconnected") {
		t.Errorf("output missing disconnected state:\n%s", out)
	}
	if broker.calls != 0 {
		t.Errorf("probe executed %d times while disconnected, want 0", broker.calls)
	}
}

func TestStatusConnectedRunsProbe(t *testing.T) {
	probe := map[string]any{"pong": true, "documents": 1, "activeDocument": "poster.ai"}
	inner, _ := json.Marshal(probe)
	outer, _ := json.Marshal(string(inner))
	broker := &fakeBroker{connected: true, response: &bridge.Response{ID: 1, Result: outer}}
	deps := newDeps(t, broker)
	tool := findTool(t, deps, "status")

	out, err := run(t, tool, `{}`)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, "panel: connected") {
		t.Errorf("output missing connected state:\n%s", out)
	}
	if !strings.Contains(out, "poster.ai") {
		t.Errorf("output missing probe result:\n%s", out)
	}
	if broker.lastOpts.Timeout != 5*time.Second {
		t.Errorf("probe timeout = %v, want 5s", broker.lastOpts.Timeout)
	}
}

func TestStatusProbeFailureIsStatusNotError(t *testing.T) {
	broker := &fakeBroker{
		connected: true,
		err:       &bridge.Error{Kind: bridge.KindTimeout, Err: errors.New("no response within 5s")},
	}
	deps := newDeps(t, broker)
	tool := findTool(t, deps, "status")

	out, err := run(t, tool, `{}`)
	if err != nil {
		t.Fatalf("probe failure must not fail the tool: %v", err)
	}
	if !strings.Contains(out, "probe: failed (TIMEOUT)") {
		t.Errorf("output missing probe failure:\n%s", out)
	}
}

func TestScriptingReferenceNeedsNoBroker(t *testing.T) {
	broker := &fakeBroker{}
	deps := newDeps(t, broker)
	tool := findTool(t, deps, "scripting_reference")

	out, err := run(t, tool, `{}`)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, "Y grows upward") {
		t.Errorf("reference missing coordinate system section")
	}
	if broker.calls != 0 {
		t.Errorf("reference made %d broker calls, want 0", broker.calls)
	}
}

func TestListLibrariesRendersManifest(t *testing.T) {
	broker := &fakeBroker{}
	deps := newDeps(t, broker)
	tool := findTool(t, deps, "list_libraries")

	out, err := run(t, tool, `{}`)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, name := range []string{"geometry", "layout", "presets", "task_executor", "units"} {
		if !strings.Contains(out, name) {
			t.Errorf("output missing library %q", name)
		}
	}
	if !strings.Contains(out, "getVisibleBounds") {
		t.Error("output missing exports column")
	}
	if broker.calls != 0 {
		t.Errorf("list_libraries made %d broker calls, want 0", broker.calls)
	}
}

func TestCommandPreview(t *testing.T) {
	cases := []struct {
		description string
		script      string
		want        string
	}{
		{"move items", "x;", "move items"},
		{"", "// comment\nvar doc = app.activeDocument;", "script: var doc = app.activeDocument;..."},
		{"", "\n\n", "script"},
		{strings.Repeat("d", 60), "x;", strings.Repeat("d", 50)},
	}
	for _, tc := range cases {
		if got := commandPreview(tc.description, tc.script); got != tc.want {
			t.Errorf("commandPreview(%q, %q) = %q, want %q", tc.description, tc.script, got, tc.want)
		}
	}
}
