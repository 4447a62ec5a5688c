// Copyright 2026 The Easel Authors
// SPDX-License-Identifier: Apache-2.0

package taskproto

import (
	"fmt"
	"strings"
)

// Locator positions an item by structure. It is volatile: any
// reordering or reparenting invalidates it.
type Locator struct {
	// LayerPath is the /-joined layer chain, e.g. "Layer 1/Detail".
	LayerPath string `json:"layerPath"`
	// IndexPath is the positional step at each container, outermost
	// first, e.g. [0, 2, 5].
	IndexPath []int `json:"indexPath"`
}

// Identity is an item's stable id, when one has been assigned.
type Identity struct {
	ItemID   string   `json:"itemId,omitempty"`
	IDSource IDSource `json:"idSource"`
}

// ItemRef describes one document item for external reporting,
// separating volatile location from stable identity from
// user-controlled tags.
type ItemRef struct {
	Locator  Locator           `json:"locator"`
	Identity Identity          `json:"identity"`
	Tags     map[string]string `json:"tags,omitempty"`

	// ItemType and ItemName are read-only metadata for debugging.
	ItemType string `json:"itemType"`
	ItemName string `json:"itemName,omitempty"`
}

// String renders the ref compactly for log lines and error text.
func (r ItemRef) String() string {
	return fmt.Sprintf("%s%v", r.Locator.LayerPath, r.Locator.IndexPath)
}

// TaskStats counts the items the pipeline touched.
type TaskStats struct {
	ItemsProcessed int `json:"itemsProcessed"`
	ItemsModified  int `json:"itemsModified"`
	ItemsSkipped   int `json:"itemsSkipped"`
}

// TimingInfo records per-stage elapsed milliseconds. Stages that did
// not run report zero. TotalMS covers the whole invocation and is
// never less than any single stage (clock granularity aside).
type TimingInfo struct {
	CollectMS float64  `json:"collect_ms"`
	ComputeMS float64  `json:"compute_ms"`
	ApplyMS   float64  `json:"apply_ms"`
	ExportMS  *float64 `json:"export_ms,omitempty"`
	TotalMS   float64  `json:"total_ms"`
}

// TaskWarning is a non-fatal observation; the pipeline continued.
type TaskWarning struct {
	Stage      Stage    `json:"stage"`
	Message    string   `json:"message"`
	ItemRef    *ItemRef `json:"itemRef,omitempty"`
	Suggestion string   `json:"suggestion,omitempty"`
}

// TaskError is a failure with full context.
type TaskError struct {
	Stage   Stage          `json:"stage"`
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	ItemRef *ItemRef       `json:"itemRef,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// RetryInfo is present on reports produced through the retry wrapper.
type RetryInfo struct {
	Attempts      int         `json:"attempts"`
	Succeeded     bool        `json:"succeeded"`
	RetriedStages []Stage     `json:"retriedStages"`
	Idempotency   Idempotency `json:"idempotency"`
}

// Report is the sole return envelope of an executor invocation.
// ok=true implies an empty error list; ok=false implies at least one
// error.
type Report struct {
	OK        bool           `json:"ok"`
	Stats     TaskStats      `json:"stats"`
	Timing    TimingInfo     `json:"timing"`
	Warnings  []TaskWarning  `json:"warnings"`
	Errors    []TaskError    `json:"errors"`
	Artifacts map[string]any `json:"artifacts,omitempty"`
	Trace     []string       `json:"trace,omitempty"`
	Retry     *RetryInfo     `json:"retryInfo,omitempty"`
}

// AddWarning appends a warning.
func (r *Report) AddWarning(stage Stage, message string) {
	r.Warnings = append(r.Warnings, TaskWarning{Stage: stage, Message: message})
}

// AddError appends an error and clears ok.
func (r *Report) AddError(stage Stage, code ErrorCode, message string) {
	r.OK = false
	r.Errors = append(r.Errors, TaskError{Stage: stage, Code: code, Message: message})
}

// AddItemError appends an item-scoped error and clears ok.
func (r *Report) AddItemError(stage Stage, code ErrorCode, message string, ref *ItemRef) {
	r.OK = false
	r.Errors = append(r.Errors, TaskError{Stage: stage, Code: code, Message: message, ItemRef: ref})
}

// Tracef appends a trace line. Callers gate on options.Trace; the
// method itself is unconditional so stage code stays linear.
func (r *Report) Tracef(format string, args ...any) {
	r.Trace = append(r.Trace, fmt.Sprintf(format, args...))
}

// HasErrorOnStage reports whether any error arose in the given stage.
func (r *Report) HasErrorOnStage(stage Stage) bool {
	for _, e := range r.Errors {
		if e.Stage == stage {
			return true
		}
	}
	return false
}

// Summary renders the report as the human-readable block every Task
// Protocol tool returns above the raw JSON.
func (r *Report) Summary(taskName string) string {
	status := "✓"
	if !r.OK {
		status = "✗"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s Task: %s\n", status, taskName)
	fmt.Fprintf(&b, "  Timing: collect=%.0fms, compute=%.0fms, apply=%.0fms\n",
		r.Timing.CollectMS, r.Timing.ComputeMS, r.Timing.ApplyMS)
	fmt.Fprintf(&b, "  Stats: %d processed, %d modified, %d skipped",
		r.Stats.ItemsProcessed, r.Stats.ItemsModified, r.Stats.ItemsSkipped)

	if len(r.Warnings) > 0 {
		fmt.Fprintf(&b, "\n  ⚠ Warnings (%d):", len(r.Warnings))
		for _, w := range r.Warnings {
			fmt.Fprintf(&b, "\n    [%s] %s", w.Stage, w.Message)
		}
	}
	if len(r.Errors) > 0 {
		fmt.Fprintf(&b, "\n  ✗ Errors (%d):", len(r.Errors))
		for _, e := range r.Errors {
			location := ""
			if e.ItemRef != nil {
				location = fmt.Sprintf(" at %s", e.ItemRef)
			}
			fmt.Fprintf(&b, "\n    [%s %s] %s%s", e.Stage, e.Code, e.Message, location)
		}
	}
	if r.Retry != nil {
		fmt.Fprintf(&b, "\n  Retry: %d attempts, retried %v", r.Retry.Attempts, r.Retry.RetriedStages)
	}
	for key, value := range r.Artifacts {
		fmt.Fprintf(&b, "\n  Artifact %s: %v", key, value)
	}
	return b.String()
}
