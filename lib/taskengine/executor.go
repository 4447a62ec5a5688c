// Copyright 2026 The Easel Authors
// SPDX-License-Identifier: Apache-2.0

package taskengine

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/easel-foundation/easel/lib/clock"
	"github.com/easel-foundation/easel/lib/document"
	"github.com/easel-foundation/easel/lib/geometry"
	"github.com/easel-foundation/easel/lib/taskproto"
)

// CollectFunc enumerates candidate items for one already-unwrapped
// target. It must be read-only with respect to the document. A nil
// CollectFunc on a Task means the standard resolution rules (Resolve).
type CollectFunc func(doc *document.Document, target taskproto.Target) ([]*document.Item, error)

// ComputeFunc derives actions from the collected items. It must not
// mutate the document; it may append warnings or artifacts to the
// report.
type ComputeFunc[A any] func(items []*document.Item, params map[string]any, report *taskproto.Report) ([]A, error)

// ApplyFunc performs the computed actions. This is the only stage
// permitted to mutate the document. Returning an error records an
// apply failure; per-item problems should go through SafeExecute so
// the stage can continue.
type ApplyFunc[A any] func(actions []A, report *taskproto.Report) error

// Task bundles the stage callables for one task type. Compute and
// Apply may be nil: a nil Compute skips both remaining stages (pure
// collection tasks report through artifacts), a nil Apply skips only
// apply.
type Task[A any] struct {
	Collect CollectFunc
	Compute ComputeFunc[A]
	Apply   ApplyFunc[A]
}

// Config configures an Executor. Zero fields take defaults.
type Config struct {
	// Clock supplies stage timing and id timestamps. Defaults to the
	// real clock.
	Clock clock.Clock

	// Logger receives one line per completed pipeline run. If nil,
	// logging is discarded.
	Logger *slog.Logger

	// Policy selects how visible bounds are measured for spatial
	// ordering (mask bounds versus content bounds for clipping
	// groups).
	Policy geometry.BoundsPolicy

	// HistorySize bounds the in-memory ring of recent task outcomes.
	// Zero means DefaultHistorySize.
	HistorySize int
}

// Executor runs task pipelines. It is safe for concurrent use: all
// mutable state lives in the per-run report and the internally locked
// history ring. The document handed to Run is not protected here; the
// scripting host is single-threaded and provides that guarantee.
type Executor struct {
	clock   clock.Clock
	logger  *slog.Logger
	policy  geometry.BoundsPolicy
	minter  *Minter
	history *History
}

// New creates an Executor.
func New(cfg Config) *Executor {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Executor{
		clock:   clk,
		logger:  logger,
		policy:  cfg.Policy,
		minter:  NewMinter(clk),
		history: NewHistory(cfg.HistorySize),
	}
}

// History exposes the ring of recent task outcomes.
func (exec *Executor) History() *History { return exec.history }

// Policy returns the bounds policy the executor measures with.
func (exec *Executor) Policy() geometry.BoundsPolicy { return exec.policy }

// Run executes one payload through validate, document binding,
// collect, compute, and apply. It always returns a report; it never
// panics because of a failing stage callable. Timing is recorded for
// stages that ran and left zero for stages that did not; validation
// and document-binding failures return with all timings zero.
func Run[A any](exec *Executor, doc *document.Document, payload *taskproto.Payload, task Task[A]) *taskproto.Report {
	report := &taskproto.Report{OK: true}
	opts := payload.Options.Normalized()
	defer exec.record(payload.Task, report)

	if !exec.validate(payload, opts, report) {
		return report
	}

	if doc == nil {
		report.AddError(taskproto.StageCollect, taskproto.CodeNoDocument, "no active document")
		return report
	}

	start := exec.clock.Now()

	items, ok := exec.collect(doc, payload, task.Collect, opts, report)
	if !ok {
		report.Timing.TotalMS = exec.millisSince(start)
		return report
	}
	report.Stats.ItemsProcessed = len(items)
	if opts.Trace {
		report.Tracef("collect: %d items", len(items))
	}
	if len(items) == 0 {
		report.AddWarning(taskproto.StageCollect, "no items matched the target")
		report.Timing.TotalMS = exec.millisSince(start)
		return report
	}

	if task.Compute == nil {
		report.Timing.TotalMS = exec.millisSince(start)
		return report
	}
	computeStart := exec.clock.Now()
	actions, err := catch(func() ([]A, error) {
		return task.Compute(items, payload.Params, report)
	})
	report.Timing.ComputeMS = exec.millisSince(computeStart)
	if err != nil {
		report.AddError(taskproto.StageCompute, taskproto.CodeComputeFailed, err.Error())
		report.Timing.TotalMS = exec.millisSince(start)
		return report
	}
	if opts.Trace {
		report.Tracef("compute: %d actions", len(actions))
	}

	switch {
	case task.Apply == nil:
	case opts.DryRun:
		report.AddWarning(taskproto.StageApply, "dry run: apply skipped")
	default:
		applyStart := exec.clock.Now()
		_, err = catch(func() (struct{}, error) {
			return struct{}{}, task.Apply(actions, report)
		})
		report.Timing.ApplyMS = exec.millisSince(applyStart)
		if err != nil {
			report.AddError(taskproto.StageApply, taskproto.CodeApplyFailed, err.Error())
		} else if opts.Trace {
			report.Tracef("apply: done")
		}
	}

	report.Timing.TotalMS = exec.millisSince(start)
	return report
}

// RunWithRetry executes the pipeline under the payload's retry policy.
// The pipeline is re-invoked while the report is not ok, an error sits
// on a retryable stage with a retryable code, and attempts remain.
// Apply is honored as a retryable stage only when the caller declared
// idempotency "safe"; otherwise it is stripped from the set. Without a
// retry policy this is exactly Run.
func RunWithRetry[A any](exec *Executor, doc *document.Document, payload *taskproto.Payload, task Task[A]) *taskproto.Report {
	opts := payload.Options.Normalized()
	if opts.Retry == nil {
		return Run(exec, doc, payload, task)
	}
	policy := opts.Retry.Normalized()
	stages := effectiveRetryStages(policy, opts.Idempotency)
	applyStripped := containsStage(policy.RetryableStages, taskproto.StageApply) &&
		!containsStage(stages, taskproto.StageApply)

	var report *taskproto.Report
	attempts := 0
	retried := []taskproto.Stage{}
	for {
		attempts++
		report = Run(exec, doc, payload, task)
		if report.OK || attempts >= policy.MaxAttempts {
			break
		}
		trigger := retryTrigger(report, stages, policy.RetryOnCodes)
		if len(trigger) == 0 {
			break
		}
		for _, stage := range trigger {
			if !containsStage(retried, stage) {
				retried = append(retried, stage)
			}
		}
		exec.logger.Info("retrying task",
			"task", payload.Task,
			"attempt", attempts+1,
			"max_attempts", policy.MaxAttempts,
			"stages", trigger)
	}

	if applyStripped {
		report.AddWarning(taskproto.StageApply,
			`apply excluded from retryable stages: idempotency is not "safe"`)
	}
	report.Retry = &taskproto.RetryInfo{
		Attempts:      attempts,
		Succeeded:     report.OK,
		RetriedStages: retried,
		Idempotency:   opts.Idempotency,
	}
	return report
}

func effectiveRetryStages(policy taskproto.RetryPolicy, idempotency taskproto.Idempotency) []taskproto.Stage {
	out := make([]taskproto.Stage, 0, len(policy.RetryableStages))
	for _, stage := range policy.RetryableStages {
		if stage == taskproto.StageApply && idempotency != taskproto.IdempotencySafe {
			continue
		}
		out = append(out, stage)
	}
	return out
}

// retryTrigger returns the stages whose errors justify another
// attempt: on a retryable stage and carrying a retryable code.
func retryTrigger(report *taskproto.Report, stages []taskproto.Stage, codes []taskproto.ErrorCode) []taskproto.Stage {
	var out []taskproto.Stage
	for _, e := range report.Errors {
		if !containsStage(stages, e.Stage) {
			continue
		}
		if !containsCode(codes, e.Code) {
			continue
		}
		if !containsStage(out, e.Stage) {
			out = append(out, e.Stage)
		}
	}
	return out
}

func containsStage(stages []taskproto.Stage, stage taskproto.Stage) bool {
	for _, s := range stages {
		if s == stage {
			return true
		}
	}
	return false
}

func containsCode(codes []taskproto.ErrorCode, code taskproto.ErrorCode) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}

// validate checks payload shape. It reports at most one error: the
// first problem found, in field order.
func (exec *Executor) validate(payload *taskproto.Payload, opts taskproto.Options, report *taskproto.Report) bool {
	if strings.TrimSpace(payload.Task) == "" {
		report.AddError(taskproto.StageValidate, taskproto.CodeInvalidPayload, "task name is required")
		return false
	}
	if !taskproto.VersionSupported(payload.Version) {
		report.AddError(taskproto.StageValidate, taskproto.CodeSchemaMismatch,
			fmt.Sprintf("unsupported protocol version %q (this executor speaks major version 2)", payload.Version))
		return false
	}
	if payload.Targets != nil {
		if msg := payload.Targets.DecodeError(); msg != "" {
			report.AddError(taskproto.StageValidate, taskproto.CodeInvalidTargets, msg)
			return false
		}
		if code, msg := taskproto.ValidateTarget(payload.Targets.Target); code != "" {
			report.AddError(taskproto.StageValidate, code, msg)
			return false
		}
		if payload.Targets.OrderBy != "" && !payload.Targets.OrderBy.Valid() {
			report.AddError(taskproto.StageValidate, taskproto.CodeInvalidParam,
				fmt.Sprintf("unknown orderBy %q", payload.Targets.OrderBy))
			return false
		}
	}
	if !opts.IDPolicy.Valid() {
		report.AddError(taskproto.StageValidate, taskproto.CodeInvalidParam,
			fmt.Sprintf("unknown idPolicy %q", opts.IDPolicy))
		return false
	}
	if !opts.Idempotency.Valid() {
		report.AddError(taskproto.StageValidate, taskproto.CodeInvalidParam,
			fmt.Sprintf("unknown idempotency %q", opts.Idempotency))
		return false
	}
	if opts.Timeout < 1 || opts.Timeout > 300 {
		report.AddError(taskproto.StageValidate, taskproto.CodeInvalidParam,
			fmt.Sprintf("timeout %d is outside 1..300 seconds", opts.Timeout))
		return false
	}
	return true
}

// collect resolves the target, applies the global exclusion filter and
// ordering exactly once, and assigns stable ids when requested.
func (exec *Executor) collect(doc *document.Document, payload *taskproto.Payload, collectFn CollectFunc, opts taskproto.Options, report *taskproto.Report) ([]*document.Item, bool) {
	var selector taskproto.TargetSelector
	if payload.Targets != nil {
		selector = *payload.Targets
	}
	if collectFn == nil {
		collectFn = Resolve
	}

	start := exec.clock.Now()
	items, err := catch(func() ([]*document.Item, error) {
		return collectFn(doc, selector.Target)
	})
	if err != nil {
		report.Timing.CollectMS = exec.millisSince(start)
		report.AddError(taskproto.StageCollect, taskproto.CodeCollectFailed, err.Error())
		return nil, false
	}

	items = ExcludeItems(items, selector.Exclude)
	SortItems(items, selector.OrderBy, exec.policy)

	if opts.IDPolicy != taskproto.IDNone {
		for _, assignment := range AssignIDs(items, opts.IDPolicy, exec.minter) {
			if assignment.Conflict {
				ref := BuildRef(assignment.Item)
				report.Warnings = append(report.Warnings, taskproto.TaskWarning{
					Stage:   taskproto.StageCollect,
					Message: fmt.Sprintf("id conflict: assigned %s over an existing id", assignment.ID),
					ItemRef: &ref,
				})
			}
		}
	}

	report.Timing.CollectMS = exec.millisSince(start)
	return items, true
}

// SafeExecute runs one per-item operation during compute or apply. A
// returned error or a panic is recorded as an item-scoped failure with
// the item's reference, itemsSkipped is incremented, and the caller
// should continue with the next item. Reports true when the operation
// succeeded.
func SafeExecute(report *taskproto.Report, stage taskproto.Stage, item *document.Item, fn func() error) bool {
	_, err := catch(func() (struct{}, error) {
		return struct{}{}, fn()
	})
	if err != nil {
		ref := BuildRef(item)
		report.AddItemError(stage, taskproto.CodeItemFailed, err.Error(), &ref)
		report.Stats.ItemsSkipped++
		return false
	}
	return true
}

// catch converts a panic in a stage callable into an ordinary error so
// a broken task implementation cannot take down the host loop.
func catch[T any](fn func() (T, error)) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

func (exec *Executor) millisSince(start time.Time) float64 {
	return float64(exec.clock.Now().Sub(start)) / float64(time.Millisecond)
}

func (exec *Executor) record(task string, report *taskproto.Report) {
	exec.history.Record(task, report, exec.clock.Now())
	if report.OK {
		exec.logger.Debug("task completed",
			"task", task,
			"processed", report.Stats.ItemsProcessed,
			"modified", report.Stats.ItemsModified,
			"total_ms", report.Timing.TotalMS)
		return
	}
	code := taskproto.ErrorCode("")
	if len(report.Errors) > 0 {
		code = report.Errors[0].Code
	}
	exec.logger.Warn("task failed",
		"task", task,
		"code", code,
		"errors", len(report.Errors),
		"total_ms", report.Timing.TotalMS)
}
