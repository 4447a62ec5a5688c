// Copyright 2026 The Easel Authors
// SPDX-License-Identifier: Apache-2.0

package taskproto

// IDPolicy governs whether the collect stage writes stable ids into
// item notes.
type IDPolicy string

const (
	// IDNone never writes ids. The default.
	IDNone IDPolicy = "none"
	// IDPreserve reports existing ids but never writes.
	IDPreserve IDPolicy = "preserve"
	// IDOptIn assigns an id only to items that have none.
	IDOptIn IDPolicy = "opt_in"
	// IDAlways assigns a fresh id to every item and flags a conflict
	// when one already existed.
	IDAlways IDPolicy = "always"
)

// Valid reports whether the policy is one of the defined values.
func (p IDPolicy) Valid() bool {
	switch p {
	case IDNone, IDPreserve, IDOptIn, IDAlways:
		return true
	}
	return false
}

// IDSource records where an item's identity was found.
type IDSource string

const (
	SourceNone IDSource = "none"
	SourceNote IDSource = "note"
	SourceName IDSource = "name"
)

// Idempotency is the caller's declaration about repeating the task.
// It gates whether the apply stage may ever be retried.
type Idempotency string

const (
	IdempotencySafe    Idempotency = "safe"
	IdempotencyUnknown Idempotency = "unknown"
	IdempotencyUnsafe  Idempotency = "unsafe"
)

// Valid reports whether the value is one of the defined declarations.
func (i Idempotency) Valid() bool {
	switch i {
	case IdempotencySafe, IdempotencyUnknown, IdempotencyUnsafe:
		return true
	}
	return false
}

// RetryPolicy configures the safe retry wrapper.
type RetryPolicy struct {
	// MaxAttempts bounds total pipeline invocations, first try
	// included. Clamped to 1..5; zero means the default of 3.
	MaxAttempts int `json:"maxAttempts,omitempty"`

	// RetryableStages lists stages whose failures permit a retry.
	// Defaults to [collect]. "apply" is honored only when the caller
	// declares idempotency "safe"; otherwise it is stripped.
	RetryableStages []Stage `json:"retryableStages,omitempty"`

	// RetryOnCodes lists error codes that trigger a retry. Defaults
	// to [R001, R002].
	RetryOnCodes []ErrorCode `json:"retryOnCodes,omitempty"`

	// RequireIdempotent refuses to retry unless the caller declared
	// idempotency "safe". Defaults to true.
	RequireIdempotent *bool `json:"requireIdempotent,omitempty"`
}

// Normalized returns a copy with defaults and clamps applied.
func (p RetryPolicy) Normalized() RetryPolicy {
	out := p
	if out.MaxAttempts == 0 {
		out.MaxAttempts = 3
	}
	if out.MaxAttempts < 1 {
		out.MaxAttempts = 1
	}
	if out.MaxAttempts > 5 {
		out.MaxAttempts = 5
	}
	if out.RetryableStages == nil {
		out.RetryableStages = []Stage{StageCollect}
	}
	if out.RetryOnCodes == nil {
		out.RetryOnCodes = []ErrorCode{CodeCollectFailed, CodeComputeFailed}
	}
	if out.RequireIdempotent == nil {
		t := true
		out.RequireIdempotent = &t
	}
	return out
}

// Options carries per-invocation execution switches.
type Options struct {
	// DryRun previews: the apply stage is skipped with a warning.
	DryRun bool `json:"dryRun,omitempty"`

	// Trace collects per-stage trace lines into the report.
	Trace bool `json:"trace,omitempty"`

	// IDPolicy controls stable id assignment during collect.
	IDPolicy IDPolicy `json:"idPolicy,omitempty"`

	// Timeout is the per-call deadline in seconds, 1..300. Zero means
	// the default of 30.
	Timeout int `json:"timeout,omitempty"`

	// Retry enables the retry wrapper; nil means no retry.
	Retry *RetryPolicy `json:"retry,omitempty"`

	// Idempotency is the caller's declaration; default "unknown".
	Idempotency Idempotency `json:"idempotency,omitempty"`
}

// Normalized returns a copy with defaults applied.
func (o Options) Normalized() Options {
	out := o
	if out.IDPolicy == "" {
		out.IDPolicy = IDNone
	}
	if out.Timeout == 0 {
		out.Timeout = 30
	}
	if out.Idempotency == "" {
		out.Idempotency = IdempotencyUnknown
	}
	return out
}
