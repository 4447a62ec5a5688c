// Copyright 2026 The Easel Authors
// SPDX-License-Identifier: Apache-2.0

package taskproto

// Version is the protocol version stamped on payloads built by this
// process. Any payload whose version has major "2" is accepted.
const Version = "2.3.1"

// Stage names the pipeline stage an error or warning arose in.
type Stage string

const (
	StageValidate Stage = "validate"
	StageCollect  Stage = "collect"
	StageCompute  Stage = "compute"
	StageApply    Stage = "apply"
	StageExport   Stage = "export"
)

// ErrorCode classifies a task failure. V codes fail before execution,
// R codes fail during execution, S codes are host or environment
// failures.
type ErrorCode string

const (
	// Validation errors. Never retried.
	CodeNoDocument       ErrorCode = "V001" // no active document
	CodeNoSelection      ErrorCode = "V002" // target needs a selection and none exists
	CodeInvalidPayload   ErrorCode = "V003" // payload malformed or task name missing
	CodeInvalidTargets   ErrorCode = "V004" // targets structure unusable
	CodeUnknownTarget    ErrorCode = "V005" // unrecognized target type
	CodeMissingParam     ErrorCode = "V006" // required target/param field absent
	CodeInvalidParam     ErrorCode = "V007" // option or param has an invalid value
	CodeSchemaMismatch   ErrorCode = "V008" // protocol version unsupported

	// Runtime errors.
	CodeCollectFailed ErrorCode = "R001"
	CodeComputeFailed ErrorCode = "R002"
	CodeApplyFailed   ErrorCode = "R003"
	CodeItemFailed    ErrorCode = "R004" // single-item operation failed (stage continues)
	CodeTimeout       ErrorCode = "R005"
	CodeOutOfBounds   ErrorCode = "R006"

	// System errors. Surfaced verbatim, never retried.
	CodeAppError    ErrorCode = "S001"
	CodeScriptError ErrorCode = "S002"
	CodeIOError     ErrorCode = "S003"
	CodeMemoryError ErrorCode = "S004"
)

// Retryable reports whether the code is retryable by default. R001 and
// R002 describe transient collection/computation failures; R005 is a
// timeout. Apply-side failures (R003, R004) and everything else stay
// non-retryable because the document may already be half-mutated.
func (c ErrorCode) Retryable() bool {
	switch c {
	case CodeCollectFailed, CodeComputeFailed, CodeTimeout:
		return true
	}
	return false
}

// Validation reports whether the code is a V-category error.
func (c ErrorCode) Validation() bool {
	return len(c) > 0 && c[0] == 'V'
}
