// Copyright 2026 The Easel Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import "fmt"

// ErrorCategory classifies tool errors so MCP clients can make
// programmatic decisions (retry, fix input, escalate) without parsing
// error message text.
type ErrorCategory string

const (
	// CategoryValidation indicates the caller provided invalid input.
	// The caller should fix the input and retry.
	CategoryValidation ErrorCategory = "validation"

	// CategoryNotFound indicates a referenced resource does not exist:
	// unknown library, missing layer, unknown preset. Retrying with the
	// same parameters will not help.
	CategoryNotFound ErrorCategory = "not_found"

	// CategoryForbidden indicates the operation was rejected by the
	// host: locked items, protected layers.
	CategoryForbidden ErrorCategory = "forbidden"

	// CategoryConflict indicates the operation conflicts with existing
	// state.
	CategoryConflict ErrorCategory = "conflict"

	// CategoryTransient indicates a temporary failure: panel busy,
	// timeout, disconnect mid-call. The caller should back off and
	// retry.
	CategoryTransient ErrorCategory = "transient"

	// CategoryInternal indicates an unexpected error. The caller should
	// report it rather than retry.
	CategoryInternal ErrorCategory = "internal"
)

// ToolError is a categorized error returned by tool handlers. The
// server inspects the Category to produce structured error metadata
// alongside the human-readable text.
type ToolError struct {
	Category ErrorCategory
	Err      error
}

// Error returns the underlying message. The category is not included
// in the string; it travels separately via the errorInfo field.
func (e *ToolError) Error() string { return e.Err.Error() }

// Unwrap exposes the underlying error chain.
func (e *ToolError) Unwrap() error { return e.Err }

// Validation creates a validation error: the caller provided bad input.
func Validation(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryValidation, Err: fmt.Errorf(format, args...)}
}

// NotFound creates a not-found error: a referenced resource does not exist.
func NotFound(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryNotFound, Err: fmt.Errorf(format, args...)}
}

// Forbidden creates a forbidden error: the host rejected the operation.
func Forbidden(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryForbidden, Err: fmt.Errorf(format, args...)}
}

// Conflict creates a conflict error: the operation conflicts with existing state.
func Conflict(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryConflict, Err: fmt.Errorf(format, args...)}
}

// Transient creates a transient error: a temporary failure that may succeed on retry.
func Transient(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryTransient, Err: fmt.Errorf(format, args...)}
}

// Internal creates an internal error: an unexpected failure, bug, or I/O error.
func Internal(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryInternal, Err: fmt.Errorf(format, args...)}
}
