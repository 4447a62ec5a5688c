// Copyright 2026 The Easel Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import "fmt"

// ErrorKind classifies a bridge failure for callers. Tool code maps
// these onto its own error categories rather than parsing messages.
type ErrorKind string

const (
	// KindDisconnected means no panel is connected, or the panel
	// dropped while the request was outstanding.
	KindDisconnected ErrorKind = "DISCONNECTED"

	// KindTimeout means no response arrived within the per-call
	// deadline. The remote script is not aborted; a late response is
	// dropped as a protocol error.
	KindTimeout ErrorKind = "TIMEOUT"

	// KindTransportError means the frame could not be sent or parsed,
	// or exceeded the size limit.
	KindTransportError ErrorKind = "TRANSPORT_ERROR"

	// KindProtocolError means the peer sent a response that violates
	// the envelope contract (for example an unknown correlation id).
	KindProtocolError ErrorKind = "PROTOCOL_ERROR"
)

// Error is the typed failure surfaced by every bridge operation.
type Error struct {
	Kind    ErrorKind
	TraceID string
	Err     error
}

func (e *Error) Error() string {
	if e.TraceID != "" {
		return fmt.Sprintf("%s [%s]: %v", e.Kind, e.TraceID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

// Unwrap exposes the underlying error to errors.Is and errors.As.
func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether repeating the call might succeed without
// operator intervention: true for timeouts (the panel may just be
// busy), false otherwise.
func (e *Error) Retryable() bool { return e.Kind == KindTimeout }

func disconnectedError(traceID, format string, args ...any) *Error {
	return &Error{Kind: KindDisconnected, TraceID: traceID, Err: fmt.Errorf(format, args...)}
}

func timeoutError(traceID, format string, args ...any) *Error {
	return &Error{Kind: KindTimeout, TraceID: traceID, Err: fmt.Errorf(format, args...)}
}

func transportError(traceID, format string, args ...any) *Error {
	return &Error{Kind: KindTransportError, TraceID: traceID, Err: fmt.Errorf(format, args...)}
}
