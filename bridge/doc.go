// Copyright 2026 The Easel Authors
// SPDX-License-Identifier: Apache-2.0

// Package bridge connects the tool loop to the Illustrator panel over a
// loopback WebSocket and correlates each outgoing script with its
// eventual response.
//
// The panel dials in; the bridge listens. Only one panel connection is
// live at a time — a new connection replaces the old one (the panel
// reloads freely during development), and every request stranded on the
// replaced connection is rejected with a DISCONNECTED error. Outbound
// frames carry a monotonically increasing correlation id; inbound
// frames resolve the matching pending request. A response for an id
// nobody is waiting on (typically arriving after the per-call deadline
// already fired) is dropped with a logged protocol error.
//
// [Bridge] is the single entry point. Start binds the listener; Stop
// rejects all in-flight requests and tears the transport down; Wait
// blocks until the serve loop exits. ExecuteScript is the one
// round-trip primitive every tool builds on: it fails fast when no
// panel is attached, and otherwise blocks until a response, the
// per-call deadline, context cancellation, or shutdown, whichever comes
// first. Failures surface as [*Error] with a machine-readable
// [ErrorKind] so callers classify without parsing messages.
package bridge
