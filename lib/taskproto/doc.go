// Copyright 2026 The Easel Authors
// SPDX-License-Identifier: Apache-2.0

// Package taskproto defines the Task Protocol: the declarative
// payload/report contract between tool callers and the task executor.
//
// A caller builds a Payload naming a task, a TargetSelector describing
// which document items to operate on, free-form params, and Options.
// The executor answers with exactly one Report carrying ok/errors/
// warnings/stats/timing and, when retries happened, RetryInfo.
//
// The wire shape is JSON and matches protocol version 2.3.x. Target
// selectors are a tagged union on the "type" field; the legacy form (a
// bare target object instead of the {target, orderBy, exclude} wrapper)
// is still accepted on input and normalized during decoding, but only
// the wrapper form is ever emitted.
package taskproto
