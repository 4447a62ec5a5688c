// Copyright 2026 The Easel Authors
// SPDX-License-Identifier: Apache-2.0

// Package taskengine runs task payloads through the standard
// validate/collect/compute/apply pipeline and produces task reports.
//
// A task supplies up to three callables: collect enumerates candidate
// items for a target (a standard resolver covers the common target
// types), compute derives actions from the collected items without
// touching the document, and apply performs the actions. The engine
// owns everything around them: payload validation, document binding,
// target resolution, exclusion filtering, deterministic ordering,
// stable-id assignment, per-stage timing, and the retry wrapper.
//
// Apply is the only stage that may mutate the document. The engine
// never retries it unless the caller declares the task idempotency
// "safe".
package taskengine
