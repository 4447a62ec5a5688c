// Copyright 2026 The Easel Authors
// SPDX-License-Identifier: Apache-2.0

package taskproto

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Payload is a complete task invocation.
type Payload struct {
	// Task names the operation, e.g. "query.items" or "layout.grid".
	Task string `json:"task"`

	// Version is the protocol version; empty defaults to Version.
	// Any major-version-2 value is accepted by the executor.
	Version string `json:"version,omitempty"`

	// Targets selects the items to operate on; nil means the current
	// selection.
	Targets *TargetSelector `json:"targets,omitempty"`

	// Params carries free-form task parameters.
	Params map[string]any `json:"params,omitempty"`

	// Options carries execution switches.
	Options Options `json:"options"`
}

// DecodePayload parses a JSON task payload. Structural target problems
// do not fail decoding — they are recorded on the selector for the
// validate stage to classify.
func DecodePayload(data []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decoding task payload: %w", err)
	}
	return &p, nil
}

// DecodePayloadValue converts an already-decoded JSON value (as found
// in an envelope's command.params) into a Payload.
func DecodePayloadValue(value any) (*Payload, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("re-encoding task payload: %w", err)
	}
	return DecodePayload(data)
}

// VersionSupported reports whether the payload's protocol version has
// major version 2. An empty version is supported (it defaults).
func VersionSupported(version string) bool {
	if version == "" {
		return true
	}
	major, _, _ := strings.Cut(version, ".")
	return major == "2"
}
