// Copyright 2026 The Easel Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"encoding/json"
	"fmt"
)

// Command is the human-facing tag carried alongside a script so the
// panel can show what it is executing. For Task Protocol calls, Params
// carries the full task payload.
type Command struct {
	// Type is the display tag, e.g. "task:layout.grid" or a short
	// script description.
	Type string `json:"type"`

	// Tool names the MCP tool that originated the call.
	Tool string `json:"tool,omitempty"`

	// Params carries tool-specific context. Task calls put the whole
	// task payload here.
	Params map[string]any `json:"params,omitempty"`

	// TraceID correlates panel-side logs with server-side logs.
	TraceID string `json:"trace_id,omitempty"`
}

// Request is the outbound envelope: one JSON value per WebSocket
// frame.
type Request struct {
	ID      int64    `json:"id"`
	Script  string   `json:"script"`
	Command *Command `json:"command,omitempty"`
}

// Response is the inbound envelope. Result is either a JSON value or
// a string holding serialized JSON (ExtendScript returns strings);
// DecodeResult performs the one level of re-parsing the protocol
// allows.
type Response struct {
	ID         int64           `json:"id"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
	Command    *Command        `json:"command,omitempty"`
	DurationMS float64         `json:"duration,omitempty"`
}

// DecodeResult returns the response's result as a decoded JSON value.
// When the outer result is itself a JSON string, that string is parsed
// once more; a string that does not hold JSON is returned as-is.
func (r *Response) DecodeResult() (any, error) {
	if len(r.Result) == 0 {
		return nil, nil
	}
	var value any
	if err := json.Unmarshal(r.Result, &value); err != nil {
		return nil, fmt.Errorf("decoding result: %w", err)
	}
	text, ok := value.(string)
	if !ok {
		return value, nil
	}
	var inner any
	if err := json.Unmarshal([]byte(text), &inner); err != nil {
		// A plain string result, not nested JSON.
		return text, nil
	}
	return inner, nil
}
