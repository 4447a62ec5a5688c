// Copyright 2026 The Easel Authors
// SPDX-License-Identifier: Apache-2.0

// Package tools defines the easel tool catalog: the MCP tools an
// assistant calls to drive Illustrator through the bridge.
//
// Every document-touching tool makes exactly one broker call. The
// tools are thin glue: script assembly delegates to the library
// resolver, task semantics live in the injected task executor, and
// report rendering lives in taskproto.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/easel-foundation/easel/bridge"
	"github.com/easel-foundation/easel/lib/scriptlib"
	"github.com/easel-foundation/easel/mcp"
)

// Broker is what the catalog needs from the bridge.
type Broker interface {
	ExecuteScript(ctx context.Context, script string, command *bridge.Command, opts bridge.CallOptions) (*bridge.Response, error)
	Connected() bool
	PendingCount() int
	Uptime() time.Duration
}

// Deps carries the catalog's collaborators.
type Deps struct {
	Broker   Broker
	Resolver *scriptlib.Resolver
	Logger   *slog.Logger
}

func (d Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.New(slog.DiscardHandler)
}

// Catalog returns the full easel tool set.
func Catalog(deps Deps) []mcp.Tool {
	return []mcp.Tool{
		executeScriptTool(deps),
		executeTaskTool(deps),
		queryItemsTool(deps),
		arrangeGridTool(deps),
		fitToSlotsTool(deps),
		statusTool(deps),
		scriptingReferenceTool(),
		listLibrariesTool(deps),
	}
}

func boolPtr(v bool) *bool { return &v }

// readOnly marks tools that never mutate the document.
func readOnly() *mcp.ToolAnnotations {
	return &mcp.ToolAnnotations{
		ReadOnlyHint:    boolPtr(true),
		DestructiveHint: boolPtr(false),
		IdempotentHint:  boolPtr(true),
		OpenWorldHint:   boolPtr(false),
	}
}

// mutating marks tools that change the document.
func mutating() *mcp.ToolAnnotations {
	return &mcp.ToolAnnotations{
		ReadOnlyHint:    boolPtr(false),
		DestructiveHint: boolPtr(true),
		IdempotentHint:  boolPtr(false),
		OpenWorldHint:   boolPtr(false),
	}
}

// callOptions converts a tool-level timeout in seconds into broker
// options. Zero means the broker default.
func callOptions(timeoutSeconds int) bridge.CallOptions {
	if timeoutSeconds <= 0 {
		return bridge.CallOptions{}
	}
	return bridge.CallOptions{Timeout: time.Duration(timeoutSeconds) * time.Second}
}

// renderResult formats a decoded script result for the agent: JSON
// values pretty-printed, strings passed through, nil as a placeholder.
func renderResult(response *bridge.Response) (string, error) {
	if response.Error != "" {
		return "", mcp.Internal("script error: %s", response.Error)
	}
	value, err := response.DecodeResult()
	if err != nil {
		return "", mcp.Internal("decoding script result: %v", err)
	}
	switch v := value.(type) {
	case nil:
		return "(no result)", nil
	case string:
		return v, nil
	default:
		pretty, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Sprintf("%v", v), nil
		}
		return string(pretty), nil
	}
}

// commandPreview derives the panel display tag for a freeform script:
// the caller's description when given, otherwise the first meaningful
// script line.
func commandPreview(description, script string) string {
	description = strings.TrimSpace(description)
	if description != "" {
		if len(description) > 50 {
			return description[:50]
		}
		return description
	}
	for _, line := range strings.Split(script, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		if len(line) > 40 {
			line = line[:40]
		}
		return "script: " + line + "..."
	}
	return "script"
}
