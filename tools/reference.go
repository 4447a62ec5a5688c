// Copyright 2026 The Easel Authors
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/easel-foundation/easel/mcp"
)

//go:embed reference.md
var scriptingReference string

func scriptingReferenceTool() mcp.Tool {
	return mcp.Tool{
		Name:  "scripting_reference",
		Title: "ExtendScript Reference",
		Description: "Return the ExtendScript quick reference for Illustrator: the " +
			"coordinate system, common object patterns, and pitfalls. Costs " +
			"no panel round-trip; read it before writing scripts.",
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		Annotations: readOnly(),
		Run: func(context.Context, json.RawMessage) (string, error) {
			return scriptingReference, nil
		},
	}
}

func listLibrariesTool(deps Deps) mcp.Tool {
	return mcp.Tool{
		Name:  "list_libraries",
		Title: "List Script Libraries",
		Description: "List the injectable ExtendScript libraries with their exports " +
			"and dependencies. Pass any of these names in a tool's includes " +
			"argument. Costs no panel round-trip.",
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		Annotations: readOnly(),
		Run: func(context.Context, json.RawMessage) (string, error) {
			manifest := deps.Resolver.Manifest()

			tw := table.NewWriter()
			tw.AppendHeader(table.Row{"Library", "Version", "Depends On", "Exports"})
			for _, name := range deps.Resolver.Names() {
				lib := manifest.Libraries[name]
				tw.AppendRow(table.Row{
					name,
					lib.Version,
					strings.Join(lib.Dependencies, ", "),
					strings.Join(lib.Exports, ", "),
				})
			}

			var b strings.Builder
			fmt.Fprintf(&b, "Script library manifest v%s\n\n", manifest.Version)
			b.WriteString(tw.RenderMarkdown())
			b.WriteString("\n\nDependencies resolve automatically: including \"layout\" also injects \"geometry\" and \"units\".")
			return b.String(), nil
		},
	}
}
