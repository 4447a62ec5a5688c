// Copyright 2026 The Easel Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/easel-foundation/easel/lib/scriptlib"
)

// printLibraries renders the resolver's manifest as a table, the
// diagnostic behind --list-libraries.
func printLibraries(resolver *scriptlib.Resolver) error {
	manifest := resolver.Manifest()
	fmt.Printf("Script library manifest v%s\n\n", manifest.Version)

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Library", "Version", "Depends On", "Exports"})
	for _, name := range resolver.Names() {
		lib := manifest.Libraries[name]
		tw.AppendRow(table.Row{
			name,
			lib.Version,
			strings.Join(lib.Dependencies, ", "),
			strings.Join(lib.Exports, ", "),
		})
	}
	tw.Render()
	return nil
}
