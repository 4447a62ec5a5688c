// Copyright 2026 The Easel Authors
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/easel-foundation/easel/bridge"
	"github.com/easel-foundation/easel/lib/version"
	"github.com/easel-foundation/easel/mcp"
)

// statusProbeScript asks the panel what it can see. Kept tiny so the
// probe stays cheap even on a busy document.
const statusProbeScript = `var status = { pong: true, documents: app.documents.length };
if (app.documents.length > 0) {
    var doc = app.activeDocument;
    status.activeDocument = doc.name;
    status.pageItems = doc.pageItems.length;
    status.selection = doc.selection.length;
}
JSON.stringify(status);
`

// statusProbeTimeout caps the probe so a wedged panel cannot stall the
// status tool for the full broker default.
const statusProbeTimeout = 5

func statusTool(deps Deps) mcp.Tool {
	return mcp.Tool{
		Name:  "status",
		Title: "Connection Status",
		Description: "Report server and panel health: bridge connection state, pending " +
			"call count, uptime, and a live probe of the active document " +
			"when a panel is attached.",
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		Annotations: readOnly(),
		Run: func(ctx context.Context, _ json.RawMessage) (string, error) {
			var b strings.Builder
			fmt.Fprintf(&b, "easel %s\n", version.Short())
			fmt.Fprintf(&b, "uptime: %s\n", deps.Broker.Uptime().Round(1e9))
			fmt.Fprintf(&b, "pending calls: %d\n", deps.Broker.PendingCount())

			if !deps.Broker.Connected() {
				b.WriteString("panel: disconnected (open the panel in Illustrator to connect)\n")
				return b.String(), nil
			}
			b.WriteString("panel: connected\n")

			command := &bridge.Command{Type: "status probe", Tool: "status"}
			response, err := deps.Broker.ExecuteScript(ctx, statusProbeScript, command, callOptions(statusProbeTimeout))
			if err != nil {
				// A probe failure is itself status, not a tool failure.
				var bridgeErr *bridge.Error
				if errors.As(err, &bridgeErr) {
					fmt.Fprintf(&b, "probe: failed (%s): %v\n", bridgeErr.Kind, bridgeErr.Err)
					return b.String(), nil
				}
				return "", err
			}

			probe, err := renderResult(response)
			if err != nil {
				return "", mcp.Internal("rendering status probe: %v", err)
			}
			b.WriteString("probe:\n")
			b.WriteString(probe)
			b.WriteString("\n")
			return b.String(), nil
		},
	}
}
