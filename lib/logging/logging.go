// Copyright 2026 The Easel Authors
// SPDX-License-Identifier: Apache-2.0

// Package logging constructs the slog loggers used by easel binaries.
//
// Log output always goes to stderr: stdout belongs to the MCP protocol
// stream and a single stray line there would corrupt a JSON-RPC frame.
package logging

import (
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// Format selects the slog handler used for stderr output.
type Format string

const (
	// FormatAuto picks text when stderr is a terminal, JSON otherwise
	// (CI, scripts, editors driving the MCP server).
	FormatAuto Format = "auto"
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseLevel converts a configuration string into a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q (want debug, info, warn, or error)", s)
}

// New creates the process logger. Callers scope it with component
// context via With:
//
//	logger := logging.New(level, logging.FormatAuto).With("component", "bridge")
func New(level slog.Level, format Format) *slog.Logger {
	options := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch format {
	case FormatText:
		handler = slog.NewTextHandler(os.Stderr, options)
	case FormatJSON:
		handler = slog.NewJSONHandler(os.Stderr, options)
	default:
		if term.IsTerminal(int(os.Stderr.Fd())) {
			handler = slog.NewTextHandler(os.Stderr, options)
		} else {
			handler = slog.NewJSONHandler(os.Stderr, options)
		}
	}
	return slog.New(handler)
}
