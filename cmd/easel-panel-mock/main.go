// Copyright 2026 The Easel Authors
// SPDX-License-Identifier: Apache-2.0

// easel-panel-mock is a development stand-in for the Illustrator
// panel. It dials a running easel-server's WebSocket bridge, executes
// Task Protocol payloads against an in-memory document using the Go
// task engine, and acknowledges freeform scripts with a canned
// response.
//
//	easel-panel-mock --url ws://127.0.0.1:8081
//
// The default document carries three named rectangles on layer "L1",
// enough to exercise query_items, arrange_grid, and fit_to_slots end
// to end without Illustrator.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/easel-foundation/easel/lib/config"
	"github.com/easel-foundation/easel/lib/document"
	"github.com/easel-foundation/easel/lib/geometry"
	"github.com/easel-foundation/easel/lib/logging"
	"github.com/easel-foundation/easel/lib/panelhost"
	"github.com/easel-foundation/easel/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "easel-panel-mock: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		url         string
		configPath  string
		emptyDoc    bool
		noDoc       bool
		logLevel    string
		showVersion bool
	)

	flagSet := pflag.NewFlagSet("easel-panel-mock", pflag.ContinueOnError)
	flagSet.StringVar(&url, "url", "", "bridge WebSocket endpoint (default: ws://127.0.0.1:<configured port>)")
	flagSet.StringVar(&configPath, "config", "", "path to the server's YAML config (port and bounds policy)")
	flagSet.BoolVar(&emptyDoc, "empty-document", false, "open an empty document instead of the sample")
	flagSet.BoolVar(&noDoc, "no-document", false, "simulate Illustrator with no document open")
	flagSet.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flagSet.BoolVar(&showVersion, "version", false, "print version and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if showVersion {
		fmt.Println("easel-panel-mock " + version.Full())
		return nil
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if url == "" {
		url = fmt.Sprintf("ws://127.0.0.1:%d", cfg.Listen.WebSocketPort)
	}

	level, err := logging.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	logger := logging.New(level, logging.FormatAuto)

	var doc *document.Document
	switch {
	case noDoc:
	case emptyDoc:
		doc = document.New("untitled.ai", 595, 842)
	default:
		doc = sampleDocument()
	}

	host, err := panelhost.Dial(panelhost.Config{
		URL:      url,
		Document: doc,
		Policy: geometry.BoundsPolicy{
			UseMaskBoundsForClippedGroups: cfg.Geometry.UseMaskBoundsForClippedGroups,
		},
		Logger: logger,
	})
	if err != nil {
		return err
	}
	logger.Info("panel connected", "url", url, "document", documentName(doc))

	interrupted := make(chan os.Signal, 1)
	signal.Notify(interrupted, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-interrupted
		logger.Info("shutting down")
		host.Close()
	}()

	host.Wait()
	return nil
}

// sampleDocument is an A4 document with three rectangles in one
// reading row, matching the layouts the tools are demoed against.
func sampleDocument() *document.Document {
	doc := document.New("sample.ai", 595, 842)
	layer := doc.AddLayer("L1")
	layer.Append(document.NewItem(document.KindPath, "rect_A", geometry.Rect{Left: 40, Top: 800, Right: 140, Bottom: 750}))
	layer.Append(document.NewItem(document.KindPath, "rect_B", geometry.Rect{Left: 200, Top: 801, Right: 300, Bottom: 751}))
	layer.Append(document.NewItem(document.KindPath, "rect_C", geometry.Rect{Left: 360, Top: 803, Right: 460, Bottom: 753}))
	return doc
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func documentName(doc *document.Document) string {
	if doc == nil {
		return "(none)"
	}
	return doc.Name
}
