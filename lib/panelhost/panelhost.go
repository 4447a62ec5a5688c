// Copyright 2026 The Easel Authors
// SPDX-License-Identifier: Apache-2.0

// Package panelhost implements a panel-side peer for the bridge: it
// dials the server's WebSocket listener, reads request envelopes, and
// answers them the way the Illustrator panel would.
//
// Task Protocol requests (command type "task:<name>") are executed for
// real: the payload carried in command.params runs through the Go task
// engine against an in-memory document. Freeform script requests go to
// a pluggable handler, canned by default. This is what the
// easel-panel-mock binary and the integration tests run against.
package panelhost

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/easel-foundation/easel/bridge"
	"github.com/easel-foundation/easel/lib/clock"
	"github.com/easel-foundation/easel/lib/document"
	"github.com/easel-foundation/easel/lib/geometry"
	"github.com/easel-foundation/easel/lib/taskengine"
	"github.com/easel-foundation/easel/lib/taskproto"
)

// ScriptHandler answers a freeform (non-task) script request. The
// returned value is serialized as the envelope result; a returned
// error becomes the envelope's error string.
type ScriptHandler func(script string, command *bridge.Command) (any, error)

// Config configures a Host. URL is required; everything else has a
// default.
type Config struct {
	// URL is the bridge endpoint, e.g. "ws://127.0.0.1:8081".
	URL string

	// Document is the in-memory document task payloads run against.
	// nil reproduces the no-document-open state (tasks fail with
	// V001).
	Document *document.Document

	// Scripts handles freeform script requests. nil installs a canned
	// handler that acknowledges every script with "ok".
	Scripts ScriptHandler

	// Policy selects visible-bounds measurement for the task engine.
	Policy geometry.BoundsPolicy

	Logger *slog.Logger
	Clock  clock.Clock
}

// Host is one connected mock panel.
type Host struct {
	logger  *slog.Logger
	clock   clock.Clock
	scripts ScriptHandler

	executor *taskengine.Executor
	policy   geometry.BoundsPolicy

	mu   sync.Mutex
	doc  *document.Document
	conn *websocket.Conn

	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to the bridge and starts answering requests. Close
// releases the connection; Wait blocks until the read loop exits.
func Dial(cfg Config) (*Host, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("panelhost: URL is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}
	scripts := cfg.Scripts
	if scripts == nil {
		scripts = func(string, *bridge.Command) (any, error) { return "ok", nil }
	}

	conn, _, err := websocket.DefaultDialer.Dial(cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("panelhost: dialing %s: %w", cfg.URL, err)
	}

	h := &Host{
		logger:  logger.With("component", "panelhost"),
		clock:   clk,
		scripts: scripts,
		policy:  cfg.Policy,
		doc:     cfg.Document,
		conn:    conn,
		done:    make(chan struct{}),
		executor: taskengine.New(taskengine.Config{
			Clock:  clk,
			Logger: logger,
			Policy: cfg.Policy,
		}),
	}
	go h.readLoop()
	return h, nil
}

// Close tears down the connection. Safe to call more than once.
func (h *Host) Close() error {
	var err error
	h.closeOnce.Do(func() {
		err = h.conn.Close()
	})
	return err
}

// Wait blocks until the connection is gone (closed locally, replaced
// by another panel, or dropped by the server).
func (h *Host) Wait() { <-h.done }

// Executor exposes the task engine, mainly for history inspection in
// tests.
func (h *Host) Executor() *taskengine.Executor { return h.executor }

// SetDocument swaps the document subsequent tasks run against.
func (h *Host) SetDocument(doc *document.Document) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.doc = doc
}

// Document returns the current document, which may be nil.
func (h *Host) Document() *document.Document {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.doc
}

func (h *Host) readLoop() {
	defer close(h.done)
	defer h.Close()
	for {
		_, data, err := h.conn.ReadMessage()
		if err != nil {
			h.logger.Debug("connection closed", "error", err)
			return
		}

		var req bridge.Request
		if err := json.Unmarshal(data, &req); err != nil {
			h.logger.Warn("dropping malformed request frame", "error", err)
			continue
		}

		response := h.handle(&req)
		if err := h.conn.WriteJSON(response); err != nil {
			h.logger.Debug("write failed, closing", "error", err)
			return
		}
	}
}

// handle produces the response envelope for one request. Requests are
// served sequentially, matching the single-threaded script runtime the
// host mimics.
func (h *Host) handle(req *bridge.Request) *bridge.Response {
	start := h.clock.Now()
	response := &bridge.Response{ID: req.ID, Command: req.Command}

	if payload, ok := taskPayload(req.Command); ok {
		report := h.runTask(payload)
		// The real panel returns JSON.stringify(report): a string
		// holding serialized JSON. Reproduce that so DecodeResult's
		// re-parsing path is exercised end to end.
		if encoded, err := encodeAsScriptResult(report); err != nil {
			response.Error = fmt.Sprintf("encoding report: %v", err)
		} else {
			response.Result = encoded
		}
	} else {
		value, err := h.scripts(req.Script, req.Command)
		if err != nil {
			response.Error = err.Error()
		} else if encoded, marshalErr := json.Marshal(value); marshalErr != nil {
			response.Error = fmt.Sprintf("encoding result: %v", marshalErr)
		} else {
			response.Result = encoded
		}
	}

	response.DurationMS = float64(h.clock.Now().Sub(start)) / float64(time.Millisecond)
	return response
}

// taskPayload extracts the task payload from a command when the
// request is a Task Protocol call.
func taskPayload(command *bridge.Command) (*taskproto.Payload, bool) {
	if command == nil || len(command.Params) == 0 {
		return nil, false
	}
	if !strings.HasPrefix(command.Type, "task:") {
		return nil, false
	}
	payload, err := taskproto.DecodePayloadValue(command.Params)
	if err != nil {
		return nil, false
	}
	return payload, true
}

// encodeAsScriptResult serializes a value the way ExtendScript does:
// JSON text wrapped in a JSON string.
func encodeAsScriptResult(value any) (json.RawMessage, error) {
	inner, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	outer, err := json.Marshal(string(inner))
	if err != nil {
		return nil, err
	}
	return outer, nil
}
