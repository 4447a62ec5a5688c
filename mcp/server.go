// Copyright 2026 The Easel Authors
// SPDX-License-Identifier: Apache-2.0

// Package mcp implements a Model Context Protocol server over
// JSON-RPC 2.0 on newline-delimited stdio.
//
// The server owns the protocol surface only: tool behavior lives in
// the registered [Tool] handlers. Failures from handlers are
// classified into structured errorInfo metadata (category plus a
// retryable hint) so agents can decide between retrying, fixing their
// input, and escalating without parsing message text.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/easel-foundation/easel/bridge"
	"github.com/easel-foundation/easel/lib/version"
)

// Tool is one MCP tool: metadata for tools/list plus the handler
// tools/call invokes.
type Tool struct {
	Name        string
	Title       string
	Description string

	// InputSchema is the JSON Schema for the tool's arguments,
	// typically a map[string]any literal.
	InputSchema any

	Annotations *ToolAnnotations

	// Run executes the tool. The returned string becomes the text
	// content block; a returned error marks the result isError and is
	// classified into errorInfo.
	Run func(ctx context.Context, arguments json.RawMessage) (string, error)
}

// Server serves the MCP protocol over a reader/writer pair.
type Server struct {
	name        string
	tools       []Tool
	toolsByName map[string]*Tool
	logger      *slog.Logger
	initialized bool
}

// NewServer creates a server exposing the given tools.
func NewServer(name string, tools []Tool, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{name: name, tools: tools, logger: logger}
	s.toolsByName = make(map[string]*Tool, len(tools))
	for i := range s.tools {
		s.toolsByName[s.tools[i].Name] = &s.tools[i]
	}
	return s
}

// Serve runs the protocol on os.Stdin/os.Stdout. This is the main
// entry point of the server binary; stderr stays free for logging.
func (s *Server) Serve(ctx context.Context) error {
	return s.Run(ctx, os.Stdin, os.Stdout)
}

// Run processes JSON-RPC 2.0 requests from input and writes responses
// to output until input reaches EOF. Each message occupies a single
// line (newline-delimited JSON-RPC, not Content-Length framed).
func (s *Server) Run(ctx context.Context, input io.Reader, output io.Writer) error {
	scanner := bufio.NewScanner(input)
	// Tool results can be large (full task reports, scripting
	// reference).
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	encoder := json.NewEncoder(output)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req request
		if err := json.Unmarshal(line, &req); err != nil {
			if writeErr := writeError(encoder, json.RawMessage("null"), codeParseError, "parse error: "+err.Error()); writeErr != nil {
				return fmt.Errorf("writing parse error response: %w", writeErr)
			}
			continue
		}

		if req.JSONRPC != "2.0" {
			if !req.isNotification() {
				if writeErr := writeError(encoder, req.ID, codeInvalidRequest, "unsupported JSON-RPC version"); writeErr != nil {
					return fmt.Errorf("writing version error response: %w", writeErr)
				}
			}
			continue
		}

		// Notifications have no ID and receive no response.
		if req.isNotification() {
			continue
		}

		if err := s.dispatch(ctx, encoder, &req); err != nil {
			return err
		}
	}

	return scanner.Err()
}

func (s *Server) dispatch(ctx context.Context, encoder *json.Encoder, req *request) error {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(encoder, req)
	case "ping":
		return writeResult(encoder, req.ID, map[string]any{})
	case "tools/list":
		if !s.initialized {
			return writeError(encoder, req.ID, codeInvalidRequest, "server not initialized (call initialize first)")
		}
		return s.handleToolsList(encoder, req)
	case "tools/call":
		if !s.initialized {
			return writeError(encoder, req.ID, codeInvalidRequest, "server not initialized (call initialize first)")
		}
		return s.handleToolsCall(ctx, encoder, req)
	default:
		return writeError(encoder, req.ID, codeMethodNotFound, "unknown method: "+req.Method)
	}
}

func (s *Server) handleInitialize(encoder *json.Encoder, req *request) error {
	if len(req.Params) == 0 {
		return writeError(encoder, req.ID, codeInvalidParams, "params required for initialize")
	}

	var params initializeParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return writeError(encoder, req.ID, codeInvalidParams, "invalid initialize params: "+err.Error())
	}

	// The MCP specification says the server responds with its own
	// protocol version and the client decides whether it can proceed.
	s.initialized = true
	s.logger.Info("mcp client initialized",
		"client", params.ClientInfo.Name,
		"client_version", params.ClientInfo.Version,
		"requested_protocol", params.ProtocolVersion)

	return writeResult(encoder, req.ID, initializeResult{
		ProtocolVersion: protocolVersion,
		Capabilities: serverCapabilities{
			Tools: &toolCapability{},
		},
		ServerInfo: serverInfo{
			Name:    s.name,
			Version: version.Short(),
		},
	})
}

func (s *Server) handleToolsList(encoder *json.Encoder, req *request) error {
	descriptions := make([]toolDescription, 0, len(s.tools))
	for _, t := range s.tools {
		descriptions = append(descriptions, toolDescription{
			Name:        t.Name,
			Title:       t.Title,
			Description: t.Description,
			InputSchema: t.InputSchema,
			Annotations: t.Annotations,
		})
	}
	return writeResult(encoder, req.ID, toolsListResult{Tools: descriptions})
}

func (s *Server) handleToolsCall(ctx context.Context, encoder *json.Encoder, req *request) error {
	if len(req.Params) == 0 {
		return writeError(encoder, req.ID, codeInvalidParams, "params required for tools/call")
	}

	var params toolsCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return writeError(encoder, req.ID, codeInvalidParams, "invalid tools/call params: "+err.Error())
	}

	t, ok := s.toolsByName[params.Name]
	if !ok {
		return writeError(encoder, req.ID, codeInvalidParams, "unknown tool: "+params.Name)
	}

	output, runErr := t.Run(ctx, params.Arguments)
	if runErr != nil {
		s.logger.Warn("tool call failed", "tool", params.Name, "error", runErr)
	}
	return writeResult(encoder, req.ID, buildToolResult(output, runErr))
}

// buildToolResult assembles a toolsCallResult from handler output and
// an optional run error.
func buildToolResult(output string, runErr error) toolsCallResult {
	result := toolsCallResult{}
	if output != "" {
		result.Content = append(result.Content, contentBlock{Type: "text", Text: output})
	}
	if runErr != nil {
		result.IsError = true
		result.Content = append(result.Content, contentBlock{Type: "text", Text: runErr.Error()})
		result.ErrorInfo = classifyError(runErr)
	}
	// MCP requires at least one content block in the result.
	if len(result.Content) == 0 {
		result.Content = []contentBlock{{Type: "text", Text: ""}}
	}
	return result
}

// classifyError extracts structured error metadata from an error. It
// checks for ToolError first, then maps bridge failures and context
// errors, and falls back to internal.
func classifyError(err error) *errorInfo {
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return &errorInfo{
			Category:  string(toolErr.Category),
			Retryable: toolErr.Category == CategoryTransient,
		}
	}

	var bridgeErr *bridge.Error
	if errors.As(err, &bridgeErr) {
		return classifyBridgeError(bridgeErr)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &errorInfo{Category: string(CategoryTransient), Retryable: true}
	}

	return &errorInfo{Category: string(CategoryInternal), Retryable: false}
}

// classifyBridgeError maps the transport failure taxonomy onto tool
// error categories. Disconnects are transient but not retryable: the
// call will keep failing until a panel attaches, so the agent should
// tell the operator instead of spinning.
func classifyBridgeError(err *bridge.Error) *errorInfo {
	switch err.Kind {
	case bridge.KindTimeout:
		return &errorInfo{Category: string(CategoryTransient), Retryable: true}
	case bridge.KindDisconnected:
		return &errorInfo{Category: string(CategoryTransient), Retryable: false}
	case bridge.KindTransportError, bridge.KindProtocolError:
		return &errorInfo{Category: string(CategoryInternal), Retryable: false}
	default:
		return &errorInfo{Category: string(CategoryInternal), Retryable: false}
	}
}

// writeResult sends a JSON-RPC 2.0 success response.
func writeResult(encoder *json.Encoder, id json.RawMessage, result any) error {
	return encoder.Encode(response{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	})
}

// writeError sends a JSON-RPC 2.0 error response.
func writeError(encoder *json.Encoder, id json.RawMessage, code int, message string) error {
	return encoder.Encode(response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &rpcError{Code: code, Message: message},
	})
}
