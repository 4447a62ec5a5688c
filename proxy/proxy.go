// Copyright 2026 The Easel Authors
// SPDX-License-Identifier: Apache-2.0

// Package proxy is the optional HTTP side channel: a small loopback
// REST surface over the same broker the MCP tools use, for curl-style
// debugging and editor integrations that do not speak MCP.
//
// It never binds a non-loopback address and must run on a different
// port than the WebSocket bridge.
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/easel-foundation/easel/bridge"
	"github.com/easel-foundation/easel/lib/scriptlib"
	"github.com/easel-foundation/easel/lib/version"
)

// Broker is the slice of the bridge the side channel needs.
type Broker interface {
	ExecuteScript(ctx context.Context, script string, command *bridge.Command, opts bridge.CallOptions) (*bridge.Response, error)
	Connected() bool
	PendingCount() int
	Uptime() time.Duration
}

// Config configures the side channel.
type Config struct {
	// Addr is the listen address, e.g. "127.0.0.1:8080". Port 0 picks
	// a free port.
	Addr string

	Broker   Broker
	Resolver *scriptlib.Resolver
	Logger   *slog.Logger
}

// Server is the running side channel.
type Server struct {
	broker   Broker
	resolver *scriptlib.Resolver
	logger   *slog.Logger

	addr     string
	listener net.Listener
	http     *http.Server
	done     chan struct{}
}

// New builds a server. Start brings up the listener.
func New(cfg Config) (*Server, error) {
	if cfg.Broker == nil {
		return nil, fmt.Errorf("proxy: broker is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		broker:   cfg.Broker,
		resolver: cfg.Resolver,
		logger:   logger.With("component", "proxy"),
		addr:     cfg.Addr,
		done:     make(chan struct{}),
	}
	s.http = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s, nil
}

// Handler returns the route table. Exposed so tests can drive it with
// httptest without a listener.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/status", s.handleStatus)
	r.Post("/execute", s.handleExecute)
	return r
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	host, _, err := net.SplitHostPort(s.addr)
	if err != nil {
		return fmt.Errorf("proxy: invalid address %q: %w", s.addr, err)
	}
	if ip := net.ParseIP(host); ip == nil || !ip.IsLoopback() {
		return fmt.Errorf("proxy: refusing to bind non-loopback address %q", s.addr)
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("proxy: listening on %s: %w", s.addr, err)
	}
	s.listener = listener
	s.logger.Info("side channel listening", "addr", listener.Addr().String())

	go func() {
		defer close(s.done)
		if err := s.http.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("side channel stopped", "error", err)
		}
	}()
	return nil
}

// Stop shuts the server down, letting in-flight requests finish until
// ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	<-s.done
	return err
}

// Addr returns the bound address, nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", float64(time.Since(start))/float64(time.Millisecond))
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"version":        version.Short(),
		"connected":      s.broker.Connected(),
		"pending_calls":  s.broker.PendingCount(),
		"uptime_seconds": s.broker.Uptime().Seconds(),
	})
}

// executeRequest is the POST /execute body.
type executeRequest struct {
	Script      string   `json:"script"`
	Includes    []string `json:"includes,omitempty"`
	Description string   `json:"description,omitempty"`

	// Timeout is the per-call deadline in seconds. Zero means the
	// broker default.
	Timeout int `json:"timeout,omitempty"`
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), "", false)
		return
	}
	if strings.TrimSpace(req.Script) == "" {
		writeError(w, http.StatusBadRequest, "script is required", "", false)
		return
	}

	script := req.Script
	if s.resolver != nil && len(req.Includes) > 0 {
		injected, err := s.resolver.Inject(script, req.Includes)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), "", false)
			return
		}
		script = injected
	}

	opts := bridge.CallOptions{}
	if req.Timeout > 0 {
		opts.Timeout = time.Duration(req.Timeout) * time.Second
	}
	command := &bridge.Command{Type: commandTag(req.Description), Tool: "proxy.execute"}

	response, err := s.broker.ExecuteScript(r.Context(), script, command, opts)
	if err != nil {
		status, kind, retryable := classify(err)
		writeError(w, status, err.Error(), kind, retryable)
		return
	}
	if response.Error != "" {
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":          false,
			"error":       response.Error,
			"duration_ms": response.DurationMS,
		})
		return
	}

	value, err := response.DecodeResult()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), string(bridge.KindProtocolError), false)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":          true,
		"result":      value,
		"duration_ms": response.DurationMS,
	})
}

func commandTag(description string) string {
	description = strings.TrimSpace(description)
	if description == "" {
		return "proxy script"
	}
	if len(description) > 50 {
		return description[:50]
	}
	return description
}

// classify maps broker failures onto HTTP status codes: 503 while no
// panel is attached, 504 for script deadlines, 500 otherwise.
func classify(err error) (status int, kind string, retryable bool) {
	var bridgeErr *bridge.Error
	if !errors.As(err, &bridgeErr) {
		return http.StatusInternalServerError, "", false
	}
	switch bridgeErr.Kind {
	case bridge.KindDisconnected:
		return http.StatusServiceUnavailable, string(bridgeErr.Kind), false
	case bridge.KindTimeout:
		return http.StatusGatewayTimeout, string(bridgeErr.Kind), true
	default:
		return http.StatusInternalServerError, string(bridgeErr.Kind), bridgeErr.Retryable()
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message, kind string, retryable bool) {
	body := map[string]any{"ok": false, "error": message}
	if kind != "" {
		body["kind"] = kind
		body["retryable"] = retryable
	}
	writeJSON(w, status, body)
}
