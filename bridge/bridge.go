// Copyright 2026 The Easel Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/easel-foundation/easel/lib/clock"
)

// DefaultCallTimeout is the per-call deadline applied when a caller
// does not choose one.
const DefaultCallTimeout = 30 * time.Second

// Bridge pairs outgoing scripts with their eventual responses across
// the tool loop and the WebSocket transport. One instance serves the
// whole process; all methods are safe for concurrent use.
type Bridge struct {
	// Port is the loopback WebSocket port the panel connects to.
	// Port 0 binds an ephemeral port (tests).
	Port int

	// CallTimeout is the default per-call deadline. Zero means
	// DefaultCallTimeout.
	CallTimeout time.Duration

	// Logger receives structured log output. If nil, slog.Default()
	// is used.
	Logger *slog.Logger

	// Clock drives deadlines. If nil, the real clock is used.
	Clock clock.Clock

	registry  *registry
	transport *transport
	startedAt time.Time

	mu       sync.Mutex
	shutdown chan struct{}
}

func (b *Bridge) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.Default()
}

func (b *Bridge) clock() clock.Clock {
	if b.Clock != nil {
		return b.Clock
	}
	return clock.Real()
}

// Start binds the WebSocket listener and begins accepting the panel
// connection. It returns once the listener is bound, or an error if
// binding fails.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.shutdown != nil {
		return fmt.Errorf("bridge already started")
	}

	b.registry = newRegistry()
	b.transport = &transport{
		logger:       b.logger().With("component", "transport"),
		onResponse:   b.handleResponse,
		onDisconnect: b.handleDisconnect,
	}
	if err := b.transport.start(ctx, b.Port); err != nil {
		return err
	}
	b.shutdown = make(chan struct{})
	b.startedAt = b.clock().Now()
	return nil
}

// Stop raises the shutdown event, rejects every outstanding request
// with a disconnect error, and closes the transport.
func (b *Bridge) Stop() {
	b.mu.Lock()
	if b.shutdown == nil {
		b.mu.Unlock()
		return
	}
	select {
	case <-b.shutdown:
		b.mu.Unlock()
		return
	default:
	}
	close(b.shutdown)
	b.mu.Unlock()

	rejected := b.registry.failAll(func(traceID string) *Error {
		return disconnectedError(traceID, "bridge shutting down")
	})
	if rejected > 0 {
		b.logger().Info("rejected outstanding requests on shutdown", "count", rejected)
	}
	b.transport.stop()
}

// Wait blocks until the transport's serve loop has exited.
func (b *Bridge) Wait() {
	if b.transport != nil && b.transport.done != nil {
		<-b.transport.done
	}
}

// Addr returns the bound listener address, useful with Port 0.
func (b *Bridge) Addr() net.Addr {
	if b.transport == nil {
		return nil
	}
	return b.transport.addr()
}

// Connected reports whether a panel is currently attached.
func (b *Bridge) Connected() bool {
	return b.transport != nil && b.transport.connected()
}

// PendingCount returns the number of in-flight requests.
func (b *Bridge) PendingCount() int {
	if b.registry == nil {
		return 0
	}
	return b.registry.len()
}

// Uptime reports how long the bridge has been running.
func (b *Bridge) Uptime() time.Duration {
	if b.startedAt.IsZero() {
		return 0
	}
	return b.clock().Now().Sub(b.startedAt)
}

// CallOptions tunes one ExecuteScript call.
type CallOptions struct {
	// Timeout overrides the bridge's default per-call deadline.
	Timeout time.Duration
}

// ExecuteScript ships a script to the panel and waits for the
// correlated response. It fails immediately with a DISCONNECTED error
// when no panel is attached (the script is never enqueued). The
// returned error, when non-nil, is always a *Error.
func (b *Bridge) ExecuteScript(ctx context.Context, script string, command *Command, opts CallOptions) (*Response, error) {
	traceID := uuid.NewString()[:8]
	if command != nil && command.TraceID != "" {
		traceID = command.TraceID
	} else if command != nil {
		command.TraceID = traceID
	}
	logger := b.logger().With("trace_id", traceID)

	generation := b.transport.currentGeneration()
	if generation == 0 {
		return nil, disconnectedError(traceID, "panel is not connected (websocket port %d)", b.Port)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = b.CallTimeout
	}
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}

	request := b.registry.add(traceID, command, generation, b.clock().Now())
	envelope := Request{ID: request.id, Script: script, Command: command}
	data, err := json.Marshal(envelope)
	if err != nil {
		b.registry.remove(request.id)
		return nil, transportError(traceID, "encoding request envelope: %w", err)
	}

	if _, err := b.transport.send(data); err != nil {
		b.registry.fail(request.id, transportError(traceID, "sending script: %v", err))
	} else {
		logger.Debug("script sent",
			"correlation_id", request.id,
			"script_bytes", len(script),
			"script_digest", scriptDigest(script),
			"command", commandType(command))
	}

	select {
	case result := <-request.done:
		if result.err != nil {
			logger.Warn("request failed", "correlation_id", request.id, "kind", result.err.Kind)
			return nil, result.err
		}
		logger.Debug("response received",
			"correlation_id", request.id,
			"panel_ms", result.response.DurationMS)
		return result.response, nil

	case <-b.clock().After(timeout):
		err := timeoutError(traceID, "no response within %s", timeout)
		if b.registry.fail(request.id, err) {
			return nil, err
		}
		// Lost the race against a completion that is already in the
		// channel; honor it.
		result := <-request.done
		if result.err != nil {
			return nil, result.err
		}
		return result.response, nil

	case <-ctx.Done():
		err := &Error{Kind: KindDisconnected, TraceID: traceID, Err: ctx.Err()}
		if b.registry.fail(request.id, err) {
			return nil, err
		}
		result := <-request.done
		if result.err != nil {
			return nil, result.err
		}
		return result.response, nil

	case <-b.shutdown:
		err := disconnectedError(traceID, "bridge shutting down")
		if b.registry.fail(request.id, err) {
			return nil, err
		}
		result := <-request.done
		if result.err != nil {
			return nil, result.err
		}
		return result.response, nil
	}
}

// handleResponse runs on the transport loop: it completes the awaiting
// request, or drops the envelope as a protocol error when no request
// matches (late response after a timeout, or a peer bug).
func (b *Bridge) handleResponse(response *Response) {
	if response.ID == 0 {
		b.logger().Error("protocol error: response without correlation id")
		return
	}
	if !b.registry.complete(response.ID, response) {
		b.logger().Error("protocol error: response for unknown correlation id, dropped",
			"correlation_id", response.ID)
	}
}

// handleDisconnect rejects requests stranded by a dropped or replaced
// panel connection.
func (b *Bridge) handleDisconnect(generation uint64, replaced bool) {
	reason := "panel disconnected"
	if replaced {
		reason = "panel connection replaced"
	}
	rejected := b.registry.failGeneration(generation, func(traceID string) *Error {
		return disconnectedError(traceID, "%s", reason)
	})
	if rejected > 0 {
		b.logger().Info("rejected requests for lost connection",
			"generation", generation, "count", rejected, "replaced", replaced)
	}
}

// scriptDigest returns a short blake3 digest of the script for log
// correlation without logging script bodies.
func scriptDigest(script string) string {
	sum := blake3.Sum256([]byte(script))
	return hex.EncodeToString(sum[:8])
}

func commandType(command *Command) string {
	if command == nil {
		return ""
	}
	return command.Type
}
