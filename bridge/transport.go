// Copyright 2026 The Easel Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// maxFrameSize is the largest inbound frame the transport accepts.
// Larger frames are drained and dropped with a logged protocol error;
// the connection survives.
const maxFrameSize = 10 << 20

// transport is the single-client WebSocket listener the panel
// connects to. It owns the connection; the broker above it owns the
// request lifecycle. A new panel connection replaces any existing one
// (last writer wins).
type transport struct {
	logger *slog.Logger

	// onResponse delivers each parsed inbound envelope.
	onResponse func(*Response)

	// onDisconnect reports that the connection of the given generation
	// is gone; replaced distinguishes takeover from a plain drop.
	onDisconnect func(generation uint64, replaced bool)

	server   *http.Server
	listener net.Listener
	done     chan struct{}

	mu         sync.Mutex
	conn       *websocket.Conn
	generation uint64

	// writeMu serializes outbound frames so a frame is sent atomically
	// or not at all.
	writeMu sync.Mutex
}

// start binds the listener on loopback and begins serving upgrades.
// Port 0 asks the kernel for a free port; addr() reports the result.
func (t *transport) start(ctx context.Context, port int) error {
	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return fmt.Errorf("binding websocket listener: %w", err)
	}
	t.listener = listener
	t.done = make(chan struct{})
	t.server = &http.Server{
		Handler:     t,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		defer close(t.done)
		if err := t.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.logger.Error("websocket listener failed", "error", err)
		}
	}()

	t.logger.Info("websocket transport listening", "addr", listener.Addr().String())
	return nil
}

// stop closes the listener and the active connection, then waits for
// the serve loop to exit.
func (t *transport) stop() {
	if t.server != nil {
		t.server.Close()
	}
	t.mu.Lock()
	conn := t.conn
	t.conn = nil
	t.mu.Unlock()
	if conn != nil {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "server shutting down"),
			closeDeadline())
		conn.Close()
	}
	if t.done != nil {
		<-t.done
	}
}

// addr returns the bound listener address.
func (t *transport) addr() net.Addr {
	if t.listener == nil {
		return nil
	}
	return t.listener.Addr()
}

// connected reports whether a panel is currently attached.
func (t *transport) connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn != nil
}

// currentGeneration returns the generation of the active connection,
// or 0 when disconnected. Generations start at 1.
func (t *transport) currentGeneration() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return 0
	}
	return t.generation
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  32 * 1024,
	WriteBufferSize: 32 * 1024,
	// The listener binds loopback only; the panel sets no Origin
	// header worth checking.
	CheckOrigin: func(*http.Request) bool { return true },
}

// ServeHTTP upgrades each incoming request and runs its read loop.
func (t *transport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		t.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	generation := t.install(conn, r.RemoteAddr)
	t.readLoop(conn, generation)
}

// install makes conn the active connection, closing and reporting any
// connection it replaces. Returns the new connection's generation.
func (t *transport) install(conn *websocket.Conn, remote string) uint64 {
	t.mu.Lock()
	previous := t.conn
	previousGeneration := t.generation
	t.generation++
	generation := t.generation
	t.conn = conn
	t.mu.Unlock()

	if previous != nil {
		t.logger.Info("panel connection replaced", "remote", remote, "generation", generation)
		previous.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "replaced"),
			closeDeadline())
		previous.Close()
		t.onDisconnect(previousGeneration, true)
	} else {
		t.logger.Info("panel connected", "remote", remote, "generation", generation)
	}
	return generation
}

// readLoop consumes frames until the connection drops. Each frame is
// parsed as one JSON response envelope; oversized frames are drained
// and dropped.
func (t *transport) readLoop(conn *websocket.Conn, generation uint64) {
	defer func() {
		t.mu.Lock()
		active := t.conn == conn
		if active {
			t.conn = nil
		}
		t.mu.Unlock()
		conn.Close()
		if active {
			t.logger.Info("panel disconnected", "generation", generation)
			t.onDisconnect(generation, false)
		}
	}()

	for {
		_, reader, err := conn.NextReader()
		if err != nil {
			return
		}

		frame, err := readBounded(reader)
		if err != nil {
			if errors.Is(err, errFrameTooLarge) {
				t.logger.Error("protocol error: frame exceeds limit, dropped",
					"limit_bytes", maxFrameSize, "generation", generation)
				continue
			}
			return
		}

		var response Response
		if err := json.Unmarshal(frame, &response); err != nil {
			t.logger.Error("protocol error: frame is not a valid envelope",
				"error", err, "generation", generation)
			continue
		}
		t.onResponse(&response)
	}
}

var errFrameTooLarge = errors.New("frame too large")

// readBounded reads one frame up to maxFrameSize bytes. An oversized
// frame is drained to keep the connection usable and reported as
// errFrameTooLarge.
func readBounded(reader io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(reader, maxFrameSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxFrameSize {
		io.Copy(io.Discard, reader)
		return nil, errFrameTooLarge
	}
	return data, nil
}

// send writes one outbound frame to the active connection. Returns
// the generation the frame was sent on so the caller can tie the
// request to this connection.
func (t *transport) send(data []byte) (uint64, error) {
	t.mu.Lock()
	conn := t.conn
	generation := t.generation
	t.mu.Unlock()
	if conn == nil {
		return 0, errors.New("no panel connected")
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return 0, fmt.Errorf("writing frame: %w", err)
	}
	return generation, nil
}

func closeDeadline() time.Time {
	return time.Now().Add(time.Second)
}
