// Copyright 2026 The Easel Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"sync"
	"time"
)

// outcome is the single completion delivered to an awaiting caller.
// Exactly one of response or err is set.
type outcome struct {
	response *Response
	err      *Error
}

// pendingRequest is one in-flight script awaiting its correlated
// response.
type pendingRequest struct {
	id      int64
	traceID string
	command *Command
	sentAt  time.Time

	// connGeneration ties the request to the panel connection it was
	// sent over: a replaced connection rejects only its own requests.
	connGeneration uint64

	// done carries the single outcome. Buffered so the completing side
	// never blocks on a caller that already observed a different exit.
	done chan outcome
}

// registry tracks in-flight requests by correlation id. Correlation
// ids are monotonically increasing within the process. All access is
// under one mutex; completion removes the entry before the outcome is
// released to the awaiting caller, so at most one completion occurs
// per id.
type registry struct {
	mu      sync.Mutex
	nextID  int64
	pending map[int64]*pendingRequest
}

func newRegistry() *registry {
	return &registry{pending: make(map[int64]*pendingRequest)}
}

// add allocates the next correlation id and registers a pending
// request for it.
func (r *registry) add(traceID string, command *Command, connGeneration uint64, sentAt time.Time) *pendingRequest {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	request := &pendingRequest{
		id:             r.nextID,
		traceID:        traceID,
		command:        command,
		sentAt:         sentAt,
		connGeneration: connGeneration,
		done:           make(chan outcome, 1),
	}
	r.pending[request.id] = request
	return request
}

// complete resolves the request with the peer's response. Reports
// false when the id is unknown (already completed, timed out, or
// never issued) — the caller logs that as a protocol error.
func (r *registry) complete(id int64, response *Response) bool {
	request := r.remove(id)
	if request == nil {
		return false
	}
	request.done <- outcome{response: response}
	return true
}

// fail rejects the request with a bridge error. Reports false when
// the id is no longer pending.
func (r *registry) fail(id int64, err *Error) bool {
	request := r.remove(id)
	if request == nil {
		return false
	}
	request.done <- outcome{err: err}
	return true
}

// failGeneration rejects every pending request tied to the given
// connection generation. Used when a panel connection is replaced:
// requests already sent on the new connection stay pending.
func (r *registry) failGeneration(generation uint64, build func(traceID string) *Error) int {
	r.mu.Lock()
	var victims []*pendingRequest
	for id, request := range r.pending {
		if request.connGeneration == generation {
			victims = append(victims, request)
			delete(r.pending, id)
		}
	}
	r.mu.Unlock()

	for _, request := range victims {
		request.done <- outcome{err: build(request.traceID)}
	}
	return len(victims)
}

// failAll rejects every pending request. Used on shutdown and on
// disconnect of the only connection.
func (r *registry) failAll(build func(traceID string) *Error) int {
	r.mu.Lock()
	victims := make([]*pendingRequest, 0, len(r.pending))
	for id, request := range r.pending {
		victims = append(victims, request)
		delete(r.pending, id)
	}
	r.mu.Unlock()

	for _, request := range victims {
		request.done <- outcome{err: build(request.traceID)}
	}
	return len(victims)
}

// remove pops one entry under the lock.
func (r *registry) remove(id int64) *pendingRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	request, ok := r.pending[id]
	if !ok {
		return nil
	}
	delete(r.pending, id)
	return request
}

// len returns the number of in-flight requests.
func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
