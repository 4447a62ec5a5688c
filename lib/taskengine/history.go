// Copyright 2026 The Easel Authors
// SPDX-License-Identifier: Apache-2.0

package taskengine

import (
	"sync"
	"time"

	"github.com/easel-foundation/easel/lib/taskproto"
)

// DefaultHistorySize is the number of recent task outcomes retained
// in memory. Nothing persists across restarts.
const DefaultHistorySize = 50

// HistoryEntry is one recorded task outcome.
type HistoryEntry struct {
	Task           string    `json:"task"`
	OK             bool      `json:"ok"`
	When           time.Time `json:"when"`
	TotalMS        float64   `json:"total_ms"`
	ItemsProcessed int       `json:"itemsProcessed"`
	ItemsModified  int       `json:"itemsModified"`
	Errors         int       `json:"errors"`
}

// History is a fixed-size ring of recent task outcomes, oldest
// evicted first. Safe for concurrent use.
type History struct {
	mu      sync.Mutex
	entries []HistoryEntry
	limit   int
}

// NewHistory creates a ring holding up to size entries; size <= 0
// means DefaultHistorySize.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{limit: size}
}

// Record appends one outcome, evicting the oldest entry when full.
func (h *History) Record(task string, report *taskproto.Report, when time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, HistoryEntry{
		Task:           task,
		OK:             report.OK,
		When:           when,
		TotalMS:        report.Timing.TotalMS,
		ItemsProcessed: report.Stats.ItemsProcessed,
		ItemsModified:  report.Stats.ItemsModified,
		Errors:         len(report.Errors),
	})
	if len(h.entries) > h.limit {
		h.entries = h.entries[len(h.entries)-h.limit:]
	}
}

// Snapshot returns the retained entries, oldest first.
func (h *History) Snapshot() []HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]HistoryEntry(nil), h.entries...)
}

// Len returns the number of retained entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
