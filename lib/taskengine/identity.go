// Copyright 2026 The Easel Authors
// SPDX-License-Identifier: Apache-2.0

package taskengine

import (
	"fmt"
	"math/rand"
	"regexp"
	"sort"
	"strings"

	"github.com/easel-foundation/easel/lib/clock"
	"github.com/easel-foundation/easel/lib/document"
	"github.com/easel-foundation/easel/lib/taskproto"
)

// Stable ids live in item notes. Two marker forms exist in documents:
// the legacy "mcp-id:<token>" prefix and the namespaced "@mcp:id=<token>"
// tag. Both are read; only the namespaced form is ever written.
var (
	tagPattern      = regexp.MustCompile(`@mcp:([A-Za-z0-9_-]+)=([^\s@]*)`)
	legacyIDPattern = regexp.MustCompile(`mcp-id:([^\s@]*)\s*`)
	noteIDPattern   = regexp.MustCompile(`@mcp:id=[^\s@]*\s*`)
)

// ReadID returns an item's stable id and where it was found. The note's
// namespaced tag wins over the note's legacy marker, which wins over a
// tag in the item name.
func ReadID(item *document.Item) (string, taskproto.IDSource) {
	if id := parseTagString(item.Note)["id"]; id != "" {
		return id, taskproto.SourceNote
	}
	if m := legacyIDPattern.FindStringSubmatch(item.Note); m != nil && m[1] != "" {
		return m[1], taskproto.SourceNote
	}
	if id := parseTagString(item.Name)["id"]; id != "" {
		return id, taskproto.SourceName
	}
	return "", taskproto.SourceNone
}

// ParseTags merges @mcp:key=value tokens from the item's name and
// note. Note tokens override name tokens.
func ParseTags(item *document.Item) map[string]string {
	tags := parseTagString(item.Name)
	for key, value := range parseTagString(item.Note) {
		tags[key] = value
	}
	return tags
}

func parseTagString(s string) map[string]string {
	tags := make(map[string]string)
	for _, m := range tagPattern.FindAllStringSubmatch(s, -1) {
		tags[m[1]] = m[2]
	}
	return tags
}

// FormatTags renders a tag map in canonical form: "@mcp:key=value"
// tokens joined by single spaces, keys sorted. Parsing the result
// yields the input map.
func FormatTags(tags map[string]string) string {
	keys := make([]string, 0, len(tags))
	for key := range tags {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	tokens := make([]string, len(keys))
	for i, key := range keys {
		tokens[i] = fmt.Sprintf("@mcp:%s=%s", key, tags[key])
	}
	return strings.Join(tokens, " ")
}

// WriteID returns the note with the given id installed: any prior id
// markers (both forms) are stripped and the namespaced tag is
// prepended. Applying WriteID twice with the same id is a no-op the
// second time.
func WriteID(note, id string) string {
	cleaned := legacyIDPattern.ReplaceAllString(note, "")
	cleaned = noteIDPattern.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)
	marker := "@mcp:id=" + id
	if cleaned == "" {
		return marker
	}
	return marker + " " + cleaned
}

// Minter allocates new stable ids of the form
// "mcp_<millisecond-timestamp>_<4-digit-random>".
type Minter struct {
	clock clock.Clock
	randN func(n int) int
}

// NewMinter returns a Minter stamping ids from the given clock.
func NewMinter(clk clock.Clock) *Minter {
	return &Minter{clock: clk, randN: rand.Intn}
}

// Next returns a freshly minted id.
func (m *Minter) Next() string {
	return fmt.Sprintf("mcp_%d_%04d", m.clock.Now().UnixMilli(), m.randN(10000))
}

// IDAssignment records the outcome of stable-id assignment for one
// item.
type IDAssignment struct {
	Item *document.Item

	// ID is the id in effect after the operation, or "" when the item
	// has none (policy "preserve" over an unmarked item).
	ID string

	// Assigned reports that a new id was written to the item's note.
	Assigned bool

	// Conflict reports that an id already existed and policy "always"
	// replaced it.
	Conflict bool
}

// AssignIDs applies an id policy to items in order. Write failures
// (for example on locked items) degrade to Assigned=false and do not
// abort the pass. Policy "none" assigns nothing and returns nil.
func AssignIDs(items []*document.Item, policy taskproto.IDPolicy, minter *Minter) []IDAssignment {
	if policy == taskproto.IDNone {
		return nil
	}
	out := make([]IDAssignment, 0, len(items))
	for _, item := range items {
		existing, _ := ReadID(item)
		assignment := IDAssignment{Item: item, ID: existing}

		switch policy {
		case taskproto.IDPreserve:
			// Report only.
		case taskproto.IDOptIn:
			if existing == "" {
				writeNewID(&assignment, minter)
			}
		case taskproto.IDAlways:
			assignment.Conflict = existing != ""
			writeNewID(&assignment, minter)
		}
		out = append(out, assignment)
	}
	return out
}

func writeNewID(assignment *IDAssignment, minter *Minter) {
	id := minter.Next()
	if err := assignment.Item.SetNote(WriteID(assignment.Item.Note, id)); err != nil {
		assignment.Assigned = false
		return
	}
	assignment.ID = id
	assignment.Assigned = true
}
