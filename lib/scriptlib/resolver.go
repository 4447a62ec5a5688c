// Copyright 2026 The Easel Authors
// SPDX-License-Identifier: Apache-2.0

// Package scriptlib resolves the embedded ExtendScript library set for
// injection ahead of user scripts.
//
// Libraries are declared in a JSONC manifest: each entry names its
// fragment file, its dependencies, and the global symbols it defines.
// [Resolver.Resolve] expands a requested set depth-first so every
// dependency is emitted before its dependents, includes each library
// exactly once, and rejects dependency cycles and export-symbol
// collisions. Resolved blobs are cached per requested set and carry a
// blake3 digest for log correlation.
package scriptlib

import (
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/zeebo/blake3"
)

//go:embed scripts
var embedded embed.FS

// UserScriptSeparator marks the boundary between injected library code
// and the caller's script.
const UserScriptSeparator = "// === User Script ==="

// Resolved is one expanded library set.
type Resolved struct {
	// Code is the concatenated fragment text, dependencies first.
	Code string

	// Libraries lists the included libraries in emission order.
	Libraries []string

	// Digest is a short blake3 digest of Code, for logging.
	Digest string
}

// Resolver expands library include sets against a manifest. Safe for
// concurrent use.
type Resolver struct {
	source   fs.FS
	manifest *Manifest

	mu    sync.Mutex
	files map[string]string
	cache map[string]*Resolved
}

// NewEmbedded returns a resolver over the library set compiled into
// the binary.
func NewEmbedded() (*Resolver, error) {
	source, err := fs.Sub(embedded, "scripts")
	if err != nil {
		return nil, fmt.Errorf("opening embedded scripts: %w", err)
	}
	return NewFromFS(source)
}

// NewFromDir returns a resolver over an on-disk library directory,
// typically a config override of the embedded set.
func NewFromDir(dir string) (*Resolver, error) {
	return NewFromFS(os.DirFS(dir))
}

// NewFromFS reads manifest.jsonc from source and returns a resolver
// over it.
func NewFromFS(source fs.FS) (*Resolver, error) {
	data, err := fs.ReadFile(source, "manifest.jsonc")
	if err != nil {
		return nil, fmt.Errorf("reading library manifest: %w", err)
	}
	manifest, err := ParseManifest(data)
	if err != nil {
		return nil, err
	}
	return &Resolver{
		source:   source,
		manifest: manifest,
		files:    make(map[string]string),
		cache:    make(map[string]*Resolved),
	}, nil
}

// Manifest returns the parsed manifest.
func (r *Resolver) Manifest() *Manifest { return r.manifest }

// Names returns the available library names, sorted.
func (r *Resolver) Names() []string {
	names := make([]string, 0, len(r.manifest.Libraries))
	for name := range r.manifest.Libraries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve expands the requested libraries and their transitive
// dependencies into one script blob. The result is cached per sorted
// request set.
func (r *Resolver) Resolve(includes []string) (*Resolved, error) {
	if len(includes) == 0 {
		return &Resolved{}, nil
	}

	key := cacheKey(includes)
	r.mu.Lock()
	if cached, ok := r.cache[key]; ok {
		r.mu.Unlock()
		return cached, nil
	}
	r.mu.Unlock()

	walk := &resolution{
		resolver: r,
		seen:     make(map[string]bool),
		visiting: make(map[string]bool),
		exports:  make(map[string]string),
	}
	for _, name := range includes {
		if err := walk.visit(name); err != nil {
			return nil, err
		}
	}

	code := strings.Join(walk.fragments, "\n\n")
	sum := blake3.Sum256([]byte(code))
	resolved := &Resolved{
		Code:      code,
		Libraries: walk.order,
		Digest:    hex.EncodeToString(sum[:8]),
	}

	r.mu.Lock()
	r.cache[key] = resolved
	r.mu.Unlock()
	return resolved, nil
}

// Inject prepends the resolved library code to script. With no
// includes the script is returned unchanged.
func (r *Resolver) Inject(script string, includes []string) (string, error) {
	if len(includes) == 0 {
		return script, nil
	}
	resolved, err := r.Resolve(includes)
	if err != nil {
		return "", err
	}
	return resolved.Code + "\n\n" + UserScriptSeparator + "\n" + script, nil
}

// resolution is the state of one depth-first expansion.
type resolution struct {
	resolver *Resolver

	seen     map[string]bool
	visiting map[string]bool
	exports  map[string]string

	order     []string
	fragments []string
}

func (w *resolution) visit(name string) error {
	if w.seen[name] {
		return nil
	}
	if w.visiting[name] {
		return fmt.Errorf("dependency cycle involving %q", name)
	}

	library, ok := w.resolver.manifest.Libraries[name]
	if !ok {
		return fmt.Errorf("unknown library: %s", name)
	}

	w.visiting[name] = true
	for _, dep := range library.Dependencies {
		if err := w.visit(dep); err != nil {
			if w.visiting[dep] {
				return fmt.Errorf("dependency cycle: %q <-> %q", name, dep)
			}
			return err
		}
	}
	delete(w.visiting, name)

	for _, symbol := range library.Exports {
		if owner, taken := w.exports[symbol]; taken {
			return fmt.Errorf("symbol collision: %q defined in both %q and %q",
				symbol, owner, name)
		}
		w.exports[symbol] = name
	}

	content, err := w.resolver.readFile(library.File)
	if err != nil {
		return fmt.Errorf("library %q: %w", name, err)
	}
	w.seen[name] = true
	w.order = append(w.order, name)
	w.fragments = append(w.fragments, content)
	return nil
}

// readFile loads one fragment, memoizing the content.
func (r *Resolver) readFile(path string) (string, error) {
	r.mu.Lock()
	if content, ok := r.files[path]; ok {
		r.mu.Unlock()
		return content, nil
	}
	r.mu.Unlock()

	data, err := fs.ReadFile(r.source, path)
	if err != nil {
		return "", fmt.Errorf("reading fragment %s: %w", path, err)
	}
	content := string(data)

	r.mu.Lock()
	r.files[path] = content
	r.mu.Unlock()
	return content, nil
}

// cacheKey canonicalizes a request set: order and duplicates do not
// change the resolution result.
func cacheKey(includes []string) string {
	sorted := slices.Clone(includes)
	sort.Strings(sorted)
	return strings.Join(slices.Compact(sorted), "\x00")
}
