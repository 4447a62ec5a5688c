// Copyright 2026 The Easel Authors
// SPDX-License-Identifier: Apache-2.0

package scriptlib

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/jsonc"
)

// Manifest describes the library set: which file holds each library,
// what it depends on, and which symbols it defines at global scope.
type Manifest struct {
	Version   string             `json:"version"`
	Libraries map[string]Library `json:"libraries"`
}

// Library is one entry in the manifest.
type Library struct {
	// File is the fragment's path relative to the manifest.
	File string `json:"file"`

	Version string `json:"version"`

	// Dependencies are library names that must be emitted before this
	// one.
	Dependencies []string `json:"dependencies"`

	// Exports lists the global symbols the fragment defines. The
	// resolver rejects a resolution in which two libraries claim the
	// same symbol.
	Exports []string `json:"exports"`
}

// ParseManifest decodes a manifest authored as JSONC (comments and
// trailing commas allowed) and checks its internal references.
func ParseManifest(data []byte) (*Manifest, error) {
	var manifest Manifest
	if err := json.Unmarshal(jsonc.ToJSON(data), &manifest); err != nil {
		return nil, fmt.Errorf("parsing library manifest: %w", err)
	}
	for name, library := range manifest.Libraries {
		if library.File == "" {
			return nil, fmt.Errorf("library %q has no file", name)
		}
		for _, dep := range library.Dependencies {
			if _, ok := manifest.Libraries[dep]; !ok {
				return nil, fmt.Errorf("library %q depends on unknown library %q", name, dep)
			}
		}
	}
	return &manifest, nil
}
