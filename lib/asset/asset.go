// Copyright 2026 The Easel Authors
// SPDX-License-Identifier: Apache-2.0

// Package asset classifies artwork by shape so slot assignment can
// match landscape art to landscape slots.
package asset

// Orientation is the shape class of an asset or slot.
type Orientation string

const (
	Landscape Orientation = "landscape"
	Portrait  Orientation = "portrait"
	Square    Orientation = "square"
	Unknown   Orientation = "unknown"
)

// squareDeadZone is the tolerance around ratio 1.0 inside which an
// asset counts as square: 5% either way.
const squareDeadZone = 0.05

// Class is the classification of one width/height pair.
type Class struct {
	// Ratio is width divided by height; 0 for degenerate sizes.
	Ratio float64 `json:"ratio"`

	Orientation Orientation `json:"orientation"`
}

// Classify buckets a size into landscape, portrait or square. Sizes
// with a non-positive dimension classify as Unknown.
func Classify(width, height float64) Class {
	if width <= 0 || height <= 0 {
		return Class{Orientation: Unknown}
	}
	ratio := width / height
	switch {
	case ratio > 1+squareDeadZone:
		return Class{Ratio: ratio, Orientation: Landscape}
	case ratio < 1-squareDeadZone:
		return Class{Ratio: ratio, Orientation: Portrait}
	default:
		return Class{Ratio: ratio, Orientation: Square}
	}
}
