// Copyright 2026 The Easel Authors
// SPDX-License-Identifier: Apache-2.0

package taskproto

import (
	"encoding/json"
	"fmt"
)

// OrderBy selects the deterministic ordering applied to collected
// items, exactly once, after target resolution.
type OrderBy string

const (
	OrderZOrder        OrderBy = "zOrder"        // host stacking order (default)
	OrderZOrderReverse OrderBy = "zOrderReverse" // front to back
	OrderReading       OrderBy = "reading"       // rows top-down, left-to-right within a row
	OrderColumn        OrderBy = "column"        // columns left-to-right, top-down within a column
	OrderName          OrderBy = "name"          // lexicographic; empty names first
	OrderPositionX     OrderBy = "positionX"     // left edge ascending
	OrderPositionY     OrderBy = "positionY"     // top edge descending (visual top first)
	OrderArea          OrderBy = "area"          // width*height ascending
)

// Valid reports whether the mode is one of the defined orderings.
func (o OrderBy) Valid() bool {
	switch o {
	case OrderZOrder, OrderZOrderReverse, OrderReading, OrderColumn,
		OrderName, OrderPositionX, OrderPositionY, OrderArea:
		return true
	}
	return false
}

// ExcludeFilter drops items whose corresponding predicate holds. The
// keys are ORed: an item matching any enabled key is excluded.
// Clipped means "has an ancestor clipping group", not "is the mask".
type ExcludeFilter struct {
	Locked  bool `json:"locked,omitempty"`
	Hidden  bool `json:"hidden,omitempty"`
	Guides  bool `json:"guides,omitempty"`
	Clipped bool `json:"clipped,omitempty"`
}

// Target is one arm of the selector union. Concrete types:
// SelectionTarget, AllTarget, LayerTarget, QueryTarget, CompoundTarget,
// plus UnknownTarget for unrecognized type tags (kept so the executor's
// validate stage owns the error code, not the JSON decoder).
type Target interface {
	targetType() string
}

// SelectionTarget selects the current document selection.
type SelectionTarget struct{}

func (SelectionTarget) targetType() string { return "selection" }

func (t SelectionTarget) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
	}{"selection"})
}

// AllTarget selects every layer's items; Recursive descends into
// groups.
type AllTarget struct {
	Recursive bool `json:"recursive,omitempty"`
}

func (AllTarget) targetType() string { return "all" }

func (t AllTarget) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type      string `json:"type"`
		Recursive bool   `json:"recursive,omitempty"`
	}{"all", t.Recursive})
}

// LayerTarget selects the items of one named layer.
type LayerTarget struct {
	Layer     string `json:"layer"`
	Recursive bool   `json:"recursive,omitempty"`
}

func (LayerTarget) targetType() string { return "layer" }

func (t LayerTarget) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type      string `json:"type"`
		Layer     string `json:"layer"`
		Recursive bool   `json:"recursive,omitempty"`
	}{"layer", t.Layer, t.Recursive})
}

// QueryTarget selects items matching filters. At least one of
// ItemType, Pattern, or Layer must be set. Pattern is a glob where *
// matches any run and ? matches one character, anchored at both ends.
type QueryTarget struct {
	ItemType  string `json:"itemType,omitempty"`
	Pattern   string `json:"pattern,omitempty"`
	Layer     string `json:"layer,omitempty"`
	Recursive bool   `json:"recursive,omitempty"`
}

func (QueryTarget) targetType() string { return "query" }

func (t QueryTarget) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type      string `json:"type"`
		ItemType  string `json:"itemType,omitempty"`
		Pattern   string `json:"pattern,omitempty"`
		Layer     string `json:"layer,omitempty"`
		Recursive bool   `json:"recursive,omitempty"`
	}{"query", t.ItemType, t.Pattern, t.Layer, t.Recursive})
}

// CompoundTarget concatenates the resolution of each sub-target in
// declaration order, then applies its local exclude filter. The outer
// selector's global exclude and orderBy still run afterwards.
type CompoundTarget struct {
	AnyOf   []Target       `json:"anyOf"`
	Exclude *ExcludeFilter `json:"exclude,omitempty"`
}

func (CompoundTarget) targetType() string { return "compound" }

func (t CompoundTarget) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    string         `json:"type"`
		AnyOf   []Target       `json:"anyOf"`
		Exclude *ExcludeFilter `json:"exclude,omitempty"`
	}{"compound", t.AnyOf, t.Exclude})
}

// UnknownTarget preserves a target whose type tag the decoder did not
// recognize. Validation rejects it with V005 (or V004 when the tag is
// missing entirely).
type UnknownTarget struct {
	Type string
}

func (UnknownTarget) targetType() string { return "unknown" }

func (t UnknownTarget) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
	}{t.Type})
}

// TargetSelector wraps one Target with global ordering and exclusion.
type TargetSelector struct {
	Target  Target
	OrderBy OrderBy
	Exclude *ExcludeFilter

	// decodeErr records a structurally unusable "targets" value so the
	// validate stage can report V004 instead of the decoder failing.
	decodeErr string
}

// DecodeError returns the structural decoding failure recorded for
// this selector, or "" when it decoded cleanly.
func (s *TargetSelector) DecodeError() string { return s.decodeErr }

func (s TargetSelector) MarshalJSON() ([]byte, error) {
	target := s.Target
	if target == nil {
		target = SelectionTarget{}
	}
	orderBy := s.OrderBy
	if orderBy == "" {
		orderBy = OrderZOrder
	}
	return json.Marshal(struct {
		Target  Target         `json:"target"`
		OrderBy OrderBy        `json:"orderBy"`
		Exclude *ExcludeFilter `json:"exclude,omitempty"`
	}{target, orderBy, s.Exclude})
}

// UnmarshalJSON accepts both selector forms: the wrapper
// {target, orderBy, exclude} and a legacy bare target object such as
// {"type": "layer", "layer": "L1"}. Legacy input is normalized into
// the wrapper with default ordering.
func (s *TargetSelector) UnmarshalJSON(data []byte) error {
	*s = TargetSelector{OrderBy: OrderZOrder}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		s.decodeErr = fmt.Sprintf("targets is not a JSON object: %v", err)
		return nil
	}

	if rawTarget, ok := fields["target"]; ok {
		target, err := decodeTarget(rawTarget)
		if err != nil {
			s.decodeErr = err.Error()
			return nil
		}
		s.Target = target
		if raw, ok := fields["orderBy"]; ok {
			if err := json.Unmarshal(raw, &s.OrderBy); err != nil {
				s.decodeErr = fmt.Sprintf("orderBy: %v", err)
				return nil
			}
		}
		if raw, ok := fields["exclude"]; ok {
			if err := json.Unmarshal(raw, &s.Exclude); err != nil {
				s.decodeErr = fmt.Sprintf("exclude: %v", err)
				return nil
			}
		}
		return nil
	}

	// Legacy form: the selector is the target object itself.
	target, err := decodeTarget(data)
	if err != nil {
		s.decodeErr = err.Error()
		return nil
	}
	s.Target = target
	return nil
}

// decodeTarget decodes one arm of the target union by its type tag.
// Unrecognized or absent tags yield an UnknownTarget rather than an
// error so validation can classify the failure.
func decodeTarget(raw json.RawMessage) (Target, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("target is not a JSON object: %w", err)
	}

	switch probe.Type {
	case "selection":
		return SelectionTarget{}, nil
	case "all":
		var t AllTarget
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, fmt.Errorf("all target: %w", err)
		}
		return t, nil
	case "layer":
		var t LayerTarget
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, fmt.Errorf("layer target: %w", err)
		}
		return t, nil
	case "query":
		var t QueryTarget
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, fmt.Errorf("query target: %w", err)
		}
		return t, nil
	case "compound":
		var shell struct {
			AnyOf   []json.RawMessage `json:"anyOf"`
			Exclude *ExcludeFilter    `json:"exclude"`
		}
		if err := json.Unmarshal(raw, &shell); err != nil {
			return nil, fmt.Errorf("compound target: %w", err)
		}
		compound := CompoundTarget{Exclude: shell.Exclude}
		for i, sub := range shell.AnyOf {
			target, err := decodeTarget(sub)
			if err != nil {
				return nil, fmt.Errorf("compound.anyOf[%d]: %w", i, err)
			}
			compound.AnyOf = append(compound.AnyOf, target)
		}
		return compound, nil
	}
	return UnknownTarget{Type: probe.Type}, nil
}

// ValidateTarget checks type-specific required fields, returning the
// error code and message the validate stage should report. A nil
// target is valid (the executor substitutes the selection target).
func ValidateTarget(target Target) (ErrorCode, string) {
	switch t := target.(type) {
	case nil, SelectionTarget, AllTarget:
		return "", ""
	case LayerTarget:
		if t.Layer == "" {
			return CodeMissingParam, "layer target requires a non-empty layer name"
		}
	case QueryTarget:
		if t.ItemType == "" && t.Pattern == "" && t.Layer == "" {
			return CodeMissingParam, "query target requires at least one filter (itemType, pattern, or layer)"
		}
	case CompoundTarget:
		if len(t.AnyOf) == 0 {
			return CodeMissingParam, "compound target requires at least one entry in anyOf"
		}
		for _, sub := range t.AnyOf {
			if _, nested := sub.(CompoundTarget); nested {
				return CodeInvalidTargets, "compound targets cannot nest other compound targets"
			}
			if code, msg := ValidateTarget(sub); code != "" {
				return code, msg
			}
		}
	case UnknownTarget:
		if t.Type == "" {
			return CodeInvalidTargets, "target object is missing its type field"
		}
		return CodeUnknownTarget, fmt.Sprintf("unknown target type %q", t.Type)
	default:
		return CodeUnknownTarget, fmt.Sprintf("unknown target type %q", target.targetType())
	}
	return "", ""
}
