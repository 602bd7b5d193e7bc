// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package choice implements Choice, ChoiceValue, and Choices: the
// configurable-toggle model that generalises ebuild USE flags and
// USE_EXPAND variables (linguas, python_targets, etc.) described in
// spec §3.
package choice

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"github.com/exherbo-go/resolve/pkg/names"
)

// Origin records where a ChoiceValue's enabled state came from, for
// diagnostics and for the "consider-added-or-changed" comparison used by
// the resolver's reinstall-if-use-changed policy.
type Origin int

const (
	// OriginDefault means the value came from the package's declared default.
	OriginDefault Origin = iota
	// OriginEnvironment means a user profile/override forced the value.
	OriginEnvironment
	// OriginForced means the package forces this value unconditionally.
	OriginForced
)

// Choice is one named group of related ChoiceValues, e.g. plain USE (empty
// prefix) or "linguas".
type Choice struct {
	Prefix                 names.ChoicePrefixName
	RawName                string
	HumanName              string
	Hidden                 bool
	HideDescription        bool
	ShowWithoutPrefix      bool
	ContainsEveryValue     bool
	ConsiderAddedOrChanged bool
}

// ParameterKind describes the permitted-parameter-values restriction on a
// ChoiceValue, per spec §3 and the elike_choices.cc grounding noted in
// SPEC_FULL.md.
type ParameterKind int

const (
	// ParameterNone means the ChoiceValue takes no parameter.
	ParameterNone ParameterKind = iota
	// ParameterEnum restricts the parameter to a fixed set of strings.
	ParameterEnum
	// ParameterIntegerRange restricts the parameter to an integer in [Min, Max].
	ParameterIntegerRange
)

// ParameterSpec describes what parameter values a ChoiceValue will accept.
type ParameterSpec struct {
	Kind       ParameterKind
	EnumValues []string // used when Kind == ParameterEnum
	Min, Max   int      // used when Kind == ParameterIntegerRange
}

// Validate checks a candidate parameter string against the spec. It is
// invoked at ChoiceValue construction time (spec §SUPPLEMENTED FEATURES
// item 3), not deferred to resolve time.
func (p ParameterSpec) Validate(value string) error {
	switch p.Kind {
	case ParameterNone:
		if value != "" {
			return errors.Errorf("choice takes no parameter, got %q", value)
		}
	case ParameterEnum:
		for _, v := range p.EnumValues {
			if v == value {
				return nil
			}
		}
		return errors.Errorf("parameter %q is not one of %v", value, p.EnumValues)
	case ParameterIntegerRange:
		var n int
		if _, err := fmt.Sscanf(value, "%d", &n); err != nil {
			return errors.Wrapf(err, "parameter %q is not an integer", value)
		}
		if n < p.Min || n > p.Max {
			return errors.Errorf("parameter %d is outside [%d,%d]", n, p.Min, p.Max)
		}
	}
	return nil
}

// ChoiceValue is a single configurable toggle or enumerated parameter
// within a Choice group.
type ChoiceValue struct {
	Choice           *Choice
	UnprefixedName   names.UnprefixedChoiceName
	Enabled          bool
	EnabledByDefault bool
	Locked           bool
	Description      string
	Origin           Origin
	Parameter        string
	ParameterSpec    ParameterSpec
}

// NewChoiceValue constructs a ChoiceValue, validating parameter against
// spec if one is set.
func NewChoiceValue(c *Choice, name names.UnprefixedChoiceName, enabled bool, spec ParameterSpec, parameter string) (ChoiceValue, error) {
	if parameter != "" || spec.Kind != ParameterNone {
		if err := spec.Validate(parameter); err != nil {
			return ChoiceValue{}, errors.Wrapf(err, "choice value %q", name)
		}
	}
	return ChoiceValue{
		Choice:           c,
		UnprefixedName:   name,
		Enabled:          enabled,
		EnabledByDefault: enabled,
		ParameterSpec:    spec,
		Parameter:        parameter,
	}, nil
}

// PrefixedName renders "prefix:name", or just "name" if the prefix is empty
// or the Choice is marked ShowWithoutPrefix.
func (cv ChoiceValue) PrefixedName() string {
	if cv.Choice == nil || cv.Choice.Prefix == "" || cv.Choice.ShowWithoutPrefix {
		return cv.UnprefixedName.String()
	}
	return cv.Choice.Prefix.String() + ":" + cv.UnprefixedName.String()
}

// Choices is a collection of ChoiceValues, keyed by the prefix of their
// owning Choice, supporting lookup by prefixed name as required by spec §8
// ("find_by_name_with_prefix ... same as iterating c[p]").
type Choices struct {
	byPrefix map[names.ChoicePrefixName][]ChoiceValue
}

// NewChoices returns an empty Choices collection.
func NewChoices() *Choices {
	return &Choices{byPrefix: make(map[names.ChoicePrefixName][]ChoiceValue)}
}

// Add inserts a ChoiceValue into its Choice's prefix bucket.
func (cs *Choices) Add(cv ChoiceValue) {
	var prefix names.ChoicePrefixName
	if cv.Choice != nil {
		prefix = cv.Choice.Prefix
	}
	cs.byPrefix[prefix] = append(cs.byPrefix[prefix], cv)
}

// ForPrefix returns the ChoiceValues registered under prefix, in insertion
// order. This is the "iterating c[p]" half of the §8 round-trip law.
func (cs *Choices) ForPrefix(prefix names.ChoicePrefixName) []ChoiceValue {
	return cs.byPrefix[prefix]
}

// FindByNameWithPrefix looks up a ChoiceValue by its full prefixed name
// (e.g. "linguas:en" or a bare "nls"). This must agree with ForPrefix, per
// spec §8's round-trip property.
func (cs *Choices) FindByNameWithPrefix(prefixedName string) (ChoiceValue, bool) {
	for _, values := range cs.byPrefix {
		for _, cv := range values {
			if cv.PrefixedName() == prefixedName {
				return cv, true
			}
		}
	}
	return ChoiceValue{}, false
}

// Enabled reports whether the named flag (bare, unprefixed USE flag form)
// is enabled. Used by spec-tree Conditional evaluation.
func (cs *Choices) Enabled(flag string) bool {
	cv, ok := cs.FindByNameWithPrefix(flag)
	return ok && cv.Enabled
}

// Prefixes returns the set of registered prefixes, sorted, for stable
// iteration (e.g. when rendering Choices for diagnostics).
func (cs *Choices) Prefixes() []names.ChoicePrefixName {
	out := make([]names.ChoicePrefixName, 0, len(cs.byPrefix))
	for p := range cs.byPrefix {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
