// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resolver

import (
	"github.com/exherbo-go/resolve/pkg/depspec"
	"github.com/exherbo-go/resolve/pkg/metadata"
	"github.com/exherbo-go/resolve/pkg/names"
	"github.com/exherbo-go/resolve/pkg/version"
)

// Matches reports whether id satisfies spec: name (qualified or
// wildcard), every version requirement, the slot requirement, the
// repository requirement, and every key requirement. Choice
// requirements are checked separately by MatchesChoices once a
// candidate's Choices are known, since evaluating them may require
// Environment-level user overrides.
func Matches(id *metadata.PackageID, spec depspec.PackageDepSpec) bool {
	if !matchesName(id.Name(), spec) {
		return false
	}
	if !version.Satisfies(id.Version(), spec.VersionRequirements()) {
		return false
	}
	if !matchesSlot(id.Slot(), spec.Slot()) {
		return false
	}
	if !matchesRepository(id.RepositoryName(), spec.Repository()) {
		return false
	}
	for _, kr := range spec.Keys() {
		if k, ok := id.Key(kr.Key); !ok || !matchesKeyValue(k, kr.Value) {
			return false
		}
	}
	return true
}

func matchesName(name names.QualifiedPackageName, spec depspec.PackageDepSpec) bool {
	switch spec.Selector() {
	case depspec.NameQualified:
		return name == spec.QualifiedName()
	case depspec.NameCategoryWildcard:
		return name.Package == spec.Package()
	case depspec.NamePackageWildcard:
		return name.Category == spec.Category()
	case depspec.NameBothWildcard:
		return true
	default:
		return false
	}
}

func matchesSlot(have names.SlotName, req depspec.SlotRequirement) bool {
	switch req.Kind {
	case depspec.SlotNone:
		return true
	case depspec.SlotExact:
		return have == req.Slot
	case depspec.SlotAny, depspec.SlotAnyLocked:
		return have != ""
	case depspec.SlotStar:
		return len(have) >= len(req.Slot) && have[:len(req.Slot)] == req.Slot.String()
	default:
		return false
	}
}

func matchesRepository(have names.RepositoryName, req depspec.RepositoryRequirement) bool {
	if req.InRepository != "" && have != req.InRepository {
		return false
	}
	if req.ToRepository != "" && have != req.ToRepository {
		return false
	}
	return true
}

func matchesKeyValue(k metadata.MetadataKey, want string) bool {
	switch v := k.(type) {
	case metadata.StringKey:
		return v.Value == want
	case metadata.PathKey:
		return v.Value == want
	default:
		return false
	}
}

// MatchesChoices reports whether every ChoiceRequirement on spec holds
// against the candidate's own enabled-ness predicate. subjectEnabled, if
// non-nil, supplies the dependency-declaring package's own choice values,
// needed to evaluate "[flag=]"/"[flag?]" requirements (spec §4.1 Input:
// "a contextual PackageID for use-conditionals whose truth value depends
// on the subject package"); a nil subjectEnabled treats those two
// conditions as always-satisfied, since there is no subject to compare
// against (e.g. when matching a bare user target with no dependent).
func MatchesChoices(spec depspec.PackageDepSpec, enabled, subjectEnabled func(flag string) bool) bool {
	for _, cr := range spec.Choices() {
		switch cr.Condition {
		case depspec.ConditionPlain:
			if enabled(cr.Flag) != cr.Enabled {
				return false
			}
		case depspec.ConditionEqual:
			if subjectEnabled == nil {
				continue
			}
			if enabled(cr.Flag) != subjectEnabled(cr.Flag) {
				return false
			}
		case depspec.ConditionReverse:
			if subjectEnabled == nil {
				continue
			}
			if enabled(cr.Flag) == subjectEnabled(cr.Flag) {
				return false
			}
		}
	}
	return true
}
