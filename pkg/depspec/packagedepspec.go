// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package depspec implements the dependency-specification algebra: the
// PackageDepSpec constraint model, the spec-tree node variants, and the
// recursive-descent parser that turns a dependency string into an
// immutable spec tree (spec §4.1).
package depspec

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/exherbo-go/resolve/pkg/names"
	"github.com/exherbo-go/resolve/pkg/version"
)

// SlotRequirementKind distinguishes the four slot-requirement shapes a
// PackageDepSpec can carry.
type SlotRequirementKind int

const (
	// SlotNone means no slot requirement was specified.
	SlotNone SlotRequirementKind = iota
	// SlotExact requires an exact, named slot (":0").
	SlotExact
	// SlotAny requires a slot equal to the slot of the package doing the
	// depending, evaluated freshly each time (":=").
	SlotAny
	// SlotAnyLocked is like SlotAny but the choice is locked at first
	// resolution (":*=", in some EAPIs written ":=" with a locking rule).
	SlotAnyLocked
	// SlotStar requires any slot in a named slot family (":0*").
	SlotStar
)

// SlotRequirement is the slot component of a PackageDepSpec.
type SlotRequirement struct {
	Kind SlotRequirementKind
	Slot names.SlotName // meaningful for SlotExact and SlotStar
}

func (s SlotRequirement) String() string {
	switch s.Kind {
	case SlotNone:
		return ""
	case SlotExact:
		return ":" + s.Slot.String()
	case SlotAny:
		return ":="
	case SlotAnyLocked:
		return ":*="
	case SlotStar:
		return ":" + s.Slot.String() + "*"
	default:
		return ""
	}
}

// NameSelector distinguishes which of the four name-wildcard shapes a
// PackageDepSpec uses.
type NameSelector int

const (
	// NameQualified means both category and package are specified.
	NameQualified NameSelector = iota
	// NameCategoryWildcard means only the package part is specified ("*/pkg").
	NameCategoryWildcard
	// NamePackageWildcard means only the category part is specified ("cat/*").
	NamePackageWildcard
	// NameBothWildcard means neither part is specified ("*/*").
	NameBothWildcard
)

// KeyRequirement is a `[.KEY=value]` metadata-key filter.
type KeyRequirement struct {
	Key   string
	Value string
}

// ChoiceRequirement is a single `[flag]`, `[-flag]`, or `[flag=]` choice
// requirement attached to a PackageDepSpec.
type ChoiceRequirement struct {
	Flag      string
	Enabled   bool // meaning of plain "[flag]"; false for "[-flag]"
	Condition ChoiceRequirementCondition
}

// ChoiceRequirementCondition distinguishes plain choice requirements from
// the "must match the choice this package itself will have" ("[flag=]")
// and "must equal the opposite" ("[flag?]") shapes.
type ChoiceRequirementCondition int

const (
	// ConditionPlain is a bare `[flag]`/`[-flag]` requirement.
	ConditionPlain ChoiceRequirementCondition = iota
	// ConditionEqual is `[flag=]`: match whatever this dep's subject has.
	ConditionEqual
	// ConditionReverse is `[flag?]`: match the opposite of the subject.
	ConditionReverse
)

// RepositoryRequirement describes the `::repo`, `::from->to`, and related
// repository qualifiers on a PackageDepSpec.
type RepositoryRequirement struct {
	InRepository            names.RepositoryName
	FromRepository          names.RepositoryName
	ToRepository            names.RepositoryName
	InstalledAtPath         string
	InstallableToRepository names.RepositoryName
	InstallableToPath       string
}

// PackageDepSpec is an immutable package constraint. Construct with
// NewPackageDepSpecBuilder.
type PackageDepSpec struct {
	selector NameSelector
	category names.CategoryNamePart
	pkg      names.PackageNamePart

	versions []version.Requirement
	slot     SlotRequirement
	repo     RepositoryRequirement
	choices  []ChoiceRequirement
	keys     []KeyRequirement
}

// Selector reports which name-wildcard shape this spec uses.
func (p PackageDepSpec) Selector() NameSelector { return p.selector }

// QualifiedName returns the (category, package) pair; valid only when
// Selector() == NameQualified.
func (p PackageDepSpec) QualifiedName() names.QualifiedPackageName {
	return names.QualifiedPackageName{Category: p.category, Package: p.pkg}
}

// Category returns the category part; valid when the selector specifies one.
func (p PackageDepSpec) Category() names.CategoryNamePart { return p.category }

// Package returns the package part; valid when the selector specifies one.
func (p PackageDepSpec) Package() names.PackageNamePart { return p.pkg }

// VersionRequirements returns the version-requirement list (possibly empty).
func (p PackageDepSpec) VersionRequirements() []version.Requirement { return p.versions }

// Slot returns the slot requirement.
func (p PackageDepSpec) Slot() SlotRequirement { return p.slot }

// Repository returns the repository requirement.
func (p PackageDepSpec) Repository() RepositoryRequirement { return p.repo }

// Choices returns the choice requirement list.
func (p PackageDepSpec) Choices() []ChoiceRequirement { return p.choices }

// Keys returns the key requirement list.
func (p PackageDepSpec) Keys() []KeyRequirement { return p.keys }

// PackageDepSpecBuilder incrementally constructs an immutable PackageDepSpec.
type PackageDepSpecBuilder struct {
	spec PackageDepSpec
	err  error
}

// NewPackageDepSpecBuilder starts a builder for a fully-qualified name.
func NewPackageDepSpecBuilder(qpn names.QualifiedPackageName) *PackageDepSpecBuilder {
	return &PackageDepSpecBuilder{spec: PackageDepSpec{selector: NameQualified, category: qpn.Category, pkg: qpn.Package}}
}

// NewWildcardPackageDepSpecBuilder starts a builder for one of the three
// wildcard name shapes.
func NewWildcardPackageDepSpecBuilder(selector NameSelector, cat names.CategoryNamePart, pkg names.PackageNamePart) *PackageDepSpecBuilder {
	return &PackageDepSpecBuilder{spec: PackageDepSpec{selector: selector, category: cat, pkg: pkg}}
}

// AddVersionRequirement appends a version requirement.
func (b *PackageDepSpecBuilder) AddVersionRequirement(req version.Requirement) *PackageDepSpecBuilder {
	b.spec.versions = append(b.spec.versions, req)
	return b
}

// Slot sets the slot requirement.
func (b *PackageDepSpecBuilder) Slot(s SlotRequirement) *PackageDepSpecBuilder {
	b.spec.slot = s
	return b
}

// Repository sets the repository requirement.
func (b *PackageDepSpecBuilder) Repository(r RepositoryRequirement) *PackageDepSpecBuilder {
	b.spec.repo = r
	return b
}

// AddChoiceRequirement appends a choice requirement.
func (b *PackageDepSpecBuilder) AddChoiceRequirement(c ChoiceRequirement) *PackageDepSpecBuilder {
	b.spec.choices = append(b.spec.choices, c)
	return b
}

// AddKeyRequirement appends a key requirement.
func (b *PackageDepSpecBuilder) AddKeyRequirement(k KeyRequirement) *PackageDepSpecBuilder {
	b.spec.keys = append(b.spec.keys, k)
	return b
}

// PackageDepSpecError reports a builder invariant violation (spec §3
// invariant: "a version requirement has a package/category part sufficient
// to disambiguate during string rendering").
type PackageDepSpecError struct {
	Cause error
}

func (e *PackageDepSpecError) Error() string { return "bad package dep spec: " + e.Cause.Error() }
func (e *PackageDepSpecError) Unwrap() error { return e.Cause }

// Build finalizes the spec, enforcing invariants.
func (b *PackageDepSpecBuilder) Build() (PackageDepSpec, error) {
	if b.err != nil {
		return PackageDepSpec{}, b.err
	}
	if len(b.spec.versions) > 0 && b.spec.selector != NameQualified {
		return PackageDepSpec{}, &PackageDepSpecError{Cause: errors.New("a version requirement needs a fully qualified category/package")}
	}
	return b.spec, nil
}

// String renders the canonical form described in spec §6. It round-trips
// through ParsePackageDepSpec for the same ParseOptions (spec §8), except
// for a spec with more than one version requirement: those render as a
// bracketed version list, which ParsePackageDepSpec does not accept.
func (p PackageDepSpec) String() string {
	var b strings.Builder

	// Collapse the version operator onto the name when there is exactly
	// one requirement, rendering "=*" as "=cat/pkg-ver*"; otherwise
	// requirements render in the bracketed list form.
	leadingOp := ""
	starSuffix := ""
	rest := p.versions
	if len(p.versions) == 1 {
		leadingOp = p.versions[0].Operator.String()
		if p.versions[0].Operator == version.OpEqualStar {
			leadingOp, starSuffix = version.OpEqual.String(), "*"
		}
		rest = nil
	}
	b.WriteString(leadingOp)

	switch p.selector {
	case NameQualified:
		if len(p.versions) == 1 {
			fmt.Fprintf(&b, "%s/%s-%s%s", p.category, p.pkg, p.versions[0].Version, starSuffix)
		} else {
			fmt.Fprintf(&b, "%s/%s", p.category, p.pkg)
		}
	case NameCategoryWildcard:
		fmt.Fprintf(&b, "*/%s", p.pkg)
	case NamePackageWildcard:
		fmt.Fprintf(&b, "%s/*", p.category)
	case NameBothWildcard:
		b.WriteString("*/*")
	}

	b.WriteString(p.slot.String())

	if p.repo.InRepository != "" {
		fmt.Fprintf(&b, "::%s", p.repo.InRepository)
	} else if p.repo.FromRepository != "" || p.repo.ToRepository != "" {
		fmt.Fprintf(&b, "::%s->%s", p.repo.FromRepository, p.repo.ToRepository)
	}

	if len(rest) > 0 {
		b.WriteString(" [")
		for i, r := range rest {
			if i > 0 {
				b.WriteByte(' ')
				if rest[i-1].Combiner == version.CombinerOr {
					b.WriteString("| ")
				} else {
					b.WriteString("& ")
				}
			}
			fmt.Fprintf(&b, "%s%s", r.Operator, r.Version)
		}
		b.WriteByte(']')
	}

	if len(p.choices) > 0 {
		b.WriteByte('[')
		for i, c := range p.choices {
			if i > 0 {
				b.WriteByte(',')
			}
			if !c.Enabled {
				b.WriteByte('-')
			}
			b.WriteString(c.Flag)
			switch c.Condition {
			case ConditionEqual:
				b.WriteByte('=')
			case ConditionReverse:
				b.WriteByte('?')
			}
		}
		b.WriteByte(']')
	}

	for _, k := range p.keys {
		fmt.Fprintf(&b, "[.%s=%s]", k.Key, k.Value)
	}

	return b.String()
}
