// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resolver

import (
	"sort"

	"github.com/exherbo-go/resolve/pkg/depspec"
	"github.com/exherbo-go/resolve/pkg/environment"
	"github.com/exherbo-go/resolve/pkg/metadata"
	"github.com/exherbo-go/resolve/pkg/names"
	"github.com/exherbo-go/resolve/pkg/repository"
)

// EntryKind classifies one UninstallList entry (spec §3 "UninstallList
// entry: (PackageID, kind∈{package, virtual, required}, tags)").
type EntryKind int

const (
	EntryPackage EntryKind = iota
	EntryVirtual
	EntryRequired
)

func (k EntryKind) String() string {
	switch k {
	case EntryPackage:
		return "package"
	case EntryVirtual:
		return "virtual"
	case EntryRequired:
		return "required"
	default:
		return "unknown"
	}
}

// UninstallEntry is one scheduled removal.
type UninstallEntry struct {
	ID   *metadata.PackageID
	Kind EntryKind
	Tags []DepTag
}

// UninstallList computes a dependency-respecting removal plan (spec
// §4.3). Zero value is not usable; construct with NewUninstallList.
type UninstallList struct {
	Installed repository.Repository
	World     environment.WorldSet

	WithDependenciesAsErrors bool
	WithUnusedDependencies   bool

	entries  []UninstallEntry
	position map[Resolvent]int
	// HasErrors is set once any entry was recorded as EntryRequired; per
	// spec §4.3 the list must not be executed while this is true.
	HasErrors bool

	reverse map[Resolvent][]Resolvent
	built   bool
}

// NewUninstallList constructs an empty list against the given installed
// store and world set.
func NewUninstallList(installed repository.Repository, world environment.WorldSet) *UninstallList {
	return &UninstallList{
		Installed: installed,
		World:     world,
		position:  make(map[Resolvent]int),
	}
}

// Add schedules id for removal and recursively visits its dependencies,
// scheduling any whose sole remaining reverse-dependent lies inside the
// removal set (spec §4.3).
func (l *UninstallList) Add(id *metadata.PackageID, tags []DepTag) {
	l.addOrMove(id, EntryPackage, tags)
	l.visitDependencies(id)
}

// addOrMove inserts id at the end of the list, or moves its existing
// entry to the end if present, preserving the "leaves last" / "A before
// B when A depends on B" invariant under repeated Add calls.
func (l *UninstallList) addOrMove(id *metadata.PackageID, kind EntryKind, tags []DepTag) {
	resolvent := Resolvent{Name: id.Name(), Slot: id.Slot()}
	if i, ok := l.position[resolvent]; ok {
		entry := l.entries[i]
		entry.Tags = append(entry.Tags, tags...)
		l.entries = append(l.entries[:i], l.entries[i+1:]...)
		for r, p := range l.position {
			if p > i {
				l.position[r] = p - 1
			}
		}
		l.position[resolvent] = len(l.entries)
		l.entries = append(l.entries, entry)
		return
	}
	l.position[resolvent] = len(l.entries)
	l.entries = append(l.entries, UninstallEntry{ID: id, Kind: kind, Tags: tags})
}

func (l *UninstallList) contains(resolvent Resolvent) bool {
	_, ok := l.position[resolvent]
	return ok
}

func (l *UninstallList) protectedByWorld(id *metadata.PackageID) bool {
	if l.World == nil {
		return false
	}
	return l.World.Contains(id.Name())
}

// visitDependencies walks id's build/run/post dependency trees, and for
// every referenced, installed candidate whose every reverse-dependent is
// already scheduled for removal, schedules that candidate too.
func (l *UninstallList) visitDependencies(id *metadata.PackageID) {
	l.ensureReverseIndex()
	forEachDependencySpec(id, l.visitPackageSpec)
}

func (l *UninstallList) visitPackageSpec(spec depspec.PackageDepSpec) {
	if l.Installed == nil || spec.Selector() != depspec.NameQualified {
		return
	}
	ids, err := l.Installed.IDs(spec.QualifiedName())
	if err != nil {
		return
	}
	for _, candidate := range ids {
		if !Matches(candidate, spec) {
			continue
		}
		resolvent := Resolvent{Name: candidate.Name(), Slot: candidate.Slot()}
		if l.contains(resolvent) {
			continue
		}
		if !l.soleReverseDependentsScheduled(resolvent) {
			continue
		}
		if l.protectedByWorld(candidate) {
			continue
		}
		kind := EntryPackage
		if l.WithDependenciesAsErrors {
			kind = EntryRequired
			l.HasErrors = true
		}
		l.addOrMove(candidate, kind, []DepTag{UnusedTag{}})
		l.visitDependencies(candidate)
	}
}

// soleReverseDependentsScheduled reports whether every installed package
// that depends on resolvent is already present in the list (i.e. removing
// resolvent leaves no surviving reverse-dependent).
func (l *UninstallList) soleReverseDependentsScheduled(resolvent Resolvent) bool {
	for _, dependentResolvent := range l.reverse[resolvent] {
		if !l.contains(dependentResolvent) {
			return false
		}
	}
	return true
}

// ensureReverseIndex builds, once, a map from Resolvent to the
// Resolvents of every installed package that depends on it.
func (l *UninstallList) ensureReverseIndex() {
	if l.built || l.Installed == nil {
		l.built = true
		return
	}
	l.reverse = make(map[Resolvent][]Resolvent)
	cats, err := l.Installed.Categories()
	if err != nil {
		l.built = true
		return
	}
	for _, cat := range cats {
		pkgs, err := l.Installed.Packages(cat)
		if err != nil {
			continue
		}
		for _, pkg := range pkgs {
			qpn := names.QualifiedPackageName{Category: cat, Package: pkg}
			ids, err := l.Installed.IDs(qpn)
			if err != nil {
				continue
			}
			for _, id := range ids {
				dependentResolvent := Resolvent{Name: id.Name(), Slot: id.Slot()}
				l.collectReverseEdges(id, dependentResolvent)
			}
		}
	}
	l.built = true
}

func (l *UninstallList) collectReverseEdges(id *metadata.PackageID, dependentResolvent Resolvent) {
	forEachDependencySpec(id, func(spec depspec.PackageDepSpec) {
		if spec.Selector() != depspec.NameQualified {
			return
		}
		ids, err := l.Installed.IDs(spec.QualifiedName())
		if err != nil {
			return
		}
		for _, candidate := range ids {
			if !Matches(candidate, spec) {
				continue
			}
			r := Resolvent{Name: candidate.Name(), Slot: candidate.Slot()}
			l.reverse[r] = append(l.reverse[r], dependentResolvent)
		}
	})
}

func forEachPackageSpec(node depspec.Node, fn func(depspec.PackageDepSpec)) {
	switch n := node.(type) {
	case depspec.AllNode:
		for _, c := range n.Children {
			forEachPackageSpec(c, fn)
		}
	case depspec.AnyNode:
		for _, c := range n.Children {
			forEachPackageSpec(c, fn)
		}
	case depspec.ConditionalNode:
		for _, c := range n.Children {
			forEachPackageSpec(c, fn)
		}
	case depspec.PackageNode:
		fn(n.Spec)
	}
}

// Entries returns the scheduled removals in order; for any two entries
// A, B with A depending on B, A precedes B.
func (l *UninstallList) Entries() []UninstallEntry {
	return append([]UninstallEntry{}, l.entries...)
}

// Unused computes the world-closure unused set (spec §4.2 "Unused-
// dependency collection"): installed packages not reachable, via
// build/run/post dependencies, from the world set's fixed point closure.
// The result is ordered dependencies-first, the same convention Resolve
// uses, so a caller can feed it straight into an uninstall plan in
// reverse.
func Unused(installed repository.Repository, world environment.WorldSet) ([]*metadata.PackageID, error) {
	if installed == nil {
		return nil, nil
	}
	cats, err := installed.Categories()
	if err != nil {
		return nil, err
	}
	all := make(map[Resolvent]*metadata.PackageID)
	var allOrder []Resolvent
	for _, cat := range cats {
		pkgs, err := installed.Packages(cat)
		if err != nil {
			continue
		}
		for _, pkg := range pkgs {
			qpn := names.QualifiedPackageName{Category: cat, Package: pkg}
			ids, err := installed.IDs(qpn)
			if err != nil {
				continue
			}
			for _, id := range ids {
				resolvent := Resolvent{Name: id.Name(), Slot: id.Slot()}
				all[resolvent] = id
				allOrder = append(allOrder, resolvent)
			}
		}
	}
	sort.Slice(allOrder, func(i, j int) bool { return allOrder[i].String() < allOrder[j].String() })

	reachable := make(map[Resolvent]bool)
	var visitReachable func(id *metadata.PackageID)
	visitReachable = func(id *metadata.PackageID) {
		resolvent := Resolvent{Name: id.Name(), Slot: id.Slot()}
		if reachable[resolvent] {
			return
		}
		reachable[resolvent] = true
		forEachDependencySpec(id, func(spec depspec.PackageDepSpec) {
			if spec.Selector() != depspec.NameQualified {
				return
			}
			ids, err := installed.IDs(spec.QualifiedName())
			if err != nil {
				return
			}
			for _, candidate := range ids {
				if Matches(candidate, spec) {
					visitReachable(candidate)
				}
			}
		})
	}
	if world != nil {
		for _, name := range world.Entries() {
			for _, resolvent := range allOrder {
				if resolvent.Name == name {
					visitReachable(all[resolvent])
				}
			}
		}
	}

	emitted := make(map[Resolvent]bool)
	var unused []*metadata.PackageID
	var emit func(resolvent Resolvent)
	emit = func(resolvent Resolvent) {
		if emitted[resolvent] || reachable[resolvent] {
			return
		}
		emitted[resolvent] = true
		id := all[resolvent]
		forEachDependencySpec(id, func(spec depspec.PackageDepSpec) {
			if spec.Selector() != depspec.NameQualified {
				return
			}
			ids, err := installed.IDs(spec.QualifiedName())
			if err != nil {
				return
			}
			for _, candidate := range ids {
				if Matches(candidate, spec) {
					emit(Resolvent{Name: candidate.Name(), Slot: candidate.Slot()})
				}
			}
		})
		unused = append(unused, id)
	}
	for _, resolvent := range allOrder {
		emit(resolvent)
	}
	return unused, nil
}

// forEachDependencySpec calls fn for every PackageDepSpec leaf in id's
// build/run/post dependency trees.
func forEachDependencySpec(id *metadata.PackageID, fn func(depspec.PackageDepSpec)) {
	for _, key := range []string{metadata.KeyBuildDependencies, metadata.KeyRunDependencies, metadata.KeyPostDependencies} {
		mk, ok := id.Key(key)
		if !ok {
			continue
		}
		tree, ok := mk.(metadata.SpecTreeKey[depspec.AllNode])
		if !ok {
			continue
		}
		forEachPackageSpec(tree.Value, fn)
	}
}
