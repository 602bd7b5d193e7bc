// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resolver

import (
	"sort"

	"github.com/exherbo-go/resolve/pkg/depspec"
	"github.com/exherbo-go/resolve/pkg/environment"
	"github.com/exherbo-go/resolve/pkg/metadata"
	"github.com/exherbo-go/resolve/pkg/repository"
)

// Resolver implements the Planner (spec §4.2): given a set of target
// PackageDepSpecs and the current Environment, it computes an ordered
// list of Decisions, one per Resolvent.
type Resolver struct {
	Environment *environment.Environment
	// Installed is the Repository consulted for "what's already in
	// place"; nil means nothing is considered installed (every target
	// resolves to a fresh install).
	Installed repository.Repository
	Policy    ReinstallPolicy
	// Sets expands a depspec.NamedSetNode ("@world" and friends) into
	// the PackageDepSpecs it stands for. Nil means named-set dependency
	// nodes are silently skipped; pkg/sets provides a concrete
	// implementation over its own set-file parsing machinery, kept out
	// of this package's own dependencies.
	Sets SetExpander

	targets []depspec.PackageDepSpec

	decisions map[Resolvent]*Decision
	visiting  map[Resolvent]bool
	stack     []Resolvent
	order     []Resolvent
}

// New constructs an empty Resolver.
func New(env *environment.Environment, installed repository.Repository, policy ReinstallPolicy) *Resolver {
	return &Resolver{
		Environment: env,
		Installed:   installed,
		Policy:      policy,
		decisions:   make(map[Resolvent]*Decision),
		visiting:    make(map[Resolvent]bool),
	}
}

// AddTarget registers a user-specified target (spec §4.2 "add_target(spec)").
func (r *Resolver) AddTarget(spec depspec.PackageDepSpec) {
	r.targets = append(r.targets, spec)
}

// depKind distinguishes which of the three dependency keys a tree node
// was reached through; only run and post edges are eligible for the
// explicit-annotation cycle break in spec §4.2 step 6.
type depKind int

const (
	depKindBuild depKind = iota
	depKindRun
	depKindPost
)

// breaksCycle reports whether ann marks its edge as allowed to close a
// cycle rather than raise CircularDependencyError, per spec §4.2 step 6
// ("cycles in run/post broken by explicit annotation"). Build-dependency
// edges are never eligible.
func breaksCycle(kind depKind, ann map[string]string) bool {
	if kind == depKindBuild {
		return false
	}
	return ann["break-cycle"] == "true"
}

// Resolve runs the algorithm described in spec §4.2 and returns the
// ordered Decision list (dependencies before dependents, i.e. safe
// install order).
func (r *Resolver) Resolve() ([]Decision, error) {
	for _, spec := range r.targets {
		if _, err := r.resolveSpec(spec, nil, []DepTag{TargetTag{}}, depKindBuild, false); err != nil {
			return nil, err
		}
	}

	out := make([]Decision, 0, len(r.order))
	for _, resolvent := range r.order {
		out = append(out, *r.decisions[resolvent])
	}
	return out, nil
}

// resolveSpec resolves a single PackageDepSpec to a Resolvent, expanding
// its dependencies recursively. dependent is the candidate whose
// dependency tree this spec came from (nil for a top-level target).
// breakCycle is true when the edge that reached spec carries an
// explicit cycle-breaking annotation (meaningless for top-level
// targets, which can never themselves be a cycle's closing edge).
func (r *Resolver) resolveSpec(spec depspec.PackageDepSpec, dependent *metadata.PackageID, tags []DepTag, kind depKind, breakCycle bool) (Resolvent, error) {
	if spec.Selector() != depspec.NameQualified {
		return Resolvent{}, &AdditionalRequirementsNotMetError{Query: spec}
	}

	candidates := r.candidatesFor(spec)
	if len(candidates) == 0 {
		return Resolvent{}, &AllMaskedError{Query: spec}
	}
	best := pickBest(candidates, r.Environment)
	var subjectEnabled func(flag string) bool
	if dependent != nil {
		subjectEnabled = func(flag string) bool { return r.Environment.WantChoice(dependent, flag) }
	}
	if !MatchesChoices(spec, func(flag string) bool { return r.Environment.WantChoice(best, flag) }, subjectEnabled) {
		return Resolvent{}, &AdditionalRequirementsNotMetError{Query: spec}
	}
	resolvent := Resolvent{Name: best.Name(), Slot: best.Slot()}

	// The in-progress check must run before the completed-decisions
	// check: a resolvent still on r.stack also already has a decision
	// entry (set below, alongside r.visiting, before recursing into its
	// own dependencies), so checking decisions first would treat every
	// direct cycle as an already-satisfied shared dependency instead.
	if r.visiting[resolvent] {
		if breakCycle {
			return resolvent, nil
		}
		cycle := append(append([]Resolvent{}, r.stack...), resolvent)
		return Resolvent{}, &CircularDependencyError{Cycle: cycle}
	}

	if existing, ok := r.decisions[resolvent]; ok {
		if existing.To != nil && existing.To.Equal(best) {
			existing.Tags = append(existing.Tags, tags...)
			return resolvent, nil
		}
		return Resolvent{}, &AdditionalRequirementsNotMetError{Query: spec}
	}

	installed := r.installedFor(resolvent)
	kindDecision, err := r.classify(best, installed)
	if err != nil {
		return Resolvent{}, err
	}

	decision := &Decision{Resolvent: resolvent, Kind: kindDecision, From: installed, To: best, Tags: tags}
	r.decisions[resolvent] = decision
	r.visiting[resolvent] = true
	r.stack = append(r.stack, resolvent)

	deps := []struct {
		key  string
		kind depKind
	}{
		{metadata.KeyBuildDependencies, depKindBuild},
		{metadata.KeyRunDependencies, depKindRun},
		{metadata.KeyPostDependencies, depKindPost},
	}
	for _, d := range deps {
		mk, ok := best.Key(d.key)
		if !ok {
			continue
		}
		tree, ok := mk.(metadata.SpecTreeKey[depspec.AllNode])
		if !ok {
			continue
		}
		if err := r.resolveNode(tree.Value, best, d.kind); err != nil {
			return Resolvent{}, err
		}
	}

	r.stack = r.stack[:len(r.stack)-1]
	delete(r.visiting, resolvent)
	r.order = append(r.order, resolvent)
	return resolvent, nil
}

// resolveNode walks one dependency-tree node, recursing into children as
// appropriate (spec §4.2 steps 3-5). kind records which of build/run/post
// this node was reached through, for the cycle-breaking check in
// resolveSpec.
func (r *Resolver) resolveNode(node depspec.Node, dependent *metadata.PackageID, kind depKind) error {
	switch n := node.(type) {
	case depspec.AllNode:
		for _, c := range n.Children {
			if err := r.resolveNode(c, dependent, kind); err != nil {
				return err
			}
		}
	case depspec.ConditionalNode:
		want := !n.Negate
		if r.Environment.WantChoice(dependent, n.Flag) != want {
			return nil
		}
		for _, c := range n.Children {
			if err := r.resolveNode(c, dependent, kind); err != nil {
				return err
			}
		}
	case depspec.AnyNode:
		return r.resolveAnyGroup(n.Children, dependent, kind)
	case depspec.PackageNode:
		tags := []DepTag{DependencyTag{Dependent: dependent}}
		_, err := r.resolveSpec(n.Spec, dependent, tags, kind, breaksCycle(kind, n.Annotations()))
		return err
	case depspec.BlockNode:
		return r.checkBlock(n, dependent)
	case depspec.NamedSetNode:
		return r.resolveNamedSet(n, dependent, kind)
	default:
		return nil
	}
	return nil
}

// SetExpander resolves a depspec.NamedSetNode's name (spec §4.7's set
// files, referenced from a dependency tree as "@name") into the
// PackageDepSpecs it contains. Declared narrowly here, rather than
// imported from pkg/sets, so the planner doesn't need that package's
// set-file parsing machinery just to walk a dependency tree.
type SetExpander interface {
	Expand(name string) ([]depspec.PackageDepSpec, error)
}

func (r *Resolver) resolveNamedSet(n depspec.NamedSetNode, dependent *metadata.PackageID, kind depKind) error {
	if r.Sets == nil {
		return nil
	}
	specs, err := r.Sets.Expand(n.Name)
	if err != nil {
		return err
	}
	tags := []DepTag{DependencyTag{Dependent: dependent}}
	for _, spec := range specs {
		if _, err := r.resolveSpec(spec, dependent, tags, kind, false); err != nil {
			return err
		}
	}
	return nil
}

// resolveAnyGroup implements the any-group scoring rule (spec §4.2 step
// 3): member already satisfied by the installed set > member already
// queued > existing-installable candidate > otherwise best available,
// ties broken left-to-right.
func (r *Resolver) resolveAnyGroup(children []depspec.Node, dependent *metadata.PackageID, kind depKind) error {
	type scored struct {
		node  depspec.Node
		score int
	}
	var options []scored
	for _, c := range children {
		pn, ok := c.(depspec.PackageNode)
		if !ok {
			// Non-package children (nested groups, conditionals) are
			// always eligible; score them as "otherwise best available"
			// so a plain group/conditional is preferred over an
			// unsatisfiable package leaf but not over a real match.
			options = append(options, scored{node: c, score: 1})
			continue
		}
		score := 0
		if r.installedMatches(pn.Spec) {
			score = 3
		} else if r.queuedMatches(pn.Spec) {
			score = 2
		} else if len(r.candidatesFor(pn.Spec)) > 0 {
			score = 1
		}
		options = append(options, scored{node: c, score: score})
	}

	best := -1
	bestIdx := -1
	for i, o := range options {
		if o.score > best {
			best = o.score
			bestIdx = i
		}
	}
	if bestIdx == -1 || best == 0 {
		return &AllMaskedError{}
	}
	return r.resolveNode(options[bestIdx].node, dependent, kind)
}

func (r *Resolver) installedMatches(spec depspec.PackageDepSpec) bool {
	if r.Installed == nil || spec.Selector() != depspec.NameQualified {
		return false
	}
	ids, err := r.Installed.IDs(spec.QualifiedName())
	if err != nil {
		return false
	}
	for _, id := range ids {
		if Matches(id, spec) {
			return true
		}
	}
	return false
}

func (r *Resolver) queuedMatches(spec depspec.PackageDepSpec) bool {
	if spec.Selector() != depspec.NameQualified {
		return false
	}
	for resolvent, d := range r.decisions {
		if resolvent.Name == spec.QualifiedName() && d.To != nil && Matches(d.To, spec) {
			return true
		}
	}
	return false
}

// checkBlock resolves a single BlockNode against the installed set and
// the in-progress plan (spec §4.2 step 5).
func (r *Resolver) checkBlock(n depspec.BlockNode, blockedBy *metadata.PackageID) error {
	if r.Installed != nil && n.Spec.Selector() == depspec.NameQualified {
		ids, err := r.Installed.IDs(n.Spec.QualifiedName())
		if err == nil {
			for _, id := range ids {
				if !Matches(id, n.Spec) {
					continue
				}
				resolvent := Resolvent{Name: id.Name(), Slot: id.Slot()}
				if d, ok := r.decisions[resolvent]; ok && d.From != nil && d.From.Equal(id) && d.Kind != DecisionNoChange {
					// The blocked instance is being replaced by this
					// very plan, so the block is treated as satisfied
					// by that replacement (spec §4.2 step 5); this
					// holds for strong blocks as well as weak ones.
					continue
				}
				if n.Strong {
					return &BlockError{Conflict: BlockConflict{Blocked: blockedBy, Blocking: id, Strong: true}}
				}
			}
		}
	}
	return nil
}

// candidatesFor enumerates every PackageID across the Environment's
// registered repositories that satisfies spec, is not masked, and has an
// accepted keyword. r.Installed is not consulted here.
func (r *Resolver) candidatesFor(spec depspec.PackageDepSpec) []*metadata.PackageID {
	if spec.Selector() != depspec.NameQualified {
		return nil
	}
	var out []*metadata.PackageID
	for _, repo := range r.Environment.Repositories() {
		ids, err := repo.IDs(spec.QualifiedName())
		if err != nil {
			continue
		}
		for _, id := range ids {
			if !Matches(id, spec) {
				continue
			}
			if len(r.Environment.Masks(id)) > 0 {
				continue
			}
			if !r.Environment.AcceptKeywords(id) {
				continue
			}
			out = append(out, id)
		}
	}
	return out
}

func (r *Resolver) installedFor(resolvent Resolvent) *metadata.PackageID {
	if r.Installed == nil {
		return nil
	}
	ids, err := r.Installed.IDs(resolvent.Name)
	if err != nil {
		return nil
	}
	for _, id := range ids {
		if id.Slot() == resolvent.Slot {
			return id
		}
	}
	return nil
}

func (r *Resolver) classify(candidate, installed *metadata.PackageID) (DecisionKind, error) {
	if installed == nil {
		return DecisionInstall, nil
	}
	switch cmp := candidate.Version().Compare(installed.Version()); {
	case cmp > 0:
		return DecisionUpgrade, nil
	case cmp < 0:
		if r.Policy == ReinstallNever {
			return 0, &DowngradeNotAllowedError{Resolvent: Resolvent{Name: candidate.Name(), Slot: candidate.Slot()}}
		}
		return DecisionDowngrade, nil
	default:
		switch r.Policy {
		case ReinstallAlways:
			return DecisionReinstall, nil
		case ReinstallIfChoicesChanged:
			if choicesDiffer(candidate, installed) {
				return DecisionReinstall, nil
			}
			return DecisionNoChange, nil
		default:
			return DecisionNoChange, nil
		}
	}
}

func choicesDiffer(a, b *metadata.PackageID) bool {
	ak, aok := a.Key(metadata.KeyChoices)
	bk, bok := b.Key(metadata.KeyChoices)
	if aok != bok {
		return true
	}
	if !aok {
		return false
	}
	acv, ok1 := ak.(metadata.ChoicesKey)
	bcv, ok2 := bk.(metadata.ChoicesKey)
	if !ok1 || !ok2 || acv.Value == nil || bcv.Value == nil {
		return false
	}
	for _, prefix := range acv.Value.Prefixes() {
		for _, cv := range acv.Value.ForPrefix(prefix) {
			if acv.Value.Enabled(cv.PrefixedName()) != bcv.Value.Enabled(cv.PrefixedName()) {
				return true
			}
		}
	}
	return false
}

// pickBest chooses the single best candidate from a non-empty slice,
// ordering by version (descending) then repository importance (spec §3
// PackageIDComparator).
func pickBest(candidates []*metadata.PackageID, env *environment.Environment) *metadata.PackageID {
	cmp := metadata.PackageIDComparator{Importance: env.Importance}
	sorted := append([]*metadata.PackageID{}, candidates...)
	sort.Slice(sorted, func(i, j int) bool {
		// Higher version first: invert Less's version-ascending order by
		// comparing j before i when versions differ.
		if c := sorted[j].Version().Compare(sorted[i].Version()); c != 0 {
			return c < 0
		}
		return cmp.Less(sorted[i], sorted[j])
	})
	return sorted[0]
}
