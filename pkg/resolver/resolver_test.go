// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exherbo-go/resolve/pkg/depspec"
	"github.com/exherbo-go/resolve/pkg/environment"
	"github.com/exherbo-go/resolve/pkg/metadata"
	"github.com/exherbo-go/resolve/pkg/names"
	"github.com/exherbo-go/resolve/pkg/repository"
	"github.com/exherbo-go/resolve/pkg/version"
)

// memRepo is a minimal in-memory Repository, local to this package's
// tests; a real backend (NDBAM, an ebuild tree) lives in its own package.
type memRepo struct {
	name names.RepositoryName
	ids  map[names.QualifiedPackageName][]*metadata.PackageID
}

func (r *memRepo) Name() names.RepositoryName          { return r.name }
func (r *memRepo) Supports(repository.Capability) bool { return false }
func (r *memRepo) Categories() ([]names.CategoryNamePart, error) {
	seen := map[names.CategoryNamePart]bool{}
	var out []names.CategoryNamePart
	for qpn := range r.ids {
		if !seen[qpn.Category] {
			seen[qpn.Category] = true
			out = append(out, qpn.Category)
		}
	}
	return out, nil
}
func (r *memRepo) Packages(cat names.CategoryNamePart) ([]names.PackageNamePart, error) {
	var out []names.PackageNamePart
	for qpn := range r.ids {
		if qpn.Category == cat {
			out = append(out, qpn.Package)
		}
	}
	return out, nil
}
func (r *memRepo) IDs(qpn names.QualifiedPackageName) ([]*metadata.PackageID, error) {
	return r.ids[qpn], nil
}
func (r *memRepo) HasCategory(cat names.CategoryNamePart) (bool, error) {
	cats, _ := r.Categories()
	for _, c := range cats {
		if c == cat {
			return true, nil
		}
	}
	return false, nil
}
func (r *memRepo) HasPackage(qpn names.QualifiedPackageName) (bool, error) {
	_, ok := r.ids[qpn]
	return ok, nil
}
func (r *memRepo) AcceptKeywordsHint() []names.KeywordName { return nil }
func (r *memRepo) FormatKey() metadata.StringKey {
	return metadata.NewStringKey("format", "Format", metadata.KeyTypeInternal, "mem")
}
func (r *memRepo) InstalledRootKey() metadata.PathKey {
	return metadata.NewPathKey("installed_root", "Installed root", metadata.KeyTypeInternal, "/")
}

var _ repository.Repository = (*memRepo)(nil)

type memWorld struct {
	set map[names.QualifiedPackageName]bool
}

func newMemWorld() *memWorld { return &memWorld{set: map[names.QualifiedPackageName]bool{}} }

func (w *memWorld) Contains(qpn names.QualifiedPackageName) bool { return w.set[qpn] }
func (w *memWorld) Add(qpn names.QualifiedPackageName)           { w.set[qpn] = true }
func (w *memWorld) Remove(qpn names.QualifiedPackageName)        { delete(w.set, qpn) }
func (w *memWorld) Entries() []names.QualifiedPackageName {
	out := make([]names.QualifiedPackageName, 0, len(w.set))
	for k := range w.set {
		out = append(out, k)
	}
	return out
}

func mustQPN(t *testing.T, s string) names.QualifiedPackageName {
	t.Helper()
	qpn, err := names.NewQualifiedPackageName(s)
	require.NoErrorf(t, err, "NewQualifiedPackageName(%q)", s)
	return qpn
}

// keywords builds a KeyKeywords CollectionKey[string], required for
// Environment.AcceptKeywords to report true.
func keywords(values ...string) metadata.MetadataKey {
	return metadata.NewCollectionKey(metadata.KeyKeywords, "Keywords", metadata.KeyTypeNormal, values)
}

func dependsOn(spec depspec.PackageDepSpec) metadata.MetadataKey {
	tree := depspec.AllNode{Children: []depspec.Node{depspec.PackageNode{Spec: spec}}}
	return metadata.NewSpecTreeKey(metadata.KeyRunDependencies, "Run dependencies", metadata.KeyTypeDependencies, depspec.TreeDependency, tree)
}

// dependsOnAnnotated parses depStr (a full dependency-tree string, e.g.
// "cat/b [[ break-cycle = true ]]") so the resulting node carries real
// annotations, which depspec.Node has no exported constructor for.
func dependsOnAnnotated(t *testing.T, depStr string) metadata.MetadataKey {
	t.Helper()
	tree, err := depspec.Parse(depStr, depspec.TreeDependency, depspec.DefaultParseOptions())
	require.NoErrorf(t, err, "Parse(%q)", depStr)
	return metadata.NewSpecTreeKey(metadata.KeyRunDependencies, "Run dependencies", metadata.KeyTypeDependencies, depspec.TreeDependency, tree)
}

func newTestEnvironment(t *testing.T, repos ...repository.Repository) *environment.Environment {
	t.Helper()
	env := environment.New(environment.Config{AcceptKeywords: []string{"*"}}, newMemWorld())
	for _, r := range repos {
		env.AddRepository(r, 0)
	}
	return env
}

func TestResolverInstallsLeafBeforeDependent(t *testing.T) {
	leafQPN := mustQPN(t, "cat/leaf")
	topQPN := mustQPN(t, "cat/top")

	leafSpec, err := depspec.NewPackageDepSpecBuilder(leafQPN).Build()
	require.NoError(t, err)
	leaf := metadata.NewPackageID(leafQPN, version.MustParse("1"), "0", 0, "gentoo", 0, "",
		map[string]metadata.MetadataKey{metadata.KeyKeywords: keywords("amd64")}, nil, nil)
	top := metadata.NewPackageID(topQPN, version.MustParse("1"), "0", 0, "gentoo", 1, "",
		map[string]metadata.MetadataKey{
			metadata.KeyKeywords:        keywords("amd64"),
			metadata.KeyRunDependencies: dependsOn(leafSpec),
		}, nil, nil)

	repo := &memRepo{name: "gentoo", ids: map[names.QualifiedPackageName][]*metadata.PackageID{
		leafQPN: {leaf},
		topQPN:  {top},
	}}
	env := newTestEnvironment(t, repo)

	topSpec, err := depspec.NewPackageDepSpecBuilder(topQPN).Build()
	require.NoError(t, err)
	r := New(env, nil, ReinstallNever)
	r.AddTarget(topSpec)
	decisions, err := r.Resolve()
	require.NoError(t, err, "Resolve")
	require.Len(t, decisions, 2)
	assert.Equal(t, leafQPN, decisions[0].Resolvent.Name, "expected leaf resolved first")
	assert.Equal(t, topQPN, decisions[1].Resolvent.Name, "expected top resolved last")
	for _, d := range decisions {
		assert.Equalf(t, DecisionInstall, d.Kind, "%v: expected DecisionInstall", d.Resolvent)
	}
}

func TestResolverCircularDependencyError(t *testing.T) {
	aQPN := mustQPN(t, "cat/a")
	bQPN := mustQPN(t, "cat/b")
	aSpec, err := depspec.NewPackageDepSpecBuilder(aQPN).Build()
	require.NoError(t, err)
	bSpec, err := depspec.NewPackageDepSpecBuilder(bQPN).Build()
	require.NoError(t, err)

	a := metadata.NewPackageID(aQPN, version.MustParse("1"), "0", 0, "gentoo", 0, "",
		map[string]metadata.MetadataKey{
			metadata.KeyKeywords:        keywords("amd64"),
			metadata.KeyRunDependencies: dependsOn(bSpec),
		}, nil, nil)
	b := metadata.NewPackageID(bQPN, version.MustParse("1"), "0", 0, "gentoo", 1, "",
		map[string]metadata.MetadataKey{
			metadata.KeyKeywords:        keywords("amd64"),
			metadata.KeyRunDependencies: dependsOn(aSpec),
		}, nil, nil)

	repo := &memRepo{name: "gentoo", ids: map[names.QualifiedPackageName][]*metadata.PackageID{
		aQPN: {a},
		bQPN: {b},
	}}
	env := newTestEnvironment(t, repo)
	r := New(env, nil, ReinstallNever)
	r.AddTarget(aSpec)
	_, err = r.Resolve()
	var cerr *CircularDependencyError
	require.ErrorAsf(t, err, &cerr, "expected *CircularDependencyError, got %T: %v", err, err)
}

func TestResolverCircularDependencyBrokenByAnnotation(t *testing.T) {
	aQPN := mustQPN(t, "cat/a")
	bQPN := mustQPN(t, "cat/b")
	aSpec, err := depspec.NewPackageDepSpecBuilder(aQPN).Build()
	require.NoError(t, err)

	a := metadata.NewPackageID(aQPN, version.MustParse("1"), "0", 0, "gentoo", 0, "",
		map[string]metadata.MetadataKey{
			metadata.KeyKeywords:        keywords("amd64"),
			metadata.KeyRunDependencies: dependsOnAnnotated(t, "cat/b"),
		}, nil, nil)
	// The annotation sits on b's edge back to a, the edge that closes the
	// cycle when resolution starts from a.
	b := metadata.NewPackageID(bQPN, version.MustParse("1"), "0", 0, "gentoo", 1, "",
		map[string]metadata.MetadataKey{
			metadata.KeyKeywords:        keywords("amd64"),
			metadata.KeyRunDependencies: dependsOnAnnotated(t, "cat/a [[ break-cycle = true ]]"),
		}, nil, nil)

	repo := &memRepo{name: "gentoo", ids: map[names.QualifiedPackageName][]*metadata.PackageID{
		aQPN: {a},
		bQPN: {b},
	}}
	env := newTestEnvironment(t, repo)
	r := New(env, nil, ReinstallNever)
	r.AddTarget(aSpec)
	decisions, err := r.Resolve()
	require.NoError(t, err, "expected the annotated edge to break the cycle instead of erroring")
	require.Len(t, decisions, 2)
}

func TestResolverAllMasked(t *testing.T) {
	qpn := mustQPN(t, "cat/missing")
	spec, err := depspec.NewPackageDepSpecBuilder(qpn).Build()
	require.NoError(t, err)
	env := newTestEnvironment(t, &memRepo{name: "gentoo", ids: map[names.QualifiedPackageName][]*metadata.PackageID{}})
	r := New(env, nil, ReinstallNever)
	r.AddTarget(spec)
	_, err = r.Resolve()
	var aerr *AllMaskedError
	require.ErrorAsf(t, err, &aerr, "expected *AllMaskedError, got %T: %v", err, err)
}

func TestResolverReinstallPolicy(t *testing.T) {
	qpn := mustQPN(t, "cat/pkg")
	available := metadata.NewPackageID(qpn, version.MustParse("1"), "0", 0, "gentoo", 0, "",
		map[string]metadata.MetadataKey{metadata.KeyKeywords: keywords("amd64")}, nil, nil)
	installed := metadata.NewPackageID(qpn, version.MustParse("1"), "0", 0, "installed", 0, "",
		map[string]metadata.MetadataKey{metadata.KeyKeywords: keywords("amd64")}, nil, nil)

	availRepo := &memRepo{name: "gentoo", ids: map[names.QualifiedPackageName][]*metadata.PackageID{qpn: {available}}}
	instRepo := &memRepo{name: "installed", ids: map[names.QualifiedPackageName][]*metadata.PackageID{qpn: {installed}}}

	env := newTestEnvironment(t, availRepo)
	spec, err := depspec.NewPackageDepSpecBuilder(qpn).Build()
	require.NoError(t, err)

	r := New(env, instRepo, ReinstallNever)
	r.AddTarget(spec)
	decisions, err := r.Resolve()
	require.NoError(t, err, "Resolve")
	assert.Equal(t, DecisionNoChange, decisions[0].Kind, "ReinstallNever: expected no-change")

	r2 := New(env, instRepo, ReinstallAlways)
	r2.AddTarget(spec)
	decisions2, err := r2.Resolve()
	require.NoError(t, err, "Resolve")
	assert.Equal(t, DecisionReinstall, decisions2[0].Kind, "ReinstallAlways: expected reinstall")
}

func TestResolveAnyGroupBreaksTiesLeftToRight(t *testing.T) {
	topQPN := mustQPN(t, "cat/top")
	preferredQPN := mustQPN(t, "cat/preferred")
	fallbackQPN := mustQPN(t, "cat/fallback")

	preferredSpec, err := depspec.NewPackageDepSpecBuilder(preferredQPN).Build()
	require.NoError(t, err)
	fallbackSpec, err := depspec.NewPackageDepSpecBuilder(fallbackQPN).Build()
	require.NoError(t, err)

	preferred := metadata.NewPackageID(preferredQPN, version.MustParse("1"), "0", 0, "gentoo", 0, "",
		map[string]metadata.MetadataKey{metadata.KeyKeywords: keywords("amd64")}, nil, nil)
	fallback := metadata.NewPackageID(fallbackQPN, version.MustParse("1"), "0", 0, "gentoo", 1, "",
		map[string]metadata.MetadataKey{metadata.KeyKeywords: keywords("amd64")}, nil, nil)

	anyGroup := depspec.AllNode{Children: []depspec.Node{
		depspec.AnyNode{Children: []depspec.Node{
			depspec.PackageNode{Spec: fallbackSpec},
			depspec.PackageNode{Spec: preferredSpec},
		}},
	}}
	top := metadata.NewPackageID(topQPN, version.MustParse("1"), "0", 0, "gentoo", 2, "",
		map[string]metadata.MetadataKey{
			metadata.KeyKeywords: keywords("amd64"),
			metadata.KeyRunDependencies: metadata.NewSpecTreeKey(
				metadata.KeyRunDependencies, "Run dependencies", metadata.KeyTypeDependencies, depspec.TreeDependency, anyGroup),
		}, nil, nil)

	repo := &memRepo{name: "gentoo", ids: map[names.QualifiedPackageName][]*metadata.PackageID{
		topQPN:       {top},
		preferredQPN: {preferred},
		fallbackQPN:  {fallback},
	}}
	env := newTestEnvironment(t, repo)
	topSpec, err := depspec.NewPackageDepSpecBuilder(topQPN).Build()
	require.NoError(t, err)
	r := New(env, nil, ReinstallNever)
	r.AddTarget(topSpec)
	decisions, err := r.Resolve()
	require.NoError(t, err, "Resolve")
	require.Len(t, decisions, 2, "any-group should pick exactly one member")
	assert.Equal(t, fallbackQPN, decisions[0].Resolvent.Name,
		"expected left-to-right first eligible member (fallback) picked on equal scores")
}

// fakeSetExpander is a minimal SetExpander, local to this package's
// tests; pkg/sets supplies the real set-file-backed implementation.
type fakeSetExpander struct {
	specs map[string][]depspec.PackageDepSpec
}

func (f *fakeSetExpander) Expand(name string) ([]depspec.PackageDepSpec, error) {
	return f.specs[name], nil
}

func TestResolverExpandsNamedSet(t *testing.T) {
	topQPN := mustQPN(t, "cat/top")
	memberQPN := mustQPN(t, "cat/member")

	memberSpec, err := depspec.NewPackageDepSpecBuilder(memberQPN).Build()
	require.NoError(t, err)
	member := metadata.NewPackageID(memberQPN, version.MustParse("1"), "0", 0, "gentoo", 0, "",
		map[string]metadata.MetadataKey{metadata.KeyKeywords: keywords("amd64")}, nil, nil)

	tree := depspec.AllNode{Children: []depspec.Node{depspec.NamedSetNode{Name: "mygroup"}}}
	top := metadata.NewPackageID(topQPN, version.MustParse("1"), "0", 0, "gentoo", 1, "",
		map[string]metadata.MetadataKey{
			metadata.KeyKeywords: keywords("amd64"),
			metadata.KeyRunDependencies: metadata.NewSpecTreeKey(
				metadata.KeyRunDependencies, "Run dependencies", metadata.KeyTypeDependencies, depspec.TreeDependency, tree),
		}, nil, nil)

	repo := &memRepo{name: "gentoo", ids: map[names.QualifiedPackageName][]*metadata.PackageID{
		topQPN:    {top},
		memberQPN: {member},
	}}
	env := newTestEnvironment(t, repo)
	topSpec, err := depspec.NewPackageDepSpecBuilder(topQPN).Build()
	require.NoError(t, err)

	r := New(env, nil, ReinstallNever)
	r.Sets = &fakeSetExpander{specs: map[string][]depspec.PackageDepSpec{"mygroup": {memberSpec}}}
	r.AddTarget(topSpec)
	decisions, err := r.Resolve()
	require.NoError(t, err, "Resolve")
	require.Len(t, decisions, 2, "expected the named set's member pulled in as a dependency")
	assert.Equal(t, memberQPN, decisions[0].Resolvent.Name, "expected the set member resolved before its dependent")
}
