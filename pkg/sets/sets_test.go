// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exherbo-go/resolve/pkg/metadata"
	"github.com/exherbo-go/resolve/pkg/names"
	"github.com/exherbo-go/resolve/pkg/repository"
	"github.com/exherbo-go/resolve/pkg/version"
)

func mustQPN(t *testing.T, s string) names.QualifiedPackageName {
	t.Helper()
	qpn, err := names.NewQualifiedPackageName(s)
	require.NoErrorf(t, err, "NewQualifiedPackageName(%q)", s)
	return qpn
}

func TestParseSimpleSkipsCommentsAndBlanks(t *testing.T) {
	r := strings.NewReader("# a comment\n\ncat/foo\ncat/bar cat/baz\n")
	entries, err := ParseSimple(r)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "cat/foo", entries[0].Spec.QualifiedName().String())
}

func TestParseSimpleCategorylessNameIsSetRef(t *testing.T) {
	r := strings.NewReader("system\n")
	entries, err := ParseSimple(r)
	require.NoError(t, err)
	require.Lenf(t, entries, 1, "expected a single set reference to 'system', got %+v", entries)
	assert.Equal(t, "system", entries[0].SetRef)
}

func TestParsePaludisConfOperators(t *testing.T) {
	r := strings.NewReader("*cat/foo\n?cat/bar\n?:cat/baz:0\ncat/qux\n")
	var warnings []string
	entries, err := ParsePaludisConf(r, func(s string) { warnings = append(warnings, s) })
	require.NoError(t, err)
	require.Len(t, entries, 4)
	want := []Operator{OpInclude, OpIfAnyVersion, OpIfSlotMatches, OpInclude}
	for i, op := range want {
		assert.Equalf(t, op, entries[i].Operator, "entry %d", i)
	}
	assert.Lenf(t, warnings, 1, "expected exactly one warning for the operator-less line, got %v", warnings)
}

// fakeInstalled is a minimal Repository fake with only the one package
// cat/foo, installed at slot "1".
type fakeInstalled struct {
	qpn names.QualifiedPackageName
	id  *metadata.PackageID
}

func newFakeInstalled(t *testing.T) *fakeInstalled {
	qpn := mustQPN(t, "cat/foo")
	id := metadata.NewPackageID(qpn, version.MustParse("2"), "1", 0, "installed", 0, "", nil, nil, nil)
	return &fakeInstalled{qpn: qpn, id: id}
}

func (f *fakeInstalled) Name() names.RepositoryName          { return "installed" }
func (f *fakeInstalled) Supports(repository.Capability) bool { return false }
func (f *fakeInstalled) Categories() ([]names.CategoryNamePart, error) {
	return []names.CategoryNamePart{f.qpn.Category}, nil
}
func (f *fakeInstalled) Packages(names.CategoryNamePart) ([]names.PackageNamePart, error) {
	return []names.PackageNamePart{f.qpn.Package}, nil
}
func (f *fakeInstalled) IDs(qpn names.QualifiedPackageName) ([]*metadata.PackageID, error) {
	if qpn == f.qpn {
		return []*metadata.PackageID{f.id}, nil
	}
	return nil, nil
}
func (f *fakeInstalled) HasCategory(cat names.CategoryNamePart) (bool, error) {
	return cat == f.qpn.Category, nil
}
func (f *fakeInstalled) HasPackage(qpn names.QualifiedPackageName) (bool, error) {
	return qpn == f.qpn, nil
}
func (f *fakeInstalled) AcceptKeywordsHint() []names.KeywordName { return nil }
func (f *fakeInstalled) FormatKey() metadata.StringKey {
	return metadata.NewStringKey("format", "Format", metadata.KeyTypeInternal, "mem")
}
func (f *fakeInstalled) InstalledRootKey() metadata.PathKey {
	return metadata.NewPathKey("installed_root", "Installed root", metadata.KeyTypeInternal, "/")
}

var _ repository.Repository = (*fakeInstalled)(nil)

func TestResolverIfAnyVersionOperator(t *testing.T) {
	installed := newFakeInstalled(t)
	entries, err := ParsePaludisConf(strings.NewReader("?cat/foo\n?cat/notinstalled\n"), nil)
	require.NoError(t, err)
	r := &Resolver{Installed: installed}
	got, err := r.Resolve(entries, false)
	require.NoError(t, err)
	require.Lenf(t, got, 1, "expected only cat/foo, got %+v", got)
	assert.Equal(t, installed.qpn, got[0])
}

func TestResolverSlotOperatorExactMatchAndMismatch(t *testing.T) {
	installed := newFakeInstalled(t)
	r := &Resolver{Installed: installed}

	matching, err := ParsePaludisConf(strings.NewReader("?:cat/foo:1\n"), nil)
	require.NoError(t, err)
	got, err := r.Resolve(matching, false)
	require.NoError(t, err)
	assert.Lenf(t, got, 1, "expected slot-exact match to include cat/foo, got %+v", got)

	mismatched, err := ParsePaludisConf(strings.NewReader("?:cat/foo:2\n"), nil)
	require.NoError(t, err)
	got, err = r.Resolve(mismatched, false)
	require.NoError(t, err)
	assert.Lenf(t, got, 0, "expected slot mismatch to exclude cat/foo, got %+v", got)
}

func TestResolverStarModeForcesUnconditionalInclude(t *testing.T) {
	// No installed package at all, but star mode must include the "?"
	// line unconditionally.
	r := &Resolver{Installed: &fakeInstalled{qpn: mustQPN(t, "cat/other")}}
	entries, err := ParsePaludisConf(strings.NewReader("?cat/foo\n"), nil)
	require.NoError(t, err)
	got, err := r.Resolve(entries, true)
	require.NoError(t, err)
	assert.Lenf(t, got, 1, "expected star mode to force inclusion, got %+v", got)
}

func TestResolverFollowsSetReferences(t *testing.T) {
	parent, err := ParsePaludisConf(strings.NewReader("cat/parent\n"), nil)
	require.NoError(t, err)
	load := func(name string) ([]ConfEntry, error) {
		if name == "system" {
			return parent, nil
		}
		return nil, nil
	}
	r := &Resolver{Load: load}
	entries, err := ParseSimple(strings.NewReader("system\ncat/child\n"))
	require.NoError(t, err)
	var conf []ConfEntry
	for _, e := range entries {
		conf = append(conf, ConfEntry{Operator: OpInclude, Entry: e})
	}
	got, err := r.Resolve(conf, false)
	require.NoError(t, err)
	assert.Lenf(t, got, 2, "expected both cat/parent and cat/child, got %+v", got)
}

func TestResolverDetectsSetCycle(t *testing.T) {
	selfRef, _ := ParseSimple(strings.NewReader("loop\n"))
	load := func(name string) ([]ConfEntry, error) {
		var conf []ConfEntry
		for _, e := range selfRef {
			conf = append(conf, ConfEntry{Operator: OpInclude, Entry: e})
		}
		return conf, nil
	}
	r := &Resolver{Load: load}
	_, err := r.Resolve([]ConfEntry{{Operator: OpInclude, Entry: Entry{SetRef: "loop"}}}, false)
	var cerr *CycleError
	require.ErrorAsf(t, err, &cerr, "expected *CycleError, got %T: %v", err, err)
}

func TestSimpleSetSaveLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/world"

	s := NewSimpleSet()
	s.Add(mustQPN(t, "cat/foo"))
	s.Add(mustQPN(t, "cat/bar"))
	require.NoError(t, s.Save(path))

	loaded := NewSimpleSet()
	require.NoError(t, loaded.Load(path))
	assert.Truef(t, loaded.Contains(mustQPN(t, "cat/foo")) && loaded.Contains(mustQPN(t, "cat/bar")),
		"expected both entries to round-trip, got %+v", loaded.Entries())
}

func TestSimpleSetLoadMissingFileIsEmpty(t *testing.T) {
	s := NewSimpleSet()
	s.Add(mustQPN(t, "cat/foo"))
	require.NoError(t, s.Load("/nonexistent/path/to/a/world/file"))
	assert.Emptyf(t, s.Entries(), "expected load of a missing file to reset to empty, got %+v", s.Entries())
}

func TestSimpleSetRemove(t *testing.T) {
	s := NewSimpleSet()
	qpn := mustQPN(t, "cat/foo")
	s.Add(qpn)
	s.Remove(qpn)
	assert.False(t, s.Contains(qpn), "expected qpn to be removed")
	assert.Empty(t, s.Entries())
}
