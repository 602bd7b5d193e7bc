// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ndbam

import (
	"os"
	"path/filepath"
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

func openTestStore(t *testing.T) *NDBAM {
	t.Helper()
	dir := t.TempDir()
	n, err := Open(dir, "installed", "/")
	require.NoError(t, err, "Open")
	t.Cleanup(func() { n.Close() })
	return n
}

func TestOpenInitializesSkeleton(t *testing.T) {
	n := openTestStore(t)
	assert.Equal(t, 1, n.conf.NDBAMFormat, "expected ndbam_format 1")
	for _, sub := range []string{"data", filepath.Join("indices", "categories"), filepath.Join("indices", "packages")} {
		_, err := os.Stat(filepath.Join(n.location, sub))
		assert.NoErrorf(t, err, "expected %s to exist", sub)
	}
}

func TestOpenRejectsNonEmptyDirWithoutConf(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "junk"), []byte("x"), 0o644))
	_, err := Open(dir, "installed", "/")
	var cerr *ConfigError
	require.ErrorAsf(t, err, &cerr, "expected *ConfigError, got %v (%T)", err, err)
}

func TestOpenRejectsBadFormatPredicate(t *testing.T) {
	dir := t.TempDir()
	_, err := Open(dir, "installed", "/")
	require.NoError(t, err)

	_, err = Open(dir, "installed", "/", WithFormatPredicate(func(string) bool { return false }))
	var cerr *ConfigError
	require.ErrorAsf(t, err, &cerr, "expected *ConfigError, got %v (%T)", err, err)
}

func TestInstallIndexesBothSides(t *testing.T) {
	n := openTestStore(t)
	qpn := mustQPN(t, "app-editors/vim")

	_, err := n.Install(qpn, NewInstance{
		Version:     version.MustParse("8.2"),
		Slot:        "0",
		Description: "a text editor",
		Dirs:        []DirEntry{{Path: "/usr/bin"}},
		Files:       []FileEntry{{Path: "/usr/bin/vim", MD5: "abc123", Mtime: 1000}},
	})
	require.NoError(t, err, "Install")

	cats, err := n.Categories()
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, qpn.Category, cats[0])

	pkgs, err := n.Packages(qpn.Category)
	require.NoError(t, err)
	require.Len(t, pkgs, 1)
	assert.Equal(t, qpn.Package, pkgs[0])

	ids, err := n.IDs(qpn)
	require.NoError(t, err)
	require.Len(t, ids, 1, "expected one installed instance")
	id := ids[0]
	assert.Equal(t, "8.2", id.Version().String())
	assert.Equal(t, names.SlotName("0"), id.Slot())

	k, ok := id.Key(metadata.KeyShortDescription)
	require.True(t, ok, "expected a description key")
	sk, ok := k.(metadata.StringKey)
	require.True(t, ok, "expected a StringKey")
	assert.Equal(t, "a text editor", sk.Value)

	has, err := n.HasPackage(qpn)
	require.NoError(t, err)
	assert.True(t, has)

	containing, err := n.CategoryNamesContainingPackage(qpn.Package)
	require.NoError(t, err)
	require.Len(t, containing, 1)
	assert.Equal(t, qpn.Category, containing[0])
}

func TestContentsIteratorEnumeratesManifest(t *testing.T) {
	n := openTestStore(t)
	qpn := mustQPN(t, "app-editors/vim")

	_, err := n.Install(qpn, NewInstance{
		Version: version.MustParse("1"),
		Slot:    "0",
		Dirs:    []DirEntry{{Path: "/usr/bin"}},
		Files:   []FileEntry{{Path: "/usr/bin/vim", MD5: "x", Mtime: 1}},
	})
	require.NoError(t, err)
	ids, err := n.IDs(qpn)
	require.NoError(t, err)
	require.Len(t, ids, 1)

	it, err := n.Contents(ids[0])
	require.NoError(t, err)
	defer it.Close()

	var got []metadata.ContentsEntry
	for {
		e, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, e)
	}
	assert.Len(t, got, 2)
}

func TestUninstallRemovesBothSymlinksAndData(t *testing.T) {
	n := openTestStore(t)
	qpn := mustQPN(t, "app-editors/vim")

	instanceDir, err := n.Install(qpn, NewInstance{Version: version.MustParse("1"), Slot: "0"})
	require.NoError(t, err)

	require.NoError(t, n.Uninstall(qpn, instanceDir))

	has, err := n.HasPackage(qpn)
	require.NoError(t, err)
	assert.False(t, has, "expected package to no longer be present after uninstall")

	_, err = os.Stat(filepath.Join(n.location, "data", instanceDir))
	assert.Error(t, err, "expected data directory to be removed")
}

func TestAtMostOneInstancePerSlotIsCallerEnforced(t *testing.T) {
	// NDBAM itself stores whatever instances it is asked to index;
	// it is the resolver/installer's job to enforce the "at most one
	// installed instance per (QualifiedPackageName, slot)" invariant
	// (spec §3) before calling Install. Two distinct slots for the same
	// package, however, must both be retained.
	n := openTestStore(t)
	qpn := mustQPN(t, "app-editors/vim")

	_, err := n.Install(qpn, NewInstance{Version: version.MustParse("1"), Slot: "0"})
	require.NoError(t, err)
	_, err = n.Install(qpn, NewInstance{Version: version.MustParse("2"), Slot: "1"})
	require.NoError(t, err)

	ids, err := n.IDs(qpn)
	require.NoError(t, err)
	require.Len(t, ids, 2, "expected both slots retained")
	assert.LessOrEqualf(t, ids[0].Version().Compare(ids[1].Version()), 0, "expected IDs ordered by version")
}

func TestVerifyContentsDetectsTampering(t *testing.T) {
	dir := t.TempDir()
	n, err := Open(dir, "installed", "/", WithDigestCache(filepath.Join(dir, "digest.db")))
	require.NoError(t, err, "Open")
	defer n.Close()

	qpn := mustQPN(t, "app-editors/vim")
	instanceDir, err := n.Install(qpn, NewInstance{
		Version: version.MustParse("1"),
		Slot:    "0",
		Files:   []FileEntry{{Path: "/usr/bin/vim", MD5: "x", Mtime: 1}},
	})
	require.NoError(t, err, "Install")

	ok, err := n.VerifyContents(instanceDir)
	require.NoError(t, err)
	assert.True(t, ok, "expected a freshly installed instance to verify")

	manifest := filepath.Join(dir, "data", instanceDir, contentsFileName)
	require.NoError(t, os.WriteFile(manifest, []byte("path=/usr/bin/vim type=file md5=tampered mtime=1\n"), 0o644))

	ok, err = n.VerifyContents(instanceDir)
	require.NoError(t, err)
	assert.False(t, ok, "expected a tampered manifest to fail verification")
}

// TestMalformedInstanceDirectoryIsSkippedNotFatal exercises spec §8's
// "logged and skipped, not crashed on" for an instance directory with
// fewer than three colon-separated tokens turning up alongside valid
// instances.
func TestMalformedInstanceDirectoryIsSkippedNotFatal(t *testing.T) {
	dir := t.TempDir()
	var warnings []string
	n, err := Open(dir, "installed", "/", WithWarn(func(msg string) { warnings = append(warnings, msg) }))
	require.NoError(t, err, "Open")
	defer n.Close()

	qpn := mustQPN(t, "app-editors/vim")
	_, err = n.Install(qpn, NewInstance{Version: version.MustParse("1"), Slot: "0"})
	require.NoError(t, err, "Install")

	const badInstanceDir = "garbage"
	badDataDir := filepath.Join(dir, "data", badInstanceDir)
	require.NoError(t, os.MkdirAll(badDataDir, 0o755))

	catDir := n.packageIndexDir(qpn)
	require.NoError(t, os.Symlink(badDataDir, filepath.Join(catDir, badInstanceDir)))
	n.invalidate(qpn)

	ids, err := n.IDs(qpn)
	require.NoError(t, err, "expected the malformed entry to be skipped rather than fatal")
	require.Len(t, ids, 1, "expected only the valid instance to be listed")
	assert.Equal(t, "1", ids[0].Version().String())
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], badInstanceDir)
}

var _ repository.Repository = (*NDBAM)(nil)
var _ repository.Contents = (*NDBAM)(nil)
