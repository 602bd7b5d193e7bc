// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ndbam implements the installed-package store (spec §4.5
// "NDBAM (Installed Package Store)"): an on-disk database of installed
// PackageIDs, indexed by category and by package, with a line-oriented
// contents manifest per installed instance. It satisfies
// repository.Repository (as the environment's "installed" repository)
// and repository.Contents (for the merger/uninstaller's file-level
// queries).
package ndbam

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/exherbo-go/resolve/pkg/metadata"
	"github.com/exherbo-go/resolve/pkg/names"
	"github.com/exherbo-go/resolve/pkg/repository"
)

// NDBAM is one installed-package store rooted at a location directory
// (spec §3 "NDBAM data (installed store)").
type NDBAM struct {
	location      string
	name          names.RepositoryName
	installedRoot string
	conf          Conf

	mu               sync.Mutex
	categoriesLoaded bool
	categories       map[names.CategoryNamePart]*categoryCache

	acceptFormat    FormatPredicate
	digestCachePath string
	warn            func(string)

	lock   *CrossProcessLock
	digest *digestCache
}

// Option configures Open.
type Option func(*NDBAM)

// WithFormatPredicate supplies the predicate an existing ndbam.conf's
// repository_format must satisfy (spec §4.5 "if present but the stored
// repository format string fails a supplied predicate, raise a
// configuration error").
func WithFormatPredicate(accept FormatPredicate) Option {
	return func(n *NDBAM) { n.acceptFormat = accept }
}

// WithDigestCache opens a bbolt-backed contents-digest cache alongside
// location, keyed by the cachePath given (spec DOMAIN STACK: "ndbam
// package's per-instance contents-digest cache").
func WithDigestCache(cachePath string) Option {
	return func(n *NDBAM) { n.digestCachePath = cachePath }
}

// WithWarn supplies the callback used for conditions that are logged
// and skipped rather than treated as fatal, such as a malformed
// instance directory turning up in an otherwise-valid package index
// (spec §8 "logged and skipped, not crashed on"). The default is a
// no-op.
func WithWarn(warn func(string)) Option {
	return func(n *NDBAM) { n.warn = warn }
}

// Open opens (initialising if necessary) the NDBAM store at location,
// under the given repository name and installed-root path (spec §3
// "Repository. Has a name ... format/installed-root metadata keys").
func Open(location string, name names.RepositoryName, installedRoot string, opts ...Option) (*NDBAM, error) {
	n := &NDBAM{
		location:      location,
		name:          name,
		installedRoot: installedRoot,
		categories:    make(map[names.CategoryNamePart]*categoryCache),
		warn:          func(string) {},
	}
	for _, opt := range opts {
		opt(n)
	}

	conf, err := loadConf(location, n.acceptFormat)
	if err != nil {
		return nil, err
	}
	n.conf = conf

	n.lock = NewCrossProcessLock(filepath.Join(location, ".ndbam.lock"))

	if n.digestCachePath != "" {
		dc, err := openDigestCache(n.digestCachePath)
		if err != nil {
			return nil, err
		}
		n.digest = dc
	}

	return n, nil
}

// Close releases the store's digest cache, if one was opened.
func (n *NDBAM) Close() error {
	if n.digest == nil {
		return nil
	}
	return n.digest.Close()
}

// Name implements repository.Repository.
func (n *NDBAM) Name() names.RepositoryName { return n.name }

// Supports implements repository.Repository: NDBAM is always a
// destination, never the other optional capabilities.
func (n *NDBAM) Supports(c repository.Capability) bool {
	return c == repository.CapabilityDestination
}

// Categories implements repository.Repository.
func (n *NDBAM) Categories() ([]names.CategoryNamePart, error) {
	if err := n.loadCategories(); err != nil {
		return nil, err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]names.CategoryNamePart, 0, len(n.categories))
	for cat := range n.categories {
		out = append(out, cat)
	}
	return out, nil
}

// Packages implements repository.Repository.
func (n *NDBAM) Packages(cat names.CategoryNamePart) ([]names.PackageNamePart, error) {
	cc := n.categoryEntry(cat)
	if err := n.loadPackages(cat, cc); err != nil {
		return nil, err
	}
	cc.mu.Lock()
	defer cc.mu.Unlock()
	out := make([]names.PackageNamePart, 0, len(cc.packages))
	for pkg := range cc.packages {
		out = append(out, pkg)
	}
	return out, nil
}

// IDs implements repository.Repository: every installed instance of
// qpn, ordered by VersionSpec (spec §4.5 "ids(qpn) → sequence<NDBAMEntry>
// ordered by VersionSpec").
func (n *NDBAM) IDs(qpn names.QualifiedPackageName) ([]*metadata.PackageID, error) {
	pc, err := n.packageEntry(qpn)
	if err != nil {
		return nil, err
	}
	if err := n.loadEntries(qpn, pc); err != nil {
		return nil, err
	}
	pc.mu.Lock()
	defer pc.mu.Unlock()
	out := make([]*metadata.PackageID, len(pc.ids))
	copy(out, pc.ids)
	return out, nil
}

// HasCategory implements repository.Repository.
func (n *NDBAM) HasCategory(cat names.CategoryNamePart) (bool, error) {
	if err := n.loadCategories(); err != nil {
		return false, err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.categories[cat]
	return ok, nil
}

// HasPackage implements repository.Repository.
func (n *NDBAM) HasPackage(qpn names.QualifiedPackageName) (bool, error) {
	cc := n.categoryEntry(qpn.Category)
	if err := n.loadPackages(qpn.Category, cc); err != nil {
		return false, err
	}
	cc.mu.Lock()
	defer cc.mu.Unlock()
	_, ok := cc.packages[qpn.Package]
	return ok, nil
}

// AcceptKeywordsHint implements repository.Repository: an installed
// repository has no keyword policy of its own to contribute.
func (n *NDBAM) AcceptKeywordsHint() []names.KeywordName { return nil }

// FormatKey implements repository.Repository.
func (n *NDBAM) FormatKey() metadata.StringKey {
	return metadata.NewStringKey("format", "Format", metadata.KeyTypeInternal, n.conf.RepositoryFormat)
}

// InstalledRootKey implements repository.Repository.
func (n *NDBAM) InstalledRootKey() metadata.PathKey {
	return metadata.NewPathKey("installed_root", "Installed root", metadata.KeyTypeInternal, n.installedRoot)
}

// Contents implements repository.Contents.
func (n *NDBAM) Contents(id *metadata.PackageID) (repository.ContentIterator, error) {
	k, ok := id.Key(metadata.KeyContents)
	if !ok {
		return &contentIterator{}, nil
	}
	ck, ok := k.(metadata.ContentsKey)
	if !ok {
		return nil, errors.Errorf("ndbam: %s: CONTENTS key has unexpected type %T", id, k)
	}
	return &contentIterator{entries: ck.Value}, nil
}

// VerifyContents recomputes instanceDir's on-disk contents manifest
// digest and compares it against the value cached at Install time,
// catching a manifest edited or corrupted out from under NDBAM (e.g. by
// something other than this package reaching into data/<instanceDir>
// directly). It requires a digest cache (see WithDigestCache); without
// one there is nothing to compare against.
func (n *NDBAM) VerifyContents(instanceDir string) (bool, error) {
	if n.digest == nil {
		return false, errors.New("ndbam: VerifyContents requires a digest cache")
	}
	want, ok, err := n.digest.get(instanceDir)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, errors.Errorf("ndbam: no cached digest for instance %q", instanceDir)
	}
	contents, err := os.ReadFile(filepath.Join(n.location, "data", instanceDir, contentsFileName))
	if err != nil {
		return false, errors.Wrapf(err, "ndbam: reading contents manifest for %q", instanceDir)
	}
	return digestManifest(contents) == want, nil
}

// CategoryNamesContainingPackage implements
// category_names_containing_package(pkg): every category that has at
// least one installed instance of the bare package name pkg (spec §4.5).
func (n *NDBAM) CategoryNamesContainingPackage(pkg names.PackageNamePart) ([]names.CategoryNamePart, error) {
	dir := filepath.Join(n.location, "indices", "packages", pkg.String())
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "ndbam: listing %s", dir)
	}
	var out []names.CategoryNamePart
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		cat, err := names.NewCategoryNamePart(e.Name())
		if err != nil {
			continue
		}
		out = append(out, cat)
	}
	return out, nil
}

// loadInstance builds a *metadata.PackageID from data/<instanceDir>,
// reading its contents manifest and the meta.toml display fields written
// alongside it by Install (see install.go).
func (n *NDBAM) loadInstance(qpn names.QualifiedPackageName, instanceDir string, handle metadata.InstanceHandle) (*metadata.PackageID, error) {
	inst, err := parseInstanceName(instanceDir)
	if err != nil {
		return nil, err
	}
	dataDir := filepath.Join(n.location, "data", instanceDir)

	keys := make(map[string]metadata.MetadataKey)

	contents, err := readContentsFile(filepath.Join(dataDir, contentsFileName), nil)
	if err != nil {
		return nil, err
	}
	keys[metadata.KeyContents] = metadata.NewContentsKey(metadata.KeyContents, "Contents", metadata.KeyTypeNormal, contents)

	meta, err := loadInstanceMeta(dataDir)
	if err != nil {
		return nil, err
	}
	if meta.Description != "" {
		keys[metadata.KeyShortDescription] = metadata.NewStringKey(metadata.KeyShortDescription, "Description", metadata.KeyTypeSignificant, meta.Description)
	}
	if meta.Homepage != "" {
		keys[metadata.KeyHomepage] = metadata.NewStringKey(metadata.KeyHomepage, "Homepage", metadata.KeyTypeNormal, meta.Homepage)
	}
	if !meta.InstalledTime.IsZero() {
		keys[metadata.KeyInstalledTime] = metadata.NewTimeKey(metadata.KeyInstalledTime, "Installed time", metadata.KeyTypeNormal, meta.InstalledTime)
	}
	keys[metadata.KeyFSLocation] = metadata.NewPathKey(metadata.KeyFSLocation, "FS location", metadata.KeyTypeInternal, dataDir)

	return metadata.NewPackageID(
		qpn, inst.version, inst.slot,
		0, n.name, handle,
		inst.magic,
		keys, nil, []metadata.ActionKind{metadata.ActionUninstall, metadata.ActionInfo, metadata.ActionConfig},
	), nil
}

// instanceMeta is the small set of author-supplied fields Install also
// writes into data/<instance>/meta.toml, separate from the
// machine-oriented contents manifest.
type instanceMeta struct {
	Description   string
	Homepage      string
	InstalledTime time.Time
}

func openOrEmpty(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	return f, nil
}
