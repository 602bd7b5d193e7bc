// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ndbam

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/exherbo-go/resolve/pkg/names"
)

// pathpair is a move recorded for rollback, the same shape golang-dep's
// SafeWriter.Write keeps its restore list in.
type pathpair struct{ from, to string }

// Index creates both the category-side and package-side symlinks for
// instanceDir (spec §4.5 "index(qpn, instance_dir_name) ... creates or
// removes both category-side and package-side symlinks"). Both links are
// first built in a staging directory beside data/instanceDir and then
// renamed into place one at a time, rolling every completed rename back
// if a later one fails, the same temp-dir-then-rename-with-rollback
// technique golang-dep's SafeWriter.Write uses for manifest/lock/vendor
// writes (grounded on _examples/golang-dep/txn_writer.go).
func (n *NDBAM) Index(qpn names.QualifiedPackageName, instanceDir string) error {
	if err := n.lock.Lock(); err != nil {
		return err
	}
	defer n.lock.Unlock()

	catDir := filepath.Join(n.categoryIndexDir(qpn.Category), qpn.Package.String())
	pkgDir := filepath.Join(n.location, "indices", "packages", qpn.Package.String(), qpn.Category.String())
	if err := os.MkdirAll(catDir, 0o755); err != nil {
		return errors.Wrapf(err, "ndbam: creating %s", catDir)
	}
	if err := os.MkdirAll(pkgDir, 0o755); err != nil {
		return errors.Wrapf(err, "ndbam: creating %s", pkgDir)
	}

	staging, err := os.MkdirTemp(filepath.Join(n.location, "data"), ".ndbam-index-")
	if err != nil {
		return errors.Wrap(err, "ndbam: creating index staging dir")
	}
	defer os.RemoveAll(staging)

	// Both links end up four directory levels below location (e.g.
	// indices/categories/<cat>/<pkg>/<instance>), so the relative target
	// needs four "..": up out of <pkg>|<cat>, the category/package name,
	// "categories"|"packages", and "indices" itself.
	relTarget := filepath.Join("..", "..", "..", "..", "data", instanceDir)

	catLinkStage := filepath.Join(staging, "cat")
	pkgLinkStage := filepath.Join(staging, "pkg")
	if err := os.Symlink(relTarget, catLinkStage); err != nil {
		return errors.Wrap(err, "ndbam: staging category symlink")
	}
	if err := os.Symlink(relTarget, pkgLinkStage); err != nil {
		return errors.Wrap(err, "ndbam: staging package symlink")
	}

	catLink := filepath.Join(catDir, instanceDir)
	pkgLink := filepath.Join(pkgDir, instanceDir)

	var restore []pathpair
	var failErr error

	if failErr = os.Rename(catLinkStage, catLink); failErr != nil {
		goto fail
	}
	restore = append(restore, pathpair{from: catLink, to: catLinkStage})

	if failErr = os.Rename(pkgLinkStage, pkgLink); failErr != nil {
		goto fail
	}
	return nil

fail:
	for _, pair := range restore {
		os.Rename(pair.from, pair.to) //nolint:errcheck // best-effort rollback
	}
	return errors.Wrap(failErr, "ndbam: index")
}

// Deindex removes both symlinks for instanceDir, category-side first
// then package-side, per the invariant "deindex removes both symlinks
// before any data directory is deleted" (spec §3). The caller is
// responsible for removing data/instanceDir afterward.
func (n *NDBAM) Deindex(qpn names.QualifiedPackageName, instanceDir string) error {
	if err := n.lock.Lock(); err != nil {
		return err
	}
	defer n.lock.Unlock()

	catLink := filepath.Join(n.categoryIndexDir(qpn.Category), qpn.Package.String(), instanceDir)
	pkgLink := filepath.Join(n.location, "indices", "packages", qpn.Package.String(), qpn.Category.String(), instanceDir)

	if err := removeIfExists(catLink); err != nil {
		return errors.Wrap(err, "ndbam: deindex: removing category symlink")
	}
	if err := removeIfExists(pkgLink); err != nil {
		return errors.Wrap(err, "ndbam: deindex: removing package symlink")
	}
	// Drop each per-package index directory once its last link is gone, so
	// a fully uninstalled package is no longer listed; os.Remove leaves a
	// directory that still holds other instances' links in place.
	os.Remove(filepath.Dir(catLink)) //nolint:errcheck
	os.Remove(filepath.Dir(pkgLink)) //nolint:errcheck
	return nil
}

func removeIfExists(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
