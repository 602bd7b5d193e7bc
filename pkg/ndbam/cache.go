// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ndbam

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/exherbo-go/resolve/pkg/metadata"
	"github.com/exherbo-go/resolve/pkg/names"
)

// packageCache is the innermost of the three lock tiers (spec §4.5
// "Lock ordering is strict: category → package → entries"); it holds the
// lazily-populated instance list for one qualified package name.
type packageCache struct {
	mu     sync.Mutex
	loaded bool
	ids    []*metadata.PackageID
}

// categoryCache is the middle tier: one per category, guarding the set
// of packages it has been asked about.
type categoryCache struct {
	mu       sync.Mutex
	loaded   bool
	packages map[names.PackageNamePart]*packageCache
}

// categoryIndexDir is the on-disk home of one category's package
// symlinks (spec §6 "indices/categories/<cat>/<pkg>"); each <pkg> is
// itself a directory of one symlink per installed instance, since a
// single category/package pair may carry more than one installed slot
// (spec §3 "at-most-one installed instance per (QualifiedPackageName,
// slot)" implies more than one slot is possible).
func (n *NDBAM) categoryIndexDir(cat names.CategoryNamePart) string {
	return filepath.Join(n.location, "indices", "categories", cat.String())
}

func (n *NDBAM) packageIndexDir(qpn names.QualifiedPackageName) string {
	return filepath.Join(n.categoryIndexDir(qpn.Category), qpn.Package.String())
}

// loadCategories populates the top-level category cache by listing
// indices/categories on disk; it is guarded by NDBAM.mu, the single
// top-level mutex spec §4.5 names.
func (n *NDBAM) loadCategories() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.categoriesLoaded {
		return nil
	}
	dir := filepath.Join(n.location, "indices", "categories")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			n.categoriesLoaded = true
			return nil
		}
		return errors.Wrapf(err, "ndbam: listing %s", dir)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		cat, err := names.NewCategoryNamePart(e.Name())
		if err != nil {
			continue
		}
		if _, ok := n.categories[cat]; !ok {
			n.categories[cat] = &categoryCache{}
		}
	}
	n.categoriesLoaded = true
	return nil
}

// categoryEntry returns (creating if necessary) the categoryCache for
// cat. Callers must hold no other NDBAM lock when calling this.
func (n *NDBAM) categoryEntry(cat names.CategoryNamePart) *categoryCache {
	n.mu.Lock()
	defer n.mu.Unlock()
	cc, ok := n.categories[cat]
	if !ok {
		cc = &categoryCache{}
		n.categories[cat] = cc
	}
	return cc
}

// loadPackages populates cc's package set by listing its category's
// index directory, while holding only cc.mu -- the category tier -- per
// the category → package → entries lock order.
func (n *NDBAM) loadPackages(cat names.CategoryNamePart, cc *categoryCache) error {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if cc.loaded {
		return nil
	}
	if cc.packages == nil {
		cc.packages = make(map[names.PackageNamePart]*packageCache)
	}
	entries, err := os.ReadDir(n.categoryIndexDir(cat))
	if err != nil {
		if os.IsNotExist(err) {
			cc.loaded = true
			return nil
		}
		return errors.Wrapf(err, "ndbam: listing category %s", cat)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		pkg, err := names.NewPackageNamePart(e.Name())
		if err != nil {
			continue
		}
		if _, ok := cc.packages[pkg]; !ok {
			cc.packages[pkg] = &packageCache{}
		}
	}
	cc.loaded = true
	return nil
}

// packageEntry returns (creating if necessary) the packageCache for qpn,
// acquiring only the category tier to do so.
func (n *NDBAM) packageEntry(qpn names.QualifiedPackageName) (*packageCache, error) {
	cc := n.categoryEntry(qpn.Category)
	if err := n.loadPackages(qpn.Category, cc); err != nil {
		return nil, err
	}
	cc.mu.Lock()
	defer cc.mu.Unlock()
	pc, ok := cc.packages[qpn.Package]
	if !ok {
		pc = &packageCache{}
		cc.packages[qpn.Package] = pc
	}
	return pc, nil
}

// loadEntries populates pc's instance list from the on-disk symlinks,
// the innermost ("entries") tier of the lock order; pc.mu is the only
// lock held while it runs.
func (n *NDBAM) loadEntries(qpn names.QualifiedPackageName, pc *packageCache) error {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.loaded {
		return nil
	}
	dir := n.packageIndexDir(qpn)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			pc.loaded = true
			return nil
		}
		return errors.Wrapf(err, "ndbam: listing package index %s", dir)
	}
	var ids []*metadata.PackageID
	for i, e := range entries {
		target, err := filepath.EvalSymlinks(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		id, err := n.loadInstance(qpn, filepath.Base(target), metadata.InstanceHandle(i))
		if err != nil {
			var malformed *malformedInstanceNameError
			if errors.As(err, &malformed) {
				n.warn(err.Error())
				continue
			}
			return err
		}
		ids = append(ids, id)
	}
	sortPackageIDsByVersion(ids)
	pc.ids = ids
	pc.loaded = true
	return nil
}

func sortPackageIDsByVersion(ids []*metadata.PackageID) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j].Version().Compare(ids[j-1].Version()) < 0; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
}
