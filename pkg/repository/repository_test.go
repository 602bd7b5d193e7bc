// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exherbo-go/resolve/pkg/metadata"
	"github.com/exherbo-go/resolve/pkg/names"
)

// memRepository is a minimal in-memory Repository used only to exercise
// the interface shape in tests; real backends (NDBAM, an ebuild tree)
// live in their own packages.
type memRepository struct {
	name names.RepositoryName
	caps map[Capability]bool
	ids  map[names.QualifiedPackageName][]*metadata.PackageID
}

func (r *memRepository) Name() names.RepositoryName { return r.name }
func (r *memRepository) Supports(c Capability) bool { return r.caps[c] }
func (r *memRepository) Categories() ([]names.CategoryNamePart, error) {
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
func (r *memRepository) Packages(cat names.CategoryNamePart) ([]names.PackageNamePart, error) {
	var out []names.PackageNamePart
	for qpn := range r.ids {
		if qpn.Category == cat {
			out = append(out, qpn.Package)
		}
	}
	return out, nil
}
func (r *memRepository) IDs(qpn names.QualifiedPackageName) ([]*metadata.PackageID, error) {
	return r.ids[qpn], nil
}
func (r *memRepository) HasCategory(cat names.CategoryNamePart) (bool, error) {
	cats, _ := r.Categories()
	for _, c := range cats {
		if c == cat {
			return true, nil
		}
	}
	return false, nil
}
func (r *memRepository) HasPackage(qpn names.QualifiedPackageName) (bool, error) {
	_, ok := r.ids[qpn]
	return ok, nil
}
func (r *memRepository) AcceptKeywordsHint() []names.KeywordName { return nil }
func (r *memRepository) FormatKey() metadata.StringKey {
	return metadata.NewStringKey("format", "Format", metadata.KeyTypeInternal, "mem")
}
func (r *memRepository) InstalledRootKey() metadata.PathKey {
	return metadata.NewPathKey("installed_root", "Installed root", metadata.KeyTypeInternal, "/")
}

var _ Repository = (*memRepository)(nil)

func TestRepositoryInterfaceShape(t *testing.T) {
	qpn, err := names.NewQualifiedPackageName("sys-apps/paludis")
	require.NoError(t, err)
	repo := &memRepository{
		name: "gentoo",
		caps: map[Capability]bool{CapabilityDestination: true},
		ids:  map[names.QualifiedPackageName][]*metadata.PackageID{qpn: nil},
	}

	assert.True(t, repo.Supports(CapabilityDestination), "expected CapabilityDestination to be supported")
	assert.False(t, repo.Supports(CapabilityVirtuals), "expected CapabilityVirtuals to be unsupported")
	has, err := repo.HasPackage(qpn)
	require.NoError(t, err)
	assert.True(t, has)
}
