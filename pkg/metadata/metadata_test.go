// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exherbo-go/resolve/pkg/names"
	"github.com/exherbo-go/resolve/pkg/version"
)

func mustQPN(t *testing.T, s string) names.QualifiedPackageName {
	t.Helper()
	qpn, err := names.NewQualifiedPackageName(s)
	require.NoError(t, err)
	return qpn
}

func TestPackageIDCanonicalForm(t *testing.T) {
	qpn := mustQPN(t, "sys-apps/paludis")
	slot, _ := names.NewSlotName("0")
	repo, _ := names.NewRepositoryName("gentoo")
	id := NewPackageID(qpn, version.MustParse("1.2.3"), slot, 0, repo, 0, "", nil, nil, nil)
	assert.Equal(t, "sys-apps/paludis-1.2.3:0::gentoo", id.CanonicalForm())
}

func TestPackageIDEqual(t *testing.T) {
	qpn := mustQPN(t, "sys-apps/paludis")
	slot, _ := names.NewSlotName("0")
	repo, _ := names.NewRepositoryName("gentoo")
	a := NewPackageID(qpn, version.MustParse("1"), slot, 0, repo, 0, "", nil, nil, nil)
	b := NewPackageID(qpn, version.MustParse("1"), slot, 0, repo, 1, "", nil, nil, nil)
	assert.True(t, a.Equal(b), "expected IDs differing only by instance handle to be equal")
	c := NewPackageID(qpn, version.MustParse("1"), slot, 1, repo, 0, "", nil, nil, nil)
	assert.False(t, a.Equal(c), "expected IDs differing by repository handle to be unequal")
}

func TestPackageIDComparatorOrdersByNameThenVersion(t *testing.T) {
	qpnA := mustQPN(t, "sys-apps/a")
	qpnB := mustQPN(t, "sys-apps/b")
	slot, _ := names.NewSlotName("0")
	repo, _ := names.NewRepositoryName("gentoo")

	older := NewPackageID(qpnA, version.MustParse("1"), slot, 0, repo, 0, "", nil, nil, nil)
	newer := NewPackageID(qpnA, version.MustParse("2"), slot, 0, repo, 1, "", nil, nil, nil)
	other := NewPackageID(qpnB, version.MustParse("1"), slot, 0, repo, 2, "", nil, nil, nil)

	cmp := PackageIDComparator{}
	assert.True(t, cmp.Less(older, newer), "expected older version to sort before newer")
	assert.True(t, cmp.Less(newer, other), "expected package a to sort before package b regardless of version")
}

func TestSupportsAction(t *testing.T) {
	qpn := mustQPN(t, "sys-apps/paludis")
	id := NewPackageID(qpn, version.MustParse("1"), "", 0, "", 0, "", nil, nil,
		[]ActionKind{ActionInstall, ActionUninstall})
	assert.True(t, id.SupportsAction(ActionInstall), "expected ActionInstall to be supported")
	assert.False(t, id.SupportsAction(ActionFetch), "expected ActionFetch to be unsupported")
}

func TestMaskDescriptions(t *testing.T) {
	masks := []Mask{
		UserMask{Comment: "testing"},
		KeywordMask{Keywords: []string{"~amd64"}},
		ChoiceRequiredMask{Flag: "python_targets"},
	}
	for _, m := range masks {
		assert.NotEmptyf(t, m.Key(), "%#v", m)
		assert.NotEmptyf(t, m.Description(), "%#v", m)
	}
}

func TestKeysRoundTrip(t *testing.T) {
	qpn := mustQPN(t, "sys-apps/paludis")
	keys := map[string]MetadataKey{
		KeyShortDescription: NewStringKey(KeyShortDescription, "Description", KeyTypeSignificant, "a package manager"),
		KeyKeywords:         NewCollectionKey(KeyKeywords, "Keywords", KeyTypeNormal, []string{"amd64", "~x86"}),
	}
	id := NewPackageID(qpn, version.MustParse("1"), "", 0, "", 0, "", keys, nil, nil)

	desc, ok := id.Key(KeyShortDescription)
	require.True(t, ok, "expected DESCRIPTION key to be present")
	sk, ok := desc.(StringKey)
	require.Truef(t, ok, "expected StringKey, got %T", desc)
	assert.Equal(t, "a package manager", sk.Value)
	assert.Len(t, id.Keys(), 2)
}
