// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package repository defines the Repository facade every package source
// (installed-package database, ebuild-style tree, binary tree, virtuals
// provider) implements, plus the capability predicates and content
// iterators callers use to enumerate and query it.
package repository

import (
	"github.com/exherbo-go/resolve/pkg/metadata"
	"github.com/exherbo-go/resolve/pkg/names"
)

// Capability names a single optional behavior a Repository may or may
// not support (spec §3 "capability predicates (destination, mirrors,
// manifest, virtuals, make-virtuals, environment-variable)").
type Capability int

const (
	// CapabilityDestination: this repository can be the target of an
	// install (as opposed to a read-only source).
	CapabilityDestination Capability = iota
	// CapabilityMirrors: this repository can resolve mirror:// URIs.
	CapabilityMirrors
	// CapabilityManifest: this repository maintains Manifest-style
	// fetch-restriction/digest metadata.
	CapabilityManifest
	// CapabilityVirtuals: this repository can enumerate provided
	// virtual/* packages.
	CapabilityVirtuals
	// CapabilityMakeVirtuals: this repository can synthesize a virtual
	// PackageID on demand (rather than only enumerating pre-existing
	// ones).
	CapabilityMakeVirtuals
	// CapabilityEnvironmentVariable: this repository can answer
	// environment-variable queries for its packages (e.g. a build
	// profile's exported variables).
	CapabilityEnvironmentVariable
)

// Repository is the read side every package source implements. A
// Repository never holds a pointer to the Environment that owns it; the
// Environment instead holds Repositories by index (see
// metadata.RepositoryHandle), so cyclic PackageID ↔ Repository
// references never need to exist as Go pointers.
type Repository interface {
	// Name returns this repository's validated name.
	Name() names.RepositoryName

	// Supports reports whether a Capability is available.
	Supports(c Capability) bool

	// Categories enumerates every category this repository has packages
	// in.
	Categories() ([]names.CategoryNamePart, error)

	// Packages enumerates every package name within a category.
	Packages(cat names.CategoryNamePart) ([]names.PackageNamePart, error)

	// IDs enumerates every PackageID (every version/slot combination)
	// for a single qualified package name.
	IDs(qpn names.QualifiedPackageName) ([]*metadata.PackageID, error)

	// HasCategory and HasPackage are narrow existence checks, useful to
	// avoid allocating a full Categories()/Packages() slice just to test
	// membership.
	HasCategory(cat names.CategoryNamePart) (bool, error)
	HasPackage(qpn names.QualifiedPackageName) (bool, error)

	// AcceptKeywordsHint returns this repository's own default
	// accept-keywords policy (e.g. an ebuild-tree profile's
	// ACCEPT_KEYWORDS), consulted by Environment when the user supplies
	// no override.
	AcceptKeywordsHint() []names.KeywordName

	// FormatKey and InstalledRootKey expose the two format/
	// installed-root MetadataKeys every Repository carries regardless of
	// backend (spec §3 "format/installed-root metadata keys").
	FormatKey() metadata.StringKey
	InstalledRootKey() metadata.PathKey
}

// MaskQuerier is implemented by Repositories whose masks depend on
// repository-local policy (package.mask-style files) rather than purely
// on the PackageID's own metadata; the Environment consults this in
// addition to any environment-level masks.
type MaskQuerier interface {
	QueryMasks(id *metadata.PackageID) ([]metadata.Mask, error)
}

// ContentIterator enumerates the installed files of an already-installed
// PackageID; NDBAM's Contents returns one over the CONTENTS key.
type ContentIterator interface {
	// Next advances to the next entry, returning false at end of
	// iteration (err is nil in that case) or on read failure.
	Next() (metadata.ContentsEntry, bool, error)
	// Close releases any resource (open file, directory handle) held by
	// the iterator.
	Close() error
}

// Contents is implemented by Repositories that can produce a
// ContentIterator for one of their PackageIDs (typically only an
// installed-package repository, i.e. NDBAM).
type Contents interface {
	Contents(id *metadata.PackageID) (ContentIterator, error)
}
