// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package metadata implements the polymorphic metadata-key facade a
// PackageID exposes over its repository-supplied data: typed keys for
// strings, paths, numbers, timestamps, nested PackageIDs, Choices,
// dependency trees, collections and sections, plus the PackageID and
// Mask types built on top of them.
package metadata

import (
	"time"

	"github.com/exherbo-go/resolve/pkg/choice"
	"github.com/exherbo-go/resolve/pkg/depspec"
)

// KeyType classifies a MetadataKey for display/filtering purposes: how
// prominently a front end should surface it, and whether it belongs to
// the author-supplied or resolver-internal namespace.
type KeyType int

const (
	// KeyTypeSignificant keys are shown by default (e.g. version, slot).
	KeyTypeSignificant KeyType = iota
	// KeyTypeNormal keys are shown with a verbosity flag (e.g. homepage).
	KeyTypeNormal
	// KeyTypeDependencies keys hold SpecTreeKey[depspec.AllNode] values.
	KeyTypeDependencies
	// KeyTypeAuthor keys record packaging authorship/maintainer data.
	KeyTypeAuthor
	// KeyTypeInternal keys are resolver bookkeeping, never displayed.
	KeyTypeInternal
)

func (t KeyType) String() string {
	switch t {
	case KeyTypeSignificant:
		return "significant"
	case KeyTypeNormal:
		return "normal"
	case KeyTypeDependencies:
		return "dependencies"
	case KeyTypeAuthor:
		return "author"
	case KeyTypeInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// MetadataKey is the common facade every concrete key type satisfies. The
// visited type a caller gets back from a key is fixed for the key's
// lifetime (it is nailed down by the concrete type, not by a runtime
// tag), so there is no visitor double-dispatch to write: callers type-
// assert or type-switch on the concrete key type directly.
type MetadataKey interface {
	RawName() string
	HumanName() string
	Type() KeyType
}

type base struct {
	rawName, humanName string
	keyType            KeyType
}

func (b base) RawName() string   { return b.rawName }
func (b base) HumanName() string { return b.humanName }
func (b base) Type() KeyType     { return b.keyType }

// StringKey holds a single line of human-readable text (e.g. a short
// description).
type StringKey struct {
	base
	Value string
}

// NewStringKey constructs a StringKey.
func NewStringKey(raw, human string, t KeyType, value string) StringKey {
	return StringKey{base: base{raw, human, t}, Value: value}
}

// PathKey holds a filesystem path (e.g. FS_LOCATION).
type PathKey struct {
	base
	Value string
}

// NewPathKey constructs a PathKey.
func NewPathKey(raw, human string, t KeyType, value string) PathKey {
	return PathKey{base: base{raw, human, t}, Value: value}
}

// LongKey holds an arbitrary-precision-enough integer (e.g. a byte size).
type LongKey struct {
	base
	Value int64
}

// NewLongKey constructs a LongKey.
func NewLongKey(raw, human string, t KeyType, value int64) LongKey {
	return LongKey{base: base{raw, human, t}, Value: value}
}

// BoolKey holds a tri-state-free boolean flag.
type BoolKey struct {
	base
	Value bool
}

// NewBoolKey constructs a BoolKey.
func NewBoolKey(raw, human string, t KeyType, value bool) BoolKey {
	return BoolKey{base: base{raw, human, t}, Value: value}
}

// TimeKey holds a timestamp (e.g. INSTALLED_TIME).
type TimeKey struct {
	base
	Value time.Time
}

// NewTimeKey constructs a TimeKey.
func NewTimeKey(raw, human string, t KeyType, value time.Time) TimeKey {
	return TimeKey{base: base{raw, human, t}, Value: value}
}

// PackageIDKey holds a reference to another PackageID (e.g. VIRTUAL_FOR)
// as a plain *PackageID.
type PackageIDKey struct {
	base
	Value *PackageID
}

// NewPackageIDKey constructs a PackageIDKey.
func NewPackageIDKey(raw, human string, t KeyType, value *PackageID) PackageIDKey {
	return PackageIDKey{base: base{raw, human, t}, Value: value}
}

// ChoicesKey holds a package's full Choices collection.
type ChoicesKey struct {
	base
	Value *choice.Choices
}

// NewChoicesKey constructs a ChoicesKey.
func NewChoicesKey(raw, human string, t KeyType, value *choice.Choices) ChoicesKey {
	return ChoicesKey{base: base{raw, human, t}, Value: value}
}

// ContentsEntryKind distinguishes the installed-file kinds a Contents key
// enumerates.
type ContentsEntryKind int

const (
	ContentsFile ContentsEntryKind = iota
	ContentsDir
	ContentsSym
)

// ContentsEntry is one row of an installed package's file manifest.
type ContentsEntry struct {
	Kind   ContentsEntryKind
	Path   string
	Target string // symlink target, only meaningful when Kind == ContentsSym
}

// ContentsKey holds the installed file manifest of an installed package.
type ContentsKey struct {
	base
	Value []ContentsEntry
}

// NewContentsKey constructs a ContentsKey.
func NewContentsKey(raw, human string, t KeyType, value []ContentsEntry) ContentsKey {
	return ContentsKey{base: base{raw, human, t}, Value: value}
}

// SpecTreeKey holds a parsed dependency/license/fetchable-URI tree
// together with the TreeKind it must validate against. T is always
// depspec.AllNode in practice, but keeping the field generic documents
// intent and matches the spec's SpecTreeKey<T>.
type SpecTreeKey[T any] struct {
	base
	TreeKind depspec.TreeKind
	Value    T
}

// NewSpecTreeKey constructs a SpecTreeKey.
func NewSpecTreeKey[T any](raw, human string, t KeyType, kind depspec.TreeKind, value T) SpecTreeKey[T] {
	return SpecTreeKey[T]{base: base{raw, human, t}, TreeKind: kind, Value: value}
}

// CollectionKey holds a homogeneous list (e.g. KEYWORDS, IUSE).
type CollectionKey[T any] struct {
	base
	Value []T
}

// NewCollectionKey constructs a CollectionKey.
func NewCollectionKey[T any](raw, human string, t KeyType, value []T) CollectionKey[T] {
	return CollectionKey[T]{base: base{raw, human, t}, Value: value}
}

// SectionKey groups other MetadataKeys under a single nested name (e.g.
// vendor-specific metadata blocks).
type SectionKey struct {
	base
	Value []MetadataKey
}

// NewSectionKey constructs a SectionKey.
func NewSectionKey(raw, human string, t KeyType, value []MetadataKey) SectionKey {
	return SectionKey{base: base{raw, human, t}, Value: value}
}
