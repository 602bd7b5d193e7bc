// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package names implements the validated wrapped-string name types used
// throughout the resolver: category, package, slot, repository, keyword,
// and choice-prefix names. Each type enforces its own character-class rule
// at construction time so that mixing up a slot name for a category name,
// say, is a compile error rather than a runtime one.
package names

import (
	"fmt"
	"regexp"

	"github.com/pkg/errors"
)

// NameError is returned when a string fails the character-class rule for
// the name type that rejected it.
type NameError struct {
	Kind  string // e.g. "CategoryNamePart", "SlotName"
	Value string
	Cause error
}

func (e *NameError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Kind, e.Value, e.Cause)
}

func (e *NameError) Unwrap() error { return e.Cause }

func newNameError(kind, value string, cause error) error {
	return &NameError{Kind: kind, Value: value, Cause: cause}
}

// Character classes, expressed as the original ebuild-family grammars do:
// letters, digits, '-', '_', '+', with a few types additionally allowing '.'.
// No type requires the first character to be a letter.
var (
	categoryRE   = regexp.MustCompile(`^[A-Za-z0-9+_][A-Za-z0-9+_.-]*$`)
	packageRE    = regexp.MustCompile(`^[A-Za-z0-9+_][A-Za-z0-9+_-]*$`)
	slotRE       = regexp.MustCompile(`^[A-Za-z0-9+_][A-Za-z0-9+_.-]*$`)
	repositoryRE = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_-]*$`)
	keywordRE    = regexp.MustCompile(`^~?-?[A-Za-z0-9_-]+$`)
	choiceFlagRE = regexp.MustCompile(`^[A-Za-z0-9+_][A-Za-z0-9+_-]*$`)
)

var errEmpty = errors.New("must not be empty")

func validate(re *regexp.Regexp, kind, s string) error {
	if s == "" {
		return newNameError(kind, s, errEmpty)
	}
	if !re.MatchString(s) {
		return newNameError(kind, s, errors.New("contains characters outside the permitted set"))
	}
	return nil
}

// CategoryNamePart is the category component of a QualifiedPackageName
// (e.g. "sys-apps").
type CategoryNamePart string

// NewCategoryNamePart validates and wraps s.
func NewCategoryNamePart(s string) (CategoryNamePart, error) {
	if err := validate(categoryRE, "CategoryNamePart", s); err != nil {
		return "", err
	}
	return CategoryNamePart(s), nil
}

func (c CategoryNamePart) String() string { return string(c) }

// PackageNamePart is the package component of a QualifiedPackageName
// (e.g. "paludis").
type PackageNamePart string

// NewPackageNamePart validates and wraps s.
func NewPackageNamePart(s string) (PackageNamePart, error) {
	if err := validate(packageRE, "PackageNamePart", s); err != nil {
		return "", err
	}
	return PackageNamePart(s), nil
}

func (p PackageNamePart) String() string { return string(p) }

// SlotName identifies a parallel-installable version line of a package.
type SlotName string

// NewSlotName validates and wraps s.
func NewSlotName(s string) (SlotName, error) {
	if err := validate(slotRE, "SlotName", s); err != nil {
		return "", err
	}
	return SlotName(s), nil
}

func (s SlotName) String() string { return string(s) }

// RepositoryName identifies a Repository within an Environment.
type RepositoryName string

// NewRepositoryName validates and wraps s.
func NewRepositoryName(s string) (RepositoryName, error) {
	if err := validate(repositoryRE, "RepositoryName", s); err != nil {
		return "", err
	}
	return RepositoryName(s), nil
}

func (r RepositoryName) String() string { return string(r) }

// KeywordName identifies an architecture/stability keyword (e.g. "amd64",
// "~amd64", "-*").
type KeywordName string

// NewKeywordName validates and wraps s.
func NewKeywordName(s string) (KeywordName, error) {
	if err := validate(keywordRE, "KeywordName", s); err != nil {
		return "", err
	}
	return KeywordName(s), nil
}

func (k KeywordName) String() string { return string(k) }

// ChoicePrefixName identifies a Choice group such as "linguas" or
// "python_targets"; the empty prefix denotes plain USE.
type ChoicePrefixName string

// NewChoicePrefixName validates and wraps s. The empty string is legal and
// denotes the unprefixed (plain USE) choice group.
func NewChoicePrefixName(s string) (ChoicePrefixName, error) {
	if s == "" {
		return "", nil
	}
	if err := validate(choiceFlagRE, "ChoicePrefixName", s); err != nil {
		return "", err
	}
	return ChoicePrefixName(s), nil
}

func (c ChoicePrefixName) String() string { return string(c) }

// UnprefixedChoiceName identifies a single flag within a Choice group (e.g.
// "nls" or, in "linguas: en", "en").
type UnprefixedChoiceName string

// NewUnprefixedChoiceName validates and wraps s.
func NewUnprefixedChoiceName(s string) (UnprefixedChoiceName, error) {
	if err := validate(choiceFlagRE, "UnprefixedChoiceName", s); err != nil {
		return "", err
	}
	return UnprefixedChoiceName(s), nil
}

func (u UnprefixedChoiceName) String() string { return string(u) }

// QualifiedPackageName is (category, package), the minimal key identifying
// a package lineage independent of version, slot, or repository.
type QualifiedPackageName struct {
	Category CategoryNamePart
	Package  PackageNamePart
}

// NewQualifiedPackageName parses "category/package".
func NewQualifiedPackageName(s string) (QualifiedPackageName, error) {
	for i := 0; i < len(s); i++ {
		if s[i] == '/' {
			cat, err := NewCategoryNamePart(s[:i])
			if err != nil {
				return QualifiedPackageName{}, err
			}
			pkg, err := NewPackageNamePart(s[i+1:])
			if err != nil {
				return QualifiedPackageName{}, err
			}
			return QualifiedPackageName{Category: cat, Package: pkg}, nil
		}
	}
	return QualifiedPackageName{}, newNameError("QualifiedPackageName", s, errors.New(`expected "category/package"`))
}

func (q QualifiedPackageName) String() string {
	return q.Category.String() + "/" + q.Package.String()
}

// Less provides a total order for use in sorted containers.
func (q QualifiedPackageName) Less(o QualifiedPackageName) bool {
	if q.Category != o.Category {
		return q.Category < o.Category
	}
	return q.Package < o.Package
}
