// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package version implements VersionSpec, the ebuild-family version
// grammar: a dotted numeric release, an optional letter suffix on the
// final numeric component, an optional pre/beta/alpha/rc/p release-type
// tag with its own number, and an optional trailing revision ("-r3").
//
// The comparison order mirrors the familiar ebuild rule: numeric
// components compare left to right (missing trailing components count as
// zero), then the letter suffix, then the release-type tag in the fixed
// order alpha < beta < pre < rc < (none) < p, then its number, then the
// revision.
package version

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// releaseType orders the pre/beta/alpha/rc/p tag. "none" (no tag present)
// sorts between rc and p, exactly as plain ebuild versions are newer than
// *_alpha/_beta/_pre/_rc but older than *_p releases.
type releaseType int

const (
	typeAlpha releaseType = iota
	typeBeta
	typePre
	typeRC
	typeNone
	typeP
)

var releaseTypeNames = map[string]releaseType{
	"alpha": typeAlpha,
	"beta":  typeBeta,
	"pre":   typePre,
	"rc":    typeRC,
	"p":     typeP,
}

var releaseTypeStrings = map[releaseType]string{
	typeAlpha: "alpha",
	typeBeta:  "beta",
	typePre:   "pre",
	typeRC:    "rc",
	typeP:     "p",
}

// BadVersionSpecError is returned by Parse when a string does not conform
// to the version grammar.
type BadVersionSpecError struct {
	Value string
	Cause error
}

func (e *BadVersionSpecError) Error() string {
	return fmt.Sprintf("bad version spec %q: %s", e.Value, e.Cause)
}

func (e *BadVersionSpecError) Unwrap() error { return e.Cause }

// VersionSpec is a parsed, comparable ebuild-family version.
//
// VersionSpec is comparable with ==, but two VersionSpecs built from
// differently-normalized input strings that denote the same value (e.g.
// differing numbers of trailing ".0" components) are NOT guaranteed equal
// by ==; use Compare for semantic comparison.
type VersionSpec struct {
	raw      string
	release  []int  // numeric dotted components, e.g. "1.2.3" -> [1,2,3]
	suffix   string // single trailing letter on the last numeric component, e.g. "2.1a" -> "a"
	relType  releaseType
	relNum   int // number following the release-type tag, e.g. "_alpha2" -> 2
	revision int // trailing "-rN", 0 if absent
}

// Parse parses s into a VersionSpec, or returns a *BadVersionSpecError.
func Parse(s string) (VersionSpec, error) {
	if s == "" {
		return VersionSpec{}, &BadVersionSpecError{Value: s, Cause: errors.New("empty version")}
	}
	rest := s

	revision := 0
	if i := strings.LastIndex(rest, "-r"); i >= 0 {
		n, err := strconv.Atoi(rest[i+2:])
		if err == nil {
			revision = n
			rest = rest[:i]
		}
	}

	relType := typeNone
	relNum := 0
	if i := strings.LastIndexByte(rest, '_'); i >= 0 {
		tag := rest[i+1:]
		name := tag
		numStart := len(tag)
		for numStart > 0 && tag[numStart-1] >= '0' && tag[numStart-1] <= '9' {
			numStart--
		}
		name = tag[:numStart]
		if rt, ok := releaseTypeNames[name]; ok {
			relType = rt
			if numStart < len(tag) {
				n, err := strconv.Atoi(tag[numStart:])
				if err != nil {
					return VersionSpec{}, &BadVersionSpecError{Value: s, Cause: errors.Wrap(err, "bad release-type number")}
				}
				relNum = n
			}
			rest = rest[:i]
		}
	}

	suffix := ""
	if n := len(rest); n > 0 {
		c := rest[n-1]
		if c >= 'a' && c <= 'z' {
			suffix = string(c)
			rest = rest[:n-1]
		}
	}

	if rest == "" {
		return VersionSpec{}, &BadVersionSpecError{Value: s, Cause: errors.New("no numeric release component")}
	}

	var release []int
	for _, part := range strings.Split(rest, ".") {
		if part == "" {
			return VersionSpec{}, &BadVersionSpecError{Value: s, Cause: errors.New("empty numeric component")}
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return VersionSpec{}, &BadVersionSpecError{Value: s, Cause: errors.Wrapf(err, "bad numeric component %q", part)}
		}
		release = append(release, n)
	}

	return VersionSpec{
		raw:      s,
		release:  release,
		suffix:   suffix,
		relType:  relType,
		relNum:   relNum,
		revision: revision,
	}, nil
}

// MustParse is Parse, panicking on error. Intended for tests and literals.
func MustParse(s string) VersionSpec {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String renders the canonical form, which round-trips through Parse.
func (v VersionSpec) String() string {
	var b strings.Builder
	for i, n := range v.release {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(strconv.Itoa(n))
	}
	b.WriteString(v.suffix)
	if v.relType != typeNone {
		b.WriteByte('_')
		b.WriteString(releaseTypeStrings[v.relType])
		if v.relNum != 0 {
			b.WriteString(strconv.Itoa(v.relNum))
		}
	}
	if v.revision != 0 {
		b.WriteString("-r")
		b.WriteString(strconv.Itoa(v.revision))
	}
	return b.String()
}

// Revision returns the trailing "-rN" component, 0 if absent.
func (v VersionSpec) Revision() int { return v.revision }

// WithoutRevision returns a copy of v with the revision component zeroed;
// used by the "~" operator, which ignores revision.
func (v VersionSpec) WithoutRevision() VersionSpec {
	v.revision = 0
	return v
}

// Compare returns -1, 0, or 1 as v is less than, equal to, or greater than
// o, following the ordering documented on the package.
func (v VersionSpec) Compare(o VersionSpec) int {
	for i := 0; i < len(v.release) || i < len(o.release); i++ {
		var a, b int
		if i < len(v.release) {
			a = v.release[i]
		}
		if i < len(o.release) {
			b = o.release[i]
		}
		if a != b {
			return cmpInt(a, b)
		}
	}
	if v.suffix != o.suffix {
		return cmpString(v.suffix, o.suffix)
	}
	if v.relType != o.relType {
		return cmpInt(int(v.relType), int(o.relType))
	}
	if v.relNum != o.relNum {
		return cmpInt(v.relNum, o.relNum)
	}
	return cmpInt(v.revision, o.revision)
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// HasPrefix reports whether v's canonical string form has s as a prefix;
// this backs the "=*" operator.
func (v VersionSpec) HasPrefix(s string) bool {
	return strings.HasPrefix(v.String(), s)
}

// Collection adapts a []VersionSpec for sort.Sort, ascending.
type Collection []VersionSpec

func (c Collection) Len() int           { return len(c) }
func (c Collection) Less(i, j int) bool { return c[i].Compare(c[j]) < 0 }
func (c Collection) Swap(i, j int)      { c[i], c[j] = c[j], c[i] }
