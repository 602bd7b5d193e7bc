// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resolver

import "github.com/exherbo-go/resolve/pkg/metadata"

// DepTag explains *why* a package appears in a plan (SUPPLEMENTED
// FEATURES item 2, grounded on paludis/dep_tag.cc): a front end can
// render "this is in the world set" or "this package is a dependency of
// X" instead of a bare PackageID list. spec.md's UninstallList entry
// already carries tags: set<DepTag> (§3); we extend the same concept to
// Decision for install-side entries.
type DepTag interface {
	// Category groups tags for display purposes (e.g. "target",
	// "dependency", "world").
	Category() string
	// String renders a human-readable explanation.
	String() string
}

// TargetTag marks a Decision as a direct user-specified target rather
// than a dependency pulled in transitively.
type TargetTag struct{}

func (TargetTag) Category() string { return "target" }
func (TargetTag) String() string   { return "explicitly requested" }

// WorldTag marks an entry as present because it is a member of the
// world set.
type WorldTag struct{}

func (WorldTag) Category() string { return "world" }
func (WorldTag) String() string   { return "part of the world set" }

// DependencyTag marks an entry as pulled in because another package
// depends on it.
type DependencyTag struct {
	Dependent *metadata.PackageID
}

func (DependencyTag) Category() string { return "dependency" }
func (t DependencyTag) String() string {
	return "dependency of " + t.Dependent.CanonicalForm()
}

// UnusedTag marks an entry as selected for uninstall by the
// unused-dependency collector rather than by explicit request.
type UnusedTag struct{}

func (UnusedTag) Category() string { return "unused" }
func (UnusedTag) String() string   { return "no longer reachable from the world set" }
