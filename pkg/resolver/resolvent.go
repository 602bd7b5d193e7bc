// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package resolver implements the dependency planner: it turns a set of
// target PackageDepSpecs plus an Environment into an ordered transaction
// plan, and (via UninstallList) an ordered removal plan.
package resolver

import "github.com/exherbo-go/resolve/pkg/names"

// Resolvent is the key under which the resolver refuses to place two
// distinct PackageIDs: by default (QualifiedPackageName, slot) (spec
// §4.2 step 2, GLOSSARY "Resolvent").
type Resolvent struct {
	Name names.QualifiedPackageName
	Slot names.SlotName
}

func (r Resolvent) String() string {
	if r.Slot == "" {
		return r.Name.String()
	}
	return r.Name.String() + ":" + r.Slot.String()
}
