// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resolver

import "github.com/exherbo-go/resolve/pkg/metadata"

// DecisionKind classifies the change operation the resolver chose for a
// single Resolvent (spec §4.2 "compute an ordered list of change
// operations ∈ {install(new), upgrade(from→to), downgrade(from→to),
// reinstall(existing), no-change(existing), block-conflict(report)}").
type DecisionKind int

const (
	DecisionInstall DecisionKind = iota
	DecisionUpgrade
	DecisionDowngrade
	DecisionReinstall
	DecisionNoChange
	DecisionBlockConflict
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionInstall:
		return "install"
	case DecisionUpgrade:
		return "upgrade"
	case DecisionDowngrade:
		return "downgrade"
	case DecisionReinstall:
		return "reinstall"
	case DecisionNoChange:
		return "no-change"
	case DecisionBlockConflict:
		return "block-conflict"
	default:
		return "unknown"
	}
}

// Decision is one entry of the resolver's output: the chosen change for
// one Resolvent.
type Decision struct {
	Resolvent Resolvent
	Kind      DecisionKind

	// From is the currently installed ID being replaced, nil for
	// DecisionInstall.
	From *metadata.PackageID
	// To is the candidate ID being installed, nil for a pure removal
	// (not modeled here; see UninstallList) and for DecisionBlockConflict.
	To *metadata.PackageID

	// Tags explains why this Decision exists (SUPPLEMENTED FEATURES
	// item 2).
	Tags []DepTag

	// Conflict is populated only for DecisionBlockConflict: the
	// offending block.
	Conflict *BlockConflict
}

// BlockConflict describes a blocker that could not be resolved against
// either the installed set or the in-progress plan.
type BlockConflict struct {
	// Blocked is the PackageID that declared the block.
	Blocked *metadata.PackageID
	// Blocking is the PackageID the block forbids coexisting with.
	Blocking *metadata.PackageID
	Strong   bool
}
