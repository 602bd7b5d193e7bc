// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resolver

import (
	"fmt"

	"github.com/exherbo-go/resolve/pkg/depspec"
)

// AllMaskedError is returned from Resolve when every candidate for a
// query was masked (spec §7 "Resolver: AllMasked (carries the offending
// query)").
type AllMaskedError struct {
	Query depspec.PackageDepSpec
}

func (e *AllMaskedError) Error() string {
	return fmt.Sprintf("no unmasked candidate satisfies %q", e.Query.String())
}

// CircularDependencyError is returned when the run/post dependency graph
// contains a cycle with no annotation breaking it.
type CircularDependencyError struct {
	Cycle []Resolvent
}

func (e *CircularDependencyError) Error() string {
	s := "circular dependency:"
	for _, r := range e.Cycle {
		s += " " + r.String() + " ->"
	}
	return s + " " + e.Cycle[0].String()
}

// BlockError is returned when a strong block against a required
// candidate could not be resolved.
type BlockError struct {
	Conflict BlockConflict
}

func (e *BlockError) Error() string {
	return fmt.Sprintf("%s blocks %s and the block could not be resolved",
		e.Conflict.Blocked.CanonicalForm(), e.Conflict.Blocking.CanonicalForm())
}

// AdditionalRequirementsNotMetError is returned when a candidate was
// selected but a choice/key requirement attached to the query it was
// selected for does not hold against it.
type AdditionalRequirementsNotMetError struct {
	Query depspec.PackageDepSpec
}

func (e *AdditionalRequirementsNotMetError) Error() string {
	return fmt.Sprintf("additional requirements not met for %q", e.Query.String())
}

// DowngradeNotAllowedError is returned when the only candidate
// satisfying a query is older than what is installed, and the resolver's
// policy forbids downgrading.
type DowngradeNotAllowedError struct {
	Resolvent Resolvent
}

func (e *DowngradeNotAllowedError) Error() string {
	return fmt.Sprintf("%s would be downgraded, which is not allowed", e.Resolvent)
}

// NoDestinationError is returned when a candidate was selected for
// install but no registered Repository accepts
// repository.CapabilityDestination.
type NoDestinationError struct {
	Resolvent Resolvent
}

func (e *NoDestinationError) Error() string {
	return fmt.Sprintf("no destination repository available for %s", e.Resolvent)
}
