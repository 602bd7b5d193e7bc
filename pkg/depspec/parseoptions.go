// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package depspec

import "github.com/exherbo-go/resolve/pkg/choice"

// ParseOptions captures the per-EAPI grammar knobs the parser must honor
// (spec §4.1 "a parse-options set (per-EAPI: whether || groups are
// allowed, whether labels, arrow fetch-uris, slot deps, use-dep defaults,
// tilde-greater, etc. are legal)").
type ParseOptions struct {
	// AllowAnyGroups permits "|| ( ... )" groups.
	AllowAnyGroups bool
	// AllowLabels permits "foo:" label groups (dependency trees only).
	AllowLabels bool
	// AllowArrow permits "X -> Y" rename arrows (fetchable-URI trees only).
	AllowArrow bool
	// AllowSlotDeps permits ":slot", ":=", ":*=", ":slot*" on PackageDepSpecs.
	AllowSlotDeps bool
	// AllowUseDepDefaults names the "[flag(+)]"/"[flag(-)]" USE-dep
	// defaults. The parser does not consult it.
	AllowUseDepDefaults bool
	// AllowTildeGreater names the "~>" (pessimistic) version operator. The
	// parser does not consult it and does not accept "~>" either way.
	AllowTildeGreater bool
	// AllowRepositoryQualifiers permits "::repo" and "::from->to".
	AllowRepositoryQualifiers bool

	// ContextChoices holds the subject package's own Choices. The parser
	// does not consult it: "[flag=]"/"[flag?]" choice requirements are
	// parsed structurally and never evaluated during parsing.
	ContextChoices *choice.Choices
}

// DefaultParseOptions sets every Allow* option except AllowTildeGreater;
// individual EAPI profiles narrow this down.
func DefaultParseOptions() ParseOptions {
	return ParseOptions{
		AllowAnyGroups:            true,
		AllowLabels:               true,
		AllowArrow:                true,
		AllowSlotDeps:             true,
		AllowUseDepDefaults:       true,
		AllowTildeGreater:         false,
		AllowRepositoryQualifiers: true,
	}
}
