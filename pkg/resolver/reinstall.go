// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resolver

// ReinstallPolicy controls whether an already-installed, already-
// up-to-date candidate is reinstalled anyway (spec §4.2 "Reinstallation
// policy (configurable)").
type ReinstallPolicy int

const (
	// ReinstallNever never reinstalls a same-version, same-Choices
	// candidate.
	ReinstallNever ReinstallPolicy = iota
	// ReinstallAlways reinstalls even when nothing about the candidate
	// differs from what is installed.
	ReinstallAlways
	// ReinstallIfChoicesChanged reinstalls when the effective Choices
	// differ from the installed instance's, even at the same version.
	ReinstallIfChoicesChanged
)
