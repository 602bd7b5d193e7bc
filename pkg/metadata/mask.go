// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package metadata

import "fmt"

// Mask describes one reason a PackageID may not be installed (spec §3
// "Mask. Variant describing why an ID may not be installed: user,
// repository, keyword, license, choice-required, unaccepted, broken").
// Key and Description are the SUPPLEMENTED FEATURES addition: every Mask
// variant can render itself without a type switch at the call site.
type Mask interface {
	Key() string
	Description() string
}

// UserMask is applied by an explicit environment-level package.mask-style
// entry written by the user.
type UserMask struct {
	Comment string
}

func (m UserMask) Key() string { return "user" }
func (m UserMask) Description() string {
	if m.Comment == "" {
		return "masked by the user"
	}
	return "masked by the user: " + m.Comment
}

// RepositoryMask is applied by the repository itself (its own
// package.mask).
type RepositoryMask struct {
	Repository string
	Comment    string
}

func (m RepositoryMask) Key() string { return "repository" }
func (m RepositoryMask) Description() string {
	return fmt.Sprintf("masked by repository %q: %s", m.Repository, m.Comment)
}

// KeywordMask is applied because none of the ID's keywords are accepted
// by the environment's keyword policy.
type KeywordMask struct {
	Keywords []string
}

func (m KeywordMask) Key() string { return "keyword" }
func (m KeywordMask) Description() string {
	return fmt.Sprintf("not keyworded for this environment (has %v)", m.Keywords)
}

// LicenseMask is applied because the ID's license(s) are not accepted.
type LicenseMask struct {
	Licenses []string
}

func (m LicenseMask) Key() string { return "license" }
func (m LicenseMask) Description() string {
	return fmt.Sprintf("license not accepted (has %v)", m.Licenses)
}

// ChoiceRequiredMask is applied because a required Choice value has not
// been set.
type ChoiceRequiredMask struct {
	Flag string
}

func (m ChoiceRequiredMask) Key() string { return "choice-required" }
func (m ChoiceRequiredMask) Description() string {
	return fmt.Sprintf("choice %q must be set explicitly before this can be used", m.Flag)
}

// UnacceptedMask is applied by a generic accept_handler stability/testing
// policy (e.g. ~arch keywords not accepted, or a "testing" repository not
// opted into).
type UnacceptedMask struct {
	Reason string
}

func (m UnacceptedMask) Key() string { return "unaccepted" }
func (m UnacceptedMask) Description() string {
	return "not accepted: " + m.Reason
}

// BrokenMask is applied when the repository itself could not produce
// usable metadata for the ID (a parse failure, a missing build file).
type BrokenMask struct {
	Cause error
}

func (m BrokenMask) Key() string { return "broken" }
func (m BrokenMask) Description() string {
	return "broken metadata: " + m.Cause.Error()
}
