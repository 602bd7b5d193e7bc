// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package metadata

import (
	"fmt"
	"io"
)

// ActionKind enumerates the operations a Repository may perform on a
// PackageID (spec §4.4 "Action kinds: Fetch, PretendFetch, Pretend,
// Install, Uninstall, Config, Info").
type ActionKind int

const (
	ActionFetch ActionKind = iota
	ActionPretendFetch
	ActionPretend
	ActionInstall
	ActionUninstall
	ActionConfig
	ActionInfo
)

func (k ActionKind) String() string {
	switch k {
	case ActionFetch:
		return "fetch"
	case ActionPretendFetch:
		return "pretend-fetch"
	case ActionPretend:
		return "pretend"
	case ActionInstall:
		return "install"
	case ActionUninstall:
		return "uninstall"
	case ActionConfig:
		return "config"
	case ActionInfo:
		return "info"
	default:
		return "unknown"
	}
}

// WantPhaseVerdict is the result of an InstallAction's WantPhase
// callback.
type WantPhaseVerdict int

const (
	PhaseYes WantPhaseVerdict = iota
	PhaseSkip
	PhaseAbort
)

// Action is the common interface every perform_action argument satisfies.
type Action interface {
	Kind() ActionKind
}

// InstallAction carries everything an install needs to merge a built
// image into a destination repository, optionally replacing other
// PackageIDs already installed in the same slot (spec §4.4). This package
// defines the action types only; it has no function that performs them.
type InstallAction struct {
	DestinationRepository RepositoryHandle
	// NewOutputManager is called once per phase to obtain the output sink
	// that phase should write to.
	NewOutputManager func(phase string) OutputManager
	// PerformUninstall, if set, is invoked once per entry in Replacing
	// after the new image has been merged in, in the order given.
	PerformUninstall func(id *PackageID) error
	Replacing        []*PackageID
	// WantPhase decides whether to run, skip, or abort each named phase.
	// Returning PhaseAbort makes the install fail with an
	// ActionFailedError of kind ActionFailedAborted and leaves any
	// partially merged state for the caller to clean up (spec
	// "Cancellation").
	WantPhase func(phase string) WantPhaseVerdict
}

func (InstallAction) Kind() ActionKind { return ActionInstall }

// OutputManager is the minimal sink an action's phases write progress and
// diagnostic text to; concrete loggers live in internal/output.
type OutputManager interface {
	Stdout() io.Writer
	Stderr() io.Writer
}

// FetchAction requests that an ID's distfiles be fetched (and optionally
// verified) without installing anything.
type FetchAction struct {
	Unneeded bool // when true, verify only, don't actually download
	SafeOnly bool // when true, refuse to fetch from e.g. local mirrors
}

func (FetchAction) Kind() ActionKind { return ActionFetch }

// PretendFetchAction asks whether a fetch would succeed without
// performing it (used for `--pretend` reporting).
type PretendFetchAction struct{}

func (PretendFetchAction) Kind() ActionKind { return ActionPretendFetch }

// PretendAction asks whether an install would likely succeed (e.g. a
// build-system sanity check) without installing anything.
type PretendAction struct{}

func (PretendAction) Kind() ActionKind { return ActionPretend }

// UninstallAction requests removal of an already-installed PackageID.
type UninstallAction struct {
	ReplacedBy []*PackageID
}

func (UninstallAction) Kind() ActionKind { return ActionUninstall }

// ConfigAction requests that an installed package run its
// post-install/post-upgrade configuration step (e.g. `pkg_config`).
type ConfigAction struct{}

func (ConfigAction) Kind() ActionKind { return ActionConfig }

// InfoAction requests that a package print diagnostic info about its own
// installed state.
type InfoAction struct{}

func (InfoAction) Kind() ActionKind { return ActionInfo }

// UnsupportedActionError reports an action requested on a PackageID
// whose SupportsAction(kind) is false.
type UnsupportedActionError struct {
	ID   *PackageID
	Kind ActionKind
}

func (e *UnsupportedActionError) Error() string {
	return fmt.Sprintf("%s does not support the %s action", e.ID, e.Kind)
}

// ActionFailedKind subclassifies an ActionFailedError.
type ActionFailedKind int

const (
	ActionFailedGeneric ActionFailedKind = iota
	ActionFailedAborted
	ActionFailedFetch
	ActionFailedBuild
	ActionFailedMerge
)

// ActionFailedError reports a supported action that was attempted but
// did not complete.
type ActionFailedError struct {
	ID    *PackageID
	Kind  ActionKind
	Sub   ActionFailedKind
	Cause error
}

func (e *ActionFailedError) Error() string {
	return fmt.Sprintf("%s: %s action failed: %s", e.ID, e.Kind, e.Cause)
}

func (e *ActionFailedError) Unwrap() error { return e.Cause }
