// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fetch provides the VCS-backed network fetcher behind a
// Repository's mirror/distfile collaborator point. Per the spec, the
// actual fetch/build driver lives outside this module's scope (§1 "build
// driver (external)"); this package only grounds the *interface* such an
// external driver is plugged in through, wrapping Masterminds/vcs the
// way golang-dep's internal/gps/vcs_repo.go wraps it for its own source
// manager.
package fetch

import (
	"context"
	"os"

	"github.com/Masterminds/vcs"
	"github.com/pkg/errors"
)

// Source names one of the VCS kinds Masterminds/vcs supports.
type Source vcs.Type

const (
	SourceGit Source = Source(vcs.Git)
	SourceHg  Source = Source(vcs.Hg)
	SourceBzr Source = Source(vcs.Bzr)
	SourceSvn Source = Source(vcs.Svn)
)

// Fetcher clones or updates a single upstream location into a local
// working copy, and checks out a specific revision within it. It is the
// collaborator a Repository implementation calls into for
// ActionFetch/ActionPretendFetch (metadata.ActionKind), never invoked
// directly by the resolver.
type Fetcher struct {
	repo vcs.Repo
}

// NewFetcher constructs a Fetcher for a single (remote, local) pair.
// Nothing is written to the local path until the first Sync clones into it.
// Mirrors golang-dep's internal/gps/vcs_repo.go getVCSRepo switch, minus
// the retry-on-corrupt-checkout behavior that source manager needs for
// its own caching layer and this package does not.
func NewFetcher(kind Source, remote, local string) (*Fetcher, error) {
	var repo vcs.Repo
	var err error
	switch vcs.Type(kind) {
	case vcs.Git:
		repo, err = vcs.NewGitRepo(remote, local)
	case vcs.Bzr:
		repo, err = vcs.NewBzrRepo(remote, local)
	case vcs.Hg:
		repo, err = vcs.NewHgRepo(remote, local)
	case vcs.Svn:
		repo, err = vcs.NewSvnRepo(remote, local)
	default:
		return nil, errors.Errorf("unknown VCS kind %v", kind)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "constructing %v fetcher for %s", kind, remote)
	}
	return &Fetcher{repo: repo}, nil
}

// Sync clones the repository if the local path doesn't exist yet, or
// fetches updates into an existing checkout otherwise. ctx is not
// consulted: cancelling it does not stop a running clone or update.
func (f *Fetcher) Sync(ctx context.Context) error {
	if _, err := os.Stat(f.repo.LocalPath()); os.IsNotExist(err) {
		if err := f.repo.Get(); err != nil {
			return errors.Wrapf(err, "cloning %s", f.repo.Remote())
		}
		return nil
	}
	if err := f.repo.Update(); err != nil {
		return errors.Wrapf(err, "updating %s", f.repo.Remote())
	}
	return nil
}

// Checkout moves the working copy to the named revision, tag, or branch.
func (f *Fetcher) Checkout(version string) error {
	if err := f.repo.UpdateVersion(version); err != nil {
		return errors.Wrapf(err, "checking out %s at %s", f.repo.Remote(), version)
	}
	return nil
}

// CurrentVersion reports the revision the local checkout is currently at.
func (f *Fetcher) CurrentVersion() (string, error) {
	v, err := f.repo.Version()
	if err != nil {
		return "", errors.Wrapf(err, "reading current version of %s", f.repo.LocalPath())
	}
	return v, nil
}

// LocalPath returns the on-disk working copy path.
func (f *Fetcher) LocalPath() string { return f.repo.LocalPath() }
