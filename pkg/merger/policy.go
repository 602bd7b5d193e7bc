// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package merger

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// liveKind classifies what, if anything, already occupies a
// destination path, distinguishing a real directory/file from a
// symlink and, for a symlink, what it resolves to (spec §4.6's
// cross-product table keys several cells off the resolved type).
type liveKind int

const (
	liveNothing liveKind = iota
	liveDir
	liveFile
	liveSymlinkToDir
	liveSymlinkToFile
	liveSymlinkDangling
)

func inspectLive(dst string) (liveKind, error) {
	fi, err := os.Lstat(dst)
	if os.IsNotExist(err) {
		return liveNothing, nil
	}
	if err != nil {
		return liveNothing, err
	}
	if fi.Mode()&os.ModeSymlink == 0 {
		if fi.IsDir() {
			return liveDir, nil
		}
		return liveFile, nil
	}
	target, err := os.Stat(dst)
	if os.IsNotExist(err) {
		return liveSymlinkDangling, nil
	}
	if err != nil {
		return liveNothing, err
	}
	if target.IsDir() {
		return liveSymlinkToDir, nil
	}
	return liveSymlinkToFile, nil
}

// planAndApply validates entry e against the current state of its
// destination under the spec §4.6 cross-product table and, if apply
// is set, performs the transfer.
func (m *Merger) planAndApply(e walkedEntry, apply bool) error {
	dst := m.destPath(e.relPath)
	switch e.kind {
	case KindDir:
		return m.mergeDir(e, dst, apply)
	case KindSymlink:
		return m.mergeSymlink(e, dst, apply)
	default:
		return m.mergeFile(e, dst, apply)
	}
}

func (m *Merger) mergeDir(e walkedEntry, dst string, apply bool) error {
	lk, err := inspectLive(dst)
	if err != nil {
		return errors.Wrapf(err, "inspecting %s", dst)
	}
	switch lk {
	case liveNothing:
		if !apply {
			return nil
		}
		fi, err := os.Lstat(e.absPath)
		if err != nil {
			return errors.Wrapf(err, "stat %s", e.absPath)
		}
		if err := os.Mkdir(dst, fi.Mode().Perm()); err != nil {
			return errors.Wrapf(err, "creating directory %s", dst)
		}
		return m.applyIdentity(dst, e.absPath)
	case liveDir, liveSymlinkToDir:
		return nil // reuse
	case liveFile:
		return errors.Errorf("merger: %s: directory collides with an existing regular file", e.relPath)
	default: // liveSymlinkToFile, liveSymlinkDangling
		return errors.Errorf("merger: %s: directory collides with a symlink that does not resolve to a directory", e.relPath)
	}
}

func (m *Merger) mergeFile(e walkedEntry, dst string, apply bool) error {
	lk, err := inspectLive(dst)
	if err != nil {
		return errors.Wrapf(err, "inspecting %s", dst)
	}

	switch lk {
	case liveNothing:
		if !apply {
			return nil
		}
		return m.installFile(e.absPath, dst)

	case liveDir:
		if m.protect(e.absPath, dst) {
			return m.installProtected(e.absPath, dst, apply)
		}
		return errors.Errorf("merger: %s: regular file collides with an existing directory", e.relPath)

	case liveFile:
		if m.protect(e.absPath, dst) {
			return m.installProtected(e.absPath, dst, apply)
		}
		if !apply {
			return nil
		}
		return m.installFile(e.absPath, dst)

	default: // liveSymlinkToDir, liveSymlinkToFile, liveSymlinkDangling
		if !apply {
			return nil
		}
		if err := os.Remove(dst); err != nil {
			return errors.Wrapf(err, "removing symlink %s", dst)
		}
		return m.installFile(e.absPath, dst)
	}
}

func (m *Merger) mergeSymlink(e walkedEntry, dst string, apply bool) error {
	lk, err := inspectLive(dst)
	if err != nil {
		return errors.Wrapf(err, "inspecting %s", dst)
	}

	switch lk {
	case liveNothing:
		if !apply {
			return nil
		}
		return m.installSymlink(e.absPath, dst)

	case liveDir:
		return errors.Errorf("merger: %s: symlink collides with an existing directory", e.relPath)

	case liveFile:
		if !apply {
			return nil
		}
		if err := os.Remove(dst); err != nil {
			return errors.Wrapf(err, "removing %s", dst)
		}
		return m.installSymlink(e.absPath, dst)

	default: // liveSymlinkToDir, liveSymlinkToFile, liveSymlinkDangling
		if !apply {
			return nil
		}
		if err := os.Remove(dst); err != nil {
			return errors.Wrapf(err, "removing symlink %s", dst)
		}
		return m.installSymlink(e.absPath, dst)
	}
}

// protect reports whether the file collision at dst should be
// diverted rather than overwritten or raised as an error.
func (m *Merger) protect(src, dst string) bool {
	return m.cfg.ConfigProtected != nil && m.cfg.ConfigProtected(src, dst)
}

func (m *Merger) installProtected(src, dst string, apply bool) error {
	if !apply {
		return nil
	}
	diverted := m.cfg.ConfigProtectName(src, dst)
	return m.installFile(src, diverted)
}

// joinUnderRoot computes the live-root path an image-relative path
// merges to, inserting the configured install-under prefix.
func joinUnderRoot(rootDir, installUnderDir, relPath string) string {
	return filepath.Join(rootDir, installUnderDir, relPath)
}
