// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package merger

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	shutil "github.com/termie/go-shutil"

	"github.com/exherbo-go/resolve/internal/fs"
)

// installFile copies src over dst, then applies identity, permission
// bits, and mtime per Config (spec §4.6 "install, chown, chmod, set
// mtime"). dst's parent directory is assumed to already exist, since
// the pre-order walk merges a directory before any of its children.
func (m *Merger) installFile(src, dst string) error {
	if err := shutil.CopyFile(src, dst, false); err != nil {
		return errors.Wrapf(err, "copying %s to %s", src, dst)
	}
	fi, err := os.Lstat(src)
	if err != nil {
		return errors.Wrapf(err, "stat %s", src)
	}
	if err := os.Chmod(dst, fi.Mode().Perm()); err != nil {
		return errors.Wrapf(err, "chmod %s", dst)
	}
	if err := m.applyIdentity(dst, src); err != nil {
		return err
	}
	return m.applyMtime(dst, fi)
}

// installSymlink recreates src's symlink at dst, optionally rewriting
// an absolute in-root target (spec §4.6 "if rewrite-symlinks and
// target is absolute inside root, rewrite to the new root").
func (m *Merger) installSymlink(src, dst string) error {
	target, err := os.Readlink(src)
	if err != nil {
		return errors.Wrapf(err, "reading symlink %s", src)
	}
	if m.cfg.Options.RewriteSymlinks && filepath.IsAbs(target) {
		if rewritten, ok := m.rewriteSymlinkTarget(target); ok {
			target = rewritten
		}
	}
	if err := os.Symlink(target, dst); err != nil {
		return errors.Wrapf(err, "creating symlink %s -> %s", dst, target)
	}
	return m.applyIdentity(dst, src)
}

// rewriteSymlinkTarget rewrites an absolute target that already lives
// under install_under_dir within the image's own namespace so it
// instead points at the equivalent path under root_dir.
func (m *Merger) rewriteSymlinkTarget(target string) (string, bool) {
	under := filepath.Clean(m.cfg.InstallUnderDir)
	if under == "." || under == "" {
		return target, false
	}
	cleaned := filepath.Clean(target)
	if !fs.HasFilepathPrefix(cleaned, under) {
		return target, false
	}
	rel := strings.TrimPrefix(cleaned, under)
	return filepath.Join(m.cfg.RootDir, under, rel), true
}

// applyIdentity chowns dst per Config.GetNewIDs, unless NoChown is
// set, in which case the image's ownership (i.e. whatever the copy or
// symlink creation already produced) is left untouched.
func (m *Merger) applyIdentity(dst, imagePath string) error {
	if m.cfg.NoChown || m.cfg.GetNewIDs == nil {
		return nil
	}
	uid, gid := m.cfg.GetNewIDs(imagePath)
	if err := os.Lchown(dst, uid, gid); err != nil {
		return errors.Wrapf(err, "chown %s", dst)
	}
	return nil
}

// applyMtime sets dst's mtime from the image file's mtime when
// PreserveMtimes is set, clamping to FixMtimesBefore when the image's
// mtime predates it. Directory mtimes are never touched by the
// merger, so callers never invoke this for a KindDir entry.
func (m *Merger) applyMtime(dst string, imageFI os.FileInfo) error {
	if !m.cfg.Options.PreserveMtimes {
		return nil
	}
	mtime := imageFI.ModTime()
	if !m.cfg.FixMtimesBefore.IsZero() && mtime.Before(m.cfg.FixMtimesBefore) {
		mtime = m.cfg.FixMtimesBefore
	}
	if err := os.Chtimes(dst, time.Now(), mtime); err != nil {
		return errors.Wrapf(err, "setting mtime on %s", dst)
	}
	return nil
}
