// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package merger

import (
	"path/filepath"

	"github.com/karrick/godirwalk"
	"github.com/pkg/errors"

	"github.com/exherbo-go/resolve/internal/fs"
)

// walkedEntry is one image-tree node discovered by walkImage, in
// deterministic depth-first pre-order (spec §5 "the merger performs
// entries in a deterministic depth-first pre-order over the image
// tree").
type walkedEntry struct {
	absPath string
	relPath string
	kind    EntryKind
}

// walkImage walks imageDir and returns every entry beneath it,
// excluding imageDir itself from the returned list. A directory with
// zero direct children is an error unless allowEmptyDirs is set (spec
// §4.6 "Empty directories"); this applies to imageDir itself too, so a
// wholly empty image (the classic "the build wiped the image" failure)
// still fails Check() instead of silently merging nothing.
func walkImage(imageDir string, allowEmptyDirs bool) ([]walkedEntry, error) {
	var entries []walkedEntry

	err := godirwalk.Walk(imageDir, &godirwalk.Options{
		Callback: func(osPathname string, de *godirwalk.Dirent) error {
			if osPathname == imageDir {
				if !allowEmptyDirs {
					nonEmpty, err := fs.IsNonEmptyDir(osPathname)
					if err != nil {
						return errors.Wrapf(err, "reading %s", osPathname)
					}
					if !nonEmpty {
						return errors.New("merger: image directory is completely empty")
					}
				}
				return nil
			}
			rel, err := filepath.Rel(imageDir, osPathname)
			if err != nil {
				return errors.Wrapf(err, "relativizing %s", osPathname)
			}

			kind := KindFile
			switch {
			case de.IsSymlink():
				kind = KindSymlink
			case de.IsDir():
				kind = KindDir
			}

			if kind == KindDir && !allowEmptyDirs {
				nonEmpty, err := fs.IsNonEmptyDir(osPathname)
				if err != nil {
					return errors.Wrapf(err, "reading %s", osPathname)
				}
				if !nonEmpty {
					return errors.Errorf("merger: image directory %s is completely empty", rel)
				}
			}

			entries = append(entries, walkedEntry{absPath: osPathname, relPath: rel, kind: kind})
			return nil
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "walking image")
	}
	return entries, nil
}
