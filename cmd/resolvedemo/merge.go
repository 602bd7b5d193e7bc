// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/exherbo-go/resolve/internal/output"
	"github.com/exherbo-go/resolve/pkg/merger"
)

// mergeCommand drives the filesystem merger directly: useful for
// exercising spec §4.6 without going through a full build/install
// cycle.
type mergeCommand struct {
	image           string
	root            string
	installUnder    string
	apply           bool
	allowEmptyDirs  bool
	preserveMtimes  bool
	rewriteSymlinks bool
	noChown         bool
}

func (*mergeCommand) Name() string      { return "merge" }
func (*mergeCommand) Args() string      { return "" }
func (*mergeCommand) ShortHelp() string { return "merge a staged image directory into a live root" }

func (c *mergeCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&c.image, "image", "", "staged image directory (required)")
	fs.StringVar(&c.root, "root", "", "live root to merge into (required)")
	fs.StringVar(&c.installUnder, "under", "", "subpath under root to merge beneath")
	fs.BoolVar(&c.apply, "apply", false, "actually perform the merge (default is check-only)")
	fs.BoolVar(&c.allowEmptyDirs, "allow-empty-dirs", false, "don't error on a completely empty image directory")
	fs.BoolVar(&c.preserveMtimes, "preserve-mtimes", true, "copy mtimes from the image")
	fs.BoolVar(&c.rewriteSymlinks, "rewrite-symlinks", false, "rewrite absolute in-root symlink targets to the new root")
	fs.BoolVar(&c.noChown, "no-chown", true, "retain image ownership instead of chowning")
}

func (c *mergeCommand) Run([]string) error {
	if c.image == "" || c.root == "" {
		return errors.New("merge: -image and -root are required")
	}

	out := output.NewManager(os.Stdout, os.Stderr)
	out.StdoutLogger().SetVerbose(*verbose)

	m := merger.New(merger.Config{
		ImageDir:        c.image,
		RootDir:         c.root,
		InstallUnderDir: c.installUnder,
		NoChown:         c.noChown,
		Options: merger.Options{
			AllowEmptyDirs:  c.allowEmptyDirs,
			PreserveMtimes:  c.preserveMtimes,
			RewriteSymlinks: c.rewriteSymlinks,
		},
		Output: out,
	})

	if !c.apply {
		if err := m.Check(); err != nil {
			return errors.Wrap(err, "check")
		}
		fmt.Fprintln(os.Stdout, "check: ok")
		return nil
	}

	if err := m.Merge(); err != nil {
		return errors.Wrap(err, "merge")
	}
	fmt.Fprintln(os.Stdout, "merge: ok")
	return nil
}
