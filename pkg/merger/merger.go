// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package merger transfers a staged build image into a live root,
// entry by entry, in a deterministic depth-first pre-order walk of the
// image tree. It never touches anything the image tree does not
// mention; removing a replaced package's old contents is the
// uninstaller's job, not the merger's.
package merger

import (
	"time"

	"github.com/exherbo-go/resolve/internal/output"
)

// EntryKind is the file-system node type the merger distinguishes.
// Anything that is not a directory or a symlink is treated as a
// regular file.
type EntryKind int

const (
	KindFile EntryKind = iota
	KindDir
	KindSymlink
)

func (k EntryKind) String() string {
	switch k {
	case KindDir:
		return "dir"
	case KindSymlink:
		return "sym"
	default:
		return "file"
	}
}

// Options enables the merger's optional behaviors.
type Options struct {
	// RewriteSymlinks, when set, rewrites an image symlink's target to
	// point into root_dir if the target is an absolute path that
	// already resolves inside root_dir's namespace.
	RewriteSymlinks bool

	// AllowEmptyDirs suppresses the check-time error that a completely
	// empty image directory otherwise raises.
	AllowEmptyDirs bool

	// PreserveMtimes copies each merged regular file's mtime from the
	// image. Directory mtimes are never preserved regardless of this
	// setting.
	PreserveMtimes bool
}

// IdentityFunc returns the (uid, gid) a merged entry at imagePath
// should receive. Either may be -1, meaning "leave that component
// unchanged" (this is also exactly the sentinel os.Chown itself
// honors, so callers can return straight through).
type IdentityFunc func(imagePath string) (uid, gid int)

// ConfigProtectedFunc decides whether installing src over dst should
// instead be diverted alongside dst under a renamed path, to avoid
// clobbering a live configuration file.
type ConfigProtectedFunc func(src, dst string) bool

// ConfigProtectNameFunc produces the diverted path for a protected
// install, e.g. appending ".cfgpro" to dst's base name.
type ConfigProtectNameFunc func(src, dst string) string

// PathSet is the narrow collaborator the merger reports every written
// relative path to. A caller wanting to know what the merge touched
// supplies one; nil is fine and simply discards the reports.
type PathSet interface {
	Add(path string)
}

// Hooks are invoked before and after the merge as a whole, and before
// and after each entry within it. The default Hooks implementation
// routes everything through an output.Manager, per the requirement
// that hook invocations are observable only via the injected output
// manager.
type Hooks interface {
	PreMerge(imageDir, rootDir string)
	PostMerge(imageDir, rootDir string, err error)
	PreMergeEntry(relPath string, kind EntryKind)
	PostMergeEntry(relPath string, kind EntryKind, err error)
}

// Config is everything one merge needs.
type Config struct {
	ImageDir        string
	RootDir         string
	InstallUnderDir string

	GetNewIDs       IdentityFunc
	FixMtimesBefore time.Time
	NoChown         bool
	Options         Options

	Output *output.Manager
	Hooks  Hooks

	ConfigProtected   ConfigProtectedFunc
	ConfigProtectName ConfigProtectNameFunc

	MergedEntries PathSet
}

// Merger merges one image into one root under a fixed Config.
type Merger struct {
	cfg   Config
	hooks Hooks
}

// New constructs a Merger. A nil cfg.Hooks gets the output-manager-
// backed default.
func New(cfg Config) *Merger {
	hooks := cfg.Hooks
	if hooks == nil {
		hooks = outputHooks{out: cfg.Output}
	}
	if cfg.ConfigProtectName == nil {
		cfg.ConfigProtectName = defaultConfigProtectName
	}
	return &Merger{cfg: cfg, hooks: hooks}
}

func defaultConfigProtectName(src, dst string) string {
	return dst + ".cfgpro"
}

// Check performs a dry run: it walks the image, validates every entry
// against the cross-product policy, and invokes hooks exactly as Merge
// would, but writes nothing to root_dir.
func (m *Merger) Check() error {
	_, err := m.run(false)
	return err
}

// Merge actually transfers the image into root_dir. On any per-entry
// error it aborts immediately; entries already transferred before the
// failing one are left in place, since the merger writes only new
// state and never owns cleanup of a partial merge (that is the
// caller's responsibility, typically by discarding the whole
// transaction).
func (m *Merger) Merge() error {
	_, err := m.run(true)
	return err
}

func (m *Merger) run(apply bool) ([]walkedEntry, error) {
	m.hooks.PreMerge(m.cfg.ImageDir, m.cfg.RootDir)

	entries, err := walkImage(m.cfg.ImageDir, m.cfg.Options.AllowEmptyDirs)
	if err != nil {
		m.hooks.PostMerge(m.cfg.ImageDir, m.cfg.RootDir, err)
		return nil, err
	}

	for _, e := range entries {
		m.hooks.PreMergeEntry(e.relPath, e.kind)
		err = m.planAndApply(e, apply)
		m.hooks.PostMergeEntry(e.relPath, e.kind, err)
		if err != nil {
			break
		}
		if apply && m.cfg.MergedEntries != nil {
			m.cfg.MergedEntries.Add(e.relPath)
		}
	}

	m.hooks.PostMerge(m.cfg.ImageDir, m.cfg.RootDir, err)
	return entries, err
}

// destPath returns the live-root path an image entry's relative path
// merges to.
func (m *Merger) destPath(relPath string) string {
	return joinUnderRoot(m.cfg.RootDir, m.cfg.InstallUnderDir, relPath)
}

type outputHooks struct {
	out *output.Manager
}

func (h outputHooks) logf(format string, args ...interface{}) {
	if h.out == nil {
		return
	}
	h.out.StdoutLogger().Vlogf(format, args...)
}

func (h outputHooks) PreMerge(imageDir, rootDir string) {
	h.logf("merging %s into %s\n", imageDir, rootDir)
}

func (h outputHooks) PostMerge(imageDir, rootDir string, err error) {
	if err != nil {
		h.logf("merge of %s into %s failed: %v\n", imageDir, rootDir, err)
		return
	}
	h.logf("merge of %s into %s complete\n", imageDir, rootDir)
}

func (h outputHooks) PreMergeEntry(relPath string, kind EntryKind) {
	h.logf("> %s %s\n", kind, relPath)
}

func (h outputHooks) PostMergeEntry(relPath string, kind EntryKind, err error) {
	if err != nil {
		h.logf("! %s %s: %v\n", kind, relPath, err)
	}
}
