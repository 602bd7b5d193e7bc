// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ndbam

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/exherbo-go/resolve/pkg/names"
	"github.com/exherbo-go/resolve/pkg/version"
)

// NewInstance is everything a caller supplies to register one freshly
// merged package as an installed instance: the manifest the merger
// produced, plus the handful of display fields a PackageID exposes that
// the manifest itself has no room for.
type NewInstance struct {
	Version     version.VersionSpec
	Slot        names.SlotName
	Magic       string // format-specific discriminator, folded into the instance dir name
	Description string
	Homepage    string
	Files       []FileEntry
	Dirs        []DirEntry
	Syms        []SymEntry
}

// Install writes instanceDir's data directory (contents manifest plus
// meta.toml) and then indexes it, in that order, so a crash between the
// two leaves an orphaned data directory rather than a dangling symlink
// (spec §3 "the NDBAM index is writeable only while the corresponding
// data directory exists"). On any failure after the data directory has
// been written, Install removes it again before returning.
func (n *NDBAM) Install(qpn names.QualifiedPackageName, inst NewInstance) (instanceDir string, err error) {
	instanceDir = buildInstanceName(inst.Version, inst.Slot, inst.Magic)
	dataDir := filepath.Join(n.location, "data", instanceDir)

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", errors.Wrapf(err, "ndbam: creating %s", dataDir)
	}
	defer func() {
		if err != nil {
			os.RemoveAll(dataDir)
		}
	}()

	if err := writeContentsFile(filepath.Join(dataDir, contentsFileName), inst); err != nil {
		return "", err
	}
	if err := saveInstanceMeta(dataDir, instanceMeta{
		Description:   inst.Description,
		Homepage:      inst.Homepage,
		InstalledTime: time.Now(),
	}); err != nil {
		return "", err
	}

	if n.digest != nil {
		contents, err := os.ReadFile(filepath.Join(dataDir, contentsFileName))
		if err != nil {
			return "", errors.Wrap(err, "reading back contents manifest")
		}
		if err := n.digest.put(instanceDir, digestManifest(contents)); err != nil {
			return "", err
		}
	}

	if err := n.Index(qpn, instanceDir); err != nil {
		if n.digest != nil {
			n.digest.forget(instanceDir)
		}
		return "", err
	}

	n.invalidate(qpn)
	return instanceDir, nil
}

// Uninstall deindexes instanceDir and removes its data directory, in
// that order (spec §3 "deindex removes both symlinks before any data
// directory is deleted").
func (n *NDBAM) Uninstall(qpn names.QualifiedPackageName, instanceDir string) error {
	if err := n.Deindex(qpn, instanceDir); err != nil {
		return err
	}
	dataDir := filepath.Join(n.location, "data", instanceDir)
	if err := os.RemoveAll(dataDir); err != nil {
		return errors.Wrapf(err, "ndbam: removing %s", dataDir)
	}
	if n.digest != nil {
		n.digest.forget(instanceDir)
	}
	n.invalidate(qpn)
	return nil
}

// invalidate drops qpn's cached instance list so the next IDs/Packages
// call re-reads the index directories, taking the locks in the mandated
// category → package order.
func (n *NDBAM) invalidate(qpn names.QualifiedPackageName) {
	cc := n.categoryEntry(qpn.Category)
	cc.mu.Lock()
	if cc.packages != nil {
		if pc, ok := cc.packages[qpn.Package]; ok {
			pc.mu.Lock()
			pc.loaded = false
			pc.ids = nil
			pc.mu.Unlock()
		}
		cc.loaded = false
	}
	cc.mu.Unlock()
}

func writeContentsFile(path string, inst NewInstance) error {
	var b strings.Builder
	for _, d := range inst.Dirs {
		b.WriteString(RenderDir(d))
		b.WriteByte('\n')
	}
	for _, f := range inst.Files {
		b.WriteString(RenderFile(f))
		b.WriteByte('\n')
	}
	for _, s := range inst.Syms {
		b.WriteString(RenderSym(s))
		b.WriteByte('\n')
	}
	return errors.Wrap(os.WriteFile(path, []byte(b.String()), 0o644), "writing contents manifest")
}
