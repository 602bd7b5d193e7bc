// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ndbam

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// metaFileName holds the small set of author-supplied display fields
// (description, homepage, install time) that the contents manifest has
// no room for; it is one of the "format-specific files" spec §3's data
// dir layout allows alongside contents.
const metaFileName = "meta.toml"

// rawInstanceMeta is meta.toml's on-disk shape.
type rawInstanceMeta struct {
	Description   string `toml:"description"`
	Homepage      string `toml:"homepage"`
	InstalledTime int64  `toml:"installed_time"`
}

func loadInstanceMeta(dataDir string) (instanceMeta, error) {
	path := filepath.Join(dataDir, metaFileName)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return instanceMeta{}, nil
		}
		return instanceMeta{}, errors.Wrapf(err, "reading %s", path)
	}
	var rm rawInstanceMeta
	if err := toml.Unmarshal(raw, &rm); err != nil {
		return instanceMeta{}, errors.Wrapf(err, "parsing %s", path)
	}
	m := instanceMeta{Description: rm.Description, Homepage: rm.Homepage}
	if rm.InstalledTime != 0 {
		m.InstalledTime = time.Unix(rm.InstalledTime, 0).UTC()
	}
	return m, nil
}

func saveInstanceMeta(dataDir string, m instanceMeta) error {
	rm := rawInstanceMeta{Description: m.Description, Homepage: m.Homepage}
	if !m.InstalledTime.IsZero() {
		rm.InstalledTime = m.InstalledTime.Unix()
	}
	raw, err := toml.Marshal(rm)
	if err != nil {
		return errors.Wrap(err, "marshalling meta.toml")
	}
	return errors.Wrap(
		os.WriteFile(filepath.Join(dataDir, metaFileName), raw, 0o644),
		"writing meta.toml",
	)
}
