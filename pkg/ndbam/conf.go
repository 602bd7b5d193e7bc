// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ndbam

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// confFileName is the header file at the root of an NDBAM location
// (spec §6 "NDBAM layout", "<location>/ndbam.conf").
const confFileName = "ndbam.conf"

// Conf is the small key=value header every NDBAM location carries (spec
// §3 "ndbam.conf header with ndbam_format=1 and a repository_format
// field").
type Conf struct {
	NDBAMFormat      int    `toml:"ndbam_format"`
	RepositoryFormat string `toml:"repository_format"`
}

// FormatPredicate decides whether a stored repository_format string is
// acceptable to the caller (spec §4.5 "if present but the stored
// repository format string fails a supplied predicate, raise a
// configuration error").
type FormatPredicate func(repositoryFormat string) bool

// ConfigError reports a problem with an NDBAM location's on-disk layout
// or ndbam.conf contents, distinct from a plain I/O error.
type ConfigError struct {
	Location string
	Reason   string
}

func (e *ConfigError) Error() string {
	return "ndbam: " + e.Location + ": " + e.Reason
}

// loadConf reads and validates an existing ndbam.conf, or initialises a
// fresh skeleton when the location is empty and the file is absent (spec
// §4.5 "On-disk layout creation").
func loadConf(location string, accept FormatPredicate) (Conf, error) {
	confPath := filepath.Join(location, confFileName)

	raw, err := os.ReadFile(confPath)
	switch {
	case err == nil:
		var conf Conf
		if uerr := toml.Unmarshal(raw, &conf); uerr != nil {
			return Conf{}, errors.Wrapf(uerr, "parsing %s", confPath)
		}
		if accept != nil && !accept(conf.RepositoryFormat) {
			return Conf{}, &ConfigError{
				Location: location,
				Reason:   "repository_format " + conf.RepositoryFormat + " rejected by caller",
			}
		}
		return conf, nil

	case os.IsNotExist(err):
		empty, eerr := dirIsEmpty(location)
		if eerr != nil {
			return Conf{}, eerr
		}
		if !empty {
			return Conf{}, &ConfigError{
				Location: location,
				Reason:   "directory is non-empty but has no ndbam.conf",
			}
		}
		conf := Conf{NDBAMFormat: 1, RepositoryFormat: "ndbam-1"}
		if werr := saveConf(location, conf); werr != nil {
			return Conf{}, werr
		}
		return conf, nil

	default:
		return Conf{}, errors.Wrapf(err, "reading %s", confPath)
	}
}

// saveConf writes conf to location's ndbam.conf, creating the location
// directory and its data/indices skeleton if necessary.
func saveConf(location string, conf Conf) error {
	if err := os.MkdirAll(location, 0o755); err != nil {
		return errors.Wrapf(err, "creating ndbam location %s", location)
	}
	for _, sub := range []string{
		filepath.Join(location, "data"),
		filepath.Join(location, "indices", "categories"),
		filepath.Join(location, "indices", "packages"),
	} {
		if err := os.MkdirAll(sub, 0o755); err != nil {
			return errors.Wrapf(err, "creating %s", sub)
		}
	}

	raw, err := toml.Marshal(conf)
	if err != nil {
		return errors.Wrap(err, "marshalling ndbam.conf")
	}
	return errors.Wrap(
		os.WriteFile(filepath.Join(location, confFileName), raw, 0o644),
		"writing ndbam.conf",
	)
}

func dirIsEmpty(dir string) (bool, error) {
	f, err := os.Open(dir)
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "opening %s", dir)
	}
	defer f.Close()
	_, err = f.Readdirnames(1)
	switch err {
	case nil:
		return false, nil
	case io.EOF:
		return true, nil
	default:
		return false, err
	}
}
