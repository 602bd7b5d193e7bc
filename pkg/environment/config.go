// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package environment

import (
	"io"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// Config is the resolver-policy configuration file an Environment reads
// at construction: default accept-keywords, the reinstall policy, and
// the on-disk location of the world set. Grounded on golang-dep's own
// manifest.go/toml.go TOML-table-mapping idiom (accumulate-the-first-
// error-and-stop rather than returning on first failure).
type Config struct {
	AcceptKeywords   []string
	AcceptLicenses   []string
	ReinstallScm     bool
	ReinstallTargets bool
	WorldPath        string
}

// configMapper accumulates the first error encountered while reading
// fields out of a *toml.Tree, mirroring golang-dep's tomlMapper.
type configMapper struct {
	tree *toml.Tree
	err  error
}

func (m *configMapper) stringList(key string) []string {
	if m.err != nil {
		return nil
	}
	raw := m.tree.Get(key)
	if raw == nil {
		return nil
	}
	items, ok := raw.([]interface{})
	if !ok {
		m.err = errors.Errorf("invalid type for %s, should be an array, but it is a %T", key, raw)
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		s, ok := it.(string)
		if !ok {
			m.err = errors.Errorf("invalid element type for %s, should be a string, but it is a %T", key, it)
			return nil
		}
		out = append(out, s)
	}
	return out
}

func (m *configMapper) boolean(key string, def bool) bool {
	if m.err != nil {
		return def
	}
	raw := m.tree.Get(key)
	if raw == nil {
		return def
	}
	b, ok := raw.(bool)
	if !ok {
		m.err = errors.Errorf("invalid type for %s, should be a bool, but it is a %T", key, raw)
		return def
	}
	return b
}

func (m *configMapper) str(key, def string) string {
	if m.err != nil {
		return def
	}
	raw := m.tree.Get(key)
	if raw == nil {
		return def
	}
	s, ok := raw.(string)
	if !ok {
		m.err = errors.Errorf("invalid type for %s, should be a string, but it is a %T", key, raw)
		return def
	}
	return s
}

// ReadConfig parses a resolver-policy TOML document of the shape:
//
//	accept_keywords = ["amd64", "~amd64"]
//	accept_licenses = ["*"]
//	world = "/var/lib/resolve/world"
//
//	[reinstall]
//	scm = true
//	targets = false
func ReadConfig(r io.Reader) (Config, error) {
	tree, err := toml.LoadReader(r)
	if err != nil {
		return Config{}, errors.Wrap(err, "parsing resolver-policy config")
	}
	m := &configMapper{tree: tree}
	cfg := Config{
		AcceptKeywords:   m.stringList("accept_keywords"),
		AcceptLicenses:   m.stringList("accept_licenses"),
		WorldPath:        m.str("world", ""),
		ReinstallScm:     m.boolean("reinstall.scm", false),
		ReinstallTargets: m.boolean("reinstall.targets", false),
	}
	if m.err != nil {
		return Config{}, m.err
	}
	return cfg, nil
}
