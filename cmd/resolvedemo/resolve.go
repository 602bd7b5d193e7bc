// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/pkg/errors"

	"github.com/exherbo-go/resolve/internal/util"
	"github.com/exherbo-go/resolve/pkg/depspec"
	"github.com/exherbo-go/resolve/pkg/environment"
	"github.com/exherbo-go/resolve/pkg/names"
	"github.com/exherbo-go/resolve/pkg/ndbam"
	"github.com/exherbo-go/resolve/pkg/resolver"
	"github.com/exherbo-go/resolve/pkg/sets"
)

// resolveCommand computes an install plan for one or more atoms
// against an on-disk NDBAM store, printing the resulting Decisions.
type resolveCommand struct {
	store   string
	config  string
	setsDir string
}

func (*resolveCommand) Name() string      { return "resolve" }
func (*resolveCommand) Args() string      { return "<atom>..." }
func (*resolveCommand) ShortHelp() string { return "compute an install plan for the given atoms" }

func (c *resolveCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&c.store, "store", "", "NDBAM installed-package store directory (required)")
	fs.StringVar(&c.config, "config", "", "resolver-policy TOML config (optional)")
	fs.StringVar(&c.setsDir, "sets", "", "directory of paludis-conf .conf set files (optional)")
}

func (c *resolveCommand) Run(args []string) error {
	if c.store == "" {
		return errors.New("resolve: -store is required")
	}
	if len(args) == 0 {
		return errors.New("resolve: at least one atom is required")
	}

	cfg, err := c.readConfig()
	if err != nil {
		return err
	}

	installedName, err := names.NewRepositoryName("installed")
	if err != nil {
		return err
	}
	store, err := ndbam.Open(c.store, installedName, "/")
	if err != nil {
		return errors.Wrap(err, "opening NDBAM store")
	}
	defer store.Close()

	world := sets.NewSimpleSet()
	if err := world.Load(filepath.Join(c.store, "world")); err != nil {
		return errors.Wrap(err, "loading world set")
	}

	env := environment.New(cfg, world)
	env.AddRepository(store, 0)

	r := resolver.New(env, store, resolver.ReinstallNever)
	r.Sets = &sets.Expander{Resolver: &sets.Resolver{
		Installed: store,
		Load:      c.loadSet,
		Warn:      func(msg string) { util.Vlogf("%s", msg) },
	}}

	opts := depspec.DefaultParseOptions()
	for _, a := range args {
		spec, err := depspec.ParsePackageDepSpec(a, opts)
		if err != nil {
			return errors.Wrapf(err, "parsing atom %q", a)
		}
		r.AddTarget(spec)
	}

	decisions, err := r.Resolve()
	if err != nil {
		return errors.Wrap(err, "resolving")
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DECISION\tPACKAGE\tFROM\tTO")
	for _, d := range decisions {
		from, to := "-", "-"
		if d.From != nil {
			from = d.From.String()
		}
		if d.To != nil {
			to = d.To.String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.Kind, d.Resolvent, from, to)
	}
	return w.Flush()
}

func (c *resolveCommand) readConfig() (environment.Config, error) {
	if c.config == "" {
		return environment.Config{}, nil
	}
	f, err := os.Open(c.config)
	if err != nil {
		return environment.Config{}, errors.Wrap(err, "opening resolver-policy config")
	}
	defer f.Close()
	return environment.ReadConfig(f)
}

// loadSet loads a named paludis-conf set file out of c.setsDir, the
// resolver.SetExpander/sets.Resolver Loader collaborator for resolving
// "@name" references (spec §4.7).
func (c *resolveCommand) loadSet(name string) ([]sets.ConfEntry, error) {
	if c.setsDir == "" {
		return nil, nil
	}
	path := filepath.Join(c.setsDir, name+".conf")
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "opening set %q", name)
	}
	defer f.Close()
	return sets.ParsePaludisConf(f, func(msg string) { util.Vlogf("%s: %s", name, msg) })
}
