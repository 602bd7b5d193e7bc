// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command resolvedemo is a small front end over this module's
// resolver, NDBAM installed-package store, and filesystem merger: just
// enough wiring to drive the library end to end from a shell.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/exherbo-go/resolve/internal/util"
)

var verbose = flag.Bool("v", false, "enable verbose logging")

type command interface {
	Name() string           // "resolve"
	Args() string           // "<atom>..."
	ShortHelp() string      // "Compute an install plan for the given atoms"
	Register(*flag.FlagSet) // command-specific flags
	Run(args []string) error
}

func main() {
	commands := []command{
		&resolveCommand{},
		&mergeCommand{},
	}

	usage := func() {
		fmt.Fprintln(os.Stderr, "Usage: resolvedemo <command>")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Commands:")
		fmt.Fprintln(os.Stderr)
		w := tabwriter.NewWriter(os.Stderr, 0, 4, 2, ' ', 0)
		for _, c := range commands {
			fmt.Fprintf(w, "\t%s\t%s\n", c.Name(), c.ShortHelp())
		}
		w.Flush()
		fmt.Fprintln(os.Stderr)
	}

	if len(os.Args) <= 1 || strings.ToLower(os.Args[1]) == "-h" || strings.ToLower(os.Args[1]) == "help" {
		usage()
		os.Exit(1)
	}

	for _, c := range commands {
		if c.Name() != os.Args[1] {
			continue
		}

		fs := flag.NewFlagSet(c.Name(), flag.ExitOnError)
		fs.BoolVar(verbose, "v", false, "enable verbose logging")
		c.Register(fs)
		resetUsage(fs, c.Name(), c.Args())

		if err := fs.Parse(os.Args[2:]); err != nil {
			fs.Usage()
			os.Exit(1)
		}
		util.Verbose = *verbose

		if err := c.Run(fs.Args()); err != nil {
			fmt.Fprintf(os.Stderr, "resolvedemo: %v\n", err)
			os.Exit(1)
		}
		return
	}

	fmt.Fprintf(os.Stderr, "resolvedemo: no such command %q\n", os.Args[1])
	usage()
	os.Exit(1)
}

func resetUsage(fs *flag.FlagSet, name, args string) {
	var (
		hasFlags   bool
		flagBlock  bytes.Buffer
		flagWriter = tabwriter.NewWriter(&flagBlock, 0, 4, 2, ' ', 0)
	)
	fs.VisitAll(func(f *flag.Flag) {
		hasFlags = true
		defValue := f.DefValue
		if defValue == "" {
			defValue = "<none>"
		}
		fmt.Fprintf(flagWriter, "\t-%s\t%s (default: %s)\n", f.Name, f.Usage, defValue)
	})
	flagWriter.Flush()
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: resolvedemo %s %s\n", name, args)
		fmt.Fprintln(os.Stderr)
		if hasFlags {
			fmt.Fprintln(os.Stderr, "Flags:")
			fmt.Fprintln(os.Stderr)
			fmt.Fprintln(os.Stderr, flagBlock.String())
		}
	}
}
