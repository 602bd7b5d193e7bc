// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package output provides the minimal io.Writer-backed logger used
// throughout the resolver, plus a Manager that fans a single action's
// phase output out to stdout and stderr. It is
// intentionally thin: golang-dep itself never reaches for a structured-
// logging library, so neither do we.
package output

import (
	"fmt"
	"io"
)

// Logger is a minimal wrapper around an io.Writer, grounded on
// golang-dep/log/logger.go.
type Logger struct {
	io.Writer
	verbose bool
}

// New returns a Logger writing to w.
func New(w io.Writer) *Logger {
	return &Logger{Writer: w}
}

// SetVerbose toggles whether Vlogf actually writes, mirroring
// internal/util/log.go's package-level Verbose flag but scoped to one
// Logger instance instead of a global.
func (l *Logger) SetVerbose(v bool) { l.verbose = v }

// Logln logs a line.
func (l *Logger) Logln(args ...interface{}) {
	fmt.Fprintln(l, args...)
}

// Logf logs a formatted string with no trailing newline.
func (l *Logger) Logf(format string, args ...interface{}) {
	fmt.Fprintf(l, format, args...)
}

// LogDepfln logs a formatted line prefixed with "resolve: ", mirroring
// golang-dep's "dep: "-prefixed LogDepfln.
func (l *Logger) LogDepfln(format string, args ...interface{}) {
	fmt.Fprintf(l, "resolve: "+format+"\n", args...)
}

// Vlogf logs only when verbose output has been enabled.
func (l *Logger) Vlogf(format string, args ...interface{}) {
	if !l.verbose {
		return
	}
	l.Logf(format, args...)
}

// Manager is the per-action output sink a metadata.InstallAction's
// NewOutputManager factory produces: one Manager per phase, wrapping
// separate stdout/stderr Loggers so a phase's ordinary progress output
// and its error/diagnostic output can be captured or routed separately
// (spec §3 "output-manager creation", §4.6 "hooks ... route through the
// injected output manager").
type Manager struct {
	stdout, stderr *Logger
}

// NewManager constructs a Manager writing stdout/stderr to the given
// writers.
func NewManager(stdout, stderr io.Writer) *Manager {
	return &Manager{stdout: New(stdout), stderr: New(stderr)}
}

// Stdout returns the Logger for ordinary phase progress output, typed as
// io.Writer so *Manager satisfies metadata.OutputManager.
func (m *Manager) Stdout() io.Writer { return m.stdout }

// Stderr returns the Logger for phase diagnostic/error output, typed as
// io.Writer so *Manager satisfies metadata.OutputManager.
func (m *Manager) Stderr() io.Writer { return m.stderr }

// StdoutLogger returns the concrete Logger for callers that want Logf/
// Vlogf/LogDepfln beyond the plain io.Writer surface.
func (m *Manager) StdoutLogger() *Logger { return m.stdout }

// StderrLogger returns the concrete Logger for callers that want Logf/
// Vlogf/LogDepfln beyond the plain io.Writer surface.
func (m *Manager) StderrLogger() *Logger { return m.stderr }
