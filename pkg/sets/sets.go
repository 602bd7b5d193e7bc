// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sets implements set files (spec §4.7): named collections of
// atoms backing world, security, system, and user-defined sets. Three
// on-disk formats are supported -- simple, paludis-conf, and
// paludis-bash -- plus an in-memory SimpleSet that satisfies
// environment.WorldSet.
package sets

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/pkg/errors"

	"github.com/exherbo-go/resolve/pkg/depspec"
)

// Entry is one line of a set file, already classified as either a
// direct package constraint or a reference to another named set.
type Entry struct {
	// SetRef is non-empty when the line named another set rather than
	// an atom ("category-less `name` interpreted as a set reference",
	// spec §4.7).
	SetRef string
	// Spec is valid when SetRef is empty.
	Spec depspec.PackageDepSpec
}

func (e Entry) String() string {
	if e.SetRef != "" {
		return e.SetRef
	}
	return e.Spec.String()
}

// Operator is the paludis-conf line prefix (spec §4.7).
type Operator int

const (
	// OpInclude ("*") unconditionally includes the entry.
	OpInclude Operator = iota
	// OpIfAnyVersion ("?") includes the entry if any version of the
	// named package is installed.
	OpIfAnyVersion
	// OpIfSlotMatches ("?:") includes the entry if an installed
	// instance matches the entry's slot requirement.
	OpIfSlotMatches
)

func (op Operator) String() string {
	switch op {
	case OpInclude:
		return "*"
	case OpIfAnyVersion:
		return "?"
	case OpIfSlotMatches:
		return "?:"
	default:
		return "?"
	}
}

// ConfEntry is one parsed paludis-conf line.
type ConfEntry struct {
	Operator Operator
	Entry    Entry
}

// ParseError reports a malformed set-file line.
type ParseError struct {
	Line  int
	Text  string
	Cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("set file line %d (%q): %v", e.Line, e.Text, e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

func stripComment(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return "", false
	}
	return trimmed, true
}

func parseEntry(field string, opts depspec.ParseOptions) (Entry, error) {
	if !strings.Contains(field, "/") {
		return Entry{SetRef: field}, nil
	}
	spec, err := depspec.ParsePackageDepSpec(field, opts)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Spec: spec}, nil
}

// ParseSimple parses the simple set-file format: one atom per line,
// `#`-comments, blank lines ignored, a category-less name taken as a
// reference to another set (spec §4.7).
func ParseSimple(r io.Reader) ([]Entry, error) {
	opts := depspec.DefaultParseOptions()
	var entries []Entry
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text, ok := stripComment(scanner.Text())
		if !ok {
			continue
		}
		for _, field := range strings.Fields(text) {
			entry, err := parseEntry(field, opts)
			if err != nil {
				return nil, &ParseError{Line: lineNo, Text: text, Cause: err}
			}
			entries = append(entries, entry)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading simple set file")
	}
	return entries, nil
}

// ParsePaludisConf parses the paludis-conf format: each line begins
// with an operator (`*`, `?`, or `?:`); `*` is assumed, with a warning,
// when the line has none (spec §4.7). warn may be nil.
func ParsePaludisConf(r io.Reader, warn func(string)) ([]ConfEntry, error) {
	opts := depspec.DefaultParseOptions()
	var entries []ConfEntry
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text, ok := stripComment(scanner.Text())
		if !ok {
			continue
		}
		op, rest := splitOperator(text)
		if op < 0 {
			op = OpInclude
			if warn != nil {
				warn(fmt.Sprintf("set file line %d: no operator, assuming '*'", lineNo))
			}
			rest = text
		}
		rest = strings.TrimSpace(rest)
		if rest == "" {
			return nil, &ParseError{Line: lineNo, Text: text, Cause: errors.New("operator with no entry")}
		}
		entry, err := parseEntry(rest, opts)
		if err != nil {
			return nil, &ParseError{Line: lineNo, Text: text, Cause: err}
		}
		entries = append(entries, ConfEntry{Operator: op, Entry: entry})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading paludis-conf set file")
	}
	return entries, nil
}

// splitOperator recognizes a leading "?:", "?", or "*" operator token,
// returning -1 if the line carries none.
func splitOperator(text string) (Operator, string) {
	switch {
	case strings.HasPrefix(text, "?:"):
		return OpIfSlotMatches, strings.TrimPrefix(text, "?:")
	case strings.HasPrefix(text, "?"):
		return OpIfAnyVersion, strings.TrimPrefix(text, "?")
	case strings.HasPrefix(text, "*"):
		return OpInclude, strings.TrimPrefix(text, "*")
	default:
		return -1, text
	}
}

// RunPaludisBash executes an external set-generating script and parses
// its stdout as paludis-conf. A non-zero exit is a warning, not an
// error, and yields an empty set (spec §4.7).
func RunPaludisBash(ctx context.Context, path string, args []string, warn func(string)) ([]ConfEntry, error) {
	cmd := exec.CommandContext(ctx, path, args...)
	out, err := cmd.Output()
	if err != nil {
		if warn != nil {
			warn(fmt.Sprintf("set generator %s exited with error: %v", path, err))
		}
		return nil, nil
	}
	return ParsePaludisConf(strings.NewReader(string(out)), warn)
}
