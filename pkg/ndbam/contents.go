// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ndbam

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/exherbo-go/resolve/pkg/metadata"
)

// contentsFileName is the per-instance manifest (spec §6 "NDBAM contents
// manifest").
const contentsFileName = "contents"

// FileEntry, DirEntry, and SymEntry are the three rows of a contents
// manifest, each carrying the fields particular to its type (spec §6:
// "type=file path=... md5=... mtime=...", "type=dir path=...",
// "type=sym path=... target=... mtime=...").
type FileEntry struct {
	Path  string
	MD5   string
	Mtime int64
}

type DirEntry struct {
	Path string
}

type SymEntry struct {
	Path   string
	Target string
	Mtime  int64
}

// ParseContents drives onFile/onDir/onSym over r's manifest lines, in
// order (spec §4.5 "parse_contents(id, on_file, on_dir, on_sym) — drives
// three callbacks over the contents manifest"). A nil callback simply
// skips entries of that kind. warn, if non-nil, receives one message per
// duplicate-key or unknown-type line; neither is fatal.
func ParseContents(r io.Reader, onFile func(FileEntry) error, onDir func(DirEntry) error, onSym func(SymEntry) error, warn func(string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields, err := parseManifestLine(line, warn, lineNo)
		if err != nil {
			return err
		}
		switch fields["type"] {
		case "file":
			if onFile == nil {
				continue
			}
			mtime, _ := strconv.ParseInt(fields["mtime"], 10, 64)
			if err := onFile(FileEntry{Path: fields["path"], MD5: fields["md5"], Mtime: mtime}); err != nil {
				return err
			}
		case "dir":
			if onDir == nil {
				continue
			}
			if err := onDir(DirEntry{Path: fields["path"]}); err != nil {
				return err
			}
		case "sym":
			if onSym == nil {
				continue
			}
			mtime, _ := strconv.ParseInt(fields["mtime"], 10, 64)
			if err := onSym(SymEntry{Path: fields["path"], Target: fields["target"], Mtime: mtime}); err != nil {
				return err
			}
		default:
			if warn != nil {
				warn(manifestLinePrefix(lineNo) + "unknown type " + strconv.Quote(fields["type"]) + ", skipped")
			}
		}
	}
	return errors.Wrap(scanner.Err(), "reading contents manifest")
}

func manifestLinePrefix(lineNo int) string {
	return "contents line " + strconv.Itoa(lineNo) + ": "
}

// parseManifestLine splits one manifest line into its key=value fields,
// honoring the "\ " / "\n" / "\\" value escapes (spec §6) and warning on
// (first-wins) duplicate keys.
func parseManifestLine(line string, warn func(string), lineNo int) (map[string]string, error) {
	fields := make(map[string]string)
	for _, tok := range splitManifestFields(line) {
		eq := strings.IndexByte(tok, '=')
		if eq < 0 {
			return nil, errors.Errorf("contents line %d: field %q has no '='", lineNo, tok)
		}
		key, value := tok[:eq], unescapeManifestValue(tok[eq+1:])
		if _, dup := fields[key]; dup {
			if warn != nil {
				warn(manifestLinePrefix(lineNo) + "duplicate key " + strconv.Quote(key) + ", first wins")
			}
			continue
		}
		fields[key] = value
	}
	return fields, nil
}

// splitManifestFields splits a manifest line on unescaped spaces.
func splitManifestFields(line string) []string {
	var fields []string
	var cur strings.Builder
	escaped := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case escaped:
			cur.WriteByte('\\')
			cur.WriteByte(c)
			escaped = false
		case c == '\\':
			escaped = true
		case c == ' ':
			if cur.Len() > 0 {
				fields = append(fields, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteByte(c)
		}
	}
	if escaped {
		cur.WriteByte('\\')
	}
	if cur.Len() > 0 {
		fields = append(fields, cur.String())
	}
	return fields
}

// unescapeManifestValue undoes "\ " -> " ", "\n" -> newline, "\\" -> "\\"
// within one already-split field's value.
func unescapeManifestValue(s string) string {
	var out strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case ' ':
				out.WriteByte(' ')
				i++
				continue
			case 'n':
				out.WriteByte('\n')
				i++
				continue
			case '\\':
				out.WriteByte('\\')
				i++
				continue
			}
		}
		out.WriteByte(s[i])
	}
	return out.String()
}

// escapeManifestValue is render's inverse of unescapeManifestValue.
func escapeManifestValue(s string) string {
	var out strings.Builder
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ':
			out.WriteString(`\ `)
		case '\n':
			out.WriteString(`\n`)
		case '\\':
			out.WriteString(`\\`)
		default:
			out.WriteByte(s[i])
		}
	}
	return out.String()
}

// RenderFile, RenderDir, and RenderSym format one manifest line.
func RenderFile(e FileEntry) string {
	return "type=file path=" + escapeManifestValue(e.Path) +
		" md5=" + escapeManifestValue(e.MD5) +
		" mtime=" + strconv.FormatInt(e.Mtime, 10)
}

func RenderDir(e DirEntry) string {
	return "type=dir path=" + escapeManifestValue(e.Path)
}

func RenderSym(e SymEntry) string {
	return "type=sym path=" + escapeManifestValue(e.Path) +
		" target=" + escapeManifestValue(e.Target) +
		" mtime=" + strconv.FormatInt(e.Mtime, 10)
}

// contentIterator adapts a fully-read slice of metadata.ContentsEntry
// into the repository.ContentIterator interface.
type contentIterator struct {
	entries []metadata.ContentsEntry
	pos     int
}

func (it *contentIterator) Next() (metadata.ContentsEntry, bool, error) {
	if it.pos >= len(it.entries) {
		return metadata.ContentsEntry{}, false, nil
	}
	e := it.entries[it.pos]
	it.pos++
	return e, true, nil
}

func (it *contentIterator) Close() error { return nil }

// readContentsFile parses path's manifest into the PackageID-facing
// []metadata.ContentsEntry shape, discarding the md5/mtime detail the
// generic facade has no field for (retained only by the richer
// FileEntry/SymEntry rows parse_contents' own callbacks see).
func readContentsFile(path string, warn func(string)) ([]metadata.ContentsEntry, error) {
	f, err := openOrEmpty(path)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, nil
	}
	defer f.Close()

	var out []metadata.ContentsEntry
	err = ParseContents(f,
		func(e FileEntry) error {
			out = append(out, metadata.ContentsEntry{Kind: metadata.ContentsFile, Path: e.Path})
			return nil
		},
		func(e DirEntry) error {
			out = append(out, metadata.ContentsEntry{Kind: metadata.ContentsDir, Path: e.Path})
			return nil
		},
		func(e SymEntry) error {
			out = append(out, metadata.ContentsEntry{Kind: metadata.ContentsSym, Path: e.Path, Target: e.Target})
			return nil
		},
		warn,
	)
	return out, err
}
