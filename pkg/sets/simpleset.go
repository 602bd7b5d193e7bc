// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sets

import (
	"bufio"
	"os"
	"sync"

	"github.com/pkg/errors"

	"github.com/exherbo-go/resolve/pkg/depspec"
	"github.com/exherbo-go/resolve/pkg/names"
)

// SimpleSet is an in-memory, mutex-protected named package collection
// stored in the simple set-file format. It satisfies
// environment.WorldSet by structural typing (pkg/environment cannot
// import this package, per its own WorldSet doc comment, to avoid an
// import cycle).
type SimpleSet struct {
	mu      sync.RWMutex
	members map[names.QualifiedPackageName]bool
	order   []names.QualifiedPackageName
}

// NewSimpleSet returns an empty SimpleSet.
func NewSimpleSet() *SimpleSet {
	return &SimpleSet{members: make(map[names.QualifiedPackageName]bool)}
}

// Contains reports whether qpn is a member.
func (s *SimpleSet) Contains(qpn names.QualifiedPackageName) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.members[qpn]
}

// Add inserts qpn, a no-op if already present.
func (s *SimpleSet) Add(qpn names.QualifiedPackageName) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.members[qpn] {
		return
	}
	s.members[qpn] = true
	s.order = append(s.order, qpn)
}

// Remove deletes qpn, a no-op if absent.
func (s *SimpleSet) Remove(qpn names.QualifiedPackageName) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.members[qpn] {
		return
	}
	delete(s.members, qpn)
	for i, e := range s.order {
		if e == qpn {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Entries returns the members in insertion order.
func (s *SimpleSet) Entries() []names.QualifiedPackageName {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]names.QualifiedPackageName{}, s.order...)
}

// Load replaces the set's contents with the simple-format file at path.
// Set-reference entries are skipped without error: a world/security/system
// file is expected to hold bare atoms only.
func (s *SimpleSet) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			s.mu.Lock()
			s.members = make(map[names.QualifiedPackageName]bool)
			s.order = nil
			s.mu.Unlock()
			return nil
		}
		return errors.Wrapf(err, "opening set file %s", path)
	}
	defer f.Close()

	entries, err := ParseSimple(f)
	if err != nil {
		return errors.Wrapf(err, "parsing set file %s", path)
	}

	members := make(map[names.QualifiedPackageName]bool, len(entries))
	var order []names.QualifiedPackageName
	for _, e := range entries {
		if e.SetRef != "" || e.Spec.Selector() != depspec.NameQualified {
			continue
		}
		qpn := e.Spec.QualifiedName()
		if members[qpn] {
			continue
		}
		members[qpn] = true
		order = append(order, qpn)
	}

	s.mu.Lock()
	s.members = members
	s.order = order
	s.mu.Unlock()
	return nil
}

// Save writes the set's contents to path in the simple format, one
// qualified package name per line.
func (s *SimpleSet) Save(path string) error {
	s.mu.RLock()
	order := append([]names.QualifiedPackageName{}, s.order...)
	s.mu.RUnlock()

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating set file %s", path)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, qpn := range order {
		if _, err := w.WriteString(qpn.String() + "\n"); err != nil {
			return errors.Wrapf(err, "writing set file %s", path)
		}
	}
	return w.Flush()
}
