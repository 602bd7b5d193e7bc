// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ndbam

import (
	"github.com/theckman/go-flock"

	"github.com/pkg/errors"
)

// CrossProcessLock guards ndbam.conf and the index symlink trees against
// concurrent mutation from another process (spec §5 "Environment,
// Repository, and NDBAM instances are long-lived, shared, and internally
// mutex-protected for their caches" -- in-process callers get that from
// NDBAM's own mutexes; CrossProcessLock extends the same guarantee
// across process boundaries using an flock(2)-backed advisory lock, the
// way golang-dep's own vendor/github.com/theckman/go-flock package is
// documented to be used).
type CrossProcessLock struct {
	fl *flock.Flock
}

// NewCrossProcessLock returns a lock backed by the file at path. The
// file is created on first Lock call if it does not already exist.
func NewCrossProcessLock(path string) *CrossProcessLock {
	return &CrossProcessLock{fl: flock.NewFlock(path)}
}

// Lock blocks until the advisory lock is acquired.
func (l *CrossProcessLock) Lock() error {
	return errors.Wrap(l.fl.Lock(), "ndbam: acquiring cross-process lock")
}

// TryLock attempts to acquire the lock without blocking, reporting
// whether it succeeded.
func (l *CrossProcessLock) TryLock() (bool, error) {
	ok, err := l.fl.TryLock()
	return ok, errors.Wrap(err, "ndbam: trying cross-process lock")
}

// Unlock releases the lock.
func (l *CrossProcessLock) Unlock() error {
	return errors.Wrap(l.fl.Unlock(), "ndbam: releasing cross-process lock")
}
