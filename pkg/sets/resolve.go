// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sets

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/exherbo-go/resolve/pkg/depspec"
	"github.com/exherbo-go/resolve/pkg/names"
	"github.com/exherbo-go/resolve/pkg/repository"
)

// Loader fetches the paludis-conf entries of another named set, for
// resolving set references found inside a set file.
type Loader func(name string) ([]ConfEntry, error)

// CycleError reports a set that (directly or transitively) refers back
// to itself.
type CycleError struct {
	Name string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("set %q is referenced from within its own expansion", e.Name)
}

// Resolver expands a set file's entries, evaluating `?`/`?:` operators
// against Installed and following set references through Load, into a
// flat, deduplicated atom list (spec §4.7).
type Resolver struct {
	Installed repository.Repository
	Load      Loader
	Warn      func(string)
}

// Resolve expands entries. star enables "star operator mode" (spec
// §4.7): within it, `?` lines are treated as unconditional includes,
// the mode used to enumerate a set plus its parents.
func (r *Resolver) Resolve(entries []ConfEntry, star bool) ([]names.QualifiedPackageName, error) {
	seen := make(map[names.QualifiedPackageName]bool)
	visiting := make(map[string]bool)
	var out []names.QualifiedPackageName
	if err := r.walk(entries, star, visiting, seen, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Resolver) walk(entries []ConfEntry, star bool, visiting map[string]bool, seen map[names.QualifiedPackageName]bool, out *[]names.QualifiedPackageName) error {
	for _, ce := range entries {
		if ce.Entry.SetRef != "" {
			name := ce.Entry.SetRef
			childStar := star
			if strings.HasSuffix(name, "*") {
				name = strings.TrimSuffix(name, "*")
				childStar = true
			}
			if visiting[name] {
				return &CycleError{Name: name}
			}
			if r.Load == nil {
				continue
			}
			children, err := r.Load(name)
			if err != nil {
				return errors.Wrapf(err, "loading set %q", name)
			}
			visiting[name] = true
			err = r.walk(children, childStar, visiting, seen, out)
			delete(visiting, name)
			if err != nil {
				return err
			}
			continue
		}

		if !r.included(ce, star) {
			continue
		}
		if ce.Entry.Spec.Selector() != depspec.NameQualified {
			continue
		}
		qpn := ce.Entry.Spec.QualifiedName()
		if seen[qpn] {
			continue
		}
		seen[qpn] = true
		*out = append(*out, qpn)
	}
	return nil
}

// included evaluates a single ConfEntry's operator against Installed.
func (r *Resolver) included(ce ConfEntry, star bool) bool {
	switch ce.Operator {
	case OpInclude:
		return true
	case OpIfAnyVersion:
		if star {
			return true
		}
		return r.anyInstalled(ce.Entry.Spec)
	case OpIfSlotMatches:
		if star {
			return true
		}
		return r.slotInstalled(ce.Entry.Spec)
	default:
		return true
	}
}

func (r *Resolver) anyInstalled(spec depspec.PackageDepSpec) bool {
	if r.Installed == nil || spec.Selector() != depspec.NameQualified {
		return false
	}
	ids, err := r.Installed.IDs(spec.QualifiedName())
	if err != nil {
		return false
	}
	return len(ids) > 0
}

// slotInstalled reports whether an installed instance's slot matches
// spec's slot requirement verbatim: exact slot equality for an exact
// requirement, prefix match for a slot-star requirement. It never falls
// back to "any slot installed" when the requirement fails to match.
func (r *Resolver) slotInstalled(spec depspec.PackageDepSpec) bool {
	if r.Installed == nil || spec.Selector() != depspec.NameQualified {
		return false
	}
	ids, err := r.Installed.IDs(spec.QualifiedName())
	if err != nil {
		return false
	}
	req := spec.Slot()
	for _, id := range ids {
		switch req.Kind {
		case depspec.SlotExact:
			if id.Slot() == req.Slot {
				return true
			}
		case depspec.SlotStar:
			if strings.HasPrefix(string(id.Slot()), string(req.Slot)) {
				return true
			}
		default:
			return true
		}
	}
	return false
}
