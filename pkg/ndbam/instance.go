// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ndbam

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/exherbo-go/resolve/pkg/names"
	"github.com/exherbo-go/resolve/pkg/version"
)

// instanceName is one "data/<instance>" directory name: "version:slot:magic",
// a minimum of three colon-separated tokens with any further tokens
// ignored (spec §3 "instance directory names are version:slot:magic
// (three colon-separated tokens minimum; additional tokens ignored)").
type instanceName struct {
	raw     string
	version version.VersionSpec
	slot    names.SlotName
	magic   string
}

// malformedInstanceNameError marks an instance directory that does not
// even have the minimum three colon-separated tokens. Callers walking a
// package's instance index treat this class specially: logged and
// skipped rather than aborting the whole listing (spec §8).
type malformedInstanceNameError struct {
	dir string
}

func (e *malformedInstanceNameError) Error() string {
	return fmt.Sprintf("ndbam: %q is not a valid instance directory name (need version:slot:magic)", e.dir)
}

// parseInstanceName splits dir into its version/slot/magic tokens.
func parseInstanceName(dir string) (instanceName, error) {
	parts := strings.SplitN(dir, ":", 4)
	if len(parts) < 3 {
		return instanceName{}, &malformedInstanceNameError{dir: dir}
	}
	ver, err := version.Parse(parts[0])
	if err != nil {
		return instanceName{}, errors.Wrapf(err, "ndbam: instance directory %q", dir)
	}
	slot, err := names.NewSlotName(parts[1])
	if err != nil {
		return instanceName{}, errors.Wrapf(err, "ndbam: instance directory %q", dir)
	}
	return instanceName{raw: dir, version: ver, slot: slot, magic: parts[2]}, nil
}

// buildInstanceName renders the canonical three-token form; callers that
// need extra discriminating tokens append them to magic themselves.
func buildInstanceName(ver version.VersionSpec, slot names.SlotName, magic string) string {
	return ver.String() + ":" + slot.String() + ":" + magic
}
