// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sets

import (
	"strings"

	"github.com/exherbo-go/resolve/pkg/depspec"
)

// Expander adapts a Resolver into the resolver package's narrow
// SetExpander interface, turning a depspec.NamedSetNode's name
// ("@world" parses to Name "world") into the bare PackageDepSpecs its
// expansion contains.
type Expander struct {
	*Resolver
}

// Expand loads, resolves, and flattens name into plain NameQualified
// PackageDepSpecs. A trailing "*" selects star operator mode (spec
// §4.7), same as within a set file itself.
func (e *Expander) Expand(name string) ([]depspec.PackageDepSpec, error) {
	if e.Load == nil {
		return nil, nil
	}
	star := false
	if strings.HasSuffix(name, "*") {
		name = strings.TrimSuffix(name, "*")
		star = true
	}
	entries, err := e.Load(name)
	if err != nil {
		return nil, err
	}
	qpns, err := e.Resolve(entries, star)
	if err != nil {
		return nil, err
	}
	specs := make([]depspec.PackageDepSpec, 0, len(qpns))
	for _, qpn := range qpns {
		spec, err := depspec.NewPackageDepSpecBuilder(qpn).Build()
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
