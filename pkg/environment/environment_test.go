// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package environment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exherbo-go/resolve/pkg/metadata"
	"github.com/exherbo-go/resolve/pkg/names"
	"github.com/exherbo-go/resolve/pkg/version"
)

func TestReadConfig(t *testing.T) {
	doc := `
accept_keywords = ["amd64", "~amd64"]
accept_licenses = ["*"]
world = "/var/lib/resolve/world"

[reinstall]
scm = true
`
	cfg, err := ReadConfig(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, []string{"amd64", "~amd64"}, cfg.AcceptKeywords)
	assert.True(t, cfg.ReinstallScm, "expected reinstall.scm = true")
	assert.Equal(t, "/var/lib/resolve/world", cfg.WorldPath)
}

type memWorld struct {
	set map[names.QualifiedPackageName]bool
}

func newMemWorld() *memWorld { return &memWorld{set: map[names.QualifiedPackageName]bool{}} }

func (w *memWorld) Contains(qpn names.QualifiedPackageName) bool { return w.set[qpn] }
func (w *memWorld) Add(qpn names.QualifiedPackageName)           { w.set[qpn] = true }
func (w *memWorld) Remove(qpn names.QualifiedPackageName)        { delete(w.set, qpn) }
func (w *memWorld) Entries() []names.QualifiedPackageName {
	out := make([]names.QualifiedPackageName, 0, len(w.set))
	for k := range w.set {
		out = append(out, k)
	}
	return out
}

func TestEnvironmentWorldSet(t *testing.T) {
	env := New(Config{}, newMemWorld())
	qpn, _ := names.NewQualifiedPackageName("sys-apps/paludis")
	env.World().Add(qpn)
	assert.True(t, env.World().Contains(qpn), "expected world set to contain added package")
}

func TestEnvironmentUserMaskOverridesRepositoryMask(t *testing.T) {
	env := New(Config{}, newMemWorld())
	qpn, _ := names.NewQualifiedPackageName("sys-apps/paludis")
	id := metadata.NewPackageID(qpn, version.MustParse("1"), "", 0, "", 0, "", nil,
		[]metadata.Mask{metadata.RepositoryMask{Repository: "gentoo", Comment: "security"}}, nil)

	masks := env.Masks(id)
	require.Lenf(t, masks, 1, "expected 1 mask before user action, got %+v", masks)

	env.Unmask(id)
	assert.Emptyf(t, env.Masks(id), "expected 0 masks after Unmask")

	env.Mask(id, metadata.UserMask{Comment: "manually held back"})
	masks = env.Masks(id)
	assert.Lenf(t, masks, 2, "expected user mask + repository mask, got %+v", masks)
}

func TestEnvironmentImportanceOrdering(t *testing.T) {
	env := New(Config{}, newMemWorld())
	h0 := env.AddRepository(nil, 5)
	h1 := env.AddRepository(nil, 1)
	assert.Equal(t, 5, env.Importance(h0))
	assert.Equal(t, 1, env.Importance(h1))
}
