// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ndbam

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigestCachePutGetForget(t *testing.T) {
	path := filepath.Join(t.TempDir(), "digest.db")
	dc, err := openDigestCache(path)
	require.NoError(t, err)
	defer dc.Close()

	digest := digestManifest([]byte("path=/usr/bin/vim type=file md5=abc mtime=1\n"))

	require.NoError(t, dc.put("1:0:built", digest))

	got, ok, err := dc.get("1:0:built")
	require.NoError(t, err)
	require.True(t, ok, "expected stored digest to round trip")
	assert.Equal(t, digest, got)

	_, ok, err = dc.get("nonexistent")
	require.NoError(t, err)
	assert.False(t, ok, "expected a miss for an unwritten key")

	dc.forget("1:0:built")
	_, ok, err = dc.get("1:0:built")
	require.NoError(t, err)
	assert.False(t, ok, "expected forget to remove the entry")
}

func TestDigestManifestDiffersOnContentChange(t *testing.T) {
	a := digestManifest([]byte("path=/a type=file md5=1\n"))
	b := digestManifest([]byte("path=/a type=file md5=2\n"))
	assert.NotEqual(t, a, b, "expected differing file digests to produce different manifest digests")
}
