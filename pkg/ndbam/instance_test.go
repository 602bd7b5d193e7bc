// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ndbam

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exherbo-go/resolve/pkg/names"
	"github.com/exherbo-go/resolve/pkg/version"
)

func TestParseInstanceNameMinimumThreeTokens(t *testing.T) {
	inst, err := parseInstanceName("1.2.3:0:built")
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", inst.version.String())
	assert.Equal(t, names.SlotName("0"), inst.slot)
	assert.Equal(t, "built", inst.magic)
}

func TestParseInstanceNameExtraTokensIgnored(t *testing.T) {
	inst, err := parseInstanceName("1.2.3:0:built:extra:stuff")
	require.NoError(t, err)
	assert.Equal(t, "built", inst.magic, "expected trailing tokens past the third to be ignored")
}

func TestParseInstanceNameTooFewTokens(t *testing.T) {
	_, err := parseInstanceName("1.2.3:0")
	assert.Error(t, err, "expected an error for fewer than three tokens")
}

func TestBuildInstanceNameRoundTrips(t *testing.T) {
	name := buildInstanceName(version.MustParse("2.4"), "1", "built")
	inst, err := parseInstanceName(name)
	require.NoError(t, err)
	assert.Zero(t, inst.version.Compare(version.MustParse("2.4")))
	assert.Equal(t, names.SlotName("1"), inst.slot)
	assert.Equal(t, "built", inst.magic)
}
