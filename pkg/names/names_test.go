package names

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCategoryNamePart(t *testing.T) {
	cases := []struct {
		in      string
		wantErr bool
	}{
		{"sys-apps", false},
		{"dev-lang", false},
		{"", true},
		{"bad cat", true},
		{"bad/cat", true},
	}
	for _, c := range cases {
		_, err := NewCategoryNamePart(c.in)
		if c.wantErr {
			assert.Errorf(t, err, "NewCategoryNamePart(%q)", c.in)
		} else {
			assert.NoErrorf(t, err, "NewCategoryNamePart(%q)", c.in)
		}
	}
}

func TestNewQualifiedPackageName(t *testing.T) {
	qpn, err := NewQualifiedPackageName("sys-apps/paludis")
	require.NoError(t, err)
	assert.Equal(t, "sys-apps", qpn.Category.String())
	assert.Equal(t, "paludis", qpn.Package.String())
	assert.Equal(t, "sys-apps/paludis", qpn.String())

	_, err = NewQualifiedPackageName("noslash")
	assert.Error(t, err, "expected error for missing slash")
}

func TestQualifiedPackageNameLess(t *testing.T) {
	a, _ := NewQualifiedPackageName("cat/a")
	b, _ := NewQualifiedPackageName("cat/b")
	assert.True(t, a.Less(b), "expected a < b")
	assert.False(t, b.Less(a), "expected !(b < a)")
}

func TestEmptyChoicePrefixIsLegal(t *testing.T) {
	p, err := NewChoicePrefixName("")
	require.NoError(t, err)
	assert.Equal(t, ChoicePrefixName(""), p)
}
