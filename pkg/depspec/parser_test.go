package depspec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePackageDepSpecRoundTrip(t *testing.T) {
	opts := DefaultParseOptions()
	cases := []string{
		"sys-apps/paludis",
		">=sys-apps/paludis-0.99",
		"=cat/pkg-1:0",
		"cat/pkg:=",
		"cat/pkg::myrepo",
	}
	for _, c := range cases {
		spec, err := ParsePackageDepSpec(c, opts)
		require.NoErrorf(t, err, "ParsePackageDepSpec(%q)", c)
		assert.Equalf(t, c, spec.String(), "ParsePackageDepSpec(%q).String()", c)
	}
}

func TestParsePackageDepSpecWildcards(t *testing.T) {
	opts := DefaultParseOptions()
	spec, err := ParsePackageDepSpec("*/paludis", opts)
	require.NoError(t, err)
	assert.Equal(t, NameCategoryWildcard, spec.Selector())

	spec, err = ParsePackageDepSpec("sys-apps/*", opts)
	require.NoError(t, err)
	assert.Equal(t, NamePackageWildcard, spec.Selector())
}

func TestParseAnyGroup(t *testing.T) {
	tree, err := Parse("|| ( cat/a cat/b )", TreeDependency, DefaultParseOptions())
	require.NoError(t, err)
	require.Len(t, tree.Children, 1)
	any, ok := tree.Children[0].(AnyNode)
	require.Truef(t, ok, "expected AnyNode, got %T", tree.Children[0])
	assert.Len(t, any.Children, 2)
}

func TestParseConditional(t *testing.T) {
	tree, err := Parse("nls? ( cat/gettext )", TreeDependency, DefaultParseOptions())
	require.NoError(t, err)
	cond, ok := tree.Children[0].(ConditionalNode)
	require.Truef(t, ok, "expected ConditionalNode, got %T", tree.Children[0])
	assert.Equal(t, "nls", cond.Flag)
	assert.False(t, cond.Negate)
}

func TestParseNegatedConditional(t *testing.T) {
	tree, err := Parse("!nls? ( cat/gettext )", TreeDependency, DefaultParseOptions())
	require.NoError(t, err)
	cond := tree.Children[0].(ConditionalNode)
	assert.Equal(t, "nls", cond.Flag)
	assert.True(t, cond.Negate)
}

func TestParseBlock(t *testing.T) {
	tree, err := Parse("!!cat/conflicting", TreeDependency, DefaultParseOptions())
	require.NoError(t, err)
	b, ok := tree.Children[0].(BlockNode)
	require.Truef(t, ok, "expected BlockNode, got %T", tree.Children[0])
	assert.True(t, b.Strong, "expected a strong block")
}

func TestParseAnyGroupDisallowed(t *testing.T) {
	opts := DefaultParseOptions()
	opts.AllowAnyGroups = false
	_, err := Parse("|| ( cat/a cat/b )", TreeDependency, opts)
	assert.Error(t, err, "expected error when any-groups are disallowed")
}

func TestParseFetchableURIArrow(t *testing.T) {
	tree, err := Parse("http://example.com/foo.tar.gz -> foo-1.0.tar.gz", TreeFetchableURI, DefaultParseOptions())
	require.NoError(t, err)
	f, ok := tree.Children[0].(FetchableURINode)
	require.Truef(t, ok, "expected FetchableURINode, got %T", tree.Children[0])
	assert.Equal(t, "foo-1.0.tar.gz", f.Rename)
}

func TestParseArrowDisallowedOutsideFetchableTree(t *testing.T) {
	_, err := Parse("cat/a -> cat/b", TreeDependency, DefaultParseOptions())
	assert.Error(t, err, "expected error for arrow outside fetchable-URI tree")
}

func TestParseNamedSet(t *testing.T) {
	tree, err := Parse("@world", TreeSet, DefaultParseOptions())
	require.NoError(t, err)
	ns, ok := tree.Children[0].(NamedSetNode)
	require.Truef(t, ok, "expected NamedSetNode, got %T", tree.Children[0])
	assert.Equal(t, "world", ns.Name)
}

func TestParseMalformedInputAbortsWithNoPartialTree(t *testing.T) {
	_, err := Parse("cat/pkg ( unterminated", TreeDependency, DefaultParseOptions())
	require.Error(t, err, "expected parse error")
	var perr *ParseError
	require.ErrorAsf(t, err, &perr, "expected *ParseError, got %T: %v", err, err)
}

func TestChoiceRequirementsCommaList(t *testing.T) {
	spec, err := ParsePackageDepSpec("cat/pkg[nls,-doc]", DefaultParseOptions())
	require.NoError(t, err)
	reqs := spec.Choices()
	require.Len(t, reqs, 2)
	assert.Equal(t, "nls", reqs[0].Flag)
	assert.True(t, reqs[0].Enabled)
	assert.Equal(t, "doc", reqs[1].Flag)
	assert.False(t, reqs[1].Enabled)
}

func TestParseAnnotationsAttachToPrecedingNode(t *testing.T) {
	tree, err := Parse("cat/a [[ break-cycle = true ]] cat/b", TreeDependency, DefaultParseOptions())
	require.NoError(t, err)
	require.Len(t, tree.Children, 2)

	a, ok := tree.Children[0].(PackageNode)
	require.Truef(t, ok, "expected PackageNode, got %T", tree.Children[0])
	assert.Equal(t, map[string]string{"break-cycle": "true"}, a.Annotations())

	b, ok := tree.Children[1].(PackageNode)
	require.Truef(t, ok, "expected PackageNode, got %T", tree.Children[1])
	assert.Nil(t, b.Annotations(), "expected no annotation on the unannotated node")
}

func TestParseAnnotationsMultipleKeys(t *testing.T) {
	tree, err := Parse("cat/a [[ break-cycle = true reason = legacy ]]", TreeDependency, DefaultParseOptions())
	require.NoError(t, err)
	require.Len(t, tree.Children, 1)
	a := tree.Children[0].(PackageNode)
	assert.Equal(t, map[string]string{"break-cycle": "true", "reason": "legacy"}, a.Annotations())
}

func TestParseUnterminatedAnnotationErrors(t *testing.T) {
	_, err := Parse("cat/a [[ break-cycle = true", TreeDependency, DefaultParseOptions())
	require.Error(t, err, "expected error for an unterminated annotation block")
	var perr *ParseError
	require.ErrorAsf(t, err, &perr, "expected *ParseError, got %T: %v", err, err)
}

func TestKeyRequirement(t *testing.T) {
	spec, err := ParsePackageDepSpec("cat/pkg[.SLOT=0]", DefaultParseOptions())
	require.NoError(t, err)
	keys := spec.Keys()
	require.Len(t, keys, 1)
	assert.Equal(t, "SLOT", keys[0].Key)
	assert.Equal(t, "0", keys[0].Value)
}
