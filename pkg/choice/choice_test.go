package choice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exherbo-go/resolve/pkg/names"
)

func TestChoicesRoundTrip(t *testing.T) {
	prefix, err := names.NewChoicePrefixName("linguas")
	require.NoError(t, err)
	c := &Choice{Prefix: prefix, RawName: "linguas", HumanName: "Localisations"}
	nm, err := names.NewUnprefixedChoiceName("en")
	require.NoError(t, err)
	cv, err := NewChoiceValue(c, nm, true, ParameterSpec{}, "")
	require.NoError(t, err)

	cs := NewChoices()
	cs.Add(cv)

	got, ok := cs.FindByNameWithPrefix(cv.PrefixedName())
	require.True(t, ok, "expected to find value by prefixed name")
	assert.Equal(t, cv.UnprefixedName, got.UnprefixedName)

	forPrefix := cs.ForPrefix(prefix)
	if assert.Len(t, forPrefix, 1) {
		assert.Equal(t, cv.UnprefixedName, forPrefix[0].UnprefixedName)
	}
}

func TestParameterSpecValidate(t *testing.T) {
	enum := ParameterSpec{Kind: ParameterEnum, EnumValues: []string{"a", "b"}}
	assert.NoError(t, enum.Validate("a"))
	assert.Error(t, enum.Validate("z"), "expected error for value outside enum")

	rng := ParameterSpec{Kind: ParameterIntegerRange, Min: 1, Max: 3}
	assert.NoError(t, rng.Validate("2"))
	assert.Error(t, rng.Validate("5"), "expected error for out-of-range value")
}

func TestNewChoiceValueRejectsBadParameter(t *testing.T) {
	c := &Choice{RawName: "python_targets"}
	nm, _ := names.NewUnprefixedChoiceName("python")
	spec := ParameterSpec{Kind: ParameterEnum, EnumValues: []string{"python3_10", "python3_11"}}
	_, err := NewChoiceValue(c, nm, true, spec, "python2_7")
	assert.Error(t, err, "expected error for parameter outside permitted enum")
}

func TestEnabledChecksFlag(t *testing.T) {
	c := &Choice{}
	nm, _ := names.NewUnprefixedChoiceName("nls")
	cv, _ := NewChoiceValue(c, nm, true, ParameterSpec{}, "")
	cs := NewChoices()
	cs.Add(cv)
	assert.True(t, cs.Enabled("nls"), "expected nls enabled")
	assert.False(t, cs.Enabled("doc"), "expected doc not found/enabled")
}
