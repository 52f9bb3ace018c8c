package dimension

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRejectsEmptyAndReserved(t *testing.T) {
	_, err := New("", nil)
	require.Error(t, err)

	_, err = New("   ", nil)
	require.Error(t, err)

	_, err = New("Machine", nil)
	require.Error(t, err)
}

func TestInternIsStableAndCaseInsensitive(t *testing.T) {
	d, err := New("dc", nil)
	require.NoError(t, err)

	i1, err := d.Intern("SEA")
	require.NoError(t, err)
	require.NotEqual(t, WildcardIndex, i1)

	i2, err := d.Intern("sea")
	require.NoError(t, err)
	require.Equal(t, i1, i2, "interning is case-insensitive and stable")

	display, err := d.IndexToString(i1)
	require.NoError(t, err)
	require.Equal(t, "SEA", display, "first-seen casing is preserved as display form")
}

func TestInternEmptyStringIsWildcard(t *testing.T) {
	d, err := New("dc", nil)
	require.NoError(t, err)

	idx, err := d.Intern("")
	require.NoError(t, err)
	require.Equal(t, WildcardIndex, idx)
	require.Zero(t, d.Cardinality())
}

func TestIndexToStringOutOfRange(t *testing.T) {
	d, err := New("dc", nil)
	require.NoError(t, err)

	_, err = d.IndexToString(WildcardIndex)
	require.Error(t, err)

	_, err = d.IndexToString(99)
	require.Error(t, err)
}

func TestAllowedValueSet(t *testing.T) {
	d, err := New("env", []string{"prod", "staging"})
	require.NoError(t, err)

	_, err = d.Intern("PROD")
	require.NoError(t, err)

	_, err = d.Intern("dev")
	require.Error(t, err)
}

func TestIndicesNeverReused(t *testing.T) {
	d, err := New("dc", nil)
	require.NoError(t, err)

	a, _ := d.Intern("a")
	b, _ := d.Intern("b")
	aAgain, _ := d.Intern("a")

	require.NotEqual(t, a, b)
	require.Equal(t, a, aAgain)
}
