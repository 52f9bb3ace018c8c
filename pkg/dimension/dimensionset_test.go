package dimension

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newInterned(t *testing.T, name string, values ...string) *Dimension {
	t.Helper()
	d, err := New(name, nil)
	require.NoError(t, err)
	for _, v := range values {
		_, err := d.Intern(v)
		require.NoError(t, err)
	}
	return d
}

func TestDimensionSetOrdersByDescendingCardinality(t *testing.T) {
	low := newInterned(t, "zone", "a")
	high := newInterned(t, "host", "h1", "h2", "h3", "h4")
	mid := newInterned(t, "dc", "sea", "lax")

	set := NewDimensionSet(low, high, mid)

	require.Equal(t, []string{"host", "dc", "zone"}, set.Names())
}

func TestDimensionSetEqualityIsNameSetOnly(t *testing.T) {
	a := NewDimensionSet(newInterned(t, "dc"), newInterned(t, "env"))
	b := NewDimensionSet(newInterned(t, "ENV"), newInterned(t, "DC"))
	c := NewDimensionSet(newInterned(t, "dc"))

	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
}

func TestCreateKeyMissingAndExtraDimensions(t *testing.T) {
	dc := newInterned(t, "dc")
	env := newInterned(t, "env")
	set := NewDimensionSet(dc, env)

	key, all, err := set.CreateKey(DimensionSpecification{
		"dc":      "sea",
		"unknown": "ignored",
	})
	require.NoError(t, err)
	require.False(t, all)

	dcIdx, _ := set.IndexOf("dc")
	envIdx, _ := set.IndexOf("env")
	require.NotEqual(t, WildcardIndex, key[dcIdx])
	require.Equal(t, WildcardIndex, key[envIdx])
}

func TestCreateKeyAllDimensionsProvided(t *testing.T) {
	dc := newInterned(t, "dc")
	set := NewDimensionSet(dc)

	_, all, err := set.CreateKey(DimensionSpecification{"dc": "sea"})
	require.NoError(t, err)
	require.True(t, all)
}
