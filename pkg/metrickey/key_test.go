package metrickey

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompareLexicographic(t *testing.T) {
	a := Key{1, 5}
	b := Key{1, 6}
	c := Key{2, 0}

	require.Equal(t, -1, a.Compare(b))
	require.Equal(t, 1, b.Compare(a))
	require.Equal(t, -1, b.Compare(c))
	require.Equal(t, 0, a.Compare(a.Clone()))
}

func TestCompareDifferentWidthPanics(t *testing.T) {
	require.Panics(t, func() {
		Key{1}.Compare(Key{1, 2})
	})
}

func TestMatchesWildcard(t *testing.T) {
	filter := Key{0, 3}
	require.True(t, Matches(filter, Key{99, 3}))
	require.False(t, Matches(filter, Key{99, 4}))
	require.True(t, Matches(Wildcard(2), Key{1, 2}))
}

func TestProjectDimension(t *testing.T) {
	k := Key{7, 8, 9}
	p := ProjectDimension(k, 1)
	require.Equal(t, Key{0, 8, 0}, p)
}

func TestCloneIsIndependent(t *testing.T) {
	k := Key{1, 2}
	c := k.Clone()
	c[0] = 99
	require.Equal(t, uint32(1), k[0])
}
