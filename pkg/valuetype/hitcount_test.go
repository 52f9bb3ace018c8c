package valuetype

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHitCountMergeAdds(t *testing.T) {
	var a Value = HitCount(3)
	b := HitCount(4)

	got := a.Merge(b)
	require.Equal(t, HitCount(7), got)
}

func TestHitCountMergeSaturates(t *testing.T) {
	a := HitCount(math.MaxUint64 - 1)
	got := a.Merge(HitCount(10))
	require.Equal(t, HitCount(math.MaxUint64), got)
}

func TestHitCountMergeWrongTypePanics(t *testing.T) {
	a := HitCount(1)
	require.Panics(t, func() {
		a.Merge(NewHistogram())
	})
}

func TestHitCountSampleCountAndClone(t *testing.T) {
	a := HitCount(42)
	require.Equal(t, uint64(42), a.SampleCount())
	require.Equal(t, a, a.Clone())
}
