package valuetype

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHistogramObserveAndSampleCount(t *testing.T) {
	h := NewHistogram()
	h.Observe(10, None)
	h.Observe(10, None)
	h.Observe(20, None)

	require.Equal(t, uint32(2), h[10])
	require.Equal(t, uint32(1), h[20])
	require.Equal(t, uint64(3), h.SampleCount())
}

func TestHistogramObserveAppliesRounding(t *testing.T) {
	h := NewHistogram()
	h.Observe(1234, SignificantDigits(1))
	require.Equal(t, uint32(1), h[1000])
}

func TestHistogramMergeAddsCounts(t *testing.T) {
	a := NewHistogram()
	a.Observe(10, None)

	b := NewHistogram()
	b.Observe(10, None)
	b.Observe(20, None)

	merged := a.Merge(b).(Histogram)
	require.Equal(t, uint32(2), merged[10])
	require.Equal(t, uint32(1), merged[20])
}

func TestHistogramMergeWrongTypePanics(t *testing.T) {
	h := NewHistogram()
	require.Panics(t, func() {
		h.Merge(HitCount(1))
	})
}

func TestHistogramCloneIsIndependent(t *testing.T) {
	a := NewHistogram()
	a.Observe(10, None)

	clone := a.Clone().(Histogram)
	clone.Observe(10, None)

	require.Equal(t, uint32(1), a[10])
	require.Equal(t, uint32(2), clone[10])
}

func TestHistogramSortedKeys(t *testing.T) {
	h := NewHistogram()
	h.Observe(30, None)
	h.Observe(10, None)
	h.Observe(20, None)

	require.Equal(t, []int64{10, 20, 30}, h.SortedKeys())
}

func TestHistogramMinMax(t *testing.T) {
	h := NewHistogram()
	_, ok := h.Min()
	require.False(t, ok)

	h.Observe(5, None)
	h.Observe(-3, None)
	h.Observe(9, None)

	min, ok := h.Min()
	require.True(t, ok)
	require.Equal(t, int64(-3), min)

	max, ok := h.Max()
	require.True(t, ok)
	require.Equal(t, int64(9), max)
}
