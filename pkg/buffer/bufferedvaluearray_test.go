package buffer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteFixedRejectsUnsupportedType(t *testing.T) {
	a := NewValueArena(16)
	_, err := a.WriteFixed(ElementType(99), []int64{1})
	require.Error(t, err)
}

func TestFixedArrayRoundTripCountsEachElementOnce(t *testing.T) {
	a := NewValueArena(16)
	offset, err := a.WriteFixed(I32, []int64{10, 10, 20})
	require.NoError(t, err)

	got := make(map[int64]uint32)
	require.NoError(t, a.ReadValuesInto(got, offset, I32, false))

	require.Equal(t, uint32(2), got[10])
	require.Equal(t, uint32(1), got[20])
}

func TestFixedArrayPreservesSignForSignedTypes(t *testing.T) {
	a := NewValueArena(16)
	offset, err := a.WriteFixed(I16, []int64{-5, -5, 3})
	require.NoError(t, err)

	got := make(map[int64]uint32)
	require.NoError(t, a.ReadValuesInto(got, offset, I16, false))

	require.Equal(t, uint32(2), got[-5])
	require.Equal(t, uint32(1), got[3])
}

func TestVariableBlobRoundTrip(t *testing.T) {
	a := NewValueArena(16)
	offset := a.WriteVariable([]int64{-7, 3, 1000}, []uint32{4, 1, 9})

	got := make(map[int64]uint32)
	require.NoError(t, a.ReadValuesInto(got, offset, 0, true))

	require.Equal(t, uint32(4), got[-7])
	require.Equal(t, uint32(1), got[3])
	require.Equal(t, uint32(9), got[1000])
}

func TestMergeToVariableThenReadBack(t *testing.T) {
	a := NewValueArena(16)
	merged := map[int64]uint32{5: 2, -1: 3}
	offset := a.MergeToVariable(merged)

	got := make(map[int64]uint32)
	require.NoError(t, a.ReadValuesInto(got, offset, 0, true))
	require.Equal(t, merged, got)
}

func TestMultiplePayloadsCoexistInOneArena(t *testing.T) {
	a := NewValueArena(16)
	off1, err := a.WriteFixed(U16, []int64{1, 2, 3})
	require.NoError(t, err)
	off2 := a.WriteVariable([]int64{9}, []uint32{1})

	got1 := make(map[int64]uint32)
	require.NoError(t, a.ReadValuesInto(got1, off1, U16, false))
	require.Equal(t, map[int64]uint32{1: 1, 2: 1, 3: 1}, got1)

	got2 := make(map[int64]uint32)
	require.NoError(t, a.ReadValuesInto(got2, off2, 0, true))
	require.Equal(t, map[int64]uint32{9: 1}, got2)
}
