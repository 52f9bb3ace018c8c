package valuetype

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplyNoneIsIdentity(t *testing.T) {
	require.Equal(t, int64(12345), None.Apply(12345))
}

func TestSignificantDigitsRounds(t *testing.T) {
	r := SignificantDigits(2)
	require.Equal(t, int64(12000), r.Apply(12345))
	require.Equal(t, int64(-12000), r.Apply(-12345))
	require.Equal(t, int64(7), r.Apply(7))
}

func TestByteCountRoundsToNearestMultiple(t *testing.T) {
	r := ByteCount(1024)
	require.Equal(t, int64(1024), r.Apply(1500))
	require.Equal(t, int64(2048), r.Apply(1600))
	require.Equal(t, int64(0), r.Apply(0))
}

func TestByteCountPreservesSign(t *testing.T) {
	r := ByteCount(1024)
	require.Equal(t, int64(-1024), r.Apply(-1500))
}
