package persist

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nicktill/metricsystem/pkg/dimension"
	"github.com/nicktill/metricsystem/pkg/keyedstore"
	"github.com/nicktill/metricsystem/pkg/metrickey"
	"github.com/nicktill/metricsystem/pkg/mserrors"
	"github.com/nicktill/metricsystem/pkg/ticks"
	"github.com/nicktill/metricsystem/pkg/valuetype"
)

func newDCDimSet(t *testing.T) *dimension.DimensionSet {
	t.Helper()
	dc, err := dimension.New("dc", nil)
	require.NoError(t, err)
	_, err = dc.Intern("sea")
	require.NoError(t, err)
	_, err = dc.Intern("lax")
	require.NoError(t, err)
	return dimension.NewDimensionSet(dc)
}

func writeThenRead(t *testing.T, compress bool, dataType DataType, entries []keyedstore.Entry) (BucketHeader, *dimension.DimensionSet, []keyedstore.Entry) {
	t.Helper()
	dimSet := newDCDimSet(t)

	header := BucketHeader{
		CounterName: "/hits",
		Start:       ticks.FromTime(mustParseTime(t, "2026-01-01T00:00:00Z")),
		End:         ticks.FromTime(mustParseTime(t, "2026-01-01T00:05:00Z")),
		DataType:    dataType,
		Sources:     []Source{{Name: "host-a", Status: "ok"}},
		KeyCount:    uint32(len(entries)),
	}

	path := filepath.Join(t.TempDir(), "bucket.dat")
	require.NoError(t, WriteBucketFile(path, header, dimSet, entries, compress))

	gotHeader, gotDimSet, gotEntries, err := ReadBucketFile(path)
	require.NoError(t, err)
	return gotHeader, gotDimSet, gotEntries
}

func mustParseTime(t *testing.T, s string) time.Time {
	t.Helper()
	tm, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return tm
}

func TestHitCountRoundTripUncompressed(t *testing.T) {
	entries := []keyedstore.Entry{
		{Key: metrickey.Key{1}, Value: valuetype.HitCount(5)},
		{Key: metrickey.Key{2}, Value: valuetype.HitCount(9)},
	}

	header, dimSet, got := writeThenRead(t, false, DataTypeHitCount, entries)

	require.Equal(t, "/hits", header.CounterName)
	require.Equal(t, 1, dimSet.Len())
	require.Len(t, got, 2)
	require.Equal(t, valuetype.HitCount(5), got[0].Value)
	require.Equal(t, valuetype.HitCount(9), got[1].Value)
}

func TestHitCountRoundTripCompressed(t *testing.T) {
	entries := []keyedstore.Entry{
		{Key: metrickey.Key{1}, Value: valuetype.HitCount(42)},
	}
	_, _, got := writeThenRead(t, true, DataTypeHitCount, entries)
	require.Len(t, got, 1)
	require.Equal(t, valuetype.HitCount(42), got[0].Value)
}

func TestHistogramRoundTrip(t *testing.T) {
	h := valuetype.NewHistogram()
	h.Observe(10, valuetype.None)
	h.Observe(10, valuetype.None)
	h.Observe(-5, valuetype.None)

	entries := []keyedstore.Entry{{Key: metrickey.Key{1}, Value: h}}
	_, _, got := writeThenRead(t, false, DataTypeHistogram, entries)

	require.Len(t, got, 1)
	gotHist := got[0].Value.(valuetype.Histogram)
	require.Equal(t, uint32(2), gotHist[10])
	require.Equal(t, uint32(1), gotHist[-5])
}

func TestTruncationPastVersionHeaderIsPersistedDataError(t *testing.T) {
	entries := []keyedstore.Entry{{Key: metrickey.Key{1}, Value: valuetype.HitCount(1)}}
	dimSet := newDCDimSet(t)
	header := BucketHeader{CounterName: "/hits", DataType: DataTypeHitCount, KeyCount: 1}

	path := filepath.Join(t.TempDir(), "bucket.dat")
	require.NoError(t, WriteBucketFile(path, header, dimSet, entries, false))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw[:len(raw)/2], 0o644))

	_, _, _, err = ReadBucketFile(path)
	require.Error(t, err)
	require.True(t, mserrors.Is(err, mserrors.PersistedData))
	require.False(t, errors.Is(err, io.EOF))
}

// Truncation before the version header is a clean EOF, not a
// PersistedData error: the caller cannot tell "never written" from
// corruption any other way.
func TestEmptyFileHasNoVersionHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.dat")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, _, _, err := ReadBucketFile(path)
	require.Error(t, err)
	require.True(t, errors.Is(err, io.EOF))
	require.False(t, mserrors.Is(err, mserrors.PersistedData))
}
