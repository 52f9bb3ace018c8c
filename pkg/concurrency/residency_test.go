package concurrency

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nicktill/metricsystem/pkg/bucket"
	"github.com/nicktill/metricsystem/pkg/dimension"
	"github.com/nicktill/metricsystem/pkg/keyedstore"
	"github.com/nicktill/metricsystem/pkg/metrickey"
	"github.com/nicktill/metricsystem/pkg/ticks"
	"github.com/nicktill/metricsystem/pkg/valuetype"
)

func newSealedBucket(t *testing.T) *bucket.DataBucket {
	t.Helper()
	dc, err := dimension.New("dc", nil)
	require.NoError(t, err)
	dimSet := dimension.NewDimensionSet(dc)

	dir := t.TempDir()
	b, err := bucket.New("/hits", ticks.Ticks(0), ticks.Ticks(ticks.PerSecond*60), dimSet, keyedstore.KindHitCount, dir)
	require.NoError(t, err)

	require.NoError(t, b.AddValue(dimension.DimensionSpecification{"dc": "sea"}, valuetype.HitCount(1), 0, "host-a"))
	require.NoError(t, b.Seal())
	require.NoError(t, b.Persist(false))
	return b
}

func TestReleaseTriggersReleaseData(t *testing.T) {
	rc, err := NewResidencyCache(1 << 20)
	require.NoError(t, err)
	defer rc.Close()

	b := newSealedBucket(t)
	rc.Touch(b, 1024)
	// ristretto's Set is processed asynchronously through its buffer.
	time.Sleep(20 * time.Millisecond)

	rc.Release(b.Filename())
	time.Sleep(20 * time.Millisecond)

	require.Equal(t, bucket.Released, b.State())
}

func TestTouchIsIdempotentAcrossRepeatedAccess(t *testing.T) {
	rc, err := NewResidencyCache(1 << 20)
	require.NoError(t, err)
	defer rc.Close()

	b := newSealedBucket(t)
	for i := 0; i < 5; i++ {
		rc.Touch(b, 1024)
	}
	time.Sleep(20 * time.Millisecond)

	_, err = b.GetMatches(metrickey.Wildcard(1))
	require.NoError(t, err)
}
