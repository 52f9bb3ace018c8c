package buffer

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nicktill/metricsystem/pkg/dimension"
	"github.com/nicktill/metricsystem/pkg/metrickey"
)

func newTestDimSet(t *testing.T) *dimension.DimensionSet {
	t.Helper()
	region, err := dimension.New("region", nil)
	require.NoError(t, err)
	_, err = region.Intern("us-east")
	require.NoError(t, err)
	_, err = region.Intern("us-west")
	require.NoError(t, err)

	host, err := dimension.New("host", nil)
	require.NoError(t, err)
	_, err = host.Intern("a")
	require.NoError(t, err)
	_, err = host.Intern("b")
	require.NoError(t, err)
	_, err = host.Intern("c")
	require.NoError(t, err)

	return dimension.NewDimensionSet(region, host)
}

func TestTryWriteRejectsOverCapacity(t *testing.T) {
	dimSet := newTestDimSet(t)
	buf := NewBufferedKeyedData(dimSet, bufferSizeForKeyCount(2, dimSet))

	require.True(t, buf.TryWrite(metrickey.Key{1, 1}, 10))
	require.True(t, buf.TryWrite(metrickey.Key{1, 2}, 20))
	require.False(t, buf.TryWrite(metrickey.Key{1, 3}, 30))
	require.Equal(t, 2, buf.Len())
}

func TestTryWriteFailsAfterSeal(t *testing.T) {
	dimSet := newTestDimSet(t)
	buf := NewBufferedKeyedData(dimSet, 4)
	require.True(t, buf.TryWrite(metrickey.Key{1, 1}, 1))
	require.NoError(t, buf.Seal())
	require.False(t, buf.TryWrite(metrickey.Key{1, 2}, 2))
}

func TestSortRequiresSealed(t *testing.T) {
	dimSet := newTestDimSet(t)
	buf := NewBufferedKeyedData(dimSet, 4)
	require.Error(t, buf.Sort())
}

func TestSortIsStableOnEqualKeys(t *testing.T) {
	dimSet := newTestDimSet(t)
	buf := NewBufferedKeyedData(dimSet, 4)

	require.True(t, buf.TryWrite(metrickey.Key{2, 1}, 1))
	require.True(t, buf.TryWrite(metrickey.Key{1, 1}, 2))
	require.True(t, buf.TryWrite(metrickey.Key{1, 1}, 3))

	require.NoError(t, buf.Seal())
	require.NoError(t, buf.Sort())

	k0, v0 := buf.At(0)
	k1, v1 := buf.At(1)
	k2, v2 := buf.At(2)

	require.Equal(t, metrickey.Key{1, 1}, k0)
	require.Equal(t, uint64(2), v0)
	require.Equal(t, metrickey.Key{1, 1}, k1)
	require.Equal(t, uint64(3), v1)
	require.Equal(t, metrickey.Key{2, 1}, k2)
	require.Equal(t, uint64(1), v2)
}

func TestConvertProjectsByNameAndBroadensMissing(t *testing.T) {
	dimSet := newTestDimSet(t)
	buf := NewBufferedKeyedData(dimSet, 4)
	require.True(t, buf.TryWrite(metrickey.Key{1, 2}, 7))
	require.NoError(t, buf.Seal())
	require.NoError(t, buf.Sort())

	az, err := dimension.New("az", nil)
	require.NoError(t, err)
	hostPos, ok := dimSet.IndexOf("host")
	require.True(t, ok)
	host := dimSet.Dimension(hostPos)
	target := dimension.NewDimensionSet(host, az)

	require.NoError(t, buf.Convert(target))

	k, v := buf.At(0)
	require.Equal(t, uint64(7), v)

	hostIdx, ok := target.IndexOf("host")
	require.True(t, ok)
	azIdx, ok := target.IndexOf("az")
	require.True(t, ok)
	require.Equal(t, uint32(1), k[hostIdx])
	require.Equal(t, dimension.WildcardIndex, k[azIdx])
}

func TestConvertRejectsSecondCall(t *testing.T) {
	dimSet := newTestDimSet(t)
	buf := NewBufferedKeyedData(dimSet, 4)
	require.NoError(t, buf.Seal())
	require.NoError(t, buf.Sort())

	target := dimension.NewDimensionSet(dimSet.Dimension(0))
	require.NoError(t, buf.Convert(target))
	require.Error(t, buf.Convert(target))
}

func TestConcurrentTryWriteReservesDistinctSlots(t *testing.T) {
	dimSet := newTestDimSet(t)
	const writers = 50
	buf := NewBufferedKeyedData(dimSet, writers)

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			buf.TryWrite(metrickey.Key{1, 1}, v)
		}(uint64(i))
	}
	wg.Wait()

	require.Equal(t, writers, buf.Len())

	seen := make(map[uint64]bool)
	for i := 0; i < buf.Len(); i++ {
		_, v := buf.At(i)
		require.False(t, seen[v], "duplicate slot value %d", v)
		seen[v] = true
	}
}
