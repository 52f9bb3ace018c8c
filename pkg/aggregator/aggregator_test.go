package aggregator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nicktill/metricsystem/pkg/dataset"
	"github.com/nicktill/metricsystem/pkg/metrickey"
	"github.com/nicktill/metricsystem/pkg/ticks"
	"github.com/nicktill/metricsystem/pkg/valuetype"
	"github.com/nicktill/metricsystem/pkg/wire"
)

func minutes(n int64) ticks.Ticks { return ticks.Ticks(n * 60 * ticks.PerSecond) }

// S6 — CounterAggregator time-merge.
func TestScenarioS6TimeMerge(t *testing.T) {
	a := New(dataset.NoPercentile)
	key := metrickey.Key{1}
	t0 := minutes(1000)

	respA := wire.CounterQueryResponse{Machine: "a", Samples: []dataset.DataSample{
		{Key: key, Start: t0, End: t0 + minutes(5), Kind: dataset.SampleHitCount, HitCount: 10, MachineCount: 1},
	}}
	respB := wire.CounterQueryResponse{Machine: "b", Samples: []dataset.DataSample{
		{Key: key, Start: t0 + minutes(3), End: t0 + minutes(8), Kind: dataset.SampleHitCount, HitCount: 4, MachineCount: 1},
	}}

	require.NoError(t, a.AddMachineResponse(respA))
	require.NoError(t, a.AddMachineResponse(respB))

	results := a.Results()
	require.Len(t, results, 1)
	require.Equal(t, t0, results[0].Start)
	require.Equal(t, t0+minutes(8), results[0].End)
	require.Equal(t, uint64(14), results[0].HitCount)
}

func TestNonOverlappingRangesStaySeparate(t *testing.T) {
	a := New(dataset.NoPercentile)
	key := metrickey.Key{1}
	t0 := minutes(1000)

	require.NoError(t, a.AddMachineResponse(wire.CounterQueryResponse{Samples: []dataset.DataSample{
		{Key: key, Start: t0, End: t0 + minutes(5), Kind: dataset.SampleHitCount, HitCount: 10, MachineCount: 1},
	}}))
	require.NoError(t, a.AddMachineResponse(wire.CounterQueryResponse{Samples: []dataset.DataSample{
		{Key: key, Start: t0 + minutes(10), End: t0 + minutes(15), Kind: dataset.SampleHitCount, HitCount: 6, MachineCount: 1},
	}}))

	results := a.Results()
	require.Len(t, results, 2)
}

func TestPercentileAtAggregator(t *testing.T) {
	a := New(50)
	key := metrickey.Key{}
	t0 := minutes(1000)

	h1 := valuetype.NewHistogram()
	for v := int64(1); v <= 50; v++ {
		h1.Observe(v, valuetype.None)
	}
	h2 := valuetype.NewHistogram()
	for v := int64(51); v <= 100; v++ {
		h2.Observe(v, valuetype.None)
	}

	require.NoError(t, a.AddMachineResponse(wire.CounterQueryResponse{Samples: []dataset.DataSample{
		{Key: key, Start: t0, End: t0 + minutes(5), Kind: dataset.SampleHistogram, Histogram: h1, MachineCount: 1},
	}}))
	require.NoError(t, a.AddMachineResponse(wire.CounterQueryResponse{Samples: []dataset.DataSample{
		{Key: key, Start: t0, End: t0 + minutes(5), Kind: dataset.SampleHistogram, Histogram: h2, MachineCount: 1},
	}}))

	results := a.Results()
	require.Len(t, results, 1)
	require.Equal(t, dataset.SamplePercentile, results[0].Kind)
	require.Equal(t, int64(50), results[0].PercentileValue)
}

func TestRejectsPreAggregatedSample(t *testing.T) {
	a := New(dataset.NoPercentile)
	err := a.AddMachineResponse(wire.CounterQueryResponse{Samples: []dataset.DataSample{
		{Key: metrickey.Key{1}, Kind: dataset.SampleAverage, Average: 4.2},
	}})
	require.Error(t, err)
}
