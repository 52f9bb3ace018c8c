package aggregator

import (
	"encoding/binary"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/nicktill/metricsystem/pkg/dataset"
	"github.com/nicktill/metricsystem/pkg/metrickey"
	"github.com/nicktill/metricsystem/pkg/mserrors"
	"github.com/nicktill/metricsystem/pkg/ticks"
	"github.com/nicktill/metricsystem/pkg/valuetype"
	"github.com/nicktill/metricsystem/pkg/wire"
)

// keyGroup holds every merged time-range for one distinct dimension
// Key. Its own mutex keeps contention scoped to one dimension set
// instead of the whole aggregator.
type keyGroup struct {
	key metrickey.Key

	mu     sync.Mutex
	ranges []valueRange
}

type valueRange struct {
	start, end   ticks.Ticks
	value        valuetype.Value
	machineCount int
}

// CounterAggregator merges a stream of per-machine CounterQueryResponse
// samples into one federated answer, keyed by each sample's full
// dimension Key. For each key it maintains a sorted, non-overlapping
// list of merged time ranges.
//
// If percentileAtAggregator is set, AddMachineResponse expects raw Histogram
// samples (the per-server query must not have requested a percentile
// itself) and Results applies the percentile projection once, after
// every machine's contribution has been merged in.
type CounterAggregator struct {
	mu     sync.Mutex
	groups map[uint64][]*keyGroup // hash bucket -> groups colliding on that hash

	percentileAtAggregator bool
	percentile             float64
}

// New constructs an empty CounterAggregator. If percentile is within
// [0, 100], percentile computation is deferred to Results rather than
// trusted from each per-server response.
func New(percentile float64) *CounterAggregator {
	a := &CounterAggregator{groups: make(map[uint64][]*keyGroup)}
	if percentile >= 0 && percentile <= 100 {
		a.percentileAtAggregator = true
		a.percentile = percentile
	}
	return a
}

func hashKey(k metrickey.Key) uint64 {
	buf := make([]byte, len(k)*4)
	for i, idx := range k {
		binary.LittleEndian.PutUint32(buf[i*4:], idx)
	}
	return xxhash.Sum64(buf)
}

// groupFor returns the keyGroup for k, creating it under a.mu if this
// is the first sample seen for that dimension Key.
func (a *CounterAggregator) groupFor(k metrickey.Key) *keyGroup {
	h := hashKey(k)

	a.mu.Lock()
	defer a.mu.Unlock()

	for _, g := range a.groups[h] {
		if g.key.Equal(k) {
			return g
		}
	}
	g := &keyGroup{key: k.Clone()}
	a.groups[h] = append(a.groups[h], g)
	return g
}

// AddMachineResponse folds every sample in resp into the aggregator's
// running state. Samples carrying a derived statistic (Percentile,
// Average, Minimum, Maximum) cannot be merged further and are
// rejected — federate on raw HitCount/Histogram samples and request
// percentile-at-aggregator instead.
func (a *CounterAggregator) AddMachineResponse(resp wire.CounterQueryResponse) error {
	for _, s := range resp.Samples {
		value, err := rawValue(s)
		if err != nil {
			return err
		}
		a.addSample(s.Key, s.Start, s.End, value, s.MachineCount)
	}
	return nil
}

func rawValue(s dataset.DataSample) (valuetype.Value, error) {
	switch s.Kind {
	case dataset.SampleHitCount:
		return valuetype.HitCount(s.HitCount), nil
	case dataset.SampleHistogram:
		return s.Histogram, nil
	default:
		return nil, mserrors.Wrap(mserrors.InvalidArgument, "aggregator cannot merge a pre-aggregated sample kind %d", s.Kind)
	}
}

func (a *CounterAggregator) addSample(key metrickey.Key, start, end ticks.Ticks, value valuetype.Value, machineCount int) {
	if machineCount <= 0 {
		machineCount = 1
	}

	g := a.groupFor(key)
	g.mu.Lock()
	defer g.mu.Unlock()

	merged := valueRange{start: start, end: end, value: value.Clone(), machineCount: machineCount}

	kept := g.ranges[:0]
	firstOverlap := true
	for _, r := range g.ranges {
		if r.start >= merged.end || r.end <= merged.start {
			kept = append(kept, r)
			continue
		}
		if r.start < merged.start {
			merged.start = r.start
		}
		if r.end > merged.end {
			merged.end = r.end
		}
		if firstOverlap {
			merged.value = r.value.Merge(merged.value)
			firstOverlap = false
		} else {
			merged.value = merged.value.Merge(r.value)
		}
		merged.machineCount += r.machineCount
	}

	kept = append(kept, merged)
	g.ranges = kept
}

// Results flattens every keyGroup's merged ranges into DataSamples, in
// no particular cross-key order. Histogram samples are projected to a
// Percentile sample if percentile-at-aggregator mode was requested.
func (a *CounterAggregator) Results() []dataset.DataSample {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out []dataset.DataSample
	for _, bucket := range a.groups {
		for _, g := range bucket {
			g.mu.Lock()
			for _, r := range g.ranges {
				out = append(out, a.toSample(g.key, r))
			}
			g.mu.Unlock()
		}
	}
	return out
}

func (a *CounterAggregator) toSample(key metrickey.Key, r valueRange) dataset.DataSample {
	base := dataset.DataSample{Key: key, Start: r.start, End: r.end, MachineCount: r.machineCount}

	hist, isHistogram := r.value.(valuetype.Histogram)
	if !isHistogram {
		hc, _ := r.value.(valuetype.HitCount)
		base.Kind = dataset.SampleHitCount
		base.HitCount = uint64(hc)
		return base
	}

	if a.percentileAtAggregator {
		base.Kind = dataset.SamplePercentile
		base.Percentile = a.percentile
		base.PercentileValue, base.SampleCount = dataset.Percentile(hist, a.percentile)
		return base
	}

	base.Kind = dataset.SampleHistogram
	base.Histogram = hist
	base.SampleCount = hist.SampleCount()
	return base
}
