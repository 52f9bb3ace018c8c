package dataset

import (
	"math"
	"sort"

	"github.com/nicktill/metricsystem/pkg/bucket"
	"github.com/nicktill/metricsystem/pkg/metrickey"
	"github.com/nicktill/metricsystem/pkg/mserrors"
	"github.com/nicktill/metricsystem/pkg/ticks"
	"github.com/nicktill/metricsystem/pkg/valuetype"
)

// SampleKind tags which fields of a DataSample are populated.
type SampleKind int

const (
	SampleHitCount SampleKind = iota
	SampleHistogram
	SamplePercentile
	SampleAverage
	SampleMinimum
	SampleMaximum
)

// NoPercentile signals QuerySpec.Percentile carries no request.
const NoPercentile = -1

// Aggregate alias values recognized alongside an explicit percentile.
const (
	AggregateNone    = ""
	AggregateAverage = "average"
	AggregateMaximum = "maximum"
	AggregateMinimum = "minimum"
)

// TimeRange is a half-open [Start, End) tick interval to query over.
type TimeRange struct {
	Start, End ticks.Ticks
}

// overlaps reports whether TimeRange r and a bucket's [start, end)
// share any ticks.
func (r TimeRange) overlaps(start, end ticks.Ticks) bool {
	return start < r.End && end > r.Start
}

// QuerySpec controls how matches are combined across buckets and how
// a histogram result is post-processed into a derived statistic.
type QuerySpec struct {
	// CrossQueryDimension, if non-empty, requests per-value splitting
	// via GetMatchesSplitByDimension instead of a flat GetMatches.
	CrossQueryDimension string
	// Combine requests a single cross-bucket k-way merge per output Key
	// rather than one sample per (bucket, Key).
	Combine bool
	// Percentile in [0, 100], or NoPercentile for none.
	Percentile float64
	// Aggregate names an alias (average/maximum/minimum) honored only
	// when Percentile is NoPercentile.
	Aggregate string
}

// DataSample is one output row of QueryData.
type DataSample struct {
	Key   metrickey.Key
	Start ticks.Ticks
	End   ticks.Ticks
	Kind  SampleKind

	HitCount        uint64
	Histogram       valuetype.Histogram
	SampleCount     uint64
	MachineCount    int
	Percentile      float64
	PercentileValue int64
	Average         float64
	MinValue        int64
	MaxValue        int64
}

type taggedMatch struct {
	bucket.Match
	start, end ticks.Ticks
}

// QueryData selects buckets overlapping tr, collects matches under
// filter (optionally split by spec.CrossQueryDimension), combines them
// per spec.Combine, and applies percentile/aggregate post-processing.
func (ds *DataSet) QueryData(filter metrickey.Key, spec QuerySpec, tr TimeRange) ([]DataSample, error) {
	var splitPos = -1
	if spec.CrossQueryDimension != "" {
		ds.mu.RLock()
		pos, ok := ds.dimSet.IndexOf(spec.CrossQueryDimension)
		ds.mu.RUnlock()
		if !ok {
			return nil, mserrors.Wrap(mserrors.InvalidArgument, "unknown split dimension %q", spec.CrossQueryDimension)
		}
		splitPos = pos
	}

	var tagged []taggedMatch
	for _, b := range ds.bucketsSnapshot() {
		if !tr.overlaps(b.Start(), b.End()) {
			continue
		}

		var matches []bucket.Match
		var err error
		if splitPos >= 0 {
			matches, err = b.GetMatchesSplitByDimension(filter, splitPos)
		} else {
			matches, err = b.GetMatches(filter)
		}
		if err != nil {
			if mserrors.Is(err, mserrors.PersistedData) {
				ds.log.Error(err, "skipping unusable bucket", "counter", ds.counterName, "start", b.Start())
				continue
			}
			return nil, err
		}

		for _, m := range matches {
			tagged = append(tagged, taggedMatch{Match: m, start: b.Start(), end: b.End()})
		}
	}

	sort.SliceStable(tagged, func(i, j int) bool { return tagged[i].Key.Less(tagged[j].Key) })

	var rows []taggedMatch
	if spec.Combine {
		rows = combineTagged(tagged)
	} else {
		rows = tagged
	}

	out := make([]DataSample, len(rows))
	for i, r := range rows {
		out[i] = postProcess(r, spec)
	}
	return out, nil
}

// combineTagged coalesces adjacent (already Key-sorted) rows sharing a
// Key into one row spanning the union of their time ranges, summing
// DataCount and value-merging.
func combineTagged(tagged []taggedMatch) []taggedMatch {
	out := make([]taggedMatch, 0, len(tagged))
	for _, t := range tagged {
		if n := len(out); n > 0 && out[n-1].Key.Equal(t.Key) {
			out[n-1].Value = out[n-1].Value.Clone().Merge(t.Value)
			out[n-1].DataCount += t.DataCount
			if t.start < out[n-1].start {
				out[n-1].start = t.start
			}
			if t.end > out[n-1].end {
				out[n-1].end = t.end
			}
			continue
		}
		out = append(out, t)
	}
	return out
}

func postProcess(r taggedMatch, spec QuerySpec) DataSample {
	base := DataSample{Key: r.Key, Start: r.start, End: r.end, MachineCount: r.DataCount}

	hist, isHistogram := r.Value.(valuetype.Histogram)
	if !isHistogram {
		hc, _ := r.Value.(valuetype.HitCount)
		base.Kind = SampleHitCount
		base.HitCount = uint64(hc)
		return base
	}

	if spec.Percentile >= 0 && spec.Percentile <= 100 {
		value, sampleCount := Percentile(hist, spec.Percentile)
		base.Kind = SamplePercentile
		base.Percentile = spec.Percentile
		base.PercentileValue = value
		base.SampleCount = sampleCount
		return base
	}

	switch spec.Aggregate {
	case AggregateAverage:
		base.Kind = SampleAverage
		base.Average, base.SampleCount = Average(hist)
		return base
	case AggregateMaximum:
		base.Kind = SampleMaximum
		if v, ok := hist.Max(); ok {
			base.MaxValue = v
		}
		base.SampleCount = hist.SampleCount()
		return base
	case AggregateMinimum:
		base.Kind = SampleMinimum
		if v, ok := hist.Min(); ok {
			base.MinValue = v
		}
		base.SampleCount = hist.SampleCount()
		return base
	}

	base.Kind = SampleHistogram
	base.Histogram = hist
	base.SampleCount = hist.SampleCount()
	return base
}

// Percentile implements the literal source formula
// rank = min(N, floor(round(N*p/100) + 0.5)), walking keys ascending
// and returning the first whose running total reaches rank. This
// deviates from textbook nearest-rank in edge cases; do not "fix" it.
// Exported so pkg/aggregator can apply the identical projection when a
// percentile is requested at the aggregator rather than per-server.
func Percentile(hist valuetype.Histogram, p float64) (value int64, sampleCount uint64) {
	keys := hist.SortedKeys()
	if len(keys) == 0 {
		return 0, 0
	}

	n := hist.SampleCount()
	rank := math.Floor(math.Round(float64(n)*p/100.0) + 0.5)
	if rank > float64(n) {
		rank = float64(n)
	}

	var running uint64
	for _, k := range keys {
		running += uint64(hist[k])
		if float64(running) >= rank {
			return k, n
		}
	}
	return keys[len(keys)-1], n
}

// Average computes Σ(key·count)/N with per-term scaling so extreme
// histogram widths don't overflow the accumulator.
func Average(hist valuetype.Histogram) (avg float64, sampleCount uint64) {
	n := hist.SampleCount()
	if n == 0 {
		return 0, 0
	}
	var sum float64
	for k, c := range hist {
		sum += float64(k) * (float64(c) / float64(n))
	}
	return sum, n
}
