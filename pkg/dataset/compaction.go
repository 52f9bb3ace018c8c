package dataset

import (
	"context"
	"os"
	"sort"

	"github.com/nicktill/metricsystem/pkg/bucket"
	"github.com/nicktill/metricsystem/pkg/ticks"
)

// getEarliestTimestampsPerBucket returns, for each compaction rule in
// order, the start of the coarse-interval group that latest currently
// falls in. Compaction only considers groups strictly older than this
// boundary, so an in-progress (still-filling) coarse interval is never
// torn apart mid-way.
func (ds *DataSet) getEarliestTimestampsPerBucket(latest ticks.Ticks) []ticks.Ticks {
	out := make([]ticks.Ticks, len(ds.config.CompactionRules))
	for i, rule := range ds.config.CompactionRules {
		out[i] = ticks.FloorDiv(latest, rule.Interval)
	}
	return out
}

// compact walks the compaction rules in ascending coarseness and
// collapses contiguous sealed bucket groups whose combined span equals
// the rule's interval and whose youngest member has aged past the
// rule's retention.
func (ds *DataSet) compact(ctx context.Context, now ticks.Ticks) error {
	boundaries := ds.getEarliestTimestampsPerBucket(now)

	for ri, rule := range ds.config.CompactionRules {
		horizon := boundaries[ri]
		for {
			group, groupStart, groupEnd := ds.findCompactableGroup(rule, horizon, now)
			if group == nil {
				break
			}
			if err := ds.compactGroup(ctx, group, groupStart, groupEnd); err != nil {
				return err
			}
		}
	}
	return nil
}

// findCompactableGroup scans the current bucket list for the first
// contiguous run of sealed buckets, all narrower than rule.Interval,
// that exactly tiles one rule.Interval-wide window starting before
// horizon, with no gaps and the youngest bucket older than the rule's
// retention.
func (ds *DataSet) findCompactableGroup(rule CompactionRule, horizon, now ticks.Ticks) ([]*bucket.DataBucket, ticks.Ticks, ticks.Ticks) {
	buckets := ds.bucketsSnapshot()

	for i := 0; i < len(buckets); i++ {
		b := buckets[i]
		if b.State() == bucket.Writing {
			continue
		}
		if b.End()-b.Start() >= rule.Interval {
			continue
		}
		groupStart := ticks.FloorDiv(b.Start(), rule.Interval)
		if groupStart != b.Start() {
			continue // not the first bucket of a prospective window
		}
		groupEnd := groupStart + rule.Interval
		if groupStart >= horizon {
			continue // window still filling, not yet eligible
		}

		group := []*bucket.DataBucket{b}
		expectedNext := b.End()
		j := i + 1
		for j < len(buckets) && buckets[j].Start() < groupEnd {
			nb := buckets[j]
			if nb.State() == bucket.Writing || nb.Start() != expectedNext || nb.End()-nb.Start() >= rule.Interval {
				group = nil
				break
			}
			group = append(group, nb)
			expectedNext = nb.End()
			j++
		}
		if group == nil || expectedNext != groupEnd {
			continue
		}

		youngest := group[len(group)-1]
		if now-youngest.End() < rule.Retention {
			continue
		}
		return group, groupStart, groupEnd
	}
	return nil, 0, 0
}

func (ds *DataSet) compactGroup(ctx context.Context, group []*bucket.DataBucket, groupStart, groupEnd ticks.Ticks) error {
	merged, err := bucket.Merge(group, groupStart, groupEnd, ds.dimSet, ds.storageDir)
	if err != nil {
		return err
	}
	if err := merged.Persist(true); err != nil {
		return err
	}

	ds.mu.Lock()
	out := ds.buckets[:0:0]
	inserted := false
	removing := make(map[*bucket.DataBucket]bool, len(group))
	for _, g := range group {
		removing[g] = true
	}
	for _, b := range ds.buckets {
		if removing[b] {
			if !inserted {
				out = append(out, merged)
				inserted = true
			}
			continue
		}
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start() < out[j].Start() })
	ds.buckets = out
	ds.mu.Unlock()

	for _, g := range group {
		if err := os.Remove(g.Filename()); err != nil && !os.IsNotExist(err) {
			ds.log.Error(err, "delete pre-compaction bucket file failed", "path", g.Filename())
		}
	}

	ds.metrics.CompactionsRun.Add(ctx, 1)
	ds.log.Info("compacted buckets", "counter", ds.counterName, "count", len(group), "start", int64(groupStart), "end", int64(groupEnd))
	return nil
}
