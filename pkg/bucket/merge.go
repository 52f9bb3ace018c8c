package bucket

import (
	"github.com/nicktill/metricsystem/pkg/dimension"
	"github.com/nicktill/metricsystem/pkg/keyedstore"
	"github.com/nicktill/metricsystem/pkg/mserrors"
	"github.com/nicktill/metricsystem/pkg/ticks"
)

// Merge combines an ordered set of contiguous sealed buckets of the
// same counter — whose combined span equals [newStart, newEnd) — into
// one new bucket. Each input is first projected onto canonicalDimSet
// (which may be smaller than any input's DimensionSet, dropping
// low-value dimensions per compaction policy), then all projections are
// k-way merged. The new bucket's source list is the union of its
// inputs'; it is returned already Sealed (but not yet persisted).
func Merge(buckets []*DataBucket, newStart, newEnd ticks.Ticks, canonicalDimSet *dimension.DimensionSet, storageDir string) (*DataBucket, error) {
	if len(buckets) == 0 {
		return nil, mserrors.Wrap(mserrors.InvalidArgument, "merge requires at least one bucket")
	}

	counterName := buckets[0].CounterName()
	kind := buckets[0].kind

	sources := make([][]keyedstore.Entry, 0, len(buckets))
	mergedSources := make(map[string]string)

	for _, b := range buckets {
		if b.CounterName() != counterName {
			return nil, mserrors.Wrap(mserrors.InvalidArgument, "cannot merge buckets from different counters (%q, %q)", counterName, b.CounterName())
		}
		if b.State() != Sealed && b.State() != Persisted && b.State() != Released {
			return nil, mserrors.Wrap(mserrors.InvalidState, "merge input bucket %s must be sealed, is %v", b.Filename(), b.State())
		}
		if err := b.reload(); err != nil {
			return nil, err
		}

		b.mu.RLock()
		store := b.store
		for name, status := range b.sources {
			mergedSources[name] = status
		}
		if len(b.sources) == 0 {
			mergedSources[b.Filename()] = "ok"
		}
		b.mu.RUnlock()

		sources = append(sources, store.ConvertEntries(canonicalDimSet))
	}

	merged, err := keyedstore.MergeSorted(sources)
	if err != nil {
		return nil, err
	}

	out, err := New(counterName, newStart, newEnd, canonicalDimSet, kind, storageDir)
	if err != nil {
		return nil, err
	}
	out.store = keyedstore.NewFromSorted(canonicalDimSet, kind, merged)
	out.sources = mergedSources
	out.state.Store(int32(Sealed))
	return out, nil
}
