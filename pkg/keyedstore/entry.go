package keyedstore

import (
	"container/heap"

	"github.com/nicktill/metricsystem/pkg/metrickey"
	"github.com/nicktill/metricsystem/pkg/mserrors"
	"github.com/nicktill/metricsystem/pkg/valuetype"
)

// Entry is one (Key, Value) pair in a sorted sequence.
type Entry struct {
	Key   metrickey.Key
	Value valuetype.Value
}

// heapItem tracks one source sequence's current head during the k-way
// merge, so the source it came from is known for the deterministic
// equal-key tie-break.
type heapItem struct {
	entry    Entry
	sourceID int
	nextPos  int
}

type mergeHeap []*heapItem

func (h mergeHeap) Len() int { return len(h) }

func (h mergeHeap) Less(i, j int) bool {
	if c := h[i].entry.Key.Compare(h[j].entry.Key); c != 0 {
		return c < 0
	}
	return h[i].sourceID < h[j].sourceID
}

func (h mergeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *mergeHeap) Push(x any) { *h = append(*h, x.(*heapItem)) }

func (h *mergeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// MergeSorted k-way merges len(sources) already key-sorted (individually,
// duplicates within a source allowed) sequences into one sequence with
// strictly ascending, unique keys, coalescing equal keys via the sample
// type's Value.Merge. Ties across sources at the same key merge in
// source order, so the result is reproducible regardless of goroutine
// scheduling.
func MergeSorted(sources [][]Entry) ([]Entry, error) {
	h := &mergeHeap{}
	heap.Init(h)

	for srcID, src := range sources {
		if len(src) == 0 {
			continue
		}
		heap.Push(h, &heapItem{entry: src[0], sourceID: srcID, nextPos: 1})
	}

	result := make([]Entry, 0)
	for h.Len() > 0 {
		top := heap.Pop(h).(*heapItem)

		if len(result) > 0 {
			cmp := top.entry.Key.Compare(result[len(result)-1].Key)
			if cmp < 0 {
				return nil, mserrors.Wrap(mserrors.Fatal, "k-way merge produced non-ascending key")
			}
			if cmp == 0 {
				last := &result[len(result)-1]
				last.Value = last.Value.Merge(top.entry.Value)
			} else {
				result = append(result, top.entry)
			}
		} else {
			result = append(result, top.entry)
		}

		src := sources[top.sourceID]
		if top.nextPos < len(src) {
			heap.Push(h, &heapItem{entry: src[top.nextPos], sourceID: top.sourceID, nextPos: top.nextPos + 1})
		}
	}

	return result, nil
}
