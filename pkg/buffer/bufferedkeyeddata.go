package buffer

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/nicktill/metricsystem/pkg/dimension"
	"github.com/nicktill/metricsystem/pkg/metrickey"
	"github.com/nicktill/metricsystem/pkg/mserrors"
)

// state is BufferedKeyedData's lifecycle position: Writable -> Sealed ->
// Sorted -> Converted. Each step is one-way.
type state int32

const (
	stateWritable state = iota
	stateSealed
	stateSorted
	stateConverted
)

func (s state) String() string {
	switch s {
	case stateWritable:
		return "writable"
	case stateSealed:
		return "sealed"
	case stateSorted:
		return "sorted"
	case stateConverted:
		return "converted"
	default:
		return "unknown"
	}
}

// record is one packed (Key, Value) slot. Value is either a HitCount's
// raw 64-bit count or an index into a side BufferedValueArray for
// Histogram-backed stores; BufferedKeyedData itself is agnostic to which.
type record struct {
	key   metrickey.Key
	value uint64
}

// bufferSizeForKeyCount returns the record capacity a BufferedKeyedData
// should be constructed with to hold n writes against dimSet. The
// in-memory arena is a struct slice rather than a raw byte buffer (the
// bit-packed byte encoding only exists on the serialize/persist path),
// so this is just n; the parameter is kept for symmetry with that path
// and so call sites read the same regardless of which side they size.
func bufferSizeForKeyCount(n int, dimSet *dimension.DimensionSet) int64 {
	_ = dimSet
	return int64(n)
}

// BufferedKeyedData is a single-writer-per-thread append arena: an
// ordered sequence of (Key, Value) records written concurrently via
// lock-free slot reservation, then sealed, sorted, and optionally
// projected onto a different DimensionSet.
type BufferedKeyedData struct {
	dimSet   *dimension.DimensionSet
	keyWidth int
	capacity int64

	offset atomic.Int64
	state  atomic.Int32

	mu      sync.Mutex // guards the one-way state transitions only
	records []record
}

// NewBufferedKeyedData allocates a Writable arena with room for
// capacity records against dimSet.
func NewBufferedKeyedData(dimSet *dimension.DimensionSet, capacity int64) *BufferedKeyedData {
	return &BufferedKeyedData{
		dimSet:   dimSet,
		keyWidth: dimSet.Len(),
		capacity: capacity,
		records:  make([]record, capacity),
	}
}

// TryWrite reserves the next slot via atomic fetch-add and copies key
// and value into it. It returns false once the arena is full or once
// the arena has been sealed; callers must not retry on the same buffer,
// they should obtain a fresh one.
func (b *BufferedKeyedData) TryWrite(key metrickey.Key, value uint64) bool {
	if state(b.state.Load()) != stateWritable {
		return false
	}

	idx := b.offset.Add(1) - 1
	if idx >= b.capacity {
		return false
	}

	b.records[idx] = record{key: key.Clone(), value: value}
	return true
}

// Len reports how many records were actually written (capped at
// capacity; TryWrite calls beyond that returned false and wrote
// nothing).
func (b *BufferedKeyedData) Len() int {
	n := b.offset.Load()
	if n > b.capacity {
		n = b.capacity
	}
	if n < 0 {
		n = 0
	}
	return int(n)
}

// DimensionSet returns the arena's current DimensionSet — the original
// one before Convert, or the target one after.
func (b *BufferedKeyedData) DimensionSet() *dimension.DimensionSet {
	return b.dimSet
}

// At returns the record at position i after Sort/Convert have fixed the
// arena's order. Callers must keep i within [0, Len()).
func (b *BufferedKeyedData) At(i int) (metrickey.Key, uint64) {
	r := b.records[i]
	return r.key, r.value
}

// Seal transitions Writable -> Sealed, after which TryWrite always
// returns false. Idempotent.
func (b *BufferedKeyedData) Seal() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch state(b.state.Load()) {
	case stateWritable:
		b.state.Store(int32(stateSealed))
		return nil
	case stateSealed:
		return nil
	default:
		return mserrors.Wrap(mserrors.InvalidState, "seal: arena already %v", state(b.state.Load()))
	}
}

// Sort orders the written records by Key, ascending, stably — equal
// keys retain their write (arrival) order. Requires the arena to be
// Sealed.
func (b *BufferedKeyedData) Sort() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if state(b.state.Load()) != stateSealed {
		return mserrors.Wrap(mserrors.InvalidState, "sort: arena must be sealed, is %v", state(b.state.Load()))
	}

	n := b.Len()
	sort.SliceStable(b.records[:n], func(i, j int) bool {
		return b.records[i].key.Less(b.records[j].key)
	})

	b.state.Store(int32(stateSorted))
	return nil
}

// Convert projects every record's Key onto targetDimSet by dimension
// name: dimensions present in both keep their index, dimensions only in
// the target broaden to wildcard, dimensions only in the source are
// dropped. It does not merge colliding keys — record count is preserved;
// that is KeyedDataMerge's job. Requires the arena to be Sorted, and may
// only be called once.
func (b *BufferedKeyedData) Convert(targetDimSet *dimension.DimensionSet) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if state(b.state.Load()) != stateSorted {
		return mserrors.Wrap(mserrors.InvalidState, "convert: arena must be sorted, is %v", state(b.state.Load()))
	}

	projection := make([]int, targetDimSet.Len())
	for j := 0; j < targetDimSet.Len(); j++ {
		name := targetDimSet.Dimension(j).Name()
		if i, ok := b.dimSet.IndexOf(name); ok {
			projection[j] = i + 1 // +1 so the zero value means "absent"
		}
	}

	n := b.Len()
	for i := 0; i < n; i++ {
		src := b.records[i].key
		dst := metrickey.Wildcard(len(projection))
		for j, srcPos := range projection {
			if srcPos == 0 {
				continue
			}
			dst[j] = src[srcPos-1]
		}
		b.records[i].key = dst
	}

	b.dimSet = targetDimSet
	b.keyWidth = targetDimSet.Len()
	b.state.Store(int32(stateConverted))
	return nil
}
