package keyedstore

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/nicktill/metricsystem/pkg/buffer"
	"github.com/nicktill/metricsystem/pkg/dimension"
	"github.com/nicktill/metricsystem/pkg/metrickey"
	"github.com/nicktill/metricsystem/pkg/mserrors"
	"github.com/nicktill/metricsystem/pkg/valuetype"
)

// Kind selects which Value concrete type a KeyedDataStore holds. A store
// never mixes HitCount and Histogram entries.
type Kind int

const (
	KindHitCount Kind = iota
	KindHistogram
)

const (
	initialShardCapacity = 256
	maxShardCapacity      = 1 << 20
	shardCount            = 8
)

// shard is one append-only lane. Writes round-robin across shards to
// approximate per-thread buffers without relying on goroutine identity.
// current and arena are read without holding mu on the hot write path,
// so they're swapped via atomic.Pointer rather than plain fields.
type shard struct {
	mu       sync.Mutex
	current  atomic.Pointer[buffer.BufferedKeyedData]
	capacity int64
	arena    atomic.Pointer[buffer.ValueArena]
	merged   []Entry // flushed-and-merged entries from prior rotations
}

// KeyedDataStore is the per-counter, per-bucket index from Key to Value.
type KeyedDataStore struct {
	dimSet *dimension.DimensionSet
	kind   Kind

	mu      sync.RWMutex // exclusive: Merge; shared: Len/Entries/ConvertEntries
	shards  []*shard
	next    atomic.Uint64 // round-robin shard selector
	isMerged bool
	result   []Entry
}

// New constructs an empty, pre-merge KeyedDataStore over dimSet holding
// values of the given Kind.
func New(dimSet *dimension.DimensionSet, kind Kind) *KeyedDataStore {
	s := &KeyedDataStore{dimSet: dimSet, kind: kind}
	s.shards = make([]*shard, shardCount)
	for i := range s.shards {
		s.shards[i] = newShard(dimSet, initialShardCapacity)
	}
	return s
}

// NewFromSorted builds an already-merged KeyedDataStore directly from a
// strictly ascending, deduplicated entry sequence — the shape produced
// by deserialization or by a cross-bucket compaction merge. The store
// still accepts further AddValue calls; a later Merge folds them in
// alongside this seed result.
func NewFromSorted(dimSet *dimension.DimensionSet, kind Kind, entries []Entry) *KeyedDataStore {
	s := New(dimSet, kind)
	s.result = entries
	s.isMerged = true
	return s
}

func newShard(dimSet *dimension.DimensionSet, capacity int64) *shard {
	sh := &shard{capacity: capacity}
	sh.current.Store(buffer.NewBufferedKeyedData(dimSet, capacity))
	sh.arena.Store(buffer.NewValueArena(int(capacity) * 8))
	return sh
}

// AddValue resolves spec to a Key against the store's DimensionSet and
// appends (Key, value) to a shard's buffer, growing and flushing that
// shard in place if it is full. Writes are lock-free except during
// growth.
func (s *KeyedDataStore) AddValue(spec dimension.DimensionSpecification, value valuetype.Value) error {
	key, _, err := s.dimSet.CreateKey(spec)
	if err != nil {
		return err
	}

	idx := s.next.Add(1) % uint64(len(s.shards))
	return s.shards[idx].write(s, key, value)
}

func (sh *shard) write(store *KeyedDataStore, key metrickey.Key, value valuetype.Value) error {
	for {
		arena := sh.arena.Load()
		encoded, err := store.encode(arena, value)
		if err != nil {
			return err
		}

		if sh.current.Load().TryWrite(key, encoded) {
			return nil
		}
		// current was full (or the encode raced a rotate and landed in
		// an arena that's about to be retired): rotate and retry fresh.
		if err := sh.rotate(store); err != nil {
			return err
		}
	}
}

// rotate seals the shard's current buffer, merges it into the shard's
// running merged set, and replaces it with a fresh buffer (doubled
// capacity, capped) so writers can keep going without blocking on the
// whole store.
func (sh *shard) rotate(store *KeyedDataStore) error {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	entries, err := store.drain(sh)
	if err != nil {
		return err
	}

	merged, err := MergeSorted([][]Entry{sh.merged, entries})
	if err != nil {
		return err
	}
	sh.merged = merged

	newCap := sh.capacity * 2
	if newCap > maxShardCapacity {
		newCap = maxShardCapacity
	}
	sh.capacity = newCap
	sh.current.Store(buffer.NewBufferedKeyedData(store.dimSet, newCap))
	sh.arena.Store(buffer.NewValueArena(int(newCap) * 8))
	return nil
}

// encode converts value into the raw 64-bit slot TryWrite accepts: the
// hit count directly, or a histogram's byte offset into arena.
func (s *KeyedDataStore) encode(arena *buffer.ValueArena, value valuetype.Value) (uint64, error) {
	switch s.kind {
	case KindHitCount:
		hc, ok := value.(valuetype.HitCount)
		if !ok {
			return 0, mserrors.Wrap(mserrors.InvalidArgument, "store holds HitCount, got %T", value)
		}
		return uint64(hc), nil
	case KindHistogram:
		hist, ok := value.(valuetype.Histogram)
		if !ok {
			return 0, mserrors.Wrap(mserrors.InvalidArgument, "store holds Histogram, got %T", value)
		}
		keys := hist.SortedKeys()
		counts := make([]uint32, len(keys))
		for i, k := range keys {
			counts[i] = hist[k]
		}
		return arena.WriteVariable(keys, counts), nil
	default:
		return 0, mserrors.Wrap(mserrors.InvalidState, "unknown value kind %d", s.kind)
	}
}

// decode is the inverse of encode, reading back a Value from the slot
// stored in a buffer record.
func (s *KeyedDataStore) decode(arena *buffer.ValueArena, raw uint64) (valuetype.Value, error) {
	switch s.kind {
	case KindHitCount:
		return valuetype.HitCount(raw), nil
	case KindHistogram:
		m := make(map[int64]uint32)
		if err := arena.ReadValuesInto(m, raw, 0, true); err != nil {
			return nil, err
		}
		return valuetype.Histogram(m), nil
	default:
		return nil, mserrors.Wrap(mserrors.InvalidState, "unknown value kind %d", s.kind)
	}
}

// drain seals, sorts, and decodes a shard's current buffer into an
// Entry slice. Caller must hold sh.mu.
func (s *KeyedDataStore) drain(sh *shard) ([]Entry, error) {
	current := sh.current.Load()
	arena := sh.arena.Load()

	if err := current.Seal(); err != nil {
		return nil, err
	}
	if err := current.Sort(); err != nil {
		return nil, err
	}

	n := current.Len()
	entries := make([]Entry, n)
	for i := 0; i < n; i++ {
		key, raw := current.At(i)
		value, err := s.decode(arena, raw)
		if err != nil {
			return nil, err
		}
		entries[i] = Entry{Key: key, Value: value}
	}
	return entries, nil
}

// Merge seals every shard, sorts each, and k-way merges them (and any
// entries already flushed by a prior growth-driven rotation) into one
// sorted, deduplicated sequence. Safe to call more than once; subsequent
// writes after a Merge start a fresh pre-merge state on their shard.
func (s *KeyedDataStore) Merge() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sources := make([][]Entry, 0, len(s.shards)*2)
	for _, sh := range s.shards {
		sh.mu.Lock()
		entries, err := s.drain(sh)
		if err != nil {
			sh.mu.Unlock()
			return err
		}
		sources = append(sources, sh.merged, entries)
		sh.merged = nil
		sh.current.Store(buffer.NewBufferedKeyedData(s.dimSet, initialShardCapacity))
		sh.capacity = initialShardCapacity
		sh.arena.Store(buffer.NewValueArena(initialShardCapacity * 8))
		sh.mu.Unlock()
	}

	if s.isMerged {
		sources = append(sources, s.result)
	}

	merged, err := MergeSorted(sources)
	if err != nil {
		return err
	}

	s.result = merged
	s.isMerged = true
	return nil
}

// Len reports the number of entries in the post-merge result. Zero
// before the first Merge.
func (s *KeyedDataStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.result)
}

// Entries returns the post-merge (Key, Value) sequence in ascending
// Key order. The caller must not mutate the returned slice's Values.
func (s *KeyedDataStore) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.result))
	copy(out, s.result)
	return out
}

// DimensionSet returns the store's current DimensionSet.
func (s *KeyedDataStore) DimensionSet() *dimension.DimensionSet {
	return s.dimSet
}

// Kind returns the store's value kind.
func (s *KeyedDataStore) Kind() Kind {
	return s.kind
}

// ConvertEntries projects every post-merge entry's Key onto
// targetDimSet by dimension name (dimensions absent in the target are
// dropped, dimensions absent in the source broaden to wildcard), and
// re-sorts (stably, so colliding keys keep relative order). It does not
// coalesce collisions; callers feed the result into MergeSorted
// alongside other converted sources to do that.
func (s *KeyedDataStore) ConvertEntries(targetDimSet *dimension.DimensionSet) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	projection := make([]int, targetDimSet.Len())
	for j := 0; j < targetDimSet.Len(); j++ {
		name := targetDimSet.Dimension(j).Name()
		if i, ok := s.dimSet.IndexOf(name); ok {
			projection[j] = i + 1
		}
	}

	out := make([]Entry, len(s.result))
	for i, e := range s.result {
		dst := metrickey.Wildcard(len(projection))
		for j, srcPos := range projection {
			if srcPos == 0 {
				continue
			}
			dst[j] = e.Key[srcPos-1]
		}
		out[i] = Entry{Key: dst, Value: e.Value}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Key.Less(out[j].Key) })
	return out
}
