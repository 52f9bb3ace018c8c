package bucket

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/nicktill/metricsystem/pkg/dimension"
	"github.com/nicktill/metricsystem/pkg/keyedstore"
	"github.com/nicktill/metricsystem/pkg/metrickey"
	"github.com/nicktill/metricsystem/pkg/mserrors"
	"github.com/nicktill/metricsystem/pkg/persist"
	"github.com/nicktill/metricsystem/pkg/ticks"
	"github.com/nicktill/metricsystem/pkg/valuetype"
)

// State is a DataBucket's position in its Writing -> Sealed -> Persisted
// -> Released lifecycle. Released may transition back to Persisted on
// lazy reload.
type State int32

const (
	Writing State = iota
	Sealed
	Persisted
	Released
)

func (s State) String() string {
	switch s {
	case Writing:
		return "writing"
	case Sealed:
		return "sealed"
	case Persisted:
		return "persisted"
	case Released:
		return "released"
	default:
		return "unknown"
	}
}

// Match is one result row from GetMatches / GetMatchesSplitByDimension:
// a matched Key, its (possibly merged) Value, and the number of
// distinct source keys that collapsed into it.
type Match struct {
	Key       metrickey.Key
	Value     valuetype.Value
	DataCount int
}

// DataBucket owns one KeyedDataStore over a half-open tick interval.
type DataBucket struct {
	counterName string
	start, end  ticks.Ticks
	storageDir  string

	mu      sync.RWMutex
	dimSet  *dimension.DimensionSet
	kind    keyedstore.Kind
	store   *keyedstore.KeyedDataStore
	state   atomic.Int32
	sources map[string]string // source name -> status, union across merges
}

// New constructs a Writing bucket spanning [start, end) for counterName,
// backed by dimSet and holding values of kind. storageDir is where
// Persist will write the bucket's file.
func New(counterName string, start, end ticks.Ticks, dimSet *dimension.DimensionSet, kind keyedstore.Kind, storageDir string) (*DataBucket, error) {
	if end <= start {
		return nil, mserrors.Wrap(mserrors.InvalidArgument, "bucket interval [%d, %d) is not positive-length", start, end)
	}
	return &DataBucket{
		counterName: counterName,
		start:       start,
		end:         end,
		storageDir:  storageDir,
		dimSet:      dimSet,
		kind:        kind,
		store:       keyedstore.New(dimSet, kind),
		sources:     make(map[string]string),
	}, nil
}

// Start and End return the bucket's half-open tick interval.
func (b *DataBucket) Start() ticks.Ticks { return b.start }
func (b *DataBucket) End() ticks.Ticks   { return b.end }

// CounterName returns the owning counter's name.
func (b *DataBucket) CounterName() string { return b.counterName }

// State returns the bucket's current lifecycle state.
func (b *DataBucket) State() State { return State(b.state.Load()) }

// Filename returns the path Persist writes to and GetMatches reloads
// from: storageDir/escapedCounterName_start_end.bucket.
func (b *DataBucket) Filename() string {
	return Filename(b.storageDir, b.counterName, b.start, b.end)
}

// Filename derives a filesystem-safe bucket path from its counter name
// and interval. Counter names may contain '/', which url.PathEscape
// turns into a safe, reversible "%2F" rather than creating directories.
func Filename(storageDir, counterName string, start, end ticks.Ticks) string {
	escaped := url.PathEscape(counterName)
	return filepath.Join(storageDir, fmt.Sprintf("%s_%d_%d.bucket", escaped, int64(start), int64(end)))
}

// AddValue forwards to the underlying KeyedDataStore, rejecting writes
// outside [start, end) or after the bucket has sealed. On success it
// records source as having contributed a write, so the persisted
// header's Sources list reflects who actually wrote to this bucket.
func (b *DataBucket) AddValue(spec dimension.DimensionSpecification, value valuetype.Value, ts ticks.Ticks, source string) error {
	if ts < b.start || ts >= b.end {
		return mserrors.Wrap(mserrors.InvalidArgument, "timestamp %d outside bucket range [%d, %d)", ts, b.start, b.end)
	}
	if b.State() != Writing {
		return mserrors.Wrap(mserrors.InvalidState, "write to %v bucket rejected", b.State())
	}

	b.mu.RLock()
	store := b.store
	b.mu.RUnlock()
	if store == nil {
		return mserrors.Wrap(mserrors.InvalidState, "write to released bucket without reload rejected")
	}
	if err := store.AddValue(spec, value); err != nil {
		return err
	}
	if source != "" {
		b.AddSource(source, "ok")
	}
	return nil
}

// AddSource records that ingestion accepted writes attributed to the
// named source, with the given status ("ok", "partial", ...). Merge
// unions every input bucket's source map into its output.
func (b *DataBucket) AddSource(name, status string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sources[name] = status
}

// Seal runs one final merge over the store and transitions Writing ->
// Sealed. Idempotent: calling it again (or on an already-Sealed,
// Persisted, or Released bucket) is a no-op.
func (b *DataBucket) Seal() error {
	if !b.state.CompareAndSwap(int32(Writing), int32(Sealed)) {
		return nil
	}

	b.mu.RLock()
	store := b.store
	b.mu.RUnlock()
	return store.Merge()
}

// Persist writes the bucket to its Filename via temp-file-then-rename,
// so a crash mid-write never leaves a partial file at the real path.
// Requires the bucket to be Sealed; succeeds idempotently if already
// Persisted.
func (b *DataBucket) Persist(compress bool) error {
	state := b.State()
	if state == Persisted || state == Released {
		return nil
	}
	if state != Sealed {
		return mserrors.Wrap(mserrors.InvalidState, "persist requires a sealed bucket, got %v", state)
	}

	b.mu.RLock()
	store := b.store
	dimSet := b.dimSet
	sources := sourcesSlice(b.sources)
	b.mu.RUnlock()

	header := persist.BucketHeader{
		CounterName: b.counterName,
		Start:       b.start,
		End:         b.end,
		DataType:    kindToDataType(b.kind),
		Sources:     sources,
		KeyCount:    uint32(store.Len()),
	}

	if err := os.MkdirAll(b.storageDir, 0o755); err != nil {
		return mserrors.Wrap(mserrors.PersistedData, "create storage dir: %v", err)
	}

	final := b.Filename()
	tmp := final + ".tmp"
	if err := persist.WriteBucketFile(tmp, header, dimSet, store.Entries(), compress); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return mserrors.Wrap(mserrors.PersistedData, "rename temp bucket file: %v", err)
	}

	b.state.Store(int32(Persisted))
	return nil
}

// ReleaseData drops the in-memory store, leaving the persisted file in
// place. Requires the bucket to be Persisted.
func (b *DataBucket) ReleaseData() error {
	if !b.state.CompareAndSwap(int32(Persisted), int32(Released)) {
		if b.State() == Released {
			return nil
		}
		return mserrors.Wrap(mserrors.InvalidState, "release requires a persisted bucket, got %v", b.State())
	}

	b.mu.Lock()
	b.store = nil
	b.mu.Unlock()
	return nil
}

// reload lazily reads the bucket back from disk if it is Released.
func (b *DataBucket) reload() error {
	if b.State() != Released {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.store != nil { // raced with a concurrent reload
		return nil
	}

	header, dimSet, entries, err := persist.ReadBucketFile(b.Filename())
	if errors.Is(err, io.EOF) {
		// Nothing was ever persisted at this path. Keep the bucket's
		// existing dimSet/kind and come back up empty rather than
		// treating a clean-EOF file as corruption.
		b.store = keyedstore.New(b.dimSet, b.kind)
		b.state.Store(int32(Persisted))
		return nil
	}
	if err != nil {
		return err
	}

	b.dimSet = dimSet
	b.kind = dataTypeToKind(header.DataType)
	b.store = keyedstore.NewFromSorted(dimSet, b.kind, entries)
	b.state.Store(int32(Persisted))
	return nil
}

// GetMatches returns every stored (Key, Value) pair matching filter
// (wildcard-aware), reloading from disk first if the bucket is
// Released. DataCount is always 1: the store is already fully merged,
// so each stored Key is its own complete representative.
func (b *DataBucket) GetMatches(filter metrickey.Key) ([]Match, error) {
	if err := b.reload(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	store := b.store
	b.mu.RUnlock()

	var matches []Match
	for _, e := range store.Entries() {
		if metrickey.Matches(filter, e.Key) {
			matches = append(matches, Match{Key: e.Key, Value: e.Value, DataCount: 1})
		}
	}
	return matches, nil
}

// GetMatchesSplitByDimension is like GetMatches but groups matches by
// the distinct value present at splitDimPos, projecting that value onto
// the output Key and wildcarding every other position. DataCount counts
// how many original matched Keys collapsed into each group.
func (b *DataBucket) GetMatchesSplitByDimension(filter metrickey.Key, splitDimPos int) ([]Match, error) {
	matches, err := b.GetMatches(filter)
	if err != nil {
		return nil, err
	}

	groups := make(map[uint32]*Match)
	order := make([]uint32, 0)
	for _, m := range matches {
		splitValue := m.Key[splitDimPos]
		g, ok := groups[splitValue]
		if !ok {
			projected := metrickey.Wildcard(len(m.Key))
			projected[splitDimPos] = splitValue
			g = &Match{Key: projected, Value: m.Value.Clone(), DataCount: 0}
			groups[splitValue] = g
			order = append(order, splitValue)
		} else {
			g.Value = g.Value.Merge(m.Value)
		}
		g.DataCount++
	}

	out := make([]Match, 0, len(order))
	for _, v := range order {
		out = append(out, *groups[v])
	}
	return out, nil
}

func sourcesSlice(m map[string]string) []persist.Source {
	out := make([]persist.Source, 0, len(m))
	for name, status := range m {
		out = append(out, persist.Source{Name: name, Status: status})
	}
	return out
}

func kindToDataType(k keyedstore.Kind) persist.DataType {
	switch k {
	case keyedstore.KindHitCount:
		return persist.DataTypeHitCount
	case keyedstore.KindHistogram:
		return persist.DataTypeHistogram
	default:
		return persist.DataTypeUnknown
	}
}

func dataTypeToKind(t persist.DataType) keyedstore.Kind {
	if t == persist.DataTypeHistogram {
		return keyedstore.KindHistogram
	}
	return keyedstore.KindHitCount
}
