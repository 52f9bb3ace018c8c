package dataset

import (
	"context"
	"os"
	"sort"
	"sync"

	"github.com/go-logr/logr"

	"github.com/nicktill/metricsystem/pkg/bucket"
	"github.com/nicktill/metricsystem/pkg/dimension"
	"github.com/nicktill/metricsystem/pkg/keyedstore"
	"github.com/nicktill/metricsystem/pkg/mserrors"
	"github.com/nicktill/metricsystem/pkg/telemetry"
	"github.com/nicktill/metricsystem/pkg/ticks"
	"github.com/nicktill/metricsystem/pkg/valuetype"
)

// DataSet owns every DataBucket for one counter, ordered by start tick.
// Buckets appear on first write, seal once their seal horizon passes,
// persist on seal, release when idle, and are deleted or compacted by
// the policy loop.
type DataSet struct {
	counterName string
	storageDir  string
	kind        keyedstore.Kind
	config      Config

	log     logr.Logger
	metrics *telemetry.EngineMetrics

	mu      sync.RWMutex
	dimSet  *dimension.DimensionSet
	buckets []*bucket.DataBucket

	rejectedWrites int64
}

// New constructs an empty DataSet for counterName. dimSet is the full
// (uncompacted) DimensionSet new buckets are created with; storageDir
// is where bucket files are written. log and metrics may be the
// telemetry package's no-op defaults.
func New(counterName, storageDir string, dimSet *dimension.DimensionSet, kind keyedstore.Kind, config Config, log logr.Logger, metrics *telemetry.EngineMetrics) *DataSet {
	if metrics == nil {
		metrics = telemetry.NoopEngineMetrics()
	}
	return &DataSet{
		counterName: counterName,
		storageDir:  storageDir,
		dimSet:      dimSet,
		kind:        kind,
		config:      config,
		log:         log,
		metrics:     metrics,
	}
}

// CounterName returns the counter this DataSet routes writes for.
func (ds *DataSet) CounterName() string { return ds.counterName }

// AddValue routes one observation to the bucket covering ts, creating
// that bucket on first write. Writes older than MaxAge, or landing on
// an already-sealed bucket, are dropped and counted rather than
// returned as an error — metrics pipelines cannot tolerate
// backpressure into the producer. source identifies the reporting
// machine or agent and is recorded in the bucket's Sources list; pass
// "" if the caller has no source identity to attribute.
func (ds *DataSet) AddValue(ctx context.Context, spec dimension.DimensionSpecification, value valuetype.Value, ts, now ticks.Ticks, source string) error {
	if ds.config.MaxAge > 0 && ts+ds.config.MaxAge < now {
		ds.reject(ctx)
		return nil
	}

	b, err := ds.bucketFor(ts)
	if err != nil {
		return err
	}

	if err := b.AddValue(spec, value, ts, source); err != nil {
		if mserrors.Is(err, mserrors.InvalidState) {
			ds.reject(ctx)
			return nil
		}
		return err
	}

	ds.metrics.IncWrites(ctx, true, 1)
	return nil
}

func (ds *DataSet) reject(ctx context.Context) {
	ds.mu.Lock()
	ds.rejectedWrites++
	ds.mu.Unlock()
	ds.metrics.IncWrites(ctx, false, 1)
}

// RejectedWrites returns the number of writes dropped as too old or
// against a sealed bucket since construction.
func (ds *DataSet) RejectedWrites() int64 {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return ds.rejectedWrites
}

// bucketFor locates the bucket whose half-open range covers ts,
// creating one spanning DefaultInterval (rounded down from ts) if
// none exists.
func (ds *DataSet) bucketFor(ts ticks.Ticks) (*bucket.DataBucket, error) {
	ds.mu.RLock()
	if b := ds.findLocked(ts); b != nil {
		ds.mu.RUnlock()
		return b, nil
	}
	ds.mu.RUnlock()

	ds.mu.Lock()
	defer ds.mu.Unlock()
	if b := ds.findLocked(ts); b != nil {
		return b, nil
	}

	start := ticks.FloorDiv(ts, ds.config.DefaultInterval)
	end := start + ds.config.DefaultInterval
	b, err := bucket.New(ds.counterName, start, end, ds.dimSet, ds.kind, ds.storageDir)
	if err != nil {
		return nil, err
	}

	i := sort.Search(len(ds.buckets), func(i int) bool { return ds.buckets[i].Start() >= start })
	ds.buckets = append(ds.buckets, nil)
	copy(ds.buckets[i+1:], ds.buckets[i:])
	ds.buckets[i] = b
	return b, nil
}

// findLocked requires ds.mu held for reading or writing.
func (ds *DataSet) findLocked(ts ticks.Ticks) *bucket.DataBucket {
	i := sort.Search(len(ds.buckets), func(i int) bool { return ds.buckets[i].Start() > ts })
	if i == 0 {
		return nil
	}
	b := ds.buckets[i-1]
	if ts >= b.Start() && ts < b.End() {
		return b
	}
	return nil
}

// bucketsSnapshot returns a copy of the bucket slice under a read lock,
// so callers can iterate without holding ds.mu.
func (ds *DataSet) bucketsSnapshot() []*bucket.DataBucket {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	out := make([]*bucket.DataBucket, len(ds.buckets))
	copy(out, ds.buckets)
	return out
}

// Buckets exposes the current bucket list for callers that need to
// hand sealed buckets to a residency cache or other external policy.
func (ds *DataSet) Buckets() []*bucket.DataBucket {
	return ds.bucketsSnapshot()
}

// RunPolicy executes one pass of the seal / delete / compact policy
// loop against the given wall-clock now. Callers schedule this
// periodically (see pkg/concurrency) or invoke it on demand.
func (ds *DataSet) RunPolicy(ctx context.Context, now ticks.Ticks) error {
	if err := ds.sealOld(ctx, now); err != nil {
		return err
	}
	if err := ds.deleteOld(ctx, now); err != nil {
		return err
	}
	return ds.compact(ctx, now)
}

func (ds *DataSet) sealOld(ctx context.Context, now ticks.Ticks) error {
	for _, b := range ds.bucketsSnapshot() {
		if b.State() != bucket.Writing {
			continue
		}
		if now-b.End() < ds.config.SealTime {
			continue
		}
		if err := b.Seal(); err != nil {
			return err
		}
		ds.metrics.BucketsSealed.Add(ctx, 1)
		if err := b.Persist(true); err != nil {
			ds.log.Error(err, "persist after seal failed", "counter", ds.counterName, "start", b.Start())
			ds.metrics.PersistedDataErrors.Add(ctx, 1)
		}
	}
	return nil
}

func (ds *DataSet) deleteOld(ctx context.Context, now ticks.Ticks) error {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	kept := ds.buckets[:0]
	for _, b := range ds.buckets {
		if b.State() != bucket.Writing && now-b.End() >= ds.config.MaxAge && ds.config.MaxAge > 0 {
			if err := os.Remove(b.Filename()); err != nil && !os.IsNotExist(err) {
				ds.log.Error(err, "delete aged-out bucket file failed", "path", b.Filename())
			}
			continue
		}
		kept = append(kept, b)
	}
	ds.buckets = kept
	return nil
}
