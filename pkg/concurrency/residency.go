package concurrency

import (
	"github.com/dgraph-io/ristretto/v2"

	"github.com/nicktill/metricsystem/pkg/bucket"
)

// ResidencyCache tracks which sealed DataBuckets are worth keeping
// resident in memory. Touch records that a bucket was read or
// written; once the cache's cost budget is exceeded, ristretto evicts
// the coldest entries and the eviction hook releases their in-memory
// histograms/values back to the filesystem-backed persisted form.
//
// A bucket that is not yet Persisted is never released: ReleaseData
// returns an error for it and its data stays in memory.
type ResidencyCache struct {
	cache *ristretto.Cache[string, *bucket.DataBucket]
}

// NewResidencyCache builds a cache with maxCostBytes worth of room,
// approximating bucket cost by its resident byte footprint.
func NewResidencyCache(maxCostBytes int64) (*ResidencyCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, *bucket.DataBucket]{
		NumCounters: maxCostBytes / 100 * 10, // ~10x entry count, ristretto's own rule of thumb
		MaxCost:     maxCostBytes,
		BufferItems: 64,
		OnEvict: func(item *ristretto.Item[*bucket.DataBucket]) {
			if item.Value == nil {
				return
			}
			_ = item.Value.ReleaseData()
		},
	})
	if err != nil {
		return nil, err
	}
	return &ResidencyCache{cache: c}, nil
}

// Touch records b as recently used, costing approximately costBytes
// against the cache's budget. Call this after loading or querying a
// sealed bucket's data.
func (rc *ResidencyCache) Touch(b *bucket.DataBucket, costBytes int64) {
	rc.cache.Set(b.Filename(), b, costBytes)
}

// Release releases filename's bucket data immediately, the same way the
// OnEvict hook does, and removes the entry from the cache.
func (rc *ResidencyCache) Release(filename string) {
	if b, ok := rc.cache.Get(filename); ok && b != nil {
		_ = b.ReleaseData()
	}
	rc.cache.Del(filename)
}

// Close drains pending ristretto bookkeeping goroutines.
func (rc *ResidencyCache) Close() {
	rc.cache.Close()
}
