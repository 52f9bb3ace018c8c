// Package keyedstore implements KeyedDataStore: the per-counter,
// per-bucket index from Key to Value. It owns the write path (sharded
// append buffers backed by pkg/buffer), the k-way merge that
// consolidates them into one sorted, deduplicated sequence, and the
// DimensionSet projection used by compaction.
package keyedstore
