// Package bucket implements DataBucket: the half-open time-interval
// container that owns one KeyedDataStore, persists it to a framed
// on-disk file, and can be reloaded, released, and merged with its
// neighbors during compaction.
package bucket
