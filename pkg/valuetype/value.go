package valuetype

// Percentile, Average, Minimum, and Maximum are not separate storage
// types; they are query-time projections of a Histogram, computed in
// pkg/dataset.

// Value is the mergeable-value capability KeyedDataStore is built around.
// Both concrete types (HitCount, Histogram) implement it; Merge combines
// two values of the same concrete type and returns the combined value
// (the receiver may be mutated and returned, as Histogram does, or a new
// value may be returned, as HitCount does — callers must use the
// returned value, not assume in-place mutation).
type Value interface {
	// Merge combines the receiver with other, which must be the same
	// concrete type, and returns the combined value.
	Merge(other Value) Value

	// Clone returns an independent copy.
	Clone() Value

	// SampleCount returns the number of underlying observations folded
	// into this value (the counter value for HitCount; total bucket count
	// for Histogram).
	SampleCount() uint64
}
