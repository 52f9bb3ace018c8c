package valuetype

import "math"

// HitCount is a single unsigned 64-bit counter. Merge is saturating add:
// it never wraps, it pins at math.MaxUint64.
type HitCount uint64

// Merge saturating-adds other into h's count and returns the result.
// Panics if other is not a HitCount — mixing sample types within one
// counter's storage is a programming error the caller must prevent before
// reaching this layer.
func (h HitCount) Merge(other Value) Value {
	o, ok := other.(HitCount)
	if !ok {
		panic("valuetype: HitCount.Merge called with a non-HitCount value")
	}

	sum := uint64(h) + uint64(o)
	if sum < uint64(h) { // overflow
		return HitCount(math.MaxUint64)
	}
	return HitCount(sum)
}

// Clone returns h unchanged — HitCount is a value type, already immutable.
func (h HitCount) Clone() Value { return h }

// SampleCount returns the counter's current value.
func (h HitCount) SampleCount() uint64 { return uint64(h) }
