package valuetype

import "sort"

// Histogram maps a signed 64-bit sample value to its unsigned 32-bit
// observation count. Merge is per-key add.
type Histogram map[int64]uint32

// NewHistogram returns an empty Histogram.
func NewHistogram() Histogram {
	return make(Histogram)
}

// Observe quantizes raw according to rounding and increments that
// bucket's count by one.
func (h Histogram) Observe(raw int64, rounding Rounding) {
	h[rounding.Apply(raw)]++
}

// Merge adds other's per-key counts into h and returns h. Panics if other
// is not a Histogram.
func (h Histogram) Merge(other Value) Value {
	o, ok := other.(Histogram)
	if !ok {
		panic("valuetype: Histogram.Merge called with a non-Histogram value")
	}
	for k, c := range o {
		h[k] += c
	}
	return h
}

// Clone returns an independent copy of h.
func (h Histogram) Clone() Value {
	c := make(Histogram, len(h))
	for k, v := range h {
		c[k] = v
	}
	return c
}

// SampleCount returns the sum of all bucket counts.
func (h Histogram) SampleCount() uint64 {
	var total uint64
	for _, c := range h {
		total += uint64(c)
	}
	return total
}

// SortedKeys returns the histogram's keys in ascending order, the
// iteration order percentile/min/max computation requires.
func (h Histogram) SortedKeys() []int64 {
	keys := make([]int64, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Min returns the histogram's smallest observed key. ok is false for an
// empty histogram.
func (h Histogram) Min() (value int64, ok bool) {
	first := true
	for k := range h {
		if first || k < value {
			value, first = k, false
		}
	}
	return value, !first
}

// Max returns the histogram's largest observed key. ok is false for an
// empty histogram.
func (h Histogram) Max() (value int64, ok bool) {
	first := true
	for k := range h {
		if first || k > value {
			value, first = k, false
		}
	}
	return value, !first
}
