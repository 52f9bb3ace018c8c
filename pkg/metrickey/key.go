// Package metrickey implements Key: the fixed-width tuple of interned
// dimension-value indices that identifies one time series within a
// DimensionSet.
package metrickey

import "github.com/nicktill/metricsystem/pkg/dimension"

// Key is a fixed-length tuple of 32-bit dimension-value indices, one per
// dimension in the owning DimensionSet, in that set's tuple order.
type Key []uint32

// Wildcard builds an all-wildcard Key of width n, matching any Key of the
// same width under Matches.
func Wildcard(n int) Key {
	return make(Key, n)
}

// Clone returns an independent copy of k, since iteration contexts must
// not alias the backing array of a stored Key.
func (k Key) Clone() Key {
	c := make(Key, len(k))
	copy(c, k)
	return c
}

// Compare returns -1, 0, or 1 as k is lexicographically less than, equal
// to, or greater than other. Both keys must have equal length; a length
// mismatch is an invariant violation the caller should never allow to
// happen (Keys are always compared within one DimensionSet), so Compare
// panics rather than returning a sentinel.
func (k Key) Compare(other Key) int {
	if len(k) != len(other) {
		panic("metrickey: compared keys of different width")
	}
	for i := range k {
		if k[i] < other[i] {
			return -1
		}
		if k[i] > other[i] {
			return 1
		}
	}
	return 0
}

// Less reports whether k sorts strictly before other.
func (k Key) Less(other Key) bool { return k.Compare(other) < 0 }

// Equal reports whether k and other have identical index tuples.
func (k Key) Equal(other Key) bool {
	if len(k) != len(other) {
		return false
	}
	for i := range k {
		if k[i] != other[i] {
			return false
		}
	}
	return true
}

// Matches reports whether filter matches candidate: for every tuple
// position, filter must carry the wildcard index or the exact value
// candidate carries.
func Matches(filter, candidate Key) bool {
	if len(filter) != len(candidate) {
		return false
	}
	for i := range filter {
		if filter[i] != dimension.WildcardIndex && filter[i] != candidate[i] {
			return false
		}
	}
	return true
}

// ProjectDimension returns a copy of k with every position except
// keepPos reset to the wildcard: the same grouping identity that
// GetMatchesSplitByDimension builds inline.
func ProjectDimension(k Key, keepPos int) Key {
	out := Wildcard(len(k))
	out[keepPos] = k[keepPos]
	return out
}

// String renders a Key against set for diagnostics (errors, test
// failures); it never fails — unresolved indices render as "?".
func String(k Key, set *dimension.DimensionSet) string {
	out := make([]byte, 0, 64)
	out = append(out, '{')
	for i, idx := range k {
		if i > 0 {
			out = append(out, ',')
		}
		out = append(out, set.Dimension(i).Name()...)
		out = append(out, '=')
		if idx == dimension.WildcardIndex {
			out = append(out, '*')
			continue
		}
		v, err := set.Dimension(i).IndexToString(idx)
		if err != nil {
			out = append(out, '?')
			continue
		}
		out = append(out, v...)
	}
	out = append(out, '}')
	return string(out)
}
