package dimension

import (
	"sort"
	"strings"
)

// DimensionSet is an ordered, distinct sequence of Dimensions. Construction
// orders dimensions by descending live cardinality so high-selectivity
// dimensions are compared first during sorted merges and lexicographic Key
// comparisons — this is the only place ordering is decided; once built, a
// DimensionSet's order never changes.
type DimensionSet struct {
	dims []*Dimension
	// indexByName maps a lower-cased dimension name to its position in dims.
	indexByName map[string]int
}

// NewDimensionSet orders dims by descending cardinality (ties broken by
// name, for determinism) and returns the resulting set. Duplicate names
// (case-insensitive) are dropped: only the first of them in that order is
// kept.
func NewDimensionSet(dims ...*Dimension) *DimensionSet {
	ordered := make([]*Dimension, len(dims))
	copy(ordered, dims)

	sort.SliceStable(ordered, func(i, j int) bool {
		ci, cj := ordered[i].Cardinality(), ordered[j].Cardinality()
		if ci != cj {
			return ci > cj
		}
		return strings.ToLower(ordered[i].Name()) < strings.ToLower(ordered[j].Name())
	})

	idx := make(map[string]int, len(ordered))
	distinct := ordered[:0]
	for _, d := range ordered {
		name := strings.ToLower(d.Name())
		if _, dup := idx[name]; dup {
			continue
		}
		idx[name] = len(distinct)
		distinct = append(distinct, d)
	}

	return &DimensionSet{dims: distinct, indexByName: idx}
}

// Dimensions returns the set's dimensions in fixed Key-tuple order.
func (s *DimensionSet) Dimensions() []*Dimension { return s.dims }

// Len returns the number of dimensions, i.e. the width of any Key built
// from this set.
func (s *DimensionSet) Len() int { return len(s.dims) }

// IndexOf returns the tuple position of the named dimension and whether it
// is present (case-insensitive lookup).
func (s *DimensionSet) IndexOf(name string) (int, bool) {
	i, ok := s.indexByName[strings.ToLower(name)]
	return i, ok
}

// Dimension returns the dimension at tuple position i.
func (s *DimensionSet) Dimension(i int) *Dimension { return s.dims[i] }

// Equal reports name-set equality: same dimension names (case-insensitive),
// regardless of order or the identity of the underlying interning tables.
func (s *DimensionSet) Equal(other *DimensionSet) bool {
	if other == nil || len(s.dims) != len(other.dims) {
		return false
	}
	for name := range s.indexByName {
		if _, ok := other.indexByName[name]; !ok {
			return false
		}
	}
	return true
}

// Names returns the dimension names in tuple order.
func (s *DimensionSet) Names() []string {
	names := make([]string, len(s.dims))
	for i, d := range s.dims {
		names[i] = d.Name()
	}
	return names
}

// DimensionSpecification is a case-insensitive user-facing mapping of
// dimension name to string value, as parsed at the wire boundary.
type DimensionSpecification map[string]string

// CreateKey builds a Key over this DimensionSet from spec: each dimension
// present in spec with a non-empty value is interned and placed at its
// tuple position; dimensions absent from spec become WildcardIndex; names
// in spec that don't belong to this set are ignored. allDimensionsProvided
// reports whether every dimension in the set was given a non-empty value.
func (s *DimensionSet) CreateKey(spec DimensionSpecification) (key []uint32, allDimensionsProvided bool, err error) {
	key = make([]uint32, len(s.dims))
	provided := 0

	// Build a case-insensitive lookup over spec once, so CreateKey is O(n)
	// in the number of dimensions rather than O(n*m) in spec's size.
	lowerSpec := make(map[string]string, len(spec))
	for k, v := range spec {
		lowerSpec[strings.ToLower(k)] = v
	}

	for i, d := range s.dims {
		v, ok := lowerSpec[strings.ToLower(d.Name())]
		if !ok || v == "" {
			key[i] = WildcardIndex
			continue
		}
		idx, internErr := d.Intern(v)
		if internErr != nil {
			return nil, false, internErr
		}
		key[i] = idx
		provided++
	}

	return key, provided == len(s.dims), nil
}
