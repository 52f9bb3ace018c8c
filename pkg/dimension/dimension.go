// Package dimension implements Dimension and DimensionSet: the
// string-to-32-bit-index interning tables that back every Key in the
// MetricSystem storage engine.
package dimension

import (
	"strings"
	"sync"

	"github.com/nicktill/metricsystem/pkg/mserrors"
)

// WildcardIndex is the reserved index matching any value in a filter and
// grouping all values under a split. Index 0 is never assigned to an
// interned value.
const WildcardIndex uint32 = 0

// reservedNames are forbidden as user dimension names: they are either
// wire-protocol reserved words or carry special meaning at the core
// boundary (pkg/wire).
var reservedNames = map[string]bool{
	"machine":         true,
	"machinefunction": true,
	"datacenter":      true,
	"environment":     true,
	"start":           true,
	"end":             true,
	"percentile":      true,
	"aggregate":       true,
	"dimension":       true,
}

// IsReservedName reports whether name is one of the wire-protocol reserved
// dimension names (case-insensitive).
func IsReservedName(name string) bool {
	return reservedNames[strings.ToLower(name)]
}

// Dimension interns string values to 32-bit indices. The zero value is not
// usable; construct with New.
type Dimension struct {
	name string

	mu          sync.RWMutex
	byValue     map[string]uint32 // lower-cased value -> index
	display     []string          // index -> original-cased display form; index 0 unused
	allowedSet  map[string]bool   // nil = unrestricted; keys are lower-cased
}

// New creates a Dimension named name. It fails if name is empty,
// whitespace-only, or one of the reserved names.
//
// allowedValues, if non-nil, restricts Intern to only the given values
// (case-insensitive); all other attempted intern calls fail.
func New(name string, allowedValues []string) (*Dimension, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, mserrors.Wrap(mserrors.InvalidArgument, "dimension name must not be empty or whitespace")
	}
	if IsReservedName(trimmed) {
		return nil, mserrors.Wrap(mserrors.InvalidArgument, "dimension name %q is reserved", name)
	}

	d := &Dimension{
		name:    name,
		byValue: make(map[string]uint32),
		display: make([]string, 1, 16), // index 0 reserved for wildcard, unused slot
	}

	if allowedValues != nil {
		d.allowedSet = make(map[string]bool, len(allowedValues))
		for _, v := range allowedValues {
			d.allowedSet[strings.ToLower(v)] = true
		}
	}

	return d, nil
}

// Name returns the dimension's display name.
func (d *Dimension) Name() string { return d.name }

// Cardinality returns the number of distinct interned values (excluding the
// wildcard).
func (d *Dimension) Cardinality() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byValue)
}

// Intern returns the stable index for value, assigning a new one if it has
// not been seen before. The empty string always yields WildcardIndex and is
// never added to the table. Interning is case-insensitive; the first-seen
// casing is retained as the display form. Concurrent-safe.
func (d *Dimension) Intern(value string) (uint32, error) {
	if value == "" {
		return WildcardIndex, nil
	}

	key := strings.ToLower(value)

	d.mu.RLock()
	if idx, ok := d.byValue[key]; ok {
		d.mu.RUnlock()
		return idx, nil
	}
	d.mu.RUnlock()

	d.mu.Lock()
	defer d.mu.Unlock()

	// Re-check under the write lock: another goroutine may have interned
	// this value between our RUnlock and Lock.
	if idx, ok := d.byValue[key]; ok {
		return idx, nil
	}

	if d.allowedSet != nil && !d.allowedSet[key] {
		return 0, mserrors.Wrap(mserrors.InvalidArgument, "value %q is not in the allowed set for dimension %q", value, d.name)
	}

	idx := uint32(len(d.display))
	d.byValue[key] = idx
	d.display = append(d.display, value)
	return idx, nil
}

// IndexToString returns the display form of an interned index. It fails if
// idx is out of range (including idx == WildcardIndex, which has no string
// form).
func (d *Dimension) IndexToString(idx uint32) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if idx == WildcardIndex || int(idx) >= len(d.display) {
		return "", mserrors.Wrap(mserrors.InvalidArgument, "index %d out of range for dimension %q", idx, d.name)
	}
	return d.display[idx], nil
}

// TryLookup returns the index for value without interning it, reporting
// whether it was found. The empty string reports WildcardIndex, found=true.
func (d *Dimension) TryLookup(value string) (uint32, bool) {
	if value == "" {
		return WildcardIndex, true
	}
	key := strings.ToLower(value)
	d.mu.RLock()
	defer d.mu.RUnlock()
	idx, ok := d.byValue[key]
	return idx, ok
}
