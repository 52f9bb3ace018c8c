package persist

import "github.com/nicktill/metricsystem/pkg/ticks"

// FormatVersion is the 16-bit tag written at the start of every block.
// Bumped whenever the content layout below changes incompatibly.
const FormatVersion uint16 = 1

// DataType tags which sample type a bucket's value stream holds.
type DataType uint8

const (
	DataTypeHitCount DataType = 0
	DataTypeHistogram DataType = 1
	DataTypeUnknown   DataType = 2
)

// Source records one contributing machine's name and ingest status, as
// carried in a bucket header. Status is opaque to this package — the
// caller defines the vocabulary ("ok", "stale", ...).
type Source struct {
	Name   string
	Status string
}

// BucketHeader is the fixed-shape record at the start of a bucket's
// content, before its DimensionSet and data streams.
type BucketHeader struct {
	CounterName string
	Start       ticks.Ticks
	End         ticks.Ticks
	DataType    DataType
	Sources     []Source
	KeyCount    uint32
}
