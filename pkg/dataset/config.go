package dataset

import "github.com/nicktill/metricsystem/pkg/ticks"

// CompactionRule is one (interval, retention) step of the compaction
// schedule: once the youngest bucket in a contiguous group spanning
// Interval is older than Retention, that group is collapsed into a
// single bucket of that coarser interval.
type CompactionRule struct {
	Interval  ticks.Ticks
	Retention ticks.Ticks
}

// Config holds a DataSet's routing and lifecycle parameters. There is
// no file-backed loader here — spec.md's Non-goals place configuration
// file loading outside the core, so callers populate Config directly.
type Config struct {
	// DefaultInterval is the bucket width new writes are routed into.
	DefaultInterval ticks.Ticks
	// SealTime is how long after a bucket's end it is sealed.
	SealTime ticks.Ticks
	// MaxAge is how long after a bucket's end it is deleted outright,
	// and how far in the past an incoming write may land before being
	// dropped as too old.
	MaxAge ticks.Ticks
	// CompactionRules must be given in ascending Interval order.
	CompactionRules []CompactionRule
}
