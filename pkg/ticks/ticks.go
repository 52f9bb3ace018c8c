// Package ticks implements the UTC tick — a 100-nanosecond-resolution
// timestamp — used throughout bucket and dataset interval arithmetic
// instead of time.Time, so interval boundaries are plain comparable
// integers.
package ticks

import "time"

// PerSecond is the number of ticks in one second.
const PerSecond = 10_000_000

// Ticks is a UTC timestamp counted in 100ns units since the Unix epoch.
type Ticks int64

// Now returns the current time as Ticks.
func Now() Ticks {
	return FromTime(time.Now())
}

// FromTime converts t to Ticks, truncating to 100ns resolution.
func FromTime(t time.Time) Ticks {
	return Ticks(t.UnixNano() / 100)
}

// FromDuration converts a duration to a tick count.
func FromDuration(d time.Duration) Ticks {
	return Ticks(d.Nanoseconds() / 100)
}

// Time converts t back to a UTC time.Time.
func (t Ticks) Time() time.Time {
	return time.Unix(0, int64(t)*100).UTC()
}

// Duration converts t to a time.Duration, for use in arithmetic against
// time.Time-based APIs.
func (t Ticks) Duration() time.Duration {
	return time.Duration(int64(t) * 100)
}

// FloorDiv rounds t down to the nearest multiple of interval — the
// bucket-start rounding rule: floor(ts / interval) * interval.
func FloorDiv(t, interval Ticks) Ticks {
	if interval <= 0 {
		return t
	}
	q := int64(t) / int64(interval)
	if int64(t)%int64(interval) != 0 && t < 0 {
		q--
	}
	return Ticks(q) * interval
}
