// Package mserrors defines the error-kind taxonomy shared across the
// MetricSystem storage and aggregation core.
//
// Errors the core builds itself wrap exactly one of the sentinel Kind
// values below, so callers can branch on failure class with errors.Is
// instead of string matching. The exception is persist.ReadBucketFile on
// a file with no version header, which wraps io.EOF instead.
package mserrors

import (
	"errors"
	"fmt"
)

// Kind classifies why an operation failed.
type Kind error

var (
	// InvalidArgument: a user-supplied name, timestamp, percentile, or
	// dimension was rejected before any side effect occurred.
	InvalidArgument Kind = errors.New("invalid argument")

	// InvalidState: the operation is not legal in the object's current
	// lifecycle state (write after seal, sort before seal, double convert).
	InvalidState Kind = errors.New("invalid state")

	// PersistedData: on-disk data is malformed, truncated, or
	// version-incompatible. The affected bucket is unusable; siblings
	// continue serving.
	PersistedData Kind = errors.New("persisted data error")

	// Timeout: a query or fan-out deadline was exceeded.
	Timeout Kind = errors.New("timeout")

	// Capacity: a write buffer is full; the caller should retry after a
	// merge reclaims space.
	Capacity Kind = errors.New("capacity exceeded")

	// Fatal: an ordering invariant was violated (e.g. a k-way merge
	// produced non-ascending keys) or a dimension index underflowed.
	// The operation aborts; persisted data is not corrupted.
	Fatal Kind = errors.New("fatal invariant violation")
)

// Wrap builds an error from msg and args, annotated with kind so that
// errors.Is(result, kind) succeeds.
func Wrap(kind Kind, msg string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(msg, args...))
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	return errors.Is(err, kind)
}
