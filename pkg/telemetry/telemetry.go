// Package telemetry provides the ambient logging and self-observability
// wiring shared by pkg/dataset (including its compaction pass) and the
// demo binary.
//
// Logging goes through a logr.Logger so callers can swap in any backend
// (stdr by default, zapr/logrusr in production) without the core importing
// a concrete logging package. Self-observability counters go through an
// OpenTelemetry Meter — a second, independent metrics pipeline the engine
// uses to describe its own health, separate from the domain counters it
// stores on behalf of callers.
package telemetry

import (
	"context"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// NewDefaultLogger returns a stdr-backed logr.Logger, matching the
// zero-configuration logging the demo binary and tests expect.
func NewDefaultLogger() logr.Logger {
	return stdr.New(nil)
}

// EngineMetrics are the operational counters the storage engine records
// about itself, independent of the domain data it stores.
type EngineMetrics struct {
	WritesAccepted      metric.Int64Counter
	WritesRejected      metric.Int64Counter
	BucketsSealed       metric.Int64Counter
	BucketsReleased     metric.Int64Counter
	CompactionsRun      metric.Int64Counter
	CompactionDuration  metric.Float64Histogram
	PersistedDataErrors metric.Int64Counter
}

// NewEngineMetrics builds the engine's self-observability instrument set
// from the given Meter. Pass noop.NewMeterProvider().Meter("") when no
// OpenTelemetry pipeline is configured; instrument calls are then no-ops.
func NewEngineMetrics(meter metric.Meter) (*EngineMetrics, error) {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("metricsystem")
	}

	writesAccepted, err := meter.Int64Counter("metricsystem.writes_accepted",
		metric.WithDescription("AddValue calls that were routed to a bucket"))
	if err != nil {
		return nil, err
	}
	writesRejected, err := meter.Int64Counter("metricsystem.writes_rejected",
		metric.WithDescription("AddValue calls dropped as too old or against a sealed bucket"))
	if err != nil {
		return nil, err
	}
	bucketsSealed, err := meter.Int64Counter("metricsystem.buckets_sealed",
		metric.WithDescription("Buckets transitioned from Writing to Sealed"))
	if err != nil {
		return nil, err
	}
	bucketsReleased, err := meter.Int64Counter("metricsystem.buckets_released",
		metric.WithDescription("Sealed buckets that had their in-memory arrays dropped"))
	if err != nil {
		return nil, err
	}
	compactionsRun, err := meter.Int64Counter("metricsystem.compactions_run",
		metric.WithDescription("Bucket groups merged by compaction"))
	if err != nil {
		return nil, err
	}
	compactionDuration, err := meter.Float64Histogram("metricsystem.compaction_duration_seconds",
		metric.WithDescription("Wall-clock duration of a compaction pass"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	persistedDataErrors, err := meter.Int64Counter("metricsystem.persisted_data_errors",
		metric.WithDescription("Buckets marked unusable due to malformed or truncated on-disk data"))
	if err != nil {
		return nil, err
	}

	return &EngineMetrics{
		WritesAccepted:      writesAccepted,
		WritesRejected:      writesRejected,
		BucketsSealed:       bucketsSealed,
		BucketsReleased:     bucketsReleased,
		CompactionsRun:      compactionsRun,
		CompactionDuration:  compactionDuration,
		PersistedDataErrors: persistedDataErrors,
	}, nil
}

// NoopEngineMetrics returns an EngineMetrics backed by a no-op meter, for
// callers (tests, the demo binary) that don't wire a real MeterProvider.
func NoopEngineMetrics() *EngineMetrics {
	m, _ := NewEngineMetrics(noop.NewMeterProvider().Meter("metricsystem"))
	return m
}

// IncWrites records n accepted or rejected writes.
func (m *EngineMetrics) IncWrites(ctx context.Context, accepted bool, n int64) {
	if accepted {
		m.WritesAccepted.Add(ctx, n)
	} else {
		m.WritesRejected.Add(ctx, n)
	}
}
