// Command metricsystem-demo exercises the storage engine end to end:
// ingest, seal, persist, a policy pass, per-server query, and
// aggregator-side federation, all against a temporary on-disk
// directory. It has no network transport; it is a worked example of
// wiring pkg/dataset, pkg/aggregator, pkg/wire, and pkg/concurrency
// together, the way an operator would embed them.
package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"

	"go.opentelemetry.io/otel/metric/noop"

	"github.com/nicktill/metricsystem/pkg/aggregator"
	"github.com/nicktill/metricsystem/pkg/concurrency"
	"github.com/nicktill/metricsystem/pkg/dataset"
	"github.com/nicktill/metricsystem/pkg/dimension"
	"github.com/nicktill/metricsystem/pkg/keyedstore"
	"github.com/nicktill/metricsystem/pkg/metrickey"
	"github.com/nicktill/metricsystem/pkg/telemetry"
	"github.com/nicktill/metricsystem/pkg/ticks"
	"github.com/nicktill/metricsystem/pkg/valuetype"
	"github.com/nicktill/metricsystem/pkg/wire"
)

func main() {
	storageDir, err := os.MkdirTemp("", "metricsystem-demo-")
	if err != nil {
		log.Fatalf("create storage dir: %v", err)
	}
	defer os.RemoveAll(storageDir)

	logger := telemetry.NewDefaultLogger()
	metrics, err := telemetry.NewEngineMetrics(noop.NewMeterProvider().Meter("metricsystem-demo"))
	if err != nil {
		log.Fatalf("build engine metrics: %v", err)
	}

	dc, err := dimension.New("dc", nil)
	if err != nil {
		log.Fatalf("build dimension: %v", err)
	}
	method, err := dimension.New("method", []string{"GET", "POST"})
	if err != nil {
		log.Fatalf("build dimension: %v", err)
	}
	dimSet := dimension.NewDimensionSet(dc, method)

	minute := ticks.Ticks(60) * ticks.PerSecond
	cfg := dataset.Config{
		DefaultInterval: minute,
		SealTime:        minute,
		MaxAge:          24 * 60 * minute,
		CompactionRules: []dataset.CompactionRule{
			{Interval: 5 * minute, Retention: 2 * 60 * minute},
			{Interval: 60 * minute, Retention: 24 * 60 * minute},
		},
	}

	residency, err := concurrency.NewResidencyCache(64 << 20)
	if err != nil {
		log.Fatalf("build residency cache: %v", err)
	}
	defer residency.Close()

	machines := []string{"web-01", "web-02"}
	datasets := make(map[string]*dataset.DataSet, len(machines))
	for _, m := range machines {
		datasets[m] = dataset.New("/http/requests", storageDir+"/"+m, dimSet, keyedstore.KindHistogram, cfg, logger, metrics)
		if err := os.MkdirAll(storageDir+"/"+m, 0o755); err != nil {
			log.Fatalf("create machine storage dir: %v", err)
		}
	}

	ctx := context.Background()
	now := ticks.Now()
	t0 := ticks.FloorDiv(now, cfg.DefaultInterval)

	log.Println("ingesting simulated request latencies across two machines")
	dcs := []string{"sea", "lax", "iad"}
	methods := []string{"GET", "POST"}
	for _, m := range machines {
		ds := datasets[m]
		for i := 0; i < 250; i++ {
			spec := dimension.DimensionSpecification{
				"dc":     dcs[rand.Intn(len(dcs))],
				"method": methods[rand.Intn(len(methods))],
			}
			latencyMs := int64(5 + rand.Intn(250))
			ts := t0 + ticks.Ticks(rand.Intn(int(cfg.DefaultInterval)))
			h := valuetype.NewHistogram()
			h.Observe(latencyMs, valuetype.None)
			if err := ds.AddValue(ctx, spec, h, ts, now, m); err != nil {
				log.Fatalf("add value on %s: %v", m, err)
			}
		}
		log.Printf("%s: rejected writes: %d", m, ds.RejectedWrites())
	}

	runner := concurrency.NewTaskRunner(ctx, 4)
	for _, m := range machines {
		ds := datasets[m]
		runner.Schedule(func(ctx context.Context) error {
			return ds.RunPolicy(ctx, t0+cfg.DefaultInterval+cfg.SealTime)
		})
	}
	if err := runner.Join(ctx); err != nil {
		log.Fatalf("policy pass: %v", err)
	}

	query := wire.ParsedQuery{
		Filter: dimension.DimensionSpecification{"method": "GET"},
		Spec:   dataset.QuerySpec{Percentile: dataset.NoPercentile, Combine: true},
		Range:  dataset.TimeRange{Start: t0, End: t0 + cfg.DefaultInterval},
	}
	filterKey, _, err := dimSet.CreateKey(query.Filter)
	if err != nil {
		log.Fatalf("build filter key: %v", err)
	}

	agg := aggregator.New(99)
	for _, m := range machines {
		ds := datasets[m]
		samples, err := ds.QueryData(metrickey.Key(filterKey), query.Spec, query.Range)
		if err != nil {
			log.Fatalf("query %s: %v", m, err)
		}
		for _, b := range ds.Buckets() {
			residency.Touch(b, 4096)
		}
		if err := agg.AddMachineResponse(wire.CounterQueryResponse{Machine: m, CounterName: "/http/requests", Samples: samples}); err != nil {
			log.Fatalf("federate %s: %v", m, err)
		}
	}

	for _, s := range agg.Results() {
		fmt.Printf("federated p99 GET latency = %dms over %d machines\n", s.PercentileValue, s.MachineCount)
	}
}
