// Package metrics records per-run refresh metrics and pushes them to a
// Prometheus Pushgateway. A cron job exits before it could be scraped, so
// metrics live in a private registry and are pushed once per run.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/heartmarshall/mtgportal-cron/internal/config"
)

// Run summarises one refresh run.
type Run struct {
	Success    bool
	Decoded    int
	Inserted   int
	Skipped    int
	Batches    int
	Duration   time.Duration
	FinishedAt time.Time
}

// Recorder holds the refresh metrics.
type Recorder struct {
	registry *prometheus.Registry
	gateway  string
	job      string

	decoded       prometheus.Counter
	inserted      prometheus.Counter
	skipped       prometheus.Counter
	batches       prometheus.Counter
	batchDuration prometheus.Histogram
	batchSize     prometheus.Histogram
	runDuration   prometheus.Gauge
	runSuccess    prometheus.Gauge
	lastSuccess   prometheus.Gauge
}

// NewRecorder creates a Recorder with its own registry.
func NewRecorder(cfg config.MetricsConfig) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		gateway:  cfg.PushgatewayURL,
		job:      cfg.Job,

		decoded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cards_decoded_total",
			Help: "Card records decoded from the bulk payload",
		}),
		inserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cards_inserted_total",
			Help: "Card records inserted into the staging table",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cards_skipped_total",
			Help: "Card records skipped because their id was already staged",
		}),
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "batches_total",
			Help: "Insert statements issued against the staging table",
		}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "batch_insert_duration_seconds",
			Help:    "Time taken to insert one batch",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "batch_size",
			Help:    "Records per insert statement",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8), // 1 to 16384
		}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "last_run_duration_seconds",
			Help: "Duration of the last refresh run",
		}),
		runSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "last_run_success",
			Help: "1 if the last refresh run committed, 0 otherwise",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "last_success_timestamp_seconds",
			Help: "Unix time of the last committed refresh run",
		}),
	}

	r.registry.MustRegister(
		r.decoded, r.inserted, r.skipped, r.batches,
		r.batchDuration, r.batchSize,
		r.runDuration, r.runSuccess, r.lastSuccess,
	)
	return r
}

// ObserveBatch records one insert statement.
func (r *Recorder) ObserveBatch(size int, d time.Duration) {
	r.batchSize.Observe(float64(size))
	r.batchDuration.Observe(d.Seconds())
}

// ObserveRun records the outcome of a run.
func (r *Recorder) ObserveRun(run Run) {
	r.decoded.Add(float64(run.Decoded))
	r.inserted.Add(float64(run.Inserted))
	r.skipped.Add(float64(run.Skipped))
	r.batches.Add(float64(run.Batches))
	r.runDuration.Set(run.Duration.Seconds())

	if run.Success {
		r.runSuccess.Set(1)
		r.lastSuccess.Set(float64(run.FinishedAt.Unix()))
	} else {
		r.runSuccess.Set(0)
	}
}

// Push sends every metric to the configured Pushgateway, replacing the
// job's previous group. Without a gateway it does nothing.
func (r *Recorder) Push(ctx context.Context) error {
	if r.gateway == "" {
		return nil
	}
	if err := push.New(r.gateway, r.job).Gatherer(r.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", r.gateway, err)
	}
	return nil
}

// Gatherer exposes the registry.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}
