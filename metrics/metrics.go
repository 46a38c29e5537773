package metrics

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"potato-prices/models"
)

// Collector holds the run metrics. Each Collector owns its registry so tests
// and repeated runs never collide on registration.
type Collector struct {
	registry *prometheus.Registry

	FetchDuration      *prometheus.HistogramVec
	ObservationsTotal  *prometheus.CounterVec
	DroppedTotal       *prometheus.CounterVec
	SourceStatus       *prometheus.GaugeVec
	RunDuration        prometheus.Gauge
	LastRunTimestamp   prometheus.Gauge
	CombinedStates     prometheus.Gauge
	SourcesFailedTotal prometheus.Gauge
}

// NewCollector creates a collector registering under namespace.
func NewCollector(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,

		FetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "source_fetch_duration_seconds",
				Help:      "Duration of a source pipeline (fetch and aggregate) in seconds",
				Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"source"},
		),

		ObservationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "observations_total",
				Help:      "Raw observations returned by each source",
			},
			[]string{"source"},
		),

		DroppedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "observations_dropped_total",
				Help:      "Observations or price fields discarded during aggregation, by reason",
			},
			[]string{"source", "reason"}, // "unresolved", "out_of_catalog", "implausible"
		),

		SourceStatus: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "source_status",
				Help:      "1 for the status a source ended the last run in, 0 otherwise",
			},
			[]string{"source", "status"},
		),

		RunDuration: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Wall time of the last run in seconds",
			},
		),

		LastRunTimestamp: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_run_timestamp_seconds",
				Help:      "Unix time the last run finished",
			},
		),

		CombinedStates: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "combined_states",
				Help:      "Number of states in the combined report with at least one price",
			},
		),

		SourcesFailedTotal: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "sources_failed",
				Help:      "Number of sources that failed or returned no data in the last run",
			},
		),
	}
}

// RecordSource records the outcome of one source pipeline.
func (c *Collector) RecordSource(res models.SourceResult) {
	c.FetchDuration.WithLabelValues(res.Source).Observe(res.Duration.Seconds())
	c.ObservationsTotal.WithLabelValues(res.Source).Add(float64(res.Stats.Observations))
	c.DroppedTotal.WithLabelValues(res.Source, "unresolved").Add(float64(res.Stats.Unresolved))
	c.DroppedTotal.WithLabelValues(res.Source, "out_of_catalog").Add(float64(res.Stats.OutOfCatalog))
	c.DroppedTotal.WithLabelValues(res.Source, "implausible").Add(float64(res.Stats.Implausible))

	for _, st := range []models.SourceStatus{models.StatusOK, models.StatusNoData, models.StatusSourceFailed} {
		v := 0.0
		if st == res.Status {
			v = 1
		}
		c.SourceStatus.WithLabelValues(res.Source, string(st)).Set(v)
	}
}

// ObserveStatus sets the gauges from a stored run status. Counters and
// histograms are left alone since the run was recorded by another process.
func (c *Collector) ObserveStatus(status *models.RunStatus) {
	for _, res := range status.Sources {
		for _, st := range []models.SourceStatus{models.StatusOK, models.StatusNoData, models.StatusSourceFailed} {
			v := 0.0
			if st == res.Status {
				v = 1
			}
			c.SourceStatus.WithLabelValues(res.Source, string(st)).Set(v)
		}
	}
	c.SourcesFailedTotal.Set(float64(len(status.Failures)))
	if ts, err := time.Parse(time.RFC3339, status.RunTimestamp); err == nil {
		c.LastRunTimestamp.Set(float64(ts.Unix()))
	}
}

// RecordRun records run-level figures once all sources are done.
func (c *Collector) RecordRun(report *models.RunReport, elapsed time.Duration) {
	c.RunDuration.Set(elapsed.Seconds())
	c.LastRunTimestamp.Set(float64(time.Now().Unix()))
	c.SourcesFailedTotal.Set(float64(len(report.Failures)))

	n := 0
	for _, row := range report.Combined {
		if !row.IsEmpty() {
			n++
		}
	}
	c.CombinedStates.Set(float64(n))
}

// WriteTextfile dumps the registry in the node-exporter textfile format.
func (c *Collector) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("metrics: create dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("metrics: write textfile %q: %w", path, err)
	}
	return nil
}

// Handler serves the registry over HTTP.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the registry, mainly for tests.
func (c *Collector) Gatherer() prometheus.Gatherer {
	return c.registry
}
