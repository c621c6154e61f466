// Package metrics records per-run fetch and report metrics on a private
// Prometheus registry. A run is a short-lived batch job, so the registry is
// written to a node-exporter textfile instead of being scraped.
package metrics

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "paycheck"

// Registry holds the collectors of a single run
type Registry struct {
	reg    *prometheus.Registry
	logger *slog.Logger

	// requestsTotal counts tracker HTTP attempts.
	// Labels:
	//   - endpoint: "search" or "worklog"
	//   - outcome: "ok", "error", "malformed" or the HTTP status code
	requestsTotal *prometheus.CounterVec

	// requestDuration observes tracker HTTP attempt latency.
	// Buckets: 50ms .. 30s
	requestDuration *prometheus.HistogramVec

	issues     prometheus.Gauge
	authors    prometheus.Gauge
	worklogs   prometheus.Gauge
	duplicates prometheus.Gauge
	gaps       prometheus.Gauge

	runDuration prometheus.Gauge
	lastSuccess prometheus.Gauge
}

// NewRegistry creates a new metric registry
func NewRegistry() *Registry {
	r := &Registry{
		reg:    prometheus.NewRegistry(),
		logger: slog.Default().With("component", "metrics"),

		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tracker_requests_total",
				Help:      "Total number of tracker HTTP requests",
			},
			[]string{"endpoint", "outcome"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tracker_request_duration_seconds",
				Help:      "Duration of tracker HTTP requests in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"endpoint"},
		),
		issues:      gauge("issues", "Issues with time logged in the report window"),
		authors:     gauge("authors", "Authors who logged time in the report window"),
		worklogs:    gauge("worklogs", "Work logs ingested"),
		duplicates:  gauge("worklog_duplicates", "Work logs dropped because their id was already ingested"),
		gaps:        gauge("fetch_gaps", "Issues whose work logs could not be fetched"),
		runDuration: gauge("run_duration_seconds", "Wall time of the last run"),
		lastSuccess: gauge("last_success_timestamp_seconds", "Unix time of the last successful run"),
	}

	r.reg.MustRegister(
		r.requestsTotal, r.requestDuration,
		r.issues, r.authors, r.worklogs, r.duplicates, r.gaps,
		r.runDuration, r.lastSuccess,
	)
	return r
}

func gauge(name, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
}

// ObserveRequest records one tracker HTTP attempt
func (r *Registry) ObserveRequest(endpoint, outcome string, elapsed time.Duration) {
	r.requestsTotal.WithLabelValues(endpoint, outcome).Inc()
	r.requestDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// RunSummary is the outcome of one run
type RunSummary struct {
	Issues     int
	Authors    int
	Worklogs   int
	Duplicates int
	Gaps       int
	Elapsed    time.Duration
	Succeeded  bool
	FinishedAt time.Time
}

// RecordRun sets the run-level gauges
func (r *Registry) RecordRun(s RunSummary) {
	r.issues.Set(float64(s.Issues))
	r.authors.Set(float64(s.Authors))
	r.worklogs.Set(float64(s.Worklogs))
	r.duplicates.Set(float64(s.Duplicates))
	r.gaps.Set(float64(s.Gaps))
	r.runDuration.Set(s.Elapsed.Seconds())
	if s.Succeeded {
		r.lastSuccess.Set(float64(s.FinishedAt.Unix()))
	}
}

// Gatherer exposes the underlying registry
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// WriteTextfile writes the registry in the text exposition format. The file
// is replaced atomically.
func (r *Registry) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	r.logger.Debug("metrics written", "path", path)
	return nil
}
