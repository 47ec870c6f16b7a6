// Package metrics provides Prometheus metrics for the ingestion pipeline.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/example/encheres/internal/core/listing"
	"github.com/example/encheres/internal/core/scraperun"
	"github.com/example/encheres/internal/ports/secondary"
)

// PipelineMetrics contains the counters of batch processing. A nil
// *PipelineMetrics is a valid no-op observer.
type PipelineMetrics struct {
	ListingsProcessed    *prometheus.CounterVec // by outcome
	AlertMatchesCreated  prometheus.Counter
	LifecycleTransitions *prometheus.CounterVec // by target status
	RunDuration          *prometheus.GaugeVec   // last run, by scrape type

	registry *prometheus.Registry
}

// NewPipelineMetrics creates the metrics and registers them.
func NewPipelineMetrics(registry *prometheus.Registry) (*PipelineMetrics, error) {
	m := &PipelineMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register pipeline metrics: %w", err)
	}
	return m, nil
}

func (m *PipelineMetrics) initMetrics() {
	m.ListingsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "encheres_listings_processed_total",
			Help: "Total number of scraped records processed, by outcome",
		},
		[]string{"outcome"}, // created, updated, unchanged, error
	)

	m.AlertMatchesCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "encheres_alert_matches_created_total",
			Help: "Total number of new alert matches",
		},
	)

	m.LifecycleTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "encheres_lifecycle_transitions_total",
			Help: "Total number of listing status transitions, by target status",
		},
		[]string{"to"},
	)

	m.RunDuration = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "encheres_scrape_run_duration_seconds",
			Help: "Duration of the last finished scrape run, by scrape type",
		},
		[]string{"scrape_type"},
	)
}

// Describe implements prometheus.Collector.
func (m *PipelineMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.ListingsProcessed.Describe(ch)
	m.AlertMatchesCreated.Describe(ch)
	m.LifecycleTransitions.Describe(ch)
	m.RunDuration.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *PipelineMetrics) Collect(ch chan<- prometheus.Metric) {
	m.ListingsProcessed.Collect(ch)
	m.AlertMatchesCreated.Collect(ch)
	m.LifecycleTransitions.Collect(ch)
	m.RunDuration.Collect(ch)
}

// ListingProcessed counts one record outcome.
func (m *PipelineMetrics) ListingProcessed(outcome scraperun.Outcome) {
	if m == nil {
		return
	}
	m.ListingsProcessed.WithLabelValues(string(outcome)).Inc()
}

// MatchesCreated counts new alert matches.
func (m *PipelineMetrics) MatchesCreated(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.AlertMatchesCreated.Add(float64(n))
}

// LifecycleTransition counts a status change.
func (m *PipelineMetrics) LifecycleTransition(to listing.Status) {
	if m == nil {
		return
	}
	m.LifecycleTransitions.WithLabelValues(string(to)).Inc()
}

// RunFinished records the duration of a finished run.
func (m *PipelineMetrics) RunFinished(typ scraperun.Type, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RunDuration.WithLabelValues(string(typ)).Set(elapsed.Seconds())
}

// WriteToTextfile exports the registry for the node exporter textfile
// collector. An empty path is a no-op.
func (m *PipelineMetrics) WriteToTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

// Ensure PipelineMetrics implements the interface
var _ secondary.RunObserver = (*PipelineMetrics)(nil)
