package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "outage_alert"

// Metrics holds the Prometheus counters, histograms, and gauges for the notifier.
type Metrics struct {
	PipelineRunning prometheus.Gauge

	// Snapshot ingestion.
	SnapshotsLoaded *prometheus.CounterVec // labels: utility
	SnapshotErrors  *prometheus.CounterVec // labels: utility
	RecordsFiltered *prometheus.CounterVec // labels: utility

	// Reconciliation.
	ReconcileRuns     *prometheus.CounterVec   // labels: utility, outcome={success,insufficient_history,error}
	ReconcileDuration *prometheus.HistogramVec // labels: utility
	EventsEmitted     *prometheus.CounterVec   // labels: utility, kind={new,escalated,resolved}

	// Delivery.
	Deliveries *prometheus.CounterVec // labels: sink, outcome={success,error}

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeAPIDuration prometheus.Histogram
	GeocodeEnabled     prometheus.Gauge
}

// NewMetrics creates and registers all notifier metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while the notifier is serving, 0 when shut down.",
		}),
		SnapshotsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_loaded_total",
			Help:      "Snapshot files parsed, by utility.",
		}, []string{"utility"}),
		SnapshotErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_errors_total",
			Help:      "Snapshot files skipped because they could not be read or parsed.",
		}, []string{"utility"}),
		RecordsFiltered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_filtered_total",
			Help:      "Outage records dropped by the geographic filter.",
		}, []string{"utility"}),
		ReconcileRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_runs_total",
			Help:      "Reconciliation runs by utility and outcome.",
		}, []string{"utility", "outcome"}),
		ReconcileDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconcile_duration_seconds",
			Help:      "Duration of a complete load-reconcile-deliver cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"utility"}),
		EventsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_emitted_total",
			Help:      "Lifecycle events produced by reconciliation.",
		}, []string{"utility", "kind"}),
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Event deliveries by sink and outcome.",
		}, []string{"sink", "outcome"}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Reverse geocoding API requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Reverse geocoding API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocode_enabled",
			Help:      "1 when reverse geocoding is enabled, 0 otherwise.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.PipelineRunning,
		m.SnapshotsLoaded,
		m.SnapshotErrors,
		m.RecordsFiltered,
		m.ReconcileRuns,
		m.ReconcileDuration,
		m.EventsEmitted,
		m.Deliveries,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.GeocodeEnabled,
	}
}
