package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// batch pipeline.
type Metrics struct {
	PipelineRunning prometheus.Gauge

	// Fetch metrics.
	PagesFetched    *prometheus.CounterVec   // labels: collection
	RequestDuration *prometheus.HistogramVec // labels: collection
	RowsFetched     *prometheus.CounterVec   // labels: collection

	// Transform metrics.
	RowsJoined    prometheus.Counter
	RowsDropped   *prometheus.CounterVec // labels: rule
	StageDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.PipelineRunning,
		m.PagesFetched,
		m.RequestDuration,
		m.RowsFetched,
		m.RowsJoined,
		m.RowsDropped,
		m.StageDuration,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "water_etl",
			Name:      "pipeline_running",
			Help:      "1 while the batch run is active, 0 otherwise.",
		}),
		PagesFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "water_etl",
			Name:      "pages_fetched_total",
			Help:      "API pages fetched, per collection.",
		}, []string{"collection"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "water_etl",
			Name:      "request_duration_seconds",
			Help:      "USGS API request duration, per collection.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"collection"}),
		RowsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "water_etl",
			Name:      "rows_fetched_total",
			Help:      "Rows parsed from fetched documents, per collection.",
		}, []string{"collection"}),
		RowsJoined: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "water_etl",
			Name:      "rows_joined_total",
			Help:      "Observations surviving the three lookup joins.",
		}),
		RowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "water_etl",
			Name:      "rows_dropped_total",
			Help:      "Rows removed during cleaning, per rule.",
		}, []string{"rule"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "water_etl",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 120},
		}, []string{"stage"}),
	}
}
