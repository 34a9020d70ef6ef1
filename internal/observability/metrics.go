package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kml2dxf"

// Metrics holds the Prometheus counters, histograms, and gauges for a conversion run.
type Metrics struct {
	gatherer prometheus.Gatherer

	PipelineRunning  prometheus.Gauge
	PointsProcessed  prometheus.Counter
	UnresolvedPoints prometheus.Counter
	RunDuration      prometheus.Histogram

	// Elevation pipeline metrics.
	CacheLookups         *prometheus.CounterVec   // labels: result={hit,miss}
	ClusterRepresentants prometheus.Gauge         // representatives queried in the last run
	ElevationRequests    *prometheus.CounterVec   // labels: outcome={ok,logical_failure,server_error,client_error,transport_error}
	ElevationBatches     *prometheus.CounterVec   // labels: result={resolved,short,failed}
	ElevationRetries     prometheus.Counter
	ElevationAPIDuration *prometheus.HistogramVec // labels: dataset
}

func newMetrics() *Metrics {
	return &Metrics{
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a conversion run is active, 0 otherwise.",
		}),
		PointsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_processed_total",
			Help:      "Total points passed through the elevation pipeline.",
		}),
		UnresolvedPoints: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unresolved_points_total",
			Help:      "Points left without elevation after all retries.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "elevation_run_duration_seconds",
			Help:      "Duration of a complete elevation resolution run.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900},
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "elevation_cache_lookups_total",
			Help:      "Elevation cache lookups by result.",
		}, []string{"result"}),
		ClusterRepresentants: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cluster_representatives",
			Help:      "Coordinates left to query after clustering in the last run.",
		}),
		ElevationRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "elevation_requests_total",
			Help:      "Elevation API requests by outcome, including retries.",
		}, []string{"outcome"}),
		ElevationBatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "elevation_batches_total",
			Help:      "Elevation batches by final result.",
		}, []string{"result"}),
		ElevationRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "elevation_retries_total",
			Help:      "Elevation batch attempts beyond the first.",
		}),
		ElevationAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "elevation_api_duration_seconds",
			Help:      "Elevation API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"dataset"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.PipelineRunning,
		m.PointsProcessed,
		m.UnresolvedPoints,
		m.RunDuration,
		m.CacheLookups,
		m.ClusterRepresentants,
		m.ElevationRequests,
		m.ElevationBatches,
		m.ElevationRetries,
		m.ElevationAPIDuration,
	}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	m.gatherer = prometheus.DefaultGatherer
	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	reg := prometheus.NewRegistry()
	m := newMetrics()
	reg.MustRegister(m.collectors()...)
	m.gatherer = reg
	return m
}

// WriteTextfile writes the current metric values in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.gatherer)
}

// Handler serves the registry these metrics were registered with.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
