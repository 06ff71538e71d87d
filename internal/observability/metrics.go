package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "survey_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the survey pipeline.
type Metrics struct {
	RowsRead        prometheus.Counter
	SurveysProduced prometheus.Counter
	TransformErrors prometheus.Counter
	RowsFiltered    prometheus.Counter
	PipelineRunning prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// NOAA metrics.
	NOAARequests       *prometheus.CounterVec   // labels: endpoint={station,offsets,water_data}, outcome={success,error,status}
	NOAAAPIDuration    *prometheus.HistogramVec // labels: endpoint
	StationCache       *prometheus.CounterVec   // labels: kind={station,correction}, result={hit,miss}
	UnknownCorrections prometheus.Counter
	WaterLevelSource   *prometheus.CounterVec // labels: source={one_minute_water_level,water_level,missing,error}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		RowsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_read_total",
			Help:      "Total rows read from the survey export.",
		}),
		SurveysProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "surveys_produced_total",
			Help:      "Total surveys written to the outputs.",
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transform_errors_total",
			Help:      "Total rows that could not be turned into surveys.",
		}),
		RowsFiltered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_filtered_total",
			Help:      "Total rows skipped because they predate the start date.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when finished.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of rows per batch read from the export.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-transform-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		NOAARequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "noaa_requests_total",
			Help:      "NOAA CO-OPS API requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		NOAAAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "noaa_api_duration_seconds",
			Help:      "NOAA CO-OPS API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"endpoint"}),
		StationCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "station_cache_total",
			Help:      "Station registry lookups by kind and result.",
		}, []string{"kind", "result"}),
		UnknownCorrections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unknown_corrections_total",
			Help:      "Tidal corrections that could not be resolved.",
		}),
		WaterLevelSource: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "water_level_resolutions_total",
			Help:      "Water level resolutions by product used.",
		}, []string{"source"}),
	}

	prometheus.MustRegister(
		m.RowsRead,
		m.SurveysProduced,
		m.TransformErrors,
		m.RowsFiltered,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.NOAARequests,
		m.NOAAAPIDuration,
		m.StationCache,
		m.UnknownCorrections,
		m.WaterLevelSource,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		RowsRead:                prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "rows_read_total"}),
		SurveysProduced:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "surveys_produced_total"}),
		TransformErrors:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "transform_errors_total"}),
		RowsFiltered:            prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "rows_filtered_total"}),
		PipelineRunning:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "pipeline_running"}),
		BatchSize:               prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "batch_size"}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "batch_processing_duration_seconds"}),
		NOAARequests:            prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "noaa_requests_total"}, []string{"endpoint", "outcome"}),
		NOAAAPIDuration:         prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: "noaa_api_duration_seconds"}, []string{"endpoint"}),
		StationCache:            prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "station_cache_total"}, []string{"kind", "result"}),
		UnknownCorrections:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "unknown_corrections_total"}),
		WaterLevelSource:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "water_level_resolutions_total"}, []string{"source"}),
	}
}
