package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Stage label values for the per-stage row metrics.
const (
	StageLoad   = "load"
	StageClean  = "clean"
	StageFilter = "filter"
	StageDerive = "derive"
)

// Metrics holds the Prometheus collectors for the license ETL.
type Metrics struct {
	FeaturesFetched prometheus.Counter
	FeedErrors      prometheus.Counter
	FeedDuration    prometheus.Histogram
	PipelineRunning prometheus.Gauge
	PipelineRuns    *prometheus.CounterVec // labels: outcome={success,error}

	// Row accounting per stage.
	RowsRetained       *prometheus.GaugeVec   // labels: stage
	RowsDropped        *prometheus.CounterVec // labels: stage
	EndorsementColumns prometheus.Gauge
	WardsLoaded        prometheus.Gauge
	PipelineDuration   prometheus.Histogram

	// Dashboard rendering.
	PlotRenders *prometheus.CounterVec // labels: plot={wards,licenses}
	PlotCache   *prometheus.CounterVec // labels: result={hit,miss}

	RecordsPublished prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FeaturesFetched,
		m.FeedErrors,
		m.FeedDuration,
		m.PipelineRunning,
		m.PipelineRuns,
		m.RowsRetained,
		m.RowsDropped,
		m.EndorsementColumns,
		m.WardsLoaded,
		m.PipelineDuration,
		m.PlotRenders,
		m.PlotCache,
		m.RecordsPublished,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, so tests can
// build as many as they need without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FeaturesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "liquor_etl",
			Name:      "features_fetched_total",
			Help:      "Total features read from the license feed.",
		}),
		FeedErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "liquor_etl",
			Name:      "feed_errors_total",
			Help:      "Total failed feed fetches.",
		}),
		FeedDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "liquor_etl",
			Name:      "feed_fetch_duration_seconds",
			Help:      "Duration of the license feed request.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "liquor_etl",
			Name:      "pipeline_running",
			Help:      "1 while a pipeline run is in progress.",
		}),
		PipelineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "liquor_etl",
			Name:      "pipeline_runs_total",
			Help:      "Pipeline runs by outcome.",
		}, []string{"outcome"}),
		RowsRetained: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "liquor_etl",
			Name:      "rows_retained",
			Help:      "Rows remaining after each stage of the last run.",
		}, []string{"stage"}),
		RowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "liquor_etl",
			Name:      "rows_dropped_total",
			Help:      "Rows removed by each stage.",
		}, []string{"stage"}),
		EndorsementColumns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "liquor_etl",
			Name:      "endorsement_columns",
			Help:      "Distinct endorsement flag columns in the last run.",
		}),
		WardsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "liquor_etl",
			Name:      "wards_loaded",
			Help:      "Ward polygons prepared in the last run.",
		}),
		PipelineDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "liquor_etl",
			Name:      "pipeline_duration_seconds",
			Help:      "Duration of a complete pipeline run.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		PlotRenders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "liquor_etl",
			Name:      "plot_renders_total",
			Help:      "Rendered plots by kind.",
		}, []string{"plot"}),
		PlotCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "liquor_etl",
			Name:      "plot_cache_total",
			Help:      "Plot cache lookups by result.",
		}, []string{"result"}),
		RecordsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "liquor_etl",
			Name:      "records_published_total",
			Help:      "License records written to the Kafka sink.",
		}),
	}
}
