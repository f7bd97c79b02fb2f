package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "bousai_map"

// Metrics holds the Prometheus counters, histograms, and gauges for the dataset pipeline.
type Metrics struct {
	RowsRead        prometheus.Counter
	FeaturesBuilt   prometheus.Counter
	RecordsSkipped  *prometheus.CounterVec // labels: reason={invalid_latitude,invalid_longitude,zero_coordinate}
	SourceErrors    *prometheus.CounterVec // labels: kind={not_found,parse,other}
	BuildDuration   prometheus.Histogram
	LastBuildSize   prometheus.Gauge
	DistrictsListed prometheus.Gauge

	// HTTP metrics.
	HTTPRequests *prometheus.CounterVec // labels: route, status

	// Export metrics.
	FeaturesPublished prometheus.Counter
	PublishErrors     prometheus.Counter
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}
	return &Metrics{
		RowsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_read_total",
			Help:      help("Total data rows read from the source workbook."),
		}),
		FeaturesBuilt: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "features_built_total",
			Help:      help("Total GeoJSON features emitted."),
		}),
		RecordsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_skipped_total",
			Help:      help("Rows excluded by the coordinate gate, by reason."),
		}, []string{"reason"}),
		SourceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_errors_total",
			Help:      help("Fatal source failures by kind."),
		}, []string{"kind"}),
		BuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      help("Duration of a complete load and build cycle."),
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		LastBuildSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_build_features",
			Help:      help("Feature count of the most recent successful build."),
		}),
		DistrictsListed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_build_districts",
			Help:      help("District count of the most recent successful build."),
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      help("HTTP requests by route template and status code."),
		}, []string{"route", "status"}),
		FeaturesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "features_published_total",
			Help:      help("Total features written to the Kafka topic."),
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      help("Total failed Kafka publish attempts."),
		}),
	}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)

	prometheus.MustRegister(
		m.RowsRead,
		m.FeaturesBuilt,
		m.RecordsSkipped,
		m.SourceErrors,
		m.BuildDuration,
		m.LastBuildSize,
		m.DistrictsListed,
		m.HTTPRequests,
		m.FeaturesPublished,
		m.PublishErrors,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}
