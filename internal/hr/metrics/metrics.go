// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hr"

type Metrics struct {
	ImportJobs    *prometheus.CounterVec
	ImportRows    *prometheus.CounterVec
	BatchDuration prometheus.Histogram
	BatchRetries  prometheus.Counter
	QueueDepth    prometheus.Gauge

	RequestCount    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New registers every collector on reg. Pass a fresh prometheus.NewRegistry()
// in tests so collectors do not clash.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		ImportJobs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "import",
				Name:      "jobs_total",
				Help:      "Import jobs finished, by final status",
			},
			[]string{"status"},
		),
		ImportRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "import",
				Name:      "rows_total",
				Help:      "Imported CSV rows, by outcome",
			},
			[]string{"outcome"},
		),
		BatchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "import",
				Name:      "batch_duration_seconds",
				Help:      "Time spent committing one batch, retry included",
				Buckets:   prometheus.DefBuckets,
			},
		),
		BatchRetries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "import",
				Name:      "batch_retries_total",
				Help:      "Batch commits that needed the retry",
			},
		),
		QueueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "import",
				Name:      "queue_depth",
				Help:      "Import jobs waiting for a worker",
			},
		),
		RequestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		gatherer: reg,
	}

	reg.MustRegister(
		m.ImportJobs,
		m.ImportRows,
		m.BatchDuration,
		m.BatchRetries,
		m.QueueDepth,
		m.RequestCount,
		m.RequestDuration,
	)
	return m
}

// JobFinished records the outcome of one import run.
func (m *Metrics) JobFinished(status string, succeeded, failed int) {
	m.ImportJobs.WithLabelValues(status).Inc()
	m.ImportRows.WithLabelValues("succeeded").Add(float64(succeeded))
	m.ImportRows.WithLabelValues("failed").Add(float64(failed))
}

func (m *Metrics) BatchCommitted(d time.Duration) {
	m.BatchDuration.Observe(d.Seconds())
}

func (m *Metrics) BatchRetried() {
	m.BatchRetries.Inc()
}

func (m *Metrics) QueueChanged(depth int) {
	m.QueueDepth.Set(float64(depth))
}

func (m *Metrics) ObserveRequest(method string, status int, d time.Duration) {
	m.RequestCount.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
