package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the certificate module.
// Tracks ingestion outcomes by status and the upload-to-persist duration.
type Metrics struct {
	Ingested           *prometheus.CounterVec
	IngestionRejected  prometheus.Counter
	ExtractionFailures prometheus.Counter
	SubmitDuration     prometheus.Histogram
}

// New creates a new Metrics instance with all certificate module metrics registered.
func New() *Metrics {
	return &Metrics{
		Ingested: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "certverify_certificates_ingested_total",
			Help: "Total number of certificates persisted, by verification status",
		}, []string{"status"}),
		IngestionRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certverify_ingestions_rejected_total",
			Help: "Total number of uploads rejected before persistence",
		}),
		ExtractionFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certverify_extraction_failures_total",
			Help: "Total number of extraction service failures",
		}),
		SubmitDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "certverify_submit_duration_seconds",
			Help:    "Duration of Submit operations (upload through persistence)",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
}

// IncrementIngested records a persisted certificate with its final status.
func (m *Metrics) IncrementIngested(status string) {
	m.Ingested.WithLabelValues(status).Inc()
}

// IncrementRejected records an upload refused before reaching the store.
func (m *Metrics) IncrementRejected() {
	m.IngestionRejected.Inc()
}

// IncrementExtractionFailure records an extraction service failure.
func (m *Metrics) IncrementExtractionFailure() {
	m.ExtractionFailures.Inc()
}

// ObserveSubmit records the duration of a Submit operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveSubmit(start time.Time) {
	m.SubmitDuration.Observe(time.Since(start).Seconds())
}
