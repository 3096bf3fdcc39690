package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rezonia/tax-ledger/internal/model"
)

const (
	ReasonArchive    = "archive"
	ReasonExtraction = "extraction"
	ReasonParse      = "parse"
	ReasonLimit      = "limit"
	ReasonTimeout    = "timeout"
	ReasonUnknown    = "unknown"
)

// Metrics holds the ledger engine's Prometheus collectors. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	registry      *prometheus.Registry
	documents     prometheus.Counter
	failures      *prometheus.CounterVec
	rows          *prometheus.CounterVec
	warnings      prometheus.Counter
	batchDuration prometheus.Histogram
}

// New creates the collectors on a dedicated registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		documents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taxledger_documents_processed_total",
			Help: "Documents parsed into ledger rows.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taxledger_documents_failed_total",
			Help: "Documents skipped, by reason.",
		}, []string{"reason"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taxledger_rows_total",
			Help: "Ledger rows emitted, by fiscal type.",
		}, []string{"fiscal_type"}),
		warnings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taxledger_coercion_warnings_total",
			Help: "Malformed or missing fields defaulted while parsing.",
		}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "taxledger_batch_duration_seconds",
			Help:    "Wall-clock time of a processing batch.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
	}
	reg.MustRegister(m.documents, m.failures, m.rows, m.warnings, m.batchDuration)
	return m
}

// Registry exposes the underlying registry for handlers and tests
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) DocumentProcessed() {
	if m == nil {
		return
	}
	m.documents.Inc()
}

func (m *Metrics) DocumentFailed(reason string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(reason).Inc()
}

func (m *Metrics) RowsEmitted(fiscalType string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.rows.WithLabelValues(fiscalType).Add(float64(n))
}

func (m *Metrics) CoercionWarnings(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.warnings.Add(float64(n))
}

func (m *Metrics) ObserveBatch(d time.Duration) {
	if m == nil {
		return
	}
	m.batchDuration.Observe(d.Seconds())
}

// ClassifyFailure maps a per-document error to a reason label
func ClassifyFailure(err error) string {
	var extractionErr *model.ExtractionError
	var parseErr *model.ParseError
	switch {
	case err == nil:
		return ReasonUnknown
	case errors.Is(err, model.ErrBatchLimit):
		return ReasonLimit
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ReasonTimeout
	case errors.As(err, &extractionErr):
		return ReasonExtraction
	case errors.As(err, &parseErr):
		return ReasonParse
	default:
		return ReasonUnknown
	}
}
