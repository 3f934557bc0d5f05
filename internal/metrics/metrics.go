// Package metrics exposes Prometheus instruments for the extraction
// pipeline. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline instruments and the registry they live in.
type Metrics struct {
	registry *prometheus.Registry

	recognitionsTotal   *prometheus.CounterVec
	recognitionDuration *prometheus.HistogramVec
	fieldsExtracted     *prometheus.CounterVec
	discrepanciesTotal  *prometheus.CounterVec
	correctionsTotal    *prometheus.CounterVec
	staleResultsTotal   prometheus.Counter
	activeSessions      prometheus.Gauge
}

// New registers all instruments on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		recognitionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "idverify_recognitions_total",
				Help: "OCR recognition attempts by backend and outcome",
			},
			[]string{"backend", "outcome"},
		),
		recognitionDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "idverify_recognition_duration_seconds",
				Help:    "OCR recognition latency",
				Buckets: []float64{.25, .5, 1, 2, 4, 8, 16, 32},
			},
			[]string{"backend"},
		),
		fieldsExtracted: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "idverify_fields_extracted_total",
				Help: "Fields found by the extractors",
			},
			[]string{"field"},
		),
		discrepanciesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "idverify_discrepancies_total",
				Help: "Extracted fields that disagreed with the reference record",
			},
			[]string{"field"},
		),
		correctionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "idverify_corrections_total",
				Help: "Correction prompts answered, by field and action",
			},
			[]string{"field", "action"},
		),
		staleResultsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "idverify_stale_results_total",
			Help: "Recognition results discarded because a newer request superseded them",
		}),
		activeSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "idverify_active_sessions",
			Help: "Open verification sessions",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveRecognition(backend string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.recognitionsTotal.WithLabelValues(backend, outcome).Inc()
	m.recognitionDuration.WithLabelValues(backend).Observe(d.Seconds())
}

func (m *Metrics) FieldExtracted(field string) {
	if m == nil {
		return
	}
	m.fieldsExtracted.WithLabelValues(field).Inc()
}

func (m *Metrics) Discrepancy(field string) {
	if m == nil {
		return
	}
	m.discrepanciesTotal.WithLabelValues(field).Inc()
}

func (m *Metrics) Correction(field, action string) {
	if m == nil {
		return
	}
	m.correctionsTotal.WithLabelValues(field, action).Inc()
}

func (m *Metrics) StaleResult() {
	if m == nil {
		return
	}
	m.staleResultsTotal.Inc()
}

func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}
