package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the catalog service.
type Metrics struct {
	ImportTotal       *prometheus.CounterVec
	ImportedEntities  *prometheus.CounterVec
	ImportWarnings    prometheus.Counter
	ExportTotal       *prometheus.CounterVec
	StoreOpDurationMs *prometheus.HistogramVec
	CatalogProviders  prometheus.Gauge
	CatalogModels     prometheus.Gauge
	HTTPRequestTotal  *prometheus.CounterVec
}

// NewMetrics creates all metrics and registers them with reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ImportTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_import_total",
			Help: "Import attempts by mode and outcome.",
		}, []string{"mode", "outcome"}),

		ImportedEntities: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_imported_entities_total",
			Help: "Providers and models written by successful imports.",
		}, []string{"kind", "change"}),

		ImportWarnings: factory.NewCounter(prometheus.CounterOpts{
			Name: "catalog_import_warnings_total",
			Help: "Warnings reported by imports.",
		}),

		ExportTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_export_total",
			Help: "Export attempts by outcome.",
		}, []string{"outcome"}),

		StoreOpDurationMs: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "catalog_store_op_duration_ms",
			Help:    "Duration of store operations in milliseconds.",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 1000},
		}, []string{"driver", "op"}),

		CatalogProviders: factory.NewGauge(prometheus.GaugeOpts{
			Name: "catalog_providers",
			Help: "Providers in the published catalog snapshot.",
		}),

		CatalogModels: factory.NewGauge(prometheus.GaugeOpts{
			Name: "catalog_models",
			Help: "Models in the published catalog snapshot.",
		}),

		HTTPRequestTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_http_requests_total",
			Help: "Admin API requests by route and status.",
		}, []string{"method", "route", "status"}),
	}
}

// Outcome labels.
const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeCancelled = "cancelled"
)

// RecordImport records the result of one import attempt. A nil receiver is a no-op.
func (m *Metrics) RecordImport(labels ImportLabels) {
	if m == nil {
		return
	}
	m.ImportTotal.WithLabelValues(labels.Mode, labels.Outcome).Inc()

	if labels.Warnings > 0 {
		m.ImportWarnings.Add(float64(labels.Warnings))
	}
	if labels.Outcome != OutcomeSuccess {
		return
	}

	m.ImportedEntities.WithLabelValues("provider", "added").Add(float64(labels.ProvidersAdded))
	m.ImportedEntities.WithLabelValues("provider", "updated").Add(float64(labels.ProvidersUpdated))
	m.ImportedEntities.WithLabelValues("model", "added").Add(float64(labels.ModelsAdded))
	m.ImportedEntities.WithLabelValues("model", "updated").Add(float64(labels.ModelsUpdated))
}

// RecordExport records the result of one export attempt.
func (m *Metrics) RecordExport(outcome string) {
	if m == nil {
		return
	}
	m.ExportTotal.WithLabelValues(outcome).Inc()
}

// ObserveStoreOp records how long a store operation took.
func (m *Metrics) ObserveStoreOp(driver, op string, ms float64) {
	if m == nil {
		return
	}
	m.StoreOpDurationMs.WithLabelValues(driver, op).Observe(ms)
}

// SetCatalogSize publishes the size of the current snapshot.
func (m *Metrics) SetCatalogSize(providers, models int) {
	if m == nil {
		return
	}
	m.CatalogProviders.Set(float64(providers))
	m.CatalogModels.Set(float64(models))
}

// RecordHTTPRequest counts one admin API request.
func (m *Metrics) RecordHTTPRequest(method, route, status string) {
	if m == nil {
		return
	}
	m.HTTPRequestTotal.WithLabelValues(method, route, status).Inc()
}

// ImportLabels holds the values recorded for one import.
type ImportLabels struct {
	Mode             string
	Outcome          string
	Warnings         int
	ProvidersAdded   int
	ProvidersUpdated int
	ModelsAdded      int
	ModelsUpdated    int
}
