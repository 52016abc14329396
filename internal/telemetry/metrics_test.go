package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordImport(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordImport(ImportLabels{
		Mode:             "merge",
		Outcome:          OutcomeSuccess,
		Warnings:         2,
		ProvidersAdded:   1,
		ProvidersUpdated: 3,
		ModelsAdded:      4,
	})
	m.RecordImport(ImportLabels{Mode: "merge", Outcome: OutcomeFailure, ProvidersAdded: 10})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ImportTotal.WithLabelValues("merge", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ImportTotal.WithLabelValues("merge", OutcomeFailure)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ImportWarnings))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ImportedEntities.WithLabelValues("provider", "added")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ImportedEntities.WithLabelValues("provider", "updated")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.ImportedEntities.WithLabelValues("model", "added")))
}

func TestSetCatalogSize(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.SetCatalogSize(3, 12)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.CatalogProviders))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.CatalogModels))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordImport(ImportLabels{Outcome: OutcomeSuccess})
		m.RecordExport(OutcomeSuccess)
		m.ObserveStoreOp("file", "load_all", 1)
		m.SetCatalogSize(1, 1)
		m.RecordHTTPRequest("GET", "/health", "200")
	})
}

func TestNewMetricsRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg)

	assert.Panics(t, func() { NewMetrics(reg) })
}
