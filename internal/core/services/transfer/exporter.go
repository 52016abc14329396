package transfer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nulzo/model-catalog/internal/core/domain"
	"github.com/nulzo/model-catalog/internal/core/ports"
	tracing "github.com/nulzo/model-catalog/internal/platform/otel"
	"github.com/nulzo/model-catalog/internal/store/secrets"
	"github.com/nulzo/model-catalog/internal/telemetry"
	"github.com/nulzo/model-catalog/pkg/schema"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	DefaultGenerator = "model-catalog"
	description      = "Model catalog export"
)

// DefaultFilename is the suggested backup file name for a given day.
func DefaultFilename(now time.Time) string {
	return "model-catalog-backup-" + now.Format("2006-01-02") + ".json"
}

// Exporter serializes the catalog into a versioned backup document.
type Exporter struct {
	logger    *zap.Logger
	catalog   ports.CatalogReader
	generator string
	now       func() time.Time
	metrics   *telemetry.Metrics
}

// NewExporter creates an exporter reading from catalog. An empty generator
// falls back to DefaultGenerator.
func NewExporter(logger *zap.Logger, catalog ports.CatalogReader, generator string, metrics *telemetry.Metrics) *Exporter {
	if generator == "" {
		generator = DefaultGenerator
	}
	return &Exporter{
		logger:    logger,
		catalog:   catalog,
		generator: generator,
		now:       time.Now,
		metrics:   metrics,
	}
}

// WithClock replaces the time source used for metadata timestamps.
func (e *Exporter) WithClock(now func() time.Time) *Exporter {
	e.now = now
	return e
}

// Export builds the document for providers. The providers are deep copied, so
// later changes to the catalog never leak into a document already produced.
func (e *Exporter) Export(providers []schema.Provider) schema.Document {
	now := e.now().UTC().Format(time.RFC3339)
	desc := description

	out := schema.CloneProviders(providers)
	if out == nil {
		out = []schema.Provider{}
	}

	return schema.Document{
		Version: schema.SchemaVersion,
		Metadata: schema.Metadata{
			CreatedAt:   now,
			ModifiedAt:  now,
			Generator:   e.generator,
			Description: &desc,
		},
		Providers: out,
	}
}

// Marshal exports the current catalog as indented JSON.
func (e *Exporter) Marshal() ([]byte, schema.Document, error) {
	doc := e.Export(e.catalog.Providers())
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, doc, fmt.Errorf("failed to serialize export: %w", err)
	}
	return data, doc, nil
}

// ExportTo writes the current catalog to sink as plain JSON.
func (e *Exporter) ExportTo(ctx context.Context, sink ports.DocumentSink) schema.ExportResult {
	return e.write(ctx, sink, nil)
}

// EncryptTo writes the current catalog to sink sealed with passphrase.
func (e *Exporter) EncryptTo(ctx context.Context, sink ports.DocumentSink, passphrase string) schema.ExportResult {
	return e.write(ctx, sink, func(data []byte) ([]byte, error) {
		return secrets.Encrypt(data, passphrase)
	})
}

func (e *Exporter) write(ctx context.Context, sink ports.DocumentSink, encrypt func([]byte) ([]byte, error)) schema.ExportResult {
	ctx, span := tracing.Tracer().Start(ctx, "catalog.export")
	defer span.End()

	res := e.produce(ctx, sink, encrypt)

	outcome := telemetry.OutcomeSuccess
	switch {
	case res.Message == domain.ExportCancelledMessage:
		outcome = telemetry.OutcomeCancelled
	case !res.Success:
		outcome = telemetry.OutcomeFailure
		span.SetStatus(codes.Error, res.Message)
		e.logger.Error("Export failed", zap.String("reason", res.Message))
	default:
		e.logger.Info("Export complete", zap.String("result", res.Message))
	}
	e.metrics.RecordExport(outcome)

	return res
}

func (e *Exporter) produce(ctx context.Context, sink ports.DocumentSink, encrypt func([]byte) ([]byte, error)) schema.ExportResult {
	data, doc, err := e.Marshal()
	if err != nil {
		return schema.ExportResult{Success: false, Message: err.Error()}
	}

	if encrypt != nil {
		data, err = encrypt(data)
		if err != nil {
			return schema.ExportResult{Success: false, Message: "Failed to encrypt export: " + err.Error()}
		}
	}

	written, err := sink.Write(ctx, data)
	if err != nil {
		return schema.ExportResult{Success: false, Message: "Failed to write export file: " + err.Error()}
	}
	if !written {
		return schema.ExportResult{Success: false, Message: domain.ExportCancelledMessage}
	}

	models := 0
	for _, p := range doc.Providers {
		models += len(p.Models)
	}
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Int("export.providers", len(doc.Providers)),
		attribute.Int("export.models", models),
		attribute.Int("export.bytes", len(data)),
	)

	return schema.ExportResult{
		Success: true,
		Message: fmt.Sprintf("Exported %d providers and %d models", len(doc.Providers), models),
	}
}
