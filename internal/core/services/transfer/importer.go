// Package transfer runs catalog backups in both directions: importing a
// document into the store and serializing the current catalog.
package transfer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nulzo/model-catalog/internal/core/domain"
	"github.com/nulzo/model-catalog/internal/core/ports"
	"github.com/nulzo/model-catalog/internal/core/services/docschema"
	"github.com/nulzo/model-catalog/internal/core/services/reconcile"
	tracing "github.com/nulzo/model-catalog/internal/platform/otel"
	"github.com/nulzo/model-catalog/internal/store/secrets"
	"github.com/nulzo/model-catalog/internal/telemetry"
	"github.com/nulzo/model-catalog/pkg/schema"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Publisher serializes an import with the catalog's own mutations and receives
// the collection once it has been persisted.
type Publisher interface {
	Exclusive(ctx context.Context, fn func(publish func([]schema.Provider)) error) error
}

// unpublished is used when no catalog is attached.
type unpublished struct{}

func (unpublished) Exclusive(_ context.Context, fn func(publish func([]schema.Provider)) error) error {
	return fn(func([]schema.Provider) {})
}

// Importer validates a backup document, reconciles it with the stored catalog
// and persists the result in a single atomic write.
type Importer struct {
	logger    *zap.Logger
	store     ports.ProviderStore
	publisher Publisher
	metrics   *telemetry.Metrics
}

// NewImporter creates an importer. publisher and metrics may be nil.
func NewImporter(logger *zap.Logger, store ports.ProviderStore, publisher Publisher, metrics *telemetry.Metrics) *Importer {
	if publisher == nil {
		publisher = unpublished{}
	}
	return &Importer{
		logger:    logger,
		store:     store,
		publisher: publisher,
		metrics:   metrics,
	}
}

// Import reads a plain JSON document from source and applies it with mode.
// Every outcome, including failures, is reported through the returned result.
func (i *Importer) Import(ctx context.Context, source ports.DocumentSource, mode schema.ImportMode) schema.ImportResult {
	return i.run(ctx, source, mode, nil)
}

// ImportEncrypted is Import for a backup written with a passphrase.
func (i *Importer) ImportEncrypted(ctx context.Context, source ports.DocumentSource, mode schema.ImportMode, passphrase string) schema.ImportResult {
	return i.run(ctx, source, mode, func(data []byte) ([]byte, error) {
		return secrets.Decrypt(data, passphrase)
	})
}

func (i *Importer) run(ctx context.Context, source ports.DocumentSource, mode schema.ImportMode, decrypt func([]byte) ([]byte, error)) schema.ImportResult {
	ctx, span := tracing.Tracer().Start(ctx, "catalog.import", trace.WithAttributes(
		attribute.String("import.mode", string(mode)),
		attribute.Bool("import.encrypted", decrypt != nil),
	))
	defer span.End()

	result, counts := i.execute(ctx, source, mode, decrypt)

	outcome := telemetry.OutcomeSuccess
	switch {
	case domain.IsCancelled(result):
		outcome = telemetry.OutcomeCancelled
		i.logger.Info("Import cancelled")
	case !result.Success:
		outcome = telemetry.OutcomeFailure
		span.SetStatus(codes.Error, result.Message)
		i.logger.Warn("Import failed", zap.String("mode", string(mode)), zap.String("reason", result.Message))
	default:
		span.SetAttributes(
			attribute.Int("import.providers", result.Imported.Providers),
			attribute.Int("import.models", result.Imported.Models),
			attribute.Int("import.warnings", len(result.Warnings)),
		)
		i.logger.Info("Import complete",
			zap.String("mode", string(mode)),
			zap.Int("providers_added", counts.ProvidersAdded),
			zap.Int("providers_updated", counts.ProvidersUpdated),
			zap.Int("models", result.Imported.Models),
			zap.Int("warnings", len(result.Warnings)),
		)
	}

	i.metrics.RecordImport(telemetry.ImportLabels{
		Mode:             string(mode),
		Outcome:          outcome,
		Warnings:         len(result.Warnings),
		ProvidersAdded:   counts.ProvidersAdded,
		ProvidersUpdated: counts.ProvidersUpdated,
		ModelsAdded:      counts.ModelsAdded,
		ModelsUpdated:    counts.ModelsUpdated,
	})

	return result
}

func (i *Importer) execute(ctx context.Context, source ports.DocumentSource, mode schema.ImportMode, decrypt func([]byte) ([]byte, error)) (schema.ImportResult, reconcile.Counts) {
	var none reconcile.Counts

	// 1. Read the document
	raw, err := source.Open(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrImportCancelled) || errors.Is(err, context.Canceled) {
			return domain.CancelledImport(), none
		}
		return failure("Failed to read import file: " + err.Error()), none
	}
	if raw == nil {
		return domain.CancelledImport(), none
	}

	if decrypt != nil {
		raw, err = decrypt(raw)
		if err != nil {
			return failure("Failed to decrypt import file: " + err.Error()), none
		}
	}

	// 2. Parse and validate the shape
	doc, warnings, res, ok := i.parse(ctx, raw)
	if !ok {
		return res, none
	}

	if !mode.Valid() {
		return failure("Invalid import mode: " + string(mode)), none
	}

	// 3. Reconcile against what is stored and persist in one atomic swap.
	// Catalog edits wait until the new collection is published.
	var (
		outcome reconcile.Outcome
		failed  *schema.ImportResult
	)
	err = i.publisher.Exclusive(ctx, func(publish func([]schema.Provider)) error {
		existing, err := i.store.LoadAll(ctx)
		if err != nil {
			if mode == schema.ImportModeMerge {
				res := failure("Failed to load existing data: " + err.Error())
				res.Err = domain.Persistence("load providers", err)
				failed = &res
				return nil
			}
			i.logger.Warn("Existing data unreadable, replacing it", zap.Error(err))
			warnings = append(warnings, "existing data could not be loaded: "+err.Error())
			existing = nil
		}

		_, rspan := tracing.Tracer().Start(ctx, "catalog.import.reconcile")
		outcome = reconcile.Providers(existing, doc.Providers, mode)
		rspan.SetAttributes(attribute.Int("reconcile.warnings", len(outcome.Warnings)))
		rspan.End()

		warnings = append(warnings, outcome.Warnings...)

		pctx, pspan := tracing.Tracer().Start(ctx, "catalog.import.persist")
		defer pspan.End()
		if err := i.store.ReplaceAll(pctx, outcome.Providers); err != nil {
			pspan.RecordError(err)
			pspan.SetStatus(codes.Error, err.Error())
			res := failure("Failed to save imported data: " + err.Error())
			res.Warnings = warnings
			res.Err = domain.Persistence("replace providers", err)
			failed = &res
			return nil
		}

		publish(outcome.Providers)
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return domain.CancelledImport(), none
		}
		return failure("Failed to apply import: " + err.Error()), none
	}
	if failed != nil {
		return *failed, none
	}

	c := outcome.Counts
	return schema.ImportResult{
		Success: true,
		Message: fmt.Sprintf("Imported %d providers (%d added, %d updated) and %d models",
			c.Providers(), c.ProvidersAdded, c.ProvidersUpdated, c.Models()),
		Warnings: warnings,
		Imported: schema.ImportCounts{
			Providers: c.Providers(),
			Models:    c.Models(),
		},
	}, c
}

// parse decodes raw twice: generically for the shape check, then into the
// typed document. The returned result is only meaningful when ok is false.
func (i *Importer) parse(ctx context.Context, raw []byte) (schema.Document, []string, schema.ImportResult, bool) {
	_, span := tracing.Tracer().Start(ctx, "catalog.import.validate")
	defer span.End()

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return schema.Document{}, nil, failure("Failed to parse import file: " + err.Error()), false
	}

	check := docschema.Validate(generic)
	if !check.Valid {
		span.SetStatus(codes.Error, "invalid document")
		res := failure(strings.Join(check.Errors, "; "))
		res.Warnings = check.Warnings
		return schema.Document{}, nil, res, false
	}

	// metadata is informational and may be malformed, so it is not decoded
	var doc struct {
		Version   string            `json:"version"`
		Providers []schema.Provider `json:"providers"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return schema.Document{}, nil, failure("Failed to parse import file: " + err.Error()), false
	}

	warnings := make([]string, 0, len(check.Warnings))
	warnings = append(warnings, check.Warnings...)
	return schema.Document{Version: doc.Version, Providers: doc.Providers}, warnings, schema.ImportResult{}, true
}

func failure(msg string) schema.ImportResult {
	return schema.ImportResult{Success: false, Message: msg, Warnings: []string{}}
}
