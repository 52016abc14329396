package store

import (
	"context"
	"time"

	"github.com/nulzo/model-catalog/internal/core/ports"
	"github.com/nulzo/model-catalog/internal/telemetry"
	"github.com/nulzo/model-catalog/pkg/schema"
)

// Instrumented records the duration of every store call.
type Instrumented struct {
	next    ports.ProviderStore
	driver  string
	metrics *telemetry.Metrics
}

// Instrument wraps next. A nil metrics returns next unchanged.
func Instrument(next ports.ProviderStore, driver string, metrics *telemetry.Metrics) ports.ProviderStore {
	if metrics == nil {
		return next
	}
	return &Instrumented{next: next, driver: driver, metrics: metrics}
}

func (s *Instrumented) observe(op string, start time.Time) {
	s.metrics.ObserveStoreOp(s.driver, op, float64(time.Since(start).Microseconds())/1000)
}

func (s *Instrumented) LoadAll(ctx context.Context) ([]schema.Provider, error) {
	defer s.observe("load_all", time.Now())
	return s.next.LoadAll(ctx)
}

func (s *Instrumented) ReplaceAll(ctx context.Context, providers []schema.Provider) error {
	defer s.observe("replace_all", time.Now())
	return s.next.ReplaceAll(ctx, providers)
}

func (s *Instrumented) CreateProvider(ctx context.Context, p schema.Provider) error {
	defer s.observe("create_provider", time.Now())
	return s.next.CreateProvider(ctx, p)
}

func (s *Instrumented) UpdateProvider(ctx context.Context, p schema.Provider) error {
	defer s.observe("update_provider", time.Now())
	return s.next.UpdateProvider(ctx, p)
}

func (s *Instrumented) DeleteProvider(ctx context.Context, id string) error {
	defer s.observe("delete_provider", time.Now())
	return s.next.DeleteProvider(ctx, id)
}

func (s *Instrumented) CreateModel(ctx context.Context, providerID string, m schema.Model) error {
	defer s.observe("create_model", time.Now())
	return s.next.CreateModel(ctx, providerID, m)
}

func (s *Instrumented) UpdateModel(ctx context.Context, providerID string, m schema.Model) error {
	defer s.observe("update_model", time.Now())
	return s.next.UpdateModel(ctx, providerID, m)
}

func (s *Instrumented) DeleteModel(ctx context.Context, providerID, modelID string) error {
	defer s.observe("delete_model", time.Now())
	return s.next.DeleteModel(ctx, providerID, modelID)
}

func (s *Instrumented) Close() error {
	return s.next.Close()
}
