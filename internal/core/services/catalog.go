package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/nulzo/model-catalog/internal/core/domain"
	"github.com/nulzo/model-catalog/internal/core/ports"
	"github.com/nulzo/model-catalog/internal/store"
	"github.com/nulzo/model-catalog/internal/telemetry"
	"github.com/nulzo/model-catalog/pkg/schema"
	"go.uber.org/zap"
)

// UUIDGenerator derives provider ids from the display name plus a short random
// suffix, e.g. "my-proxy-3f2a9c1d".
type UUIDGenerator struct{}

func (UUIDGenerator) NewID(name string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	if base := domain.Slugify(name); base != "" {
		return base + "-" + suffix
	}
	return "provider-" + suffix
}

// ModelEntry is a model listed together with the provider serving it.
type ModelEntry struct {
	ProviderID   string       `json:"providerId"`
	ProviderName string       `json:"providerName"`
	Model        schema.Model `json:"model"`
}

// snapshot is an immutable view of the catalog. It is never modified after
// being published.
type snapshot struct {
	providers []schema.Provider
	selected  string
}

func (s *snapshot) index(id string) int { return indexOf(s.providers, id) }

// CatalogService keeps the published catalog in memory and routes every
// mutation through the store first.
type CatalogService struct {
	logger  *zap.Logger
	store   ports.ProviderStore
	ids     ports.IDGenerator
	metrics *telemetry.Metrics

	mu      sync.Mutex // serializes mutations
	current atomic.Pointer[snapshot]
}

func NewCatalogService(logger *zap.Logger, providerStore ports.ProviderStore, ids ports.IDGenerator, metrics *telemetry.Metrics) *CatalogService {
	if ids == nil {
		ids = UUIDGenerator{}
	}
	s := &CatalogService{
		logger:  logger,
		store:   providerStore,
		ids:     ids,
		metrics: metrics,
	}
	s.current.Store(&snapshot{providers: []schema.Provider{}})
	return s
}

// Reload replaces the snapshot with the stored collection.
func (s *CatalogService) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	providers, err := s.store.LoadAll(ctx)
	if err != nil {
		return err
	}
	s.publish(schema.CloneProviders(providers), s.current.Load().selected)
	return nil
}

// Exclusive runs fn while no other mutation can touch the store or the
// snapshot. fn persists a whole collection itself and hands it to publish once
// the write succeeded.
func (s *CatalogService) Exclusive(ctx context.Context, fn func(publish func([]schema.Provider)) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return fn(func(providers []schema.Provider) {
		s.publish(schema.CloneProviders(providers), s.current.Load().selected)
	})
}

// Publish swaps in providers. A selection pointing at a provider that no
// longer exists is cleared.
func (s *CatalogService) Publish(providers []schema.Provider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publish(schema.CloneProviders(providers), s.current.Load().selected)
}

// publish must be called with mu held. providers is owned by the snapshot from
// here on.
func (s *CatalogService) publish(providers []schema.Provider, selected string) {
	if providers == nil {
		providers = []schema.Provider{}
	}
	next := &snapshot{providers: providers, selected: selected}
	if selected != "" && next.index(selected) < 0 {
		s.logger.Info("Selected provider is gone, clearing selection", zap.String("provider_id", selected))
		next.selected = ""
	}
	s.current.Store(next)

	models := 0
	for _, p := range providers {
		models += len(p.Models)
	}
	s.metrics.SetCatalogSize(len(providers), models)
}

func (s *CatalogService) Providers() []schema.Provider {
	out := schema.CloneProviders(s.current.Load().providers)
	if out == nil {
		out = []schema.Provider{}
	}
	return out
}

func (s *CatalogService) Provider(id string) (*schema.Provider, error) {
	snap := s.current.Load()
	i := snap.index(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrProviderNotFound, id)
	}
	p := snap.providers[i].Clone()
	return &p, nil
}

// Selected returns a copy of the selected provider, or nil when nothing is selected.
func (s *CatalogService) Selected() *schema.Provider {
	snap := s.current.Load()
	if snap.selected == "" {
		return nil
	}
	i := snap.index(snap.selected)
	if i < 0 {
		return nil
	}
	p := snap.providers[i].Clone()
	return &p
}

// SearchModels lists models whose id or name contains query, case-insensitively.
// An empty query lists every model.
func (s *CatalogService) SearchModels(query string) []ModelEntry {
	query = strings.ToLower(strings.TrimSpace(query))
	snap := s.current.Load()

	results := []ModelEntry{}
	for _, p := range snap.providers {
		for _, m := range p.Models {
			if query == "" ||
				strings.Contains(strings.ToLower(m.ID), query) ||
				strings.Contains(strings.ToLower(m.Name), query) {
				results = append(results, ModelEntry{ProviderID: p.ID, ProviderName: p.Name, Model: m.Clone()})
			}
		}
	}
	return results
}

func (s *CatalogService) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.current.Load()
	if snap.index(id) < 0 {
		return fmt.Errorf("%w: %s", domain.ErrProviderNotFound, id)
	}
	s.current.Store(&snapshot{providers: snap.providers, selected: id})
	return nil
}

func (s *CatalogService) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.current.Load()
	s.current.Store(&snapshot{providers: snap.providers})
}

// CreateProvider validates p, assigns an id when none was given and stores it
// as a custom provider.
func (s *CatalogService) CreateProvider(ctx context.Context, p schema.Provider) (*schema.Provider, error) {
	if err := domain.ValidateProvider(&p); err != nil {
		return nil, err
	}

	p = p.Clone()
	if strings.TrimSpace(p.ID) == "" {
		p.ID = s.ids.NewID(p.Name)
	}
	if p.Models == nil {
		p.Models = []schema.Model{}
	}
	p.IsCustom = true

	seen := make(map[string]bool, len(p.Models))
	for i := range p.Models {
		if err := domain.ValidateModel(&p.Models[i]); err != nil {
			return nil, err
		}
		if seen[p.Models[i].ID] {
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateModel, p.Models[i].ID)
		}
		seen[p.Models[i].ID] = true
	}

	if err := s.mutate(ctx, persist(store.InsertProvider(p), func() error {
		return s.store.CreateProvider(ctx, p)
	})); err != nil {
		return nil, err
	}

	s.logger.Info("Provider created", zap.String("provider_id", p.ID), zap.String("name", p.Name))
	out := p.Clone()
	return &out, nil
}

// UpdateProvider applies patch to the stored provider. The id, the models and
// the custom flag are kept.
func (s *CatalogService) UpdateProvider(ctx context.Context, id string, patch domain.ProviderPatch) (*schema.Provider, error) {
	var updated schema.Provider
	err := s.mutate(ctx, func(providers []schema.Provider) ([]schema.Provider, func() error, error) {
		i := indexOf(providers, id)
		if i < 0 {
			return nil, nil, fmt.Errorf("%w: %s", domain.ErrProviderNotFound, id)
		}

		updated = patch.Apply(providers[i])
		if err := domain.ValidateProvider(&updated); err != nil {
			return nil, nil, err
		}

		next, err := store.ReplaceProvider(updated)(providers)
		return next, func() error { return s.store.UpdateProvider(ctx, updated) }, err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Provider updated", zap.String("provider_id", id))
	out := updated.Clone()
	return &out, nil
}

func (s *CatalogService) DeleteProvider(ctx context.Context, id string) error {
	if err := s.mutate(ctx, persist(store.RemoveProvider(id), func() error {
		return s.store.DeleteProvider(ctx, id)
	})); err != nil {
		return err
	}

	s.logger.Info("Provider deleted", zap.String("provider_id", id))
	return nil
}

// UpdateCredentials replaces the provider's api keys. A nil list clears them.
func (s *CatalogService) UpdateCredentials(ctx context.Context, id string, keys []string) error {
	if keys == nil {
		keys = []string{}
	}
	_, err := s.UpdateProvider(ctx, id, domain.ProviderPatch{APIKeys: &keys})
	return err
}

func (s *CatalogService) AddModel(ctx context.Context, providerID string, m schema.Model) (*schema.Model, error) {
	if err := domain.ValidateModel(&m); err != nil {
		return nil, err
	}
	m = m.Clone()

	if err := s.mutate(ctx, persist(store.InsertModel(providerID, m), func() error {
		return s.store.CreateModel(ctx, providerID, m)
	})); err != nil {
		return nil, err
	}

	s.logger.Info("Model added", zap.String("provider_id", providerID), zap.String("model_id", m.ID))
	out := m.Clone()
	return &out, nil
}

func (s *CatalogService) UpdateModel(ctx context.Context, providerID, modelID string, patch domain.ModelPatch) (*schema.Model, error) {
	var updated schema.Model
	err := s.mutate(ctx, func(providers []schema.Provider) ([]schema.Provider, func() error, error) {
		pi := indexOf(providers, providerID)
		if pi < 0 {
			return nil, nil, fmt.Errorf("%w: %s", domain.ErrProviderNotFound, providerID)
		}

		var current *schema.Model
		for i := range providers[pi].Models {
			if providers[pi].Models[i].ID == modelID {
				current = &providers[pi].Models[i]
				break
			}
		}
		if current == nil {
			return nil, nil, fmt.Errorf("%w: %s", domain.ErrModelNotFound, modelID)
		}

		updated = patch.Apply(*current)
		updated.ID = modelID
		if err := domain.ValidateModel(&updated); err != nil {
			return nil, nil, err
		}

		next, err := store.ReplaceModel(providerID, updated)(providers)
		return next, func() error { return s.store.UpdateModel(ctx, providerID, updated) }, err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Model updated", zap.String("provider_id", providerID), zap.String("model_id", modelID))
	out := updated.Clone()
	return &out, nil
}

func (s *CatalogService) DeleteModel(ctx context.Context, providerID, modelID string) error {
	if err := s.mutate(ctx, persist(store.RemoveModel(providerID, modelID), func() error {
		return s.store.DeleteModel(ctx, providerID, modelID)
	})); err != nil {
		return err
	}

	s.logger.Info("Model deleted", zap.String("provider_id", providerID), zap.String("model_id", modelID))
	return nil
}

// ClearAll removes every provider from the store and the snapshot.
func (s *CatalogService) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.ReplaceAll(ctx, []schema.Provider{}); err != nil {
		return domain.Persistence("clear catalog", err)
	}
	s.publish([]schema.Provider{}, "")

	s.logger.Warn("Catalog cleared")
	return nil
}

// change edits a private copy of the collection and returns the store write
// that persists the edit.
type change func(providers []schema.Provider) ([]schema.Provider, func() error, error)

// persist pairs a collection edit with the store write that matches it.
func persist(edit store.Edit, write func() error) change {
	return func(providers []schema.Provider) ([]schema.Provider, func() error, error) {
		next, err := edit(providers)
		return next, write, err
	}
}

// mutate runs c against the snapshot while holding mu, persists through the
// returned write and then publishes the edited snapshot. Nothing is published
// when either step fails.
func (s *CatalogService) mutate(ctx context.Context, c change) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.current.Load()
	next, write, err := c(schema.CloneProviders(snap.providers))
	if err != nil {
		return err
	}

	if err := write(); err != nil {
		return err
	}

	s.publish(next, snap.selected)
	return nil
}

func indexOf(providers []schema.Provider, id string) int {
	for i := range providers {
		if providers[i].ID == id {
			return i
		}
	}
	return -1
}
