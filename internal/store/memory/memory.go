// Package memory is a ProviderStore kept entirely in process memory.
package memory

import (
	"context"
	"sync"

	"github.com/nulzo/model-catalog/internal/store"
	"github.com/nulzo/model-catalog/pkg/schema"
)

type Store struct {
	mu        sync.RWMutex
	providers []schema.Provider
}

// New returns a store holding a copy of initial.
func New(initial ...schema.Provider) *Store {
	return &Store{providers: schema.CloneProviders(initial)}
}

func (s *Store) LoadAll(ctx context.Context) ([]schema.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := schema.CloneProviders(s.providers)
	if out == nil {
		out = []schema.Provider{}
	}
	return out, nil
}

func (s *Store) ReplaceAll(ctx context.Context, providers []schema.Provider) error {
	next := schema.CloneProviders(providers)

	s.mu.Lock()
	s.providers = next
	s.mu.Unlock()
	return nil
}

func (s *Store) CreateProvider(ctx context.Context, p schema.Provider) error {
	return s.apply(store.InsertProvider(p))
}

func (s *Store) UpdateProvider(ctx context.Context, p schema.Provider) error {
	return s.apply(store.ReplaceProvider(p))
}

func (s *Store) DeleteProvider(ctx context.Context, id string) error {
	return s.apply(store.RemoveProvider(id))
}

func (s *Store) CreateModel(ctx context.Context, providerID string, m schema.Model) error {
	return s.apply(store.InsertModel(providerID, m))
}

func (s *Store) UpdateModel(ctx context.Context, providerID string, m schema.Model) error {
	return s.apply(store.ReplaceModel(providerID, m))
}

func (s *Store) DeleteModel(ctx context.Context, providerID, modelID string) error {
	return s.apply(store.RemoveModel(providerID, modelID))
}

func (s *Store) Close() error { return nil }

func (s *Store) apply(edit store.Edit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := edit(schema.CloneProviders(s.providers))
	if err != nil {
		return err
	}
	s.providers = next
	return nil
}
