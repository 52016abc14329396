// Package cache puts a CacheService in front of a ProviderStore. LoadAll is
// served from the cache; every write goes to the store first and then drops
// the cached snapshot.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/nulzo/model-catalog/internal/core/domain"
	"github.com/nulzo/model-catalog/internal/core/ports"
	"github.com/nulzo/model-catalog/pkg/schema"
	"go.uber.org/zap"
)

// SnapshotKey is the cache key holding the whole collection.
const SnapshotKey = "catalog:providers"

type Store struct {
	next   ports.ProviderStore
	cache  ports.CacheService
	ttl    time.Duration
	logger *zap.Logger
}

func New(next ports.ProviderStore, cache ports.CacheService, ttl time.Duration, logger *zap.Logger) *Store {
	return &Store{next: next, cache: cache, ttl: ttl, logger: logger}
}

func (s *Store) LoadAll(ctx context.Context) ([]schema.Provider, error) {
	var cached []schema.Provider
	err := s.cache.Get(ctx, SnapshotKey, &cached)
	if err == nil {
		if cached == nil {
			cached = []schema.Provider{}
		}
		return cached, nil
	}
	if !errors.Is(err, domain.ErrCacheMiss) {
		s.logger.Warn("Catalog cache read failed", zap.Error(err))
	}

	providers, err := s.next.LoadAll(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, SnapshotKey, providers, s.ttl); err != nil {
		s.logger.Warn("Catalog cache write failed", zap.Error(err))
	}
	return providers, nil
}

func (s *Store) ReplaceAll(ctx context.Context, providers []schema.Provider) error {
	return s.invalidate(ctx, s.next.ReplaceAll(ctx, providers))
}

func (s *Store) CreateProvider(ctx context.Context, p schema.Provider) error {
	return s.invalidate(ctx, s.next.CreateProvider(ctx, p))
}

func (s *Store) UpdateProvider(ctx context.Context, p schema.Provider) error {
	return s.invalidate(ctx, s.next.UpdateProvider(ctx, p))
}

func (s *Store) DeleteProvider(ctx context.Context, id string) error {
	return s.invalidate(ctx, s.next.DeleteProvider(ctx, id))
}

func (s *Store) CreateModel(ctx context.Context, providerID string, m schema.Model) error {
	return s.invalidate(ctx, s.next.CreateModel(ctx, providerID, m))
}

func (s *Store) UpdateModel(ctx context.Context, providerID string, m schema.Model) error {
	return s.invalidate(ctx, s.next.UpdateModel(ctx, providerID, m))
}

func (s *Store) DeleteModel(ctx context.Context, providerID, modelID string) error {
	return s.invalidate(ctx, s.next.DeleteModel(ctx, providerID, modelID))
}

func (s *Store) Close() error {
	return s.next.Close()
}

// Invalidate drops the cached snapshot, e.g. after the backing file changed.
func (s *Store) Invalidate(ctx context.Context) {
	if err := s.cache.Delete(ctx, SnapshotKey); err != nil {
		s.logger.Warn("Catalog cache invalidation failed", zap.Error(err))
	}
}

// invalidate runs after every write attempt, failed ones included.
func (s *Store) invalidate(ctx context.Context, err error) error {
	s.Invalidate(ctx)
	return err
}
