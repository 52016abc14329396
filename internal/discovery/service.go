package discovery

import (
	"context"
	"errors"
	"fmt"

	"github.com/nulzo/model-catalog/internal/core/domain"
	"github.com/nulzo/model-catalog/pkg/schema"
	"go.uber.org/zap"
)

// Catalog is the part of the catalog service discovery needs.
type Catalog interface {
	Provider(id string) (*schema.Provider, error)
	AddModel(ctx context.Context, providerID string, m schema.Model) (*schema.Model, error)
}

// Result describes one discovery run against a provider.
type Result struct {
	ProviderID string                `json:"providerId"`
	Fetched    []schema.FetchedModel `json:"fetched"`
	New        []schema.Model        `json:"new"`
	Added      []string              `json:"added"`
}

// Service lists a provider's remote models and optionally adds the unknown
// ones to the catalog.
type Service struct {
	logger  *zap.Logger
	fetcher *Fetcher
	catalog Catalog
}

func NewService(logger *zap.Logger, fetcher *Fetcher, catalog Catalog) *Service {
	return &Service{logger: logger, fetcher: fetcher, catalog: catalog}
}

// Discover fetches the remote listing of providerID. With apply set, models the
// catalog does not know yet are added to it.
func (s *Service) Discover(ctx context.Context, providerID string, apply bool) (*Result, error) {
	p, err := s.catalog.Provider(providerID)
	if err != nil {
		return nil, err
	}

	apiKey := ""
	if len(p.Credentials.APIKeys) > 0 {
		apiKey = p.Credentials.APIKeys[0]
	}

	fetched, err := s.fetcher.Fetch(ctx, p.Endpoints, apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch models for %s: %w", providerID, err)
	}

	res := &Result{
		ProviderID: providerID,
		Fetched:    fetched,
		New:        NewModels(p.Models, fetched),
		Added:      []string{},
	}
	if !apply {
		return res, nil
	}

	for _, m := range res.New {
		if _, err := s.catalog.AddModel(ctx, providerID, m); err != nil {
			if errors.Is(err, domain.ErrDuplicateModel) {
				continue
			}
			return res, err
		}
		res.Added = append(res.Added, m.ID)
	}

	s.logger.Info("Discovery complete",
		zap.String("provider_id", providerID),
		zap.Int("fetched", len(fetched)),
		zap.Int("added", len(res.Added)),
	)
	return res, nil
}
