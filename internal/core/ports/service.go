package ports

import (
	"context"

	"github.com/nulzo/model-catalog/internal/core/domain"
	"github.com/nulzo/model-catalog/pkg/schema"
)

// CatalogService defines the CRUD operations driven by the admin surfaces.
type CatalogService interface {
	CatalogReader

	Reload(ctx context.Context) error
	// Publish swaps the snapshot to providers, which were already persisted.
	Publish(providers []schema.Provider)
	// Exclusive runs fn with every other mutation held off. fn calls publish
	// with the collection it persisted.
	Exclusive(ctx context.Context, fn func(publish func([]schema.Provider)) error) error

	CreateProvider(ctx context.Context, p schema.Provider) (*schema.Provider, error)
	UpdateProvider(ctx context.Context, id string, patch domain.ProviderPatch) (*schema.Provider, error)
	DeleteProvider(ctx context.Context, id string) error
	UpdateCredentials(ctx context.Context, id string, keys []string) error

	AddModel(ctx context.Context, providerID string, m schema.Model) (*schema.Model, error)
	UpdateModel(ctx context.Context, providerID, modelID string, patch domain.ModelPatch) (*schema.Model, error)
	DeleteModel(ctx context.Context, providerID, modelID string) error

	Select(id string) error
	ClearSelection()

	ClearAll(ctx context.Context) error
}
