package ports

import (
	"context"

	"github.com/nulzo/model-catalog/pkg/schema"
)

// ModelLister lists the models a remote provider API advertises.
type ModelLister interface {
	Type() string // e.g., "openai", "anthropic"
	ListModels(ctx context.Context, baseURL, apiKey string) ([]schema.FetchedModel, error)
}
