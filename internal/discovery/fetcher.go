package discovery

import (
	"context"
	"errors"

	"github.com/nulzo/model-catalog/internal/httpclient"
	"github.com/nulzo/model-catalog/pkg/schema"
	"go.uber.org/zap"
)

// ErrNoModels is returned when neither endpoint produced a model listing.
var ErrNoModels = errors.New("could not fetch models. This may be due to invalid credentials, or the endpoint not supporting model listing")

type attempt struct {
	lister string
	url    string
}

// Fetcher tries the OpenAI style endpoint first and falls back to the
// Anthropic style one.
type Fetcher struct {
	logger *zap.Logger
	client httpclient.HTTPClient
}

func NewFetcher(logger *zap.Logger, client httpclient.HTTPClient) *Fetcher {
	if client == nil {
		client = httpclient.New()
	}
	return &Fetcher{logger: logger, client: client}
}

// Fetch lists the models reachable through endpoints with apiKey.
func (f *Fetcher) Fetch(ctx context.Context, endpoints schema.Endpoints, apiKey string) ([]schema.FetchedModel, error) {
	attempts := []attempt{{lister: "openai", url: endpoints.OpenAI}}
	if endpoints.Anthropic != nil {
		attempts = append(attempts, attempt{lister: "anthropic", url: *endpoints.Anthropic})
	}

	for _, a := range attempts {
		if a.url == "" {
			continue
		}

		factory, err := Get(a.lister)
		if err != nil {
			f.logger.Warn("Model lister unavailable", zap.String("type", a.lister), zap.Error(err))
			continue
		}

		models, err := factory(f.client).ListModels(ctx, a.url, apiKey)
		if err == nil && len(models) > 0 {
			f.logger.Debug("Fetched models", zap.String("type", a.lister), zap.String("url", a.url), zap.Int("count", len(models)))
			return models, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		f.logger.Debug("Model listing failed", zap.String("type", a.lister), zap.String("url", a.url), zap.Error(err))
	}

	return nil, ErrNoModels
}
