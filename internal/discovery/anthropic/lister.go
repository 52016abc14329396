package anthropic

import (
	"context"
	"strings"

	"github.com/nulzo/model-catalog/internal/core/ports"
	"github.com/nulzo/model-catalog/internal/discovery"
	"github.com/nulzo/model-catalog/internal/httpclient"
	"github.com/nulzo/model-catalog/pkg/schema"
)

const apiVersion = "2023-06-01"

func init() {
	discovery.Register("anthropic", NewLister)
}

// Lister reads GET {baseURL}/models from the Anthropic API.
type Lister struct {
	client httpclient.HTTPClient
}

func NewLister(client httpclient.HTTPClient) ports.ModelLister {
	return &Lister{client: client}
}

func (l *Lister) Type() string {
	return "anthropic"
}

func (l *Lister) ListModels(ctx context.Context, baseURL, apiKey string) ([]schema.FetchedModel, error) {
	url := strings.TrimSuffix(baseURL, "/") + "/models"

	headers := map[string]string{
		"x-api-key":         apiKey,
		"anthropic-version": apiVersion,
	}

	body, err := httpclient.Get(ctx, l.client, url, headers)
	if err != nil {
		return nil, err
	}
	return discovery.ParseModelList(body, false)
}
