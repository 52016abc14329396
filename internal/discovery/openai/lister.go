package openai

import (
	"context"
	"strings"

	"github.com/nulzo/model-catalog/internal/core/ports"
	"github.com/nulzo/model-catalog/internal/discovery"
	"github.com/nulzo/model-catalog/internal/httpclient"
	"github.com/nulzo/model-catalog/pkg/schema"
)

func init() {
	discovery.Register("openai", NewLister)
}

// Lister reads GET {baseURL}/models from an OpenAI compatible API.
type Lister struct {
	client httpclient.HTTPClient
}

func NewLister(client httpclient.HTTPClient) ports.ModelLister {
	return &Lister{client: client}
}

func (l *Lister) Type() string {
	return "openai"
}

func (l *Lister) ListModels(ctx context.Context, baseURL, apiKey string) ([]schema.FetchedModel, error) {
	url := strings.TrimSuffix(baseURL, "/") + "/models"

	headers := map[string]string{}
	if apiKey != "" {
		headers["Authorization"] = "Bearer " + apiKey
	}

	body, err := httpclient.Get(ctx, l.client, url, headers)
	if err != nil {
		return nil, err
	}
	return discovery.ParseModelList(body, true)
}
