// Package discovery asks provider APIs which models they serve and turns the
// answers into catalog models.
package discovery

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/nulzo/model-catalog/internal/core/ports"
	"github.com/nulzo/model-catalog/internal/httpclient"
	"github.com/nulzo/model-catalog/pkg/schema"
)

// Factory builds a lister around a shared HTTP client.
type Factory func(client httpclient.HTTPClient) ports.ModelLister

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// Register makes a lister available under listerType. It panics when the type
// is registered twice.
func Register(listerType string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := factories[listerType]; exists {
		panic(fmt.Sprintf("model lister %s already registered", listerType))
	}
	factories[listerType] = f
}

func Get(listerType string) (Factory, error) {
	mu.RLock()
	defer mu.RUnlock()
	f, ok := factories[listerType]
	if !ok {
		return nil, fmt.Errorf("model lister not found for type: %s", listerType)
	}
	return f, nil
}

// ErrEmptyListing is returned when a response parsed but named no models.
var ErrEmptyListing = errors.New("no models found in response")

// ParseModelList reads the {"data": [...]} or {"models": [...]} listing shapes,
// data taking priority. With allowArray a bare JSON array is accepted too.
func ParseModelList(body []byte, allowArray bool) ([]schema.FetchedModel, error) {
	var wrapped struct {
		Data   []schema.FetchedModel `json:"data"`
		Models []schema.FetchedModel `json:"models"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil {
		if len(wrapped.Data) > 0 {
			return wrapped.Data, nil
		}
		if len(wrapped.Models) > 0 {
			return wrapped.Models, nil
		}
		return nil, ErrEmptyListing
	} else if !allowArray {
		return nil, fmt.Errorf("failed to decode model list: %w", err)
	}

	var direct []schema.FetchedModel
	if err := json.Unmarshal(body, &direct); err != nil {
		return nil, fmt.Errorf("failed to decode model list: %w", err)
	}
	if len(direct) == 0 {
		return nil, ErrEmptyListing
	}
	return direct, nil
}
