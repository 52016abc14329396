package discovery

import (
	"strings"

	"github.com/nulzo/model-catalog/internal/core/domain"
	"github.com/nulzo/model-catalog/pkg/schema"
)

// Defaults applied to discovered models. Listings carry no pricing or context
// data, so these need manual tuning afterwards.
const (
	DefaultCurrency = "USD"
	DefaultMaxInput = 128000
)

// ToModel converts a listing entry into an enabled catalog model.
func ToModel(fetched schema.FetchedModel) schema.Model {
	name := strings.TrimSpace(fetched.DisplayName)
	if name == "" {
		name = domain.FormatModelName(fetched.ID)
	}

	return schema.Model{
		ID:         fetched.ID,
		Name:       name,
		Enabled:    true,
		Pricing:    schema.Pricing{Currency: DefaultCurrency},
		Context:    schema.Context{MaxInput: DefaultMaxInput},
		Modalities: []string{"text"},
	}
}

// NewModels returns the fetched entries not yet present in existing, converted
// with ToModel. Existing models are never touched so manual edits survive.
func NewModels(existing []schema.Model, fetched []schema.FetchedModel) []schema.Model {
	known := make(map[string]bool, len(existing)+len(fetched))
	for _, m := range existing {
		known[m.ID] = true
	}

	out := []schema.Model{}
	for _, f := range fetched {
		id := strings.TrimSpace(f.ID)
		if id == "" || known[id] {
			continue
		}
		known[id] = true
		f.ID = id
		out = append(out, ToModel(f))
	}
	return out
}
