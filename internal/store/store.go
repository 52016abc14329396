// Package store holds the collection edits shared by every ProviderStore
// backend and the decorators layered on top of them.
package store

import (
	"fmt"

	"github.com/nulzo/model-catalog/internal/core/domain"
	"github.com/nulzo/model-catalog/pkg/schema"
)

// Driver names accepted in configuration.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Edit transforms a private copy of the collection. Backends that keep the
// whole collection in one document apply an Edit and write the result back.
type Edit func(providers []schema.Provider) ([]schema.Provider, error)

// InsertProvider appends p. The id must be unused.
func InsertProvider(p schema.Provider) Edit {
	return func(providers []schema.Provider) ([]schema.Provider, error) {
		if indexOf(providers, p.ID) >= 0 {
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateID, p.ID)
		}
		return append(providers, p.Clone()), nil
	}
}

// ReplaceProvider swaps the stored provider with the same id for p.
func ReplaceProvider(p schema.Provider) Edit {
	return func(providers []schema.Provider) ([]schema.Provider, error) {
		i := indexOf(providers, p.ID)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", domain.ErrProviderNotFound, p.ID)
		}
		providers[i] = p.Clone()
		return providers, nil
	}
}

// RemoveProvider deletes the provider with id.
func RemoveProvider(id string) Edit {
	return func(providers []schema.Provider) ([]schema.Provider, error) {
		i := indexOf(providers, id)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", domain.ErrProviderNotFound, id)
		}
		return append(providers[:i], providers[i+1:]...), nil
	}
}

// InsertModel appends m to the provider's models. The model id must be unused
// within that provider.
func InsertModel(providerID string, m schema.Model) Edit {
	return func(providers []schema.Provider) ([]schema.Provider, error) {
		i := indexOf(providers, providerID)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", domain.ErrProviderNotFound, providerID)
		}
		if modelIndex(providers[i].Models, m.ID) >= 0 {
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateModel, m.ID)
		}
		providers[i].Models = append(providers[i].Models, m.Clone())
		return providers, nil
	}
}

// ReplaceModel swaps the stored model with the same id for m.
func ReplaceModel(providerID string, m schema.Model) Edit {
	return func(providers []schema.Provider) ([]schema.Provider, error) {
		i := indexOf(providers, providerID)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", domain.ErrProviderNotFound, providerID)
		}
		j := modelIndex(providers[i].Models, m.ID)
		if j < 0 {
			return nil, fmt.Errorf("%w: %s", domain.ErrModelNotFound, m.ID)
		}
		providers[i].Models[j] = m.Clone()
		return providers, nil
	}
}

// RemoveModel deletes a model from a provider.
func RemoveModel(providerID, modelID string) Edit {
	return func(providers []schema.Provider) ([]schema.Provider, error) {
		i := indexOf(providers, providerID)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", domain.ErrProviderNotFound, providerID)
		}
		models := providers[i].Models
		j := modelIndex(models, modelID)
		if j < 0 {
			return nil, fmt.Errorf("%w: %s", domain.ErrModelNotFound, modelID)
		}
		providers[i].Models = append(models[:j], models[j+1:]...)
		return providers, nil
	}
}

func indexOf(providers []schema.Provider, id string) int {
	for i := range providers {
		if providers[i].ID == id {
			return i
		}
	}
	return -1
}

func modelIndex(models []schema.Model, id string) int {
	for i := range models {
		if models[i].ID == id {
			return i
		}
	}
	return -1
}
