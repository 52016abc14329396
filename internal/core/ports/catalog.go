package ports

import "github.com/nulzo/model-catalog/pkg/schema"

// CatalogReader is the read side of the in-memory catalog snapshot.
type CatalogReader interface {
	// Providers returns a deep copy of the current collection.
	Providers() []schema.Provider

	// Provider returns a single provider by id.
	Provider(id string) (*schema.Provider, error)

	// Selected returns the selected provider projection, or nil.
	Selected() *schema.Provider
}
