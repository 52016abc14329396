package ports

import (
	"context"
	"time"

	"github.com/nulzo/model-catalog/pkg/schema"
)

// ProviderStore is the persistence contract for the provider collection.
type ProviderStore interface {
	// LoadAll returns every stored provider in order. A corrupt backing store
	// yields an error wrapping domain.ErrStoreUnreadable.
	LoadAll(ctx context.Context) ([]schema.Provider, error)
	// ReplaceAll atomically swaps the whole collection. Readers observe either
	// the old or the new set, never a mix.
	ReplaceAll(ctx context.Context, providers []schema.Provider) error

	CreateProvider(ctx context.Context, p schema.Provider) error
	UpdateProvider(ctx context.Context, p schema.Provider) error
	DeleteProvider(ctx context.Context, id string) error

	CreateModel(ctx context.Context, providerID string, m schema.Model) error
	UpdateModel(ctx context.Context, providerID string, m schema.Model) error
	DeleteModel(ctx context.Context, providerID, modelID string) error

	Close() error
}

// DocumentSource supplies raw import bytes. Returning (nil, nil) means the user
// dismissed the picker without choosing anything.
type DocumentSource interface {
	Open(ctx context.Context) ([]byte, error)
}

// DocumentSink receives serialized export bytes. It returns false with a nil
// error when the user cancelled the destination choice.
type DocumentSink interface {
	Write(ctx context.Context, data []byte) (bool, error)
}

// IDGenerator allocates provider ids for newly created providers.
type IDGenerator interface {
	NewID(name string) string
}

// CacheService defines the interface for a distributed cache system
type CacheService interface {
	// Get retrieves a value from the cache.
	// The implementation should unmarshal the data into the 'dest' pointer.
	Get(ctx context.Context, key string, dest interface{}) error

	// Set stores a value in the cache with a TTL.
	// The implementation should marshal the value.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete removes a value from the cache.
	Delete(ctx context.Context, key string) error
}
