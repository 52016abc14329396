package transfer

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nulzo/model-catalog/internal/adapters/source"
	"github.com/nulzo/model-catalog/internal/core/domain"
	"github.com/nulzo/model-catalog/internal/core/ports"
	"github.com/nulzo/model-catalog/internal/core/services"
	"github.com/nulzo/model-catalog/internal/store/file"
	"github.com/nulzo/model-catalog/internal/store/memory"
	"github.com/nulzo/model-catalog/internal/store/sqlite"
	"github.com/nulzo/model-catalog/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func storeFactories() map[string]func(t *testing.T) ports.ProviderStore {
	return map[string]func(t *testing.T) ports.ProviderStore{
		"memory": func(t *testing.T) ports.ProviderStore { return memory.New() },
		"file": func(t *testing.T) ports.ProviderStore {
			st, err := file.New(t.TempDir())
			require.NoError(t, err)
			return st
		},
		"sqlite": func(t *testing.T) ports.ProviderStore {
			st, err := sqlite.Open(filepath.Join(t.TempDir(), "catalog.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = st.Close() })
			return st
		},
	}
}

// buildCatalog edits an empty catalog the way an operator would.
func buildCatalog(t *testing.T, cat *services.CatalogService) {
	t.Helper()
	ctx := context.Background()

	proxy, err := cat.CreateProvider(ctx, schema.Provider{
		Name:      "My Proxy",
		Enabled:   true,
		Endpoints: schema.Endpoints{OpenAI: "http://localhost:8080/v1", Anthropic: ptr("http://localhost:8080")},
		Limits:    []schema.Limit{{Type: schema.LimitRequests, Limit: 60, Window: 60}},
		Features:  schema.ProviderFeatures{Streaming: ptr(true)},
	})
	require.NoError(t, err)

	require.NoError(t, cat.UpdateCredentials(ctx, proxy.ID, []string{"sk-b", "sk-a"}))

	_, err = cat.AddModel(ctx, proxy.ID, schema.Model{
		ID:         "llama-3.1-70b",
		Enabled:    true,
		Parameters: ptr("70B"),
		Pricing:    schema.Pricing{Input: 0.5, Output: 0.8, Cached: ptr(0.1), Currency: "USD"},
		Context:    schema.Context{MaxInput: 131072, MaxOutput: ptr(8192)},
		Modalities: []string{"text"},
		Features:   &schema.ModelFeatures{ToolCalling: ptr(true)},
		Limits:     []schema.Limit{{Type: schema.LimitTokens, Limit: 6000, Window: 60}},
	})
	require.NoError(t, err)

	_, err = cat.AddModel(ctx, proxy.ID, schema.Model{
		ID:         "qwen-2.5-coder",
		Context:    schema.Context{MaxInput: 32768},
		Modalities: []string{"text"},
		Limits:     []schema.Limit{},
	})
	require.NoError(t, err)

	price := schema.Pricing{Input: 0.2, Output: 0.2, Currency: "EUR"}
	_, err = cat.UpdateModel(ctx, proxy.ID, "qwen-2.5-coder", domain.ModelPatch{Pricing: &price})
	require.NoError(t, err)

	_, err = cat.CreateProvider(ctx, schema.Provider{Name: "Empty"})
	require.NoError(t, err)
}

func TestRoundTrip_CatalogEdits(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			st := newStore(t)
			cat := services.NewCatalogService(zap.NewNop(), st, nil, nil)
			require.NoError(t, cat.Reload(ctx))
			buildCatalog(t, cat)
			state := cat.Providers()

			var buf source.Buffer
			require.True(t, NewExporter(zap.NewNop(), cat, "", nil).ExportTo(ctx, &buf).Success)

			// into the same catalog
			res := NewImporter(zap.NewNop(), st, cat, nil).Import(ctx, source.Bytes(buf.Bytes()), schema.ImportModeReplace)
			require.True(t, res.Success, res.Message)
			assert.Empty(t, res.Warnings)
			assert.Equal(t, state, cat.Providers())

			// into a fresh store, read back from disk
			other := newStore(t)
			res = NewImporter(zap.NewNop(), other, nil, nil).Import(ctx, source.Bytes(buf.Bytes()), schema.ImportModeReplace)
			require.True(t, res.Success, res.Message)
			assert.Empty(t, res.Warnings)

			restored := services.NewCatalogService(zap.NewNop(), other, nil, nil)
			require.NoError(t, restored.Reload(ctx))
			assert.Equal(t, state, restored.Providers())
		})
	}
}

// gatedStore holds the first ReplaceAll until release is closed.
type gatedStore struct {
	*memory.Store
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) ReplaceAll(ctx context.Context, providers []schema.Provider) error {
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})
	return g.Store.ReplaceAll(ctx, providers)
}

func TestImport_ConcurrentEditIsNotLost(t *testing.T) {
	ctx := context.Background()
	st := &gatedStore{
		Store: memory.New(schema.Provider{
			ID: "openai", Name: "OpenAI",
			Credentials: schema.Credentials{APIKeys: []string{"k1"}},
			Limits:      []schema.Limit{},
			Models:      []schema.Model{},
		}),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	cat := services.NewCatalogService(zap.NewNop(), st, nil, nil)
	require.NoError(t, cat.Reload(ctx))
	imp := NewImporter(zap.NewNop(), st, cat, nil)

	doc := document(t, `[{"id":"openai","name":"OpenAI","credentials":{"apiKeys":["k2"]},
		"models":[{"id":"gpt-4","name":"GPT-4","context":{"maxInput":8192},"modalities":["text"]}]}]`)

	imported := make(chan schema.ImportResult, 1)
	go func() {
		imported <- imp.Import(ctx, doc, schema.ImportModeMerge)
	}()
	<-st.entered

	edited := make(chan error, 1)
	go func() {
		_, err := cat.AddModel(ctx, "openai", schema.Model{ID: "gpt-4o", Context: schema.Context{MaxInput: 128000}, Modalities: []string{"text"}})
		edited <- err
	}()

	select {
	case err := <-edited:
		t.Fatalf("edit finished while the import was persisting: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	close(st.release)

	res := <-imported
	require.True(t, res.Success, res.Message)
	require.NoError(t, <-edited)

	stored, err := st.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Len(t, stored[0].Models, 2)
	assert.Equal(t, "gpt-4", stored[0].Models[0].ID)
	assert.Equal(t, "gpt-4o", stored[0].Models[1].ID)
	assert.Equal(t, []string{"k1", "k2"}, stored[0].Credentials.APIKeys)
	assert.Equal(t, stored, cat.Providers())
}
