package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nulzo/model-catalog/internal/core/domain"
	"github.com/nulzo/model-catalog/internal/store/memory"
	"github.com/nulzo/model-catalog/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixedIDs string

func (f fixedIDs) NewID(name string) string { return domain.Slugify(name) + "-" + string(f) }

// failingStore accepts reads and rejects every write.
type failingStore struct {
	*memory.Store
}

var errDiskFull = errors.New("disk full")

func (failingStore) CreateProvider(context.Context, schema.Provider) error { return errDiskFull }
func (failingStore) UpdateProvider(context.Context, schema.Provider) error { return errDiskFull }
func (failingStore) ReplaceAll(context.Context, []schema.Provider) error   { return errDiskFull }

func seeded() []schema.Provider {
	return []schema.Provider{
		{
			ID:          "openai",
			Name:        "OpenAI",
			Enabled:     true,
			Credentials: schema.Credentials{APIKeys: []string{"k1"}},
			Limits:      []schema.Limit{},
			Models: []schema.Model{
				{ID: "gpt-4", Name: "GPT 4", Context: schema.Context{MaxInput: 8192}, Modalities: []string{"text"}},
				{ID: "gpt-4o-mini", Name: "GPT 4o Mini", Context: schema.Context{MaxInput: 128000}, Modalities: []string{"text"}},
			},
		},
		{
			ID:          "anthropic",
			Name:        "Anthropic",
			Credentials: schema.Credentials{APIKeys: []string{}},
			Limits:      []schema.Limit{},
			Models: []schema.Model{
				{ID: "claude-3-opus", Name: "Claude 3 Opus", Context: schema.Context{MaxInput: 200000}, Modalities: []string{"text", "image"}},
			},
		},
	}
}

func newTestCatalog(t *testing.T) (*CatalogService, *memory.Store) {
	t.Helper()
	st := memory.New(seeded()...)
	svc := NewCatalogService(zap.NewNop(), st, fixedIDs("abc123"), nil)
	require.NoError(t, svc.Reload(context.Background()))
	return svc, st
}

func TestCatalog_ReadsReturnCopies(t *testing.T) {
	svc, _ := newTestCatalog(t)

	all := svc.Providers()
	require.Len(t, all, 2)
	all[0].Name = "mutated"
	all[0].Models[0].ID = "mutated"

	p, err := svc.Provider("openai")
	require.NoError(t, err)
	assert.Equal(t, "OpenAI", p.Name)
	assert.Equal(t, "gpt-4", p.Models[0].ID)

	_, err = svc.Provider("missing")
	assert.ErrorIs(t, err, domain.ErrProviderNotFound)
}

func TestCatalog_CreateProvider(t *testing.T) {
	svc, st := newTestCatalog(t)
	ctx := context.Background()

	created, err := svc.CreateProvider(ctx, schema.Provider{Name: "  My Proxy ", Endpoints: schema.Endpoints{OpenAI: "http://localhost:8080/v1"}})
	require.NoError(t, err)

	assert.Equal(t, "my-proxy-abc123", created.ID)
	assert.Equal(t, "My Proxy", created.Name)
	assert.True(t, created.IsCustom)
	assert.NotNil(t, created.Credentials.APIKeys)
	assert.NotNil(t, created.Models)
	assert.NotNil(t, created.Limits)

	stored, err := st.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 3)
	assert.Equal(t, *created, stored[2])
	assert.Len(t, svc.Providers(), 3)
}

func TestCatalog_CreateProviderValidation(t *testing.T) {
	svc, _ := newTestCatalog(t)

	_, err := svc.CreateProvider(context.Background(), schema.Provider{Name: "", Endpoints: schema.Endpoints{OpenAI: "ftp://x"}})
	require.Error(t, err)

	var verrs domain.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	fields := verrs.Fields()
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "endpoints.openai")
	assert.Len(t, svc.Providers(), 2)
}

func TestCatalog_UpdateProviderKeepsModels(t *testing.T) {
	svc, _ := newTestCatalog(t)
	ctx := context.Background()

	name := "OpenAI Platform"
	disabled := false
	updated, err := svc.UpdateProvider(ctx, "openai", domain.ProviderPatch{Name: &name, Enabled: &disabled})
	require.NoError(t, err)

	assert.Equal(t, "OpenAI Platform", updated.Name)
	assert.False(t, updated.Enabled)
	assert.Len(t, updated.Models, 2)
	assert.Equal(t, []string{"k1"}, updated.Credentials.APIKeys)

	_, err = svc.UpdateProvider(ctx, "nope", domain.ProviderPatch{Name: &name})
	assert.ErrorIs(t, err, domain.ErrProviderNotFound)
}

func TestCatalog_UpdateCredentials(t *testing.T) {
	svc, st := newTestCatalog(t)
	ctx := context.Background()

	require.NoError(t, svc.UpdateCredentials(ctx, "anthropic", []string{"a1", "a2"}))
	p, err := svc.Provider("anthropic")
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2"}, p.Credentials.APIKeys)

	require.NoError(t, svc.UpdateCredentials(ctx, "anthropic", nil))
	stored, err := st.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{}, stored[1].Credentials.APIKeys)
}

func TestCatalog_ModelLifecycle(t *testing.T) {
	svc, st := newTestCatalog(t)
	ctx := context.Background()

	added, err := svc.AddModel(ctx, "anthropic", schema.Model{
		ID:         "claude-3-5-sonnet",
		Context:    schema.Context{MaxInput: 200000},
		Modalities: []string{"text"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Claude 3 5 Sonnet", added.Name, "name is derived from the id")

	_, err = svc.AddModel(ctx, "anthropic", *added)
	assert.ErrorIs(t, err, domain.ErrDuplicateModel)

	_, err = svc.AddModel(ctx, "anthropic", schema.Model{ID: "bad", Context: schema.Context{MaxInput: 0}, Modalities: []string{"text"}})
	var verrs domain.ValidationErrors
	assert.ErrorAs(t, err, &verrs)

	price := schema.Pricing{Input: 3, Output: 15, Currency: "USD"}
	updated, err := svc.UpdateModel(ctx, "anthropic", "claude-3-5-sonnet", domain.ModelPatch{Pricing: &price})
	require.NoError(t, err)
	assert.Equal(t, 3.0, updated.Pricing.Input)
	assert.Equal(t, 200000, updated.Context.MaxInput)

	_, err = svc.UpdateModel(ctx, "anthropic", "ghost", domain.ModelPatch{Pricing: &price})
	assert.ErrorIs(t, err, domain.ErrModelNotFound)

	require.NoError(t, svc.DeleteModel(ctx, "anthropic", "claude-3-opus"))
	assert.ErrorIs(t, svc.DeleteModel(ctx, "anthropic", "claude-3-opus"), domain.ErrModelNotFound)

	stored, err := st.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, stored[1].Models, 1)
	assert.Equal(t, "claude-3-5-sonnet", stored[1].Models[0].ID)
	assert.Equal(t, 15.0, stored[1].Models[0].Pricing.Output)
}

func TestCatalog_Selection(t *testing.T) {
	svc, _ := newTestCatalog(t)
	ctx := context.Background()

	assert.Nil(t, svc.Selected())
	assert.ErrorIs(t, svc.Select("missing"), domain.ErrProviderNotFound)

	require.NoError(t, svc.Select("anthropic"))
	require.NotNil(t, svc.Selected())
	assert.Equal(t, "anthropic", svc.Selected().ID)

	// edits to the selected provider show through the projection
	_, err := svc.AddModel(ctx, "anthropic", schema.Model{ID: "claude-3-haiku", Context: schema.Context{MaxInput: 200000}, Modalities: []string{"text"}})
	require.NoError(t, err)
	assert.Len(t, svc.Selected().Models, 2)

	svc.ClearSelection()
	assert.Nil(t, svc.Selected())

	require.NoError(t, svc.Select("anthropic"))
	require.NoError(t, svc.DeleteProvider(ctx, "anthropic"))
	assert.Nil(t, svc.Selected(), "deleting the selected provider clears the selection")
}

func TestCatalog_PublishDropsStaleSelection(t *testing.T) {
	svc, _ := newTestCatalog(t)

	require.NoError(t, svc.Select("openai"))
	svc.Publish(seeded()[1:])
	assert.Nil(t, svc.Selected())

	require.NoError(t, svc.Select("anthropic"))
	svc.Publish(seeded())
	require.NotNil(t, svc.Selected())
	assert.Equal(t, "anthropic", svc.Selected().ID)
}

func TestCatalog_SearchModels(t *testing.T) {
	svc, _ := newTestCatalog(t)

	assert.Len(t, svc.SearchModels(""), 3)

	hits := svc.SearchModels("MINI")
	require.Len(t, hits, 1)
	assert.Equal(t, "openai", hits[0].ProviderID)
	assert.Equal(t, "gpt-4o-mini", hits[0].Model.ID)

	hits = svc.SearchModels("opus")
	require.Len(t, hits, 1)
	assert.Equal(t, "Anthropic", hits[0].ProviderName)

	assert.Empty(t, svc.SearchModels("llama"))
}

func TestCatalog_ClearAll(t *testing.T) {
	svc, st := newTestCatalog(t)
	ctx := context.Background()
	require.NoError(t, svc.Select("openai"))

	require.NoError(t, svc.ClearAll(ctx))

	assert.Empty(t, svc.Providers())
	assert.Nil(t, svc.Selected())
	stored, err := st.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestCatalog_FailedWritesLeaveSnapshotUntouched(t *testing.T) {
	ctx := context.Background()
	svc := NewCatalogService(zap.NewNop(), failingStore{memory.New(seeded()...)}, fixedIDs("x"), nil)
	require.NoError(t, svc.Reload(ctx))
	before := svc.Providers()

	_, err := svc.CreateProvider(ctx, schema.Provider{Name: "New"})
	assert.ErrorIs(t, err, errDiskFull)

	name := "Renamed"
	_, err = svc.UpdateProvider(ctx, "openai", domain.ProviderPatch{Name: &name})
	assert.ErrorIs(t, err, errDiskFull)

	err = svc.ClearAll(ctx)
	var perr *domain.PersistenceError
	assert.ErrorAs(t, err, &perr)

	assert.Equal(t, before, svc.Providers())
}

func TestCatalog_CancelledContext(t *testing.T) {
	svc, _ := newTestCatalog(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := svc.DeleteProvider(ctx, "openai")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, svc.Providers(), 2)
}

func TestUUIDGenerator(t *testing.T) {
	gen := UUIDGenerator{}

	id := gen.NewID("My Proxy!")
	assert.Regexp(t, `^my-proxy-[0-9a-f]{8}$`, id)
	assert.NotEqual(t, id, gen.NewID("My Proxy!"))
	assert.Regexp(t, `^provider-[0-9a-f]{8}$`, gen.NewID("***"))
}

func TestCatalog_RejectsStatesImportWouldRewrite(t *testing.T) {
	svc, _ := newTestCatalog(t)
	ctx := context.Background()

	var verrs domain.ValidationErrors

	err := svc.UpdateCredentials(ctx, "openai", []string{"k", "k"})
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.Fields(), "credentials.apiKeys")

	_, err = svc.AddModel(ctx, "openai", schema.Model{
		ID:         "gpt-4o",
		Context:    schema.Context{MaxInput: 128000},
		Modalities: []string{"text"},
		Limits:     []schema.Limit{{Type: "bogus", Limit: 1, Window: 1}},
	})
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.Fields(), "limits[0].type")

	limits := []schema.Limit{{Type: schema.LimitRequests, Limit: 0, Window: 60}}
	_, err = svc.UpdateProvider(ctx, "openai", domain.ProviderPatch{Limits: &limits})
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.Fields(), "limits[0].limit")

	_, err = svc.CreateProvider(ctx, schema.Provider{Name: "Twice", Models: []schema.Model{
		{ID: "m", Context: schema.Context{MaxInput: 1}, Modalities: []string{"text"}},
		{ID: "m", Context: schema.Context{MaxInput: 1}, Modalities: []string{"text"}},
	}})
	assert.ErrorIs(t, err, domain.ErrDuplicateModel)

	p, err := svc.Provider("openai")
	require.NoError(t, err)
	assert.Equal(t, seeded()[0], *p)
}

func TestCatalog_EmptyModelLimitsStoredAsNil(t *testing.T) {
	svc, st := newTestCatalog(t)
	ctx := context.Background()

	_, err := svc.AddModel(ctx, "anthropic", schema.Model{ID: "claude-3-haiku", Context: schema.Context{MaxInput: 200000}, Modalities: []string{"text"}, Limits: []schema.Limit{}})
	require.NoError(t, err)

	stored, err := st.LoadAll(ctx)
	require.NoError(t, err)
	assert.Nil(t, stored[1].Models[1].Limits)
}

func TestCatalog_ExclusiveHoldsOffEdits(t *testing.T) {
	svc, st := newTestCatalog(t)
	ctx := context.Background()

	inside := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- svc.Exclusive(ctx, func(publish func([]schema.Provider)) error {
			close(inside)
			<-release
			next := seeded()[:1]
			if err := st.ReplaceAll(ctx, next); err != nil {
				return err
			}
			publish(next)
			return nil
		})
	}()
	<-inside

	deleted := make(chan error, 1)
	go func() { deleted <- svc.DeleteModel(ctx, "openai", "gpt-4") }()

	select {
	case err := <-deleted:
		t.Fatalf("edit ran inside an exclusive section: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	close(release)

	require.NoError(t, <-done)
	require.NoError(t, <-deleted)

	stored, err := st.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Len(t, stored[0].Models, 1)
	assert.Equal(t, "gpt-4o-mini", stored[0].Models[0].ID)
	assert.Equal(t, stored, svc.Providers())
}
