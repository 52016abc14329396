package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nulzo/model-catalog/internal/adapters/source"
	"github.com/nulzo/model-catalog/internal/core/domain"
	"github.com/nulzo/model-catalog/internal/store/memory"
	"github.com/nulzo/model-catalog/internal/telemetry"
	"github.com/nulzo/model-catalog/pkg/schema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func ptr[T any](v T) *T { return &v }

type staticCatalog []schema.Provider

func (c staticCatalog) Providers() []schema.Provider { return schema.CloneProviders(c) }

func (c staticCatalog) Provider(id string) (*schema.Provider, error) {
	for _, p := range c {
		if p.ID == id {
			out := p.Clone()
			return &out, nil
		}
	}
	return nil, domain.ErrProviderNotFound
}

func (staticCatalog) Selected() *schema.Provider { return nil }

type recordingPublisher struct {
	calls     int
	published []schema.Provider
}

func (r *recordingPublisher) Exclusive(_ context.Context, fn func(publish func([]schema.Provider)) error) error {
	return fn(func(providers []schema.Provider) {
		r.calls++
		r.published = schema.CloneProviders(providers)
	})
}

// brokenStore fails the operations named in its fields and delegates the rest.
type brokenStore struct {
	*memory.Store
	loadErr  error
	writeErr error
}

func (b brokenStore) LoadAll(ctx context.Context) ([]schema.Provider, error) {
	if b.loadErr != nil {
		return nil, b.loadErr
	}
	return b.Store.LoadAll(ctx)
}

func (b brokenStore) ReplaceAll(ctx context.Context, providers []schema.Provider) error {
	if b.writeErr != nil {
		return domain.Persistence("replace providers", b.writeErr)
	}
	return b.Store.ReplaceAll(ctx, providers)
}

func fullCatalog() []schema.Provider {
	return []schema.Provider{
		{
			ID:          "openai",
			Name:        "OpenAI",
			Enabled:     true,
			Credentials: schema.Credentials{APIKeys: []string{"sk-1", "sk-2"}},
			Endpoints:   schema.Endpoints{OpenAI: "https://api.openai.com/v1"},
			Limits:      []schema.Limit{{Type: schema.LimitRequests, Limit: 500, Window: 60}},
			Features:    schema.ProviderFeatures{Streaming: ptr(true), JSONMode: ptr(false)},
			Models: []schema.Model{
				{
					ID:         "gpt-4o",
					Name:       "GPT-4o",
					Enabled:    true,
					Parameters: ptr("200B"),
					Pricing:    schema.Pricing{Input: 2.5, Output: 10, Cached: ptr(1.25), Currency: "USD"},
					Context:    schema.Context{MaxInput: 128000, MaxOutput: ptr(16384)},
					Modalities: []string{"text", "image"},
					Features:   &schema.ModelFeatures{Vision: ptr(true), ToolCalling: ptr(true)},
					Limits:     []schema.Limit{{Type: schema.LimitTokens, Limit: 30000, Window: 60}},
				},
				{
					ID:         "gpt-4",
					Name:       "GPT-4",
					Pricing:    schema.Pricing{Currency: "USD"},
					Context:    schema.Context{MaxInput: 8192},
					Modalities: []string{"text"},
				},
			},
		},
		{
			ID:          "local",
			Name:        "Local",
			Credentials: schema.Credentials{APIKeys: []string{}},
			Endpoints:   schema.Endpoints{OpenAI: "http://localhost:11434/v1", Anthropic: ptr("http://localhost:11434")},
			Limits:      []schema.Limit{},
			Models:      []schema.Model{},
			IsCustom:    true,
		},
	}
}

func fixedClock() time.Time {
	return time.Date(2024, 3, 9, 15, 4, 5, 0, time.FixedZone("CET", 3600))
}

func document(t *testing.T, providers string) source.Bytes {
	t.Helper()
	return source.Bytes(`{"version":"1.0.0","metadata":{"createdAt":"x","modifiedAt":"x","generator":"test"},"providers":` + providers + `}`)
}

func TestExporter_Export(t *testing.T) {
	exp := NewExporter(zap.NewNop(), staticCatalog(fullCatalog()), "", nil).WithClock(fixedClock)

	providers := fullCatalog()
	doc := exp.Export(providers)

	assert.Equal(t, "1.0.0", doc.Version)
	assert.Equal(t, "2024-03-09T14:04:05Z", doc.Metadata.CreatedAt)
	assert.Equal(t, doc.Metadata.CreatedAt, doc.Metadata.ModifiedAt)
	assert.Equal(t, DefaultGenerator, doc.Metadata.Generator)
	require.NotNil(t, doc.Metadata.Description)
	assert.Equal(t, "Model catalog export", *doc.Metadata.Description)

	// the document does not alias its input
	providers[0].Credentials.APIKeys[0] = "changed"
	*providers[0].Models[0].Parameters = "changed"
	assert.Equal(t, "sk-1", doc.Providers[0].Credentials.APIKeys[0])
	assert.Equal(t, "200B", *doc.Providers[0].Models[0].Parameters)

	empty := exp.Export(nil)
	assert.NotNil(t, empty.Providers)
	data, err := json.Marshal(empty)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"providers":[]`)
}

func TestDefaultFilename(t *testing.T) {
	assert.Equal(t, "model-catalog-backup-2024-03-09.json", DefaultFilename(fixedClock()))
}

func TestExporter_WriteTo(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(reg)
	exp := NewExporter(zap.NewNop(), staticCatalog(fullCatalog()), "catalogctl", metrics).WithClock(fixedClock)
	ctx := context.Background()

	var buf source.Buffer
	res := exp.ExportTo(ctx, &buf)
	assert.Equal(t, schema.ExportResult{Success: true, Message: "Exported 2 providers and 2 models"}, res)

	var doc schema.Document
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "catalogctl", doc.Metadata.Generator)
	assert.Equal(t, fullCatalog(), doc.Providers)

	res = exp.ExportTo(ctx, source.Dismissed{})
	assert.Equal(t, schema.ExportResult{Success: false, Message: "Export cancelled"}, res)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ExportTotal.WithLabelValues(telemetry.OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ExportTotal.WithLabelValues(telemetry.OutcomeCancelled)))
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	exp := NewExporter(zap.NewNop(), staticCatalog(fullCatalog()), "", nil).WithClock(fixedClock)

	var buf source.Buffer
	require.True(t, exp.ExportTo(ctx, &buf).Success)

	for _, mode := range []schema.ImportMode{schema.ImportModeReplace, schema.ImportModeMerge} {
		t.Run(string(mode), func(t *testing.T) {
			st := memory.New()
			imp := NewImporter(zap.NewNop(), st, nil, nil)

			res := imp.Import(ctx, source.Bytes(buf.Bytes()), mode)
			require.True(t, res.Success, res.Message)
			assert.Empty(t, res.Warnings)

			stored, err := st.LoadAll(ctx)
			require.NoError(t, err)
			if mode == schema.ImportModeReplace {
				assert.Equal(t, fullCatalog(), stored)
				return
			}
			// merge marks providers it did not know before as custom
			want := fullCatalog()
			want[0].IsCustom = true
			assert.Equal(t, want, stored)
		})
	}
}

func TestRoundTrip_Encrypted(t *testing.T) {
	ctx := context.Background()
	exp := NewExporter(zap.NewNop(), staticCatalog(fullCatalog()), "", nil)

	var buf source.Buffer
	require.True(t, exp.EncryptTo(ctx, &buf, "correct horse").Success)
	assert.False(t, bytes.Contains(buf.Bytes(), []byte("sk-1")))

	st := memory.New()
	imp := NewImporter(zap.NewNop(), st, nil, nil)

	res := imp.ImportEncrypted(ctx, source.Bytes(buf.Bytes()), schema.ImportModeReplace, "wrong")
	assert.False(t, res.Success)
	assert.True(t, strings.HasPrefix(res.Message, "Failed to decrypt import file: "), res.Message)

	res = imp.ImportEncrypted(ctx, source.Bytes(buf.Bytes()), schema.ImportModeReplace, "correct horse")
	require.True(t, res.Success, res.Message)

	stored, err := st.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, fullCatalog(), stored)
}

func TestImport_ScenarioA_MergeUnionsKeysAndModels(t *testing.T) {
	ctx := context.Background()
	st := memory.New(schema.Provider{
		ID: "openai", Name: "OpenAI",
		Credentials: schema.Credentials{APIKeys: []string{"k1"}},
		Limits:      []schema.Limit{},
		Models:      []schema.Model{{ID: "gpt-4", Name: "GPT-4", Context: schema.Context{MaxInput: 8192}, Modalities: []string{"text"}}},
	})
	pub := &recordingPublisher{}
	imp := NewImporter(zap.NewNop(), st, pub, nil)

	res := imp.Import(ctx, document(t, `[{"id":"openai","name":"OpenAI","credentials":{"apiKeys":["k2"]},
		"models":[{"id":"gpt-4o","name":"GPT-4o","pricing":{"input":1,"output":2},"context":{"maxInput":128000},"modalities":["text"]}]}]`),
		schema.ImportModeMerge)

	require.True(t, res.Success, res.Message)
	assert.Equal(t, "Imported 1 providers (0 added, 1 updated) and 1 models", res.Message)
	assert.Equal(t, schema.ImportCounts{Providers: 1, Models: 1}, res.Imported)

	stored, err := st.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, []string{"k1", "k2"}, stored[0].Credentials.APIKeys)
	require.Len(t, stored[0].Models, 2)
	assert.Equal(t, "gpt-4", stored[0].Models[0].ID)
	assert.Equal(t, "gpt-4o", stored[0].Models[1].ID)
	assert.False(t, stored[0].IsCustom)

	assert.Equal(t, 1, pub.calls)
	assert.Equal(t, stored, pub.published)
}

func TestImport_ScenarioB_DuplicateProviders(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	imp := NewImporter(zap.NewNop(), st, nil, nil)

	res := imp.Import(ctx, document(t, `[{"id":"dup","name":"First","models":[]},{"id":"dup","name":"Second","models":[]}]`), schema.ImportModeReplace)

	require.True(t, res.Success, res.Message)
	assert.Equal(t, []string{`duplicate provider "dup" dropped`}, res.Warnings)

	stored, err := st.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "First", stored[0].Name)
}

func TestImport_ScenarioC_EmptyModalitiesSkipped(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	imp := NewImporter(zap.NewNop(), st, nil, nil)

	res := imp.Import(ctx, document(t, `[{"id":"p","name":"P","models":[
		{"id":"bad","name":"Bad","context":{"maxInput":100},"modalities":[]},
		{"id":"good","name":"Good","context":{"maxInput":100},"modalities":["text"]}]}]`), schema.ImportModeMerge)

	require.True(t, res.Success, res.Message)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], `model "bad" in provider "p" skipped`)

	stored, err := st.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, stored[0].Models, 1)
	assert.Equal(t, "good", stored[0].Models[0].ID)
}

func TestImport_ScenarioD_InvalidDocumentLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	st := memory.New(fullCatalog()...)
	pub := &recordingPublisher{}
	imp := NewImporter(zap.NewNop(), st, pub, nil)

	res := imp.Import(ctx, source.Bytes(`{"providers":[]}`), schema.ImportModeReplace)

	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "version is required")
	assert.Equal(t, 0, pub.calls)

	stored, err := st.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, fullCatalog(), stored)
}

func TestImport_ScenarioE_Cancelled(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(reg)
	imp := NewImporter(zap.NewNop(), memory.New(), nil, metrics)

	want := schema.ImportResult{Success: false, Message: "Import cancelled", Warnings: []string{}}

	assert.Equal(t, want, imp.Import(ctx, source.File{}, schema.ImportModeMerge))
	assert.Equal(t, want, imp.Import(ctx, source.Reader{R: strings.NewReader("")}, schema.ImportModeMerge))

	res := imp.Import(ctx, cancelledSource{}, schema.ImportModeMerge)
	assert.Equal(t, want, res)
	assert.True(t, domain.IsCancelled(res))

	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.ImportTotal.WithLabelValues("merge", telemetry.OutcomeCancelled)))
}

type cancelledSource struct{}

func (cancelledSource) Open(context.Context) ([]byte, error) { return nil, domain.ErrImportCancelled }

type errSource struct{ err error }

func (e errSource) Open(context.Context) ([]byte, error) { return nil, e.err }

func TestImport_Failures(t *testing.T) {
	ctx := context.Background()
	valid := document(t, `[{"id":"openai","name":"OpenAI","models":[]}]`)

	tests := []struct {
		name   string
		store  brokenStore
		source interface{ Open(context.Context) ([]byte, error) }
		mode   schema.ImportMode
		prefix string
		stored bool
	}{
		{
			name:   "unreadable source",
			source: errSource{errors.New("permission denied")},
			mode:   schema.ImportModeMerge,
			prefix: "Failed to read import file: permission denied",
		},
		{
			name:   "not json",
			source: source.Bytes(`{not json`),
			mode:   schema.ImportModeMerge,
			prefix: "Failed to parse import file: ",
		},
		{
			name:   "invalid mode",
			source: valid,
			mode:   "upsert",
			prefix: "Invalid import mode: upsert",
		},
		{
			name:   "merge cannot load existing data",
			store:  brokenStore{loadErr: errors.New("corrupt")},
			source: valid,
			mode:   schema.ImportModeMerge,
			prefix: "Failed to load existing data: corrupt",
			stored: true,
		},
		{
			name:   "persist fails",
			store:  brokenStore{writeErr: errors.New("disk full")},
			source: valid,
			mode:   schema.ImportModeReplace,
			prefix: "Failed to save imported data: ",
			stored: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.store.Store = memory.New(fullCatalog()...)
			pub := &recordingPublisher{}
			imp := NewImporter(zap.NewNop(), tt.store, pub, nil)

			res := imp.Import(ctx, tt.source, tt.mode)

			assert.False(t, res.Success)
			assert.True(t, strings.HasPrefix(res.Message, tt.prefix), res.Message)
			assert.Equal(t, tt.stored, domain.IsStoreFailure(res))
			assert.NotNil(t, res.Warnings)
			assert.Equal(t, schema.ImportCounts{}, res.Imported)
			assert.Equal(t, 0, pub.calls)

			stored, err := tt.store.Store.LoadAll(ctx)
			require.NoError(t, err)
			assert.Equal(t, fullCatalog(), stored, "failed imports never change stored data")
		})
	}
}

func TestImport_ReplaceSurvivesUnreadableExistingData(t *testing.T) {
	ctx := context.Background()
	st := brokenStore{Store: memory.New(), loadErr: errors.New("corrupt")}
	imp := NewImporter(zap.NewNop(), st, nil, nil)

	res := imp.Import(ctx, document(t, `[{"id":"openai","name":"OpenAI","models":[]}]`), schema.ImportModeReplace)

	require.True(t, res.Success, res.Message)
	assert.Equal(t, "Imported 1 providers (1 added, 0 updated) and 0 models", res.Message)
	assert.Equal(t, []string{"existing data could not be loaded: corrupt"}, res.Warnings)
}

func TestImport_ValidationWarningsAreKept(t *testing.T) {
	ctx := context.Background()
	imp := NewImporter(zap.NewNop(), memory.New(), nil, nil)

	res := imp.Import(ctx, source.Bytes(`{"version":"2.0.0","providers":[{"id":"p","name":"P"}]}`), schema.ImportModeReplace)

	require.True(t, res.Success, res.Message)
	require.Len(t, res.Warnings, 2)
	assert.Contains(t, res.Warnings[0], "newer than supported")
	assert.Equal(t, "metadata is missing", res.Warnings[1])
}

func TestImport_RecordsMetrics(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(reg)
	st := memory.New(fullCatalog()...)
	imp := NewImporter(zap.NewNop(), st, nil, metrics)

	res := imp.Import(ctx, document(t, `[{"id":"openai","name":"OpenAI","models":[
		{"id":"gpt-4","name":"GPT-4","context":{"maxInput":8192},"modalities":["text"]},
		{"id":"o1","name":"o1","context":{"maxInput":200000},"modalities":["text"]}]},
		{"id":"groq","name":"Groq","models":[]}]`), schema.ImportModeMerge)
	require.True(t, res.Success, res.Message)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ImportTotal.WithLabelValues("merge", telemetry.OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ImportedEntities.WithLabelValues("provider", "added")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ImportedEntities.WithLabelValues("provider", "updated")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ImportedEntities.WithLabelValues("model", "added")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ImportedEntities.WithLabelValues("model", "updated")))
}
