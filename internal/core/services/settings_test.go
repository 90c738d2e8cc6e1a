package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/trialdex/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/trialdex/internal/core/domain"
	"github.com/custodia-labs/trialdex/internal/normalisers/trial"
)

func noEnv(string) (string, bool) { return "", false }

func envOf(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore()).WithEnv(noEnv)

	settings, err := service.Get()
	require.NoError(t, err)

	assert.Equal(t, domain.DefaultAppSettings(), settings)
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("registry.local_dir", "/data/studies")
	_ = store.Set("registry.requests_per_second", 2.5)
	_ = store.Set("finder.sponsor", "Novartis")
	_ = store.Set("normalise.workers", int64(8))
	_ = store.Set("embedding.provider", "ollama")
	_ = store.Set("embedding.model", "nomic-embed-text")
	_ = store.Set("embed.batch_size", int64(32))
	_ = store.Set("embed.initial_backoff", "1s")
	_ = store.Set("embed.max_failure_ratio", 0.0)
	_ = store.Set("index.backend", "sqlite")
	_ = store.Set("index.path", "/tmp/trials.db")
	_ = store.Set("index.table", "trials")

	settings, err := NewSettingsService(store).WithEnv(noEnv).Get()
	require.NoError(t, err)

	assert.Equal(t, "/data/studies", settings.Registry.LocalDir)
	assert.InDelta(t, 2.5, settings.Registry.RequestsPerSecond, 1e-9)
	assert.Equal(t, "Novartis", settings.Finder.Sponsor)
	assert.Equal(t, 8, settings.Normalise.Workers)
	assert.Equal(t, domain.AIProviderOllama, settings.Embedding.Provider)
	assert.Equal(t, "nomic-embed-text", settings.Embedding.Model)
	assert.Equal(t, 32, settings.Embed.BatchSize)
	assert.Equal(t, time.Second, settings.Embed.InitialBackoff)
	assert.Zero(t, settings.Embed.MaxFailureRatio)
	assert.Equal(t, domain.IndexBackendSQLite, settings.Index.Backend)
	assert.Equal(t, "/tmp/trials.db", settings.Index.Path)
	assert.Equal(t, "trials", settings.Index.Table)
}

func TestSettingsService_Get_InvalidValuesReturnDefaults(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("embedding.provider", "invalid_provider")
	_ = store.Set("index.backend", "oracle")
	_ = store.Set("embed.max_backoff", "soon")

	settings, err := NewSettingsService(store).WithEnv(noEnv).Get()
	require.NoError(t, err)

	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.Embedding.Provider, settings.Embedding.Provider)
	assert.Equal(t, defaults.Index.Backend, settings.Index.Backend)
	assert.Equal(t, defaults.Embed.MaxBackoff, settings.Embed.MaxBackoff)
}

func TestSettingsService_Get_EnvOverrides(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("embedding.api_key", "from-file")
	_ = store.Set("finder.user", "file-user")

	settings, err := NewSettingsService(store).WithEnv(envOf(map[string]string{
		EnvOpenAIKey:    "sk-env",
		EnvDatabaseURL:  "postgresql://u:p@db:5432/vectors",
		EnvAACTUsername: "aact-user",
		EnvAACTPassword: "aact-pass",
	})).Get()
	require.NoError(t, err)

	assert.Equal(t, "sk-env", settings.Embedding.APIKey)
	assert.Equal(t, "postgresql://u:p@db:5432/vectors", settings.Index.DSN)
	assert.Equal(t, "aact-user", settings.Finder.User)
	assert.Equal(t, "aact-pass", settings.Finder.Password)
	assert.True(t, settings.Finder.IsConfigured())
}

func TestSettingsService_Get_BlankEnvIgnored(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("embedding.api_key", "from-file")

	settings, err := NewSettingsService(store).WithEnv(envOf(map[string]string{EnvOpenAIKey: "  "})).Get()
	require.NoError(t, err)
	assert.Equal(t, "from-file", settings.Embedding.APIKey)
}

func TestSettingsService_Get_Invalid(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("embed.max_failure_ratio", 1.5)

	_, err := NewSettingsService(store).WithEnv(noEnv).Get()
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSettingsService_GetPipelineConfig(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("pipeline.chunker.max_tokens", int64(512))
	_ = store.Set("pipeline.chunker.overlap", int64(64))

	cfg := NewSettingsService(store).GetPipelineConfig()

	assert.Equal(t, []string{"chunker"}, cfg.Processors)
	chunkerCfg := cfg.GetProcessorConfig("chunker")
	assert.Equal(t, int64(512), chunkerCfg["max_tokens"])
	assert.Equal(t, int64(64), chunkerCfg["overlap"])
}

func TestSettingsService_GetPipelineConfig_Defaults(t *testing.T) {
	cfg := NewSettingsService(memory.NewConfigStore()).GetPipelineConfig()
	assert.Equal(t, domain.DefaultPipelineConfig(), cfg)
}

func TestSettingsService_Catalog_Default(t *testing.T) {
	catalog, err := NewSettingsService(memory.NewConfigStore()).Catalog()
	require.NoError(t, err)

	assert.Equal(t, trial.DefaultCatalog(), catalog)
	assert.Empty(t, catalog.Repeats)
}

func TestSettingsService_Catalog_SecondaryOutcomes(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("catalog.secondary_outcomes", true)

	catalog, err := NewSettingsService(store).Catalog()
	require.NoError(t, err)
	require.Len(t, catalog.Repeats, 1)
	assert.Equal(t, trial.SecondaryOutcomes(), catalog.Repeats[0])
}

func TestSettingsService_Catalog_FromConfig(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("catalog.identifier", "ID")
	_ = store.Set("catalog.llm_visible", []any{"ID", "Title"})
	_ = store.Set("catalog.embedding_visible", []any{"Title"})
	_ = store.Set("catalog.fields", []any{
		map[string]any{"name": "ID", "path": "protocolSection.identificationModule.nctId"},
		map[string]any{"name": "Title", "path": []any{"protocolSection", "identificationModule", "briefTitle"}},
		map[string]any{"name": "First arm", "path": []any{"protocolSection", "armsInterventionsModule", "armGroups", int64(0), "label"}, "default": "NA"},
	})

	catalog, err := NewSettingsService(store).Catalog()
	require.NoError(t, err)

	require.Len(t, catalog.Fields, 3)
	assert.Equal(t, "ID", catalog.Identifier)
	assert.Equal(t, []string{"ID", "Title"}, catalog.LLMVisible)
	assert.Equal(t, []string{"Title"}, catalog.EmbeddingVisible)
	assert.Equal(t, "protocolSection.identificationModule.briefTitle", catalog.Fields[1].Path.String())

	arm := catalog.Fields[2]
	assert.Equal(t, "NA", arm.Default)
	require.Len(t, arm.Path, 5)
	assert.True(t, arm.Path[3].IsIndex())
	assert.Equal(t, 0, arm.Path[3].Position())
}

func TestSettingsService_Catalog_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		fields any
	}{
		{"not an array", "fields"},
		{"entry not a table", []any{"x"}},
		{"missing path", []any{map[string]any{"name": "A"}}},
		{"bad segment", []any{map[string]any{"name": "A", "path": []any{1.5}}}},
		{"negative index", []any{map[string]any{"name": "A", "path": []any{"a", int64(-1)}}}},
		{"identifier not declared", []any{map[string]any{"name": "A", "path": "a"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewConfigStore()
			_ = store.Set("catalog.fields", tt.fields)

			_, err := NewSettingsService(store).Catalog()
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}
