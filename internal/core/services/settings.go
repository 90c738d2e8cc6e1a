package services

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/custodia-labs/trialdex/internal/core/domain"
	"github.com/custodia-labs/trialdex/internal/core/ports/driven"
	"github.com/custodia-labs/trialdex/internal/normalisers/trial"
)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyRegistryBaseURL  = "registry.base_url"
	keyRegistryLocalDir = "registry.local_dir"
	keyRegistryRPS      = "registry.requests_per_second"
	keyRegistryBurst    = "registry.burst"
	keyRegistryTimeout  = "registry.timeout"

	keyFinderHost     = "finder.host"
	keyFinderPort     = "finder.port"
	keyFinderDatabase = "finder.database"
	keyFinderUser     = "finder.user"
	keyFinderPassword = "finder.password"
	keyFinderSponsor  = "finder.sponsor"

	keyNormaliseSeparator = "normalise.separator"
	keyNormaliseWorkers   = "normalise.workers"

	keyEmbedProvider   = "embedding.provider"
	keyEmbedModel      = "embedding.model"
	keyEmbedBaseURL    = "embedding.base_url"
	keyEmbedAPIKey     = "embedding.api_key"
	keyEmbedDimensions = "embedding.dimensions"
	keyEmbedTimeout    = "embedding.timeout"

	keyEmbedBatchSize      = "embed.batch_size"
	keyEmbedConcurrency    = "embed.concurrency"
	keyEmbedMaxAttempts    = "embed.max_attempts"
	keyEmbedInitialBackoff = "embed.initial_backoff"
	keyEmbedMaxBackoff     = "embed.max_backoff"
	keyEmbedMaxFailure     = "embed.max_failure_ratio"

	keyIndexBackend    = "index.backend"
	keyIndexDSN        = "index.dsn"
	keyIndexPath       = "index.path"
	keyIndexTable      = "index.table"
	keyIndexTextConfig = "index.text_search_config"

	keyCatalogIdentifier        = "catalog.identifier"
	keyCatalogFields            = "catalog.fields"
	keyCatalogLLMVisible        = "catalog.llm_visible"
	keyCatalogEmbeddingVisible  = "catalog.embedding_visible"
	keyCatalogSecondaryOutcomes = "catalog.secondary_outcomes"
)

// Environment variables that override stored settings.
//
//nolint:gosec // G101: These are variable names, not actual credentials.
const (
	EnvOpenAIKey    = "OPENAI_API_KEY"
	EnvDatabaseURL  = "DATABASE_URL"
	EnvAACTUsername = "AACT_USERNAME"
	EnvAACTPassword = "AACT_PASSWORD"
)

// SettingsService builds immutable settings from the config store and the
// environment.
type SettingsService struct {
	configStore driven.ConfigStore
	lookupEnv   func(string) (string, bool)
}

// NewSettingsService creates a new settings service reading the process
// environment.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		lookupEnv:   os.LookupEnv,
	}
}

// WithEnv replaces the environment lookup. Tests only.
func (s *SettingsService) WithEnv(lookup func(string) (string, bool)) *SettingsService {
	s.lookupEnv = lookup
	return s
}

// Get retrieves current application settings.
// Stored values override defaults; environment variables override both.
func (s *SettingsService) Get() (domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	settings := domain.AppSettings{
		Registry: domain.RegistrySettings{
			BaseURL:           s.getString(keyRegistryBaseURL, d.Registry.BaseURL),
			LocalDir:          s.configStore.GetString(keyRegistryLocalDir),
			RequestsPerSecond: s.getFloat(keyRegistryRPS, d.Registry.RequestsPerSecond),
			Burst:             s.getInt(keyRegistryBurst, d.Registry.Burst),
			Timeout:           s.getDuration(keyRegistryTimeout, d.Registry.Timeout),
		},
		Finder: domain.FinderSettings{
			Host:     s.getString(keyFinderHost, d.Finder.Host),
			Port:     s.getInt(keyFinderPort, d.Finder.Port),
			Database: s.getString(keyFinderDatabase, d.Finder.Database),
			User:     s.configStore.GetString(keyFinderUser),
			Password: s.configStore.GetString(keyFinderPassword),
			Sponsor:  s.getString(keyFinderSponsor, d.Finder.Sponsor),
		},
		Normalise: domain.NormaliseSettings{
			Separator: s.getString(keyNormaliseSeparator, d.Normalise.Separator),
			Workers:   s.getInt(keyNormaliseWorkers, d.Normalise.Workers),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:   s.getProvider(keyEmbedProvider, d.Embedding.Provider),
			Model:      s.getString(keyEmbedModel, d.Embedding.Model),
			BaseURL:    s.configStore.GetString(keyEmbedBaseURL), // No default - empty uses the provider's
			APIKey:     s.configStore.GetString(keyEmbedAPIKey),
			Dimensions: s.getInt(keyEmbedDimensions, d.Embedding.Dimensions),
			Timeout:    s.getDuration(keyEmbedTimeout, d.Embedding.Timeout),
		},
		Embed: domain.EmbedPolicy{
			BatchSize:       s.getInt(keyEmbedBatchSize, d.Embed.BatchSize),
			Concurrency:     s.getInt(keyEmbedConcurrency, d.Embed.Concurrency),
			MaxAttempts:     s.getInt(keyEmbedMaxAttempts, d.Embed.MaxAttempts),
			InitialBackoff:  s.getDuration(keyEmbedInitialBackoff, d.Embed.InitialBackoff),
			MaxBackoff:      s.getDuration(keyEmbedMaxBackoff, d.Embed.MaxBackoff),
			MaxFailureRatio: s.getRatio(keyEmbedMaxFailure, d.Embed.MaxFailureRatio),
		},
		Index: domain.IndexSettings{
			Backend:          s.getBackend(d.Index.Backend),
			DSN:              s.getString(keyIndexDSN, d.Index.DSN),
			Path:             s.configStore.GetString(keyIndexPath),
			Table:            s.getString(keyIndexTable, d.Index.Table),
			TextSearchConfig: s.getString(keyIndexTextConfig, d.Index.TextSearchConfig),
		},
		Pipeline: s.GetPipelineConfig(),
	}

	// Environment overrides
	if v, ok := s.env(EnvOpenAIKey); ok {
		settings.Embedding.APIKey = v
	}
	if v, ok := s.env(EnvDatabaseURL); ok {
		settings.Index.DSN = v
	}
	if v, ok := s.env(EnvAACTUsername); ok {
		settings.Finder.User = v
	}
	if v, ok := s.env(EnvAACTPassword); ok {
		settings.Finder.Password = v
	}

	if err := settings.Validate(); err != nil {
		return domain.AppSettings{}, err
	}
	return settings, nil
}

// Catalog returns the field catalog. Without a [catalog] section the
// built-in clinical catalog is used.
func (s *SettingsService) Catalog() (domain.FieldCatalog, error) {
	catalog := trial.DefaultCatalog()

	if raw, ok := s.configStore.Get(keyCatalogFields); ok {
		fields, err := parseFieldSpecs(raw)
		if err != nil {
			return domain.FieldCatalog{}, err
		}
		catalog.Fields = fields
	}
	if id := s.configStore.GetString(keyCatalogIdentifier); id != "" {
		catalog.Identifier = id
	}
	if _, ok := s.configStore.Get(keyCatalogLLMVisible); ok {
		catalog.LLMVisible = s.configStore.GetStringSlice(keyCatalogLLMVisible)
	}
	if _, ok := s.configStore.Get(keyCatalogEmbeddingVisible); ok {
		catalog.EmbeddingVisible = s.configStore.GetStringSlice(keyCatalogEmbeddingVisible)
	}
	if s.configStore.GetBool(keyCatalogSecondaryOutcomes) {
		catalog.Repeats = append(catalog.Repeats, trial.SecondaryOutcomes())
	}

	if err := catalog.Validate(); err != nil {
		return domain.FieldCatalog{}, err
	}
	return catalog, nil
}

// GetPipelineConfig returns the post-processor pipeline configuration.
// Returns default configuration if nothing is configured.
func (s *SettingsService) GetPipelineConfig() domain.PipelineConfig {
	cfg := domain.DefaultPipelineConfig()

	if processors := s.configStore.GetStringSlice("pipeline.processors"); len(processors) > 0 {
		cfg.Processors = processors
	}

	for _, name := range cfg.Processors {
		prefix := "pipeline." + name + "."
		loaded := s.loadProcessorConfig(prefix)
		if len(loaded) == 0 {
			continue
		}
		if cfg.ProcessorConfigs == nil {
			cfg.ProcessorConfigs = make(map[string]map[string]any)
		}
		existing := cfg.ProcessorConfigs[name]
		if existing == nil {
			existing = make(map[string]any)
		}
		for k, v := range loaded {
			existing[k] = v
		}
		cfg.ProcessorConfigs[name] = existing
	}

	return cfg
}

// loadProcessorConfig loads config keys with a given prefix into a map.
func (s *SettingsService) loadProcessorConfig(prefix string) map[string]any {
	cfg := make(map[string]any)
	for _, key := range []string{"max_tokens", "overlap"} {
		if val, exists := s.configStore.Get(prefix + key); exists {
			cfg[key] = val
		}
	}
	return cfg
}

// parseFieldSpecs reads [[catalog.fields]] tables. A path is either a dotted
// string or an array of names and indexes.
func parseFieldSpecs(raw any) ([]domain.FieldSpec, error) {
	tables, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be an array of tables", domain.ErrInvalidInput, keyCatalogFields)
	}

	fields := make([]domain.FieldSpec, 0, len(tables))
	for i, item := range tables {
		table, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s[%d] is not a table", domain.ErrInvalidInput, keyCatalogFields, i)
		}
		name, _ := table["name"].(string)
		def, _ := table["default"].(string)
		path, err := parseConfigPath(table["path"])
		if err != nil {
			return nil, fmt.Errorf("catalog field %q: %w", name, err)
		}
		fields = append(fields, domain.FieldSpec{Name: name, Path: path, Default: def})
	}
	return fields, nil
}

func parseConfigPath(raw any) (domain.Path, error) {
	switch v := raw.(type) {
	case string:
		return domain.ParsePath(v)
	case []any:
		path := make(domain.Path, 0, len(v))
		for _, seg := range v {
			switch s := seg.(type) {
			case string:
				path = append(path, domain.Key(s))
			case int64:
				if s < 0 {
					return nil, fmt.Errorf("%w: negative path index %d", domain.ErrInvalidInput, s)
				}
				path = append(path, domain.Idx(int(s)))
			case int:
				if s < 0 {
					return nil, fmt.Errorf("%w: negative path index %d", domain.ErrInvalidInput, s)
				}
				path = append(path, domain.Idx(s))
			default:
				return nil, fmt.Errorf("%w: path segment %v must be a string or integer", domain.ErrInvalidInput, seg)
			}
		}
		if len(path) == 0 {
			return nil, fmt.Errorf("%w: empty path", domain.ErrInvalidInput)
		}
		return path, nil
	default:
		return nil, fmt.Errorf("%w: path is required", domain.ErrInvalidInput)
	}
}

// Helper methods for reading config with defaults.

func (s *SettingsService) env(key string) (string, bool) {
	if s.lookupEnv == nil {
		return "", false
	}
	v, ok := s.lookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	val := s.configStore.GetFloat(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

// getRatio treats an explicit 0 as a value, not as unset.
func (s *SettingsService) getRatio(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	str := s.configStore.GetString(key)
	if str == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(str)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getBackend(defaultVal domain.IndexBackend) domain.IndexBackend {
	val := s.configStore.GetString(keyIndexBackend)
	if val == "" {
		return defaultVal
	}
	backend := domain.IndexBackend(val)
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}
