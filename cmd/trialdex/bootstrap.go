package main

import (
	"context"
	"fmt"

	"github.com/custodia-labs/trialdex/internal/adapters/driven/ai"
	"github.com/custodia-labs/trialdex/internal/adapters/driven/config/file"
	"github.com/custodia-labs/trialdex/internal/adapters/driven/index/postgres"
	"github.com/custodia-labs/trialdex/internal/adapters/driven/index/sqlite"
	"github.com/custodia-labs/trialdex/internal/adapters/driven/registry/aact"
	"github.com/custodia-labs/trialdex/internal/adapters/driven/registry/clinicaltrials"
	"github.com/custodia-labs/trialdex/internal/adapters/driven/registry/localfs"
	"github.com/custodia-labs/trialdex/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/trialdex/internal/adapters/driving/cli"
	"github.com/custodia-labs/trialdex/internal/core/domain"
	"github.com/custodia-labs/trialdex/internal/core/ports/driven"
	"github.com/custodia-labs/trialdex/internal/core/services"
	"github.com/custodia-labs/trialdex/internal/logger"
	"github.com/custodia-labs/trialdex/internal/normalisers/trial"
	"github.com/custodia-labs/trialdex/internal/postprocessors"
)

var log = logger.Named("main")

// bootstrap reads configuration and connects the adapters behind the CLI.
func bootstrap(ctx context.Context, opts cli.Options) (*cli.Services, func(), error) {
	store, err := file.NewConfigStore(opts.ConfigDir)
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	settingsService := services.NewSettingsService(store)

	settings, err := settingsService.Get()
	if err != nil {
		return nil, nil, err
	}
	catalog, err := settingsService.Catalog()
	if err != nil {
		return nil, nil, err
	}

	normaliser, err := trial.New(catalog, settings.Normalise.Separator)
	if err != nil {
		return nil, nil, fmt.Errorf("normaliser: %w", err)
	}

	registry := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(registry)
	pipeline, err := registry.BuildPipeline(settingsService.GetPipelineConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("pipeline: %w", err)
	}

	var closers []func() error
	release := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				log.Warn("close: %v", err)
			}
		}
	}

	var embedding driven.EmbeddingService
	if opts.CheckProviders {
		embedding, err = ai.CreateAndValidateEmbeddingService(ctx, settings.Embedding)
	} else {
		embedding, err = ai.CreateEmbeddingService(settings.Embedding)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("embedding: %w", err)
	}
	closers = append(closers, embedding.Close)

	index, err := openIndex(ctx, settings.Index, settings.Embedding.ResolvedDimensions())
	if err != nil {
		release()
		return nil, nil, fmt.Errorf("index: %w", err)
	}
	closers = append(closers, index.Close)

	source := recordSource(settings.Registry)
	loader := services.NewLoadOrchestrator(
		source,
		normaliser,
		pipeline,
		embedding,
		index,
		settings,
	)
	svcs := &cli.Services{Loader: loader}
	if watcher, ok := source.(driven.RecordWatcher); ok {
		svcs.Watcher = services.NewWatchService(loader, watcher, 0)
	}

	if settings.Finder.IsConfigured() {
		finder, err := aact.New(ctx, settings.Finder)
		if err != nil {
			log.Warn("AACT finder unavailable: %v", err)
		} else {
			closers = append(closers, finder.Close)
			svcs.Search = services.NewTrialSearchService(finder, settings.Finder.Sponsor)
		}
	}

	return svcs, release, nil
}

// recordSource reads records from a local directory when one is configured
// and from the ClinicalTrials.gov API otherwise.
func recordSource(settings domain.RegistrySettings) driven.RecordSource {
	if settings.LocalDir != "" {
		log.Debug("reading records from %s", settings.LocalDir)
		return localfs.New(settings.LocalDir)
	}
	return clinicaltrials.New(clinicaltrials.ConfigFromSettings(settings))
}

func openIndex(ctx context.Context, settings domain.IndexSettings, dims int) (driven.IndexWriter, error) {
	switch settings.Backend {
	case domain.IndexBackendPostgres:
		return postgres.New(ctx, settings, dims)
	case domain.IndexBackendSQLite:
		return sqlite.NewStore(settings.Path, dims)
	case domain.IndexBackendMemory:
		return memory.NewIndexStore(), nil
	default:
		return nil, fmt.Errorf("%w: unknown index backend %q", domain.ErrInvalidInput, settings.Backend)
	}
}
