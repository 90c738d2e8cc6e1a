// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	ollamaembed "github.com/custodia-labs/trialdex/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/trialdex/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/trialdex/internal/core/domain"
	"github.com/custodia-labs/trialdex/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateEmbeddingService(ctx context.Context, settings domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, &domain.ProviderUnavailableError{
			Provider: settings.Provider.String(),
			Err:      fmt.Errorf("service unreachable: %w", err),
		}
	}

	return svc, nil
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
func CreateEmbeddingService(settings domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if !settings.IsConfigured() {
		if settings.Provider.RequiresAPIKey() {
			return nil, fmt.Errorf("%w: %s requires an API key (set OPENAI_API_KEY)",
				domain.ErrInvalidInput, settings.Provider)
		}
		return nil, fmt.Errorf("%w: unsupported embedding provider %q", domain.ErrInvalidInput, settings.Provider)
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Timeout:    settings.Timeout,
			Dimensions: settings.ResolvedDimensions(),
		}), nil

	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Timeout:    settings.Timeout,
			Dimensions: settings.ResolvedDimensions(),
		})

	default:
		return nil, fmt.Errorf("%w: unsupported embedding provider %q", domain.ErrInvalidInput, settings.Provider)
	}
}
