package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/trialdex/internal/core/domain"
)

func TestCreateEmbeddingService(t *testing.T) {
	tests := []struct {
		name      string
		settings  domain.EmbeddingSettings
		wantModel string
		wantDims  int
		wantErr   bool
	}{
		{
			name:     "unconfigured settings",
			settings: domain.EmbeddingSettings{},
			wantErr:  true,
		},
		{
			name: "openai without key",
			settings: domain.EmbeddingSettings{
				Provider: domain.AIProviderOpenAI,
				Model:    "text-embedding-3-large",
			},
			wantErr: true,
		},
		{
			name: "ollama provider creates service",
			settings: domain.EmbeddingSettings{
				Provider: domain.AIProviderOllama,
				BaseURL:  "http://localhost:11434",
				Model:    "nomic-embed-text",
			},
			wantModel: "nomic-embed-text",
			wantDims:  768,
		},
		{
			name: "openai provider creates service",
			settings: domain.EmbeddingSettings{
				Provider: domain.AIProviderOpenAI,
				APIKey:   "test-key",
				Model:    "text-embedding-3-large",
			},
			wantModel: "text-embedding-3-large",
			wantDims:  3072,
		},
		{
			name: "explicit dimensions win",
			settings: domain.EmbeddingSettings{
				Provider:   domain.AIProviderOpenAI,
				APIKey:     "test-key",
				Model:      "text-embedding-3-large",
				Dimensions: 1024,
			},
			wantModel: "text-embedding-3-large",
			wantDims:  1024,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateEmbeddingService(tt.settings)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantModel, svc.ModelName())
			assert.Equal(t, tt.wantDims, svc.Dimensions())
		})
	}
}

func TestCreateAndValidateEmbeddingService(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			_, _ = w.Write([]byte(`{"models":[]}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	svc, err := CreateAndValidateEmbeddingService(context.Background(), domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  server.URL,
	})
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestCreateAndValidateEmbeddingService_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := CreateAndValidateEmbeddingService(context.Background(), domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  url,
	})
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}
