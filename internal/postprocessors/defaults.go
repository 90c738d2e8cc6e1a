package postprocessors

import (
	"github.com/custodia-labs/trialdex/internal/core/ports/driven"
	"github.com/custodia-labs/trialdex/internal/postprocessors/chunker"
)

// RegisterDefaults registers all built-in processors with the registry.
func RegisterDefaults(r *Registry) {
	r.Register("chunker", buildChunker)
}

// buildChunker creates a chunker processor from generic config.
// Supported config keys:
//   - max_tokens (int): Tokens per chunk (default: 8190)
//   - overlap (int): Tokens shared by adjacent chunks (default: 0)
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option

	if n, ok := getIntFromConfig(cfg, "max_tokens"); ok {
		opts = append(opts, chunker.WithMaxTokens(n))
	}
	if n, ok := getIntFromConfig(cfg, "overlap"); ok {
		opts = append(opts, chunker.WithOverlap(n))
	}

	return chunker.New(opts...)
}

// getIntFromConfig extracts an int from a generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) (int, bool) {
	val, ok := cfg[key]
	if !ok {
		return 0, false
	}

	switch v := val.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
