package postprocessors

import (
	"fmt"
	"sort"

	"github.com/custodia-labs/trialdex/internal/core/domain"
	"github.com/custodia-labs/trialdex/internal/core/ports/driven"
)

// BuilderFunc creates a PostProcessor from generic config.
// Config is a map of processor-specific settings parsed from user config.
type BuilderFunc func(cfg map[string]any) (driven.PostProcessor, error)

// Registry maps processor names to their builders.
type Registry struct {
	builders map[string]BuilderFunc
}

// NewRegistry creates an empty processor registry.
func NewRegistry() *Registry {
	return &Registry{
		builders: make(map[string]BuilderFunc),
	}
}

// Register adds a processor builder to the registry.
// Name should match the processor's Name() return value.
func (r *Registry) Register(name string, builder BuilderFunc) {
	r.builders[name] = builder
}

// Build creates a processor by name with the given config.
func (r *Registry) Build(name string, cfg map[string]any) (driven.PostProcessor, error) {
	builder, ok := r.builders[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown processor %q", domain.ErrInvalidInput, name)
	}
	return builder(cfg)
}

// Has returns true if a processor with the given name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.builders[name]
	return ok
}

// Names returns all registered processor names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BuildPipeline builds the processors listed in cfg, in order.
// An empty list is an error: a load without a chunker produces nothing.
func (r *Registry) BuildPipeline(cfg domain.PipelineConfig) (*Pipeline, error) {
	if len(cfg.Processors) == 0 {
		return nil, fmt.Errorf("%w: pipeline has no processors", domain.ErrInvalidInput)
	}

	pipeline := NewPipeline()
	for _, name := range cfg.Processors {
		proc, err := r.Build(name, cfg.GetProcessorConfig(name))
		if err != nil {
			return nil, fmt.Errorf("build %s: %w", name, err)
		}
		pipeline.Add(proc)
	}
	return pipeline, nil
}
