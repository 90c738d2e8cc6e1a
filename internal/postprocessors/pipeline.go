// Package postprocessors turns assembled documents into chunks.
package postprocessors

import (
	"context"
	"fmt"

	"github.com/custodia-labs/trialdex/internal/core/domain"
	"github.com/custodia-labs/trialdex/internal/core/ports/driven"
)

// Ensure Pipeline implements the interface.
var _ driven.PostProcessorPipeline = (*Pipeline)(nil)

// Pipeline chains PostProcessors and runs them in order.
type Pipeline struct {
	processors []driven.PostProcessor
}

// NewPipeline creates a pipeline running processors in the order given.
func NewPipeline(processors ...driven.PostProcessor) *Pipeline {
	return &Pipeline{
		processors: processors,
	}
}

// Process runs the document through every processor. The first processor
// receives nil chunks and creates them; later ones may rewrite them.
// Every returned chunk must belong to doc.
func (p *Pipeline) Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: document is nil", domain.ErrInvalidInput)
	}

	var chunks []domain.Chunk
	for _, processor := range p.processors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var err error
		chunks, err = processor.Process(ctx, doc, chunks)
		if err != nil {
			return nil, fmt.Errorf("processor %s: %w", processor.Name(), err)
		}
	}

	for i := range chunks {
		if chunks[i].DocumentID != doc.ID {
			return nil, fmt.Errorf("%w: chunk %s belongs to %q, not %q",
				domain.ErrInvalidInput, chunks[i].ID, chunks[i].DocumentID, doc.ID)
		}
	}
	return chunks, nil
}

// Add appends a processor to the pipeline.
func (p *Pipeline) Add(processor driven.PostProcessor) {
	p.processors = append(p.processors, processor)
}

// Len returns the number of processors in the pipeline.
func (p *Pipeline) Len() int {
	return len(p.processors)
}

// Names returns the processor names in run order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.processors))
	for i, proc := range p.processors {
		names[i] = proc.Name()
	}
	return names
}
