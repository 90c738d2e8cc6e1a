package trial

import (
	"fmt"

	"github.com/custodia-labs/trialdex/internal/core/domain"
	"github.com/custodia-labs/trialdex/internal/core/ports/driven"
)

// Assembler builds documents from a prepared batch.
type Assembler struct {
	catalog domain.FieldCatalog
}

// NewAssembler creates an assembler for catalog.
func NewAssembler(catalog domain.FieldCatalog) *Assembler {
	return &Assembler{catalog: catalog}
}

// Assemble partitions the batch keys once per channel and returns one
// document per record, in input order.
func (a *Assembler) Assemble(batch []driven.PreparedRecord) ([]domain.Document, error) {
	extracted := make([]domain.ExtractedRecord, len(batch))
	for i, p := range batch {
		extracted[i] = p.Extracted
	}

	_, llmHidden := Partition(extracted, a.catalog.LLMVisible)
	_, embedHidden := Partition(extracted, a.catalog.EmbeddingVisible)

	docs := make([]domain.Document, len(batch))
	for i, p := range batch {
		id, ok := p.Extracted.Get(a.catalog.Identifier)
		if !ok || id == "" {
			return nil, &domain.MissingIdentifierError{Field: a.catalog.Identifier, Source: p.Source}
		}
		docs[i] = domain.Document{
			ID:              id,
			Content:         p.Content,
			Metadata:        p.Extracted,
			LLMHiddenKeys:   llmHidden,
			EmbedHiddenKeys: embedHidden,
		}
	}
	return docs, nil
}

// checkUnique reports the first identifier that appears twice in docs.
func checkUnique(docs []domain.Document) error {
	seen := make(map[string]bool, len(docs))
	for _, d := range docs {
		if seen[d.ID] {
			return fmt.Errorf("%w: record %s appears twice in the batch", domain.ErrInvalidInput, d.ID)
		}
		seen[d.ID] = true
	}
	return nil
}
