package trial

import (
	"errors"

	"github.com/custodia-labs/trialdex/internal/core/domain"
	"github.com/custodia-labs/trialdex/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser turns ClinicalTrials.gov study records into documents.
type Normaliser struct {
	extractor *Extractor
	assembler *Assembler
	sep       string
}

// New creates a normaliser for catalog, joining flattened keys with sep.
func New(catalog domain.FieldCatalog, sep string) (*Normaliser, error) {
	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	if sep == "" {
		sep = " "
	}
	return &Normaliser{
		extractor: NewExtractor(catalog),
		assembler: NewAssembler(catalog),
		sep:       sep,
	}, nil
}

// Prepare extracts the catalog fields and formats the whole record.
func (n *Normaliser) Prepare(source string, raw domain.Value) (*driven.PreparedRecord, error) {
	extracted, err := n.extractor.Extract(raw)
	if err != nil {
		var mie *domain.MissingIdentifierError
		if errors.As(err, &mie) {
			mie.Source = source
		}
		return nil, err
	}

	return &driven.PreparedRecord{
		Source:    source,
		Extracted: extracted,
		Content:   Format(Flatten(raw, "", n.sep), n.sep),
	}, nil
}

// Assemble builds documents for the batch and rejects duplicate identifiers.
func (n *Normaliser) Assemble(batch []driven.PreparedRecord) ([]domain.Document, error) {
	docs, err := n.assembler.Assemble(batch)
	if err != nil {
		return nil, err
	}
	if err := checkUnique(docs); err != nil {
		return nil, err
	}
	return docs, nil
}
