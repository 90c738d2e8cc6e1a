package trial

import "github.com/custodia-labs/trialdex/internal/core/domain"

// Extractor applies a FieldCatalog to raw records.
type Extractor struct {
	catalog domain.FieldCatalog
}

// NewExtractor creates an extractor. The catalog must already be valid.
func NewExtractor(catalog domain.FieldCatalog) *Extractor {
	return &Extractor{catalog: catalog}
}

// Extract returns one value per declared field, in catalog order, followed
// by the expanded repeat fields. Missing paths take the field default.
// A record without an identifier yields *domain.MissingIdentifierError.
func (e *Extractor) Extract(raw domain.Value) (domain.ExtractedRecord, error) {
	var rec domain.ExtractedRecord

	for _, f := range e.catalog.Fields {
		rec.Set(f.Name, domain.Get(raw, f.Path, f.Default))
	}

	for _, r := range e.catalog.Repeats {
		arr, err := domain.Lookup(raw, r.Array)
		if err != nil {
			continue
		}
		for i, item := range arr.Items() {
			for _, f := range r.Fields {
				rec.Set(f.ExpandName(i), domain.Get(item, f.Path, f.Default))
			}
		}
	}

	if !e.hasIdentifier(raw) {
		return domain.ExtractedRecord{}, &domain.MissingIdentifierError{Field: e.catalog.Identifier}
	}
	return rec, nil
}

func (e *Extractor) hasIdentifier(raw domain.Value) bool {
	for _, f := range e.catalog.Fields {
		if f.Name != e.catalog.Identifier {
			continue
		}
		node, err := domain.Lookup(raw, f.Path)
		return err == nil && !node.IsNull() && node.Text() != ""
	}
	return false
}
