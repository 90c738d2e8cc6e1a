package driven

import "github.com/custodia-labs/trialdex/internal/core/domain"

// Normaliser turns raw registry records into documents.
//
// Normalisation has two phases. Prepare runs per record and may run
// concurrently. Assemble needs the whole batch, because metadata visibility
// is decided once for all records.
type Normaliser interface {
	// Prepare extracts and formats one record. It fails only when the record
	// has no identifier (*domain.MissingIdentifierError).
	Prepare(source string, raw domain.Value) (*PreparedRecord, error)

	// Assemble builds one document per prepared record, in input order.
	Assemble(batch []PreparedRecord) ([]domain.Document, error)
}

// PreparedRecord is a record that has been extracted and formatted.
type PreparedRecord struct {
	// Source is the id the record was requested under.
	Source string

	// Extracted holds the catalog fields.
	Extracted domain.ExtractedRecord

	// Content is the formatted flattening of the raw record.
	Content string
}
