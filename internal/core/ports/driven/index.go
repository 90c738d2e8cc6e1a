package driven

import (
	"context"

	"github.com/custodia-labs/trialdex/internal/core/domain"
)

// IndexWriter owns the search table.
//
// Write with domain.LoadModeReload replaces the table contents so that
// readers see either the old rows or the new rows, never a mix; a failed or
// cancelled reload leaves the old rows in place. domain.LoadModeAppend merges
// rows by id and drops stale rows of the documents being written.
//
// Failures are returned as *domain.IndexWriteError.
type IndexWriter interface {
	Write(ctx context.Context, table string, rows []domain.IndexRow, mode domain.LoadMode) error

	// Truncate removes every row. A missing table is not an error.
	Truncate(ctx context.Context, table string) error

	// Count returns the number of rows, or 0 when the table does not exist.
	Count(ctx context.Context, table string) (int, error)

	// Close releases resources.
	Close() error
}
