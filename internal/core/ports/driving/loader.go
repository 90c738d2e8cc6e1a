package driving

import (
	"context"

	"github.com/custodia-labs/trialdex/internal/core/domain"
)

// TrialLoader runs batch loads into the search table.
type TrialLoader interface {
	// Load fetches, normalises, chunks, embeds and writes the records named by
	// ids. The batch succeeds as a whole or fails with a single cause; on
	// failure the table is left as it was.
	Load(ctx context.Context, ids []string, mode domain.LoadMode) (*domain.LoadReport, error)

	// Preview fetches and normalises one record without embedding or writing.
	Preview(ctx context.Context, id string) (*Preview, error)

	// IndexLength returns the number of rows in the search table.
	IndexLength(ctx context.Context) (int, error)

	// DeleteIndex removes every row from the search table.
	DeleteIndex(ctx context.Context) error

	// Status returns the progress of the running load, if any.
	Status() LoadStatus
}

// Preview is a normalised record and the chunks it would produce.
type Preview struct {
	Document domain.Document
	Chunks   []domain.Chunk
}

// LoadStatus represents the current state of a load.
type LoadStatus struct {
	// Running indicates if a load is currently in progress.
	Running bool

	// Stage is the step the load is in.
	Stage domain.LoadStage

	// RecordsTotal is the number of ids in the batch.
	RecordsTotal int

	// RecordsFetched is the count of records fetched and extracted.
	RecordsFetched int

	// ChunksTotal is the number of chunks to embed.
	ChunksTotal int

	// ChunksEmbedded is the count of chunks embedded so far.
	ChunksEmbedded int
}
