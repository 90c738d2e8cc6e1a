package driven

import (
	"context"

	"github.com/custodia-labs/trialdex/internal/core/domain"
)

// RecordSource fetches one raw registry record by its identifier.
//
// Fetch returns domain.ErrNotFound (wrapped) when the registry has no such
// record. Any error aborts the batch the record belongs to.
type RecordSource interface {
	Fetch(ctx context.Context, id string) (domain.Value, error)
}

// RecordWatcher reports the identifiers of records that appear or change
// in the source. The channel is closed when ctx is done.
type RecordWatcher interface {
	Watch(ctx context.Context) (<-chan string, error)
}
