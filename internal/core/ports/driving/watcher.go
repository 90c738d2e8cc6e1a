package driving

import (
	"context"

	"github.com/custodia-labs/trialdex/internal/core/domain"
)

// TrialWatcher appends records to the search table as they change.
type TrialWatcher interface {
	// Watch blocks until ctx is done, calling report after every batch.
	Watch(ctx context.Context, report func(*domain.LoadReport, error)) error
}
