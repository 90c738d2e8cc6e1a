package driven

import (
	"context"

	"github.com/custodia-labs/trialdex/internal/core/domain"
)

// TrialFinder queries the registry database for trial identifiers.
type TrialFinder interface {
	// CompletedPhase3 returns the NCT IDs of completed interventional phase 3
	// trials with a reported p-value whose lead sponsor is sponsor.
	CompletedPhase3(ctx context.Context, sponsor string) ([]string, error)

	// MostRecentByCondition returns the same population narrowed to trials whose
	// condition or brief title mentions condition, newest first.
	MostRecentByCondition(ctx context.Context, sponsor, condition string, limit int) ([]domain.TrialSummary, error)

	// Close releases the connection pool.
	Close() error
}
