package driving

import (
	"context"

	"github.com/custodia-labs/trialdex/internal/core/domain"
)

// TrialSearch looks up trial identifiers in the registry database.
type TrialSearch interface {
	// SponsorTrials returns ids of the configured sponsor's completed phase 3 trials.
	SponsorTrials(ctx context.Context) ([]string, error)

	// MostRecent returns the newest matching trial for a condition.
	MostRecent(ctx context.Context, condition string) (*domain.TrialSummary, error)

	// ByCondition returns up to limit matching trials, newest first.
	ByCondition(ctx context.Context, condition string, limit int) ([]domain.TrialSummary, error)
}
