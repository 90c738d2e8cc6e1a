package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/trialdex/internal/core/domain"
	"github.com/custodia-labs/trialdex/internal/core/ports/driven"
	"github.com/custodia-labs/trialdex/internal/core/ports/driving"
	"github.com/custodia-labs/trialdex/internal/logger"
)

// Ensure TrialSearchService implements the interface.
var _ driving.TrialSearch = (*TrialSearchService)(nil)

// DefaultFindLimit caps ByCondition when the caller passes no limit.
const DefaultFindLimit = 10

// TrialSearchService answers trial lookups against the registry database
// for a single sponsor.
type TrialSearchService struct {
	finder  driven.TrialFinder
	sponsor string
	log     *logger.Logger
}

// NewTrialSearchService creates a search service.
// The finder may be nil when no database credentials are configured; every
// call then fails with domain.ErrFinderUnavailable.
func NewTrialSearchService(finder driven.TrialFinder, sponsor string) *TrialSearchService {
	return &TrialSearchService{
		finder:  finder,
		sponsor: sponsor,
		log:     logger.Named("finder"),
	}
}

// SponsorTrials returns the sponsor's completed phase 3 trials.
func (s *TrialSearchService) SponsorTrials(ctx context.Context) ([]string, error) {
	if s.finder == nil {
		return nil, domain.ErrFinderUnavailable
	}

	ids, err := s.finder.CompletedPhase3(ctx, s.sponsor)
	if err != nil {
		return nil, fmt.Errorf("sponsor trials: %w", err)
	}
	s.log.Info("found %d completed phase 3 trials for %s", len(ids), s.sponsor)
	return ids, nil
}

// MostRecent returns the newest trial for condition, or domain.ErrNotFound.
func (s *TrialSearchService) MostRecent(ctx context.Context, condition string) (*domain.TrialSummary, error) {
	trials, err := s.ByCondition(ctx, condition, 1)
	if err != nil {
		return nil, err
	}
	if len(trials) == 0 {
		return nil, fmt.Errorf("no trial for condition %q: %w", condition, domain.ErrNotFound)
	}
	return &trials[0], nil
}

// ByCondition returns up to limit trials for condition, newest first.
func (s *TrialSearchService) ByCondition(ctx context.Context, condition string, limit int) ([]domain.TrialSummary, error) {
	if s.finder == nil {
		return nil, domain.ErrFinderUnavailable
	}

	condition = strings.TrimSpace(condition)
	if condition == "" {
		return nil, fmt.Errorf("%w: condition is required", domain.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = DefaultFindLimit
	}

	trials, err := s.finder.MostRecentByCondition(ctx, s.sponsor, condition, limit)
	if err != nil {
		return nil, fmt.Errorf("trials for %q: %w", condition, err)
	}
	s.log.Debug("%d trials for %q", len(trials), condition)
	return trials, nil
}
