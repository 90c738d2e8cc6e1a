package cli

import (
	"context"
	"testing"

	"github.com/custodia-labs/trialdex/internal/core/domain"
	"github.com/custodia-labs/trialdex/internal/core/ports/driving"
)

// mockLoader implements driving.TrialLoader for testing.
type mockLoader struct {
	report  *domain.LoadReport
	preview *driving.Preview
	length  int
	err     error

	loadedIDs  []string
	loadedMode domain.LoadMode
	deleted    bool
}

func (m *mockLoader) Load(_ context.Context, ids []string, mode domain.LoadMode) (*domain.LoadReport, error) {
	m.loadedIDs = ids
	m.loadedMode = mode
	return m.report, m.err
}

func (m *mockLoader) Preview(_ context.Context, _ string) (*driving.Preview, error) {
	return m.preview, m.err
}

func (m *mockLoader) IndexLength(_ context.Context) (int, error) {
	return m.length, m.err
}

func (m *mockLoader) DeleteIndex(_ context.Context) error {
	m.deleted = m.err == nil
	return m.err
}

func (m *mockLoader) Status() driving.LoadStatus {
	return driving.LoadStatus{}
}

// mockSearch implements driving.TrialSearch for testing.
type mockSearch struct {
	sponsorIDs []string
	trials     []domain.TrialSummary
	err        error
}

func (m *mockSearch) SponsorTrials(_ context.Context) ([]string, error) {
	return m.sponsorIDs, m.err
}

func (m *mockSearch) MostRecent(_ context.Context, _ string) (*domain.TrialSummary, error) {
	if len(m.trials) == 0 {
		return nil, domain.ErrNotFound
	}
	return &m.trials[0], m.err
}

func (m *mockSearch) ByCondition(_ context.Context, _ string, _ int) ([]domain.TrialSummary, error) {
	return m.trials, m.err
}

// setServices installs loader and search and resets command flags.
// The returned function restores the previous services.
func setServices(t *testing.T, loader driving.TrialLoader, search driving.TrialSearch) func() {
	t.Helper()
	oldLoader, oldSearch, oldWatcher := trialLoader, trialSearch, trialWatcher
	trialLoader, trialSearch, trialWatcher = loader, search, nil

	loadMode, loadSponsorTrials = "", false
	indexDeleteYes = false
	findJSON, findLimit = false, 10
	renderFor = "all"

	return func() {
		trialLoader, trialSearch, trialWatcher = oldLoader, oldSearch, oldWatcher
	}
}

// mockWatcher implements driving.TrialWatcher for testing.
type mockWatcher struct {
	reports []*domain.LoadReport
	errs    []error
}

func (m *mockWatcher) Watch(_ context.Context, report func(*domain.LoadReport, error)) error {
	for i, r := range m.reports {
		report(r, m.errs[i])
	}
	return nil
}
