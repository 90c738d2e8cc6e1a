package mcp

import (
	"context"

	"github.com/custodia-labs/trialdex/internal/core/domain"
	"github.com/custodia-labs/trialdex/internal/core/ports/driving"
)

// mockLoader is a mock implementation of driving.TrialLoader.
type mockLoader struct {
	report  *domain.LoadReport
	preview *driving.Preview
	length  int
	status  driving.LoadStatus
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
	if m.err == nil {
		m.deleted = true
		m.length = 0
	}
	return m.err
}

func (m *mockLoader) Status() driving.LoadStatus {
	return m.status
}

// mockSearch is a mock implementation of driving.TrialSearch.
type mockSearch struct {
	sponsorIDs []string
	trials     []domain.TrialSummary
	err        error

	condition string
	limit     int
}

func (m *mockSearch) SponsorTrials(_ context.Context) ([]string, error) {
	return m.sponsorIDs, m.err
}

func (m *mockSearch) MostRecent(_ context.Context, condition string) (*domain.TrialSummary, error) {
	m.condition = condition
	if m.err != nil {
		return nil, m.err
	}
	if len(m.trials) == 0 {
		return nil, domain.ErrNotFound
	}
	return &m.trials[0], nil
}

func (m *mockSearch) ByCondition(_ context.Context, condition string, limit int) ([]domain.TrialSummary, error) {
	m.condition = condition
	m.limit = limit
	return m.trials, m.err
}
