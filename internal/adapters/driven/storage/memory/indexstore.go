package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/trialdex/internal/core/domain"
	"github.com/custodia-labs/trialdex/internal/core/ports/driven"
)

// Ensure IndexStore implements the interface.
var _ driven.IndexWriter = (*IndexStore)(nil)

// IndexStore is an in-memory implementation of driven.IndexWriter.
// It backs dry runs and tests.
type IndexStore struct {
	mu     sync.RWMutex
	tables map[string]map[string]domain.IndexRow

	// failWith makes the next Write fail. Tests only.
	failWith error
}

// NewIndexStore creates a new in-memory index store.
func NewIndexStore() *IndexStore {
	return &IndexStore{
		tables: make(map[string]map[string]domain.IndexRow),
	}
}

// Write stores rows in table according to mode.
func (s *IndexStore) Write(ctx context.Context, table string, rows []domain.IndexRow, mode domain.LoadMode) error {
	if !mode.IsValid() {
		return &domain.IndexWriteError{Table: table, Op: "write", Err: domain.ErrInvalidInput}
	}
	if err := ctx.Err(); err != nil {
		return &domain.IndexWriteError{Table: table, Op: string(mode), Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWith != nil {
		err := s.failWith
		s.failWith = nil
		return &domain.IndexWriteError{Table: table, Op: string(mode), Err: err}
	}

	switch mode {
	case domain.LoadModeReload:
		fresh := make(map[string]domain.IndexRow, len(rows))
		for _, r := range rows {
			fresh[r.ID] = copyRow(r)
		}
		s.tables[table] = fresh

	case domain.LoadModeAppend:
		current, ok := s.tables[table]
		if !ok {
			current = make(map[string]domain.IndexRow)
			s.tables[table] = current
		}
		docs := make(map[string]bool)
		for _, r := range rows {
			docs[r.DocumentID] = true
		}
		for id, r := range current {
			if docs[r.DocumentID] {
				delete(current, id)
			}
		}
		for _, r := range rows {
			current[r.ID] = copyRow(r)
		}
	}
	return nil
}

// Truncate removes every row in table.
func (s *IndexStore) Truncate(_ context.Context, table string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[table]; ok {
		s.tables[table] = make(map[string]domain.IndexRow)
	}
	return nil
}

// Count returns the number of rows in table.
func (s *IndexStore) Count(_ context.Context, table string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tables[table]), nil
}

// Rows returns the rows of table ordered by document and position.
func (s *IndexStore) Rows(table string) []domain.IndexRow {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]domain.IndexRow, 0, len(s.tables[table]))
	for _, r := range s.tables[table] {
		rows = append(rows, copyRow(r))
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].DocumentID != rows[j].DocumentID {
			return rows[i].DocumentID < rows[j].DocumentID
		}
		return rows[i].Position < rows[j].Position
	})
	return rows
}

// FailNextWrite makes the next Write return err without touching the table.
func (s *IndexStore) FailNextWrite(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

// Close is a no-op.
func (s *IndexStore) Close() error {
	return nil
}

func copyRow(r domain.IndexRow) domain.IndexRow {
	if r.Metadata != nil {
		m := make(map[string]string, len(r.Metadata))
		for k, v := range r.Metadata {
			m[k] = v
		}
		r.Metadata = m
	}
	if r.Embedding != nil {
		r.Embedding = append([]float32(nil), r.Embedding...)
	}
	return r
}
