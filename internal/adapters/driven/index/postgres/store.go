package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/trialdex/internal/core/domain"
	"github.com/custodia-labs/trialdex/internal/core/ports/driven"
	"github.com/custodia-labs/trialdex/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.IndexWriter = (*Store)(nil)

// Store writes index rows to Postgres.
type Store struct {
	pool       *pgxpool.Pool
	dims       int
	textSearch string
	log        *logger.Logger
}

// New connects to the database, enables the vector extension and returns a
// store whose vector columns are dims wide.
func New(ctx context.Context, settings domain.IndexSettings, dims int) (*Store, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("%w: embedding dimensions must be positive", domain.ErrInvalidInput)
	}
	textSearch := settings.TextSearchConfig
	if textSearch == "" {
		textSearch = "english"
	}
	if !textSearchConfigPattern.MatchString(textSearch) {
		return nil, fmt.Errorf("%w: text search config %q", domain.ErrInvalidInput, textSearch)
	}

	cfg, err := pgxpool.ParseConfig(settings.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create vector extension: %w", err)
	}

	return &Store{
		pool:       pool,
		dims:       dims,
		textSearch: textSearch,
		log:        logger.Named("postgres"),
	}, nil
}

// Write stores rows according to mode. Both modes run in one transaction.
func (s *Store) Write(ctx context.Context, table string, rows []domain.IndexRow, mode domain.LoadMode) error {
	if !mode.IsValid() {
		return &domain.IndexWriteError{Table: table, Op: "write", Err: domain.ErrInvalidInput}
	}
	for _, r := range rows {
		if r.Embedding != nil && len(r.Embedding) != s.dims {
			return &domain.IndexWriteError{Table: table, Op: string(mode), Err: fmt.Errorf("%w: row %s has %d dimensions, table has %d",
				domain.ErrInvalidInput, r.ID, len(r.Embedding), s.dims)}
		}
	}

	var err error
	switch mode {
	case domain.LoadModeReload:
		err = s.inTx(ctx, func(tx pgx.Tx) error { return s.reload(ctx, tx, table, rows) })
	case domain.LoadModeAppend:
		err = s.inTx(ctx, func(tx pgx.Tx) error { return s.appendRows(ctx, tx, table, rows) })
	}
	if err != nil {
		return &domain.IndexWriteError{Table: table, Op: string(mode), Err: err}
	}
	s.log.Debug("%s: wrote %d rows to %s", mode, len(rows), table)
	return nil
}

func (s *Store) reload(ctx context.Context, tx pgx.Tx, table string, rows []domain.IndexRow) error {
	staging := table + stagingSuffix

	if _, err := tx.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, ident(staging))); err != nil {
		return fmt.Errorf("drop staging table: %w", err)
	}
	if err := s.createTable(ctx, tx, staging); err != nil {
		return err
	}
	if err := insertRows(ctx, tx, staging, rows); err != nil {
		return err
	}
	for _, stmt := range swapSQL(table) {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("swap staging table: %w", err)
		}
	}
	return nil
}

func (s *Store) appendRows(ctx context.Context, tx pgx.Tx, table string, rows []domain.IndexRow) error {
	if err := s.createTable(ctx, tx, table); err != nil {
		return err
	}

	docs := make([]string, 0, len(rows))
	seen := make(map[string]bool)
	for _, r := range rows {
		if !seen[r.DocumentID] {
			seen[r.DocumentID] = true
			docs = append(docs, r.DocumentID)
		}
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE document_id = ANY($1)`, ident(table)), docs); err != nil {
		return fmt.Errorf("delete stale rows: %w", err)
	}

	return insertRows(ctx, tx, table, rows)
}

func (s *Store) createTable(ctx context.Context, tx pgx.Tx, table string) error {
	if _, err := tx.Exec(ctx, createTableSQL(table, s.dims, s.textSearch)); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	for _, stmt := range createIndexesSQL(table) {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}

func insertRows(ctx context.Context, tx pgx.Tx, table string, rows []domain.IndexRow) error {
	if len(rows) == 0 {
		return nil
	}

	query := insertSQL(table)
	batch := &pgx.Batch{}
	for _, r := range rows {
		metadata := r.Metadata
		if metadata == nil {
			metadata = map[string]string{}
		}
		var embedding *pgvector.Vector
		if r.Embedding != nil {
			v := pgvector.NewVector(r.Embedding)
			embedding = &v
		}
		batch.Queue(query, r.ID, r.DocumentID, r.Position, r.Text, metadata, embedding)
	}

	results := tx.SendBatch(ctx, batch)
	for range rows {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("insert rows: %w", err)
		}
	}
	return results.Close()
}

func (s *Store) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.log.Warn("rollback: %v", rbErr)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Truncate removes every row. A missing table is not an error.
func (s *Store) Truncate(ctx context.Context, table string) error {
	exists, err := s.exists(ctx, table)
	if err != nil {
		return &domain.IndexWriteError{Table: table, Op: "truncate", Err: err}
	}
	if !exists {
		return nil
	}
	if _, err := s.pool.Exec(ctx, fmt.Sprintf(`TRUNCATE TABLE %s`, ident(table))); err != nil {
		return &domain.IndexWriteError{Table: table, Op: "truncate", Err: err}
	}
	return nil
}

// Count returns the number of rows, or 0 when the table does not exist.
func (s *Store) Count(ctx context.Context, table string) (int, error) {
	exists, err := s.exists(ctx, table)
	if err != nil || !exists {
		return 0, err
	}

	var n int
	if err := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM %s`, ident(table))).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

func (s *Store) exists(ctx context.Context, table string) (bool, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, ident(table)).Scan(&exists); err != nil {
		return false, fmt.Errorf("lookup table %s: %w", table, err)
	}
	return exists, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
