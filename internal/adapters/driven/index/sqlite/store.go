package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/trialdex/internal/adapters/driven/index/sqlite/migrations"
	"github.com/custodia-labs/trialdex/internal/core/domain"
	"github.com/custodia-labs/trialdex/internal/core/ports/driven"
	"github.com/custodia-labs/trialdex/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.IndexWriter = (*Store)(nil)

// Store is a SQLite-backed search table store.
type Store struct {
	db   *sql.DB
	path string
	dims int
	log  *logger.Logger
}

// LoadRecord is one entry of a table's write history.
type LoadRecord struct {
	Mode      domain.LoadMode
	Rows      int
	WrittenAt time.Time
}

// NewStore opens the database at path, creating it if needed. If path is
// empty, defaults to ~/.trialdex/data/index.db. dims is the embedding width
// every table in this store must have.
func NewStore(path string, dims int) (*Store, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("%w: embedding dimensions must be positive", domain.ErrInvalidInput)
	}
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		path = filepath.Join(home, ".trialdex", "data", "index.db")
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: path,
		dims: dims,
		log:  logger.Named("sqlite"),
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_index_tables.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// Write stores rows in table according to mode, in one transaction.
func (s *Store) Write(ctx context.Context, table string, rows []domain.IndexRow, mode domain.LoadMode) error {
	if !mode.IsValid() {
		return &domain.IndexWriteError{Table: table, Op: "write", Err: domain.ErrInvalidInput}
	}
	if err := s.write(ctx, table, rows, mode); err != nil {
		return &domain.IndexWriteError{Table: table, Op: string(mode), Err: err}
	}
	s.log.Debug("%s: wrote %d rows to %s", mode, len(rows), table)
	return nil
}

func (s *Store) write(ctx context.Context, table string, rows []domain.IndexRow, mode domain.LoadMode) error {
	for _, r := range rows {
		if r.Embedding != nil && len(r.Embedding) != s.dims {
			return fmt.Errorf("%w: row %s has %d dimensions, table has %d", domain.ErrInvalidInput, r.ID, len(r.Embedding), s.dims)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.log.Warn("rollback: %v", rbErr)
		}
	}()

	if err := s.ensureTable(ctx, tx, table); err != nil {
		return err
	}

	switch mode {
	case domain.LoadModeReload:
		if err := clearTable(ctx, tx, table); err != nil {
			return err
		}
	case domain.LoadModeAppend:
		if err := deleteDocuments(ctx, tx, table, rows); err != nil {
			return err
		}
	}

	if err := insertRows(ctx, tx, table, rows); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO load_history (table_name, mode, rows) VALUES (?, ?, ?)`,
		table, string(mode), len(rows)); err != nil {
		return fmt.Errorf("recording load: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ensureTable creates table and its FTS5 companion, and checks its recorded
// width matches the store.
func (s *Store) ensureTable(ctx context.Context, tx *sql.Tx, table string) error {
	var dims int
	err := tx.QueryRowContext(ctx, `SELECT dimensions FROM index_tables WHERE name = ?`, table).Scan(&dims)
	switch {
	case err == nil:
		if dims != s.dims {
			return fmt.Errorf("%w: table has %d dimensions, store has %d", domain.ErrInvalidInput, dims, s.dims)
		}
		return nil
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("looking up table: %w", err)
	}

	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			text TEXT NOT NULL,
			metadata TEXT NOT NULL DEFAULT '{}',
			embedding BLOB
		)`, quote(table)),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s(document_id)`, quote(table+"_document_id_idx"), quote(table)),
		fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS %s USING fts5(id UNINDEXED, text)`, quote(ftsTable(table))),
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating table: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO index_tables (name, dimensions) VALUES (?, ?)`, table, s.dims); err != nil {
		return fmt.Errorf("registering table: %w", err)
	}
	return nil
}

func clearTable(ctx context.Context, tx *sql.Tx, table string) error {
	for _, t := range []string{table, ftsTable(table)} {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, quote(t))); err != nil {
			return fmt.Errorf("clearing %s: %w", t, err)
		}
	}
	return nil
}

// deleteDocuments removes every row belonging to a document in rows.
func deleteDocuments(ctx context.Context, tx *sql.Tx, table string, rows []domain.IndexRow) error {
	seen := make(map[string]bool)
	for _, r := range rows {
		if seen[r.DocumentID] {
			continue
		}
		seen[r.DocumentID] = true

		if _, err := tx.ExecContext(ctx, fmt.Sprintf(
			`DELETE FROM %s WHERE id IN (SELECT id FROM %s WHERE document_id = ?)`,
			quote(ftsTable(table)), quote(table)), r.DocumentID); err != nil {
			return fmt.Errorf("deleting stale text: %w", err)
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE document_id = ?`, quote(table)), r.DocumentID); err != nil {
			return fmt.Errorf("deleting stale rows: %w", err)
		}
	}
	return nil
}

func insertRows(ctx context.Context, tx *sql.Tx, table string, rows []domain.IndexRow) error {
	if len(rows) == 0 {
		return nil
	}

	upsert, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, document_id, position, text, metadata, embedding)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document_id = excluded.document_id,
			position = excluded.position,
			text = excluded.text,
			metadata = excluded.metadata,
			embedding = excluded.embedding
	`, quote(table)))
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer upsert.Close()

	dropText, err := tx.PrepareContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, quote(ftsTable(table))))
	if err != nil {
		return fmt.Errorf("preparing text delete: %w", err)
	}
	defer dropText.Close()

	addText, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %s (id, text) VALUES (?, ?)`, quote(ftsTable(table))))
	if err != nil {
		return fmt.Errorf("preparing text insert: %w", err)
	}
	defer addText.Close()

	for _, r := range rows {
		metadata := r.Metadata
		if metadata == nil {
			metadata = map[string]string{}
		}
		metadataJSON, err := json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("marshalling metadata: %w", err)
		}

		if _, err := upsert.ExecContext(ctx, r.ID, r.DocumentID, r.Position, r.Text,
			string(metadataJSON), float32SliceToBytes(r.Embedding)); err != nil {
			return fmt.Errorf("inserting row %s: %w", r.ID, err)
		}
		if _, err := dropText.ExecContext(ctx, r.ID); err != nil {
			return fmt.Errorf("replacing text %s: %w", r.ID, err)
		}
		if _, err := addText.ExecContext(ctx, r.ID, r.Text); err != nil {
			return fmt.Errorf("indexing text %s: %w", r.ID, err)
		}
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

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.IndexWriteError{Table: table, Op: "truncate", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	if err := clearTable(ctx, tx, table); err != nil {
		return &domain.IndexWriteError{Table: table, Op: "truncate", Err: err}
	}
	if err := tx.Commit(); err != nil {
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
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, quote(table))).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s: %w", table, err)
	}
	return n, nil
}

// Rows returns every row of table ordered by document and position.
func (s *Store) Rows(ctx context.Context, table string) ([]domain.IndexRow, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT id, document_id, position, text, metadata, embedding FROM %s ORDER BY document_id, position`,
		quote(table)))
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", table, err)
	}
	defer rows.Close()

	var result []domain.IndexRow
	for rows.Next() {
		var r domain.IndexRow
		var metadataJSON string
		var embedding []byte
		if err := rows.Scan(&r.ID, &r.DocumentID, &r.Position, &r.Text, &metadataJSON, &embedding); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if err := json.Unmarshal([]byte(metadataJSON), &r.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshalling metadata: %w", err)
		}
		r.Embedding = bytesToFloat32Slice(embedding)
		result = append(result, r)
	}
	return result, rows.Err()
}

// History returns the writes recorded for table, oldest first.
func (s *Store) History(ctx context.Context, table string) ([]LoadRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT mode, rows, written_at FROM load_history WHERE table_name = ? ORDER BY id`, table)
	if err != nil {
		return nil, fmt.Errorf("querying load history: %w", err)
	}
	defer rows.Close()

	var history []LoadRecord
	for rows.Next() {
		var rec LoadRecord
		var mode string
		var writtenAt sql.NullTime
		if err := rows.Scan(&mode, &rec.Rows, &writtenAt); err != nil {
			return nil, fmt.Errorf("scanning load history: %w", err)
		}
		rec.Mode = domain.LoadMode(mode)
		rec.WrittenAt = writtenAt.Time
		history = append(history, rec)
	}
	return history, rows.Err()
}

func (s *Store) exists(ctx context.Context, table string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM index_tables WHERE name = ?`, table).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("looking up table %s: %w", table, err)
	}
	return n > 0, nil
}

// ==================== Helper Functions ====================

func ftsTable(table string) string {
	return table + "_fts"
}

// quote returns name as a double-quoted SQLite identifier.
func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
