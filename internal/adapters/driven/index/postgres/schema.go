package postgres

import (
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
)

const stagingSuffix = "_staging"

var textSearchConfigPattern = regexp.MustCompile(`^[a-z_]+$`)

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// relationNames lists the constraint and index names owned by table. They
// follow the table through a staging swap.
func relationNames(table string) []string {
	return []string{table + "_pkey", table + "_document_id_idx", table + "_tsv_idx"}
}

func createTableSQL(table string, dims int, textSearch string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %[1]s (
	id text NOT NULL,
	document_id text NOT NULL,
	position integer NOT NULL,
	text text NOT NULL,
	metadata jsonb NOT NULL DEFAULT '{}'::jsonb,
	embedding vector(%[2]d),
	text_search_tsv tsvector GENERATED ALWAYS AS (to_tsvector('%[3]s'::regconfig, text)) STORED,
	CONSTRAINT %[4]s PRIMARY KEY (id)
)`, ident(table), dims, textSearch, ident(table+"_pkey"))
}

func createIndexesSQL(table string) []string {
	return []string{
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (document_id)`, ident(table+"_document_id_idx"), ident(table)),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s USING gin (text_search_tsv)`, ident(table+"_tsv_idx"), ident(table)),
	}
}

// swapSQL replaces table with its staging copy.
func swapSQL(table string) []string {
	staging := table + stagingSuffix
	stmts := []string{
		fmt.Sprintf(`DROP TABLE IF EXISTS %s`, ident(table)),
		fmt.Sprintf(`ALTER TABLE %s RENAME TO %s`, ident(staging), ident(table)),
	}
	from, to := relationNames(staging), relationNames(table)
	stmts = append(stmts, fmt.Sprintf(`ALTER TABLE %s RENAME CONSTRAINT %s TO %s`, ident(table), ident(from[0]), ident(to[0])))
	for i := 1; i < len(from); i++ {
		stmts = append(stmts, fmt.Sprintf(`ALTER INDEX %s RENAME TO %s`, ident(from[i]), ident(to[i])))
	}
	return stmts
}

func insertSQL(table string) string {
	return fmt.Sprintf(`INSERT INTO %s (id, document_id, position, text, metadata, embedding)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
	document_id = EXCLUDED.document_id,
	position = EXCLUDED.position,
	text = EXCLUDED.text,
	metadata = EXCLUDED.metadata,
	embedding = EXCLUDED.embedding`, ident(table))
}
