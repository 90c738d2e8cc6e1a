// Package postgres writes the search table to Postgres with pgvector.
//
// The table carries the chunk text, its metadata as jsonb, the embedding as
// a vector column and a generated tsvector for lexical search, so one table
// serves hybrid retrieval.
//
// A reload builds a staging table inside one transaction and swaps it in on
// commit. Readers keep seeing the previous rows until the commit, and a
// failed or cancelled reload rolls back to them.
package postgres
