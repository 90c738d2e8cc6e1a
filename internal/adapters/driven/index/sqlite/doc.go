// Package sqlite provides a local SQLite implementation of driven.IndexWriter.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO. Each search table is stored as a row table plus an FTS5 table
// holding the chunk text for lexical search. Embeddings are stored as
// little-endian float32 blobs.
//
// # Schema
//
// Bookkeeping tables (table dimensions, load history) are managed through
// versioned migrations stored in the migrations/ directory. Search tables
// are created on first write.
//
// # Data Location
//
// By default, the database is stored at ~/.trialdex/data/index.db
//
// # Thread Safety
//
// All operations are thread-safe. Every write runs in one transaction, so
// readers in WAL mode see either the previous rows or the new rows.
package sqlite
