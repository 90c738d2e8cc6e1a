// Package domain defines the core business entities for trialdex.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Value: A parsed registry record, an ordered JSON tree
//   - Path: A route to one node of a Value
//   - FieldCatalog: The declarative extraction schema
//   - Document: A normalised record with metadata and content
//   - Chunk: A window of document content sent for embedding
//   - IndexRow: What reaches the search table
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
