// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - RecordSource: Fetches raw trial records by identifier
//   - EmbeddingService: Generates vector embeddings for chunks
//   - IndexWriter: Writes, truncates and counts the search table
//   - PostProcessorPipeline: Splits documents into chunks
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - TrialFinder: Registry database queries. Without it, sponsor and
//     condition lookups are disabled and ids must be given explicitly.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
