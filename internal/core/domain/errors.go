package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrLoadInProgress indicates a load is already running.
	ErrLoadInProgress = errors.New("load in progress")

	// ErrRateLimited indicates the registry rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrMissingField indicates a path did not resolve inside a record.
	// Extraction absorbs it into the field default; it never ends a batch.
	ErrMissingField = errors.New("missing field")

	// ErrMissingIdentifier indicates a record has no value for the identifier field.
	ErrMissingIdentifier = errors.New("missing identifier")

	// ErrContentRejected indicates the embedding provider refused an input.
	ErrContentRejected = errors.New("content rejected by embedding provider")

	// ErrProviderUnavailable indicates the embedding provider could not be reached
	// or kept failing after retries.
	ErrProviderUnavailable = errors.New("embedding provider unavailable")

	// ErrIndexWrite indicates the target store refused a write.
	ErrIndexWrite = errors.New("index write failed")

	// ErrTooManyRejections indicates more chunks were rejected than the
	// configured failure ratio allows.
	ErrTooManyRejections = errors.New("too many rejected chunks")

	// ErrFinderUnavailable indicates the trial finder database is not configured.
	ErrFinderUnavailable = errors.New("trial finder unavailable")
)

// MissingFieldError records where a path stopped resolving.
type MissingFieldError struct {
	Path  Path
	Depth int
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing field: %s (stopped at segment %d)", e.Path, e.Depth)
}

// Is matches ErrMissingField.
func (e *MissingFieldError) Is(target error) bool { return target == ErrMissingField }

// MissingIdentifierError is returned when a record in a batch has no
// identifier. The whole batch fails.
type MissingIdentifierError struct {
	// Field is the catalog field designated as identifier.
	Field string
	// Source is the id the record was requested under, if known.
	Source string
}

func (e *MissingIdentifierError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("record %q: identifier field %q is missing", e.Source, e.Field)
	}
	return fmt.Sprintf("identifier field %q is missing", e.Field)
}

// Is matches ErrMissingIdentifier.
func (e *MissingIdentifierError) Is(target error) bool { return target == ErrMissingIdentifier }

// ChunkRejectedError is returned when the provider refuses one chunk.
// Only that chunk fails.
type ChunkRejectedError struct {
	ChunkID    string
	DocumentID string
	Err        error
}

func (e *ChunkRejectedError) Error() string {
	return fmt.Sprintf("chunk %s of %s rejected: %v", e.ChunkID, e.DocumentID, e.Err)
}

func (e *ChunkRejectedError) Unwrap() error { return e.Err }

// Is matches ErrContentRejected.
func (e *ChunkRejectedError) Is(target error) bool { return target == ErrContentRejected }

// ProviderUnavailableError is a transient provider failure. Adapters return it
// for retryable conditions; the embedder returns it once retries run out.
type ProviderUnavailableError struct {
	Provider string
	Attempts int
	Err      error
}

func (e *ProviderUnavailableError) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("%s unavailable after %d attempts: %v", e.Provider, e.Attempts, e.Err)
	}
	return fmt.Sprintf("%s unavailable: %v", e.Provider, e.Err)
}

func (e *ProviderUnavailableError) Unwrap() error { return e.Err }

// Is matches ErrProviderUnavailable.
func (e *ProviderUnavailableError) Is(target error) bool { return target == ErrProviderUnavailable }

// IndexWriteError wraps a store failure with the table and operation.
type IndexWriteError struct {
	Table string
	Op    string
	Err   error
}

func (e *IndexWriteError) Error() string {
	return fmt.Sprintf("index %s %s: %v", e.Table, e.Op, e.Err)
}

func (e *IndexWriteError) Unwrap() error { return e.Err }

// Is matches ErrIndexWrite.
func (e *IndexWriteError) Is(target error) bool { return target == ErrIndexWrite }

// RejectionThresholdError fails a batch when rejected chunks exceed the
// configured ratio.
type RejectionThresholdError struct {
	Rejected int
	Total    int
	MaxRatio float64
}

func (e *RejectionThresholdError) Error() string {
	return fmt.Sprintf("%d of %d chunks rejected (max ratio %.2f)", e.Rejected, e.Total, e.MaxRatio)
}

// Is matches ErrTooManyRejections.
func (e *RejectionThresholdError) Is(target error) bool { return target == ErrTooManyRejections }

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrProviderUnavailable) || errors.Is(err, ErrRateLimited)
}
