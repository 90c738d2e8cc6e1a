package domain

import (
	"fmt"
	"time"
)

// LoadMode says what happens to rows already in the target table.
// There is no default; callers choose one.
type LoadMode string

const (
	// LoadModeReload replaces the table contents with the batch.
	LoadModeReload LoadMode = "reload"

	// LoadModeAppend merges the batch into the table by row id.
	LoadModeAppend LoadMode = "append"
)

// ParseLoadMode validates a user-supplied mode.
func ParseLoadMode(s string) (LoadMode, error) {
	m := LoadMode(s)
	if !m.IsValid() {
		return "", fmt.Errorf("%w: load mode must be %q or %q, got %q",
			ErrInvalidInput, LoadModeReload, LoadModeAppend, s)
	}
	return m, nil
}

// IsValid returns true for reload and append.
func (m LoadMode) IsValid() bool {
	return m == LoadModeReload || m == LoadModeAppend
}

// String returns the string representation.
func (m LoadMode) String() string {
	return string(m)
}

// LoadStage names the step a running load is in.
type LoadStage string

// Load stages, in order.
const (
	LoadStageIdle      LoadStage = "idle"
	LoadStageFetching  LoadStage = "fetching"
	LoadStageAssembly  LoadStage = "assembling"
	LoadStageChunking  LoadStage = "chunking"
	LoadStageEmbedding LoadStage = "embedding"
	LoadStageWriting   LoadStage = "writing"
)

// LoadReport summarises a finished load.
type LoadReport struct {
	// Mode is the mode the load ran with.
	Mode LoadMode

	// Documents is the number of records assembled.
	Documents int

	// Chunks is the number of chunks produced.
	Chunks int

	// RowsWritten is the number of rows sent to the store.
	RowsWritten int

	// Rejected lists chunks the provider refused. They were skipped.
	Rejected []ChunkRejectedError

	// IndexLength is the table row count after the write.
	IndexLength int

	// Duration is the wall time of the load.
	Duration time.Duration
}
