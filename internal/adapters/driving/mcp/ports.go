package mcp

import (
	"github.com/custodia-labs/trialdex/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
type Ports struct {
	// Loader runs loads and owns the search table.
	Loader driving.TrialLoader

	// Search looks up trial ids. Optional; the find tools report
	// domain.ErrFinderUnavailable without it.
	Search driving.TrialSearch
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Loader == nil {
		return ErrMissingLoader
	}
	return nil
}
