package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/trialdex/internal/core/domain"
)

// LoadInput is the input schema for the load_trials tool.
type LoadInput struct {
	NCTIDs        []string `json:"nct_ids,omitempty" jsonschema:"NCT IDs of the trials to load"`
	Mode          string   `json:"mode" jsonschema:"reload replaces the table contents, append merges into it"`
	SponsorTrials bool     `json:"sponsor_trials,omitempty" jsonschema:"also load the sponsor's completed phase 3 trials"`
}

// LoadOutput is the output schema for the load_trials tool.
type LoadOutput struct {
	Documents   int      `json:"documents"`
	Chunks      int      `json:"chunks"`
	RowsWritten int      `json:"rows_written"`
	Rejected    []string `json:"rejected,omitempty"`
	IndexLength int      `json:"index_length"`
}

// IndexInput is the (empty) input of the index tools.
type IndexInput struct{}

// IndexOutput reports the search table size.
type IndexOutput struct {
	IndexLength int `json:"index_length"`
}

// FindInput is the input schema for the find tools.
type FindInput struct {
	Condition string `json:"condition" jsonschema:"condition or title text to match"`
	Limit     int    `json:"limit,omitempty" jsonschema:"maximum number of trials to return (default 10)"`
}

// FindOutput is the output schema for the find_trials tool.
type FindOutput struct {
	Trials []domain.TrialSummary `json:"trials"`
	Count  int                   `json:"count"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "load_trials",
		Description: "Fetch, normalise, embed and write trials to the search table",
	}, s.handleLoad)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "index_length",
		Description: "Number of rows in the search table",
	}, s.handleIndexLength)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "delete_index",
		Description: "Remove every row from the search table",
	}, s.handleDeleteIndex)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "find_trials",
		Description: "Find the sponsor's completed phase 3 trials for a condition, newest first",
	}, s.handleFindTrials)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "most_recent_trial",
		Description: "The newest of the sponsor's completed phase 3 trials for a condition",
	}, s.handleMostRecent)
}

// handleLoad handles the load_trials tool invocation.
func (s *Server) handleLoad(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input LoadInput,
) (*mcp.CallToolResult, LoadOutput, error) {
	mode, err := domain.ParseLoadMode(input.Mode)
	if err != nil {
		return nil, LoadOutput{}, err
	}

	ids := append([]string{}, input.NCTIDs...)
	if input.SponsorTrials {
		if s.ports.Search == nil {
			return nil, LoadOutput{}, domain.ErrFinderUnavailable
		}
		found, err := s.ports.Search.SponsorTrials(ctx)
		if err != nil {
			return nil, LoadOutput{}, err
		}
		ids = append(ids, found...)
	}

	report, err := s.ports.Loader.Load(ctx, ids, mode)
	if err != nil {
		return nil, LoadOutput{}, err
	}

	output := LoadOutput{
		Documents:   report.Documents,
		Chunks:      report.Chunks,
		RowsWritten: report.RowsWritten,
		IndexLength: report.IndexLength,
	}
	for i := range report.Rejected {
		output.Rejected = append(output.Rejected, report.Rejected[i].Error())
	}
	return nil, output, nil
}

// handleIndexLength handles the index_length tool invocation.
func (s *Server) handleIndexLength(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ IndexInput,
) (*mcp.CallToolResult, IndexOutput, error) {
	n, err := s.ports.Loader.IndexLength(ctx)
	if err != nil {
		return nil, IndexOutput{}, err
	}
	return nil, IndexOutput{IndexLength: n}, nil
}

// handleDeleteIndex handles the delete_index tool invocation.
func (s *Server) handleDeleteIndex(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ IndexInput,
) (*mcp.CallToolResult, IndexOutput, error) {
	if err := s.ports.Loader.DeleteIndex(ctx); err != nil {
		return nil, IndexOutput{}, err
	}
	n, err := s.ports.Loader.IndexLength(ctx)
	if err != nil {
		return nil, IndexOutput{}, err
	}
	return nil, IndexOutput{IndexLength: n}, nil
}

// handleFindTrials handles the find_trials tool invocation.
func (s *Server) handleFindTrials(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input FindInput,
) (*mcp.CallToolResult, FindOutput, error) {
	if s.ports.Search == nil {
		return nil, FindOutput{}, domain.ErrFinderUnavailable
	}

	trials, err := s.ports.Search.ByCondition(ctx, input.Condition, input.Limit)
	if err != nil {
		return nil, FindOutput{}, err
	}
	if trials == nil {
		trials = []domain.TrialSummary{}
	}
	return nil, FindOutput{Trials: trials, Count: len(trials)}, nil
}

// handleMostRecent handles the most_recent_trial tool invocation.
func (s *Server) handleMostRecent(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input FindInput,
) (*mcp.CallToolResult, domain.TrialSummary, error) {
	if s.ports.Search == nil {
		return nil, domain.TrialSummary{}, domain.ErrFinderUnavailable
	}

	trial, err := s.ports.Search.MostRecent(ctx, input.Condition)
	if err != nil {
		return nil, domain.TrialSummary{}, err
	}
	return nil, *trial, nil
}
