package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/trialdex/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for trialdex resources.
	uriScheme = "trialdex://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "status",
		Name:        "load-status",
		Description: "Progress of the running load",
		MIMEType:    "application/json",
	}, s.handleStatusResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "trials/{nctId}",
		Name:        "trial-document",
		Description: "A trial normalised to a document, as the language model sees it",
		MIMEType:    "text/plain",
	}, s.handleTrialResource)
}

// handleStatusResource returns the load status as JSON.
func (s *Server) handleStatusResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	status := s.ports.Loader.Status()

	data, err := json.MarshalIndent(map[string]any{
		"running":         status.Running,
		"stage":           status.Stage,
		"records_total":   status.RecordsTotal,
		"records_fetched": status.RecordsFetched,
		"chunks_total":    status.ChunksTotal,
		"chunks_embedded": status.ChunksEmbedded,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling status: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleTrialResource fetches and renders one trial without writing it.
func (s *Server) handleTrialResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	nctID := extractTrialID(req.Params.URI)
	if nctID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	preview, err := s.ports.Loader.Preview(ctx, nctID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("rendering trial: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     preview.Document.Render(domain.MetadataModeLLM),
		}},
	}, nil
}

// extractTrialID extracts the NCT ID from a URI like trialdex://trials/{nctId}.
func extractTrialID(uri string) string {
	const prefix = uriScheme + "trials/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	id := strings.TrimPrefix(uri, prefix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
