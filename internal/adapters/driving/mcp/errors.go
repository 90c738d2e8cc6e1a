// Package mcp provides an MCP (Model Context Protocol) server adapter for trialdex.
// It lets AI assistants load trials into the search table, inspect it and
// look up trial identifiers.
package mcp

import "errors"

// ErrMissingLoader is returned when the trial loader is not provided.
var ErrMissingLoader = errors.New("mcp: trial loader is required")
