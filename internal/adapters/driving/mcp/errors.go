// Package mcp provides an MCP (Model Context Protocol) server adapter for pixdex.
// It lets AI assistants query the on-device similarity index and photo tags.
package mcp

import "errors"

// ErrMissingSimilarityService is returned when the similarity service is not provided.
var ErrMissingSimilarityService = errors.New("mcp: similarity service is required")
