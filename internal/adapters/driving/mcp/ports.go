package mcp

import (
	"github.com/custodia-labs/pixdex/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Similarity answers similar-image queries.
	Similarity driving.SimilarityService

	// Keyword answers tag queries.
	Keyword driving.KeywordService

	// Sync reports sync progress.
	Sync driving.SyncOrchestrator

	// Gallery serves the cached asset list.
	Gallery driving.GalleryService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Similarity == nil {
		return ErrMissingSimilarityService
	}
	// Keyword, Sync and Gallery tools are registered only when present.
	return nil
}
