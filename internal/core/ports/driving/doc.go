// Package driving defines the inbound ports the CLI, the sync progress view
// and the MCP server call into: sync, similarity queries, keyword lookup,
// the cached gallery, settings and background scheduling.
//
// Implementations live in internal/core/services.
package driving
