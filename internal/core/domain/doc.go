// Package domain defines the core entities of the pixdex similarity engine.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Asset: A photo observed in the device media library
//   - EmbeddingRecord: Extracted embedding and keywords for an asset
//   - IndexEntry: Bucket code derived from an embedding
//   - SyncState: Transient progress of a sync pass
//   - Settings: Application configuration
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
