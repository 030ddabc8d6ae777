// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - EmbeddingStore: Durable embedding records (SQLite)
//   - IndexStore: Derived similarity index rows (SQLite, same handle)
//   - MediaLibrary: Enumerates device photos and resolves their bytes
//   - ExtractionTransport: Remote feature extraction service
//   - KeyValueCache: Cold-start asset list cache
//   - ConfigStore: Application configuration
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
