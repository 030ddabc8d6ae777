// Package sqlite provides the SQLite-based persistent store.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. A single Store value implements
// every storage port through one database connection pool:
//
//   - EmbeddingStore: extracted keywords and embeddings per asset (images)
//   - KeywordStore: tag lookups over the same rows
//   - IndexStore: the derived similarity index (embedding_index)
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory and recorded in schema_migrations.
//
// store_meta holds two generation counters. store_generation advances on every
// record mutation; index_generation records the store generation the index was
// last brought up to date with. The index is stale whenever they differ.
//
// # Data Location
//
// By default, the database is stored at ~/.pixdex/data/pixdex.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode. Open the store once per process and share it.
package sqlite
