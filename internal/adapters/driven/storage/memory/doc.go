// Package memory provides in-memory implementations of driven ports.
//
// These adapters hold all state in maps guarded by a mutex. They back
// ephemeral runs (pixdex --in-memory) and serve as fakes in service tests.
package memory
