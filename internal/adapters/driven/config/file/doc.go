// Package file provides file-based configuration for pixdex.
//
// Adapters:
//   - ConfigStore: TOML-based configuration storage (~/.pixdex/config.toml)
//   - ApplyEnv / LoadDotEnv: PIXDEX_* environment overrides and .env loading
package file
