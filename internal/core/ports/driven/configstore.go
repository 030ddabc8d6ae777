package driven

import "github.com/custodia-labs/pixdex/internal/core/domain"

// ConfigStore provides access to application configuration.
// Implementations handle persistence (e.g., TOML files) and type conversion.
type ConfigStore interface {
	// Get retrieves a configuration value by dotted key (e.g. "index.threshold").
	// Returns the value and a boolean indicating if the key exists.
	Get(key string) (any, bool)

	// Set stores a configuration value.
	// The value is persisted immediately.
	Set(key string, value any) error

	// Apply overlays stored values onto settings.
	Apply(settings *domain.Settings) error

	// Load reads configuration from storage.
	Load() error

	// Path returns the configuration file path.
	Path() string
}
