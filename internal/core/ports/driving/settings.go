package driving

import "github.com/custodia-labs/pixdex/internal/core/domain"

// SettingsService reads and updates persisted application settings.
type SettingsService interface {
	// Get returns defaults overlaid with stored values.
	Get() (domain.Settings, error)

	// Set parses raw for the dotted key, validates the result and persists it.
	Set(key, raw string) error
}
