package services

import (
	"fmt"
	"strconv"

	"github.com/custodia-labs/pixdex/internal/core/domain"
	"github.com/custodia-labs/pixdex/internal/core/ports/driven"
	"github.com/custodia-labs/pixdex/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// SettingsService manages application settings on top of a config store.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get returns defaults overlaid with the stored configuration.
func (s *SettingsService) Get() (domain.Settings, error) {
	settings := domain.DefaultSettings()
	if err := s.configStore.Apply(&settings); err != nil {
		return settings, fmt.Errorf("apply stored settings: %w", err)
	}
	return settings, nil
}

// Set parses raw for key and persists it when the resulting settings validate.
// Durations are kept as their string form ("30s").
func (s *SettingsService) Set(key, raw string) error {
	current, err := s.Get()
	if err != nil {
		return err
	}

	value, err := parseSettingValue(&current, key, raw)
	if err != nil {
		return err
	}
	if err := current.Validate(); err != nil {
		return err
	}
	if err := s.configStore.Set(key, value); err != nil {
		return fmt.Errorf("save setting %s: %w", key, err)
	}
	return nil
}

// GetDefaults returns the default settings.
func (s *SettingsService) GetDefaults() domain.Settings {
	return domain.DefaultSettings()
}

// parseSettingValue finds the typed form of raw that key accepts, applying it
// to settings. Strings and durations are tried first, then integers, then floats.
func parseSettingValue(settings *domain.Settings, key, raw string) (any, error) {
	candidates := []any{raw}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		candidates = append(candidates, n)
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		candidates = append(candidates, f)
	}

	var lastErr error
	for _, v := range candidates {
		probe := *settings
		if lastErr = probe.Set(key, v); lastErr == nil {
			*settings = probe
			return v, nil
		}
	}
	return nil, lastErr
}
