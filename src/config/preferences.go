package config

import (
	"fmt"
	"os"

	"sentiment-observer/src/models"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------
// View preference persistence
// -----------------------------------------------------------------------------

// LoadPreferences reads the last persisted view selection. A missing file is
// not an error: the caller falls back to the configured defaults.
func LoadPreferences(path string) (*models.MPreferences, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read preferences '%s': %w", path, err)
	}

	var prefs models.MPreferences
	if err := yaml.Unmarshal(data, &prefs); err != nil {
		return nil, fmt.Errorf("failed to parse preferences: %w", err)
	}

	return &prefs, nil
}

// -----------------------------------------------------------------------------

// SavePreferences persists the current view selection.
func SavePreferences(path string, prefs models.MPreferences) error {
	data, err := yaml.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write preferences '%s': %w", path, err)
	}

	return nil
}
