package config

import (
	"os"
	"path/filepath"
	"testing"

	"sentiment-observer/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

const minimalYAML = `
name: sentiment-observer
host: 127.0.0.1
port: 8090
storage:
  backend: sqlite
  db_path: cache.db
query:
  base_url: "http://localhost:8080"
stream:
  url: "ws://localhost:8080/stream"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// -----------------------------------------------------------------------------
// Loading and defaults
// -----------------------------------------------------------------------------

func TestNewConfigAppliesDefaults(t *testing.T) {
	cfg, err := NewConfig(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "sentiment-observer", cfg.Name)
	assert.Equal(t, 300, cfg.View.DebounceMs)
	assert.Equal(t, 2000, cfg.View.MaxSeriesPoints)
	assert.Equal(t, 60, cfg.Storage.SweepIntervalSeconds)
	assert.Equal(t, 1000, cfg.Stream.ReconnectBaseDelayMs)
	assert.Equal(t, 30000, cfg.Stream.ReconnectMaxDelayMs)
	assert.Equal(t, 3600, cfg.Align.ToleranceSeconds)
	assert.Equal(t, "preferences.yaml", cfg.View.PreferencesPath)
}

// -----------------------------------------------------------------------------

func TestNewConfigEnvOverrides(t *testing.T) {
	t.Setenv("SO_LOG_LEVEL", "DEBUG")
	t.Setenv("SO_DB_PATH", "/tmp/override.db")

	cfg, err := NewConfig(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, "/tmp/override.db", cfg.Storage.DBPath)
}

// -----------------------------------------------------------------------------

func TestNewConfigMissingFile(t *testing.T) {
	_, err := NewConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

// -----------------------------------------------------------------------------
// Validation
// -----------------------------------------------------------------------------

func TestNewConfigRejectsUnknownBackend(t *testing.T) {
	_, err := NewConfig(writeConfig(t, `
name: sentiment-observer
host: 127.0.0.1
port: 8090
storage:
  backend: memcached
query:
  base_url: "http://localhost:8080"
stream:
  url: "ws://localhost:8080/stream"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported storage backend")
}

// -----------------------------------------------------------------------------

func TestNewConfigRejectsMissingStreamURL(t *testing.T) {
	_, err := NewConfig(writeConfig(t, `
name: sentiment-observer
host: 127.0.0.1
port: 8090
storage:
  backend: sqlite
  db_path: cache.db
query:
  base_url: "http://localhost:8080"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stream URL")
}

// -----------------------------------------------------------------------------

func TestNewConfigRejectsBadResolution(t *testing.T) {
	_, err := NewConfig(writeConfig(t, minimalYAML+`
resolutions:
  - key: "1m"
    duration_seconds: 0
    cache_ttl_ms: 300000
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "positive duration")
}

// -----------------------------------------------------------------------------
// Preferences
// -----------------------------------------------------------------------------

func TestPreferencesRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.yaml")

	require.NoError(t, SavePreferences(path, models.MPreferences{
		Subject:    "AAPL",
		Resolution: "1h",
	}))

	prefs, err := LoadPreferences(path)
	require.NoError(t, err)
	require.NotNil(t, prefs)
	assert.Equal(t, "AAPL", prefs.Subject)
	assert.Equal(t, "1h", prefs.Resolution)
}

// -----------------------------------------------------------------------------

func TestLoadPreferencesMissingFileIsNotAnError(t *testing.T) {
	prefs, err := LoadPreferences(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Nil(t, prefs)
}
