package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"ambient/internal/dayphase"
	"ambient/internal/geo"
	"ambient/internal/season"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	err := os.WriteFile(filepath.Join(tmpDir, FileName), []byte(content), 0644)
	require.NoError(t, err)
	return tmpDir
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvLatitude, EnvLongitude, EnvHemisphere, EnvAPIPort, EnvDebug, EnvDebugPeriod, EnvDBPath} {
		t.Setenv(key, "")
	}
}

func TestLoader_Load(t *testing.T) {
	clearEnv(t)
	dir := writeConfig(t, `location:
  latitude: -33.8688
  longitude: 151.2093
  geolocate: false
hemisphere: southern
tick_interval: 30s
debug:
  enabled: true
  period: evening
api:
  port: 9090
storage:
  db_path: /tmp/ambient-test.db
`)

	loader := NewLoader(dir, zap.NewNop())
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, geo.Coordinate{Latitude: -33.8688, Longitude: 151.2093}, cfg.Location.Coordinate)
	assert.False(t, cfg.Location.Geolocate)
	assert.Equal(t, geo.DefaultIPLookupURL, cfg.Location.LookupURL, "unset keys keep defaults")
	assert.Equal(t, 30*time.Second, cfg.TickInterval)
	assert.Equal(t, season.Southern, cfg.ParsedHemisphere())
	assert.True(t, cfg.Debug.Enabled)
	assert.Equal(t, dayphase.Evening, cfg.ParsedDebugPeriod())
	assert.Equal(t, 9090, cfg.API.Port)
	assert.Equal(t, "/tmp/ambient-test.db", cfg.Storage.DBPath)

	assert.Same(t, cfg, loader.Get())
}

func TestLoader_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	loader := NewLoader(t.TempDir(), zap.NewNop())

	assert.Nil(t, loader.Get())

	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
	assert.Equal(t, season.Northern, cfg.ParsedHemisphere())
	assert.Equal(t, dayphase.Midnight, cfg.ParsedDebugPeriod())
}

func TestLoader_EnvOverrides(t *testing.T) {
	clearEnv(t)
	dir := writeConfig(t, `location:
  latitude: 10
  longitude: 20
`)

	t.Setenv(EnvLatitude, "51.5074")
	t.Setenv(EnvLongitude, "-0.1278")
	t.Setenv(EnvHemisphere, "south")
	t.Setenv(EnvAPIPort, "7070")
	t.Setenv(EnvDebug, "true")
	t.Setenv(EnvDebugPeriod, "sunset")
	t.Setenv(EnvDBPath, "override.db")

	cfg, err := NewLoader(dir, zap.NewNop()).Load()
	require.NoError(t, err)

	assert.Equal(t, 51.5074, cfg.Location.Latitude)
	assert.Equal(t, -0.1278, cfg.Location.Longitude)
	assert.Equal(t, season.Southern, cfg.ParsedHemisphere())
	assert.Equal(t, 7070, cfg.API.Port)
	assert.True(t, cfg.Debug.Enabled)
	assert.Equal(t, dayphase.Sunset, cfg.ParsedDebugPeriod())
	assert.Equal(t, "override.db", cfg.Storage.DBPath)
}

func TestLoader_BadEnvOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvLatitude, "north-ish")

	_, err := NewLoader(t.TempDir(), zap.NewNop()).Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), EnvLatitude)
}

func TestLoader_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"latitude out of range", "location:\n  latitude: 95\n"},
		{"longitude out of range", "location:\n  longitude: -181\n"},
		{"unknown hemisphere", "hemisphere: eastern\n"},
		{"unknown debug period", "debug:\n  period: brunch\n"},
		{"port out of range", "api:\n  port: 70000\n"},
		{"negative tick interval", "tick_interval: -5s\n"},
		{"empty db path", "storage:\n  db_path: \"\"\n"},
		{"bad lookup url", "location:\n  lookup_url: not a url\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			_, err := NewLoader(writeConfig(t, tt.content), zap.NewNop()).Load()
			assert.Error(t, err)
		})
	}
}

func TestLoader_MalformedYAML(t *testing.T) {
	clearEnv(t)
	_, err := NewLoader(writeConfig(t, "location: [unterminated\n"), zap.NewNop()).Load()
	assert.Error(t, err)
}

func TestParsedHemisphere_FallsBackToLatitude(t *testing.T) {
	cfg := Default()
	cfg.Hemisphere = ""
	cfg.Location.Latitude = -40
	assert.Equal(t, season.Southern, cfg.ParsedHemisphere())
}

func TestLoader_AutoReloadStartStop(t *testing.T) {
	clearEnv(t)
	loader := NewLoader(t.TempDir(), zap.NewNop())

	require.NoError(t, loader.StartAutoReload(func(*EnvironmentConfig) {}))
	loader.Stop()
	loader.Stop()
}
