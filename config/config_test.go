package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
scheduler:
  tick_seconds: 2
  gc_interval_seconds: 120
cache:
  ttl_seconds: 10
snapshot:
  path: /tmp/tt.db
  keep: 3
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.EqualValues(t, 2, cfg.Scheduler.TickSeconds)
	require.EqualValues(t, 120, cfg.Scheduler.GCIntervalSeconds)
	require.EqualValues(t, 10, cfg.Cache.TTLSeconds)
	require.Equal(t, "/tmp/tt.db", cfg.Snapshot.Path)
	require.Equal(t, 3, cfg.Snapshot.Keep)
	// Sections absent from the file still get their defaults.
	require.Equal(t, ":9090", cfg.Metrics.PrometheusAddr)
}

func TestLoadJSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{"cache":{"ttl_seconds":30}}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.EqualValues(t, 30, cfg.Cache.TTLSeconds)
}

func TestLoadRejectsUnknownFormat(t *testing.T) {
	path := writeConfig(t, "config.toml", "x = 1")
	_, err := Load(path)
	require.Error(t, err)
}

func TestEnvOverride(t *testing.T) {
	path := writeConfig(t, "config.yaml", "cache:\n  ttl_seconds: 10\n")
	t.Setenv("K_CACHE__TTL_SECONDS", "42")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.EqualValues(t, 42, cfg.Cache.TTLSeconds)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.EqualValues(t, 1, cfg.Scheduler.TickSeconds)
	require.EqualValues(t, 5, cfg.Cache.TTLSeconds)
	require.Equal(t, "timetables.db", cfg.Snapshot.Path)
	require.Equal(t, 10, cfg.Snapshot.Keep)
	require.NoError(t, cfg.Validate())
}

func TestValidateInflux(t *testing.T) {
	cfg := Default()
	cfg.Metrics.InfluxEnabled = true
	require.Error(t, cfg.Validate())
	cfg.Metrics.InfluxURL = "http://localhost:8086"
	require.NoError(t, cfg.Validate())
}

func TestSettings(t *testing.T) {
	cfg := Default()
	s := cfg.Settings()
	require.Equal(t, cfg.Scheduler.TickSeconds, s["tick_seconds"])
	require.Equal(t, cfg.Cache.TTLSeconds, s["cache_ttl_seconds"])
	require.Equal(t, cfg.Scheduler.GCIntervalSeconds, s["gc_interval_seconds"])
}
