package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cogmem.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoader_DefaultsWhenFileMissing(t *testing.T) {
	cfg, err := NewLoader().
		WithConfigPath(filepath.Join(t.TempDir(), "absent.yaml")).
		Load()
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)
}

func TestLoader_YAMLOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
memory:
  capacity: 100
  strategy: weight
pattern:
  half_life: 168h
store:
  kind: sqlite
  sqlite:
    path: /tmp/test.db
`)

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)
	require.Equal(t, 100, cfg.Memory.Capacity)
	require.Equal(t, "weight", cfg.Memory.Strategy)
	require.Equal(t, 7*24*time.Hour, cfg.Pattern.HalfLife)
	require.Equal(t, "sqlite", cfg.Store.Kind)
	require.Equal(t, "/tmp/test.db", cfg.Store.SQLite.Path)
	// Untouched sections keep their defaults.
	require.InDelta(t, 0.8, cfg.Pattern.SimilarityThreshold, 1e-9)
}

func TestLoader_EnvOverridesYAML(t *testing.T) {
	path := writeConfigFile(t, `
memory:
  capacity: 100
`)
	t.Setenv("COGMEM_MEMORY_CAPACITY", "200")
	t.Setenv("COGMEM_SLEEP_INTERVAL", "1h")
	t.Setenv("COGMEM_METRICS_ENABLED", "false")
	t.Setenv("COGMEM_STORE_REDIS_ADDR", "redis:6379")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)
	require.Equal(t, 200, cfg.Memory.Capacity)
	require.Equal(t, time.Hour, cfg.Sleep.Interval)
	require.False(t, cfg.Metrics.Enabled)
	require.Equal(t, "redis:6379", cfg.Store.Redis.Addr)
}

func TestLoader_CustomEnvPrefix(t *testing.T) {
	t.Setenv("ENGINE_MEMORY_CAPACITY", "7")

	cfg, err := NewLoader().WithEnvPrefix("ENGINE").Load()
	require.NoError(t, err)
	require.Equal(t, 7, cfg.Memory.Capacity)
}

func TestLoader_InvalidYAMLFails(t *testing.T) {
	path := writeConfigFile(t, "memory: [not a map")

	_, err := NewLoader().WithConfigPath(path).Load()
	require.Error(t, err)
}

func TestLoader_ValidationFailureSurfaces(t *testing.T) {
	t.Setenv("COGMEM_MEMORY_CAPACITY", "0")

	_, err := NewLoader().Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "capacity")
}

func TestLoader_ExtraValidatorRuns(t *testing.T) {
	called := false
	_, err := NewLoader().
		WithValidator(func(*Config) error { called = true; return nil }).
		Load()
	require.NoError(t, err)
	require.True(t, called)
}

func TestLoader_BadEnvValueFails(t *testing.T) {
	t.Setenv("COGMEM_MEMORY_CAPACITY", "lots")

	_, err := NewLoader().Load()
	require.Error(t, err)
}

func TestMustLoad_PanicsOnInvalid(t *testing.T) {
	t.Setenv("COGMEM_MEMORY_CAPACITY", "0")
	require.Panics(t, func() { MustLoad("") })
}
