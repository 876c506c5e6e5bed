package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir()) // no stray .env

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ".", cfg.Assets.Root)
	assert.Equal(t, "assets.yaml", cfg.Assets.Manifest)
	assert.Equal(t, 72.0, cfg.Font.DPI)
	assert.Equal(t, 10*time.Second, cfg.Load.Timeout)
	assert.Equal(t, BackendProm, cfg.Metrics.Backend)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	path := filepath.Join(dir, "rescache.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
assets:
  root: ./game
cache:
  shards: 4
font:
  dpi: 96
load:
  timeout: 2s
metrics:
  addr: ":9100"
  backend: vm
`), 0o600))
	t.Setenv("RESCACHE_LOG_LEVEL", "debug")
	t.Setenv("RESCACHE_CACHE_SHARDS", "16")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "./game", cfg.Assets.Root)
	assert.Equal(t, 16, cfg.Cache.Shards, "env overrides file")
	assert.Equal(t, 96.0, cfg.Font.DPI)
	assert.Equal(t, 2*time.Second, cfg.Load.Timeout)
	assert.Equal(t, ":9100", cfg.Metrics.Addr)
	assert.Equal(t, BackendVM, cfg.Metrics.Backend)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("RESCACHE_METRICS_BACKEND=none\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("RESCACHE_METRICS_BACKEND") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, BackendNone, cfg.Metrics.Backend)
}

func TestLoad_Invalid(t *testing.T) {
	chdir(t, t.TempDir())

	t.Setenv("RESCACHE_METRICS_BACKEND", "statsd")
	_, err := Load("")
	assert.ErrorContains(t, err, "metrics.backend")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
