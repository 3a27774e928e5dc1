package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 9090
storage:
  database_path: test-recon.db
matching:
  auto_threshold: 92
  date_window_days: 7
observability:
  logging:
    level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "test-recon.db", cfg.Storage.DatabasePath)
	assert.Equal(t, 92.0, cfg.Matching.AutoThreshold)
	assert.Equal(t, 7, cfg.Matching.DateWindowDays)
	assert.Equal(t, "debug", cfg.Observability.Logging.Level)

	// Fields absent from the file fall back to defaults
	assert.Equal(t, 60.0, cfg.Matching.SuggestThreshold)
	assert.Equal(t, "0.005", cfg.Matching.AmountTolerance)
	assert.Equal(t, 60.0, cfg.Matching.AmountWeight)
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("RECON_TEST_DB", "expanded.db")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
storage:
  database_path: ${RECON_TEST_DB}
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "expanded.db", cfg.Storage.DatabasePath)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("RECON_DB_PATH", "env.db")
	t.Setenv("RECON_PORT", "7070")
	t.Setenv("RECON_AUTO_THRESHOLD", "95")

	cfg := LoadFromEnv()
	assert.NotNil(t, cfg)
	assert.Equal(t, "env.db", cfg.Storage.DatabasePath)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 95.0, cfg.Matching.AutoThreshold)
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	os.Unsetenv("RECON_DB_PATH")
	os.Unsetenv("RECON_PORT")
	os.Unsetenv("RECON_AUTO_THRESHOLD")

	cfg := LoadFromEnv()
	assert.NotNil(t, cfg)
	assert.Equal(t, "reconcile.db", cfg.Storage.DatabasePath)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 90.0, cfg.Matching.AutoThreshold)
	assert.Equal(t, 5, cfg.Matching.DateWindowDays)
}

func TestLoadOrEnv_FallbackToEnv(t *testing.T) {
	cfg := LoadOrEnvWithPath("/nonexistent/config.yaml")
	assert.NotNil(t, cfg)
	assert.Equal(t, "reconcile.db", cfg.Storage.DatabasePath)
}
