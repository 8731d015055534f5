package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
catalog:
  base_url: http://localhost:9000
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "utabako.db", cfg.Storage.Path)
	assert.Equal(t, 300, cfg.Catalog.RefreshIntervalSec)
	assert.Equal(t, 60, cfg.Sync.IntervalSec)
	assert.Equal(t, 5.0, cfg.Sync.RateLimitPerSec)
	assert.False(t, cfg.Sync.Enabled())
}

func TestLoadMissingCatalogURL(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadSyncRequiresToken(t *testing.T) {
	path := writeConfig(t, `
catalog:
  base_url: http://localhost:9000
sync:
  base_url: http://localhost:9100
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadSyncConfigured(t *testing.T) {
	path := writeConfig(t, `
catalog:
  base_url: http://localhost:9000
sync:
  base_url: http://localhost:9100
  user_token: secret
  interval_sec: 30
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Sync.Enabled())
	assert.Equal(t, 30, cfg.Sync.IntervalSec)
}

func TestEnvOverridesToken(t *testing.T) {
	t.Setenv("UTABAKO_SYNC_TOKEN", "from-env")

	path := writeConfig(t, `
catalog:
  base_url: http://localhost:9000
sync:
  base_url: http://localhost:9100
  user_token: from-file
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Sync.UserToken)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
