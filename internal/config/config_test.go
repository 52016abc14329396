package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inDir runs the test from dir so no stray config.yaml or .env is picked up.
func inDir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadConfig_Defaults(t *testing.T) {
	inDir(t, t.TempDir())

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "file", cfg.Storage.Driver)
	assert.Equal(t, "./data", cfg.Storage.DataDir)
	assert.Equal(t, "none", cfg.Cache.Driver)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 20, cfg.RateLimit.Burst)
	assert.True(t, cfg.Catalog.Seed)
	assert.Equal(t, "model-catalog", cfg.Catalog.Generator)
	assert.Empty(t, cfg.Server.APIKeys)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	inDir(t, t.TempDir())
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SERVER_ENV", "test")
	t.Setenv("STORAGE_DRIVER", "sqlite")
	t.Setenv("CACHE_DRIVER", "redis")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("REDIS_DB", "2")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "test", cfg.Server.Env)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "redis", cfg.Cache.Driver)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
	assert.Equal(t, 2, cfg.Redis.DB)
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	inDir(t, dir)

	content := `
server:
  api_keys: [admin-token]
storage:
  driver: memory
  watch: true
catalog:
  seed_file: ./seed.yaml
  generator: ops-backup
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o600))

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, []string{"admin-token"}, cfg.Server.APIKeys)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.True(t, cfg.Storage.Watch)
	assert.Equal(t, "./seed.yaml", cfg.Catalog.SeedFile)
	assert.Equal(t, "ops-backup", cfg.Catalog.Generator)
}

func TestLoadConfig_RejectsUnknownDriver(t *testing.T) {
	inDir(t, t.TempDir())
	t.Setenv("STORAGE_DRIVER", "postgres")

	_, err := LoadConfig()
	assert.ErrorContains(t, err, `unknown storage driver "postgres"`)
}
