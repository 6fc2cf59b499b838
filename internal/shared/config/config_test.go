package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/reshetovitsme/streamer-census/internal/shared/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, body string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	t.Setenv(EnvPrefix+"CONFIG", path)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(EnvPrefix+"CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, AppEnvProduction, cfg.AppEnv)
	assert.Equal(t, StorageDriverSqlite, cfg.Storage.Driver)
	assert.Equal(t, CacheBackendFile, cfg.Cache.Backend)
	assert.Equal(t, 10000, cfg.Quota.DailyLimit)
	assert.Equal(t, 500, cfg.Quota.SafetyBuffer)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 15*time.Second, cfg.YouTube.Timeout)
	assert.Equal(t, 100, cfg.Costs.Search)
	assert.Equal(t, 65, cfg.Classify.MinConfidence)
	assert.Equal(t, 500, cfg.Acquisition.DescriptionLimit)
	assert.ErrorIs(t, cfg.RequireCredentials(), errors.ErrNoCredentials)
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	writeConfig(t, "census.yaml", `
app_env: development
quota:
  daily_limit: 2000
  safety_buffer: 100
youtube:
  api_keys: [key-a, key-b, key-a]
acquisition:
  tasks:
    - query: en vivo argentina
      pages: 3
`)
	t.Setenv("CENSUS_QUOTA__SAFETY_BUFFER", "250")
	t.Setenv("CENSUS_TELEGRAM__ALLOWED_USERS", "1, 2,x")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, AppEnvDevelopment, cfg.AppEnv)
	assert.Equal(t, 2000, cfg.Quota.DailyLimit)
	assert.Equal(t, 250, cfg.Quota.SafetyBuffer)
	assert.Equal(t, []string{"key-a", "key-b"}, cfg.YouTube.APIKeys)
	assert.Equal(t, []TaskConfig{{Query: "en vivo argentina", Pages: 3}}, cfg.Acquisition.Tasks)
	assert.Equal(t, []int64{1, 2}, cfg.Telegram.AllowedUsers)
	assert.NoError(t, cfg.RequireCredentials())
}

func TestLoad_APIKeysFromEnv(t *testing.T) {
	t.Setenv(EnvPrefix+"CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("CENSUS_YOUTUBE__API_KEYS", "one, two ,,three")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two", "three"}, cfg.YouTube.APIKeys)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"buffer above limit", "quota:\n  daily_limit: 100\n  safety_buffer: 100\n"},
		{"unknown driver", "storage:\n  driver: mongo\n"},
		{"postgres without dsn", "storage:\n  driver: postgres\n"},
		{"redis without url", "cache:\n  backend: redis\n"},
		{"bad timezone", "quota:\n  timezone: Mars/Olympus\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writeConfig(t, "census.yaml", tt.body)
			_, err := Load()
			assert.ErrorIs(t, err, errors.ErrInvalidConfig)
		})
	}
}

func TestParseAllowedUsers(t *testing.T) {
	assert.Equal(t, []int64{10, 20}, ParseAllowedUsers("10, 20"))
	assert.Empty(t, ParseAllowedUsers(""))
	assert.Equal(t, []int64{3}, ParseAllowedUsers("abc,3"))
}
