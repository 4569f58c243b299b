package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(env(nil))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestFromEnvReadsEverything(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		"HOST":                   "127.0.0.1",
		"PORT":                   "9090",
		"STORAGE_TYPE":           "Redis",
		"REDIS_URL":              "redis://localhost:6379/1",
		"REDIS_KEY_PREFIX":       "test",
		"NOTIFY_CHANNEL":         "test:moves",
		"ADMIN_TOKEN":            "s3cret",
		"ACCESS_TOKEN_TTL":       "1h",
		"TOKEN_CLEANUP_INTERVAL": "30s",
		"LOG_LEVEL":              "debug",
	}))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, StorageTypeRedis, cfg.StorageType)
	assert.Equal(t, "redis://localhost:6379/1", cfg.RedisURL)
	assert.Equal(t, "test", cfg.RedisKeyPrefix)
	assert.Equal(t, "test:moves", cfg.NotifyChannel)
	assert.Equal(t, "s3cret", cfg.AdminToken)
	assert.Equal(t, time.Hour, cfg.AccessTokenTTL)
	assert.Equal(t, 30*time.Second, cfg.TokenCleanupInterval)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	tests := map[string]map[string]string{
		"port":          {"PORT": "http"},
		"storage":       {"STORAGE_TYPE": "mongo"},
		"redis url":     {"STORAGE_TYPE": "redis"},
		"ttl":           {"ACCESS_TOKEN_TTL": "soon"},
		"negative ttl":  {"ACCESS_TOKEN_TTL": "-1h"},
		"log level":     {"LOG_LEVEL": "loud"},
		"port too high": {"PORT": "70000"},
	}

	for name, values := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := FromEnv(env(values))
			assert.Error(t, err)
		})
	}
}

func TestLoadReadsDotEnvWithoutOverriding(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(file, []byte("PORT=7070\nADMIN_TOKEN=from-file\n"), 0o600))

	t.Setenv("ADMIN_TOKEN", "from-env")
	t.Setenv("PORT", "")
	require.NoError(t, os.Unsetenv("PORT"))

	cfg, err := Load(file, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, "from-env", cfg.AdminToken)

	require.NoError(t, os.Unsetenv("PORT"))
}
