package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fullYAML покрывает все секции конфигурации.
const fullYAML = `
server:
  host: "127.0.0.1"
  port: 8081
  shutdown_timeout: 15s
  max_upload_size_mb: 20
processing:
  task_timeout: 120s
  cache_ttl: 30m
  cleanup_interval: 2h
  max_archive_entry_mb: 100
  pool_size: 4
logging:
  level: "info"
  format: "json"
admin:
  prompt_token: true
`

// partialYAML задает только часть полей: остальные должны
// остаться значениями по умолчанию.
const partialYAML = `
server:
  port: 9090
logging:
  level: "debug"
`

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	err := os.WriteFile(path, []byte(content), 0644)
	require.NoError(t, err)
	return path
}

func TestLoadFromYAML(t *testing.T) {
	t.Run("success with full config", func(t *testing.T) {
		path := createTempConfigFile(t, fullYAML)
		cfg := defaultConfig()
		err := loadFromYAML(path, cfg)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, "127.0.0.1", cfg.Server.Host)
		assert.Equal(t, 8081, cfg.Server.Port)
		assert.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout.Duration())
		assert.Equal(t, 20, cfg.Server.MaxUploadSizeMB)
		assert.Equal(t, int64(20<<20), cfg.Server.MaxUploadBytes())
		assert.Equal(t, "127.0.0.1:8081", cfg.Address())

		assert.Equal(t, 120*time.Second, cfg.Processing.TaskTimeout.Duration())
		assert.Equal(t, 30*time.Minute, cfg.Processing.CacheTTL.Duration())
		assert.Equal(t, 2*time.Hour, cfg.Processing.CleanupInterval.Duration())
		assert.Equal(t, 100, cfg.Processing.MaxArchiveEntryMB)
		assert.Equal(t, int64(100<<20), cfg.Processing.MaxArchiveEntryBytes())
		assert.Equal(t, 4, cfg.Processing.PoolSize)

		assert.Equal(t, "info", cfg.Logging.Level)
		assert.Equal(t, "json", cfg.Logging.Format)
		assert.True(t, cfg.Admin.PromptToken)
	})

	t.Run("partial config keeps defaults", func(t *testing.T) {
		path := createTempConfigFile(t, partialYAML)
		cfg := defaultConfig()
		err := loadFromYAML(path, cfg)
		require.NoError(t, err)

		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, "debug", cfg.Logging.Level)
		// Не указанные поля остаются дефолтными
		assert.Equal(t, DefaultServerHost, cfg.Server.Host)
		assert.Equal(t, DefaultShutdownTimeout, cfg.Server.ShutdownTimeout.Duration())
		assert.Equal(t, DefaultCacheTTL, cfg.Processing.CacheTTL.Duration())
		assert.Equal(t, DefaultPoolSize, cfg.Processing.PoolSize)
		assert.Equal(t, DefaultLogFormat, cfg.Logging.Format)
	})

	t.Run("file not found is not an error", func(t *testing.T) {
		cfg := defaultConfig()
		err := loadFromYAML("non_existent_file.yml", cfg)
		assert.NoError(t, err)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := createTempConfigFile(t, "invalid yaml: {")
		cfg := defaultConfig()
		err := loadFromYAML(path, cfg)
		assert.Error(t, err)
	})

	t.Run("invalid duration value", func(t *testing.T) {
		path := createTempConfigFile(t, "server:\n  shutdown_timeout: never\n")
		cfg := defaultConfig()
		err := loadFromYAML(path, cfg)
		assert.Error(t, err)
	})

	t.Run("numeric duration is seconds", func(t *testing.T) {
		path := createTempConfigFile(t, "processing:\n  task_timeout: 45\n")
		cfg := defaultConfig()
		err := loadFromYAML(path, cfg)
		require.NoError(t, err)
		assert.Equal(t, 45*time.Second, cfg.Processing.TaskTimeout.Duration())
	})
}

func TestApplyEnv(t *testing.T) {
	t.Run("env overrides yaml and defaults", func(t *testing.T) {
		t.Setenv("SERVER_HOST", "10.0.0.1")
		t.Setenv("SERVER_PORT", "7070")
		t.Setenv("CACHE_TTL", "5m")
		t.Setenv("LOG_FORMAT", "json")

		cfg := defaultConfig()
		err := applyEnv(cfg)
		require.NoError(t, err)

		assert.Equal(t, "10.0.0.1", cfg.Server.Host)
		assert.Equal(t, 7070, cfg.Server.Port)
		assert.Equal(t, 5*time.Minute, cfg.Processing.CacheTTL.Duration())
		assert.Equal(t, "json", cfg.Logging.Format)
	})

	t.Run("invalid env port", func(t *testing.T) {
		t.Setenv("SERVER_PORT", "not-a-port")
		cfg := defaultConfig()
		err := applyEnv(cfg)
		assert.Error(t, err)
	})

	t.Run("invalid env duration", func(t *testing.T) {
		t.Setenv("TASK_TIMEOUT", "soon")
		cfg := defaultConfig()
		err := applyEnv(cfg)
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutator func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"invalid port", func(c *Config) { c.Server.Port = 0 }, true},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }, true},
		{"invalid shutdown timeout", func(c *Config) { c.Server.ShutdownTimeout = 0 }, true},
		{"invalid max upload", func(c *Config) { c.Server.MaxUploadSizeMB = 0 }, true},
		{"negative task_timeout", func(c *Config) { c.Processing.TaskTimeout = Duration(-1 * time.Second) }, true},
		{"zero task_timeout is unlimited", func(c *Config) { c.Processing.TaskTimeout = 0 }, false},
		{"invalid cache_ttl", func(c *Config) { c.Processing.CacheTTL = 0 }, true},
		{"invalid cleanup_interval", func(c *Config) { c.Processing.CleanupInterval = 0 }, true},
		{"invalid archive entry limit", func(c *Config) { c.Processing.MaxArchiveEntryMB = 0 }, true},
		{"invalid pool size", func(c *Config) { c.Processing.PoolSize = 0 }, true},
		{"invalid logging level", func(c *Config) { c.Logging.Level = "wrong" }, true},
		{"invalid logging format", func(c *Config) { c.Logging.Format = "xml" }, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutator(cfg)
			err := cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
