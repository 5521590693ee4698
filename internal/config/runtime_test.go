package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRuntimeConfig(t *testing.T) {
	cfg := DefaultRuntimeConfig()

	assert.Equal(t, DefaultDBPath(), cfg.Storage.Path)
	assert.Equal(t, uint64(10*1024*1024), cfg.Storage.MinFreeSpace)
	assert.Equal(t, uint64(50*1024*1024), cfg.Storage.MinFreeSpaceWarning)
	assert.Equal(t, 10*time.Minute, cfg.Storage.GCInterval)
	assert.Equal(t, 3, cfg.Repository.ConflictRetries)
	assert.Equal(t, 50, cfg.Scheduler.ResyncCount)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.True(t, cfg.Log.Redact)
	assert.False(t, cfg.InMemory())
}

func TestConfigReset(t *testing.T) {
	cfg := DefaultRuntimeConfig()
	cfg.Repository.ConflictRetries = 99
	cfg.Reset()
	assert.Equal(t, 3, cfg.Repository.ConflictRetries)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err, "explicit config path must exist")
	assert.Nil(t, cfg)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
storage:
  path: ":memory:"
  gc_interval: 30s
repository:
  conflict_retries: 5
log:
  level: debug
  json: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.InMemory())
	assert.Equal(t, 30*time.Second, cfg.Storage.GCInterval)
	assert.Equal(t, 5, cfg.Repository.ConflictRetries)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)

	// Untouched values keep their defaults.
	assert.Equal(t, 50, cfg.Scheduler.ResyncCount)
	assert.Equal(t, uint64(10*1024*1024), cfg.Storage.MinFreeSpace)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scheduler:\n  resync_count: 10\n"), 0o644))

	t.Setenv("MEDTRACK_SCHEDULER_RESYNC_COUNT", "20")
	t.Setenv("MEDTRACK_STORAGE_MIN_FREE_SPACE", "1024")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Scheduler.ResyncCount)
	assert.Equal(t, uint64(1024), cfg.Storage.MinFreeSpace)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("repository:\n  conflict_retries: -1\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "storage.min_free_space", envKey("MEDTRACK_STORAGE_MIN_FREE_SPACE"))
	assert.Equal(t, "log.level", envKey("MEDTRACK_LOG_LEVEL"))
}

func TestLoadWebhooks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `notify:
  timeout: 3s
  webhooks:
    - name: phone
      type: discord
      url: https://discord.example/api/webhooks/1
    - name: old
      type: slack
      url: https://hooks.slack.example/T0
      disabled: true
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.Notify.Timeout)
	assert.Equal(t, 2, cfg.Notify.Retries)
	require.Len(t, cfg.Notify.Webhooks, 2)
	assert.Equal(t, WebhookDiscord, cfg.Notify.Webhooks[0].Type)

	enabled := cfg.Notify.EnabledWebhooks()
	require.Len(t, enabled, 1)
	assert.Equal(t, "phone", enabled[0].Name)
}

func TestLoadRejectsInvalidWebhooks(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing url", "notify:\n  webhooks:\n    - name: a\n"},
		{"unknown type", "notify:\n  webhooks:\n    - name: a\n      url: http://localhost/a\n      type: pager\n"},
		{"duplicate", "notify:\n  webhooks:\n    - name: a\n      url: http://localhost/a\n    - name: a\n      url: http://localhost/b\n"},
		{"plain http", "notify:\n  webhooks:\n    - name: a\n      url: http://hooks.example.com/a\n"},
		{"private address", "notify:\n  webhooks:\n    - name: a\n      url: https://192.168.1.10/a\n"},
		{"too many retries", "notify:\n  retries: 50\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o644))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}
