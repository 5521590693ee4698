// Package config provides centralized configuration for medtrack runtime values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/manav03panchal/medtrack/internal/validate"
)

// AppName is used for XDG directories.
const AppName = "medtrack"

// EnvPrefix is the prefix for environment overrides.
// MEDTRACK_STORAGE_GC_INTERVAL maps to storage.gc_interval.
const EnvPrefix = "MEDTRACK_"

// InMemoryPath selects an in-memory database.
const InMemoryPath = ":memory:"

// RuntimeConfig holds all runtime configuration values.
type RuntimeConfig struct {
	Storage    StorageConfig    `koanf:"storage"`
	Repository RepositoryConfig `koanf:"repository"`
	Scheduler  SchedulerConfig  `koanf:"scheduler"`
	Notify     NotifyConfig     `koanf:"notify"`
	Log        LogConfig        `koanf:"log"`
}

// StorageConfig holds storage-related configuration.
type StorageConfig struct {
	// Path is the database directory, or InMemoryPath.
	Path string `koanf:"path"`

	// MinFreeSpace is the minimum free space required to open the database.
	// Default: 10MB
	MinFreeSpace uint64 `koanf:"min_free_space"`

	// MinFreeSpaceWarning is the threshold for warning about low disk space.
	// Default: 50MB
	MinFreeSpaceWarning uint64 `koanf:"min_free_space_warning"`

	// GCInterval is how often the value log is garbage collected. Zero disables it.
	// Default: 10m
	GCInterval time.Duration `koanf:"gc_interval"`
}

// RepositoryConfig holds repository worker configuration.
type RepositoryConfig struct {
	// ConflictRetries bounds how often a mutation is retried on a transaction conflict.
	// Default: 3
	ConflictRetries int `koanf:"conflict_retries"`
}

// SchedulerConfig holds scheduler-related configuration.
type SchedulerConfig struct {
	// ResyncCount is how many upcoming reminders are loaded when the scheduler starts.
	// Default: 50
	ResyncCount int `koanf:"resync_count"`
}

// NotifyConfig holds webhook delivery configuration.
type NotifyConfig struct {
	// Timeout bounds a single webhook request.
	// Default: 10s
	Timeout time.Duration `koanf:"timeout"`

	// Retries is how often a failed request is repeated.
	// Default: 2
	Retries int `koanf:"retries"`

	// RetryDelay is the wait before the first retry. It doubles per attempt.
	// Default: 2s
	RetryDelay time.Duration `koanf:"retry_delay"`

	Webhooks []WebhookConfig `koanf:"webhooks"`
}

// Webhook types.
const (
	WebhookDiscord = "discord"
	WebhookSlack   = "slack"
	WebhookTeams   = "teams"
	WebhookGeneric = "generic"
)

// WebhookConfig describes one webhook that receives due reminders.
type WebhookConfig struct {
	Name string `koanf:"name"`
	Type string `koanf:"type"`
	URL  string `koanf:"url"`

	// Template is an optional text/template for generic webhooks.
	Template string `koanf:"template"`
	Disabled bool   `koanf:"disabled"`
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level  string `koanf:"level"`
	JSON   bool   `koanf:"json"`
	Redact bool   `koanf:"redact"`
}

// DefaultDBPath returns the default database directory.
func DefaultDBPath() string {
	return filepath.Join(xdg.DataHome, AppName, "db")
}

// DefaultConfigPath returns the default config file location.
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

// DefaultRuntimeConfig returns the default runtime configuration.
func DefaultRuntimeConfig() *RuntimeConfig {
	return &RuntimeConfig{
		Storage: StorageConfig{
			Path:                DefaultDBPath(),
			MinFreeSpace:        10 * 1024 * 1024, // 10MB
			MinFreeSpaceWarning: 50 * 1024 * 1024, // 50MB
			GCInterval:          10 * time.Minute,
		},
		Repository: RepositoryConfig{
			ConflictRetries: 3,
		},
		Scheduler: SchedulerConfig{
			ResyncCount: 50,
		},
		Notify: NotifyConfig{
			Timeout:    10 * time.Second,
			Retries:    2,
			RetryDelay: 2 * time.Second,
		},
		Log: LogConfig{
			Level:  "warn",
			Redact: true,
		},
	}
}

func defaultsMap() map[string]interface{} {
	d := DefaultRuntimeConfig()
	return map[string]interface{}{
		"storage.path":                   d.Storage.Path,
		"storage.min_free_space":         d.Storage.MinFreeSpace,
		"storage.min_free_space_warning": d.Storage.MinFreeSpaceWarning,
		"storage.gc_interval":            d.Storage.GCInterval.String(),
		"repository.conflict_retries":    d.Repository.ConflictRetries,
		"scheduler.resync_count":         d.Scheduler.ResyncCount,
		"notify.timeout":                 d.Notify.Timeout.String(),
		"notify.retries":                 d.Notify.Retries,
		"notify.retry_delay":             d.Notify.RetryDelay.String(),
		"log.level":                      d.Log.Level,
		"log.json":                       d.Log.JSON,
		"log.redact":                     d.Log.Redact,
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// MEDTRACK_ environment variables, in that order of precedence.
// An empty path means DefaultConfigPath; a missing file is not an error.
func Load(path string) (*RuntimeConfig, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaultsMap(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	} else if explicit {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg RuntimeConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps MEDTRACK_SECTION_SOME_KEY to section.some_key.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(key, "_", ".", 1)
}

// Validate checks value ranges.
func (c *RuntimeConfig) Validate() error {
	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required")
	}
	if c.Storage.GCInterval < 0 {
		return fmt.Errorf("storage.gc_interval must not be negative")
	}
	if c.Repository.ConflictRetries < 0 {
		return fmt.Errorf("repository.conflict_retries must not be negative")
	}
	if c.Scheduler.ResyncCount < 0 {
		return fmt.Errorf("scheduler.resync_count must not be negative")
	}
	if c.Notify.Timeout <= 0 {
		return fmt.Errorf("notify.timeout must be positive")
	}
	if err := validate.InRange("notify.retries", c.Notify.Retries, 0, 10); err != nil {
		return err
	}
	if c.Notify.RetryDelay < 0 {
		return fmt.Errorf("notify.retry_delay must not be negative")
	}
	seen := make(map[string]bool)
	for i, w := range c.Notify.Webhooks {
		if err := validate.NonEmpty("name", w.Name); err != nil {
			return fmt.Errorf("notify.webhooks[%d]: %w", i, err)
		}
		if err := validate.URL(w.URL); err != nil {
			return fmt.Errorf("notify.webhooks[%d]: %w", i, err)
		}
		if seen[w.Name] {
			return fmt.Errorf("notify.webhooks[%d]: duplicate name %q", i, w.Name)
		}
		seen[w.Name] = true
		switch w.Type {
		case "", WebhookDiscord, WebhookSlack, WebhookTeams, WebhookGeneric:
		default:
			return fmt.Errorf("notify.webhooks[%d]: unknown type %q", i, w.Type)
		}
	}
	return nil
}

// EnabledWebhooks returns the webhooks that are not disabled.
func (c *NotifyConfig) EnabledWebhooks() []WebhookConfig {
	var out []WebhookConfig
	for _, w := range c.Webhooks {
		if !w.Disabled {
			out = append(out, w)
		}
	}
	return out
}

// InMemory reports whether the database should live in memory only.
func (c *RuntimeConfig) InMemory() bool {
	return c.Storage.Path == InMemoryPath
}

// Reset resets the configuration to defaults.
// This is primarily useful for testing.
func (c *RuntimeConfig) Reset() {
	*c = *DefaultRuntimeConfig()
}
