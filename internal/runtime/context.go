// Package runtime provides application runtime context for medtrack.
package runtime

import (
	"io"
	"log/slog"

	"github.com/manav03panchal/medtrack/internal/config"
	"github.com/manav03panchal/medtrack/internal/logging"
	"github.com/manav03panchal/medtrack/internal/notify"
	"github.com/manav03panchal/medtrack/internal/output"
	"github.com/manav03panchal/medtrack/internal/repository"
	"github.com/manav03panchal/medtrack/internal/router"
	"github.com/manav03panchal/medtrack/internal/scheduler"
	"github.com/manav03panchal/medtrack/internal/storage"
)

// Context holds the application runtime context.
type Context struct {
	Config    *config.RuntimeConfig
	Formatter *output.Formatter

	Repo      *repository.Repository
	Router    *router.Router
	Scheduler *scheduler.Scheduler
	Notifier  *notify.Dispatcher

	// Debug mode
	Debug bool
}

// Options configures the runtime context.
type Options struct {
	// ConfigPath is the YAML config file. Empty uses the XDG default.
	ConfigPath string
	// DBPath overrides storage.path when set. config.InMemoryPath selects memory.
	DBPath    string
	Format    output.Format
	ColorMode output.ColorMode
	Debug     bool
	// Deliverer receives due notifications. Nil logs them. Enabled
	// webhooks receive them as well.
	Deliverer scheduler.Deliverer
	// LogOutput overrides the log destination (default: stderr).
	LogOutput io.Writer
}

// DefaultOptions returns default runtime options.
func DefaultOptions() Options {
	return Options{
		Format:    output.FormatCLI,
		ColorMode: output.ColorAuto,
	}
}

// New creates a new runtime context.
func New(opts Options) (*Context, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.DBPath != "" {
		cfg.Storage.Path = opts.DBPath
	}

	logCfg := logging.Config{
		Level:  logging.ParseLevel(cfg.Log.Level),
		JSON:   cfg.Log.JSON,
		Output: opts.LogOutput,
		Redact: cfg.Log.Redact,
	}
	if opts.Debug {
		logCfg.Level = slog.LevelDebug
		logCfg.AddSource = true
	}
	logging.Init(logCfg)

	db, err := storage.Open(storage.OptionsFromConfig(cfg))
	if err != nil {
		return nil, err
	}
	if !db.InMemory() {
		if warning := storage.CheckDiskSpaceWarning(db.Path(), cfg.Storage.MinFreeSpaceWarning); warning != "" {
			logging.Warn(warning)
		}
	}

	repo, err := repository.New(db, repository.OptionsFromConfig(cfg))
	if err != nil {
		db.Close()
		return nil, err
	}

	notifier := notify.NewDispatcher(cfg.Notify)
	sched := scheduler.NewScheduler(repo, Deliverer(opts.Deliverer, notifier))

	// Create formatter
	formatter := output.NewFormatter()
	formatter.Format = opts.Format
	formatter.ColorMode = opts.ColorMode

	return &Context{
		Config:    cfg,
		Formatter: formatter,
		Repo:      repo,
		Router:    router.New(repo, sched),
		Scheduler: sched,
		Notifier:  notifier,
		Debug:     opts.Debug,
	}, nil
}

// Deliverer combines a local deliverer with the notifier's webhooks.
// A nil local deliverer logs.
func Deliverer(local scheduler.Deliverer, notifier *notify.Dispatcher) scheduler.Deliverer {
	if local == nil {
		local = &scheduler.LogDeliverer{}
	}
	if notifier == nil || !notifier.HasEnabledWebhooks() {
		return local
	}
	return scheduler.Multi(local, notifier)
}

// Close stops the scheduler, waits for pending mutations and closes the database.
func (c *Context) Close() error {
	if c.Scheduler != nil {
		c.Scheduler.Stop()
	}
	if c.Repo != nil {
		return c.Repo.Close()
	}
	return nil
}

// DB returns the underlying database.
func (c *Context) DB() *storage.DB {
	return c.Repo.DB()
}

// CLIFormatter returns a CLI formatter.
func (c *Context) CLIFormatter() *output.CLIFormatter {
	return output.NewCLIFormatter(c.Formatter)
}

// JSONFormatter returns a JSON formatter.
func (c *Context) JSONFormatter() *output.JSONFormatter {
	return output.NewJSONFormatter(c.Formatter)
}

// IsJSON returns true if output format is JSON.
func (c *Context) IsJSON() bool {
	return c.Formatter.Format == output.FormatJSON
}

// IsCLI returns true if output format is CLI.
func (c *Context) IsCLI() bool {
	return c.Formatter.Format == output.FormatCLI
}

// Debugf prints debug output if debug mode is enabled.
func (c *Context) Debugf(format string, args ...interface{}) {
	if c.Debug {
		c.Formatter.Printf("[DEBUG] "+format+"\n", args...)
	}
}
