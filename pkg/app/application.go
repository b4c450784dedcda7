package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/letsexpose/letsexpose/pkg/certbot"
	"github.com/letsexpose/letsexpose/pkg/common"
	"github.com/letsexpose/letsexpose/pkg/manager"
)

// Options holds what the command line selected
type Options struct {
	ConfigPath          string
	Task                string
	LogLevel            string
	LogFormat           string
	PrintConfigTemplate bool
	ShowVersion         bool
}

// Application wires settings, configuration and tasks together
type Application struct {
	version string
	options Options
	stdout  io.Writer
	environ map[string]string
	logger  common.LoggerInterface
	runner  common.CommandRunner
	now     func() time.Time
}

// NewApplication creates a new application instance
func NewApplication(version string, options Options) *Application {
	return &Application{
		version: version,
		options: options,
		stdout:  os.Stdout,
		runner:  certbot.ExecRunner{},
		now:     time.Now,
	}
}

// SetOutput redirects version and template output
func (app *Application) SetOutput(w io.Writer) {
	app.stdout = w
}

// SetEnvironment replaces the process environment as source of the runtime
// settings
func (app *Application) SetEnvironment(environ map[string]string) {
	app.environ = environ
}

// SetLogger injects a logger; SetupLogger is skipped afterwards
func (app *Application) SetLogger(logger common.LoggerInterface) {
	app.logger = logger
}

// SetRunner replaces the process runner used for certbot
func (app *Application) SetRunner(runner common.CommandRunner) {
	app.runner = runner
}

// HandleVersionFlag prints version information if requested
func (app *Application) HandleVersionFlag() bool {
	if !app.options.ShowVersion {
		return false
	}
	fmt.Fprintf(app.stdout, "letsexpose %s\n", app.version)
	fmt.Fprintf(app.stdout, "Go version: %s\n", runtime.Version())
	fmt.Fprintf(app.stdout, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	return true
}

// HandleConfigTemplate prints the configuration template if requested
func (app *Application) HandleConfigTemplate() (bool, error) {
	if !app.options.PrintConfigTemplate {
		return false, nil
	}
	fmt.Fprintln(app.stdout, "# Default configuration template:")
	if err := manager.GenerateDefaultConfig(app.stdout); err != nil {
		return true, common.WrapError(err, common.ErrorTypeStorage, "print config template",
			"cannot write configuration template")
	}
	return true, nil
}

// SetupLogger configures the application logger from the command line
func (app *Application) SetupLogger() error {
	if app.logger != nil {
		return nil
	}

	level, err := manager.ParseLogLevel(app.options.LogLevel)
	if err != nil {
		return common.NewConfigError("parse log level", err.Error())
	}
	format, err := manager.ParseLogFormat(app.options.LogFormat)
	if err != nil {
		return common.NewConfigError("parse log format", err.Error())
	}

	app.logger = manager.SetupDefaultLogger(level, format)
	return nil
}

// LoadSettings reads the runtime settings from the environment
func (app *Application) LoadSettings() (manager.Settings, error) {
	settings, err := manager.LoadSettings(app.environ)
	if err != nil {
		return settings, common.WrapError(err, common.ErrorTypeConfig, "load settings", err.Error()).
			AddSuggestion("Check the " + manager.SettingsEnvPrefix + "* environment variables")
	}
	app.logger.Debugf("Settings: %+v", settings)
	return settings, nil
}

// LoadConfiguration loads and validates the configuration file
func (app *Application) LoadConfiguration() (*manager.Config, error) {
	path := app.options.ConfigPath
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	app.logger.Debugf("Loading configuration from %s", path)
	cfg, err := manager.LoadConfig(app.options.ConfigPath)
	if err != nil {
		return nil, err
	}
	app.logger.Debugf("Configuration lists %d host(s)", len(cfg.Hosts))
	return cfg, nil
}

// Run executes the selected task
func (app *Application) Run(ctx context.Context) error {
	if app.HandleVersionFlag() {
		return nil
	}
	if err := app.SetupLogger(); err != nil {
		return err
	}
	if done, err := app.HandleConfigTemplate(); done {
		return err
	}

	if !IsTask(app.options.Task) {
		return common.NewConfigError("select task",
			fmt.Sprintf("argument task: invalid choice: %q (choose from %q, %q)",
				app.options.Task, manager.TaskCertbotInit, manager.TaskUpdateNginx))
	}

	settings, err := app.LoadSettings()
	if err != nil {
		return err
	}
	cfg, err := app.LoadConfiguration()
	if err != nil {
		return err
	}

	tasks := NewTaskRunner(cfg, settings, app.logger, app.runner)
	tasks.now = app.now
	return tasks.Run(ctx, app.options.Task)
}
