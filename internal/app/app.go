package app

import (
	"io"
	"log/slog"
	"os"

	"github.com/vk/ecow/internal/action"
	"github.com/vk/ecow/internal/config"
	"github.com/vk/ecow/internal/executor"
	"github.com/vk/ecow/internal/fingerprint"
	"github.com/vk/ecow/internal/incremental"
	"github.com/vk/ecow/internal/registry"
	"github.com/vk/ecow/modules/print"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logW     io.Writer
	printW   io.Writer
	logger   *slog.Logger
	config   *Config
	loader   config.Loader
	registry *registry.Registry
	actions  *action.Registry
	store    fingerprint.Store

	plan   *incremental.BuildPlan
	report *executor.Report
}

// Option configures an App.
type Option func(*App)

// WithLogWriter sends log output to w instead of os.Stderr.
func WithLogWriter(w io.Writer) Option {
	return func(a *App) {
		a.logW = w
	}
}

// WithPrintWriter sends the output of the print part kind to w instead of
// os.Stderr. The plan and the build report keep their own writer.
func WithPrintWriter(w io.Writer) Option {
	return func(a *App) {
		a.printW = w
	}
}

// WithStore replaces the state store selected by the configuration.
func WithStore(s fingerprint.Store) Option {
	return func(a *App) {
		a.store = s
	}
}

// WithModules replaces the action modules compiled into the binary.
func WithModules(modules ...action.Module) Option {
	return func(a *App) {
		a.actions = action.NewRegistry()
		for _, mod := range modules {
			mod.Register(a.actions)
		}
	}
}

// NewApp is the constructor for the main application. Only the plan or the
// build report is written to outW. Logs and print parts go to os.Stderr
// unless WithLogWriter or WithPrintWriter say otherwise.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader, opts ...Option) *App {
	a := &App{
		outW:     outW,
		logW:     os.Stderr,
		printW:   os.Stderr,
		config:   appConfig,
		loader:   loader,
		registry: registry.New(),
	}
	for _, opt := range opts {
		opt(a)
	}

	a.logger = newLogger(appConfig.LogLevel, appConfig.LogFormat, a.logW)
	a.logger.Debug("Logger configured successfully.")

	if a.actions == nil {
		a.actions = action.NewRegistry()
		for _, mod := range coreModules(a.printW) {
			mod.Register(a.actions)
		}
	}
	a.logger.Debug("Part actions registered.", "kinds", a.actions.Kinds())

	return a
}

// coreModules is the list of action modules compiled into the ecow binary.
func coreModules(printW io.Writer) []action.Module {
	return []action.Module{
		&print.Module{Out: printW},
	}
}

// Registry returns the application's unit registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Plan returns the plan computed by the last Run, or nil.
func (a *App) Plan() *incremental.BuildPlan {
	return a.plan
}

// Report returns the build report of the last executing Run, or nil.
func (a *App) Report() *executor.Report {
	return a.report
}
