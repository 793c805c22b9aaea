package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mamaar/rbrefactor/internal/config"
	"github.com/mamaar/rbrefactor/pkg/refactor"
	"github.com/mamaar/rbrefactor/pkg/types"
)

// App represents the rbrefactor application
type App struct {
	Stdout io.Writer
	Stderr io.Writer
	Flags  *Flags
	Logger *slog.Logger
}

// NewApp creates a new application instance
func NewApp(stdout, stderr io.Writer) *App {
	return &App{
		Stdout: stdout,
		Stderr: stderr,
		Flags:  NewFlags("rbrefactor"),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// Run parses args, executes the command and returns the process exit code.
func (app *App) Run(ctx context.Context, runner *Runner, args []string) int {
	if err := app.Flags.Parse(args); err != nil {
		fmt.Fprintf(app.Stderr, "Error: %v\n\n", err)
		Usage(app.Stderr, runner, app.Flags)
		return 2
	}

	if *app.Flags.Verbose {
		app.Logger = slog.New(slog.NewTextHandler(app.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	if *app.Flags.Version {
		ShowVersion(app.Stdout)
		return 0
	}

	positional := app.Flags.Args()
	if len(positional) < 1 {
		Usage(app.Stderr, runner, app.Flags)
		return 2
	}

	err := runner.Execute(ctx, app, positional[0], positional[1:])
	if err == nil {
		return 0
	}

	fmt.Fprintf(app.Stderr, "Error: %v\n", err)
	var usageErr *UsageError
	if errors.As(err, &usageErr) {
		fmt.Fprintln(app.Stderr)
		Usage(app.Stderr, runner, app.Flags)
		return 2
	}
	if kind, ok := types.ErrorTypeOf(err); ok && kind == types.FeatureDisabled {
		fmt.Fprintf(app.Stderr, "Enable it with --%s, %s=true or extract_to_variable in the config file.\n",
			FlagExtractToVariable, config.EnvExtractToVariable)
	}
	return 1
}

// Config resolves the engine configuration: config file, environment, then
// command line flags.
func (app *App) Config() (refactor.EngineConfig, error) {
	path := *app.Flags.Config
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return refactor.DefaultConfig(), fmt.Errorf("get working directory: %w", err)
		}
		if path, err = config.FindPath(wd); err != nil {
			app.Logger.Debug("no config file", "err", err)
			path = ""
		}
	}

	cfg, err := config.Resolve(path)
	if err != nil {
		return cfg, err
	}
	app.Logger.Debug("configuration loaded", "path", path, "extract_to_variable", cfg.ExtractToVariable)

	cfg, err = app.Flags.Settings().Apply(cfg)
	if err != nil {
		return cfg, Usagef("%v", err)
	}
	return cfg, nil
}

// CreateEngine creates a refactor engine with the resolved configuration
func (app *App) CreateEngine(cfg refactor.EngineConfig) *refactor.DefaultEngine {
	return refactor.CreateEngineWithConfig(cfg, refactor.WithLogger(app.Logger))
}
