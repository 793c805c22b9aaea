package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/mamaar/rbrefactor/internal/cli"
	"github.com/mamaar/rbrefactor/internal/config"
	"github.com/mamaar/rbrefactor/internal/lsp"
	"github.com/mamaar/rbrefactor/internal/telemetry"
	"github.com/mamaar/rbrefactor/pkg/refactor"
)

var (
	flagPort       = pflag.Int("port", 0, "TCP port to listen on (0 for stdio)")
	flagWebSocket  = pflag.String("websocket", "", "Serve LSP over WebSocket on this address (e.g. :7658)")
	flagLogFile    = pflag.String("logfile", filepath.Join(os.TempDir(), "rbrefactor-lsp.log"), "Log file path")
	flagLogLevel   = pflag.String("log-level", "info", "Log level: debug, info, warn or error")
	flagConfig     = pflag.String("config", "", "Config file (default: "+config.ProjectFileName+" in the working directory, then the user config)")
	flagNoWatch    = pflag.Bool("no-watch", false, "Do not reload the config file when it changes")
	flagVersion    = pflag.Bool("version", false, "Show version information")
	flagStdioAlias = pflag.Bool("stdio", false, "Serve on stdio (the default; accepted for editor compatibility)")
)

func main() {
	pflag.Parse()

	if *flagVersion {
		fmt.Printf("rbrefactor-lsp version %s\n", cli.Version)
		os.Exit(0)
	}

	logger, closeLog, err := initLogging(*flagLogLevel, *flagLogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("LSP server failed", "err", err)
		closeLog()
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	wd, _ := os.Getwd()
	logger.Info("rbrefactor LSP server starting",
		"version", cli.Version,
		"pid", os.Getpid(),
		"args", os.Args,
		"cwd", wd,
		"port", *flagPort,
		"websocket", *flagWebSocket,
		"stdio", *flagStdioAlias,
	)

	tel, err := telemetry.Setup(ctx, withVersion(telemetry.LoadConfigFromEnv()))
	if err != nil {
		return fmt.Errorf("set up telemetry: %w", err)
	}
	defer shutdownTelemetry(tel, logger)

	configPath := *flagConfig
	if configPath == "" {
		if configPath, err = config.FindPath(wd); err != nil {
			logger.Warn("no config file location", "err", err)
		}
	}
	cfg, err := config.Resolve(configPath)
	if err != nil {
		logger.Warn("using default configuration", "path", configPath, "err", err)
		cfg = refactor.DefaultConfig()
	}
	logger.Info("configuration loaded", "path", configPath, "extract_to_variable", cfg.ExtractToVariable)

	engine := refactor.CreateEngineWithConfig(cfg,
		refactor.WithLogger(logger),
		refactor.WithTracerProvider(tel.TracerProvider()),
		refactor.WithMeterProvider(tel.MeterProvider()),
	)
	server := lsp.NewServer(engine, lsp.WithLogger(logger), lsp.WithVersion(cli.Version))

	if configPath != "" && !*flagNoWatch {
		go func() {
			if err := config.Watch(ctx, configPath, logger, server.SetBaseConfig); err != nil {
				logger.Warn("config watcher stopped", "path", configPath, "err", err)
			}
		}()
	}

	if *flagWebSocket != "" {
		return server.ServeWebSocket(ctx, *flagWebSocket)
	}
	return server.Start(ctx, *flagPort)
}

// initLogging opens the log file and returns a logger at the given level.
// Standard output carries the protocol, so nothing is logged there.
func initLogging(levelStr, filename string) (*slog.Logger, func(), error) {
	level := new(slog.LevelVar)
	switch levelStr {
	case "debug":
		level.Set(slog.LevelDebug)
	case "info":
		level.Set(slog.LevelInfo)
	case "warn":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	default:
		return nil, nil, fmt.Errorf("unknown log level %q", levelStr)
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	logfile, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file %s: %w", filename, err)
	}

	logger := slog.New(slog.NewTextHandler(logfile, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger, func() { _ = logfile.Close() }, nil
}

func withVersion(cfg telemetry.Config) telemetry.Config {
	cfg.ServiceName = "rbrefactor-lsp"
	cfg.ServiceVersion = cli.Version
	return cfg
}

// shutdownTelemetry logs the collected metrics and flushes the exporters.
func shutdownTelemetry(tel *telemetry.Provider, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if rm, err := tel.Collect(ctx); err == nil {
		for _, sm := range rm.ScopeMetrics {
			for _, m := range sm.Metrics {
				logger.Info("metric", "name", m.Name, "data", m.Data)
			}
		}
	}
	if err := tel.Shutdown(ctx); err != nil {
		logger.Warn("telemetry shutdown failed", "err", err)
	}
}
