package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/pflag"

	"github.com/mamaar/rbrefactor/internal/cli"
	"github.com/mamaar/rbrefactor/internal/config"
	"github.com/mamaar/rbrefactor/internal/mcp"
	"github.com/mamaar/rbrefactor/internal/telemetry"
	"github.com/mamaar/rbrefactor/pkg/refactor"
)

var (
	workspaceFlag = pflag.String("workspace", "", "Root directory for relative paths (defaults to current directory)")
	portFlag      = pflag.Int("port", 0, "Serve streamable HTTP on this port (0 for stdio)")
	debugFlag     = pflag.Bool("debug", false, "Enable debug logging")
	watchFlag     = pflag.Bool("watch", true, "Reload open documents when their files change")
	configFlag    = pflag.String("config", "", "Config file (default: "+config.ProjectFileName+" in the workspace, then the user config)")
	enableFlag    = pflag.Bool("extract-to-variable", true, "Enable the extract_variable tool")
	versionFlag   = pflag.Bool("version", false, "Show version information")
)

func main() {
	pflag.Parse()

	if *versionFlag {
		fmt.Printf("rbrefactor-mcp version %s\n", cli.Version)
		os.Exit(0)
	}

	level := slog.LevelInfo
	if *debugFlag {
		level = slog.LevelDebug
	}
	// Standard output carries the protocol in stdio mode.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("MCP server failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	root := *workspaceFlag
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}
		root = wd
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve workspace path: %w", err)
	}

	configPath := *configFlag
	if configPath == "" {
		if configPath, err = config.FindPath(root); err != nil {
			logger.Warn("no config file location", "err", err)
		}
	}
	cfg, err := config.Resolve(configPath)
	if err != nil {
		return err
	}
	// Calling the tool is the opt-in unless the gate is set explicitly.
	cfg.ExtractToVariable = true
	if pflag.CommandLine.Changed("extract-to-variable") {
		cfg.ExtractToVariable = *enableFlag
	}

	tel, err := telemetry.Setup(ctx, telemetry.LoadConfigFromEnv())
	if err != nil {
		return fmt.Errorf("set up telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tel.Shutdown(shutdownCtx)
	}()

	engine := refactor.CreateEngineWithConfig(cfg,
		refactor.WithLogger(logger),
		refactor.WithTracerProvider(tel.TracerProvider()),
		refactor.WithMeterProvider(tel.MeterProvider()),
	)
	state := mcp.NewMCPServer(engine, root, logger)
	defer state.Close()

	if *watchFlag {
		if err := state.Watch(200 * time.Millisecond); err != nil {
			logger.Warn("watcher unavailable, open documents will not auto-update", "err", err)
		}
	}

	s := mcp.NewServer(state, cli.Version)
	logger.Info("starting MCP server", "root", root, "port", *portFlag)

	if *portFlag == 0 {
		return server.NewStdioServer(s).Listen(ctx, os.Stdin, os.Stdout)
	}

	httpServer := server.NewStreamableHTTPServer(s)
	errc := make(chan error, 1)
	go func() { errc <- httpServer.Start(fmt.Sprintf(":%d", *portFlag)) }()
	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}
