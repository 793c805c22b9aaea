package main

import (
	"context"
	"io"
	"os"
	"os/signal"

	"github.com/mamaar/rbrefactor/internal/cli"
	"github.com/mamaar/rbrefactor/internal/cli/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	app := cli.NewApp(stdout, stderr)
	runner := cli.NewRunner()
	commands.Register(runner)
	return app.Run(ctx, runner, args)
}
