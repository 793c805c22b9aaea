package commands

import (
	"context"

	"github.com/mamaar/rbrefactor/internal/cli"
)

// VersionCommand handles the version command
func VersionCommand(ctx context.Context, app *cli.App, args []string) error {
	if len(args) > 0 {
		return cli.Usagef("version takes no arguments")
	}
	cli.ShowVersion(app.Stdout)
	return nil
}
