package commands

import (
	"context"

	"github.com/mamaar/rbrefactor/internal/cli"
	"github.com/mamaar/rbrefactor/internal/config"
)

// ConfigCommand prints the effective configuration as TOML, after the config
// file, environment and flags have been applied.
func ConfigCommand(ctx context.Context, app *cli.App, args []string) error {
	if len(args) != 0 {
		return cli.Usagef("config takes no arguments")
	}

	cfg, err := app.Config()
	if err != nil {
		return err
	}
	if *app.Flags.JSON {
		return OutputJSON(app.Stdout, config.SettingsOf(cfg))
	}

	data, err := config.Encode(cfg)
	if err != nil {
		return err
	}
	_, err = app.Stdout.Write(data)
	return err
}
