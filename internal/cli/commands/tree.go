package commands

import (
	"context"
	"fmt"

	"github.com/mamaar/rbrefactor/internal/cli"
	"github.com/mamaar/rbrefactor/pkg/document"
)

// TreeCommand prints the syntax tree of a Ruby file
func TreeCommand(ctx context.Context, app *cli.App, args []string) error {
	if len(args) != 1 {
		return cli.Usagef("tree requires 1 argument: <file>")
	}

	tree, err := document.ReadFile(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprint(app.Stdout, tree.Dump())
	if tree.HasErrors() {
		fmt.Fprintf(app.Stderr, "warning: %s has syntax errors\n", args[0])
	}
	return nil
}
