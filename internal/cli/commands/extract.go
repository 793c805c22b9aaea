package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/mamaar/rbrefactor/internal/cli"
	"github.com/mamaar/rbrefactor/pkg/document"
	"github.com/mamaar/rbrefactor/pkg/refactor"
	"github.com/mamaar/rbrefactor/pkg/types"
)

// ExtractOutput is the --json form of the extract command.
type ExtractOutput struct {
	File          string           `json:"file"`
	Name          string           `json:"name"`
	Edits         []types.TextEdit `json:"edits"`
	SelectOnApply *types.Range     `json:"select_on_apply,omitempty"`
	Result        string           `json:"result"`
	Written       bool             `json:"written"`
}

// ExtractCommand extracts the expression between two positions of a file
// into a new local variable.
func ExtractCommand(ctx context.Context, app *cli.App, args []string) error {
	if len(args) != 3 {
		return cli.Usagef("extract requires 3 arguments: <file> <start line:col> <end line:col>")
	}
	path := args[0]
	start, err := ParsePosition(args[1])
	if err != nil {
		return err
	}
	end, err := ParsePosition(args[2])
	if err != nil {
		return err
	}

	cfg, err := app.Config()
	if err != nil {
		return err
	}
	// Running the command is the opt-in unless the gate is set explicitly.
	if !app.Flags.Changed(cli.FlagExtractToVariable) {
		cfg.ExtractToVariable = true
	}

	tree, err := document.ReadFile(ctx, path)
	if err != nil {
		return err
	}

	engine := app.CreateEngine(cfg)
	result, err := engine.ExtractVariable(ctx, tree, types.ExtractVariableRequest{
		URI:     tree.URI,
		Version: tree.Version,
		Range:   types.Range{Start: start, End: end},
	})
	if err != nil {
		return err
	}

	edited, err := refactor.ApplyEdits(tree.Source(), result.Edits)
	if err != nil {
		return err
	}

	written := false
	if *app.Flags.Write {
		serializer := refactor.NewSerializer()
		serializer.Backup = *app.Flags.Backup
		if err := serializer.WriteFile(path, result.Edits); err != nil {
			return err
		}
		written = true
	}

	if *app.Flags.JSON {
		return OutputJSON(app.Stdout, ExtractOutput{
			File:          path,
			Name:          result.Name,
			Edits:         result.Edits,
			SelectOnApply: result.SelectOnApply,
			Result:        string(edited),
			Written:       written,
		})
	}

	fmt.Fprintf(app.Stdout, "%s: %s as %s\n\n", filepath.Base(path), result.Title, result.Name)
	renderEdits(app.Stdout, tree.Source(), result.Edits)
	if written {
		fmt.Fprintf(app.Stdout, "\nWrote %s\n", path)
	} else {
		fmt.Fprintf(app.Stdout, "\n%s", edited)
	}
	return nil
}
