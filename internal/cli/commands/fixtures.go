package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/mamaar/rbrefactor/internal/cli"
	"github.com/mamaar/rbrefactor/pkg/fixture"
	"github.com/mamaar/rbrefactor/pkg/types"
)

// FixturesCommand checks annotated fixture files against their expectation
// files. Directories are searched for *.rb files.
func FixturesCommand(ctx context.Context, app *cli.App, args []string) error {
	if len(args) < 1 {
		return cli.Usagef("fixtures requires at least 1 argument: <file or directory>...")
	}

	paths, err := fixturePaths(args)
	if err != nil {
		return err
	}

	base, err := app.Config()
	if err != nil {
		return err
	}

	runner := fixture.NewRunner(app.Logger)
	runner.Base = base
	runner.Update = *app.Flags.Update
	runner.Concurrency = *app.Flags.Concurrency

	results, err := runner.RunFiles(ctx, paths)
	if err != nil {
		return err
	}

	var passed, failed, skipped, updated int
	for _, res := range results {
		name := fmt.Sprintf("%s [%s]", res.Fixture, res.Label)
		switch {
		case res.Err != nil:
			failed++
			fmt.Fprintf(app.Stdout, "FAIL %s: %v\n", name, res.Err)
		case res.Skipped:
			skipped++
			fmt.Fprintf(app.Stdout, "SKIP %s\n", name)
		case res.Updated:
			updated++
			fmt.Fprintf(app.Stdout, "UPDATED %s\n", name)
		case res.Passed():
			passed++
			if *app.Flags.Verbose {
				fmt.Fprintf(app.Stdout, "PASS %s\n", name)
			}
		default:
			failed++
			fmt.Fprintf(app.Stdout, "FAIL %s\n%s", name, res.Diff())
		}
	}

	fmt.Fprintf(app.Stdout, "\n%d passed, %d failed, %d skipped, %d updated\n", passed, failed, skipped, updated)
	if failed > 0 {
		return fmt.Errorf("%d fixture assertions failed", failed)
	}
	return nil
}

func fixturePaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, &types.RefactorError{Type: types.FileSystemError, Message: fmt.Sprintf("failed to stat %s", arg), Cause: err}
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(arg, "*.rb"))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return nil, cli.Usagef("no fixture files found in %v", args)
	}
	return paths, nil
}
