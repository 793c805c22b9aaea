package fixture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"runtime"

	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/sync/errgroup"

	"github.com/mamaar/rbrefactor/pkg/document"
	"github.com/mamaar/rbrefactor/pkg/refactor"
	"github.com/mamaar/rbrefactor/pkg/syntax"
	"github.com/mamaar/rbrefactor/pkg/types"
)

// Result is the outcome of one assertion.
type Result struct {
	Fixture      string
	Label        string
	Title        string
	ExpectedPath string
	Got          []byte
	Want         []byte
	// Err is set when no action could be computed or compared.
	Err error
	// Skipped is set when the action's kind is filtered out by the fixture.
	Skipped bool
	// Updated is set when the expectation file was (re)written.
	Updated bool
}

// Passed reports whether the assertion held.
func (r Result) Passed() bool {
	if r.Err != nil {
		return false
	}
	return r.Skipped || bytes.Equal(r.Got, r.Want)
}

// Diff renders a unified diff from the expected to the actual output.
func (r Result) Diff() string {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(r.Want)),
		B:        difflib.SplitLines(string(r.Got)),
		FromFile: r.ExpectedPath,
		ToFile:   "actual",
		Context:  2,
	})
	if err != nil {
		return err.Error()
	}
	return diff
}

// Runner checks fixtures against their expectation files.
type Runner struct {
	// Base is the configuration headers are applied to.
	Base refactor.EngineConfig
	// Options are passed to every engine the runner creates.
	Options []refactor.Option
	// Update rewrites expectation files instead of comparing against them.
	Update bool
	// Concurrency bounds the fixtures checked at once. Zero means GOMAXPROCS.
	Concurrency int

	logger *slog.Logger
}

func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{Base: refactor.DefaultConfig(), logger: logger}
}

// RunFiles loads and runs every fixture in paths. Results are ordered by
// path, then by annotation.
func (r *Runner) RunFiles(ctx context.Context, paths []string) ([]Result, error) {
	perFile := make([][]Result, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	limit := r.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(limit)

	for i, path := range paths {
		g.Go(func() error {
			f, err := Load(path)
			if err != nil {
				return err
			}
			results, err := r.RunFixture(ctx, f)
			if err != nil {
				return err
			}
			perFile[i] = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []Result
	for _, results := range perFile {
		all = append(all, results...)
	}
	return all, nil
}

// RunFixture applies every annotated action of f.
func (r *Runner) RunFixture(ctx context.Context, f *Fixture) ([]Result, error) {
	cfg, err := f.Config(r.Base)
	if err != nil {
		return nil, err
	}
	engine := refactor.CreateEngineWithConfig(cfg, r.Options...)

	tree, err := syntax.Parse(ctx, document.PathToURI(f.Path), 1, f.Source)
	if err != nil {
		return nil, err
	}
	if tree.HasErrors() {
		r.logger.Warn("fixture has syntax errors", "fixture", f.Path)
	}

	only := f.KindFilter()
	results := make([]Result, 0, len(f.Assertions))
	for _, a := range f.Assertions {
		res := Result{
			Fixture:      f.Path,
			Label:        a.Label,
			Title:        a.Title,
			ExpectedPath: f.ExpectedPath(a.Label),
		}
		r.apply(ctx, engine, tree, a, only, &res)
		r.logger.Debug("fixture assertion", "fixture", f.Path, "label", a.Label, "passed", res.Passed(), "err", res.Err)
		results = append(results, res)
	}
	return results, nil
}

func (r *Runner) apply(ctx context.Context, engine *refactor.DefaultEngine, tree *syntax.Tree, a Assertion, only []string, res *Result) {
	action, err := engine.ExtractVariable(ctx, tree, types.ExtractVariableRequest{
		URI:     tree.URI,
		Version: tree.Version,
		Range:   a.Range,
	})
	if err != nil {
		res.Err = fmt.Errorf("[%s] %s: %w", a.Label, a.Title, err)
		return
	}
	if action.Title != a.Title {
		res.Err = fmt.Errorf("[%s] expected action %q, got %q", a.Label, a.Title, action.Title)
		return
	}
	if !types.KindMatches(action.Kind, only) {
		res.Skipped = true
		return
	}

	res.Got, err = refactor.ApplyEdits(tree.Source(), action.Edits)
	if err != nil {
		res.Err = fmt.Errorf("[%s] apply edits: %w", a.Label, err)
		return
	}

	res.Want, err = os.ReadFile(res.ExpectedPath)
	switch {
	case r.Update && (err != nil || !bytes.Equal(res.Want, res.Got)):
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			res.Err = fmt.Errorf("[%s] read expectation: %w", a.Label, err)
			return
		}
		if err := os.WriteFile(res.ExpectedPath, res.Got, 0644); err != nil {
			res.Err = &types.RefactorError{Type: types.FileSystemError, Message: "failed to write expectation", File: res.ExpectedPath, Cause: err}
			return
		}
		res.Want = res.Got
		res.Updated = true
	case err != nil:
		res.Err = &types.RefactorError{Type: types.FileSystemError, Message: "missing expectation file", File: res.ExpectedPath, Cause: err}
	}
}
