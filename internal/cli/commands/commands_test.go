package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamaar/rbrefactor/internal/cli"
	"github.com/mamaar/rbrefactor/internal/config"
	"github.com/mamaar/rbrefactor/pkg/analysis"
	"github.com/mamaar/rbrefactor/pkg/refactor"
	"github.com/mamaar/rbrefactor/pkg/types"
)

const areaSource = "def area(w, h)\n  puts w * h\n  log(w * h)\nend\n"

type runResult struct {
	code   int
	stdout string
	stderr string
}

// run executes the CLI with a config path that does not exist, so only
// flags configure the engine.
func run(t *testing.T, args ...string) runResult {
	t.Helper()
	t.Setenv(config.EnvExtractToVariable, "")

	var stdout, stderr bytes.Buffer
	app := cli.NewApp(&stdout, &stderr)
	runner := cli.NewRunner()
	Register(runner)

	full := append([]string{"--config", filepath.Join(t.TempDir(), "missing.toml")}, args...)
	code := app.Run(context.Background(), runner, full)
	return runResult{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func writeRuby(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "area.rb")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestParsePosition(t *testing.T) {
	pos, err := ParsePosition("2:8")
	require.NoError(t, err)
	assert.Equal(t, types.Position{Line: 1, Character: 7}, pos)

	for _, bad := range []string{"2", "a:1", "1:b", "0:1", "1:0", ""} {
		_, err := ParsePosition(bad)
		var usageErr *cli.UsageError
		assert.ErrorAs(t, err, &usageErr, "input %q", bad)
	}
}

func TestExtract_Preview(t *testing.T) {
	path := writeRuby(t, areaSource)

	res := run(t, "extract", path, "2:8", "2:13")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Extract Variable as newVariable")
	assert.Contains(t, res.stdout, "2:8-2:13")
	assert.Contains(t, res.stdout, "def area(w, h)\n  newVariable = w * h\n  puts newVariable\n  log(w * h)\nend\n")

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, areaSource, string(content), "preview must not write")
}

func TestExtract_JSONAllOccurrences(t *testing.T) {
	path := writeRuby(t, areaSource)

	res := run(t, "extract", "--json", "--occurrences", "all", "--name", "size", path, "2:8", "2:13")
	require.Equal(t, 0, res.code, res.stderr)

	var out ExtractOutput
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &out))
	assert.Equal(t, "size", out.Name)
	assert.Len(t, out.Edits, 3)
	assert.Equal(t, "def area(w, h)\n  size = w * h\n  puts size\n  log(size)\nend\n", out.Result)
	assert.False(t, out.Written)
}

func TestExtract_Write(t *testing.T) {
	path := writeRuby(t, areaSource)

	res := run(t, "--write", "--backup", "extract", path, "2:8", "2:13")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Wrote "+path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "def area(w, h)\n  newVariable = w * h\n  puts newVariable\n  log(w * h)\nend\n", string(content))

	backup, err := os.ReadFile(path + ".backup")
	require.NoError(t, err)
	assert.Equal(t, areaSource, string(backup))
}

func TestExtract_Errors(t *testing.T) {
	path := writeRuby(t, areaSource)

	testCases := map[string]struct {
		args     []string
		wantCode int
		wantErr  string
	}{
		"missing arguments": {
			args:     []string{"extract", path},
			wantCode: 2,
			wantErr:  "extract requires 3 arguments",
		},
		"bad position": {
			args:     []string{"extract", path, "2-8", "2:13"},
			wantCode: 2,
			wantErr:  "invalid position",
		},
		"explicitly disabled": {
			args:     []string{"--extract-to-variable=false", "extract", path, "2:8", "2:13"},
			wantCode: 1,
			wantErr:  "--extract-to-variable",
		},
		"not an expression": {
			args:     []string{"extract", path, "1:1", "1:4"},
			wantCode: 1,
			wantErr:  "Error:",
		},
		"missing file": {
			args:     []string{"extract", filepath.Join(t.TempDir(), "nope.rb"), "1:1", "1:2"},
			wantCode: 1,
			wantErr:  "failed to read",
		},
		"reserved name": {
			args:     []string{"--name", "end", "extract", path, "2:8", "2:13"},
			wantCode: 2,
			wantErr:  "not a valid local variable name",
		},
		"bad occurrences": {
			args:     []string{"--occurrences", "some", "extract", path, "2:8", "2:13"},
			wantCode: 2,
			wantErr:  "occurrences",
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			res := run(t, tc.args...)
			assert.Equal(t, tc.wantCode, res.code)
			assert.Contains(t, res.stderr, tc.wantErr)
		})
	}
}

func TestFixtures(t *testing.T) {
	dir := filepath.Join("..", "..", "..", "pkg", "fixture", "testdata", "extract_variable")

	res := run(t, "--verbose", "fixtures", dir)
	require.Equal(t, 0, res.code, res.stdout+res.stderr)
	assert.Contains(t, res.stdout, "PASS")
	assert.Contains(t, res.stdout, " 0 failed")
}

func TestFixtures_FailureAndUpdate(t *testing.T) {
	dir := t.TempDir()
	fixture := "# enable-experimental-lsp-extract-to-variable: true\n\ndef d\n  1 + 123\n#     ^^^ apply-code-action: [A] Extract Variable\nend\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "d.rb"), []byte(fixture), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "d.A.rbedited"), []byte("stale\n"), 0644))

	res := run(t, "fixtures", dir)
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stdout, "FAIL")
	assert.Contains(t, res.stdout, "-stale")

	res = run(t, "fixtures", "--update", dir)
	require.Equal(t, 0, res.code, res.stdout+res.stderr)
	assert.Contains(t, res.stdout, "UPDATED")

	res = run(t, "fixtures", dir)
	assert.Equal(t, 0, res.code, res.stdout)
}

func TestTree(t *testing.T) {
	path := writeRuby(t, areaSource)

	res := run(t, "tree", path)
	require.Equal(t, 0, res.code, res.stderr)
	assert.True(t, strings.HasPrefix(res.stdout, "Program"), res.stdout)
	assert.Contains(t, res.stdout, "Method")
	assert.Empty(t, res.stderr)
}

func TestConfig(t *testing.T) {
	res := run(t, "config", "--occurrences", "all", "--name", "total")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "extract_to_variable = false")
	cfg, err := config.Decode([]byte(res.stdout), "stdout")
	require.NoError(t, err)
	assert.Equal(t, analysis.AllOccurrences, cfg.Occurrences)
	assert.Equal(t, refactor.LayoutExpand, cfg.SingleLineStyle)
	assert.Equal(t, "total", cfg.VariableName)

	res = run(t, "--json", "--extract-to-variable", "config")
	require.Equal(t, 0, res.code, res.stderr)
	var settings config.Settings
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &settings))
	require.NotNil(t, settings.ExtractToVariable)
	assert.True(t, *settings.ExtractToVariable)
	assert.Equal(t, "single", settings.Occurrences)

	res = run(t, "config", "extra")
	assert.Equal(t, 2, res.code)
}

func TestVersion(t *testing.T) {
	for _, args := range [][]string{{"version"}, {"--version"}} {
		res := run(t, args...)
		assert.Equal(t, 0, res.code)
		assert.Equal(t, "rbrefactor version "+cli.Version+"\n", res.stdout)
	}
}

func TestUsage(t *testing.T) {
	res := run(t)
	assert.Equal(t, 2, res.code)
	assert.Contains(t, res.stderr, "Usage: rbrefactor")
	assert.Contains(t, res.stderr, "fixtures")
	assert.Contains(t, res.stderr, "--occurrences")

	res = run(t, "frobnicate")
	assert.Equal(t, 2, res.code)
	assert.Contains(t, res.stderr, "unknown command: frobnicate")
}
