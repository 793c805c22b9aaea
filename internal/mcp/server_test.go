package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamaar/rbrefactor/pkg/document"
	"github.com/mamaar/rbrefactor/pkg/refactor"
)

const areaSource = "def area(w, h)\n  puts w * h\nend\n"

func newTestState(t *testing.T) (*MCPServer, string) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "area.rb"), []byte(areaSource), 0644))

	cfg := refactor.DefaultConfig()
	cfg.ExtractToVariable = true
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	state := NewMCPServer(refactor.CreateEngineWithConfig(cfg, refactor.WithLogger(logger)), root, logger)
	t.Cleanup(state.Close)
	return state, root
}

func request(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return text.Text
}

func decode[T any](t *testing.T, res *mcp.CallToolResult) T {
	t.Helper()
	require.False(t, res.IsError, resultText(t, res))
	var out T
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	return out
}

func productArgs(extra map[string]any) map[string]any {
	args := map[string]any{
		"path":         "area.rb",
		"start_line":   float64(2),
		"start_column": float64(8),
		"end_line":     float64(2),
		"end_column":   float64(13),
	}
	for k, v := range extra {
		args[k] = v
	}
	return args
}

func TestOpenAndCloseDocument(t *testing.T) {
	state, root := newTestState(t)
	ctx := context.Background()

	res, err := state.handleOpenDocument(ctx, request(map[string]any{"path": "area.rb"}))
	require.NoError(t, err)
	doc := decode[DocumentOutput](t, res)
	assert.Equal(t, document.PathToURI(filepath.Join(root, "area.rb")), doc.URI)
	assert.Equal(t, 1, doc.Version)
	assert.False(t, doc.SyntaxErrors)

	res, err = state.handleOpenDocument(ctx, request(map[string]any{"path": "area.rb", "text": "x = (\n"}))
	require.NoError(t, err)
	doc = decode[DocumentOutput](t, res)
	assert.Equal(t, 2, doc.Version)
	assert.True(t, doc.SyntaxErrors)

	res, err = state.handleDocumentStatus(ctx, request(nil))
	require.NoError(t, err)
	status := decode[DocumentStatusOutput](t, res)
	require.Len(t, status.Documents, 1)
	assert.Equal(t, 2, status.Documents[0].Version)

	res, err = state.handleCloseDocument(ctx, request(map[string]any{"path": "area.rb"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	res, err = state.handleCloseDocument(ctx, request(map[string]any{"path": "area.rb"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "InvalidOperation")
}

func TestOpenDocument_Errors(t *testing.T) {
	state, _ := newTestState(t)

	res, err := state.handleOpenDocument(context.Background(), request(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = state.handleOpenDocument(context.Background(), request(map[string]any{"path": "missing.rb"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "FileSystemError")
}

func TestExtractVariable(t *testing.T) {
	state, _ := newTestState(t)

	res, err := state.handleExtractVariable(context.Background(), request(productArgs(map[string]any{"name": "product"})))
	require.NoError(t, err)
	out := decode[ExtractVariableOutput](t, res)

	assert.Equal(t, "product", out.Name)
	assert.Equal(t, 0, out.Version)
	assert.Equal(t, "def area(w, h)\n  product = w * h\n  puts product\nend\n", out.Result)
	assert.Len(t, out.Edits, 2)
	assert.Contains(t, out.Preview, "Preview of 2 edits")
	require.NotNil(t, out.SelectOnApply)
	assert.Equal(t, 1, out.SelectOnApply.Start.Line)
	assert.False(t, out.Written)
}

func TestExtractVariable_OpenDocumentVersion(t *testing.T) {
	state, _ := newTestState(t)
	ctx := context.Background()

	_, err := state.handleOpenDocument(ctx, request(map[string]any{"path": "area.rb"}))
	require.NoError(t, err)

	res, err := state.handleExtractVariable(ctx, request(productArgs(map[string]any{"version": float64(5)})))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "StaleDocument")

	res, err = state.handleExtractVariable(ctx, request(productArgs(map[string]any{"version": float64(1)})))
	require.NoError(t, err)
	out := decode[ExtractVariableOutput](t, res)
	assert.Equal(t, 1, out.Version)
	assert.Equal(t, "newVariable", out.Name)
}

func TestExtractVariable_Write(t *testing.T) {
	state, root := newTestState(t)
	ctx := context.Background()
	path := filepath.Join(root, "area.rb")

	_, err := state.handleOpenDocument(ctx, request(map[string]any{"path": "area.rb"}))
	require.NoError(t, err)

	res, err := state.handleExtractVariable(ctx, request(productArgs(map[string]any{"write": true})))
	require.NoError(t, err)
	out := decode[ExtractVariableOutput](t, res)
	assert.True(t, out.Written)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, out.Result, string(content))

	tree, ok := state.Store().Get(document.PathToURI(path))
	require.True(t, ok)
	assert.Equal(t, 2, tree.Version)
	assert.Equal(t, out.Result, string(tree.Source()))
}

func TestExtractVariable_WriteRefusesDivergedDocument(t *testing.T) {
	state, root := newTestState(t)
	ctx := context.Background()

	_, err := state.handleOpenDocument(ctx, request(map[string]any{"path": "area.rb", "text": "def area(w, h)\n  puts w * h # edited\nend\n"}))
	require.NoError(t, err)

	res, err := state.handleExtractVariable(ctx, request(productArgs(map[string]any{"write": true})))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "StaleDocument")

	content, err := os.ReadFile(filepath.Join(root, "area.rb"))
	require.NoError(t, err)
	assert.Equal(t, areaSource, string(content))
}

func TestExtractVariable_Errors(t *testing.T) {
	testCases := map[string]struct {
		args map[string]any
		want string
	}{
		"missing argument": {
			args: map[string]any{"path": "area.rb"},
			want: "start_line",
		},
		"zero column": {
			args: productArgs(map[string]any{"start_column": float64(0)}),
			want: "InvalidOperation",
		},
		"not an expression": {
			args: productArgs(map[string]any{"start_line": float64(1), "start_column": float64(1), "end_line": float64(1), "end_column": float64(4)}),
			want: "NotExtractable",
		},
		"bad name": {
			args: productArgs(map[string]any{"name": "Product"}),
			want: "InvalidOperation",
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			state, _ := newTestState(t)
			res, err := state.handleExtractVariable(context.Background(), request(tc.args))
			require.NoError(t, err)
			assert.True(t, res.IsError)
			assert.Contains(t, resultText(t, res), tc.want)
		})
	}
}

func TestSyntaxTree(t *testing.T) {
	state, _ := newTestState(t)

	res, err := state.handleSyntaxTree(context.Background(), request(map[string]any{"path": "area.rb"}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	dump := resultText(t, res)
	assert.Contains(t, dump, "Program")
	assert.Contains(t, dump, "Method")
}

func TestWatchReloadsOpenDocuments(t *testing.T) {
	state, root := newTestState(t)
	ctx := context.Background()
	path := filepath.Join(root, "area.rb")

	_, err := state.handleOpenDocument(ctx, request(map[string]any{"path": "area.rb"}))
	require.NoError(t, err)
	require.NoError(t, state.Watch(20*time.Millisecond))

	updated := "def area(w, h)\n  puts h * w\nend\n"
	require.NoError(t, os.WriteFile(path, []byte(updated), 0644))

	assert.Eventually(t, func() bool {
		tree, ok := state.Store().Get(document.PathToURI(path))
		return ok && string(tree.Source()) == updated
	}, 5*time.Second, 20*time.Millisecond)
}

func TestServerListsTools(t *testing.T) {
	state, _ := newTestState(t)
	s := NewServer(state, "test")
	ctx := context.Background()

	s.HandleMessage(ctx, json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"1"}}}`))
	response := s.HandleMessage(ctx, json.RawMessage(`{"jsonrpc":"2.0","id":2,"method":"tools/list","params":{}}`))

	raw, err := json.Marshal(response)
	require.NoError(t, err)
	var decoded struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))

	names := make([]string, 0, len(decoded.Result.Tools))
	for _, tool := range decoded.Result.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"open_document", "close_document", "document_status", "extract_variable", "syntax_tree"}, names)
}
