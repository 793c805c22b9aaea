package mcp

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mamaar/rbrefactor/pkg/document"
	"github.com/mamaar/rbrefactor/pkg/refactor"
	"github.com/mamaar/rbrefactor/pkg/syntax"
	"github.com/mamaar/rbrefactor/pkg/types"
)

// ExtractVariableOutput is the structured output of extract_variable.
type ExtractVariableOutput struct {
	URI           string           `json:"uri"`
	Version       int              `json:"version"`
	Name          string           `json:"name"`
	Edits         []types.TextEdit `json:"edits"`
	SelectOnApply *types.Range     `json:"select_on_apply,omitempty"`
	Preview       string           `json:"preview"`
	Result        string           `json:"result"`
	Written       bool             `json:"written"`
}

func registerExtractTools(s *server.MCPServer, state *MCPServer) {
	s.AddTool(mcp.NewTool("extract_variable",
		mcp.WithDescription("Extract the Ruby expression in a range into a new local variable declared before the statement that uses it. "+
			"Lines and columns are 1-based; columns count UTF-16 code units. Documents that are not open are read from disk."),
		mcp.WithString("path", mcp.Required(), mcp.Description("path to the Ruby file")),
		mcp.WithNumber("start_line", mcp.Required(), mcp.Description("line where the expression starts")),
		mcp.WithNumber("start_column", mcp.Required(), mcp.Description("column where the expression starts")),
		mcp.WithNumber("end_line", mcp.Required(), mcp.Description("line where the expression ends")),
		mcp.WithNumber("end_column", mcp.Required(), mcp.Description("column just past the end of the expression")),
		mcp.WithString("name", mcp.Description("name for the new variable (a fresh name is derived from it)")),
		mcp.WithNumber("version", mcp.Description("document version the range refers to (defaults to the current version)")),
		mcp.WithBoolean("write", mcp.Description("write the result back to the file")),
	), state.handleExtractVariable)
}

func (s *MCPServer) handleExtractVariable(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return errResult(err), nil
	}
	rng, err := requireRange(req)
	if err != nil {
		return errResult(err), nil
	}
	path = s.resolvePath(path)
	uri := document.PathToURI(path)

	tree, open := s.store.Get(uri)
	if !open {
		if tree, err = document.ReadFile(ctx, path); err != nil {
			return errResult(err), nil
		}
	}

	result, err := s.engine.ExtractVariable(ctx, tree, types.ExtractVariableRequest{
		URI:     uri,
		Version: req.GetInt("version", tree.Version),
		Range:   rng,
		Name:    req.GetString("name", ""),
	})
	if err != nil {
		return errResult(err), nil
	}

	edited, err := refactor.ApplyEdits(tree.Source(), result.Edits)
	if err != nil {
		return errResult(err), nil
	}

	out := ExtractVariableOutput{
		URI:           uri,
		Version:       tree.Version,
		Name:          result.Name,
		Edits:         result.Edits,
		SelectOnApply: result.SelectOnApply,
		Preview:       refactor.PreviewEdits(uri, tree.Source(), result.Edits),
		Result:        string(edited),
	}

	if req.GetBool("write", false) {
		if err := s.write(ctx, path, tree, result.Edits, edited, open); err != nil {
			return errResult(err), nil
		}
		out.Written = true
	}
	return textResult(out), nil
}

// write stores the edited document on disk. The file must still hold the
// content the edits were computed against.
func (s *MCPServer) write(ctx context.Context, path string, tree *syntax.Tree, edits []types.TextEdit, edited []byte, open bool) error {
	current, err := os.ReadFile(path)
	if err != nil {
		return &types.RefactorError{Type: types.FileSystemError, Message: "failed to read " + path, Cause: err}
	}
	if !bytes.Equal(current, tree.Source()) {
		return types.Errorf(types.StaleDocument, "%s differs from the open document", path)
	}

	if err := refactor.NewSerializer().WriteFile(path, edits); err != nil {
		return err
	}
	s.logger.Info("wrote extract variable", "file", path, "edits", len(edits))

	if open {
		if _, _, err := s.store.Reload(ctx, tree.URI, edited); err != nil {
			return fmt.Errorf("reload %s: %w", path, err)
		}
	}
	return nil
}

// requireRange converts the 1-based tool arguments to an LSP range.
func requireRange(req mcp.CallToolRequest) (types.Range, error) {
	var values [4]int
	for i, key := range []string{"start_line", "start_column", "end_line", "end_column"} {
		v, err := req.RequireInt(key)
		if err != nil {
			return types.Range{}, err
		}
		if v < 1 {
			return types.Range{}, types.Errorf(types.InvalidOperation, "%s must be at least 1, got %d", key, v)
		}
		values[i] = v - 1
	}
	return types.Range{
		Start: types.Position{Line: values[0], Character: values[1]},
		End:   types.Position{Line: values[2], Character: values[3]},
	}, nil
}
