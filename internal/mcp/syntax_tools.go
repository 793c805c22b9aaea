package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mamaar/rbrefactor/pkg/document"
)

func registerSyntaxTools(s *server.MCPServer, state *MCPServer) {
	s.AddTool(mcp.NewTool("syntax_tree",
		mcp.WithDescription("Show the syntax tree the refactoring engine sees for a Ruby file, one node per line with 1-based line:column ranges."),
		mcp.WithString("path", mcp.Required(), mcp.Description("path to the Ruby file; open documents use their current content")),
	), state.handleSyntaxTree)
}

func (s *MCPServer) handleSyntaxTree(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return errResult(err), nil
	}
	path = s.resolvePath(path)

	tree, ok := s.store.Get(document.PathToURI(path))
	if !ok {
		if tree, err = document.ReadFile(ctx, path); err != nil {
			return errResult(err), nil
		}
	}
	return mcp.NewToolResultText(tree.Dump()), nil
}
