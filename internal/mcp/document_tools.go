package mcp

import (
	"context"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mamaar/rbrefactor/pkg/document"
	"github.com/mamaar/rbrefactor/pkg/types"
)

// DocumentOutput describes an open document.
type DocumentOutput struct {
	URI          string `json:"uri"`
	Version      int    `json:"version"`
	Lines        int    `json:"lines"`
	SyntaxErrors bool   `json:"syntax_errors"`
}

// DocumentStatusOutput lists the open documents.
type DocumentStatusOutput struct {
	Root      string           `json:"root"`
	Documents []DocumentOutput `json:"documents"`
}

func registerDocumentTools(s *server.MCPServer, state *MCPServer) {
	s.AddTool(mcp.NewTool("open_document",
		mcp.WithDescription("Open a Ruby file for refactoring. The content is read from disk unless text is given. Reopening a document bumps its version."),
		mcp.WithString("path", mcp.Required(), mcp.Description("path to the Ruby file (absolute or relative to the server root)")),
		mcp.WithString("text", mcp.Description("document content to use instead of the file on disk")),
	), state.handleOpenDocument)

	s.AddTool(mcp.NewTool("close_document",
		mcp.WithDescription("Close a document opened with open_document."),
		mcp.WithString("path", mcp.Required(), mcp.Description("path of the open document")),
	), state.handleCloseDocument)

	s.AddTool(mcp.NewTool("document_status",
		mcp.WithDescription("List the open documents with their versions."),
	), state.handleDocumentStatus)
}

func (s *MCPServer) handleOpenDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return errResult(err), nil
	}
	path = s.resolvePath(path)
	uri := document.PathToURI(path)

	text := req.GetString("text", "")
	if text == "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return errResult(&types.RefactorError{Type: types.FileSystemError, Message: "failed to read " + path, Cause: err}), nil
		}
		text = string(content)
	}

	version := 1
	if current, ok := s.store.Get(uri); ok {
		version = current.Version + 1
	}

	tree, err := s.store.Open(ctx, uri, version, text)
	if err != nil {
		return errResult(err), nil
	}
	return textResult(describe(tree.URI, tree.Version, tree.Lines().LineCount(), tree.HasErrors())), nil
}

func (s *MCPServer) handleCloseDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return errResult(err), nil
	}
	uri := document.PathToURI(s.resolvePath(path))
	if !s.store.Close(uri) {
		return errResult(types.Errorf(types.InvalidOperation, "document %s is not open", uri)), nil
	}
	return textResult(map[string]string{"closed": uri}), nil
}

func (s *MCPServer) handleDocumentStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out := DocumentStatusOutput{Root: s.root, Documents: []DocumentOutput{}}
	for _, uri := range s.store.URIs() {
		tree, ok := s.store.Get(uri)
		if !ok {
			continue
		}
		out.Documents = append(out.Documents, describe(tree.URI, tree.Version, tree.Lines().LineCount(), tree.HasErrors()))
	}
	return textResult(out), nil
}

func describe(uri string, version, lines int, syntaxErrors bool) DocumentOutput {
	return DocumentOutput{URI: uri, Version: version, Lines: lines, SyntaxErrors: syntaxErrors}
}
