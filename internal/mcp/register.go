package mcp

import "github.com/mark3labs/mcp-go/server"

// RegisterAllTools wires every rbrefactor tool into the MCP server.
func RegisterAllTools(s *server.MCPServer, state *MCPServer) {
	registerDocumentTools(s, state)
	registerExtractTools(s, state)
	registerSyntaxTools(s, state)
}
