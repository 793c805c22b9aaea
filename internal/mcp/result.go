package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mamaar/rbrefactor/pkg/types"
)

// textResult is a convenience that marshals v to JSON and wraps it in a
// CallToolResult with a single TextContent block.
func textResult(v any) *mcp.CallToolResult {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errResult(fmt.Errorf("marshal result: %w", err))
	}
	return mcp.NewToolResultText(string(b))
}

// errResult returns a CallToolResult that signals an error. Refactoring
// errors are prefixed with their kind.
func errResult(err error) *mcp.CallToolResult {
	if kind, ok := types.ErrorTypeOf(err); ok {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", kind, err))
	}
	return mcp.NewToolResultError(err.Error())
}
