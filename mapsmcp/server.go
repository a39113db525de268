package mapsmcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/uslanozan/Gollama-the-Navigator/tools"
)

// NewServer publishes list over MCP with each tool's own schema.
func NewServer(name, version string, list ...tools.Tool) *server.MCPServer {
	s := server.NewMCPServer(name, version, server.WithToolCapabilities(false))
	for _, t := range list {
		s.AddTool(mcp.NewToolWithRawSchema(t.Name, t.Description, t.Schema), handlerFor(t))
	}
	return s
}

// ServeStdio blocks serving s on stdin/stdout.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

// handlerFor reports tool failures as MCP error results, not protocol errors.
func handlerFor(t tools.Tool) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := json.Marshal(request.GetArguments())
		if err != nil {
			return mcp.NewToolResultError("invalid arguments: " + err.Error()), nil
		}

		out, err := t.Invoke(ctx, args)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(out), nil
	}
}
