// Package mapsmcp connects the assistant to Model Context Protocol servers.
//
// Toolset is the client side: it talks to a maps MCP server (by default the
// Google Maps server started with npx over stdio) and exposes each of its tools
// as a tools.Tool. NewServer is the server side: it publishes tools.Tool values
// over MCP.
package mapsmcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/uslanozan/Gollama-the-Navigator/config"
	"github.com/uslanozan/Gollama-the-Navigator/tools"
)

const (
	callTimeout   = 30 * time.Second
	clientName    = "gollama-navigator"
	clientVersion = "1.0.0"
)

// Client is the subset of the mcp-go client the toolset calls.
type Client interface {
	ListTools(ctx context.Context, request mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
	Close() error
}

type initializer interface {
	Initialize(ctx context.Context, request mcp.InitializeRequest) (*mcp.InitializeResult, error)
}

// Toolset wraps the tools of one MCP server.
type Toolset struct {
	name   string
	client Client
	tools  []tools.Tool
	logger *zap.Logger
}

// Connect starts (stdio) or dials (http) the server described by cfg,
// initializes the session and discovers its tools.
func Connect(ctx context.Context, name string, cfg config.MCPConfig, logger *zap.Logger) (*Toolset, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var c *mcpclient.Client
	switch cfg.Transport {
	case "stdio", "":
		var err error
		c, err = mcpclient.NewStdioMCPClient(cfg.Command, cfg.Env, cfg.Args...)
		if err != nil {
			return nil, fmt.Errorf("mcp server %q: create stdio client: %w", name, err)
		}
	case "http":
		t, err := transport.NewStreamableHTTP(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("mcp server %q: create http transport: %w", name, err)
		}
		c = mcpclient.NewClient(t)
		if err := c.Start(ctx); err != nil {
			return nil, fmt.Errorf("mcp server %q: start http client: %w", name, err)
		}
	default:
		return nil, fmt.Errorf("mcp server %q: unsupported transport %q", name, cfg.Transport)
	}

	if err := initialize(ctx, c); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("mcp server %q: %w", name, err)
	}

	logger.Info("mcp server connected",
		zap.String("name", name),
		zap.String("transport", cfg.Transport),
		zap.String("command", cfg.Command))

	ts, err := NewToolset(ctx, name, c, cfg.ToolFilter, logger)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	return ts, nil
}

func initialize(ctx context.Context, c Client) error {
	ic, ok := c.(initializer)
	if !ok {
		return nil
	}
	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcp.Implementation{Name: clientName, Version: clientVersion}
	if _, err := ic.Initialize(ctx, req); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	return nil
}

// NewToolset discovers the tools of an already initialized client. A non-empty
// filter keeps only the named tools, in server order.
func NewToolset(ctx context.Context, name string, c Client, filter []string, logger *zap.Logger) (*Toolset, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ts := &Toolset{name: name, client: c, logger: logger}

	result, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("mcp server %q: list tools: %w", name, err)
	}

	allowed := make(map[string]bool, len(filter))
	for _, f := range filter {
		allowed[f] = true
	}

	for _, t := range result.Tools {
		if len(allowed) > 0 && !allowed[t.Name] {
			continue
		}
		ts.tools = append(ts.tools, ts.wrap(t))
		logger.Debug("mcp tool discovered", zap.String("server", name), zap.String("tool", t.Name))
	}

	logger.Info("mcp tools discovered",
		zap.String("server", name),
		zap.Int("offered", len(result.Tools)),
		zap.Int("kept", len(ts.tools)))

	return ts, nil
}

// Tools returns the wrapped server tools.
func (ts *Toolset) Tools() []tools.Tool {
	return append([]tools.Tool(nil), ts.tools...)
}

func (ts *Toolset) Close() error {
	if err := ts.client.Close(); err != nil {
		ts.logger.Warn("mcp server close error", zap.String("server", ts.name), zap.Error(err))
		return err
	}
	return nil
}

// wrap leaves argument validation to the server.
func (ts *Toolset) wrap(t mcp.Tool) tools.Tool {
	description := t.Description
	if description == "" {
		description = fmt.Sprintf("MCP tool %q from server %q", t.Name, ts.name)
	}

	return tools.Tool{
		Name:        t.Name,
		Description: description,
		Schema:      inputSchema(t),
		Handler: func(ctx context.Context, args json.RawMessage) (string, error) {
			return ts.call(ctx, t.Name, args)
		},
	}
}

func (ts *Toolset) call(ctx context.Context, toolName string, args json.RawMessage) (string, error) {
	var arguments map[string]any
	if len(args) > 0 && string(args) != "null" {
		if err := json.Unmarshal(args, &arguments); err != nil {
			return "", fmt.Errorf("%w: %v", tools.ErrInvalidArguments, err)
		}
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = toolName
	req.Params.Arguments = arguments

	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	result, err := ts.client.CallTool(callCtx, req)
	if err != nil {
		return "", fmt.Errorf("mcp %s/%s: %w", ts.name, toolName, err)
	}

	content := textOf(result)
	if result.IsError {
		return "", fmt.Errorf("mcp %s/%s: %s", ts.name, toolName, content)
	}
	return content, nil
}

func inputSchema(t mcp.Tool) json.RawMessage {
	if len(t.RawInputSchema) > 0 {
		return t.RawInputSchema
	}
	if t.InputSchema.Properties != nil || t.InputSchema.Required != nil {
		if data, err := json.Marshal(t.InputSchema); err == nil {
			return data
		}
	}
	return json.RawMessage(`{"type":"object"}`)
}

// textOf flattens a tool result; non-text content is rendered as JSON.
func textOf(result *mcp.CallToolResult) string {
	var parts []string
	for _, c := range result.Content {
		switch v := c.(type) {
		case mcp.TextContent:
			parts = append(parts, v.Text)
		case *mcp.TextContent:
			parts = append(parts, v.Text)
		default:
			if data, err := json.Marshal(v); err == nil {
				parts = append(parts, string(data))
			}
		}
	}
	return strings.Join(parts, "\n")
}
