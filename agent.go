package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/uslanozan/Gollama-the-Navigator/agent"
	"github.com/uslanozan/Gollama-the-Navigator/config"
	"github.com/uslanozan/Gollama-the-Navigator/mapsmcp"
	"github.com/uslanozan/Gollama-the-Navigator/tools"
)

const mapsServerName = "google-maps"

// connectFunc is swapped in tests.
type connectFunc func(ctx context.Context, name string, cfg config.MCPConfig, logger *zap.Logger) (*mapsmcp.Toolset, error)

// buildRootAgent assembles the travel assistant: the placeholder directions tool
// first, then whatever the maps MCP server offers. An unreachable MCP server is
// logged and skipped.
func buildRootAgent(ctx context.Context, cfg config.Config, logger *zap.Logger, connect connectFunc) (*agent.Agent, *mapsmcp.Toolset) {
	toolset := []tools.Tool{tools.DirectionsTool()}

	var mcpTools *mapsmcp.Toolset
	if cfg.MapsMCP.Enabled {
		ts, err := connect(ctx, mapsServerName, cfg.MapsMCP, logger)
		if err != nil {
			logger.Warn("maps mcp server unavailable, continuing with built-in tools", zap.Error(err))
		} else {
			mcpTools = ts
			toolset = append(toolset, ts.Tools()...)
		}
	}

	return agent.NewTravelAssistant(cfg.ModelReference(), toolset...), mcpTools
}
