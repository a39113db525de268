package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/uslanozan/Gollama-the-Navigator/agent"
	"github.com/uslanozan/Gollama-the-Navigator/config"
	"github.com/uslanozan/Gollama-the-Navigator/dispatcher"
	"github.com/uslanozan/Gollama-the-Navigator/history"
	"github.com/uslanozan/Gollama-the-Navigator/mapsmcp"
)

// Orchestrator owns the dispatcher and the resources behind it.
type Orchestrator struct {
	Dispatcher *dispatcher.Dispatcher
	mcpTools   *mapsmcp.Toolset
	logger     *zap.Logger
}

func NewOrchestrator(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Orchestrator, error) {
	client, err := agent.NewOllamaClient(cfg.ModelReference(), cfg.HTTPClientTimeout)
	if err != nil {
		return nil, err
	}

	store, err := newHistoryStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	return newOrchestrator(ctx, cfg, logger, client, store, mapsmcp.Connect), nil
}

func newOrchestrator(ctx context.Context, cfg config.Config, logger *zap.Logger, client agent.ChatClient, store history.Store, connect connectFunc) *Orchestrator {
	root, mcpTools := buildRootAgent(ctx, cfg, logger, connect)

	d := dispatcher.New(cfg.ModelReference(), []*agent.Agent{root},
		dispatcher.WithRunner(agent.NewRunner(client, logger, cfg.AgentMaxSteps)),
		dispatcher.WithHistory(store),
		dispatcher.WithLogger(logger),
	)

	logger.Info("orchestrator ready",
		zap.String("agent", root.Name()),
		zap.String("model", root.Model().String()),
		zap.Int("tools", len(root.Tools())))

	return &Orchestrator{Dispatcher: d, mcpTools: mcpTools, logger: logger}
}

func newHistoryStore(cfg config.Config, logger *zap.Logger) (history.Store, error) {
	if cfg.DBDSN == "" {
		logger.Info("DB_DSN not set, keeping history in memory")
		return history.NewMemoryStore(), nil
	}
	db, err := history.InitDB(cfg.DBDSN, logger)
	if err != nil {
		return nil, fmt.Errorf("history database: %w", err)
	}
	return history.NewGormStore(db), nil
}

func (o *Orchestrator) Close() {
	if o.mcpTools != nil {
		_ = o.mcpTools.Close()
	}
}
