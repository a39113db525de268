package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/uslanozan/Gollama-the-Navigator/config"
	"github.com/uslanozan/Gollama-the-Navigator/gateway"
	"github.com/uslanozan/Gollama-the-Navigator/logging"
	"github.com/uslanozan/Gollama-the-Navigator/mapsmcp"
	"github.com/uslanozan/Gollama-the-Navigator/tools"
	"github.com/uslanozan/Gollama-the-Navigator/tracing"
)

var envFile string

func main() {
	rootCmd := &cobra.Command{
		Use:          "navigator",
		Short:        "Smart Travel Assistant backed by a local Ollama model and a maps MCP server",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", config.DefaultEnvFile, "path of the .env file")

	rootCmd.AddCommand(serveCmd(), chatCmd(), toolsCmd(), mapsServerCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup resolves config, logger and tracing shared by every command.
func setup(ctx context.Context) (config.Config, *zap.Logger, func(), error) {
	bootLogger, _ := logging.New(config.DefaultLogLevel)
	cfg := config.Load(ctx, config.Options{EnvFile: envFile, Logger: bootLogger})

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return cfg, nil, nil, err
	}

	shutdownTracing, err := tracing.Setup(cfg.TracingExporter)
	if err != nil {
		return cfg, nil, nil, err
	}

	cleanup := func() {
		_ = shutdownTracing(context.Background())
		_ = logger.Sync()
	}
	logger.Info("configuration loaded", zap.Stringer("config", cfg))
	return cfg, logger, cleanup, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP chat gateway",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, logger, cleanup, err := setup(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			orch, err := NewOrchestrator(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer orch.Close()

			gw := gateway.New(orch.Dispatcher, logger, gateway.Options{
				RateLimitRPS:   cfg.RateLimitRPS,
				RateLimitBurst: cfg.RateLimitBurst,
			})
			return gw.ListenAndServe(ctx, cfg.ListenAddress)
		},
	}
}

func chatCmd() *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "chat [prompt]",
		Short: "Send one prompt to the assistant and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, logger, cleanup, err := setup(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			orch, err := NewOrchestrator(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer orch.Close()

			reply, err := orch.Dispatcher.Handle(ctx, sessionID, strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply.Content)
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "cli", "session id used for history")
	return cmd
}

func toolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tools each agent can call",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, logger, cleanup, err := setup(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			orch, err := NewOrchestrator(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer orch.Close()

			for _, spec := range orch.Dispatcher.ToolSpecs() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", spec.Agent, spec.Name, spec.Description)
			}
			return nil
		},
	}
}

func mapsServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "maps-server",
		Short: "Serve the placeholder directions tool over MCP stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := mapsmcp.NewServer("navigator-maps", "1.0.0", tools.DirectionsTool())
			return mapsmcp.ServeStdio(s)
		},
	}
}
