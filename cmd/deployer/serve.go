package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"deployer/internal/api"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the deployment HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		port, err := strconv.Atoi(cfg.APIPort)
		if err != nil {
			return fmt.Errorf("invalid API_PORT %q: %w", cfg.APIPort, err)
		}

		ctx := cmd.Context()
		c, err := setup(ctx, cfg)
		if err != nil {
			return err
		}
		defer c.Close()

		var server *api.Server
		if c.repository != nil {
			server = api.NewServer(port, c.orchestrator, c.repository)
			server.AddHealthCheck("database", c.repository.Ping)
		} else {
			server = api.NewServer(port, c.orchestrator, nil)
		}
		if c.rpc != nil {
			server.AddHealthCheck("rpc", func(ctx context.Context) error {
				_, err := c.rpc.LatestLedger(ctx)
				return err
			})
		}

		if err := server.Start(); err != nil {
			return fmt.Errorf("failed to start API server: %w", err)
		}
		slog.Info("Deployer API ready", "port", port, "mode", c.orchestrator.Mode())

		<-ctx.Done()
		slog.Warn("Interrupt received, shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Error stopping API server", "error", err)
		}

		slog.Info("Deployer stopped")
		return nil
	},
}
