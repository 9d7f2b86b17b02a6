package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/otelsim/internal/config"
	otelsimhttp "github.com/fyrsmithlabs/otelsim/internal/http"
	"github.com/fyrsmithlabs/otelsim/internal/logging"
	"github.com/fyrsmithlabs/otelsim/internal/simulator"
	"github.com/fyrsmithlabs/otelsim/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the simulation HTTP server",
	Long: `Start the HTTP server exposing the workflow simulation endpoints.

Configuration comes from defaults, an optional YAML file (--config), and
OTELSIM_* environment variables, in increasing precedence.

Examples:
  # Defaults (listens on :8081, exports to localhost:4317)
  otelsim serve

  # With a config file
  otelsim serve --config otelsim.yaml

  # Override the exporter endpoint
  OTELSIM_TELEMETRY_ENDPOINT=collector:4317 otelsim serve`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Exporter failures degrade the instance instead of failing startup;
	// an error here means the config itself is unusable.
	tel, err := telemetry.New(ctx, &cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}

	logger, err := logging.NewLogger(&cfg.Logging, tel.LoggerProvider())
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info(ctx, "starting otelsim",
		zap.Int("port", cfg.Server.Port),
		zap.String("service", cfg.Telemetry.ServiceName),
		zap.Bool("telemetry_enabled", cfg.Telemetry.Enabled),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout.Duration()),
	)

	sim := simulator.NewService(tel, logger.Named("simulator"), &cfg.Simulate)

	srv, err := otelsimhttp.NewServer(sim, tel, logger.Named("http"), &cfg.Server)
	if err != nil {
		return fmt.Errorf("create http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info(context.Background(), "shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn(shutdownCtx, "http shutdown", zap.Error(err))
	}
	if err := tel.Shutdown(shutdownCtx); err != nil {
		logger.Warn(shutdownCtx, "telemetry shutdown", zap.Error(err))
	}

	logger.Info(context.Background(), "shutdown complete")
	return nil
}
