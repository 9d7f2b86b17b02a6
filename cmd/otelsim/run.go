package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/otelsim/internal/config"
	"github.com/fyrsmithlabs/otelsim/internal/logging"
	"github.com/fyrsmithlabs/otelsim/internal/simulator"
	"github.com/fyrsmithlabs/otelsim/internal/telemetry"
)

var (
	runError bool
	runJSON  bool
)

var runCmd = &cobra.Command{
	Use:   "run <simple|medium|complex>",
	Short: "Run one workflow and exit",
	Long: `Run a single workflow without starting the server. Telemetry is
flushed before exit, so spans reach the collector even for one-shot runs.

Examples:
  # Run the complex workflow once
  otelsim run complex

  # Run the error-demonstration workflow, print the result as JSON
  otelsim run complex --error --json`,
	Args: cobra.ExactArgs(1),
	RunE: runOnce,
}

func init() {
	runCmd.Flags().BoolVar(&runError, "error", false, "run the error-demonstration workflow")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print the run result as JSON")
}

func runOnce(cmd *cobra.Command, args []string) error {
	variant := simulator.Variant(args[0])
	if !variant.Valid() {
		return fmt.Errorf("unknown variant %q (want simple, medium, or complex)", args[0])
	}

	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.New(ctx, &cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}
	defer func() {
		_ = tel.Shutdown(context.Background())
	}()

	logger, err := logging.NewLogger(&cfg.Logging, tel.LoggerProvider())
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	sim := simulator.NewService(tel, logger.Named("simulator"), &cfg.Simulate)

	var result *simulator.Result
	var runErr error
	if runError {
		result, runErr = sim.RunError(ctx, simulator.Request{})
	} else {
		result, runErr = sim.Run(ctx, variant, simulator.Request{})
	}
	if runErr != nil && !simulator.IsSimulatedFailure(runErr) {
		return runErr
	}

	if err := tel.ForceFlush(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "telemetry flush: %v\n", err)
	}

	if runJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Printf("workflow:  %s\n", result.Workflow)
	fmt.Printf("variant:   %s\n", result.Variant)
	fmt.Printf("run id:    %s\n", result.RunID)
	fmt.Printf("status:    %s\n", result.Status)
	fmt.Printf("duration:  %.1fms\n", result.DurationMS)
	if result.FailedStep != "" {
		fmt.Printf("failed at: %s (%s)\n", result.FailedStep, result.Error)
	}
	return nil
}
