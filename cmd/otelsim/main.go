// Otelsim is a workflow simulation service for exercising OpenTelemetry
// pipelines. It exposes HTTP endpoints that run workflows of configurable
// shape and emit traces, metrics, and logs of matching structure, so a
// tracing backend can be validated against known-good telemetry.
//
// Usage:
//
//	# Start the server with defaults
//	otelsim serve
//
//	# Start with a config file
//	otelsim serve --config otelsim.yaml
//
//	# Run one workflow from the command line
//	otelsim run complex --json
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "otelsim",
	Short: "Workflow simulator for OpenTelemetry pipelines",
	Long: `otelsim runs demo workflows that emit traces, metrics, and logs of
known shape, for validating observability backends end to end.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("otelsim by Fyrsmith Labs\n")
		fmt.Printf("Version:    %s\n", version)
		fmt.Printf("Commit:     %s\n", gitCommit)
		fmt.Printf("Build Date: %s\n", buildDate)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (YAML)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
