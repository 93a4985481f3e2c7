package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simbridge/simbridge/pkg/config"
)

var (
	// Global flags
	configPath string
	verbose    bool
	jsonOutput bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "simbridge",
		Short: "Simbridge - Simulation Build Controller",
		Long: `Simbridge drives an external 3D physics simulation (the build) over a
per-frame command protocol.

Features:
  - WebSocket frame transport with typed output data
  - Model record libraries with hot reload
  - Physically based impact audio synthesis
  - Session recording to SQLite
  - Structured logging, metrics, and tracing`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	// Add subcommands
	rootCmd.AddCommand(newProbeCommand())
	rootCmd.AddCommand(newRecordCommand())
	rootCmd.AddCommand(newModelsCommand())
	rootCmd.AddCommand(newSessionsCommand())

	return rootCmd
}

// loadConfig loads the config file and applies the persistent flags on top.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	if jsonOutput {
		cfg.Telemetry.Logging.Format = "json"
	}
	return cfg, nil
}
