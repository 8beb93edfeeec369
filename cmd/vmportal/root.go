package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/yairfalse/vmportal/internal/config"
	"github.com/yairfalse/vmportal/internal/telemetry"
)

var (
	version    = "0.1.0"
	configPath string
	envFile    string

	rootCmd = &cobra.Command{
		Use:   "vmportal",
		Short: "Azure VM self-service portal backend",
		Long: `VM Portal - Azure self-service operations

VM Portal exposes a small HTTP API for day-to-day Azure operations:
starting and stopping virtual machines, controlling App Services,
toggling Automation schedules, triggering allowlisted runbooks and
reading the audit log. The same operations are available from the CLI.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetVersionTemplate(`VM Portal {{.Version}}
`)
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file (optional)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to a dotenv file loaded before the environment")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format (table, json)")
}

// loadConfig reads the dotenv file, the YAML file and the environment, then
// installs the global logger writing to logOut.
func loadConfig(logOut io.Writer) (*config.Config, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if err := telemetry.SetupGlobalLogger(cfg.Log, cfg.OTEL.ServiceName, logOut); err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}
	return cfg, nil
}
