package main

import (
	"fmt"
	"io"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/yairfalse/vmportal/internal/config"
)

var (
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}

	configCheckCmd = &cobra.Command{
		Use:   "check",
		Short: "Validate configuration and report which features are usable",
		Long: `Load the dotenv file, the YAML file and the environment, validate the
result and print it with secrets redacted, followed by the readiness of
each feature group.`,
		Args: cobra.NoArgs,
		RunE: runConfigCheck,
	}
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configCheckCmd)
}

func runConfigCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	return writeConfigReport(cmd.OutOrStdout(), cfg)
}

func writeConfigReport(w io.Writer, cfg *config.Config) error {
	redacted := *cfg
	if redacted.Azure.ClientSecret != "" {
		redacted.Azure.ClientSecret = "********"
	}

	data, err := yaml.Marshal(&redacted)
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return err
	}

	_, _ = fmt.Fprintln(w)
	audit := "ready"
	if cfg.Insights.ResourceID == "" {
		audit = "missing APPINSIGHTS_RESOURCE_ID"
	}
	auth := "default credential chain"
	if cfg.Azure.HasClientSecret() {
		auth = "service principal"
	}
	return renderTable(w, pterm.TableData{
		{"FEATURE", "STATUS"},
		{"vms", readiness(cfg.Azure.CheckVMTarget())},
		{"automation", readiness(cfg.Automation.CheckAutomation())},
		{"audit-log", audit},
		{"credentials", auth},
	})
}

func readiness(err error) string {
	if err != nil {
		return err.Error()
	}
	return "ready"
}
