package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/yairfalse/vmportal/internal/portal"
)

var (
	runbookVMNames string

	schedulesCmd = &cobra.Command{
		Use:   "schedules",
		Short: "List and toggle Automation schedules",
	}

	schedulesListCmd = &cobra.Command{
		Use:   "list",
		Short: "List schedules in the Automation account",
		Args:  cobra.NoArgs,
		RunE:  runSchedulesList,
	}

	schedulesEnableCmd = &cobra.Command{
		Use:   "enable NAME",
		Short: "Enable a schedule",
		Args:  cobra.ExactArgs(1),
		RunE:  runScheduleToggle(true),
	}

	schedulesDisableCmd = &cobra.Command{
		Use:   "disable NAME",
		Short: "Disable a schedule",
		Args:  cobra.ExactArgs(1),
		RunE:  runScheduleToggle(false),
	}

	runbooksCmd = &cobra.Command{
		Use:   "runbooks",
		Short: "Trigger allowlisted Automation runbooks",
	}

	runbooksRunCmd = &cobra.Command{
		Use:     "run NAME",
		Short:   "Start a runbook job",
		Example: `  vmportal runbooks run Stop-ScheduledVMs --vm-names "web-01,web-02"`,
		Args:    cobra.ExactArgs(1),
		RunE:    runRunbook,
	}
)

func init() {
	rootCmd.AddCommand(schedulesCmd, runbooksCmd)
	schedulesCmd.AddCommand(schedulesListCmd, schedulesEnableCmd, schedulesDisableCmd)
	runbooksCmd.AddCommand(runbooksRunCmd)

	runbooksRunCmd.Flags().StringVar(&runbookVMNames, "vm-names", "", "Comma-separated VM names passed as the VMNames parameter")
}

func runSchedulesList(cmd *cobra.Command, _ []string) error {
	p, err := cliPortal()
	if err != nil {
		return err
	}
	list, err := p.ListSchedules(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if wantJSON() {
		return printJSON(out, list)
	}

	rows := pterm.TableData{{"NAME", "ENABLED", "FREQUENCY", "NEXT RUN"}}
	for _, s := range list.Schedules {
		next := "-"
		if s.NextRun != nil {
			next = s.NextRun.Format(time.RFC3339)
		}
		rows = append(rows, []string{s.Name, strconv.FormatBool(s.IsEnabled), s.Frequency, next})
	}
	return renderTable(out, rows)
}

func runScheduleToggle(enabled bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		p, err := cliPortal()
		if err != nil {
			return err
		}
		res, err := p.UpdateSchedule(cmd.Context(), args[0], portal.ScheduleUpdate{IsEnabled: &enabled}, cliPrincipal())
		if err != nil {
			return err
		}
		if wantJSON() {
			return printJSON(cmd.OutOrStdout(), res)
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), res.Message)
		return nil
	}
}

func runRunbook(cmd *cobra.Command, args []string) error {
	p, err := cliPortal()
	if err != nil {
		return err
	}
	res, err := p.TriggerRunbook(cmd.Context(), args[0], portal.RunbookParams{VMNames: runbookVMNames}, cliPrincipal())
	if err != nil {
		return err
	}
	if wantJSON() {
		return printJSON(cmd.OutOrStdout(), res)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s (job %s, status %s)\n", res.Message, res.JobID, res.Status)
	return nil
}
