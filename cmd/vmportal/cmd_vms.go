package main

import (
	"fmt"
	"io"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/yairfalse/vmportal/internal/portal"
	"github.com/yairfalse/vmportal/pkg/resource"
)

var (
	metricsTimespan string

	vmsCmd = &cobra.Command{
		Use:   "vms",
		Short: "Inspect and control virtual machines",
		Long: `Inspect and control the virtual machines in the configured resource
group (VM_SUBSCRIPTION_ID / VM_RESOURCE_GROUP).`,
	}

	vmsListCmd = &cobra.Command{
		Use:   "list",
		Short: "List VMs grouped by resource group",
		Args:  cobra.NoArgs,
		RunE:  runVMsList,
	}

	vmsStartCmd = &cobra.Command{
		Use:   "start NAME...",
		Short: "Start one or more VMs",
		Example: `  vmportal vms start web-01
  vmportal vms start web-01 web-02 web-03`,
		Args: cobra.MinimumNArgs(1),
		RunE: runVMAction(portal.ActionStart),
	}

	vmsStopCmd = &cobra.Command{
		Use:   "stop NAME...",
		Short: "Deallocate one or more VMs",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runVMAction(portal.ActionStop),
	}

	vmsRestartCmd = &cobra.Command{
		Use:   "restart NAME",
		Short: "Restart a VM",
		Args:  cobra.ExactArgs(1),
		RunE:  runVMAction(portal.ActionRestart),
	}

	vmsSummaryCmd = &cobra.Command{
		Use:   "summary",
		Short: "Show fleet counts and average CPU",
		Args:  cobra.NoArgs,
		RunE:  runVMsSummary,
	}

	vmsMetricsCmd = &cobra.Command{
		Use:   "metrics NAME",
		Short: "Show metric series for a VM",
		Args:  cobra.ExactArgs(1),
		RunE:  runVMsMetrics,
	}
)

func init() {
	rootCmd.AddCommand(vmsCmd)
	vmsCmd.AddCommand(vmsListCmd, vmsStartCmd, vmsStopCmd, vmsRestartCmd, vmsSummaryCmd, vmsMetricsCmd)

	vmsMetricsCmd.Flags().StringVar(&metricsTimespan, "timespan", "PT1H", "ISO-8601 window (PT1H, PT6H, PT12H, PT24H, P1D, P7D)")
}

func runVMsList(cmd *cobra.Command, _ []string) error {
	p, err := cliPortal()
	if err != nil {
		return err
	}
	list, err := p.ListVMs(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if wantJSON() {
		return printJSON(out, list)
	}
	return printVMGroups(out, list.Groups)
}

func printVMGroups(out io.Writer, groups []resource.Group[resource.VM]) error {
	rows := pterm.TableData{{"RESOURCE GROUP", "NAME", "STATE", "SIZE", "OS", "LOCATION"}}
	for _, g := range groups {
		for _, vm := range g.Items {
			rows = append(rows, []string{g.Key, vm.Name, vm.PowerState, vm.VMSize, vm.OSType, vm.Location})
		}
	}
	return renderTable(out, rows)
}

// runVMAction runs a single action for one name and a batch for several.
func runVMAction(action portal.Action) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		p, err := cliPortal()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		who := cliPrincipal()

		if len(args) == 1 {
			res, err := p.VMAction(cmd.Context(), action, args[0], who)
			if err != nil {
				return err
			}
			if wantJSON() {
				return printJSON(out, res)
			}
			_, _ = fmt.Fprintln(out, res.Message)
			return nil
		}

		res, err := p.BatchVMs(cmd.Context(), action, args, who)
		if err != nil {
			return err
		}
		if wantJSON() {
			if err := printJSON(out, res); err != nil {
				return err
			}
		} else if err := printBatch(out, res); err != nil {
			return err
		}
		if !res.Success {
			return fmt.Errorf("%s", res.Message)
		}
		return nil
	}
}

func printBatch(out io.Writer, res *portal.BatchResult) error {
	rows := pterm.TableData{{"NAME", "RESULT", "DETAIL"}}
	for _, o := range res.Results {
		result := "ok"
		if !o.Success {
			result = "failed"
		}
		rows = append(rows, []string{o.Name, result, o.Message})
	}
	if err := renderTable(out, rows); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(out, res.Message)
	return nil
}

func runVMsSummary(cmd *cobra.Command, _ []string) error {
	p, err := cliPortal()
	if err != nil {
		return err
	}
	sum, err := p.Summary(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if wantJSON() {
		return printJSON(out, sum)
	}

	avg := "n/a"
	if sum.AvgCPU != nil {
		avg = fmt.Sprintf("%.1f%%", *sum.AvgCPU)
	}
	_, _ = fmt.Fprintf(out, "Total: %d  Running: %d  Stopped: %d  Avg CPU: %s\n",
		len(sum.VMs), sum.TotalRunning, sum.TotalStopped, avg)
	return nil
}

func runVMsMetrics(cmd *cobra.Command, args []string) error {
	p, err := cliPortal()
	if err != nil {
		return err
	}
	res, err := p.VMMetrics(cmd.Context(), args[0], metricsTimespan)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), res)
}
