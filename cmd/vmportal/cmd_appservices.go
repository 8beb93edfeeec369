package main

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/yairfalse/vmportal/internal/portal"
)

var (
	appTarget portal.AppServiceTarget

	appServicesCmd = &cobra.Command{
		Use:     "appservices",
		Aliases: []string{"apps"},
		Short:   "Inspect and control App Services across subscriptions",
	}

	appServicesListCmd = &cobra.Command{
		Use:   "list",
		Short: "List App Services in every visible subscription",
		Args:  cobra.NoArgs,
		RunE:  runAppServicesList,
	}
)

func init() {
	rootCmd.AddCommand(appServicesCmd)
	appServicesCmd.AddCommand(appServicesListCmd)

	for _, action := range []portal.Action{portal.ActionStart, portal.ActionStop, portal.ActionRestart} {
		c := &cobra.Command{
			Use:     string(action) + " NAME",
			Short:   fmt.Sprintf("%s an App Service", action),
			Example: fmt.Sprintf("  vmportal appservices %s my-app --subscription <id> --resource-group rg-web", action),
			Args:    cobra.ExactArgs(1),
			RunE:    runAppServiceAction(action),
		}
		c.Flags().StringVar(&appTarget.SubscriptionID, "subscription", "", "Subscription ID of the App Service")
		c.Flags().StringVar(&appTarget.ResourceGroup, "resource-group", "", "Resource group of the App Service")
		appServicesCmd.AddCommand(c)
	}
}

func runAppServicesList(cmd *cobra.Command, _ []string) error {
	p, err := cliPortal()
	if err != nil {
		return err
	}
	list, err := p.ListAppServices(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if wantJSON() {
		return printJSON(out, list)
	}

	rows := pterm.TableData{{"RESOURCE GROUP", "NAME", "STATE", "SUBSCRIPTION", "LOCATION"}}
	for _, g := range list.Groups {
		for _, app := range g.Items {
			rows = append(rows, []string{g.Key, app.Name, app.State, app.SubscriptionName, app.Location})
		}
	}
	if err := renderTable(out, rows); err != nil {
		return err
	}
	for _, f := range list.FailedSubscriptions {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: subscription %s: %s\n", f.ID, f.Error)
	}
	return nil
}

func runAppServiceAction(action portal.Action) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		p, err := cliPortal()
		if err != nil {
			return err
		}
		res, err := p.AppServiceAction(cmd.Context(), action, args[0], appTarget, cliPrincipal())
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
