package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/user"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog/log"

	"github.com/yairfalse/vmportal/internal/azure"
	"github.com/yairfalse/vmportal/internal/config"
	"github.com/yairfalse/vmportal/internal/portal"
)

var outputFormat string

// newClients builds the cloud clients for CLI commands. Tests replace it.
var newClients = func(cfg *config.Config) (portal.Clients, error) {
	cloud, err := azure.New(cfg.Azure, nil)
	if err != nil {
		return portal.Clients{}, fmt.Errorf("failed to create Azure clients: %w", err)
	}
	return cloud.Clients(), nil
}

// cliPortal loads configuration and builds a portal whose logs go to stderr
// so command output stays parseable.
func cliPortal() (*portal.Portal, error) {
	cfg, err := loadConfig(os.Stderr)
	if err != nil {
		return nil, err
	}
	clients, err := newClients(cfg)
	if err != nil {
		return nil, err
	}
	return portal.New(cfg, clients, portal.WithLogger(log.Logger)), nil
}

// cliPrincipal attributes CLI actions to the local OS user.
func cliPrincipal() portal.Principal {
	name := "cli"
	if u, err := user.Current(); err == nil && u.Username != "" {
		name = u.Username
	}
	return portal.Principal{
		UserID:           name,
		UserDetails:      name,
		IdentityProvider: "cli",
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderTable prints rows with the first row as header.
func renderTable(w io.Writer, rows pterm.TableData) error {
	return pterm.DefaultTable.WithHasHeader().WithData(rows).WithWriter(w).Render()
}

func wantJSON() bool {
	return outputFormat == "json"
}
