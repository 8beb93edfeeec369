package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/vmportal/internal/config"
	"github.com/yairfalse/vmportal/internal/portal"
	"github.com/yairfalse/vmportal/internal/portal/portaltest"
	"github.com/yairfalse/vmportal/pkg/resource"
)

func TestMain(m *testing.M) {
	pterm.DisableStyling()
	os.Exit(m.Run())
}

func TestHandleHealthz(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	handleHealthz(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
}

func TestWriteConfigReport(t *testing.T) {
	cfg := &config.Config{
		Azure: config.AzureConfig{
			ClientID:         "client",
			ClientSecret:     "s3cret",
			VMSubscriptionID: "sub-1",
			VMResourceGroup:  "rg-vms",
		},
	}

	var buf bytes.Buffer
	require.NoError(t, writeConfigReport(&buf, cfg))

	out := buf.String()
	assert.NotContains(t, out, "s3cret")
	assert.Contains(t, out, "********")
	assert.Contains(t, out, "service principal")
	assert.Contains(t, out, "missing AUTOMATION_SUBSCRIPTION_ID")
	assert.Contains(t, out, "missing APPINSIGHTS_RESOURCE_ID")
	assert.Equal(t, "s3cret", cfg.Azure.ClientSecret, "report must not mutate the config")
}

// useFakeClients points CLI commands at fakes and a clean environment.
func useFakeClients(t *testing.T, clients portal.Clients) {
	t.Helper()

	t.Setenv("VM_SUBSCRIPTION_ID", "sub-1")
	t.Setenv("VM_RESOURCE_GROUP", "rg-vms")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOG_FORMAT", "json")

	orig := newClients
	newClients = func(*config.Config) (portal.Clients, error) { return clients, nil }
	t.Cleanup(func() { newClients = orig })
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	base := []string{"--env-file", filepath.Join(t.TempDir(), "missing.env")}
	rootCmd.SetArgs(append(base, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVMsStart_Batch(t *testing.T) {
	vms := &portaltest.VMClient{
		StartFunc: func(_ context.Context, _, _, name string) error {
			if name == "bad-vm" {
				return errors.New("quota exceeded")
			}
			return nil
		},
	}
	useFakeClients(t, portal.Clients{VMs: vms})

	out, err := execute(t, "vms", "start", "web-01", "bad-vm", "-o", "json")
	require.Error(t, err, "any failed item makes the command fail")

	var res portal.BatchResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.False(t, res.Success)
	require.Len(t, res.Results, 2)
	assert.Equal(t, "web-01", res.Results[0].Name)
	assert.True(t, res.Results[0].Success)
	assert.Equal(t, "bad-vm", res.Results[1].Name)
	assert.Equal(t, "quota exceeded", res.Results[1].Message)
	assert.Equal(t, int64(2), vms.Calls.Load())
}

func TestVMsStop_AllFail(t *testing.T) {
	vms := &portaltest.VMClient{
		DeallocateFunc: func(context.Context, string, string, string) error {
			return errors.New("boom")
		},
	}
	useFakeClients(t, portal.Clients{VMs: vms})

	_, err := execute(t, "vms", "stop", "web-01", "web-02", "-o", "table")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0/2")
}

func TestVMsRestart_InvalidName(t *testing.T) {
	vms := &portaltest.VMClient{}
	useFakeClients(t, portal.Clients{VMs: vms})

	_, err := execute(t, "vms", "restart", "bad name!", "-o", "table")

	var verr *portal.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Invalid VM name", verr.Msg)
	assert.Zero(t, vms.Calls.Load())
}

func TestVMsList_Table(t *testing.T) {
	vms := &portaltest.VMClient{
		ListFunc: func(context.Context, string, string) ([]resource.VM, error) {
			return []resource.VM{
				{
					Name:       "web-01",
					ID:         "/subscriptions/sub-1/resourceGroups/rg-vms/providers/Microsoft.Compute/virtualMachines/web-01",
					PowerState: "running",
					VMSize:     "Standard_B2s",
					OSType:     "Linux",
					Location:   "westeurope",
				},
			}, nil
		},
	}
	useFakeClients(t, portal.Clients{VMs: vms})

	out, err := execute(t, "vms", "list", "-o", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "RESOURCE GROUP")
	assert.Contains(t, out, "rg-vms")
	assert.Contains(t, out, "web-01")
	assert.Contains(t, out, "running")
}

func TestVMsList_MissingConfig(t *testing.T) {
	useFakeClients(t, portal.Clients{VMs: &portaltest.VMClient{}})
	t.Setenv("VM_RESOURCE_GROUP", "")

	_, err := execute(t, "vms", "list", "-o", "table")

	var cerr *portal.ConfigurationError
	assert.ErrorAs(t, err, &cerr)
}
