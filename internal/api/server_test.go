package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/vmportal/internal/config"
	"github.com/yairfalse/vmportal/internal/portal"
	"github.com/yairfalse/vmportal/internal/portal/portaltest"
	"github.com/yairfalse/vmportal/pkg/resource"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func testConfig() *config.Config {
	return &config.Config{
		Azure: config.AzureConfig{VMSubscriptionID: "sub-vm", VMResourceGroup: "rg-vms"},
		Automation: config.AutomationConfig{
			SubscriptionID:  "sub-aa",
			ResourceGroup:   "rg-vmportal",
			AccountName:     "aa-portal",
			AllowedRunbooks: []string{"Start-ScheduledVMs", "Stop-ScheduledVMs"},
		},
		Insights: config.InsightsConfig{ResourceID: "/subscriptions/s/resourceGroups/rg/providers/Microsoft.Insights/components/appi"},
		Batch:    config.BatchConfig{MaxSize: 10},
	}
}

func newTestServer(cfg *config.Config, clients portal.Clients) *Server {
	logger := zerolog.New(io.Discard)
	return New(portal.New(cfg, clients, portal.WithLogger(logger)), logger)
}

func do(t *testing.T, s *Server, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestHealthz(t *testing.T) {
	s := newTestServer(testConfig(), portal.Clients{})

	rec := do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(headerRequestID))

	rec = do(t, s, http.MethodGet, "/api/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListVMs(t *testing.T) {
	vms := &portaltest.VMClient{
		ListFunc: func(context.Context, string, string) ([]resource.VM, error) {
			return []resource.VM{
				{Name: "b", ID: "/subscriptions/s/resourceGroups/rg-vms/providers/x/b", PowerState: "running"},
				{Name: "a", ID: "/subscriptions/s/resourceGroups/rg-vms/providers/x/a", PowerState: "stopped"},
			}, nil
		},
	}
	s := newTestServer(testConfig(), portal.Clients{VMs: vms})

	rec := do(t, s, http.MethodGet, "/api/vms", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.EqualValues(t, 2, body["count"])
	assert.Equal(t, "rg-vms", body["resourceGroup"])
	first := body["vms"].([]any)[0].(map[string]any)
	assert.Equal(t, "a", first["name"])
	groups := body["groups"].([]any)
	require.Len(t, groups, 1)
	assert.Equal(t, "rg-vms", groups[0].(map[string]any)["resourceGroup"])
}

func TestListVMs_MissingConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Azure.VMSubscriptionID = ""
	s := newTestServer(cfg, portal.Clients{VMs: &portaltest.VMClient{}})

	rec := do(t, s, http.MethodGet, "/api/vms", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Server configuration error", decode(t, rec)["error"])
}

func TestVMAction(t *testing.T) {
	vms := &portaltest.VMClient{}
	s := newTestServer(testConfig(), portal.Clients{VMs: vms})

	rec := do(t, s, http.MethodPost, "/api/vms/web-1/restart", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "VM web-1 restarted successfully", body["message"])
	assert.Equal(t, "web-1", body["name"])
	assert.Equal(t, int64(1), vms.Calls.Load())
}

func TestVMAction_InvalidName(t *testing.T) {
	vms := &portaltest.VMClient{}
	s := newTestServer(testConfig(), portal.Clients{VMs: vms})

	rec := do(t, s, http.MethodPost, "/api/vms/_bad/start", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid VM name", decode(t, rec)["error"])
	assert.Zero(t, vms.Calls.Load())
}

func TestVMAction_RemoteFailure(t *testing.T) {
	vms := &portaltest.VMClient{
		StartFunc: func(context.Context, string, string, string) error { return errors.New("AllocationFailed") },
	}
	s := newTestServer(testConfig(), portal.Clients{VMs: vms})

	rec := do(t, s, http.MethodPost, "/api/vms/web-1/start", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Failed to start VM", body["error"])
	assert.Equal(t, "AllocationFailed", body["message"])
}

func TestBatchVMs(t *testing.T) {
	var mu sync.Mutex
	var started []string
	vms := &portaltest.VMClient{
		StartFunc: func(_ context.Context, _, _, name string) error {
			mu.Lock()
			started = append(started, name)
			mu.Unlock()
			if name == "vm-2" {
				return errors.New("boom")
			}
			return nil
		},
	}
	s := newTestServer(testConfig(), portal.Clients{VMs: vms})

	rec := do(t, s, http.MethodPost, "/api/vms/batch/start", `{"names":["vm-1","vm-2","vm-3"]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Started 2/3 VMs", body["message"])
	results := body["results"].([]any)
	require.Len(t, results, 3)
	for i, want := range []string{"vm-1", "vm-2", "vm-3"} {
		assert.Equal(t, want, results[i].(map[string]any)["name"])
	}
	assert.Equal(t, false, results[1].(map[string]any)["success"])
	assert.ElementsMatch(t, []string{"vm-1", "vm-2", "vm-3"}, started)
}

func TestBatchVMs_LegacyField(t *testing.T) {
	vms := &portaltest.VMClient{}
	s := newTestServer(testConfig(), portal.Clients{VMs: vms})

	rec := do(t, s, http.MethodPost, "/api/vms/batch/stop", `{"vmNames":["vm-1"]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["success"])
	assert.Equal(t, int64(1), vms.Calls.Load())
}

func TestBatchVMs_AllFailed(t *testing.T) {
	vms := &portaltest.VMClient{
		DeallocateFunc: func(context.Context, string, string, string) error { return errors.New("denied") },
	}
	s := newTestServer(testConfig(), portal.Clients{VMs: vms})

	rec := do(t, s, http.MethodPost, "/api/vms/batch/stop", `{"names":["vm-1","vm-2"]}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Len(t, body["results"], 2)
}

func TestBatchVMs_RejectedWithoutRemoteCalls(t *testing.T) {
	eleven := make([]string, 11)
	for i := range eleven {
		eleven[i] = fmt.Sprintf("%q", fmt.Sprintf("vm-%d", i))
	}

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"malformed", `{"names":`, "Invalid JSON body"},
		{"empty body", ``, "Invalid JSON body"},
		{"empty list", `{"names":[]}`, "names must be a non-empty array"},
		{"missing", `{}`, "names must be a non-empty array"},
		{"not an array", `{"names":"vm-1"}`, "names must be a non-empty array"},
		{"eleven", `{"names":[` + strings.Join(eleven, ",") + `]}`, "Maximum 10 VMs per batch operation"},
		{"invalid name", `{"names":["ok","-x"]}`, "Invalid VM names: -x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vms := &portaltest.VMClient{}
			s := newTestServer(testConfig(), portal.Clients{VMs: vms})

			rec := do(t, s, http.MethodPost, "/api/vms/batch/start", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantErr, decode(t, rec)["error"])
			assert.Zero(t, vms.Calls.Load())
		})
	}
}

func TestBatchVMs_RestartRejected(t *testing.T) {
	vms := &portaltest.VMClient{}
	s := newTestServer(testConfig(), portal.Clients{VMs: vms})

	rec := do(t, s, http.MethodPost, "/api/vms/batch/restart", `{"names":["vm-1","vm-2"]}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "batch restart is not supported", decode(t, rec)["error"])
	assert.Zero(t, vms.Calls.Load())
}

func TestVMMetrics_InvalidTimespan(t *testing.T) {
	metrics := &portaltest.MetricsClient{}
	s := newTestServer(testConfig(), portal.Clients{Metrics: metrics})

	rec := do(t, s, http.MethodGet, "/api/vms/web-1/metrics?timespan=P30D", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "Invalid timespan")
	assert.Empty(t, metrics.Queries)
}

func TestVMSummary(t *testing.T) {
	vms := &portaltest.VMClient{
		ListFunc: func(context.Context, string, string) ([]resource.VM, error) {
			return []resource.VM{{Name: "a", PowerState: "deallocated"}}, nil
		},
	}
	s := newTestServer(testConfig(), portal.Clients{VMs: vms, Metrics: &portaltest.MetricsClient{}})

	rec := do(t, s, http.MethodGet, "/api/vms/summary", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.EqualValues(t, 0, body["totalRunning"])
	assert.EqualValues(t, 1, body["totalStopped"])
	assert.Contains(t, body, "avgCpu")
	assert.Nil(t, body["avgCpu"])
}

func TestAppServiceAction(t *testing.T) {
	apps := &portaltest.AppServiceClient{}
	s := newTestServer(testConfig(), portal.Clients{AppServices: apps})

	rec := do(t, s, http.MethodPost, "/api/appservices/shop-web/stop", `{"subscriptionId":"s1","resourceGroup":"rg"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "App Service shop-web stopped successfully", decode(t, rec)["message"])
}

func TestAppServiceAction_Rejected(t *testing.T) {
	tests := []struct {
		name, path, body, wantErr string
	}{
		{"bad name", "/api/appservices/x/start", `{"subscriptionId":"s","resourceGroup":"r"}`, "Invalid App Service name"},
		{"bad json", "/api/appservices/shop/start", `nope`, "Invalid JSON body"},
		{"missing fields", "/api/appservices/shop/start", `{"subscriptionId":"s"}`, "subscriptionId and resourceGroup are required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apps := &portaltest.AppServiceClient{}
			s := newTestServer(testConfig(), portal.Clients{AppServices: apps})

			rec := do(t, s, http.MethodPost, tt.path, tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantErr, decode(t, rec)["error"])
			assert.Zero(t, apps.Calls.Load())
		})
	}
}

func TestConfigureAppService(t *testing.T) {
	apps := &portaltest.AppServiceClient{}
	s := newTestServer(testConfig(), portal.Clients{AppServices: apps})

	rec := do(t, s, http.MethodPatch, "/api/appservices/shop/configure",
		`{"subscriptionId":"s1","resourceGroup":"rg","appSettings":{"B":"2","A":"1"}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"A", "B"}, decode(t, rec)["updatedSettings"])
}

func TestScaleAppService_NotImplemented(t *testing.T) {
	s := newTestServer(testConfig(), portal.Clients{AppServices: &portaltest.AppServiceClient{}})

	rec := do(t, s, http.MethodPatch, "/api/appservices/shop/scale",
		`{"subscriptionId":"s1","resourceGroup":"rg","sku":{"name":"S1","tier":"Standard"}}`)

	assert.Equal(t, http.StatusNotImplemented, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "shop", body["name"])
}

func TestListAppServices_OmitsEmptyFailures(t *testing.T) {
	subs := &portaltest.Subscriptions{
		ListFunc: func(context.Context) ([]resource.Subscription, error) {
			return []resource.Subscription{{ID: "s1", DisplayName: "Prod"}}, nil
		},
	}
	s := newTestServer(testConfig(), portal.Clients{AppServices: &portaltest.AppServiceClient{}, Subscriptions: subs})

	rec := do(t, s, http.MethodGet, "/api/appservices", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.NotContains(t, body, "failedSubscriptions")
	assert.EqualValues(t, 0, body["totalCount"])
	assert.Equal(t, []any{"s1"}, body["subscriptionsScanned"])
}

func TestUpdateSchedule(t *testing.T) {
	tests := []struct {
		name     string
		schedule string
		body     string
		get      func(context.Context, string, string, string, string) (resource.Schedule, error)
		wantCode int
	}{
		{"enable", "weekday-start", `{"isEnabled":true}`, nil, http.StatusOK},
		{"missing flag", "weekday-start", `{}`, nil, http.StatusBadRequest},
		{"bad json", "weekday-start", `{`, nil, http.StatusBadRequest},
		{"bad name", "bad.name", `{"isEnabled":true}`, nil, http.StatusBadRequest},
		{"timing change", "weekday-start", `{"isEnabled":true,"weekDays":["Monday"]}`, nil, http.StatusNotImplemented},
		{
			"missing schedule", "gone", `{"isEnabled":false}`,
			func(context.Context, string, string, string, string) (resource.Schedule, error) {
				return resource.Schedule{}, resource.ErrNotFound
			},
			http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schedules := &portaltest.ScheduleClient{GetFunc: tt.get}
			s := newTestServer(testConfig(), portal.Clients{Schedules: schedules})

			rec := do(t, s, http.MethodPatch, "/api/schedules/"+tt.schedule, tt.body)

			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}
}

func TestTriggerRunbook(t *testing.T) {
	jobs := &portaltest.JobClient{}
	s := newTestServer(testConfig(), portal.Clients{Jobs: jobs})

	rec := do(t, s, http.MethodPost, "/api/runbooks/Start-ScheduledVMs/run", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "job-1", body["jobId"])

	rec = do(t, s, http.MethodPost, "/api/runbooks/Stop-ScheduledVMs/run", "{garbage")
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestTriggerRunbook_NotAllowed(t *testing.T) {
	jobs := &portaltest.JobClient{}
	s := newTestServer(testConfig(), portal.Clients{Jobs: jobs})

	rec := do(t, s, http.MethodPost, "/api/runbooks/Remove-All/run", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Invalid runbook name", body["error"])
	assert.Equal(t, []any{"Start-ScheduledVMs", "Stop-ScheduledVMs"}, body["allowedRunbooks"])
	assert.Zero(t, jobs.Calls.Load())
}

func TestAuditLog_QueryValidation(t *testing.T) {
	logs := &portaltest.LogsClient{}
	s := newTestServer(testConfig(), portal.Clients{Logs: logs})

	for _, q := range []string{"hours=0", "hours=169", "hours=abc", "limit=-1"} {
		rec := do(t, s, http.MethodGet, "/api/audit-log?"+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}

	rec := do(t, s, http.MethodGet, "/api/audit-log?hours=2&limit=1000", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.EqualValues(t, 2, body["hours"])
	assert.EqualValues(t, 500, body["limit"])
	assert.Equal(t, []any{}, body["entries"])
}

func clientPrincipal(t *testing.T, v any) string {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(raw)
}

func TestRoles(t *testing.T) {
	s := newTestServer(testConfig(), portal.Clients{})
	header := clientPrincipal(t, map[string]any{
		"userId":      "u-1",
		"userDetails": "alice@example.com",
		"userRoles":   []string{"authenticated", "operator"},
		"claims": []map[string]string{
			{"typ": "roles", "val": "operator"},
			{"typ": "http://schemas.microsoft.com/ws/2008/06/identity/claims/role", "val": "admin"},
		},
	})

	rec := do(t, s, http.MethodPost, "/api/roles", "", headerClientPrincipal, header)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"operator", "admin", "authenticated"}, decode(t, rec)["roles"])

	for _, h := range []string{"", "%%%"} {
		rec = do(t, s, http.MethodPost, "/api/GetRoles", "", headerClientPrincipal, h)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []any{}, decode(t, rec)["roles"])
	}
}

func TestPrincipalMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	vms := &portaltest.VMClient{}
	s := New(portal.New(testConfig(), portal.Clients{VMs: vms}, portal.WithLogger(logger)), logger)

	rec := do(t, s, http.MethodPost, "/api/vms/web-1/start", "",
		headerPrincipalID, "u-7", headerPrincipalName, "bob@example.com")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, buf.String(), `"user_email":"bob@example.com"`)
	assert.Contains(t, buf.String(), `"audit":true`)

	buf.Reset()
	do(t, s, http.MethodPost, "/api/vms/web-1/start", "")
	assert.Contains(t, buf.String(), `"user_id":"unknown"`)
}

func TestNoRoute(t *testing.T) {
	s := newTestServer(testConfig(), portal.Clients{})

	rec := do(t, s, http.MethodGet, "/api/nope", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
