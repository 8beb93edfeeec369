package portal

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/yairfalse/vmportal/internal/config"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		Azure: config.AzureConfig{
			VMSubscriptionID: "sub-vm",
			VMResourceGroup:  "rg-vms",
		},
		Automation: config.AutomationConfig{
			SubscriptionID:  "sub-aa",
			ResourceGroup:   "rg-vmportal",
			AccountName:     "aa-portal",
			AllowedRunbooks: []string{"Start-ScheduledVMs", "Stop-ScheduledVMs"},
		},
		Insights: config.InsightsConfig{ResourceID: "/subscriptions/sub/resourceGroups/rg/providers/Microsoft.Insights/components/appi"},
		Batch:    config.BatchConfig{MaxSize: 10},
	}
}

func newTestPortal(cfg *config.Config, clients Clients, opts ...Option) *Portal {
	opts = append([]Option{
		WithLogger(zerolog.New(io.Discard)),
		WithClock(func() time.Time { return testNow }),
	}, opts...)
	return New(cfg, clients, opts...)
}

var alice = Principal{UserID: "u-1", UserDetails: "alice@example.com"}

type recordedBatch struct {
	action            string
	succeeded, failed int
}

type fakeRecorder struct {
	mu         sync.Mutex
	operations map[string]string
	batches    []recordedBatch
}

func (r *fakeRecorder) RecordOperation(_ context.Context, op, status string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.operations == nil {
		r.operations = map[string]string{}
	}
	r.operations[op] = status
}

func (r *fakeRecorder) RecordBatchItems(_ context.Context, action string, succeeded, failed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, recordedBatch{action, succeeded, failed})
}
