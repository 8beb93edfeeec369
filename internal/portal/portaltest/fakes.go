// Package portaltest provides function-field fakes of the portal's cloud
// clients for use in tests.
package portaltest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yairfalse/vmportal/pkg/resource"
)

// VMClient fakes portal.VMClient. Calls counts every invocation.
type VMClient struct {
	ListFunc       func(ctx context.Context, sub, rg string) ([]resource.VM, error)
	StartFunc      func(ctx context.Context, sub, rg, name string) error
	DeallocateFunc func(ctx context.Context, sub, rg, name string) error
	RestartFunc    func(ctx context.Context, sub, rg, name string) error

	Calls atomic.Int64
}

func (f *VMClient) List(ctx context.Context, sub, rg string) ([]resource.VM, error) {
	f.Calls.Add(1)
	if f.ListFunc != nil {
		return f.ListFunc(ctx, sub, rg)
	}
	return nil, nil
}

func (f *VMClient) Start(ctx context.Context, sub, rg, name string) error {
	f.Calls.Add(1)
	if f.StartFunc != nil {
		return f.StartFunc(ctx, sub, rg, name)
	}
	return nil
}

func (f *VMClient) Deallocate(ctx context.Context, sub, rg, name string) error {
	f.Calls.Add(1)
	if f.DeallocateFunc != nil {
		return f.DeallocateFunc(ctx, sub, rg, name)
	}
	return nil
}

func (f *VMClient) Restart(ctx context.Context, sub, rg, name string) error {
	f.Calls.Add(1)
	if f.RestartFunc != nil {
		return f.RestartFunc(ctx, sub, rg, name)
	}
	return nil
}

// MetricsClient fakes portal.MetricsClient.
type MetricsClient struct {
	ListFunc func(ctx context.Context, sub, uri string, q resource.MetricQuery) (resource.MetricSeries, error)

	mu      sync.Mutex
	Queries []resource.MetricQuery
	URIs    []string
}

func (f *MetricsClient) List(ctx context.Context, sub, uri string, q resource.MetricQuery) (resource.MetricSeries, error) {
	f.mu.Lock()
	f.Queries = append(f.Queries, q)
	f.URIs = append(f.URIs, uri)
	f.mu.Unlock()
	if f.ListFunc != nil {
		return f.ListFunc(ctx, sub, uri, q)
	}
	return resource.MetricSeries{}, nil
}

// Subscriptions fakes portal.SubscriptionLister.
type Subscriptions struct {
	ListFunc func(ctx context.Context) ([]resource.Subscription, error)
}

func (f *Subscriptions) List(ctx context.Context) ([]resource.Subscription, error) {
	if f.ListFunc != nil {
		return f.ListFunc(ctx)
	}
	return nil, nil
}

// AppServiceClient fakes portal.AppServiceClient.
type AppServiceClient struct {
	ListFunc           func(ctx context.Context, sub string) ([]resource.AppService, error)
	StartFunc          func(ctx context.Context, sub, rg, name string) error
	StopFunc           func(ctx context.Context, sub, rg, name string) error
	RestartFunc        func(ctx context.Context, sub, rg, name string) error
	SettingsFunc       func(ctx context.Context, sub, rg, name string) (map[string]string, error)
	UpdateSettingsFunc func(ctx context.Context, sub, rg, name string, settings map[string]string) error

	Calls atomic.Int64
}

func (f *AppServiceClient) List(ctx context.Context, sub string) ([]resource.AppService, error) {
	f.Calls.Add(1)
	if f.ListFunc != nil {
		return f.ListFunc(ctx, sub)
	}
	return nil, nil
}

func (f *AppServiceClient) Start(ctx context.Context, sub, rg, name string) error {
	f.Calls.Add(1)
	if f.StartFunc != nil {
		return f.StartFunc(ctx, sub, rg, name)
	}
	return nil
}

func (f *AppServiceClient) Stop(ctx context.Context, sub, rg, name string) error {
	f.Calls.Add(1)
	if f.StopFunc != nil {
		return f.StopFunc(ctx, sub, rg, name)
	}
	return nil
}

func (f *AppServiceClient) Restart(ctx context.Context, sub, rg, name string) error {
	f.Calls.Add(1)
	if f.RestartFunc != nil {
		return f.RestartFunc(ctx, sub, rg, name)
	}
	return nil
}

func (f *AppServiceClient) ApplicationSettings(ctx context.Context, sub, rg, name string) (map[string]string, error) {
	f.Calls.Add(1)
	if f.SettingsFunc != nil {
		return f.SettingsFunc(ctx, sub, rg, name)
	}
	return map[string]string{}, nil
}

func (f *AppServiceClient) UpdateApplicationSettings(ctx context.Context, sub, rg, name string, settings map[string]string) error {
	f.Calls.Add(1)
	if f.UpdateSettingsFunc != nil {
		return f.UpdateSettingsFunc(ctx, sub, rg, name, settings)
	}
	return nil
}

// ScheduleClient fakes portal.ScheduleClient.
type ScheduleClient struct {
	ListFunc       func(ctx context.Context, sub, rg, account string) ([]resource.Schedule, error)
	GetFunc        func(ctx context.Context, sub, rg, account, name string) (resource.Schedule, error)
	SetEnabledFunc func(ctx context.Context, sub, rg, account, name string, enabled bool, description *string) (resource.Schedule, error)

	Calls atomic.Int64
}

func (f *ScheduleClient) List(ctx context.Context, sub, rg, account string) ([]resource.Schedule, error) {
	f.Calls.Add(1)
	if f.ListFunc != nil {
		return f.ListFunc(ctx, sub, rg, account)
	}
	return nil, nil
}

func (f *ScheduleClient) Get(ctx context.Context, sub, rg, account, name string) (resource.Schedule, error) {
	f.Calls.Add(1)
	if f.GetFunc != nil {
		return f.GetFunc(ctx, sub, rg, account, name)
	}
	return resource.Schedule{Name: name}, nil
}

func (f *ScheduleClient) SetEnabled(ctx context.Context, sub, rg, account, name string, enabled bool, description *string) (resource.Schedule, error) {
	f.Calls.Add(1)
	if f.SetEnabledFunc != nil {
		return f.SetEnabledFunc(ctx, sub, rg, account, name, enabled, description)
	}
	return resource.Schedule{Name: name, IsEnabled: enabled, Description: description}, nil
}

// JobClient fakes portal.JobClient.
type JobClient struct {
	CreateFunc func(ctx context.Context, sub, rg, account, jobName, runbook string, params map[string]string) (resource.Job, error)

	Calls atomic.Int64
}

func (f *JobClient) Create(ctx context.Context, sub, rg, account, jobName, runbook string, params map[string]string) (resource.Job, error) {
	f.Calls.Add(1)
	if f.CreateFunc != nil {
		return f.CreateFunc(ctx, sub, rg, account, jobName, runbook, params)
	}
	return resource.Job{JobID: "job-1", Status: "New"}, nil
}

// LogsClient fakes portal.LogsClient.
type LogsClient struct {
	QueryFunc func(ctx context.Context, resourceID, query string, span time.Duration) ([]map[string]any, error)
}

func (f *LogsClient) QueryResource(ctx context.Context, resourceID, query string, span time.Duration) ([]map[string]any, error) {
	if f.QueryFunc != nil {
		return f.QueryFunc(ctx, resourceID, query, span)
	}
	return nil, nil
}
