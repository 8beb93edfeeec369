package portal

import (
	"context"
	"time"

	"github.com/yairfalse/vmportal/pkg/resource"
)

// VMClient controls virtual machines.
type VMClient interface {
	List(ctx context.Context, subscriptionID, resourceGroup string) ([]resource.VM, error)
	Start(ctx context.Context, subscriptionID, resourceGroup, name string) error
	Deallocate(ctx context.Context, subscriptionID, resourceGroup, name string) error
	Restart(ctx context.Context, subscriptionID, resourceGroup, name string) error
}

// MetricsClient reads Azure Monitor platform metrics.
type MetricsClient interface {
	List(ctx context.Context, subscriptionID, resourceURI string, q resource.MetricQuery) (resource.MetricSeries, error)
}

// SubscriptionLister enumerates the subscriptions visible to the portal.
type SubscriptionLister interface {
	List(ctx context.Context) ([]resource.Subscription, error)
}

// AppServiceClient controls web apps.
type AppServiceClient interface {
	List(ctx context.Context, subscriptionID string) ([]resource.AppService, error)
	Start(ctx context.Context, subscriptionID, resourceGroup, name string) error
	Stop(ctx context.Context, subscriptionID, resourceGroup, name string) error
	Restart(ctx context.Context, subscriptionID, resourceGroup, name string) error
	ApplicationSettings(ctx context.Context, subscriptionID, resourceGroup, name string) (map[string]string, error)
	UpdateApplicationSettings(ctx context.Context, subscriptionID, resourceGroup, name string, settings map[string]string) error
}

// ScheduleClient manages Automation schedules.
type ScheduleClient interface {
	List(ctx context.Context, subscriptionID, resourceGroup, account string) ([]resource.Schedule, error)
	Get(ctx context.Context, subscriptionID, resourceGroup, account, name string) (resource.Schedule, error)
	SetEnabled(ctx context.Context, subscriptionID, resourceGroup, account, name string, enabled bool, description *string) (resource.Schedule, error)
}

// JobClient starts Automation runbook jobs.
type JobClient interface {
	Create(ctx context.Context, subscriptionID, resourceGroup, account, jobName, runbook string, params map[string]string) (resource.Job, error)
}

// LogsClient runs KQL queries against a workspace-backed resource.
type LogsClient interface {
	QueryResource(ctx context.Context, resourceID, query string, span time.Duration) ([]map[string]any, error)
}

// Clients bundles the cloud clients used by the portal. Nil members make the
// operations that need them fail with a ConfigurationError.
type Clients struct {
	VMs           VMClient
	Metrics       MetricsClient
	Subscriptions SubscriptionLister
	AppServices   AppServiceClient
	Schedules     ScheduleClient
	Jobs          JobClient
	Logs          LogsClient
}
