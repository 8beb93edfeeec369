// Package resource defines the Azure resource model served by the portal.
package resource

import "time"

// Kind identifies which naming grammar and control-plane API a resource uses.
type Kind string

const (
	KindVM         Kind = "vm"
	KindAppService Kind = "appservice"
	KindSchedule   Kind = "schedule"
)

// VM is a virtual machine in the managed resource group.
type VM struct {
	Name              string `json:"name"`
	ID                string `json:"id"`
	ResourceGroup     string `json:"resourceGroup"`
	Location          string `json:"location"`
	VMSize            string `json:"vmSize"`
	PowerState        string `json:"powerState"`
	OSType            string `json:"osType"`
	ProvisioningState string `json:"provisioningState"`
}

// AppService is a web app discovered in one of the visible subscriptions.
type AppService struct {
	Name             string  `json:"name"`
	ID               string  `json:"id"`
	SubscriptionID   string  `json:"subscriptionId"`
	SubscriptionName string  `json:"subscriptionName"`
	ResourceGroup    string  `json:"resourceGroup"`
	Location         string  `json:"location"`
	State            string  `json:"state"`
	SKU              *string `json:"sku"` // SKU lives on the App Service plan, not the site
	Kind             *string `json:"kind"`
}

// Schedule is an Azure Automation schedule.
type Schedule struct {
	Name        string     `json:"name"`
	Description *string    `json:"description"`
	IsEnabled   bool       `json:"isEnabled"`
	Frequency   string     `json:"frequency"`
	Interval    *int64     `json:"interval"`
	StartTime   *time.Time `json:"startTime"`
	NextRun     *time.Time `json:"nextRun"`
	TimeZone    *string    `json:"timeZone"`
	WeekDays    []string   `json:"weekDays"`
}

// Job is a started Azure Automation runbook job.
type Job struct {
	JobID  string `json:"jobId"`
	Status string `json:"status"`
}

// VMSummary is the latest point-in-time view of one VM.
// Metric fields are nil when the VM is not running or no sample exists.
type VMSummary struct {
	Name         string   `json:"name"`
	PowerState   string   `json:"powerState"`
	CPUPercent   *float64 `json:"cpuPercent"`
	NetworkInMB  *float64 `json:"networkInMB"`
	NetworkOutMB *float64 `json:"networkOutMB"`
}

// MetricPoint is one aggregated sample of a metric timeseries.
type MetricPoint struct {
	Timestamp string   `json:"timestamp"`
	Average   *float64 `json:"average"`
	Maximum   *float64 `json:"maximum"`
	Minimum   *float64 `json:"minimum"`
}

// VMMetrics holds the timeseries returned for a single VM.
type VMMetrics struct {
	VMName         string        `json:"vmName"`
	CPUPercent     []MetricPoint `json:"cpuPercent"`
	NetworkIn      []MetricPoint `json:"networkIn"`
	NetworkOut     []MetricPoint `json:"networkOut"`
	DiskReadBytes  []MetricPoint `json:"diskReadBytes"`
	DiskWriteBytes []MetricPoint `json:"diskWriteBytes"`
}

// AuditEntry is one row of the portal's operation history.
type AuditEntry struct {
	Timestamp string   `json:"timestamp"`
	Operation string   `json:"operation"`
	VMName    *string  `json:"vmName"`
	User      *string  `json:"user"`
	Status    string   `json:"status"`
	Message   *string  `json:"message"`
	Duration  *float64 `json:"duration"`
}

// Subscription is an Azure subscription visible to the portal's identity.
type Subscription struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}
