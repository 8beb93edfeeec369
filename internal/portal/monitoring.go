package portal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/yairfalse/vmportal/pkg/resource"
)

const bytesPerMB = 1024 * 1024

// metricIntervals maps each accepted timespan to its aggregation grain.
var metricIntervals = map[string]string{
	"PT1H":  "PT5M",
	"PT6H":  "PT15M",
	"PT12H": "PT30M",
	"PT24H": "PT1H",
	"P1D":   "PT1H",
	"P7D":   "PT6H",
}

// ValidTimespans lists the accepted metric windows in display order.
var ValidTimespans = []string{"PT1H", "PT6H", "PT12H", "PT24H", "P1D", "P7D"}

// IntervalFor returns the aggregation grain for timespan, PT5M when unknown.
func IntervalFor(timespan string) string {
	if iv, ok := metricIntervals[timespan]; ok {
		return iv
	}
	return "PT5M"
}

// Summary is the fleet-wide snapshot rendered by the monitoring page.
type Summary struct {
	VMs []resource.VMSummary `json:"vms"`
	resource.SummaryStats
	Timestamp string `json:"timestamp"`
}

// MetricsResult is the response for a single VM's metric history.
type MetricsResult struct {
	Metrics  resource.VMMetrics `json:"metrics"`
	Timespan string             `json:"timespan"`
	Interval string             `json:"interval"`
}

func vmResourceURI(subscriptionID, resourceGroup, name string) string {
	return fmt.Sprintf("/subscriptions/%s/resourceGroups/%s/providers/Microsoft.Compute/virtualMachines/%s",
		subscriptionID, resourceGroup, name)
}

// Summary returns power state for every VM plus the latest CPU and network
// samples of the running ones. A metrics failure for one VM leaves its
// values nil rather than failing the summary.
func (p *Portal) Summary(ctx context.Context) (_ *Summary, err error) {
	ctx, done := p.observe(ctx, "GetVMsSummary")
	defer done(&err)

	client, err := p.vmClient()
	if err != nil {
		return nil, err
	}

	az := p.cfg.Azure
	vms, err := client.List(ctx, az.VMSubscriptionID, az.VMResourceGroup)
	if err != nil {
		return nil, remote("Failed to get VMs summary", err)
	}

	query := resource.MetricQuery{
		Timespan:     "PT1H",
		Interval:     "PT5M",
		Names:        []string{resource.MetricCPU, resource.MetricNetworkIn, resource.MetricNetworkOut},
		Aggregations: []string{"Average"},
	}

	items := make([]resource.VMSummary, 0, len(vms))
	for _, vm := range vms {
		if vm.Name == "" {
			continue
		}
		item := resource.VMSummary{Name: vm.Name, PowerState: vm.PowerState}

		if resource.IsRunning(vm.PowerState) && p.clients.Metrics != nil {
			uri := vmResourceURI(az.VMSubscriptionID, az.VMResourceGroup, vm.Name)
			series, err := p.clients.Metrics.List(ctx, az.VMSubscriptionID, uri, query)
			if err != nil {
				p.logger.Warn().Ctx(ctx).Err(err).Str("vm", vm.Name).Msg("failed to get vm metrics")
			} else {
				item.CPUPercent = roundPtr(series.Latest(resource.MetricCPU), 1)
				item.NetworkInMB = roundPtr(toMB(series.Latest(resource.MetricNetworkIn)), 2)
				item.NetworkOutMB = roundPtr(toMB(series.Latest(resource.MetricNetworkOut)), 2)
			}
		}

		items = append(items, item)
	}

	return &Summary{
		VMs:          items,
		SummaryStats: resource.Summarize(items),
		Timestamp:    p.now().UTC().Format(time.RFC3339Nano),
	}, nil
}

// VMMetrics returns CPU, network and disk series for one VM.
func (p *Portal) VMMetrics(ctx context.Context, name, timespan string) (_ *MetricsResult, err error) {
	ctx, done := p.observe(ctx, "GetVMMetrics", attribute.String("vm.name", name))
	defer done(&err)

	if timespan == "" {
		timespan = "PT1H"
	}
	if !resource.ValidName(name, resource.KindVM) {
		return nil, Invalid("Invalid VM name")
	}
	if _, ok := metricIntervals[timespan]; !ok {
		return nil, Invalid("Invalid timespan. Use %s", strings.Join(ValidTimespans, ", "))
	}

	if err := p.cfg.Azure.CheckVMTarget(); err != nil {
		return nil, misconfigured(err)
	}
	if p.clients.Metrics == nil {
		return nil, misconfigured(errClientUnavailable)
	}

	az := p.cfg.Azure
	interval := IntervalFor(timespan)
	series, err := p.clients.Metrics.List(ctx, az.VMSubscriptionID, vmResourceURI(az.VMSubscriptionID, az.VMResourceGroup, name), resource.MetricQuery{
		Timespan: timespan,
		Interval: interval,
		Names: []string{
			resource.MetricCPU, resource.MetricNetworkIn, resource.MetricNetworkOut,
			resource.MetricDiskRead, resource.MetricDiskWrite,
		},
		Aggregations: []string{"Average", "Maximum", "Minimum"},
	})
	if err != nil {
		return nil, remote("Failed to get VM metrics", err)
	}

	return &MetricsResult{
		Metrics: resource.VMMetrics{
			VMName:         name,
			CPUPercent:     orEmpty(series[resource.MetricCPU]),
			NetworkIn:      orEmpty(series[resource.MetricNetworkIn]),
			NetworkOut:     orEmpty(series[resource.MetricNetworkOut]),
			DiskReadBytes:  orEmpty(series[resource.MetricDiskRead]),
			DiskWriteBytes: orEmpty(series[resource.MetricDiskWrite]),
		},
		Timespan: timespan,
		Interval: interval,
	}, nil
}

func orEmpty(points []resource.MetricPoint) []resource.MetricPoint {
	if points == nil {
		return []resource.MetricPoint{}
	}
	return points
}

func toMB(v *float64) *float64 {
	if v == nil {
		return nil
	}
	mb := *v / bytesPerMB
	return &mb
}

func roundPtr(v *float64, places int) *float64 {
	if v == nil {
		return nil
	}
	r := resource.Round(*v, places)
	return &r
}
