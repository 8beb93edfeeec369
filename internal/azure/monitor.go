package azure

import (
	"context"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/monitor/armmonitor"

	"github.com/yairfalse/vmportal/pkg/resource"
)

// timestampLayout renders metric timestamps with millisecond precision.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Metrics implements portal.MetricsClient on armmonitor.
type Metrics struct {
	clients *clientCache[*armmonitor.MetricsClient]
}

func newMetrics(cred azcore.TokenCredential, opts *arm.ClientOptions) *Metrics {
	return &Metrics{clients: newClientCache("monitor", cred, opts, armmonitor.NewMetricsClient)}
}

// List reads platform metrics for one resource.
func (m *Metrics) List(ctx context.Context, subscriptionID, resourceURI string, q resource.MetricQuery) (resource.MetricSeries, error) {
	client, err := m.clients.get(subscriptionID)
	if err != nil {
		return nil, err
	}

	resp, err := client.List(ctx, resourceURI, metricsOptions(q))
	if err != nil {
		return nil, wrap("list metrics", err)
	}
	return seriesFromSDK(resp.Value), nil
}

func metricsOptions(q resource.MetricQuery) *armmonitor.MetricsClientListOptions {
	opts := &armmonitor.MetricsClientListOptions{}
	if q.Timespan != "" {
		opts.Timespan = &q.Timespan
	}
	if q.Interval != "" {
		opts.Interval = &q.Interval
	}
	if len(q.Names) > 0 {
		names := strings.Join(q.Names, ",")
		opts.Metricnames = &names
	}
	if len(q.Aggregations) > 0 {
		agg := strings.Join(q.Aggregations, ",")
		opts.Aggregation = &agg
	}
	return opts
}

// seriesFromSDK keys the first timeseries of each metric by metric name.
func seriesFromSDK(metrics []*armmonitor.Metric) resource.MetricSeries {
	series := make(resource.MetricSeries, len(metrics))
	for _, metric := range metrics {
		if metric == nil || metric.Name == nil || metric.Name.Value == nil {
			continue
		}
		points := []resource.MetricPoint{}
		if len(metric.Timeseries) > 0 && metric.Timeseries[0] != nil {
			for _, d := range metric.Timeseries[0].Data {
				if d == nil {
					continue
				}
				points = append(points, resource.MetricPoint{
					Timestamp: formatTime(d.TimeStamp),
					Average:   d.Average,
					Maximum:   d.Maximum,
					Minimum:   d.Minimum,
				})
			}
		}
		series[*metric.Name.Value] = points
	}
	return series
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(timestampLayout)
}
