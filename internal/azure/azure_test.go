package azure

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/monitor/azquery"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/appservice/armappservice/v4"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/automation/armautomation"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v6"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/monitor/armmonitor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/vmportal/pkg/resource"
)

func TestVMFromSDK(t *testing.T) {
	vm := &armcompute.VirtualMachine{
		Name:     to.Ptr("web-1"),
		ID:       to.Ptr("/subscriptions/s/resourceGroups/RG-Web/providers/Microsoft.Compute/virtualMachines/web-1"),
		Location: to.Ptr("westeurope"),
		Properties: &armcompute.VirtualMachineProperties{
			HardwareProfile:   &armcompute.HardwareProfile{VMSize: to.Ptr(armcompute.VirtualMachineSizeTypesStandardB2S)},
			StorageProfile:    &armcompute.StorageProfile{OSDisk: &armcompute.OSDisk{OSType: to.Ptr(armcompute.OperatingSystemTypesLinux)}},
			ProvisioningState: to.Ptr("Creating"),
			InstanceView: &armcompute.VirtualMachineInstanceView{
				Statuses: []*armcompute.InstanceViewStatus{
					{Code: to.Ptr("ProvisioningState/succeeded")},
					{Code: to.Ptr("PowerState/running")},
				},
			},
		},
	}

	got := vmFromSDK(vm)

	assert.Equal(t, "web-1", got.Name)
	assert.Equal(t, "RG-Web", got.ResourceGroup)
	assert.Equal(t, "westeurope", got.Location)
	assert.Equal(t, "Standard_B2s", got.VMSize)
	assert.Equal(t, "Linux", got.OSType)
	assert.Equal(t, resource.StateRunning, got.PowerState)
	assert.Equal(t, "succeeded", got.ProvisioningState)
}

func TestVMFromSDK_NoInstanceView(t *testing.T) {
	got := vmFromSDK(&armcompute.VirtualMachine{Name: to.Ptr("bare")})

	assert.Equal(t, resource.StateUnknown, got.PowerState)
	assert.Equal(t, "unknown", got.VMSize)
	assert.Equal(t, "unknown", got.OSType)
	assert.Equal(t, resource.UnknownGroup, got.ResourceGroup)
}

func TestInstanceStates_UnrecognizedPower(t *testing.T) {
	power, _ := instanceStates([]*armcompute.InstanceViewStatus{nil, {Code: to.Ptr("PowerState/hibernated")}})
	assert.Equal(t, resource.StateUnknown, resource.NormalizePowerState(power))
}

func TestSeriesFromSDK(t *testing.T) {
	ts := time.Date(2025, 3, 1, 11, 5, 0, 0, time.UTC)
	metrics := []*armmonitor.Metric{
		{
			Name: &armmonitor.LocalizableString{Value: to.Ptr(resource.MetricCPU)},
			Timeseries: []*armmonitor.TimeSeriesElement{{
				Data: []*armmonitor.MetricValue{
					{TimeStamp: &ts, Average: to.Ptr(12.5), Maximum: to.Ptr(40.0), Minimum: to.Ptr(2.0)},
					nil,
				},
			}},
		},
		{Name: &armmonitor.LocalizableString{Value: to.Ptr(resource.MetricDiskRead)}},
		{Name: nil},
	}

	series := seriesFromSDK(metrics)

	require.Len(t, series[resource.MetricCPU], 1)
	p := series[resource.MetricCPU][0]
	assert.Equal(t, "2025-03-01T11:05:00.000Z", p.Timestamp)
	assert.Equal(t, 12.5, *p.Average)
	assert.Equal(t, 40.0, *p.Maximum)
	assert.Equal(t, 2.0, *p.Minimum)

	assert.NotNil(t, series[resource.MetricDiskRead])
	assert.Empty(t, series[resource.MetricDiskRead])
	assert.Len(t, series, 2)
}

func TestListOptions(t *testing.T) {
	opts := listOptions()

	require.NotNil(t, opts.Expand)
	assert.Equal(t, armcompute.ExpandTypeForListVMsInstanceView, *opts.Expand)
}

func TestMetricsOptions(t *testing.T) {
	opts := metricsOptions(resource.MetricQuery{
		Timespan:     "PT6H",
		Interval:     "PT15M",
		Names:        []string{resource.MetricCPU, resource.MetricNetworkIn},
		Aggregations: []string{"Average", "Maximum"},
	})

	assert.Equal(t, "PT6H", *opts.Timespan)
	assert.Equal(t, "PT15M", *opts.Interval)
	assert.Equal(t, "Percentage CPU,Network In Total", *opts.Metricnames)
	assert.Equal(t, "Average,Maximum", *opts.Aggregation)
}

func TestSiteFromSDK(t *testing.T) {
	site := &armappservice.Site{
		Name:       to.Ptr("shop"),
		ID:         to.Ptr("/subscriptions/s1/resourcegroups/rg-shop/providers/Microsoft.Web/sites/shop"),
		Kind:       to.Ptr("app,linux"),
		Properties: &armappservice.SiteProperties{State: to.Ptr("Stopped")},
	}

	got := siteFromSDK(site, "s1")

	assert.Equal(t, "rg-shop", got.ResourceGroup)
	assert.Equal(t, "s1", got.SubscriptionID)
	assert.Equal(t, "Stopped", got.State)
	assert.Equal(t, "unknown", got.Location)
	assert.Nil(t, got.SKU)
	require.NotNil(t, got.Kind)
	assert.Equal(t, "app,linux", *got.Kind)
}

func TestScheduleFromSDK(t *testing.T) {
	start := time.Date(2025, 1, 6, 7, 0, 0, 0, time.UTC)
	sch := &armautomation.Schedule{
		Name: to.Ptr("weekday-start"),
		Properties: &armautomation.ScheduleProperties{
			Description: to.Ptr(""),
			IsEnabled:   to.Ptr(true),
			Frequency:   to.Ptr(armautomation.ScheduleFrequencyWeek),
			Interval:    float64(1),
			StartTime:   &start,
			TimeZone:    to.Ptr("Europe/Oslo"),
			AdvancedSchedule: &armautomation.AdvancedSchedule{
				WeekDays: []*string{to.Ptr("Monday"), to.Ptr("Friday")},
			},
		},
	}

	got := scheduleFromSDK(sch)

	assert.Equal(t, "weekday-start", got.Name)
	assert.Nil(t, got.Description)
	assert.True(t, got.IsEnabled)
	assert.Equal(t, "Week", got.Frequency)
	require.NotNil(t, got.Interval)
	assert.Equal(t, int64(1), *got.Interval)
	assert.Equal(t, &start, got.StartTime)
	assert.Nil(t, got.NextRun)
	assert.Equal(t, []string{"Monday", "Friday"}, got.WeekDays)
}

func TestScheduleFromSDK_Empty(t *testing.T) {
	got := scheduleFromSDK(&armautomation.Schedule{Name: to.Ptr("s")})
	assert.Equal(t, "Unknown", got.Frequency)
	assert.False(t, got.IsEnabled)
	assert.Nil(t, got.Interval)
	assert.Nil(t, got.WeekDays)
}

func TestJobFromSDK(t *testing.T) {
	job := &armautomation.Job{Properties: &armautomation.JobProperties{
		JobID:  to.Ptr("0f7c"),
		Status: to.Ptr(armautomation.JobStatusNew),
	}}
	assert.Equal(t, resource.Job{JobID: "0f7c", Status: "New"}, jobFromSDK(job))
}

func TestRowsFromTables(t *testing.T) {
	tables := []*azquery.Table{{
		Columns: []*azquery.Column{{Name: to.Ptr("timestamp")}, {Name: to.Ptr("operation")}, {Name: to.Ptr("duration")}},
		Rows: []azquery.Row{
			{"2025-03-01T11:00:00Z", "StartVM", 812.5},
			{"2025-03-01T10:00:00Z", "StopVM"},
		},
	}}

	rows := rowsFromTables(tables)

	require.Len(t, rows, 2)
	assert.Equal(t, "StartVM", rows[0]["operation"])
	assert.Equal(t, 812.5, rows[0]["duration"])
	_, ok := rows[1]["duration"]
	assert.False(t, ok)
	assert.Nil(t, rowsFromTables(nil))
}

func TestWrap_NotFound(t *testing.T) {
	notFound := &azcore.ResponseError{StatusCode: http.StatusNotFound, ErrorCode: "ResourceNotFound"}
	err := wrap("get schedule", notFound)

	assert.ErrorIs(t, err, resource.ErrNotFound)
	var respErr *azcore.ResponseError
	assert.ErrorAs(t, err, &respErr)

	err = wrap("get schedule", &azcore.ResponseError{StatusCode: http.StatusForbidden})
	assert.NotErrorIs(t, err, resource.ErrNotFound)
	assert.Contains(t, err.Error(), "get schedule")

	assert.NoError(t, wrap("noop", nil))
}

func TestClientCache(t *testing.T) {
	builds := 0
	cache := newClientCache("test", nil, nil, func(sub string, _ azcore.TokenCredential, _ *arm.ClientOptions) (string, error) {
		builds++
		if sub == "bad" {
			return "", errors.New("invalid subscription")
		}
		return "client-" + sub, nil
	})

	c1, err := cache.get("s1")
	require.NoError(t, err)
	c2, err := cache.get("s1")
	require.NoError(t, err)
	assert.Equal(t, "client-s1", c1)
	assert.Equal(t, c1, c2)
	assert.Equal(t, 1, builds)

	_, err = cache.get("bad")
	assert.ErrorContains(t, err, "create test client for subscription bad")
	_, err = cache.get("bad")
	assert.Error(t, err)
	assert.Equal(t, 3, builds, "failures are not cached")
}
