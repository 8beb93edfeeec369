package azure

import (
	"context"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/automation/armautomation"

	"github.com/yairfalse/vmportal/pkg/resource"
)

// Schedules implements portal.ScheduleClient on armautomation.
type Schedules struct {
	clients *clientCache[*armautomation.ScheduleClient]
}

func newSchedules(cred azcore.TokenCredential, opts *arm.ClientOptions) *Schedules {
	return &Schedules{clients: newClientCache("automation schedule", cred, opts, armautomation.NewScheduleClient)}
}

// List returns the schedules of an Automation account.
func (s *Schedules) List(ctx context.Context, subscriptionID, resourceGroup, account string) ([]resource.Schedule, error) {
	client, err := s.clients.get(subscriptionID)
	if err != nil {
		return nil, err
	}

	var out []resource.Schedule
	pager := client.NewListByAutomationAccountPager(resourceGroup, account, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, wrap("list schedules", err)
		}
		for _, sch := range page.Value {
			if sch == nil {
				continue
			}
			out = append(out, scheduleFromSDK(sch))
		}
	}
	return out, nil
}

// Get returns one schedule. A missing schedule matches resource.ErrNotFound.
func (s *Schedules) Get(ctx context.Context, subscriptionID, resourceGroup, account, name string) (resource.Schedule, error) {
	client, err := s.clients.get(subscriptionID)
	if err != nil {
		return resource.Schedule{}, err
	}
	resp, err := client.Get(ctx, resourceGroup, account, name, nil)
	if err != nil {
		return resource.Schedule{}, wrap("get schedule", err)
	}
	return scheduleFromSDK(&resp.Schedule), nil
}

// SetEnabled toggles a schedule, resubmitting its description unchanged.
func (s *Schedules) SetEnabled(ctx context.Context, subscriptionID, resourceGroup, account, name string, enabled bool, description *string) (resource.Schedule, error) {
	client, err := s.clients.get(subscriptionID)
	if err != nil {
		return resource.Schedule{}, err
	}
	resp, err := client.Update(ctx, resourceGroup, account, name, armautomation.ScheduleUpdateParameters{
		Name: to.Ptr(name),
		Properties: &armautomation.ScheduleUpdateProperties{
			IsEnabled:   to.Ptr(enabled),
			Description: description,
		},
	}, nil)
	if err != nil {
		return resource.Schedule{}, wrap("update schedule", err)
	}
	return scheduleFromSDK(&resp.Schedule), nil
}

func scheduleFromSDK(sch *armautomation.Schedule) resource.Schedule {
	out := resource.Schedule{
		Name:      deref(sch.Name),
		Frequency: "Unknown",
	}
	props := sch.Properties
	if props == nil {
		return out
	}

	out.Description = nonEmpty(props.Description)
	if props.IsEnabled != nil {
		out.IsEnabled = *props.IsEnabled
	}
	if props.Frequency != nil && *props.Frequency != "" {
		out.Frequency = string(*props.Frequency)
	}
	out.Interval = intervalValue(props.Interval)
	out.StartTime = props.StartTime
	out.NextRun = props.NextRun
	out.TimeZone = nonEmpty(props.TimeZone)
	if adv := props.AdvancedSchedule; adv != nil && len(adv.WeekDays) > 0 {
		days := make([]string, 0, len(adv.WeekDays))
		for _, d := range adv.WeekDays {
			if d != nil {
				days = append(days, *d)
			}
		}
		out.WeekDays = days
	}
	return out
}

// intervalValue converts the untyped interval the service returns.
func intervalValue(v any) *int64 {
	var n int64
	switch iv := v.(type) {
	case float64:
		n = int64(iv)
	case int64:
		n = iv
	case int32:
		n = int64(iv)
	case int:
		n = int64(iv)
	default:
		return nil
	}
	return &n
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

// Jobs implements portal.JobClient on armautomation.
type Jobs struct {
	clients *clientCache[*armautomation.JobClient]
}

func newJobs(cred azcore.TokenCredential, opts *arm.ClientOptions) *Jobs {
	return &Jobs{clients: newClientCache("automation job", cred, opts, armautomation.NewJobClient)}
}

// Create starts a runbook job named jobName.
func (j *Jobs) Create(ctx context.Context, subscriptionID, resourceGroup, account, jobName, runbook string, params map[string]string) (resource.Job, error) {
	client, err := j.clients.get(subscriptionID)
	if err != nil {
		return resource.Job{}, err
	}

	props := &armautomation.JobCreateProperties{
		Runbook: &armautomation.RunbookAssociationProperty{Name: to.Ptr(runbook)},
	}
	if len(params) > 0 {
		props.Parameters = make(map[string]*string, len(params))
		for k, v := range params {
			props.Parameters[k] = to.Ptr(v)
		}
	}

	resp, err := client.Create(ctx, resourceGroup, account, jobName, armautomation.JobCreateParameters{
		Properties: props,
	}, nil)
	if err != nil {
		return resource.Job{}, wrap("create job", err)
	}
	return jobFromSDK(&resp.Job), nil
}

func jobFromSDK(job *armautomation.Job) resource.Job {
	var out resource.Job
	if job.Properties == nil {
		return out
	}
	out.JobID = deref(job.Properties.JobID)
	if job.Properties.Status != nil {
		out.Status = string(*job.Properties.Status)
	}
	return out
}
