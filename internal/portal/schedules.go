package portal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/yairfalse/vmportal/pkg/resource"
)

// ScheduleList is the set of schedules in the Automation account.
type ScheduleList struct {
	Schedules         []resource.Schedule `json:"schedules"`
	Count             int                 `json:"count"`
	AutomationAccount string              `json:"automationAccount"`
}

// ScheduleUpdate is a requested schedule change. Only IsEnabled can be
// applied; the timing fields are accepted so their presence can be reported.
type ScheduleUpdate struct {
	IsEnabled *bool     `json:"isEnabled"`
	StartTime *string   `json:"startTime,omitempty"`
	Frequency *string   `json:"frequency,omitempty"`
	Interval  *int64    `json:"interval,omitempty"`
	TimeZone  *string   `json:"timeZone,omitempty"`
	WeekDays  *[]string `json:"weekDays,omitempty"`
}

func (u ScheduleUpdate) changesTiming() bool {
	return u.StartTime != nil || u.Frequency != nil || u.Interval != nil ||
		u.TimeZone != nil || u.WeekDays != nil
}

// ScheduleState is the post-update view of a schedule.
type ScheduleState struct {
	Name      string     `json:"name"`
	IsEnabled bool       `json:"isEnabled"`
	NextRun   *time.Time `json:"nextRun,omitempty"`
}

// ScheduleResult is the response to a schedule update.
type ScheduleResult struct {
	Success  bool          `json:"success"`
	Message  string        `json:"message"`
	Schedule ScheduleState `json:"schedule"`
}

func (p *Portal) scheduleClient() (ScheduleClient, error) {
	if err := p.cfg.Automation.CheckAutomation(); err != nil {
		return nil, misconfigured(err)
	}
	if p.clients.Schedules == nil {
		return nil, misconfigured(errClientUnavailable)
	}
	return p.clients.Schedules, nil
}

// ListSchedules returns every schedule of the configured Automation account.
func (p *Portal) ListSchedules(ctx context.Context) (_ *ScheduleList, err error) {
	ctx, done := p.observe(ctx, "ListSchedules")
	defer done(&err)

	client, err := p.scheduleClient()
	if err != nil {
		return nil, err
	}

	aa := p.cfg.Automation
	schedules, err := client.List(ctx, aa.SubscriptionID, aa.ResourceGroup, aa.AccountName)
	if err != nil {
		return nil, remote("Failed to list schedules", err)
	}
	if schedules == nil {
		schedules = []resource.Schedule{}
	}

	p.logger.Info().Ctx(ctx).Int("count", len(schedules)).Msg("listed schedules")

	return &ScheduleList{
		Schedules:         schedules,
		Count:             len(schedules),
		AutomationAccount: aa.AccountName,
	}, nil
}

// UpdateSchedule enables or disables a schedule, keeping its description.
func (p *Portal) UpdateSchedule(ctx context.Context, name string, upd ScheduleUpdate, who Principal) (_ *ScheduleResult, err error) {
	ctx, done := p.observe(ctx, "UpdateSchedule", attribute.String("schedule.name", name))
	defer done(&err)

	if !resource.ValidName(name, resource.KindSchedule) {
		return nil, Invalid("Invalid schedule name")
	}
	if upd.changesTiming() {
		return nil, &NotImplementedError{
			Msg:  "Changing schedule time, frequency or days is not supported",
			Name: name,
		}
	}
	if upd.IsEnabled == nil {
		return nil, Invalid("isEnabled is required")
	}

	client, err := p.scheduleClient()
	if err != nil {
		return nil, err
	}

	enabled := *upd.IsEnabled
	p.audit(ctx, "UpdateSchedule", who, map[string]any{
		"scheduleName": name,
		"isEnabled":    enabled,
	})

	aa := p.cfg.Automation
	current, err := client.Get(ctx, aa.SubscriptionID, aa.ResourceGroup, aa.AccountName, name)
	if err != nil {
		if errors.Is(err, resource.ErrNotFound) {
			return nil, &NotFoundError{Msg: "Schedule not found"}
		}
		return nil, remote("Failed to update schedule", err)
	}

	updated, err := client.SetEnabled(ctx, aa.SubscriptionID, aa.ResourceGroup, aa.AccountName, name, enabled, current.Description)
	if err != nil {
		return nil, remote("Failed to update schedule", err)
	}

	verb := "disabled"
	if enabled {
		verb = "enabled"
	}
	p.logger.Info().Ctx(ctx).Str("schedule", name).Bool("enabled", enabled).Msg("schedule updated")

	return &ScheduleResult{
		Success: true,
		Message: fmt.Sprintf("Schedule %s %s", name, verb),
		Schedule: ScheduleState{
			Name:      updated.Name,
			IsEnabled: updated.IsEnabled,
			NextRun:   updated.NextRun,
		},
	}, nil
}
