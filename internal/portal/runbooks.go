package portal

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// RunbookParams are the optional parameters of a manual runbook run.
type RunbookParams struct {
	VMNames string `json:"vmNames,omitempty"`
}

// RunbookResult is the response to a runbook trigger. The job runs
// asynchronously; Status is the state Azure reported at creation.
type RunbookResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	JobID   string `json:"jobId"`
	Status  string `json:"status"`
}

// RunbookNotAllowedError is a runbook name outside the configured allow-list.
type RunbookNotAllowedError struct {
	Name    string
	Allowed []string
}

func (e *RunbookNotAllowedError) Error() string { return "Invalid runbook name" }

// TriggerRunbook starts a job for an allow-listed runbook.
func (p *Portal) TriggerRunbook(ctx context.Context, name string, params RunbookParams, who Principal) (_ *RunbookResult, err error) {
	ctx, done := p.observe(ctx, "TriggerRunbook", attribute.String("runbook.name", name))
	defer done(&err)

	aa := p.cfg.Automation
	if !aa.RunbookAllowed(name) {
		return nil, &RunbookNotAllowedError{Name: name, Allowed: aa.AllowedRunbooks}
	}
	if err := aa.CheckAutomation(); err != nil {
		return nil, misconfigured(err)
	}
	if p.clients.Jobs == nil {
		return nil, misconfigured(errClientUnavailable)
	}

	p.audit(ctx, "TriggerRunbook", who, map[string]any{
		"runbookName": name,
		"vmNames":     params.VMNames,
	})

	var jobParams map[string]string
	if params.VMNames != "" {
		jobParams = map[string]string{"VMNames": params.VMNames}
	}

	job, err := p.clients.Jobs.Create(ctx, aa.SubscriptionID, aa.ResourceGroup, aa.AccountName, uuid.NewString(), name, jobParams)
	if err != nil {
		return nil, remote("Failed to trigger runbook", err)
	}

	p.logger.Info().Ctx(ctx).Str("runbook", name).Str("job_id", job.JobID).Msg("runbook triggered")

	return &RunbookResult{
		Success: true,
		Message: fmt.Sprintf("Runbook %s triggered successfully", name),
		JobID:   job.JobID,
		Status:  job.Status,
	}, nil
}
