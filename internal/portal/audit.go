package portal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yairfalse/vmportal/pkg/resource"
)

const (
	defaultAuditHours = 24
	maxAuditHours     = 168
	defaultAuditLimit = 100
	maxAuditLimit     = 500
)

// auditedOperations are the request names reported by the audit log.
var auditedOperations = []string{
	"StartVM", "StopVM", "RestartVM",
	"BatchStartVMs", "BatchStopVMs",
	"StartAppService", "StopAppService", "RestartAppService", "ConfigureAppService",
	"UpdateSchedule", "TriggerRunbook",
}

// AuditLog is a window of recent state-changing requests.
type AuditLog struct {
	Entries []resource.AuditEntry `json:"entries"`
	Count   int                   `json:"count"`
	Hours   int                   `json:"hours"`
	Limit   int                   `json:"limit"`
}

// AuditWindow normalizes the query window. Zero values select the defaults;
// limit is capped at 500 and hours must fall within 1..168.
func AuditWindow(hours, limit int) (int, int, error) {
	if hours == 0 {
		hours = defaultAuditHours
	}
	if hours < 1 || hours > maxAuditHours {
		return 0, 0, Invalid("Hours must be between 1 and %d", maxAuditHours)
	}
	if limit == 0 {
		limit = defaultAuditLimit
	}
	if limit < 1 {
		return 0, 0, Invalid("Limit must be a positive number")
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}
	return hours, limit, nil
}

func auditQuery(hours, limit int) string {
	quoted := make([]string, len(auditedOperations))
	for i, op := range auditedOperations {
		quoted[i] = "'" + op + "'"
	}
	return fmt.Sprintf(`requests
| where timestamp > ago(%dh)
| where name in (%s)
| project
    timestamp,
    operation = name,
    user = user_AuthenticatedId,
    status = case(success == true, 'Success', 'Error'),
    message = resultCode,
    duration
| order by timestamp desc
| take %d`, hours, strings.Join(quoted, ", "), limit)
}

// GetAuditLog queries Application Insights for recent portal operations.
func (p *Portal) GetAuditLog(ctx context.Context, hours, limit int) (_ *AuditLog, err error) {
	ctx, done := p.observe(ctx, "GetAuditLog")
	defer done(&err)

	hours, limit, err = AuditWindow(hours, limit)
	if err != nil {
		return nil, err
	}
	if p.cfg.Insights.ResourceID == "" {
		return nil, misconfigured(errors.New("missing APPINSIGHTS_RESOURCE_ID configuration"))
	}
	if p.clients.Logs == nil {
		return nil, misconfigured(errClientUnavailable)
	}

	p.logger.Info().Ctx(ctx).Int("hours", hours).Int("limit", limit).Msg("querying audit log")

	rows, err := p.clients.Logs.QueryResource(ctx, p.cfg.Insights.ResourceID, auditQuery(hours, limit),
		time.Duration(hours)*time.Hour)
	if err != nil {
		return nil, remote("Failed to get audit log", err)
	}

	entries := make([]resource.AuditEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, auditEntry(row))
	}

	return &AuditLog{
		Entries: entries,
		Count:   len(entries),
		Hours:   hours,
		Limit:   limit,
	}, nil
}

func auditEntry(row map[string]any) resource.AuditEntry {
	status := stringCol(row, "status")
	if status == "" {
		status = "Info"
	}
	return resource.AuditEntry{
		Timestamp: stringCol(row, "timestamp"),
		Operation: stringCol(row, "operation"),
		VMName:    optionalCol(row, "vmName"),
		User:      optionalCol(row, "user"),
		Status:    status,
		Message:   optionalCol(row, "message"),
		Duration:  numberCol(row, "duration"),
	}
}

func stringCol(row map[string]any, col string) string {
	switch v := row[col].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func optionalCol(row map[string]any, col string) *string {
	s := stringCol(row, col)
	if s == "" {
		return nil
	}
	return &s
}

func numberCol(row map[string]any, col string) *float64 {
	var f float64
	switch v := row[col].(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	default:
		return nil
	}
	return &f
}
