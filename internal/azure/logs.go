package azure

import (
	"context"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/monitor/azquery"
	"github.com/rs/zerolog/log"
)

// Logs implements portal.LogsClient on azquery.
type Logs struct {
	client *azquery.LogsClient
	now    func() time.Time
}

func newLogs(cred azcore.TokenCredential, opts *arm.ClientOptions) (*Logs, error) {
	var qopts *azquery.LogsClientOptions
	if opts != nil {
		qopts = &azquery.LogsClientOptions{ClientOptions: opts.ClientOptions}
	}
	client, err := azquery.NewLogsClient(cred, qopts)
	if err != nil {
		return nil, fmt.Errorf("create logs client: %w", err)
	}
	return &Logs{client: client, now: time.Now}, nil
}

// QueryResource runs a KQL query scoped to resourceID over the last span.
// A partial result is returned with a warning; a query with no usable
// tables fails.
func (l *Logs) QueryResource(ctx context.Context, resourceID, query string, span time.Duration) ([]map[string]any, error) {
	end := l.now().UTC()
	interval := azquery.NewTimeInterval(end.Add(-span), end)

	resp, err := l.client.QueryResource(ctx, resourceID, azquery.Body{
		Query:    &query,
		Timespan: &interval,
	}, nil)
	if err != nil {
		return nil, wrap("query logs", err)
	}
	if resp.Error != nil {
		if len(resp.Tables) == 0 {
			return nil, wrap("query logs", resp.Error)
		}
		log.Warn().Ctx(ctx).Str("error", resp.Error.Error()).Msg("partial log query result")
	}
	return rowsFromTables(resp.Tables), nil
}

// rowsFromTables maps the rows of the first table to column-keyed records.
func rowsFromTables(tables []*azquery.Table) []map[string]any {
	if len(tables) == 0 || tables[0] == nil {
		return nil
	}
	table := tables[0]

	names := make([]string, len(table.Columns))
	for i, col := range table.Columns {
		if col != nil {
			names[i] = deref(col.Name)
		}
	}

	rows := make([]map[string]any, 0, len(table.Rows))
	for _, row := range table.Rows {
		rec := make(map[string]any, len(names))
		for i, v := range row {
			if i < len(names) && names[i] != "" {
				rec[names[i]] = v
			}
		}
		rows = append(rows, rec)
	}
	return rows
}
