package azuredevops

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/steveyegge/lasso/internal/types"
)

// Executor implements remote.QueryExecutor: WIQL in, ordered snapshots out.
// Snapshot capture happens here, at query time; everything downstream works
// from the captured values.
type Executor struct {
	client *Client

	// now is injectable for deterministic staleness in tests.
	now func() time.Time
}

// NewExecutor wraps a client as a query executor.
func NewExecutor(client *Client) *Executor {
	return &Executor{client: client, now: time.Now}
}

// Run executes the WIQL query and captures the result as snapshots, indexed
// in result order.
func (e *Executor) Run(ctx context.Context, query string) ([]types.WorkItemSnapshot, error) {
	ids, err := e.client.RunWIQL(ctx, query)
	if err != nil {
		return nil, err
	}
	items, err := e.client.FetchWorkItems(ctx, ids)
	if err != nil {
		return nil, err
	}

	now := e.now()
	snapshots := make([]types.WorkItemSnapshot, len(items))
	for i, wi := range items {
		snapshots[i] = captureSnapshot(wi, i, now)
	}
	return snapshots, nil
}

// captureSnapshot converts one API work item into the immutable snapshot
// form. daysInactive derives from System.ChangedDate (whole days, floor);
// items without a parseable change date carry no staleness number at all.
func captureSnapshot(wi WorkItem, index int, now time.Time) types.WorkItemSnapshot {
	snap := types.WorkItemSnapshot{
		ID:    wi.ID,
		Title: wi.Fields.Title,
		State: wi.Fields.State,
		Type:  wi.Fields.WorkItemType,
		Tags:  splitTags(wi.Fields.Tags),
		Index: index,
	}
	if wi.Fields.AssignedTo != nil {
		who := wi.Fields.AssignedTo.UniqueName
		if who == "" {
			who = wi.Fields.AssignedTo.DisplayName
		}
		snap.AssignedTo = &who
	}
	if changed, err := time.Parse(time.RFC3339, wi.Fields.ChangedDate); err == nil {
		days := int(now.Sub(changed).Hours() / 24)
		if days < 0 {
			days = 0
		}
		snap.DaysInactive = &days
	}
	return snap
}

// splitTags parses the semicolon-separated System.Tags value.
func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ";")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}

// QueryOptions builds a WIQL query from structured flags, for callers that
// do not hand-write WIQL.
type QueryOptions struct {
	States        []string
	Types         []string
	Tag           string
	InactiveSince *time.Time // items not changed since this instant
}

// BuildWIQL renders the options as a WIQL statement, ordered by ID for a
// stable snapshot order.
func BuildWIQL(opts QueryOptions) string {
	var b strings.Builder
	b.WriteString("SELECT [System.Id] FROM WorkItems WHERE [System.TeamProject] = @project")

	if len(opts.States) > 0 {
		b.WriteString(" AND (")
		for i, s := range opts.States {
			if i > 0 {
				b.WriteString(" OR ")
			}
			fmt.Fprintf(&b, "[System.State] = '%s'", escapeWIQL(s))
		}
		b.WriteString(")")
	}
	if len(opts.Types) > 0 {
		b.WriteString(" AND (")
		for i, t := range opts.Types {
			if i > 0 {
				b.WriteString(" OR ")
			}
			fmt.Fprintf(&b, "[System.WorkItemType] = '%s'", escapeWIQL(t))
		}
		b.WriteString(")")
	}
	if opts.Tag != "" {
		fmt.Fprintf(&b, " AND [System.Tags] CONTAINS '%s'", escapeWIQL(opts.Tag))
	}
	if opts.InactiveSince != nil {
		fmt.Fprintf(&b, " AND [System.ChangedDate] <= '%s'",
			opts.InactiveSince.UTC().Format("2006-01-02T15:04:05Z"))
	}

	b.WriteString(" ORDER BY [System.Id] ASC")
	return b.String()
}

// escapeWIQL doubles single quotes inside a WIQL string literal.
func escapeWIQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
