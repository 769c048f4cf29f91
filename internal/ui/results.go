package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/steveyegge/lasso/internal/types"
)

const reasonPreviewLen = 70

// RenderBulkResults renders the per-action outcome of a bulk call: one
// section per action with a row per item and a tally line.
func RenderBulkResults(results []*types.BulkResult) string {
	var b strings.Builder
	for i, res := range results {
		if i > 0 {
			b.WriteString("\n")
		}
		renderBulkResult(&b, res)
	}
	return b.String()
}

func renderBulkResult(b *strings.Builder, res *types.BulkResult) {
	header := string(res.Action)
	if res.DryRun {
		header += " (dry run)"
	}
	b.WriteString(RenderCategory(header))
	b.WriteString("\n")

	for _, item := range res.Items {
		detail := item.Reason
		if item.Outcome == types.OutcomeSucceeded {
			detail = item.AppliedValue
		}
		detail = TruncateSimple(strings.ReplaceAll(detail, "\n", " "), reasonPreviewLen)

		fmt.Fprintf(b, "  %s %-7d %s\n", RenderOutcomeIcon(item.Outcome), item.ID, detail)
	}

	b.WriteString(RenderSeparator())
	b.WriteString("\n")
	fmt.Fprintf(b, "  %d selected  %s  %s  %s\n",
		res.Selected,
		RenderPass(fmt.Sprintf("%d succeeded", res.Succeeded)),
		renderFailedCount(res.Failed),
		RenderMuted(fmt.Sprintf("%d skipped", res.Skipped)),
	)
}

func renderFailedCount(n int) string {
	s := fmt.Sprintf("%d failed", n)
	if n > 0 {
		return RenderFail(s)
	}
	return RenderMuted(s)
}

// RenderSnapshots renders work item snapshots as a fixed-width table.
func RenderSnapshots(snaps []types.WorkItemSnapshot) string {
	if len(snaps) == 0 {
		return RenderMuted("no items") + "\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "  %-5s %-7s %-12s %-10s %s\n",
		RenderMuted("idx"), RenderMuted("id"), RenderMuted("state"), RenderMuted("type"), RenderMuted("title"))
	for _, s := range snaps {
		title := TruncateSimple(s.Title, 50)
		fmt.Fprintf(&b, "  %-5d %-7d %-12s %-10s %s\n", s.Index, s.ID, s.State, s.Type, title)
	}
	return b.String()
}

// RenderHandle renders handle metadata with an optional snapshot sample.
func RenderHandle(meta types.HandleMeta, sample []types.WorkItemSnapshot, now time.Time) string {
	var b strings.Builder

	b.WriteString(RenderAccent(meta.Token))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  items:    %d\n", meta.ItemCount)
	if meta.SourceQuery != "" {
		fmt.Fprintf(&b, "  query:    %s\n", TruncateSimple(meta.SourceQuery, 80))
	}
	fmt.Fprintf(&b, "  created:  %s\n", meta.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "  expires:  %s (%s)\n", meta.ExpiresAt.Format(time.RFC3339), renderExpiry(meta, now))
	fmt.Fprintf(&b, "  accessed: %d times\n", meta.AccessCount)

	if len(sample) > 0 {
		b.WriteString("\n")
		if len(sample) < meta.ItemCount {
			fmt.Fprintf(&b, "%s\n", RenderMuted(fmt.Sprintf("first %d of %d items:", len(sample), meta.ItemCount)))
		}
		b.WriteString(RenderSnapshots(sample))
	}
	return b.String()
}

// RenderHandleList renders one line per handle.
func RenderHandleList(metas []types.HandleMeta, now time.Time) string {
	if len(metas) == 0 {
		return RenderMuted("no active handles") + "\n"
	}

	var b strings.Builder
	for _, meta := range metas {
		fmt.Fprintf(&b, "%s  %4d items  %s\n",
			RenderAccent(meta.Token), meta.ItemCount, renderExpiry(meta, now))
	}
	return b.String()
}

func renderExpiry(meta types.HandleMeta, now time.Time) string {
	if meta.Expired || !now.Before(meta.ExpiresAt) {
		return RenderFail("expired")
	}
	left := meta.ExpiresAt.Sub(now).Round(time.Second)
	return RenderMuted("expires in " + left.String())
}

// RenderIssues renders configuration problems as a bulleted list.
func RenderIssues(issues []string) string {
	var b strings.Builder
	for _, issue := range issues {
		fmt.Fprintf(&b, "  %s %s\n", RenderWarnIcon(), issue)
	}
	return b.String()
}
