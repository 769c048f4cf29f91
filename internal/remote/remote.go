// Package remote declares the collaborator contracts the lasso core consumes.
// The work-tracking store's query and mutation APIs live behind these
// interfaces; the core never talks to the remote system directly. Each
// external system provides an adapter (see the azuredevops subpackage).
package remote

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/steveyegge/lasso/internal/types"
)

// QueryExecutor runs a query against the remote store and returns the
// ordered snapshot list that snapshot capture hands to the handle store.
// Any failure means "no handle issued"; there is no partial capture.
type QueryExecutor interface {
	// Run executes the query. The returned snapshots carry Index values
	// 0..n-1 in result order and are never mutated afterwards.
	Run(ctx context.Context, query string) ([]types.WorkItemSnapshot, error)
}

// ApplyResult reports a successful (or, on dry run, predicted) mutation.
type ApplyResult struct {
	// AppliedValue summarizes what was written, for the per-item report.
	AppliedValue string
}

// Mutator applies one action to one work item. One call per (item, action)
// pair. Implementations classify failures via *Error so the dispatcher
// knows what to retry; a plain error is treated as non-retryable.
type Mutator interface {
	Apply(ctx context.Context, itemID int, action types.BulkAction) (*ApplyResult, error)
}

// ContentGenerator produces content for enhance actions. Used once per item;
// the output feeds back through the normal mutation path as a field update.
type ContentGenerator interface {
	Generate(ctx context.Context, item types.WorkItemSnapshot, kind types.EnhanceKind, style types.EnhanceStyle) (string, error)
}

// Error is a classified failure from the remote store. Retryable failures
// (rate limits, timeouts, 5xx) are retried by the dispatcher with backoff;
// everything else is recorded immediately.
type Error struct {
	Status    int    // HTTP status when applicable, else 0
	Message   string
	Retryable bool
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("remote error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("remote error: %s", e.Message)
}

// NewError builds a classified error from an HTTP status code.
// 429 and 5xx are transient; everything else is permanent.
func NewError(status int, message string) *Error {
	return &Error{
		Status:    status,
		Message:   message,
		Retryable: status == 429 || status >= 500,
	}
}

// IsRetryable reports whether err should be retried. Classified remote
// errors carry the signal themselves; network timeouts are transient;
// context cancellation never retries.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var re *Error
	if errors.As(err, &re) {
		return re.Retryable
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// NopMutator is the dry-run stand-in: it performs no I/O and predicts
// success for every apply, echoing the value a real apply would report.
// Dry runs share the selection and validation path with real runs, so this
// is the only difference between the two modes.
type NopMutator struct{}

func (NopMutator) Apply(_ context.Context, _ int, action types.BulkAction) (*ApplyResult, error) {
	return &ApplyResult{AppliedValue: Summary(action)}, nil
}

// Summary renders the value an action writes, for result reporting. Real
// mutators and the dry-run stand-in both use it so previews and actual runs
// produce identical applied-value fields.
func Summary(action types.BulkAction) string {
	switch a := action.(type) {
	case types.CommentAction:
		return a.Text
	case types.FieldUpdateAction:
		if len(a.Ops) == 1 {
			return fmt.Sprintf("%s %s", a.Ops[0].Op, a.Ops[0].Path)
		}
		return fmt.Sprintf("%d patch ops", len(a.Ops))
	case types.AssignAction:
		return a.Assignee
	case types.RemoveAction:
		return "Removed: " + a.Reason
	case types.AddTagAction:
		return "+" + joinTags(a.Tags)
	case types.RemoveTagAction:
		return "-" + joinTags(a.Tags)
	case types.TransitionAction:
		return a.State
	case types.MoveIterationAction:
		return a.Path
	case types.ChangeTypeAction:
		return a.NewType
	case types.EnhanceAction:
		return string(a.EnhanceKind)
	default:
		return string(action.Kind())
	}
}

func joinTags(tags []string) string {
	out := ""
	for i, t := range tags {
		if i > 0 {
			out += ";"
		}
		out += t
	}
	return out
}
