// Package rpc defines the serve-mode wire surface: a JSON request/response
// protocol over HTTP that exposes the tool operations to out-of-process
// callers. The package owns the loose wire shapes (SelectorArg, ActionArg)
// and their decoding into the typed selector and action variants; everything
// past the decode boundary works with internal/types values only.
package rpc

import (
	"encoding/json"
	"fmt"

	"github.com/steveyegge/lasso/internal/action"
	"github.com/steveyegge/lasso/internal/selector"
	"github.com/steveyegge/lasso/internal/types"
)

// Operation constants for the serve surface.
const (
	OpPing             = "ping"
	OpHealth           = "health"
	OpMetrics          = "metrics"
	OpRunQuery         = "run_query"
	OpIssueHandle      = "issue_handle"
	OpResolveSelection = "resolve_selection"
	OpExecuteBulk      = "execute_bulk"
	OpInspectHandle    = "inspect_handle"
	OpListHandles      = "list_handles"
)

// ClientVersion is reported in request headers for server-side logging.
// Overridden at startup by the CLI with its build version.
var ClientVersion = "dev"

// Request is one RPC request from client to server.
type Request struct {
	Operation     string          `json:"operation"`
	Args          json.RawMessage `json:"args,omitempty"`
	Actor         string          `json:"actor,omitempty"`
	RequestID     string          `json:"request_id,omitempty"`
	ClientVersion string          `json:"client_version,omitempty"`
}

// Response is one RPC response from server to client. Code carries the
// error taxonomy value on failure so callers can branch without parsing
// message text.
type Response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Code    string          `json:"code,omitempty"`
}

// RunQueryArgs are the arguments for the run_query operation.
type RunQueryArgs struct {
	// Query is the WIQL text executed against the remote store.
	Query string `json:"query"`
	// TTLSeconds bounds the issued handle's lifetime. Non-positive or
	// omitted picks the server default.
	TTLSeconds int `json:"ttl_seconds,omitempty"`
}

// RunQueryResult is the result of a run_query operation.
type RunQueryResult struct {
	Token     string `json:"token"`
	ItemCount int    `json:"item_count"`
}

// IssueHandleArgs are the arguments for the issue_handle operation, which
// stores caller-supplied snapshots without touching the remote store.
type IssueHandleArgs struct {
	Snapshots   []types.WorkItemSnapshot `json:"snapshots"`
	SourceQuery string                   `json:"source_query,omitempty"`
	TTLSeconds  int                      `json:"ttl_seconds,omitempty"`
}

// IssueHandleResult is the result of an issue_handle operation.
type IssueHandleResult struct {
	Token     string `json:"token"`
	ItemCount int    `json:"item_count"`
}

// ResolveSelectionArgs are the arguments for the resolve_selection operation.
type ResolveSelectionArgs struct {
	Token    string      `json:"token"`
	Selector SelectorArg `json:"selector"`
}

// ResolveSelectionResult is the result of a resolve_selection operation.
// Items come back in selection order.
type ResolveSelectionResult struct {
	Items []types.WorkItemSnapshot `json:"items"`
	Count int                      `json:"count"`
}

// ExecuteBulkArgs are the arguments for the execute_bulk operation.
type ExecuteBulkArgs struct {
	Token       string      `json:"token"`
	Selector    SelectorArg `json:"selector"`
	Actions     []ActionArg `json:"actions"`
	DryRun      bool        `json:"dry_run,omitempty"`
	StopOnError bool        `json:"stop_on_error,omitempty"`
	// DeadlineMS bounds the whole call in milliseconds; zero means no bound
	// beyond the transport timeout.
	DeadlineMS int `json:"deadline_ms,omitempty"`
}

// ExecuteBulkResult is the result of an execute_bulk operation. Code and
// Error are set when the call terminated abnormally after partial progress
// (deadline expiry); the per-item outcomes inside Results are authoritative
// either way.
type ExecuteBulkResult struct {
	Results []types.BulkResult `json:"results"`
	Code    string             `json:"code,omitempty"`
	Error   string             `json:"error,omitempty"`
}

// InspectHandleArgs are the arguments for the inspect_handle operation.
type InspectHandleArgs struct {
	Token string `json:"token"`
}

// InspectHandleResult is the result of an inspect_handle operation.
type InspectHandleResult struct {
	types.HandleMeta
	Sample []types.WorkItemSnapshot `json:"sample"`
}

// ListHandlesArgs are the arguments for the list_handles operation.
type ListHandlesArgs struct {
	IncludeExpired bool `json:"include_expired,omitempty"`
}

// ListHandlesResult is the result of a list_handles operation.
type ListHandlesResult struct {
	Handles []types.HandleMeta `json:"handles"`
	Count   int                `json:"count"`
}

// PingResponse is the response for a ping operation.
type PingResponse struct {
	Message string `json:"message"`
	Version string `json:"version"`
}

// HealthResponse is the response for a health check operation.
type HealthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	Uptime        float64 `json:"uptime_seconds"`
	ActiveHandles int     `json:"active_handles"`
	MemoryAllocMB uint64  `json:"memory_alloc_mb"`
	Error         string  `json:"error,omitempty"`
}

// SelectorArg is the wire form of a selector. Kind picks the variant and
// only the matching fields are read; an empty kind means select all, so a
// caller that omits the selector entirely addresses the whole handle.
type SelectorArg struct {
	Kind string `json:"kind,omitempty"`

	Indices []int `json:"indices,omitempty"`

	States          []string `json:"states,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	TitleContains   string   `json:"title_contains,omitempty"`
	DaysInactiveMin *int     `json:"days_inactive_min,omitempty"`
	DaysInactiveMax *int     `json:"days_inactive_max,omitempty"`
}

// Decode converts the wire selector into its typed variant. Unknown kinds
// fail with *selector.InvalidSelectorError so the request maps to the
// invalid_selector code without touching the handle.
func (a SelectorArg) Decode() (types.Selector, error) {
	switch types.SelectorKind(a.Kind) {
	case types.SelectorAll, "":
		return types.SelectAll{}, nil
	case types.SelectorIndex:
		return types.SelectByIndex{Indices: a.Indices}, nil
	case types.SelectorCriteria:
		return types.SelectByCriteria{
			States:          a.States,
			Tags:            a.Tags,
			TitleContains:   a.TitleContains,
			DaysInactiveMin: a.DaysInactiveMin,
			DaysInactiveMax: a.DaysInactiveMax,
		}, nil
	default:
		return nil, &selector.InvalidSelectorError{Reason: fmt.Sprintf("unknown kind %q", a.Kind)}
	}
}

// ActionArg is the wire form of one bulk action. Kind picks the variant and
// only the matching fields are read.
type ActionArg struct {
	Kind string `json:"kind"`

	Text          string                 `json:"text,omitempty"`
	Ops           []types.PatchOperation `json:"ops,omitempty"`
	Assignee      string                 `json:"assignee,omitempty"`
	Reason        string                 `json:"reason,omitempty"`
	Tags          []string               `json:"tags,omitempty"`
	State         string                 `json:"state,omitempty"`
	IterationPath string                 `json:"iteration_path,omitempty"`
	NewType       string                 `json:"new_type,omitempty"`

	// Enhance options.
	Enhance string `json:"enhance,omitempty"` // description, acceptance_criteria, estimate
	Format  string `json:"format,omitempty"`
	Notes   string `json:"notes,omitempty"`
}

// Decode converts the wire action into its typed variant and validates it
// structurally. All failures are *action.ValidationError, so a malformed
// action rejects the whole request before anything is dispatched.
func (a ActionArg) Decode() (types.BulkAction, error) {
	kind, err := types.ParseActionKind(a.Kind)
	if err != nil {
		return nil, &action.ValidationError{Action: types.ActionKind(a.Kind), Reason: "unknown kind"}
	}

	var act types.BulkAction
	switch kind {
	case types.ActionComment:
		act = types.CommentAction{Text: a.Text}
	case types.ActionFieldUpdate:
		act = types.FieldUpdateAction{Ops: a.Ops}
	case types.ActionAssign:
		act = types.AssignAction{Assignee: a.Assignee}
	case types.ActionRemove:
		act = types.RemoveAction{Reason: a.Reason}
	case types.ActionAddTag:
		act = types.AddTagAction{Tags: a.Tags}
	case types.ActionRemoveTag:
		act = types.RemoveTagAction{Tags: a.Tags}
	case types.ActionTransition:
		act = types.TransitionAction{State: a.State, Reason: a.Reason}
	case types.ActionMove:
		act = types.MoveIterationAction{Path: a.IterationPath}
	case types.ActionChangeType:
		act = types.ChangeTypeAction{NewType: a.NewType}
	case types.ActionEnhance:
		enhKind, err := types.ParseEnhanceKind(a.Enhance)
		if err != nil {
			return nil, &action.ValidationError{Action: kind, Reason: err.Error()}
		}
		act = types.EnhanceAction{
			EnhanceKind: enhKind,
			Style:       types.EnhanceStyle{Format: a.Format, Notes: a.Notes},
		}
	}

	if err := action.Validate(act); err != nil {
		return nil, err
	}
	return act, nil
}

// DecodeActions decodes a wire action list, failing on the first invalid
// entry with its position.
func DecodeActions(args []ActionArg) ([]types.BulkAction, error) {
	actions := make([]types.BulkAction, len(args))
	for i, arg := range args {
		act, err := arg.Decode()
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
		actions[i] = act
	}
	return actions, nil
}
