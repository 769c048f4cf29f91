// Package types defines core data structures for the lasso bulk-operation layer.
package types

import (
	"fmt"
	"strings"
	"time"
)

// WorkItemSnapshot is the point-in-time capture of one remote work item,
// taken when the originating query ran. Snapshots are never mutated after
// capture: selection criteria evaluate against these values, not live data,
// so an item that changed remotely after the query still selects by what the
// query saw. Callers are told this tradeoff explicitly (see Handle.SourceQuery
// for audit context).
type WorkItemSnapshot struct {
	ID           int      `json:"id"`
	Title        string   `json:"title"`
	State        string   `json:"state"`
	Type         string   `json:"type"`
	Tags         []string `json:"tags,omitempty"`
	AssignedTo   *string  `json:"assigned_to,omitempty"`
	DaysInactive *int     `json:"days_inactive,omitempty"` // Derived by the query executor at capture time
	Index        int      `json:"index"`                   // Position in the handle's ordered snapshot list
}

// HasTag reports whether the snapshot carries the given tag (case-insensitive,
// matching Azure DevOps tag semantics).
func (s *WorkItemSnapshot) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// SelectorKind tags the variant of an item selector.
type SelectorKind string

const (
	SelectorAll      SelectorKind = "all"
	SelectorIndex    SelectorKind = "index"
	SelectorCriteria SelectorKind = "criteria"
)

// Selector picks a subset of a handle's snapshots. Exactly three variants
// exist: SelectAll, SelectByIndex, SelectByCriteria. The sum type replaces
// the loose string-or-array-or-object shapes agents send on the wire; the
// rpc package owns that decoding.
type Selector interface {
	Kind() SelectorKind
	isSelector()
}

// SelectAll selects every snapshot in the handle, in index order.
type SelectAll struct{}

func (SelectAll) Kind() SelectorKind { return SelectorAll }
func (SelectAll) isSelector()        {}

// SelectByIndex selects snapshots by zero-based position. Order is preserved
// and duplicates are kept: [2,0,2] yields items at index 2, 0, 2.
type SelectByIndex struct {
	Indices []int `json:"indices"`
}

func (SelectByIndex) Kind() SelectorKind { return SelectorIndex }
func (SelectByIndex) isSelector()        {}

// SelectByCriteria selects snapshots matching every specified predicate
// (AND semantics). Nil/empty fields are unspecified and match everything.
type SelectByCriteria struct {
	States          []string `json:"states,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	TitleContains   string   `json:"title_contains,omitempty"`
	DaysInactiveMin *int     `json:"days_inactive_min,omitempty"`
	DaysInactiveMax *int     `json:"days_inactive_max,omitempty"`
}

func (SelectByCriteria) Kind() SelectorKind { return SelectorCriteria }
func (SelectByCriteria) isSelector()        {}

// Empty reports whether no predicate was specified at all.
func (c SelectByCriteria) Empty() bool {
	return len(c.States) == 0 && len(c.Tags) == 0 && c.TitleContains == "" &&
		c.DaysInactiveMin == nil && c.DaysInactiveMax == nil
}

// ActionKind tags the variant of a bulk action.
type ActionKind string

const (
	ActionComment     ActionKind = "comment"
	ActionFieldUpdate ActionKind = "field_update"
	ActionAssign      ActionKind = "assign"
	ActionRemove      ActionKind = "remove"
	ActionAddTag      ActionKind = "add_tag"
	ActionRemoveTag   ActionKind = "remove_tag"
	ActionTransition  ActionKind = "transition_state"
	ActionMove        ActionKind = "move_iteration"
	ActionChangeType  ActionKind = "change_type"
	ActionEnhance     ActionKind = "enhance_content"
)

// PatchOperation is one JSON-patch step applied to a work item
// (application/json-patch+json, the Azure DevOps update format).
type PatchOperation struct {
	Op    string      `json:"op"`
	Path  string      `json:"path"`
	Value interface{} `json:"value,omitempty"`
	From  string      `json:"from,omitempty"`
}

// BulkAction is one mutation applied to every selected item. Each variant
// carries only its own required fields; validation lives in internal/action.
type BulkAction interface {
	Kind() ActionKind
	isAction()
}

// CommentAction posts a discussion comment.
type CommentAction struct {
	Text string `json:"text"`
}

func (CommentAction) Kind() ActionKind { return ActionComment }
func (CommentAction) isAction()        {}

// FieldUpdateAction applies an ordered list of JSON-patch operations.
type FieldUpdateAction struct {
	Ops []PatchOperation `json:"ops"`
}

func (FieldUpdateAction) Kind() ActionKind { return ActionFieldUpdate }
func (FieldUpdateAction) isAction()        {}

// AssignAction sets the assignee.
type AssignAction struct {
	Assignee string `json:"assignee"`
}

func (AssignAction) Kind() ActionKind { return ActionAssign }
func (AssignAction) isAction()        {}

// RemoveAction moves the item to the Removed state. The reason is recorded
// in the item's discussion before the state change.
type RemoveAction struct {
	Reason string `json:"reason"`
}

func (RemoveAction) Kind() ActionKind { return ActionRemove }
func (RemoveAction) isAction()        {}

// AddTagAction appends tags, preserving existing ones.
type AddTagAction struct {
	Tags []string `json:"tags"`
}

func (AddTagAction) Kind() ActionKind { return ActionAddTag }
func (AddTagAction) isAction()        {}

// RemoveTagAction strips tags; tags the item doesn't carry are ignored.
type RemoveTagAction struct {
	Tags []string `json:"tags"`
}

func (RemoveTagAction) Kind() ActionKind { return ActionRemoveTag }
func (RemoveTagAction) isAction()        {}

// TransitionAction changes the work item state.
type TransitionAction struct {
	State  string `json:"state"`
	Reason string `json:"reason,omitempty"`
}

func (TransitionAction) Kind() ActionKind { return ActionTransition }
func (TransitionAction) isAction()        {}

// MoveIterationAction reassigns the item to another iteration path.
type MoveIterationAction struct {
	Path string `json:"path"`
}

func (MoveIterationAction) Kind() ActionKind { return ActionMove }
func (MoveIterationAction) isAction()        {}

// ChangeTypeAction converts the item to another work item type.
type ChangeTypeAction struct {
	NewType string `json:"new_type"`
}

func (ChangeTypeAction) Kind() ActionKind { return ActionChangeType }
func (ChangeTypeAction) isAction()        {}

// EnhanceKind selects what an EnhanceAction generates.
type EnhanceKind string

const (
	EnhanceDescription EnhanceKind = "description"
	EnhanceCriteria    EnhanceKind = "acceptance_criteria"
	EnhanceEstimate    EnhanceKind = "estimate"
)

// EnhanceStyle carries generation parameters for an EnhanceAction.
type EnhanceStyle struct {
	// Format hints the output shape, per kind: "concise"/"detailed" for
	// descriptions, "gherkin"/"checklist" for criteria, "fibonacci"/"hours"
	// for estimates. Empty picks the generator default.
	Format string `json:"format,omitempty"`
	// Notes is free-form caller guidance appended to the prompt.
	Notes string `json:"notes,omitempty"`
}

// EnhanceAction generates content for the item via the content generator and
// writes it back through the same per-item mutation path as a field update.
type EnhanceAction struct {
	EnhanceKind EnhanceKind  `json:"kind"`
	Style       EnhanceStyle `json:"style,omitempty"`
}

func (EnhanceAction) Kind() ActionKind { return ActionEnhance }
func (EnhanceAction) isAction()        {}

// Outcome is the terminal state of one (action, item) pair.
// Pending → Applying → {Succeeded | Failed | Skipped}; retries stay inside
// Applying and are never visible here.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"
)

// Skip reasons reported in ItemResult.Reason. These strings are contract:
// callers branch on them to distinguish abort-cascades from deadline cuts.
const (
	SkipReasonAborted  = "aborted after earlier failure"
	SkipReasonDeadline = "deadline exceeded"
)

// ItemResult reports the outcome of one action applied to one item.
type ItemResult struct {
	ID           int        `json:"id"`
	Index        int        `json:"index"` // Position within the selection, not the handle
	Action       ActionKind `json:"action"`
	Outcome      Outcome    `json:"outcome"`
	Reason       string     `json:"reason,omitempty"`        // Failure or skip explanation
	AppliedValue string     `json:"applied_value,omitempty"` // What was written (or would be, on dry run)
}

// BulkResult reports one action applied across the whole selection, in
// selection order regardless of completion order.
type BulkResult struct {
	Action    ActionKind   `json:"action"`
	DryRun    bool         `json:"dry_run,omitempty"`
	Items     []ItemResult `json:"items"`
	Selected  int          `json:"selected_count"`
	Succeeded int          `json:"succeeded_count"`
	Failed    int          `json:"failed_count"`
	Skipped   int          `json:"skipped_count"`
}

// Recount recomputes the aggregate tallies from Items. Called by the
// dispatcher after the last item result lands.
func (r *BulkResult) Recount() {
	r.Selected = len(r.Items)
	r.Succeeded, r.Failed, r.Skipped = 0, 0, 0
	for i := range r.Items {
		switch r.Items[i].Outcome {
		case OutcomeSucceeded:
			r.Succeeded++
		case OutcomeFailed:
			r.Failed++
		case OutcomeSkipped:
			r.Skipped++
		}
	}
}

// AllSucceeded reports whether every item in every result succeeded.
func AllSucceeded(results []BulkResult) bool {
	for i := range results {
		if results[i].Failed > 0 || results[i].Skipped > 0 {
			return false
		}
	}
	return true
}

// HandleMeta is the diagnostic view of a stored query handle. It never
// includes snapshot contents; InspectHandle adds a bounded sample separately.
type HandleMeta struct {
	Token       string    `json:"token"`
	ItemCount   int       `json:"item_count"`
	SourceQuery string    `json:"source_query,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	AccessCount int64     `json:"access_count"`
	Expired     bool      `json:"expired,omitempty"`
}

// ParseActionKind validates a wire-level action kind string.
func ParseActionKind(s string) (ActionKind, error) {
	switch k := ActionKind(s); k {
	case ActionComment, ActionFieldUpdate, ActionAssign, ActionRemove,
		ActionAddTag, ActionRemoveTag, ActionTransition, ActionMove,
		ActionChangeType, ActionEnhance:
		return k, nil
	}
	return "", fmt.Errorf("unknown action kind %q", s)
}

// ParseEnhanceKind validates a wire-level enhance kind string.
func ParseEnhanceKind(s string) (EnhanceKind, error) {
	switch k := EnhanceKind(s); k {
	case EnhanceDescription, EnhanceCriteria, EnhanceEstimate:
		return k, nil
	}
	return "", fmt.Errorf("unknown enhance kind %q", s)
}
