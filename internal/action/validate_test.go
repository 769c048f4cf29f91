package action

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/lasso/internal/types"
)

func TestValidateAcceptsWellFormedActions(t *testing.T) {
	actions := []types.BulkAction{
		types.CommentAction{Text: "triaged in bulk"},
		types.FieldUpdateAction{Ops: []types.PatchOperation{
			{Op: "replace", Path: "/fields/System.Title", Value: "New title"},
		}},
		types.AssignAction{Assignee: "dana@example.com"},
		types.RemoveAction{Reason: "duplicate of 101"},
		types.AddTagAction{Tags: []string{"stale", "triage"}},
		types.RemoveTagAction{Tags: []string{"triage"}},
		types.TransitionAction{State: "Closed"},
		types.MoveIterationAction{Path: `Project\Sprint 12`},
		types.ChangeTypeAction{NewType: "Task"},
		types.EnhanceAction{EnhanceKind: types.EnhanceDescription},
	}
	for _, a := range actions {
		assert.NoError(t, Validate(a), "action %s", a.Kind())
	}
}

func TestValidateRejectsMalformedActions(t *testing.T) {
	tests := []struct {
		name   string
		action types.BulkAction
	}{
		{"empty comment", types.CommentAction{}},
		{"whitespace comment", types.CommentAction{Text: "   "}},
		{"no patch ops", types.FieldUpdateAction{}},
		{"unknown patch op", types.FieldUpdateAction{Ops: []types.PatchOperation{
			{Op: "merge", Path: "/fields/System.Title"},
		}}},
		{"relative patch path", types.FieldUpdateAction{Ops: []types.PatchOperation{
			{Op: "add", Path: "fields/System.Title", Value: "x"},
		}}},
		{"move without from", types.FieldUpdateAction{Ops: []types.PatchOperation{
			{Op: "move", Path: "/fields/System.Title"},
		}}},
		{"empty assignee", types.AssignAction{}},
		{"remove without reason", types.RemoveAction{}},
		{"no tags", types.AddTagAction{}},
		{"blank tag", types.AddTagAction{Tags: []string{"ok", " "}}},
		{"tag with delimiter", types.AddTagAction{Tags: []string{"a;b"}}},
		{"empty target state", types.TransitionAction{}},
		{"empty iteration path", types.MoveIterationAction{}},
		{"empty new type", types.ChangeTypeAction{}},
		{"unknown enhance kind", types.EnhanceAction{EnhanceKind: "summary"}},
		{"nil action", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.action)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
		})
	}
}

func TestValidateForItemStateCatalog(t *testing.T) {
	bug := types.WorkItemSnapshot{ID: 1, Type: "Bug", State: "Active"}
	task := types.WorkItemSnapshot{ID: 2, Type: "Task", State: "New"}

	assert.NoError(t, ValidateForItem(types.TransitionAction{State: "Resolved"}, &bug))

	// Resolved is not a Task state in the default process.
	err := ValidateForItem(types.TransitionAction{State: "Resolved"}, &task)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Reason, "Resolved")
	assert.Contains(t, vErr.Reason, "Task")
}

func TestValidateForItemUnknownTypeSkipsStateCheck(t *testing.T) {
	custom := types.WorkItemSnapshot{ID: 3, Type: "Impediment", State: "Open"}
	assert.NoError(t, ValidateForItem(types.TransitionAction{State: "Wherever"}, &custom))
}

func TestValidateForItemChangeTypeNoOp(t *testing.T) {
	task := types.WorkItemSnapshot{ID: 2, Type: "Task", State: "New"}

	err := ValidateForItem(types.ChangeTypeAction{NewType: "Task"}, &task)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)

	assert.NoError(t, ValidateForItem(types.ChangeTypeAction{NewType: "Bug"}, &task))
}

func TestValidateForItemRemoveAlreadyRemoved(t *testing.T) {
	gone := types.WorkItemSnapshot{ID: 4, Type: "Task", State: "Removed"}

	err := ValidateForItem(types.RemoveAction{Reason: "stale"}, &gone)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestValidateForItemRunsStructuralChecksFirst(t *testing.T) {
	bug := types.WorkItemSnapshot{ID: 1, Type: "Bug", State: "Active"}

	err := ValidateForItem(types.CommentAction{}, &bug)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestKnownStatesReturnsCopy(t *testing.T) {
	states := KnownStates("Bug")
	require.NotEmpty(t, states)
	states[0] = "Mangled"
	assert.Equal(t, "New", KnownStates("Bug")[0])

	assert.Nil(t, KnownStates("Impediment"))
}
