package azuredevops

import (
	"fmt"
	"strings"

	"github.com/steveyegge/lasso/internal/types"
)

// Work item field paths used by the action mapping.
const (
	fieldState      = "/fields/System.State"
	fieldReason     = "/fields/System.Reason"
	fieldTags       = "/fields/System.Tags"
	fieldIteration  = "/fields/System.IterationPath"
	fieldType       = "/fields/System.WorkItemType"
	fieldAssignedTo = "/fields/System.AssignedTo"
)

// removedState is the state items move to on a remove action; work items are
// never hard-deleted through the bulk path.
const removedState = "Removed"

// patchOps maps a patch-shaped action onto its JSON-patch operations.
// Comment and Remove take dedicated endpoints in the mutator; Enhance is
// resolved into a FieldUpdate by the dispatcher before it ever reaches
// here.
func patchOps(act types.BulkAction) ([]types.PatchOperation, error) {
	switch a := act.(type) {
	case types.FieldUpdateAction:
		return a.Ops, nil

	case types.AssignAction:
		return []types.PatchOperation{
			{Op: "add", Path: fieldAssignedTo, Value: a.Assignee},
		}, nil

	case types.AddTagAction:
		// Writing System.Tags merges the listed tags into the existing set;
		// removal is the only direction that needs the full remaining list.
		return []types.PatchOperation{
			{Op: "add", Path: fieldTags, Value: joinTags(a.Tags)},
		}, nil

	case types.TransitionAction:
		ops := []types.PatchOperation{
			{Op: "add", Path: fieldState, Value: a.State},
		}
		if a.Reason != "" {
			ops = append(ops, types.PatchOperation{Op: "add", Path: fieldReason, Value: a.Reason})
		}
		return ops, nil

	case types.MoveIterationAction:
		return []types.PatchOperation{
			{Op: "add", Path: fieldIteration, Value: a.Path},
		}, nil

	case types.ChangeTypeAction:
		return []types.PatchOperation{
			{Op: "add", Path: fieldType, Value: a.NewType},
		}, nil

	default:
		return nil, fmt.Errorf("action %s has no patch mapping", act.Kind())
	}
}

// joinTags renders a tag list in the remote's semicolon-separated format.
func joinTags(tags []string) string {
	return strings.Join(tags, "; ")
}
