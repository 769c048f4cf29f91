package action

import (
	"fmt"
	"strings"

	"github.com/steveyegge/lasso/internal/types"
)

// ValidationError reports an action that cannot be applied, detected before
// any mutation attempt. The dispatcher records it as a per-item failure
// rather than aborting the call.
type ValidationError struct {
	Action types.ActionKind
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s action invalid: %s", e.Action, e.Reason)
}

func fail(kind types.ActionKind, format string, args ...interface{}) error {
	return &ValidationError{Action: kind, Reason: fmt.Sprintf(format, args...)}
}

// patchOps are the operations accepted in a field update, per RFC 6902.
var patchOps = map[string]bool{
	"add": true, "replace": true, "remove": true,
	"copy": true, "move": true, "test": true,
}

// Validate checks an action's own shape, independent of any item. Returns a
// *ValidationError describing the first problem found.
func Validate(a types.BulkAction) error {
	if a == nil {
		return &ValidationError{Reason: "no action given"}
	}

	switch act := a.(type) {
	case types.CommentAction:
		if strings.TrimSpace(act.Text) == "" {
			return fail(act.Kind(), "comment text is empty")
		}

	case types.FieldUpdateAction:
		if len(act.Ops) == 0 {
			return fail(act.Kind(), "no patch operations")
		}
		for i, op := range act.Ops {
			if !patchOps[op.Op] {
				return fail(act.Kind(), "op %d: unknown patch operation %q", i, op.Op)
			}
			if !strings.HasPrefix(op.Path, "/") {
				return fail(act.Kind(), "op %d: path %q must start with /", i, op.Path)
			}
			if (op.Op == "copy" || op.Op == "move") && op.From == "" {
				return fail(act.Kind(), "op %d: %s requires a from path", i, op.Op)
			}
		}

	case types.AssignAction:
		if strings.TrimSpace(act.Assignee) == "" {
			return fail(act.Kind(), "assignee is empty")
		}

	case types.RemoveAction:
		if strings.TrimSpace(act.Reason) == "" {
			return fail(act.Kind(), "removal reason is required")
		}

	case types.AddTagAction:
		return validateTags(act.Kind(), act.Tags)

	case types.RemoveTagAction:
		return validateTags(act.Kind(), act.Tags)

	case types.TransitionAction:
		if strings.TrimSpace(act.State) == "" {
			return fail(act.Kind(), "target state is empty")
		}

	case types.MoveIterationAction:
		if strings.TrimSpace(act.Path) == "" {
			return fail(act.Kind(), "iteration path is empty")
		}

	case types.ChangeTypeAction:
		if strings.TrimSpace(act.NewType) == "" {
			return fail(act.Kind(), "new type is empty")
		}

	case types.EnhanceAction:
		if _, err := types.ParseEnhanceKind(string(act.EnhanceKind)); err != nil {
			return fail(act.Kind(), "unknown enhance kind %q", act.EnhanceKind)
		}

	default:
		return fail(a.Kind(), "unsupported action kind")
	}
	return nil
}

func validateTags(kind types.ActionKind, tags []string) error {
	if len(tags) == 0 {
		return fail(kind, "no tags given")
	}
	for _, tag := range tags {
		if strings.TrimSpace(tag) == "" {
			return fail(kind, "empty tag")
		}
		// Tags are semicolon-delimited on the remote side; a tag carrying
		// the delimiter would silently split into several.
		if strings.Contains(tag, ";") {
			return fail(kind, "tag %q contains ';'", tag)
		}
	}
	return nil
}

// ValidateForItem checks an action against one item's snapshot: structural
// validation plus type/state checks that can be answered from captured data.
// Checks here are predictions; the remote store remains the final authority.
func ValidateForItem(a types.BulkAction, snap *types.WorkItemSnapshot) error {
	if err := Validate(a); err != nil {
		return err
	}

	switch act := a.(type) {
	case types.TransitionAction:
		if !stateAllowed(snap.Type, act.State) {
			return fail(act.Kind(), "state %q does not exist for type %q (valid: %s)",
				act.State, snap.Type, strings.Join(KnownStates(snap.Type), ", "))
		}

	case types.ChangeTypeAction:
		if act.NewType == snap.Type {
			return fail(act.Kind(), "item is already a %q", snap.Type)
		}

	case types.RemoveAction:
		if snap.State == "Removed" {
			return fail(act.Kind(), "item is already removed")
		}
	}
	return nil
}
