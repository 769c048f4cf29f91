// Package action validates bulk actions, both structurally (is the action
// itself well-formed) and per item (does this mutation make sense for this
// item's type and state). The dispatcher runs the same validation on dry
// runs and real runs, so predicted failures match real ones.
package action

import "github.com/steveyegge/lasso/internal/types"

// stateCatalog lists the workflow states each built-in work item type
// accepts, per the default Agile process. Types not listed here (custom
// process types) skip state validation and let the remote store decide.
var stateCatalog = map[string][]string{
	"Bug":        {"New", "Active", "Resolved", "Closed"},
	"Task":       {"New", "Active", "Closed", "Removed"},
	"User Story": {"New", "Active", "Resolved", "Closed", "Removed"},
	"Feature":    {"New", "Active", "Resolved", "Closed", "Removed"},
	"Epic":       {"New", "Active", "Resolved", "Closed", "Removed"},
	"Issue":      {"Active", "Closed"},
}

// KnownStates returns the allowed states for a work item type, or nil when
// the type is not in the catalog.
func KnownStates(itemType string) []string {
	states, ok := stateCatalog[itemType]
	if !ok {
		return nil
	}
	out := make([]string, len(states))
	copy(out, states)
	return out
}

// stateAllowed reports whether the state is valid for the type. Unknown
// types allow everything; the remote store is the authority there.
func stateAllowed(itemType, state string) bool {
	states, ok := stateCatalog[itemType]
	if !ok {
		return true
	}
	for _, s := range states {
		if s == state {
			return true
		}
	}
	return false
}

// EnhanceFieldPath maps an enhance kind to the JSON-patch path its generated
// content is written to.
func EnhanceFieldPath(kind types.EnhanceKind) string {
	switch kind {
	case types.EnhanceCriteria:
		return "/fields/Microsoft.VSTS.Common.AcceptanceCriteria"
	case types.EnhanceEstimate:
		return "/fields/Microsoft.VSTS.Scheduling.StoryPoints"
	default:
		return "/fields/System.Description"
	}
}
