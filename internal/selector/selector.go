// Package selector resolves (snapshots, selector) into the ordered subset a
// bulk operation will touch. Resolution reads only captured snapshot data,
// performs no I/O, and is deterministic: dry-run preview and real execution
// share this exact path, so a preview always selects what execution will.
package selector

import (
	"fmt"
	"strings"

	"github.com/steveyegge/lasso/internal/types"
)

// InvalidSelectorError means the selector itself is unaddressable for this
// handle: a bad index or malformed criteria. Distinct from an empty criteria
// match, which is a valid zero-item result.
type InvalidSelectorError struct {
	Reason string
}

func (e *InvalidSelectorError) Error() string {
	return "invalid selector: " + e.Reason
}

func invalid(format string, args ...interface{}) error {
	return &InvalidSelectorError{Reason: fmt.Sprintf(format, args...)}
}

// Resolve returns the snapshots the selector picks, in selection order.
// Failures are fail-fast: an out-of-range index selects zero items rather
// than a partial set. A criteria scan that matches nothing returns an empty,
// non-nil slice and no error.
func Resolve(snapshots []types.WorkItemSnapshot, sel types.Selector) ([]types.WorkItemSnapshot, error) {
	if sel == nil {
		return nil, invalid("no selector given")
	}

	switch s := sel.(type) {
	case types.SelectAll:
		out := make([]types.WorkItemSnapshot, len(snapshots))
		copy(out, snapshots)
		return out, nil

	case types.SelectByIndex:
		return resolveByIndex(snapshots, s)

	case types.SelectByCriteria:
		return resolveByCriteria(snapshots, s)

	default:
		return nil, invalid("unsupported selector kind %q", sel.Kind())
	}
}

// resolveByIndex looks up each requested position. Duplicates are preserved
// and order follows the request, not the handle: [2,0,2] yields the items at
// index 2, 0, 2.
func resolveByIndex(snapshots []types.WorkItemSnapshot, s types.SelectByIndex) ([]types.WorkItemSnapshot, error) {
	if len(s.Indices) == 0 {
		return nil, invalid("index selector lists no indices")
	}
	for _, idx := range s.Indices {
		if idx < 0 || idx >= len(snapshots) {
			return nil, invalid("index %d out of range for handle with %d items", idx, len(snapshots))
		}
	}
	out := make([]types.WorkItemSnapshot, 0, len(s.Indices))
	for _, idx := range s.Indices {
		out = append(out, snapshots[idx])
	}
	return out, nil
}

func resolveByCriteria(snapshots []types.WorkItemSnapshot, c types.SelectByCriteria) ([]types.WorkItemSnapshot, error) {
	// An entirely empty criteria object is treated as malformed rather than
	// match-all. Agents that mean "everything" say so with the all selector;
	// a bare {} usually means the criteria got dropped somewhere upstream.
	if c.Empty() {
		return nil, invalid("criteria selector specifies no predicates (use the all selector to select everything)")
	}
	if c.DaysInactiveMin != nil && c.DaysInactiveMax != nil && *c.DaysInactiveMin > *c.DaysInactiveMax {
		return nil, invalid("days_inactive_min %d exceeds days_inactive_max %d",
			*c.DaysInactiveMin, *c.DaysInactiveMax)
	}

	out := make([]types.WorkItemSnapshot, 0)
	for i := range snapshots {
		if matchesCriteria(&snapshots[i], c) {
			out = append(out, snapshots[i])
		}
	}
	return out, nil
}

// matchesCriteria applies every specified predicate (AND semantics).
// Unspecified predicates match everything.
func matchesCriteria(snap *types.WorkItemSnapshot, c types.SelectByCriteria) bool {
	if len(c.States) > 0 && !stateIn(snap.State, c.States) {
		return false
	}
	// All listed tags must be present on the item.
	for _, tag := range c.Tags {
		if !snap.HasTag(tag) {
			return false
		}
	}
	if c.TitleContains != "" &&
		!strings.Contains(strings.ToLower(snap.Title), strings.ToLower(c.TitleContains)) {
		return false
	}
	// Numeric staleness bounds require the snapshot to carry the number at
	// all. Items the query executor couldn't derive it for never match.
	if c.DaysInactiveMin != nil {
		if snap.DaysInactive == nil || *snap.DaysInactive < *c.DaysInactiveMin {
			return false
		}
	}
	if c.DaysInactiveMax != nil {
		if snap.DaysInactive == nil || *snap.DaysInactive > *c.DaysInactiveMax {
			return false
		}
	}
	return true
}

func stateIn(state string, states []string) bool {
	for _, s := range states {
		if state == s {
			return true
		}
	}
	return false
}
