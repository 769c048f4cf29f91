package azuredevops

import (
	"context"
	"strings"

	"github.com/steveyegge/lasso/internal/remote"
	"github.com/steveyegge/lasso/internal/types"
)

// Mutator implements remote.Mutator over the REST client. One Apply call is
// one (item, action) mutation; retries belong to the dispatcher.
type Mutator struct {
	client *Client
}

// NewMutator wraps a client as a remote mutator.
func NewMutator(client *Client) *Mutator {
	return &Mutator{client: client}
}

// Apply performs one mutation. Comment and Remove use the comments surface;
// everything else maps to JSON-patch operations.
func (m *Mutator) Apply(ctx context.Context, itemID int, act types.BulkAction) (*remote.ApplyResult, error) {
	switch a := act.(type) {
	case types.CommentAction:
		if _, err := m.client.AddComment(ctx, itemID, a.Text); err != nil {
			return nil, err
		}

	case types.RemoveAction:
		// Reason lands in the discussion before the state moves, so the
		// audit trail survives even if a later revert changes the state.
		if _, err := m.client.AddComment(ctx, itemID, "Removed: "+a.Reason); err != nil {
			return nil, err
		}
		ops := []types.PatchOperation{{Op: "add", Path: fieldState, Value: removedState}}
		if _, err := m.client.UpdateWorkItem(ctx, itemID, ops); err != nil {
			return nil, err
		}

	case types.RemoveTagAction:
		if err := m.removeTags(ctx, itemID, a.Tags); err != nil {
			return nil, err
		}

	default:
		ops, err := patchOps(act)
		if err != nil {
			return nil, err
		}
		if _, err := m.client.UpdateWorkItem(ctx, itemID, ops); err != nil {
			return nil, err
		}
	}

	return &remote.ApplyResult{AppliedValue: remote.Summary(act)}, nil
}

// removeTags reads the item's live tags and writes back the remainder. Tag
// writes merge on the remote side, so stripping requires the full surviving
// list; the read is against live data, not the snapshot, since another actor
// may have tagged the item after capture.
func (m *Mutator) removeTags(ctx context.Context, itemID int, drop []string) error {
	wi, err := m.client.FetchWorkItem(ctx, itemID)
	if err != nil {
		return err
	}

	var keep []string
	for _, tag := range splitTags(wi.Fields.Tags) {
		if !tagIn(tag, drop) {
			keep = append(keep, tag)
		}
	}

	ops := []types.PatchOperation{{Op: "add", Path: fieldTags, Value: joinTags(keep)}}
	_, err = m.client.UpdateWorkItem(ctx, itemID, ops)
	return err
}

func tagIn(tag string, set []string) bool {
	for _, s := range set {
		if strings.EqualFold(tag, s) {
			return true
		}
	}
	return false
}
