package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/lasso/internal/bulk"
	"github.com/steveyegge/lasso/internal/handle"
	"github.com/steveyegge/lasso/internal/remote/testutil"
	"github.com/steveyegge/lasso/internal/selector"
	"github.com/steveyegge/lasso/internal/types"
)

type fixture struct {
	svc   *Service
	store *handle.Store
	mut   *testutil.StubMutator
	exec  *testutil.StubExecutor
}

func newFixture(t *testing.T, items int) *fixture {
	t.Helper()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := handle.NewStore(handle.Config{Logger: quiet})
	mut := &testutil.StubMutator{}
	exec := &testutil.StubExecutor{Snapshots: testutil.Snapshots(500, items, "Active")}
	dispatcher := bulk.NewDispatcher(mut, &testutil.StubGenerator{}, bulk.Config{
		MaxConcurrent: 2,
		RetryInterval: time.Millisecond,
		Logger:        quiet,
	})
	return &fixture{
		svc:   New(store, exec, dispatcher, Config{Logger: quiet}),
		store: store,
		mut:   mut,
		exec:  exec,
	}
}

func TestQueryThenSelectThenComment(t *testing.T) {
	f := newFixture(t, 5)

	token, count, err := f.svc.RunQuery(context.Background(), "SELECT [System.Id] FROM WorkItems WHERE [System.State] = 'Active'", -1)
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	selected, err := f.svc.ResolveSelection(token, types.SelectByIndex{Indices: []int{0, 1}})
	require.NoError(t, err)
	require.Len(t, selected, 2)

	results, err := f.svc.ExecuteBulk(context.Background(), BulkRequest{
		Token:    token,
		Selector: types.SelectByIndex{Indices: []int{0, 1}},
		Actions:  []types.BulkAction{types.CommentAction{Text: "hi"}},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 2, results[0].Selected)
	assert.Equal(t, 2, results[0].Succeeded)
	assert.Equal(t, 0, results[0].Failed)

	calls := f.mut.Calls()
	require.Len(t, calls, 2)
	assert.ElementsMatch(t, []int{500, 501}, []int{calls[0].ItemID, calls[1].ItemID})
}

func TestZeroTTLHandleIsDeadOnArrival(t *testing.T) {
	f := newFixture(t, 3)

	token, _, err := f.svc.RunQuery(context.Background(), "q", 0)
	require.NoError(t, err)

	_, err = f.svc.ResolveSelection(token, types.SelectAll{})
	require.ErrorIs(t, err, handle.ErrNotFound)
}

func TestExecuteBulkUnknownToken(t *testing.T) {
	f := newFixture(t, 3)

	results, err := f.svc.ExecuteBulk(context.Background(), BulkRequest{
		Token:    "qh-0000000000000000000000000",
		Selector: types.SelectAll{},
		Actions:  []types.BulkAction{types.CommentAction{Text: "x"}},
	})
	require.ErrorIs(t, err, handle.ErrNotFound)
	assert.Nil(t, results, "no partial result when the request is unaddressable")
	assert.Empty(t, f.mut.Calls())
}

func TestExecuteBulkInvalidSelector(t *testing.T) {
	f := newFixture(t, 3)

	token, _, err := f.svc.RunQuery(context.Background(), "q", -1)
	require.NoError(t, err)

	_, err = f.svc.ExecuteBulk(context.Background(), BulkRequest{
		Token:    token,
		Selector: types.SelectByIndex{Indices: []int{7}},
		Actions:  []types.BulkAction{types.CommentAction{Text: "x"}},
	})
	var selErr *selector.InvalidSelectorError
	require.ErrorAs(t, err, &selErr)
	assert.Empty(t, f.mut.Calls(), "selector failures abort before any mutation")
}

func TestResolveSelectionIsIdempotent(t *testing.T) {
	f := newFixture(t, 4)

	token, _, err := f.svc.RunQuery(context.Background(), "q", -1)
	require.NoError(t, err)

	sel := types.SelectByCriteria{States: []string{"Active"}}
	first, err := f.svc.ResolveSelection(token, sel)
	require.NoError(t, err)
	second, err := f.svc.ResolveSelection(token, sel)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestIssueHandleReindexesSnapshots(t *testing.T) {
	f := newFixture(t, 0)

	snaps := []types.WorkItemSnapshot{
		{ID: 9, Index: 42, State: "Active", Type: "Task"},
		{ID: 8, Index: 17, State: "New", Type: "Task"},
	}
	token, err := f.svc.IssueHandle(snaps, "handed in by caller", -1)
	require.NoError(t, err)

	got, err := f.svc.ResolveSelection(token, types.SelectAll{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].Index)
	assert.Equal(t, 1, got[1].Index)
	assert.Equal(t, 42, snaps[0].Index, "caller's slice stays untouched")
}

func TestInspectHandle(t *testing.T) {
	f := newFixture(t, 8)

	token, _, err := f.svc.RunQuery(context.Background(), "big query", -1)
	require.NoError(t, err)

	// Two selection reads before inspecting.
	_, err = f.svc.ResolveSelection(token, types.SelectAll{})
	require.NoError(t, err)
	_, err = f.svc.ResolveSelection(token, types.SelectAll{})
	require.NoError(t, err)

	insp, err := f.svc.InspectHandle(token)
	require.NoError(t, err)
	assert.Equal(t, token, insp.Token)
	assert.Equal(t, 8, insp.ItemCount)
	assert.Equal(t, "big query", insp.SourceQuery)
	assert.Len(t, insp.Sample, SampleSize)
	assert.Equal(t, 500, insp.Sample[0].ID)
	assert.Equal(t, int64(3), insp.AccessCount, "inspection itself counts as an access")
}

func TestListHandles(t *testing.T) {
	f := newFixture(t, 2)

	_, _, err := f.svc.RunQuery(context.Background(), "first", -1)
	require.NoError(t, err)
	_, _, err = f.svc.RunQuery(context.Background(), "second", 0)
	require.NoError(t, err)

	assert.Len(t, f.svc.ListHandles(false), 1)
	assert.Len(t, f.svc.ListHandles(true), 2)
}

func TestRunQueryFailureIssuesNothing(t *testing.T) {
	f := newFixture(t, 3)
	f.exec.Err = errors.New("remote store unavailable")

	_, _, err := f.svc.RunQuery(context.Background(), "q", -1)
	require.Error(t, err)
	assert.Equal(t, 0, f.store.Len(), "no handle on query failure")
}

func TestExecuteBulkDeadline(t *testing.T) {
	f := newFixture(t, 3)
	f.mut.Delay = 50 * time.Millisecond

	token, _, err := f.svc.RunQuery(context.Background(), "q", -1)
	require.NoError(t, err)

	results, err := f.svc.ExecuteBulk(context.Background(), BulkRequest{
		Token:    token,
		Selector: types.SelectAll{},
		Actions:  []types.BulkAction{types.CommentAction{Text: "slow"}},
		Deadline: 30 * time.Millisecond,
	})
	require.ErrorIs(t, err, bulk.ErrDeadlineExceeded)
	require.Len(t, results, 1, "partial results accompany the deadline signal")
	assert.Equal(t, 3, results[0].Selected)
}

func TestExecuteBulkDryRunShape(t *testing.T) {
	f := newFixture(t, 3)

	token, _, err := f.svc.RunQuery(context.Background(), "q", -1)
	require.NoError(t, err)

	req := BulkRequest{
		Token:    token,
		Selector: types.SelectAll{},
		Actions: []types.BulkAction{
			types.AddTagAction{Tags: []string{"stale"}},
			types.TransitionAction{State: "Closed"},
		},
		DryRun: true,
	}
	dry, err := f.svc.ExecuteBulk(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, f.mut.Calls())

	req.DryRun = false
	real, err := f.svc.ExecuteBulk(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, dry, len(real))
	for i := range dry {
		assert.Equal(t, real[i].Succeeded, dry[i].Succeeded)
		assert.Equal(t, real[i].Failed, dry[i].Failed)
		assert.Equal(t, real[i].Selected, dry[i].Selected)
	}
}
