package rpc

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/lasso"
	"github.com/steveyegge/lasso/internal/remote/testutil"
	"github.com/steveyegge/lasso/internal/types"
)

func newTestServer(t *testing.T, items int) (*Server, *testutil.StubMutator) {
	t.Helper()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	mut := &testutil.StubMutator{}
	exec := &testutil.StubExecutor{Snapshots: testutil.Snapshots(700, items, "Active")}
	svc := lasso.New(exec, mut, &testutil.StubGenerator{}, lasso.Options{
		HandleTTL: time.Hour,
		Logger:    quiet,
	})
	return NewServer(svc, ServerConfig{Version: "test", Logger: quiet}), mut
}

func do(t *testing.T, srv *Server, operation string, args interface{}) *Response {
	t.Helper()
	var raw json.RawMessage
	if args != nil {
		data, err := json.Marshal(args)
		require.NoError(t, err)
		raw = data
	}
	return srv.Handle(context.Background(), &Request{Operation: operation, Args: raw})
}

func decode(t *testing.T, resp *Response, out interface{}) {
	t.Helper()
	require.True(t, resp.Success, "expected success, got: %s", resp.Error)
	require.NoError(t, json.Unmarshal(resp.Data, out))
}

func runQuery(t *testing.T, srv *Server) string {
	t.Helper()
	var out RunQueryResult
	decode(t, do(t, srv, OpRunQuery, RunQueryArgs{Query: "SELECT [System.Id] FROM WorkItems"}), &out)
	return out.Token
}

func TestHandlePing(t *testing.T) {
	srv, _ := newTestServer(t, 0)

	var out PingResponse
	decode(t, do(t, srv, OpPing, nil), &out)
	assert.Equal(t, "pong", out.Message)
	assert.Equal(t, "test", out.Version)
}

func TestHandleUnknownOperation(t *testing.T) {
	srv, _ := newTestServer(t, 0)

	resp := do(t, srv, "transmogrify", nil)
	require.False(t, resp.Success)
	assert.Contains(t, resp.Error, "unknown operation")
}

func TestHandleRunQuery(t *testing.T) {
	srv, _ := newTestServer(t, 3)

	var out RunQueryResult
	decode(t, do(t, srv, OpRunQuery, RunQueryArgs{Query: "SELECT [System.Id] FROM WorkItems"}), &out)
	assert.True(t, strings.HasPrefix(out.Token, "qh-"), "token %q", out.Token)
	assert.Equal(t, 3, out.ItemCount)
}

func TestHandleRunQueryRequiresQuery(t *testing.T) {
	srv, _ := newTestServer(t, 3)

	resp := do(t, srv, OpRunQuery, RunQueryArgs{})
	require.False(t, resp.Success)
	assert.Contains(t, resp.Error, "query is required")
}

func TestHandleMalformedArgs(t *testing.T) {
	srv, _ := newTestServer(t, 3)

	resp := srv.Handle(context.Background(), &Request{
		Operation: OpRunQuery,
		Args:      json.RawMessage(`{"query": 42}`),
	})
	require.False(t, resp.Success)
	assert.Contains(t, resp.Error, "invalid arguments")
}

func TestHandleQueryResolveExecuteRoundTrip(t *testing.T) {
	srv, mut := newTestServer(t, 3)
	token := runQuery(t, srv)

	var sel ResolveSelectionResult
	decode(t, do(t, srv, OpResolveSelection, ResolveSelectionArgs{
		Token:    token,
		Selector: SelectorArg{Kind: "criteria", States: []string{"Active"}},
	}), &sel)
	require.Equal(t, 3, sel.Count)
	assert.Equal(t, 700, sel.Items[0].ID)

	var res ExecuteBulkResult
	decode(t, do(t, srv, OpExecuteBulk, ExecuteBulkArgs{
		Token:    token,
		Selector: SelectorArg{},
		Actions:  []ActionArg{{Kind: "comment", Text: "bulk hello"}},
	}), &res)
	require.Len(t, res.Results, 1)
	assert.Empty(t, res.Code)
	assert.Equal(t, 3, res.Results[0].Succeeded)
	assert.Len(t, mut.Calls(), 3)

	var ins InspectHandleResult
	decode(t, do(t, srv, OpInspectHandle, InspectHandleArgs{Token: token}), &ins)
	assert.Equal(t, token, ins.Token)
	assert.Equal(t, 3, ins.ItemCount)
	assert.Len(t, ins.Sample, 3)

	var list ListHandlesResult
	decode(t, do(t, srv, OpListHandles, nil), &list)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, token, list.Handles[0].Token)
}

func TestHandleIssueHandleStoresSnapshots(t *testing.T) {
	srv, _ := newTestServer(t, 0)

	var issued IssueHandleResult
	decode(t, do(t, srv, OpIssueHandle, IssueHandleArgs{
		Snapshots: []types.WorkItemSnapshot{
			{ID: 11, Title: "first", State: "Active", Type: "Task", Index: 9},
			{ID: 12, Title: "second", State: "New", Type: "Bug", Index: 4},
		},
		SourceQuery: "supplied by caller",
	}), &issued)
	assert.Equal(t, 2, issued.ItemCount)

	var sel ResolveSelectionResult
	decode(t, do(t, srv, OpResolveSelection, ResolveSelectionArgs{
		Token:    issued.Token,
		Selector: SelectorArg{Kind: "all"},
	}), &sel)
	require.Equal(t, 2, sel.Count)
	assert.Equal(t, 0, sel.Items[0].Index, "indexes rewritten to list position")
	assert.Equal(t, 1, sel.Items[1].Index)
}

func TestHandleUnknownTokenCode(t *testing.T) {
	srv, mut := newTestServer(t, 3)

	resp := do(t, srv, OpExecuteBulk, ExecuteBulkArgs{
		Token:   "qh-0000000000000000000000000",
		Actions: []ActionArg{{Kind: "comment", Text: "x"}},
	})
	require.False(t, resp.Success)
	assert.Equal(t, string(lasso.CodeHandleNotFound), resp.Code)
	assert.Empty(t, mut.Calls())
}

func TestHandleInvalidSelectorCode(t *testing.T) {
	srv, _ := newTestServer(t, 3)
	token := runQuery(t, srv)

	resp := do(t, srv, OpResolveSelection, ResolveSelectionArgs{
		Token:    token,
		Selector: SelectorArg{Kind: "vibes"},
	})
	require.False(t, resp.Success)
	assert.Equal(t, string(lasso.CodeInvalidSelector), resp.Code)
}

func TestHandleInvalidActionCode(t *testing.T) {
	srv, mut := newTestServer(t, 3)
	token := runQuery(t, srv)

	resp := do(t, srv, OpExecuteBulk, ExecuteBulkArgs{
		Token:   token,
		Actions: []ActionArg{{Kind: "comment"}},
	})
	require.False(t, resp.Success)
	assert.Equal(t, string(lasso.CodeActionValidation), resp.Code)
	assert.Empty(t, mut.Calls(), "validation failures reject before dispatch")
}

func TestHandleExecuteBulkRequiresActions(t *testing.T) {
	srv, _ := newTestServer(t, 3)
	token := runQuery(t, srv)

	resp := do(t, srv, OpExecuteBulk, ExecuteBulkArgs{Token: token})
	require.False(t, resp.Success)
	assert.Contains(t, resp.Error, "at least one action")
}

func TestHandleExecuteBulkDryRun(t *testing.T) {
	srv, mut := newTestServer(t, 3)
	token := runQuery(t, srv)

	var res ExecuteBulkResult
	decode(t, do(t, srv, OpExecuteBulk, ExecuteBulkArgs{
		Token:   token,
		Actions: []ActionArg{{Kind: "add_tag", Tags: []string{"stale"}}},
		DryRun:  true,
	}), &res)
	require.Len(t, res.Results, 1)
	assert.True(t, res.Results[0].DryRun)
	assert.Equal(t, 3, res.Results[0].Succeeded)
	assert.Empty(t, mut.Calls(), "dry run never touches the mutator")
}

func TestHandleExecuteBulkDeadlineReturnsPartial(t *testing.T) {
	srv, mut := newTestServer(t, 3)
	mut.Delay = 50 * time.Millisecond
	token := runQuery(t, srv)

	var res ExecuteBulkResult
	decode(t, do(t, srv, OpExecuteBulk, ExecuteBulkArgs{
		Token:      token,
		Actions:    []ActionArg{{Kind: "comment", Text: "slow"}},
		DeadlineMS: 30,
	}), &res)
	assert.Equal(t, string(lasso.CodeDeadlineExceeded), res.Code)
	assert.NotEmpty(t, res.Error)
	require.Len(t, res.Results, 1, "partial per-item outcomes survive the deadline")
	assert.Equal(t, 3, res.Results[0].Selected)
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t, 2)
	runQuery(t, srv)

	var out HealthResponse
	decode(t, do(t, srv, OpHealth, nil), &out)
	assert.Equal(t, "healthy", out.Status)
	assert.Equal(t, "test", out.Version)
	assert.Equal(t, 1, out.ActiveHandles)
}

func TestHandleMetricsAfterTraffic(t *testing.T) {
	srv, _ := newTestServer(t, 3)

	do(t, srv, OpPing, nil)
	do(t, srv, OpPing, nil)
	do(t, srv, OpRunQuery, RunQueryArgs{}) // fails: empty query

	var snap MetricsSnapshot
	decode(t, do(t, srv, OpMetrics, nil), &snap)

	byOp := make(map[string]OperationMetrics)
	for _, op := range snap.Operations {
		byOp[op.Operation] = op
	}
	assert.Equal(t, int64(2), byOp[OpPing].TotalCount)
	assert.Equal(t, int64(0), byOp[OpPing].ErrorCount)
	assert.Equal(t, int64(1), byOp[OpRunQuery].ErrorCount)
}

func TestTTLFromSeconds(t *testing.T) {
	assert.Equal(t, time.Duration(-1), ttlFromSeconds(0), "omitted means server default")
	assert.Equal(t, time.Duration(-1), ttlFromSeconds(-5))
	assert.Equal(t, 30*time.Second, ttlFromSeconds(30))
}
