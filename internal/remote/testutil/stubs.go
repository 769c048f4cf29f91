// Package testutil provides stub collaborators for dispatcher and service
// tests. The stubs are deterministic and safe for concurrent use.
package testutil

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/steveyegge/lasso/internal/remote"
	"github.com/steveyegge/lasso/internal/types"
)

// ApplyCall records one Apply invocation.
type ApplyCall struct {
	ItemID int
	Action types.ActionKind
}

// StubMutator implements remote.Mutator with programmable behavior.
// The zero value succeeds on every call.
type StubMutator struct {
	mu    sync.Mutex
	calls []ApplyCall

	// FailOn maps item IDs to the error every Apply for that item returns.
	FailOn map[int]error

	// FailTimes makes the first N applies for an item fail with FailOn[id]
	// and later applies succeed, for retry-until-success tests. Zero (or a
	// missing entry) means fail every time the item is in FailOn.
	FailTimes map[int]int
	failCount map[int]int

	// Delay stalls every Apply, for deadline and concurrency tests.
	Delay time.Duration

	inflight    atomic.Int32
	maxInflight atomic.Int32
}

// Apply records the call and returns the programmed outcome.
func (m *StubMutator) Apply(ctx context.Context, itemID int, action types.BulkAction) (*remote.ApplyResult, error) {
	cur := m.inflight.Add(1)
	defer m.inflight.Add(-1)
	for {
		max := m.maxInflight.Load()
		if cur <= max || m.maxInflight.CompareAndSwap(max, cur) {
			break
		}
	}

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	m.calls = append(m.calls, ApplyCall{ItemID: itemID, Action: action.Kind()})
	var err error
	if failErr, ok := m.FailOn[itemID]; ok {
		limit, limited := m.FailTimes[itemID]
		if !limited {
			err = failErr
		} else {
			if m.failCount == nil {
				m.failCount = make(map[int]int)
			}
			if m.failCount[itemID] < limit {
				m.failCount[itemID]++
				err = failErr
			}
		}
	}
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return &remote.ApplyResult{AppliedValue: remote.Summary(action)}, nil
}

// Calls returns a copy of the recorded apply calls, in arrival order.
func (m *StubMutator) Calls() []ApplyCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ApplyCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many applies were attempted for the given item.
func (m *StubMutator) CallCount(itemID int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.ItemID == itemID {
			n++
		}
	}
	return n
}

// MaxInflight returns the high-water mark of concurrent Apply calls.
func (m *StubMutator) MaxInflight() int {
	return int(m.maxInflight.Load())
}

// StubExecutor implements remote.QueryExecutor with a fixed result.
type StubExecutor struct {
	Snapshots []types.WorkItemSnapshot
	Err       error

	mu      sync.Mutex
	queries []string
}

// Run returns the preset snapshots (re-indexed in result order) or Err.
func (e *StubExecutor) Run(_ context.Context, query string) ([]types.WorkItemSnapshot, error) {
	e.mu.Lock()
	e.queries = append(e.queries, query)
	e.mu.Unlock()

	if e.Err != nil {
		return nil, e.Err
	}
	out := make([]types.WorkItemSnapshot, len(e.Snapshots))
	copy(out, e.Snapshots)
	for i := range out {
		out[i].Index = i
	}
	return out, nil
}

// Queries returns the queries Run has seen.
func (e *StubExecutor) Queries() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.queries))
	copy(out, e.queries)
	return out
}

// StubGenerator implements remote.ContentGenerator with canned content.
type StubGenerator struct {
	Content string
	Err     error

	calls atomic.Int32
}

// Generate returns the canned content or error.
func (g *StubGenerator) Generate(_ context.Context, _ types.WorkItemSnapshot, kind types.EnhanceKind, _ types.EnhanceStyle) (string, error) {
	g.calls.Add(1)
	if g.Err != nil {
		return "", g.Err
	}
	if g.Content != "" {
		return g.Content, nil
	}
	return "generated " + string(kind), nil
}

// Calls returns how many times Generate ran.
func (g *StubGenerator) Calls() int { return int(g.calls.Load()) }

// Snapshots builds n snapshots with sequential IDs starting at firstID,
// all in the given state. Handy for table tests.
func Snapshots(firstID, n int, state string) []types.WorkItemSnapshot {
	out := make([]types.WorkItemSnapshot, n)
	for i := range out {
		out[i] = types.WorkItemSnapshot{
			ID:    firstID + i,
			Title: "Item " + string(rune('A'+i%26)),
			State: state,
			Type:  "Task",
			Index: i,
		}
	}
	return out
}
