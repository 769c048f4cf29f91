package handle

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/lasso/internal/types"
)

func quietStore(ttl time.Duration) *Store {
	return NewStore(Config{
		DefaultTTL: ttl,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func sampleSnapshots(n int) []types.WorkItemSnapshot {
	out := make([]types.WorkItemSnapshot, n)
	for i := range out {
		out[i] = types.WorkItemSnapshot{
			ID:    1000 + i,
			Title: fmt.Sprintf("Item %d", i),
			State: "Active",
			Type:  "Task",
			Index: i,
		}
	}
	return out
}

func TestIssueResolveRoundtrip(t *testing.T) {
	s := quietStore(time.Hour)
	snaps := sampleSnapshots(5)

	token, err := s.Issue(snaps, "SELECT [System.Id] FROM WorkItems", time.Hour)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(token, "qh-"), "token %q should carry the qh prefix", token)

	h, err := s.Resolve(token)
	require.NoError(t, err)
	assert.Equal(t, token, h.Token)
	assert.Equal(t, "SELECT [System.Id] FROM WorkItems", h.SourceQuery)
	require.Len(t, h.Snapshots, 5)
	for i, snap := range h.Snapshots {
		assert.Equal(t, 1000+i, snap.ID, "resolve must preserve query order")
		assert.Equal(t, i, snap.Index)
	}
	assert.Equal(t, time.Hour, h.ExpiresAt.Sub(h.CreatedAt))
}

func TestResolveUnknownToken(t *testing.T) {
	s := quietStore(time.Hour)

	_, err := s.Resolve("qh-0000000000000000000000000")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestZeroTTLExpiredOnArrival(t *testing.T) {
	s := quietStore(time.Hour)

	token, err := s.Issue(sampleSnapshots(1), "q", 0)
	require.NoError(t, err)

	// No sweep has run; expiry must be caught on the read path.
	_, err = s.Resolve(token)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, s.Len())
}

func TestNegativeTTLUsesStoreDefault(t *testing.T) {
	s := quietStore(42 * time.Minute)

	token, err := s.Issue(sampleSnapshots(1), "q", -1)
	require.NoError(t, err)

	h, err := s.Resolve(token)
	require.NoError(t, err)
	assert.Equal(t, 42*time.Minute, h.ExpiresAt.Sub(h.CreatedAt))
}

func TestExpiryCheckedOnRead(t *testing.T) {
	s := quietStore(time.Hour)

	token, err := s.Issue(sampleSnapshots(3), "q", 20*time.Millisecond)
	require.NoError(t, err)

	_, err = s.Resolve(token)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)

	_, err = s.Resolve(token)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSweepRemovesOnlyExpired(t *testing.T) {
	s := quietStore(time.Hour)

	_, err := s.Issue(sampleSnapshots(1), "short", 10*time.Millisecond)
	require.NoError(t, err)
	keep, err := s.Issue(sampleSnapshots(1), "long", time.Hour)
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)

	removed := s.Sweep()
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, s.Len())

	_, err = s.Resolve(keep)
	assert.NoError(t, err)

	assert.Equal(t, 0, s.Sweep(), "second sweep finds nothing")
}

func TestListMetadata(t *testing.T) {
	s := quietStore(time.Hour)

	first, err := s.Issue(sampleSnapshots(2), "first query", time.Hour)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	second, err := s.Issue(sampleSnapshots(7), "second query", time.Hour)
	require.NoError(t, err)

	metas := s.List(false)
	require.Len(t, metas, 2)
	assert.Equal(t, first, metas[0].Token, "list is oldest-first")
	assert.Equal(t, second, metas[1].Token)
	assert.Equal(t, 2, metas[0].ItemCount)
	assert.Equal(t, 7, metas[1].ItemCount)
	assert.Equal(t, "first query", metas[0].SourceQuery)
	assert.False(t, metas[0].Expired)
}

func TestListExpiredFilter(t *testing.T) {
	s := quietStore(time.Hour)

	_, err := s.Issue(sampleSnapshots(1), "dead", 0)
	require.NoError(t, err)
	_, err = s.Issue(sampleSnapshots(1), "live", time.Hour)
	require.NoError(t, err)

	assert.Len(t, s.List(false), 1)

	all := s.List(true)
	require.Len(t, all, 2)
	expiredSeen := 0
	for _, m := range all {
		if m.Expired {
			expiredSeen++
			assert.Equal(t, "dead", m.SourceQuery)
		}
	}
	assert.Equal(t, 1, expiredSeen)
}

func TestAccessCountIncrements(t *testing.T) {
	s := quietStore(time.Hour)

	token, err := s.Issue(sampleSnapshots(1), "q", time.Hour)
	require.NoError(t, err)

	for want := int64(1); want <= 3; want++ {
		h, err := s.Resolve(token)
		require.NoError(t, err)
		assert.Equal(t, want, h.AccessCount)
	}

	metas := s.List(false)
	require.Len(t, metas, 1)
	assert.Equal(t, int64(3), metas[0].AccessCount)
}

func TestResolveReturnsCopy(t *testing.T) {
	s := quietStore(time.Hour)

	token, err := s.Issue(sampleSnapshots(3), "q", time.Hour)
	require.NoError(t, err)

	h1, err := s.Resolve(token)
	require.NoError(t, err)
	h1.Snapshots[0].ID = -1
	h1.Snapshots = h1.Snapshots[:1]

	h2, err := s.Resolve(token)
	require.NoError(t, err)
	require.Len(t, h2.Snapshots, 3)
	assert.Equal(t, 1000, h2.Snapshots[0].ID)
}

func TestTokensAreUnique(t *testing.T) {
	s := quietStore(time.Hour)

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		token, err := s.Issue(sampleSnapshots(1), "q", time.Hour)
		require.NoError(t, err)
		require.False(t, seen[token], "duplicate token %q", token)
		seen[token] = true
	}
}

func TestConcurrentIssueResolveSweep(t *testing.T) {
	s := quietStore(time.Hour)

	var wg sync.WaitGroup
	tokens := make(chan string, 1000)

	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				token, err := s.Issue(sampleSnapshots(2), "q", time.Hour)
				if err != nil {
					t.Error(err)
					return
				}
				tokens <- token
			}
		}()
	}
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				select {
				case token := <-tokens:
					if _, err := s.Resolve(token); err != nil {
						t.Error(err)
						return
					}
				default:
				}
				s.Sweep()
			}
		}()
	}

	wg.Wait()
	assert.Equal(t, 400, s.Len())
}

func TestStartSweeperRemovesExpired(t *testing.T) {
	s := quietStore(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := s.Issue(sampleSnapshots(1), "q", 5*time.Millisecond)
	require.NoError(t, err)

	s.StartSweeper(ctx, 10*time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for s.Len() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, 0, s.Len(), "sweeper should have removed the expired handle")
}
