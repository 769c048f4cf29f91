// Package handle implements the query-handle store: opaque, TTL-scoped
// snapshots of query results.
//
// A handle is the only way to name a set of work items for later bulk
// mutation. Agents never restate numeric IDs from their own context; they
// hold a token, and the token resolves to exactly the items the original
// query returned. Handles live in process memory only; a restart
// invalidates all of them and callers re-issue.
package handle

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/steveyegge/lasso/internal/idgen"
	"github.com/steveyegge/lasso/internal/types"
)

const (
	// DefaultTTL bounds how long a handle stays resolvable. Fixed at
	// issuance; there is no refresh-on-access.
	DefaultTTL = 1 * time.Hour

	// DefaultSweepInterval is how often the background sweeper removes
	// expired entries. Sweeping only bounds memory: Resolve checks expiry
	// itself, so correctness never depends on the sweeper having run.
	DefaultSweepInterval = 5 * time.Minute

	// tokenPrefix marks lasso query-handle tokens.
	tokenPrefix = "qh"
)

// ErrNotFound is returned for tokens that are unknown or expired. Callers
// cannot tell the two cases apart; the store logs the difference at debug
// level.
var ErrNotFound = errors.New("query handle not found or expired")

// Handle is the resolved view of a stored entry. The Snapshots slice is the
// caller's own copy; mutating it does not touch the store.
type Handle struct {
	Token       string
	Snapshots   []types.WorkItemSnapshot
	SourceQuery string
	CreatedAt   time.Time
	ExpiresAt   time.Time
	AccessCount int64
}

// entry is the stored form. Snapshots are immutable after Issue; only the
// access counter moves, and it moves atomically so Resolve can run under the
// read lock.
type entry struct {
	snapshots   []types.WorkItemSnapshot
	sourceQuery string
	createdAt   time.Time
	expiresAt   time.Time
	accessCount atomic.Int64
}

func (e *entry) expired(now time.Time) bool {
	// The boundary instant counts as expired, so a zero TTL is dead on
	// arrival no matter how fast the next Resolve lands.
	return !now.Before(e.expiresAt)
}

// Config carries store construction options. Zero values pick defaults.
type Config struct {
	DefaultTTL time.Duration
	Logger     *slog.Logger
}

// Store owns the token → snapshot-set mapping and enforces TTL. All methods
// are safe for concurrent use; the map is the only shared mutable state in
// the core and nothing else ever touches it directly.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry

	defaultTTL time.Duration
	logger     *slog.Logger
}

// NewStore creates an empty handle store. There is no package-level
// default store.
func NewStore(cfg Config) *Store {
	ttl := cfg.DefaultTTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	storeMetricsOnce.Do(initStoreMetrics)
	return &Store{
		entries:    make(map[string]*entry),
		defaultTTL: ttl,
		logger:     logger,
	}
}

// DefaultTTL returns the TTL used when Issue is called with a negative ttl.
func (s *Store) DefaultTTL() time.Duration { return s.defaultTTL }

// Issue stores the snapshot list under a fresh unguessable token and returns
// the token. Issuance is atomic: a single in-memory insert, no partial
// handles. ttl semantics: negative means "store default"; zero is a literal
// zero-lifetime handle (expired on arrival, useful for tests and for callers
// that want issue-side validation only).
func (s *Store) Issue(snapshots []types.WorkItemSnapshot, sourceQuery string, ttl time.Duration) (string, error) {
	if ttl < 0 {
		ttl = s.defaultTTL
	}

	token, err := idgen.RandomToken(tokenPrefix)
	if err != nil {
		return "", err
	}

	now := time.Now()
	e := &entry{
		snapshots:   snapshots,
		sourceQuery: sourceQuery,
		createdAt:   now,
		expiresAt:   now.Add(ttl),
	}

	s.mu.Lock()
	s.entries[token] = e
	live := len(s.entries)
	s.mu.Unlock()

	recordIssued(len(snapshots), live)
	s.logger.Debug("handle issued",
		"token", token,
		"items", len(snapshots),
		"ttl", ttl,
		"live_handles", live)
	return token, nil
}

// Resolve looks up a token and returns its handle. Unknown and expired
// tokens both fail with ErrNotFound; expiry is checked on every read,
// whether or not the sweeper has run. On success the handle's access
// counter is incremented (diagnostic only).
func (s *Store) Resolve(token string) (*Handle, error) {
	now := time.Now()

	s.mu.RLock()
	e, ok := s.entries[token]
	s.mu.RUnlock()

	if !ok {
		recordResolve(false)
		s.logger.Debug("handle resolve miss", "token", token, "reason", "unknown")
		return nil, ErrNotFound
	}
	if e.expired(now) {
		recordResolve(false)
		s.logger.Debug("handle resolve miss", "token", token, "reason", "expired",
			"expired_at", e.expiresAt)
		return nil, ErrNotFound
	}

	count := e.accessCount.Add(1)
	recordResolve(true)

	// Copy the snapshot slice so callers can't reorder or truncate the
	// stored list. The elements themselves are treated as immutable.
	snaps := make([]types.WorkItemSnapshot, len(e.snapshots))
	copy(snaps, e.snapshots)

	return &Handle{
		Token:       token,
		Snapshots:   snaps,
		SourceQuery: e.sourceQuery,
		CreatedAt:   e.createdAt,
		ExpiresAt:   e.expiresAt,
		AccessCount: count,
	}, nil
}

// Sweep removes every expired entry and returns how many were removed.
func (s *Store) Sweep() int {
	now := time.Now()

	s.mu.Lock()
	removed := 0
	for token, e := range s.entries {
		if e.expired(now) {
			delete(s.entries, token)
			removed++
		}
	}
	live := len(s.entries)
	s.mu.Unlock()

	if removed > 0 {
		recordSwept(removed, live)
		s.logger.Debug("handle sweep", "removed", removed, "live_handles", live)
	}
	return removed
}

// List enumerates handle metadata (never snapshot contents) for diagnostics.
// Expired-but-unswept entries are included only when includeExpired is set.
// Results are ordered oldest-first.
func (s *Store) List(includeExpired bool) []types.HandleMeta {
	now := time.Now()

	s.mu.RLock()
	metas := make([]types.HandleMeta, 0, len(s.entries))
	for token, e := range s.entries {
		expired := e.expired(now)
		if expired && !includeExpired {
			continue
		}
		metas = append(metas, types.HandleMeta{
			Token:       token,
			ItemCount:   len(e.snapshots),
			SourceQuery: e.sourceQuery,
			CreatedAt:   e.createdAt,
			ExpiresAt:   e.expiresAt,
			AccessCount: e.accessCount.Load(),
			Expired:     expired,
		})
	}
	s.mu.RUnlock()

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].CreatedAt.Before(metas[j].CreatedAt)
	})
	return metas
}

// Len returns the number of stored entries, expired or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// StartSweeper runs Sweep every interval until ctx is cancelled. Call it
// once from the owning process; short-lived CLI invocations skip it and rely
// on expiry-on-read alone.
func (s *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep()
			}
		}
	}()
}
