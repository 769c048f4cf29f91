// Package service exposes the tool surface callers use: run a query into a
// handle, resolve selections, execute bulk actions, inspect and list
// handles. One Service instance wires the handle store, selector resolver,
// and dispatcher together; the serve layer and the CLI both sit on top of
// it.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/steveyegge/lasso/internal/bulk"
	"github.com/steveyegge/lasso/internal/handle"
	"github.com/steveyegge/lasso/internal/remote"
	"github.com/steveyegge/lasso/internal/selector"
	"github.com/steveyegge/lasso/internal/types"
)

// SampleSize is how many leading snapshots InspectHandle returns.
const SampleSize = 5

// Service is the in-process tool surface. Construct with New; all fields are
// internally synchronized or immutable after construction.
type Service struct {
	store      *handle.Store
	executor   remote.QueryExecutor
	dispatcher *bulk.Dispatcher
	logger     *slog.Logger
}

// Config carries service construction options.
type Config struct {
	Logger *slog.Logger
}

// New wires a service over its collaborators. The executor may be nil when
// callers only issue handles from snapshots they already hold.
func New(store *handle.Store, executor remote.QueryExecutor, dispatcher *bulk.Dispatcher, cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:      store,
		executor:   executor,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// RunQuery executes a query against the remote store, captures the result as
// immutable snapshots, and issues a handle over them. Any executor failure
// means no handle is issued. ttl < 0 selects the store default; ttl == 0
// issues a handle that is expired on arrival.
func (s *Service) RunQuery(ctx context.Context, query string, ttl time.Duration) (string, int, error) {
	if s.executor == nil {
		return "", 0, fmt.Errorf("no query executor configured")
	}
	snapshots, err := s.executor.Run(ctx, query)
	if err != nil {
		return "", 0, fmt.Errorf("query failed: %w", err)
	}
	token, err := s.store.Issue(snapshots, query, ttl)
	if err != nil {
		return "", 0, err
	}
	s.logger.Debug("query captured", "token", token, "items", len(snapshots))
	return token, len(snapshots), nil
}

// IssueHandle stores caller-supplied snapshots under a fresh handle. Index
// fields are rewritten to match list position, since selection depends on
// them.
func (s *Service) IssueHandle(snapshots []types.WorkItemSnapshot, sourceQuery string, ttl time.Duration) (string, error) {
	indexed := make([]types.WorkItemSnapshot, len(snapshots))
	copy(indexed, snapshots)
	for i := range indexed {
		indexed[i].Index = i
	}
	return s.store.Issue(indexed, sourceQuery, ttl)
}

// ResolveSelection resolves a token and applies the selector, returning the
// selected snapshots in selection order. Fails with handle.ErrNotFound for
// unknown or expired tokens and *selector.InvalidSelectorError for
// unaddressable selectors; both mean the request never touched anything.
func (s *Service) ResolveSelection(token string, sel types.Selector) ([]types.WorkItemSnapshot, error) {
	h, err := s.store.Resolve(token)
	if err != nil {
		return nil, err
	}
	return selector.Resolve(h.Snapshots, sel)
}

// BulkRequest is one ExecuteBulk call.
type BulkRequest struct {
	Token       string
	Selector    types.Selector
	Actions     []types.BulkAction
	DryRun      bool
	StopOnError bool
	// Deadline bounds the whole call; zero means no bound beyond ctx.
	Deadline time.Duration
}

// ExecuteBulk resolves the request's handle and selector, then dispatches
// the actions over the selection. Handle and selector failures abort before
// any mutation; per-item failures come back inside the results. When the
// deadline expires mid-run the partial results are returned together with
// bulk.ErrDeadlineExceeded.
func (s *Service) ExecuteBulk(ctx context.Context, req BulkRequest) ([]types.BulkResult, error) {
	selection, err := s.ResolveSelection(req.Token, req.Selector)
	if err != nil {
		return nil, err
	}

	if req.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Deadline)
		defer cancel()
	}

	results, err := s.dispatcher.Execute(ctx, bulk.Request{
		Selection:   selection,
		Actions:     req.Actions,
		DryRun:      req.DryRun,
		StopOnError: req.StopOnError,
	})

	succeeded, failed, skipped := 0, 0, 0
	for i := range results {
		succeeded += results[i].Succeeded
		failed += results[i].Failed
		skipped += results[i].Skipped
	}
	s.logger.Info("bulk execution finished",
		"token", req.Token,
		"actions", len(req.Actions),
		"selected", len(selection),
		"succeeded", succeeded,
		"failed", failed,
		"skipped", skipped,
		"dry_run", req.DryRun)
	return results, err
}

// Inspection is the diagnostic view of one handle, with a bounded sample of
// its snapshots.
type Inspection struct {
	types.HandleMeta
	Sample []types.WorkItemSnapshot `json:"sample"`
}

// InspectHandle returns a handle's metadata plus its first few snapshots.
// Inspection reads snapshot contents, so it counts as an access.
func (s *Service) InspectHandle(token string) (*Inspection, error) {
	h, err := s.store.Resolve(token)
	if err != nil {
		return nil, err
	}
	sample := h.Snapshots
	if len(sample) > SampleSize {
		sample = sample[:SampleSize]
	}
	return &Inspection{
		HandleMeta: types.HandleMeta{
			Token:       h.Token,
			ItemCount:   len(h.Snapshots),
			SourceQuery: h.SourceQuery,
			CreatedAt:   h.CreatedAt,
			ExpiresAt:   h.ExpiresAt,
			AccessCount: h.AccessCount,
		},
		Sample: sample,
	}, nil
}

// ListHandles enumerates handle metadata, oldest first.
func (s *Service) ListHandles(includeExpired bool) []types.HandleMeta {
	return s.store.List(includeExpired)
}
