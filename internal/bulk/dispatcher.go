// Package bulk applies ordered action lists to resolved item selections.
//
// The dispatcher owns the execution policy: strict action ordering, bounded
// per-item parallelism within an action, retry with exponential backoff on
// transient mutator failures, dry-run short-circuiting through a no-op
// mutator, and a stop-on-error abort cascade. Every selected item gets a
// result entry for every action, in selection order, however execution
// interleaved.
package bulk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/steveyegge/lasso/internal/action"
	"github.com/steveyegge/lasso/internal/remote"
	"github.com/steveyegge/lasso/internal/types"
)

const (
	// DefaultMaxConcurrent bounds in-flight mutator calls within one action.
	// Sized for remote rate limits, not local CPU.
	DefaultMaxConcurrent = 8

	// DefaultMaxAttempts is the total tries per (item, action) pair when the
	// mutator keeps signalling a transient failure.
	DefaultMaxAttempts = 3

	// defaultRetryInterval seeds the exponential backoff between attempts.
	defaultRetryInterval = 250 * time.Millisecond
)

// ErrDeadlineExceeded is returned alongside the partial result when the
// call's deadline expires mid-run. It wraps context.DeadlineExceeded so
// errors.Is works against either.
var ErrDeadlineExceeded = fmt.Errorf("bulk operation: %w", context.DeadlineExceeded)

// Config carries dispatcher tuning. Zero values pick defaults.
type Config struct {
	MaxConcurrent int
	MaxAttempts   int
	RetryInterval time.Duration
	Logger        *slog.Logger
}

// Dispatcher executes bulk actions against a remote mutator. Construct once
// and share; all state lives per-call.
type Dispatcher struct {
	mutator   remote.Mutator
	generator remote.ContentGenerator

	maxConcurrent int
	maxAttempts   int
	retryInterval time.Duration
	logger        *slog.Logger
}

// NewDispatcher builds a dispatcher over the given mutator and content
// generator. The generator may be nil when no enhance actions will run.
func NewDispatcher(mutator remote.Mutator, generator remote.ContentGenerator, cfg Config) *Dispatcher {
	d := &Dispatcher{
		mutator:       mutator,
		generator:     generator,
		maxConcurrent: cfg.MaxConcurrent,
		maxAttempts:   cfg.MaxAttempts,
		retryInterval: cfg.RetryInterval,
		logger:        cfg.Logger,
	}
	if d.maxConcurrent <= 0 {
		d.maxConcurrent = DefaultMaxConcurrent
	}
	if d.maxAttempts <= 0 {
		d.maxAttempts = DefaultMaxAttempts
	}
	if d.retryInterval <= 0 {
		d.retryInterval = defaultRetryInterval
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	bulkMetricsOnce.Do(initBulkMetrics)
	return d
}

// Request is one bulk call: a resolved selection and the ordered actions to
// apply to it.
type Request struct {
	Selection   []types.WorkItemSnapshot
	Actions     []types.BulkAction
	DryRun      bool
	StopOnError bool
}

// Execute applies every action to every selected item and returns one result
// per action, each holding one entry per item in selection order.
//
// Actions run strictly in order; items within an action run concurrently up
// to the configured ceiling. Per-item failures never abort the call; they
// land in the item's result entry. The two whole-call failure modes are a
// context deadline (partial results plus ErrDeadlineExceeded) and caller
// cancellation (partial results plus the context error). A dry run walks the
// identical selection and validation path against a no-op mutator, so its
// outcomes are the prediction of a real run.
func (d *Dispatcher) Execute(ctx context.Context, req Request) ([]types.BulkResult, error) {
	if len(req.Actions) == 0 {
		return nil, errors.New("bulk request lists no actions")
	}

	mutator := d.mutator
	if req.DryRun {
		mutator = remote.NopMutator{}
	}

	// Set once the stop-on-error cascade triggers. Items check it at
	// dispatch, so already-running items finish and report truthfully.
	var aborted atomic.Bool

	results := make([]types.BulkResult, 0, len(req.Actions))
	for _, act := range req.Actions {
		d.logger.Debug("bulk action start",
			"action", act.Kind(),
			"items", len(req.Selection),
			"dry_run", req.DryRun)

		res := d.runAction(ctx, act, req, mutator, &aborted)
		results = append(results, res)

		d.logger.Debug("bulk action done",
			"action", act.Kind(),
			"succeeded", res.Succeeded,
			"failed", res.Failed,
			"skipped", res.Skipped)
	}

	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return results, ErrDeadlineExceeded
		}
		return results, err
	}
	return results, nil
}

// runAction fans one action out over the selection. Result slots are indexed
// by selection position, so completion order never disturbs report order.
func (d *Dispatcher) runAction(ctx context.Context, act types.BulkAction, req Request, mutator remote.Mutator, aborted *atomic.Bool) types.BulkResult {
	res := types.BulkResult{
		Action: act.Kind(),
		DryRun: req.DryRun,
		Items:  make([]types.ItemResult, len(req.Selection)),
	}

	g := new(errgroup.Group)
	g.SetLimit(d.maxConcurrent)
	for i := range req.Selection {
		pos := i
		snap := req.Selection[i]
		g.Go(func() error {
			res.Items[pos] = d.applyOne(ctx, pos, &snap, act, req, mutator, aborted)
			return nil
		})
	}
	g.Wait()

	res.Recount()
	for i := range res.Items {
		recordItem(act.Kind(), res.Items[i].Outcome)
	}
	return res
}

// applyOne runs one (action, item) pair to a terminal outcome. Retries stay
// internal; callers only ever see Succeeded, Failed, or Skipped.
func (d *Dispatcher) applyOne(ctx context.Context, pos int, snap *types.WorkItemSnapshot, act types.BulkAction, req Request, mutator remote.Mutator, aborted *atomic.Bool) types.ItemResult {
	r := types.ItemResult{
		ID:     snap.ID,
		Index:  pos,
		Action: act.Kind(),
	}

	// Deadline first: once the clock runs out, the remainder is reported as
	// deadline-skipped even if an abort raced in at the same time.
	if ctx.Err() != nil {
		r.Outcome = types.OutcomeSkipped
		r.Reason = types.SkipReasonDeadline
		return r
	}
	if aborted.Load() {
		r.Outcome = types.OutcomeSkipped
		r.Reason = types.SkipReasonAborted
		return r
	}

	if err := action.ValidateForItem(act, snap); err != nil {
		if req.StopOnError {
			aborted.Store(true)
		}
		r.Outcome = types.OutcomeFailed
		r.Reason = err.Error()
		return r
	}

	// Enhance actions generate content first (also on dry runs, so the
	// preview shows the real proposal), then write it back through the same
	// mutation path as a field update.
	applyAct := act
	enhanced := ""
	if enh, ok := act.(types.EnhanceAction); ok {
		content, err := d.generate(ctx, snap, enh)
		if err != nil {
			if !isDeadlineErr(err) && req.StopOnError {
				aborted.Store(true)
			}
			r.Outcome = types.OutcomeFailed
			r.Reason = "content generation failed: " + err.Error()
			return r
		}
		enhanced = content
		applyAct = types.FieldUpdateAction{Ops: []types.PatchOperation{{
			Op:    "add",
			Path:  action.EnhanceFieldPath(enh.EnhanceKind),
			Value: content,
		}}}
	}

	applied, err := d.applyWithRetry(ctx, mutator, snap.ID, applyAct)
	if err != nil {
		r.Outcome = types.OutcomeFailed
		if isDeadlineErr(err) {
			// In-flight at expiry; outcome on the remote side is unknown.
			r.Reason = "deadline exceeded while applying"
			return r
		}
		if req.StopOnError {
			aborted.Store(true)
		}
		if remote.IsRetryable(err) {
			r.Reason = fmt.Sprintf("transient failure persisted after %d attempts: %v", d.maxAttempts, err)
		} else {
			r.Reason = err.Error()
		}
		return r
	}

	r.Outcome = types.OutcomeSucceeded
	if enhanced != "" {
		r.AppliedValue = enhanced
	} else if applied != nil {
		r.AppliedValue = applied.AppliedValue
	}
	return r
}

func (d *Dispatcher) generate(ctx context.Context, snap *types.WorkItemSnapshot, enh types.EnhanceAction) (string, error) {
	if d.generator == nil {
		return "", errors.New("no content generator configured")
	}
	return d.generator.Generate(ctx, *snap, enh.EnhanceKind, enh.Style)
}

// applyWithRetry calls the mutator with exponential backoff on transient
// failures, up to maxAttempts total tries. Non-retryable errors stop
// immediately via backoff.Permanent.
func (d *Dispatcher) applyWithRetry(ctx context.Context, mutator remote.Mutator, itemID int, act types.BulkAction) (*remote.ApplyResult, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.retryInterval
	b.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(d.maxAttempts-1)), ctx)

	var applied *remote.ApplyResult
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		res, err := mutator.Apply(ctx, itemID, act)
		if err == nil {
			applied = res
			return nil
		}
		if !remote.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		recordRetry(act.Kind())
		d.logger.Debug("retrying transient mutation failure",
			"item", itemID,
			"action", act.Kind(),
			"attempt", attempt,
			"error", err)
		return err
	}, policy)
	if err != nil {
		return nil, err
	}
	return applied, nil
}

func isDeadlineErr(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
