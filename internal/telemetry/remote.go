package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/steveyegge/lasso/internal/remote"
	"github.com/steveyegge/lasso/internal/types"
)

// WrapMutator wraps a remote.Mutator with tracing and metrics. When
// telemetry is disabled it returns m unchanged, so callers can wrap
// unconditionally.
func WrapMutator(m remote.Mutator) remote.Mutator {
	if !Enabled() {
		return m
	}
	mutatorMetricsOnce.Do(initMutatorMetrics)
	return &instrumentedMutator{
		inner:  m,
		tracer: Tracer("github.com/steveyegge/lasso/remote"),
	}
}

type instrumentedMutator struct {
	inner  remote.Mutator
	tracer trace.Tracer
}

func (im *instrumentedMutator) Apply(ctx context.Context, itemID int, action types.BulkAction) (*remote.ApplyResult, error) {
	ctx, span := im.tracer.Start(ctx, "mutator.apply",
		trace.WithAttributes(
			attribute.Int("lasso.item_id", itemID),
			attribute.String("lasso.action", string(action.Kind())),
		))
	defer span.End()

	start := time.Now()
	res, err := im.inner.Apply(ctx, itemID, action)
	elapsed := time.Since(start)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	recordApply(ctx, action.Kind(), outcome, elapsed)
	return res, err
}

var (
	mutatorMetricsOnce sync.Once
	applyCounter       metric.Int64Counter
	applyDuration      metric.Float64Histogram
)

func initMutatorMetrics() {
	meter := Meter("github.com/steveyegge/lasso/remote")
	applyCounter, _ = meter.Int64Counter("lasso.mutator.applies",
		metric.WithDescription("Remote mutations attempted, by action and outcome"))
	applyDuration, _ = meter.Float64Histogram("lasso.mutator.duration",
		metric.WithDescription("Remote mutation latency"),
		metric.WithUnit("ms"))
}

func recordApply(ctx context.Context, kind types.ActionKind, outcome string, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("action", string(kind)),
		attribute.String("outcome", outcome),
	)
	if applyCounter != nil {
		applyCounter.Add(ctx, 1, attrs)
	}
	if applyDuration != nil {
		applyDuration.Record(ctx, float64(elapsed.Microseconds())/1000.0, attrs)
	}
}
