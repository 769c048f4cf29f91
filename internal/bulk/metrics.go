package bulk

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/steveyegge/lasso/internal/telemetry"
	"github.com/steveyegge/lasso/internal/types"
)

var (
	bulkMetricsOnce sync.Once
	itemCounter     metric.Int64Counter
	retryCounter    metric.Int64Counter
)

func initBulkMetrics() {
	meter := telemetry.Meter("github.com/steveyegge/lasso/bulk")
	itemCounter, _ = meter.Int64Counter("lasso.bulk.items",
		metric.WithDescription("Per-item bulk outcomes, by action and outcome"))
	retryCounter, _ = meter.Int64Counter("lasso.bulk.retries",
		metric.WithDescription("Transient-failure retries, by action"))
}

func recordItem(kind types.ActionKind, outcome types.Outcome) {
	if itemCounter == nil {
		return
	}
	itemCounter.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("action", string(kind)),
		attribute.String("outcome", string(outcome)),
	))
}

func recordRetry(kind types.ActionKind) {
	if retryCounter == nil {
		return
	}
	retryCounter.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("action", string(kind)),
	))
}
