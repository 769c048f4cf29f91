package handle

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/steveyegge/lasso/internal/telemetry"
)

// storeMetrics holds lazily-initialized OTel instruments for the handle
// store. All instruments are no-ops unless telemetry is enabled.
var storeMetrics struct {
	issued   metric.Int64Counter
	resolves metric.Int64Counter
	swept    metric.Int64Counter
	items    metric.Int64Histogram
	live     metric.Int64Gauge
}

var storeMetricsOnce sync.Once

func initStoreMetrics() {
	m := telemetry.Meter("github.com/steveyegge/lasso/handle")
	storeMetrics.issued, _ = m.Int64Counter("lasso.handle.issued",
		metric.WithDescription("Query handles issued"),
		metric.WithUnit("{handle}"),
	)
	storeMetrics.resolves, _ = m.Int64Counter("lasso.handle.resolves",
		metric.WithDescription("Handle resolution attempts, by outcome"),
		metric.WithUnit("{call}"),
	)
	storeMetrics.swept, _ = m.Int64Counter("lasso.handle.swept",
		metric.WithDescription("Expired handles removed by the sweeper"),
		metric.WithUnit("{handle}"),
	)
	storeMetrics.items, _ = m.Int64Histogram("lasso.handle.items",
		metric.WithDescription("Snapshot count per issued handle"),
		metric.WithUnit("{item}"),
	)
	storeMetrics.live, _ = m.Int64Gauge("lasso.handle.live",
		metric.WithDescription("Handles currently stored (including unswept expired)"),
		metric.WithUnit("{handle}"),
	)
}

func recordIssued(itemCount, live int) {
	if storeMetrics.issued == nil {
		return
	}
	ctx := context.Background()
	storeMetrics.issued.Add(ctx, 1)
	storeMetrics.items.Record(ctx, int64(itemCount))
	storeMetrics.live.Record(ctx, int64(live))
}

func recordResolve(hit bool) {
	if storeMetrics.resolves == nil {
		return
	}
	outcome := "hit"
	if !hit {
		outcome = "miss"
	}
	storeMetrics.resolves.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("lasso.resolve.outcome", outcome)))
}

func recordSwept(removed, live int) {
	if storeMetrics.swept == nil {
		return
	}
	ctx := context.Background()
	storeMetrics.swept.Add(ctx, int64(removed))
	storeMetrics.live.Record(ctx, int64(live))
}
