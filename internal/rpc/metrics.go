package rpc

import (
	"runtime"
	"sort"
	"sync"
	"time"
)

// SlowOpCallback is invoked when an operation exceeds the slow threshold.
type SlowOpCallback func(operation string, latency time.Duration)

// SlowOpRecord captures one slow operation for the metrics endpoint.
type SlowOpRecord struct {
	Operation string    `json:"operation"`
	LatencyMS float64   `json:"latency_ms"`
	Timestamp time.Time `json:"timestamp"`
}

// DefaultSlowOpThreshold flags operations slower than this. Bulk executions
// legitimately run long, so the threshold is generous; the point is catching
// handle and selector operations that should be microseconds.
const DefaultSlowOpThreshold = time.Second

// Metrics collects per-operation counters and latency samples for the serve
// endpoint. Samples are bounded per operation so a long-lived server stays
// flat on memory.
type Metrics struct {
	mu sync.RWMutex

	requestCounts  map[string]int64
	requestErrors  map[string]int64
	requestLatency map[string][]time.Duration
	maxSamples     int

	slowOpThreshold time.Duration
	slowOpCounts    map[string]int64
	recentSlowOps   []SlowOpRecord
	maxSlowOps      int
	slowOpCallback  SlowOpCallback

	startTime time.Time
}

// NewMetrics creates a metrics collector with default bounds.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCounts:   make(map[string]int64),
		requestErrors:   make(map[string]int64),
		requestLatency:  make(map[string][]time.Duration),
		maxSamples:      1000,
		slowOpCounts:    make(map[string]int64),
		maxSlowOps:      100,
		slowOpThreshold: DefaultSlowOpThreshold,
		startTime:       time.Now(),
	}
}

// SetSlowOpThreshold changes the slow-operation threshold. Zero disables
// slow-operation tracking.
func (m *Metrics) SetSlowOpThreshold(threshold time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slowOpThreshold = threshold
}

// SetSlowOpCallback registers a callback invoked (outside the lock) for each
// slow operation.
func (m *Metrics) SetSlowOpCallback(cb SlowOpCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slowOpCallback = cb
}

// RecordRequest records one handled request, successful or not.
func (m *Metrics) RecordRequest(operation string, latency time.Duration) {
	var callback SlowOpCallback
	var isSlow bool

	m.mu.Lock()

	m.requestCounts[operation]++

	samples := m.requestLatency[operation]
	if len(samples) >= m.maxSamples {
		samples = samples[1:]
	}
	m.requestLatency[operation] = append(samples, latency)

	if m.slowOpThreshold > 0 && latency >= m.slowOpThreshold {
		isSlow = true
		m.slowOpCounts[operation]++
		if len(m.recentSlowOps) >= m.maxSlowOps {
			m.recentSlowOps = m.recentSlowOps[1:]
		}
		m.recentSlowOps = append(m.recentSlowOps, SlowOpRecord{
			Operation: operation,
			LatencyMS: float64(latency) / float64(time.Millisecond),
			Timestamp: time.Now(),
		})
		callback = m.slowOpCallback
	}

	m.mu.Unlock()

	if isSlow && callback != nil {
		callback(operation, latency)
	}
}

// RecordError records a failed request.
func (m *Metrics) RecordError(operation string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestErrors[operation]++
}

// Snapshot returns a point-in-time view of all metrics. activeHandles is the
// current live handle count, sampled by the caller.
func (m *Metrics) Snapshot(activeHandles int) MetricsSnapshot {
	m.mu.RLock()

	opsSet := make(map[string]struct{})
	for op := range m.requestCounts {
		opsSet[op] = struct{}{}
	}
	for op := range m.requestErrors {
		opsSet[op] = struct{}{}
	}

	countsCopy := make(map[string]int64, len(opsSet))
	errorsCopy := make(map[string]int64, len(opsSet))
	latCopy := make(map[string][]time.Duration, len(opsSet))
	slowCopy := make(map[string]int64, len(m.slowOpCounts))
	for op := range opsSet {
		countsCopy[op] = m.requestCounts[op]
		errorsCopy[op] = m.requestErrors[op]
		if samples := m.requestLatency[op]; len(samples) > 0 {
			latCopy[op] = append([]time.Duration(nil), samples...)
		}
	}
	for op, count := range m.slowOpCounts {
		slowCopy[op] = count
	}
	slowThreshold := m.slowOpThreshold
	recentSlow := make([]SlowOpRecord, len(m.recentSlowOps))
	copy(recentSlow, m.recentSlowOps)

	m.mu.RUnlock()

	operations := make([]OperationMetrics, 0, len(opsSet))
	var totalSlow int64
	for op := range opsSet {
		count := countsCopy[op]
		errCount := errorsCopy[op]
		totalSlow += slowCopy[op]

		successCount := count - errCount
		if successCount < 0 {
			successCount = 0
		}
		om := OperationMetrics{
			Operation:    op,
			TotalCount:   count,
			SuccessCount: successCount,
			ErrorCount:   errCount,
			SlowCount:    slowCopy[op],
		}
		if samples := latCopy[op]; len(samples) > 0 {
			om.Latency = calculateLatencyStats(samples)
		}
		operations = append(operations, om)
	}
	sort.Slice(operations, func(i, j int) bool {
		return operations[i].TotalCount > operations[j].TotalCount
	})

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return MetricsSnapshot{
		Timestamp:       time.Now(),
		UptimeSeconds:   time.Since(m.startTime).Seconds(),
		Operations:      operations,
		ActiveHandles:   activeHandles,
		MemoryAllocMB:   memStats.Alloc / 1024 / 1024,
		GoroutineCount:  runtime.NumGoroutine(),
		SlowThresholdMS: float64(slowThreshold) / float64(time.Millisecond),
		TotalSlowOps:    totalSlow,
		RecentSlowOps:   recentSlow,
	}
}

// MetricsSnapshot is the metrics endpoint payload.
type MetricsSnapshot struct {
	Timestamp       time.Time          `json:"timestamp"`
	UptimeSeconds   float64            `json:"uptime_seconds"`
	Operations      []OperationMetrics `json:"operations"`
	ActiveHandles   int                `json:"active_handles"`
	MemoryAllocMB   uint64             `json:"memory_alloc_mb"`
	GoroutineCount  int                `json:"goroutine_count"`
	SlowThresholdMS float64            `json:"slow_threshold_ms"`
	TotalSlowOps    int64              `json:"total_slow_ops"`
	RecentSlowOps   []SlowOpRecord     `json:"recent_slow_ops,omitempty"`
}

// OperationMetrics holds counters for a single operation.
type OperationMetrics struct {
	Operation    string       `json:"operation"`
	TotalCount   int64        `json:"total_count"`
	SuccessCount int64        `json:"success_count"`
	ErrorCount   int64        `json:"error_count"`
	SlowCount    int64        `json:"slow_count,omitempty"`
	Latency      LatencyStats `json:"latency,omitempty"`
}

// LatencyStats holds latency percentiles in milliseconds.
type LatencyStats struct {
	MinMS float64 `json:"min_ms"`
	P50MS float64 `json:"p50_ms"`
	P95MS float64 `json:"p95_ms"`
	P99MS float64 `json:"p99_ms"`
	MaxMS float64 `json:"max_ms"`
	AvgMS float64 `json:"avg_ms"`
}

func calculateLatencyStats(samples []time.Duration) LatencyStats {
	if len(samples) == 0 {
		return LatencyStats{}
	}

	sorted := make([]time.Duration, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	n := len(sorted)
	p50Idx := minInt(n-1, n*50/100)
	p95Idx := minInt(n-1, n*95/100)
	p99Idx := minInt(n-1, n*99/100)

	var sum time.Duration
	for _, d := range sorted {
		sum += d
	}
	avg := sum / time.Duration(n)

	toMS := func(d time.Duration) float64 {
		return float64(d) / float64(time.Millisecond)
	}
	return LatencyStats{
		MinMS: toMS(sorted[0]),
		P50MS: toMS(sorted[p50Idx]),
		P95MS: toMS(sorted[p95Idx]),
		P99MS: toMS(sorted[p99Idx]),
		MaxMS: toMS(sorted[n-1]),
		AvgMS: toMS(avg),
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
