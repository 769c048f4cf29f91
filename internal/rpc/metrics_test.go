package rpc

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func opByName(t *testing.T, snap MetricsSnapshot, name string) OperationMetrics {
	t.Helper()
	for _, op := range snap.Operations {
		if op.Operation == name {
			return op
		}
	}
	t.Fatalf("operation %s not in snapshot", name)
	return OperationMetrics{}
}

func TestMetricsRecordAndSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("ping", 10*time.Millisecond)
	m.RecordRequest("ping", 20*time.Millisecond)
	m.RecordRequest("ping", 30*time.Millisecond)

	snap := m.Snapshot(2)
	assert.Equal(t, 2, snap.ActiveHandles)
	assert.GreaterOrEqual(t, snap.UptimeSeconds, 0.0)

	ping := opByName(t, snap, "ping")
	assert.Equal(t, int64(3), ping.TotalCount)
	assert.Equal(t, int64(3), ping.SuccessCount)
	assert.Equal(t, int64(0), ping.ErrorCount)
	assert.Equal(t, 10.0, ping.Latency.MinMS)
	assert.Equal(t, 30.0, ping.Latency.MaxMS)
	assert.Equal(t, 20.0, ping.Latency.AvgMS)
}

func TestMetricsErrorCounts(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("run_query", 5*time.Millisecond)
	m.RecordRequest("run_query", 5*time.Millisecond)
	m.RecordError("run_query")

	op := opByName(t, m.Snapshot(0), "run_query")
	assert.Equal(t, int64(2), op.TotalCount)
	assert.Equal(t, int64(1), op.SuccessCount)
	assert.Equal(t, int64(1), op.ErrorCount)
}

func TestMetricsSortsByVolume(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("inspect_handle", time.Millisecond)
	for i := 0; i < 3; i++ {
		m.RecordRequest("execute_bulk", time.Millisecond)
	}

	snap := m.Snapshot(0)
	require.Len(t, snap.Operations, 2)
	assert.Equal(t, "execute_bulk", snap.Operations[0].Operation)
	assert.Equal(t, "inspect_handle", snap.Operations[1].Operation)
}

func TestMetricsSlowOpDetection(t *testing.T) {
	m := NewMetrics()
	m.SetSlowOpThreshold(5 * time.Millisecond)

	var gotOp string
	var gotLatency time.Duration
	m.SetSlowOpCallback(func(operation string, latency time.Duration) {
		gotOp = operation
		gotLatency = latency
	})

	m.RecordRequest("resolve_selection", time.Millisecond)
	assert.Empty(t, gotOp, "fast request must not trigger the callback")

	m.RecordRequest("execute_bulk", 50*time.Millisecond)
	assert.Equal(t, "execute_bulk", gotOp)
	assert.Equal(t, 50*time.Millisecond, gotLatency)

	snap := m.Snapshot(0)
	assert.Equal(t, 5.0, snap.SlowThresholdMS)
	assert.Equal(t, int64(1), snap.TotalSlowOps)
	require.Len(t, snap.RecentSlowOps, 1)
	assert.Equal(t, "execute_bulk", snap.RecentSlowOps[0].Operation)
	assert.Equal(t, 50.0, snap.RecentSlowOps[0].LatencyMS)
	assert.Equal(t, int64(1), opByName(t, snap, "execute_bulk").SlowCount)
}

func TestMetricsSlowOpCallbackRunsOutsideLock(t *testing.T) {
	m := NewMetrics()
	m.SetSlowOpThreshold(time.Millisecond)

	done := make(chan struct{})
	m.SetSlowOpCallback(func(string, time.Duration) {
		m.Snapshot(0) // would deadlock if the callback ran under the mutex
		close(done)
	})
	m.RecordRequest("execute_bulk", 10*time.Millisecond)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("callback did not complete")
	}
}

func TestMetricsBoundsLatencySamples(t *testing.T) {
	m := NewMetrics()
	m.maxSamples = 4

	for i := 1; i <= 6; i++ {
		m.RecordRequest("ping", time.Duration(i)*time.Millisecond)
	}

	ping := opByName(t, m.Snapshot(0), "ping")
	assert.Equal(t, int64(6), ping.TotalCount, "counts survive sample eviction")
	assert.Equal(t, 3.0, ping.Latency.MinMS, "oldest samples evicted first")
	assert.Equal(t, 6.0, ping.Latency.MaxMS)
}

func TestMetricsBoundsRecentSlowOps(t *testing.T) {
	m := NewMetrics()
	m.SetSlowOpThreshold(time.Millisecond)
	m.maxSlowOps = 2

	for i := 0; i < 3; i++ {
		m.RecordRequest(fmt.Sprintf("op%d", i), 10*time.Millisecond)
	}

	snap := m.Snapshot(0)
	assert.Equal(t, int64(3), snap.TotalSlowOps)
	require.Len(t, snap.RecentSlowOps, 2)
	assert.Equal(t, "op1", snap.RecentSlowOps[0].Operation)
	assert.Equal(t, "op2", snap.RecentSlowOps[1].Operation)
}

func TestCalculateLatencyStats(t *testing.T) {
	samples := make([]time.Duration, 0, 10)
	for i := 10; i <= 100; i += 10 {
		samples = append(samples, time.Duration(i)*time.Millisecond)
	}

	stats := calculateLatencyStats(samples)
	assert.Equal(t, 10.0, stats.MinMS)
	assert.Equal(t, 60.0, stats.P50MS)
	assert.Equal(t, 100.0, stats.P95MS)
	assert.Equal(t, 100.0, stats.P99MS)
	assert.Equal(t, 100.0, stats.MaxMS)
	assert.Equal(t, 55.0, stats.AvgMS)
}

func TestCalculateLatencyStatsEmpty(t *testing.T) {
	assert.Equal(t, LatencyStats{}, calculateLatencyStats(nil))
}

func TestCalculateLatencyStatsSingleSample(t *testing.T) {
	stats := calculateLatencyStats([]time.Duration{7 * time.Millisecond})
	assert.Equal(t, 7.0, stats.MinMS)
	assert.Equal(t, 7.0, stats.P50MS)
	assert.Equal(t, 7.0, stats.P99MS)
	assert.Equal(t, 7.0, stats.MaxMS)
}
