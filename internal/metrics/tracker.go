// Package metrics provides engine event metrics collection and publishing.
package metrics

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/TimLuong/taskrecycler/internal/types"
)

const (
	defaultLatencyBufferSize = 10000
)

type Tracker struct {
	executions     atomic.Int64
	flightAttaches atomic.Int64
	cachedAttaches atomic.Int64
	snapshotHits   atomic.Int64

	successes atomic.Int64
	failures  atomic.Int64
	panics    atomic.Int64

	expirations   atomic.Int64
	invalidations atomic.Int64

	errorCount atomic.Int64

	latencyMu     sync.RWMutex
	latencyBuffer []time.Duration
	latencyIndex  int
	latencyCount  int
}

func NewTracker() *Tracker {
	return &Tracker{
		latencyBuffer: make([]time.Duration, defaultLatencyBufferSize),
	}
}

func (t *Tracker) RecordExecution(task string) {
	t.executions.Add(1)
}

func (t *Tracker) RecordAttach(task string, inFlight bool) {
	if inFlight {
		t.flightAttaches.Add(1)
	} else {
		t.cachedAttaches.Add(1)
	}
}

func (t *Tracker) RecordCompletion(task string, latency time.Duration, outcome types.ExecutionOutcome) {
	switch outcome {
	case types.OutcomeSuccess:
		t.successes.Add(1)
	case types.OutcomeFailure:
		t.failures.Add(1)
	case types.OutcomePanic:
		t.panics.Add(1)
	}
	t.recordLatency(latency)
}

func (t *Tracker) RecordSnapshotHit(task string) {
	t.snapshotHits.Add(1)
}

// RecordExpiry records a scheduled removal.
func (t *Tracker) RecordExpiry(task string) {
	t.expirations.Add(1)
}

// RecordInvalidation records a manual removal.
func (t *Tracker) RecordInvalidation(task string) {
	t.invalidations.Add(1)
}

// RecordError records an engine-level error.
func (t *Tracker) RecordError(task string, operation string, err error) {
	t.errorCount.Add(1)
}

// recordLatency adds a latency measurement using a circular buffer.
// This is O(1) time complexity with no memory allocations.
func (t *Tracker) recordLatency(latency time.Duration) {
	t.latencyMu.Lock()
	t.latencyBuffer[t.latencyIndex] = latency
	t.latencyIndex = (t.latencyIndex + 1) % len(t.latencyBuffer)
	if t.latencyCount < len(t.latencyBuffer) {
		t.latencyCount++
	}
	t.latencyMu.Unlock()
}

// Snapshot returns current metrics snapshot.
func (t *Tracker) Snapshot() types.MetricsSnapshot {
	// Use RLock for reading - allows concurrent snapshots
	t.latencyMu.RLock()
	count := t.latencyCount
	latencyCopy := make([]time.Duration, count)
	// Copy from circular buffer in correct order
	if count > 0 {
		if count < len(t.latencyBuffer) {
			// Buffer not full yet - data starts at 0
			copy(latencyCopy, t.latencyBuffer[:count])
		} else {
			// Buffer is full - oldest data starts at latencyIndex
			firstPart := len(t.latencyBuffer) - t.latencyIndex
			copy(latencyCopy[:firstPart], t.latencyBuffer[t.latencyIndex:])
			copy(latencyCopy[firstPart:], t.latencyBuffer[:t.latencyIndex])
		}
	}
	t.latencyMu.RUnlock()

	snapshot := types.MetricsSnapshot{
		Timestamp:      time.Now(),
		Executions:     t.executions.Load(),
		FlightAttaches: t.flightAttaches.Load(),
		CachedAttaches: t.cachedAttaches.Load(),
		SnapshotHits:   t.snapshotHits.Load(),
		Successes:      t.successes.Load(),
		Failures:       t.failures.Load(),
		Panics:         t.panics.Load(),
		Expirations:    t.expirations.Load(),
		Invalidations:  t.invalidations.Load(),
		ErrorCount:     t.errorCount.Load(),
	}

	// Calculate latency percentiles
	if len(latencyCopy) > 0 {
		snapshot.AvgLatencyMs = float64(avgDuration(latencyCopy).Milliseconds())
		snapshot.P50LatencyMs = float64(percentile(latencyCopy, 50).Milliseconds())
		snapshot.P95LatencyMs = float64(percentile(latencyCopy, 95).Milliseconds())
		snapshot.P99LatencyMs = float64(percentile(latencyCopy, 99).Milliseconds())
	}

	return snapshot
}

// Reset clears all metrics.
func (t *Tracker) Reset() {
	t.executions.Store(0)
	t.flightAttaches.Store(0)
	t.cachedAttaches.Store(0)
	t.snapshotHits.Store(0)
	t.successes.Store(0)
	t.failures.Store(0)
	t.panics.Store(0)
	t.expirations.Store(0)
	t.invalidations.Store(0)
	t.errorCount.Store(0)

	t.latencyMu.Lock()
	t.latencyIndex = 0
	t.latencyCount = 0
	t.latencyMu.Unlock()
}

// Helper functions for latency calculations

func avgDuration(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range durations {
		total += d
	}
	return total / time.Duration(len(durations))
}

func percentile(durations []time.Duration, p int) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	// Sort a copy
	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	slices.Sort(sorted)

	idx := (len(sorted) - 1) * p / 100
	return sorted[idx]
}

// Ensure Tracker implements MetricsRecorder
var _ types.MetricsRecorder = (*Tracker)(nil)
