package metrics

import (
	"time"

	"github.com/TimLuong/taskrecycler/internal/types"
)

// NoOpTracker is a no-operation metrics tracker for testing.
type NoOpTracker struct{}

// NewNoOpTracker creates a new no-op tracker.
func NewNoOpTracker() *NoOpTracker {
	return &NoOpTracker{}
}

// RecordExecution does nothing.
func (t *NoOpTracker) RecordExecution(task string) {}

// RecordAttach does nothing.
func (t *NoOpTracker) RecordAttach(task string, inFlight bool) {}

// RecordCompletion does nothing.
func (t *NoOpTracker) RecordCompletion(task string, latency time.Duration, outcome types.ExecutionOutcome) {
}

// RecordSnapshotHit does nothing.
func (t *NoOpTracker) RecordSnapshotHit(task string) {}

// RecordExpiry does nothing.
func (t *NoOpTracker) RecordExpiry(task string) {}

// RecordInvalidation does nothing.
func (t *NoOpTracker) RecordInvalidation(task string) {}

// RecordError does nothing.
func (t *NoOpTracker) RecordError(task string, operation string, err error) {}

// Snapshot returns empty metrics.
func (t *NoOpTracker) Snapshot() types.MetricsSnapshot { return types.MetricsSnapshot{} }

// Reset does nothing.
func (t *NoOpTracker) Reset() {}

// NoOpPublisher is a no-operation metrics publisher for testing or when disabled.
type NoOpPublisher struct{}

// NewNoOpPublisher creates a new no-op publisher.
func NewNoOpPublisher() *NoOpPublisher {
	return &NoOpPublisher{}
}

// Gauge does nothing.
func (p *NoOpPublisher) Gauge(name string, value float64, tags ...string) {}

// Incr does nothing.
func (p *NoOpPublisher) Incr(name string, tags ...string) {}

// Count does nothing.
func (p *NoOpPublisher) Count(name string, value int64, tags ...string) {}

// Histogram does nothing.
func (p *NoOpPublisher) Histogram(name string, value float64, tags ...string) {}

// Timing does nothing.
func (p *NoOpPublisher) Timing(name string, duration time.Duration, tags ...string) {}

// Event does nothing.
func (p *NoOpPublisher) Event(title, text, alertType string, tags ...string) {}

// PublishStats does nothing.
func (p *NoOpPublisher) PublishStats(stats *types.PublisherStats) {}

// Close does nothing.
func (p *NoOpPublisher) Close() error { return nil }

// Ensure interfaces are implemented
var _ types.MetricsRecorder = (*NoOpTracker)(nil)
var _ types.Publisher = (*NoOpPublisher)(nil)
