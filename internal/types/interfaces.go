package types

import (
	"context"
	"time"
)

// Serializer provides serialization for snapshot store entries.
type Serializer interface {
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, dest interface{}) error
}

// MetricsRecorder provides operations for recording engine events.
type MetricsRecorder interface {
	// RecordExecution records that fresh work was started for a task.
	RecordExecution(task string)
	// RecordAttach records a submission that joined an existing unit.
	// inFlight is true when the unit was still executing, false when it
	// had already completed and was being retained.
	RecordAttach(task string, inFlight bool)
	// RecordCompletion records the outcome and duration of an execution.
	RecordCompletion(task string, latency time.Duration, outcome ExecutionOutcome)
	// RecordSnapshotHit records a submission answered from the snapshot
	// store.
	RecordSnapshotHit(task string)
	// RecordExpiry records a unit removed by the expiry scheduler.
	RecordExpiry(task string)
	// RecordInvalidation records a unit removed by explicit invalidation.
	RecordInvalidation(task string)
	// RecordError records an engine-level error (never a task failure).
	RecordError(task string, operation string, err error)
}

// Publisher sends metrics to an external monitoring system.
type Publisher interface {
	// Gauge records a point-in-time value.
	Gauge(name string, value float64, tags ...string)
	// Incr increments a counter by 1.
	Incr(name string, tags ...string)
	// Count adds a value to a counter.
	Count(name string, value int64, tags ...string)
	// Histogram records a value for statistical distribution.
	Histogram(name string, value float64, tags ...string)
	// Timing records a duration.
	Timing(name string, duration time.Duration, tags ...string)
	// Event sends an event to the monitoring system.
	Event(title, text, alertType string, tags ...string)
	// PublishStats publishes a batch of engine gauges.
	PublishStats(stats *PublisherStats)
	// Close flushes and closes the publisher.
	Close() error
}

// Logger provides logging operations.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SnapshotInfo identifies a snapshot store.
type SnapshotInfo interface {
	Name() string
	IsAvailable() bool
}

// SnapshotReader reads serialized results.
type SnapshotReader interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// SnapshotWriter writes and removes serialized results.
type SnapshotWriter interface {
	Set(ctx context.Context, key string, value []byte, deadline time.Time) error
	Delete(ctx context.Context, key string) error
}

// SnapshotStatsProvider exposes snapshot store statistics.
type SnapshotStatsProvider interface {
	Stats() SnapshotStats
	EntryCount() int
	Size() int64
	MaxSize() int64
	UsagePercentage() float64
	HitRatio() float64
}

// SnapshotStore is the serialized result store used for clone-on-read
// submissions.
type SnapshotStore interface {
	SnapshotInfo
	SnapshotReader
	SnapshotWriter
	Clear(ctx context.Context) error
	Close() error
	SnapshotStatsProvider
}

// EngineOptions holds construction options for the engine.
type EngineOptions struct {
	// Logger is the structured logger to use.
	Logger Logger

	// Metrics is the metrics recorder.
	Metrics MetricsRecorder

	// Serializer is the snapshot value serializer.
	Serializer Serializer

	// DisableSnapshot disables the snapshot store entirely.
	DisableSnapshot bool

	// DisableLimiter disables the execution limiter.
	DisableLimiter bool
}
