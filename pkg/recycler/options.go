package recycler

import (
	"time"

	"github.com/TimLuong/taskrecycler/internal/types"
)

// Option configures a single submission.
type Option = types.Option

// ApplyOptions folds submission options into a SubmitOptions value.
func ApplyOptions(opts ...Option) *SubmitOptions {
	return types.ApplyOptions(opts...)
}

// WithArgs attaches argument values to the submission. Submissions of the
// same task with equal arguments share a single execution.
func WithArgs(args ...any) Option {
	return func(o *SubmitOptions) {
		o.Args = args
	}
}

// WithRetention keeps the completed result attachable for the given
// duration, measured from completion. Zero discards the result as soon as
// the execution finishes.
func WithRetention(retention time.Duration) Option {
	return func(o *SubmitOptions) {
		o.Retention = retention
		o.RetentionSet = true
	}
}

// WithSnapshotRead allows the submission to be answered from the snapshot
// store. Each caller receives an independent copy of the stored result.
func WithSnapshotRead() Option {
	return func(o *SubmitOptions) {
		o.SnapshotRead = true
	}
}

// EngineOption configures the recycler at construction time.
type EngineOption func(*types.EngineOptions)

// WithLogger sets the structured logger.
func WithLogger(logger Logger) EngineOption {
	return func(o *types.EngineOptions) {
		o.Logger = logger
	}
}

// WithMetrics sets a custom metrics recorder.
func WithMetrics(metrics MetricsRecorder) EngineOption {
	return func(o *types.EngineOptions) {
		o.Metrics = metrics
	}
}

// WithSerializer sets the snapshot value serializer.
func WithSerializer(serializer Serializer) EngineOption {
	return func(o *types.EngineOptions) {
		o.Serializer = serializer
	}
}

// WithoutSnapshot disables the snapshot store regardless of configuration.
func WithoutSnapshot() EngineOption {
	return func(o *types.EngineOptions) {
		o.DisableSnapshot = true
	}
}

// WithoutLimiter disables the execution limiter regardless of configuration.
func WithoutLimiter() EngineOption {
	return func(o *types.EngineOptions) {
		o.DisableLimiter = true
	}
}
