package recycler

import (
	"context"
	"errors"
	"time"

	"github.com/TimLuong/taskrecycler/internal/config"
	"github.com/TimLuong/taskrecycler/internal/engine"
	"github.com/TimLuong/taskrecycler/internal/metrics"
	"github.com/TimLuong/taskrecycler/internal/metrics/datadog"
	"github.com/TimLuong/taskrecycler/internal/types"
)

// Recycler deduplicates concurrent task submissions and retains completed
// results for reuse. All methods are safe for concurrent use.
type Recycler struct {
	engine     *engine.Engine
	tracker    *metrics.Tracker
	background *metrics.BackgroundPublisher
	publisher  types.Publisher
	cfg        *config.Config
}

// New creates a new recycler with default configuration.
func New(opts ...EngineOption) (*Recycler, error) {
	cfg := config.DefaultConfig()
	return NewFromConfig(cfg, opts...)
}

// NewFromConfig creates a new recycler from configuration.
func NewFromConfig(cfg *config.Config, opts ...EngineOption) (*Recycler, error) {
	engineOpts := &types.EngineOptions{}
	for _, opt := range opts {
		opt(engineOpts)
	}

	var tracker *metrics.Tracker
	if engineOpts.Metrics == nil && cfg.Metrics.Enabled {
		tracker = metrics.NewTracker()
		engineOpts.Metrics = tracker
	}

	eng, err := engine.New(cfg, engineOpts)
	if err != nil {
		return nil, err
	}

	r := &Recycler{
		engine:  eng,
		tracker: tracker,
		cfg:     cfg,
	}

	if cfg.Metrics.Enabled && cfg.Metrics.DataDog.Enabled {
		publisher, err := datadog.NewPublisher(&cfg.Metrics.DataDog, nil)
		if err != nil {
			return nil, errors.Join(err, eng.Close())
		}
		r.publisher = publisher

		interval := cfg.Metrics.PublishInterval
		if interval <= 0 {
			interval = 10 * time.Second
		}
		r.background = metrics.NewBackgroundPublisher(publisher, interval, r.publisherStats, nil)
		r.background.Start(context.Background())
	}

	return r, nil
}

// NewFromFile creates a new recycler from a JSON config file.
func NewFromFile(path string, opts ...EngineOption) (*Recycler, error) {
	cfg, err := config.LoadWithEnv(path)
	if err != nil {
		return nil, err
	}
	return NewFromConfig(cfg, opts...)
}

// Config returns a default configuration that can be modified before creating a recycler.
func Config() *config.Config {
	return config.DefaultConfig()
}

// TestConfig returns a configuration suitable for unit tests.
func TestConfig() *config.Config {
	return config.ForTesting()
}

// TestConfigWithSnapshot returns a test configuration with the snapshot
// store and snapshot reads enabled.
func TestConfigWithSnapshot() *config.Config {
	return config.ForTestingWithSnapshot()
}

// Invalidate removes the live unit and any snapshot entry for the given
// task and arguments. It returns true when a live unit was removed.
// Executions already in flight are not interrupted, and callers already
// attached still receive the result.
func (r *Recycler) Invalidate(task string, args ...any) bool {
	return r.engine.Invalidate(task, args)
}

// Stats returns a point-in-time view of engine metrics.
func (r *Recycler) Stats() MetricsSnapshot {
	var snap MetricsSnapshot
	if r.tracker != nil {
		snap = r.tracker.Snapshot()
	} else {
		snap.Timestamp = time.Now()
	}

	reg := r.engine.RegistryStats()
	snap.RegistryLive = reg.Live
	snap.RegistryInFlight = reg.InFlight

	if store := r.engine.SnapshotStore(); store != nil && store.IsAvailable() {
		snap.SnapshotAvailable = true
		snap.SnapshotEntries = int64(store.EntryCount())
		snap.SnapshotSizeBytes = store.Size()
		snap.SnapshotMaxBytes = store.MaxSize()
		snap.SnapshotUsageRatio = store.UsagePercentage() / 100
	}

	return snap
}

// RegistryStats returns statistics about the execution registry.
func (r *Recycler) RegistryStats() RegistryStats {
	return r.engine.RegistryStats()
}

// Health returns comprehensive health metrics for the recycler.
func (r *Recycler) Health(ctx context.Context) (*HealthMetrics, error) {
	return r.engine.Health(ctx)
}

// IsHealthy returns true when the recycler is accepting submissions.
func (r *Recycler) IsHealthy(ctx context.Context) bool {
	return r.engine.IsHealthy(ctx)
}

// IsSnapshotAvailable returns true when the snapshot store is usable.
func (r *Recycler) IsSnapshotAvailable() bool {
	return r.engine.IsSnapshotAvailable()
}

// Close shuts the recycler down, waiting for in-flight executions.
func (r *Recycler) Close() error {
	return r.CloseWithTimeout(engine.DefaultShutdownTimeout)
}

// CloseWithTimeout shuts the recycler down, waiting up to timeout for
// in-flight executions to finish.
func (r *Recycler) CloseWithTimeout(timeout time.Duration) error {
	var errs []error
	if r.background != nil {
		r.background.Stop()
	}
	if r.publisher != nil {
		if err := r.publisher.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := r.engine.CloseWithTimeout(timeout); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (r *Recycler) publisherStats() *types.PublisherStats {
	snap := r.Stats()
	return &types.PublisherStats{
		LiveUnits:          snap.RegistryLive,
		InFlightUnits:      snap.RegistryInFlight,
		DedupRatio:         snap.DedupRatio(),
		FailureRatio:       snap.FailureRatio(),
		AvgExecLatencyMs:   snap.AvgLatencyMs,
		SnapshotEntries:    snap.SnapshotEntries,
		SnapshotUsedBytes:  snap.SnapshotSizeBytes,
		SnapshotLimitBytes: snap.SnapshotMaxBytes,
		SnapshotAvailable:  snap.SnapshotAvailable,
	}
}
