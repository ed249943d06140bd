// Package engine implements the execution registry, attach-or-start
// protocol, and expiry scheduling behind the recycler API.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/TimLuong/taskrecycler/internal/config"
	"github.com/TimLuong/taskrecycler/internal/keys"
	"github.com/TimLuong/taskrecycler/internal/snapshot"
	"github.com/TimLuong/taskrecycler/internal/types"
)

// DefaultShutdownTimeout is the default timeout for shutting down the engine.
const DefaultShutdownTimeout = 30 * time.Second

// DefaultBackgroundOpTimeout is the default timeout for background operations.
const DefaultBackgroundOpTimeout = 5 * time.Second

// TaskFunc is the type-erased form of a task function. It receives a
// context derived from the engine's lifetime, not from any individual
// caller, so one caller abandoning its wait cannot cancel the shared work.
type TaskFunc func(ctx context.Context) (any, error)

// Engine coordinates task deduplication and result retention. It owns no
// worker pool: each fresh execution runs in a goroutine spawned on behalf
// of the caller that won the insert race.
type Engine struct {
	units sync.Map // keys.TaskKey -> *Unit

	snapshot   types.SnapshotStore
	serializer types.Serializer
	config     *config.Config
	metrics    types.MetricsRecorder
	logger     *slog.Logger
	validator  *types.TaskValidator
	limiter    *Limiter
	expiry     *expiryScheduler

	shutdownCancel context.CancelFunc
	shutdownCtx    context.Context
	bgWg           sync.WaitGroup
	bgMu           sync.Mutex
	closed         atomic.Bool

	live        atomic.Int64
	inFlight    atomic.Int64
	generations atomic.Int64
	expirations atomic.Int64
}

// New creates a new engine with the given configuration and options.
func New(cfg *config.Config, opts *types.EngineOptions) (*Engine, error) {
	logger := slog.Default()
	if opts != nil && opts.Logger != nil {
		logger = slog.New(slogAdapter{logger: opts.Logger})
	}
	logger = logger.With("component", "recycler-engine")

	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())

	e := &Engine{
		config:         cfg,
		logger:         logger,
		serializer:     snapshot.NewJSONSerializer(),
		shutdownCtx:    shutdownCtx,
		shutdownCancel: shutdownCancel,
	}

	if opts != nil {
		if opts.Serializer != nil {
			e.serializer = opts.Serializer
		}
		if opts.Metrics != nil {
			e.metrics = opts.Metrics
		}
	}

	if cfg.TaskValidation.Enabled {
		e.validator = types.NewTaskValidator(cfg.TaskValidation.ToTypesConfig())
	}

	snapshotEnabled := cfg.Snapshot.Enabled && (opts == nil || !opts.DisableSnapshot)
	if snapshotEnabled {
		store, err := snapshot.NewStore(cfg.Snapshot, logger)
		if err != nil {
			logger.Warn("Failed to create snapshot store, continuing without it", "error", err)
			e.snapshot = snapshot.NewDisabledStore()
		} else {
			e.snapshot = store
		}
	} else {
		e.snapshot = snapshot.NewDisabledStore()
	}

	if cfg.Limiter.Enabled && (opts == nil || !opts.DisableLimiter) {
		e.limiter = NewLimiter(cfg.Limiter)
	}

	e.expiry = newExpiryScheduler(logger, e.removeUnit, func(u *Unit) {
		e.expirations.Add(1)
		if e.metrics != nil {
			e.metrics.RecordExpiry(u.key.Task)
		}
	})

	return e, nil
}

// Submit attaches to the live unit for (task, args) or starts a new one.
// It returns the unit and whether the caller attached to work it did not
// start. The returned unit never re-executes: every attacher of a
// generation observes the identical value or error.
func (e *Engine) Submit(ctx context.Context, task string, fn TaskFunc, opts *types.SubmitOptions) (*Unit, bool, error) {
	if e.closed.Load() {
		return nil, false, types.ErrClosed
	}

	if err := e.validateTask(task); err != nil {
		return nil, false, err
	}

	options := e.applyDefaults(opts)
	if options.Retention < 0 {
		return nil, false, fmt.Errorf("%w: %v", types.ErrInvalidRetention, options.Retention)
	}

	key := keys.Derive(task, options.Args)

	// Clone-on-read path: serve a serialized copy instead of a shared
	// reference. In-flight units have no snapshot entry yet, so this
	// never bypasses deduplication of running work.
	if e.snapshotReadable(options) {
		if u, err := e.loadSnapshotUnit(ctx, key); err == nil {
			if e.metrics != nil {
				e.metrics.RecordSnapshotHit(task)
			}
			return u, true, nil
		} else if !types.IsSnapshotMiss(err) {
			e.logger.Debug("Snapshot read failed", "key", key.String(), "error", err)
		}
	}

	// Fast path: attach to whatever generation is registered.
	if v, ok := e.units.Load(key); ok {
		u := v.(*Unit)
		e.recordAttach(task, u)
		return u, true, nil
	}

	snapshotWrite := e.snapshot.IsAvailable() && options.Retention > 0 &&
		(options.SnapshotRead || e.config.Defaults.SnapshotReads)
	u := newUnit(key, options.Retention, snapshotWrite)

	// Atomic insert-if-absent. Losing the race means someone else just
	// registered a unit for this key; attach to theirs.
	if actual, loaded := e.units.LoadOrStore(key, u); loaded {
		existing := actual.(*Unit)
		e.recordAttach(task, existing)
		return existing, true, nil
	}

	e.live.Add(1)
	e.generations.Add(1)
	e.inFlight.Add(1)
	if e.metrics != nil {
		e.metrics.RecordExecution(task)
	}

	if !e.startExecution(task, u, fn) {
		// Lost a race with Close after registering; fail this
		// generation the same way for everyone who attached meanwhile.
		e.units.CompareAndDelete(key, u)
		e.live.Add(-1)
		e.inFlight.Add(-1)
		u.complete(nil, types.ErrClosed)
		return u, false, nil
	}

	return u, false, nil
}

// Invalidate removes the registration for (task, args) immediately,
// independent of scheduled expiry. Callers already attached to the current
// generation still observe its outcome; only future submissions start
// fresh. Removing an absent key is a no-op.
func (e *Engine) Invalidate(task string, args []any) bool {
	if e.closed.Load() {
		return false
	}

	key := keys.Derive(task, args)

	if e.snapshot.IsAvailable() {
		if err := e.snapshot.Delete(e.shutdownCtx, key.String()); err != nil && !types.IsSnapshotMiss(err) {
			e.logger.Debug("Snapshot delete failed", "key", key.String(), "error", err)
		}
	}

	v, ok := e.units.LoadAndDelete(key)
	if !ok {
		return false
	}

	u := v.(*Unit)
	e.live.Add(-1)
	e.expiry.Cancel(u)
	if e.metrics != nil {
		e.metrics.RecordInvalidation(task)
	}
	e.logger.Debug("Invalidated unit", "key", key.String())
	return true
}

// startExecution spawns the execution goroutine, tracked for graceful
// shutdown. It reports false if the engine is already closing.
func (e *Engine) startExecution(task string, u *Unit, fn TaskFunc) bool {
	// Hold bgMu while checking closed and adding to the WaitGroup so Add
	// can't race with CloseWithTimeout's Wait.
	e.bgMu.Lock()
	if e.closed.Load() {
		e.bgMu.Unlock()
		return false
	}
	e.bgWg.Add(1)
	e.bgMu.Unlock()

	go e.runExecution(task, u, fn)
	return true
}

func (e *Engine) runExecution(task string, u *Unit, fn TaskFunc) {
	defer e.bgWg.Done()

	start := time.Now()

	if e.limiter != nil {
		if err := e.limiter.Acquire(e.shutdownCtx); err != nil {
			e.finish(task, u, nil, err, start, types.OutcomeFailure)
			return
		}
		defer e.limiter.Release()
	}

	val, err, outcome := e.invoke(task, fn)
	e.finish(task, u, val, err, start, outcome)
}

// invoke runs the task function, converting a panic into an error so it
// fans out to attachers instead of tearing down the process.
func (e *Engine) invoke(task string, fn TaskFunc) (val any, err error, outcome types.ExecutionOutcome) {
	outcome = types.OutcomeSuccess
	defer func() {
		if r := recover(); r != nil {
			err = types.NewTaskError("execute", task, fmt.Errorf("task panicked: %v", r))
			outcome = types.OutcomePanic
			e.logger.Error("Recovered from task panic", "task", task, "panic", r)
		}
	}()

	val, err = fn(e.shutdownCtx)
	if err != nil {
		outcome = types.OutcomeFailure
	}
	return val, err, outcome
}

// finish completes the unit, fans the outcome out to all attachers, and
// hands the unit to the expiry scheduler. Retention is measured from this
// moment, not from submission.
func (e *Engine) finish(task string, u *Unit, val any, err error, start time.Time, outcome types.ExecutionOutcome) {
	u.complete(val, err)
	e.inFlight.Add(-1)

	latency := time.Since(start)
	if e.metrics != nil {
		e.metrics.RecordCompletion(task, latency, outcome)
	}
	e.logger.Debug("Task completed",
		"task", task,
		"key", u.key.String(),
		"outcome", outcome.String(),
		"latency", latency,
	)

	if err == nil && u.snapshotWrite {
		e.writeSnapshot(task, u)
	}

	e.expiry.Schedule(u)
}

// removeUnit deletes a unit only if the registry still maps its key to this
// exact generation.
func (e *Engine) removeUnit(u *Unit) bool {
	if e.units.CompareAndDelete(u.key, u) {
		e.live.Add(-1)
		return true
	}
	return false
}

func (e *Engine) snapshotReadable(opts *types.SubmitOptions) bool {
	if !e.snapshot.IsAvailable() {
		return false
	}
	return opts.SnapshotRead || e.config.Defaults.SnapshotReads
}

// loadSnapshotUnit builds a completed unit from the snapshot store. The
// raw bytes are decoded by each caller separately, so snapshot results are
// defensive copies rather than shared references.
func (e *Engine) loadSnapshotUnit(ctx context.Context, key keys.TaskKey) (*Unit, error) {
	data, err := e.snapshot.Get(ctx, key.String())
	if err != nil {
		return nil, err
	}
	return newSnapshotUnit(key, data), nil
}

func (e *Engine) writeSnapshot(task string, u *Unit) {
	data, err := e.serializer.Marshal(u.val)
	if err != nil {
		e.logger.Debug("Failed to serialize result for snapshot", "task", task, "error", err)
		if e.metrics != nil {
			e.metrics.RecordError(task, "snapshot-write", err)
		}
		return
	}

	deadline := u.CompletedAt().Add(u.retention)
	e.runBackground(func(ctx context.Context) {
		if setErr := e.snapshot.Set(ctx, u.key.String(), data, deadline); setErr != nil {
			e.logger.Debug("Failed to write snapshot", "key", u.key.String(), "error", setErr)
		}
	})
}

// Serializer returns the serializer used for snapshot entries.
func (e *Engine) Serializer() types.Serializer {
	return e.serializer
}

// RegistryStats returns counters for the execution registry.
func (e *Engine) RegistryStats() types.RegistryStats {
	return types.RegistryStats{
		Live:        e.live.Load(),
		InFlight:    e.inFlight.Load(),
		Generations: e.generations.Load(),
	}
}

// Expirations returns the number of units removed by the expiry scheduler.
func (e *Engine) Expirations() int64 {
	return e.expirations.Load()
}

// Health returns comprehensive health metrics for the engine.
func (e *Engine) Health(ctx context.Context) (*types.HealthMetrics, error) {
	metrics := &types.HealthMetrics{
		Timestamp: time.Now(),
	}

	metrics.Registry = types.RegistryHealthMetrics{
		Status:      types.HealthStatusHealthy,
		Available:   !e.closed.Load(),
		LiveUnits:   e.live.Load(),
		InFlight:    e.inFlight.Load(),
		Generations: e.generations.Load(),
		Expirations: e.expirations.Load(),
	}
	if e.closed.Load() {
		metrics.Registry.Status = types.HealthStatusUnhealthy
	}

	snapStats := e.snapshot.Stats()
	metrics.Snapshot = types.SnapshotHealthMetrics{
		Status:          types.HealthStatusHealthy,
		Available:       e.snapshot.IsAvailable(),
		Enabled:         e.config.Snapshot.Enabled,
		EntryCount:      e.snapshot.EntryCount(),
		SizeBytes:       e.snapshot.Size(),
		MaxSizeBytes:    e.snapshot.MaxSize(),
		UsagePercentage: e.snapshot.UsagePercentage(),
		HitCount:        snapStats.Hits,
		MissCount:       snapStats.Misses,
		HitRatio:        e.snapshot.HitRatio(),
		EvictionCount:   snapStats.Evictions,
	}
	if e.config.Snapshot.Enabled && !e.snapshot.IsAvailable() {
		metrics.Snapshot.Status = types.HealthStatusUnhealthy
	}

	switch {
	case metrics.Registry.Status == types.HealthStatusHealthy && metrics.Snapshot.Status == types.HealthStatusHealthy:
		metrics.Status = types.HealthStatusHealthy
	case metrics.Registry.Status == types.HealthStatusHealthy:
		metrics.Status = types.HealthStatusDegraded
	default:
		metrics.Status = types.HealthStatusUnhealthy
	}

	return metrics, nil
}

// IsHealthy returns true if the engine is accepting submissions.
func (e *Engine) IsHealthy(ctx context.Context) bool {
	return !e.closed.Load()
}

// IsSnapshotAvailable returns true if the snapshot store is usable.
func (e *Engine) IsSnapshotAvailable() bool {
	return e.snapshot.IsAvailable()
}

// SnapshotStore exposes the snapshot store for stats collection.
func (e *Engine) SnapshotStore() types.SnapshotStore {
	return e.snapshot
}

// LimiterStats returns limiter statistics, or the zero value when the
// limiter is disabled.
func (e *Engine) LimiterStats() LimiterStats {
	if e.limiter == nil {
		return LimiterStats{}
	}
	return e.limiter.Stats()
}

// Close releases all resources using the default shutdown timeout.
func (e *Engine) Close() error {
	return e.CloseWithTimeout(DefaultShutdownTimeout)
}

// CloseWithTimeout stops accepting submissions, cancels the execution
// context handed to running tasks, and waits for them to drain. If they
// don't finish within the timeout it returns ErrShutdownTimeout but still
// proceeds to release resources.
func (e *Engine) CloseWithTimeout(timeout time.Duration) error {
	// Acquire bgMu so no new execution can Add after closed flips.
	e.bgMu.Lock()
	if e.closed.Swap(true) {
		e.bgMu.Unlock()
		return nil
	}
	e.shutdownCancel()
	e.bgMu.Unlock()

	e.logger.Info("Closing engine, waiting for running tasks", "timeout", timeout)

	done := make(chan struct{})
	go func() {
		e.bgWg.Wait()
		close(done)
	}()

	var timedOut bool
	select {
	case <-done:
		e.logger.Info("Running tasks drained, releasing resources")
	case <-time.After(timeout):
		e.logger.Warn("Shutdown timeout exceeded, proceeding with close", "timeout", timeout)
		timedOut = true
	}

	e.expiry.Close()

	var errs []error

	if timedOut {
		errs = append(errs, types.ErrShutdownTimeout)
	}

	if err := e.snapshot.Close(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// runBackground executes fn in a goroutine tracked for graceful shutdown.
func (e *Engine) runBackground(fn func(ctx context.Context)) {
	e.bgMu.Lock()
	if e.closed.Load() {
		e.bgMu.Unlock()
		return
	}
	e.bgWg.Add(1)
	e.bgMu.Unlock()

	go func() {
		defer e.bgWg.Done()
		ctx, cancel := context.WithTimeout(e.shutdownCtx, DefaultBackgroundOpTimeout)
		defer cancel()
		fn(ctx)
	}()
}

func (e *Engine) recordAttach(task string, u *Unit) {
	if e.metrics == nil {
		return
	}
	inFlight := u.CompletedAt().IsZero()
	e.metrics.RecordAttach(task, inFlight)
}

func (e *Engine) validateTask(task string) error {
	if e.validator == nil {
		// An absent identity is a programmer error even with validation
		// switched off.
		if task == "" {
			return fmt.Errorf("%w: task identity cannot be empty", types.ErrInvalidTask)
		}
		return nil
	}
	return e.validator.Validate(task)
}

func (e *Engine) applyDefaults(opts *types.SubmitOptions) *types.SubmitOptions {
	if opts == nil {
		opts = types.DefaultOptions()
	}
	if !opts.RetentionSet {
		opts.Retention = e.config.Defaults.Retention
	}
	return opts
}

//nolint:govet // Simple adapter struct - alignment optimization minimal
type slogAdapter struct {
	attrs  []slog.Attr
	logger types.Logger
	group  string // current group prefix from WithGroup calls
}

// Enabled implements slog.Handler.
func (a slogAdapter) Enabled(ctx context.Context, level slog.Level) bool {
	return true
}

// Handle implements slog.Handler.
//
//nolint:gocritic // slog.Handler interface requires passing Record by value
func (a slogAdapter) Handle(ctx context.Context, r slog.Record) error {
	args := make([]any, 0, (len(a.attrs)+r.NumAttrs())*2)

	for _, attr := range a.attrs {
		key := attr.Key
		if a.group != "" {
			key = a.group + "." + key
		}
		args = append(args, key, attr.Value.Any())
	}

	r.Attrs(func(attr slog.Attr) bool {
		key := attr.Key
		if a.group != "" {
			key = a.group + "." + key
		}
		args = append(args, key, attr.Value.Any())
		return true
	})

	switch r.Level {
	case slog.LevelDebug:
		a.logger.Debug(r.Message, args...)
	case slog.LevelInfo:
		a.logger.Info(r.Message, args...)
	case slog.LevelWarn:
		a.logger.Warn(r.Message, args...)
	case slog.LevelError:
		a.logger.Error(r.Message, args...)
	}
	return nil
}

// WithAttrs implements slog.Handler.
func (a slogAdapter) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(a.attrs), len(a.attrs)+len(attrs))
	copy(newAttrs, a.attrs)
	newAttrs = append(newAttrs, attrs...)
	return slogAdapter{
		logger: a.logger,
		attrs:  newAttrs,
		group:  a.group,
	}
}

// WithGroup implements slog.Handler.
func (a slogAdapter) WithGroup(name string) slog.Handler {
	newGroup := name
	if a.group != "" {
		newGroup = a.group + "." + name
	}
	return slogAdapter{
		logger: a.logger,
		attrs:  a.attrs,
		group:  newGroup,
	}
}
