// Package recycler provides concurrent task deduplication with retained results.
//
// recycler ensures that at most one execution of a given task and argument
// combination runs at a time. Concurrent submissions attach to the live
// execution and all receive the same result. Completed results can be
// retained for a configurable window so that later submissions reuse them
// without re-executing.
//
// # Features
//
//   - Deduplication: One execution per task and argument combination
//   - Result Retention: Completed results stay attachable for a per-call window
//   - Snapshot Reads: Opt-in copy-on-read results from a serialized store
//   - Invalidation: Explicit removal of retained results
//   - Execution Limiting: Optional cap on concurrent executions
//   - Observability: Metrics tracking with pluggable publishers
//
// # Quick Start
//
// Create a recycler with default configuration:
//
//	r, err := recycler.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//
// # Submitting Tasks
//
// Submit returns a handle without blocking; Wait delivers the shared result:
//
//	ctx := context.Background()
//
//	h, err := recycler.Submit(ctx, r, "fetch-user", func(ctx context.Context) (User, error) {
//	    return fetchUserFromDB("123")
//	}, recycler.WithArgs("123"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	user, err := h.Wait(ctx)
//
// Or block in one call with Do:
//
//	user, err := recycler.Do(ctx, r, "fetch-user", fetchUser, recycler.WithArgs("123"))
//
// Concurrent submissions with the same task and arguments share a single
// execution of the function. Handle.Shared reports whether a submission
// attached to existing work.
//
// # Result Retention
//
// By default a result is discarded as soon as the execution completes and
// all attached callers have been notified. WithRetention keeps it
// attachable for a window measured from completion:
//
//	h, err := recycler.Submit(ctx, r, "daily-report", buildReport,
//	    recycler.WithRetention(10*time.Minute))
//
// During the window, new submissions receive the retained result
// immediately. Only successful results are retained; a failed execution is
// discarded on completion so the next submission retries fresh. Use
// Invalidate to drop a retained result early:
//
//	r.Invalidate("daily-report")
//
// # Snapshot Reads
//
// Successful results can also be kept in a serialized snapshot store.
// Submissions that opt in with WithSnapshotRead receive an independently
// decoded copy, safe to mutate without affecting other callers:
//
//	h, err := recycler.Submit(ctx, r, "catalog", loadCatalog,
//	    recycler.WithRetention(time.Minute), recycler.WithSnapshotRead())
//
// # Cancellation
//
// Wait honors its context. Cancelling a waiter abandons that caller only;
// the shared execution keeps running and other callers still receive the
// result.
//
// # Configuration
//
// Load configuration from a JSON file:
//
//	r, err := recycler.NewFromFile("config.json")
//
// Or use the default configuration:
//
//	cfg := recycler.Config()
//	cfg.Defaults.Retention = time.Minute
//	r, err := recycler.NewFromConfig(cfg)
//
// For testing, use the test configuration:
//
//	cfg := recycler.TestConfig()
//
// # Observability
//
// The library tracks metrics internally when enabled. Use WithMetrics to
// supply a custom recorder:
//
//	r, err := recycler.New(
//	    recycler.WithMetrics(myRecorder),
//	)
//
// # Health Checks
//
// Check the health status of the engine:
//
//	health, err := r.Health(ctx)
//	if health.Status == recycler.HealthStatusHealthy {
//	    fmt.Println("engine operational")
//	}
//
// # Thread Safety
//
// All operations are thread-safe and can be used concurrently from
// multiple goroutines.
package recycler
