package recycler_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/TimLuong/taskrecycler/pkg/recycler"
)

type report struct {
	Name string   `json:"name"`
	Rows int      `json:"rows"`
	Tags []string `json:"tags"`
}

func newTestRecycler(t *testing.T) *recycler.Recycler {
	t.Helper()
	r, err := recycler.NewFromConfig(recycler.TestConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.CloseWithTimeout(2 * time.Second) })
	return r
}

func TestNew(t *testing.T) {
	r, err := recycler.New()
	require.NoError(t, err)
	defer r.Close()

	assert.True(t, r.IsHealthy(context.Background()))
	assert.False(t, r.IsSnapshotAvailable())
}

func TestDoDeduplicatesConcurrentCallers(t *testing.T) {
	r := newTestRecycler(t)
	ctx := context.Background()

	var executions atomic.Int64
	release := make(chan struct{})
	fn := func(ctx context.Context) (report, error) {
		executions.Add(1)
		<-release
		return report{Name: "daily", Rows: 42}, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < 10; i++ {
		g.Go(func() error {
			got, err := recycler.Do(gctx, r, "build-report", fn, recycler.WithArgs("daily"))
			if err != nil {
				return err
			}
			if got.Rows != 42 {
				return errors.New("wrong result")
			}
			return nil
		})
	}

	// Give the submissions a moment to pile onto one execution.
	time.Sleep(20 * time.Millisecond)
	close(release)
	require.NoError(t, g.Wait())
	assert.Equal(t, int64(1), executions.Load())
}

func TestSubmitHandleShared(t *testing.T) {
	r := newTestRecycler(t)
	ctx := context.Background()

	release := make(chan struct{})
	fn := func(ctx context.Context) (string, error) {
		<-release
		return "v", nil
	}

	h1, err := recycler.Submit(ctx, r, "task", fn)
	require.NoError(t, err)
	h2, err := recycler.Submit(ctx, r, "task", fn)
	require.NoError(t, err)

	assert.False(t, h1.Shared())
	assert.True(t, h2.Shared())

	close(release)
	v1, err := h1.Wait(ctx)
	require.NoError(t, err)
	v2, err := h2.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v", v1)
	assert.Equal(t, v1, v2)
}

func TestHandleDone(t *testing.T) {
	r := newTestRecycler(t)
	ctx := context.Background()

	release := make(chan struct{})
	h, err := recycler.Submit(ctx, r, "task", func(ctx context.Context) (int, error) {
		<-release
		return 7, nil
	})
	require.NoError(t, err)

	select {
	case <-h.Done():
		t.Fatal("Done closed before completion")
	default:
	}

	close(release)
	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Done never closed")
	}

	v, err := h.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestRetentionAndInvalidate(t *testing.T) {
	r := newTestRecycler(t)
	ctx := context.Background()

	var executions atomic.Int64
	fn := func(ctx context.Context) (int64, error) {
		return executions.Add(1), nil
	}

	first, err := recycler.Do(ctx, r, "count", fn, recycler.WithRetention(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), first)

	// Retained: same result, no new execution.
	second, err := recycler.Do(ctx, r, "count", fn, recycler.WithRetention(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), second)
	assert.Equal(t, int64(1), executions.Load())

	assert.True(t, r.Invalidate("count"))

	third, err := recycler.Do(ctx, r, "count", fn, recycler.WithRetention(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(2), third)
}

func TestArgumentsFormDistinctKeys(t *testing.T) {
	r := newTestRecycler(t)
	ctx := context.Background()

	var executions atomic.Int64
	fn := func(ctx context.Context) (int64, error) {
		return executions.Add(1), nil
	}
	opts := func(region string) []recycler.Option {
		return []recycler.Option{recycler.WithArgs(region, 2026), recycler.WithRetention(time.Minute)}
	}

	_, err := recycler.Do(ctx, r, "report", fn, opts("emea")...)
	require.NoError(t, err)
	_, err = recycler.Do(ctx, r, "report", fn, opts("apac")...)
	require.NoError(t, err)
	_, err = recycler.Do(ctx, r, "report", fn, opts("emea")...)
	require.NoError(t, err)

	assert.Equal(t, int64(2), executions.Load())

	// Invalidation is argument-exact.
	assert.True(t, r.Invalidate("report", "emea", 2026))
	assert.False(t, r.Invalidate("report", "emea", 2026))
	assert.True(t, r.Invalidate("report", "apac", 2026))
}

func TestErrorsSharedByAllCallers(t *testing.T) {
	r := newTestRecycler(t)
	ctx := context.Background()

	wantErr := errors.New("upstream down")
	release := make(chan struct{})
	fn := func(ctx context.Context) (report, error) {
		<-release
		return report{}, wantErr
	}

	h1, err := recycler.Submit(ctx, r, "flaky", fn)
	require.NoError(t, err)
	h2, err := recycler.Submit(ctx, r, "flaky", fn)
	require.NoError(t, err)
	close(release)

	_, err1 := h1.Wait(ctx)
	_, err2 := h2.Wait(ctx)
	assert.ErrorIs(t, err1, wantErr)
	assert.ErrorIs(t, err2, wantErr)
}

func TestVoidTasks(t *testing.T) {
	r := newTestRecycler(t)
	ctx := context.Background()

	var runs atomic.Int64
	err := recycler.DoVoid(ctx, r, "cleanup", func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), runs.Load())

	wantErr := errors.New("cleanup failed")
	err = recycler.DoVoid(ctx, r, "cleanup", func(ctx context.Context) error {
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)
}

func TestWaitCancellationLeavesExecutionRunning(t *testing.T) {
	r := newTestRecycler(t)

	release := make(chan struct{})
	h, err := recycler.Submit(context.Background(), r, "slow", func(ctx context.Context) (string, error) {
		<-release
		return "done", nil
	})
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = h.Wait(cancelled)
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	v, err := h.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "done", v)
}

func TestSnapshotReadsAreIsolatedCopies(t *testing.T) {
	r, err := recycler.NewFromConfig(recycler.TestConfigWithSnapshot())
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.CloseWithTimeout(2 * time.Second) })
	ctx := context.Background()

	fn := func(ctx context.Context) (report, error) {
		return report{Name: "daily", Rows: 10, Tags: []string{"a", "b"}}, nil
	}
	opts := []recycler.Option{recycler.WithRetention(time.Minute), recycler.WithSnapshotRead()}

	first, err := recycler.Do(ctx, r, "report", fn, opts...)
	require.NoError(t, err)

	// Wait for the background snapshot write.
	require.Eventually(t, func() bool {
		return r.Stats().SnapshotEntries == 1
	}, 2*time.Second, 5*time.Millisecond)

	second, err := recycler.Do(ctx, r, "report", fn, opts...)
	require.NoError(t, err)
	require.Equal(t, first.Tags, second.Tags)

	// Mutating one caller's copy must not leak into the next read.
	second.Tags[0] = "mutated"

	third, err := recycler.Do(ctx, r, "report", fn, opts...)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, third.Tags)
}

func TestClosedRecyclerRejectsSubmissions(t *testing.T) {
	r, err := recycler.NewFromConfig(recycler.TestConfig())
	require.NoError(t, err)
	require.NoError(t, r.Close())

	_, err = recycler.Submit(context.Background(), r, "task", func(ctx context.Context) (int, error) {
		return 0, nil
	})
	assert.ErrorIs(t, err, recycler.ErrClosed)

	assert.False(t, r.IsHealthy(context.Background()))
}

func TestInvalidTaskIdentity(t *testing.T) {
	r := newTestRecycler(t)

	_, err := recycler.Submit(context.Background(), r, "", func(ctx context.Context) (int, error) {
		return 0, nil
	})
	assert.True(t, recycler.IsInvalidTask(err))
}

func TestStatsAndHealth(t *testing.T) {
	cfg := recycler.TestConfig()
	cfg.Metrics.Enabled = true
	r, err := recycler.NewFromConfig(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.CloseWithTimeout(2 * time.Second) })
	ctx := context.Background()

	fn := func(ctx context.Context) (int, error) { return 1, nil }
	_, err = recycler.Do(ctx, r, "task", fn, recycler.WithRetention(time.Minute))
	require.NoError(t, err)
	_, err = recycler.Do(ctx, r, "task", fn, recycler.WithRetention(time.Minute))
	require.NoError(t, err)

	stats := r.Stats()
	assert.Equal(t, int64(1), stats.Executions)
	assert.Equal(t, int64(1), stats.Attaches())
	assert.InDelta(t, 0.5, stats.DedupRatio(), 0.001)
	assert.Equal(t, int64(1), stats.RegistryLive)

	health, err := r.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, recycler.HealthStatusHealthy, health.Status)
	assert.Equal(t, int64(1), health.Registry.LiveUnits)
}

func TestPanicSurfacesAsError(t *testing.T) {
	r := newTestRecycler(t)

	_, err := recycler.Do(context.Background(), r, "explode", func(ctx context.Context) (int, error) {
		panic("boom")
	})
	require.Error(t, err)
	var taskErr *recycler.TaskError
	assert.ErrorAs(t, err, &taskErr)
}
