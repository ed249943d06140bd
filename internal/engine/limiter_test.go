package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/TimLuong/taskrecycler/internal/config"
	"github.com/TimLuong/taskrecycler/internal/types"
)

func limiterConfig(maxConcurrent, maxQueue int, timeout time.Duration) config.LimiterConfig {
	return config.LimiterConfig{
		Enabled:        true,
		MaxConcurrent:  maxConcurrent,
		MaxQueue:       maxQueue,
		AcquireTimeout: timeout,
	}
}

func TestLimiterAcquireRelease(t *testing.T) {
	l := NewLimiter(limiterConfig(2, 0, time.Second))

	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if got := l.ActiveCount(); got != 2 {
		t.Errorf("ActiveCount = %d, want 2", got)
	}

	l.Release()
	l.Release()
	if got := l.ActiveCount(); got != 0 {
		t.Errorf("ActiveCount after release = %d, want 0", got)
	}
	if got := l.TotalExecuted(); got != 2 {
		t.Errorf("TotalExecuted = %d, want 2", got)
	}
}

func TestLimiterRejectsWhenQueueFull(t *testing.T) {
	l := NewLimiter(limiterConfig(1, 0, time.Second))

	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer l.Release()

	err := l.Acquire(context.Background())
	if !errors.Is(err, types.ErrLimiterFull) {
		t.Errorf("Acquire error = %v, want ErrLimiterFull", err)
	}
	if got := l.RejectedCount(); got != 1 {
		t.Errorf("RejectedCount = %d, want 1", got)
	}
}

func TestLimiterQueuedAcquireTimesOut(t *testing.T) {
	l := NewLimiter(limiterConfig(1, 1, 30*time.Millisecond))

	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer l.Release()

	start := time.Now()
	err := l.Acquire(context.Background())
	if !errors.Is(err, types.ErrLimiterTimeout) {
		t.Errorf("Acquire error = %v, want ErrLimiterTimeout", err)
	}
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Errorf("Acquire returned after %v, want >= 30ms", elapsed)
	}
}

func TestLimiterQueuedAcquireSucceeds(t *testing.T) {
	l := NewLimiter(limiterConfig(1, 1, time.Second))

	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	acquired := make(chan error, 1)
	go func() {
		acquired <- l.Acquire(context.Background())
	}()

	time.Sleep(10 * time.Millisecond)
	l.Release()

	select {
	case err := <-acquired:
		if err != nil {
			t.Errorf("queued Acquire failed: %v", err)
		}
		l.Release()
	case <-time.After(time.Second):
		t.Fatal("queued Acquire never completed")
	}
}

func TestLimiterHonorsContext(t *testing.T) {
	l := NewLimiter(limiterConfig(1, 1, time.Minute))

	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer l.Release()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := l.Acquire(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Acquire error = %v, want context.Canceled", err)
	}
}

func TestLimiterConcurrencyNeverExceedsMax(t *testing.T) {
	const maxConcurrent = 4
	l := NewLimiter(limiterConfig(maxConcurrent, 100, time.Second))

	var active, peak atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Acquire(context.Background()); err != nil {
				t.Errorf("Acquire failed: %v", err)
				return
			}
			n := active.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			active.Add(-1)
			l.Release()
		}()
	}
	wg.Wait()

	if got := peak.Load(); got > maxConcurrent {
		t.Errorf("peak concurrency = %d, want <= %d", got, maxConcurrent)
	}
	if got := l.TotalExecuted(); got != 32 {
		t.Errorf("TotalExecuted = %d, want 32", got)
	}
}

func TestLimiterDefaults(t *testing.T) {
	l := NewLimiter(config.LimiterConfig{})

	stats := l.Stats()
	if stats.MaxConcurrent != 64 {
		t.Errorf("MaxConcurrent = %d, want 64", stats.MaxConcurrent)
	}
	if stats.MaxQueue != 0 {
		t.Errorf("MaxQueue = %d, want 0", stats.MaxQueue)
	}
}

// TestEngineLimiterRejections verifies limiter failures fan out to all
// attached callers like any other execution failure.
func TestEngineLimiterRejections(t *testing.T) {
	cfg := testConfig()
	cfg.Limiter.Enabled = true
	cfg.Limiter.MaxConcurrent = 1
	cfg.Limiter.MaxQueue = 0
	e := newTestEngine(t, cfg)

	release := make(chan struct{})
	u1, _, err := e.Submit(context.Background(), "hold", func(ctx context.Context) (any, error) {
		<-release
		return nil, nil
	}, nil)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	// The limiter slot is taken once the first execution starts running.
	waitForCondition(t, func() bool { return e.LimiterStats().Active == 1 })

	u2, _, err := e.Submit(context.Background(), "reject", func(ctx context.Context) (any, error) {
		return nil, nil
	}, nil)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	_, err = waitResult(t, u2)
	if !types.IsLimiterReject(err) {
		t.Errorf("Wait error = %v, want limiter rejection", err)
	}

	close(release)
	if _, err := waitResult(t, u1); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
}
