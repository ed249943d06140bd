package engine

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/TimLuong/taskrecycler/internal/config"
	"github.com/TimLuong/taskrecycler/internal/types"
)

// Limiter caps the number of concurrently running fresh executions. It
// never affects deduplication: attachers join existing units without
// touching the limiter, and a rejected acquisition completes the unit with
// the limiter error so it fans out like any other failure.
type Limiter struct {
	maxConcurrent  int
	maxQueue       int
	acquireTimeout time.Duration
	semaphore      chan struct{}

	activeCount   atomic.Int32
	queuedCount   atomic.Int32
	rejectedCount atomic.Int64
	totalExecuted atomic.Int64
}

func NewLimiter(cfg config.LimiterConfig) *Limiter {
	maxConcurrent := cfg.MaxConcurrent
	maxQueue := cfg.MaxQueue
	acquireTimeout := cfg.AcquireTimeout

	if maxConcurrent <= 0 {
		maxConcurrent = 64
	}
	if maxQueue < 0 {
		maxQueue = 0
	}
	if acquireTimeout <= 0 {
		acquireTimeout = 30 * time.Second
	}

	return &Limiter{
		maxConcurrent:  maxConcurrent,
		maxQueue:       maxQueue,
		acquireTimeout: acquireTimeout,
		semaphore:      make(chan struct{}, maxConcurrent),
	}
}

// Acquire claims an execution slot, queueing up to the configured bound and
// timeout. It returns ErrLimiterFull when the queue is saturated and
// ErrLimiterTimeout when a queued wait expires.
func (l *Limiter) Acquire(ctx context.Context) error {
	select {
	case l.semaphore <- struct{}{}:
		l.activeCount.Add(1)
		return nil
	default:
	}

	if int(l.queuedCount.Load()) >= l.maxQueue {
		l.rejectedCount.Add(1)
		return types.ErrLimiterFull
	}

	l.queuedCount.Add(1)
	defer l.queuedCount.Add(-1)

	timeoutCtx, cancel := context.WithTimeout(ctx, l.acquireTimeout)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		l.activeCount.Add(1)
		return nil
	case <-timeoutCtx.Done():
		l.rejectedCount.Add(1)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return types.ErrLimiterTimeout
	}
}

// Release returns an execution slot.
func (l *Limiter) Release() {
	l.activeCount.Add(-1)
	l.totalExecuted.Add(1)
	<-l.semaphore
}

func (l *Limiter) ActiveCount() int {
	return int(l.activeCount.Load())
}

func (l *Limiter) QueuedCount() int {
	return int(l.queuedCount.Load())
}

func (l *Limiter) RejectedCount() int64 {
	return l.rejectedCount.Load()
}

func (l *Limiter) TotalExecuted() int64 {
	return l.totalExecuted.Load()
}

// Stats returns limiter statistics.
func (l *Limiter) Stats() LimiterStats {
	return LimiterStats{
		MaxConcurrent: l.maxConcurrent,
		MaxQueue:      l.maxQueue,
		Active:        int(l.activeCount.Load()),
		Queued:        int(l.queuedCount.Load()),
		TotalExecuted: l.totalExecuted.Load(),
		TotalRejected: l.rejectedCount.Load(),
	}
}

// LimiterStats contains limiter statistics.
type LimiterStats struct {
	MaxConcurrent int
	MaxQueue      int
	Active        int
	Queued        int
	TotalExecuted int64
	TotalRejected int64
}
