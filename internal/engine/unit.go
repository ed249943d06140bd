package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/TimLuong/taskrecycler/internal/keys"
)

// Unit is one generation of work for a task key: the in-flight or completed
// execution record shared by every caller that attached to it.
//
// The value and error fields are written exactly once, before the done
// channel is closed, and are only read after it is closed.
type Unit struct {
	key       keys.TaskKey
	retention time.Duration

	done chan struct{}

	val any
	err error

	// completedAt holds the completion time as unix nanoseconds, zero
	// while in flight. Stored atomically because attach-time accounting
	// reads it without waiting on the done channel.
	completedAt atomic.Int64

	// fromSnapshot marks a unit materialized from the serialized snapshot
	// store; its value holds raw bytes that each caller decodes into a
	// private copy.
	fromSnapshot bool

	// snapshotWrite marks a unit whose successful result should be
	// serialized into the snapshot store on completion.
	snapshotWrite bool

	timerMu sync.Mutex
	timer   *time.Timer
}

func newUnit(key keys.TaskKey, retention time.Duration, snapshotWrite bool) *Unit {
	return &Unit{
		key:           key,
		retention:     retention,
		snapshotWrite: snapshotWrite,
		done:          make(chan struct{}),
	}
}

// newSnapshotUnit returns an already-completed unit carrying serialized
// result bytes read from the snapshot store.
func newSnapshotUnit(key keys.TaskKey, data []byte) *Unit {
	u := &Unit{
		key:          key,
		done:         make(chan struct{}),
		val:          data,
		fromSnapshot: true,
	}
	u.completedAt.Store(time.Now().UnixNano())
	close(u.done)
	return u
}

// Done returns a channel that is closed when the execution completes.
func (u *Unit) Done() <-chan struct{} {
	return u.done
}

// Value returns the result value. It must only be called after Done is
// closed. The value is shared by all attachers of the generation and must
// be treated as read-only.
func (u *Unit) Value() any {
	return u.val
}

// Err returns the execution error, if any. It must only be called after
// Done is closed.
func (u *Unit) Err() error {
	return u.err
}

// CompletedAt returns the completion timestamp, or the zero time while the
// execution is still in flight. Safe to call concurrently with completion.
func (u *Unit) CompletedAt() time.Time {
	ns := u.completedAt.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Retention returns the retention window requested by the caller that
// created this generation.
func (u *Unit) Retention() time.Duration {
	return u.retention
}

// FromSnapshot reports whether this unit was materialized from the
// snapshot store rather than a live execution.
func (u *Unit) FromSnapshot() bool {
	return u.fromSnapshot
}

// Key returns the registry key of this generation.
func (u *Unit) Key() keys.TaskKey {
	return u.key
}

// Wait blocks until the execution completes or ctx is done. Cancelling ctx
// abandons only this caller's wait; the shared execution keeps running for
// every other attacher.
func (u *Unit) Wait(ctx context.Context) (any, error) {
	select {
	case <-u.done:
		return u.val, u.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// complete records the outcome and releases all waiters. It must be called
// exactly once.
func (u *Unit) complete(val any, err error) {
	u.val = val
	u.err = err
	u.completedAt.Store(time.Now().UnixNano())
	close(u.done)
}

func (u *Unit) setTimer(t *time.Timer) {
	u.timerMu.Lock()
	u.timer = t
	u.timerMu.Unlock()
}

// stopTimer stops a pending expiry timer, if any, and reports whether one
// was stopped before firing.
func (u *Unit) stopTimer() bool {
	u.timerMu.Lock()
	defer u.timerMu.Unlock()
	if u.timer == nil {
		return false
	}
	stopped := u.timer.Stop()
	u.timer = nil
	return stopped
}
