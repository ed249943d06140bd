package recycler

import (
	"context"
	"fmt"

	"github.com/TimLuong/taskrecycler/internal/engine"
	"github.com/TimLuong/taskrecycler/internal/types"
)

// TaskFunc produces the result for a task submission.
type TaskFunc[T any] func(ctx context.Context) (T, error)

// Handle refers to an execution the caller is attached to. Handles created
// by concurrent submissions of the same task and arguments share one
// underlying execution.
type Handle[T any] struct {
	unit       *engine.Unit
	serializer types.Serializer
	shared     bool
}

// Done returns a channel closed when the execution completes.
func (h *Handle[T]) Done() <-chan struct{} {
	return h.unit.Done()
}

// Shared reports whether this submission attached to work that already
// existed instead of starting a fresh execution.
func (h *Handle[T]) Shared() bool {
	return h.shared
}

// Wait blocks until the execution completes or ctx is cancelled.
// Cancelling ctx abandons this caller only; the shared execution keeps
// running for everyone else. Results served from the snapshot store are
// decoded into a fresh value on every call, so each caller may mutate
// its copy freely.
func (h *Handle[T]) Wait(ctx context.Context) (T, error) {
	var zero T

	v, err := h.unit.Wait(ctx)
	if err != nil {
		return zero, err
	}

	if h.unit.FromSnapshot() {
		data, ok := v.([]byte)
		if !ok {
			return zero, fmt.Errorf("%w: unexpected snapshot payload %T", ErrResultType, v)
		}
		var out T
		if err := h.serializer.Unmarshal(data, &out); err != nil {
			return zero, fmt.Errorf("%w: %w", ErrResultType, err)
		}
		return out, nil
	}

	if v == nil {
		return zero, nil
	}

	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: have %T", ErrResultType, v)
	}
	return typed, nil
}

// Submit registers interest in a task execution. If an equivalent
// submission is already live, the caller attaches to it and fn is never
// invoked; otherwise fn starts in a new goroutine. The returned handle's
// Wait delivers the shared result.
func Submit[T any](ctx context.Context, r *Recycler, task string, fn TaskFunc[T], opts ...Option) (*Handle[T], error) {
	options := ApplyOptions(opts...)

	unit, attached, err := r.engine.Submit(ctx, task, func(ctx context.Context) (any, error) {
		return fn(ctx)
	}, options)
	if err != nil {
		return nil, err
	}

	return &Handle[T]{
		unit:       unit,
		serializer: r.engine.Serializer(),
		shared:     attached,
	}, nil
}

// Do submits a task and waits for its result.
//
// Do must not be called from inside a task function for a task and
// argument combination that could dedup against the caller's own
// execution: the inner wait would block on work that cannot finish.
func Do[T any](ctx context.Context, r *Recycler, task string, fn TaskFunc[T], opts ...Option) (T, error) {
	h, err := Submit(ctx, r, task, fn, opts...)
	if err != nil {
		var zero T
		return zero, err
	}
	return h.Wait(ctx)
}

// SubmitVoid registers interest in a task that produces no result.
func SubmitVoid(ctx context.Context, r *Recycler, task string, fn func(ctx context.Context) error, opts ...Option) (*Handle[struct{}], error) {
	return Submit(ctx, r, task, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	}, opts...)
}

// DoVoid submits a void task and waits for it to complete.
func DoVoid(ctx context.Context, r *Recycler, task string, fn func(ctx context.Context) error, opts ...Option) error {
	h, err := SubmitVoid(ctx, r, task, fn, opts...)
	if err != nil {
		return err
	}
	_, err = h.Wait(ctx)
	return err
}
