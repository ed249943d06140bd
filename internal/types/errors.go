package types

import (
	"errors"
	"fmt"
)

var (
	ErrClosed           = errors.New("recycler: engine closed")
	ErrInvalidTask      = errors.New("recycler: invalid task identity")
	ErrInvalidRetention = errors.New("recycler: retention must not be negative")
	ErrResultType       = errors.New("recycler: result has unexpected type")
	ErrLimiterFull      = errors.New("recycler: execution limiter at capacity")
	ErrLimiterTimeout   = errors.New("recycler: execution limiter timeout")
	ErrSnapshotMiss     = errors.New("recycler: snapshot entry not found")
	ErrShutdownTimeout  = errors.New("recycler: shutdown timeout waiting for running tasks")
)

// TaskError wraps an engine-level failure with the operation and task that
// produced it. Errors returned by task functions themselves are never
// wrapped; they fan out to attachers verbatim.
type TaskError struct {
	Op   string
	Task string
	Err  error
}

func (e *TaskError) Error() string {
	if e.Task != "" {
		return fmt.Sprintf("recycler %s [%s]: %v", e.Op, e.Task, e.Err)
	}
	return fmt.Sprintf("recycler %s: %v", e.Op, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

func NewTaskError(op, task string, err error) *TaskError {
	return &TaskError{
		Op:   op,
		Task: task,
		Err:  err,
	}
}

// IsSnapshotMiss returns true if the error indicates a snapshot store miss.
func IsSnapshotMiss(err error) bool {
	return errors.Is(err, ErrSnapshotMiss)
}

// IsInvalidTask returns true if the error indicates a rejected task identity.
func IsInvalidTask(err error) bool {
	return errors.Is(err, ErrInvalidTask)
}

// IsLimiterReject returns true if the execution limiter rejected fresh work.
func IsLimiterReject(err error) bool {
	return errors.Is(err, ErrLimiterFull) || errors.Is(err, ErrLimiterTimeout)
}
