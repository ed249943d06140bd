package recycler

import (
	"github.com/TimLuong/taskrecycler/internal/types"
)

// TaskError represents an engine operation error.
type TaskError = types.TaskError

var (
	// ErrClosed indicates that the recycler has been closed.
	ErrClosed = types.ErrClosed
	// ErrInvalidTask indicates that a task identifier is invalid.
	ErrInvalidTask = types.ErrInvalidTask
	// ErrInvalidRetention indicates a negative retention duration.
	ErrInvalidRetention = types.ErrInvalidRetention
	// ErrResultType indicates a result did not match the requested type.
	ErrResultType = types.ErrResultType
	// ErrLimiterFull indicates the execution limiter is at capacity.
	ErrLimiterFull = types.ErrLimiterFull
	// ErrLimiterTimeout indicates the limiter acquisition timed out.
	ErrLimiterTimeout = types.ErrLimiterTimeout
	// ErrSnapshotMiss indicates a key was not found in the snapshot store.
	ErrSnapshotMiss = types.ErrSnapshotMiss
	// ErrShutdownTimeout indicates shutdown exceeded its deadline.
	ErrShutdownTimeout = types.ErrShutdownTimeout
)

// NewTaskError creates a new task error with operation, task, and underlying error.
func NewTaskError(op, task string, err error) *TaskError {
	return types.NewTaskError(op, task, err)
}

// IsSnapshotMiss returns true if the error is a snapshot store miss.
func IsSnapshotMiss(err error) bool {
	return types.IsSnapshotMiss(err)
}

// IsInvalidTask returns true if the error indicates an invalid task identifier.
func IsInvalidTask(err error) bool {
	return types.IsInvalidTask(err)
}

// IsLimiterReject returns true if the error came from the execution limiter.
func IsLimiterReject(err error) bool {
	return types.IsLimiterReject(err)
}
