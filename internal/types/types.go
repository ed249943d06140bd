// Package types provides shared types for the taskrecycler library.
// This package breaks import cycles between pkg/recycler and internal/engine.
package types

import "time"

// SubmitOptions contains per-submission options.
type SubmitOptions struct {
	// Args is the ordered argument list mixed into the task key.
	Args []any

	// Retention is how long a completed result stays attachable,
	// measured from completion. Zero removes the result as soon as
	// the execution finishes.
	Retention time.Duration

	// RetentionSet records whether the caller chose a retention
	// explicitly; when false the engine default applies.
	RetentionSet bool

	// SnapshotRead allows the submission to be answered from the
	// serialized snapshot store with a per-caller decoded copy.
	SnapshotRead bool
}

// DefaultOptions returns the default submission options.
func DefaultOptions() *SubmitOptions {
	return &SubmitOptions{}
}

// SnapshotStats contains counters for the snapshot store.
type SnapshotStats struct {
	Hits      int64
	Misses    int64
	Sets      int64
	Deletes   int64
	Evictions int64
}

// RegistryStats contains counters for the execution registry.
type RegistryStats struct {
	// Live is the number of units currently registered, whether still
	// executing or retained after completion.
	Live int64
	// InFlight is the number of units still executing.
	InFlight int64
	// Generations is the total number of units ever created.
	Generations int64
}

// ExecutionOutcome describes how a unit completed.
type ExecutionOutcome int

const (
	// OutcomeSuccess indicates the task function returned a value.
	OutcomeSuccess ExecutionOutcome = iota + 1
	// OutcomeFailure indicates the task function returned an error.
	OutcomeFailure
	// OutcomePanic indicates the task function panicked and the panic
	// was converted into an error.
	OutcomePanic
)

func (o ExecutionOutcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	case OutcomePanic:
		return "panic"
	default:
		return "unknown"
	}
}
