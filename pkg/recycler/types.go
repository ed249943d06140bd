// Package recycler provides concurrent task deduplication with retained
// results, optional snapshot reads, and pluggable metrics.
package recycler

import (
	"github.com/TimLuong/taskrecycler/internal/types"
)

type (
	// SubmitOptions contains options for task submissions.
	SubmitOptions = types.SubmitOptions
	// ExecutionOutcome classifies how an execution finished.
	ExecutionOutcome = types.ExecutionOutcome
	// RegistryStats contains statistics about the execution registry.
	RegistryStats = types.RegistryStats
	// SnapshotStats contains statistics about the snapshot store.
	SnapshotStats = types.SnapshotStats
	// Serializer provides serialization and deserialization operations.
	Serializer = types.Serializer
	// MetricsRecorder provides operations for recording engine events.
	MetricsRecorder = types.MetricsRecorder
	// Publisher sends metrics to an external monitoring system.
	Publisher = types.Publisher
	// PublisherStats is the batch of gauges handed to a metrics publisher.
	PublisherStats = types.PublisherStats
	// Logger provides logging operations.
	Logger = types.Logger
	// SnapshotStore is the serialized result store used for clone-on-read
	// submissions.
	SnapshotStore = types.SnapshotStore
)

const (
	// OutcomeSuccess indicates the task function returned a value.
	OutcomeSuccess = types.OutcomeSuccess
	// OutcomeFailure indicates the task function returned an error.
	OutcomeFailure = types.OutcomeFailure
	// OutcomePanic indicates the task function panicked and was recovered.
	OutcomePanic = types.OutcomePanic
)

// DefaultSubmitOptions returns a default SubmitOptions configuration.
func DefaultSubmitOptions() *SubmitOptions {
	return types.DefaultOptions()
}
