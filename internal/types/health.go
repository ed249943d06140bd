package types

import "time"

// HealthStatus represents the overall health state.
type HealthStatus int

const (
	// HealthStatusHealthy indicates all components operating normally.
	HealthStatusHealthy HealthStatus = iota + 1
	// HealthStatusDegraded indicates partial functionality (e.g. snapshot
	// store closed while the registry keeps deduplicating).
	HealthStatusDegraded
	// HealthStatusUnhealthy indicates the engine can no longer accept work.
	HealthStatusUnhealthy
)

// String returns the string representation of health status.
func (s HealthStatus) String() string {
	switch s {
	case HealthStatusHealthy:
		return "healthy"
	case HealthStatusDegraded:
		return "degraded"
	case HealthStatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// HealthMetrics contains overall engine health information.
type HealthMetrics struct {
	Timestamp time.Time
	Registry  RegistryHealthMetrics
	Snapshot  SnapshotHealthMetrics
	Status    HealthStatus
}

// RegistryHealthMetrics contains execution registry health details.
type RegistryHealthMetrics struct {
	Status      HealthStatus
	Available   bool
	LiveUnits   int64
	InFlight    int64
	Generations int64
	Expirations int64
}

// SnapshotHealthMetrics contains snapshot store health details.
type SnapshotHealthMetrics struct {
	Status          HealthStatus
	Available       bool
	Enabled         bool
	EntryCount      int
	SizeBytes       int64
	MaxSizeBytes    int64
	UsagePercentage float64
	HitCount        int64
	MissCount       int64
	HitRatio        float64
	EvictionCount   int64
}

// MetricsSnapshot contains a point-in-time view of engine metrics.
type MetricsSnapshot struct {
	Timestamp time.Time

	// Submission counters
	Executions     int64
	FlightAttaches int64
	CachedAttaches int64
	SnapshotHits   int64

	// Completion counters
	Successes int64
	Failures  int64
	Panics    int64

	// Lifecycle counters
	Expirations   int64
	Invalidations int64
	ErrorCount    int64

	// Execution latency (milliseconds)
	AvgLatencyMs float64
	P50LatencyMs float64
	P95LatencyMs float64
	P99LatencyMs float64

	// Registry state
	RegistryLive     int64
	RegistryInFlight int64

	// Snapshot store state
	SnapshotEntries    int64
	SnapshotSizeBytes  int64
	SnapshotMaxBytes   int64
	SnapshotUsageRatio float64
	SnapshotAvailable  bool
}

// Attaches returns the total number of submissions that reused existing
// work instead of executing.
func (s *MetricsSnapshot) Attaches() int64 {
	return s.FlightAttaches + s.CachedAttaches + s.SnapshotHits
}

// DedupRatio calculates the fraction of submissions that were absorbed by
// an existing generation or snapshot.
func (s *MetricsSnapshot) DedupRatio() float64 {
	total := s.Executions + s.Attaches()
	if total == 0 {
		return 0
	}
	return float64(s.Attaches()) / float64(total)
}

// FailureRatio calculates the fraction of completed executions that failed,
// counting recovered panics as failures.
func (s *MetricsSnapshot) FailureRatio() float64 {
	total := s.Successes + s.Failures + s.Panics
	if total == 0 {
		return 0
	}
	return float64(s.Failures+s.Panics) / float64(total)
}

// PublisherStats is the batch of gauges handed to a metrics publisher.
type PublisherStats struct {
	LiveUnits          int64
	InFlightUnits      int64
	DedupRatio         float64
	FailureRatio       float64
	AvgExecLatencyMs   float64
	SnapshotEntries    int64
	SnapshotUsedBytes  int64
	SnapshotLimitBytes int64
	SnapshotAvailable  bool
}
