package recycler

import (
	"github.com/TimLuong/taskrecycler/internal/types"
)

// Re-export health types from internal/types.
type (
	// HealthStatus represents the overall health state.
	HealthStatus = types.HealthStatus

	// HealthMetrics contains overall engine health information.
	HealthMetrics = types.HealthMetrics

	// RegistryHealthMetrics contains execution registry health details.
	RegistryHealthMetrics = types.RegistryHealthMetrics

	// SnapshotHealthMetrics contains snapshot store health details.
	SnapshotHealthMetrics = types.SnapshotHealthMetrics

	// MetricsSnapshot contains a point-in-time view of engine metrics.
	MetricsSnapshot = types.MetricsSnapshot
)

// Re-export health status constants.
const (
	HealthStatusHealthy   = types.HealthStatusHealthy
	HealthStatusDegraded  = types.HealthStatusDegraded
	HealthStatusUnhealthy = types.HealthStatusUnhealthy
)
