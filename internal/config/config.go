// Package config provides configuration management for taskrecycler.
package config

import (
	"time"

	"github.com/TimLuong/taskrecycler/internal/types"
)

// Config contains all configuration for the recycler engine.
//
//nolint:govet // Configuration struct - logical grouping prioritized over alignment
type Config struct {
	Defaults       DefaultsConfig       `json:"defaults"`
	Limiter        LimiterConfig        `json:"limiter"`
	Snapshot       SnapshotConfig       `json:"snapshot"`
	Metrics        MetricsConfig        `json:"metrics"`
	TaskValidation TaskValidationConfig `json:"taskValidation"`
}

// DefaultsConfig contains default values for submissions.
type DefaultsConfig struct {
	// Retention applies to submissions that don't choose one. Zero keeps
	// completed results only for the callers already attached.
	Retention time.Duration `json:"retention"`
	// SnapshotReads answers eligible submissions from the snapshot store
	// without the caller opting in per call.
	SnapshotReads bool `json:"snapshotReads"`
}

// LimiterConfig contains configuration for the execution limiter.
type LimiterConfig struct {
	Enabled        bool          `json:"enabled"`
	MaxConcurrent  int           `json:"maxConcurrent"`
	MaxQueue       int           `json:"maxQueue"`
	AcquireTimeout time.Duration `json:"acquireTimeout"`
}

// SnapshotConfig contains configuration for the serialized snapshot store.
type SnapshotConfig struct {
	Window          time.Duration `json:"window"`
	CleanupInterval time.Duration `json:"cleanupInterval"`
	MaxSizeMB       int           `json:"maxSizeMB"`
	Shards          int           `json:"shards"`
	MaxEntrySize    int           `json:"maxEntrySize"`
	Enabled         bool          `json:"enabled"`
}

// TaskValidationConfig contains configuration for task identity validation.
type TaskValidationConfig struct {
	ReservedPatterns  []string `json:"reservedPatterns"`
	MaxNameLength     int      `json:"maxNameLength"`
	Enabled           bool     `json:"enabled"`
	AllowControlChars bool     `json:"allowControlChars"`
	AllowWhitespace   bool     `json:"allowWhitespace"`
}

// ToTypesConfig converts this config to a types.TaskValidationConfig.
func (c TaskValidationConfig) ToTypesConfig() types.TaskValidationConfig {
	return types.TaskValidationConfig{
		MaxNameLength:     c.MaxNameLength,
		AllowControlChars: c.AllowControlChars,
		AllowWhitespace:   c.AllowWhitespace,
		ReservedPatterns:  c.ReservedPatterns,
	}
}

// MetricsConfig contains configuration for metrics publishing.
//
//nolint:govet // Small config struct - minimal alignment benefit
type MetricsConfig struct {
	PublishInterval time.Duration `json:"publishInterval"`
	DataDog         DataDogConfig `json:"datadog"`
	Enabled         bool          `json:"enabled"`
}

// DataDogConfig contains configuration for DataDog metrics publishing.
//
//nolint:govet // Small config struct - minimal alignment benefit
type DataDogConfig struct {
	Tags      []string `json:"tags"`
	AgentHost string   `json:"agentHost"`
	Prefix    string   `json:"prefix"`
	Port      int      `json:"port"`
	Enabled   bool     `json:"enabled"`
}
