package config

import "time"

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Defaults: DefaultsConfig{
			Retention:     0,
			SnapshotReads: false,
		},
		Limiter: LimiterConfig{
			Enabled:        false,
			MaxConcurrent:  64,
			MaxQueue:       128,
			AcquireTimeout: 30 * time.Second,
		},
		Snapshot: SnapshotConfig{
			Enabled:         false,
			MaxSizeMB:       64,
			Window:          15 * time.Minute,
			CleanupInterval: 10 * time.Second,
			Shards:          1024,
			MaxEntrySize:    1024 * 1024, // 1MB
		},
		Metrics: MetricsConfig{
			Enabled:         true,
			PublishInterval: 10 * time.Second,
			DataDog: DataDogConfig{
				Enabled:   false,
				AgentHost: "127.0.0.1",
				Port:      8125,
				Prefix:    "taskrecycler",
				Tags:      []string{},
			},
		},
		TaskValidation: TaskValidationConfig{
			Enabled:           true,
			MaxNameLength:     1024,
			AllowControlChars: false,
			AllowWhitespace:   true,
		},
	}
}

// ForTesting returns a minimal configuration suitable for unit tests.
func ForTesting() *Config {
	return &Config{
		Defaults: DefaultsConfig{
			Retention:     0,
			SnapshotReads: false,
		},
		Limiter: LimiterConfig{
			Enabled:        false,
			MaxConcurrent:  8,
			MaxQueue:       4,
			AcquireTimeout: 50 * time.Millisecond,
		},
		Snapshot: SnapshotConfig{
			Enabled:         false,
			MaxSizeMB:       16,
			Window:          1 * time.Minute,
			CleanupInterval: 1 * time.Second,
			Shards:          64,
			MaxEntrySize:    1024 * 1024, // 1MB
		},
		Metrics: MetricsConfig{
			Enabled:         false,
			PublishInterval: 1 * time.Second,
		},
		TaskValidation: TaskValidationConfig{
			Enabled:           true,
			MaxNameLength:     1024,
			AllowControlChars: false,
			AllowWhitespace:   true,
		},
	}
}

// ForTestingWithSnapshot returns a test config with the snapshot store enabled.
func ForTestingWithSnapshot() *Config {
	cfg := ForTesting()
	cfg.Snapshot.Enabled = true
	cfg.Defaults.SnapshotReads = true
	return cfg
}
