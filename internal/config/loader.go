package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Load loads configuration from a JSON file.
// If the file doesn't exist, returns default configuration.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, use defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithEnv loads configuration from a JSON file and applies environment overrides.
func LoadWithEnv(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RECYCLER_DEFAULT_RETENTION"); v != "" {
		cfg.Defaults.Retention = parseDuration(v, cfg.Defaults.Retention)
	}
	if v := os.Getenv("RECYCLER_SNAPSHOT_READS"); v != "" {
		cfg.Defaults.SnapshotReads = parseBool(v)
	}

	if v := os.Getenv("RECYCLER_LIMITER_ENABLED"); v != "" {
		cfg.Limiter.Enabled = parseBool(v)
	}
	if v := os.Getenv("RECYCLER_LIMITER_MAX_CONCURRENT"); v != "" {
		cfg.Limiter.MaxConcurrent = parseInt(v, cfg.Limiter.MaxConcurrent)
	}
	if v := os.Getenv("RECYCLER_LIMITER_MAX_QUEUE"); v != "" {
		cfg.Limiter.MaxQueue = parseInt(v, cfg.Limiter.MaxQueue)
	}
	if v := os.Getenv("RECYCLER_LIMITER_ACQUIRE_TIMEOUT"); v != "" {
		cfg.Limiter.AcquireTimeout = parseDuration(v, cfg.Limiter.AcquireTimeout)
	}

	if v := os.Getenv("RECYCLER_SNAPSHOT_ENABLED"); v != "" {
		cfg.Snapshot.Enabled = parseBool(v)
	}
	if v := os.Getenv("RECYCLER_SNAPSHOT_MAX_SIZE_MB"); v != "" {
		cfg.Snapshot.MaxSizeMB = parseInt(v, cfg.Snapshot.MaxSizeMB)
	}
	if v := os.Getenv("RECYCLER_SNAPSHOT_WINDOW"); v != "" {
		cfg.Snapshot.Window = parseDuration(v, cfg.Snapshot.Window)
	}

	if v := os.Getenv("RECYCLER_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}

	if v := os.Getenv("DD_AGENT_HOST"); v != "" {
		cfg.Metrics.DataDog.AgentHost = v
		cfg.Metrics.DataDog.Enabled = true
	}
	if v := os.Getenv("DD_DOGSTATSD_PORT"); v != "" {
		cfg.Metrics.DataDog.Port = parseInt(v, cfg.Metrics.DataDog.Port)
	}
	if v := os.Getenv("DD_SERVICE"); v != "" {
		cfg.Metrics.DataDog.Prefix = v
	}
	if v := os.Getenv("DD_ENV"); v != "" {
		cfg.Metrics.DataDog.Tags = append(cfg.Metrics.DataDog.Tags, "env:"+v)
	}
	if v := os.Getenv("DD_VERSION"); v != "" {
		cfg.Metrics.DataDog.Tags = append(cfg.Metrics.DataDog.Tags, "version:"+v)
	}

	if v := os.Getenv("RECYCLER_DATADOG_ENABLED"); v != "" {
		if os.Getenv("DD_AGENT_HOST") == "" {
			cfg.Metrics.DataDog.Enabled = parseBool(v)
		}
	}
	if v := os.Getenv("RECYCLER_DATADOG_PREFIX"); v != "" {
		if os.Getenv("DD_SERVICE") == "" {
			cfg.Metrics.DataDog.Prefix = v
		}
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Defaults.Retention < 0 {
		return fmt.Errorf("defaults.retention must not be negative")
	}

	if c.Limiter.Enabled {
		if c.Limiter.MaxConcurrent <= 0 {
			return fmt.Errorf("limiter.maxConcurrent must be positive")
		}
		if c.Limiter.MaxQueue < 0 {
			return fmt.Errorf("limiter.maxQueue must not be negative")
		}
	}

	if c.Snapshot.Enabled {
		if c.Snapshot.MaxSizeMB <= 0 {
			return fmt.Errorf("snapshot.maxSizeMB must be positive")
		}
		if c.Snapshot.Shards <= 0 || (c.Snapshot.Shards&(c.Snapshot.Shards-1)) != 0 {
			return fmt.Errorf("snapshot.shards must be a positive power of 2")
		}
		if c.Snapshot.Window <= 0 {
			return fmt.Errorf("snapshot.window must be positive")
		}
	}

	return nil
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

func parseInt(s string, defaultVal int) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return defaultVal
	}
	return v
}

func parseDuration(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)

	if d, err := time.ParseDuration(s); err == nil {
		return d
	}

	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(secs) * time.Second
	}

	return defaultVal
}
