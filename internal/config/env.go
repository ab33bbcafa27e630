package config

import (
	"os"
	"strconv"
	"strings"
)

// FromEnv overlays LOGSTORE_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("LOGSTORE_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("LOGSTORE_BACKEND"); v != "" {
		cfg.Backend = v
	}
	if v := os.Getenv("LOGSTORE_FSYNC"); v != "" {
		cfg.Fsync = v
	}
	if v := os.Getenv("LOGSTORE_FSYNC_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.FsyncIntervalMs = n
		}
	}
	if v := os.Getenv("LOGSTORE_DEFAULT_CHANNEL_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DefaultChannelCapacity = n
		}
	}
	if v := os.Getenv("LOGSTORE_SHUTDOWN_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ShutdownTimeoutMs = n
		}
	}
	if v := os.Getenv("LOGSTORE_COMPRESSION_THRESHOLD_BYTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.CompressionThresholdBytes = n
		}
	}
	if v := os.Getenv("LOGSTORE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOGSTORE_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("LOGSTORE_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	// channel=capacity pairs, comma separated
	if v := os.Getenv("LOGSTORE_CHANNEL_CAPACITIES"); v != "" {
		caps := make(map[string]int)
		for _, pair := range strings.Split(v, ",") {
			name, raw, ok := strings.Cut(strings.TrimSpace(pair), "=")
			if !ok {
				continue
			}
			if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
				caps[strings.TrimSpace(name)] = n
			}
		}
		cfg.ChannelCapacities = caps
	}
}
