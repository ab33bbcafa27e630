package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Backend names accepted in Config.Backend.
const (
	BackendPebble = "pebble"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	DataDir                   string         `json:"dataDir" yaml:"dataDir"`
	Backend                   string         `json:"backend" yaml:"backend"`
	Fsync                     string         `json:"fsync" yaml:"fsync"`
	FsyncIntervalMs           int            `json:"fsyncIntervalMs" yaml:"fsyncIntervalMs"`
	DefaultChannelCapacity    int            `json:"defaultChannelCapacity" yaml:"defaultChannelCapacity"`
	ChannelCapacities         map[string]int `json:"channelCapacities" yaml:"channelCapacities"`
	ShutdownTimeoutMs         int            `json:"shutdownTimeoutMs" yaml:"shutdownTimeoutMs"`
	CompressionThresholdBytes int            `json:"compressionThresholdBytes" yaml:"compressionThresholdBytes"`
	Log                       LogConfig      `json:"log" yaml:"log"`
	MetricsAddr               string         `json:"metricsAddr" yaml:"metricsAddr"`
}

// LogConfig selects logger level and output format.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		DataDir:                   DefaultDataDir(),
		Backend:                   BackendPebble,
		Fsync:                     "interval",
		FsyncIntervalMs:           5,
		DefaultChannelCapacity:    300,
		ShutdownTimeoutMs:         5000,
		CompressionThresholdBytes: 1024,
		Log:                       LogConfig{Level: "info", Format: "json"},
		MetricsAddr:               "127.0.0.1:9464",
	}
}

// Load reads configuration from a JSON or YAML file (by extension). If path
// is empty, returns defaults. Fields absent from the file keep their defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	return cfg, nil
}

// Validate reports configuration that cannot be used.
func (c Config) Validate() error {
	var errs []error
	switch c.Backend {
	case BackendPebble, BackendBadger:
		if c.DataDir == "" {
			errs = append(errs, fmt.Errorf("dataDir is required for backend %q", c.Backend))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q", c.Backend))
	}
	switch c.Fsync {
	case "", "always", "interval", "never":
	default:
		errs = append(errs, fmt.Errorf("unknown fsync mode %q", c.Fsync))
	}
	if c.DefaultChannelCapacity <= 0 {
		errs = append(errs, errors.New("defaultChannelCapacity must be positive"))
	}
	for ch, n := range c.ChannelCapacities {
		if ch == "" || n <= 0 {
			errs = append(errs, fmt.Errorf("invalid capacity %d for channel %q", n, ch))
		}
	}
	if c.ShutdownTimeoutMs < 0 {
		errs = append(errs, errors.New("shutdownTimeoutMs must not be negative"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
