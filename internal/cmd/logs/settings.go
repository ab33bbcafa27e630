package logscmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cfgpkg "github.com/rzbill/logstore/internal/config"
	"github.com/rzbill/logstore/internal/runtime"
	"github.com/rzbill/logstore/pkg/log"
)

// Settings resolves configuration from a config file, LOGSTORE_* environment
// variables and persistent flags, in increasing precedence.
type Settings struct {
	v *viper.Viper
}

// NewSettings returns Settings bound to LOGSTORE_* environment variables.
func NewSettings() *Settings {
	v := viper.New()
	v.SetEnvPrefix("LOGSTORE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return &Settings{v: v}
}

// BindFlags registers the persistent flags on root.
func (s *Settings) BindFlags(root *cobra.Command) {
	f := root.PersistentFlags()
	f.String("config", "", "Config file (JSON or YAML)")
	f.String("data-dir", "", "Data directory")
	f.String("backend", "", "Storage backend: pebble|badger|memory")
	f.String("fsync", "", "Fsync mode: always|interval|never")
	f.String("log-level", "", "Log level: debug|info|warn|error")
	f.String("log-format", "", "Log format: json|text")
	for _, name := range []string{"config", "data-dir", "backend", "fsync", "log-level", "log-format"} {
		_ = s.v.BindPFlag(name, f.Lookup(name))
	}
}

// Config loads the effective configuration.
func (s *Settings) Config() (cfgpkg.Config, error) {
	cfg, err := cfgpkg.Load(s.v.GetString("config"))
	if err != nil {
		return cfgpkg.Config{}, err
	}
	cfgpkg.FromEnv(&cfg)
	if v := s.v.GetString("data-dir"); v != "" {
		cfg.DataDir = v
	}
	if v := s.v.GetString("backend"); v != "" {
		cfg.Backend = v
	}
	if v := s.v.GetString("fsync"); v != "" {
		cfg.Fsync = v
	}
	if v := s.v.GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if v := s.v.GetString("log-format"); v != "" {
		cfg.Log.Format = v
	}
	return cfg, cfg.Validate()
}

// Logger builds the process logger from cfg. Operator commands log to
// stderr so stdout stays machine readable.
func Logger(cfg cfgpkg.Config) (log.Logger, error) {
	return log.ApplyConfig(&log.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: "stderr"})
}

// OpenFunc opens a runtime for one command invocation.
type OpenFunc func(ctx context.Context) (*runtime.Runtime, error)

// Opener returns an OpenFunc backed by s.
func (s *Settings) Opener() OpenFunc {
	return func(ctx context.Context) (*runtime.Runtime, error) {
		cfg, err := s.Config()
		if err != nil {
			return nil, err
		}
		logger, err := Logger(cfg)
		if err != nil {
			return nil, err
		}
		return runtime.Open(ctx, runtime.Options{Config: cfg, Logger: logger})
	}
}
