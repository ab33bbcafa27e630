// Package config loads logstore configuration. Default() supplies the
// baseline, Load reads a JSON or YAML file over it and FromEnv overlays
// LOGSTORE_* environment variables.
//
//	cfg, err := config.Load("/etc/logstore.yaml")
//	if err != nil { /* handle */ }
//	config.FromEnv(&cfg)
//	if err := cfg.Validate(); err != nil { /* handle */ }
package config
