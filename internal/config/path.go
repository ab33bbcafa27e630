package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// DefaultDataDir returns the per user directory that holds queued logs.
// System wide locations such as /var/lib are never chosen.
//
//	linux, bsd  $XDG_STATE_HOME/logstore or ~/.local/state/logstore
//	darwin      ~/Library/Application Support/logstore
//	windows     %LocalAppData%\logstore
//
// Without a home directory it falls back to ./logstore-data.
func DefaultDataDir() string {
	home, _ := os.UserHomeDir()
	return dataDir(runtime.GOOS, os.Getenv, home)
}

func dataDir(goos string, getenv func(string) string, home string) string {
	const name = "logstore"
	switch goos {
	case "windows":
		if local := getenv("LocalAppData"); local != "" {
			return filepath.Join(local, name)
		}
		if home != "" {
			return filepath.Join(home, "AppData", "Local", name)
		}
	case "darwin", "ios":
		if home != "" {
			return filepath.Join(home, "Library", "Application Support", name)
		}
	default:
		// XDG requires an absolute path; relative values are ignored.
		if state := getenv("XDG_STATE_HOME"); filepath.IsAbs(state) {
			return filepath.Join(state, name)
		}
		if home != "" {
			return filepath.Join(home, ".local", "state", name)
		}
	}
	return "./logstore-data"
}

// StoreDir is the directory the configured backend keeps its files in. Each
// durable backend gets its own subdirectory of DataDir, so switching backends
// never opens the other engine's files. It is empty for the memory backend.
func (c Config) StoreDir() string {
	switch c.Backend {
	case BackendPebble, BackendBadger:
		return filepath.Join(c.DataDir, c.Backend)
	default:
		return ""
	}
}
