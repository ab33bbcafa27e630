package config

import (
	"path/filepath"
	"testing"
)

func TestDataDirPerPlatform(t *testing.T) {
	env := func(vars map[string]string) func(string) string {
		return func(k string) string { return vars[k] }
	}
	tests := []struct {
		name string
		goos string
		env  map[string]string
		home string
		want string
	}{
		{name: "linux xdg", goos: "linux", env: map[string]string{"XDG_STATE_HOME": "/xdg/state"}, home: "/home/u", want: "/xdg/state/logstore"},
		{name: "linux relative xdg ignored", goos: "linux", env: map[string]string{"XDG_STATE_HOME": "state"}, home: "/home/u", want: "/home/u/.local/state/logstore"},
		{name: "linux home", goos: "linux", home: "/home/u", want: "/home/u/.local/state/logstore"},
		{name: "freebsd home", goos: "freebsd", home: "/usr/home/u", want: "/usr/home/u/.local/state/logstore"},
		{name: "darwin", goos: "darwin", env: map[string]string{"XDG_STATE_HOME": "/xdg/state"}, home: "/Users/u", want: "/Users/u/Library/Application Support/logstore"},
		{name: "windows local app data", goos: "windows", env: map[string]string{"LocalAppData": "/c/Users/u/AppData/Local"}, home: "/c/Users/u", want: filepath.Join("/c/Users/u/AppData/Local", "logstore")},
		{name: "windows home", goos: "windows", home: "/c/Users/u", want: filepath.Join("/c/Users/u", "AppData", "Local", "logstore")},
		{name: "no home", goos: "linux", want: "./logstore-data"},
		{name: "darwin no home", goos: "darwin", want: "./logstore-data"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dataDir(tt.goos, env(tt.env), tt.home); got != tt.want {
				t.Fatalf("dataDir = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDefaultDataDirNeverSystemWide(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "")
	got := DefaultDataDir()
	if got == "/var/lib/logstore" {
		t.Fatalf("picked a system directory")
	}
	if filepath.Base(got) != "logstore" && got != "./logstore-data" {
		t.Fatalf("unexpected data dir %s", got)
	}
}

func TestStoreDirPerBackend(t *testing.T) {
	cfg := Default()
	cfg.DataDir = "/data"
	cfg.Backend = BackendPebble
	pebbleDir := cfg.StoreDir()
	cfg.Backend = BackendBadger
	badgerDir := cfg.StoreDir()
	if pebbleDir != filepath.Join("/data", "pebble") || badgerDir != filepath.Join("/data", "badger") {
		t.Fatalf("store dirs pebble=%s badger=%s", pebbleDir, badgerDir)
	}
	cfg.Backend = BackendMemory
	if dir := cfg.StoreDir(); dir != "" {
		t.Fatalf("memory backend store dir %q", dir)
	}
}
