package runtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rzbill/logstore/internal/codec"
	cfgpkg "github.com/rzbill/logstore/internal/config"
	"github.com/rzbill/logstore/internal/logstore"
)

func testConfig(t *testing.T, backend string) cfgpkg.Config {
	cfg := cfgpkg.Default()
	cfg.Backend = backend
	cfg.DataDir = t.TempDir()
	cfg.Fsync = "always"
	cfg.DefaultChannelCapacity = 2
	return cfg
}

func TestOpenCloseHealth(t *testing.T) {
	for _, backend := range []string{cfgpkg.BackendPebble, cfgpkg.BackendBadger, cfgpkg.BackendMemory} {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			rt, err := Open(ctx, Options{Config: testConfig(t, backend)})
			if err != nil {
				t.Fatalf("open runtime: %v", err)
			}
			if err := rt.CheckHealth(ctx); err != nil {
				t.Fatalf("health: %v", err)
			}
			for _, name := range []string{"a", "b", "c"} {
				l := &codec.Log{Type: "event", Timestamp: time.Now(), Properties: map[string]string{"name": name}}
				if _, err := rt.Storage().PutLog("ch", l).Wait(ctx); err != nil {
					t.Fatalf("put: %v", err)
				}
			}
			n, err := rt.Storage().CountLogs("ch").Wait(ctx)
			if err != nil || n != 2 {
				t.Fatalf("count=%d err=%v", n, err)
			}
			if err := rt.Compact(ctx); err != nil {
				t.Fatalf("compact: %v", err)
			}
			drained, err := rt.Close(time.Second)
			if err != nil || !drained {
				t.Fatalf("close drained=%v err=%v", drained, err)
			}
			if err := rt.CheckHealth(ctx); err == nil {
				t.Fatalf("health should fail after close")
			}
			if err := rt.Compact(ctx); !errors.Is(err, logstore.ErrStorageClosed) {
				t.Fatalf("compact after close: want ErrStorageClosed, got %v", err)
			}
		})
	}
}

func TestReopenPersists(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, cfgpkg.BackendPebble)
	rt, err := Open(ctx, Options{Config: cfg})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := rt.Storage().PutLog("ch", &codec.Log{Type: "event"}).Wait(ctx); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := rt.Close(time.Second); err != nil {
		t.Fatalf("close: %v", err)
	}

	rt, err = Open(ctx, Options{Config: cfg})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer rt.Close(time.Second)
	b, err := rt.Storage().GetLogs("ch", 10).Wait(ctx)
	if err != nil || len(b.Logs) != 1 {
		t.Fatalf("logs=%d err=%v", len(b.Logs), err)
	}
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	cfg := cfgpkg.Default()
	cfg.Backend = "floppy"
	if _, err := Open(context.Background(), Options{Config: cfg}); err == nil {
		t.Fatalf("expected error")
	}
}
