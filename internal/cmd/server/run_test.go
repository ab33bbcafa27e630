package serverrun

import (
	"context"
	"testing"
	"time"

	"github.com/rzbill/logstore/internal/codec"
	cfgpkg "github.com/rzbill/logstore/internal/config"
	"github.com/rzbill/logstore/internal/runtime"
)

func testConfig(t *testing.T) cfgpkg.Config {
	cfg := cfgpkg.Default()
	cfg.DataDir = t.TempDir()
	cfg.Fsync = "never"
	cfg.MetricsAddr = ""
	return cfg
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	opened := make(chan *runtime.Runtime, 1)
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Options{Config: cfg, Ready: func(rt *runtime.Runtime) { opened <- rt }})
	}()

	var rt *runtime.Runtime
	select {
	case rt = <-opened:
	case err := <-done:
		t.Fatalf("run exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("store did not open")
	}
	if _, err := rt.Storage().PutLog("analytics", &codec.Log{Type: "event", Timestamp: time.Now()}).Wait(ctx); err != nil {
		t.Fatalf("put: %v", err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("run did not return after cancel")
	}
	if !rt.Storage().Closed() {
		t.Fatal("storage should be shut down")
	}
}

func TestRunDataSurvivesRestart(t *testing.T) {
	cfg := testConfig(t)
	for i := 0; i < 2; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		var count int
		err := Run(ctx, Options{Config: cfg, Ready: func(rt *runtime.Runtime) {
			defer cancel()
			st := rt.Storage()
			if _, err := st.PutLog("crashes", &codec.Log{Type: "event", Timestamp: time.Now()}).Wait(ctx); err != nil {
				t.Errorf("put: %v", err)
			}
			count, _ = st.CountLogs("crashes").Wait(ctx)
		}})
		cancel()
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if count != i+1 {
			t.Fatalf("run %d: count=%d want %d", i, count, i+1)
		}
	}
}

func TestRunWithAdminServerAndCompaction(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	cfg := testConfig(t)
	cfg.Backend = cfgpkg.BackendMemory
	cfg.MetricsAddr = "127.0.0.1:0"

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Options{Config: cfg, CompactEvery: 10 * time.Millisecond, Ready: func(*runtime.Runtime) { close(ready) }})
	}()
	<-ready
	time.Sleep(50 * time.Millisecond)
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
}
