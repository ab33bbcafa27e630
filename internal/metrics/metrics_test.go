package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/rzbill/logstore/internal/logstore"
	pebblestore "github.com/rzbill/logstore/internal/storage/pebble"
)

var (
	_ logstore.Observer       = (*Metrics)(nil)
	_ pebblestore.MetricsHook = (*Metrics)(nil)
)

func TestObserverCounters(t *testing.T) {
	m := New()

	m.LogPut("analytics")
	m.LogPut("analytics")
	if got := testutil.ToFloat64(m.logsPut.WithLabelValues("analytics")); got != 2 {
		t.Fatalf("expected put counter 2, got %f", got)
	}

	m.LogsEvicted("analytics", 3)
	if got := testutil.ToFloat64(m.logsEvicted.WithLabelValues("analytics")); got != 3 {
		t.Fatalf("expected evicted counter 3, got %f", got)
	}

	m.EvictionFailed("analytics", 2)
	if got := testutil.ToFloat64(m.evictFailures.WithLabelValues("analytics")); got != 2 {
		t.Fatalf("expected eviction failure counter 2, got %f", got)
	}

	m.BatchesOutstanding("analytics", 4)
	m.BatchesOutstanding("analytics", 1)
	if got := testutil.ToFloat64(m.outstanding.WithLabelValues("analytics")); got != 1 {
		t.Fatalf("expected outstanding gauge 1, got %f", got)
	}

	m.StorageFailed("put")
	if got := testutil.ToFloat64(m.storageErrors.WithLabelValues("put")); got != 1 {
		t.Fatalf("expected storage error counter 1, got %f", got)
	}

	m.OperationDone("get", time.Millisecond, nil)
	m.OperationDone("get", time.Millisecond, errors.New("x"))
	if samples := testutil.CollectAndCount(m.opLatency); samples != 2 {
		t.Fatalf("expected 2 latency series, got %d", samples)
	}

	m.ShutdownDone(false)
	if got := testutil.ToFloat64(m.shutdowns.WithLabelValues("timeout")); got != 1 {
		t.Fatalf("expected timeout shutdown 1, got %f", got)
	}
}

func TestStorageHook(t *testing.T) {
	m := New()
	m.ObserveWrite(time.Millisecond, 100)
	m.ObserveRead(time.Millisecond, 40)
	m.ObserveBatchCommit(time.Millisecond, 2, 100)
	if got := testutil.ToFloat64(m.kvBytes.WithLabelValues("write")); got != 100 {
		t.Fatalf("expected 100 written bytes, got %f", got)
	}
	if samples := testutil.CollectAndCount(m.kvCommit); samples != 1 {
		t.Fatalf("expected commit histogram sample, got %d", samples)
	}
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.RegisterPendingGauge(func() int { return 7 })
	m.LogPut("c")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{"logstore_engine_pending_tasks 7", `logstore_logs_put_total{channel="c"} 1`} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("missing %q in exposition", want)
		}
	}
}
