package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzbill/logstore/internal/codec"
	cfgpkg "github.com/rzbill/logstore/internal/config"
	"github.com/rzbill/logstore/internal/runtime"
)

func openRuntime(t *testing.T) *runtime.Runtime {
	t.Helper()
	cfg := cfgpkg.Default()
	cfg.Backend = cfgpkg.BackendMemory
	rt, err := runtime.Open(context.Background(), runtime.Options{Config: cfg})
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = rt.Close(time.Second) })
	return rt
}

func put(t *testing.T, rt *runtime.Runtime, channel string) {
	t.Helper()
	_, err := rt.Storage().PutLog(channel, &codec.Log{Type: "event", Timestamp: time.Now()}).Wait(context.Background())
	require.NoError(t, err)
}

func serve(s *Server, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestHealthHandler(t *testing.T) {
	rt := openRuntime(t)
	s := New(rt, nil)
	assert.Equal(t, http.StatusOK, serve(s, http.MethodGet, "/v1/healthz").Code)

	_, err := rt.Close(time.Second)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, serve(s, http.MethodGet, "/v1/healthz").Code)
}

func TestChannelsHandler(t *testing.T) {
	rt := openRuntime(t)
	put(t, rt, "analytics")
	s := New(rt, nil)

	w := serve(s, http.MethodGet, "/v1/channels")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Channels []channelView `json:"channels"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Len(t, body.Channels, 1)
	assert.Equal(t, "analytics", body.Channels[0].Name)
	assert.Equal(t, 1, body.Channels[0].Queued)
	assert.Equal(t, 300, body.Channels[0].Capacity)

	assert.Equal(t, http.StatusMethodNotAllowed, serve(s, http.MethodPost, "/v1/channels").Code)
}

func TestMetricsHandler(t *testing.T) {
	rt := openRuntime(t)
	put(t, rt, "crashes")
	s := New(rt, nil)

	w := serve(s, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "logstore_logs_put_total")
	assert.Contains(t, w.Body.String(), "logstore_engine_pending_tasks")
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	rt := openRuntime(t)
	s := New(rt, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()

	require.Eventually(t, func() bool {
		addr := s.Addr()
		if addr == nil {
			return false
		}
		resp, err := http.Get("http://" + addr.String() + "/v1/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
