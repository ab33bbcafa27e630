package httpserver

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rzbill/logstore/internal/runtime"
	"github.com/rzbill/logstore/pkg/log"
)

type Server struct {
	rt     *runtime.Runtime
	srv    *http.Server
	logger log.Logger

	mu  sync.Mutex
	lis net.Listener
}

// New builds the admin server for rt.
func New(rt *runtime.Runtime, logger log.Logger) *Server {
	if logger == nil {
		logger = log.NewNop()
	}
	mux := http.NewServeMux()
	s := &Server{rt: rt, logger: logger.WithComponent("http"), srv: &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}}
	mux.Handle("/metrics", rt.Metrics().Handler())
	mux.HandleFunc("/v1/healthz", s.handleHealth)
	mux.HandleFunc("/v1/channels", s.handleChannels)
	return s
}

// Handler exposes the routes, mostly for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Addr is the bound listen address once ListenAndServe has started.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lis == nil {
		return nil
	}
	return s.lis.Addr()
}

// ListenAndServe serves on addr until ctx ends, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.lis = l
	s.mu.Unlock()
	s.logger.Info("admin http listening", log.Str("addr", l.Addr().String()))
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (s *Server) Close() {
	_ = s.srv.Close()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.rt.CheckHealth(ctx); err != nil {
		s.logger.Warn("health check failed", log.Err(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_serving"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type channelView struct {
	Name        string `json:"name"`
	Capacity    int    `json:"capacity"`
	Queued      int    `json:"queued"`
	Outstanding int    `json:"outstanding"`
}

func (s *Server) handleChannels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	infos, err := s.rt.Storage().Channels().Wait(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	out := make([]channelView, 0, len(infos))
	for _, ci := range infos {
		out = append(out, channelView{Name: ci.Name, Capacity: ci.Capacity, Queued: ci.Queued, Outstanding: ci.Outstanding})
	}
	writeJSON(w, http.StatusOK, map[string]any{"channels": out})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
