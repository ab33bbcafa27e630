package serverrun

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	cfgpkg "github.com/rzbill/logstore/internal/config"
	"github.com/rzbill/logstore/internal/runtime"
	httpserver "github.com/rzbill/logstore/internal/server/http"
	logpkg "github.com/rzbill/logstore/pkg/log"
)

type Options struct {
	Config cfgpkg.Config
	Logger logpkg.Logger
	// CompactEvery triggers background compaction; zero disables it.
	CompactEvery time.Duration
	// Ready, when set, is called once the store is open.
	Ready func(rt *runtime.Runtime)
}

// Run opens the store and the admin HTTP server and blocks until ctx is
// cancelled or a termination signal arrives.
func Run(ctx context.Context, opts Options) error {
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewNop()
	}
	cfg := opts.Config
	if cfg.DataDir == "" {
		cfg.DataDir = cfgpkg.DefaultDataDir()
	}

	rt, err := runtime.Open(sctx, runtime.Options{Config: cfg, Logger: logger})
	if err != nil {
		return err
	}

	logger.Info("Starting log store",
		logpkg.Str("backend", cfg.Backend),
		logpkg.Str("data_dir", cfg.DataDir),
		logpkg.Str("metrics", cfg.MetricsAddr),
		logpkg.Int("default_capacity", cfg.DefaultChannelCapacity),
	)

	var wg sync.WaitGroup
	var hsrv *httpserver.Server
	if cfg.MetricsAddr != "" {
		hsrv = httpserver.New(rt, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := hsrv.ListenAndServe(sctx, cfg.MetricsAddr); err != nil && sctx.Err() == nil {
				logger.Error("admin http error", logpkg.Err(err))
			}
		}()
	}
	if opts.CompactEvery > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			compactLoop(sctx, rt, opts.CompactEvery, logger)
		}()
	}
	if opts.Ready != nil {
		opts.Ready(rt)
	}

	<-sctx.Done()
	// Stop the HTTP surface before the store so no handler races the shutdown.
	if hsrv != nil {
		hsrv.Close()
	}
	wg.Wait()

	timeout := rt.ShutdownTimeout()
	drained, err := rt.Close(timeout)
	if err != nil {
		return err
	}
	if !drained {
		logger.Warn("log store did not finish pending operations before exit", logpkg.Duration("timeout", timeout))
	}
	return nil
}

func compactLoop(ctx context.Context, rt *runtime.Runtime, every time.Duration, logger logpkg.Logger) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := rt.Compact(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("compaction failed", logpkg.Err(err))
			}
		}
	}
}
