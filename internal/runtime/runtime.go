package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	cfgpkg "github.com/rzbill/logstore/internal/config"
	"github.com/rzbill/logstore/internal/logstore"
	"github.com/rzbill/logstore/internal/metrics"
	"github.com/rzbill/logstore/internal/storage"
	badgerstore "github.com/rzbill/logstore/internal/storage/badger"
	"github.com/rzbill/logstore/internal/storage/memstore"
	pebblestore "github.com/rzbill/logstore/internal/storage/pebble"
	"github.com/rzbill/logstore/pkg/log"
)

// Options for building the Runtime.
type Options struct {
	Config cfgpkg.Config
	Logger log.Logger
	// Metrics receives observations; a fresh set is created when nil.
	Metrics *metrics.Metrics
}

type backend interface {
	storage.Adapter
	io.Closer
}

// Runtime wires the configured backend, the log store and metrics for one
// process.
type Runtime struct {
	config  cfgpkg.Config
	logger  log.Logger
	metrics *metrics.Metrics
	backend backend
	store   *logstore.Storage
}

// Open initializes the backend and the log store.
func Open(ctx context.Context, opts Options) (*Runtime, error) {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}

	be, err := openBackend(cfg, logger, m)
	if err != nil {
		return nil, err
	}

	store, err := logstore.Open(ctx, be, logstore.Options{
		DefaultCapacity:   cfg.DefaultChannelCapacity,
		Capacities:        cfg.ChannelCapacities,
		CompressThreshold: compressThreshold(cfg.CompressionThresholdBytes),
		Logger:            logger,
		Observer:          m,
	})
	if err != nil {
		_ = be.Close()
		return nil, err
	}
	m.RegisterPendingGauge(store.Pending)

	logger.WithComponent("runtime").Info("runtime opened",
		log.Str("backend", cfg.Backend), log.Str("storeDir", cfg.StoreDir()))
	return &Runtime{config: cfg, logger: logger.WithComponent("runtime"), metrics: m, backend: be, store: store}, nil
}

// compressThreshold maps the configured byte count onto logstore semantics,
// where zero means "use the default" and a negative value disables it.
func compressThreshold(n int) int {
	if n <= 0 {
		return -1
	}
	return n
}

func openBackend(cfg cfgpkg.Config, logger log.Logger, m *metrics.Metrics) (backend, error) {
	switch cfg.Backend {
	case cfgpkg.BackendPebble:
		db, err := pebblestore.Open(pebblestore.Options{
			DataDir:       cfg.StoreDir(),
			Fsync:         pebblestore.ParseFsyncMode(cfg.Fsync),
			FsyncInterval: time.Duration(cfg.FsyncIntervalMs) * time.Millisecond,
			Metrics:       m,
			Logger:        logger,
		})
		if err != nil {
			return nil, fmt.Errorf("runtime: open pebble: %w", err)
		}
		tables, err := pebblestore.NewTables(db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return tables, nil
	case cfgpkg.BackendBadger:
		s, err := badgerstore.Open(badgerstore.Options{
			Dir:        cfg.StoreDir(),
			SyncWrites: cfg.Fsync == "always",
			Logger:     logger,
		})
		if err != nil {
			return nil, fmt.Errorf("runtime: open badger: %w", err)
		}
		return s, nil
	case cfgpkg.BackendMemory:
		return memstore.New(), nil
	default:
		return nil, fmt.Errorf("runtime: unknown backend %q", cfg.Backend)
	}
}

// Storage returns the log store.
func (r *Runtime) Storage() *logstore.Storage { return r.store }

// Metrics returns the metrics the store reports into.
func (r *Runtime) Metrics() *metrics.Metrics { return r.metrics }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }

// ShutdownTimeout is the configured drain budget.
func (r *Runtime) ShutdownTimeout() time.Duration {
	return time.Duration(r.config.ShutdownTimeoutMs) * time.Millisecond
}

// CheckHealth verifies that the store still accepts and executes work.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.store == nil {
		return errors.New("storage not open")
	}
	_, err := r.store.Channels().Wait(ctx)
	return err
}

// Compact reclaims space left behind by deleted logs. The backend work is
// queued behind every operation already admitted to the store.
func (r *Runtime) Compact(ctx context.Context) error {
	_, err := r.store.Compact().Wait(ctx)
	return err
}

// Close shuts the store down within timeout and closes the backend. It
// reports whether every admitted operation finished. When they did not, the
// backend is left open for the stragglers.
func (r *Runtime) Close(timeout time.Duration) (bool, error) {
	drained, err := r.store.Shutdown(timeout).Wait(context.Background())
	if err != nil {
		return false, err
	}
	if !drained {
		r.logger.Warn("storage did not drain, leaving backend open", log.Duration("timeout", timeout))
		return false, nil
	}
	if err := r.backend.Close(); err != nil {
		return true, fmt.Errorf("runtime: close backend: %w", err)
	}
	return true, nil
}
