package logstore

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/rzbill/logstore/internal/codec"
	"github.com/rzbill/logstore/internal/engine"
	"github.com/rzbill/logstore/internal/logqueue"
	"github.com/rzbill/logstore/internal/storage"
	"github.com/rzbill/logstore/pkg/id"
	"github.com/rzbill/logstore/pkg/log"
)

// DefaultCapacity bounds channels without an explicit capacity.
const DefaultCapacity = 300

// Options configures a Storage.
type Options struct {
	// DefaultCapacity applies to channels without an override. Defaults to
	// DefaultCapacity.
	DefaultCapacity int
	// Capacities sets per channel overrides. Overrides persisted with
	// SetCapacity take precedence.
	Capacities map[string]int
	// CompressThreshold is the smallest body compressed with zstd. Zero uses
	// codec.DefaultCompressThreshold; negative disables compression.
	CompressThreshold int
	Logger            log.Logger
	Observer          Observer
	// IDs generates entry ids. A fresh generator is used when nil.
	IDs *id.Generator
}

// Storage is the durable log queue.
type Storage struct {
	adapter  storage.Adapter
	engine   *engine.Engine
	state    *logqueue.State
	codec    codec.Codec
	ids      *id.Generator
	logger   log.Logger
	observer Observer

	// configured holds Options.Capacities, restored by SetCapacity(ch, 0).
	configured map[string]int

	notifyMu sync.Mutex
	notifyCh chan struct{}
	closedCh chan struct{}
	closeMu  sync.Once
}

// Open builds a Storage over adapter and rebuilds queue state from what the
// adapter holds. It returns once that rebuild finished.
//
// The rebuild keeps only channel names and entry ids in memory. Adapters that
// implement storage.Scanner stream the log table row by row; any other
// adapter returns the whole table, bodies included, from a single Select,
// so peak memory during Open grows with the bytes stored.
func Open(ctx context.Context, adapter storage.Adapter, opts Options) (*Storage, error) {
	if adapter == nil {
		return nil, invalid("nil adapter")
	}
	if opts.DefaultCapacity <= 0 {
		opts.DefaultCapacity = DefaultCapacity
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNop()
	}
	if opts.Observer == nil {
		opts.Observer = NoopObserver{}
	}
	if opts.IDs == nil {
		opts.IDs = id.NewGenerator()
	}
	threshold := opts.CompressThreshold
	switch {
	case threshold == 0:
		threshold = codec.DefaultCompressThreshold
	case threshold < 0:
		threshold = 0
	}

	s := &Storage{
		adapter:    adapter,
		state:      logqueue.New(opts.DefaultCapacity),
		codec:      codec.Codec{CompressThreshold: threshold},
		ids:        opts.IDs,
		logger:     opts.Logger.WithComponent("logstore"),
		observer:   opts.Observer,
		configured: make(map[string]int, len(opts.Capacities)),
		notifyCh:   make(chan struct{}),
		closedCh:   make(chan struct{}),
	}
	for ch, n := range opts.Capacities {
		s.configured[ch] = n
	}
	s.engine = engine.New(engine.Options{Logger: opts.Logger})

	load := engine.Submit(s.engine, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.load(ctx, opts.Capacities)
	})
	if _, err := load.Wait(ctx); err != nil {
		s.engine.Shutdown(0)
		s.closeWaiters()
		return nil, err
	}
	return s, nil
}

// load runs on the engine before any other task.
func (s *Storage) load(ctx context.Context, capacities map[string]int) error {
	for ch, n := range capacities {
		s.state.SetCapacity(ch, n)
	}

	rows, err := s.adapter.Select(ctx, storage.TableChannels, storage.Predicate{}, 0)
	if err != nil {
		return s.storageErr("load", "", err)
	}
	for _, r := range rows {
		name, _ := r.Get(colChannelName)
		raw, _ := r.Get(colChannelCapacity)
		n, err := strconv.Atoi(raw)
		if name == "" || err != nil || n <= 0 {
			s.logger.Warn("ignoring malformed channel row", log.Str("channel", name), log.Str("capacity", raw))
			continue
		}
		s.state.SetCapacity(name, n)
	}

	loaded, skipped := 0, 0
	var damaged []string
	err = s.scanLogs(ctx, func(r storage.Row) {
		if key, ok := storage.CorruptKey(r); ok {
			damaged = append(damaged, key)
			return
		}
		ch, _ := r.Get(codec.ColChannel)
		entryID, _ := r.Get(codec.ColLogID)
		if ch == "" || entryID == "" {
			skipped++
			return
		}
		if parsed, err := id.Parse(entryID); err == nil {
			s.ids.Observe(parsed)
		}
		s.state.Load(ch, entryID)
		loaded++
	})
	if err != nil {
		return s.storageErr("load", "", err)
	}
	if skipped > 0 {
		s.logger.Warn("skipped rows without channel or entry id", log.Int("rows", skipped))
	}
	s.purgeCorrupt(ctx, "", damaged)

	// capacities may have shrunk since the data was written
	for _, ch := range s.state.Channels() {
		s.evict(ctx, s.state.PlanEviction(ch))
	}
	s.logger.Info("storage opened", log.Int("channels", len(s.state.Channels())), log.Int("logs", loaded))
	return nil
}

// scanLogs feeds every log row to fn. Adapters implementing storage.Scanner
// stream them; the rest return the table from one Select.
func (s *Storage) scanLogs(ctx context.Context, fn func(storage.Row)) error {
	if sc, ok := s.adapter.(storage.Scanner); ok {
		return sc.Scan(ctx, storage.TableLogs, storage.Predicate{}, func(r storage.Row) bool {
			fn(r)
			return true
		})
	}
	rows, err := s.adapter.Select(ctx, storage.TableLogs, storage.Predicate{}, 0)
	if err != nil {
		return err
	}
	for _, r := range rows {
		fn(r)
	}
	return nil
}

// submit runs fn as one engine task with observation around it.
func submit[T any](s *Storage, op string, fn func(ctx context.Context) (T, error)) *engine.Task[T] {
	return engine.Submit(s.engine, func(ctx context.Context) (T, error) {
		start := time.Now()
		v, err := fn(ctx)
		s.observer.OperationDone(op, time.Since(start), err)
		return v, err
	})
}

// reject returns a failed task. Closed storage wins over argument errors.
func reject[T any](s *Storage, err error) *engine.Task[T] {
	var zero T
	if s.engine.State() != engine.Running {
		return engine.Resolved(zero, ErrStorageClosed)
	}
	return engine.Resolved(zero, err)
}

func (s *Storage) storageErr(op, channel string, err error) error {
	s.observer.StorageFailed(op)
	s.logger.Error("storage operation failed", log.Operation(op), log.Str("channel", channel), log.Err(err))
	return &StorageError{Op: op, Channel: channel, Err: err}
}

// evict deletes the planned entries and drops them from the queue. A failed
// delete leaves them queued; the next plan for the channel includes them
// again. It returns the number of entries removed.
func (s *Storage) evict(ctx context.Context, plan logqueue.EvictionPlan) int {
	if plan.Overflow > 0 {
		s.logger.Debug("channel over capacity, entries held by outstanding batches",
			log.Str("channel", plan.Channel), log.Int("overflow", plan.Overflow))
	}
	if len(plan.Evict) == 0 {
		return 0
	}
	where := storage.Where(codec.ColChannel, plan.Channel).And(codec.ColLogID, plan.Evict...)
	if _, err := s.adapter.Delete(ctx, storage.TableLogs, where); err != nil {
		s.observer.StorageFailed("evict")
		s.observer.EvictionFailed(plan.Channel, len(plan.Evict))
		s.logger.Warn("eviction failed, will retry", log.Str("channel", plan.Channel), log.Int("logs", len(plan.Evict)), log.Err(err))
		return 0
	}
	s.state.Remove(plan.Channel, plan.Evict)
	s.observer.LogsEvicted(plan.Channel, len(plan.Evict))
	s.logger.Debug("evicted logs", log.Str("channel", plan.Channel), log.Int("logs", len(plan.Evict)))
	return len(plan.Evict)
}

// Compact asks the adapter to reclaim space left behind by deletes. It runs
// as one engine task so it never overlaps a put or read. The task reports
// false when the adapter has no compaction.
func (s *Storage) Compact() *engine.Task[bool] {
	c, ok := s.adapter.(storage.Compactor)
	return submit(s, "compact", func(ctx context.Context) (bool, error) {
		if !ok {
			return false, nil
		}
		if err := c.Compact(ctx); err != nil {
			return false, s.storageErr("compact", "", err)
		}
		s.logger.Debug("storage compacted")
		return true, nil
	})
}

// Shutdown stops accepting operations and waits up to timeout for admitted
// ones. The task reports whether everything finished in time.
func (s *Storage) Shutdown(timeout time.Duration) *engine.Task[bool] {
	return engine.Go(func() (bool, error) {
		drained := s.engine.Shutdown(timeout)
		s.closeWaiters()
		s.observer.ShutdownDone(drained)
		if drained {
			s.logger.Info("storage shut down")
		} else {
			s.logger.Warn("storage shutdown timed out", log.Duration("timeout", timeout))
		}
		return drained, nil
	})
}

// Pending reports how many operations are admitted but not finished.
func (s *Storage) Pending() int { return s.engine.Pending() }

// Closed reports whether Shutdown was called.
func (s *Storage) Closed() bool { return s.engine.State() != engine.Running }
