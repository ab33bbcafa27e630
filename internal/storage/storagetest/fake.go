// Package storagetest provides an adapter contract suite and a fault
// injecting adapter for tests of code built on storage.Adapter.
package storagetest

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rzbill/logstore/internal/storage"
	"github.com/rzbill/logstore/internal/storage/memstore"
)

// Op names an adapter operation.
type Op string

const (
	OpInsert  Op = "insert"
	OpSelect  Op = "select"
	OpDelete  Op = "delete"
	OpCount   Op = "count"
	OpScan    Op = "scan"
	OpCompact Op = "compact"
)

// Hook runs before an operation reaches the backing store. A non-nil error
// fails the call without touching data.
type Hook func(ctx context.Context, table string) error

// Fake wraps an in-memory store with per operation hooks and concurrency
// accounting.
type Fake struct {
	inner *memstore.Store

	mu    sync.Mutex
	hooks map[Op]Hook
	calls map[Op]int

	active    atomic.Int32
	maxActive atomic.Int32
}

var (
	_ storage.Adapter   = (*Fake)(nil)
	_ storage.Compactor = (*Fake)(nil)
	_ storage.Scanner   = (*Fake)(nil)
)

// NewFake returns an empty Fake.
func NewFake() *Fake {
	return &Fake{inner: memstore.New(), hooks: make(map[Op]Hook), calls: make(map[Op]int)}
}

// SetHook installs h for op; a nil h removes it.
func (f *Fake) SetHook(op Op, h Hook) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if h == nil {
		delete(f.hooks, op)
		return
	}
	f.hooks[op] = h
}

// FailNext makes the next n calls of op return err.
func (f *Fake) FailNext(op Op, n int, err error) {
	var left atomic.Int32
	left.Store(int32(n))
	f.SetHook(op, func(context.Context, string) error {
		if left.Add(-1) >= 0 {
			return err
		}
		return nil
	})
}

// Calls reports how many times op was invoked.
func (f *Fake) Calls(op Op) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// MaxConcurrent reports the highest number of overlapping calls observed.
func (f *Fake) MaxConcurrent() int { return int(f.maxActive.Load()) }

// Store exposes the backing store for direct seeding.
func (f *Fake) Store() *memstore.Store { return f.inner }

func (f *Fake) enter(ctx context.Context, op Op, table string) (func(), error) {
	n := f.active.Add(1)
	for {
		m := f.maxActive.Load()
		if n <= m || f.maxActive.CompareAndSwap(m, n) {
			break
		}
	}
	f.mu.Lock()
	f.calls[op]++
	h := f.hooks[op]
	f.mu.Unlock()
	done := func() { f.active.Add(-1) }
	if h != nil {
		if err := h(ctx, table); err != nil {
			done()
			return nil, err
		}
	}
	return done, nil
}

func (f *Fake) Insert(ctx context.Context, table string, rows []storage.Row) (int, error) {
	done, err := f.enter(ctx, OpInsert, table)
	if err != nil {
		return 0, err
	}
	defer done()
	return f.inner.Insert(ctx, table, rows)
}

func (f *Fake) Select(ctx context.Context, table string, where storage.Predicate, limit int) ([]storage.Row, error) {
	done, err := f.enter(ctx, OpSelect, table)
	if err != nil {
		return nil, err
	}
	defer done()
	return f.inner.Select(ctx, table, where, limit)
}

func (f *Fake) Delete(ctx context.Context, table string, where storage.Predicate) (int, error) {
	done, err := f.enter(ctx, OpDelete, table)
	if err != nil {
		return 0, err
	}
	defer done()
	return f.inner.Delete(ctx, table, where)
}

func (f *Fake) Count(ctx context.Context, table string, where storage.Predicate) (int, error) {
	done, err := f.enter(ctx, OpCount, table)
	if err != nil {
		return 0, err
	}
	defer done()
	return f.inner.Count(ctx, table, where)
}

// Scan feeds fn from one Select of the backing store.
func (f *Fake) Scan(ctx context.Context, table string, where storage.Predicate, fn func(storage.Row) bool) error {
	done, err := f.enter(ctx, OpScan, table)
	if err != nil {
		return err
	}
	defer done()
	rows, err := f.inner.Select(ctx, table, where, 0)
	if err != nil {
		return err
	}
	for _, r := range rows {
		if !fn(r) {
			break
		}
	}
	return nil
}

// Compact only records the call; the backing store has nothing to reclaim.
func (f *Fake) Compact(ctx context.Context) error {
	done, err := f.enter(ctx, OpCompact, "")
	if err != nil {
		return err
	}
	defer done()
	return ctx.Err()
}

// Close closes the backing store.
func (f *Fake) Close() error { return f.inner.Close() }
