// Package badgerstore persists logstore tables in BadgerDB.
//
// It shares the key layout and row record format of the Pebble backend, so
// the two are interchangeable behind storage.Adapter.
package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"

	"github.com/rzbill/logstore/internal/storage"
	"github.com/rzbill/logstore/pkg/log"
)

// Options configures a Store.
type Options struct {
	// Dir is the database directory. Ignored when InMemory is set.
	Dir string
	// InMemory keeps everything in RAM; nothing survives Close.
	InMemory bool
	// SyncWrites makes every commit durable before returning.
	SyncWrites bool
	// Logger receives Badger's internal logging. Nil silences it.
	Logger log.Logger
}

// Store implements storage.Adapter on a Badger instance.
type Store struct {
	db     *badger.DB
	closed atomic.Bool
}

var (
	_ storage.Adapter   = (*Store)(nil)
	_ storage.Compactor = (*Store)(nil)
	_ storage.Scanner   = (*Store)(nil)
)

// Open creates or opens a Badger database.
func Open(opts Options) (*Store, error) {
	var bo badger.Options
	if opts.InMemory {
		bo = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.Dir == "" {
			return nil, errors.New("badger: Options.Dir is required")
		}
		if err := os.MkdirAll(opts.Dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", opts.Dir, err)
		}
		bo = badger.DefaultOptions(opts.Dir).WithValueDir(opts.Dir)
	}
	bo = bo.
		WithValueLogFileSize(64 << 20).
		WithNumVersionsToKeep(1).
		WithCompactL0OnClose(true).
		WithDetectConflicts(false).
		WithNumCompactors(2).
		WithBlockCacheSize(32 << 20).
		WithIndexCacheSize(16 << 20).
		WithSyncWrites(opts.SyncWrites)
	if opts.Logger != nil {
		bo = bo.WithLogger(badgerLogger{l: opts.Logger.WithComponent("badger")})
	} else {
		bo = bo.WithLogger(nil)
	}

	db, err := badger.Open(bo)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", WrapError(err))
	}
	return &Store{db: db}, nil
}

// Close closes the database. Subsequent calls are no-ops.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return WrapError(s.db.Close())
}

func (s *Store) check(ctx context.Context) error {
	if s.closed.Load() {
		return storage.ErrClosed
	}
	return ctx.Err()
}

// Insert appends rows to table in one transaction.
func (s *Store) Insert(ctx context.Context, table string, rows []storage.Row) (int, error) {
	if err := s.check(ctx); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	metaKey := storage.KeyTableMeta(table)
	err := s.db.Update(func(txn *badger.Txn) error {
		var seq uint64
		item, err := txn.Get(metaKey)
		switch {
		case err == nil:
			if err := item.Value(func(v []byte) error {
				seq = storage.DecodeSeq(v)
				return nil
			}); err != nil {
				return err
			}
		case errors.Is(err, badger.ErrKeyNotFound):
		default:
			return err
		}
		for _, r := range rows {
			seq++
			if err := txn.Set(storage.KeyTableRow(table, seq), storage.EncodeRow(r)); err != nil {
				return err
			}
		}
		return txn.Set(metaKey, storage.EncodeSeq(seq))
	})
	if err != nil {
		return 0, WrapError(err)
	}
	return len(rows), nil
}

// iterate visits the rows of table in key order until fn returns false.
// Records failing their checksum are passed as storage.CorruptRow.
func (s *Store) iterate(ctx context.Context, txn *badger.Txn, table string, fn func(key []byte, row storage.Row) bool) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = storage.KeyTableRowPrefix(table)
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		item := it.Item()
		var (
			row   storage.Row
			valid bool
		)
		if err := item.Value(func(v []byte) error {
			row, valid = storage.DecodeRow(v)
			return nil
		}); err != nil {
			return err
		}
		key := item.KeyCopy(nil)
		if !valid {
			row = storage.CorruptRow(key)
		}
		if !fn(key, row) {
			return nil
		}
	}
	return nil
}

// Select returns up to limit rows matching where, in insertion order.
func (s *Store) Select(ctx context.Context, table string, where storage.Predicate, limit int) ([]storage.Row, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	var out []storage.Row
	err := s.db.View(func(txn *badger.Txn) error {
		return s.iterate(ctx, txn, table, func(_ []byte, row storage.Row) bool {
			if !where.Surfaces(row) {
				return true
			}
			out = append(out, row)
			return limit <= 0 || len(out) < limit
		})
	})
	if err != nil {
		return nil, WrapError(err)
	}
	return out, nil
}

// Scan streams matching rows to fn inside one read transaction.
func (s *Store) Scan(ctx context.Context, table string, where storage.Predicate, fn func(storage.Row) bool) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	err := s.db.View(func(txn *badger.Txn) error {
		return s.iterate(ctx, txn, table, func(_ []byte, row storage.Row) bool {
			if !where.Surfaces(row) {
				return true
			}
			return fn(row)
		})
	})
	return WrapError(err)
}

// Delete removes matching rows in one transaction.
func (s *Store) Delete(ctx context.Context, table string, where storage.Predicate) (int, error) {
	if err := s.check(ctx); err != nil {
		return 0, err
	}
	n := 0
	err := s.db.Update(func(txn *badger.Txn) error {
		var keys [][]byte
		if err := s.iterate(ctx, txn, table, func(key []byte, row storage.Row) bool {
			if where.Match(row) {
				keys = append(keys, key)
			}
			return true
		}); err != nil {
			return err
		}
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		n = len(keys)
		return nil
	})
	if err != nil {
		return 0, WrapError(err)
	}
	return n, nil
}

// Count reports matching rows.
func (s *Store) Count(ctx context.Context, table string, where storage.Predicate) (int, error) {
	if err := s.check(ctx); err != nil {
		return 0, err
	}
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		return s.iterate(ctx, txn, table, func(_ []byte, row storage.Row) bool {
			if where.Surfaces(row) {
				n++
			}
			return true
		})
	})
	return n, WrapError(err)
}

// Compact runs value log GC with a 0.5 discard ratio.
func (s *Store) Compact(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.RunGC(0.5)
}

// RunGC reclaims value log space until Badger reports nothing to rewrite.
func (s *Store) RunGC(discardRatio float64) error {
	if s.closed.Load() {
		return storage.ErrClosed
	}
	for {
		err := s.db.RunValueLogGC(discardRatio)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("GC failed: %w", WrapError(err))
		}
	}
}
