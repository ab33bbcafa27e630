package pebblestore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/rzbill/logstore/internal/storage"
)

// Tables implements storage.Adapter over a Pebble DB.
type Tables struct {
	db      *DB
	mu      sync.Mutex
	lastSeq map[string]uint64
}

var (
	_ storage.Adapter   = (*Tables)(nil)
	_ storage.Compactor = (*Tables)(nil)
	_ storage.Scanner   = (*Tables)(nil)
)

// NewTables wraps db. The returned Tables owns db and closes it on Close.
func NewTables(db *DB) (*Tables, error) {
	if db == nil {
		return nil, errors.New("pebble: nil db")
	}
	return &Tables{db: db, lastSeq: make(map[string]uint64)}, nil
}

// DB returns the underlying wrapper.
func (t *Tables) DB() *DB { return t.db }

// Close closes the underlying database.
func (t *Tables) Close() error { return t.db.Close() }

func (t *Tables) seq(table string) (uint64, error) {
	if s, ok := t.lastSeq[table]; ok {
		return s, nil
	}
	v, err := t.db.Get(storage.KeyTableMeta(table))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return storage.DecodeSeq(v), nil
}

// Insert appends rows to table in one atomic batch.
func (t *Tables) Insert(ctx context.Context, table string, rows []storage.Row) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	seq, err := t.seq(table)
	if err != nil {
		return 0, fmt.Errorf("pebble: read %s meta: %w", table, err)
	}
	start := time.Now()
	bytes := 0
	b := t.db.NewBatch()
	defer b.Close()
	for _, r := range rows {
		seq++
		rec := storage.EncodeRow(r)
		bytes += len(rec)
		if err := b.Set(storage.KeyTableRow(table, seq), rec, nil); err != nil {
			return 0, err
		}
	}
	if err := b.Set(storage.KeyTableMeta(table), storage.EncodeSeq(seq), nil); err != nil {
		return 0, err
	}
	if err := t.db.CommitBatch(ctx, b); err != nil {
		return 0, err
	}
	t.lastSeq[table] = seq
	t.db.metrics.ObserveWrite(time.Since(start), bytes)
	return len(rows), nil
}

// scan visits the rows of table in insertion order until fn returns false.
// Records failing their checksum are passed as storage.CorruptRow.
func (t *Tables) scan(ctx context.Context, table string, fn func(key []byte, row storage.Row) bool) error {
	prefix := storage.KeyTableRowPrefix(table)
	it, err := t.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: storage.PrefixUpperBound(prefix)})
	if err != nil {
		return err
	}
	defer it.Close()

	start := time.Now()
	bytes := 0
	for ok := it.First(); ok; ok = it.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		bytes += len(it.Value())
		key := append([]byte(nil), it.Key()...)
		row, valid := storage.DecodeRow(it.Value())
		if !valid {
			row = storage.CorruptRow(key)
		}
		if !fn(key, row) {
			break
		}
	}
	t.db.metrics.ObserveRead(time.Since(start), bytes)
	return it.Error()
}

// Select returns up to limit rows matching where, in insertion order.
// A limit <= 0 means no limit.
func (t *Tables) Select(ctx context.Context, table string, where storage.Predicate, limit int) ([]storage.Row, error) {
	var out []storage.Row
	err := t.scan(ctx, table, func(_ []byte, row storage.Row) bool {
		if !where.Surfaces(row) {
			return true
		}
		out = append(out, row)
		return limit <= 0 || len(out) < limit
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Scan streams rows matching where to fn in key order.
func (t *Tables) Scan(ctx context.Context, table string, where storage.Predicate, fn func(storage.Row) bool) error {
	return t.scan(ctx, table, func(_ []byte, row storage.Row) bool {
		if !where.Surfaces(row) {
			return true
		}
		return fn(row)
	})
}

// Delete removes every row matching where and reports how many were removed.
func (t *Tables) Delete(ctx context.Context, table string, where storage.Predicate) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var keys [][]byte
	err := t.scan(ctx, table, func(key []byte, row storage.Row) bool {
		if where.Match(row) {
			keys = append(keys, key)
		}
		return true
	})
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	b := t.db.NewBatch()
	defer b.Close()
	for _, k := range keys {
		if err := b.Delete(k, nil); err != nil {
			return 0, err
		}
	}
	if err := t.db.CommitBatch(ctx, b); err != nil {
		return 0, err
	}
	return len(keys), nil
}

// Count reports the number of rows matching where.
func (t *Tables) Count(ctx context.Context, table string, where storage.Predicate) (int, error) {
	n := 0
	err := t.scan(ctx, table, func(_ []byte, row storage.Row) bool {
		if where.Surfaces(row) {
			n++
		}
		return true
	})
	return n, err
}

// CompactTable asks Pebble to reclaim space held by deleted rows of table.
func (t *Tables) CompactTable(table string) error {
	prefix := storage.KeyTableRowPrefix(table)
	return t.db.CompactRange(prefix, storage.PrefixUpperBound(prefix))
}

// Compact compacts the log and channel tables.
func (t *Tables) Compact(ctx context.Context) error {
	for _, table := range []string{storage.TableLogs, storage.TableChannels} {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := t.CompactTable(table); err != nil {
			return err
		}
	}
	return nil
}
