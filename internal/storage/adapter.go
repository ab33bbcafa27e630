package storage

import (
	"context"
	"errors"
)

// Table names used by the log store.
const (
	TableLogs     = "LogEntry"
	TableChannels = "Channel"
)

// Errors shared by all backends. Driver specific failures are wrapped so that
// callers can match them with errors.Is.
var (
	ErrClosed    = errors.New("storage: closed")
	ErrCorrupted = errors.New("storage: data corrupted")
	ErrTooLarge  = errors.New("storage: write too large")
)

// Adapter is the minimal storage primitive: insert, conditional select,
// delete and count over named tables. Rows come back in insertion order.
type Adapter interface {
	// Insert stores rows atomically; either all rows are written or none.
	Insert(ctx context.Context, table string, rows []Row) (int, error)
	// Select returns up to limit rows matching where. limit <= 0 means no limit.
	Select(ctx context.Context, table string, where Predicate, limit int) ([]Row, error)
	// Delete removes every row matching where and reports how many went away.
	Delete(ctx context.Context, table string, where Predicate) (int, error)
	// Count reports how many rows match where.
	Count(ctx context.Context, table string, where Predicate) (int, error)
}

// Scanner is implemented by adapters that can stream rows matching where in
// insertion order without collecting them first. Scanning stops when fn
// returns false. fn must not call back into the adapter.
type Scanner interface {
	Scan(ctx context.Context, table string, where Predicate, fn func(Row) bool) error
}

// Compactor is implemented by adapters that can reclaim space left behind by
// deleted rows. Callers must not overlap it with other adapter calls.
type Compactor interface {
	Compact(ctx context.Context) error
}
