// Package memstore is a volatile storage.Adapter used by tests and by
// deployments that opt out of persistence.
package memstore

import (
	"context"
	"sync"

	"github.com/rzbill/logstore/internal/storage"
)

// Store keeps tables in process memory.
type Store struct {
	mu     sync.Mutex
	tables map[string][]storage.Row
	closed bool
}

var _ storage.Adapter = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{tables: make(map[string][]storage.Row)}
}

func (s *Store) check(ctx context.Context) error {
	if s.closed {
		return storage.ErrClosed
	}
	return ctx.Err()
}

// Insert appends copies of rows.
func (s *Store) Insert(ctx context.Context, table string, rows []storage.Row) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return 0, err
	}
	for _, r := range rows {
		s.tables[table] = append(s.tables[table], r.Clone())
	}
	return len(rows), nil
}

// Select returns copies of up to limit matching rows.
func (s *Store) Select(ctx context.Context, table string, where storage.Predicate, limit int) ([]storage.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	var out []storage.Row
	for _, r := range s.tables[table] {
		if limit > 0 && len(out) >= limit {
			break
		}
		if where.Surfaces(r) {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

// Delete removes matching rows.
func (s *Store) Delete(ctx context.Context, table string, where storage.Predicate) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return 0, err
	}
	rows := s.tables[table]
	kept := rows[:0]
	for _, r := range rows {
		if !where.Match(r) {
			kept = append(kept, r)
		}
	}
	n := len(rows) - len(kept)
	for i := len(kept); i < len(rows); i++ {
		rows[i] = nil
	}
	s.tables[table] = kept
	return n, nil
}

// Count reports matching rows.
func (s *Store) Count(ctx context.Context, table string, where storage.Predicate) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return 0, err
	}
	n := 0
	for _, r := range s.tables[table] {
		if where.Surfaces(r) {
			n++
		}
	}
	return n, nil
}

// Close drops all data; later calls fail with storage.ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.tables = nil
	return nil
}
