package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dgraph-io/badger/v4"

	"github.com/rzbill/logstore/internal/storage"
	"github.com/rzbill/logstore/internal/storage/storagetest"
)

func TestAdapterContractOnDisk(t *testing.T) {
	storagetest.RunAdapterSuite(t, func(t *testing.T) (storage.Adapter, func() storage.Adapter) {
		dir := t.TempDir()
		s, err := Open(Options{Dir: dir})
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		t.Cleanup(func() { _ = s.Close() })
		reopen := func() storage.Adapter {
			_ = s.Close()
			s, err = Open(Options{Dir: dir})
			if err != nil {
				t.Fatalf("reopen: %v", err)
			}
			return s
		}
		return s, reopen
	})
}

func TestAdapterContractInMemory(t *testing.T) {
	storagetest.RunAdapterSuite(t, func(t *testing.T) (storage.Adapter, func() storage.Adapter) {
		s, err := Open(Options{InMemory: true})
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		t.Cleanup(func() { _ = s.Close() })
		return s, nil
	})
}

func TestClosedStore(t *testing.T) {
	s, err := Open(Options{InMemory: true})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := s.Count(context.Background(), storage.TableLogs, storage.Predicate{}); !errors.Is(err, storage.ErrClosed) {
		t.Fatalf("want ErrClosed, got %v", err)
	}
	if err := s.RunGC(0.5); !errors.Is(err, storage.ErrClosed) {
		t.Fatalf("want ErrClosed from GC, got %v", err)
	}
	if err := s.Compact(context.Background()); !errors.Is(err, storage.ErrClosed) {
		t.Fatalf("want ErrClosed from compact, got %v", err)
	}
}

func TestWrapError(t *testing.T) {
	cases := []struct {
		in   error
		want error
	}{
		{badger.ErrDBClosed, storage.ErrClosed},
		{badger.ErrTxnTooBig, storage.ErrTooLarge},
		{fmt.Errorf("open: %w", badger.ErrTruncateNeeded), storage.ErrCorrupted},
	}
	for _, tc := range cases {
		if got := WrapError(tc.in); !errors.Is(got, tc.want) {
			t.Fatalf("WrapError(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
	if WrapError(nil) != nil {
		t.Fatalf("nil should stay nil")
	}
	if !IsFatal(WrapError(badger.ErrDBClosed)) {
		t.Fatalf("closed should be fatal")
	}
}

func TestCorruptRecordIsSurfacedAndPurgeable(t *testing.T) {
	s, err := Open(Options{InMemory: true})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	ctx := context.Background()

	row := storage.Row{{Name: "Channel", Value: "c"}, {Name: "LogId", Value: "1"}}
	if _, err := s.Insert(ctx, storage.TableLogs, []storage.Row{row}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	key := storage.KeyTableRow(storage.TableLogs, 1)
	err = s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		val[len(val)-1] ^= 0xff
		return txn.Set(key, val)
	})
	if err != nil {
		t.Fatalf("corrupt: %v", err)
	}

	rows, err := s.Select(ctx, storage.TableLogs, storage.Where("Channel", "c"), 0)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows %+v", rows)
	}
	corruptKey, ok := storage.CorruptKey(rows[0])
	if !ok {
		t.Fatalf("want corrupt stand-in, got %+v", rows[0])
	}
	if n, err := s.Delete(ctx, storage.TableLogs, storage.Where(storage.ColCorruptKey, corruptKey)); err != nil || n != 1 {
		t.Fatalf("delete: n=%d err=%v", n, err)
	}
	if n, _ := s.Count(ctx, storage.TableLogs, storage.Predicate{}); n != 0 {
		t.Fatalf("count after purge %d", n)
	}
}
