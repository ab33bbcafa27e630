package storagetest

import (
	"context"
	"errors"
	"testing"

	"github.com/rzbill/logstore/internal/storage"
)

// Factory opens a fresh, empty adapter for one subtest. reopen, when not
// nil, closes the adapter and opens it again over the same data.
type Factory func(t *testing.T) (a storage.Adapter, reopen func() storage.Adapter)

func logRow(channel, id string) storage.Row {
	return storage.Row{
		{Name: "Channel", Value: channel},
		{Name: "LogId", Value: id},
		{Name: "Data", Value: "payload-" + id},
	}
}

func ids(t *testing.T, rows []storage.Row) []string {
	t.Helper()
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		v, ok := r.Get("LogId")
		if !ok {
			t.Fatalf("row without LogId: %+v", r)
		}
		out = append(out, v)
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// RunAdapterSuite exercises the storage.Adapter contract against a backend.
func RunAdapterSuite(t *testing.T, open Factory) {
	ctx := context.Background()

	t.Run("InsertSelectOrder", func(t *testing.T) {
		a, _ := open(t)
		for _, id := range []string{"3", "1", "2"} {
			if _, err := a.Insert(ctx, storage.TableLogs, []storage.Row{logRow("A", id)}); err != nil {
				t.Fatalf("insert: %v", err)
			}
		}
		if _, err := a.Insert(ctx, storage.TableLogs, []storage.Row{logRow("B", "9")}); err != nil {
			t.Fatalf("insert: %v", err)
		}
		rows, err := a.Select(ctx, storage.TableLogs, storage.Where("Channel", "A"), 0)
		if err != nil {
			t.Fatalf("select: %v", err)
		}
		if got := ids(t, rows); !equal(got, []string{"3", "1", "2"}) {
			t.Fatalf("order %v", got)
		}
		rows, err = a.Select(ctx, storage.TableLogs, storage.Where("Channel", "A"), 2)
		if err != nil {
			t.Fatalf("select: %v", err)
		}
		if got := ids(t, rows); !equal(got, []string{"3", "1"}) {
			t.Fatalf("limit %v", got)
		}
		all, err := a.Select(ctx, storage.TableLogs, storage.Predicate{}, 0)
		if err != nil {
			t.Fatalf("select all: %v", err)
		}
		if len(all) != 4 {
			t.Fatalf("want 4 rows, got %d", len(all))
		}
		if v, _ := all[3].Get("Data"); v != "payload-9" {
			t.Fatalf("columns not preserved: %+v", all[3])
		}
	})

	t.Run("DeleteAndCount", func(t *testing.T) {
		a, _ := open(t)
		rows := []storage.Row{logRow("A", "1"), logRow("A", "2"), logRow("A", "3"), logRow("B", "4")}
		if n, err := a.Insert(ctx, storage.TableLogs, rows); err != nil || n != 4 {
			t.Fatalf("insert n=%d err=%v", n, err)
		}
		n, err := a.Delete(ctx, storage.TableLogs, storage.Where("Channel", "A").And("LogId", "1", "3", "missing"))
		if err != nil {
			t.Fatalf("delete: %v", err)
		}
		if n != 2 {
			t.Fatalf("want 2 deleted, got %d", n)
		}
		if c, _ := a.Count(ctx, storage.TableLogs, storage.Where("Channel", "A")); c != 1 {
			t.Fatalf("count A=%d", c)
		}
		if c, _ := a.Count(ctx, storage.TableLogs, storage.Predicate{}); c != 2 {
			t.Fatalf("count all=%d", c)
		}
		if n, _ := a.Delete(ctx, storage.TableLogs, storage.Where("LogId")); n != 0 {
			t.Fatalf("empty IN list deleted %d rows", n)
		}
	})

	t.Run("TablesAreIsolated", func(t *testing.T) {
		a, _ := open(t)
		if _, err := a.Insert(ctx, storage.TableChannels, []storage.Row{{{Name: "Name", Value: "A"}, {Name: "Capacity", Value: "5"}}}); err != nil {
			t.Fatalf("insert: %v", err)
		}
		if c, _ := a.Count(ctx, storage.TableLogs, storage.Predicate{}); c != 0 {
			t.Fatalf("log table should be empty, got %d", c)
		}
		if c, _ := a.Count(ctx, storage.TableChannels, storage.Predicate{}); c != 1 {
			t.Fatalf("channel table count %d", c)
		}
	})

	t.Run("CorruptStandInsSurface", func(t *testing.T) {
		a, _ := open(t)
		rows := []storage.Row{logRow("A", "1"), storage.CorruptRow([]byte("bad"))}
		if _, err := a.Insert(ctx, storage.TableLogs, rows); err != nil {
			t.Fatalf("insert: %v", err)
		}
		got, err := a.Select(ctx, storage.TableLogs, storage.Where("Channel", "B"), 0)
		if err != nil || len(got) != 1 {
			t.Fatalf("stand-in should surface in every read: %+v err=%v", got, err)
		}
		key, _ := storage.CorruptKey(got[0])
		if c, _ := a.Count(ctx, storage.TableLogs, storage.Where("Channel", "A")); c != 2 {
			t.Fatalf("count %d want 2", c)
		}
		if n, _ := a.Delete(ctx, storage.TableLogs, storage.Where("Channel", "A")); n != 1 {
			t.Fatalf("channel delete removed %d", n)
		}
		if n, _ := a.Delete(ctx, storage.TableLogs, storage.Where(storage.ColCorruptKey, key)); n != 1 {
			t.Fatalf("delete by key removed %d", n)
		}
		if c, _ := a.Count(ctx, storage.TableLogs, storage.Predicate{}); c != 0 {
			t.Fatalf("count after purge %d", c)
		}
	})

	t.Run("ScanStreamsInOrder", func(t *testing.T) {
		a, _ := open(t)
		sc, ok := a.(storage.Scanner)
		if !ok {
			t.Skip("backend does not stream")
		}
		rows := []storage.Row{logRow("A", "1"), logRow("B", "2"), storage.CorruptRow([]byte("bad")), logRow("A", "3")}
		if _, err := a.Insert(ctx, storage.TableLogs, rows); err != nil {
			t.Fatalf("insert: %v", err)
		}
		var got []string
		corrupt := 0
		err := sc.Scan(ctx, storage.TableLogs, storage.Where("Channel", "A"), func(r storage.Row) bool {
			if _, bad := storage.CorruptKey(r); bad {
				corrupt++
				return true
			}
			got = append(got, ids(t, []storage.Row{r})...)
			return true
		})
		if err != nil {
			t.Fatalf("scan: %v", err)
		}
		if !equal(got, []string{"1", "3"}) || corrupt != 1 {
			t.Fatalf("scan got %v corrupt=%d", got, corrupt)
		}
		seen := 0
		if err := sc.Scan(ctx, storage.TableLogs, storage.Predicate{}, func(storage.Row) bool {
			seen++
			return false
		}); err != nil || seen != 1 {
			t.Fatalf("early stop seen=%d err=%v", seen, err)
		}
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if err := sc.Scan(cctx, storage.TableLogs, storage.Predicate{}, func(storage.Row) bool { return true }); !errors.Is(err, context.Canceled) {
			t.Fatalf("want context.Canceled, got %v", err)
		}
	})

	t.Run("ReopenKeepsRows", func(t *testing.T) {
		a, reopen := open(t)
		if reopen == nil {
			t.Skip("backend is not persistent")
		}
		if _, err := a.Insert(ctx, storage.TableLogs, []storage.Row{logRow("A", "1"), logRow("A", "2")}); err != nil {
			t.Fatalf("insert: %v", err)
		}
		a = reopen()
		if _, err := a.Insert(ctx, storage.TableLogs, []storage.Row{logRow("A", "3")}); err != nil {
			t.Fatalf("insert after reopen: %v", err)
		}
		rows, err := a.Select(ctx, storage.TableLogs, storage.Predicate{}, 0)
		if err != nil {
			t.Fatalf("select: %v", err)
		}
		if got := ids(t, rows); !equal(got, []string{"1", "2", "3"}) {
			t.Fatalf("order after reopen %v", got)
		}
	})

	t.Run("CanceledContext", func(t *testing.T) {
		a, _ := open(t)
		if _, err := a.Insert(ctx, storage.TableLogs, []storage.Row{logRow("A", "1")}); err != nil {
			t.Fatalf("insert: %v", err)
		}
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := a.Select(cctx, storage.TableLogs, storage.Predicate{}, 0); !errors.Is(err, context.Canceled) {
			t.Fatalf("want context.Canceled, got %v", err)
		}
	})
}
