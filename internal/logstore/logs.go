package logstore

import (
	"context"
	"errors"

	"github.com/rzbill/logstore/internal/codec"
	"github.com/rzbill/logstore/internal/engine"
	"github.com/rzbill/logstore/internal/storage"
	"github.com/rzbill/logstore/pkg/log"
)

// Batch is the result of GetLogs. An empty ID means nothing was pending.
type Batch struct {
	ID       string
	Channel  string
	Logs     []codec.Log
	EntryIDs []string
	// Corrupt lists rows that could not be decoded. They were purged and are
	// not part of the batch.
	Corrupt []*codec.DecodeError
}

// Empty reports whether the batch carries no logs.
func (b Batch) Empty() bool { return b.ID == "" }

// PutLog persists l in channel and returns its entry id.
//
// When the channel goes over capacity the oldest logs not held by an
// outstanding batch are evicted in the same task. A failed eviction delete
// does not fail the put: the log is stored, the eviction is retried by the
// next put, and the failure is reported through Observer.EvictionFailed.
func (s *Storage) PutLog(channel string, l *codec.Log) *engine.Task[string] {
	if channel == "" {
		return reject[string](s, invalid("empty channel"))
	}
	if err := l.Validate(); err != nil {
		return reject[string](s, invalid("%v", err))
	}
	logCopy := *l
	return submit(s, "put", func(ctx context.Context) (string, error) {
		entryID := s.ids.Next().String()
		row := s.codec.Encode(channel, entryID, &logCopy)
		if _, err := s.adapter.Insert(ctx, storage.TableLogs, []storage.Row{row}); err != nil {
			return "", s.storageErr("put", channel, err)
		}
		plan := s.state.Enqueue(channel, entryID)
		s.observer.LogPut(channel)
		s.evict(ctx, plan)
		s.notify()
		return entryID, nil
	})
}

// GetLogs hands out up to limit of the oldest pending logs of channel as a
// new outstanding batch.
func (s *Storage) GetLogs(channel string, limit int) *engine.Task[Batch] {
	if channel == "" {
		return reject[Batch](s, invalid("empty channel"))
	}
	if limit <= 0 {
		return reject[Batch](s, invalid("limit must be positive, got %d", limit))
	}
	return submit(s, "get", func(ctx context.Context) (Batch, error) {
		out := Batch{Channel: channel}
		for {
			pending := s.state.Pending(channel, limit)
			if len(pending) == 0 {
				return out, nil
			}
			where := storage.Where(codec.ColChannel, channel).And(codec.ColLogID, pending...)
			rows, err := s.adapter.Select(ctx, storage.TableLogs, where, 0)
			if err != nil {
				return Batch{Channel: channel}, s.storageErr("get", channel, err)
			}
			byID := make(map[string]storage.Row, len(rows))
			var damaged []string
			for _, r := range rows {
				if key, ok := storage.CorruptKey(r); ok {
					out.Corrupt = append(out.Corrupt, corruptRecord(key))
					damaged = append(damaged, key)
					continue
				}
				v, _ := r.Get(codec.ColLogID)
				byID[v] = r
			}
			s.purgeCorrupt(ctx, channel, damaged)

			var vanished, corrupt []string
			for _, entryID := range pending {
				r, ok := byID[entryID]
				if !ok {
					vanished = append(vanished, entryID)
					continue
				}
				e, err := s.codec.Decode(r)
				if err != nil {
					var de *codec.DecodeError
					if !errors.As(err, &de) {
						de = &codec.DecodeError{EntryID: entryID, Reason: "decode", Err: err}
					}
					out.Corrupt = append(out.Corrupt, de)
					corrupt = append(corrupt, entryID)
					continue
				}
				out.Logs = append(out.Logs, e.Log)
				out.EntryIDs = append(out.EntryIDs, entryID)
			}

			removed := s.dropMissing(ctx, channel, vanished, corrupt)
			if len(out.EntryIDs) > 0 || removed == 0 {
				break
			}
		}
		if len(out.EntryIDs) == 0 {
			return out, nil
		}
		b := s.state.Track(channel, out.EntryIDs)
		out.ID = b.ID
		s.observer.BatchesOutstanding(channel, s.state.Outstanding(channel))
		return out, nil
	})
}

// corruptRecord reports a stored record that failed its checksum. Its entry
// id is unknown; the queued id it belonged to is dropped as vanished.
func corruptRecord(key string) *codec.DecodeError {
	return &codec.DecodeError{Column: storage.ColCorruptKey, Reason: "record " + key + " failed its checksum", Err: storage.ErrCorrupted}
}

// purgeCorrupt deletes records that failed their checksum by key.
func (s *Storage) purgeCorrupt(ctx context.Context, channel string, keys []string) {
	if len(keys) == 0 {
		return
	}
	for range keys {
		s.observer.DecodeFailed(channel)
	}
	if _, err := s.adapter.Delete(ctx, storage.TableLogs, storage.Where(storage.ColCorruptKey, keys...)); err != nil {
		s.observer.StorageFailed("purge")
		s.logger.Warn("failed to purge corrupt records", log.Int("records", len(keys)), log.Err(err))
		return
	}
	s.logger.Warn("purged records that failed their checksum", log.Str("channel", channel), log.Int("records", len(keys)))
}

// dropMissing forgets entries whose rows are gone and purges undecodable
// ones. It returns how many entries left the queue.
func (s *Storage) dropMissing(ctx context.Context, channel string, vanished, corrupt []string) int {
	removed := 0
	if len(vanished) > 0 {
		s.logger.Warn("queued logs missing from storage", log.Str("channel", channel), log.Int("logs", len(vanished)))
		s.state.Remove(channel, vanished)
		removed += len(vanished)
	}
	if len(corrupt) == 0 {
		return removed
	}
	for range corrupt {
		s.observer.DecodeFailed(channel)
	}
	where := storage.Where(codec.ColChannel, channel).And(codec.ColLogID, corrupt...)
	if _, err := s.adapter.Delete(ctx, storage.TableLogs, where); err != nil {
		s.observer.StorageFailed("purge")
		s.logger.Warn("failed to purge corrupt logs", log.Str("channel", channel), log.Int("logs", len(corrupt)), log.Err(err))
		return removed
	}
	s.logger.Warn("purged corrupt logs", log.Str("channel", channel), log.Int("logs", len(corrupt)))
	s.state.Remove(channel, corrupt)
	return removed + len(corrupt)
}

// DeleteLogs removes the logs of a delivered batch. Unknown batch ids are
// ignored. On failure the batch stays outstanding.
func (s *Storage) DeleteLogs(channel, batchID string) *engine.Task[struct{}] {
	if channel == "" {
		return reject[struct{}](s, invalid("empty channel"))
	}
	return submit(s, "delete", func(ctx context.Context) (struct{}, error) {
		members, ok := s.state.Members(channel, batchID)
		if !ok {
			s.logger.Debug("delete of unknown batch ignored", log.Str("channel", channel), log.Str("batch", batchID))
			return struct{}{}, nil
		}
		where := storage.Where(codec.ColChannel, channel).And(codec.ColLogID, members...)
		n, err := s.adapter.Delete(ctx, storage.TableLogs, where)
		if err != nil {
			return struct{}{}, s.storageErr("delete", channel, err)
		}
		if _, err := s.state.Acknowledge(channel, batchID); err != nil {
			return struct{}{}, err
		}
		s.observer.LogsDeleted(channel, n)
		s.observer.BatchesOutstanding(channel, s.state.Outstanding(channel))
		return struct{}{}, nil
	})
}

// CountLogs reports how many logs of channel are stored, outstanding ones
// included.
func (s *Storage) CountLogs(channel string) *engine.Task[int] {
	if channel == "" {
		return reject[int](s, invalid("empty channel"))
	}
	return submit(s, "count", func(ctx context.Context) (int, error) {
		n, err := s.adapter.Count(ctx, storage.TableLogs, storage.Where(codec.ColChannel, channel))
		if err != nil {
			return 0, s.storageErr("count", channel, err)
		}
		if queued := s.state.Count(channel); queued != n {
			s.logger.Warn("stored and queued counts differ", log.Str("channel", channel), log.Int("stored", n), log.Int("queued", queued))
		}
		return n, nil
	})
}
