package logstore

import (
	"context"
	"strconv"

	"github.com/rzbill/logstore/internal/codec"
	"github.com/rzbill/logstore/internal/engine"
	"github.com/rzbill/logstore/internal/storage"
	"github.com/rzbill/logstore/pkg/log"
)

// Columns of the channel table.
const (
	colChannelName     = "Name"
	colChannelCapacity = "Capacity"
)

// ChannelInfo summarizes one channel.
type ChannelInfo struct {
	Name        string
	Capacity    int
	Queued      int
	Outstanding int
}

// Channels lists every known channel in name order.
func (s *Storage) Channels() *engine.Task[[]ChannelInfo] {
	return submit(s, "channels", func(ctx context.Context) ([]ChannelInfo, error) {
		names := s.state.Channels()
		out := make([]ChannelInfo, 0, len(names))
		for _, name := range names {
			out = append(out, ChannelInfo{
				Name:        name,
				Capacity:    s.state.Capacity(name),
				Queued:      s.state.Count(name),
				Outstanding: s.state.Outstanding(name),
			})
		}
		return out, nil
	})
}

// ReleaseBatches forgets every outstanding batch of channel so its logs are
// handed out again. It returns the number of released batches.
func (s *Storage) ReleaseBatches(channel string) *engine.Task[int] {
	if channel == "" {
		return reject[int](s, invalid("empty channel"))
	}
	return submit(s, "release", func(ctx context.Context) (int, error) {
		n := s.state.Release(channel)
		if n > 0 {
			s.logger.Info("released outstanding batches", log.Str("channel", channel), log.Int("batches", n))
		}
		s.observer.BatchesOutstanding(channel, 0)
		return n, nil
	})
}

// DeleteChannel removes every stored log of channel, outstanding ones
// included, and returns how many rows were deleted.
func (s *Storage) DeleteChannel(channel string) *engine.Task[int] {
	if channel == "" {
		return reject[int](s, invalid("empty channel"))
	}
	return submit(s, "purge", func(ctx context.Context) (int, error) {
		n, err := s.adapter.Delete(ctx, storage.TableLogs, storage.Where(codec.ColChannel, channel))
		if err != nil {
			return 0, s.storageErr("purge", channel, err)
		}
		s.state.Drop(channel)
		s.observer.LogsDeleted(channel, n)
		s.observer.BatchesOutstanding(channel, 0)
		s.logger.Info("deleted channel logs", log.Str("channel", channel), log.Int("logs", n))
		return n, nil
	})
}

// SetCapacity persists a capacity override for channel and evicts any
// overflow. n == 0 removes the override, falling back to Options.Capacities
// and then to the default. It returns the number of evicted logs.
//
// The new row is written before older ones are removed. Rows load in
// insertion order with the last one winning, so a failure in between never
// changes the capacity seen after a restart.
func (s *Storage) SetCapacity(channel string, n int) *engine.Task[int] {
	if channel == "" {
		return reject[int](s, invalid("empty channel"))
	}
	if n < 0 {
		return reject[int](s, invalid("capacity must not be negative, got %d", n))
	}
	return submit(s, "capacity", func(ctx context.Context) (int, error) {
		where := storage.Where(colChannelName, channel)
		if n == 0 {
			if _, err := s.adapter.Delete(ctx, storage.TableChannels, where); err != nil {
				return 0, s.storageErr("capacity", channel, err)
			}
			s.state.SetCapacity(channel, s.configured[channel])
		} else {
			if err := s.replaceCapacity(ctx, channel, n); err != nil {
				return 0, err
			}
			s.state.SetCapacity(channel, n)
		}
		evicted := s.evict(ctx, s.state.PlanEviction(channel))
		s.logger.Info("channel capacity changed", log.Str("channel", channel), log.Int("capacity", s.state.Capacity(channel)), log.Int("evicted", evicted))
		return evicted, nil
	})
}

func (s *Storage) replaceCapacity(ctx context.Context, channel string, n int) error {
	where := storage.Where(colChannelName, channel)
	rows, err := s.adapter.Select(ctx, storage.TableChannels, where, 0)
	if err != nil {
		return s.storageErr("capacity", channel, err)
	}
	value := strconv.Itoa(n)
	var stale []string
	for _, r := range rows {
		if v, _ := r.Get(colChannelCapacity); v != value {
			stale = append(stale, v)
		}
	}
	if len(rows) == 0 || len(stale) > 0 {
		row := storage.Row{
			{Name: colChannelName, Value: channel},
			{Name: colChannelCapacity, Value: value},
		}
		if _, err := s.adapter.Insert(ctx, storage.TableChannels, []storage.Row{row}); err != nil {
			return s.storageErr("capacity", channel, err)
		}
	}
	if len(stale) == 0 {
		return nil
	}
	if _, err := s.adapter.Delete(ctx, storage.TableChannels, where.And(colChannelCapacity, stale...)); err != nil {
		// the new row is already last; the stale ones are removed next time
		s.observer.StorageFailed("capacity")
		s.logger.Warn("failed to remove old capacity rows", log.Str("channel", channel), log.Err(err))
	}
	return nil
}
