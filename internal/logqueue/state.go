package logqueue

import (
	"errors"
	"sort"

	"github.com/google/uuid"
)

// ErrUnknownBatch is returned when a batch id is not outstanding.
var ErrUnknownBatch = errors.New("logqueue: unknown batch")

// Batch is a set of entries handed out together. An empty ID means nothing
// was pending.
type Batch struct {
	ID       string
	Channel  string
	EntryIDs []string
}

// Empty reports whether b carries no entries.
func (b Batch) Empty() bool { return b.ID == "" }

// EvictionPlan lists entries to delete to bring a channel back to capacity.
type EvictionPlan struct {
	Channel string
	Evict   []string
	// Overflow counts entries above capacity that could not be planned
	// because they belong to outstanding batches or were just enqueued.
	Overflow int
}

type channel struct {
	ids      []string
	present  map[string]struct{}
	capacity int // 0 means the state default
	batches  map[string][]string
	held     map[string]string // entry id -> batch id
}

func newChannel() *channel {
	return &channel{
		present: make(map[string]struct{}),
		batches: make(map[string][]string),
		held:    make(map[string]string),
	}
}

// State is the bookkeeping for every channel.
type State struct {
	defaultCapacity int
	channels        map[string]*channel
	newID           func() string
}

// New returns an empty State. defaultCapacity applies to channels without an
// explicit capacity and must be positive.
func New(defaultCapacity int) *State {
	if defaultCapacity <= 0 {
		defaultCapacity = 1
	}
	return &State{
		defaultCapacity: defaultCapacity,
		channels:        make(map[string]*channel),
		newID:           uuid.NewString,
	}
}

func (s *State) get(name string) *channel {
	ch, ok := s.channels[name]
	if !ok {
		ch = newChannel()
		s.channels[name] = ch
	}
	return ch
}

func (s *State) capacityOf(ch *channel) int {
	if ch.capacity > 0 {
		return ch.capacity
	}
	return s.defaultCapacity
}

// Load appends id without planning evictions. Used when rebuilding from storage.
func (s *State) Load(channel, id string) {
	ch := s.get(channel)
	if _, dup := ch.present[id]; dup {
		return
	}
	ch.ids = append(ch.ids, id)
	ch.present[id] = struct{}{}
}

// Enqueue appends id and plans evictions for any overflow. The appended id is
// never a candidate: when every older entry is held the channel stays over
// capacity until a batch is acknowledged or released.
func (s *State) Enqueue(channel, id string) EvictionPlan {
	s.Load(channel, id)
	return s.planEviction(channel, id)
}

// PlanEviction returns the entries to evict for channel without changing state.
func (s *State) PlanEviction(channel string) EvictionPlan {
	return s.planEviction(channel, "")
}

func (s *State) planEviction(channel, keep string) EvictionPlan {
	plan := EvictionPlan{Channel: channel}
	ch, ok := s.channels[channel]
	if !ok {
		return plan
	}
	over := len(ch.ids) - s.capacityOf(ch)
	if over <= 0 {
		return plan
	}
	for _, id := range ch.ids {
		if len(plan.Evict) == over {
			break
		}
		if _, held := ch.held[id]; held || id == keep {
			continue
		}
		plan.Evict = append(plan.Evict, id)
	}
	plan.Overflow = over - len(plan.Evict)
	return plan
}

// Pending returns up to limit of the oldest ids not held by a batch.
// A limit <= 0 returns all of them.
func (s *State) Pending(channel string, limit int) []string {
	ch, ok := s.channels[channel]
	if !ok {
		return nil
	}
	var out []string
	for _, id := range ch.ids {
		if limit > 0 && len(out) == limit {
			break
		}
		if _, held := ch.held[id]; !held {
			out = append(out, id)
		}
	}
	return out
}

// Track records ids as a new outstanding batch. ids must be queued and not
// already held; others are ignored.
func (s *State) Track(channel string, ids []string) Batch {
	ch := s.get(channel)
	members := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := ch.present[id]; !ok {
			continue
		}
		if _, held := ch.held[id]; held {
			continue
		}
		members = append(members, id)
	}
	if len(members) == 0 {
		return Batch{Channel: channel}
	}
	b := Batch{ID: s.newID(), Channel: channel, EntryIDs: members}
	ch.batches[b.ID] = members
	for _, id := range members {
		ch.held[id] = b.ID
	}
	return b
}

// RetrieveBatch tracks up to limit pending ids as a new batch.
func (s *State) RetrieveBatch(channel string, limit int) Batch {
	pending := s.Pending(channel, limit)
	if len(pending) == 0 {
		return Batch{Channel: channel}
	}
	return s.Track(channel, pending)
}

// Members returns the ids of an outstanding batch.
func (s *State) Members(channel, batchID string) ([]string, bool) {
	ch, ok := s.channels[channel]
	if !ok {
		return nil, false
	}
	ids, ok := ch.batches[batchID]
	if !ok {
		return nil, false
	}
	return append([]string(nil), ids...), true
}

// Acknowledge forgets a delivered batch and its entries.
func (s *State) Acknowledge(channel, batchID string) ([]string, error) {
	ids, ok := s.Members(channel, batchID)
	if !ok {
		return nil, ErrUnknownBatch
	}
	s.Remove(channel, ids)
	delete(s.channels[channel].batches, batchID)
	return ids, nil
}

// Release drops every outstanding batch of channel so its entries become
// pending again. It returns how many batches were released.
func (s *State) Release(channel string) int {
	ch, ok := s.channels[channel]
	if !ok {
		return 0
	}
	n := len(ch.batches)
	ch.batches = make(map[string][]string)
	ch.held = make(map[string]string)
	return n
}

// Remove forgets ids. Batches left without members are dropped.
func (s *State) Remove(channel string, ids []string) {
	ch, ok := s.channels[channel]
	if !ok || len(ids) == 0 {
		return
	}
	gone := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := ch.present[id]; !ok {
			continue
		}
		gone[id] = struct{}{}
		delete(ch.present, id)
		if b, held := ch.held[id]; held {
			delete(ch.held, id)
			ch.batches[b] = removeAll(ch.batches[b], gone)
			if len(ch.batches[b]) == 0 {
				delete(ch.batches, b)
			}
		}
	}
	ch.ids = removeAll(ch.ids, gone)
}

func removeAll(ids []string, gone map[string]struct{}) []string {
	kept := ids[:0]
	for _, id := range ids {
		if _, g := gone[id]; !g {
			kept = append(kept, id)
		}
	}
	return kept
}

// Drop forgets channel entirely and returns the ids it held.
func (s *State) Drop(channel string) []string {
	ch, ok := s.channels[channel]
	if !ok {
		return nil
	}
	capacity := ch.capacity
	delete(s.channels, channel)
	if capacity > 0 {
		s.get(channel).capacity = capacity
	}
	return ch.ids
}

// Count returns the number of queued ids in channel, outstanding included.
func (s *State) Count(channel string) int {
	if ch, ok := s.channels[channel]; ok {
		return len(ch.ids)
	}
	return 0
}

// Outstanding returns the number of outstanding batches of channel.
func (s *State) Outstanding(channel string) int {
	if ch, ok := s.channels[channel]; ok {
		return len(ch.batches)
	}
	return 0
}

// SetCapacity sets an explicit capacity for channel; n <= 0 restores the default.
func (s *State) SetCapacity(channel string, n int) {
	if n < 0 {
		n = 0
	}
	s.get(channel).capacity = n
}

// Capacity returns the effective capacity of channel.
func (s *State) Capacity(channel string) int {
	if ch, ok := s.channels[channel]; ok {
		return s.capacityOf(ch)
	}
	return s.defaultCapacity
}

// DefaultCapacity returns the capacity used by channels without an override.
func (s *State) DefaultCapacity() int { return s.defaultCapacity }

// Channels returns the known channel names in sorted order.
func (s *State) Channels() []string {
	names := make([]string, 0, len(s.channels))
	for name := range s.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
