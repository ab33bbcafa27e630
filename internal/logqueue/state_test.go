package logqueue

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
)

func fill(s *State, channel string, n int) {
	for i := 1; i <= n; i++ {
		s.Load(channel, fmt.Sprint(i))
	}
}

func TestEnqueueEvictsOldestFirst(t *testing.T) {
	s := New(3)
	for _, id := range []string{"1", "2", "3"} {
		if plan := s.Enqueue("A", id); len(plan.Evict) != 0 {
			t.Fatalf("unexpected eviction %v", plan.Evict)
		}
	}
	plan := s.Enqueue("A", "4")
	if !reflect.DeepEqual(plan.Evict, []string{"1"}) {
		t.Fatalf("evict %v", plan.Evict)
	}
	// planned ids stay queued until removed
	if s.Count("A") != 4 {
		t.Fatalf("count %d", s.Count("A"))
	}
	s.Remove("A", plan.Evict)
	if got := s.Pending("A", 0); !reflect.DeepEqual(got, []string{"2", "3", "4"}) {
		t.Fatalf("pending %v", got)
	}
}

func TestEvictionSkipsOutstanding(t *testing.T) {
	s := New(2)
	s.Enqueue("A", "1")
	s.Enqueue("A", "2")
	b := s.RetrieveBatch("A", 1)
	if !reflect.DeepEqual(b.EntryIDs, []string{"1"}) {
		t.Fatalf("batch %v", b.EntryIDs)
	}
	plan := s.Enqueue("A", "3")
	if !reflect.DeepEqual(plan.Evict, []string{"2"}) {
		t.Fatalf("evict %v", plan.Evict)
	}
	s.Remove("A", plan.Evict)

	// the only unheld entry is the one just added: it is kept
	s2 := New(1)
	s2.Enqueue("A", "1")
	s2.RetrieveBatch("A", 0)
	plan = s2.Enqueue("A", "2")
	if len(plan.Evict) != 0 || plan.Overflow != 1 {
		t.Fatalf("new entry must be accepted over capacity: %+v", plan)
	}
	if s2.Count("A") != 2 {
		t.Fatalf("count=%d want 2", s2.Count("A"))
	}
	// once the batch is acknowledged the next put evicts normally
	s2.Acknowledge("A", s2.channels["A"].held["1"])
	plan = s2.Enqueue("A", "3")
	if !reflect.DeepEqual(plan.Evict, []string{"2"}) {
		t.Fatalf("oldest unheld should go: %+v", plan)
	}
	s3 := New(1)
	s3.Enqueue("A", "1")
	s3.Enqueue("A", "2") // plan ignored, both queued
	s3.RetrieveBatch("A", 0)
	// everything held: the channel stays over capacity
	plan = s3.PlanEviction("A")
	if len(plan.Evict) != 0 || plan.Overflow != 1 {
		t.Fatalf("plan %+v", plan)
	}
}

func TestRetrieveBatchIsDisjoint(t *testing.T) {
	s := New(10)
	fill(s, "A", 5)
	b1 := s.RetrieveBatch("A", 2)
	b2 := s.RetrieveBatch("A", 2)
	b3 := s.RetrieveBatch("A", 0)
	b4 := s.RetrieveBatch("A", 0)
	if b1.ID == "" || b2.ID == "" || b1.ID == b2.ID {
		t.Fatalf("batch ids %q %q", b1.ID, b2.ID)
	}
	if !reflect.DeepEqual(b1.EntryIDs, []string{"1", "2"}) || !reflect.DeepEqual(b2.EntryIDs, []string{"3", "4"}) || !reflect.DeepEqual(b3.EntryIDs, []string{"5"}) {
		t.Fatalf("batches %v %v %v", b1.EntryIDs, b2.EntryIDs, b3.EntryIDs)
	}
	if !b4.Empty() || len(b4.EntryIDs) != 0 {
		t.Fatalf("expected empty batch, got %+v", b4)
	}
	if s.Outstanding("A") != 3 {
		t.Fatalf("outstanding %d", s.Outstanding("A"))
	}
}

func TestAcknowledge(t *testing.T) {
	s := New(10)
	fill(s, "A", 3)
	b := s.RetrieveBatch("A", 2)
	ids, err := s.Acknowledge("A", b.ID)
	if err != nil {
		t.Fatalf("ack: %v", err)
	}
	if !reflect.DeepEqual(ids, []string{"1", "2"}) {
		t.Fatalf("acked %v", ids)
	}
	if s.Count("A") != 1 || s.Outstanding("A") != 0 {
		t.Fatalf("count=%d outstanding=%d", s.Count("A"), s.Outstanding("A"))
	}
	if _, err := s.Acknowledge("A", b.ID); !errors.Is(err, ErrUnknownBatch) {
		t.Fatalf("second ack: %v", err)
	}
	if _, err := s.Acknowledge("B", "nope"); !errors.Is(err, ErrUnknownBatch) {
		t.Fatalf("unknown channel: %v", err)
	}
}

func TestReleaseMakesEntriesPendingAgain(t *testing.T) {
	s := New(10)
	fill(s, "A", 3)
	s.RetrieveBatch("A", 2)
	s.RetrieveBatch("A", 2)
	if n := s.Release("A"); n != 2 {
		t.Fatalf("released %d", n)
	}
	if got := s.Pending("A", 0); !reflect.DeepEqual(got, []string{"1", "2", "3"}) {
		t.Fatalf("pending %v", got)
	}
}

func TestRemoveShrinksBatches(t *testing.T) {
	s := New(10)
	fill(s, "A", 3)
	b := s.RetrieveBatch("A", 3)
	s.Remove("A", []string{"2", "missing"})
	ids, ok := s.Members("A", b.ID)
	if !ok || !reflect.DeepEqual(ids, []string{"1", "3"}) {
		t.Fatalf("members %v ok=%v", ids, ok)
	}
	s.Remove("A", []string{"1", "3"})
	if _, ok := s.Members("A", b.ID); ok {
		t.Fatalf("empty batch should be dropped")
	}
}

func TestCapacity(t *testing.T) {
	s := New(5)
	if s.Capacity("A") != 5 {
		t.Fatalf("default capacity %d", s.Capacity("A"))
	}
	fill(s, "A", 5)
	s.SetCapacity("A", 2)
	plan := s.PlanEviction("A")
	if !reflect.DeepEqual(plan.Evict, []string{"1", "2", "3"}) {
		t.Fatalf("evict %v", plan.Evict)
	}
	s.SetCapacity("A", 0)
	if s.Capacity("A") != 5 {
		t.Fatalf("reset capacity %d", s.Capacity("A"))
	}
}

func TestDropKeepsCapacityOverride(t *testing.T) {
	s := New(5)
	s.SetCapacity("A", 2)
	fill(s, "A", 2)
	s.RetrieveBatch("A", 1)
	ids := s.Drop("A")
	if !reflect.DeepEqual(ids, []string{"1", "2"}) {
		t.Fatalf("dropped %v", ids)
	}
	if s.Count("A") != 0 || s.Outstanding("A") != 0 || s.Capacity("A") != 2 {
		t.Fatalf("count=%d outstanding=%d capacity=%d", s.Count("A"), s.Outstanding("A"), s.Capacity("A"))
	}
}

func TestChannelsAreIndependent(t *testing.T) {
	s := New(1)
	s.Enqueue("B", "1")
	if plan := s.Enqueue("A", "1"); len(plan.Evict) != 0 {
		t.Fatalf("same id in another channel must not evict: %v", plan.Evict)
	}
	if got := s.Channels(); !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Fatalf("channels %v", got)
	}
}

func TestLoadIgnoresDuplicates(t *testing.T) {
	s := New(10)
	s.Load("A", "1")
	s.Load("A", "1")
	if s.Count("A") != 1 {
		t.Fatalf("count %d", s.Count("A"))
	}
}
