package fanout

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func recv(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatal("events channel closed unexpectedly")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestPublishDelivers(t *testing.T) {
	b := NewBroker()
	sub := b.Subscribe(nil)
	defer sub.Unsubscribe()

	b.Publish("temple-1", ChangeUpsert, "v1")
	ev := recv(t, sub.Events())
	if ev.EntityID != "temple-1" || ev.Type != ChangeUpsert || ev.NewValue != "v1" {
		t.Fatalf("got %+v", ev)
	}
	if ev.Seq != 1 {
		t.Fatalf("first event seq = %d, want 1", ev.Seq)
	}
}

func TestSequenceIsMonotonicPerSubscriber(t *testing.T) {
	b := NewBroker()
	sub := b.Subscribe(nil)
	defer sub.Unsubscribe()

	b.Publish("a", ChangeUpsert, 1)
	b.Publish("b", ChangeUpsert, 2)
	b.Publish("c", ChangeUpsert, 3)

	var last uint64
	for i := 0; i < 3; i++ {
		ev := recv(t, sub.Events())
		if ev.Seq <= last {
			t.Fatalf("seq went from %d to %d", last, ev.Seq)
		}
		last = ev.Seq
	}
}

func TestConcurrentPublishesDeliverInSequenceOrder(t *testing.T) {
	b := NewBroker()
	sub := b.Subscribe(nil)
	defer sub.Unsubscribe()

	// Distinct entity ids so coalescing never merges events: every publish
	// must come out, and strictly in sequence order even when the
	// publishers race.
	const publishers = 8
	const perPublisher = 500
	var wg sync.WaitGroup
	for p := 0; p < publishers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perPublisher; i++ {
				b.Publish(fmt.Sprintf("entity-%d-%d", p, i), ChangeUpsert, i)
			}
		}(p)
	}
	wg.Wait()

	var last uint64
	for i := 0; i < publishers*perPublisher; i++ {
		ev := recv(t, sub.Events())
		if ev.Seq <= last {
			t.Fatalf("delivery out of order: seq %d after %d", ev.Seq, last)
		}
		last = ev.Seq
	}
	if last != publishers*perPublisher {
		t.Fatalf("last seq = %d, want %d", last, publishers*perPublisher)
	}
}

func TestCoalescingKeepsLatestValue(t *testing.T) {
	b := NewBroker()
	sub := b.Subscribe(nil)
	defer sub.Unsubscribe()

	// Publish a burst without draining.  The subscriber may receive fewer
	// events than were published, but the last one it sees for the entity
	// must carry the final value.
	const n = 50
	for i := 1; i <= n; i++ {
		b.Publish("temple-1", ChangeUpsert, i)
	}

	var got []Event
	for {
		ev := recv(t, sub.Events())
		got = append(got, ev)
		if ev.NewValue == n {
			break
		}
	}
	if len(got) > n {
		t.Fatalf("received %d events for %d publishes", len(got), n)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Seq <= got[i-1].Seq {
			t.Fatalf("coalesced delivery out of order: %d after %d", got[i].Seq, got[i-1].Seq)
		}
	}
}

func TestCoalescingIsPerEntity(t *testing.T) {
	b := NewBroker()
	sub := b.Subscribe(nil)
	defer sub.Unsubscribe()

	b.Publish("a", ChangeUpsert, "a1")
	b.Publish("b", ChangeUpsert, "b1")

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		ev := recv(t, sub.Events())
		seen[ev.EntityID] = true
	}
	if !seen["a"] || !seen["b"] {
		t.Fatalf("distinct entities must not coalesce into each other, saw %v", seen)
	}
}

func TestFilter(t *testing.T) {
	b := NewBroker()
	sub := b.Subscribe(func(ev Event) bool { return ev.EntityID == "mine" })
	defer sub.Unsubscribe()

	b.Publish("other", ChangeUpsert, 1)
	b.Publish("mine", ChangeUpsert, 2)

	ev := recv(t, sub.Events())
	if ev.EntityID != "mine" {
		t.Fatalf("filter leaked event for %q", ev.EntityID)
	}
	select {
	case extra := <-sub.Events():
		t.Fatalf("unexpected second event: %+v", extra)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribeClosesChannelAndIsIdempotent(t *testing.T) {
	b := NewBroker()
	sub := b.Subscribe(nil)

	sub.Unsubscribe()
	sub.Unsubscribe() // second call must be a no-op

	select {
	case _, ok := <-sub.Events():
		if ok {
			t.Fatal("expected closed channel after unsubscribe")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("events channel not closed after unsubscribe")
	}

	// Publishing after unsubscribe must not panic or deliver.
	b.Publish("a", ChangeUpsert, 1)
}

func TestUnsubscribeWithPendingBacklog(t *testing.T) {
	b := NewBroker()
	sub := b.Subscribe(nil)

	for i := 0; i < 10; i++ {
		b.Publish("a", ChangeUpsert, i)
	}
	// Never drained; unsubscribe must still return promptly.
	done := make(chan struct{})
	go func() {
		sub.Unsubscribe()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("unsubscribe blocked on undrained subscription")
	}
}

func TestSubscribersAreIndependent(t *testing.T) {
	b := NewBroker()
	fast := b.Subscribe(nil)
	defer fast.Unsubscribe()
	slow := b.Subscribe(nil)
	defer slow.Unsubscribe()

	b.Publish("a", ChangeUpsert, 1)
	// The slow subscriber never reads; the fast one must still get its
	// event.
	ev := recv(t, fast.Events())
	if ev.EntityID != "a" {
		t.Fatalf("got %+v", ev)
	}
}

func TestDeleteEvent(t *testing.T) {
	b := NewBroker()
	sub := b.Subscribe(nil)
	defer sub.Unsubscribe()

	b.Publish("a", ChangeDelete, nil)
	ev := recv(t, sub.Events())
	if ev.Type != ChangeDelete || ev.NewValue != nil {
		t.Fatalf("got %+v", ev)
	}
}
