package eventbus

import (
	"encoding/json"
	"testing"
	"time"
)

func TestSubscribeFiltersByMethodAndSession(t *testing.T) {
	b := New()
	sub := b.Subscribe("Page.frameStoppedLoading", "session-1", true)
	defer sub.Unsubscribe()

	b.Publish("Page.frameStoppedLoading", "session-2", json.RawMessage(`{}`))
	b.Publish("Runtime.exceptionThrown", "session-1", json.RawMessage(`{}`))
	b.Publish("Page.frameStoppedLoading", "session-1", json.RawMessage(`{"frameId":"f1"}`))

	select {
	case evt := <-sub.C():
		if evt.SessionID != "session-1" {
			t.Fatalf("SessionID = %q, want session-1", evt.SessionID)
		}
	case <-time.After(time.Second):
		t.Fatal("expected one matching event, got none")
	}

	select {
	case evt := <-sub.C():
		t.Fatalf("unexpected extra event: %+v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribeWithoutSessionFilterSeesAllSessions(t *testing.T) {
	b := New()
	sub := b.Subscribe("Target.targetCreated", "", false)
	defer sub.Unsubscribe()

	b.Publish("Target.targetCreated", "session-a", nil)
	b.Publish("Target.targetCreated", "session-b", nil)

	got := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case evt := <-sub.C():
			got[evt.SessionID] = true
		case <-time.After(time.Second):
			t.Fatalf("expected 2 events, got %d", i)
		}
	}
	if !got["session-a"] || !got["session-b"] {
		t.Fatalf("got sessions %v, want session-a and session-b", got)
	}
}

func TestAddHandlerInvokedSynchronously(t *testing.T) {
	b := New()
	var seen []string
	unsub := b.AddHandler("Foo.bar", func(evt Event) {
		seen = append(seen, evt.SessionID)
	})
	defer unsub()

	b.Publish("Foo.bar", "s1", nil)
	b.Publish("Foo.bar", "s2", nil)

	if len(seen) != 2 || seen[0] != "s1" || seen[1] != "s2" {
		t.Fatalf("seen = %v, want [s1 s2]", seen)
	}
}

func TestAddHandlerRecoversPanics(t *testing.T) {
	b := New()
	called := false
	unsub1 := b.AddHandler("Foo.bar", func(Event) { panic("boom") })
	defer unsub1()
	unsub2 := b.AddHandler("Foo.bar", func(Event) { called = true })
	defer unsub2()

	b.Publish("Foo.bar", "", nil) // must not panic the test
	if !called {
		t.Fatal("second handler was not invoked after first panicked")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()
	sub := b.Subscribe("Foo.bar", "", false)
	sub.Unsubscribe()

	b.Publish("Foo.bar", "", nil)

	select {
	case _, ok := <-sub.C():
		if ok {
			t.Fatal("expected channel to be closed, got a value")
		}
	case <-time.After(time.Second):
		t.Fatal("expected closed channel, got neither close nor value")
	}
}

func TestDeliverDropsOldestWhenFull(t *testing.T) {
	b := New()
	sub := b.Subscribe("Flood.event", "", false)
	defer sub.Unsubscribe()

	for i := 0; i < defaultBufferSize+10; i++ {
		b.Publish("Flood.event", "", json.RawMessage(`{}`))
	}

	if sub.DroppedEvents() == 0 {
		t.Fatal("DroppedEvents() = 0, want > 0 after overflowing the buffer")
	}

	// A Dropped marker must appear in-band on the stream itself, not just
	// in the out-of-band counter.
	sawMarker := false
	for i := 0; i < defaultBufferSize; i++ {
		select {
		case evt := <-sub.C():
			if evt.Dropped > 0 {
				sawMarker = true
			}
		case <-time.After(time.Second):
			t.Fatal("expected buffered events still deliverable after overflow")
		}
	}
	if !sawMarker {
		t.Fatal("expected at least one in-band Dropped marker event after overflow")
	}
}

func TestCloseClosesAllSubscriptions(t *testing.T) {
	b := New()
	sub1 := b.Subscribe("A", "", false)
	sub2 := b.Subscribe("B", "", false)

	b.Close()

	for _, sub := range []*Subscription{sub1, sub2} {
		select {
		case _, ok := <-sub.C():
			if ok {
				t.Fatal("expected closed channel after Bus.Close()")
			}
		case <-time.After(time.Second):
			t.Fatal("channel never closed")
		}
	}
}
