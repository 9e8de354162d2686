package eventbus

import (
	"testing"
	"time"

	"pkt.systems/jellyj/core"
)

func TestSubscribeAndPublish(t *testing.T) {
	bus := New(nil)
	ch, cancel := bus.Subscribe()
	defer cancel()

	entry := core.TraceEntry{Seq: 7, Elapsed: 12 * time.Millisecond, Message: "hello"}
	bus.OnTrace(entry)

	select {
	case got := <-ch:
		if got.Type != EventTrace {
			t.Fatalf("expected trace event, got %v", got.Type)
		}
		if got.Trace != entry {
			t.Fatalf("unexpected payload: %+v", got.Trace)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timed out waiting for event")
	}
}

func TestHostEvent(t *testing.T) {
	bus := New(nil)
	ch, cancel := bus.Subscribe()
	defer cancel()
	bus.OnHost(true)
	got := <-ch
	if got.Type != EventHost || !got.Attached {
		t.Fatalf("unexpected event %+v", got)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := New(nil)
	ch, cancel := bus.Subscribe()
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("expected channel to be closed")
	}
	bus.OnTrace(core.TraceEntry{Seq: 1})
}

func TestPublishDoesNotBlockWhenFull(t *testing.T) {
	bus := New(nil)
	bus.depth = 1
	_, cancel := bus.Subscribe()
	defer cancel()

	var sendCh chan Event
	bus.mu.Lock()
	for ch := range bus.subs {
		sendCh = ch
		break
	}
	bus.mu.Unlock()
	if sendCh == nil {
		t.Fatalf("expected subscriber channel")
	}
	sendCh <- Event{Type: EventTrace}
	done := make(chan struct{})
	go func() {
		bus.OnTrace(core.TraceEntry{Seq: 2})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("publish blocked on full channel")
	}
}
