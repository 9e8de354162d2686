package eventbus

import (
	"context"
	"sync"

	"pkt.systems/jellyj/core"
	"pkt.systems/pslog"
)

// EventType identifies the event payload.
type EventType string

const (
	// EventTrace carries a diagnostics trace entry.
	EventTrace EventType = "trace"
	// EventHost carries a host attach or detach notice.
	EventHost EventType = "host"
)

// Event represents a diagnostics event emitted by the daemon.
type Event struct {
	Type     EventType
	Trace    core.TraceEntry
	Attached bool
}

// Bus fans out events to watchers. Slow watchers lose events rather than
// stalling the orchestrator.
type Bus struct {
	mu    sync.Mutex
	subs  map[chan Event]struct{}
	log   pslog.Logger
	depth int
}

// New constructs a Bus.
func New(logger pslog.Logger) *Bus {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Bus{
		subs:  make(map[chan Event]struct{}),
		log:   logger,
		depth: 256,
	}
}

// Subscribe registers a watcher and returns a channel + cancel.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	if b == nil {
		return nil, func() {}
	}
	ch := make(chan Event, b.depth)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	count := len(b.subs)
	b.mu.Unlock()
	if b.log != nil {
		b.log.Debug("eventbus subscribe", "subs", count)
	}
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
			if b.log != nil {
				b.log.Debug("eventbus unsubscribe")
			}
		})
	}
}

// OnTrace publishes a trace entry. It satisfies core.TraceSink.
func (b *Bus) OnTrace(entry core.TraceEntry) {
	b.publish(Event{Type: EventTrace, Trace: entry})
}

// OnHost publishes a host attach or detach notice.
func (b *Bus) OnHost(attached bool) {
	b.publish(Event{Type: EventHost, Attached: attached})
}

func (b *Bus) publish(event Event) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.subs) == 0 {
		return
	}
	dropped := 0
	for sub := range b.subs {
		select {
		case sub <- event:
		default:
			dropped++
		}
	}
	if dropped > 0 && b.log != nil {
		b.log.Trace("eventbus dropped", "count", dropped)
	}
}
