package jellyj

import (
	"context"

	"pkt.systems/jellyj/core"
	"pkt.systems/jellyj/internal/eventbus"
)

type traceFanout struct {
	sinks []core.TraceSink
}

func (f traceFanout) OnTrace(entry core.TraceEntry) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnTrace(entry)
	}
}

func joinTraceSinks(sinks ...core.TraceSink) core.TraceSink {
	out := make([]core.TraceSink, 0, len(sinks))
	for _, sink := range sinks {
		if sink != nil {
			out = append(out, sink)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return traceFanout{sinks: out}
}

// hostNotifier publishes host attach and detach notices on the bus.
type hostNotifier struct {
	core.Service
	bus *eventbus.Bus
}

func (h hostNotifier) Attach(ctx context.Context, host core.Host) error {
	if err := h.Service.Attach(ctx, host); err != nil {
		return err
	}
	h.bus.OnHost(true)
	return nil
}

func (h hostNotifier) Detach(ctx context.Context, host core.Host) {
	h.Service.Detach(ctx, host)
	h.bus.OnHost(false)
}
