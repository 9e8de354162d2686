package core

import "pkt.systems/pslog"

// TraceSink receives every appended trace entry.
type TraceSink interface {
	OnTrace(entry TraceEntry)
}

// logSink mirrors trace entries to the debug log before forwarding them.
type logSink struct {
	log  pslog.Logger
	next TraceSink
}

func (s logSink) OnTrace(entry TraceEntry) {
	s.log.Debug("trace", "seq", entry.Seq, "elapsed_ms", entry.Elapsed.Milliseconds(), "msg", entry.Message)
	if s.next != nil {
		s.next.OnTrace(entry)
	}
}
