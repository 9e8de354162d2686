package core

import (
	"fmt"
	"time"

	"pkt.systems/jellyj/schema"
)

// TraceEntry is a single diagnostics record.
type TraceEntry struct {
	Seq     uint64
	Elapsed time.Duration
	Message string
}

func (e TraceEntry) String() string {
	return fmt.Sprintf("%04d +%dms %s", e.Seq, e.Elapsed.Milliseconds(), e.Message)
}

// Trace is a fixed-capacity ring of diagnostics entries.
// Elapsed is measured from the first entry ever appended, surviving Clear.
type Trace struct {
	entries  []TraceEntry
	head     int
	size     int
	seq      uint64
	start    time.Time
	started  bool
	now      func() time.Time
	sink     TraceSink
	maxLines int
}

// NewTrace returns a trace holding at most limit entries.
func NewTrace(limit int, now func() time.Time) *Trace {
	if limit <= 0 {
		limit = schema.DefaultTraceLimit
	}
	if now == nil {
		now = time.Now
	}
	return &Trace{entries: make([]TraceEntry, limit), now: now, maxLines: limit}
}

// SetSink attaches an observer for appended entries.
func (t *Trace) SetSink(sink TraceSink) {
	t.sink = sink
}

// Append records a message, evicting the oldest entry when full.
func (t *Trace) Append(message string) TraceEntry {
	now := t.now()
	if !t.started {
		t.start = now
		t.started = true
	}
	elapsed := now.Sub(t.start)
	if elapsed < 0 {
		elapsed = 0
	}
	t.seq++
	entry := TraceEntry{Seq: t.seq, Elapsed: elapsed, Message: message}
	idx := (t.head + t.size) % t.maxLines
	if t.size == t.maxLines {
		t.head = (t.head + 1) % t.maxLines
	} else {
		t.size++
	}
	t.entries[idx] = entry
	if t.sink != nil {
		t.sink.OnTrace(entry)
	}
	return entry
}

// Appendf records a formatted message.
func (t *Trace) Appendf(format string, args ...any) TraceEntry {
	return t.Append(fmt.Sprintf(format, args...))
}

// Snapshot returns the most recent limit entries, oldest first.
// A limit of zero or beyond the stored count returns everything.
func (t *Trace) Snapshot(limit int) []TraceEntry {
	if limit <= 0 || limit > t.size {
		limit = t.size
	}
	out := make([]TraceEntry, 0, limit)
	for i := t.size - limit; i < t.size; i++ {
		out = append(out, t.entries[(t.head+i)%t.maxLines])
	}
	return out
}

// Lines renders Snapshot(limit) as strings.
func (t *Trace) Lines(limit int) []string {
	entries := t.Snapshot(limit)
	lines := make([]string, len(entries))
	for i, entry := range entries {
		lines[i] = entry.String()
	}
	return lines
}

// Len returns the number of stored entries.
func (t *Trace) Len() int {
	return t.size
}

// Clear drops every stored entry. Sequence numbers keep increasing.
func (t *Trace) Clear() {
	t.head = 0
	t.size = 0
	for i := range t.entries {
		t.entries[i] = TraceEntry{}
	}
}
