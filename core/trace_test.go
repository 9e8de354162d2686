package core

import (
	"fmt"
	"testing"
	"time"
)

func TestTraceEvictsOldestAtCapacity(t *testing.T) {
	clock := newFakeClock()
	trace := NewTrace(200, clock.Now)
	for i := 0; i < 205; i++ {
		trace.Appendf("entry %d", i)
	}
	if trace.Len() != 200 {
		t.Fatalf("expected 200 entries, got %d", trace.Len())
	}
	entries := trace.Snapshot(0)
	if entries[0].Message != "entry 5" || entries[0].Seq != 6 {
		t.Fatalf("expected oldest surviving entry 5, got %+v", entries[0])
	}
	if last := entries[len(entries)-1]; last.Message != "entry 204" || last.Seq != 205 {
		t.Fatalf("unexpected newest entry: %+v", last)
	}
}

func TestTraceSnapshotLimit(t *testing.T) {
	trace := NewTrace(10, newFakeClock().Now)
	for i := 0; i < 5; i++ {
		trace.Appendf("entry %d", i)
	}
	got := trace.Snapshot(2)
	if len(got) != 2 || got[0].Message != "entry 3" || got[1].Message != "entry 4" {
		t.Fatalf("expected last two entries oldest first, got %+v", got)
	}
	if len(trace.Snapshot(50)) != 5 {
		t.Fatalf("expected oversized limit to return everything")
	}
}

func TestTraceEntryFormat(t *testing.T) {
	clock := newFakeClock()
	trace := NewTrace(10, clock.Now)
	trace.Append("first")
	clock.Advance(1500 * time.Millisecond)
	trace.Append("second")
	lines := trace.Lines(0)
	if lines[0] != "0001 +0ms first" {
		t.Fatalf("unexpected first line %q", lines[0])
	}
	if lines[1] != "0002 +1500ms second" {
		t.Fatalf("unexpected second line %q", lines[1])
	}
}

func TestTraceClearKeepsSequence(t *testing.T) {
	trace := NewTrace(10, newFakeClock().Now)
	trace.Append("a")
	trace.Append("b")
	trace.Clear()
	if trace.Len() != 0 || len(trace.Snapshot(0)) != 0 {
		t.Fatalf("expected empty trace after clear")
	}
	entry := trace.Append("c")
	if entry.Seq != 3 {
		t.Fatalf("expected sequence to continue at 3, got %d", entry.Seq)
	}
}

type recordingSink struct {
	entries []TraceEntry
}

func (s *recordingSink) OnTrace(entry TraceEntry) {
	s.entries = append(s.entries, entry)
}

func TestTraceSinkSeesEveryEntry(t *testing.T) {
	sink := &recordingSink{}
	trace := NewTrace(2, newFakeClock().Now)
	trace.SetSink(sink)
	for i := 0; i < 4; i++ {
		trace.Append(fmt.Sprint(i))
	}
	if len(sink.entries) != 4 {
		t.Fatalf("expected sink to see 4 entries, got %d", len(sink.entries))
	}
}
