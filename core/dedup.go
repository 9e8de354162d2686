package core

import (
	"time"

	"pkt.systems/jellyj/schema"
)

// DedupVerdict classifies an incoming toggle.
type DedupVerdict int

const (
	DedupAccepted DedupVerdict = iota
	DedupWindow
	DedupDuplicate
)

// Deduplicator collapses bursts of toggle requests.
// It remembers only the last accepted time and the last accepted caller id.
type Deduplicator struct {
	window       time.Duration
	lastAccepted time.Time
	hasAccepted  bool
	lastCaller   string
}

// NewDeduplicator returns a deduplicator with the given time window.
func NewDeduplicator(window time.Duration) *Deduplicator {
	return &Deduplicator{window: window}
}

// Check evaluates a toggle at now and records it when accepted.
func (d *Deduplicator) Check(now time.Time, req schema.ToggleRequest) DedupVerdict {
	if d.hasAccepted {
		since := now.Sub(d.lastAccepted)
		if since >= 0 && since <= d.window {
			return DedupWindow
		}
	}
	if req.CallerID != "" && req.CallerID == d.lastCaller {
		return DedupDuplicate
	}
	d.lastAccepted = now
	d.hasAccepted = true
	if req.CallerID != "" {
		d.lastCaller = req.CallerID
	}
	return DedupAccepted
}

// LastCaller returns the last accepted caller id.
func (d *Deduplicator) LastCaller() (string, bool) {
	return d.lastCaller, d.lastCaller != ""
}
