package core

import "pkt.systems/jellyj/schema"

// Session is an in-flight multi-step operation. A nil Session means idle.
type Session interface {
	Phase() string
}

// Session phase names reported in diagnostics.
const (
	PhaseIdle             = "idle"
	PhaseAwaitingCreation = "awaiting_creation"
	PhaseRelocating       = "relocating"
)

// AwaitingCreation waits for a launched pane to show up in a manifest.
type AwaitingCreation struct {
	TargetTab schema.TabPosition
	// Updates counts manifests seen without a matching candidate.
	Updates int
	// WriteCommand is set when the launch command still has to be typed into the pane.
	WriteCommand bool
	// Known holds the terminal ids that existed before the launch.
	Known map[schema.PaneID]struct{}
}

func (*AwaitingCreation) Phase() string { return PhaseAwaitingCreation }

// Relocating waits for a moved pane to settle in its target tab.
type Relocating struct {
	PaneID    schema.PaneID
	TargetTab schema.TabPosition
	// WaitingForSuppressed is set after a tiled arrival was hidden.
	WaitingForSuppressed bool
	// Updates counts manifests seen without progress.
	Updates int
}

func (*Relocating) Phase() string { return PhaseRelocating }

// PhaseOf returns the phase name of s, including idle.
func PhaseOf(s Session) string {
	if s == nil {
		return PhaseIdle
	}
	return s.Phase()
}
