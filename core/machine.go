package core

import (
	"time"

	"pkt.systems/jellyj/schema"
)

// Machine is the companion orchestration state machine. Every trigger method
// advances state synchronously and returns the host commands to issue, in
// order. A Machine is not safe for concurrent use; Service serializes access.
type Machine struct {
	cfg      schema.ServiceConfig
	identity Identity
	now      func() time.Time

	workspace Workspace
	gate      ReadinessGate
	trace     *Trace
	dedup     *Deduplicator

	session       Session
	pendingToggle bool
	sticky        stickyPane

	paneUpdates    uint64
	tabUpdates     uint64
	seenPaneUpdate bool
	seenTabUpdate  bool
	abandoned      uint64

	out []schema.Command
}

// stickyPane remembers the last companion seen so a pane that briefly drops
// out of the manifest can be revealed again. tracked is only set once a
// toggle cycle has kept or bound the pane.
type stickyPane struct {
	id       schema.PaneID
	set      bool
	tracked  bool
	lastSeen time.Time
	attempts int
}

// NewMachine constructs an idle machine. A nil now uses time.Now.
func NewMachine(cfg schema.ServiceConfig, now func() time.Time) (*Machine, error) {
	normalized, err := schema.NormalizeServiceConfig(cfg)
	if err != nil {
		return nil, err
	}
	if now == nil {
		now = time.Now
	}
	return &Machine{
		cfg:      normalized,
		identity: Identity{PaneName: normalized.PaneName, LaunchCommand: normalized.LaunchCommand},
		now:      now,
		trace:    NewTrace(normalized.TraceLimit, now),
		dedup:    NewDeduplicator(normalized.DedupWindow),
	}, nil
}

// Config returns the normalized configuration.
func (m *Machine) Config() schema.ServiceConfig { return m.cfg }

// Trace returns the diagnostics log.
func (m *Machine) Trace() *Trace { return m.trace }

// Workspace returns the snapshot cache.
func (m *Machine) Workspace() *Workspace { return &m.workspace }

// Gate returns the readiness gate.
func (m *Machine) Gate() *ReadinessGate { return &m.gate }

// Session returns the in-flight session, nil when idle.
func (m *Machine) Session() Session { return m.session }

// PendingToggle reports whether a toggle is queued.
func (m *Machine) PendingToggle() bool { return m.pendingToggle }

// Identity returns the companion classifier.
func (m *Machine) Identity() Identity { return m.identity }

// Abandoned counts sessions given up after a stall or launch failure.
func (m *Machine) Abandoned() uint64 { return m.abandoned }

// Reset forgets everything learned from the host. The trace, the dedup
// history and a pending toggle survive so a reconnecting host picks them up.
func (m *Machine) Reset() {
	m.workspace = Workspace{}
	m.gate = ReadinessGate{}
	m.session = nil
	m.sticky = stickyPane{}
	m.paneUpdates = 0
	m.tabUpdates = 0
	m.seenPaneUpdate = false
	m.seenTabUpdate = false
	m.out = nil
	m.trace.Append("host state reset")
}

// Load subscribes to host events and requests permissions and a first snapshot.
func (m *Machine) Load() []schema.Command {
	m.trace.Appendf("load launch_command=%s", m.cfg.LaunchCommand)
	m.emit(schema.SubscribeCommand(schema.DefaultSubscriptions))
	m.trace.Append("subscribed to pane_update/tab_update/permission_request_result")
	m.emit(schema.RequestPermissionCommand(schema.DefaultPermissions))
	m.trace.Append("requested permissions")
	m.emit(schema.RequestSnapshotCommand())
	m.trace.Append("requested initial state snapshot")
	return m.take()
}

// PermissionResult applies an explicit authorization result.
func (m *Machine) PermissionResult(granted bool) []schema.Command {
	if !granted {
		m.gate.Deny()
		m.trace.Append("permission denied")
		return m.take()
	}
	m.gate.Grant()
	m.trace.Append("permission granted")
	m.emit(schema.RequestSnapshotCommand())
	m.trace.Append("requested state snapshot after permission grant")
	m.tryRunToggle()
	return m.take()
}

// PaneUpdate replaces the pane manifest and advances any in-flight session.
func (m *Machine) PaneUpdate(manifest schema.Manifest) []schema.Command {
	m.paneUpdates++
	if !m.seenPaneUpdate {
		m.seenPaneUpdate = true
		m.trace.Append("first pane update received")
	}
	m.workspace.Update(manifest)
	m.observeSticky()
	m.inferGrant()
	switch s := m.session.(type) {
	case *AwaitingCreation:
		m.bindNewPane(s)
	case *Relocating:
		m.continueRelocation(s)
	}
	m.tryRunToggle()
	return m.take()
}

// TabUpdate replaces the tab list.
func (m *Machine) TabUpdate(tabs []schema.Tab) []schema.Command {
	m.tabUpdates++
	if !m.seenTabUpdate {
		m.seenTabUpdate = true
		m.trace.Append("first tab update received")
	}
	m.workspace.UpdateTabs(tabs)
	m.inferGrant()
	m.tryRunToggle()
	return m.take()
}

// LaunchFailed abandons a creation session after the host rejected the launch.
func (m *Machine) LaunchFailed(err error) []schema.Command {
	if _, ok := m.session.(*AwaitingCreation); !ok {
		m.trace.Appendf("launch failure ignored outside creation error=%v", err)
		return m.take()
	}
	m.abandoned++
	m.trace.Appendf("launch_terminal_pane_failed error=%v", err)
	m.completeCycle()
	return m.take()
}

// Toggle records a toggle intent after deduplication and acts on it when possible.
func (m *Machine) Toggle(req schema.ToggleRequest) (schema.ToggleResult, []schema.Command) {
	switch m.dedup.Check(m.now(), req) {
	case DedupWindow:
		m.trace.Appendf("toggle dedup_window_ignored caller=%q", req.CallerID)
		return schema.ToggleResult{OK: true, DedupWindow: true}, m.take()
	case DedupDuplicate:
		m.trace.Appendf("toggle duplicate_ignored caller=%q", req.CallerID)
		return schema.ToggleResult{OK: true, Duplicate: true}, m.take()
	}
	m.trace.Appendf("toggle caller=%q", req.CallerID)
	m.pendingToggle = true
	m.tryRunToggle()
	return schema.ToggleResult{OK: true}, m.take()
}

func (m *Machine) emit(cmd schema.Command) {
	m.out = append(m.out, cmd)
}

func (m *Machine) take() []schema.Command {
	out := m.out
	m.out = nil
	return out
}

func (m *Machine) inferGrant() {
	if !m.workspace.HasPanes() {
		return
	}
	if m.gate.Infer() {
		m.trace.Append("permission inferred via cached grant (no result event)")
	}
}

func (m *Machine) tryRunToggle() {
	if !m.pendingToggle || !m.gate.Granted() || !m.workspace.HasPanes() || m.session != nil {
		return
	}
	m.pendingToggle = false
	m.launchOrToggle()
}

func (m *Machine) completeCycle() {
	m.trace.Append("complete_cycle")
	m.session = nil
	m.tryRunToggle()
}

func (m *Machine) abandon(format string, args ...any) {
	m.abandoned++
	m.trace.Appendf(format, args...)
	m.completeCycle()
}

// companions lists every pane matching the companion identity.
func (m *Machine) companions() []schema.PlacedPane {
	return m.workspace.PanesMatching(m.identity.Matches)
}

// currentTab resolves the caller's tab: a focused non-companion pane first,
// then any focused pane, the active tab, and finally the lowest position.
func (m *Machine) currentTab() schema.TabPosition {
	all := m.workspace.All()
	for _, placed := range all {
		if placed.Pane.IsFocused && placed.Pane.Usable() && !m.identity.Matches(placed.Pane) {
			return placed.Tab
		}
	}
	for _, placed := range all {
		if placed.Pane.IsFocused && placed.Pane.Usable() {
			return placed.Tab
		}
	}
	if pos, ok := m.workspace.ActiveTab(); ok {
		return pos
	}
	if pos, ok := m.workspace.LowestTab(); ok {
		return pos
	}
	return 0
}

func (m *Machine) trackedID() *schema.PaneID {
	if s, ok := m.session.(*Relocating); ok {
		id := s.PaneID
		return &id
	}
	if m.sticky.set && m.sticky.tracked {
		id := m.sticky.id
		return &id
	}
	return nil
}

func (m *Machine) rememberSticky(id schema.PaneID) {
	m.sticky = stickyPane{id: id, set: true, tracked: true, lastSeen: m.now()}
}

// observeSticky refreshes the sticky companion from the latest manifest and
// forgets it once it has been missing for longer than the grace period. A
// companion adopted here is not tracked until a toggle keeps it.
func (m *Machine) observeSticky() {
	companions := m.companions()
	if !m.sticky.set {
		if len(companions) > 0 {
			m.sticky = stickyPane{id: companions[0].Pane.ID, set: true, lastSeen: m.now()}
		}
		return
	}
	for _, placed := range companions {
		if placed.Pane.ID == m.sticky.id {
			m.sticky.lastSeen = m.now()
			m.sticky.attempts = 0
			return
		}
	}
	if m.now().Sub(m.sticky.lastSeen) > m.cfg.StickyGrace {
		m.trace.Appendf("sticky companion forgotten id=%d", m.sticky.id)
		m.sticky = stickyPane{}
	}
}

func (m *Machine) launchOrToggle() {
	companions := m.companions()
	current := m.currentTab()
	if focused, ok := m.focusedVisibleCompanion(companions); ok && focused.Tab == current {
		m.trace.Appendf("focused_companion_fast_hide id=%d tab=%d", focused.Pane.ID, focused.Tab)
		m.closeExtras(companions, focused.Pane.ID)
		m.rememberSticky(focused.Pane.ID)
		m.hide(focused)
		m.completeCycle()
		return
	}

	m.trace.Appendf("launch_or_toggle current_tab=%d", current)

	keep, extras, ok := Canonical(companions, m.cfg.TieBreak, m.trackedID(), current)
	if !ok {
		if m.revealSticky() {
			m.completeCycle()
			return
		}
		m.startCreation(current)
		return
	}

	m.trace.Appendf("found_existing_companions count=%d keep=%d", len(companions), keep.Pane.ID)
	for _, extra := range extras {
		m.trace.Appendf("closing_extra_companion id=%d tab=%d", extra.Pane.ID, extra.Tab)
		m.emit(schema.CloseCommand(extra.Pane.ID))
	}
	m.rememberSticky(keep.Pane.ID)

	switch {
	case keep.Tab != current:
		m.trace.Appendf("relocating_companion id=%d from=%d to=%d", keep.Pane.ID, keep.Tab, current)
		m.emit(schema.MoveToTabCommand(keep.Pane.ID, current))
		m.session = &Relocating{PaneID: keep.Pane.ID, TargetTab: current}
	case keep.Pane.Visible():
		m.trace.Appendf("hiding_companion id=%d", keep.Pane.ID)
		m.hide(keep)
		m.completeCycle()
	default:
		m.trace.Appendf("showing_companion id=%d", keep.Pane.ID)
		m.reveal(keep.Pane.ID)
		m.completeCycle()
	}
}

func (m *Machine) focusedVisibleCompanion(companions []schema.PlacedPane) (schema.PlacedPane, bool) {
	for _, placed := range companions {
		if placed.Pane.IsFocused && placed.Pane.Visible() {
			return placed, true
		}
	}
	return schema.PlacedPane{}, false
}

func (m *Machine) closeExtras(companions []schema.PlacedPane, keep schema.PaneID) {
	for _, placed := range companions {
		if placed.Pane.ID == keep {
			continue
		}
		m.trace.Appendf("closing_extra_companion id=%d tab=%d", placed.Pane.ID, placed.Tab)
		m.emit(schema.CloseCommand(placed.Pane.ID))
	}
}

// hide suppresses the companion. When it holds focus, focus first moves to
// another visible pane in the same tab so the tab is not left without focus.
func (m *Machine) hide(target schema.PlacedPane) {
	if target.Pane.IsFocused {
		for _, pane := range m.workspace.PanesIn(target.Tab) {
			if pane.ID == target.Pane.ID || !pane.Usable() || !pane.Visible() || m.identity.Matches(pane) {
				continue
			}
			m.trace.Appendf("focus_before_hide id=%d", pane.ID)
			m.emit(schema.ShowCommand(pane.ID, false, true))
			break
		}
	}
	m.emit(schema.HideCommand(target.Pane.ID))
}

func (m *Machine) reveal(id schema.PaneID) {
	m.emit(schema.ShowCommand(id, true, true))
}

// revealSticky re-shows a companion that vanished from the manifest within
// the grace period, a bounded number of times.
func (m *Machine) revealSticky() bool {
	if !m.sticky.set {
		return false
	}
	if m.now().Sub(m.sticky.lastSeen) > m.cfg.StickyGrace {
		m.trace.Appendf("sticky_companion_expired id=%d", m.sticky.id)
		m.sticky = stickyPane{}
		return false
	}
	if m.sticky.attempts >= m.cfg.StickyRevealAttempts {
		m.trace.Appendf("sticky_reveal_exhausted id=%d attempts=%d", m.sticky.id, m.sticky.attempts)
		return false
	}
	m.sticky.attempts++
	m.trace.Appendf("revealing_sticky_companion id=%d attempt=%d", m.sticky.id, m.sticky.attempts)
	m.reveal(m.sticky.id)
	return true
}
