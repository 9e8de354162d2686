package core

import "pkt.systems/jellyj/schema"

// continueRelocation drives a moved pane to floating and visible in its target tab.
// A pane that lands tiled is hidden first; the host re-shows suppressed panes floating.
func (m *Machine) continueRelocation(s *Relocating) {
	tab, pane, ok := m.workspace.FindPane(s.PaneID)
	switch {
	case !ok:
		m.stallRelocation(s, "pane_missing")
		return
	case tab != s.TargetTab:
		m.stallRelocation(s, "wrong_tab")
		return
	}

	if s.WaitingForSuppressed {
		if pane.IsSuppressed {
			m.trace.Appendf("relocated_pane_suppressed id=%d; revealing", s.PaneID)
			m.reveal(s.PaneID)
			m.completeCycle()
			return
		}
		s.Updates++
		if s.Updates%m.cfg.RehideEvery == 0 {
			m.trace.Appendf("relocated_pane_rehide id=%d updates=%d", s.PaneID, s.Updates)
			m.emit(schema.HideCommand(s.PaneID))
		}
		if s.Updates > m.cfg.StallLimit {
			m.abandon("relocation_abandoned id=%d reason=not_suppressed updates=%d", s.PaneID, s.Updates)
		}
		return
	}

	if pane.IsSuppressed || pane.IsFloating {
		m.trace.Appendf("relocated_pane_arrived id=%d tab=%d", s.PaneID, tab)
		m.reveal(s.PaneID)
		m.completeCycle()
		return
	}

	m.trace.Appendf("relocated_pane_tiled id=%d; hiding before reveal", s.PaneID)
	m.emit(schema.HideCommand(s.PaneID))
	s.WaitingForSuppressed = true
	s.Updates = 0
}

func (m *Machine) stallRelocation(s *Relocating, reason string) {
	s.Updates++
	if s.Updates%m.cfg.ProgressEvery == 0 {
		m.trace.Appendf("relocating id=%d reason=%s updates=%d", s.PaneID, reason, s.Updates)
	}
	if s.Updates > m.cfg.StallLimit {
		m.abandon("relocation_abandoned id=%d reason=%s updates=%d", s.PaneID, reason, s.Updates)
	}
}
