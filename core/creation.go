package core

import "pkt.systems/jellyj/schema"

// startCreation launches a new companion in target and waits for it to appear.
func (m *Machine) startCreation(target schema.TabPosition) {
	known := m.workspace.TerminalIDs()
	initial := ""
	if !m.cfg.TypedLaunch {
		initial = m.cfg.LaunchCommand + "\n"
	}
	m.trace.Appendf("launching_new_companion command=%s tab=%d known=%d", m.cfg.LaunchCommand, target, len(known))
	m.emit(schema.LaunchCommand(".", m.cfg.PaneName, initial, target))
	m.session = &AwaitingCreation{
		TargetTab:    target,
		WriteCommand: m.cfg.TypedLaunch,
		Known:        known,
	}
}

// bindNewPane looks for the launched pane among panes unseen before launch.
func (m *Machine) bindNewPane(s *AwaitingCreation) {
	var unseen []schema.PlacedPane
	for _, placed := range m.workspace.All() {
		if placed.Pane.IsPlugin || placed.Pane.Exited {
			continue
		}
		if _, ok := s.Known[placed.Pane.ID]; ok {
			continue
		}
		unseen = append(unseen, placed)
	}

	candidate, rule, ok := m.pickCandidate(s, unseen)
	if !ok {
		s.Updates++
		if s.Updates%m.cfg.ProgressEvery == 0 {
			m.trace.Appendf("awaiting_new_pane updates=%d unseen=%d tab=%d", s.Updates, len(unseen), s.TargetTab)
		}
		if s.Updates > m.cfg.StallLimit {
			m.abandon("awaiting_new_pane_timed_out updates=%d", s.Updates)
		}
		return
	}

	id := candidate.Pane.ID
	m.trace.Appendf("bound_new_pane id=%d tab=%d rule=%s updates=%d", id, candidate.Tab, rule, s.Updates)
	m.emit(schema.RenamePaneCommand(id, m.cfg.PaneName))
	if s.WriteCommand {
		m.trace.Appendf("writing_launch_command id=%d", id)
		m.emit(schema.WriteCharsCommand(id, m.cfg.LaunchCommand+"\n"))
	}
	m.rememberSticky(id)

	if candidate.Tab != s.TargetTab {
		m.trace.Appendf("moving_new_pane id=%d from=%d to=%d", id, candidate.Tab, s.TargetTab)
		m.emit(schema.MoveToTabCommand(id, s.TargetTab))
		m.session = &Relocating{PaneID: id, TargetTab: s.TargetTab}
		return
	}
	m.reveal(id)
	m.completeCycle()
}

// pickCandidate applies the binding rules from most to least specific.
// Rules that accept non-floating or non-matching panes only open up after
// the configured number of snapshots without a match.
func (m *Machine) pickCandidate(s *AwaitingCreation, unseen []schema.PlacedPane) (schema.PlacedPane, string, bool) {
	inTarget := func(p schema.PlacedPane) bool { return p.Tab == s.TargetTab }
	floating := func(p schema.PlacedPane) bool { return p.Pane.IsFloating }
	matching := func(p schema.PlacedPane) bool { return m.identity.Matches(p.Pane) }

	type rule struct {
		name  string
		after int
		pred  func(schema.PlacedPane) bool
	}
	rules := []rule{
		{"floating_match_in_tab", 0, func(p schema.PlacedPane) bool { return floating(p) && inTarget(p) && matching(p) }},
		{"floating_match", 0, func(p schema.PlacedPane) bool { return floating(p) && matching(p) }},
		{"floating_in_tab", 0, func(p schema.PlacedPane) bool { return floating(p) && inTarget(p) }},
		{"any_in_tab", m.cfg.RelaxTabAfter, inTarget},
		{"any", m.cfg.RelaxAnyAfter, func(schema.PlacedPane) bool { return true }},
	}
	for _, r := range rules {
		if s.Updates < r.after {
			continue
		}
		if idx := indexWhere(unseen, r.pred); idx >= 0 {
			return unseen[idx], r.name, true
		}
	}
	return schema.PlacedPane{}, "", false
}
