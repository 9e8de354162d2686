package core

import "pkt.systems/jellyj/schema"

// WorkspaceState builds the get_state report.
func (m *Machine) WorkspaceState() schema.WorkspaceState {
	tabs := m.workspace.Tabs()
	state := schema.WorkspaceState{
		Tabs:    make([]schema.TabState, 0, len(tabs)),
		Panes:   []schema.PaneState{},
		Runtime: m.RuntimeState(),
	}
	for _, tab := range tabs {
		state.Tabs = append(state.Tabs, schema.TabState{
			Position:                     tab.Position,
			Name:                         tab.Name,
			Active:                       tab.Active,
			SelectableTiledPanesCount:    tab.SelectableTiledPanesCount,
			SelectableFloatingPanesCount: tab.SelectableFloatingPanesCount,
		})
	}
	for _, placed := range m.workspace.All() {
		pane := placed.Pane
		var command *string
		if pane.TerminalCommand != "" {
			cmd := pane.TerminalCommand
			command = &cmd
		}
		state.Panes = append(state.Panes, schema.PaneState{
			ID:              pane.ID,
			TabIndex:        placed.Tab,
			Title:           pane.Title,
			TerminalCommand: command,
			IsPlugin:        pane.IsPlugin,
			IsFocused:       pane.IsFocused,
			IsFloating:      pane.IsFloating,
			IsSuppressed:    pane.IsSuppressed,
			Exited:          pane.Exited,
		})
	}
	return state
}

// RuntimeState reports orchestrator internals.
func (m *Machine) RuntimeState() schema.RuntimeState {
	rt := schema.RuntimeState{
		Ready:                m.gate.Granted(),
		PermissionResultSeen: m.gate.ResultSeen(),
		PermissionDenied:     m.gate.Denied(),
		PendingToggle:        m.pendingToggle,
		Session:              PhaseOf(m.session),
		PaneUpdateCount:      m.paneUpdates,
		TabUpdateCount:       m.tabUpdates,
		TraceLen:             m.trace.Len(),
		LaunchCommand:        m.cfg.LaunchCommand,
	}
	switch s := m.session.(type) {
	case *AwaitingCreation:
		tab := s.TargetTab
		rt.AwaitingPane = true
		rt.AwaitingTab = &tab
		rt.AwaitingUpdates = s.Updates
		rt.AwaitingWriteToNewPane = s.WriteCommand
		rt.KnownTerminalIDs = len(s.Known)
	case *Relocating:
		id, tab := s.PaneID, s.TargetTab
		rt.RelocatingPaneID = &id
		rt.RelocatingTargetTab = &tab
		rt.RelocatingWaitingForSuppressed = s.WaitingForSuppressed
		rt.RelocatingUpdates = s.Updates
	}
	if m.sticky.set {
		id := m.sticky.id
		rt.StickyPaneID = &id
	}
	if caller, ok := m.dedup.LastCaller(); ok {
		rt.LastCLIToggleCallerID = &caller
	}
	return rt
}
