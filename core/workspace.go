package core

import (
	"sort"

	"pkt.systems/jellyj/schema"
)

// Workspace caches the latest host view of tabs and panes.
// It holds no logic beyond lookups; every push replaces the stored copy.
type Workspace struct {
	manifest    schema.Manifest
	hasManifest bool
	tabs        []schema.Tab
	hasTabs     bool
}

// Update replaces the pane manifest.
func (w *Workspace) Update(manifest schema.Manifest) {
	panes := make(map[schema.TabPosition][]schema.Pane, len(manifest.Panes))
	for pos, list := range manifest.Panes {
		panes[pos] = append([]schema.Pane(nil), list...)
	}
	w.manifest = schema.Manifest{Panes: panes}
	w.hasManifest = true
}

// UpdateTabs replaces the tab list.
func (w *Workspace) UpdateTabs(tabs []schema.Tab) {
	w.tabs = append([]schema.Tab(nil), tabs...)
	w.hasTabs = true
}

// HasPanes reports whether a pane manifest has been received.
func (w *Workspace) HasPanes() bool {
	return w.hasManifest
}

// HasTabs reports whether a tab list has been received.
func (w *Workspace) HasTabs() bool {
	return w.hasTabs
}

// Tabs returns the cached tab list.
func (w *Workspace) Tabs() []schema.Tab {
	return append([]schema.Tab(nil), w.tabs...)
}

// All returns every pane with its tab, ordered by tab position then manifest order.
func (w *Workspace) All() []schema.PlacedPane {
	var out []schema.PlacedPane
	for _, pos := range w.manifest.Positions() {
		for _, pane := range w.manifest.Panes[pos] {
			out = append(out, schema.PlacedPane{Tab: pos, Pane: pane})
		}
	}
	return out
}

// PanesMatching returns panes satisfying pred in stable order.
func (w *Workspace) PanesMatching(pred func(schema.Pane) bool) []schema.PlacedPane {
	var out []schema.PlacedPane
	for _, placed := range w.All() {
		if pred(placed.Pane) {
			out = append(out, placed)
		}
	}
	return out
}

// PanesIn returns the panes in a single tab.
func (w *Workspace) PanesIn(tab schema.TabPosition) []schema.Pane {
	return append([]schema.Pane(nil), w.manifest.Panes[tab]...)
}

// FindPane returns a usable pane by id. Exited panes, plugin panes and
// missing ids are all reported as not found.
func (w *Workspace) FindPane(id schema.PaneID) (schema.TabPosition, schema.Pane, bool) {
	for _, placed := range w.All() {
		if placed.Pane.ID == id && placed.Pane.Usable() {
			return placed.Tab, placed.Pane, true
		}
	}
	return 0, schema.Pane{}, false
}

// TabPositions returns every known tab position from both the manifest and the tab list.
func (w *Workspace) TabPositions() []schema.TabPosition {
	seen := make(map[schema.TabPosition]struct{})
	for pos := range w.manifest.Panes {
		seen[pos] = struct{}{}
	}
	for _, tab := range w.tabs {
		seen[tab.Position] = struct{}{}
	}
	out := make([]schema.TabPosition, 0, len(seen))
	for pos := range seen {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// HasTab reports whether a tab position is known.
func (w *Workspace) HasTab(pos schema.TabPosition) bool {
	for _, known := range w.TabPositions() {
		if known == pos {
			return true
		}
	}
	return false
}

// ActiveTab returns the position of the tab flagged active in the tab list.
func (w *Workspace) ActiveTab() (schema.TabPosition, bool) {
	for _, tab := range w.tabs {
		if tab.Active {
			return tab.Position, true
		}
	}
	return 0, false
}

// LowestTab returns the lowest manifest tab position.
func (w *Workspace) LowestTab() (schema.TabPosition, bool) {
	positions := w.manifest.Positions()
	if len(positions) == 0 {
		return 0, false
	}
	return positions[0], true
}

// TerminalIDs returns the ids of every non-plugin pane, including exited ones.
func (w *Workspace) TerminalIDs() map[schema.PaneID]struct{} {
	out := make(map[schema.PaneID]struct{})
	for _, placed := range w.All() {
		if placed.Pane.IsPlugin {
			continue
		}
		out[placed.Pane.ID] = struct{}{}
	}
	return out
}
