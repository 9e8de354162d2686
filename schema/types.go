package schema

import "sort"

// PaneID identifies a terminal pane on the host.
type PaneID uint32

// TabPosition is the 0-based position of a tab as reported by the host.
type TabPosition int

// Pane is a pane as observed in a host manifest.
type Pane struct {
	ID              PaneID `json:"id" cbor:"id"`
	Title           string `json:"title" cbor:"title"`
	TerminalCommand string `json:"terminal_command,omitempty" cbor:"terminal_command,omitempty"`
	IsPlugin        bool   `json:"is_plugin" cbor:"is_plugin"`
	IsFocused       bool   `json:"is_focused" cbor:"is_focused"`
	IsFloating      bool   `json:"is_floating" cbor:"is_floating"`
	IsSuppressed    bool   `json:"is_suppressed" cbor:"is_suppressed"`
	Exited          bool   `json:"exited" cbor:"exited"`
}

// Usable reports whether the pane is a live terminal pane.
func (p Pane) Usable() bool {
	return !p.Exited && !p.IsPlugin
}

// Visible reports whether the pane is shown (not suppressed).
func (p Pane) Visible() bool {
	return !p.IsSuppressed
}

// Tab is a tab as observed in a host tab update.
type Tab struct {
	Position                     TabPosition `json:"position" cbor:"position"`
	Name                         string      `json:"name" cbor:"name"`
	Active                       bool        `json:"active" cbor:"active"`
	SelectableTiledPanesCount    int         `json:"selectable_tiled_panes_count" cbor:"selectable_tiled_panes_count"`
	SelectableFloatingPanesCount int         `json:"selectable_floating_panes_count" cbor:"selectable_floating_panes_count"`
}

// Manifest maps tab positions to the panes currently inside them.
// Manifests are always replaced wholesale, never patched.
type Manifest struct {
	Panes map[TabPosition][]Pane `json:"panes" cbor:"panes"`
}

// Positions returns the manifest tab positions in ascending order.
func (m Manifest) Positions() []TabPosition {
	out := make([]TabPosition, 0, len(m.Panes))
	for pos := range m.Panes {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// PlacedPane pairs a pane with the tab it was observed in.
type PlacedPane struct {
	Tab  TabPosition
	Pane Pane
}
