package schema

// TabState is the reporting view of a tab.
type TabState struct {
	Position                     TabPosition `json:"position"`
	Name                         string      `json:"name"`
	Active                       bool        `json:"active"`
	SelectableTiledPanesCount    int         `json:"selectable_tiled_panes_count"`
	SelectableFloatingPanesCount int         `json:"selectable_floating_panes_count"`
}

// PaneState is the reporting view of a pane.
type PaneState struct {
	ID              PaneID      `json:"id"`
	TabIndex        TabPosition `json:"tab_index"`
	Title           string      `json:"title"`
	TerminalCommand *string     `json:"terminal_command"`
	IsPlugin        bool        `json:"is_plugin"`
	IsFocused       bool        `json:"is_focused"`
	IsFloating      bool        `json:"is_floating"`
	IsSuppressed    bool        `json:"is_suppressed"`
	Exited          bool        `json:"exited"`
}

// RuntimeState reports orchestrator internals for diagnostics.
type RuntimeState struct {
	Ready                          bool         `json:"ready"`
	PermissionResultSeen           bool         `json:"permission_result_seen"`
	PermissionDenied               bool         `json:"permission_denied"`
	PendingToggle                  bool         `json:"pending_toggle"`
	Session                        string       `json:"session"`
	AwaitingPane                   bool         `json:"awaiting_pane"`
	AwaitingTab                    *TabPosition `json:"awaiting_tab"`
	AwaitingUpdates                int          `json:"awaiting_updates"`
	AwaitingWriteToNewPane         bool         `json:"awaiting_write_to_new_pane"`
	KnownTerminalIDs               int          `json:"known_terminal_ids"`
	RelocatingPaneID               *PaneID      `json:"relocating_pane_id"`
	RelocatingTargetTab            *TabPosition `json:"relocating_target_tab"`
	RelocatingWaitingForSuppressed bool         `json:"relocating_waiting_for_suppressed"`
	RelocatingUpdates              int          `json:"relocating_updates"`
	StickyPaneID                   *PaneID      `json:"sticky_pane_id"`
	PaneUpdateCount                uint64       `json:"pane_update_count"`
	TabUpdateCount                 uint64       `json:"tab_update_count"`
	TraceLen                       int          `json:"trace_len"`
	LastCLIToggleCallerID          *string      `json:"last_cli_toggle_pipe_id"`
	LaunchCommand                  string       `json:"launch_command"`
}

// WorkspaceState is the get_state result payload.
type WorkspaceState struct {
	Tabs    []TabState   `json:"tabs"`
	Panes   []PaneState  `json:"panes"`
	Runtime RuntimeState `json:"butler"`
}

// TraceResult is the get_trace result payload.
type TraceResult struct {
	Entries []string `json:"entries"`
}

// Ack is the result payload for requests without data.
type Ack struct {
	OK bool `json:"ok"`
}
