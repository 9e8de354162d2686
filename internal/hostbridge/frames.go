package hostbridge

import "pkt.systems/jellyj/schema"

// FrameKind names a bridge frame.
type FrameKind string

const (
	// FramePermissionResult carries the host's answer to the permission request.
	FramePermissionResult FrameKind = "permission_result"
	// FramePaneUpdate carries a full pane manifest.
	FramePaneUpdate FrameKind = "pane_update"
	// FrameTabUpdate carries the full tab list.
	FrameTabUpdate FrameKind = "tab_update"
	// FrameLaunchResult reports the outcome of a launch command.
	FrameLaunchResult FrameKind = "launch_result"
	// FrameCommand carries a daemon command to the host.
	FrameCommand FrameKind = "command"
)

// Frame is one item of the CBOR sequence exchanged with the host.
type Frame struct {
	Kind     FrameKind        `cbor:"kind"`
	Granted  bool             `cbor:"granted,omitempty"`
	Manifest *schema.Manifest `cbor:"manifest,omitempty"`
	Tabs     []schema.Tab     `cbor:"tabs,omitempty"`
	PaneID   *schema.PaneID   `cbor:"pane_id,omitempty"`
	Error    string           `cbor:"error,omitempty"`
	Command  *schema.Command  `cbor:"command,omitempty"`
}
