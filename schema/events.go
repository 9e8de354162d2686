package schema

// Permission names a host permission requested at startup.
type Permission string

const (
	PermissionReadApplicationState   Permission = "read_application_state"
	PermissionChangeApplicationState Permission = "change_application_state"
	PermissionOpenTerminalsOrPlugins Permission = "open_terminals_or_plugins"
	PermissionWriteToStdin           Permission = "write_to_stdin"
	PermissionReadCliPipes           Permission = "read_cli_pipes"
)

// DefaultPermissions lists the permissions requested on load.
var DefaultPermissions = []Permission{
	PermissionReadApplicationState,
	PermissionChangeApplicationState,
	PermissionOpenTerminalsOrPlugins,
	PermissionWriteToStdin,
	PermissionReadCliPipes,
}

// EventKind names a host event subscription.
type EventKind string

const (
	EventPaneUpdate              EventKind = "pane_update"
	EventTabUpdate               EventKind = "tab_update"
	EventPermissionRequestResult EventKind = "permission_request_result"
)

// DefaultSubscriptions lists the host events consumed by the orchestrator.
var DefaultSubscriptions = []EventKind{
	EventPaneUpdate,
	EventTabUpdate,
	EventPermissionRequestResult,
}

// CommandKind names an outbound host command.
type CommandKind string

const (
	CommandRequestPermission CommandKind = "request_permission"
	CommandSubscribe         CommandKind = "subscribe"
	CommandLaunch            CommandKind = "launch"
	CommandMoveToTab         CommandKind = "move_to_tab"
	CommandShow              CommandKind = "show"
	CommandHide              CommandKind = "hide"
	CommandClose             CommandKind = "close"
	CommandRenamePane        CommandKind = "rename_pane"
	CommandRenameTab         CommandKind = "rename_tab"
	CommandWriteChars        CommandKind = "write_chars"
	CommandRequestSnapshot   CommandKind = "request_snapshot"
)

// Command is an outbound instruction to the host. Only the fields relevant
// to Kind are populated. Tab positions are always 0-based here.
type Command struct {
	Kind          CommandKind  `json:"kind" cbor:"kind"`
	PaneID        PaneID       `json:"pane_id,omitempty" cbor:"pane_id,omitempty"`
	Tab           TabPosition  `json:"tab,omitempty" cbor:"tab,omitempty"`
	Name          string       `json:"name,omitempty" cbor:"name,omitempty"`
	Text          string       `json:"text,omitempty" cbor:"text,omitempty"`
	Cwd           string       `json:"cwd,omitempty" cbor:"cwd,omitempty"`
	Floating      bool         `json:"floating,omitempty" cbor:"floating,omitempty"`
	FloatIfHidden bool         `json:"float_if_hidden,omitempty" cbor:"float_if_hidden,omitempty"`
	Focus         bool         `json:"focus,omitempty" cbor:"focus,omitempty"`
	ClearFocus    bool         `json:"clear_focus,omitempty" cbor:"clear_focus,omitempty"`
	Permissions   []Permission `json:"permissions,omitempty" cbor:"permissions,omitempty"`
	Events        []EventKind  `json:"events,omitempty" cbor:"events,omitempty"`
}

// Mutating reports whether the command changes workspace state.
func (c Command) Mutating() bool {
	switch c.Kind {
	case CommandRequestPermission, CommandSubscribe, CommandRequestSnapshot:
		return false
	default:
		return true
	}
}

// Command constructors keep call sites terse.

func RequestPermissionCommand(perms []Permission) Command {
	return Command{Kind: CommandRequestPermission, Permissions: append([]Permission(nil), perms...)}
}

func SubscribeCommand(events []EventKind) Command {
	return Command{Kind: CommandSubscribe, Events: append([]EventKind(nil), events...)}
}

func LaunchCommand(cwd, title, initial string, tab TabPosition) Command {
	return Command{Kind: CommandLaunch, Cwd: cwd, Name: title, Text: initial, Tab: tab, Floating: true}
}

func MoveToTabCommand(id PaneID, tab TabPosition) Command {
	return Command{Kind: CommandMoveToTab, PaneID: id, Tab: tab}
}

func ShowCommand(id PaneID, floatIfHidden, focus bool) Command {
	return Command{Kind: CommandShow, PaneID: id, FloatIfHidden: floatIfHidden, Focus: focus}
}

func HideCommand(id PaneID) Command {
	return Command{Kind: CommandHide, PaneID: id}
}

func CloseCommand(id PaneID) Command {
	return Command{Kind: CommandClose, PaneID: id}
}

func RenamePaneCommand(id PaneID, name string) Command {
	return Command{Kind: CommandRenamePane, PaneID: id, Name: name}
}

func RenameTabCommand(tab TabPosition, name string) Command {
	return Command{Kind: CommandRenameTab, Tab: tab, Name: name}
}

func WriteCharsCommand(id PaneID, text string) Command {
	return Command{Kind: CommandWriteChars, PaneID: id, Text: text}
}

func RequestSnapshotCommand() Command {
	return Command{Kind: CommandRequestSnapshot}
}
