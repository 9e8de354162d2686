package core

import (
	"testing"
	"time"

	"pkt.systems/jellyj/schema"
)

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestMachine(t *testing.T, cfg schema.ServiceConfig) (*Machine, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	m, err := NewMachine(cfg, clock.Now)
	if err != nil {
		t.Fatalf("new machine: %v", err)
	}
	return m, clock
}

func shell(id schema.PaneID) schema.Pane {
	return schema.Pane{ID: id, Title: "zsh"}
}

func focusedShell(id schema.PaneID) schema.Pane {
	return schema.Pane{ID: id, Title: "zsh", IsFocused: true}
}

func companion(id schema.PaneID) schema.Pane {
	return schema.Pane{ID: id, Title: schema.DefaultPaneName, TerminalCommand: schema.DefaultLaunchCommand, IsFloating: true}
}

func manifest(panes map[schema.TabPosition][]schema.Pane) schema.Manifest {
	return schema.Manifest{Panes: panes}
}

// readyMachine grants permissions and delivers the first manifest.
func readyMachine(t *testing.T, cfg schema.ServiceConfig, first schema.Manifest) (*Machine, *fakeClock) {
	t.Helper()
	m, clock := newTestMachine(t, cfg)
	m.Load()
	m.PermissionResult(true)
	m.PaneUpdate(first)
	if !m.Gate().Granted() {
		t.Fatalf("expected machine to be ready")
	}
	return m, clock
}

func kinds(cmds []schema.Command) []schema.CommandKind {
	out := make([]schema.CommandKind, len(cmds))
	for i, cmd := range cmds {
		out[i] = cmd.Kind
	}
	return out
}

func countKind(cmds []schema.Command, kind schema.CommandKind) int {
	n := 0
	for _, cmd := range cmds {
		if cmd.Kind == kind {
			n++
		}
	}
	return n
}

func requireCommands(t *testing.T, got []schema.Command, want ...schema.Command) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d commands %v, got %d: %+v", len(want), kinds(want), len(got), got)
	}
	for i := range want {
		if !commandEqual(got[i], want[i]) {
			t.Fatalf("command %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func commandEqual(a, b schema.Command) bool {
	if a.Kind != b.Kind || a.PaneID != b.PaneID || a.Tab != b.Tab || a.Name != b.Name || a.Text != b.Text {
		return false
	}
	if a.Cwd != b.Cwd || a.Floating != b.Floating || a.FloatIfHidden != b.FloatIfHidden || a.Focus != b.Focus {
		return false
	}
	return len(a.Permissions) == len(b.Permissions) && len(a.Events) == len(b.Events)
}
