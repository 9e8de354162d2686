package core

import (
	"errors"
	"testing"
	"time"

	"pkt.systems/jellyj/schema"
)

func TestLoadSubscribesAndRequestsPermissions(t *testing.T) {
	m, _ := newTestMachine(t, schema.DefaultServiceConfig())
	requireCommands(t, m.Load(),
		schema.SubscribeCommand(schema.DefaultSubscriptions),
		schema.RequestPermissionCommand(schema.DefaultPermissions),
		schema.RequestSnapshotCommand(),
	)
}

func TestReadinessGatesHostCommands(t *testing.T) {
	m, _ := newTestMachine(t, schema.DefaultServiceConfig())
	m.Load()
	if cmds := m.PermissionResult(false); len(cmds) != 0 {
		t.Fatalf("expected no commands on denial, got %+v", cmds)
	}
	if _, cmds := m.Toggle(schema.ToggleRequest{}); len(cmds) != 0 {
		t.Fatalf("expected no commands before readiness, got %+v", cmds)
	}
	cmds := m.PaneUpdate(manifest(map[schema.TabPosition][]schema.Pane{0: {focusedShell(1)}}))
	if len(cmds) != 0 {
		t.Fatalf("expected denial to block inference, got %+v", cmds)
	}
	resp, cmds := m.HandlePayload([]byte(`{"op":"hide_pane","pane_id":1}`))
	if resp.OK || resp.Code != schema.CodeNotReady || len(cmds) != 0 {
		t.Fatalf("expected not_ready without commands, got %+v %+v", resp, cmds)
	}
	if !m.PendingToggle() {
		t.Fatalf("expected toggle to stay pending")
	}
}

func TestToggleWaitsForGrantAndSnapshot(t *testing.T) {
	m, _ := newTestMachine(t, schema.DefaultServiceConfig())
	m.Load()
	if _, cmds := m.Toggle(schema.ToggleRequest{}); len(cmds) != 0 {
		t.Fatalf("expected deferred toggle, got %+v", cmds)
	}
	requireCommands(t, m.PermissionResult(true), schema.RequestSnapshotCommand())

	cmds := m.PaneUpdate(manifest(map[schema.TabPosition][]schema.Pane{0: {focusedShell(1)}}))
	requireCommands(t, cmds, schema.LaunchCommand(".", schema.DefaultPaneName, "jelly-j\n", 0))
	session, ok := m.Session().(*AwaitingCreation)
	if !ok {
		t.Fatalf("expected awaiting creation, got %v", PhaseOf(m.Session()))
	}
	if _, known := session.Known[1]; !known || session.WriteCommand {
		t.Fatalf("unexpected session %+v", session)
	}

	cmds = m.PaneUpdate(manifest(map[schema.TabPosition][]schema.Pane{0: {focusedShell(1), companion(5)}}))
	requireCommands(t, cmds,
		schema.RenamePaneCommand(5, schema.DefaultPaneName),
		schema.ShowCommand(5, true, true),
	)
	if m.Session() != nil || m.PendingToggle() {
		t.Fatalf("expected idle machine, got %v pending=%v", PhaseOf(m.Session()), m.PendingToggle())
	}
}

func TestSnapshotInfersReadiness(t *testing.T) {
	m, _ := newTestMachine(t, schema.DefaultServiceConfig())
	m.Load()
	m.Toggle(schema.ToggleRequest{})
	cmds := m.PaneUpdate(manifest(map[schema.TabPosition][]schema.Pane{0: {focusedShell(1)}}))
	if countKind(cmds, schema.CommandLaunch) != 1 {
		t.Fatalf("expected launch after inferred grant, got %+v", cmds)
	}
	if !m.Gate().Inferred() {
		t.Fatalf("expected inferred readiness")
	}
}

func TestNonAtomicLaunchTypesCommand(t *testing.T) {
	cfg := schema.DefaultServiceConfig()
	cfg.TypedLaunch = true
	m, _ := readyMachine(t, cfg, manifest(map[schema.TabPosition][]schema.Pane{0: {focusedShell(1)}}))
	_, cmds := m.Toggle(schema.ToggleRequest{})
	requireCommands(t, cmds, schema.LaunchCommand(".", schema.DefaultPaneName, "", 0))

	cmds = m.PaneUpdate(manifest(map[schema.TabPosition][]schema.Pane{0: {focusedShell(1), companion(5)}}))
	requireCommands(t, cmds,
		schema.RenamePaneCommand(5, schema.DefaultPaneName),
		schema.WriteCharsCommand(5, "jelly-j\n"),
		schema.ShowCommand(5, true, true),
	)
}

func TestToggleHidesThenReveals(t *testing.T) {
	m, clock := readyMachine(t, schema.DefaultServiceConfig(),
		manifest(map[schema.TabPosition][]schema.Pane{0: {focusedShell(1), companion(2)}}))

	_, cmds := m.Toggle(schema.ToggleRequest{})
	requireCommands(t, cmds, schema.HideCommand(2))

	hidden := companion(2)
	hidden.IsSuppressed = true
	if cmds := m.PaneUpdate(manifest(map[schema.TabPosition][]schema.Pane{0: {focusedShell(1), hidden}})); len(cmds) != 0 {
		t.Fatalf("expected no commands on settle, got %+v", cmds)
	}

	clock.Advance(time.Second)
	_, cmds = m.Toggle(schema.ToggleRequest{})
	requireCommands(t, cmds, schema.ShowCommand(2, true, true))
	if m.Session() != nil {
		t.Fatalf("expected idle after reveal")
	}
}

func TestFocusedCompanionFastHideShiftsFocus(t *testing.T) {
	focused := companion(2)
	focused.IsFocused = true
	m, _ := readyMachine(t, schema.DefaultServiceConfig(),
		manifest(map[schema.TabPosition][]schema.Pane{0: {shell(1), focused}}))

	_, cmds := m.Toggle(schema.ToggleRequest{})
	requireCommands(t, cmds,
		schema.ShowCommand(1, false, true),
		schema.HideCommand(2),
	)
}

func TestDuplicateCompanionsKeepCurrentTabCopy(t *testing.T) {
	first := manifest(map[schema.TabPosition][]schema.Pane{
		0: {companion(2)},
		1: {focusedShell(1), companion(3)},
	})

	m, _ := readyMachine(t, schema.DefaultServiceConfig(), first)
	if m.trackedID() != nil {
		t.Fatalf("expected nothing tracked before the first toggle, got %d", *m.trackedID())
	}
	_, cmds := m.Toggle(schema.ToggleRequest{})
	requireCommands(t, cmds,
		schema.CloseCommand(2),
		schema.HideCommand(3),
	)
	if m.Session() != nil {
		t.Fatalf("expected idle after hide, got %v", PhaseOf(m.Session()))
	}
}

func TestDuplicateCompanionsRevealHiddenCopyInCurrentTab(t *testing.T) {
	hidden := companion(3)
	hidden.IsSuppressed = true
	m, _ := readyMachine(t, schema.DefaultServiceConfig(), manifest(map[schema.TabPosition][]schema.Pane{
		0: {companion(2)},
		1: {focusedShell(1), hidden},
	}))

	_, cmds := m.Toggle(schema.ToggleRequest{})
	requireCommands(t, cmds,
		schema.CloseCommand(2),
		schema.ShowCommand(3, true, true),
	)
	if m.Session() != nil {
		t.Fatalf("expected idle without relocation, got %v", PhaseOf(m.Session()))
	}
}

func TestDuplicateCompanionsPreferTrackedFromPriorCycle(t *testing.T) {
	m, clock := readyMachine(t, schema.DefaultServiceConfig(),
		manifest(map[schema.TabPosition][]schema.Pane{0: {focusedShell(1), companion(2)}}))
	_, cmds := m.Toggle(schema.ToggleRequest{})
	requireCommands(t, cmds, schema.HideCommand(2))

	hidden := companion(2)
	hidden.IsSuppressed = true
	m.PaneUpdate(manifest(map[schema.TabPosition][]schema.Pane{
		0: {shell(1), hidden},
		1: {focusedShell(4), companion(3)},
	}))

	clock.Advance(time.Second)
	_, cmds = m.Toggle(schema.ToggleRequest{})
	requireCommands(t, cmds,
		schema.CloseCommand(3),
		schema.MoveToTabCommand(2, 1),
	)
	if _, ok := m.Session().(*Relocating); !ok {
		t.Fatalf("expected relocation of tracked companion, got %v", PhaseOf(m.Session()))
	}

	cfg := schema.DefaultServiceConfig()
	cfg.TieBreak = []schema.TieBreak{schema.TieBreakCurrentTab, schema.TieBreakTracked}
	m, clock = readyMachine(t, cfg,
		manifest(map[schema.TabPosition][]schema.Pane{0: {focusedShell(1), companion(2)}}))
	m.Toggle(schema.ToggleRequest{})
	m.PaneUpdate(manifest(map[schema.TabPosition][]schema.Pane{
		0: {shell(1), hidden},
		1: {focusedShell(4), companion(3)},
	}))
	clock.Advance(time.Second)
	_, cmds = m.Toggle(schema.ToggleRequest{})
	requireCommands(t, cmds,
		schema.CloseCommand(2),
		schema.HideCommand(3),
	)
}

func TestFocusedCompanionInOtherTabRelocates(t *testing.T) {
	focused := companion(7)
	focused.IsFocused = true
	m, _ := readyMachine(t, schema.DefaultServiceConfig(), manifest(map[schema.TabPosition][]schema.Pane{
		0: {shell(1), focused},
		1: {focusedShell(2)},
	}))

	_, cmds := m.Toggle(schema.ToggleRequest{})
	requireCommands(t, cmds, schema.MoveToTabCommand(7, 1))
	session, ok := m.Session().(*Relocating)
	if !ok || session.PaneID != 7 || session.TargetTab != 1 {
		t.Fatalf("expected relocation to tab 1, got %+v", m.Session())
	}
}

func TestZeroConfigLaunchesAtomically(t *testing.T) {
	m, _ := readyMachine(t, schema.ServiceConfig{}, manifest(map[schema.TabPosition][]schema.Pane{0: {focusedShell(1)}}))
	_, cmds := m.Toggle(schema.ToggleRequest{})
	requireCommands(t, cmds, schema.LaunchCommand(".", schema.DefaultPaneName, schema.DefaultLaunchCommand+"\n", 0))
	if s, ok := m.Session().(*AwaitingCreation); !ok || s.WriteCommand {
		t.Fatalf("expected atomic creation session, got %+v", m.Session())
	}
}

func TestRelocationEndsFloatingAndVisible(t *testing.T) {
	m, _ := readyMachine(t, schema.DefaultServiceConfig(), manifest(map[schema.TabPosition][]schema.Pane{
		0: {companion(2)},
		1: {focusedShell(1)},
	}))
	_, cmds := m.Toggle(schema.ToggleRequest{})
	requireCommands(t, cmds, schema.MoveToTabCommand(2, 1))

	tiled := companion(2)
	tiled.IsFloating = false
	cmds = m.PaneUpdate(manifest(map[schema.TabPosition][]schema.Pane{0: {}, 1: {focusedShell(1), tiled}}))
	requireCommands(t, cmds, schema.HideCommand(2))
	session, ok := m.Session().(*Relocating)
	if !ok || !session.WaitingForSuppressed || session.PaneID != 2 {
		t.Fatalf("expected relocation waiting for suppression, got %+v", m.Session())
	}

	tiled.IsSuppressed = true
	cmds = m.PaneUpdate(manifest(map[schema.TabPosition][]schema.Pane{0: {}, 1: {focusedShell(1), tiled}}))
	requireCommands(t, cmds, schema.ShowCommand(2, true, true))
	if m.Session() != nil {
		t.Fatalf("expected idle after relocation")
	}
}

func TestRelocationArrivingFloatingCompletes(t *testing.T) {
	m, _ := readyMachine(t, schema.DefaultServiceConfig(), manifest(map[schema.TabPosition][]schema.Pane{
		0: {companion(2)},
		1: {focusedShell(1)},
	}))
	m.Toggle(schema.ToggleRequest{})
	cmds := m.PaneUpdate(manifest(map[schema.TabPosition][]schema.Pane{1: {focusedShell(1), companion(2)}}))
	requireCommands(t, cmds, schema.ShowCommand(2, true, true))
	if m.Session() != nil {
		t.Fatalf("expected idle after floating arrival")
	}
}

func TestRelocationRehidesThenAbandons(t *testing.T) {
	cfg := schema.DefaultServiceConfig()
	cfg.StallLimit = 5
	cfg.RehideEvery = 2
	m, _ := readyMachine(t, cfg, manifest(map[schema.TabPosition][]schema.Pane{
		0: {companion(2)},
		1: {focusedShell(1)},
	}))
	m.Toggle(schema.ToggleRequest{})

	tiled := companion(2)
	tiled.IsFloating = false
	stuck := manifest(map[schema.TabPosition][]schema.Pane{1: {focusedShell(1), tiled}})
	requireCommands(t, m.PaneUpdate(stuck), schema.HideCommand(2))

	var all []schema.Command
	for i := 0; i < 6; i++ {
		if m.Session() == nil {
			t.Fatalf("session ended early at update %d", i)
		}
		all = append(all, m.PaneUpdate(stuck)...)
	}
	if got := countKind(all, schema.CommandHide); got != 3 {
		t.Fatalf("expected 3 re-hides, got %d (%+v)", got, all)
	}
	if m.Session() != nil || m.Abandoned() != 1 {
		t.Fatalf("expected abandoned relocation, got %v abandoned=%d", PhaseOf(m.Session()), m.Abandoned())
	}
}

func TestRelocationAbandonsWhenPaneVanishes(t *testing.T) {
	cfg := schema.DefaultServiceConfig()
	cfg.StallLimit = 3
	m, _ := readyMachine(t, cfg, manifest(map[schema.TabPosition][]schema.Pane{
		0: {companion(2)},
		1: {focusedShell(1)},
	}))
	m.Toggle(schema.ToggleRequest{})
	gone := manifest(map[schema.TabPosition][]schema.Pane{1: {focusedShell(1)}})
	for i := 0; i < 3; i++ {
		m.PaneUpdate(gone)
	}
	if _, ok := m.Session().(*Relocating); !ok {
		t.Fatalf("expected relocation to still be waiting")
	}
	m.PaneUpdate(gone)
	if m.Session() != nil {
		t.Fatalf("expected relocation abandoned past the stall limit")
	}
}

func TestCreationAbandonedAfterStall(t *testing.T) {
	cfg := schema.DefaultServiceConfig()
	cfg.StallLimit = 3
	only := manifest(map[schema.TabPosition][]schema.Pane{0: {focusedShell(1)}})
	m, _ := readyMachine(t, cfg, only)
	m.Toggle(schema.ToggleRequest{})
	for i := 0; i < 3; i++ {
		if cmds := m.PaneUpdate(only); len(cmds) != 0 {
			t.Fatalf("expected no commands while waiting, got %+v", cmds)
		}
	}
	if _, ok := m.Session().(*AwaitingCreation); !ok {
		t.Fatalf("expected creation to still be waiting")
	}
	m.PaneUpdate(only)
	if m.Session() != nil || m.Abandoned() != 1 {
		t.Fatalf("expected creation abandoned, got %v", PhaseOf(m.Session()))
	}
}

func TestCreationRelaxesToTiledPaneInTargetTab(t *testing.T) {
	m, _ := readyMachine(t, schema.DefaultServiceConfig(),
		manifest(map[schema.TabPosition][]schema.Pane{0: {focusedShell(1)}}))
	m.Toggle(schema.ToggleRequest{})

	withTiled := manifest(map[schema.TabPosition][]schema.Pane{0: {focusedShell(1), shell(7)}})
	for i := 0; i < 4; i++ {
		if cmds := m.PaneUpdate(withTiled); len(cmds) != 0 {
			t.Fatalf("update %d: expected tiled pane to be ignored, got %+v", i, cmds)
		}
	}
	cmds := m.PaneUpdate(withTiled)
	requireCommands(t, cmds,
		schema.RenamePaneCommand(7, schema.DefaultPaneName),
		schema.ShowCommand(7, true, true),
	)
}

func TestCreationInOtherTabRelocates(t *testing.T) {
	m, _ := readyMachine(t, schema.DefaultServiceConfig(),
		manifest(map[schema.TabPosition][]schema.Pane{0: {focusedShell(1)}}))
	m.Toggle(schema.ToggleRequest{})
	cmds := m.PaneUpdate(manifest(map[schema.TabPosition][]schema.Pane{
		0: {focusedShell(1)},
		1: {companion(5)},
	}))
	requireCommands(t, cmds,
		schema.RenamePaneCommand(5, schema.DefaultPaneName),
		schema.MoveToTabCommand(5, 0),
	)
	session, ok := m.Session().(*Relocating)
	if !ok || session.PaneID != 5 || session.TargetTab != 0 {
		t.Fatalf("expected relocation of new pane, got %+v", m.Session())
	}
}

func TestToggleDuringSessionIsDeferred(t *testing.T) {
	m, clock := readyMachine(t, schema.DefaultServiceConfig(),
		manifest(map[schema.TabPosition][]schema.Pane{0: {focusedShell(1)}}))
	m.Toggle(schema.ToggleRequest{})

	clock.Advance(time.Second)
	result, cmds := m.Toggle(schema.ToggleRequest{})
	if !result.OK || result.DedupWindow || len(cmds) != 0 || !m.PendingToggle() {
		t.Fatalf("expected deferred toggle, got %+v %+v", result, cmds)
	}

	cmds = m.PaneUpdate(manifest(map[schema.TabPosition][]schema.Pane{0: {focusedShell(1), companion(5)}}))
	requireCommands(t, cmds,
		schema.RenamePaneCommand(5, schema.DefaultPaneName),
		schema.ShowCommand(5, true, true),
		schema.HideCommand(5),
	)
	if m.PendingToggle() {
		t.Fatalf("expected deferred toggle to be consumed")
	}
}

func TestLaunchFailedAbandonsCreation(t *testing.T) {
	m, _ := readyMachine(t, schema.DefaultServiceConfig(),
		manifest(map[schema.TabPosition][]schema.Pane{0: {focusedShell(1)}}))
	if cmds := m.LaunchFailed(errors.New("boom")); len(cmds) != 0 || m.Abandoned() != 0 {
		t.Fatalf("expected launch failure outside creation to be ignored")
	}
	m.Toggle(schema.ToggleRequest{})
	m.LaunchFailed(errors.New("boom"))
	if m.Session() != nil || m.Abandoned() != 1 {
		t.Fatalf("expected creation abandoned after launch failure")
	}
}

func TestStickyRevealBeforeRelaunch(t *testing.T) {
	m, clock := readyMachine(t, schema.DefaultServiceConfig(),
		manifest(map[schema.TabPosition][]schema.Pane{0: {focusedShell(1), companion(2)}}))
	m.PaneUpdate(manifest(map[schema.TabPosition][]schema.Pane{0: {focusedShell(1)}}))

	_, cmds := m.Toggle(schema.ToggleRequest{})
	requireCommands(t, cmds, schema.ShowCommand(2, true, true))
	clock.Advance(200 * time.Millisecond)
	_, cmds = m.Toggle(schema.ToggleRequest{})
	requireCommands(t, cmds, schema.ShowCommand(2, true, true))
	clock.Advance(200 * time.Millisecond)
	_, cmds = m.Toggle(schema.ToggleRequest{})
	if countKind(cmds, schema.CommandLaunch) != 1 {
		t.Fatalf("expected launch after sticky attempts, got %+v", cmds)
	}
}

func TestStickyForgottenAfterGrace(t *testing.T) {
	m, clock := readyMachine(t, schema.DefaultServiceConfig(),
		manifest(map[schema.TabPosition][]schema.Pane{0: {focusedShell(1), companion(2)}}))
	clock.Advance(2 * time.Second)
	m.PaneUpdate(manifest(map[schema.TabPosition][]schema.Pane{0: {focusedShell(1)}}))
	if m.RuntimeState().StickyPaneID != nil {
		t.Fatalf("expected sticky companion forgotten")
	}
	_, cmds := m.Toggle(schema.ToggleRequest{})
	if countKind(cmds, schema.CommandLaunch) != 1 {
		t.Fatalf("expected launch, got %+v", cmds)
	}
}

func TestToggleDedupResults(t *testing.T) {
	m, clock := readyMachine(t, schema.DefaultServiceConfig(),
		manifest(map[schema.TabPosition][]schema.Pane{0: {focusedShell(1), companion(2)}}))
	if result, _ := m.Toggle(schema.ToggleRequest{}); !result.OK || result.DedupWindow {
		t.Fatalf("unexpected first result %+v", result)
	}
	result, cmds := m.Toggle(schema.ToggleRequest{})
	if !result.OK || !result.DedupWindow || len(cmds) != 0 {
		t.Fatalf("expected dedup window, got %+v %+v", result, cmds)
	}

	clock.Advance(time.Second)
	m.Toggle(schema.ToggleRequest{CallerID: "pipe-1"})
	clock.Advance(time.Second)
	result, cmds = m.Toggle(schema.ToggleRequest{CallerID: "pipe-1"})
	if !result.OK || !result.Duplicate || len(cmds) != 0 {
		t.Fatalf("expected duplicate, got %+v %+v", result, cmds)
	}
	if caller := m.RuntimeState().LastCLIToggleCallerID; caller == nil || *caller != "pipe-1" {
		t.Fatalf("expected last caller reported, got %v", caller)
	}
}

func TestResetKeepsPendingToggleAndTrace(t *testing.T) {
	m, _ := readyMachine(t, schema.DefaultServiceConfig(),
		manifest(map[schema.TabPosition][]schema.Pane{0: {focusedShell(1)}}))
	m.Toggle(schema.ToggleRequest{})
	before := m.Trace().Len()
	m.Reset()
	if m.Session() != nil || m.Gate().Granted() || m.Workspace().HasPanes() {
		t.Fatalf("expected host state cleared")
	}
	if m.Trace().Len() <= before {
		t.Fatalf("expected trace to survive reset")
	}
}
