package core

import (
	"strings"
	"testing"

	"pkt.systems/jellyj/schema"
)

func TestRequestPingAndTraceWithoutReadiness(t *testing.T) {
	m, _ := newTestMachine(t, schema.DefaultServiceConfig())
	m.Load()

	resp, _ := m.HandlePayload([]byte(`{"op":"ping"}`))
	if !resp.OK {
		t.Fatalf("expected ping ok, got %+v", resp)
	}

	resp, _ = m.HandlePayload([]byte(`{"op":"get_trace","limit":2}`))
	trace, ok := resp.Result.(schema.TraceResult)
	if !resp.OK || !ok || len(trace.Entries) != 2 {
		t.Fatalf("expected two trace entries, got %+v", resp)
	}
	if !strings.HasSuffix(trace.Entries[1], "requested initial state snapshot") {
		t.Fatalf("expected newest entry last, got %q", trace.Entries[1])
	}

	resp, _ = m.HandlePayload([]byte(`{"op":"get_trace","limit":0}`))
	if trace := resp.Result.(schema.TraceResult); len(trace.Entries) != 0 {
		t.Fatalf("expected empty trace for limit 0, got %v", trace.Entries)
	}

	resp, _ = m.HandlePayload([]byte(`{"op":"clear_trace"}`))
	if !resp.OK || m.Trace().Len() != 0 {
		t.Fatalf("expected cleared trace, got %+v len=%d", resp, m.Trace().Len())
	}
}

func TestRequestGetStateReadiness(t *testing.T) {
	m, _ := newTestMachine(t, schema.DefaultServiceConfig())
	m.Load()

	resp, cmds := m.HandlePayload([]byte(`{"op":"get_state"}`))
	if resp.Code != schema.CodeNotReady || !strings.Contains(resp.Error, "permissions") || len(cmds) != 0 {
		t.Fatalf("expected permission not_ready, got %+v %+v", resp, cmds)
	}

	m.PermissionResult(true)
	resp, cmds = m.HandlePayload([]byte(`{"op":"get_state"}`))
	if resp.Code != schema.CodeNotReady || !strings.Contains(resp.Error, "workspace cache") {
		t.Fatalf("expected cache not_ready, got %+v", resp)
	}
	requireCommands(t, cmds, schema.RequestSnapshotCommand())

	m.TabUpdate([]schema.Tab{{Position: 0, Name: "main", Active: true}})
	m.PaneUpdate(manifest(map[schema.TabPosition][]schema.Pane{0: {focusedShell(1), companion(2)}}))
	resp, _ = m.HandlePayload([]byte(`{"op":"get_state"}`))
	state, ok := resp.Result.(schema.WorkspaceState)
	if !resp.OK || !ok {
		t.Fatalf("expected state, got %+v", resp)
	}
	if len(state.Tabs) != 1 || len(state.Panes) != 2 || !state.Runtime.Ready {
		t.Fatalf("unexpected state %+v", state)
	}
	if state.Panes[0].TerminalCommand != nil || state.Panes[1].TerminalCommand == nil {
		t.Fatalf("unexpected terminal commands %+v", state.Panes)
	}
	if state.Runtime.Session != PhaseIdle || state.Runtime.PaneUpdateCount != 1 || state.Runtime.TabUpdateCount != 1 {
		t.Fatalf("unexpected runtime %+v", state.Runtime)
	}
}

func TestRequestMutations(t *testing.T) {
	exited := shell(3)
	exited.Exited = true
	m, _ := readyMachine(t, schema.DefaultServiceConfig(),
		manifest(map[schema.TabPosition][]schema.Pane{0: {focusedShell(1), exited}}))

	resp, _ := m.HandlePayload([]byte(`{"op":"rename_tab","position":4,"name":"x"}`))
	if resp.Code != schema.CodeTabNotFound {
		t.Fatalf("expected tab_not_found, got %+v", resp)
	}
	resp, cmds := m.HandlePayload([]byte(`{"op":"rename_tab","position":0,"name":"  work\n"}`))
	if !resp.OK {
		t.Fatalf("expected rename ok, got %+v", resp)
	}
	requireCommands(t, cmds, schema.RenameTabCommand(0, "work"))

	resp, _ = m.HandlePayload([]byte(`{"op":"rename_pane","pane_id":3,"name":"x"}`))
	if resp.Code != schema.CodePaneNotFound {
		t.Fatalf("expected exited pane to be not found, got %+v", resp)
	}
	resp, _ = m.HandlePayload([]byte(`{"op":"hide_pane","pane_id":99}`))
	if resp.Code != schema.CodePaneNotFound {
		t.Fatalf("expected pane_not_found, got %+v", resp)
	}
	_, cmds = m.HandlePayload([]byte(`{"op":"hide_pane","pane_id":1}`))
	requireCommands(t, cmds, schema.HideCommand(1))
	_, cmds = m.HandlePayload([]byte(`{"op":"show_pane","pane_id":1}`))
	requireCommands(t, cmds, schema.ShowCommand(1, true, true))
	_, cmds = m.HandlePayload([]byte(`{"op":"show_pane","pane_id":1,"should_float_if_hidden":false,"should_focus_pane":false}`))
	requireCommands(t, cmds, schema.ShowCommand(1, false, false))
	_, cmds = m.HandlePayload([]byte(`{"op":"rename_pane","pane_id":1,"name":"build"}`))
	requireCommands(t, cmds, schema.RenamePaneCommand(1, "build"))
}

func TestRequestMalformedPayload(t *testing.T) {
	m, _ := newTestMachine(t, schema.DefaultServiceConfig())
	for _, payload := range []string{`{`, `{}`, `{"op":"explode"}`, `{"op":"hide_pane"}`} {
		resp, cmds := m.HandlePayload([]byte(payload))
		if resp.OK || resp.Code != schema.CodeInvalidRequest || len(cmds) != 0 {
			t.Fatalf("%s: expected invalid_request, got %+v", payload, resp)
		}
	}
}
