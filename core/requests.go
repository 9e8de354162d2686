package core

import (
	"fmt"

	"pkt.systems/jellyj/schema"
)

// HandlePayload parses a raw JSON request and executes it.
func (m *Machine) HandlePayload(payload []byte) (schema.Response, []schema.Command) {
	req, err := schema.ParseRequest(payload)
	if err != nil {
		m.trace.Appendf("request rejected error=%v", err)
		return schema.ErrorResponse(err), m.take()
	}
	return m.Request(req)
}

// Request executes a structured request. Every request yields exactly one envelope.
func (m *Machine) Request(req schema.Request) (schema.Response, []schema.Command) {
	result, err := m.execute(req)
	if err != nil {
		m.trace.Appendf("request op=%s failed code=%s", req.Op, schema.ErrorCode(err))
		return schema.ErrorResponse(err), m.take()
	}
	return schema.OKResponse(result), m.take()
}

func (m *Machine) execute(req schema.Request) (any, error) {
	switch req.Op {
	case schema.OpPing:
		return schema.Ack{OK: true}, nil
	case schema.OpGetTrace:
		if req.Limit != nil && *req.Limit == 0 {
			return schema.TraceResult{Entries: []string{}}, nil
		}
		limit := 0
		if req.Limit != nil {
			limit = *req.Limit
		}
		return schema.TraceResult{Entries: m.trace.Lines(limit)}, nil
	case schema.OpClearTrace:
		m.trace.Clear()
		return schema.Ack{OK: true}, nil
	}

	if !req.Mutating() {
		return nil, fmt.Errorf("%w: unknown op %q", schema.ErrInvalidRequest, req.Op)
	}
	if !m.gate.Granted() {
		return nil, fmt.Errorf("%w: permissions not granted yet", schema.ErrNotReady)
	}

	switch req.Op {
	case schema.OpGetState:
		if !m.workspace.HasPanes() {
			m.emit(schema.RequestSnapshotCommand())
			return nil, fmt.Errorf("%w: workspace cache is not ready yet (waiting for pane update)", schema.ErrNotReady)
		}
		return m.WorkspaceState(), nil
	case schema.OpRenameTab:
		pos := *req.Position
		if !m.workspace.HasTab(pos) {
			return nil, fmt.Errorf("%w: no tab at position %d", schema.ErrTabNotFound, pos)
		}
		name := schema.NormalizeName(*req.Name)
		m.trace.Appendf("request rename_tab position=%d name=%q", pos, name)
		m.emit(schema.RenameTabCommand(pos, name))
		return schema.Ack{OK: true}, nil
	case schema.OpRenamePane:
		id := *req.PaneID
		if _, _, ok := m.workspace.FindPane(id); !ok {
			return nil, fmt.Errorf("%w: no pane with id %d", schema.ErrPaneNotFound, id)
		}
		name := schema.NormalizeName(*req.Name)
		m.trace.Appendf("request rename_pane id=%d name=%q", id, name)
		m.emit(schema.RenamePaneCommand(id, name))
		return schema.Ack{OK: true}, nil
	case schema.OpHidePane:
		id := *req.PaneID
		if _, _, ok := m.workspace.FindPane(id); !ok {
			return nil, fmt.Errorf("%w: no pane with id %d", schema.ErrPaneNotFound, id)
		}
		m.trace.Appendf("request hide_pane id=%d", id)
		m.emit(schema.HideCommand(id))
		return schema.Ack{OK: true}, nil
	case schema.OpShowPane:
		id := *req.PaneID
		if _, _, ok := m.workspace.FindPane(id); !ok {
			return nil, fmt.Errorf("%w: no pane with id %d", schema.ErrPaneNotFound, id)
		}
		m.trace.Appendf("request show_pane id=%d float=%t focus=%t", id, req.FloatIfHidden(), req.FocusPane())
		m.emit(schema.ShowCommand(id, req.FloatIfHidden(), req.FocusPane()))
		return schema.Ack{OK: true}, nil
	}
	return nil, fmt.Errorf("%w: unknown op %q", schema.ErrInvalidRequest, req.Op)
}
