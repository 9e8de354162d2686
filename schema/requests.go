package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Op names a structured request operation.
type Op string

const (
	OpPing       Op = "ping"
	OpGetState   Op = "get_state"
	OpGetTrace   Op = "get_trace"
	OpClearTrace Op = "clear_trace"
	OpRenameTab  Op = "rename_tab"
	OpRenamePane Op = "rename_pane"
	OpHidePane   Op = "hide_pane"
	OpShowPane   Op = "show_pane"
)

// Request is a parsed structured request. Only the fields relevant to Op are set.
type Request struct {
	Op                  Op           `json:"op"`
	Limit               *int         `json:"limit,omitempty"`
	Position            *TabPosition `json:"position,omitempty"`
	PaneID              *PaneID      `json:"pane_id,omitempty"`
	Name                *string      `json:"name,omitempty"`
	ShouldFloatIfHidden *bool        `json:"should_float_if_hidden,omitempty"`
	ShouldFocusPane     *bool        `json:"should_focus_pane,omitempty"`
}

// Mutating reports whether the request requires granted permissions.
func (r Request) Mutating() bool {
	switch r.Op {
	case OpGetState, OpRenameTab, OpRenamePane, OpHidePane, OpShowPane:
		return true
	default:
		return false
	}
}

// FloatIfHidden returns the show_pane float flag, defaulting to true.
func (r Request) FloatIfHidden() bool {
	if r.ShouldFloatIfHidden == nil {
		return true
	}
	return *r.ShouldFloatIfHidden
}

// FocusPane returns the show_pane focus flag, defaulting to true.
func (r Request) FocusPane() bool {
	if r.ShouldFocusPane == nil {
		return true
	}
	return *r.ShouldFocusPane
}

// ParseRequest decodes and validates a JSON request payload.
func ParseRequest(payload []byte) (Request, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return Request{}, fmt.Errorf("%w: missing request payload", ErrInvalidRequest)
	}
	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return Request{}, fmt.Errorf("%w: failed to parse request JSON: %v", ErrInvalidRequest, err)
	}
	req.Op = Op(strings.TrimSpace(string(req.Op)))
	if err := req.validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}

func (r Request) validate() error {
	missing := func(field string) error {
		return fmt.Errorf("%w: %s requires %s", ErrInvalidRequest, r.Op, field)
	}
	switch r.Op {
	case OpPing, OpGetState, OpClearTrace:
		return nil
	case OpGetTrace:
		if r.Limit != nil && *r.Limit < 0 {
			return fmt.Errorf("%w: limit must not be negative", ErrInvalidRequest)
		}
		return nil
	case OpRenameTab:
		if r.Position == nil {
			return missing("position")
		}
		if *r.Position < 0 {
			return fmt.Errorf("%w: position must not be negative", ErrInvalidRequest)
		}
		if r.Name == nil {
			return missing("name")
		}
		return nil
	case OpRenamePane:
		if r.PaneID == nil {
			return missing("pane_id")
		}
		if r.Name == nil {
			return missing("name")
		}
		return nil
	case OpHidePane, OpShowPane:
		if r.PaneID == nil {
			return missing("pane_id")
		}
		return nil
	case "":
		return fmt.Errorf("%w: missing op", ErrInvalidRequest)
	default:
		return fmt.Errorf("%w: unknown op %q", ErrInvalidRequest, r.Op)
	}
}

// Response is the envelope returned for every request and toggle.
type Response struct {
	OK     bool   `json:"ok"`
	Code   string `json:"code,omitempty"`
	Error  string `json:"error,omitempty"`
	Result any    `json:"result,omitempty"`
}

// OKResponse wraps a successful result.
func OKResponse(result any) Response {
	return Response{OK: true, Result: result}
}

// ErrorResponse builds a failure envelope from err.
func ErrorResponse(err error) Response {
	return Response{OK: false, Code: ErrorCode(err), Error: err.Error()}
}

// Err returns the envelope as an error, or nil for successful responses.
func (r Response) Err() error {
	if r.OK {
		return nil
	}
	return &ResponseError{Code: r.Code, Message: r.Error}
}

// ResponseError is a decoded failure envelope.
type ResponseError struct {
	Code    string
	Message string
}

func (e *ResponseError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return e.Code + ": " + e.Message
}

// Is maps wire codes back to the sentinel errors.
func (e *ResponseError) Is(target error) bool {
	switch e.Code {
	case CodeNotReady:
		return target == ErrNotReady
	case CodeInvalidRequest:
		return target == ErrInvalidRequest
	case CodeTabNotFound:
		return target == ErrTabNotFound
	case CodePaneNotFound:
		return target == ErrPaneNotFound
	}
	return false
}

// ToggleRequest is an external toggle invocation.
type ToggleRequest struct {
	// CallerID identifies a one-shot caller; empty for anonymous keybinding toggles.
	CallerID string `json:"caller_id,omitempty"`
}

// ToggleResult reports how a toggle request was handled.
type ToggleResult struct {
	OK          bool `json:"ok"`
	DedupWindow bool `json:"dedup_window,omitempty"`
	Duplicate   bool `json:"duplicate,omitempty"`
}
