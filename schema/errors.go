package schema

import "errors"

var (
	// ErrInvalidRequest indicates a malformed request payload.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNotReady indicates permissions or the workspace cache are not ready.
	ErrNotReady = errors.New("not ready")
	// ErrTabNotFound indicates a requested tab could not be found.
	ErrTabNotFound = errors.New("tab not found")
	// ErrPaneNotFound indicates a requested pane could not be found.
	ErrPaneNotFound = errors.New("pane not found")
	// ErrHostUnavailable indicates no host is attached to the daemon.
	ErrHostUnavailable = errors.New("host not attached")
)

// Wire error codes carried in failure envelopes.
const (
	CodeNotReady       = "not_ready"
	CodeInvalidRequest = "invalid_request"
	CodeTabNotFound    = "tab_not_found"
	CodePaneNotFound   = "pane_not_found"
	CodeInternal       = "internal"
)

// ErrorCode maps an error to its wire code.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotReady), errors.Is(err, ErrHostUnavailable):
		return CodeNotReady
	case errors.Is(err, ErrInvalidRequest):
		return CodeInvalidRequest
	case errors.Is(err, ErrTabNotFound):
		return CodeTabNotFound
	case errors.Is(err, ErrPaneNotFound):
		return CodePaneNotFound
	default:
		return CodeInternal
	}
}
