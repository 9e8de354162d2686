package core

import (
	"context"

	"pkt.systems/jellyj/schema"
)

// Service is the transport-agnostic API around the orchestration machine.
// Host events, toggles and requests are serialized so each one runs to
// completion before the next starts.
type Service interface {
	Attach(ctx context.Context, host Host) error
	Detach(ctx context.Context, host Host)
	PermissionResult(ctx context.Context, granted bool) error
	PaneUpdate(ctx context.Context, manifest schema.Manifest) error
	TabUpdate(ctx context.Context, tabs []schema.Tab) error
	LaunchFailed(ctx context.Context, err error) error
	Toggle(ctx context.Context, req schema.ToggleRequest) (schema.ToggleResult, error)
	Request(ctx context.Context, payload []byte) schema.Response
	Do(ctx context.Context, req schema.Request) schema.Response
	// TraceEntries returns the most recent trace entries, all when limit <= 0.
	TraceEntries(ctx context.Context, limit int) []TraceEntry
}
