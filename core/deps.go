package core

import (
	"context"
	"time"

	"pkt.systems/jellyj/schema"
	"pkt.systems/pslog"
)

// Host applies commands to the terminal workspace.
type Host interface {
	Apply(ctx context.Context, cmd schema.Command) error
}

// ServiceDeps captures optional dependencies for the core service.
type ServiceDeps struct {
	TraceSink TraceSink
	Logger    pslog.Logger
	// Now overrides the wall clock used for deduplication and stickiness.
	Now func() time.Time
}
