package logx

import (
	"context"

	"pkt.systems/jellyj/schema"
	"pkt.systems/pslog"
)

type contextKey int

const (
	callerKey contextKey = iota
)

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// WithCaller annotates the logger with the toggle caller id if present.
func WithCaller(ctx context.Context, callerID string) pslog.Logger {
	log := pslog.Ctx(ctx)
	if callerID != "" {
		if current, ok := ctx.Value(callerKey).(string); ok && current == callerID {
			return log
		}
		log = log.With("caller", callerID)
	}
	return log
}

// WithOp annotates the logger with a request op.
func WithOp(log pslog.Logger, op schema.Op) pslog.Logger {
	if op != "" {
		log = log.With("op", string(op))
	}
	return log
}

// WithPane annotates the logger with a pane id.
func WithPane(log pslog.Logger, id schema.PaneID) pslog.Logger {
	return log.With("pane", uint32(id))
}

// WithTab annotates the logger with a tab position.
func WithTab(log pslog.Logger, pos schema.TabPosition) pslog.Logger {
	return log.With("tab", int(pos))
}

// WithCommand annotates the logger with the fields relevant to a host command.
func WithCommand(log pslog.Logger, cmd schema.Command) pslog.Logger {
	log = log.With("command", string(cmd.Kind))
	switch cmd.Kind {
	case schema.CommandShow, schema.CommandHide, schema.CommandClose, schema.CommandRenamePane, schema.CommandWriteChars:
		log = WithPane(log, cmd.PaneID)
	case schema.CommandMoveToTab:
		log = WithTab(WithPane(log, cmd.PaneID), cmd.Tab)
	case schema.CommandLaunch, schema.CommandRenameTab:
		log = WithTab(log, cmd.Tab)
	}
	return log
}

// ContextWithCaller stores the caller marker on the context for log de-duplication.
func ContextWithCaller(ctx context.Context, callerID string) context.Context {
	if ctx == nil || callerID == "" {
		return ctx
	}
	return context.WithValue(ctx, callerKey, callerID)
}

// ContextWithCallerLogger attaches the logger and caller marker to the context.
func ContextWithCallerLogger(ctx context.Context, log pslog.Logger, callerID string) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithCaller(ctx, callerID)
}

// CopyContextFields copies the caller marker from src to dst.
func CopyContextFields(dst context.Context, src context.Context) context.Context {
	if src == nil {
		return dst
	}
	if caller, ok := src.Value(callerKey).(string); ok && caller != "" {
		dst = ContextWithCaller(dst, caller)
	}
	return dst
}
