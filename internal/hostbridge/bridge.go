package hostbridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"pkt.systems/jellyj/core"
	"pkt.systems/jellyj/internal/logx"
	"pkt.systems/jellyj/schema"
	"pkt.systems/pslog"
)

var (
	// ErrClosed indicates the host connection is gone.
	ErrClosed = errors.New("host connection closed")
	// ErrQueueFull indicates the host is not draining commands.
	ErrQueueFull = errors.New("host command queue full")
)

// Handler receives host events. core.Service satisfies it.
type Handler interface {
	Attach(ctx context.Context, host core.Host) error
	Detach(ctx context.Context, host core.Host)
	PermissionResult(ctx context.Context, granted bool) error
	PaneUpdate(ctx context.Context, manifest schema.Manifest) error
	TabUpdate(ctx context.Context, tabs []schema.Tab) error
	LaunchFailed(ctx context.Context, err error) error
}

// Options controls a bridge connection.
type Options struct {
	// OneBasedTabs converts rename_tab positions to the host's 1-based numbering.
	OneBasedTabs bool
	// QueueDepth bounds the outbound command queue.
	QueueDepth int
	Logger     pslog.Logger
}

// Conn is a live host connection. It implements core.Host.
type Conn struct {
	rw     io.ReadWriteCloser
	opts   Options
	logger pslog.Logger

	out       chan Frame
	done      chan struct{}
	closeOnce sync.Once
}

// Serve runs a host connection until the host disconnects or ctx ends.
// The handler is attached for the lifetime of the connection.
func Serve(ctx context.Context, rw io.ReadWriteCloser, handler Handler, opts Options) error {
	if handler == nil {
		return errors.New("host handler is required")
	}
	if opts.QueueDepth <= 0 {
		opts.QueueDepth = 256
	}
	logger := opts.Logger
	if logger == nil {
		logger = pslog.Ctx(ctx)
	}
	c := &Conn{
		rw:     rw,
		opts:   opts,
		logger: logger,
		out:    make(chan Frame, opts.QueueDepth),
		done:   make(chan struct{}),
	}
	defer c.Close()

	writeErr := make(chan error, 1)
	go func() { writeErr <- c.writeLoop() }()
	go func() {
		select {
		case <-ctx.Done():
			_ = c.Close()
		case <-c.done:
		}
	}()

	if err := handler.Attach(ctx, c); err != nil {
		return err
	}
	defer handler.Detach(context.WithoutCancel(ctx), c)
	logger.Info("host bridge connected", "one_based_tabs", opts.OneBasedTabs)

	err := c.readLoop(ctx, handler)
	_ = c.Close()
	if werr := <-writeErr; err == nil && werr != nil && !errors.Is(werr, ErrClosed) {
		err = werr
	}
	if ctx.Err() != nil {
		err = nil
	}
	logger.Info("host bridge disconnected", "err", err)
	return err
}

// Apply queues a command for the host without blocking.
func (c *Conn) Apply(ctx context.Context, cmd schema.Command) error {
	if cmd.Kind == schema.CommandRenameTab && c.opts.OneBasedTabs {
		cmd.Tab++
	}
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case c.out <- Frame{Kind: FrameCommand, Command: &cmd}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close tears down the connection.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.rw.Close()
	})
	return err
}

func (c *Conn) readLoop(ctx context.Context, handler Handler) error {
	dec := NewDecoder(c.rw)
	for {
		var frame Frame
		if err := dec.Decode(&frame); err != nil {
			select {
			case <-c.done:
				return nil
			default:
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return fmt.Errorf("decode host frame: %w", err)
		}
		if err := c.dispatch(ctx, handler, frame); err != nil {
			return err
		}
	}
}

func (c *Conn) dispatch(ctx context.Context, handler Handler, frame Frame) error {
	c.logger.Trace("host bridge frame", "kind", string(frame.Kind))
	switch frame.Kind {
	case FramePermissionResult:
		return handler.PermissionResult(ctx, frame.Granted)
	case FramePaneUpdate:
		if frame.Manifest == nil {
			c.logger.Warn("host bridge pane update without manifest")
			return nil
		}
		return handler.PaneUpdate(ctx, *frame.Manifest)
	case FrameTabUpdate:
		return handler.TabUpdate(ctx, frame.Tabs)
	case FrameLaunchResult:
		if frame.Error == "" {
			if frame.PaneID != nil {
				logx.WithPane(c.logger, *frame.PaneID).Debug("host bridge launch ok")
			}
			return nil
		}
		return handler.LaunchFailed(ctx, errors.New(frame.Error))
	default:
		c.logger.Warn("host bridge unknown frame", "kind", string(frame.Kind))
		return nil
	}
}

func (c *Conn) writeLoop() error {
	enc := NewEncoder(c.rw)
	for {
		select {
		case <-c.done:
			return ErrClosed
		case frame := <-c.out:
			if err := enc.Encode(frame); err != nil {
				_ = c.Close()
				return fmt.Errorf("encode host frame: %w", err)
			}
		}
	}
}
