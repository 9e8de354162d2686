package core

import (
	"context"
	"errors"
	"sync"

	"pkt.systems/jellyj/internal/logx"
	"pkt.systems/jellyj/schema"
	"pkt.systems/pslog"
)

// service implements Service around a single Machine.
type service struct {
	cfg     schema.ServiceConfig
	logger  pslog.Logger
	mu      sync.Mutex
	machine *Machine
	host    Host
}

// NewService constructs the core service implementation.
func NewService(cfg schema.ServiceConfig, deps ServiceDeps) (Service, error) {
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	machine, err := NewMachine(cfg, deps.Now)
	if err != nil {
		return nil, err
	}
	machine.Trace().SetSink(logSink{log: logger, next: deps.TraceSink})
	return &service{
		cfg:     machine.Config(),
		logger:  logger,
		machine: machine,
	}, nil
}

func (s *service) Attach(ctx context.Context, host Host) error {
	if ctx == nil {
		return errors.New("missing context")
	}
	if host == nil {
		return schema.ErrHostUnavailable
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.host != nil {
		s.logger.Warn("service host replaced")
	}
	s.host = host
	s.machine.Reset()
	s.logger.Info("service host attached", "launch_command", s.cfg.LaunchCommand, "pending_toggle", s.machine.PendingToggle())
	s.step(ctx, s.machine.Load)
	return nil
}

func (s *service) Detach(ctx context.Context, host Host) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.host == nil || s.host != host {
		return
	}
	s.host = nil
	s.machine.Reset()
	s.logger.Info("service host detached")
}

func (s *service) PermissionResult(ctx context.Context, granted bool) error {
	if ctx == nil {
		return errors.New("missing context")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.Info("service permission result", "granted", granted)
	s.step(ctx, func() []schema.Command { return s.machine.PermissionResult(granted) })
	return nil
}

func (s *service) PaneUpdate(ctx context.Context, manifest schema.Manifest) error {
	if ctx == nil {
		return errors.New("missing context")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.Trace("service pane update", "tabs", len(manifest.Panes))
	s.step(ctx, func() []schema.Command { return s.machine.PaneUpdate(manifest) })
	return nil
}

func (s *service) TabUpdate(ctx context.Context, tabs []schema.Tab) error {
	if ctx == nil {
		return errors.New("missing context")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.Trace("service tab update", "tabs", len(tabs))
	s.step(ctx, func() []schema.Command { return s.machine.TabUpdate(tabs) })
	return nil
}

func (s *service) LaunchFailed(ctx context.Context, err error) error {
	if ctx == nil {
		return errors.New("missing context")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.Warn("service launch failed", "err", err)
	s.step(ctx, func() []schema.Command { return s.machine.LaunchFailed(err) })
	return nil
}

func (s *service) Toggle(ctx context.Context, req schema.ToggleRequest) (schema.ToggleResult, error) {
	if ctx == nil {
		return schema.ToggleResult{}, errors.New("missing context")
	}
	log := logx.WithCaller(ctx, req.CallerID)
	s.mu.Lock()
	defer s.mu.Unlock()
	var result schema.ToggleResult
	s.step(ctx, func() []schema.Command {
		var cmds []schema.Command
		result, cmds = s.machine.Toggle(req)
		return cmds
	})
	log.Info("service toggle", "dedup_window", result.DedupWindow, "duplicate", result.Duplicate, "pending", s.machine.PendingToggle())
	return result, nil
}

func (s *service) Request(ctx context.Context, payload []byte) schema.Response {
	if ctx == nil {
		return schema.ErrorResponse(errors.New("missing context"))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var resp schema.Response
	s.step(ctx, func() []schema.Command {
		var cmds []schema.Command
		resp, cmds = s.machine.HandlePayload(payload)
		return cmds
	})
	s.logResponse(ctx, "", resp)
	return resp
}

func (s *service) Do(ctx context.Context, req schema.Request) schema.Response {
	if ctx == nil {
		return schema.ErrorResponse(errors.New("missing context"))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var resp schema.Response
	s.step(ctx, func() []schema.Command {
		var cmds []schema.Command
		resp, cmds = s.machine.Request(req)
		return cmds
	})
	s.logResponse(ctx, req.Op, resp)
	return resp
}

func (s *service) TraceEntries(_ context.Context, limit int) []TraceEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Trace().Snapshot(limit)
}

func (s *service) logResponse(ctx context.Context, op schema.Op, resp schema.Response) {
	log := logx.WithOp(pslog.Ctx(ctx), op)
	if resp.OK {
		log.Debug("service request ok")
		return
	}
	log.Info("service request failed", "code", resp.Code, "err", resp.Error)
}

// step runs one machine trigger and dispatches its commands. Callers hold s.mu.
func (s *service) step(ctx context.Context, trigger func() []schema.Command) {
	before := PhaseOf(s.machine.Session())
	abandoned := s.machine.Abandoned()
	s.dispatch(ctx, trigger())
	after := PhaseOf(s.machine.Session())
	if s.machine.Abandoned() != abandoned {
		s.logger.Warn("service session abandoned", "phase", before)
	}
	if before != after {
		s.logger.Info("service session transition", "from", before, "to", after)
	}
}

// dispatch sends commands to the host in order. A rejected launch is fed back
// to the machine and any commands that produces are sent as well.
func (s *service) dispatch(ctx context.Context, cmds []schema.Command) {
	queue := cmds
	for i := 0; i < len(queue); i++ {
		cmd := queue[i]
		log := logx.WithCommand(s.logger, cmd)
		var err error
		if s.host == nil {
			err = schema.ErrHostUnavailable
		} else {
			err = s.host.Apply(ctx, cmd)
		}
		if err != nil {
			log.Warn("service host command failed", "err", err)
			if cmd.Kind == schema.CommandLaunch {
				queue = append(queue, s.machine.LaunchFailed(err)...)
			}
			continue
		}
		log.Debug("service host command")
	}
}
