package jellyj

import (
	"context"
	"errors"
	"sync"

	"pkt.systems/jellyj/core"
	"pkt.systems/jellyj/httpapi"
	"pkt.systems/jellyj/internal/appconfig"
	"pkt.systems/jellyj/internal/control"
	"pkt.systems/jellyj/internal/eventbus"
	"pkt.systems/jellyj/internal/hostbridge"
	"pkt.systems/jellyj/schema"
	"pkt.systems/pslog"
)

// Server composes the host bridge, control plane, and HTTP services.
type Server interface {
	Start(ctx context.Context) error
	Wait() error
	Stop(ctx context.Context) error
}

// ServerConfig configures the compositor.
type ServerConfig struct {
	Service schema.ServiceConfig
	Host    HostConfig
	Control control.Config
	HTTP    httpapi.Config
}

// HostConfig selects how the terminal host reaches the daemon.
type HostConfig struct {
	SocketPath string
	// Stdio serves a single host over stdin/stdout instead of a socket.
	Stdio        bool
	OneBasedTabs bool
	QueueDepth   int
}

// ServerConfigFrom maps the on-disk configuration to a ServerConfig.
func ServerConfigFrom(cfg appconfig.Config) ServerConfig {
	return ServerConfig{
		Service: cfg.ServiceConfig(),
		Host: HostConfig{
			SocketPath:   cfg.Host.SocketPath,
			OneBasedTabs: cfg.Host.OneBasedTabs,
		},
		Control: control.Config{
			SocketPath:  cfg.Control.SocketPath,
			AllowAnyUID: cfg.Control.AllowAnyUID,
		},
		HTTP: httpapi.Config{Addr: cfg.HTTP.Addr},
	}
}

// ServerDeps captures dependencies required to build the server.
type ServerDeps struct {
	ServiceDeps core.ServiceDeps
}

// ServerOption toggles compositor components.
type ServerOption func(*serverOptions)

type serverOptions struct {
	enableHost    bool
	enableControl bool
	enableHTTP    bool
}

// WithHost enables the host bridge.
func WithHost() ServerOption {
	return func(o *serverOptions) { o.enableHost = true }
}

// WithControl enables the gRPC control plane.
func WithControl() ServerOption {
	return func(o *serverOptions) { o.enableControl = true }
}

// WithHTTP enables the HTTP diagnostics API.
func WithHTTP() ServerOption {
	return func(o *serverOptions) { o.enableHTTP = true }
}

// New constructs a composable jellyj daemon.
func New(cfg ServerConfig, deps ServerDeps, opts ...ServerOption) (Server, error) {
	options := serverOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if !options.enableHost && !options.enableControl && !options.enableHTTP {
		return nil, errors.New("no services enabled")
	}
	if options.enableHost && !cfg.Host.Stdio && cfg.Host.SocketPath == "" {
		return nil, errors.New("host socket path is required")
	}
	if options.enableControl && cfg.Control.SocketPath == "" {
		return nil, errors.New("control socket path is required")
	}
	if options.enableHTTP && cfg.HTTP.Addr == "" {
		return nil, errors.New("http address is required")
	}
	normalized, err := schema.NormalizeServiceConfig(cfg.Service)
	if err != nil {
		return nil, err
	}
	cfg.Service = normalized

	serviceDeps := deps.ServiceDeps
	bus := eventbus.New(serviceDeps.Logger)
	serviceDeps.TraceSink = joinTraceSinks(serviceDeps.TraceSink, bus)
	service, err := core.NewService(cfg.Service, serviceDeps)
	if err != nil {
		return nil, err
	}

	srv := &compositeServer{
		cfg:     cfg,
		options: options,
		service: service,
		bus:     bus,
	}
	if options.enableControl {
		srv.controlSrv = control.NewServer(cfg.Control, service, bus)
	}
	if options.enableHTTP {
		srv.httpSrv = httpapi.NewServer(cfg.HTTP, service, bus)
	}
	return srv, nil
}

type compositeServer struct {
	cfg        ServerConfig
	options    serverOptions
	service    core.Service
	bus        *eventbus.Bus
	controlSrv *control.Server
	httpSrv    *httpapi.Server
	logger     pslog.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	errCh   chan error
	started bool
}

func (s *compositeServer) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		pslog.Ctx(ctx).Warn("server start rejected", "reason", "already started")
		return errors.New("server already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.errCh = make(chan error, 3)
	s.started = true
	s.logger = pslog.Ctx(s.ctx)
	s.mu.Unlock()

	log := s.logger
	log.Info(
		"server start",
		"host", s.options.enableHost,
		"host_stdio", s.cfg.Host.Stdio,
		"control", s.options.enableControl,
		"http", s.options.enableHTTP,
		"host_socket", s.cfg.Host.SocketPath,
		"control_socket", s.cfg.Control.SocketPath,
		"http_addr", s.cfg.HTTP.Addr,
		"launch_command", s.cfg.Service.LaunchCommand,
	)
	if s.options.enableHost {
		handler := hostNotifier{Service: s.service, bus: s.bus}
		hostOpts := hostbridge.Options{
			OneBasedTabs: s.cfg.Host.OneBasedTabs,
			QueueDepth:   s.cfg.Host.QueueDepth,
			Logger:       log,
		}
		go func() {
			var err error
			if s.cfg.Host.Stdio {
				err = hostbridge.ServeStdio(s.ctx, handler, hostOpts)
				if err == nil {
					// The single stdio host is gone; nothing is left to orchestrate.
					log.Info("host bridge stdio closed")
					s.cancel()
					return
				}
			} else {
				err = hostbridge.ListenAndServe(s.ctx, s.cfg.Host.SocketPath, handler, hostOpts)
			}
			if err != nil {
				log.Error("host bridge failed", "err", err)
				s.errCh <- err
			}
		}()
	}
	if s.options.enableControl && s.controlSrv != nil {
		go func() {
			if err := s.controlSrv.ListenAndServe(s.ctx); err != nil {
				log.Error("control server failed", "err", err)
				s.errCh <- err
			}
		}()
	}
	if s.options.enableHTTP && s.httpSrv != nil {
		go func() {
			if err := httpapi.ListenAndServe(s.ctx, s.cfg.HTTP.Addr, s.httpSrv.Handler()); err != nil {
				log.Error("http server failed", "err", err)
				s.errCh <- err
			}
		}()
	}
	return nil
}

func (s *compositeServer) Wait() error {
	s.mu.Lock()
	ctx := s.ctx
	errCh := s.errCh
	started := s.started
	s.mu.Unlock()
	if !started {
		return errors.New("server not started")
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if err != nil {
			pslog.Ctx(ctx).Error("server stopped", "err", err)
			_ = s.Stop(context.Background())
			return err
		}
		return nil
	}
}

func (s *compositeServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	started := s.started
	log := s.logger
	s.mu.Unlock()
	if !started {
		return nil
	}
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	log.Info("server stop requested", "trace_entries", len(s.service.TraceEntries(context.Background(), 0)))
	if cancel != nil {
		cancel()
	}
	if ctx == nil {
		log.Info("server stop completed")
		return nil
	}
	select {
	case <-ctx.Done():
		log.Warn("server stop timed out", "err", ctx.Err())
		return ctx.Err()
	case <-s.ctx.Done():
		log.Info("server stopped")
		return nil
	}
}
