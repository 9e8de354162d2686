package control

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"pkt.systems/jellyj/core"
	"pkt.systems/jellyj/internal/eventbus"
	"pkt.systems/jellyj/internal/logx"
	"pkt.systems/jellyj/internal/peercred"
	"pkt.systems/jellyj/schema"
	"pkt.systems/pslog"
)

// Backend is the part of core.Service the control plane exposes.
type Backend interface {
	Toggle(ctx context.Context, req schema.ToggleRequest) (schema.ToggleResult, error)
	Request(ctx context.Context, payload []byte) schema.Response
	TraceEntries(ctx context.Context, limit int) []core.TraceEntry
}

// Config configures the control server.
type Config struct {
	SocketPath  string
	AllowAnyUID bool
}

// Server serves the control plane over a Unix domain socket.
type Server struct {
	cfg     Config
	backend Backend
	bus     *eventbus.Bus
	logger  pslog.Logger
}

// NewServer constructs a control server. bus may be nil, in which case
// WatchTrace only returns the backlog.
func NewServer(cfg Config, backend Backend, bus *eventbus.Bus) *Server {
	return &Server{cfg: cfg, backend: backend, bus: bus}
}

// Register attaches the control service to an existing gRPC server.
func (s *Server) Register(grpcServer *grpc.Server) {
	grpcServer.RegisterService(&serviceDesc, s)
}

// ListenAndServe starts the gRPC server and blocks until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.cfg.SocketPath == "" {
		return errors.New("control socket path is required")
	}
	if s.backend == nil {
		return errors.New("control backend is required")
	}
	if s.logger == nil {
		s.logger = pslog.Ctx(ctx)
	}
	if err := os.MkdirAll(filepath.Dir(s.cfg.SocketPath), 0o700); err != nil {
		return err
	}
	_ = os.Remove(s.cfg.SocketPath)

	inner, err := net.Listen("unix", s.cfg.SocketPath)
	if err != nil {
		return err
	}
	if err := os.Chmod(s.cfg.SocketPath, 0o600); err != nil {
		_ = inner.Close()
		return err
	}
	var listener net.Listener = inner
	if !s.cfg.AllowAnyUID {
		listener = peercred.Wrap(inner, uint32(os.Getuid()), s.logger)
	}
	grpcServer := grpc.NewServer()
	s.Register(grpcServer)
	s.logger.Info("control grpc listening", "socket", s.cfg.SocketPath, "allow_any_uid", s.cfg.AllowAnyUID)

	errCh := make(chan error, 1)
	go func() {
		errCh <- grpcServer.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		grpcServer.GracefulStop()
		_ = os.Remove(s.cfg.SocketPath)
		return nil
	case err := <-errCh:
		return err
	}
}

// Toggle runs one companion toggle.
func (s *Server) Toggle(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req schema.ToggleRequest
	if err := decodeStruct(in, &req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "decode toggle: %v", err)
	}
	ctx = pslog.ContextWithLogger(ctx, s.log(ctx))
	ctx = logx.ContextWithCallerLogger(ctx, logx.WithCaller(ctx, req.CallerID), req.CallerID)
	result, err := s.backend.Toggle(ctx, req)
	if err != nil {
		pslog.Ctx(ctx).Warn("control toggle failed", "err", err)
		return nil, toStatus(err)
	}
	return structFrom(result)
}

// Request executes a request envelope. Failures travel inside the envelope.
func (s *Server) Request(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	payload, err := in.MarshalJSON()
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "encode request: %v", err)
	}
	resp := s.backend.Request(pslog.ContextWithLogger(ctx, s.log(ctx)), payload)
	out, err := structFrom(resp)
	if err != nil {
		return nil, toStatus(err)
	}
	return out, nil
}

// WatchTrace streams the trace backlog followed by live events.
func (s *Server) WatchTrace(in *structpb.Struct, stream grpc.ServerStream) error {
	ctx := stream.Context()
	log := s.log(ctx)
	limit := 0
	if v, ok := in.GetFields()["backlog"]; ok {
		limit = int(v.GetNumberValue())
	}

	var events <-chan eventbus.Event
	cancel := func() {}
	if s.bus != nil {
		events, cancel = s.bus.Subscribe()
	}
	defer cancel()

	var lastSeq uint64
	if limit > 0 {
		for _, entry := range s.backend.TraceEntries(ctx, limit) {
			if err := stream.SendMsg(traceMessage(entry)); err != nil {
				return err
			}
			lastSeq = entry.Seq
		}
	}
	if events == nil {
		return nil
	}
	log.Debug("control watch start", "backlog", limit)
	for {
		select {
		case <-ctx.Done():
			log.Debug("control watch end")
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			msg, send := eventMessage(event, &lastSeq)
			if !send {
				continue
			}
			if err := stream.SendMsg(msg); err != nil {
				return err
			}
		}
	}
}

func (s *Server) log(ctx context.Context) pslog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return pslog.Ctx(ctx)
}

func traceMessage(entry core.TraceEntry) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"seq":        structpb.NewNumberValue(float64(entry.Seq)),
		"elapsed_ms": structpb.NewNumberValue(float64(entry.Elapsed.Milliseconds())),
		"message":    structpb.NewStringValue(entry.Message),
		"line":       structpb.NewStringValue(entry.String()),
	}}
}

// eventMessage converts a bus event. Trace entries already sent with the
// backlog are skipped.
func eventMessage(event eventbus.Event, lastSeq *uint64) (*structpb.Struct, bool) {
	switch event.Type {
	case eventbus.EventTrace:
		if event.Trace.Seq <= *lastSeq {
			return nil, false
		}
		*lastSeq = event.Trace.Seq
		return traceMessage(event.Trace), true
	case eventbus.EventHost:
		state := "detached"
		if event.Attached {
			state = "attached"
		}
		return &structpb.Struct{Fields: map[string]*structpb.Value{
			"host": structpb.NewStringValue(state),
		}}, true
	}
	return nil, false
}
