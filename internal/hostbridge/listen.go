package hostbridge

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"

	"pkt.systems/pslog"
)

// ListenAndServe accepts host connections on a Unix socket. Each new host
// replaces the previous one.
func ListenAndServe(ctx context.Context, socketPath string, handler Handler, opts Options) error {
	if socketPath == "" {
		return errors.New("host socket path is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = pslog.Ctx(ctx)
		opts.Logger = logger
	}
	if err := os.MkdirAll(filepath.Dir(socketPath), 0o700); err != nil {
		return err
	}
	_ = os.Remove(socketPath)

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return err
	}
	if err := os.Chmod(socketPath, 0o600); err != nil {
		_ = listener.Close()
		return err
	}
	logger.Info("host bridge listening", "socket", socketPath)

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()
	defer func() { _ = os.Remove(socketPath) }()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		go func() {
			if err := Serve(ctx, conn, handler, opts); err != nil {
				logger.Warn("host bridge connection failed", "err", err)
			}
		}()
	}
}

// ServeStdio runs a single host connection over the process stdio.
func ServeStdio(ctx context.Context, handler Handler, opts Options) error {
	return Serve(ctx, stdio{Reader: os.Stdin, Writer: os.Stdout}, handler, opts)
}

type stdio struct {
	io.Reader
	io.Writer
}

func (stdio) Close() error { return nil }
