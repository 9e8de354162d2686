// Package peercred restricts Unix socket listeners to connections from a
// single user id.
package peercred

import (
	"context"
	"errors"
	"net"

	"pkt.systems/pslog"
)

// ErrUnsupported indicates peer credentials are not available for a connection.
var ErrUnsupported = errors.New("peer credentials unsupported")

// Listener drops accepted connections whose peer uid differs from UID.
type Listener struct {
	net.Listener
	UID    uint32
	Logger pslog.Logger
}

// Wrap returns a Listener admitting only peers running as uid.
func Wrap(inner net.Listener, uid uint32, logger pslog.Logger) *Listener {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Listener{Listener: inner, UID: uid, Logger: logger}
}

// Accept returns the next connection from an allowed peer.
func (l *Listener) Accept() (net.Conn, error) {
	for {
		conn, err := l.Listener.Accept()
		if err != nil {
			return nil, err
		}
		uid, err := PeerUID(conn)
		switch {
		case errors.Is(err, ErrUnsupported):
			return conn, nil
		case err != nil:
			l.Logger.Warn("peercred lookup failed", "err", err)
			_ = conn.Close()
		case uid != l.UID:
			l.Logger.Warn("peercred rejected connection", "uid", uid, "want", l.UID)
			_ = conn.Close()
		default:
			return conn, nil
		}
	}
}
