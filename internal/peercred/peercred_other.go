//go:build !linux

package peercred

import "net"

// PeerUID is not implemented on this platform.
func PeerUID(net.Conn) (uint32, error) {
	return 0, ErrUnsupported
}
