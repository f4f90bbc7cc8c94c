//go:build unix

package transport

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// controlSocket tunes the stream socket before connect: no Nagle delay on
// the tiny selector frames and a receive buffer large enough for a burst
// of sample blocks.
func controlSocket(recvBuffer int) func(network, address string, rc syscall.RawConn) error {
	return func(network, address string, rc syscall.RawConn) error {
		var serr error
		err := rc.Control(func(fd uintptr) {
			if serr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); serr != nil {
				return
			}
			if recvBuffer > 0 {
				serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, recvBuffer)
			}
		})
		if err != nil {
			return err
		}
		return serr
	}
}
