//go:build !unix

package transport

import "syscall"

func controlSocket(int) func(network, address string, rc syscall.RawConn) error {
	return nil
}
