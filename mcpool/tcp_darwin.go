// +build darwin

package mcpool

import (
	"net"
	"syscall"
	"time"
)

// SetTCPUserTimeout is a no-op on Darwin: the BSD TCP stack has no
// TCP_USER_TIMEOUT equivalent, so half-open connections are only ever
// caught by the application-level read/write timeouts.
func SetTCPUserTimeout(tcpConn *net.TCPConn, timeout time.Duration) error {
	return nil
}

// ControlWithTCPUserTimeout is a no-op on Darwin; see SetTCPUserTimeout.
func ControlWithTCPUserTimeout(rawConn syscall.RawConn, timeout time.Duration) error {
	return nil
}
