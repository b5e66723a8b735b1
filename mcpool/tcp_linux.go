// +build linux

package mcpool

import (
	"net"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/seznam/gomcache/errors"
)

// SetTCPUserTimeout bounds how long unacknowledged data can sit in the
// kernel's send buffer before the connection is torn down, catching
// half-open connections (the peer vanished without a TCP close) that
// an application-level read timeout alone won't notice since nothing
// is ever read. Linux-only; TCP_USER_TIMEOUT has no portable
// equivalent.
func SetTCPUserTimeout(tcpConn *net.TCPConn, timeout time.Duration) error {
	rawConn, err := tcpConn.SyscallConn()
	if err != nil {
		return errors.Wrap(err, "mcpool: getting raw connection for TCP_USER_TIMEOUT")
	}
	if err := setTCPUserTimeout(rawConn, timeout); err != nil {
		return errors.Wrap(err, "mcpool: setting TCP_USER_TIMEOUT")
	}
	return nil
}

// ControlWithTCPUserTimeout is SetTCPUserTimeout's syscall.RawConn.Control
// callback, exported so callers building their own dialer can set the
// option at connection setup instead of after the fact.
func ControlWithTCPUserTimeout(rawConn syscall.RawConn, timeout time.Duration) error {
	return setTCPUserTimeout(rawConn, timeout)
}

func setTCPUserTimeout(rawConn syscall.RawConn, timeout time.Duration) error {
	var sockErr error
	controlErr := rawConn.Control(func(fd uintptr) {
		sockErr = syscall.SetsockoptInt(
			int(fd), syscall.IPPROTO_TCP, unix.TCP_USER_TIMEOUT, int(timeout/time.Millisecond))
	})
	if controlErr != nil {
		return controlErr
	}
	return sockErr
}
