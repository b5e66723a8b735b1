// Package mcconn adapts a pooled net.Conn into the read-until-delimiter /
// read-exact-bytes shape the wire codecs need, over both TCP and UDP. TCP
// connections are used as-is; UDP connections are wrapped to strip and
// reassemble the per-datagram request header memcached's UDP protocol
// adds on top of the ascii/binary wire format.
package mcconn

import (
	"bufio"
	"io"

	"github.com/seznam/gomcache/errors"
)

// Conn is the minimal interface the wire codecs need from a connection:
// write a request, then read either up to a delimiter or an exact byte
// count.
type Conn interface {
	Write(data []byte) error
	ReadUntil(delim byte) ([]byte, error)
	ReadExact(n int) ([]byte, error)
	Close() error
}

// tcpConn is a Conn backed directly by a TCP net.Conn.
type tcpConn struct {
	rw io.ReadWriter
	r  *bufio.Reader
}

// NewTCP wraps a dialed TCP connection (typically a pooled
// mcpool.ManagedConn) as a Conn.
func NewTCP(rw io.ReadWriter) Conn {
	return &tcpConn{rw: rw, r: bufio.NewReader(rw)}
}

func (c *tcpConn) Write(data []byte) error {
	_, err := c.rw.Write(data)
	if err != nil {
		return errors.Wrap(err, "mcconn: write failed")
	}
	return nil
}

func (c *tcpConn) ReadUntil(delim byte) ([]byte, error) {
	line, err := c.r.ReadBytes(delim)
	if err != nil {
		return nil, errors.Wrap(err, "mcconn: read line failed")
	}
	return line[:len(line)-1], nil
}

func (c *tcpConn) ReadExact(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(c.r, buf); err != nil {
		return nil, errors.Wrap(err, "mcconn: read exact failed")
	}
	return buf, nil
}

func (c *tcpConn) Close() error {
	if closer, ok := c.rw.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
