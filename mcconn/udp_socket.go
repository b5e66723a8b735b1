package mcconn

import (
	"io"

	"github.com/seznam/gomcache/errors"
)

const maxDatagramSize = 65507

// udpSocket adapts an already-connected UDP net.Conn (or any
// io.ReadWriteCloser with datagram-preserving Read semantics) to
// udpDatagramReader/udpWriter, one Read/Write call per datagram.
type udpSocket struct {
	rw io.ReadWriteCloser
}

// NewUDPSocket wraps rw, typically a *net.UDPConn obtained from a pooled
// connection, for use with NewUDP.
func NewUDPSocket(rw io.ReadWriteCloser) interface {
	udpDatagramReader
	udpWriter
	io.Closer
} {
	return &udpSocket{rw: rw}
}

func (s *udpSocket) ReadDatagram() ([]byte, error) {
	buf := make([]byte, maxDatagramSize)
	n, err := s.rw.Read(buf)
	if err != nil {
		return nil, errors.Wrap(err, "mcconn: udp socket read failed")
	}
	return buf[:n], nil
}

func (s *udpSocket) WriteDatagram(payload []byte) error {
	_, err := s.rw.Write(payload)
	if err != nil {
		return errors.Wrap(err, "mcconn: udp socket write failed")
	}
	return nil
}

func (s *udpSocket) Close() error {
	return s.rw.Close()
}
