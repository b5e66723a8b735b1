package mcconn

import (
	"encoding/binary"
	"io"

	"github.com/seznam/gomcache/errors"
)

// udpHeaderLength is the size of the per-datagram header memcached's UDP
// protocol prepends to every packet: request id, sequence number within
// the request, total datagram count, and two reserved bytes.
const udpHeaderLength = 8

type udpDatagramReader interface {
	ReadDatagram() ([]byte, error)
}

// udpConn reassembles a sequence of UDP datagrams, each carrying an
// 8-byte framing header, into the flat byte stream the ascii/binary
// codecs expect. A single logical request/response round trip uses one
// request id; datagrams are buffered by sequence number and released in
// order as the reassembled buffer is drained.
type udpConn struct {
	dgrams udpDatagramReader
	nextID uint16

	buffer    []byte
	pending   map[uint16][]byte // seq -> payload, for packets that arrived early
	total     uint16            // total datagram count for the in-flight response, 0 if unknown
	seenCount uint16
}

// NewUDP wraps a UDP datagram source as a Conn, handling memcached's
// request/sequence/count framing transparently.
func NewUDP(dgrams udpDatagramReader) Conn {
	return &udpConn{
		dgrams:  dgrams,
		pending: make(map[uint16][]byte),
	}
}

// udpWriter is satisfied by anything that can send a single framed
// datagram; kept separate from udpDatagramReader so read-only fakes in
// tests don't need a no-op Write.
type udpWriter interface {
	WriteDatagram(payload []byte) error
}

// Write emits data as a single datagram: one request id, seq=0, count=1.
// memcached's UDP protocol never expects a client to split one logical
// request across several outgoing datagrams -- fill's reassembly exists
// to handle a server splitting one logical response across several, not
// the reverse.
func (c *udpConn) Write(data []byte) error {
	w, ok := c.dgrams.(udpWriter)
	if !ok {
		return errors.New("mcconn: underlying udp source cannot write")
	}

	id := c.nextID
	c.nextID++

	header := make([]byte, udpHeaderLength)
	binary.BigEndian.PutUint16(header[0:2], id)
	binary.BigEndian.PutUint16(header[2:4], 0) // seq
	binary.BigEndian.PutUint16(header[4:6], 1) // count
	// bytes 6:8 are reserved, left zero.

	if err := w.WriteDatagram(append(header, data...)); err != nil {
		return errors.Wrap(err, "mcconn: write datagram failed")
	}
	return nil
}

// fill reads one more datagram, strips its header, and merges its payload
// into the reassembly buffer, buffering out-of-order fragments by
// sequence number the way the reference client's connection_t::fill does.
func (c *udpConn) fill() error {
	pkt, err := c.dgrams.ReadDatagram()
	if err != nil {
		return errors.Wrap(err, "mcconn: read datagram failed")
	}
	if len(pkt) < udpHeaderLength {
		return errors.New("mcconn: datagram shorter than framing header")
	}

	seq := binary.BigEndian.Uint16(pkt[2:4])
	count := binary.BigEndian.Uint16(pkt[4:6])
	payload := pkt[udpHeaderLength:]

	if c.total == 0 {
		c.total = count
	}

	c.pending[seq] = payload

	// Drain every contiguous fragment starting from the one the buffer is
	// currently missing.
	return c.drainPending()
}

func (c *udpConn) drainPending() error {
	for {
		frag, ok := c.pending[c.seenCount]
		if !ok {
			return nil
		}
		c.buffer = append(c.buffer, frag...)
		delete(c.pending, c.seenCount)
		c.seenCount++
		if c.total != 0 && c.seenCount >= c.total {
			return nil
		}
	}
}

func (c *udpConn) ensure(n int) error {
	for len(c.buffer) < n {
		if c.total != 0 && c.seenCount >= c.total && len(c.pending) == 0 {
			return io.ErrUnexpectedEOF
		}
		if err := c.fill(); err != nil {
			return err
		}
	}
	return nil
}

func (c *udpConn) ReadUntil(delim byte) ([]byte, error) {
	for {
		if idx := indexByte(c.buffer, delim); idx >= 0 {
			line := c.buffer[:idx]
			c.buffer = c.buffer[idx+1:]
			return line, nil
		}
		if err := c.fill(); err != nil {
			return nil, err
		}
	}
}

func (c *udpConn) ReadExact(n int) ([]byte, error) {
	if err := c.ensure(n); err != nil {
		return nil, err
	}
	out := c.buffer[:n]
	c.buffer = c.buffer[n:]
	return out, nil
}

func (c *udpConn) Close() error {
	if closer, ok := c.dgrams.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}
