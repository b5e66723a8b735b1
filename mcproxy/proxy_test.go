package mcproxy

import (
	"bytes"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seznam/gomcache/mcpool"
	"github.com/seznam/gomcache/mcproto"
)

// fakePool hands out one pre-seeded connection per Get call, or fails if
// failNext is set, simulating a dead server.
type fakePool struct {
	response  string
	failNext  bool
	released  bool
	discarded bool
	gets      int
	cleared   int
}

func (p *fakePool) NumActive() int32                         { return 0 }
func (p *fakePool) Register(network, address string) error   { return nil }
func (p *fakePool) Unregister(network, address string) error { return nil }
func (p *fakePool) ListRegistered() []mcpool.NetworkAddress   { return nil }
func (p *fakePool) EnterLameDuckMode()                        {}

func (p *fakePool) Clear() error {
	p.cleared++
	return nil
}

func (p *fakePool) Get(network, address string) (mcpool.ManagedConn, error) {
	p.gets++
	if p.failNext {
		return nil, errors.New("connection refused")
	}
	return &connAdapter{buf: bytes.NewBufferString(p.response), out: &bytes.Buffer{}, pool: p}, nil
}

func (p *fakePool) Release(conn mcpool.ManagedConn) error {
	p.released = true
	return nil
}

func (p *fakePool) Discard(conn mcpool.ManagedConn) error {
	p.discarded = true
	return nil
}

// connAdapter satisfies mcpool.ManagedConn with the minimum behavior
// Proxy.Send exercises: Read/Write, plus Release/DiscardConnection routed
// back to the owning fakePool.
type connAdapter struct {
	buf  *bytes.Buffer
	out  *bytes.Buffer
	pool *fakePool
}

func (c *connAdapter) Read(p []byte) (int, error)  { return c.buf.Read(p) }
func (c *connAdapter) Write(p []byte) (int, error) { return c.out.Write(p) }
func (c *connAdapter) Close() error                { return nil }
func (c *connAdapter) LocalAddr() net.Addr         { return fakeAddr{} }
func (c *connAdapter) RemoteAddr() net.Addr        { return fakeAddr{} }
func (c *connAdapter) SetDeadline(t time.Time) error      { return nil }
func (c *connAdapter) SetReadDeadline(t time.Time) error  { return nil }
func (c *connAdapter) SetWriteDeadline(t time.Time) error { return nil }

func (c *connAdapter) Key() mcpool.NetworkAddress     { return mcpool.NetworkAddress{} }
func (c *connAdapter) RawConn() net.Conn              { return c }
func (c *connAdapter) Owner() mcpool.ConnectionPool   { return c.pool }
func (c *connAdapter) ReleaseConnection() error {
	c.pool.released = true
	return nil
}
func (c *connAdapter) DiscardConnection() error {
	c.pool.discarded = true
	return nil
}

type fakeAddr struct{}

func (fakeAddr) Network() string { return "tcp" }
func (fakeAddr) String() string  { return "" }

func TestProxyCallableWhenAlive(t *testing.T) {
	p := NewProxy("10.0.0.1:11211", "tcp", &fakePool{}, mcproto.AsciiCodec{}, Config{})
	assert.True(t, p.Callable())
}

func TestProxySuccessfulSendResetsFailures(t *testing.T) {
	pool := &fakePool{response: "STORED\r\n"}
	p := NewProxy("addr", "tcp", pool, mcproto.AsciiCodec{}, Config{})

	resp := p.Send(&mcproto.Command{Op: mcproto.OpSet, Key: "k", Value: []byte("v")})
	assert.Equal(t, mcproto.StatusStored, resp.Status)
	assert.True(t, pool.released)
	assert.False(t, pool.discarded)
	assert.Equal(t, "alive", p.State())
}

func TestProxyIOErrorMarksDead(t *testing.T) {
	pool := &fakePool{failNext: true}
	p := NewProxy("addr", "tcp", pool, mcproto.AsciiCodec{}, Config{FailLimit: 1})

	resp := p.Send(&mcproto.Command{Op: mcproto.OpGet, Key: "k"})
	assert.Equal(t, mcproto.StatusIOError, resp.Status)
	assert.False(t, p.Callable())
	assert.Equal(t, "dead", p.State())
	assert.Equal(t, 1, pool.cleared, "alive->dead transition must clear the connection pool's idle cache")
}

func TestProxyErrorResponseDiscardsConnectionButLeavesHealthAlone(t *testing.T) {
	pool := &fakePool{response: "CLIENT_ERROR bad data\r\n"}
	p := NewProxy("addr", "tcp", pool, mcproto.AsciiCodec{}, Config{FailLimit: 1})

	resp := p.Send(&mcproto.Command{Op: mcproto.OpSet, Key: "k", Value: []byte("v")})
	// A CLIENT_ERROR means the server answered, just not with something
	// this client understood -- it is a protocol error, not the transport
	// failure that affects a proxy's health.
	assert.Equal(t, mcproto.StatusProtocolError, resp.Status)
	assert.True(t, pool.discarded)
	assert.True(t, p.Callable())
	assert.Equal(t, "alive", p.State())
}

func TestProxyLifespanLargeWhenNeverDied(t *testing.T) {
	p := NewProxy("addr", "tcp", &fakePool{}, mcproto.AsciiCodec{}, Config{})
	require.True(t, p.Lifespan() > DefaultRestorationInterval*1000)
}
