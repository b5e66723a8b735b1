package mcpool

import (
	"net"
	"time"

	"github.com/seznam/gomcache/errors"
	"github.com/seznam/gomcache/mcresource"
)

// NetworkAddress identifies a dial target the way net.Dial does: a
// network ("tcp", "udp") paired with an address.
type NetworkAddress struct {
	Network string
	Address string
}

// ManagedConn is a net.Conn leased from a ConnectionPool. Deadlines
// are the pool's responsibility -- SetDeadline, SetReadDeadline, and
// SetWriteDeadline all return an error rather than touching the
// socket, since ConnectionOptions.ReadTimeout/WriteTimeout already
// apply one per call.
type ManagedConn interface {
	net.Conn

	// Key returns the (network, address) this connection was opened for.
	Key() NetworkAddress

	// RawConn returns the underlying net.Conn.
	RawConn() net.Conn

	// Owner returns the pool this connection was leased from.
	Owner() ConnectionPool

	// ReleaseConnection returns the connection to its pool for reuse.
	ReleaseConnection() error

	// DiscardConnection removes the connection from its pool and closes
	// it, for use once the connection is known to be in a bad state.
	DiscardConnection() error
}

// managedConn is the concrete ManagedConn every ConnectionPool in this
// package hands back: a thin net.Conn wrapper around an
// mcresource.ManagedHandle that applies this pool's read/write
// deadlines on every call.
type managedConn struct {
	addr    NetworkAddress
	handle  mcresource.ManagedHandle
	pool    ConnectionPool
	options ConnectionOptions
}

// NewManagedConn wraps handle -- already leased from pool for (network,
// address) -- as a ManagedConn.
func NewManagedConn(
	network, address string,
	handle mcresource.ManagedHandle,
	pool ConnectionPool,
	options ConnectionOptions,
) ManagedConn {
	return &managedConn{
		addr:    NetworkAddress{Network: network, Address: address},
		handle:  handle,
		pool:    pool,
		options: options,
	}
}

func (c *managedConn) raw() (net.Conn, error) {
	h, err := c.handle.Handle()
	if err != nil {
		return nil, err
	}
	return h.(net.Conn), nil
}

func (c *managedConn) RawConn() net.Conn {
	conn, _ := c.raw()
	return conn
}

func (c *managedConn) Key() NetworkAddress     { return c.addr }
func (c *managedConn) Owner() ConnectionPool    { return c.pool }
func (c *managedConn) ReleaseConnection() error { return c.handle.Release() }
func (c *managedConn) DiscardConnection() error { return c.handle.Discard() }

func (c *managedConn) Read(b []byte) (int, error) {
	conn, err := c.raw()
	if err != nil {
		return 0, err
	}
	if c.options.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(c.options.getCurrentTime().Add(c.options.ReadTimeout))
	}
	n, err := conn.Read(b)
	if err != nil {
		return n, errors.Wrap(err, "mcpool: connection read failed")
	}
	return n, nil
}

func (c *managedConn) Write(b []byte) (int, error) {
	conn, err := c.raw()
	if err != nil {
		return 0, err
	}
	if c.options.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(c.options.getCurrentTime().Add(c.options.WriteTimeout))
	}
	n, err := conn.Write(b)
	if err != nil {
		return n, errors.Wrap(err, "mcpool: connection write failed")
	}
	return n, nil
}

// Close discards the connection rather than merely closing the
// socket, so the owning pool's active count stays correct.
func (c *managedConn) Close() error {
	return c.handle.Discard()
}

func (c *managedConn) LocalAddr() net.Addr {
	conn, _ := c.raw()
	if conn == nil {
		return nil
	}
	return conn.LocalAddr()
}

func (c *managedConn) RemoteAddr() net.Addr {
	conn, _ := c.raw()
	if conn == nil {
		return nil
	}
	return conn.RemoteAddr()
}

func (c *managedConn) SetDeadline(t time.Time) error {
	return errors.New("mcpool: managed connections do not support SetDeadline, see ConnectionOptions")
}

func (c *managedConn) SetReadDeadline(t time.Time) error {
	return errors.New("mcpool: managed connections do not support SetReadDeadline, see ConnectionOptions.ReadTimeout")
}

func (c *managedConn) SetWriteDeadline(t time.Time) error {
	return errors.New("mcpool: managed connections do not support SetWriteDeadline, see ConnectionOptions.WriteTimeout")
}
