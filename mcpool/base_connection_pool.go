package mcpool

import (
	"net"
	"strings"
	"time"

	"github.com/seznam/gomcache/mcresource"
)

const defaultDialTimeout = 1 * time.Second

// locationKey and splitLocationKey convert between the (network,
// address) pair the ConnectionPool API exposes and the single
// resource-location string mcresource deals in -- "tcp" and
// "10.0.0.1:11211" become "tcp 10.0.0.1:11211" and back.
func locationKey(network, address string) string {
	return network + " " + address
}

func splitLocationKey(key string) (network, address string) {
	if idx := strings.IndexByte(key, ' '); idx >= 0 {
		return key[:idx], key[idx+1:]
	}
	return "", key
}

// BaseConnectionPool adapts an mcresource.ResourcePool of net.Conn
// handles into the memcache-flavored ConnectionPool API: it owns the
// dial/close functions and per-connection read/write deadlines, and
// defers everything about active/idle accounting to the wrapped pool.
type BaseConnectionPool struct {
	options ConnectionOptions
	pool    mcresource.ResourcePool
}

func dialFunc(options ConnectionOptions) func(network, address string) (net.Conn, error) {
	if options.Dial != nil {
		return options.Dial
	}
	return func(network, address string) (net.Conn, error) {
		return net.DialTimeout(network, address, defaultDialTimeout)
	}
}

func newBaseConnectionPool(
	options ConnectionOptions,
	createPool func(mcresource.Options) mcresource.ResourcePool,
) ConnectionPool {

	dial := dialFunc(options)
	resourceOptions := mcresource.Options{
		MaxActiveHandles:   options.MaxActiveConnections,
		MaxIdleHandles:     options.MaxIdleConnections,
		MaxIdleTime:        options.MaxIdleTime,
		OpenMaxConcurrency: options.DialMaxConcurrency,
		NowFunc:            options.NowFunc,
		Open: func(location string) (interface{}, error) {
			network, address := splitLocationKey(location)
			return dial(network, address)
		},
		Close: func(handle interface{}) error {
			return handle.(net.Conn).Close()
		},
	}

	return &BaseConnectionPool{options: options, pool: createPool(resourceOptions)}
}

// NewSimpleConnectionPool returns a ConnectionPool backed by a single
// (network, address).
func NewSimpleConnectionPool(options ConnectionOptions) ConnectionPool {
	return newBaseConnectionPool(options, mcresource.NewSimpleResourcePool)
}

// NewMultiConnectionPool returns a ConnectionPool managing independent
// connections to several (network, address) entries -- ("tcp",
// "localhost:11211") might be memcache shard 0, ("tcp",
// "localhost:11212") shard 1, with no coupling between their pools.
func NewMultiConnectionPool(options ConnectionOptions) ConnectionPool {
	return newBaseConnectionPool(options, func(o mcresource.Options) mcresource.ResourcePool {
		return mcresource.NewMultiResourcePool(o, nil)
	})
}

func (p *BaseConnectionPool) NumActive() int32 { return p.pool.NumActive() }

// ActiveHighWaterMark returns the highest NumActive this pool has ever
// observed. Not part of the ConnectionPool interface; a diagnostic for
// callers holding a *BaseConnectionPool.
func (p *BaseConnectionPool) ActiveHighWaterMark() int32 { return p.pool.ActiveHighWaterMark() }

// NumIdle returns the number of connections currently cached idle.
// Not part of the ConnectionPool interface; test-only.
func (p *BaseConnectionPool) NumIdle() int { return p.pool.NumIdle() }

func (p *BaseConnectionPool) Register(network, address string) error {
	return p.pool.Register(locationKey(network, address))
}

// Unregister is a no-op: BaseConnectionPool's underlying resource pool
// either refuses a second distinct location outright (the simple
// variant) or tracks its own per-location lifecycle (the multi
// variant), so there's nothing additional for this layer to do.
func (p *BaseConnectionPool) Unregister(network, address string) error {
	return nil
}

func (p *BaseConnectionPool) ListRegistered() []NetworkAddress {
	locations := p.pool.ListRegistered()
	out := make([]NetworkAddress, len(locations))
	for i, location := range locations {
		network, address := splitLocationKey(location)
		out[i] = NetworkAddress{Network: network, Address: address}
	}
	return out
}

func (p *BaseConnectionPool) Get(network, address string) (ManagedConn, error) {
	handle, err := p.pool.Get(locationKey(network, address))
	if err != nil {
		return nil, err
	}
	return NewManagedConn(network, address, handle, p, p.options), nil
}

func (p *BaseConnectionPool) Release(conn ManagedConn) error { return conn.ReleaseConnection() }
func (p *BaseConnectionPool) Discard(conn ManagedConn) error { return conn.DiscardConnection() }
func (p *BaseConnectionPool) Clear() error                   { return p.pool.Clear() }
func (p *BaseConnectionPool) EnterLameDuckMode()              { p.pool.EnterLameDuckMode() }
