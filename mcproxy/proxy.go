// Package mcproxy implements the per-server health tracking the client
// coordinator uses to skip unreachable servers without retrying them on
// every request: a Proxy starts out alive, trips to dead after enough
// consecutive I/O failures, and lets exactly one caller probe it back to
// life once its restoration deadline passes.
package mcproxy

import (
	"sync/atomic"
	"time"

	"github.com/seznam/gomcache/mcconn"
	"github.com/seznam/gomcache/mcpool"
	"github.com/seznam/gomcache/mcproto"
)

// Config configures a Proxy's health state machine.
type Config struct {
	// RestorationInterval is how long a Proxy stays marked dead before a
	// caller is allowed to probe it. Zero means DefaultRestorationInterval.
	RestorationInterval time.Duration

	// FailLimit is the number of consecutive I/O failures before a Proxy
	// is marked dead. Zero means DefaultFailLimit.
	FailLimit uint32
}

// DefaultRestorationInterval is how long a dead Proxy is left alone
// before the next caller is allowed to probe it.
const DefaultRestorationInterval = 60 * time.Second

// DefaultFailLimit is the number of consecutive I/O failures that marks a
// Proxy dead.
const DefaultFailLimit = 1

func (c Config) restorationInterval() time.Duration {
	if c.RestorationInterval <= 0 {
		return DefaultRestorationInterval
	}
	return c.RestorationInterval
}

func (c Config) failLimit() uint32 {
	if c.FailLimit == 0 {
		return DefaultFailLimit
	}
	return c.FailLimit
}

// Proxy wraps one memcache server address: a connection pool, the wire
// codec to speak over it, and the alive/dead/probing health state.
type Proxy struct {
	Address string
	Network string // "tcp" or "udp"
	Pool    mcpool.ConnectionPool
	Codec   mcproto.Codec
	Config  Config

	dead             int32 // atomic bool
	fails            uint32
	probeLock        int32 // 0 unlocked, 1 locked; guards the restoration/probe election
	restorationNanos int64 // unix nanos; valid only once dead has ever been set
	deadSinceNanos   int64 // unix nanos of the most recent alive->dead transition
	everDied         int32 // atomic bool
}

// NewProxy builds a Proxy for address over pool using codec.
func NewProxy(address, network string, pool mcpool.ConnectionPool, codec mcproto.Codec, cfg Config) *Proxy {
	return &Proxy{Address: address, Network: network, Pool: pool, Codec: codec, Config: cfg}
}

func (p *Proxy) tryLock() bool {
	return atomic.CompareAndSwapInt32(&p.probeLock, 0, 1)
}

func (p *Proxy) unlock() {
	atomic.StoreInt32(&p.probeLock, 0)
}

// Callable reports whether the caller may send a request to this proxy
// right now. When the proxy is dead and its restoration deadline has just
// passed, Callable elects exactly one caller to probe it -- that caller
// is expected to call Send immediately, since the probe IS the send.
func (p *Proxy) Callable() bool {
	if atomic.LoadInt32(&p.dead) == 0 {
		return true
	}

	now := time.Now()
	deadline := time.Unix(0, atomic.LoadInt64(&p.restorationNanos))
	if now.Before(deadline) {
		return false
	}

	if !p.tryLock() {
		return false
	}
	defer p.unlock()

	atomic.StoreInt64(&p.restorationNanos, now.Add(p.Config.restorationInterval()).UnixNano())
	return true
}

// Lifespan returns how long ago this proxy was last marked dead, or a
// deliberately large duration if it has never died -- used by the client
// coordinator to decide whether a NOT_FOUND from a just-restored server
// should be trusted.
func (p *Proxy) Lifespan() time.Duration {
	if atomic.LoadInt32(&p.everDied) == 0 {
		return time.Since(time.Unix(0, 0))
	}
	elapsed := time.Since(time.Unix(0, atomic.LoadInt64(&p.deadSinceNanos)))
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// State returns a short diagnostic string describing the proxy's current
// health, suitable for a Dump.
func (p *Proxy) State() string {
	if atomic.LoadInt32(&p.dead) == 0 {
		return "alive"
	}
	if time.Now().Before(time.Unix(0, atomic.LoadInt64(&p.restorationNanos))) {
		return "dead"
	}
	return "probing"
}

// Send runs cmd against this proxy's server. It never returns a nil
// *mcproto.Response: a transport failure is reported as a synthetic
// StatusIOError response rather than an error return, so callers can
// treat every outcome uniformly.
func (p *Proxy) Send(cmd *mcproto.Command) *mcproto.Response {
	conn, err := p.Pool.Get(p.Network, p.Address)
	if err != nil {
		return p.onIOError(err)
	}

	var wire mcconn.Conn
	if p.Network == "udp" {
		wire = mcconn.NewUDP(mcconn.NewUDPSocket(conn))
	} else {
		wire = mcconn.NewTCP(conn)
	}

	resp, doErr := mcproto.NewParser(p.Codec, wire).Do(cmd)
	if doErr != nil {
		_ = conn.DiscardConnection()
		return p.onIOError(doErr)
	}

	if resp.Status.IsError() {
		_ = conn.DiscardConnection()
	} else {
		_ = conn.ReleaseConnection()
	}

	p.onSuccess()
	connOkByAddr.Add(p.Address, 1)
	return resp
}

func (p *Proxy) onSuccess() {
	atomic.StoreInt32(&p.dead, 0)
	atomic.StoreUint32(&p.fails, 0)
}

func (p *Proxy) onIOError(err error) *mcproto.Response {
	connErrByAddr.Add(p.Address, 1)
	if p.tryLock() {
		fails := atomic.AddUint32(&p.fails, 1)
		if fails >= p.Config.failLimit() {
			now := time.Now()
			atomic.StoreInt64(&p.deadSinceNanos, now.UnixNano())
			atomic.StoreInt32(&p.everDied, 1)
			atomic.StoreInt64(&p.restorationNanos, now.Add(p.Config.restorationInterval()).UnixNano())
			atomic.StoreInt32(&p.dead, 1)
			// Cached idle connections were opened against a server we now
			// believe is down; a probe after restoration must dial fresh
			// rather than hand back one of them.
			_ = p.Pool.Clear()
		}
		p.unlock()
	}
	return &mcproto.Response{Status: mcproto.StatusIOError, Err: err}
}
