// Package mcache implements the client-facing memcache coordinator: given a
// fixed set of server addresses, it builds a consistent-hashing picker and a
// health-tracked proxy per address, and drives requests across them with a
// bounded ring-walk retry loop that skips dead servers and treats a
// just-restored server's NOT_FOUND with suspicion for a grace period.
package mcache

import (
	"time"

	"github.com/seznam/gomcache/errors"
	"github.com/seznam/gomcache/mcproto"
	"github.com/seznam/gomcache/mcproxy"
	"github.com/seznam/gomcache/ringpool"
)

// DefaultMaxContinues is how many candidate servers a request may be tried
// against in total, the first attempt included, before it is abandoned as
// "out of servers".
const DefaultMaxContinues = 3

// DefaultH404Duration bounds how long after a server is restored its
// NOT_FOUND responses are treated as possibly stale rather than
// authoritative -- a server that just came back from a restart may have
// lost keys other servers still think it owns.
const DefaultH404Duration = 300 * time.Second

// DefaultAtomicUpdateIters is the number of gets/cas round trips
// AtomicUpdate attempts before giving up.
const DefaultAtomicUpdateIters = 64

// Config configures a Client's retry behavior.
type Config struct {
	// MaxContinues bounds how many candidate servers a request may be
	// tried against in total, the first attempt included. Zero means
	// DefaultMaxContinues.
	MaxContinues int

	// H404Duration is the grace period, measured from a server's last
	// restoration, during which a NOT_FOUND from that server on a first
	// attempt is retried against the next candidate instead of being
	// trusted. Zero means DefaultH404Duration.
	H404Duration time.Duration

	// AtomicUpdateIters bounds AtomicUpdate's gets/cas retry loop. Zero
	// means DefaultAtomicUpdateIters.
	AtomicUpdateIters int

	// LogError, if non-nil, is called with transport and protocol errors
	// encountered while serving a request. It never blocks a request on
	// its own completion.
	LogError func(error)
}

func (c Config) maxContinues() int {
	if c.MaxContinues <= 0 {
		return DefaultMaxContinues
	}
	return c.MaxContinues
}

func (c Config) h404Duration() time.Duration {
	if c.H404Duration <= 0 {
		return DefaultH404Duration
	}
	return c.H404Duration
}

func (c Config) atomicUpdateIters() int {
	if c.AtomicUpdateIters <= 0 {
		return DefaultAtomicUpdateIters
	}
	return c.AtomicUpdateIters
}

func (c Config) logError(err error) {
	if c.LogError != nil && err != nil {
		c.LogError(err)
	}
}

// Client is a fixed-membership memcache client: a shard picker resolving
// keys to candidate server indices, and a parallel vector of health-tracked
// proxies, one per address, built once at construction.
type Client struct {
	picker  shardPicker
	proxies *mcproxy.Vector
	cfg     Config
}

// NewRingClient builds a Client that resolves keys via ketama-style
// consistent hashing over proxies, one ring entry set per address. The ring
// and the proxy vector must describe the same addresses in the same order.
func NewRingClient(ring *ringpool.Ring, ringCfg ringpool.Config, proxies *mcproxy.Vector, cfg Config) *Client {
	return &Client{picker: newRingPicker(ring, ringCfg), proxies: proxies, cfg: cfg}
}

// NewModClient builds a Client that resolves keys via flat modulo hashing
// across proxies. Unlike NewRingClient, a request has no failover candidate
// if its one assigned server is unreachable.
func NewModClient(pool *ringpool.ModPool, proxies *mcproxy.Vector, cfg Config) *Client {
	return &Client{picker: newModPicker(pool, proxies.Len()), proxies: proxies, cfg: cfg}
}

// errOutOfServers is returned by run when every candidate for a key was
// either dead or exhausted within the retry budget.
var errOutOfServers = errors.New("mcache: out of servers for key")

// run sends cmd against the servers owning cmd.Key, in ring-walk order,
// until a response is accepted or the retry budget is exhausted. It never
// retries an index that is repeated by the iterator without counting
// forward progress, mirroring the reference ring walk's skip-duplicate
// behavior; a NOT_FOUND from a server's first attempt, within the h404
// grace period after that server's last restoration, is retried against
// the next candidate instead of being trusted as authoritative.
//
// The retry budget is checked before each candidate is tried, not after:
// with the default MaxContinues of 3, at most 3 candidates in total are
// ever attempted, the first included, and every path that spends part of the
// budget -- a dead/skipped proxy, an IO error, or a suppressed stale
// NOT_FOUND -- increments continues the same way.
func (c *Client) run(cmd *mcproto.Command) (*mcproto.Response, error) {
	if err := mcproto.ValidateCommand(cmd); err != nil {
		return nil, err
	}

	it := c.picker.Choose(cmd.Key)

	maxContinues := c.cfg.maxContinues()
	h404 := c.cfg.h404Duration()

	continues := 0
	attempt := 0
	lastIndex := -1
	outOfServers := true

	for {
		idx, ok := it.Next()
		if !ok {
			break
		}
		if idx == lastIndex {
			// Same server offered twice in a row -- don't let it eat into
			// the retry budget. The ring iterator already drops consecutive
			// repeats itself, so this only guards other pickers.
			continue
		}
		if continues >= maxContinues {
			break
		}
		lastIndex = idx
		attempt++

		proxy := c.proxies.At(idx)
		if cmd.Initial != 0 && (cmd.Op == mcproto.OpIncr || cmd.Op == mcproto.OpDecr) {
			switch proxy.Codec.(type) {
			case mcproto.AsciiCodec, *mcproto.AsciiCodec:
				// The ascii protocol has no seed value for incr/decr. Reject
				// before Send takes a pooled connection, so the proxy's fail
				// counter is left alone.
				return nil, errors.Wrap(mcproto.ErrBadArgument, "mcache: ascii protocol has no seed value for incr/decr on a missing key")
			}
		}
		if !proxy.Callable() {
			proxy.RecordSkipped()
			continues++
			continue
		}

		resp := proxy.Send(cmd)
		retrieval := isRetrievalOp(cmd.Op)

		switch {
		case resp.Status == mcproto.StatusIOError && mcproto.IsBadArgument(resp.Err):
			// A malformed request fails the same way against every
			// candidate -- retrying it across the ring would just burn the
			// budget and fail the proxy it happened to land on for no
			// reason. Raise it to the caller immediately instead.
			return nil, resp.Err

		case resp.Status == mcproto.StatusIOError:
			c.cfg.logError(resp.Err)
			if retrieval {
				getErrByAddr.Add(proxy.Address, 1)
			}
			continues++
			continue

		case resp.Status == mcproto.StatusNotFound && attempt == 1 && retrieval && proxy.Lifespan() < h404:
			// The server we tried first was recently restored and might
			// not yet hold keys that belong to it; give the next candidate
			// a chance before trusting this NOT_FOUND, spending part of the
			// retry budget just like an io-error would -- this is the one
			// path that clears outOfServers: a server did answer, so if the
			// budget runs out the caller gets NOT_FOUND rather than an
			// out-of-servers error.
			getOkByAddr.Add(proxy.Address, 1)
			outOfServers = false
			continues++
			continue

		default:
			if retrieval {
				getOkByAddr.Add(proxy.Address, 1)
			}
			return resp, nil
		}
	}

	if isRetrievalOp(cmd.Op) && !outOfServers {
		return &mcproto.Response{Status: mcproto.StatusNotFound, Key: cmd.Key}, nil
	}
	return nil, errOutOfServers
}

func isRetrievalOp(op mcproto.Op) bool {
	return op == mcproto.OpGet || op == mcproto.OpGets
}

// runAll broadcasts cmd to every proxy in the vector, regardless of key,
// and collects one response per address -- used for flush_all and the
// diagnostic broadcasts (stats, version, verbosity).
func (c *Client) runAll(cmd *mcproto.Command) map[string]*mcproto.Response {
	results := make(map[string]*mcproto.Response, c.proxies.Len())
	for _, proxy := range c.proxies.All() {
		if !proxy.Callable() {
			proxy.RecordSkipped()
			results[proxy.Address] = &mcproto.Response{Status: mcproto.StatusIOError, Err: errors.New("mcache: server unavailable")}
			continue
		}
		resp := proxy.Send(cmd)
		if resp.Status == mcproto.StatusIOError {
			c.cfg.logError(resp.Err)
		}
		results[proxy.Address] = resp
	}
	return results
}

// Dump renders a one-line-per-server health summary.
func (c *Client) Dump() string {
	return c.proxies.Dump()
}
