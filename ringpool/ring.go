// Package ringpool implements ketama-style consistent hashing over a set
// of server addresses: each address is seeded into the ring as a
// configurable number of virtual nodes, and a lookup walks forward from a
// key's position over one full pass of raw ring positions, dropping only
// an entry whose owner repeats the one just before it.
package ringpool

import (
	"sort"

	"github.com/seznam/gomcache/mchash"
)

// DefaultVirtualNodes is the number of ring entries placed per address
// when Config.VirtualNodes is left at zero.
const DefaultVirtualNodes = 200

// Config configures a Ring.
type Config struct {
	// VirtualNodes is the number of ring positions seeded per address.
	// Zero means DefaultVirtualNodes.
	VirtualNodes int

	// Hash is the hash function used both to seed virtual nodes and to
	// place lookup keys. A nil Hash means mchash.Murmur3.
	Hash mchash.Func
}

func (c Config) virtualNodes() int {
	if c.VirtualNodes <= 0 {
		return DefaultVirtualNodes
	}
	return c.VirtualNodes
}

func (c Config) hash() mchash.Func {
	if c.Hash == nil {
		return mchash.Murmur3
	}
	return c.Hash
}

// Ring is an immutable consistent-hashing namespace built once over a
// fixed list of addresses. It never rebalances: adding or removing
// addresses means building a new Ring.
type Ring struct {
	addresses []string
	positions []uint32 // sorted ring positions
	owners    []int    // owners[i] is the address index for positions[i]
}

// New builds a Ring over addresses using cfg. It panics if addresses is
// empty, mirroring the reference implementation's refusal to construct a
// pool with no servers.
func New(addresses []string, cfg Config) *Ring {
	if len(addresses) == 0 {
		panic("ringpool: New called with no addresses")
	}

	hashf := cfg.hash()
	vnodes := cfg.virtualNodes()

	type entry struct {
		pos   uint32
		owner int
	}
	entries := make([]entry, 0, len(addresses)*vnodes)

	for idx, addr := range addresses {
		var h uint32
		for i := 0; i < vnodes; i++ {
			h = hashf([]byte(addr), h)
			entries = append(entries, entry{pos: h, owner: idx})
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].pos < entries[j].pos })

	r := &Ring{
		addresses: append([]string(nil), addresses...),
		positions: make([]uint32, len(entries)),
		owners:    make([]int, len(entries)),
	}
	for i, e := range entries {
		r.positions[i] = e.pos
		r.owners[i] = e.owner
	}
	return r
}

// Len returns the number of distinct addresses in the ring.
func (r *Ring) Len() int { return len(r.addresses) }

// Addresses returns the ring's address list, in the order passed to New.
func (r *Ring) Addresses() []string { return append([]string(nil), r.addresses...) }

func (r *Ring) positionFor(key string, cfg Config) int {
	h := cfg.hash()([]byte(key), 0)
	i := sort.Search(len(r.positions), func(i int) bool { return r.positions[i] >= h })
	if i == len(r.positions) {
		i = 0
	}
	return i
}

// Choose returns a forward iterator over raw ring positions starting at
// the position owning key. The iterator walks one full pass over the ring
// (every virtual node visited at most once) before reporting exhaustion --
// mirroring consistent-hashing-pool_config_t::increment()'s raw walk over
// ring entries, one per virtual node, with no address-level dedup.
func (r *Ring) Choose(key string, cfg Config) *Iterator {
	start := r.positionFor(key, cfg)
	return &Iterator{ring: r, pos: start, prev: -1}
}

// Iterator walks raw ring positions starting from a chosen position,
// one virtual node per Next call. It does not dedupe to distinct owning
// addresses: like client.h's run(), which only ever skips an index equal
// to the immediately preceding one (its "if (*iidx == prev) continue;"
// guard), Next drops only an owner equal to the one it returned just
// before, and otherwise hands back every virtual node's owner, including
// later repeats, across its one pass over the ring.
type Iterator struct {
	ring    *Ring
	pos     int
	scanned int
	prev    int
}

// Next advances the iterator and returns the next ring entry's owning
// address index, skipping only a position whose owner matches the entry
// immediately before it. The second return value is false once one full
// pass over the ring's raw positions is exhausted.
func (it *Iterator) Next() (int, bool) {
	for it.scanned < len(it.ring.positions) {
		owner := it.ring.owners[it.pos]
		it.scanned++
		it.pos++
		if it.pos == len(it.ring.positions) {
			it.pos = 0
		}

		if owner == it.prev {
			continue
		}
		it.prev = owner
		return owner, true
	}

	return 0, false
}
