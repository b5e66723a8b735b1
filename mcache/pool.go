package mcache

import "github.com/seznam/gomcache/ringpool"

// indexIterator walks candidate server indices for a key, in priority
// order, stopping once every candidate has been offered.
type indexIterator interface {
	Next() (int, bool)
}

// shardPicker resolves a key to a sequence of candidate server indices.
// ringpool.Ring (consistent hashing, multiple failover candidates per key)
// and ringpool.ModPool (flat modulo hashing, exactly one candidate per key)
// both satisfy it through the adapters below.
type shardPicker interface {
	Len() int
	Choose(key string) indexIterator
}

type ringPicker struct {
	ring *ringpool.Ring
	cfg  ringpool.Config
}

// newRingPicker adapts a Ring into a shardPicker, walking its ring once
// per lookup for failover across every distinct address.
func newRingPicker(ring *ringpool.Ring, cfg ringpool.Config) shardPicker {
	return &ringPicker{ring: ring, cfg: cfg}
}

func (p *ringPicker) Len() int { return p.ring.Len() }

func (p *ringPicker) Choose(key string) indexIterator {
	return p.ring.Choose(key, p.cfg)
}

type modPicker struct {
	pool *ringpool.ModPool
	n    int
}

// newModPicker adapts a ModPool into a shardPicker. A ModPool has no
// failover candidates: every key resolves to exactly one shard index, so
// its iterator yields at most one value.
func newModPicker(pool *ringpool.ModPool, numShards int) shardPicker {
	return &modPicker{pool: pool, n: numShards}
}

func (p *modPicker) Len() int { return p.n }

func (p *modPicker) Choose(key string) indexIterator {
	return &oneShotIterator{value: p.pool.Choose(key)}
}

type oneShotIterator struct {
	value int
	done  bool
}

func (it *oneShotIterator) Next() (int, bool) {
	if it.done {
		return 0, false
	}
	it.done = true
	return it.value, true
}
