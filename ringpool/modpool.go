package ringpool

import "github.com/seznam/gomcache/mchash"

const modPoolMaxShards = 1<<16 - 1

// ModPool is the simpler jump-hash style alternative to Ring: it has no
// virtual nodes and no ring walk, picking exactly one shard per key out of
// a fixed shard count. It is cheaper than Ring. It is not a plain
// hash-modulo selection: adding or removing the last shard moves only the
// keys that land on that shard, and every other key keeps its shard.
type ModPool struct {
	numShards uint16
}

// NewModPool builds a ModPool over numShards shards. It panics if
// numShards is zero or exceeds modPoolMaxShards.
func NewModPool(numShards int) *ModPool {
	if numShards <= 0 || numShards > modPoolMaxShards {
		panic("ringpool: NewModPool requires 1..65535 shards")
	}
	return &ModPool{numShards: uint16(numShards)}
}

// Choose returns the single shard index owning key.
func (p *ModPool) Choose(key string) int {
	return int(consistentMod(mchash.Murmur3([]byte(key), 0), p.numShards))
}

// consistentMod mirrors the jump-hash shard selection used elsewhere in
// this codebase: treat the 32-bit hash as a permutation generator and keep
// the shard landing on the lowest generated position.
func consistentMod(seed uint32, numShards uint16) uint16 {
	if numShards < 2 {
		return 0
	}

	hash := seed
	var lowestShard uint16
	var minPosition uint16 = modPoolMaxShards

	consider := func(shard, pos uint16) {
		pos %= modPoolMaxShards - shard
		if pos < minPosition {
			lowestShard = shard
			minPosition = pos
		}
	}

	numBlocks := numShards >> 1
	for i := uint16(0); i < numBlocks; i++ {
		hash = mchash.Murmur3(uint32Bytes(hash), 12345)
		shard := i << 1
		consider(shard, uint16(hash))
		if minPosition == 0 {
			return lowestShard
		}
		consider(shard+1, uint16(hash>>16))
		if minPosition == 0 {
			return lowestShard
		}
	}

	if numShards&0x1 == 1 {
		hash = mchash.Murmur3(uint32Bytes(hash), 12345)
		consider(numShards-1, uint16(hash))
	}

	return lowestShard
}

func uint32Bytes(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}
