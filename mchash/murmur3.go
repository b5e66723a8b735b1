package mchash

import "encoding/binary"

const (
	murmur3C1 uint32 = 0xcc9e2d51
	murmur3C2 uint32 = 0x1b873593
)

// Murmur3 is the 32-bit murmur3 hash, ported from the single-block variant
// used to seed the jump-hash sharder: same constants, same body/tail/
// finalization mix, generalized here to arbitrary-length input.
func Murmur3(data []byte, seed uint32) uint32 {
	h1 := seed

	nblocks := len(data) / 4
	for idx := 0; idx < nblocks; idx++ {
		k1 := binary.LittleEndian.Uint32(data[idx*4 : idx*4+4])

		k1 *= murmur3C1
		k1 = rotl32(k1, 15)
		k1 *= murmur3C2

		h1 ^= k1
		h1 = rotl32(h1, 13)
		h1 = h1*5 + 0xe6546b64
	}

	tail := data[nblocks*4:]

	var k1 uint32
	switch len(tail) & 3 {
	case 3:
		k1 ^= uint32(tail[2]) << 16
		fallthrough
	case 2:
		k1 ^= uint32(tail[1]) << 8
		fallthrough
	case 1:
		k1 ^= uint32(tail[0])
		k1 *= murmur3C1
		k1 = rotl32(k1, 15)
		k1 *= murmur3C2
		h1 ^= k1
	}

	h1 ^= uint32(len(data))

	h1 ^= h1 >> 16
	h1 *= 0x85ebca6b
	h1 ^= h1 >> 13
	h1 *= 0xc2b2ae35
	h1 ^= h1 >> 16
	return h1
}
