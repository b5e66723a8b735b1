// Package mchash implements the family of hash functions used to place
// keys on the consistent-hashing ring. Each function takes arbitrary bytes
// and a seed and returns a 32-bit digest; none of them allocate beyond the
// occasional internal slice.
package mchash

// Func is a key hashing function used to seed ring positions and to pick
// the starting point for a lookup.
type Func func(data []byte, seed uint32) uint32

// ByName resolves one of the built-in hash functions by its canonical name.
// It returns false if name does not match a known function.
func ByName(name string) (Func, bool) {
	switch name {
	case "murmur3":
		return Murmur3, true
	case "jenkins":
		return Jenkins, true
	case "city":
		return CityHash, true
	case "spooky":
		return SpookyV2, true
	default:
		return nil, false
	}
}

func rotl32(x uint32, r uint) uint32 {
	return (x << r) | (x >> (32 - r))
}
