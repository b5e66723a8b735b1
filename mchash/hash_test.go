package mchash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByName(t *testing.T) {
	for _, name := range []string{"murmur3", "jenkins", "city", "spooky"} {
		fn, ok := ByName(name)
		require.True(t, ok, name)
		require.NotNil(t, fn, name)
	}

	_, ok := ByName("not-a-hash")
	assert.False(t, ok)
}

func TestHashFunctionsAreDeterministic(t *testing.T) {
	data := []byte("10.0.0.1:11211")
	for _, fn := range []Func{Murmur3, Jenkins, CityHash, SpookyV2} {
		a := fn(data, 0)
		b := fn(data, 0)
		assert.Equal(t, a, b)
	}
}

func TestHashFunctionsDistinguishInputs(t *testing.T) {
	for _, fn := range []Func{Murmur3, Jenkins, CityHash, SpookyV2} {
		a := fn([]byte("server-a"), 0)
		b := fn([]byte("server-b"), 0)
		assert.NotEqual(t, a, b)
	}
}

func TestHashFunctionsRespectSeed(t *testing.T) {
	data := []byte("some-key")
	for _, fn := range []Func{Murmur3, Jenkins, CityHash, SpookyV2} {
		a := fn(data, 0)
		b := fn(data, 1)
		assert.NotEqual(t, a, b)
	}
}

func TestHashFunctionsHandleEmptyInput(t *testing.T) {
	for _, fn := range []Func{Murmur3, Jenkins, CityHash, SpookyV2} {
		assert.NotPanics(t, func() { fn(nil, 0) })
		assert.NotPanics(t, func() { fn([]byte{}, 42) })
	}
}

func TestMurmur3KnownVector(t *testing.T) {
	// murmur3_32("", 0) == 0, a commonly cited reference vector.
	assert.Equal(t, uint32(0), Murmur3(nil, 0))
}
