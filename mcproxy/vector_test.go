package mcproxy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seznam/gomcache/mcproto"
)

func TestVectorDumpSortedByAddress(t *testing.T) {
	proxies := []*Proxy{
		NewProxy("z-host:11211", "tcp", &fakePool{}, mcproto.AsciiCodec{}, Config{}),
		NewProxy("a-host:11211", "tcp", &fakePool{}, mcproto.AsciiCodec{}, Config{}),
	}
	v := NewVector(proxies)

	dump := v.Dump()
	lines := strings.Split(strings.TrimSpace(dump), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "a-host:11211\t"))
	assert.True(t, strings.HasPrefix(lines[1], "z-host:11211\t"))
}

func TestVectorLenAndAt(t *testing.T) {
	proxies := []*Proxy{
		NewProxy("a", "tcp", &fakePool{}, mcproto.AsciiCodec{}, Config{}),
		NewProxy("b", "tcp", &fakePool{}, mcproto.AsciiCodec{}, Config{}),
	}
	v := NewVector(proxies)
	require.Equal(t, 2, v.Len())
	assert.Equal(t, "a", v.At(0).Address)
	assert.Equal(t, "b", v.At(1).Address)
}
