package mcresource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimpleResourcePoolRegisterGetRelease(t *testing.T) {
	opened := 0
	closed := 0
	pool := NewSimpleResourcePool(Options{
		Open:  func(loc string) (interface{}, error) { opened++; return "conn-" + loc, nil },
		Close: func(h interface{}) error { closed++; return nil },
	})

	require.NoError(t, pool.Register("10.0.0.1:11211"))

	h, err := pool.Get("10.0.0.1:11211")
	require.NoError(t, err)
	assert.Equal(t, "conn-10.0.0.1:11211", h.ReleaseUnderlyingHandle())
	require.Equal(t, int32(0), pool.NumActive())
	assert.Equal(t, 1, opened)
	assert.Equal(t, 0, closed)
}

func TestSimpleResourcePoolGetReusesReleasedHandle(t *testing.T) {
	opened := 0
	pool := NewSimpleResourcePool(Options{
		MaxIdleHandles: 1,
		Open:           func(loc string) (interface{}, error) { opened++; return opened, nil },
		Close:          func(h interface{}) error { return nil },
	})
	require.NoError(t, pool.Register("loc"))

	h1, err := pool.Get("loc")
	require.NoError(t, err)
	require.NoError(t, pool.Release(h1))

	h2, err := pool.Get("loc")
	require.NoError(t, err)
	_ = h2

	assert.Equal(t, 1, opened, "second Get should have reused the released handle instead of opening a new one")
}

func TestSimpleResourcePoolEnforcesMaxActiveHandles(t *testing.T) {
	pool := NewSimpleResourcePool(Options{
		MaxActiveHandles: 1,
		Open:             func(loc string) (interface{}, error) { return loc, nil },
		Close:            func(h interface{}) error { return nil },
	})
	require.NoError(t, pool.Register("loc"))

	_, err := pool.Get("loc")
	require.NoError(t, err)

	_, err = pool.Get("loc")
	assert.Error(t, err)
}

func TestSimpleResourcePoolTracksHighWaterMark(t *testing.T) {
	pool := NewSimpleResourcePool(Options{
		Open:  func(loc string) (interface{}, error) { return loc, nil },
		Close: func(h interface{}) error { return nil },
	})
	require.NoError(t, pool.Register("loc"))

	h1, err := pool.Get("loc")
	require.NoError(t, err)
	h2, err := pool.Get("loc")
	require.NoError(t, err)

	hw := pool.(*SimpleResourcePool).ActiveHighWaterMark()
	assert.Equal(t, int32(2), hw)

	require.NoError(t, pool.Release(h1))
	require.NoError(t, pool.Release(h2))

	assert.Equal(t, int32(2), pool.(*SimpleResourcePool).ActiveHighWaterMark(), "high water mark should not drop when handles are released")
}

func TestSimpleResourcePoolDiscardClosesHandle(t *testing.T) {
	closed := 0
	pool := NewSimpleResourcePool(Options{
		Open:  func(loc string) (interface{}, error) { return loc, nil },
		Close: func(h interface{}) error { closed++; return nil },
	})
	require.NoError(t, pool.Register("loc"))

	h, err := pool.Get("loc")
	require.NoError(t, err)
	require.NoError(t, pool.Discard(h))
	assert.Equal(t, 1, closed)
	assert.Equal(t, int32(0), pool.NumActive())
}

func TestSimpleResourcePoolEnterLameDuckRejectsNewGets(t *testing.T) {
	pool := NewSimpleResourcePool(Options{
		Open:  func(loc string) (interface{}, error) { return loc, nil },
		Close: func(h interface{}) error { return nil },
	})
	require.NoError(t, pool.Register("loc"))
	pool.EnterLameDuckMode()

	_, err := pool.Get("loc")
	assert.Error(t, err)
}
