package mcpool

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimpleConnectionPoolRegisterAndGet(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()

	pool := NewSimpleConnectionPool(ConnectionOptions{
		Dial: func(network, address string) (net.Conn, error) {
			return client, nil
		},
	})

	require.NoError(t, pool.Register("tcp", "10.0.0.1:11211"))

	conn, err := pool.Get("tcp", "10.0.0.1:11211")
	require.NoError(t, err)
	require.NoError(t, conn.ReleaseConnection())

	assert.Equal(t, int32(0), pool.NumActive())
}

func TestSimpleConnectionPoolListRegistered(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()

	pool := NewSimpleConnectionPool(ConnectionOptions{
		Dial: func(network, address string) (net.Conn, error) { return client, nil },
	})
	require.NoError(t, pool.Register("tcp", "10.0.0.1:11211"))

	registered := pool.ListRegistered()
	require.Len(t, registered, 1)
	assert.Equal(t, "tcp", registered[0].Network)
	assert.Equal(t, "10.0.0.1:11211", registered[0].Address)
}

func TestMultiConnectionPoolTracksMultipleAddresses(t *testing.T) {
	serverA, clientA := net.Pipe()
	serverB, clientB := net.Pipe()
	defer serverA.Close()
	defer serverB.Close()

	pool := NewMultiConnectionPool(ConnectionOptions{
		Dial: func(network, address string) (net.Conn, error) {
			if address == "a" {
				return clientA, nil
			}
			return clientB, nil
		},
	})

	require.NoError(t, pool.Register("tcp", "a"))
	require.NoError(t, pool.Register("tcp", "b"))

	connA, err := pool.Get("tcp", "a")
	require.NoError(t, err)
	connB, err := pool.Get("tcp", "b")
	require.NoError(t, err)

	assert.Equal(t, int32(2), pool.NumActive())
	require.NoError(t, pool.Discard(connA))
	require.NoError(t, pool.Discard(connB))
}
