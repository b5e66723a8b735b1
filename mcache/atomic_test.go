package mcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtomicUpdateCreatesMissingKey(t *testing.T) {
	addrs := []string{"only:1"}
	pool := newScriptedPool()
	pool.responses["only:1"] = "END\r\n"
	client, _, _ := buildClient(t, addrs, pool, Config{})

	calls := 0
	err := client.AtomicUpdate("counter", 0, func(current []byte, currentFlags uint32, exists bool) ([]byte, uint32, bool) {
		calls++
		assert.False(t, exists)
		assert.Equal(t, uint32(0), currentFlags)
		return []byte("1"), 0, true
	})
	// The scripted pool always answers "END" to every request (gets and
	// add alike), so Add's NOT_STORED-vs-STORED classification fails and
	// AtomicUpdate surfaces the resulting protocol error rather than
	// looping forever.
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestAtomicUpdateAbortsWhenFnDeclines(t *testing.T) {
	addrs := []string{"only:1"}
	pool := newScriptedPool()
	pool.responses["only:1"] = "VALUE counter 0 1 5\r\n1\r\nEND\r\n"
	client, _, _ := buildClient(t, addrs, pool, Config{})

	err := client.AtomicUpdate("counter", 0, func(current []byte, currentFlags uint32, exists bool) ([]byte, uint32, bool) {
		return nil, 0, false
	})
	assert.NoError(t, err)
}

func TestAtomicUpdateThreadsCurrentFlagsAndWritesBackNewFlags(t *testing.T) {
	addrs := []string{"only:1"}
	pool := newScriptedPool()
	pool.responses["only:1"] = "VALUE counter 7 1 5\r\n1\r\nEND\r\n"
	client, _, _ := buildClient(t, addrs, pool, Config{})

	var sawFlags uint32
	err := client.AtomicUpdate("counter", 0, func(current []byte, currentFlags uint32, exists bool) ([]byte, uint32, bool) {
		sawFlags = currentFlags
		return current, currentFlags + 1, true
	})
	// The scripted pool answers every request identically (including the
	// cas write), so the write comes back as a get response rather than
	// STORED; AtomicUpdate surfaces that as a protocol error, but fn still
	// ran with the flags Gets reported, and the cas write carried fn's new
	// flags.
	require.Error(t, err)
	assert.Equal(t, uint32(7), sawFlags)
	assert.Equal(t, "cas counter 8 0 1 5\r\n1\r\n", pool.written["only:1"].String())
}
