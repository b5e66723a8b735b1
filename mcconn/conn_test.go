package mcconn

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loopback is an io.ReadWriter fake that lets a test pre-seed the bytes a
// read will see while separately capturing whatever gets written, mirroring
// how the teacher's raw client tests drive a fake connection.
type loopback struct {
	in  *bytes.Buffer
	out *bytes.Buffer
}

func newLoopback(seed string) *loopback {
	return &loopback{in: bytes.NewBufferString(seed), out: &bytes.Buffer{}}
}

func (l *loopback) Read(p []byte) (int, error)  { return l.in.Read(p) }
func (l *loopback) Write(p []byte) (int, error) { return l.out.Write(p) }

func TestTCPWriteAndReadUntil(t *testing.T) {
	lb := newLoopback("STORED\r\n")
	conn := NewTCP(lb)

	require.NoError(t, conn.Write([]byte("set foo 0 0 3\r\nbar\r\n")))
	assert.Equal(t, "set foo 0 0 3\r\nbar\r\n", lb.out.String())

	line, err := conn.ReadUntil('\n')
	require.NoError(t, err)
	assert.Equal(t, "STORED\r", string(line))
}

func TestTCPReadExact(t *testing.T) {
	lb := newLoopback("hello world")
	conn := NewTCP(lb)

	got, err := conn.ReadExact(5)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))

	got, err = conn.ReadExact(6)
	require.NoError(t, err)
	assert.Equal(t, " world", string(got))
}

func TestTCPReadExactPastEOFErrors(t *testing.T) {
	lb := newLoopback("ab")
	conn := NewTCP(lb)

	_, err := conn.ReadExact(10)
	assert.Error(t, err)
}
