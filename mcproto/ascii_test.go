package mcproto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seznam/gomcache/mcconn"
)

func pipe(seed string) (mcconn.Conn, *fakeWriter) {
	fw := &fakeWriter{}
	return mcconn.NewTCP(&rwPair{r: []byte(seed), w: fw}), fw
}

type fakeWriter struct {
	data []byte
}

func (f *fakeWriter) Write(p []byte) (int, error) {
	f.data = append(f.data, p...)
	return len(p), nil
}

type rwPair struct {
	r []byte
	w *fakeWriter
}

func (p *rwPair) Read(buf []byte) (int, error) {
	if len(p.r) == 0 {
		return 0, assertEOF{}
	}
	n := copy(buf, p.r)
	p.r = p.r[n:]
	return n, nil
}

func (p *rwPair) Write(buf []byte) (int, error) { return p.w.Write(buf) }

type assertEOF struct{}

func (assertEOF) Error() string { return "EOF" }

func TestAsciiWriteSetCommand(t *testing.T) {
	conn, fw := pipe("STORED\r\n")
	codec := AsciiCodec{}

	err := codec.WriteCommand(conn, &Command{Op: OpSet, Key: "foo", Value: []byte("bar"), Flags: 1, Expiration: 60})
	require.NoError(t, err)
	assert.Equal(t, "set foo 1 60 3\r\nbar\r\n", string(fw.data))
}

func TestAsciiWriteCasOnSetPromotesToCasVerb(t *testing.T) {
	conn, fw := pipe("STORED\r\n")
	codec := AsciiCodec{}

	err := codec.WriteCommand(conn, &Command{Op: OpSet, Key: "foo", Value: []byte("bar"), CAS: 42})
	require.NoError(t, err)
	assert.Equal(t, "cas foo 0 0 3 42\r\nbar\r\n", string(fw.data))
}

func TestAsciiGetAlwaysIssuesGets(t *testing.T) {
	conn, fw := pipe("END\r\n")
	codec := AsciiCodec{}

	err := codec.WriteCommand(conn, &Command{Op: OpGet, Key: "foo"})
	require.NoError(t, err)
	assert.Equal(t, "gets foo\r\n", string(fw.data))
}

func TestAsciiReadGetHit(t *testing.T) {
	conn, _ := pipe("VALUE foo 5 3 99\r\nbar\r\nEND\r\n")
	codec := AsciiCodec{}

	resp, err := codec.ReadResponse(conn, &Command{Op: OpGet, Key: "foo"})
	require.NoError(t, err)
	assert.Equal(t, StatusOK, resp.Status)
	assert.Equal(t, "bar", string(resp.Value))
	assert.Equal(t, uint32(5), resp.Flags)
	assert.Equal(t, uint64(99), resp.CAS)
}

func TestAsciiReadGetMiss(t *testing.T) {
	conn, _ := pipe("END\r\n")
	codec := AsciiCodec{}

	resp, err := codec.ReadResponse(conn, &Command{Op: OpGet, Key: "missing"})
	require.NoError(t, err)
	assert.Equal(t, StatusNotFound, resp.Status)
}

func TestAsciiReadStoreResponses(t *testing.T) {
	cases := map[string]Status{
		"STORED\r\n":     StatusStored,
		"NOT_STORED\r\n": StatusNotStored,
		"EXISTS\r\n":     StatusExists,
		"NOT_FOUND\r\n":  StatusNotFound,
	}
	codec := AsciiCodec{}
	for line, want := range cases {
		conn, _ := pipe(line)
		resp, err := codec.ReadResponse(conn, &Command{Op: OpSet})
		require.NoError(t, err)
		assert.Equal(t, want, resp.Status)
	}
}

func TestAsciiReadIncrDecr(t *testing.T) {
	conn, _ := pipe("7\r\n")
	codec := AsciiCodec{}
	resp, err := codec.ReadResponse(conn, &Command{Op: OpIncr})
	require.NoError(t, err)
	assert.Equal(t, StatusOK, resp.Status)
	assert.Equal(t, uint64(7), resp.Count)
}

func TestAsciiReadStats(t *testing.T) {
	conn, _ := pipe("STAT pid 123\r\nSTAT uptime 456\r\nEND\r\n")
	codec := AsciiCodec{}
	resp, err := codec.ReadResponse(conn, &Command{Op: OpStats})
	require.NoError(t, err)
	assert.Equal(t, "123", resp.Stats["pid"])
	assert.Equal(t, "456", resp.Stats["uptime"])
}

func TestAsciiWriteStatsWithKeyRejected(t *testing.T) {
	conn, _ := pipe("")
	codec := AsciiCodec{}
	err := codec.WriteCommand(conn, &Command{Op: OpStats, StatsKey: "slabs"})
	assert.Error(t, err)
}

func TestAsciiServerErrorIsReportedAsProtocolError(t *testing.T) {
	conn, _ := pipe("SERVER_ERROR out of memory\r\n")
	codec := AsciiCodec{}
	resp, err := codec.ReadResponse(conn, &Command{Op: OpSet})
	require.NoError(t, err)
	assert.Equal(t, StatusProtocolError, resp.Status)
	assert.Error(t, resp.Err)
}

func TestAsciiWriteIncrDecrRejectsNonZeroInitial(t *testing.T) {
	codec := AsciiCodec{}

	conn, _ := pipe("")
	err := codec.WriteCommand(conn, &Command{Op: OpIncr, Key: "foo", Delta: 1, Initial: 5})
	require.Error(t, err)
	assert.True(t, IsBadArgument(err))

	conn, _ = pipe("")
	err = codec.WriteCommand(conn, &Command{Op: OpDecr, Key: "foo", Delta: 1, Initial: 5})
	require.Error(t, err)
	assert.True(t, IsBadArgument(err))
}

func TestAsciiWriteIncrDecrAllowsZeroInitial(t *testing.T) {
	conn, fw := pipe("")
	codec := AsciiCodec{}
	err := codec.WriteCommand(conn, &Command{Op: OpIncr, Key: "foo", Delta: 1})
	require.NoError(t, err)
	assert.Equal(t, "incr foo 1\r\n", string(fw.data))
}
