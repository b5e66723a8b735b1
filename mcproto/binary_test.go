package mcproto

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func binaryResponse(h binHeader, extras, key, value []byte) []byte {
	h.ExtrasLength = uint8(len(extras))
	h.KeyLength = uint16(len(key))
	h.BodyLength = uint32(len(extras) + len(key) + len(value))
	buf := h.marshal()
	buf = append(buf, extras...)
	buf = append(buf, key...)
	buf = append(buf, value...)
	return buf
}

func TestBinaryWriteSetCommand(t *testing.T) {
	conn, fw := pipe("")
	codec := BinaryCodec{}

	err := codec.WriteCommand(conn, &Command{Op: OpSet, Key: "foo", Value: []byte("bar"), Flags: 9, Expiration: 60})
	require.NoError(t, err)

	h := unmarshalBinHeader(fw.data[:binHeaderLength])
	assert.Equal(t, binReqMagic, h.Magic)
	assert.Equal(t, binOpSet, h.OpCode)
	assert.EqualValues(t, 3, h.KeyLength)
	assert.EqualValues(t, 8, h.ExtrasLength)

	extras := fw.data[binHeaderLength : binHeaderLength+8]
	assert.Equal(t, uint32(9), binary.BigEndian.Uint32(extras[0:4]))
	assert.Equal(t, uint32(60), binary.BigEndian.Uint32(extras[4:8]))
}

func TestBinaryWriteCasSharesSetOpcode(t *testing.T) {
	conn, fw := pipe("")
	codec := BinaryCodec{}

	err := codec.WriteCommand(conn, &Command{Op: OpCas, Key: "foo", Value: []byte("bar"), CAS: 77})
	require.NoError(t, err)

	h := unmarshalBinHeader(fw.data[:binHeaderLength])
	assert.Equal(t, binOpSet, h.OpCode)
	assert.EqualValues(t, 77, h.CAS)
}

func TestBinaryWriteTouchUsesDedicatedOpcode(t *testing.T) {
	conn, fw := pipe("")
	codec := BinaryCodec{}

	err := codec.WriteCommand(conn, &Command{Op: OpTouch, Key: "foo", Expiration: 5})
	require.NoError(t, err)

	h := unmarshalBinHeader(fw.data[:binHeaderLength])
	assert.Equal(t, binOpTouch, h.OpCode)
}

func TestBinaryReadGetHit(t *testing.T) {
	extras := make([]byte, 4)
	binary.BigEndian.PutUint32(extras, 5)
	raw := binaryResponse(binHeader{Magic: binRespMagic, OpCode: binOpGet, Status: binStatusOK, CAS: 12}, extras, nil, []byte("bar"))
	conn, _ := pipe(string(raw))

	codec := BinaryCodec{}
	resp, err := codec.ReadResponse(conn, &Command{Op: OpGet, Key: "foo"})
	require.NoError(t, err)
	assert.Equal(t, StatusOK, resp.Status)
	assert.Equal(t, "bar", string(resp.Value))
	assert.Equal(t, uint32(5), resp.Flags)
	assert.EqualValues(t, 12, resp.CAS)
}

func TestBinaryReadGetMiss(t *testing.T) {
	raw := binaryResponse(binHeader{Magic: binRespMagic, OpCode: binOpGet, Status: binStatusKeyNotFound}, nil, nil, nil)
	conn, _ := pipe(string(raw))

	codec := BinaryCodec{}
	resp, err := codec.ReadResponse(conn, &Command{Op: OpGet, Key: "foo"})
	require.NoError(t, err)
	assert.Equal(t, StatusNotFound, resp.Status)
}

func TestBinaryReadStats(t *testing.T) {
	entry := binaryResponse(binHeader{Magic: binRespMagic, OpCode: binOpStat, Status: binStatusOK}, nil, []byte("pid"), []byte("123"))
	sentinel := binaryResponse(binHeader{Magic: binRespMagic, OpCode: binOpStat, Status: binStatusOK}, nil, nil, nil)
	raw := append(entry, sentinel...)
	conn, _ := pipe(string(raw))

	codec := BinaryCodec{}
	resp, err := codec.ReadResponse(conn, &Command{Op: OpStats})
	require.NoError(t, err)
	assert.Equal(t, "123", resp.Stats["pid"])
}

func TestBinaryReadBadMagicErrors(t *testing.T) {
	raw := binaryResponse(binHeader{Magic: 0x00, OpCode: binOpGet, Status: binStatusOK}, nil, nil, nil)
	conn, _ := pipe(string(raw))

	codec := BinaryCodec{}
	_, err := codec.ReadResponse(conn, &Command{Op: OpGet})
	assert.Error(t, err)
}
