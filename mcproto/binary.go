package mcproto

import (
	"encoding/binary"

	"github.com/seznam/gomcache/errors"
	"github.com/seznam/gomcache/mcconn"
)

const (
	binHeaderLength   = 24
	binReqMagic byte  = 0x80
	binRespMagic byte = 0x81
)

type binOpCode uint8

const (
	binOpGet        binOpCode = 0x00
	binOpSet        binOpCode = 0x01
	binOpAdd        binOpCode = 0x02
	binOpReplace    binOpCode = 0x03
	binOpDelete     binOpCode = 0x04
	binOpIncrement  binOpCode = 0x05
	binOpDecrement  binOpCode = 0x06
	binOpFlush      binOpCode = 0x08
	binOpVersion    binOpCode = 0x0b
	binOpAppend     binOpCode = 0x0e
	binOpPrepend    binOpCode = 0x0f
	binOpStat       binOpCode = 0x10
	binOpVerbosity  binOpCode = 0x1b
	binOpTouch      binOpCode = 0x1c
)

type binStatus uint16

const (
	binStatusOK             binStatus = 0x0000
	binStatusKeyNotFound    binStatus = 0x0001
	binStatusKeyExists      binStatus = 0x0002
	binStatusValueTooLarge  binStatus = 0x0003
	binStatusInvalidArgs    binStatus = 0x0004
	binStatusItemNotStored  binStatus = 0x0005
	binStatusNonNumeric     binStatus = 0x0006
	binStatusUnknownCommand binStatus = 0x0081
	binStatusOutOfMemory    binStatus = 0x0082
)

func binStatusToStatus(s binStatus) Status {
	switch s {
	case binStatusOK:
		return StatusOK
	case binStatusKeyNotFound:
		return StatusNotFound
	case binStatusKeyExists:
		return StatusExists
	case binStatusItemNotStored:
		return StatusNotStored
	default:
		return StatusProtocolError
	}
}

func opToBinOpCode(op Op) (binOpCode, bool) {
	switch op {
	case OpGet, OpGets:
		return binOpGet, true
	case OpSet:
		return binOpSet, true
	case OpAdd:
		return binOpAdd, true
	case OpReplace:
		return binOpReplace, true
	case OpCas:
		return binOpSet, true // cas rides the set opcode with a non-zero CAS field
	case OpAppend:
		return binOpAppend, true
	case OpPrepend:
		return binOpPrepend, true
	case OpDelete:
		return binOpDelete, true
	case OpIncr:
		return binOpIncrement, true
	case OpDecr:
		return binOpDecrement, true
	case OpTouch:
		return binOpTouch, true
	case OpFlushAll:
		return binOpFlush, true
	case OpStats:
		return binOpStat, true
	case OpVersion:
		return binOpVersion, true
	case OpVerbosity:
		return binOpVerbosity, true
	default:
		return 0, false
	}
}

type binHeader struct {
	Magic        byte
	OpCode       binOpCode
	KeyLength    uint16
	ExtrasLength uint8
	DataType     uint8
	Status       binStatus
	BodyLength   uint32
	Opaque       uint32
	CAS          uint64
}

func (h binHeader) marshal() []byte {
	buf := make([]byte, binHeaderLength)
	buf[0] = h.Magic
	buf[1] = byte(h.OpCode)
	binary.BigEndian.PutUint16(buf[2:4], h.KeyLength)
	buf[4] = h.ExtrasLength
	buf[5] = h.DataType
	binary.BigEndian.PutUint16(buf[6:8], uint16(h.Status))
	binary.BigEndian.PutUint32(buf[8:12], h.BodyLength)
	binary.BigEndian.PutUint32(buf[12:16], h.Opaque)
	binary.BigEndian.PutUint64(buf[16:24], h.CAS)
	return buf
}

func unmarshalBinHeader(buf []byte) binHeader {
	return binHeader{
		Magic:        buf[0],
		OpCode:       binOpCode(buf[1]),
		KeyLength:    binary.BigEndian.Uint16(buf[2:4]),
		ExtrasLength: buf[4],
		DataType:     buf[5],
		Status:       binStatus(binary.BigEndian.Uint16(buf[6:8])),
		BodyLength:   binary.BigEndian.Uint32(buf[8:12]),
		Opaque:       binary.BigEndian.Uint32(buf[12:16]),
		CAS:          binary.BigEndian.Uint64(buf[16:24]),
	}
}

// BinaryCodec implements memcached's binary protocol: a fixed 24-byte
// header, optional extras, key, and value, all framed by explicit length
// fields rather than delimiters.
type BinaryCodec struct{}

func (BinaryCodec) extrasFor(cmd *Command) []byte {
	switch cmd.Op {
	case OpSet, OpAdd, OpReplace, OpCas:
		extras := make([]byte, 8)
		binary.BigEndian.PutUint32(extras[0:4], cmd.Flags)
		binary.BigEndian.PutUint32(extras[4:8], cmd.Expiration)
		return extras
	case OpIncr, OpDecr:
		extras := make([]byte, 20)
		binary.BigEndian.PutUint64(extras[0:8], cmd.Delta)
		binary.BigEndian.PutUint64(extras[8:16], cmd.Initial)
		binary.BigEndian.PutUint32(extras[16:20], cmd.Expiration)
		return extras
	case OpFlushAll:
		extras := make([]byte, 4)
		binary.BigEndian.PutUint32(extras[0:4], cmd.Expiration)
		return extras
	case OpTouch:
		extras := make([]byte, 4)
		binary.BigEndian.PutUint32(extras[0:4], cmd.Expiration)
		return extras
	case OpVerbosity:
		extras := make([]byte, 4)
		binary.BigEndian.PutUint32(extras[0:4], cmd.Verbosity)
		return extras
	default:
		return nil
	}
}

// WriteCommand serializes cmd and writes it to conn.
func (c BinaryCodec) WriteCommand(conn mcconn.Conn, cmd *Command) error {
	opcode, ok := opToBinOpCode(cmd.Op)
	if !ok {
		return errors.Newf("mcproto: binary codec cannot encode op %d", cmd.Op)
	}

	extras := c.extrasFor(cmd)
	key := []byte(cmd.Key)
	value := cmd.Value
	if cmd.Op == OpDelete || cmd.Op == OpGet || cmd.Op == OpGets ||
		cmd.Op == OpStats || cmd.Op == OpVersion || cmd.Op == OpIncr ||
		cmd.Op == OpDecr || cmd.Op == OpFlushAll || cmd.Op == OpVerbosity ||
		cmd.Op == OpTouch {
		value = nil
	}

	header := binHeader{
		Magic:        binReqMagic,
		OpCode:       opcode,
		KeyLength:    uint16(len(key)),
		ExtrasLength: uint8(len(extras)),
		BodyLength:   uint32(len(extras) + len(key) + len(value)),
		CAS:          cmd.CAS,
	}

	buf := make([]byte, 0, binHeaderLength+len(extras)+len(key)+len(value))
	buf = append(buf, header.marshal()...)
	buf = append(buf, extras...)
	buf = append(buf, key...)
	buf = append(buf, value...)

	return conn.Write(buf)
}

// ReadResponse reads and classifies the reply to cmd.
func (c BinaryCodec) ReadResponse(conn mcconn.Conn, cmd *Command) (*Response, error) {
	if cmd.Op == OpStats {
		return c.readStatsResponse(conn)
	}

	raw, err := conn.ReadExact(binHeaderLength)
	if err != nil {
		return nil, err
	}
	h := unmarshalBinHeader(raw)
	if h.Magic != binRespMagic {
		return nil, errors.New("mcproto: bad response magic byte")
	}

	extrasLen := int(h.ExtrasLength)
	keyLen := int(h.KeyLength)
	valueLen := int(h.BodyLength) - extrasLen - keyLen
	if valueLen < 0 {
		return nil, errors.New("mcproto: negative value length in binary response")
	}

	body, err := conn.ReadExact(extrasLen + keyLen + valueLen)
	if err != nil {
		return nil, err
	}
	extras := body[:extrasLen]
	key := body[extrasLen : extrasLen+keyLen]
	value := body[extrasLen+keyLen:]

	resp := &Response{
		Status: binStatusToStatus(h.Status),
		Key:    string(key),
		CAS:    h.CAS,
	}
	if resp.Status != StatusOK {
		if resp.Status == StatusProtocolError {
			resp.Err = errors.Newf("mcproto: binary status 0x%04x", uint16(h.Status))
		}
		return resp, nil
	}

	switch cmd.Op {
	case OpGet, OpGets:
		if len(extras) >= 4 {
			resp.Flags = binary.BigEndian.Uint32(extras[0:4])
		}
		resp.Value = value
	case OpIncr, OpDecr:
		if len(value) >= 8 {
			resp.Count = binary.BigEndian.Uint64(value[0:8])
		}
	case OpVersion:
		resp.Versions = map[string]string{"": string(value)}
	}

	return resp, nil
}

func (c BinaryCodec) readStatsResponse(conn mcconn.Conn) (*Response, error) {
	entries := make(map[string]string)
	for {
		raw, err := conn.ReadExact(binHeaderLength)
		if err != nil {
			return nil, err
		}
		h := unmarshalBinHeader(raw)
		if h.Magic != binRespMagic {
			return nil, errors.New("mcproto: bad response magic byte")
		}

		keyLen := int(h.KeyLength)
		valueLen := int(h.BodyLength) - keyLen
		body, err := conn.ReadExact(keyLen + valueLen)
		if err != nil {
			return nil, err
		}
		key := body[:keyLen]
		value := body[keyLen:]

		if len(key) == 0 && len(value) == 0 {
			return &Response{Status: StatusOK, Stats: entries}, nil
		}
		entries[string(key)] = string(value)
	}
}
