package mcproto

import (
	"github.com/seznam/gomcache/mcconn"
)

// Codec is the wire protocol that Parser drives: one of AsciiCodec or
// BinaryCodec.
type Codec interface {
	WriteCommand(conn mcconn.Conn, cmd *Command) error
	ReadResponse(conn mcconn.Conn, cmd *Command) (*Response, error)
}

// Parser is the single point where a wire codec is fused to a connection:
// it writes a command and reads back its response, and is the boundary
// below which "io error" (the connection is unusable) and "protocol
// error" (the server replied, just not successfully) are distinguished.
type Parser struct {
	Codec Codec
	Conn  mcconn.Conn
}

// NewParser binds codec to conn.
func NewParser(codec Codec, conn mcconn.Conn) *Parser {
	return &Parser{Codec: codec, Conn: conn}
}

// Do writes cmd and reads its response. A non-nil error means the
// connection itself failed (a transport-level problem) and should be
// treated as the io_error outcome by the caller, not a protocol-level
// response -- a successfully parsed but unsuccessful response (NOT_FOUND,
// EXISTS, ...) is returned with a nil error. A command the codec refuses
// to encode (for example a bad argument) is also returned as a non-nil
// error, before anything is written.
func (p *Parser) Do(cmd *Command) (*Response, error) {
	if err := p.Codec.WriteCommand(p.Conn, cmd); err != nil {
		return nil, err
	}
	resp, err := p.Codec.ReadResponse(p.Conn, cmd)
	if err != nil {
		return nil, err
	}
	return resp, nil
}
