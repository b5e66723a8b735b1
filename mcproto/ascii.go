package mcproto

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/seznam/gomcache/errors"
	"github.com/seznam/gomcache/mcconn"
)

// AsciiCodec implements the memcached line-delimited text protocol: every
// request is a single command line (plus, for storage commands, a data
// block), and every response is one or more lines terminated by "\r\n".
type AsciiCodec struct{}

var crlf = []byte("\r\n")

func asciiOpName(op Op) (string, bool) {
	switch op {
	case OpSet:
		return "set", true
	case OpAdd:
		return "add", true
	case OpReplace:
		return "replace", true
	case OpAppend:
		return "append", true
	case OpPrepend:
		return "prepend", true
	case OpCas:
		return "cas", true
	default:
		return "", false
	}
}

// WriteCommand serializes cmd and writes it to conn.
func (AsciiCodec) WriteCommand(conn mcconn.Conn, cmd *Command) error {
	var buf bytes.Buffer

	switch cmd.Op {
	case OpGet, OpGets:
		// Always issue "gets" so the response carries a cas value the
		// caller can use later, even for a plain Get.
		fmt.Fprintf(&buf, "gets %s\r\n", cmd.Key)

	case OpSet, OpAdd, OpReplace, OpAppend, OpPrepend, OpCas:
		name, _ := asciiOpName(cmd.Op)
		if cmd.Op == OpCas {
			fmt.Fprintf(&buf, "cas %s %d %d %d %d\r\n",
				cmd.Key, cmd.Flags, cmd.Expiration, len(cmd.Value), cmd.CAS)
		} else if cmd.CAS != 0 && cmd.Op == OpSet {
			// The ascii protocol only supports a cas id on "cas", not on
			// add/replace; a non-zero CAS on a plain set is promoted to
			// the "cas" verb.
			fmt.Fprintf(&buf, "cas %s %d %d %d %d\r\n",
				cmd.Key, cmd.Flags, cmd.Expiration, len(cmd.Value), cmd.CAS)
		} else {
			fmt.Fprintf(&buf, "%s %s %d %d %d\r\n",
				name, cmd.Key, cmd.Flags, cmd.Expiration, len(cmd.Value))
		}
		buf.Write(cmd.Value)
		buf.Write(crlf)

	case OpDelete:
		fmt.Fprintf(&buf, "delete %s\r\n", cmd.Key)

	case OpIncr:
		if cmd.Initial != 0 {
			return errors.Wrap(ErrBadArgument, "mcproto: ascii protocol has no seed value for incr on a missing key")
		}
		fmt.Fprintf(&buf, "incr %s %d\r\n", cmd.Key, cmd.Delta)

	case OpDecr:
		if cmd.Initial != 0 {
			return errors.Wrap(ErrBadArgument, "mcproto: ascii protocol has no seed value for decr on a missing key")
		}
		fmt.Fprintf(&buf, "decr %s %d\r\n", cmd.Key, cmd.Delta)

	case OpTouch:
		fmt.Fprintf(&buf, "touch %s %d\r\n", cmd.Key, cmd.Expiration)

	case OpFlushAll:
		fmt.Fprintf(&buf, "flush_all %d\r\n", cmd.Expiration)

	case OpStats:
		if cmd.StatsKey != "" {
			return errors.New("mcproto: ascii protocol does not support a stats key")
		}
		buf.WriteString("stats\r\n")

	case OpVersion:
		buf.WriteString("version\r\n")

	case OpVerbosity:
		fmt.Fprintf(&buf, "verbosity %d\r\n", cmd.Verbosity)

	default:
		return errors.Newf("mcproto: ascii codec cannot encode op %d", cmd.Op)
	}

	return conn.Write(buf.Bytes())
}

// ReadResponse reads and classifies the reply to cmd.
func (c AsciiCodec) ReadResponse(conn mcconn.Conn, cmd *Command) (*Response, error) {
	switch cmd.Op {
	case OpGet, OpGets:
		return c.readGetResponse(conn, cmd)
	case OpSet, OpAdd, OpReplace, OpAppend, OpPrepend, OpCas:
		return c.readStoreResponse(conn)
	case OpDelete:
		return c.readDeleteResponse(conn)
	case OpIncr, OpDecr:
		return c.readCountResponse(conn)
	case OpTouch:
		return c.readTouchResponse(conn)
	case OpFlushAll, OpVerbosity:
		return c.readSimpleOKResponse(conn)
	case OpStats:
		return c.readStatsResponse(conn)
	case OpVersion:
		return c.readVersionResponse(conn)
	default:
		return nil, errors.Newf("mcproto: ascii codec cannot decode op %d", cmd.Op)
	}
}

func (AsciiCodec) readLine(conn mcconn.Conn) (string, error) {
	line, err := conn.ReadUntil('\n')
	if err != nil {
		return "", err
	}
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}
	return string(line), nil
}

func (c AsciiCodec) readGetResponse(conn mcconn.Conn, cmd *Command) (*Response, error) {
	line, err := c.readLine(conn)
	if err != nil {
		return nil, err
	}

	if line == "END" {
		return &Response{Status: StatusNotFound, Key: cmd.Key}, nil
	}

	var key string
	var flags uint32
	var size int
	var cas uint64
	n, scanErr := fmt.Sscanf(line, "VALUE %s %d %d %d", &key, &flags, &size, &cas)
	if scanErr != nil || n < 3 {
		return classifyErrorLine(line), nil
	}

	// One ReadExact absorbs the value, its trailing CRLF, and the
	// terminating "END\r\n" footer in a single transport read -- the codec
	// never issues a second read_until once it knows a body size, matching
	// the header-then-optional-body shape every driver here follows.
	body, err := conn.ReadExact(size + 7)
	if err != nil {
		return nil, err
	}
	if body[size] != '\r' || body[size+1] != '\n' {
		return nil, errors.New("mcproto: malformed value trailer")
	}
	if string(body[size+2:size+7]) != "END\r\n" {
		return nil, errors.New("mcproto: malformed get footer")
	}

	return &Response{
		Status: StatusOK,
		Key:    key,
		Value:  body[:size],
		Flags:  flags,
		CAS:    cas,
	}, nil
}

func (c AsciiCodec) readStoreResponse(conn mcconn.Conn) (*Response, error) {
	line, err := c.readLine(conn)
	if err != nil {
		return nil, err
	}
	switch line {
	case "STORED":
		return &Response{Status: StatusStored}, nil
	case "NOT_STORED":
		return &Response{Status: StatusNotStored}, nil
	case "EXISTS":
		return &Response{Status: StatusExists}, nil
	case "NOT_FOUND":
		return &Response{Status: StatusNotFound}, nil
	default:
		return classifyErrorLine(line), nil
	}
}

func (c AsciiCodec) readDeleteResponse(conn mcconn.Conn) (*Response, error) {
	line, err := c.readLine(conn)
	if err != nil {
		return nil, err
	}
	switch line {
	case "DELETED":
		return &Response{Status: StatusDeleted}, nil
	case "NOT_FOUND":
		return &Response{Status: StatusNotFound}, nil
	default:
		return classifyErrorLine(line), nil
	}
}

func (c AsciiCodec) readTouchResponse(conn mcconn.Conn) (*Response, error) {
	line, err := c.readLine(conn)
	if err != nil {
		return nil, err
	}
	switch line {
	case "TOUCHED":
		return &Response{Status: StatusTouched}, nil
	case "NOT_FOUND":
		return &Response{Status: StatusNotFound}, nil
	default:
		return classifyErrorLine(line), nil
	}
}

func (c AsciiCodec) readCountResponse(conn mcconn.Conn) (*Response, error) {
	line, err := c.readLine(conn)
	if err != nil {
		return nil, err
	}
	if line == "NOT_FOUND" {
		return &Response{Status: StatusNotFound}, nil
	}
	count, convErr := strconv.ParseUint(line, 10, 64)
	if convErr != nil {
		return classifyErrorLine(line), nil
	}
	return &Response{Status: StatusOK, Count: count}, nil
}

func (c AsciiCodec) readSimpleOKResponse(conn mcconn.Conn) (*Response, error) {
	line, err := c.readLine(conn)
	if err != nil {
		return nil, err
	}
	if line != "OK" {
		return classifyErrorLine(line), nil
	}
	return &Response{Status: StatusOK}, nil
}

func (c AsciiCodec) readStatsResponse(conn mcconn.Conn) (*Response, error) {
	entries := make(map[string]string)
	for {
		line, err := c.readLine(conn)
		if err != nil {
			return nil, err
		}
		if line == "END" {
			return &Response{Status: StatusOK, Stats: entries}, nil
		}
		var key, value string
		if n, _ := fmt.Sscanf(line, "STAT %s %s", &key, &value); n != 2 {
			return classifyErrorLine(line), nil
		}
		entries[key] = value
	}
}

func (c AsciiCodec) readVersionResponse(conn mcconn.Conn) (*Response, error) {
	line, err := c.readLine(conn)
	if err != nil {
		return nil, err
	}
	var version string
	if n, _ := fmt.Sscanf(line, "VERSION %s", &version); n != 1 {
		return classifyErrorLine(line), nil
	}
	return &Response{Status: StatusOK, Versions: map[string]string{"": version}}, nil
}

// classifyErrorLine turns an unrecognized or error-marked ascii response
// line into a protocol-error Response, mirroring how the binary codec maps
// a non-OK status onto a Response with a nil error rather than a Go error
// return -- an ERROR/CLIENT_ERROR/SERVER_ERROR line means the server
// answered, just not with something this client understood, which is not
// the transport-level failure Parser.Do's contract reserves a non-nil
// error for.
func classifyErrorLine(line string) *Response {
	switch {
	case hasPrefix(line, "ERROR"):
		return &Response{Status: StatusProtocolError, Err: errors.New("mcproto: unknown command")}
	case hasPrefix(line, "CLIENT_ERROR"):
		return &Response{Status: StatusProtocolError, Err: errors.Newf("mcproto: client error: %s", line)}
	case hasPrefix(line, "SERVER_ERROR"):
		return &Response{Status: StatusProtocolError, Err: errors.Newf("mcproto: server error: %s", line)}
	default:
		return &Response{Status: StatusProtocolError, Err: errors.Newf("mcproto: unexpected response line: %q", line)}
	}
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
