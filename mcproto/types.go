// Package mcproto implements the memcached wire protocols -- ascii and
// binary -- as a pair of codecs bound to a mcconn.Conn, plus the shared
// Command/Response vocabulary the client coordinator drives them with.
package mcproto

// Op identifies a memcache operation at the wire level.
type Op int

const (
	OpGet Op = iota
	OpGets
	OpSet
	OpAdd
	OpReplace
	OpAppend
	OpPrepend
	OpCas
	OpDelete
	OpIncr
	OpDecr
	OpTouch
	OpFlushAll
	OpStats
	OpVersion
	OpVerbosity
)

// Command is a single wire-level request, shaped to whichever fields its
// Op needs; unused fields are ignored by the codecs.
type Command struct {
	Op          Op
	Key         string
	Value       []byte
	Flags       uint32
	Expiration  uint32
	CAS         uint64 // DataVersionId, required for OpCas, optional for OpSet
	Delta       uint64
	Initial     uint64 // used as the seed value for incr/decr when the key is missing
	Verbosity   uint32
	StatsKey    string
}

// Status is a protocol-independent outcome code a Response carries,
// normalized from either the ascii status line keyword or the binary
// header's status field.
type Status int

const (
	StatusOK Status = iota
	StatusStored
	StatusNotStored
	StatusExists
	StatusNotFound
	StatusDeleted
	StatusTouched
	// StatusIOError is synthetic: it never appears on the wire, and marks
	// a response built locally because the connection failed before a
	// real reply could be read.
	StatusIOError
	StatusProtocolError
)

// IsError reports whether the status represents a failed operation other
// than a well-defined not-found/not-stored/exists outcome.
func (s Status) IsError() bool {
	return s == StatusIOError || s == StatusProtocolError
}

// Response is the normalized result of running a Command.
type Response struct {
	Status Status
	Err    error

	Key   string
	Value []byte
	Flags uint32
	CAS   uint64

	Count uint64 // incr/decr result

	Versions map[string]string
	Stats    map[string]string
}
