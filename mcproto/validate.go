package mcproto

import "github.com/seznam/gomcache/errors"

// MaxKeyLength is the longest key memcached servers accept.
const MaxKeyLength = 250

// ErrBadArgument is the sentinel every argument-validation failure in this
// package wraps, so a caller can distinguish a malformed request from a
// transport or server-level failure.
var ErrBadArgument = errors.New("mcproto: bad argument")

// IsBadArgument reports whether err is, or wraps, ErrBadArgument.
func IsBadArgument(err error) bool {
	return err != nil && errors.IsError(err, ErrBadArgument)
}

// ValidateCommand checks the argument constraints shared by both wire
// protocols -- key shape, and a cas command's required token -- before cmd
// is ever handed to a codec to serialize. Protocol-specific constraints
// (the ascii codec's rejection of a non-zero Initial on incr/decr) are
// enforced by the codec itself, since only it knows which wire format is
// in play.
func ValidateCommand(cmd *Command) error {
	if opUsesKey(cmd.Op) {
		if err := validateKey(cmd.Key); err != nil {
			return err
		}
	}
	if cmd.Op == OpCas && cmd.CAS == 0 {
		return errors.Wrap(ErrBadArgument, "mcproto: cas requires a non-zero CAS token")
	}
	return nil
}

func opUsesKey(op Op) bool {
	switch op {
	case OpGet, OpGets, OpSet, OpAdd, OpReplace, OpAppend, OpPrepend, OpCas, OpDelete, OpIncr, OpDecr, OpTouch:
		return true
	default:
		return false
	}
}

// validateKey enforces the key invariant: length at most MaxKeyLength, no
// ASCII whitespace, and no ASCII control characters. Checked here rather
// than left to the wire codec, since a key violating it would otherwise be
// spliced directly into an ascii request line -- an embedded "\r\n" would
// inject a second command into the stream.
func validateKey(key string) error {
	if len(key) == 0 {
		return errors.Wrap(ErrBadArgument, "mcproto: key must not be empty")
	}
	if len(key) > MaxKeyLength {
		return errors.Wrapf(ErrBadArgument, "mcproto: key is %d bytes, exceeds the %d byte limit", len(key), MaxKeyLength)
	}
	for i := 0; i < len(key); i++ {
		if c := key[i]; c < 0x20 || c == 0x7f || c == ' ' {
			return errors.Wrapf(ErrBadArgument, "mcproto: key %q contains illegal byte 0x%02x", key, c)
		}
	}
	return nil
}
