package mcache

import (
	"github.com/seznam/gomcache/errors"
	"github.com/seznam/gomcache/mcproto"
)

// Item is a retrieved value along with the metadata needed to write it back
// under optimistic concurrency control.
type Item struct {
	Key   string
	Value []byte
	Flags uint32
	CAS   uint64
}

// Get fetches a single key. A missing key is reported as (nil, false, nil),
// not an error.
func (c *Client) Get(key string) (*Item, bool, error) {
	resp, err := c.run(&mcproto.Command{Op: mcproto.OpGet, Key: key})
	if err != nil {
		return nil, false, err
	}
	if resp.Status == mcproto.StatusNotFound {
		return nil, false, nil
	}
	if resp.Status != mcproto.StatusOK {
		return nil, false, protocolError(resp)
	}
	return &Item{Key: resp.Key, Value: resp.Value, Flags: resp.Flags, CAS: resp.CAS}, true, nil
}

// Gets is Get spelled out for callers who want to be explicit that they
// intend to use the returned CAS value -- the ascii codec always requests
// the cas value regardless, so this is identical to Get.
func (c *Client) Gets(key string) (*Item, bool, error) {
	return c.Get(key)
}

// Set unconditionally stores value under key.
func (c *Client) Set(key string, value []byte, flags, expiration uint32) error {
	resp, err := c.run(&mcproto.Command{
		Op: mcproto.OpSet, Key: key, Value: value, Flags: flags, Expiration: expiration,
	})
	if err != nil {
		return err
	}
	if resp.Status != mcproto.StatusStored {
		return protocolError(resp)
	}
	return nil
}

// Add stores value under key only if key does not already exist. It
// returns (false, nil) rather than an error when the key already exists.
func (c *Client) Add(key string, value []byte, flags, expiration uint32) (bool, error) {
	resp, err := c.run(&mcproto.Command{
		Op: mcproto.OpAdd, Key: key, Value: value, Flags: flags, Expiration: expiration,
	})
	if err != nil {
		return false, err
	}
	switch resp.Status {
	case mcproto.StatusStored:
		return true, nil
	case mcproto.StatusNotStored:
		return false, nil
	default:
		return false, protocolError(resp)
	}
}

// Replace stores value under key only if key already exists. It returns
// (false, nil) rather than an error when the key does not exist.
func (c *Client) Replace(key string, value []byte, flags, expiration uint32) (bool, error) {
	resp, err := c.run(&mcproto.Command{
		Op: mcproto.OpReplace, Key: key, Value: value, Flags: flags, Expiration: expiration,
	})
	if err != nil {
		return false, err
	}
	switch resp.Status {
	case mcproto.StatusStored:
		return true, nil
	case mcproto.StatusNotStored:
		return false, nil
	default:
		return false, protocolError(resp)
	}
}

// Append adds value to the end of the data already stored under key,
// leaving the key's flags and expiration untouched. It returns (false,
// nil) when the key does not exist.
func (c *Client) Append(key string, value []byte) (bool, error) {
	resp, err := c.run(&mcproto.Command{Op: mcproto.OpAppend, Key: key, Value: value})
	if err != nil {
		return false, err
	}
	switch resp.Status {
	case mcproto.StatusStored:
		return true, nil
	case mcproto.StatusNotStored:
		return false, nil
	default:
		return false, protocolError(resp)
	}
}

// Prepend adds value to the start of the data already stored under key.
// It returns (false, nil) when the key does not exist.
func (c *Client) Prepend(key string, value []byte) (bool, error) {
	resp, err := c.run(&mcproto.Command{Op: mcproto.OpPrepend, Key: key, Value: value})
	if err != nil {
		return false, err
	}
	switch resp.Status {
	case mcproto.StatusStored:
		return true, nil
	case mcproto.StatusNotStored:
		return false, nil
	default:
		return false, protocolError(resp)
	}
}

// CasResult reports the outcome of a Cas call.
type CasResult int

const (
	// CasStored means the write succeeded.
	CasStored CasResult = iota
	// CasExists means the key was modified since its cas value was read.
	CasExists
	// CasNotFound means the key no longer exists.
	CasNotFound
)

// Cas stores value under key only if the key's current cas value still
// matches casID -- optimistic concurrency control against concurrent
// writers. Use the CAS field from a prior Get/Gets result as casID.
func (c *Client) Cas(key string, value []byte, flags, expiration uint32, casID uint64) (CasResult, error) {
	resp, err := c.run(&mcproto.Command{
		Op: mcproto.OpCas, Key: key, Value: value, Flags: flags, Expiration: expiration, CAS: casID,
	})
	if err != nil {
		return CasNotFound, err
	}
	switch resp.Status {
	case mcproto.StatusStored:
		return CasStored, nil
	case mcproto.StatusExists:
		return CasExists, nil
	case mcproto.StatusNotFound:
		return CasNotFound, nil
	default:
		return CasNotFound, protocolError(resp)
	}
}

// Delete removes key. It returns (false, nil) rather than an error when
// the key does not exist.
func (c *Client) Delete(key string) (bool, error) {
	resp, err := c.run(&mcproto.Command{Op: mcproto.OpDelete, Key: key})
	if err != nil {
		return false, err
	}
	switch resp.Status {
	case mcproto.StatusDeleted:
		return true, nil
	case mcproto.StatusNotFound:
		return false, nil
	default:
		return false, protocolError(resp)
	}
}

// Touch updates key's expiration without altering its value. It returns
// (false, nil) rather than an error when the key does not exist.
func (c *Client) Touch(key string, expiration uint32) (bool, error) {
	resp, err := c.run(&mcproto.Command{Op: mcproto.OpTouch, Key: key, Expiration: expiration})
	if err != nil {
		return false, err
	}
	switch resp.Status {
	case mcproto.StatusTouched:
		return true, nil
	case mcproto.StatusNotFound:
		return false, nil
	default:
		return false, protocolError(resp)
	}
}

// Incr adds delta to the integer value stored under key. If key does not
// exist and initial is non-zero, a binary-protocol server creates it seeded
// at initial instead of reporting it missing; the ascii protocol has no
// such seed and rejects a non-zero initial as a bad argument before ever
// writing the request. It returns (0, false, nil) when the key does not
// exist and initial is zero.
func (c *Client) Incr(key string, delta, initial uint64) (uint64, bool, error) {
	resp, err := c.run(&mcproto.Command{Op: mcproto.OpIncr, Key: key, Delta: delta, Initial: initial})
	if err != nil {
		return 0, false, err
	}
	return classifyCountResponse(resp)
}

// Decr subtracts delta from the integer value stored under key, floored at
// zero. initial behaves as it does for Incr. It returns (0, false, nil)
// when the key does not exist and initial is zero.
func (c *Client) Decr(key string, delta, initial uint64) (uint64, bool, error) {
	resp, err := c.run(&mcproto.Command{Op: mcproto.OpDecr, Key: key, Delta: delta, Initial: initial})
	if err != nil {
		return 0, false, err
	}
	return classifyCountResponse(resp)
}

func classifyCountResponse(resp *mcproto.Response) (uint64, bool, error) {
	switch resp.Status {
	case mcproto.StatusOK:
		return resp.Count, true, nil
	case mcproto.StatusNotFound:
		return 0, false, nil
	default:
		return 0, false, protocolError(resp)
	}
}

// FlushAll invalidates every key on every server, effective after
// expiration seconds (zero means immediately). An error from an individual
// server is returned in the map under that server's address rather than
// failing the whole call (transport errors are also logged through
// Config.LogError) -- a partial flush is the best any client can offer
// against a sharded pool.
func (c *Client) FlushAll(expiration uint32) map[string]error {
	results := c.runAll(&mcproto.Command{Op: mcproto.OpFlushAll, Expiration: expiration})
	return errorsByAddress(results)
}

// Stat fetches the server-reported stats map from every server.
func (c *Client) Stat() map[string]map[string]string {
	results := c.runAll(&mcproto.Command{Op: mcproto.OpStats})
	out := make(map[string]map[string]string, len(results))
	for addr, resp := range results {
		if resp.Status == mcproto.StatusOK {
			out[addr] = resp.Stats
		}
	}
	return out
}

// Version fetches the server version string from every server.
func (c *Client) Version() map[string]string {
	results := c.runAll(&mcproto.Command{Op: mcproto.OpVersion})
	out := make(map[string]string, len(results))
	for addr, resp := range results {
		if resp.Status == mcproto.StatusOK {
			out[addr] = resp.Versions[""]
		}
	}
	return out
}

// Verbosity sets the logging verbosity level on every server.
func (c *Client) Verbosity(level uint32) map[string]error {
	results := c.runAll(&mcproto.Command{Op: mcproto.OpVerbosity, Verbosity: level})
	return errorsByAddress(results)
}

func errorsByAddress(results map[string]*mcproto.Response) map[string]error {
	out := make(map[string]error, len(results))
	for addr, resp := range results {
		if resp.Status.IsError() {
			out[addr] = protocolError(resp)
		}
	}
	return out
}

func protocolError(resp *mcproto.Response) error {
	if resp.Err != nil {
		return resp.Err
	}
	return errors.Newf("mcache: unexpected response status %d", resp.Status)
}
