package mcache

import "github.com/seznam/gomcache/errors"

// ErrAtomicUpdateExhausted is returned by AtomicUpdate when the configured
// number of gets/cas iterations all lost the race against a concurrent
// writer.
var ErrAtomicUpdateExhausted = errors.New("mcache: atomic update exhausted its retry budget")

// UpdateFunc computes the next value and flags for a key, given its
// current value and flags and whether it currently exists -- current and
// currentFlags are both zero-valued when exists is false. Returning
// ok=false aborts the update without writing anything.
type UpdateFunc func(current []byte, currentFlags uint32, exists bool) (next []byte, nextFlags uint32, ok bool)

// AtomicUpdate applies fn to key under optimistic concurrency control: it
// reads the key's current value, flags, and cas id, computes fn's
// replacement value and flags, and writes them back with Cas (or Add, if
// the key did not previously exist) under the given expiration. If a
// concurrent writer invalidates the cas id, or the key's existence changes
// out from under it, AtomicUpdate re-reads and retries, up to
// Config.AtomicUpdateIters times.
func (c *Client) AtomicUpdate(key string, expiration uint32, fn UpdateFunc) error {
	iters := c.cfg.atomicUpdateIters()

	for i := 0; i < iters; i++ {
		item, exists, err := c.Gets(key)
		if err != nil {
			return err
		}

		var current []byte
		var currentFlags uint32
		if exists {
			current = item.Value
			currentFlags = item.Flags
		}
		next, nextFlags, ok := fn(current, currentFlags, exists)
		if !ok {
			return nil
		}

		if !exists {
			added, err := c.Add(key, next, nextFlags, expiration)
			if err != nil {
				return err
			}
			if added {
				return nil
			}
			// Someone else created the key between our Gets and our Add;
			// retry from the top.
			continue
		}

		result, err := c.Cas(key, next, nextFlags, expiration, item.CAS)
		if err != nil {
			return err
		}
		switch result {
		case CasStored:
			return nil
		case CasExists:
			continue
		case CasNotFound:
			// The key was deleted out from under us; retry as a fresh
			// create on the next iteration.
			continue
		}
	}

	return ErrAtomicUpdateExhausted
}
