//go:build linux

package mcproxy

import (
	"encoding/binary"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/seznam/gomcache/errors"
)

// slotSize is the fixed serialized size of one HealthSnapshot: dead (1),
// everDied (1), 6 bytes padding, fails (4), restorationNanos (8), and the
// low 32 bits of deadSinceNanos (4).
const slotSize = 24

// mmapSharedState publishes HealthSnapshots into an anonymous,
// MAP_SHARED mapping so a second process that mmaps the same region (by
// inheriting the fd across a fork, the only way an anonymous mapping can
// be shared) observes writes without going through this process's heap.
// Address-to-slot assignment is fixed at construction time, mirroring the
// proxy vector's own fixed addressing.
type mmapSharedState struct {
	mu      sync.Mutex
	region  []byte
	slotFor map[string]int
}

// NewMmapSharedState mmaps a region large enough to hold one slot per
// address in addrs and returns a SharedProxyState backed by it. The
// caller is responsible for arranging for a second process to share the
// mapping (typically by forking after this call); a process that only
// maps the same file-backed region independently would need a named
// (file-backed) mapping instead of the anonymous one used here.
func NewMmapSharedState(addrs []string) (SharedProxyState, error) {
	if len(addrs) == 0 {
		return newMemSharedState(), nil
	}

	size := len(addrs) * slotSize
	region, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_ANON)
	if err != nil {
		return nil, errors.Wrap(err, "mcproxy: mmap failed")
	}

	slotFor := make(map[string]int, len(addrs))
	for i, addr := range addrs {
		slotFor[addr] = i
	}

	return &mmapSharedState{region: region, slotFor: slotFor}, nil
}

func (s *mmapSharedState) Write(address string, snap HealthSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.slotFor[address]
	if !ok {
		return errors.Newf("mcproxy: address %q not registered in shared state", address)
	}

	slot := s.region[idx*slotSize : (idx+1)*slotSize]
	slot[0] = boolByte(snap.Dead)
	slot[1] = boolByte(snap.EverDied)
	binary.LittleEndian.PutUint32(slot[8:12], snap.Fails)
	binary.LittleEndian.PutUint64(slot[12:20], uint64(snap.RestorationNanos))
	// The last 4 bytes of the slot hold the low bits of deadSinceNanos;
	// the full 8-byte value doesn't fit in the fixed 24-byte slot
	// alongside everything else, so deadSinceNanos is truncated to 32
	// bits of relative precision here -- fine for a diagnostic snapshot,
	// not for reconstructing an exact instant.
	binary.LittleEndian.PutUint32(slot[20:24], uint32(snap.DeadSinceNanos))
	return nil
}

func (s *mmapSharedState) Read(address string) (HealthSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.slotFor[address]
	if !ok {
		return HealthSnapshot{}, false
	}

	slot := s.region[idx*slotSize : (idx+1)*slotSize]
	return HealthSnapshot{
		Dead:             slot[0] != 0,
		EverDied:         slot[1] != 0,
		Fails:            binary.LittleEndian.Uint32(slot[8:12]),
		RestorationNanos: int64(binary.LittleEndian.Uint64(slot[12:20])),
		DeadSinceNanos:   int64(binary.LittleEndian.Uint32(slot[20:24])),
	}, true
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// NewSharedState builds the best SharedProxyState available on this
// platform: an mmap-backed region on Linux, or a heap map when addrs is
// empty. A failed mmap is returned as an error, not replaced by a heap map.
func NewSharedState(addrs []string) (SharedProxyState, error) {
	return NewMmapSharedState(addrs)
}
