package mcproxy

import (
	"sync"
	"sync/atomic"
)

// HealthSnapshot is a point-in-time copy of a Proxy's health fields,
// suitable for publishing to something outside this process (a sidecar, a
// diagnostics endpoint, a second process sharing the same pool).
type HealthSnapshot struct {
	Dead             bool
	Fails            uint32
	RestorationNanos int64
	DeadSinceNanos   int64
	EverDied         bool
}

// Snapshot captures p's current health state.
func (p *Proxy) Snapshot() HealthSnapshot {
	return HealthSnapshot{
		Dead:             p.State() != "alive",
		Fails:            atomic.LoadUint32(&p.fails),
		RestorationNanos: atomic.LoadInt64(&p.restorationNanos),
		DeadSinceNanos:   atomic.LoadInt64(&p.deadSinceNanos),
		EverDied:         atomic.LoadInt32(&p.everDied) != 0,
	}
}

// SharedProxyState publishes and retrieves HealthSnapshots by server
// address. A process that only reads (never writes) proxy health -- a
// metrics exporter, a second client process sharing the same server list
// -- can poll Read instead of maintaining its own Proxy instances.
type SharedProxyState interface {
	Write(address string, snap HealthSnapshot) error
	Read(address string) (HealthSnapshot, bool)
}

// memSharedState is the default, single-process SharedProxyState: a
// mutex-guarded map. It is what NewSharedState returns on platforms
// without an mmap-backed implementation, and is always correct (if not
// cross-process) everywhere.
type memSharedState struct {
	mu   sync.RWMutex
	data map[string]HealthSnapshot
}

func newMemSharedState() *memSharedState {
	return &memSharedState{data: make(map[string]HealthSnapshot)}
}

func (s *memSharedState) Write(address string, snap HealthSnapshot) error {
	s.mu.Lock()
	s.data[address] = snap
	s.mu.Unlock()
	return nil
}

func (s *memSharedState) Read(address string) (HealthSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.data[address]
	return snap, ok
}
