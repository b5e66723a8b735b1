package mcresource

import (
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/seznam/gomcache/errors"
)

// shard pairs a registered location with the sub-pool backing it.
type shard struct {
	location string
	pool     ResourcePool
}

// shuffle randomizes order in place (Fisher-Yates), so the round-robin
// cursor doesn't always favor whichever location happened to register
// first.
func shuffle(shards []*shard) {
	for i := len(shards) - 1; i > 0; i-- {
		j := rand.Intn(i + 1)
		shards[i], shards[j] = shards[j], shards[i]
	}
}

// RoundRobinResourcePool is a ResourcePool that, like MultiResourcePool,
// manages one independent sub-pool per resource location, but answers
// Get by cycling through all registered locations rather than routing
// by the requested location -- callers that don't care which location
// they land on (a cache-filling background job, say) get load spread
// evenly instead of all hitting the first-registered shard.
type RoundRobinResourcePool struct {
	options    Options
	createPool func(Options) ResourcePool

	mu         sync.RWMutex
	isLameDuck bool // guarded by mu
	shards     []*shard

	cursor int64 // atomic
}

// NewRoundRobinResourcePool returns a ResourcePool that cycles Get
// requests across every registered location's sub-pool. createPool
// builds each sub-pool; NewSimpleResourcePool is used if it is nil.
func NewRoundRobinResourcePool(options Options, createPool func(Options) ResourcePool) ResourcePool {
	if createPool == nil {
		createPool = NewSimpleResourcePool
	}
	return &RoundRobinResourcePool{options: options, createPool: createPool}
}

func (p *RoundRobinResourcePool) snapshot() []*shard {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*shard, len(p.shards))
	copy(out, p.shards)
	return out
}

func (p *RoundRobinResourcePool) NumActive() int32 {
	var total int32
	for _, s := range p.snapshot() {
		total += s.pool.NumActive()
	}
	return total
}

func (p *RoundRobinResourcePool) ActiveHighWaterMark() int32 {
	var high int32
	for _, s := range p.snapshot() {
		if v := s.pool.ActiveHighWaterMark(); v > high {
			high = v
		}
	}
	return high
}

func (p *RoundRobinResourcePool) NumIdle() int {
	var total int
	for _, s := range p.snapshot() {
		total += s.pool.NumIdle()
	}
	return total
}

func (p *RoundRobinResourcePool) Register(resourceLocation string) error {
	if resourceLocation == "" {
		return errors.New("mcresource: cannot register an empty resource location")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.isLameDuck {
		return errors.Newf("mcresource: pool is a lame duck, cannot register %s", resourceLocation)
	}
	for _, s := range p.shards {
		if s.location == resourceLocation {
			return nil
		}
	}

	pool := p.createPool(p.options)
	if err := pool.Register(resourceLocation); err != nil {
		return err
	}
	p.shards = append(p.shards, &shard{location: resourceLocation, pool: pool})
	shuffle(p.shards)
	return nil
}

func (p *RoundRobinResourcePool) Unregister(resourceLocation string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, s := range p.shards {
		if s.location != resourceLocation {
			continue
		}
		p.shards = append(p.shards[:i], p.shards[i+1:]...)
		shuffle(p.shards)
		break
	}
	return nil
}

func (p *RoundRobinResourcePool) ListRegistered() []string {
	shards := p.snapshot()
	locations := make([]string, len(shards))
	for i, s := range shards {
		locations[i] = s.location
	}
	return locations
}

// Get ignores key and instead advances an atomic cursor through the
// registered shards, trying each exactly once before giving up.
func (p *RoundRobinResourcePool) Get(key string) (ManagedHandle, error) {
	shards := p.snapshot()
	if len(shards) == 0 {
		return nil, errors.New("mcresource: no resource locations registered")
	}

	var lastErr error
	for i := 0; i < len(shards); i++ {
		next := int(atomic.AddInt64(&p.cursor, 1)) % len(shards)
		handle, err := shards[next].pool.Get(key)
		if err == nil {
			return handle, nil
		}
		lastErr = err
	}
	return nil, errors.Wrap(lastErr, "mcresource: no resource handle available from any shard")
}

// Release and Discard skip the owner check MultiResourcePool performs
// -- walking every shard to find the owning one would be O(shards) on
// every release, and the handle already knows its owning sub-pool.
func (p *RoundRobinResourcePool) Release(handle ManagedHandle) error {
	return handle.Release()
}

func (p *RoundRobinResourcePool) Discard(handle ManagedHandle) error {
	return handle.Discard()
}

func (p *RoundRobinResourcePool) Clear() error {
	var firstErr error
	for _, s := range p.snapshot() {
		if err := s.pool.Clear(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (p *RoundRobinResourcePool) EnterLameDuckMode() {
	p.mu.Lock()
	p.isLameDuck = true
	p.mu.Unlock()

	for _, s := range p.snapshot() {
		s.pool.EnterLameDuckMode()
	}
}
