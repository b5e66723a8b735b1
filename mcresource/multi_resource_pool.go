package mcresource

import (
	"sync"

	"github.com/seznam/gomcache/errors"
)

// MultiResourcePool fans a single ResourcePool interface out over many
// resource locations, each backed by its own sub-pool (created by
// createPool) that manages its handles independently -- "tcp
// localhost:11211" might be memcache shard 0 and "tcp
// localhost:11212" shard 1, with no coupling between their idle
// caches or active counts.
type MultiResourcePool struct {
	options    Options
	createPool func(Options) ResourcePool

	mu         sync.RWMutex
	isLameDuck bool // guarded by mu
	byLocation map[string]ResourcePool
}

// NewMultiResourcePool returns a ResourcePool that manages one
// independent sub-pool per registered resource location. createPool
// builds each sub-pool; NewSimpleResourcePool is used if it is nil.
func NewMultiResourcePool(options Options, createPool func(Options) ResourcePool) ResourcePool {
	if createPool == nil {
		createPool = NewSimpleResourcePool
	}
	return &MultiResourcePool{
		options:    options,
		createPool: createPool,
		byLocation: make(map[string]ResourcePool),
	}
}

// withEachPool runs fn against a snapshot of every currently
// registered sub-pool, outside of mu -- every read-only method
// (NumActive, NumIdle, ...) is one call to this.
func (p *MultiResourcePool) withEachPool(fn func(ResourcePool)) {
	p.mu.RLock()
	pools := make([]ResourcePool, 0, len(p.byLocation))
	for _, pool := range p.byLocation {
		pools = append(pools, pool)
	}
	p.mu.RUnlock()

	for _, pool := range pools {
		fn(pool)
	}
}

func (p *MultiResourcePool) NumActive() int32 {
	var total int32
	p.withEachPool(func(pool ResourcePool) { total += pool.NumActive() })
	return total
}

func (p *MultiResourcePool) ActiveHighWaterMark() int32 {
	var high int32
	p.withEachPool(func(pool ResourcePool) {
		if v := pool.ActiveHighWaterMark(); v > high {
			high = v
		}
	})
	return high
}

func (p *MultiResourcePool) NumIdle() int {
	var total int
	p.withEachPool(func(pool ResourcePool) { total += pool.NumIdle() })
	return total
}

func (p *MultiResourcePool) Register(resourceLocation string) error {
	if resourceLocation == "" {
		return errors.New("mcresource: cannot register an empty resource location")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.isLameDuck {
		return errors.Newf("mcresource: pool is a lame duck, cannot register %s", resourceLocation)
	}
	if _, ok := p.byLocation[resourceLocation]; ok {
		return nil
	}

	pool := p.createPool(p.options)
	if err := pool.Register(resourceLocation); err != nil {
		return err
	}
	p.byLocation[resourceLocation] = pool
	return nil
}

func (p *MultiResourcePool) Unregister(resourceLocation string) error {
	p.mu.Lock()
	pool, ok := p.byLocation[resourceLocation]
	if ok {
		delete(p.byLocation, resourceLocation)
	}
	p.mu.Unlock()

	if ok {
		pool.EnterLameDuckMode()
	}
	return nil
}

func (p *MultiResourcePool) ListRegistered() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	locations := make([]string, 0, len(p.byLocation))
	for location := range p.byLocation {
		locations = append(locations, location)
	}
	return locations
}

func (p *MultiResourcePool) lookup(resourceLocation string) ResourcePool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.byLocation[resourceLocation]
}

func (p *MultiResourcePool) Get(resourceLocation string) (ManagedHandle, error) {
	pool := p.lookup(resourceLocation)
	if pool == nil {
		return nil, errors.Newf("mcresource: %s is not registered", resourceLocation)
	}
	return pool.Get(resourceLocation)
}

func (p *MultiResourcePool) Release(handle ManagedHandle) error {
	pool := p.lookup(handle.ResourceLocation())
	if pool == nil {
		return errors.New("mcresource: handle belongs to an unregistered location")
	}
	return pool.Release(handle)
}

func (p *MultiResourcePool) Discard(handle ManagedHandle) error {
	pool := p.lookup(handle.ResourceLocation())
	if pool == nil {
		return errors.New("mcresource: handle belongs to an unregistered location")
	}
	return pool.Discard(handle)
}

// Clear clears every sub-pool's idle cache.
func (p *MultiResourcePool) Clear() error {
	var firstErr error
	p.withEachPool(func(pool ResourcePool) {
		if err := pool.Clear(); err != nil && firstErr == nil {
			firstErr = err
		}
	})
	return firstErr
}

func (p *MultiResourcePool) EnterLameDuckMode() {
	p.mu.Lock()
	p.isLameDuck = true
	p.mu.Unlock()

	p.withEachPool(func(pool ResourcePool) { pool.EnterLameDuckMode() })
}
