package mcresource

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/seznam/gomcache/errors"
)

// idleEntry is one handle sitting in an idleQueue, along with the time
// after which it is considered too stale to hand back out.
type idleEntry struct {
	handle    interface{}
	keepUntil *time.Time
}

// idleQueue holds the idle handles for a single resource location in
// FIFO order, evicting the oldest entries once the queue grows past
// max and dropping entries whose keepUntil deadline has passed. It
// owns its own lock so SimpleResourcePool's Get/Release/Discard path
// never has to hold a pool-wide mutex just to touch the idle cache.
type idleQueue struct {
	mu      sync.Mutex
	entries []idleEntry
	max     uint32
	closeFn func(interface{}) error
	now     func() time.Time
}

func newIdleQueue(max uint32, closeFn func(interface{}) error, now func() time.Time) *idleQueue {
	return &idleQueue{max: max, closeFn: closeFn, now: now}
}

// push adds handle to the tail of the queue with the given deadline
// (nil meaning no deadline), evicting from the head if the queue is
// now over its cap.
func (q *idleQueue) push(handle interface{}, keepUntil *time.Time) {
	if q.max == 0 {
		// The "create new connection" variant: nothing is ever kept idle.
		q.closeFn(handle)
		return
	}

	q.mu.Lock()
	q.entries = append(q.entries, idleEntry{handle: handle, keepUntil: keepUntil})
	var evicted []idleEntry
	if n := uint32(len(q.entries)); n > q.max {
		over := n - q.max
		evicted = append(evicted, q.entries[:over]...)
		q.entries = q.entries[over:]
	}
	q.mu.Unlock()
	q.closeAll(evicted)
}

// pop removes and returns the oldest live handle, closing any expired
// entries it skips over along the way. ok is false once the queue has
// nothing left to offer.
func (q *idleQueue) pop() (handle interface{}, ok bool) {
	now := q.now()

	q.mu.Lock()
	var expired []idleEntry
	for len(q.entries) > 0 {
		head := q.entries[0]
		q.entries = q.entries[1:]
		if head.keepUntil != nil && !now.Before(*head.keepUntil) {
			expired = append(expired, head)
			continue
		}
		handle, ok = head.handle, true
		break
	}
	q.mu.Unlock()

	q.closeAll(expired)
	return handle, ok
}

// drain closes and removes every entry currently queued, returning how
// many were closed.
func (q *idleQueue) drain() int {
	q.mu.Lock()
	entries := q.entries
	q.entries = nil
	q.mu.Unlock()

	q.closeAll(entries)
	return len(entries)
}

func (q *idleQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

func (q *idleQueue) closeAll(entries []idleEntry) {
	for _, e := range entries {
		q.closeFn(e.handle)
	}
}

// SimpleResourcePool is a ResourcePool where every handle it ever opens
// is for the same resource location -- the location is fixed by the
// first Register call and every subsequent Get ignores its argument.
type SimpleResourcePool struct {
	options Options

	numActive int32 // atomic
	highWater int32 // atomic

	idle *idleQueue

	mu         sync.Mutex
	location   string // guarded by mu
	isLameDuck bool   // guarded by mu
}

// NewSimpleResourcePool returns a ResourcePool backed by a single
// resource location.
func NewSimpleResourcePool(options Options) ResourcePool {
	p := &SimpleResourcePool{options: options}
	p.idle = newIdleQueue(options.MaxIdleHandles, options.Close, options.getCurrentTime)
	return p
}

func (p *SimpleResourcePool) NumActive() int32 {
	return atomic.LoadInt32(&p.numActive)
}

func (p *SimpleResourcePool) ActiveHighWaterMark() int32 {
	return atomic.LoadInt32(&p.highWater)
}

func (p *SimpleResourcePool) bumpHighWater(active int32) {
	for {
		cur := atomic.LoadInt32(&p.highWater)
		if active <= cur {
			return
		}
		if atomic.CompareAndSwapInt32(&p.highWater, cur, active) {
			return
		}
	}
}

func (p *SimpleResourcePool) NumIdle() int {
	return p.idle.len()
}

// Register fixes this pool's resource location. SimpleResourcePool
// only ever holds one, so a second Register with a different location
// fails.
func (p *SimpleResourcePool) Register(resourceLocation string) error {
	if resourceLocation == "" {
		return errors.New("mcresource: cannot register an empty resource location")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.isLameDuck {
		return errors.Newf("mcresource: %s is a lame duck pool, cannot register %s", p.location, resourceLocation)
	}
	if p.location == "" {
		p.location = resourceLocation
		return nil
	}
	if p.location == resourceLocation {
		return nil
	}
	return errors.Newf("mcresource: pool is already registered to %s, refusing %s", p.location, resourceLocation)
}

// Unregister is not supported: a SimpleResourcePool's one location is
// fixed for its lifetime.
func (p *SimpleResourcePool) Unregister(resourceLocation string) error {
	return errors.New("mcresource: SimpleResourcePool does not support Unregister")
}

func (p *SimpleResourcePool) ListRegistered() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.location == "" {
		return []string{}
	}
	return []string{p.location}
}

// Get ignores its argument: a SimpleResourcePool only ever has the one
// location fixed by Register.
func (p *SimpleResourcePool) Get(_ string) (ManagedHandle, error) {
	active := atomic.AddInt32(&p.numActive, 1)
	p.bumpHighWater(active)
	if p.options.MaxActiveHandles > 0 && active > p.options.MaxActiveHandles {
		atomic.AddInt32(&p.numActive, -1)
		return nil, errors.Newf("mcresource: too many active handles to %s", p.location)
	}

	if handle, ok := p.idle.pop(); ok {
		return NewManagedHandle(p.location, handle, p, p.options), nil
	}

	p.mu.Lock()
	location, lameDuck := p.location, p.isLameDuck
	p.mu.Unlock()

	if location == "" {
		atomic.AddInt32(&p.numActive, -1)
		return nil, errors.New("mcresource: resource location is not registered")
	}
	if lameDuck {
		atomic.AddInt32(&p.numActive, -1)
		return nil, errors.Newf("mcresource: %s is a lame duck pool, no handles available", location)
	}

	handle, err := p.options.Open(location)
	if err != nil {
		atomic.AddInt32(&p.numActive, -1)
		return nil, errors.Wrapf(err, "mcresource: failed to open handle for %s", location)
	}
	return NewManagedHandle(location, handle, p, p.options), nil
}

func (p *SimpleResourcePool) ownsHandle(handle ManagedHandle) bool {
	owner, ok := handle.Owner().(*SimpleResourcePool)
	return ok && owner == p
}

func (p *SimpleResourcePool) Release(handle ManagedHandle) error {
	if !p.ownsHandle(handle) {
		return errors.New("mcresource: handle is owned by a different pool")
	}

	raw := handle.ReleaseUnderlyingHandle()
	if raw == nil {
		return nil
	}
	atomic.AddInt32(&p.numActive, -1)

	p.mu.Lock()
	lameDuck := p.isLameDuck
	p.mu.Unlock()
	if lameDuck {
		return p.options.Close(raw)
	}

	var keepUntil *time.Time
	if p.options.MaxIdleTime != nil {
		deadline := p.options.getCurrentTime().Add(*p.options.MaxIdleTime)
		keepUntil = &deadline
	}
	p.idle.push(raw, keepUntil)
	return nil
}

func (p *SimpleResourcePool) Discard(handle ManagedHandle) error {
	if !p.ownsHandle(handle) {
		return errors.New("mcresource: handle is owned by a different pool")
	}

	raw := handle.ReleaseUnderlyingHandle()
	if raw == nil {
		return nil
	}
	atomic.AddInt32(&p.numActive, -1)
	if err := p.options.Close(raw); err != nil {
		return errors.Wrap(err, "mcresource: failed to close discarded handle")
	}
	return nil
}

// Clear closes every handle currently idle, leaving the pool otherwise
// usable -- a subsequent Get opens a fresh handle rather than reusing
// one that might be stale.
func (p *SimpleResourcePool) Clear() error {
	p.idle.drain()
	return nil
}

func (p *SimpleResourcePool) EnterLameDuckMode() {
	p.mu.Lock()
	p.isLameDuck = true
	p.mu.Unlock()

	p.idle.drain()
}
