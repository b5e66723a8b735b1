// Package mcresource implements a generic, location-keyed resource pool:
// callers Open/Close arbitrary handles (memcache TCP or UDP connections,
// in this codebase), and the pool takes care of bounding how many are
// active and how many sit idle between uses.
package mcresource

import "time"

// Options configures a ResourcePool.
type Options struct {
	// MaxActiveHandles is the maximum number of handles that can be active
	// per location at any given time. A non-positive value means
	// unbounded.
	MaxActiveHandles int32

	// MaxIdleHandles is the maximum number of idle handles per location
	// kept alive by the pool. Zero means handles are never kept idle
	// (every Get opens a fresh handle and every Release closes it) --
	// this is the "create new connection" pool variant. One means at
	// most a single cached idle handle per location. Anything higher is
	// a bounded idle cache.
	MaxIdleHandles uint32

	// MaxIdleTime is the maximum amount of time an idle handle is kept
	// alive, if set.
	MaxIdleTime *time.Duration

	// OpenMaxConcurrency bounds how many Open calls for the same location
	// can run concurrently. A non-positive value means unbounded.
	OpenMaxConcurrency int32

	// Open opens a new handle for a resource location.
	Open func(resourceLocation string) (interface{}, error)

	// Close closes a handle previously returned by Open.
	Close func(handle interface{}) error

	// NowFunc overrides time.Now, for tests.
	NowFunc func() time.Time
}

func (o Options) getCurrentTime() time.Time {
	if o.NowFunc == nil {
		return time.Now()
	}
	return o.NowFunc()
}

// ResourcePool is a generic interface for a managed, location-keyed
// resource pool. All implementations must be threadsafe.
type ResourcePool interface {
	// NumActive returns the number of active handles.
	NumActive() int32

	// ActiveHighWaterMark returns the highest NumActive ever observed.
	ActiveHighWaterMark() int32

	// NumIdle returns the number of idle handles. For tests only.
	NumIdle() int

	// Register associates a resource location with the pool.
	Register(resourceLocation string) error

	// Unregister dissociates a resource location from the pool.
	Unregister(resourceLocation string) error

	// ListRegistered returns all registered resource locations.
	ListRegistered() []string

	// Get returns an active handle for resourceLocation.
	Get(resourceLocation string) (ManagedHandle, error)

	// Release returns an active handle to the pool.
	Release(handle ManagedHandle) error

	// Discard removes an active handle from the pool, closing it.
	Discard(handle ManagedHandle) error

	// Clear closes every handle the pool currently holds idle, without
	// otherwise disabling the pool -- unlike EnterLameDuckMode, a Get
	// issued right after Clear returns is free to open a fresh handle.
	// Used when a location's cached handles are suspected stale (a
	// connection recovering from an IO error, say) and should not be
	// handed out again.
	Clear() error

	// EnterLameDuckMode stops the pool from returning new handles and
	// closes all idle handles.
	EnterLameDuckMode()
}

// ManagedHandle is a handle managed by a ResourcePool.
type ManagedHandle interface {
	// ResourceLocation returns the location this handle was opened for.
	ResourceLocation() string

	// Handle returns the underlying handle value.
	Handle() (interface{}, error)

	// Owner returns the pool that owns this handle.
	Owner() ResourcePool

	// Release returns this handle to its owning pool.
	Release() error

	// Discard removes this handle from its owning pool.
	Discard() error

	// ReleaseUnderlyingHandle detaches and returns the underlying handle
	// value, or nil if the handle was already released/discarded. Used
	// internally by ResourcePool implementations.
	ReleaseUnderlyingHandle() interface{}
}

type managedHandleImpl struct {
	location string
	handle   interface{}
	pool     ResourcePool
	options  Options
	released bool
}

// NewManagedHandle wraps handle, opened for resourceLocation by pool, as a
// ManagedHandle.
func NewManagedHandle(
	resourceLocation string,
	handle interface{},
	pool ResourcePool,
	options Options) ManagedHandle {

	return &managedHandleImpl{
		location: resourceLocation,
		handle:   handle,
		pool:     pool,
		options:  options,
	}
}

func (h *managedHandleImpl) ResourceLocation() string { return h.location }

func (h *managedHandleImpl) Handle() (interface{}, error) {
	return h.handle, nil
}

func (h *managedHandleImpl) Owner() ResourcePool { return h.pool }

func (h *managedHandleImpl) Release() error {
	return h.pool.Release(h)
}

func (h *managedHandleImpl) Discard() error {
	return h.pool.Discard(h)
}

func (h *managedHandleImpl) ReleaseUnderlyingHandle() interface{} {
	if h.released {
		return nil
	}
	h.released = true
	return h.handle
}
