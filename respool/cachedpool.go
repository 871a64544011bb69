package respool

import (
	"sync"

	"github.com/gogpu/rendergraph/handle"
)

// CachedPool adds content-addressed lookup on top of a Pool: entries with
// structurally equal content share a slot, resolved by hashing and then
// linear-probing every candidate sharing that hash (collisions are
// expected and handled, not treated as an error).
//
// Used for render-pass descriptors, framebuffers, and descriptor sets:
// two structurally equal inputs always yield the same slot.
type CachedPool[T any] struct {
	pool *Pool[T]

	mu      sync.Mutex
	buckets map[uint64][]handle.Index
}

// NewCached creates a CachedPool for the given kind and capacity.
func NewCached[T any](kind handle.Kind, capacity int) *CachedPool[T] {
	return &CachedPool[T]{
		pool:    New[T](kind, capacity),
		buckets: make(map[uint64][]handle.Index),
	}
}

// Pool exposes the underlying Pool for IsAlive/Get/Release access.
func (c *CachedPool[T]) Pool() *Pool[T] { return c.pool }

// FindOrInsert looks up an existing slot whose stored value satisfies
// equal; if found, its refcount is incremented (Retain) and the existing
// handle returned with inserted=false. Otherwise create() is invoked to
// build a fresh value, which is assigned a new slot recorded under hash
// for future lookups.
func (c *CachedPool[T]) FindOrInsert(hash uint64, equal func(T) bool, create func() T) (h handle.Handle, inserted bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, idx := range c.buckets[hash] {
		existing, ok := c.pool.HandleFor(idx)
		if !ok {
			continue
		}
		cand, ok := c.pool.Get(existing)
		if !ok {
			continue
		}
		if equal(cand) {
			c.pool.Retain(existing)
			return existing, false, nil
		}
	}

	newH, err := c.pool.Assign(create())
	if err != nil {
		return handle.Handle{}, false, err
	}
	c.buckets[hash] = append(c.buckets[hash], newH.Index())
	return newH, true, nil
}

// Release decrements the refcount for h and, once it reaches zero, evicts
// the slot from both the pool and the hash bucket so a future structurally
// equal FindOrInsert call allocates fresh rather than reusing a dead
// index. destroy, if non-nil, runs on the evicted value before the slot is
// unassigned, so callers can tear down the driver object it wraps.
func (c *CachedPool[T]) Release(hash uint64, h handle.Handle, destroy func(T)) {
	value, _ := c.pool.Get(h)
	remaining, ok := c.pool.Release(h)
	if !ok || remaining > 0 {
		return
	}
	if destroy != nil {
		destroy(value)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pool.Unassign(h.Index())
	bucket := c.buckets[hash]
	for i, idx := range bucket {
		if idx == h.Index() {
			c.buckets[hash] = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	if len(c.buckets[hash]) == 0 {
		delete(c.buckets, hash)
	}
}
