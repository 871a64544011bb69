// Package respool implements the fixed-capacity, slot-recycling resource
// pool used by the render graph's resource model: one Pool per
// handle.Kind, storing a caller-chosen slot body type T, validating
// handles by (index, generation, kind, refcount).
//
// It plays the role of a Storage+IdentityManager+Registry triad
// collapsed into a single type, since the resource kind here is a
// runtime tag on the handle rather than a compile-time generic marker,
// and slots carry an explicit refcount so a resource stays alive as
// long as any in-flight batch references it.
package respool

import (
	"sync"

	"github.com/gogpu/rendergraph/handle"
	"github.com/gogpu/rendergraph/rgerrors"
)

type slot[T any] struct {
	value    T
	gen      handle.Generation
	refcount int32
	valid    bool
}

// Pool is a fixed-capacity array of slots for one handle.Kind.
//
// Slot acquisition and release are safe for concurrent use (§5: "Slot
// acquisition and release are thread-safe"); callers holding a Unique
// handle have exclusive access to the slot body, while plain Handle
// copies are allowed to read concurrently and must synchronize writes
// externally.
type Pool[T any] struct {
	mu       sync.RWMutex
	kind     handle.Kind
	slots    []slot[T]
	free     []handle.Index
	capacity int
}

// New creates a Pool for the given kind with a fixed slot capacity.
func New[T any](kind handle.Kind, capacity int) *Pool[T] {
	return &Pool[T]{
		kind:     kind,
		slots:    make([]slot[T], 0, capacity),
		free:     make([]handle.Index, 0, capacity),
		capacity: capacity,
	}
}

// Kind returns the handle.Kind this pool was created for.
func (p *Pool[T]) Kind() handle.Kind { return p.kind }

// Len returns the number of currently live (assigned) slots.
func (p *Pool[T]) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.slots) - len(p.free)
}

// Capacity returns the pool's fixed slot capacity.
func (p *Pool[T]) Capacity() int { return p.capacity }

// Assign finds a free slot, bumps its generation, stores value, and sets
// its refcount to 1. Returns rgerrors.ErrPoolOverflow if the pool is at
// capacity and holds no released slot to reuse.
func (p *Pool[T]) Assign(value T) (handle.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n := len(p.free); n > 0 {
		idx := p.free[n-1]
		p.free = p.free[:n-1]
		s := &p.slots[idx]
		s.value = value
		s.gen++
		s.refcount = 1
		s.valid = true
		return handle.New(idx, s.gen, p.kind), nil
	}

	if len(p.slots) >= p.capacity {
		return handle.Handle{}, rgerrors.ErrPoolOverflow
	}

	idx := handle.Index(len(p.slots))
	p.slots = append(p.slots, slot[T]{value: value, gen: 1, refcount: 1, valid: true})
	return handle.New(idx, 1, p.kind), nil
}

// Unassign releases index back to the free list. The generation is left
// untouched until the slot is next reused by Assign, so stale handles
// keep comparing unequal to whatever is assigned in the meantime.
func (p *Pool[T]) Unassign(index handle.Index) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if int(index) >= len(p.slots) {
		return
	}
	s := &p.slots[index]
	var zero T
	s.value = zero
	s.refcount = 0
	s.valid = false
	p.free = append(p.free, index)
}

// At returns a pointer to the slot body at index without validating the
// handle. Callers must have already validated the handle (e.g. via
// IsAlive) or otherwise know the index is in range and live.
func (p *Pool[T]) At(index handle.Index) *T {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return &p.slots[index].value
}

// IsAlive validates kind, index range, generation match, and a positive
// refcount, per spec invariant (a).
func (p *Pool[T]) IsAlive(h handle.Handle) bool {
	if h.Kind() != p.kind {
		return false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.isAliveLocked(h)
}

func (p *Pool[T]) isAliveLocked(h handle.Handle) bool {
	idx := h.Index()
	if int(idx) >= len(p.slots) {
		return false
	}
	s := &p.slots[idx]
	return s.valid && s.gen == h.Generation() && s.refcount > 0
}

// Retain increments the refcount of the slot h addresses. Returns false
// if h is not alive.
func (p *Pool[T]) Retain(h handle.Handle) bool {
	if h.Kind() != p.kind {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.isAliveLocked(h) {
		return false
	}
	p.slots[h.Index()].refcount++
	return true
}

// Release decrements the refcount of the slot h addresses and returns the
// resulting count along with whether h was alive to begin with. The
// caller is responsible for calling Unassign once the count reaches
// zero; Release itself never frees the slot, so callers can run a
// destroy callback on the stored value first.
func (p *Pool[T]) Release(h handle.Handle) (remaining int32, ok bool) {
	if h.Kind() != p.kind {
		return 0, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.isAliveLocked(h) {
		return 0, false
	}
	s := &p.slots[h.Index()]
	s.refcount--
	return s.refcount, true
}

// Get validates h and returns a copy of the slot value.
func (p *Pool[T]) Get(h handle.Handle) (T, bool) {
	if h.Kind() != p.kind {
		var zero T
		return zero, false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.isAliveLocked(h) {
		var zero T
		return zero, false
	}
	return p.slots[h.Index()].value, true
}

// HandleFor reconstructs the current handle for a known-live index using
// the slot's current generation. Returns false if index is out of range
// or the slot is not currently assigned.
func (p *Pool[T]) HandleFor(index handle.Index) (handle.Handle, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if int(index) >= len(p.slots) {
		return handle.Handle{}, false
	}
	s := &p.slots[index]
	if !s.valid {
		return handle.Handle{}, false
	}
	return handle.New(index, s.gen, p.kind), true
}

// ForEach iterates over every currently live slot. The callback receives
// the reconstructed handle and a pointer to the slot body; returning
// false stops iteration early.
func (p *Pool[T]) ForEach(fn func(handle.Handle, *T) bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for i := range p.slots {
		s := &p.slots[i]
		if !s.valid {
			continue
		}
		h := handle.New(handle.Index(i), s.gen, p.kind)
		if !fn(h, &s.value) {
			return
		}
	}
}
