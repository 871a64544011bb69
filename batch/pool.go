package batch

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/gogpu/rendergraph/driver"
	"github.com/gogpu/rendergraph/handle"
	"github.com/gogpu/rendergraph/rgerrors"
)

// maxAcquireSpins bounds Pool.Acquire's retry loop: after this many full
// sweeps over the slot table with no free slot, the caller gets
// ErrBatchOverflow rather than spinning forever behind a stuck batch.
const maxAcquireSpins = 64

// Pool is a fixed-capacity set of reusable Batch slots. Slot occupancy
// is tracked in a word-sized bitmap mutated with atomic compare-and-swap
// rather than a mutex, per the render graph's lock-free batch pool
// design; Acquire retries with a bounded runtime.Gosched() spin when
// every slot is claimed.
type Pool struct {
	device driver.Device

	batches     []Batch
	generations []uint32
	claimed     []uint32 // one bit per slot, packed 32 to a word

	fenceMu    sync.Mutex
	freeFences []driver.Fence

	semMu          sync.Mutex
	freeSemaphores []driver.Semaphore
}

// NewPool allocates a pool of capacity reusable batch slots.
func NewPool(device driver.Device, capacity int) *Pool {
	if capacity <= 0 {
		capacity = 1
	}
	return &Pool{
		device:      device,
		batches:     make([]Batch, capacity),
		generations: make([]uint32, capacity),
		claimed:     make([]uint32, (capacity+31)/32),
	}
}

// Capacity returns the number of batch slots the pool owns.
func (p *Pool) Capacity() int { return len(p.batches) }

func claimBit(words []uint32, idx int) bool {
	word, bit := idx/32, uint32(1)<<uint(idx%32)
	for {
		old := atomic.LoadUint32(&words[word])
		if old&bit != 0 {
			return false
		}
		if atomic.CompareAndSwapUint32(&words[word], old, old|bit) {
			return true
		}
	}
}

func clearBit(words []uint32, idx int) {
	word, bit := idx/32, uint32(1)<<uint(idx%32)
	for {
		old := atomic.LoadUint32(&words[word])
		if atomic.CompareAndSwapUint32(&words[word], old, old&^bit) {
			return
		}
	}
}

// Acquire claims a free slot, returning its Batch ready for recording
// and the ID the caller must hand back to Complete once the
// corresponding GPU work has been submitted. It fails with
// ErrBatchOverflow once every slot stays claimed across maxAcquireSpins
// sweeps.
func (p *Pool) Acquire() (ID, *Batch, error) {
	n := len(p.batches)
	for spin := 0; spin < maxAcquireSpins; spin++ {
		for idx := 0; idx < n; idx++ {
			if !claimBit(p.claimed, idx) {
				continue
			}
			gen := atomic.LoadUint32(&p.generations[idx])
			if gen == 0 {
				gen = 1
				atomic.StoreUint32(&p.generations[idx], gen)
			}
			b := &p.batches[idx]
			b.initialize()
			return ID{index: uint32(idx), generation: gen}, b, nil
		}
		runtime.Gosched()
	}
	return ID{}, nil, rgerrors.ErrBatchOverflow
}

// Get resolves id to its Batch, failing if the slot has since been
// recycled into a later generation.
func (p *Pool) Get(id ID) (*Batch, bool) {
	if id.IsZero() || int(id.index) >= len(p.batches) {
		return nil, false
	}
	if atomic.LoadUint32(&p.generations[id.index]) != id.generation {
		return nil, false
	}
	return &p.batches[id.index], true
}

// AcquireFence hands b a fence from the recycled free list, creating a
// new one through the device only when the free list is empty.
func (p *Pool) AcquireFence(b *Batch) error {
	p.fenceMu.Lock()
	var f driver.Fence
	if n := len(p.freeFences); n > 0 {
		f = p.freeFences[n-1]
		p.freeFences = p.freeFences[:n-1]
	}
	p.fenceMu.Unlock()

	if f == nil {
		created, err := p.device.CreateFence()
		if err != nil {
			return err
		}
		f = created
	}
	b.mu.Lock()
	b.fences = append(b.fences, f)
	b.mu.Unlock()
	return nil
}

// AcquireSemaphore hands b a semaphore from the recycled free list,
// creating a new one through the device only when the free list is
// empty.
func (p *Pool) AcquireSemaphore(b *Batch) error {
	p.semMu.Lock()
	var s driver.Semaphore
	if n := len(p.freeSemaphores); n > 0 {
		s = p.freeSemaphores[n-1]
		p.freeSemaphores = p.freeSemaphores[:n-1]
	}
	p.semMu.Unlock()

	if s == nil {
		created, err := p.device.CreateSemaphore()
		if err != nil {
			return err
		}
		s = created
	}
	b.mu.Lock()
	b.semaphores = append(b.semaphores, s)
	b.mu.Unlock()
	return nil
}

// Complete attempts to retire id's batch: if every fence it owns has
// signaled, it releases every handle the batch retained through
// release, recycles its fences and semaphores back to the free lists,
// bumps the slot's generation so stale IDs stop resolving, and returns
// true. It returns false, nil if the batch is still in flight.
func (p *Pool) Complete(id ID, release func(handle.Handle)) (bool, error) {
	b, ok := p.Get(id)
	if !ok {
		return false, rgerrors.ErrInvalidHandle
	}
	if !b.onComplete(release) {
		return false, nil
	}

	b.mu.Lock()
	fences, semaphores := b.fences, b.semaphores
	b.fences, b.semaphores, b.buffers = nil, nil, nil
	b.mu.Unlock()

	for _, f := range fences {
		f.Reset()
	}
	p.fenceMu.Lock()
	p.freeFences = append(p.freeFences, fences...)
	p.fenceMu.Unlock()

	p.semMu.Lock()
	p.freeSemaphores = append(p.freeSemaphores, semaphores...)
	p.semMu.Unlock()

	atomic.AddUint32(&p.generations[id.index], 1)
	clearBit(p.claimed, int(id.index))
	return true, nil
}

// IsComplete reports whether id's batch has already finished (or was
// never a live slot), without attempting to retire it.
func (p *Pool) IsComplete(id ID) bool {
	b, ok := p.Get(id)
	if !ok {
		return true
	}
	return b.isComplete() || b.signaled()
}
