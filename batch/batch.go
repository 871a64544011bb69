// Package batch implements the command batch: the unit of GPU submission
// the render graph acquires once per frame, records contexts' command
// buffers into, and submits. A batch owns the fences/semaphores that
// back its submission and the resource handles retained alive until the
// GPU has finished consuming them.
package batch

import (
	"sync"

	"github.com/gogpu/rendergraph/driver"
	"github.com/gogpu/rendergraph/handle"
)

// ID identifies a batch slot plus the generation it was acquired at,
// mirroring handle.Handle's (index, generation) shape so a stale ID from
// a prior acquisition of the same slot is rejected rather than silently
// resolved to the wrong batch.
type ID struct {
	index      uint32
	generation uint32
}

// IsZero reports whether id is the zero value (never acquired).
func (id ID) IsZero() bool { return id.generation == 0 }

// Batch is one in-flight submission: the command buffers recorded into
// it, the fences/semaphores it owns for this submission, and the
// resource handles that must stay alive until the fence signals.
//
// Every method takes mu, so recording (Retain, AppendCommandBuffer, ...)
// and the Pool's IsComplete/Complete calls may run on different
// goroutines without racing on the batch's lists.
type Batch struct {
	mu sync.Mutex

	fences     []driver.Fence
	semaphores []driver.Semaphore
	retained   []handle.Handle
	buffers    []driver.CommandBuffer
	onReadDone []func()
	presents   []PresentRequest
	complete   bool
}

// PresentRequest is one image a Transfer.Present call asked the graph to
// hand to the swapchain once this batch's command buffers submit.
type PresentRequest struct {
	Image driver.Image
	Mip   uint32
	Layer uint32
}

// RequestPresent records a present request made during recording; the
// render graph drains these with PresentRequests after submitting the
// batch's command buffers.
func (b *Batch) RequestPresent(img driver.Image, mip, layer uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.presents = append(b.presents, PresentRequest{Image: img, Mip: mip, Layer: layer})
}

// PresentRequests returns the present requests recorded into this batch,
// in recording order.
func (b *Batch) PresentRequests() []PresentRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]PresentRequest(nil), b.presents...)
}

// initialize resets a batch slot for reuse, dropping any previously
// held references (the pool has already recycled/destroyed them).
func (b *Batch) initialize() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fences = b.fences[:0]
	b.semaphores = b.semaphores[:0]
	b.retained = b.retained[:0]
	b.buffers = b.buffers[:0]
	b.onReadDone = b.onReadDone[:0]
	b.presents = b.presents[:0]
	b.complete = false
}

// Retain adds h to the batch's live-set; it will not be released back
// to the resource manager until this batch completes.
func (b *Batch) Retain(h handle.Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.retained = append(b.retained, h)
}

// OnReadComplete registers fn to run once this batch completes, after
// every retained handle has been released. Transfer.ReadBuffer/ReadImage
// use this to deliver their completion callback once the staging copy
// they recorded has retired on the GPU.
func (b *Batch) OnReadComplete(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onReadDone = append(b.onReadDone, fn)
}

// AppendCommandBuffer records one recorded command buffer as part of
// this batch's submission, in recording order. The render graph calls
// this once per queue's encoder after EndEncoding.
func (b *Batch) AppendCommandBuffer(cb driver.CommandBuffer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buffers = append(b.buffers, cb)
}

// CommandBuffers returns the command buffers recorded into this batch,
// in submission order.
func (b *Batch) CommandBuffers() []driver.CommandBuffer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]driver.CommandBuffer(nil), b.buffers...)
}

// Fences returns the fences owned by this batch's submission.
func (b *Batch) Fences() []driver.Fence {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]driver.Fence(nil), b.fences...)
}

// Semaphores returns the semaphores owned by this batch's submission.
func (b *Batch) Semaphores() []driver.Semaphore {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]driver.Semaphore(nil), b.semaphores...)
}

// isComplete reports whether onComplete has already run for this batch.
func (b *Batch) isComplete() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.complete
}

// signaled reports whether every fence owned by this batch has
// signaled, i.e. the GPU has retired all work submitted in it.
func (b *Batch) signaled() bool {
	b.mu.Lock()
	fences := b.fences
	b.mu.Unlock()
	for _, f := range fences {
		if !f.Signaled() {
			return false
		}
	}
	return true
}

// onComplete runs once, the first time every owned fence has signaled:
// it releases every retained handle through release and marks the
// batch complete. It reports whether completion happened on this call
// (false if already complete, or if some fence has not signaled yet).
func (b *Batch) onComplete(release func(handle.Handle)) bool {
	b.mu.Lock()
	if b.complete {
		b.mu.Unlock()
		return false
	}
	for _, f := range b.fences {
		if !f.Signaled() {
			b.mu.Unlock()
			return false
		}
	}
	retained := b.retained
	callbacks := b.onReadDone
	b.retained = nil
	b.onReadDone = nil
	b.complete = true
	b.mu.Unlock()

	for _, h := range retained {
		release(h)
	}
	for _, fn := range callbacks {
		fn()
	}
	return true
}
