package batch

import (
	"testing"

	"github.com/gogpu/rendergraph/handle"
)

func TestCompleteReleasesEveryRetainedHandleExactlyOnce(t *testing.T) {
	p := NewPool(&fakeDevice{}, 4)

	id, b, err := p.Acquire()
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	h1 := handle.New(1, 1, handle.Buffer)
	h2 := handle.New(2, 1, handle.Image)
	b.Retain(h1)
	b.Retain(h2)
	if err := p.AcquireFence(b); err != nil {
		t.Fatalf("acquire fence: %v", err)
	}

	released := make(map[handle.Handle]int)
	done, err := p.Complete(id, func(h handle.Handle) { released[h]++ })
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done {
		t.Fatalf("expected completion to wait on the unsignaled fence")
	}
	if len(released) != 0 {
		t.Fatalf("expected no handles released before the fence signals")
	}

	for _, f := range b.Fences() {
		f.Wait(0)
	}

	done, err = p.Complete(id, func(h handle.Handle) { released[h]++ })
	if err != nil {
		t.Fatalf("complete after signal: %v", err)
	}
	if !done {
		t.Fatalf("expected completion once the fence is signaled")
	}
	if released[h1] != 1 || released[h2] != 1 {
		t.Fatalf("expected each retained handle released exactly once, got %v", released)
	}

	// A repeated Complete on the same id must not release anything
	// again, even though the slot has already been recycled.
	done, err = p.Complete(id, func(h handle.Handle) { released[h]++ })
	if err == nil && done {
		t.Fatalf("expected a stale id to either fail or report no completion")
	}
	if released[h1] != 1 || released[h2] != 1 {
		t.Fatalf("expected no double-release on a repeated complete, got %v", released)
	}
}

func TestCompleteRecyclesOccupancyAndBumpsGeneration(t *testing.T) {
	p := NewPool(&fakeDevice{}, 1)

	id, b, err := p.Acquire()
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := p.AcquireFence(b); err != nil {
		t.Fatalf("acquire fence: %v", err)
	}
	for _, f := range b.Fences() {
		f.Wait(0)
	}

	if _, _, err := p.Acquire(); err == nil {
		t.Fatalf("expected the single-slot pool to be exhausted before completion")
	}

	done, err := p.Complete(id, func(handle.Handle) {})
	if err != nil || !done {
		t.Fatalf("expected completion to succeed, done=%v err=%v", done, err)
	}

	id2, _, err := p.Acquire()
	if err != nil {
		t.Fatalf("expected the slot to be reusable after completion: %v", err)
	}
	if id2.index != id.index {
		t.Fatalf("expected the same slot to be reused, got index %d vs %d", id2.index, id.index)
	}
	if id2.generation != id.generation+1 {
		t.Fatalf("expected generation to advance by exactly one, got %d vs %d", id2.generation, id.generation)
	}
	if _, ok := p.Get(id); ok {
		t.Fatalf("expected the stale id to no longer resolve")
	}
}

func TestPoolOverflowReturnsError(t *testing.T) {
	p := NewPool(&fakeDevice{}, 1)
	if _, _, err := p.Acquire(); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if _, _, err := p.Acquire(); err == nil {
		t.Fatalf("expected overflow error once the only slot is claimed")
	}
}

func TestFenceAndSemaphoreRecycling(t *testing.T) {
	dev := &fakeDevice{}
	p := NewPool(dev, 2)

	id1, b1, _ := p.Acquire()
	if err := p.AcquireFence(b1); err != nil {
		t.Fatalf("acquire fence: %v", err)
	}
	if err := p.AcquireSemaphore(b1); err != nil {
		t.Fatalf("acquire semaphore: %v", err)
	}
	for _, f := range b1.Fences() {
		f.Wait(0)
	}
	if _, err := p.Complete(id1, func(handle.Handle) {}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	id2, b2, err := p.Acquire()
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if err := p.AcquireFence(b2); err != nil {
		t.Fatalf("acquire fence again: %v", err)
	}
	if err := p.AcquireSemaphore(b2); err != nil {
		t.Fatalf("acquire semaphore again: %v", err)
	}
	if dev.fenceCreates != 1 {
		t.Fatalf("expected the recycled fence to be reused instead of creating a new one, created %d", dev.fenceCreates)
	}
	if dev.semaphoreCreates != 1 {
		t.Fatalf("expected the recycled semaphore to be reused instead of creating a new one, created %d", dev.semaphoreCreates)
	}
	_ = id2
}
