// Package rendergraph implements the per-frame render graph: nodes
// declaring resource inputs/outputs are added against a Graph, then
// Submit resolves dependencies, merges compatible render passes,
// acquires a command batch, records every node in dependency order, and
// submits the result to the driver queues.
package rendergraph

import (
	"fmt"
	"math"
	"sync"

	"github.com/gogpu/rendergraph/batch"
	"github.com/gogpu/rendergraph/driver"
	"github.com/gogpu/rendergraph/handle"
	"github.com/gogpu/rendergraph/resmgr"
	"github.com/gogpu/rendergraph/rgerrors"
)

// Graph owns one frame's worth of node declarations plus the batch pool
// and in-flight bookkeeping that survive across frames.
type Graph struct {
	manager *resmgr.ResourceManager
	device  driver.Device
	batches *batch.Pool

	// mu is the graph lifecycle lock: shared for Add*, exclusive for
	// Submit and Close. Wait, IsComplete and WaitIdle do not take it.
	mu sync.RWMutex

	// nodeMu is the short internal guard for node-list append, held only
	// long enough to grow the arena and fill in one node.
	nodeMu sync.Mutex
	arena  *arena

	inFlightMu sync.Mutex
	inFlight   []batch.ID

	closed bool
}

// New builds a Graph backed by manager and device, sizing its per-frame
// arena and batch pool per cfg.
func New(manager *resmgr.ResourceManager, device driver.Device, cfg Config) *Graph {
	cfg.applyDefaults()
	return &Graph{
		manager: manager,
		device:  device,
		batches: batch.NewPool(device, cfg.BatchCapacity),
		arena:   newArena(cfg.NodeCapacity),
	}
}

// Close marks the graph closed, rejecting further Add* calls. It takes
// the exclusive lifecycle lock since every in-flight Add holds it shared.
func (g *Graph) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
}

// WaitIdle blocks unconditionally until every batch submitted so far has
// completed, draining the in-flight list. Unlike Wait, it takes no
// timeout and no explicit batch list: it always waits on everything
// still outstanding.
func (g *Graph) WaitIdle() bool {
	g.inFlightMu.Lock()
	ids := append([]batch.ID(nil), g.inFlight...)
	g.inFlight = g.inFlight[:0]
	g.inFlightMu.Unlock()

	return g.Wait(ids, math.MaxInt64)
}

// PresentQueues reports, as a bitmask keyed by driver.QueueKind, which
// of the device's queues currently resolve to a present-capable queue.
// The caller's present(image, mip, layer) is only valid against one of
// these; the set comes from the driver rather than being hardcoded to
// the graphics queue.
func (g *Graph) PresentQueues() uint64 {
	var mask uint64
	for _, kind := range []driver.QueueKind{driver.GraphicsQueue, driver.AsyncComputeQueue, driver.TransferQueue} {
		if _, ok := g.device.Queue(kind); ok {
			mask |= 1 << uint(kind)
		}
	}
	return mask
}

func admit(kind nodeKind, queue handle.Queue) error {
	switch kind {
	case nodeRenderPass:
		if queue != handle.Graphics {
			return fmt.Errorf("rendergraph: render-pass node requires the graphics queue: %w", rgerrors.ErrQueueMismatch)
		}
	case nodeGraphics:
		if queue != handle.Graphics {
			return fmt.Errorf("rendergraph: graphics node requires the graphics queue: %w", rgerrors.ErrQueueMismatch)
		}
	case nodeCompute:
		if queue != handle.Graphics && queue != handle.AsyncCompute {
			return fmt.Errorf("rendergraph: compute node requires the graphics or async-compute queue: %w", rgerrors.ErrQueueMismatch)
		}
	case nodeTransfer:
		// Transfer nodes are admissible on every queue.
	}
	return nil
}

func (g *Graph) addNode(kind nodeKind, queue handle.Queue, inputs, outputs []handle.ResourceInput, dbgName string, fill func(*node)) error {
	if err := admit(kind, queue); err != nil {
		return err
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.closed {
		return fmt.Errorf("rendergraph: add on a closed graph")
	}

	g.nodeMu.Lock()
	defer g.nodeMu.Unlock()

	idx := g.arena.alloc()
	n := g.arena.at(idx)
	n.reset()
	n.kind = kind
	n.queue = queue
	n.inputs = append(n.inputs, inputs...)
	n.outputs = append(n.outputs, outputs...)
	n.dbgName = dbgName
	n.state = stateInitial
	fill(n)
	return nil
}

// AddTransfer declares a transfer-queue-capable node: clears, copies,
// buffer fills, reads, and mapped writes.
func (g *Graph) AddTransfer(queue handle.Queue, inputs, outputs []handle.ResourceInput, fn TransferFunc, dbgName string) error {
	return g.addNode(nodeTransfer, queue, inputs, outputs, dbgName, func(n *node) {
		n.transferFn = fn
	})
}

// AddCompute declares a compute-dispatch node.
func (g *Graph) AddCompute(queue handle.Queue, inputs, outputs []handle.ResourceInput, fn ComputeFunc, dbgName string) error {
	return g.addNode(nodeCompute, queue, inputs, outputs, dbgName, func(n *node) {
		n.computeFn = fn
	})
}

// AddGraphics declares a graphics-queue node outside an active render
// pass (a blit or multisample resolve).
func (g *Graph) AddGraphics(queue handle.Queue, inputs, outputs []handle.ResourceInput, fn GraphicsFunc, dbgName string) error {
	return g.addNode(nodeGraphics, queue, inputs, outputs, dbgName, func(n *node) {
		n.graphicsFn = fn
	})
}

// AddRenderPass declares a render-pass node: setup fills in the logical
// render pass description (potentially from resolved input handles),
// then draw records against the opened pass.
func (g *Graph) AddRenderPass(queue handle.Queue, inputs, outputs []handle.ResourceInput, setup RenderPassSetupFunc, draw RenderPassDrawFunc, dbgName string) error {
	return g.addNode(nodeRenderPass, queue, inputs, outputs, dbgName, func(n *node) {
		n.setupFn = setup
		n.drawFn = draw
	})
}
