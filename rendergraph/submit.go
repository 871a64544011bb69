package rendergraph

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/rendergraph/batch"
	"github.com/gogpu/rendergraph/driver"
	"github.com/gogpu/rendergraph/handle"
	"github.com/gogpu/rendergraph/rcontext"
	"github.com/gogpu/rendergraph/resmgr"
	"github.com/gogpu/rendergraph/rgerrors"
	"github.com/gogpu/rendergraph/rglog"
)

func queueKindFor(q handle.Queue) driver.QueueKind {
	switch q {
	case handle.AsyncCompute:
		return driver.AsyncComputeQueue
	case handle.Transfer:
		return driver.TransferQueue
	default:
		return driver.GraphicsQueue
	}
}

// Submit resolves this frame's declared nodes into a dependency order,
// materializes every virtual resource touched this frame, merges
// compatible render-pass nodes, records the result into a fresh command
// batch, and submits one command buffer per queue used, then retires
// every earlier in-flight batch whose fences have signaled. It always
// resets the node arena before returning, whether or not submission
// succeeded, since a failed frame's nodes cannot be replayed as-is.
func (g *Graph) Submit() (batch.ID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	defer g.arena.reset()

	if g.closed {
		return batch.ID{}, fmt.Errorf("rendergraph: submit on a closed graph")
	}
	if g.arena.len() == 0 {
		return batch.ID{}, nil
	}

	if err := g.resolveWriters(); err != nil {
		return batch.ID{}, err
	}

	virtuals := g.accumulateVirtualUsage()
	if err := g.materializeVirtuals(virtuals); err != nil {
		return batch.ID{}, err
	}

	order := g.schedule()
	g.invokeRenderPassSetups(order)
	g.mergeGroups(order)

	id, b, err := g.batches.Acquire()
	if err != nil {
		return batch.ID{}, err
	}

	for _, v := range virtuals {
		if concrete, ok := g.manager.ResolveVirtual(v); ok {
			b.Retain(concrete)
		}
	}

	if err := g.record(order, b); err != nil {
		return batch.ID{}, err
	}

	for _, v := range virtuals {
		_ = g.manager.ReleaseVirtual(v)
	}

	g.inFlightMu.Lock()
	live := g.inFlight[:0]
	for _, prev := range g.inFlight {
		if _, ok := g.batches.Get(prev); !ok {
			continue
		}
		if g.batches.IsComplete(prev) {
			g.retire(prev)
			continue
		}
		live = append(live, prev)
	}
	g.inFlight = append(live, id)
	g.inFlightMu.Unlock()
	return id, nil
}

// resolveWriters maps every declared output this frame to the node that
// produced it, failing fast if two nodes both claim the same output,
// then fills in each node's writers slice from that map.
func (g *Graph) resolveWriters() error {
	n := g.arena.len()
	writerOf := make(map[handle.Handle]int, n*2)
	for i := 0; i < n; i++ {
		nd := g.arena.at(i)
		for _, out := range nd.outputs {
			if _, exists := writerOf[out.Handle]; exists {
				return fmt.Errorf("rendergraph: node %q: output %s already written this frame: %w", nd.dbgName, out.Handle, rgerrors.ErrDuplicateWriter)
			}
			writerOf[out.Handle] = i
		}
	}
	for i := 0; i < n; i++ {
		nd := g.arena.at(i)
		nd.writers = nd.writers[:0]
		for _, in := range nd.inputs {
			if w, ok := writerOf[in.Handle]; ok {
				nd.writers = append(nd.writers, w)
				continue
			}
			nd.writers = append(nd.writers, -1)
		}
	}
	return nil
}

// accumulateVirtualUsage folds every input/output usage declared this
// frame into its virtual handle's running union, returning the distinct
// virtual handles touched so materializeVirtuals only visits each once.
func (g *Graph) accumulateVirtualUsage() []handle.Handle {
	n := g.arena.len()
	seen := make(map[handle.Handle]bool)
	var virtuals []handle.Handle
	track := func(in handle.ResourceInput) {
		if !in.Handle.Kind().IsVirtual() {
			return
		}
		g.manager.AccumulateVirtualUsage(in.Handle, in.Usage)
		if !seen[in.Handle] {
			seen[in.Handle] = true
			virtuals = append(virtuals, in.Handle)
		}
	}
	for i := 0; i < n; i++ {
		nd := g.arena.at(i)
		for _, in := range nd.inputs {
			track(in)
		}
		for _, out := range nd.outputs {
			track(out)
		}
	}
	return virtuals
}

// materializeVirtuals creates and binds a concrete buffer or image for
// every virtual handle in virtuals that is not already bound this frame.
func (g *Graph) materializeVirtuals(virtuals []handle.Handle) error {
	for _, v := range virtuals {
		if _, ok := g.manager.ResolveVirtual(v); ok {
			continue
		}
		desc, ok := g.manager.VirtualDescription(v)
		if !ok {
			return fmt.Errorf("rendergraph: virtual handle %s has no description: %w", v, rgerrors.ErrInvalidHandle)
		}
		usage, _ := g.manager.VirtualUsage(v)

		var concrete handle.Handle
		var err error
		switch v.Kind() {
		case handle.VirtualBuffer:
			concrete, err = g.manager.CreateBuffer(resmgr.BufferDesc{
				Label: "rendergraph-virtual-buffer",
				Size:  desc.SizeClass,
				Usage: bufferUsageFor(usage),
			})
		case handle.VirtualImage:
			concrete, err = g.manager.CreateImage(resmgr.ImageDesc{
				Label:         "rendergraph-virtual-image",
				Extent:        desc.Extent,
				Format:        desc.Format,
				Usage:         imageUsageFor(usage),
				SampleCount:   1,
				MipLevelCount: 1,
				ArrayLayers:   1,
				Dimension:     gputypes.TextureDimension2D,
			})
		default:
			err = fmt.Errorf("rendergraph: handle %s is not a virtual resource", v)
		}
		if err != nil {
			return err
		}
		if !g.manager.BindVirtual(v, concrete) {
			return fmt.Errorf("rendergraph: bind virtual %s to %s: %w", v, concrete, rgerrors.ErrInvalidHandle)
		}
	}
	return nil
}

// schedule runs a Kahn's-algorithm topological sort over the frame's
// nodes using their resolved writer edges, returning the stateComplete
// subsequence in emission order. A node with an input that has no writer
// this frame and is not marked handle.External, or whose writer never
// resolved to completion (a dropped predecessor, or a dependency cycle),
// is marked stateIncomplete and excluded, and the incompleteness
// propagates to its own consumers in turn.
func (g *Graph) schedule() []int {
	n := g.arena.len()
	indeg := make([]int, n)
	successors := make([][]int, n)
	for i := 0; i < n; i++ {
		preds := g.arena.at(i).predecessors()
		indeg[i] = len(preds)
		for _, p := range preds {
			successors[p] = append(successors[p], i)
		}
	}

	ready := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if indeg[i] == 0 {
			ready = append(ready, i)
		}
	}

	visited := make([]bool, n)
	incomplete := make([]bool, n)
	order := make([]int, 0, n)

	for len(ready) > 0 {
		i := ready[0]
		ready = ready[1:]
		if visited[i] {
			continue
		}
		visited[i] = true

		nd := g.arena.at(i)
		for j, w := range nd.writers {
			if w < 0 && !nd.inputs[j].Usage.Has(handle.External) {
				incomplete[i] = true
				break
			}
		}
		for _, p := range nd.predecessors() {
			if incomplete[p] {
				incomplete[i] = true
				break
			}
		}
		if incomplete[i] {
			nd.state = stateIncomplete
			rglog.Logger().Warn("rendergraph: dropping node with an incomplete dependency", "node", nd.dbgName)
		} else {
			nd.state = stateComplete
			order = append(order, i)
		}

		for _, s := range successors[i] {
			indeg[s]--
			if indeg[s] == 0 {
				ready = append(ready, s)
			}
		}
	}

	for i := 0; i < n; i++ {
		if !visited[i] {
			nd := g.arena.at(i)
			nd.state = stateIncomplete
			rglog.Logger().Warn("rendergraph: dropping node in a dependency cycle", "node", nd.dbgName)
		}
	}
	return order
}

// invokeRenderPassSetups runs each scheduled render-pass node's setup
// callback and resolves any virtual attachment views to concrete images,
// ahead of the merge pass so it can compare resolved attachment sets.
func (g *Graph) invokeRenderPassSetups(order []int) {
	for _, idx := range order {
		nd := g.arena.at(idx)
		if nd.kind != nodeRenderPass || nd.setupFn == nil {
			continue
		}
		setup := &RenderPassSetup{}
		nd.setupFn(setup)
		for i := range setup.ColorAttachments {
			setup.ColorAttachments[i].View = g.manager.Resolve(setup.ColorAttachments[i].View)
		}
		if setup.DepthStencilAttachment != nil {
			setup.DepthStencilAttachment.View = g.manager.Resolve(setup.DepthStencilAttachment.View)
		}
		nd.renderPassSetup = setup
	}
}

// record opens one command encoder per queue actually used by order,
// replays each scheduled node's callback in dependency order (coalescing
// merged render-pass groups into a single BeginRenderPass/NextSubpass/End
// sequence), ends every encoder, and submits its command buffer to the
// matching driver queue guarded by a fence owned by b.
func (g *Graph) record(order []int, b *batch.Batch) error {
	encoders := make(map[handle.Queue]driver.CommandEncoder)
	getEncoder := func(q handle.Queue) (driver.CommandEncoder, error) {
		if enc, ok := encoders[q]; ok {
			return enc, nil
		}
		enc, err := g.device.CreateCommandEncoder()
		if err != nil {
			return nil, err
		}
		if err := enc.BeginEncoding(q.String()); err != nil {
			return nil, err
		}
		encoders[q] = enc
		return enc, nil
	}

	var openPass driver.RenderPassEncoder
	openGroup := -1
	closePass := func() {
		if openPass != nil {
			openPass.End()
			openPass = nil
			openGroup = -1
		}
	}

	for _, idx := range order {
		nd := g.arena.at(idx)
		if nd.kind != nodeRenderPass && openPass != nil {
			closePass()
		}

		enc, err := getEncoder(nd.queue)
		if err != nil {
			return err
		}

		switch nd.kind {
		case nodeTransfer:
			if nd.transferFn != nil && !nd.transferFn(rcontext.NewTransfer(g.manager, b, enc)) {
				rglog.Logger().Warn("rendergraph: transfer node declined to record, skipping", "node", nd.dbgName)
			}
		case nodeCompute:
			if nd.computeFn != nil && !nd.computeFn(rcontext.NewCompute(g.manager, b, enc)) {
				rglog.Logger().Warn("rendergraph: compute node declined to record, skipping", "node", nd.dbgName)
			}
		case nodeGraphics:
			if nd.graphicsFn != nil && !nd.graphicsFn(rcontext.NewGraphics(g.manager, b, enc)) {
				rglog.Logger().Warn("rendergraph: graphics node declined to record, skipping", "node", nd.dbgName)
			}
		case nodeRenderPass:
			if err := g.recordRenderPass(nd, enc, b, &openPass, &openGroup); err != nil {
				return err
			}
		}
	}
	closePass()

	for q, enc := range encoders {
		cb, err := enc.EndEncoding()
		if err != nil {
			return err
		}
		b.AppendCommandBuffer(cb)

		drvQueue, ok := g.device.Queue(queueKindFor(q))
		if !ok {
			return fmt.Errorf("rendergraph: device has no queue for %s: %w", q, rgerrors.ErrQueueMismatch)
		}
		if err := g.batches.AcquireFence(b); err != nil {
			return err
		}
		fences := b.Fences()
		if err := drvQueue.Submit([]driver.CommandBuffer{cb}, nil, nil, fences[len(fences)-1]); err != nil {
			return err
		}
	}

	presentQueue, ok := g.device.Queue(driver.GraphicsQueue)
	for _, req := range b.PresentRequests() {
		if !ok {
			return fmt.Errorf("rendergraph: device has no present-capable queue: %w", rgerrors.ErrQueueMismatch)
		}
		if err := presentQueue.Present(req.Image, req.Mip, req.Layer, b.Semaphores()); err != nil {
			return err
		}
	}
	return nil
}

// recordRenderPass opens a new driver render pass the first time a
// merge group is seen, or advances *openPass to the next subpass when
// this node continues the group already open, then invokes the node's
// draw callback against that subpass.
func (g *Graph) recordRenderPass(nd *node, enc driver.CommandEncoder, b *batch.Batch, openPass *driver.RenderPassEncoder, openGroup *int) error {
	setup := nd.renderPassSetup
	if setup == nil {
		return fmt.Errorf("rendergraph: render-pass node %q produced no setup", nd.dbgName)
	}

	subpass := uint32(0)
	if *openPass != nil && *openGroup == nd.mergeGroup {
		(*openPass).NextSubpass()
		(*openPass).ResetStates()
		subpass = 1
	} else {
		if *openPass != nil {
			(*openPass).End()
		}

		layers := setup.LayerCount
		if layers == 0 {
			layers = 1
		}

		subpasses := uint32(0)
		for i := 0; i < g.arena.len(); i++ {
			if other := g.arena.at(i); other.kind == nodeRenderPass && other.mergeGroup == nd.mergeGroup {
				subpasses++
			}
		}

		passDesc := resmgr.RenderPassDesc{
			ColorAttachments:       setup.ColorAttachments,
			DepthStencilAttachment: setup.DepthStencilAttachment,
			ViewportCount:          setup.ViewportCount,
			LayerCount:             layers,
			Subpasses:              subpasses,
		}
		passHandle, err := g.manager.CreateRenderPass(passDesc)
		if err != nil {
			return err
		}
		passObj, ok := g.manager.RenderPassObject(passHandle)
		if !ok {
			return fmt.Errorf("rendergraph: render pass %s not resolvable: %w", passHandle, rgerrors.ErrInvalidHandle)
		}

		views := make([]handle.Handle, len(setup.ColorAttachments))
		width, height := uint32(0), uint32(0)
		for i, a := range setup.ColorAttachments {
			views[i] = a.View
			width, height = a.Dimensions[0], a.Dimensions[1]
		}
		if setup.DepthStencilAttachment != nil {
			views = append(views, setup.DepthStencilAttachment.View)
		}
		fbHandle, err := g.manager.CreateFramebuffer(resmgr.FramebufferDesc{
			RenderPass: passHandle, Views: views, Width: width, Height: height, Layers: layers,
		})
		if err != nil {
			return err
		}
		fbObj, ok := g.manager.FramebufferObject(fbHandle)
		if !ok {
			return fmt.Errorf("rendergraph: framebuffer %s not resolvable: %w", fbHandle, rgerrors.ErrInvalidHandle)
		}

		*openPass = enc.BeginRenderPass(passObj, fbObj, 0)
		*openGroup = nd.mergeGroup
		b.OnReadComplete(func() {
			_ = g.manager.ReleaseFramebuffer(fbHandle)
			_ = g.manager.ReleaseRenderPass(passHandle)
		})
	}

	if nd.drawFn != nil && !nd.drawFn(rcontext.NewRender(g.manager, b, enc, *openPass, handle.Handle{}, subpass, 1)) {
		rglog.Logger().Warn("rendergraph: render-pass node declined to draw, skipping", "node", nd.dbgName)
	}
	return nil
}

// Wait blocks until every batch in ids has completed or timeoutNanos
// elapses, retiring each batch that finishes through the resource
// manager's Release dispatcher. It reports whether every batch
// completed within the deadline.
func (g *Graph) Wait(ids []batch.ID, timeoutNanos int64) bool {
	all := true
	for _, id := range ids {
		b, ok := g.batches.Get(id)
		if !ok {
			continue
		}
		for _, f := range b.Fences() {
			if !f.Wait(timeoutNanos) {
				all = false
			}
		}
		g.retire(id)
	}
	return all
}

// IsComplete reports whether every batch in ids has finished, retiring
// any that have without blocking.
func (g *Graph) IsComplete(ids []batch.ID) bool {
	complete := true
	for _, id := range ids {
		if !g.batches.IsComplete(id) {
			complete = false
			continue
		}
		g.retire(id)
	}
	return complete
}

func (g *Graph) retire(id batch.ID) {
	if _, err := g.batches.Complete(id, func(h handle.Handle) {
		_ = g.manager.Release(h)
	}); err != nil {
		rglog.Logger().Warn("rendergraph: batch retirement failed", "error", err)
	}
}
