package rcontext

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/rendergraph/batch"
	"github.com/gogpu/rendergraph/driver"
	"github.com/gogpu/rendergraph/handle"
	"github.com/gogpu/rendergraph/resmgr"
	"github.com/gogpu/rendergraph/rgerrors"
	"github.com/gogpu/rendergraph/rglog"
)

// recorder is the single concrete type backing every level of the
// capability lattice. Transfer/Compute/Graphics-level calls record
// directly against cmd, opening and closing a compute pass around
// Dispatch-family calls as needed; Render-level calls instead record
// against an already-open render pass handed in by the render graph's
// recording step, which is the only caller allowed to construct a
// render-scoped recorder.
type recorder struct {
	manager *resmgr.ResourceManager
	batch   *batch.Batch
	cmd     driver.CommandEncoder

	computePass driver.ComputePassEncoder

	render       driver.RenderPassEncoder
	renderPass   handle.Handle
	subpassIndex uint32
	layerCount   uint32
}

// NewTransfer wraps cmd as a Transfer-capability recorder for a
// transfer-queue node.
func NewTransfer(manager *resmgr.ResourceManager, b *batch.Batch, cmd driver.CommandEncoder) Transfer {
	return &recorder{manager: manager, batch: b, cmd: cmd}
}

// NewCompute wraps cmd as a Compute-capability recorder for a
// compute-queue node.
func NewCompute(manager *resmgr.ResourceManager, b *batch.Batch, cmd driver.CommandEncoder) Compute {
	return &recorder{manager: manager, batch: b, cmd: cmd}
}

// NewGraphics wraps cmd as a Graphics-capability recorder for a
// graphics-queue node that does not open its own render pass (e.g. a
// blit/resolve-only node).
func NewGraphics(manager *resmgr.ResourceManager, b *batch.Batch, cmd driver.CommandEncoder) Graphics {
	return &recorder{manager: manager, batch: b, cmd: cmd}
}

// NewRender wraps an already-open render pass as a Render-capability
// recorder, scoped to one subpass. The render graph's recording step
// constructs one of these per subpass's draw_fn and discards it at the
// subpass boundary.
func NewRender(manager *resmgr.ResourceManager, b *batch.Batch, cmd driver.CommandEncoder, pass driver.RenderPassEncoder, passHandle handle.Handle, subpassIndex, layerCount uint32) Render {
	return &recorder{
		manager:      manager,
		batch:        b,
		cmd:          cmd,
		render:       pass,
		renderPass:   passHandle,
		subpassIndex: subpassIndex,
		layerCount:   layerCount,
	}
}

func (r *recorder) retain(h handle.Handle) {
	if r.batch != nil && !h.IsZero() {
		r.batch.Retain(h)
	}
}

func (r *recorder) endComputePass() {
	if r.computePass != nil {
		r.computePass.End()
		r.computePass = nil
	}
}

func (r *recorder) beginComputePass() driver.ComputePassEncoder {
	if r.computePass == nil {
		r.computePass = r.cmd.BeginComputePass()
	}
	return r.computePass
}

func (r *recorder) resolveBuffer(h handle.Handle) driver.Buffer {
	resolved := r.manager.Resolve(h)
	obj, ok := r.manager.BufferObject(resolved)
	if !ok {
		rglog.Logger().Warn("rcontext: buffer handle not resolvable", "handle", h)
		return nil
	}
	r.retain(resolved)
	return obj
}

func (r *recorder) resolveImage(h handle.Handle) driver.Image {
	resolved := r.manager.Resolve(h)
	obj, ok := r.manager.ImageObject(resolved)
	if !ok {
		rglog.Logger().Warn("rcontext: image handle not resolvable", "handle", h)
		return nil
	}
	r.retain(resolved)
	return obj
}

func (r *recorder) resolveDescriptorSet(h handle.Handle) driver.DescriptorSet {
	obj, ok := r.manager.DescriptorSetObject(h)
	if !ok {
		rglog.Logger().Warn("rcontext: descriptor-set handle not resolvable", "handle", h)
		return nil
	}
	r.retain(h)
	return obj
}

// --- Transfer ---

func (r *recorder) ClearColorImage(img handle.Handle, color [4]float32) {
	r.endComputePass()
	if obj := r.resolveImage(img); obj != nil {
		r.cmd.ClearColorImage(obj, color)
	}
}

func (r *recorder) ClearDepthStencilImage(img handle.Handle, depth float32, stencil uint32) {
	r.endComputePass()
	if obj := r.resolveImage(img); obj != nil {
		r.cmd.ClearDepthStencilImage(obj, depth, stencil)
	}
}

func (r *recorder) FillBuffer(buf handle.Handle, offset, size uint64, value uint32) {
	r.endComputePass()
	if obj := r.resolveBuffer(buf); obj != nil {
		r.cmd.FillBuffer(obj, offset, size, value)
	}
}

func (r *recorder) UpdateBuffer(buf handle.Handle, offset uint64, data []byte) {
	r.endComputePass()
	if obj := r.resolveBuffer(buf); obj != nil {
		r.cmd.UpdateBuffer(obj, offset, data)
	}
}

func (r *recorder) UpdateMappedBuffer(buf handle.Handle, offset uint64, data []byte) error {
	obj := r.resolveBuffer(buf)
	if obj == nil {
		return fmt.Errorf("rendergraph: update mapped buffer: %w", rgerrors.ErrInvalidHandle)
	}
	mappable, ok := obj.(driver.MappableBuffer)
	if !ok {
		return fmt.Errorf("rendergraph: buffer is not host-visible")
	}
	mapped := mappable.MappedRange()
	if offset+uint64(len(data)) > uint64(len(mapped)) {
		return fmt.Errorf("rendergraph: mapped write out of range")
	}
	copy(mapped[offset:], data)
	return nil
}

func (r *recorder) MapHostBuffer(buf handle.Handle) ([]byte, error) {
	obj := r.resolveBuffer(buf)
	if obj == nil {
		return nil, fmt.Errorf("rendergraph: map host buffer: %w", rgerrors.ErrInvalidHandle)
	}
	mappable, ok := obj.(driver.MappableBuffer)
	if !ok {
		return nil, fmt.Errorf("rendergraph: buffer is not host-visible")
	}
	return mappable.MappedRange(), nil
}

func (r *recorder) ReadBuffer(buf handle.Handle, offset, size uint64, complete func(ReadResult)) error {
	r.endComputePass()
	src := r.resolveBuffer(buf)
	if src == nil {
		return fmt.Errorf("rendergraph: read buffer: %w", rgerrors.ErrInvalidHandle)
	}
	staging, idx, err := r.manager.AllocStaging(gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst)
	if err != nil {
		return err
	}
	r.cmd.CopyBufferToBuffer(src, staging, offset, 0, size)
	r.batch.OnReadComplete(func() {
		mappable, ok := staging.(driver.MappableBuffer)
		var result ReadResult
		if !ok {
			result.Err = fmt.Errorf("rendergraph: staging buffer is not host-visible")
		} else {
			result.Data = append([]byte(nil), mappable.MappedRange()[:size]...)
		}
		r.manager.ReleaseStaging(idx)
		complete(result)
	})
	return nil
}

func (r *recorder) ReadImage(img handle.Handle, complete func(ReadResult)) error {
	r.endComputePass()
	src := r.resolveImage(img)
	if src == nil {
		return fmt.Errorf("rendergraph: read image: %w", rgerrors.ErrInvalidHandle)
	}
	info, ok := r.manager.MemoryInfo(img)
	if !ok {
		return fmt.Errorf("rendergraph: read image: memory info unavailable")
	}
	size := info.Size
	staging, idx, err := r.manager.AllocStaging(gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst)
	if err != nil {
		return err
	}
	r.cmd.CopyImageToBuffer(src, staging)
	r.batch.OnReadComplete(func() {
		mappable, ok := staging.(driver.MappableBuffer)
		var result ReadResult
		if !ok {
			result.Err = fmt.Errorf("rendergraph: staging buffer is not host-visible")
		} else {
			result.Data = append([]byte(nil), mappable.MappedRange()[:size]...)
		}
		r.manager.ReleaseStaging(idx)
		complete(result)
	})
	return nil
}

func (r *recorder) CopyBuffer(src, dst handle.Handle, srcOffset, dstOffset, size uint64) {
	r.endComputePass()
	s, d := r.resolveBuffer(src), r.resolveBuffer(dst)
	if s != nil && d != nil {
		r.cmd.CopyBufferToBuffer(s, d, srcOffset, dstOffset, size)
	}
}

func (r *recorder) CopyImage(src, dst handle.Handle) {
	r.endComputePass()
	s, d := r.resolveImage(src), r.resolveImage(dst)
	if s != nil && d != nil {
		r.cmd.CopyImageToImage(s, d)
	}
}

func (r *recorder) CopyBufferToImage(src, dst handle.Handle) {
	r.endComputePass()
	s, d := r.resolveBuffer(src), r.resolveImage(dst)
	if s != nil && d != nil {
		r.cmd.CopyBufferToImage(s, d)
	}
}

func (r *recorder) CopyImageToBuffer(src, dst handle.Handle) {
	r.endComputePass()
	s, d := r.resolveImage(src), r.resolveBuffer(dst)
	if s != nil && d != nil {
		r.cmd.CopyImageToBuffer(s, d)
	}
}

func (r *recorder) Present(image handle.Handle, mip, layer uint32) {
	r.endComputePass()
	img := r.resolveImage(image)
	if img == nil {
		return
	}
	r.batch.RequestPresent(img, mip, layer)
}

func (r *recorder) NativeContext() any {
	return r.cmd
}

// --- Compute ---

func (r *recorder) BindComputePipeline(pipeline handle.Handle) {
	obj, ok := r.manager.ComputePipelineObject(pipeline)
	if !ok {
		rglog.Logger().Warn("rcontext: compute pipeline handle not resolvable", "handle", pipeline)
		return
	}
	r.retain(pipeline)
	r.beginComputePass().BindPipeline(obj)
}

func (r *recorder) BindDescriptorSet(index uint32, set handle.Handle, dynamicOffsets []uint32) {
	obj := r.resolveDescriptorSet(set)
	if obj == nil {
		return
	}
	if r.render != nil {
		r.render.BindDescriptorSet(index, obj, dynamicOffsets)
		return
	}
	r.beginComputePass().BindDescriptorSet(index, obj, dynamicOffsets)
}

func (r *recorder) PushConstants(offset uint32, data []byte) {
	if r.render != nil {
		r.render.PushConstants(offset, data)
		return
	}
	r.beginComputePass().PushConstants(offset, data)
}

func (r *recorder) Dispatch(x, y, z uint32) {
	r.beginComputePass().Dispatch(x, y, z)
}

func (r *recorder) DispatchIndirect(buf handle.Handle, offset uint64) {
	obj := r.resolveBuffer(buf)
	if obj == nil {
		return
	}
	r.beginComputePass().DispatchIndirect(obj, offset)
}

func (r *recorder) DispatchBase(baseX, baseY, baseZ, x, y, z uint32) {
	r.beginComputePass().DispatchBase(baseX, baseY, baseZ, x, y, z)
}

// --- Graphics ---

func (r *recorder) BlitImage(src, dst handle.Handle, filter gputypes.FilterMode) {
	r.endComputePass()
	s, d := r.resolveImage(src), r.resolveImage(dst)
	if s != nil && d != nil {
		r.cmd.BlitImage(s, d, filter)
	}
}

func (r *recorder) ResolveImage(src, dst handle.Handle) {
	r.endComputePass()
	s, d := r.resolveImage(src), r.resolveImage(dst)
	if s != nil && d != nil {
		r.cmd.ResolveImage(s, d)
	}
}

// --- Render ---

func (r *recorder) BindGraphicsPipeline(pipeline handle.Handle) {
	obj, ok := r.manager.GraphicsPipelineObject(pipeline)
	if !ok || r.render == nil {
		rglog.Logger().Warn("rcontext: graphics pipeline handle not resolvable", "handle", pipeline)
		return
	}
	r.retain(pipeline)
	r.render.BindGraphicsPipeline(obj)
}

func (r *recorder) BindMeshPipeline(pipeline handle.Handle) {
	obj, ok := r.manager.MeshPipelineObject(pipeline)
	if !ok || r.render == nil {
		rglog.Logger().Warn("rcontext: mesh pipeline handle not resolvable", "handle", pipeline)
		return
	}
	r.retain(pipeline)
	r.render.BindMeshPipeline(obj)
}

func (r *recorder) SetScissor(x, y, w, h int32) {
	if r.render != nil {
		r.render.SetScissor(x, y, w, h)
	}
}

func (r *recorder) SetDepthBias(constant, clamp, slope float32) {
	if r.render != nil {
		r.render.SetDepthBias(constant, clamp, slope)
	}
}

func (r *recorder) SetLineWidth(width float32) {
	if r.render != nil {
		r.render.SetLineWidth(width)
	}
}

func (r *recorder) SetDepthBounds(min, max float32) {
	if r.render != nil {
		r.render.SetDepthBounds(min, max)
	}
}

func (r *recorder) SetStencilCompareMask(mask uint32) {
	if r.render != nil {
		r.render.SetStencilCompareMask(mask)
	}
}

func (r *recorder) SetStencilWriteMask(mask uint32) {
	if r.render != nil {
		r.render.SetStencilWriteMask(mask)
	}
}

func (r *recorder) SetStencilReference(ref uint32) {
	if r.render != nil {
		r.render.SetStencilReference(ref)
	}
}

func (r *recorder) SetBlendConstants(c [4]float32) {
	if r.render != nil {
		r.render.SetBlendConstants(c)
	}
}

func (r *recorder) BindIndexBuffer(buf handle.Handle, offset uint64, format gputypes.IndexFormat) {
	obj := r.resolveBuffer(buf)
	if obj == nil || r.render == nil {
		return
	}
	r.render.BindIndexBuffer(obj, offset, format)
}

func (r *recorder) BindVertexBuffer(slot uint32, buf handle.Handle, offset uint64) {
	obj := r.resolveBuffer(buf)
	if obj == nil || r.render == nil {
		return
	}
	r.render.BindVertexBuffer(slot, obj, offset)
}

func (r *recorder) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	if r.render != nil {
		r.render.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
	}
}

func (r *recorder) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	if r.render != nil {
		r.render.DrawIndexed(indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
	}
}

func (r *recorder) DrawIndirect(buf handle.Handle, offset uint64, drawCount, stride uint32) {
	obj := r.resolveBuffer(buf)
	if obj == nil || r.render == nil {
		return
	}
	r.render.DrawIndirect(obj, offset, drawCount, stride)
}

func (r *recorder) DrawIndirectCount(buf, countBuf handle.Handle, offset, countOffset uint64, maxDrawCount, stride uint32) {
	obj, countObj := r.resolveBuffer(buf), r.resolveBuffer(countBuf)
	if obj == nil || countObj == nil || r.render == nil {
		return
	}
	r.render.DrawIndirectCount(obj, offset, countObj, countOffset, maxDrawCount, stride)
}

func (r *recorder) DrawMeshTasks(groupX, groupY, groupZ uint32) {
	if r.render != nil {
		r.render.DrawMeshTasks(groupX, groupY, groupZ)
	}
}

func (r *recorder) ResetStates() {
	if r.render != nil {
		r.render.ResetStates()
	}
}

func (r *recorder) ContextInfo() (handle.Handle, uint32, uint32) {
	return r.renderPass, r.subpassIndex, r.layerCount
}
