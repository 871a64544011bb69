package rcontext

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/rendergraph/handle"
)

// Render supersets Graphics with draw state and draw calls, valid only
// inside an active render pass. ResetStates drops every piece of bound
// draw state; the render graph calls it at every subpass boundary so a
// merged render pass can't leak state from one subpass's draw_fn into
// the next's.
type Render interface {
	Graphics

	BindGraphicsPipeline(pipeline handle.Handle)
	BindMeshPipeline(pipeline handle.Handle)

	SetScissor(x, y, w, h int32)
	SetDepthBias(constant, clamp, slope float32)
	SetLineWidth(width float32)
	SetDepthBounds(min, max float32)
	SetStencilCompareMask(mask uint32)
	SetStencilWriteMask(mask uint32)
	SetStencilReference(ref uint32)
	SetBlendConstants(c [4]float32)

	BindIndexBuffer(buf handle.Handle, offset uint64, format gputypes.IndexFormat)
	BindVertexBuffer(slot uint32, buf handle.Handle, offset uint64)

	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32)
	DrawIndirect(buf handle.Handle, offset uint64, drawCount, stride uint32)
	DrawIndirectCount(buf, countBuf handle.Handle, offset, countOffset uint64, maxDrawCount, stride uint32)
	DrawMeshTasks(groupX, groupY, groupZ uint32)

	// ResetStates drops the bound pipeline, descriptor sets, push
	// constants, and dynamic state. Required at subpass boundaries.
	ResetStates()

	// ContextInfo reports the logical render pass this context is
	// scoped to, its current subpass, and the framebuffer's layer
	// count.
	ContextInfo() (renderPass handle.Handle, subpassIndex uint32, layerCount uint32)
}
