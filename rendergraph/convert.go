package rendergraph

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/rendergraph/handle"
)

// bufferUsageFor translates the render-graph usage bits a virtual buffer
// accumulated this frame into the driver-facing buffer usage flags used
// to materialize it.
func bufferUsageFor(u handle.Usage) gputypes.BufferUsage {
	var out gputypes.BufferUsage
	if u.Has(handle.VertexBuffer) {
		out |= gputypes.BufferUsageVertex
	}
	if u.Has(handle.IndexBuffer) {
		out |= gputypes.BufferUsageIndex
	}
	if u.Has(handle.IndirectBuffer) {
		out |= gputypes.BufferUsageIndirect
	}
	if u.Has(handle.UniformBuffer) {
		out |= gputypes.BufferUsageUniform
	}
	if u.Has(handle.StorageBuffer) {
		out |= gputypes.BufferUsageStorage
	}
	if u.Has(handle.TransferSrc) {
		out |= gputypes.BufferUsageCopySrc
	}
	if u.Has(handle.TransferDst) {
		out |= gputypes.BufferUsageCopyDst
	}
	if u.Has(handle.Host) {
		out |= gputypes.BufferUsageMapRead | gputypes.BufferUsageMapWrite
	}
	return out
}

// imageUsageFor translates the render-graph usage bits a virtual image
// accumulated this frame into the driver-facing texture usage flags.
func imageUsageFor(u handle.Usage) gputypes.TextureUsage {
	var out gputypes.TextureUsage
	if u.Has(handle.SampledImage) {
		out |= gputypes.TextureUsageTextureBinding
	}
	if u.Has(handle.StorageImage) {
		out |= gputypes.TextureUsageStorageBinding
	}
	if u.Has(handle.ColorAttachment) || u.Has(handle.DepthAttachment) || u.Has(handle.InputAttachment) {
		out |= gputypes.TextureUsageRenderAttachment
	}
	if u.Has(handle.TransferSrc) {
		out |= gputypes.TextureUsageCopySrc
	}
	if u.Has(handle.TransferDst) {
		out |= gputypes.TextureUsageCopyDst
	}
	return out
}
