package resmgr

import (
	"github.com/gogpu/rendergraph/driver"
	"github.com/gogpu/rendergraph/handle"
)

// The accessors below resolve a live handle to the driver object behind
// it, the way CommandBufferObject already does; rcontext's recorder
// calls these to translate a node's resolved (handle, usage) inputs
// into the concrete objects driver.CommandEncoder/RenderPassEncoder/
// ComputePassEncoder expect.

// Resolve translates a virtual handle to the concrete one the render
// graph bound it to this frame; any other handle is returned unchanged.
// BufferObject/ImageObject call this first so a recording callback can
// pass either kind of handle without caring which it declared.
func (m *ResourceManager) Resolve(h handle.Handle) handle.Handle {
	if h.Kind() != handle.VirtualBuffer && h.Kind() != handle.VirtualImage {
		return h
	}
	if concrete, ok := m.ResolveVirtual(h); ok {
		return concrete
	}
	return h
}

// BufferObject returns the driver buffer behind h, resolving h first if
// it names a virtual buffer.
func (m *ResourceManager) BufferObject(h handle.Handle) (driver.Buffer, bool) {
	s, ok := m.buffers.Get(m.Resolve(h))
	if !ok {
		return nil, false
	}
	return s.obj, true
}

// ImageObject returns the driver image behind h, resolving h first if it
// names a virtual image.
func (m *ResourceManager) ImageObject(h handle.Handle) (driver.Image, bool) {
	s, ok := m.images.Get(m.Resolve(h))
	if !ok {
		return nil, false
	}
	return s.obj, true
}

// SamplerObject returns the driver sampler behind h.
func (m *ResourceManager) SamplerObject(h handle.Handle) (driver.Sampler, bool) {
	s, ok := m.samplers.Get(h)
	if !ok {
		return nil, false
	}
	return s.obj, true
}

// DescriptorSetLayoutObject returns the driver set layout behind h.
func (m *ResourceManager) DescriptorSetLayoutObject(h handle.Handle) (driver.DescriptorSetLayout, bool) {
	s, ok := m.setLayouts.Pool().Get(h)
	if !ok {
		return nil, false
	}
	return s.obj, true
}

// PipelineLayoutObject returns the driver pipeline layout behind h.
func (m *ResourceManager) PipelineLayoutObject(h handle.Handle) (driver.PipelineLayout, bool) {
	s, ok := m.pipelineLayouts.Pool().Get(h)
	if !ok {
		return nil, false
	}
	return s.obj, true
}

// DescriptorSetObject returns the driver descriptor set behind h.
func (m *ResourceManager) DescriptorSetObject(h handle.Handle) (driver.DescriptorSet, bool) {
	s, ok := m.descriptorSets.Pool().Get(h)
	if !ok {
		return nil, false
	}
	return s.obj, true
}

// GraphicsPipelineObject returns the driver graphics pipeline behind h.
func (m *ResourceManager) GraphicsPipelineObject(h handle.Handle) (driver.GraphicsPipeline, bool) {
	s, ok := m.graphicsPipelines.Pool().Get(h)
	if !ok {
		return nil, false
	}
	return s.obj, true
}

// MeshPipelineObject returns the driver mesh pipeline behind h.
func (m *ResourceManager) MeshPipelineObject(h handle.Handle) (driver.MeshPipeline, bool) {
	s, ok := m.meshPipelines.Pool().Get(h)
	if !ok {
		return nil, false
	}
	return s.obj, true
}

// ComputePipelineObject returns the driver compute pipeline behind h.
func (m *ResourceManager) ComputePipelineObject(h handle.Handle) (driver.ComputePipeline, bool) {
	s, ok := m.computePipelines.Pool().Get(h)
	if !ok {
		return nil, false
	}
	return s.obj, true
}

// RenderPassObject returns the driver render pass behind h.
func (m *ResourceManager) RenderPassObject(h handle.Handle) (driver.RenderPass, bool) {
	s, ok := m.renderPasses.Pool().Get(h)
	if !ok {
		return nil, false
	}
	return s.obj, true
}

// FramebufferObject returns the driver framebuffer behind h.
func (m *ResourceManager) FramebufferObject(h handle.Handle) (driver.Framebuffer, bool) {
	s, ok := m.framebuffers.Pool().Get(h)
	if !ok {
		return nil, false
	}
	return s.obj, true
}

// Release drops one reference to h through whichever concrete pool its
// Kind belongs to. It is the generic handle.Handle -> error dispatcher
// the render graph hands to batch.Pool.Complete so a batch's retained
// handles (a mix of buffers and images) can be released through one
// callback regardless of kind.
func (m *ResourceManager) Release(h handle.Handle) error {
	switch h.Kind() {
	case handle.Buffer:
		return m.ReleaseBuffer(h)
	case handle.Image:
		return m.ReleaseImage(h)
	default:
		return nil
	}
}

// Device returns the driver device the manager was built with, for
// components (contexts, the render graph) that need to create
// transient per-frame objects (command buffers, fences) outside the
// manager's own cached pools.
func (m *ResourceManager) Device() driver.Device {
	return m.device
}
