package driver

import "github.com/gogpu/gputypes"

// BufferDescriptor describes buffer creation: size, usage flags, and the
// memory-type hints a backend needs to place it.
type BufferDescriptor struct {
	Label string
	Size  uint64
	Usage gputypes.BufferUsage
}

// ImageDescriptor describes image creation.
type ImageDescriptor struct {
	Label         string
	Extent        gputypes.Extent3D
	Format        gputypes.TextureFormat
	Usage         gputypes.TextureUsage
	SampleCount   uint32
	MipLevelCount uint32
	ArrayLayers   uint32
	Dimension     gputypes.TextureDimension
}

// SamplerDescriptor describes sampler creation.
type SamplerDescriptor struct {
	Label        string
	MagFilter    gputypes.FilterMode
	MinFilter    gputypes.FilterMode
	MipmapFilter gputypes.FilterMode
	AddressModeU gputypes.AddressMode
	AddressModeV gputypes.AddressMode
	AddressModeW gputypes.AddressMode
	LodMinClamp  float32
	LodMaxClamp  float32
	Compare      gputypes.CompareFunction
	Anisotropy   uint16
}

// DescriptorSetLayoutBinding describes one binding slot.
type DescriptorSetLayoutBinding struct {
	Binding uint32
	Type    gputypes.BufferBindingType
	Stages  gputypes.ShaderStages
	Count   uint32
}

// DescriptorSetLayoutDescriptor describes a descriptor-set layout.
type DescriptorSetLayoutDescriptor struct {
	Label    string
	Bindings []DescriptorSetLayoutBinding
}

// PipelineLayoutDescriptor describes a pipeline layout: an ordered list
// of descriptor-set layouts, one per set index. Unused set slots must be
// filled with the resource manager's empty descriptor-set layout so the
// driver layout object never contains gaps.
type PipelineLayoutDescriptor struct {
	Label   string
	Sets    []DescriptorSetLayout
	PushSize uint32
}

// DescriptorSetEntry binds one resource to one binding slot.
type DescriptorSetEntry struct {
	Binding uint32
	Buffer  Buffer
	Offset  uint64
	Size    uint64
	Sampler Sampler
	Image   Image
}

// DescriptorSetDescriptor describes a descriptor set.
type DescriptorSetDescriptor struct {
	Label   string
	Layout  DescriptorSetLayout
	Entries []DescriptorSetEntry
}

// ColorTargetState describes one color attachment's blend/write state,
// already normalized by the time it reaches the driver.
type ColorTargetState struct {
	Format        gputypes.TextureFormat
	Blend         bool
	ColorSrc      gputypes.BlendFactor
	ColorDst      gputypes.BlendFactor
	ColorOp       gputypes.BlendOperation
	AlphaSrc      gputypes.BlendFactor
	AlphaDst      gputypes.BlendFactor
	AlphaOp       gputypes.BlendOperation
	WriteMask     gputypes.ColorWriteMask
}

// DepthStencilState describes depth/stencil testing, normalized per
// with compare forced to LEqual when the test is disabled.
type DepthStencilState struct {
	Format            gputypes.TextureFormat
	DepthTest         bool
	DepthWrite        bool
	DepthCompare      gputypes.CompareFunction
	DepthBoundsTest   bool
	MinDepthBounds    float32
	MaxDepthBounds    float32
	StencilTest       bool
	StencilReadMask   uint32
	StencilWriteMask  uint32
	StencilReference  uint32
}

// DynamicState is a bitmask of pipeline state left dynamic (set via
// context calls at record time rather than baked into the pipeline).
type DynamicState uint32

const (
	DynamicViewport DynamicState = 1 << iota
	DynamicScissor
	DynamicDepthBias
	DynamicLineWidth
	DynamicDepthBounds
	DynamicStencilCompareMask
	DynamicStencilWriteMask
	DynamicStencilReference
	DynamicBlendConstants
)

// GraphicsPipelineDescriptor describes a graphics (render) pipeline
// requested by name through ResourceManager.GraphicsPipeline.
type GraphicsPipelineDescriptor struct {
	Layout             PipelineLayout
	Topology           gputypes.PrimitiveTopology
	PatchControlPoints uint32 // tessellation patch size; 0 when unused
	CullMode           gputypes.CullMode
	FrontFace          gputypes.FrontFace
	RasterizerDiscard  bool
	SampleCount        uint32
	ColorTargets       []ColorTargetState
	DepthStencil       *DepthStencilState
	DynamicState       DynamicState
}

// MeshPipelineDescriptor describes a mesh-shading pipeline.
type MeshPipelineDescriptor struct {
	Layout       PipelineLayout
	CullMode     gputypes.CullMode
	SampleCount  uint32
	ColorTargets []ColorTargetState
	DepthStencil *DepthStencilState
	DynamicState DynamicState
}

// ComputePipelineDescriptor describes a compute pipeline.
type ComputePipelineDescriptor struct {
	Layout         PipelineLayout
	LocalGroupSize [3]uint32
}

// RenderPassAttachment describes one color or depth/stencil attachment
// slot of a render pass.
type RenderPassAttachment struct {
	Format      gputypes.TextureFormat
	SampleCount uint32
	LoadOp      gputypes.LoadOp
	StoreOp     gputypes.StoreOp
}

// RenderPassDescriptor describes a logical render pass, potentially with
// multiple subpasses after render-pass merging.
type RenderPassDescriptor struct {
	ColorAttachments       []RenderPassAttachment
	DepthStencilAttachment *RenderPassAttachment
	Subpasses              uint32
}

// FramebufferDescriptor describes a framebuffer bound to a specific
// render pass and set of image views.
type FramebufferDescriptor struct {
	RenderPass RenderPass
	Views      []Image
	Width      uint32
	Height     uint32
	Layers     uint32
}

// CommandEncoder records driver commands for one command buffer. It
// follows a Recording -> Locked (during a pass) -> Recording ->
// Finished -> Consumed state machine; BeginEncoding opens it and
// EndEncoding/DiscardEncoding close it.
type CommandEncoder interface {
	BeginEncoding(label string) error
	EndEncoding() (CommandBuffer, error)
	DiscardEncoding()

	ClearColorImage(img Image, color [4]float32)
	ClearDepthStencilImage(img Image, depth float32, stencil uint32)
	FillBuffer(buf Buffer, offset, size uint64, value uint32)
	UpdateBuffer(buf Buffer, offset uint64, data []byte)
	CopyBufferToBuffer(src, dst Buffer, srcOffset, dstOffset, size uint64)
	CopyBufferToImage(src Buffer, dst Image)
	CopyImageToBuffer(src Image, dst Buffer)
	CopyImageToImage(src, dst Image)
	BlitImage(src, dst Image, filter gputypes.FilterMode)
	ResolveImage(src, dst Image)

	BeginComputePass() ComputePassEncoder
	BeginRenderPass(pass RenderPass, fb Framebuffer, subpass uint32) RenderPassEncoder
}

// ComputePassEncoder records compute dispatches.
type ComputePassEncoder interface {
	End()
	BindPipeline(p ComputePipeline)
	BindDescriptorSet(index uint32, set DescriptorSet, dynamicOffsets []uint32)
	PushConstants(offset uint32, data []byte)
	Dispatch(x, y, z uint32)
	DispatchIndirect(buf Buffer, offset uint64)
	DispatchBase(baseX, baseY, baseZ, x, y, z uint32)
}

// RenderPassEncoder records draw commands within an active render pass.
type RenderPassEncoder interface {
	End()
	NextSubpass()

	BindGraphicsPipeline(p GraphicsPipeline)
	BindMeshPipeline(p MeshPipeline)
	BindDescriptorSet(index uint32, set DescriptorSet, dynamicOffsets []uint32)
	PushConstants(offset uint32, data []byte)

	SetScissor(x, y, w, h int32)
	SetDepthBias(constant, clamp, slope float32)
	SetLineWidth(width float32)
	SetDepthBounds(min, max float32)
	SetStencilCompareMask(mask uint32)
	SetStencilWriteMask(mask uint32)
	SetStencilReference(ref uint32)
	SetBlendConstants(c [4]float32)

	BindIndexBuffer(buf Buffer, offset uint64, format gputypes.IndexFormat)
	BindVertexBuffer(slot uint32, buf Buffer, offset uint64)

	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32)
	DrawIndirect(buf Buffer, offset uint64, drawCount, stride uint32)
	DrawIndirectCount(buf Buffer, offset uint64, countBuf Buffer, countOffset uint64, maxDrawCount, stride uint32)
	DrawMeshTasks(groupX, groupY, groupZ uint32)

	// ResetStates drops the bound pipeline, descriptor sets, push
	// constants and dynamic state. Required at subpass boundaries.
	ResetStates()
}
