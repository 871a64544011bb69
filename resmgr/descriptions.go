// Package resmgr implements the resource manager: the surface the render
// graph consumes to create/release driver objects, cache immutable
// descriptors, sub-allocate staging buffers, and look up named pipelines.
package resmgr

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/rendergraph/driver"
	"github.com/gogpu/rendergraph/handle"
)

// BufferDesc describes a concrete buffer creation request.
type BufferDesc struct {
	Label string
	Size  uint64
	Usage gputypes.BufferUsage
}

// ImageDesc describes a concrete image creation request.
type ImageDesc struct {
	Label         string
	Extent        gputypes.Extent3D
	Format        gputypes.TextureFormat
	Usage         gputypes.TextureUsage
	SampleCount   uint32
	MipLevelCount uint32
	ArrayLayers   uint32
	Dimension     gputypes.TextureDimension
}

// SamplerDesc describes a sampler creation request.
type SamplerDesc struct {
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

// VirtualDesc declares a logical resource the graph will bind to a
// concrete one at submit time: a declaration of (kind, format,
// size-class, initial-state).
type VirtualDesc struct {
	Kind         handle.Kind // handle.VirtualBuffer or handle.VirtualImage
	Format       gputypes.TextureFormat
	SizeClass    uint64 // buffers: byte size class; images: ignored
	Extent       gputypes.Extent3D
	InitialUsage handle.Usage
}

// ColorTargetDesc is the user-facing (pre-normalization) color-attachment
// blend/write state for a graphics pipeline request.
type ColorTargetDesc struct {
	Format          gputypes.TextureFormat
	Blend           bool
	ColorSrc        gputypes.BlendFactor
	ColorDst        gputypes.BlendFactor
	ColorOp         gputypes.BlendOperation
	AlphaSrc        gputypes.BlendFactor
	AlphaDst        gputypes.BlendFactor
	AlphaOp         gputypes.BlendOperation
	WriteMask       gputypes.ColorWriteMask
	DualSourceBlend bool
}

// DepthStencilDesc is the user-facing depth/stencil state.
type DepthStencilDesc struct {
	Format           gputypes.TextureFormat
	DepthTest        bool
	DepthWrite       bool
	DepthCompare     gputypes.CompareFunction
	DepthBoundsTest  bool
	MinDepthBounds   float32
	MaxDepthBounds   float32
	StencilTest      bool
	StencilReadMask  uint32
	StencilWriteMask uint32
	StencilReference uint32
}

// GraphicsPipelineDesc is the user-facing description passed to
// ResourceManager.GraphicsPipeline, validated against the named template
// and then normalized before hashing.
type GraphicsPipelineDesc struct {
	Topology           gputypes.PrimitiveTopology
	PatchControlPoints uint32
	CullMode           gputypes.CullMode
	FrontFace          gputypes.FrontFace
	RasterizerDiscard  bool
	SampleCount        uint32
	ColorTargets       []ColorTargetDesc
	DepthStencil       *DepthStencilDesc
	DynamicState       driver.DynamicState
}

// MeshPipelineDesc is the user-facing description for a mesh pipeline.
type MeshPipelineDesc struct {
	CullMode     gputypes.CullMode
	SampleCount  uint32
	ColorTargets []ColorTargetDesc
	DepthStencil *DepthStencilDesc
	DynamicState driver.DynamicState
}

// ComputePipelineDesc is the user-facing description for a compute
// pipeline request; local_group_size comes from the template's
// reflection data unless overridden here.
type ComputePipelineDesc struct {
	LocalGroupSizeOverride *[3]uint32
}

// RenderPassAttachmentDesc is one attachment slot for a logical render
// pass built by the graph from a node's resolved outputs.
type RenderPassAttachmentDesc struct {
	Format      gputypes.TextureFormat
	View        handle.Handle
	Dimensions  [2]uint32
	SampleCount uint32
	LoadOp      gputypes.LoadOp
	StoreOp     gputypes.StoreOp
}

// RenderPassDesc describes a logical render pass (possibly multiple
// merged subpasses) before it is hashed into the cached render-pass
// pool.
type RenderPassDesc struct {
	ColorAttachments       []RenderPassAttachmentDesc
	DepthStencilAttachment *RenderPassAttachmentDesc
	ViewportCount          uint32
	LayerCount             uint32
	Subpasses              uint32
}

// FramebufferDesc describes a framebuffer bound to a resolved render
// pass and concrete image handles.
type FramebufferDesc struct {
	RenderPass handle.Handle
	Views      []handle.Handle
	Width      uint32
	Height     uint32
	Layers     uint32
}

// DescriptorSetBindingDesc binds one resource to one binding slot.
type DescriptorSetBindingDesc struct {
	Binding uint32
	Buffer  handle.Handle
	Offset  uint64
	Size    uint64
	Sampler handle.Handle
	Image   handle.Handle
}

// DescriptorSetDesc describes a descriptor set keyed by layout + bound
// resources, for the cached descriptor-set pool.
type DescriptorSetDesc struct {
	Layout  handle.Handle
	Entries []DescriptorSetBindingDesc
}
