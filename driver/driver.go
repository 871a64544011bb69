// Package driver defines the thin, out-of-scope collaborator the render
// graph records commands against: small Resource-embedding interfaces,
// CreateX/DestroyX pairs on a Device, and plain value *Descriptor
// structs, extended with explicit render-pass/framebuffer/descriptor-set
// objects and fence/semaphore primitives a Vulkan-style render graph
// needs that a dynamic-rendering model does not expose.
//
// Nothing in this package encodes actual GPU commands; a real backend
// (Vulkan, DX12, Metal, GLES) implements these interfaces.
package driver

import "github.com/gogpu/gputypes"

// Resource is the base interface for all driver-owned objects.
type Resource interface {
	// Destroy releases the underlying driver object. Calling Destroy
	// more than once is undefined behavior.
	Destroy()
}

// Buffer, Image, Sampler, RenderPass, Framebuffer, DescriptorSetLayout,
// PipelineLayout, DescriptorSet, GraphicsPipeline, MeshPipeline,
// ComputePipeline, and CommandBuffer are opaque driver-native objects.
// The resource manager never inspects their contents; it only stores
// them in its pools and hands them back to contexts to record against.
type (
	Buffer              interface{ Resource }
	Image               interface{ Resource }
	Sampler             interface{ Resource }
	RenderPass          interface{ Resource }
	Framebuffer         interface{ Resource }
	DescriptorSetLayout interface{ Resource }
	PipelineLayout      interface{ Resource }
	DescriptorSet       interface{ Resource }
	GraphicsPipeline    interface{ Resource }
	MeshPipeline        interface{ Resource }
	ComputePipeline     interface{ Resource }
	CommandBuffer       interface{ Resource }
)

// Fence is a GPU→CPU synchronization primitive: the driver signals it
// once all work submitted before it has retired.
type Fence interface {
	Resource
	// Signaled polls without blocking.
	Signaled() bool
	// Wait blocks up to timeoutNanos (0 = forever) for the signal.
	Wait(timeoutNanos int64) bool
	// Reset returns the fence to the unsignaled state for reuse.
	Reset()
}

// Semaphore is a GPU→GPU synchronization primitive used for cross-queue
// and present dependencies.
type Semaphore interface {
	Resource
}

// MappableBuffer is implemented by buffer objects created with a
// host-visible usage (MapWrite/MapRead); Transfer.MapHostBuffer type-
// asserts for it the same way hal.Buffer's optional mapping surface is
// only present on host-visible allocations.
type MappableBuffer interface {
	Buffer
	MappedRange() []byte
}

// NativeHandle is implemented by driver objects that expose their
// backend-native handle for escape-hatch interop (ResourceManager's
// native_handle query, Context's native_context).
type NativeHandle interface {
	NativeHandle() uintptr
}

// MemoryInfo describes the allocation backing a resource, for
// ResourceManager.MemoryInfo.
type MemoryInfo struct {
	Offset     uint64
	Size       uint64
	HeapIndex  uint32
	DeviceLocal bool
}

// Device is the driver surface the resource manager creates concrete
// objects against. Every Create call is paired with a Destroy call with
// the same resource-kind suffix, exactly as in hal.Device.
type Device interface {
	CreateBuffer(desc *BufferDescriptor) (Buffer, error)
	DestroyBuffer(Buffer)

	CreateImage(desc *ImageDescriptor) (Image, error)
	DestroyImage(Image)

	CreateSampler(desc *SamplerDescriptor) (Sampler, error)
	DestroySampler(Sampler)

	CreateDescriptorSetLayout(desc *DescriptorSetLayoutDescriptor) (DescriptorSetLayout, error)
	DestroyDescriptorSetLayout(DescriptorSetLayout)

	CreatePipelineLayout(desc *PipelineLayoutDescriptor) (PipelineLayout, error)
	DestroyPipelineLayout(PipelineLayout)

	CreateDescriptorSet(desc *DescriptorSetDescriptor) (DescriptorSet, error)
	DestroyDescriptorSet(DescriptorSet)

	CreateGraphicsPipeline(desc *GraphicsPipelineDescriptor) (GraphicsPipeline, error)
	DestroyGraphicsPipeline(GraphicsPipeline)

	CreateMeshPipeline(desc *MeshPipelineDescriptor) (MeshPipeline, error)
	DestroyMeshPipeline(MeshPipeline)

	CreateComputePipeline(desc *ComputePipelineDescriptor) (ComputePipeline, error)
	DestroyComputePipeline(ComputePipeline)

	CreateRenderPass(desc *RenderPassDescriptor) (RenderPass, error)
	DestroyRenderPass(RenderPass)

	CreateFramebuffer(desc *FramebufferDescriptor) (Framebuffer, error)
	DestroyFramebuffer(Framebuffer)

	CreateCommandBuffer() (CommandBuffer, error)
	DestroyCommandBuffer(CommandBuffer)

	// CreateCommandEncoder opens a fresh recording scope for one
	// batch's worth of commands; EndEncoding/DiscardEncoding close it.
	CreateCommandEncoder() (CommandEncoder, error)

	// CreateFence creates an unsignaled fence for the batch pool to hand
	// out to command-batch submissions.
	CreateFence() (Fence, error)
	DestroyFence(Fence)

	// CreateSemaphore creates a cross-queue/present semaphore for the
	// batch pool to hand out to command-batch submissions.
	CreateSemaphore() (Semaphore, error)
	DestroySemaphore(Semaphore)

	// IsSupported reports whether desc could be created successfully
	// without actually creating it, backing
	// ResourceManager.is_supported.
	IsSupported(desc any) bool

	// MemoryInfo returns the allocation info for a resource previously
	// created by this device.
	MemoryInfo(res Resource) MemoryInfo

	// Queue returns the submission queue backing kind. A single-queue
	// backend returns its one queue for every kind; Queue reports false
	// for a kind the backend has no distinct or fallback queue for.
	Queue(kind QueueKind) (Queue, bool)
}

// Queue submits recorded command buffers and presents images.
type Queue interface {
	Submit(buffers []CommandBuffer, wait, signal []Semaphore, fence Fence) error
	Present(image Image, mip, layer uint32, wait []Semaphore) error
}

// QueueKind names one of the three execution queues the render graph
// submits work on.
type QueueKind uint8

const (
	GraphicsQueue QueueKind = iota
	AsyncComputeQueue
	TransferQueue
)

func (k QueueKind) String() string {
	switch k {
	case GraphicsQueue:
		return "Graphics"
	case AsyncComputeQueue:
		return "AsyncCompute"
	case TransferQueue:
		return "Transfer"
	default:
		return "QueueKind(?)"
	}
}

// Backends enumerate which native APIs a Device may target, reusing the
// shared gputypes.Backend enum so that a concrete backend package can
// register itself against a common identifier.
type Backends = gputypes.Backends
