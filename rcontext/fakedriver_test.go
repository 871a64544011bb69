package rcontext

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/rendergraph/driver"
)

type fakeResource struct{ destroyed bool }

func (f *fakeResource) Destroy() { f.destroyed = true }

// fakeBuffer is always mappable so Read/Map-path tests don't need a
// second buffer type: MappedRange just returns a fixed-size backing
// array regardless of the usage the buffer was created with.
type fakeBuffer struct {
	fakeResource
	data []byte
}

func (b *fakeBuffer) MappedRange() []byte {
	if b.data == nil {
		b.data = make([]byte, 4096)
	}
	return b.data
}

type fakeImage struct{ fakeResource }
type fakeRenderPass struct{ fakeResource }
type fakeFramebuffer struct{ fakeResource }
type fakeCommandBuffer struct{ fakeResource }
type fakeDescriptorSet struct{ fakeResource }
type fakeComputePipeline struct{ fakeResource }
type fakeGraphicsPipeline struct{ fakeResource }
type fakeMeshPipeline struct{ fakeResource }
type fakeFence struct {
	fakeResource
	signaled bool
}

func (f *fakeFence) Signaled() bool  { return f.signaled }
func (f *fakeFence) Wait(int64) bool { f.signaled = true; return true }
func (f *fakeFence) Reset()          { f.signaled = false }

type fakeSemaphore struct{ fakeResource }

// fakeRenderPassEncoder records draw and bind calls so Render-level
// tests can assert a draw actually reached the open subpass.
type fakeRenderPassEncoder struct {
	draws    int
	binds    int
	resets   int
	ended    bool
}

func (e *fakeRenderPassEncoder) End()         { e.ended = true }
func (e *fakeRenderPassEncoder) NextSubpass() {}
func (e *fakeRenderPassEncoder) BindGraphicsPipeline(driver.GraphicsPipeline) { e.binds++ }
func (e *fakeRenderPassEncoder) BindMeshPipeline(driver.MeshPipeline)         { e.binds++ }
func (e *fakeRenderPassEncoder) BindDescriptorSet(uint32, driver.DescriptorSet, []uint32) {
	e.binds++
}
func (e *fakeRenderPassEncoder) PushConstants(uint32, []byte)                                {}
func (e *fakeRenderPassEncoder) SetScissor(int32, int32, int32, int32)                        {}
func (e *fakeRenderPassEncoder) SetDepthBias(float32, float32, float32)                        {}
func (e *fakeRenderPassEncoder) SetLineWidth(float32)                                          {}
func (e *fakeRenderPassEncoder) SetDepthBounds(float32, float32)                                {}
func (e *fakeRenderPassEncoder) SetStencilCompareMask(uint32)                                   {}
func (e *fakeRenderPassEncoder) SetStencilWriteMask(uint32)                                     {}
func (e *fakeRenderPassEncoder) SetStencilReference(uint32)                                     {}
func (e *fakeRenderPassEncoder) SetBlendConstants([4]float32)                                   {}
func (e *fakeRenderPassEncoder) BindIndexBuffer(driver.Buffer, uint64, gputypes.IndexFormat)     {}
func (e *fakeRenderPassEncoder) BindVertexBuffer(uint32, driver.Buffer, uint64)                  {}
func (e *fakeRenderPassEncoder) Draw(uint32, uint32, uint32, uint32)                             { e.draws++ }
func (e *fakeRenderPassEncoder) DrawIndexed(uint32, uint32, uint32, int32, uint32)               { e.draws++ }
func (e *fakeRenderPassEncoder) DrawIndirect(driver.Buffer, uint64, uint32, uint32)              { e.draws++ }
func (e *fakeRenderPassEncoder) DrawIndirectCount(driver.Buffer, uint64, driver.Buffer, uint64, uint32, uint32) {
	e.draws++
}
func (e *fakeRenderPassEncoder) DrawMeshTasks(uint32, uint32, uint32) { e.draws++ }
func (e *fakeRenderPassEncoder) ResetStates()                         { e.resets++ }

// fakeComputePassEncoder records how many passes were opened and how
// many dispatches each received.
type fakeComputePassEncoder struct {
	dispatches int
	ended      bool
}

func (e *fakeComputePassEncoder) End() { e.ended = true }
func (e *fakeComputePassEncoder) BindPipeline(driver.ComputePipeline) {}
func (e *fakeComputePassEncoder) BindDescriptorSet(uint32, driver.DescriptorSet, []uint32) {}
func (e *fakeComputePassEncoder) PushConstants(uint32, []byte)             {}
func (e *fakeComputePassEncoder) Dispatch(uint32, uint32, uint32)          { e.dispatches++ }
func (e *fakeComputePassEncoder) DispatchIndirect(driver.Buffer, uint64)   { e.dispatches++ }
func (e *fakeComputePassEncoder) DispatchBase(uint32, uint32, uint32, uint32, uint32, uint32) {
	e.dispatches++
}

// fakeEncoder is a recording command encoder: every compute pass it
// opens is retained so tests can assert exactly one pass opened across
// several consecutive Dispatch-family calls.
type fakeEncoder struct {
	computePasses []*fakeComputePassEncoder
	copies        int
	fills         int
	updates       int
	clears        int
}

func (e *fakeEncoder) BeginEncoding(string) error { return nil }
func (e *fakeEncoder) EndEncoding() (driver.CommandBuffer, error) {
	return &fakeCommandBuffer{}, nil
}
func (e *fakeEncoder) DiscardEncoding() {}

func (e *fakeEncoder) ClearColorImage(driver.Image, [4]float32)            { e.clears++ }
func (e *fakeEncoder) ClearDepthStencilImage(driver.Image, float32, uint32) { e.clears++ }
func (e *fakeEncoder) FillBuffer(driver.Buffer, uint64, uint64, uint32)     { e.fills++ }
func (e *fakeEncoder) UpdateBuffer(driver.Buffer, uint64, []byte)           { e.updates++ }
func (e *fakeEncoder) CopyBufferToBuffer(driver.Buffer, driver.Buffer, uint64, uint64, uint64) {
	e.copies++
}
func (e *fakeEncoder) CopyBufferToImage(driver.Buffer, driver.Image) { e.copies++ }
func (e *fakeEncoder) CopyImageToBuffer(driver.Image, driver.Buffer) { e.copies++ }
func (e *fakeEncoder) CopyImageToImage(driver.Image, driver.Image)   { e.copies++ }
func (e *fakeEncoder) BlitImage(driver.Image, driver.Image, gputypes.FilterMode) {}
func (e *fakeEncoder) ResolveImage(driver.Image, driver.Image)                  {}

func (e *fakeEncoder) BeginComputePass() driver.ComputePassEncoder {
	p := &fakeComputePassEncoder{}
	e.computePasses = append(e.computePasses, p)
	return p
}

func (e *fakeEncoder) BeginRenderPass(driver.RenderPass, driver.Framebuffer, uint32) driver.RenderPassEncoder {
	return &fakeRenderPassEncoder{}
}

type fakeQueue struct{}

func (q *fakeQueue) Submit([]driver.CommandBuffer, []driver.Semaphore, []driver.Semaphore, driver.Fence) error {
	return nil
}
func (q *fakeQueue) Present(driver.Image, uint32, uint32, []driver.Semaphore) error { return nil }

type fakeDevice struct{}

func newFakeDevice() *fakeDevice { return &fakeDevice{} }

func (d *fakeDevice) CreateBuffer(*driver.BufferDescriptor) (driver.Buffer, error) {
	return &fakeBuffer{}, nil
}
func (d *fakeDevice) DestroyBuffer(b driver.Buffer) { b.Destroy() }

func (d *fakeDevice) CreateImage(*driver.ImageDescriptor) (driver.Image, error) {
	return &fakeImage{}, nil
}
func (d *fakeDevice) DestroyImage(i driver.Image) { i.Destroy() }

func (d *fakeDevice) CreateSampler(*driver.SamplerDescriptor) (driver.Sampler, error) { return nil, nil }
func (d *fakeDevice) DestroySampler(driver.Sampler)                                   {}

func (d *fakeDevice) CreateDescriptorSetLayout(*driver.DescriptorSetLayoutDescriptor) (driver.DescriptorSetLayout, error) {
	return nil, nil
}
func (d *fakeDevice) DestroyDescriptorSetLayout(driver.DescriptorSetLayout) {}

func (d *fakeDevice) CreatePipelineLayout(*driver.PipelineLayoutDescriptor) (driver.PipelineLayout, error) {
	return nil, nil
}
func (d *fakeDevice) DestroyPipelineLayout(driver.PipelineLayout) {}

func (d *fakeDevice) CreateDescriptorSet(*driver.DescriptorSetDescriptor) (driver.DescriptorSet, error) {
	return &fakeDescriptorSet{}, nil
}
func (d *fakeDevice) DestroyDescriptorSet(s driver.DescriptorSet) { s.Destroy() }

func (d *fakeDevice) CreateGraphicsPipeline(*driver.GraphicsPipelineDescriptor) (driver.GraphicsPipeline, error) {
	return &fakeGraphicsPipeline{}, nil
}
func (d *fakeDevice) DestroyGraphicsPipeline(p driver.GraphicsPipeline) { p.Destroy() }

func (d *fakeDevice) CreateMeshPipeline(*driver.MeshPipelineDescriptor) (driver.MeshPipeline, error) {
	return &fakeMeshPipeline{}, nil
}
func (d *fakeDevice) DestroyMeshPipeline(p driver.MeshPipeline) { p.Destroy() }

func (d *fakeDevice) CreateComputePipeline(*driver.ComputePipelineDescriptor) (driver.ComputePipeline, error) {
	return &fakeComputePipeline{}, nil
}
func (d *fakeDevice) DestroyComputePipeline(p driver.ComputePipeline) { p.Destroy() }

func (d *fakeDevice) CreateRenderPass(*driver.RenderPassDescriptor) (driver.RenderPass, error) {
	return &fakeRenderPass{}, nil
}
func (d *fakeDevice) DestroyRenderPass(p driver.RenderPass) { p.Destroy() }

func (d *fakeDevice) CreateFramebuffer(*driver.FramebufferDescriptor) (driver.Framebuffer, error) {
	return &fakeFramebuffer{}, nil
}
func (d *fakeDevice) DestroyFramebuffer(f driver.Framebuffer) { f.Destroy() }

func (d *fakeDevice) CreateCommandBuffer() (driver.CommandBuffer, error) {
	return &fakeCommandBuffer{}, nil
}
func (d *fakeDevice) DestroyCommandBuffer(c driver.CommandBuffer) { c.Destroy() }

func (d *fakeDevice) CreateCommandEncoder() (driver.CommandEncoder, error) {
	return &fakeEncoder{}, nil
}

func (d *fakeDevice) CreateFence() (driver.Fence, error) { return &fakeFence{}, nil }
func (d *fakeDevice) DestroyFence(f driver.Fence)        { f.Destroy() }

func (d *fakeDevice) CreateSemaphore() (driver.Semaphore, error) { return &fakeSemaphore{}, nil }
func (d *fakeDevice) DestroySemaphore(s driver.Semaphore)        { s.Destroy() }

func (d *fakeDevice) IsSupported(any) bool { return true }

func (d *fakeDevice) MemoryInfo(driver.Resource) driver.MemoryInfo {
	return driver.MemoryInfo{Size: 256, DeviceLocal: true}
}

func (d *fakeDevice) Queue(driver.QueueKind) (driver.Queue, bool) { return &fakeQueue{}, true }
