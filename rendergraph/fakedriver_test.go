package rendergraph

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/rendergraph/driver"
)

type fakeResource struct{ destroyed bool }

func (f *fakeResource) Destroy() { f.destroyed = true }

type fakeBuffer struct{ fakeResource }
type fakeImage struct{ fakeResource }
type fakeRenderPass struct{ fakeResource }
type fakeFramebuffer struct{ fakeResource }
type fakeCommandBuffer struct{ fakeResource }

type fakeFence struct {
	fakeResource
	signaled bool
}

func (f *fakeFence) Signaled() bool  { return f.signaled }
func (f *fakeFence) Wait(int64) bool { f.signaled = true; return true }
func (f *fakeFence) Reset()          { f.signaled = false }

type fakeSemaphore struct{ fakeResource }

// fakeRenderPassEncoder records which subpasses were opened and how many
// draw calls each saw, so tests can assert merge/subpass behavior
// without a real backend.
type fakeRenderPassEncoder struct {
	subpass   int
	subpasses []int // draw-call count per subpass index
	ended     bool
}

func (e *fakeRenderPassEncoder) End()         { e.ended = true }
func (e *fakeRenderPassEncoder) NextSubpass() { e.subpass++; e.subpasses = append(e.subpasses, 0) }
func (e *fakeRenderPassEncoder) BindGraphicsPipeline(driver.GraphicsPipeline)                {}
func (e *fakeRenderPassEncoder) BindMeshPipeline(driver.MeshPipeline)                         {}
func (e *fakeRenderPassEncoder) BindDescriptorSet(uint32, driver.DescriptorSet, []uint32)     {}
func (e *fakeRenderPassEncoder) PushConstants(uint32, []byte)                                 {}
func (e *fakeRenderPassEncoder) SetScissor(int32, int32, int32, int32)                        {}
func (e *fakeRenderPassEncoder) SetDepthBias(float32, float32, float32)                       {}
func (e *fakeRenderPassEncoder) SetLineWidth(float32)                                         {}
func (e *fakeRenderPassEncoder) SetDepthBounds(float32, float32)                              {}
func (e *fakeRenderPassEncoder) SetStencilCompareMask(uint32)                                 {}
func (e *fakeRenderPassEncoder) SetStencilWriteMask(uint32)                                   {}
func (e *fakeRenderPassEncoder) SetStencilReference(uint32)                                   {}
func (e *fakeRenderPassEncoder) SetBlendConstants([4]float32)                                 {}
func (e *fakeRenderPassEncoder) BindIndexBuffer(driver.Buffer, uint64, gputypes.IndexFormat)  {}
func (e *fakeRenderPassEncoder) BindVertexBuffer(uint32, driver.Buffer, uint64)               {}
func (e *fakeRenderPassEncoder) Draw(uint32, uint32, uint32, uint32) {
	e.markDraw()
}
func (e *fakeRenderPassEncoder) DrawIndexed(uint32, uint32, uint32, int32, uint32) {
	e.markDraw()
}
func (e *fakeRenderPassEncoder) DrawIndirect(driver.Buffer, uint64, uint32, uint32) { e.markDraw() }
func (e *fakeRenderPassEncoder) DrawIndirectCount(driver.Buffer, uint64, driver.Buffer, uint64, uint32, uint32) {
	e.markDraw()
}
func (e *fakeRenderPassEncoder) DrawMeshTasks(uint32, uint32, uint32) { e.markDraw() }
func (e *fakeRenderPassEncoder) ResetStates()                        {}

func (e *fakeRenderPassEncoder) markDraw() {
	for len(e.subpasses) <= e.subpass {
		e.subpasses = append(e.subpasses, 0)
	}
	e.subpasses[e.subpass]++
}

type fakeComputePassEncoder struct{ dispatches int }

func (e *fakeComputePassEncoder) End()                                               {}
func (e *fakeComputePassEncoder) BindPipeline(driver.ComputePipeline)                {}
func (e *fakeComputePassEncoder) BindDescriptorSet(uint32, driver.DescriptorSet, []uint32) {}
func (e *fakeComputePassEncoder) PushConstants(uint32, []byte)                       {}
func (e *fakeComputePassEncoder) Dispatch(uint32, uint32, uint32)                    { e.dispatches++ }
func (e *fakeComputePassEncoder) DispatchIndirect(driver.Buffer, uint64)             { e.dispatches++ }
func (e *fakeComputePassEncoder) DispatchBase(uint32, uint32, uint32, uint32, uint32, uint32) {
	e.dispatches++
}

// fakeEncoder is a recording command encoder whose render/compute pass
// calls hand back encoders this harness can inspect afterward.
type fakeEncoder struct {
	ended       bool
	renderPasses []*fakeRenderPassEncoder
	computePasses []*fakeComputePassEncoder
	copies      int
}

func (e *fakeEncoder) BeginEncoding(string) error    { return nil }
func (e *fakeEncoder) EndEncoding() (driver.CommandBuffer, error) {
	e.ended = true
	return &fakeCommandBuffer{}, nil
}
func (e *fakeEncoder) DiscardEncoding() {}

func (e *fakeEncoder) ClearColorImage(driver.Image, [4]float32)            {}
func (e *fakeEncoder) ClearDepthStencilImage(driver.Image, float32, uint32) {}
func (e *fakeEncoder) FillBuffer(driver.Buffer, uint64, uint64, uint32)    {}
func (e *fakeEncoder) UpdateBuffer(driver.Buffer, uint64, []byte)         {}
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
	p := &fakeRenderPassEncoder{subpasses: []int{0}}
	e.renderPasses = append(e.renderPasses, p)
	return p
}

// fakeQueue records every Submit/Present call it receives.
type fakeQueue struct {
	submits  int
	presents int
}

func (q *fakeQueue) Submit(buffers []driver.CommandBuffer, wait, signal []driver.Semaphore, fence driver.Fence) error {
	q.submits++
	if fence != nil {
		fence.(*fakeFence).signaled = true
	}
	return nil
}

func (q *fakeQueue) Present(driver.Image, uint32, uint32, []driver.Semaphore) error {
	q.presents++
	return nil
}

// fakeDevice is a minimal, always-succeeding driver.Device that records
// every encoder it hands out so tests can inspect what the graph did.
type fakeDevice struct {
	graphics *fakeQueue
	compute  *fakeQueue
	transfer *fakeQueue

	encoders []*fakeEncoder
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{graphics: &fakeQueue{}, compute: &fakeQueue{}, transfer: &fakeQueue{}}
}

func (d *fakeDevice) CreateBuffer(*driver.BufferDescriptor) (driver.Buffer, error) { return &fakeBuffer{}, nil }
func (d *fakeDevice) DestroyBuffer(b driver.Buffer)                                { b.Destroy() }

func (d *fakeDevice) CreateImage(*driver.ImageDescriptor) (driver.Image, error) { return &fakeImage{}, nil }
func (d *fakeDevice) DestroyImage(i driver.Image)                              { i.Destroy() }

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
	return nil, nil
}
func (d *fakeDevice) DestroyDescriptorSet(driver.DescriptorSet) {}

func (d *fakeDevice) CreateGraphicsPipeline(*driver.GraphicsPipelineDescriptor) (driver.GraphicsPipeline, error) {
	return nil, nil
}
func (d *fakeDevice) DestroyGraphicsPipeline(driver.GraphicsPipeline) {}

func (d *fakeDevice) CreateMeshPipeline(*driver.MeshPipelineDescriptor) (driver.MeshPipeline, error) {
	return nil, nil
}
func (d *fakeDevice) DestroyMeshPipeline(driver.MeshPipeline) {}

func (d *fakeDevice) CreateComputePipeline(*driver.ComputePipelineDescriptor) (driver.ComputePipeline, error) {
	return nil, nil
}
func (d *fakeDevice) DestroyComputePipeline(driver.ComputePipeline) {}

func (d *fakeDevice) CreateRenderPass(*driver.RenderPassDescriptor) (driver.RenderPass, error) {
	return &fakeRenderPass{}, nil
}
func (d *fakeDevice) DestroyRenderPass(p driver.RenderPass) { p.Destroy() }

func (d *fakeDevice) CreateFramebuffer(*driver.FramebufferDescriptor) (driver.Framebuffer, error) {
	return &fakeFramebuffer{}, nil
}
func (d *fakeDevice) DestroyFramebuffer(f driver.Framebuffer) { f.Destroy() }

func (d *fakeDevice) CreateCommandBuffer() (driver.CommandBuffer, error) { return &fakeCommandBuffer{}, nil }
func (d *fakeDevice) DestroyCommandBuffer(c driver.CommandBuffer)        { c.Destroy() }

func (d *fakeDevice) CreateCommandEncoder() (driver.CommandEncoder, error) {
	e := &fakeEncoder{}
	d.encoders = append(d.encoders, e)
	return e, nil
}

func (d *fakeDevice) CreateFence() (driver.Fence, error) { return &fakeFence{}, nil }
func (d *fakeDevice) DestroyFence(f driver.Fence)        { f.Destroy() }

func (d *fakeDevice) CreateSemaphore() (driver.Semaphore, error) { return &fakeSemaphore{}, nil }
func (d *fakeDevice) DestroySemaphore(s driver.Semaphore)        { s.Destroy() }

func (d *fakeDevice) IsSupported(any) bool { return true }

func (d *fakeDevice) MemoryInfo(driver.Resource) driver.MemoryInfo {
	return driver.MemoryInfo{DeviceLocal: true}
}

func (d *fakeDevice) Queue(kind driver.QueueKind) (driver.Queue, bool) {
	switch kind {
	case driver.GraphicsQueue:
		return d.graphics, true
	case driver.AsyncComputeQueue:
		return d.compute, true
	case driver.TransferQueue:
		return d.transfer, true
	default:
		return nil, false
	}
}
