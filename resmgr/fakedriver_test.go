package resmgr

import (
	"github.com/gogpu/rendergraph/driver"
)

// fakeResource is the shared no-op Resource body for every fake driver
// object created by fakeDevice, mirroring hal/noop's placeholder objects.
type fakeResource struct{ destroyed bool }

func (f *fakeResource) Destroy() { f.destroyed = true }

type fakeBuffer struct{ fakeResource }
type fakeImage struct{ fakeResource }
type fakeSampler struct{ fakeResource }
type fakeSetLayout struct{ fakeResource }
type fakePipelineLayout struct{ fakeResource }
type fakeGraphicsPipeline struct{ fakeResource }
type fakeMeshPipeline struct{ fakeResource }
type fakeComputePipeline struct{ fakeResource }
type fakeRenderPass struct{ fakeResource }
type fakeFramebuffer struct{ fakeResource }
type fakeDescriptorSet struct{ fakeResource }
type fakeCommandBuffer struct{ fakeResource }

// fakeFence reports unsignaled until its first Wait, which signals it and
// returns at once, so tests never block waiting on real GPU work.
type fakeFence struct {
	fakeResource
	signaled bool
}

func (f *fakeFence) Signaled() bool { return f.signaled }
func (f *fakeFence) Wait(int64) bool {
	f.signaled = true
	return true
}
func (f *fakeFence) Reset() { f.signaled = false }

type fakeSemaphore struct{ fakeResource }

// fakeDevice implements driver.Device by handing out placeholder objects,
// in the spirit of an "always succeeds" noop backend used for
// HAL-agnostic tests.
type fakeDevice struct {
	createCounts map[string]int
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{createCounts: make(map[string]int)}
}

func (d *fakeDevice) CreateBuffer(*driver.BufferDescriptor) (driver.Buffer, error) {
	d.createCounts["buffer"]++
	return &fakeBuffer{}, nil
}
func (d *fakeDevice) DestroyBuffer(b driver.Buffer) { b.Destroy() }

func (d *fakeDevice) CreateImage(*driver.ImageDescriptor) (driver.Image, error) {
	d.createCounts["image"]++
	return &fakeImage{}, nil
}
func (d *fakeDevice) DestroyImage(i driver.Image) { i.Destroy() }

func (d *fakeDevice) CreateSampler(*driver.SamplerDescriptor) (driver.Sampler, error) {
	d.createCounts["sampler"]++
	return &fakeSampler{}, nil
}
func (d *fakeDevice) DestroySampler(s driver.Sampler) { s.Destroy() }

func (d *fakeDevice) CreateDescriptorSetLayout(*driver.DescriptorSetLayoutDescriptor) (driver.DescriptorSetLayout, error) {
	d.createCounts["setLayout"]++
	return &fakeSetLayout{}, nil
}
func (d *fakeDevice) DestroyDescriptorSetLayout(s driver.DescriptorSetLayout) { s.Destroy() }

func (d *fakeDevice) CreatePipelineLayout(*driver.PipelineLayoutDescriptor) (driver.PipelineLayout, error) {
	d.createCounts["pipelineLayout"]++
	return &fakePipelineLayout{}, nil
}
func (d *fakeDevice) DestroyPipelineLayout(p driver.PipelineLayout) { p.Destroy() }

func (d *fakeDevice) CreateDescriptorSet(*driver.DescriptorSetDescriptor) (driver.DescriptorSet, error) {
	d.createCounts["descriptorSet"]++
	return &fakeDescriptorSet{}, nil
}
func (d *fakeDevice) DestroyDescriptorSet(s driver.DescriptorSet) { s.Destroy() }

func (d *fakeDevice) CreateGraphicsPipeline(*driver.GraphicsPipelineDescriptor) (driver.GraphicsPipeline, error) {
	d.createCounts["graphicsPipeline"]++
	return &fakeGraphicsPipeline{}, nil
}
func (d *fakeDevice) DestroyGraphicsPipeline(p driver.GraphicsPipeline) { p.Destroy() }

func (d *fakeDevice) CreateMeshPipeline(*driver.MeshPipelineDescriptor) (driver.MeshPipeline, error) {
	d.createCounts["meshPipeline"]++
	return &fakeMeshPipeline{}, nil
}
func (d *fakeDevice) DestroyMeshPipeline(p driver.MeshPipeline) { p.Destroy() }

func (d *fakeDevice) CreateComputePipeline(*driver.ComputePipelineDescriptor) (driver.ComputePipeline, error) {
	d.createCounts["computePipeline"]++
	return &fakeComputePipeline{}, nil
}
func (d *fakeDevice) DestroyComputePipeline(p driver.ComputePipeline) { p.Destroy() }

func (d *fakeDevice) CreateRenderPass(*driver.RenderPassDescriptor) (driver.RenderPass, error) {
	d.createCounts["renderPass"]++
	return &fakeRenderPass{}, nil
}
func (d *fakeDevice) DestroyRenderPass(p driver.RenderPass) { p.Destroy() }

func (d *fakeDevice) CreateFramebuffer(*driver.FramebufferDescriptor) (driver.Framebuffer, error) {
	d.createCounts["framebuffer"]++
	return &fakeFramebuffer{}, nil
}
func (d *fakeDevice) DestroyFramebuffer(f driver.Framebuffer) { f.Destroy() }

func (d *fakeDevice) CreateCommandBuffer() (driver.CommandBuffer, error) {
	d.createCounts["commandBuffer"]++
	return &fakeCommandBuffer{}, nil
}
func (d *fakeDevice) DestroyCommandBuffer(c driver.CommandBuffer) { c.Destroy() }

func (d *fakeDevice) CreateCommandEncoder() (driver.CommandEncoder, error) {
	d.createCounts["commandEncoder"]++
	return nil, nil
}

func (d *fakeDevice) CreateFence() (driver.Fence, error) {
	d.createCounts["fence"]++
	return &fakeFence{}, nil
}
func (d *fakeDevice) DestroyFence(f driver.Fence) { f.Destroy() }

func (d *fakeDevice) CreateSemaphore() (driver.Semaphore, error) {
	d.createCounts["semaphore"]++
	return &fakeSemaphore{}, nil
}
func (d *fakeDevice) DestroySemaphore(s driver.Semaphore) { s.Destroy() }

func (d *fakeDevice) IsSupported(any) bool { return true }

func (d *fakeDevice) MemoryInfo(driver.Resource) driver.MemoryInfo {
	return driver.MemoryInfo{Size: 0, DeviceLocal: true}
}

func (d *fakeDevice) Queue(driver.QueueKind) (driver.Queue, bool) { return nil, false }

func newTestManager() (*ResourceManager, *fakeDevice) {
	dev := newFakeDevice()
	cfg := DefaultConfig()
	m, err := NewManager(dev, cfg)
	if err != nil {
		panic(err)
	}
	return m, dev
}
