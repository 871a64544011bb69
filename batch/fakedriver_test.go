package batch

import "github.com/gogpu/rendergraph/driver"

type fakeResource struct{ destroyed bool }

func (f *fakeResource) Destroy() { f.destroyed = true }

type fakeFence struct {
	fakeResource
	signaled bool
}

func (f *fakeFence) Signaled() bool  { return f.signaled }
func (f *fakeFence) Wait(int64) bool { f.signaled = true; return true }
func (f *fakeFence) Reset()          { f.signaled = false }

type fakeSemaphore struct{ fakeResource }
type fakeCommandBuffer struct{ fakeResource }

// fakeDevice hands out fences that start unsignaled, so tests control
// completion explicitly rather than batches completing the instant
// they're created.
type fakeDevice struct {
	fenceCreates     int
	semaphoreCreates int
}

func (d *fakeDevice) CreateBuffer(*driver.BufferDescriptor) (driver.Buffer, error) { return nil, nil }
func (d *fakeDevice) DestroyBuffer(driver.Buffer)                                  {}
func (d *fakeDevice) CreateImage(*driver.ImageDescriptor) (driver.Image, error)    { return nil, nil }
func (d *fakeDevice) DestroyImage(driver.Image)                                   {}
func (d *fakeDevice) CreateSampler(*driver.SamplerDescriptor) (driver.Sampler, error) {
	return nil, nil
}
func (d *fakeDevice) DestroySampler(driver.Sampler) {}
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
	return nil, nil
}
func (d *fakeDevice) DestroyRenderPass(driver.RenderPass) {}
func (d *fakeDevice) CreateFramebuffer(*driver.FramebufferDescriptor) (driver.Framebuffer, error) {
	return nil, nil
}
func (d *fakeDevice) DestroyFramebuffer(driver.Framebuffer) {}
func (d *fakeDevice) CreateCommandBuffer() (driver.CommandBuffer, error) {
	return &fakeCommandBuffer{}, nil
}
func (d *fakeDevice) DestroyCommandBuffer(c driver.CommandBuffer) { c.Destroy() }

func (d *fakeDevice) CreateCommandEncoder() (driver.CommandEncoder, error) { return nil, nil }

func (d *fakeDevice) CreateFence() (driver.Fence, error) {
	d.fenceCreates++
	return &fakeFence{}, nil
}
func (d *fakeDevice) DestroyFence(f driver.Fence) { f.Destroy() }

func (d *fakeDevice) CreateSemaphore() (driver.Semaphore, error) {
	d.semaphoreCreates++
	return &fakeSemaphore{}, nil
}
func (d *fakeDevice) DestroySemaphore(s driver.Semaphore) { s.Destroy() }

func (d *fakeDevice) IsSupported(any) bool { return true }
func (d *fakeDevice) MemoryInfo(driver.Resource) driver.MemoryInfo {
	return driver.MemoryInfo{DeviceLocal: true}
}
func (d *fakeDevice) Queue(driver.QueueKind) (driver.Queue, bool) { return nil, false }
