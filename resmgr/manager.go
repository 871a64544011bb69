package resmgr

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/rendergraph/driver"
	"github.com/gogpu/rendergraph/handle"
	"github.com/gogpu/rendergraph/rgerrors"
	"github.com/gogpu/rendergraph/rglog"
	"github.com/gogpu/rendergraph/respool"
)

// residentState tracks the last-known driver layout/access state for a
// persistent resource, used to decide barriers between frames. Attached
// directly to the slot rather than kept in a separate side table.
type residentState struct {
	Layout uint32
	Access uint32
}

type bufferSlot struct {
	obj      driver.Buffer
	desc     BufferDesc
	state    residentState
	imported bool
}

type imageSlot struct {
	obj   driver.Image
	desc  ImageDesc
	state residentState
}

type virtualSlot struct {
	desc  VirtualDesc
	usage handle.Usage
	bound handle.Handle
}

type samplerSlot struct {
	obj  driver.Sampler
	desc SamplerDesc
}

type setLayoutSlot struct {
	obj      driver.DescriptorSetLayout
	bindings []driver.DescriptorSetLayoutBinding
	hash     uint64
}

type pipelineLayoutSlot struct {
	obj      driver.PipelineLayout
	sets     []handle.Handle
	pushSize uint32
	hash     uint64
}

type graphicsPipelineSlot struct {
	obj  driver.GraphicsPipeline
	hash uint64
}

type meshPipelineSlot struct {
	obj  driver.MeshPipeline
	hash uint64
}

type computePipelineSlot struct {
	obj  driver.ComputePipeline
	hash uint64
}

type renderPassSlot struct {
	obj  driver.RenderPass
	desc RenderPassDesc
	hash uint64
}

type framebufferSlot struct {
	obj  driver.Framebuffer
	desc FramebufferDesc
	hash uint64
}

type descriptorSetSlot struct {
	obj  driver.DescriptorSet
	desc DescriptorSetDesc
	hash uint64
}

// ResourceManager owns every resource pool the render graph consumes: it
// creates and destroys driver objects, deduplicates immutable descriptors
// through cached pools, sub-allocates staging memory, and resolves named
// pipeline lookups against a preloaded pipeline pack.
type ResourceManager struct {
	device driver.Device
	cfg    Config

	buffers        *respool.Pool[bufferSlot]
	images         *respool.Pool[imageSlot]
	virtualBuffers *respool.Pool[virtualSlot]
	virtualImages  *respool.Pool[virtualSlot]
	samplers       *respool.Pool[samplerSlot]

	setLayouts        *respool.CachedPool[setLayoutSlot]
	pipelineLayouts   *respool.CachedPool[pipelineLayoutSlot]
	graphicsPipelines *respool.CachedPool[graphicsPipelineSlot]
	meshPipelines     *respool.CachedPool[meshPipelineSlot]
	computePipelines  *respool.CachedPool[computePipelineSlot]
	renderPasses      *respool.CachedPool[renderPassSlot]
	framebuffers      *respool.CachedPool[framebufferSlot]
	descriptorSets    *respool.CachedPool[descriptorSetSlot]
	commandBuffers    *respool.Pool[driver.CommandBuffer]

	mu                sync.RWMutex
	graphicsTemplates map[string]graphicsTemplate
	meshTemplates     map[string]graphicsTemplate
	computeTemplates  map[string]computeTemplate
	renderPassInfos   map[string]RenderPassDesc
	samplerDescs      map[string]SamplerDesc
	samplerNames      map[string]handle.Handle

	emptySetLayout handle.Handle
	defaultSampler handle.Handle

	writeStaging   *stagingPool
	readStaging    *stagingPool
	uniformStaging *stagingPool
}

// NewManager builds a ResourceManager backed by device, sizing every pool
// per cfg and creating the init-time singletons every manager needs:
// the empty descriptor-set layout and the default sampler.
func NewManager(device driver.Device, cfg Config) (*ResourceManager, error) {
	cfg.applyDefaults()

	m := &ResourceManager{
		device:            device,
		cfg:               cfg,
		buffers:           respool.New[bufferSlot](handle.Buffer, cfg.BufferCapacity),
		images:            respool.New[imageSlot](handle.Image, cfg.ImageCapacity),
		virtualBuffers:    respool.New[virtualSlot](handle.VirtualBuffer, cfg.VirtualBufferCapacity),
		virtualImages:     respool.New[virtualSlot](handle.VirtualImage, cfg.VirtualImageCapacity),
		samplers:          respool.New[samplerSlot](handle.Dependency, cfg.SamplerCapacity),
		setLayouts:        respool.NewCached[setLayoutSlot](handle.Dependency, cfg.DescriptorSetLayoutCapacity),
		pipelineLayouts:   respool.NewCached[pipelineLayoutSlot](handle.Dependency, cfg.PipelineLayoutCapacity),
		graphicsPipelines: respool.NewCached[graphicsPipelineSlot](handle.Dependency, cfg.GraphicsPipelineCapacity),
		meshPipelines:     respool.NewCached[meshPipelineSlot](handle.Dependency, cfg.MeshPipelineCapacity),
		computePipelines:  respool.NewCached[computePipelineSlot](handle.Dependency, cfg.ComputePipelineCapacity),
		renderPasses:      respool.NewCached[renderPassSlot](handle.Dependency, cfg.RenderPassCapacity),
		framebuffers:      respool.NewCached[framebufferSlot](handle.Dependency, cfg.FramebufferCapacity),
		descriptorSets:    respool.NewCached[descriptorSetSlot](handle.Dependency, cfg.DescriptorSetCapacity),
		commandBuffers:    respool.New[driver.CommandBuffer](handle.Dependency, cfg.CommandBufferCapacity),
		graphicsTemplates: make(map[string]graphicsTemplate),
		meshTemplates:     make(map[string]graphicsTemplate),
		computeTemplates:  make(map[string]computeTemplate),
		renderPassInfos:   make(map[string]RenderPassDesc),
		samplerDescs:      make(map[string]SamplerDesc),
		samplerNames:      make(map[string]handle.Handle),
	}

	m.writeStaging = newStagingPool(writeStagingTag, pickPageSize(cfg.StagingWritePageMiB, transferPageLadder), cfg.StagingWritePages)
	m.readStaging = newStagingPool(readStagingTag, pickPageSize(cfg.StagingReadPageMiB, transferPageLadder), cfg.StagingReadPages)
	m.uniformStaging = newStagingPool(uniformStagingTag, pickPageSize(cfg.StagingUniformPageMiB, uniformPageLadder), cfg.StagingUniformPages)

	emptyLayout, err := device.CreateDescriptorSetLayout(&driver.DescriptorSetLayoutDescriptor{Label: "empty"})
	if err != nil {
		return nil, fmt.Errorf("rendergraph: creating empty descriptor-set layout: %w", err)
	}
	m.emptySetLayout, err = m.setLayouts.Pool().Assign(setLayoutSlot{obj: emptyLayout, hash: hashSetLayoutBindings(nil)})
	if err != nil {
		return nil, err
	}

	defaultSamplerDesc := SamplerDesc{
		Label:        "default",
		MagFilter:    gputypes.FilterModeNearest,
		MinFilter:    gputypes.FilterModeNearest,
		MipmapFilter: gputypes.FilterModeNearest,
		AddressModeU: gputypes.AddressModeRepeat,
		AddressModeV: gputypes.AddressModeRepeat,
		AddressModeW: gputypes.AddressModeRepeat,
		LodMinClamp:  0,
		LodMaxClamp:  0,
	}
	defaultSamplerObj, err := device.CreateSampler(samplerDescriptorOf(defaultSamplerDesc))
	if err != nil {
		return nil, fmt.Errorf("rendergraph: creating default sampler: %w", err)
	}
	m.defaultSampler, err = m.samplers.Assign(samplerSlot{obj: defaultSamplerObj, desc: defaultSamplerDesc})
	if err != nil {
		return nil, err
	}

	if cfg.PipelinePackPath != "" {
		if err := m.loadPipelinePackFile(cfg.PipelinePackPath); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// EmptyDescriptorSetLayout returns the singleton substituted into any
// unused set slot of a pipeline layout.
func (m *ResourceManager) EmptyDescriptorSetLayout() handle.Handle { return m.emptySetLayout }

// DefaultSampler returns the singleton sampler substituted whenever a
// name lookup misses.
func (m *ResourceManager) DefaultSampler() handle.Handle { return m.defaultSampler }

// --- Buffer ---

func bufferDescriptorOf(d BufferDesc) *driver.BufferDescriptor {
	return &driver.BufferDescriptor{Label: d.Label, Size: d.Size, Usage: d.Usage}
}

// CreateBuffer creates a concrete driver buffer.
func (m *ResourceManager) CreateBuffer(desc BufferDesc) (handle.Handle, error) {
	obj, err := m.device.CreateBuffer(bufferDescriptorOf(desc))
	if err != nil {
		return handle.Handle{}, rgerrors.NewValidationError("Buffer", "", err.Error())
	}
	h, err := m.buffers.Assign(bufferSlot{obj: obj, desc: desc})
	if err != nil {
		obj.Destroy()
		rglog.Logger().Warn("buffer pool overflow", "capacity", m.buffers.Capacity())
		return handle.Handle{}, err
	}
	return h, nil
}

// ReleaseBuffer drops a reference to h; the driver buffer is destroyed
// once no in-flight batch retains it.
func (m *ResourceManager) ReleaseBuffer(h handle.Handle) error {
	slot, _ := m.buffers.Get(h)
	remaining, ok := m.buffers.Release(h)
	if !ok {
		return rgerrors.NewHandleError("release: buffer handle not alive")
	}
	if remaining > 0 {
		return nil
	}
	if !slot.imported {
		slot.obj.Destroy()
	}
	m.buffers.Unassign(h.Index())
	return nil
}

// --- Image ---

func imageDescriptorOf(d ImageDesc) *driver.ImageDescriptor {
	return &driver.ImageDescriptor{
		Label: d.Label, Extent: d.Extent, Format: d.Format, Usage: d.Usage,
		SampleCount: d.SampleCount, MipLevelCount: d.MipLevelCount,
		ArrayLayers: d.ArrayLayers, Dimension: d.Dimension,
	}
}

// CreateImage creates a concrete driver image.
func (m *ResourceManager) CreateImage(desc ImageDesc) (handle.Handle, error) {
	obj, err := m.device.CreateImage(imageDescriptorOf(desc))
	if err != nil {
		return handle.Handle{}, rgerrors.NewValidationError("Image", "", err.Error())
	}
	h, err := m.images.Assign(imageSlot{obj: obj, desc: desc})
	if err != nil {
		obj.Destroy()
		rglog.Logger().Warn("image pool overflow", "capacity", m.images.Capacity())
		return handle.Handle{}, err
	}
	return h, nil
}

// ReleaseImage drops a reference to h.
func (m *ResourceManager) ReleaseImage(h handle.Handle) error {
	slot, _ := m.images.Get(h)
	remaining, ok := m.images.Release(h)
	if !ok {
		return rgerrors.NewHandleError("release: image handle not alive")
	}
	if remaining > 0 {
		return nil
	}
	slot.obj.Destroy()
	m.images.Unassign(h.Index())
	return nil
}

// ResidentState returns the last-known barrier state tracked for a
// persistent buffer or image handle.
func (m *ResourceManager) ResidentState(h handle.Handle) (residentState, bool) {
	switch h.Kind() {
	case handle.Buffer:
		s, ok := m.buffers.Get(h)
		return s.state, ok
	case handle.Image:
		s, ok := m.images.Get(h)
		return s.state, ok
	default:
		return residentState{}, false
	}
}

// SetResidentState updates the barrier-tracking state for a persistent
// buffer or image handle.
func (m *ResourceManager) SetResidentState(h handle.Handle, state residentState) bool {
	switch h.Kind() {
	case handle.Buffer:
		if !m.buffers.IsAlive(h) {
			return false
		}
		m.buffers.At(h.Index()).state = state
		return true
	case handle.Image:
		if !m.images.IsAlive(h) {
			return false
		}
		m.images.At(h.Index()).state = state
		return true
	default:
		return false
	}
}

// --- Virtual resources ---

// CreateVirtualBuffer declares a logical buffer for this frame's
// dependency resolution; it has no driver object until the graph binds
// it at submit time.
func (m *ResourceManager) CreateVirtualBuffer(desc VirtualDesc) (handle.Handle, error) {
	desc.Kind = handle.VirtualBuffer
	return m.virtualBuffers.Assign(virtualSlot{desc: desc, usage: desc.InitialUsage})
}

// CreateVirtualImage declares a logical image.
func (m *ResourceManager) CreateVirtualImage(desc VirtualDesc) (handle.Handle, error) {
	desc.Kind = handle.VirtualImage
	return m.virtualImages.Assign(virtualSlot{desc: desc, usage: desc.InitialUsage})
}

func (m *ResourceManager) virtualPoolFor(kind handle.Kind) *respool.Pool[virtualSlot] {
	if kind == handle.VirtualBuffer {
		return m.virtualBuffers
	}
	return m.virtualImages
}

// ReleaseVirtual releases a per-frame virtual declaration; the render
// graph calls this once at the end of each submit.
func (m *ResourceManager) ReleaseVirtual(h handle.Handle) error {
	pool := m.virtualPoolFor(h.Kind())
	remaining, ok := pool.Release(h)
	if !ok {
		return rgerrors.NewHandleError("release: virtual handle not alive")
	}
	if remaining == 0 {
		pool.Unassign(h.Index())
	}
	return nil
}

// AccumulateVirtualUsage folds usage into the virtual handle's per-frame
// union: a virtual handle accumulates the union of every usage declared
// against it across a frame.
func (m *ResourceManager) AccumulateVirtualUsage(h handle.Handle, usage handle.Usage) bool {
	pool := m.virtualPoolFor(h.Kind())
	if !pool.IsAlive(h) {
		return false
	}
	pool.At(h.Index()).usage = pool.At(h.Index()).usage.Union(usage)
	return true
}

// VirtualUsage returns the accumulated usage union for a virtual handle.
func (m *ResourceManager) VirtualUsage(h handle.Handle) (handle.Usage, bool) {
	s, ok := m.virtualPoolFor(h.Kind()).Get(h)
	return s.usage, ok
}

// BindVirtual records the concrete resource a virtual handle resolved to
// for this frame.
func (m *ResourceManager) BindVirtual(h handle.Handle, concrete handle.Handle) bool {
	pool := m.virtualPoolFor(h.Kind())
	if !pool.IsAlive(h) {
		return false
	}
	pool.At(h.Index()).bound = concrete
	return true
}

// ResolveVirtual returns the concrete resource bound to a virtual handle,
// if any.
func (m *ResourceManager) ResolveVirtual(h handle.Handle) (handle.Handle, bool) {
	s, ok := m.virtualPoolFor(h.Kind()).Get(h)
	if !ok || s.bound.IsZero() {
		return handle.Handle{}, false
	}
	return s.bound, true
}

// VirtualDescription returns the declared (kind, format, size-class)
// tuple for a virtual handle.
func (m *ResourceManager) VirtualDescription(h handle.Handle) (VirtualDesc, bool) {
	s, ok := m.virtualPoolFor(h.Kind()).Get(h)
	return s.desc, ok
}

// --- Sampler ---

func samplerDescriptorOf(d SamplerDesc) *driver.SamplerDescriptor {
	return &driver.SamplerDescriptor{
		Label: d.Label, MagFilter: d.MagFilter, MinFilter: d.MinFilter, MipmapFilter: d.MipmapFilter,
		AddressModeU: d.AddressModeU, AddressModeV: d.AddressModeV, AddressModeW: d.AddressModeW,
		LodMinClamp: d.LodMinClamp, LodMaxClamp: d.LodMaxClamp, Compare: d.Compare, Anisotropy: d.Anisotropy,
	}
}

// CreateSampler creates a concrete sampler.
func (m *ResourceManager) CreateSampler(desc SamplerDesc) (handle.Handle, error) {
	obj, err := m.device.CreateSampler(samplerDescriptorOf(desc))
	if err != nil {
		return handle.Handle{}, rgerrors.NewValidationError("Sampler", "", err.Error())
	}
	h, err := m.samplers.Assign(samplerSlot{obj: obj, desc: desc})
	if err != nil {
		obj.Destroy()
		return handle.Handle{}, err
	}
	return h, nil
}

// ReleaseSampler drops a reference to h.
func (m *ResourceManager) ReleaseSampler(h handle.Handle) error {
	slot, _ := m.samplers.Get(h)
	remaining, ok := m.samplers.Release(h)
	if !ok {
		return rgerrors.NewHandleError("release: sampler handle not alive")
	}
	if remaining > 0 {
		return nil
	}
	slot.obj.Destroy()
	m.samplers.Unassign(h.Index())
	return nil
}

// RegisterNamedSampler registers a sampler handle under a pack-provided
// name for LookupSampler.
func (m *ResourceManager) RegisterNamedSampler(name string, h handle.Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samplerNames[name] = h
}

// LookupSampler resolves a name to a sampler handle, returning the
// default sampler on a miss.
func (m *ResourceManager) LookupSampler(name string) handle.Handle {
	m.mu.RLock()
	h, ok := m.samplerNames[name]
	m.mu.RUnlock()
	if !ok {
		return m.defaultSampler
	}
	return h
}

// --- Descriptor-set layout ---

func hashSetLayoutBindings(bindings []driver.DescriptorSetLayoutBinding) uint64 {
	h := xxhash.New()
	var buf [4]byte
	for _, b := range bindings {
		binary.LittleEndian.PutUint32(buf[:], b.Binding)
		h.Write(buf[:])
		binary.LittleEndian.PutUint32(buf[:], uint32(b.Type))
		h.Write(buf[:])
		binary.LittleEndian.PutUint32(buf[:], uint32(b.Stages))
		h.Write(buf[:])
		binary.LittleEndian.PutUint32(buf[:], b.Count)
		h.Write(buf[:])
	}
	return h.Sum64()
}

func bindingsEqual(a, b []driver.DescriptorSetLayoutBinding) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// CreateDescriptorSetLayout returns the cached layout for bindings,
// creating a fresh driver object only on a cache miss.
func (m *ResourceManager) CreateDescriptorSetLayout(bindings []driver.DescriptorSetLayoutBinding) (handle.Handle, error) {
	bindingsCopy := append([]driver.DescriptorSetLayoutBinding(nil), bindings...)
	hash := hashSetLayoutBindings(bindingsCopy)
	var createErr error
	h, _, err := m.setLayouts.FindOrInsert(hash,
		func(s setLayoutSlot) bool { return bindingsEqual(s.bindings, bindingsCopy) },
		func() setLayoutSlot {
			obj, err := m.device.CreateDescriptorSetLayout(&driver.DescriptorSetLayoutDescriptor{Bindings: bindingsCopy})
			if err != nil {
				createErr = err
				return setLayoutSlot{}
			}
			return setLayoutSlot{obj: obj, bindings: bindingsCopy, hash: hash}
		})
	if err != nil {
		return handle.Handle{}, err
	}
	if createErr != nil {
		return handle.Handle{}, rgerrors.NewValidationError("DescriptorSetLayout", "", createErr.Error())
	}
	return h, nil
}

// ReleaseDescriptorSetLayout drops a reference to h.
func (m *ResourceManager) ReleaseDescriptorSetLayout(h handle.Handle) error {
	slot, ok := m.setLayouts.Pool().Get(h)
	if !ok {
		return rgerrors.NewHandleError("release: descriptor-set-layout handle not alive")
	}
	m.setLayouts.Release(slot.hash, h, func(s setLayoutSlot) { m.device.DestroyDescriptorSetLayout(s.obj) })
	return nil
}

// --- Pipeline layout ---

func hashPipelineLayout(sets []handle.Handle, pushSize uint32) uint64 {
	h := xxhash.New()
	var buf [4]byte
	for _, s := range sets {
		binary.LittleEndian.PutUint32(buf[:], s.Index())
		h.Write(buf[:])
		binary.LittleEndian.PutUint32(buf[:], s.Generation())
		h.Write(buf[:])
	}
	binary.LittleEndian.PutUint32(buf[:], pushSize)
	h.Write(buf[:])
	return h.Sum64()
}

func handleSlicesEqual(a, b []handle.Handle) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// CreatePipelineLayout returns the cached pipeline layout for sets and
// pushSize, substituting the manager's empty descriptor-set layout for
// any zero-valued entry in sets so driver layout objects never contain
// gaps.
func (m *ResourceManager) CreatePipelineLayout(sets []handle.Handle, pushSize uint32) (handle.Handle, error) {
	resolved := make([]handle.Handle, len(sets))
	for i, s := range sets {
		if s.IsZero() {
			resolved[i] = m.emptySetLayout
		} else {
			resolved[i] = s
		}
	}
	hash := hashPipelineLayout(resolved, pushSize)

	driverSets := make([]driver.DescriptorSetLayout, len(resolved))
	for i, s := range resolved {
		slot, ok := m.setLayouts.Pool().Get(s)
		if !ok {
			return handle.Handle{}, rgerrors.NewHandleError("pipeline layout: set-layout handle not alive")
		}
		driverSets[i] = slot.obj
	}

	var createErr error
	h, _, err := m.pipelineLayouts.FindOrInsert(hash,
		func(p pipelineLayoutSlot) bool { return handleSlicesEqual(p.sets, resolved) && p.pushSize == pushSize },
		func() pipelineLayoutSlot {
			obj, err := m.device.CreatePipelineLayout(&driver.PipelineLayoutDescriptor{Sets: driverSets, PushSize: pushSize})
			if err != nil {
				createErr = err
				return pipelineLayoutSlot{}
			}
			return pipelineLayoutSlot{obj: obj, sets: resolved, pushSize: pushSize, hash: hash}
		})
	if err != nil {
		return handle.Handle{}, err
	}
	if createErr != nil {
		return handle.Handle{}, rgerrors.NewValidationError("PipelineLayout", "", createErr.Error())
	}
	return h, nil
}

// ReleasePipelineLayout drops a reference to h.
func (m *ResourceManager) ReleasePipelineLayout(h handle.Handle) error {
	slot, ok := m.pipelineLayouts.Pool().Get(h)
	if !ok {
		return rgerrors.NewHandleError("release: pipeline-layout handle not alive")
	}
	m.pipelineLayouts.Release(slot.hash, h, func(s pipelineLayoutSlot) { m.device.DestroyPipelineLayout(s.obj) })
	return nil
}

// --- Graphics / mesh / compute pipeline lookup by name ---

// GraphicsPipeline resolves a named graphics pipeline: validates desc
// against the template bound to name, normalizes render state, and
// returns the cached concrete pipeline (building one on a cache miss).
func (m *ResourceManager) GraphicsPipeline(name string, desc GraphicsPipelineDesc) (handle.Handle, error) {
	m.mu.RLock()
	tmpl, ok := m.graphicsTemplates[name]
	m.mu.RUnlock()
	if !ok {
		return handle.Handle{}, rgerrors.NewValidationError("GraphicsPipeline", "name", fmt.Sprintf("unknown template %q", name))
	}
	if len(tmpl.AllowedTopologies) > 0 && !containsTopology(tmpl.AllowedTopologies, desc.Topology) {
		return handle.Handle{}, rgerrors.NewValidationError("GraphicsPipeline", "Topology", "topology not allowed by template")
	}
	if desc.PatchControlPoints > tmpl.MaxPatchControlPoints {
		return handle.Handle{}, rgerrors.NewValidationError("GraphicsPipeline", "PatchControlPoints", "exceeds template maximum")
	}

	normalized, err := normalizeGraphics(desc, m.cfg.DualSourceBlendSupported)
	if err != nil {
		return handle.Handle{}, err
	}
	hash := hashGraphicsNamed(name, normalized)

	layoutSlot, ok := m.pipelineLayouts.Pool().Get(tmpl.LayoutHandle)
	if !ok {
		return handle.Handle{}, rgerrors.NewValidationError("GraphicsPipeline", "name", fmt.Sprintf("template %q has no bound layout", name))
	}

	var createErr error
	h, _, err := m.graphicsPipelines.FindOrInsert(hash,
		func(s graphicsPipelineSlot) bool { return s.hash == hash },
		func() graphicsPipelineSlot {
			driverDesc := &driver.GraphicsPipelineDescriptor{
				Layout: layoutSlot.obj, Topology: normalized.Topology,
				PatchControlPoints: normalized.PatchControlPoints, CullMode: normalized.CullMode,
				FrontFace: normalized.FrontFace, RasterizerDiscard: normalized.RasterizerDiscard,
				SampleCount: normalized.SampleCount, DynamicState: normalized.DynamicState,
			}
			driverDesc.ColorTargets = colorTargetStatesOf(normalized.ColorTargets)
			driverDesc.DepthStencil = depthStencilStateOf(normalized.DepthStencil)
			obj, err := m.device.CreateGraphicsPipeline(driverDesc)
			if err != nil {
				createErr = err
				return graphicsPipelineSlot{}
			}
			return graphicsPipelineSlot{obj: obj, hash: hash}
		})
	if err != nil {
		return handle.Handle{}, err
	}
	if createErr != nil {
		return handle.Handle{}, rgerrors.NewValidationError("GraphicsPipeline", "", createErr.Error())
	}
	return h, nil
}

// ReleaseGraphicsPipeline drops a reference to h.
func (m *ResourceManager) ReleaseGraphicsPipeline(h handle.Handle) error {
	slot, ok := m.graphicsPipelines.Pool().Get(h)
	if !ok {
		return rgerrors.NewHandleError("release: graphics-pipeline handle not alive")
	}
	m.graphicsPipelines.Release(slot.hash, h, func(s graphicsPipelineSlot) { m.device.DestroyGraphicsPipeline(s.obj) })
	return nil
}

func containsTopology(set []gputypes.PrimitiveTopology, t gputypes.PrimitiveTopology) bool {
	for _, s := range set {
		if s == t {
			return true
		}
	}
	return false
}

func colorTargetStatesOf(targets []ColorTargetDesc) []driver.ColorTargetState {
	out := make([]driver.ColorTargetState, len(targets))
	for i, ct := range targets {
		out[i] = driver.ColorTargetState{
			Format: ct.Format, Blend: ct.Blend, ColorSrc: ct.ColorSrc, ColorDst: ct.ColorDst,
			ColorOp: ct.ColorOp, AlphaSrc: ct.AlphaSrc, AlphaDst: ct.AlphaDst, AlphaOp: ct.AlphaOp,
			WriteMask: ct.WriteMask,
		}
	}
	return out
}

func depthStencilStateOf(ds *DepthStencilDesc) *driver.DepthStencilState {
	if ds == nil {
		return nil
	}
	return &driver.DepthStencilState{
		Format: ds.Format, DepthTest: ds.DepthTest, DepthWrite: ds.DepthWrite, DepthCompare: ds.DepthCompare,
		DepthBoundsTest: ds.DepthBoundsTest, MinDepthBounds: ds.MinDepthBounds, MaxDepthBounds: ds.MaxDepthBounds,
		StencilTest: ds.StencilTest, StencilReadMask: ds.StencilReadMask, StencilWriteMask: ds.StencilWriteMask,
		StencilReference: ds.StencilReference,
	}
}

// MeshPipeline resolves a named mesh pipeline, mirroring GraphicsPipeline
// without topology/tessellation validation.
func (m *ResourceManager) MeshPipeline(name string, desc MeshPipelineDesc) (handle.Handle, error) {
	m.mu.RLock()
	tmpl, ok := m.meshTemplates[name]
	m.mu.RUnlock()
	if !ok {
		return handle.Handle{}, rgerrors.NewValidationError("MeshPipeline", "name", fmt.Sprintf("unknown template %q", name))
	}

	normalized, err := normalizeMesh(desc, m.cfg.DualSourceBlendSupported)
	if err != nil {
		return handle.Handle{}, err
	}
	hash := hashMeshNamed(name, normalized)

	layoutSlot, ok := m.pipelineLayouts.Pool().Get(tmpl.LayoutHandle)
	if !ok {
		return handle.Handle{}, rgerrors.NewValidationError("MeshPipeline", "name", fmt.Sprintf("template %q has no bound layout", name))
	}

	var createErr error
	h, _, err := m.meshPipelines.FindOrInsert(hash,
		func(s meshPipelineSlot) bool { return s.hash == hash },
		func() meshPipelineSlot {
			driverDesc := &driver.MeshPipelineDescriptor{
				Layout: layoutSlot.obj, CullMode: normalized.CullMode, SampleCount: normalized.SampleCount,
				DynamicState: normalized.DynamicState,
			}
			driverDesc.ColorTargets = colorTargetStatesOf(normalized.ColorTargets)
			driverDesc.DepthStencil = depthStencilStateOf(normalized.DepthStencil)
			obj, err := m.device.CreateMeshPipeline(driverDesc)
			if err != nil {
				createErr = err
				return meshPipelineSlot{}
			}
			return meshPipelineSlot{obj: obj, hash: hash}
		})
	if err != nil {
		return handle.Handle{}, err
	}
	if createErr != nil {
		return handle.Handle{}, rgerrors.NewValidationError("MeshPipeline", "", createErr.Error())
	}
	return h, nil
}

// ReleaseMeshPipeline drops a reference to h.
func (m *ResourceManager) ReleaseMeshPipeline(h handle.Handle) error {
	slot, ok := m.meshPipelines.Pool().Get(h)
	if !ok {
		return rgerrors.NewHandleError("release: mesh-pipeline handle not alive")
	}
	m.meshPipelines.Release(slot.hash, h, func(s meshPipelineSlot) { m.device.DestroyMeshPipeline(s.obj) })
	return nil
}

// ComputePipeline resolves a named compute pipeline; local_group_size
// comes from the template's reflection data unless desc overrides it.
func (m *ResourceManager) ComputePipeline(name string, desc ComputePipelineDesc) (handle.Handle, error) {
	m.mu.RLock()
	tmpl, ok := m.computeTemplates[name]
	m.mu.RUnlock()
	if !ok {
		return handle.Handle{}, rgerrors.NewValidationError("ComputePipeline", "name", fmt.Sprintf("unknown template %q", name))
	}

	localGroupSize := tmpl.LocalGroupSize
	if desc.LocalGroupSizeOverride != nil {
		localGroupSize = *desc.LocalGroupSizeOverride
	}
	hash := hashComputeNamed(name, desc)

	layoutSlot, ok := m.pipelineLayouts.Pool().Get(tmpl.LayoutHandle)
	if !ok {
		return handle.Handle{}, rgerrors.NewValidationError("ComputePipeline", "name", fmt.Sprintf("template %q has no bound layout", name))
	}

	var createErr error
	h, _, err := m.computePipelines.FindOrInsert(hash,
		func(s computePipelineSlot) bool { return s.hash == hash },
		func() computePipelineSlot {
			obj, err := m.device.CreateComputePipeline(&driver.ComputePipelineDescriptor{Layout: layoutSlot.obj, LocalGroupSize: localGroupSize})
			if err != nil {
				createErr = err
				return computePipelineSlot{}
			}
			return computePipelineSlot{obj: obj, hash: hash}
		})
	if err != nil {
		return handle.Handle{}, err
	}
	if createErr != nil {
		return handle.Handle{}, rgerrors.NewValidationError("ComputePipeline", "", createErr.Error())
	}
	return h, nil
}

// ReleaseComputePipeline drops a reference to h.
func (m *ResourceManager) ReleaseComputePipeline(h handle.Handle) error {
	slot, ok := m.computePipelines.Pool().Get(h)
	if !ok {
		return rgerrors.NewHandleError("release: compute-pipeline handle not alive")
	}
	m.computePipelines.Release(slot.hash, h, func(s computePipelineSlot) { m.device.DestroyComputePipeline(s.obj) })
	return nil
}

// --- Render pass / framebuffer / descriptor set ---

func hashRenderPassDesc(d RenderPassDesc) uint64 {
	h := xxhash.New()
	var buf [4]byte
	writeU32 := func(v uint32) { binary.LittleEndian.PutUint32(buf[:], v); h.Write(buf[:]) }
	for _, a := range d.ColorAttachments {
		writeU32(uint32(a.Format))
		writeU32(a.View.Index())
		writeU32(a.View.Generation())
		writeU32(a.Dimensions[0])
		writeU32(a.Dimensions[1])
		writeU32(a.SampleCount)
		writeU32(uint32(a.LoadOp))
		writeU32(uint32(a.StoreOp))
	}
	if d.DepthStencilAttachment != nil {
		a := d.DepthStencilAttachment
		writeU32(uint32(a.Format))
		writeU32(a.View.Index())
		writeU32(a.View.Generation())
		writeU32(a.Dimensions[0])
		writeU32(a.Dimensions[1])
		writeU32(a.SampleCount)
		writeU32(uint32(a.LoadOp))
		writeU32(uint32(a.StoreOp))
	}
	writeU32(d.ViewportCount)
	writeU32(d.LayerCount)
	writeU32(d.Subpasses)
	return h.Sum64()
}

func renderPassAttachmentDescEqual(a, b RenderPassAttachmentDesc) bool { return a == b }

func renderPassDescEqual(a, b RenderPassDesc) bool {
	if len(a.ColorAttachments) != len(b.ColorAttachments) {
		return false
	}
	for i := range a.ColorAttachments {
		if !renderPassAttachmentDescEqual(a.ColorAttachments[i], b.ColorAttachments[i]) {
			return false
		}
	}
	if (a.DepthStencilAttachment == nil) != (b.DepthStencilAttachment == nil) {
		return false
	}
	if a.DepthStencilAttachment != nil && *a.DepthStencilAttachment != *b.DepthStencilAttachment {
		return false
	}
	return a.ViewportCount == b.ViewportCount && a.LayerCount == b.LayerCount && a.Subpasses == b.Subpasses
}

// CreateRenderPass returns the cached render pass for desc, building a
// driver render pass only on a cache miss.
func (m *ResourceManager) CreateRenderPass(desc RenderPassDesc) (handle.Handle, error) {
	hash := hashRenderPassDesc(desc)
	var createErr error
	h, _, err := m.renderPasses.FindOrInsert(hash,
		func(s renderPassSlot) bool { return renderPassDescEqual(s.desc, desc) },
		func() renderPassSlot {
			driverDesc := &driver.RenderPassDescriptor{Subpasses: desc.Subpasses}
			driverDesc.ColorAttachments = make([]driver.RenderPassAttachment, len(desc.ColorAttachments))
			for i, a := range desc.ColorAttachments {
				driverDesc.ColorAttachments[i] = driver.RenderPassAttachment{Format: a.Format, SampleCount: a.SampleCount, LoadOp: a.LoadOp, StoreOp: a.StoreOp}
			}
			if desc.DepthStencilAttachment != nil {
				a := desc.DepthStencilAttachment
				driverDesc.DepthStencilAttachment = &driver.RenderPassAttachment{Format: a.Format, SampleCount: a.SampleCount, LoadOp: a.LoadOp, StoreOp: a.StoreOp}
			}
			obj, err := m.device.CreateRenderPass(driverDesc)
			if err != nil {
				createErr = err
				return renderPassSlot{}
			}
			return renderPassSlot{obj: obj, desc: desc, hash: hash}
		})
	if err != nil {
		return handle.Handle{}, err
	}
	if createErr != nil {
		return handle.Handle{}, rgerrors.NewValidationError("RenderPass", "", createErr.Error())
	}
	return h, nil
}

// ReleaseRenderPass drops a reference to h.
func (m *ResourceManager) ReleaseRenderPass(h handle.Handle) error {
	slot, ok := m.renderPasses.Pool().Get(h)
	if !ok {
		return rgerrors.NewHandleError("release: render-pass handle not alive")
	}
	m.renderPasses.Release(slot.hash, h, func(s renderPassSlot) { m.device.DestroyRenderPass(s.obj) })
	return nil
}

func hashFramebufferDesc(d FramebufferDesc) uint64 {
	h := xxhash.New()
	var buf [4]byte
	writeU32 := func(v uint32) { binary.LittleEndian.PutUint32(buf[:], v); h.Write(buf[:]) }
	writeU32(d.RenderPass.Index())
	writeU32(d.RenderPass.Generation())
	for _, v := range d.Views {
		writeU32(v.Index())
		writeU32(v.Generation())
	}
	writeU32(d.Width)
	writeU32(d.Height)
	writeU32(d.Layers)
	return h.Sum64()
}

func framebufferDescEqual(a, b FramebufferDesc) bool {
	return a.RenderPass == b.RenderPass && a.Width == b.Width && a.Height == b.Height &&
		a.Layers == b.Layers && handleSlicesEqual(a.Views, b.Views)
}

// CreateFramebuffer returns the cached framebuffer for desc.
func (m *ResourceManager) CreateFramebuffer(desc FramebufferDesc) (handle.Handle, error) {
	hash := hashFramebufferDesc(desc)
	passSlot, ok := m.renderPasses.Pool().Get(desc.RenderPass)
	if !ok {
		return handle.Handle{}, rgerrors.NewHandleError("framebuffer: render-pass handle not alive")
	}
	var createErr error
	h, _, err := m.framebuffers.FindOrInsert(hash,
		func(s framebufferSlot) bool { return framebufferDescEqual(s.desc, desc) },
		func() framebufferSlot {
			views := make([]driver.Image, len(desc.Views))
			for i, v := range desc.Views {
				imgSlot, ok := m.images.Get(v)
				if !ok {
					createErr = fmt.Errorf("view handle not alive")
					return framebufferSlot{}
				}
				views[i] = imgSlot.obj
			}
			obj, err := m.device.CreateFramebuffer(&driver.FramebufferDescriptor{
				RenderPass: passSlot.obj, Views: views, Width: desc.Width, Height: desc.Height, Layers: desc.Layers,
			})
			if err != nil {
				createErr = err
				return framebufferSlot{}
			}
			return framebufferSlot{obj: obj, desc: desc, hash: hash}
		})
	if err != nil {
		return handle.Handle{}, err
	}
	if createErr != nil {
		return handle.Handle{}, rgerrors.NewValidationError("Framebuffer", "", createErr.Error())
	}
	return h, nil
}

// ReleaseFramebuffer drops a reference to h.
func (m *ResourceManager) ReleaseFramebuffer(h handle.Handle) error {
	slot, ok := m.framebuffers.Pool().Get(h)
	if !ok {
		return rgerrors.NewHandleError("release: framebuffer handle not alive")
	}
	m.framebuffers.Release(slot.hash, h, func(s framebufferSlot) { m.device.DestroyFramebuffer(s.obj) })
	return nil
}

func hashDescriptorSetDesc(d DescriptorSetDesc) uint64 {
	h := xxhash.New()
	var buf [8]byte
	writeU32 := func(v uint32) { binary.LittleEndian.PutUint32(buf[:4], v); h.Write(buf[:4]) }
	writeU64 := func(v uint64) { binary.LittleEndian.PutUint64(buf[:], v); h.Write(buf[:]) }
	writeU32(d.Layout.Index())
	writeU32(d.Layout.Generation())
	for _, e := range d.Entries {
		writeU32(e.Binding)
		writeU32(e.Buffer.Index())
		writeU32(e.Buffer.Generation())
		writeU64(e.Offset)
		writeU64(e.Size)
		writeU32(e.Sampler.Index())
		writeU32(e.Sampler.Generation())
		writeU32(e.Image.Index())
		writeU32(e.Image.Generation())
	}
	return h.Sum64()
}

func descriptorSetDescEqual(a, b DescriptorSetDesc) bool {
	if a.Layout != b.Layout || len(a.Entries) != len(b.Entries) {
		return false
	}
	for i := range a.Entries {
		if a.Entries[i] != b.Entries[i] {
			return false
		}
	}
	return true
}

// CreateDescriptorSet returns the cached descriptor set for desc.
func (m *ResourceManager) CreateDescriptorSet(desc DescriptorSetDesc) (handle.Handle, error) {
	hash := hashDescriptorSetDesc(desc)
	layoutSlot, ok := m.setLayouts.Pool().Get(desc.Layout)
	if !ok {
		return handle.Handle{}, rgerrors.NewHandleError("descriptor set: layout handle not alive")
	}
	var createErr error
	h, _, err := m.descriptorSets.FindOrInsert(hash,
		func(s descriptorSetSlot) bool { return descriptorSetDescEqual(s.desc, desc) },
		func() descriptorSetSlot {
			entries := make([]driver.DescriptorSetEntry, len(desc.Entries))
			for i, e := range desc.Entries {
				entry := driver.DescriptorSetEntry{Binding: e.Binding, Offset: e.Offset, Size: e.Size}
				if !e.Buffer.IsZero() {
					if s, ok := m.buffers.Get(e.Buffer); ok {
						entry.Buffer = s.obj
					}
				}
				if !e.Sampler.IsZero() {
					if s, ok := m.samplers.Get(e.Sampler); ok {
						entry.Sampler = s.obj
					}
				}
				if !e.Image.IsZero() {
					if s, ok := m.images.Get(e.Image); ok {
						entry.Image = s.obj
					}
				}
				entries[i] = entry
			}
			obj, err := m.device.CreateDescriptorSet(&driver.DescriptorSetDescriptor{Layout: layoutSlot.obj, Entries: entries})
			if err != nil {
				createErr = err
				return descriptorSetSlot{}
			}
			return descriptorSetSlot{obj: obj, desc: desc, hash: hash}
		})
	if err != nil {
		return handle.Handle{}, err
	}
	if createErr != nil {
		return handle.Handle{}, rgerrors.NewValidationError("DescriptorSet", "", createErr.Error())
	}
	return h, nil
}

// ReleaseDescriptorSet drops a reference to h.
func (m *ResourceManager) ReleaseDescriptorSet(h handle.Handle) error {
	slot, ok := m.descriptorSets.Pool().Get(h)
	if !ok {
		return rgerrors.NewHandleError("release: descriptor-set handle not alive")
	}
	m.descriptorSets.Release(slot.hash, h, func(s descriptorSetSlot) { m.device.DestroyDescriptorSet(s.obj) })
	return nil
}

// --- Command buffer ---

// CreateCommandBuffer allocates a command buffer slot.
func (m *ResourceManager) CreateCommandBuffer() (handle.Handle, error) {
	obj, err := m.device.CreateCommandBuffer()
	if err != nil {
		return handle.Handle{}, rgerrors.NewValidationError("CommandBuffer", "", err.Error())
	}
	h, err := m.commandBuffers.Assign(obj)
	if err != nil {
		obj.Destroy()
		return handle.Handle{}, err
	}
	return h, nil
}

// ReleaseCommandBuffer releases a command buffer.
func (m *ResourceManager) ReleaseCommandBuffer(h handle.Handle) error {
	obj, _ := m.commandBuffers.Get(h)
	remaining, ok := m.commandBuffers.Release(h)
	if !ok {
		return rgerrors.NewHandleError("release: command-buffer handle not alive")
	}
	if remaining > 0 {
		return nil
	}
	obj.Destroy()
	m.commandBuffers.Unassign(h.Index())
	return nil
}

// CommandBufferObject returns the driver command buffer behind h.
func (m *ResourceManager) CommandBufferObject(h handle.Handle) (driver.CommandBuffer, bool) {
	return m.commandBuffers.Get(h)
}

// --- Describe / query ---

// DescriptionOfBuffer returns the zero-value BufferDesc and false when h
// is not a live buffer.
func (m *ResourceManager) DescriptionOfBuffer(h handle.Handle) (BufferDesc, bool) {
	s, ok := m.buffers.Get(h)
	return s.desc, ok
}

// DescriptionOfImage returns the zero-value ImageDesc and false when h is
// not a live image.
func (m *ResourceManager) DescriptionOfImage(h handle.Handle) (ImageDesc, bool) {
	s, ok := m.images.Get(h)
	return s.desc, ok
}

// IsSupported reports whether the driver could create desc without
// actually creating it.
func (m *ResourceManager) IsSupported(desc any) bool {
	return m.device.IsSupported(desc)
}

// NativeHandle exposes the backend-native handle behind a buffer or
// image resource, for escape-hatch interop.
func (m *ResourceManager) NativeHandle(h handle.Handle) (uintptr, bool) {
	var res driver.Resource
	switch h.Kind() {
	case handle.Buffer:
		s, ok := m.buffers.Get(h)
		if !ok {
			return 0, false
		}
		res = s.obj
	case handle.Image:
		s, ok := m.images.Get(h)
		if !ok {
			return 0, false
		}
		res = s.obj
	default:
		return 0, false
	}
	nh, ok := res.(driver.NativeHandle)
	if !ok {
		return 0, false
	}
	return nh.NativeHandle(), true
}

// MemoryInfo returns the allocation info for a persistent buffer or image.
func (m *ResourceManager) MemoryInfo(h handle.Handle) (driver.MemoryInfo, bool) {
	var res driver.Resource
	switch h.Kind() {
	case handle.Buffer:
		s, ok := m.buffers.Get(h)
		if !ok {
			return driver.MemoryInfo{}, false
		}
		res = s.obj
	case handle.Image:
		s, ok := m.images.Get(h)
		if !ok {
			return driver.MemoryInfo{}, false
		}
		res = s.obj
	default:
		return driver.MemoryInfo{}, false
	}
	return m.device.MemoryInfo(res), true
}

// ImportBuffer wraps an externally created driver buffer into a slot
// without taking ownership of its memory; ReleaseBuffer on the returned
// handle frees only the slot.
func (m *ResourceManager) ImportBuffer(obj driver.Buffer, desc BufferDesc) (handle.Handle, error) {
	return m.buffers.Assign(bufferSlot{obj: obj, desc: desc, imported: true})
}

// ImportImage wraps an externally created driver image into a slot.
func (m *ResourceManager) ImportImage(obj driver.Image, desc ImageDesc) (handle.Handle, error) {
	return m.images.Assign(imageSlot{obj: obj, desc: desc})
}

func (m *ResourceManager) loadPipelinePackFile(path string) error {
	r, err := openPack(path)
	if err != nil {
		return err
	}
	defer r.Close()
	if err := m.LoadPipelinePack(r); err != nil {
		return err
	}
	rglog.Logger().Debug("loaded pipeline pack", "path", path)
	return nil
}

// Close tears down every driver object the manager owns outright: the
// empty descriptor-set-layout and default-sampler singletons, and every
// allocated staging page. Pooled resources created through Create*/import
// calls must already have been released by their owners; Close does not
// force-destroy live handles.
func (m *ResourceManager) Close() {
	if slot, ok := m.setLayouts.Pool().Get(m.emptySetLayout); ok {
		m.device.DestroyDescriptorSetLayout(slot.obj)
	}
	if slot, ok := m.samplers.Get(m.defaultSampler); ok {
		m.device.DestroySampler(slot.obj)
	}
	m.writeStaging.destroyAll(m.device)
	m.readStaging.destroyAll(m.device)
	m.uniformStaging.destroyAll(m.device)
}
