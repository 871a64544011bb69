package resmgr

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io"
	"os"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/rendergraph/handle"
)

// openPack opens a pipeline-pack file produced by this module's offline
// tooling for LoadPipelinePack to decode.
func openPack(path string) (*os.File, error) {
	return os.Open(path)
}

// graphicsTemplate is a preloaded named pipeline template looked up by
// ResourceManager.GraphicsPipeline/MeshPipeline. The pack stream carries
// everything about a template except its pipeline layout: layouts are
// built at runtime from live descriptor-set-layout handles (shader
// compilation and pipeline-template creation are out of scope for this
// package), so LayoutHandle starts zero and is filled in by
// BindGraphicsTemplateLayout/BindMeshTemplateLayout before the first
// GraphicsPipeline/MeshPipeline request against that name.
type graphicsTemplate struct {
	Name                  string
	LayoutHandle          handle.Handle
	AllowedTopologies     []gputypes.PrimitiveTopology // empty means any topology is accepted
	MaxPatchControlPoints uint32
	SpecConstants         []byte
}

// computeTemplate is a preloaded named compute pipeline template.
type computeTemplate struct {
	Name           string
	LayoutHandle   handle.Handle
	LocalGroupSize [3]uint32
	SpecConstants  []byte
}

// packRecord is the gob-encoded wire shape of one pipeline-pack stream:
// name tables per shader-stage family, a render-pass-info table, and a
// sampler table. encoding/gob is used rather than a
// third-party format because this is a private, version-locked stream
// produced by this module's own offline tooling, not an interchange
// format consumed by other systems.
type packRecord struct {
	GraphicsTemplates []packGraphicsTemplate
	MeshTemplates     []packGraphicsTemplate
	ComputeTemplates  []packComputeTemplate
	RenderPasses      []packRenderPass
	Samplers          []packSampler
}

type packGraphicsTemplate struct {
	Name                  string
	AllowedTopologies     []uint32
	MaxPatchControlPoints uint32
	SpecConstants         []byte
}

type packComputeTemplate struct {
	Name           string
	LocalGroupSize [3]uint32
	SpecConstants  []byte
}

type packRenderPass struct {
	Name string
	Desc RenderPassDesc
}

type packSampler struct {
	Name string
	Desc SamplerDesc
}

// LoadPipelinePack decodes the gob-framed pipeline-pack stream from r and
// registers its templates, render-pass infos, and samplers on the
// manager. Duplicate names across two LoadPipelinePack calls (or within
// one stream) are rejected.
func (m *ResourceManager) LoadPipelinePack(r io.Reader) error {
	var rec packRecord
	if err := gob.NewDecoder(r).Decode(&rec); err != nil {
		return fmt.Errorf("rendergraph: decoding pipeline pack: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range rec.GraphicsTemplates {
		if _, exists := m.graphicsTemplates[t.Name]; exists {
			return fmt.Errorf("rendergraph: duplicate graphics template name %q", t.Name)
		}
		topologies := make([]gputypes.PrimitiveTopology, len(t.AllowedTopologies))
		for i, v := range t.AllowedTopologies {
			topologies[i] = gputypes.PrimitiveTopology(v)
		}
		m.graphicsTemplates[t.Name] = graphicsTemplate{
			Name:                  t.Name,
			AllowedTopologies:     topologies,
			MaxPatchControlPoints: t.MaxPatchControlPoints,
			SpecConstants:         t.SpecConstants,
		}
	}

	for _, t := range rec.MeshTemplates {
		if _, exists := m.meshTemplates[t.Name]; exists {
			return fmt.Errorf("rendergraph: duplicate mesh template name %q", t.Name)
		}
		m.meshTemplates[t.Name] = graphicsTemplate{
			Name:          t.Name,
			SpecConstants: t.SpecConstants,
		}
	}

	for _, t := range rec.ComputeTemplates {
		if _, exists := m.computeTemplates[t.Name]; exists {
			return fmt.Errorf("rendergraph: duplicate compute template name %q", t.Name)
		}
		m.computeTemplates[t.Name] = computeTemplate{
			Name:           t.Name,
			LocalGroupSize: t.LocalGroupSize,
			SpecConstants:  t.SpecConstants,
		}
	}

	for _, p := range rec.RenderPasses {
		if _, exists := m.renderPassInfos[p.Name]; exists {
			return fmt.Errorf("rendergraph: duplicate render-pass name %q", p.Name)
		}
		m.renderPassInfos[p.Name] = p.Desc
	}

	for _, s := range rec.Samplers {
		if _, exists := m.samplerDescs[s.Name]; exists {
			return fmt.Errorf("rendergraph: duplicate sampler name %q", s.Name)
		}
		m.samplerDescs[s.Name] = s.Desc
	}

	return nil
}

// LoadPipelinePackBytes is a convenience wrapper over LoadPipelinePack
// for callers that already hold the pack in memory.
func (m *ResourceManager) LoadPipelinePackBytes(data []byte) error {
	return m.LoadPipelinePack(bytes.NewReader(data))
}

// BindGraphicsTemplateLayout attaches layout to the named graphics
// template, previously registered by LoadPipelinePack.
func (m *ResourceManager) BindGraphicsTemplateLayout(name string, layout handle.Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.graphicsTemplates[name]
	if !ok {
		return fmt.Errorf("rendergraph: unknown graphics template %q", name)
	}
	t.LayoutHandle = layout
	m.graphicsTemplates[name] = t
	return nil
}

// BindMeshTemplateLayout attaches layout to the named mesh template.
func (m *ResourceManager) BindMeshTemplateLayout(name string, layout handle.Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.meshTemplates[name]
	if !ok {
		return fmt.Errorf("rendergraph: unknown mesh template %q", name)
	}
	t.LayoutHandle = layout
	m.meshTemplates[name] = t
	return nil
}

// BindComputeTemplateLayout attaches layout to the named compute template.
func (m *ResourceManager) BindComputeTemplateLayout(name string, layout handle.Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.computeTemplates[name]
	if !ok {
		return fmt.Errorf("rendergraph: unknown compute template %q", name)
	}
	t.LayoutHandle = layout
	m.computeTemplates[name] = t
	return nil
}
