package resmgr

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/rendergraph/driver"
	"github.com/gogpu/rendergraph/rgerrors"
)

// normalizeGraphics applies the render-state normalization rules so
// that structurally-equivalent pipeline requests hash and compare
// equal. It never mutates desc; it returns a normalized copy.
func normalizeGraphics(desc GraphicsPipelineDesc, dualSourceBlendSupported bool) (GraphicsPipelineDesc, error) {
	n := desc
	n.ColorTargets = append([]ColorTargetDesc(nil), desc.ColorTargets...)
	if desc.DepthStencil != nil {
		ds := *desc.DepthStencil
		n.DepthStencil = &ds
	}

	// Rule 1: rasterizer discard clears color/depth/stencil and strips
	// rasterizer-mask dynamic bits.
	if n.RasterizerDiscard {
		n.ColorTargets = nil
		n.DepthStencil = nil
		n.DynamicState &^= driver.DynamicViewport | driver.DynamicScissor |
			driver.DynamicDepthBias | driver.DynamicLineWidth
	}

	// Rule 2: every dynamic bit set resets its static state to a
	// canonical zero, so the baked-in value never perturbs the hash.
	if n.DynamicState&driver.DynamicStencilCompareMask != 0 && n.DepthStencil != nil {
		n.DepthStencil.StencilReadMask = 0xFFFFFFFF
	}
	if n.DynamicState&driver.DynamicStencilWriteMask != 0 && n.DepthStencil != nil {
		n.DepthStencil.StencilWriteMask = 0xFFFFFFFF
	}
	if n.DynamicState&driver.DynamicStencilReference != 0 && n.DepthStencil != nil {
		n.DepthStencil.StencilReference = 0
	}
	if n.DynamicState&driver.DynamicDepthBounds != 0 && n.DepthStencil != nil && !n.DepthStencil.DepthBoundsTest {
		n.DepthStencil.MinDepthBounds = 0
		n.DepthStencil.MaxDepthBounds = 1
	}
	if n.DepthStencil != nil && !n.DepthStencil.StencilTest {
		n.DepthStencil.StencilReadMask = 0
		n.DepthStencil.StencilWriteMask = 0
		n.DepthStencil.StencilReference = 0
	}

	// Rule 3: disabled blend forces canonical (One,One,Zero,Zero)/Add;
	// dual-source blend without driver support is a validation failure.
	for i := range n.ColorTargets {
		ct := &n.ColorTargets[i]
		if ct.DualSourceBlend && !dualSourceBlendSupported {
			return GraphicsPipelineDesc{}, rgerrors.NewValidationError("GraphicsPipeline", "ColorTargets",
				"dual-source blend factor used without driver support")
		}
		if !ct.Blend {
			ct.ColorSrc = gputypes.BlendFactorOne
			ct.ColorDst = gputypes.BlendFactorZero
			ct.ColorOp = gputypes.BlendOperationAdd
			ct.AlphaSrc = gputypes.BlendFactorOne
			ct.AlphaDst = gputypes.BlendFactorZero
			ct.AlphaOp = gputypes.BlendOperationAdd
		}
	}

	// Rule 4: depth-test-off forces the compare op to LEqual.
	if n.DepthStencil != nil && !n.DepthStencil.DepthTest {
		n.DepthStencil.DepthCompare = gputypes.CompareFunctionLessEqual
	}

	return n, nil
}

// hashGraphics computes a stable xxhash64 over a normalized
// GraphicsPipelineDesc. Field order is fixed so that two normalized
// descriptions that compare equal always hash equal.
func hashGraphics(n GraphicsPipelineDesc) uint64 {
	h := xxhash.New()
	writeGraphicsFields(h, n)
	return h.Sum64()
}

// hashGraphicsNamed folds the owning template name into the hash so that
// two different named pipelines sharing identical normalized state never
// collide in the shared cached pool.
func hashGraphicsNamed(name string, n GraphicsPipelineDesc) uint64 {
	h := xxhash.New()
	h.Write([]byte(name))
	writeGraphicsFields(h, n)
	return h.Sum64()
}

func writeGraphicsFields(h *xxhash.Digest, n GraphicsPipelineDesc) {
	var buf [8]byte

	writeU32 := func(v uint32) {
		binary.LittleEndian.PutUint32(buf[:4], v)
		h.Write(buf[:4])
	}
	writeU64 := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}
	writeBool := func(b bool) {
		if b {
			h.Write([]byte{1})
		} else {
			h.Write([]byte{0})
		}
	}

	writeU32(uint32(n.Topology))
	writeU32(n.PatchControlPoints)
	writeU32(uint32(n.CullMode))
	writeU32(uint32(n.FrontFace))
	writeBool(n.RasterizerDiscard)
	writeU32(n.SampleCount)
	writeU32(uint32(n.DynamicState))

	writeU32(uint32(len(n.ColorTargets)))
	for _, ct := range n.ColorTargets {
		writeU32(uint32(ct.Format))
		writeBool(ct.Blend)
		writeU32(uint32(ct.ColorSrc))
		writeU32(uint32(ct.ColorDst))
		writeU32(uint32(ct.ColorOp))
		writeU32(uint32(ct.AlphaSrc))
		writeU32(uint32(ct.AlphaDst))
		writeU32(uint32(ct.AlphaOp))
		writeU32(uint32(ct.WriteMask))
	}

	if n.DepthStencil == nil {
		h.Write([]byte{0})
	} else {
		h.Write([]byte{1})
		ds := n.DepthStencil
		writeU32(uint32(ds.Format))
		writeBool(ds.DepthTest)
		writeBool(ds.DepthWrite)
		writeU32(uint32(ds.DepthCompare))
		writeBool(ds.DepthBoundsTest)
		writeU64(uint64(ds.MinDepthBounds))
		writeU64(uint64(ds.MaxDepthBounds))
		writeBool(ds.StencilTest)
		writeU32(ds.StencilReadMask)
		writeU32(ds.StencilWriteMask)
		writeU32(ds.StencilReference)
	}
}

// normalizeMesh applies the same color/depth-stencil normalization rules
// as normalizeGraphics (mesh pipelines have no topology/tessellation
// state to normalize).
func normalizeMesh(desc MeshPipelineDesc, dualSourceBlendSupported bool) (MeshPipelineDesc, error) {
	asGraphics := GraphicsPipelineDesc{
		CullMode:     desc.CullMode,
		SampleCount:  desc.SampleCount,
		ColorTargets: desc.ColorTargets,
		DepthStencil: desc.DepthStencil,
		DynamicState: desc.DynamicState,
	}
	n, err := normalizeGraphics(asGraphics, dualSourceBlendSupported)
	if err != nil {
		return MeshPipelineDesc{}, err
	}
	return MeshPipelineDesc{
		CullMode:     n.CullMode,
		SampleCount:  n.SampleCount,
		ColorTargets: n.ColorTargets,
		DepthStencil: n.DepthStencil,
		DynamicState: n.DynamicState,
	}, nil
}

func hashMeshNamed(name string, n MeshPipelineDesc) uint64 {
	return hashGraphicsNamed(name, GraphicsPipelineDesc{
		CullMode:     n.CullMode,
		SampleCount:  n.SampleCount,
		ColorTargets: n.ColorTargets,
		DepthStencil: n.DepthStencil,
		DynamicState: n.DynamicState,
	})
}

func meshDeepEqual(a, b MeshPipelineDesc) bool {
	return graphicsDeepEqual(
		GraphicsPipelineDesc{CullMode: a.CullMode, SampleCount: a.SampleCount, ColorTargets: a.ColorTargets, DepthStencil: a.DepthStencil, DynamicState: a.DynamicState},
		GraphicsPipelineDesc{CullMode: b.CullMode, SampleCount: b.SampleCount, ColorTargets: b.ColorTargets, DepthStencil: b.DepthStencil, DynamicState: b.DynamicState},
	)
}

// hashComputeNamed hashes the owning template name plus the local-group-
// size override, the only state a compute pipeline request can vary.
func hashComputeNamed(name string, desc ComputePipelineDesc) uint64 {
	h := xxhash.New()
	h.Write([]byte(name))
	if desc.LocalGroupSizeOverride == nil {
		h.Write([]byte{0})
	} else {
		h.Write([]byte{1})
		var buf [4]byte
		for _, v := range desc.LocalGroupSizeOverride {
			binary.LittleEndian.PutUint32(buf[:], v)
			h.Write(buf[:])
		}
	}
	return h.Sum64()
}

func computeDeepEqual(a, b ComputePipelineDesc) bool {
	if (a.LocalGroupSizeOverride == nil) != (b.LocalGroupSizeOverride == nil) {
		return false
	}
	if a.LocalGroupSizeOverride == nil {
		return true
	}
	return *a.LocalGroupSizeOverride == *b.LocalGroupSizeOverride
}

func equalGraphics(a, b GraphicsPipelineDesc) bool {
	return hashGraphics(a) == hashGraphics(b) && graphicsDeepEqual(a, b)
}

// graphicsDeepEqual guards against hash collisions between two
// structurally different descriptions (the cached pool's linear probe
// still calls this after a hash match).
func graphicsDeepEqual(a, b GraphicsPipelineDesc) bool {
	if a.Topology != b.Topology || a.PatchControlPoints != b.PatchControlPoints ||
		a.CullMode != b.CullMode || a.FrontFace != b.FrontFace ||
		a.RasterizerDiscard != b.RasterizerDiscard || a.SampleCount != b.SampleCount ||
		a.DynamicState != b.DynamicState || len(a.ColorTargets) != len(b.ColorTargets) {
		return false
	}
	for i := range a.ColorTargets {
		if a.ColorTargets[i] != b.ColorTargets[i] {
			return false
		}
	}
	if (a.DepthStencil == nil) != (b.DepthStencil == nil) {
		return false
	}
	if a.DepthStencil != nil && *a.DepthStencil != *b.DepthStencil {
		return false
	}
	return true
}
