package rcontext

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/rendergraph/handle"
)

// Graphics supersets Compute with the image-resampling operations that
// don't require an active render pass.
type Graphics interface {
	Compute

	// BlitImage copies src into dst, resampling with filter when their
	// extents differ.
	BlitImage(src, dst handle.Handle, filter gputypes.FilterMode)

	// ResolveImage resolves a multisampled src into a single-sampled
	// dst.
	ResolveImage(src, dst handle.Handle)
}
