package rendergraph

// mergeGroups assigns each render-pass node in order a mergeGroup index,
// coalescing a maximal run of consecutive render-pass nodes on the same
// queue into one driver render pass with multiple subpasses when their
// attachment sets line up exactly: same color attachment views (in the
// same order), same depth/stencil view, same viewport count, same layer
// count. order is
// the topological emission order produced by scheduling; only entries
// naming a render-pass node participate.
func (g *Graph) mergeGroups(order []int) {
	group := -1
	var prevQueue int = -1
	var prev *node

	for _, idx := range order {
		n := g.arena.at(idx)
		if n.kind != nodeRenderPass {
			n.mergeGroup = -1
			prev = nil
			continue
		}

		if prev != nil && int(n.queue) == prevQueue && attachmentsCompatible(prev, n) {
			n.mergeGroup = group
			prev = n
			continue
		}

		group++
		n.mergeGroup = group
		prevQueue = int(n.queue)
		prev = n
	}
}

func attachmentsCompatible(a, b *node) bool {
	if a.renderPassSetup == nil || b.renderPassSetup == nil {
		return false
	}
	as, bs := a.renderPassSetup, b.renderPassSetup
	if as.ViewportCount != bs.ViewportCount {
		return false
	}
	if as.LayerCount != bs.LayerCount {
		return false
	}
	if len(as.ColorAttachments) != len(bs.ColorAttachments) {
		return false
	}
	for i := range as.ColorAttachments {
		ac, bc := as.ColorAttachments[i], bs.ColorAttachments[i]
		if ac.View != bc.View || ac.Format != bc.Format || ac.Dimensions != bc.Dimensions || ac.SampleCount != bc.SampleCount {
			return false
		}
	}
	if (as.DepthStencilAttachment == nil) != (bs.DepthStencilAttachment == nil) {
		return false
	}
	if as.DepthStencilAttachment != nil {
		ad, bd := *as.DepthStencilAttachment, *bs.DepthStencilAttachment
		if ad.View != bd.View || ad.Format != bd.Format || ad.Dimensions != bd.Dimensions || ad.SampleCount != bd.SampleCount {
			return false
		}
	}
	return true
}
