package rendergraph

import (
	"github.com/gogpu/rendergraph/handle"
	"github.com/gogpu/rendergraph/rcontext"
	"github.com/gogpu/rendergraph/resmgr"
)

// nodeKind tags which of the four callback shapes a node carries, since
// every node in a frame's arena shares one concrete struct rather than
// four near-identical ones.
type nodeKind uint8

const (
	nodeTransfer nodeKind = iota
	nodeCompute
	nodeGraphics
	nodeRenderPass
)

// nodeState tracks a node through one submit: schedule moves every node
// out of Initial, to Complete when it is emitted in dependency order, or
// to Incomplete when it has an input with no writer this frame that is
// not marked handle.External, an Incomplete predecessor, or a place in a
// dependency cycle. The submit path never assigns Pending.
type nodeState uint8

const (
	stateInitial nodeState = iota
	stateComplete
	stateIncomplete
	statePending
)

// TransferFunc, ComputeFunc, and GraphicsFunc record work against the
// matching capability level; they return false to signal the callback
// declined to record anything (e.g. a conditional pass), which the graph
// logs and skips without treating as Incomplete.
type TransferFunc func(rcontext.Transfer) bool
type ComputeFunc func(rcontext.Compute) bool
type GraphicsFunc func(rcontext.Graphics) bool

// RenderPassSetupFunc fills in a RenderPassSetup describing the logical
// render pass the graph should build before invoking the node's
// RenderPassDrawFunc.
type RenderPassSetupFunc func(*RenderPassSetup)

// RenderPassDrawFunc records draw commands against an already-open
// render pass scoped to one subpass.
type RenderPassDrawFunc func(rcontext.Render) bool

// RenderPassSetup is filled in by a render-pass node's setup callback.
// Attachment Views may be virtual or concrete handles; the graph
// resolves them to concrete images before building the framebuffer.
type RenderPassSetup struct {
	ColorAttachments       []resmgr.RenderPassAttachmentDesc
	DepthStencilAttachment *resmgr.RenderPassAttachmentDesc
	ViewportCount          uint32
	LayerCount             uint32
}

// node is one declared unit of work for the current frame, held in the
// Graph's arena between Add and the matching Submit.
type node struct {
	kind    nodeKind
	queue   handle.Queue
	inputs  []handle.ResourceInput
	outputs []handle.ResourceInput
	dbgName string

	transferFn TransferFunc
	computeFn  ComputeFunc
	graphicsFn GraphicsFunc
	setupFn    RenderPassSetupFunc
	drawFn     RenderPassDrawFunc

	state   nodeState
	writers []int // one entry per input; -1 means no writer this frame

	// renderPassSetup holds the result of invoking setupFn, filled in
	// during scheduling before the merge pass runs so attachment sets can
	// be compared across consecutive render-pass nodes.
	renderPassSetup *RenderPassSetup

	// mergeGroup identifies the run of consecutive render-pass nodes (on
	// the same queue, compatible attachments) this node was coalesced
	// into; -1 until the merge pass assigns it.
	mergeGroup int
}

func (n *node) reset() {
	n.inputs = n.inputs[:0]
	n.outputs = n.outputs[:0]
	n.writers = n.writers[:0]
	n.transferFn = nil
	n.computeFn = nil
	n.graphicsFn = nil
	n.setupFn = nil
	n.drawFn = nil
	n.state = stateInitial
	n.renderPassSetup = nil
	n.mergeGroup = -1
}

// predecessors reports the distinct node indices this node's inputs
// depend on (excluding unresolved/-1 entries).
func (n *node) predecessors() []int {
	preds := make([]int, 0, len(n.writers))
	seen := make(map[int]bool, len(n.writers))
	for _, w := range n.writers {
		if w < 0 || seen[w] {
			continue
		}
		seen[w] = true
		preds = append(preds, w)
	}
	return preds
}
