package rcontext

import "github.com/gogpu/rendergraph/handle"

// Compute supersets Transfer with pipeline binding and dispatch.
type Compute interface {
	Transfer

	// BindComputePipeline binds pipeline for subsequent Dispatch calls.
	BindComputePipeline(pipeline handle.Handle)

	// BindDescriptorSet binds set at index, rebasing any dynamic
	// (uniform/storage) bindings it declared by dynamicOffsets.
	BindDescriptorSet(index uint32, set handle.Handle, dynamicOffsets []uint32)

	// PushConstants writes data into the push-constant range starting
	// at offset.
	PushConstants(offset uint32, data []byte)

	// Dispatch issues a compute dispatch of x*y*z workgroups.
	Dispatch(x, y, z uint32)

	// DispatchIndirect reads the dispatch dimensions from buf at
	// offset.
	DispatchIndirect(buf handle.Handle, offset uint64)

	// DispatchBase offsets the workgroup ID space by
	// (baseX, baseY, baseZ) before dispatching x*y*z workgroups.
	DispatchBase(baseX, baseY, baseZ, x, y, z uint32)
}
