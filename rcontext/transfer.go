// Package rcontext implements the render graph's capability-lattice
// recorder objects: Transfer ⊂ Compute ⊂ Graphics ⊂ Render, each a Go
// interface embedding the one below it. A single concrete *recorder
// backs every level — callers just hold it through the narrowest
// interface their node kind is admissible for, so the method set itself
// (not a runtime check) is what keeps a transfer callback from issuing
// draw calls.
package rcontext

import "github.com/gogpu/rendergraph/handle"

// ReadResult is delivered to the completion callback passed to
// Transfer.ReadBuffer/ReadImage once the staging copy the graph
// recorded has retired on the GPU.
type ReadResult struct {
	Data []byte
	Err  error
}

// Transfer is the narrowest context: copies, clears, and the
// asynchronous staged-readback surface every other level builds on.
type Transfer interface {
	// ClearColorImage clears img to color.
	ClearColorImage(img handle.Handle, color [4]float32)

	// ClearDepthStencilImage clears img's depth/stencil aspects.
	ClearDepthStencilImage(img handle.Handle, depth float32, stencil uint32)

	// FillBuffer fills [offset, offset+size) of buf with value,
	// repeated as a 4-byte pattern.
	FillBuffer(buf handle.Handle, offset, size uint64, value uint32)

	// UpdateBuffer writes data inline into buf at offset; intended for
	// small, command-stream-embedded updates rather than staged
	// transfers.
	UpdateBuffer(buf handle.Handle, offset uint64, data []byte)

	// UpdateMappedBuffer writes data directly into a host-visible
	// buffer's mapped range at offset, without going through a staging
	// copy. Fails if buf was not created with a host-visible usage.
	UpdateMappedBuffer(buf handle.Handle, offset uint64, data []byte) error

	// MapHostBuffer returns buf's mapped host-visible range. Fails if
	// buf was not created with a host-visible usage.
	MapHostBuffer(buf handle.Handle) ([]byte, error)

	// ReadBuffer copies [offset, offset+size) of buf through a staging
	// page and invokes complete once the copy has retired on the GPU.
	ReadBuffer(buf handle.Handle, offset, size uint64, complete func(ReadResult)) error

	// ReadImage copies img through a staging page and invokes complete
	// once the copy has retired on the GPU.
	ReadImage(img handle.Handle, complete func(ReadResult)) error

	// CopyBuffer copies size bytes from src[srcOffset:] to
	// dst[dstOffset:].
	CopyBuffer(src, dst handle.Handle, srcOffset, dstOffset, size uint64)

	// CopyImage copies src's full extent into dst.
	CopyImage(src, dst handle.Handle)

	// CopyBufferToImage copies src's bytes into dst's texel data.
	CopyBufferToImage(src, dst handle.Handle)

	// CopyImageToBuffer copies src's texel data into dst's bytes.
	CopyImageToBuffer(src, dst handle.Handle)

	// Present hands image's mip/layer to the swapchain, waiting on any
	// semaphores the batch recorded for cross-queue ordering.
	Present(image handle.Handle, mip, layer uint32)

	// NativeContext returns the backend-native recording object
	// (e.g. a VkCommandBuffer) for escape-hatch interop. Its concrete
	// type depends on the active driver backend.
	NativeContext() any
}
