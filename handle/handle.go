// Package handle defines the generational resource handle shared by the
// resource pool, resource manager, and render graph.
package handle

import "fmt"

// Index is the slot index component of a handle, local to one Kind's pool.
type Index = uint32

// Generation is the pool-slot generation; it is bumped every time a
// released slot is reassigned so that stale handles compare unequal to
// their successor.
type Generation = uint32

// Kind tags a handle's resource category. Buffer, Image and the virtual
// kinds each map to one pool; the resource manager's sampler, layout,
// pipeline, render-pass, framebuffer, descriptor-set and command-buffer
// pools all issue Dependency-kind handles, so for those the kind alone
// does not identify the pool.
type Kind uint8

const (
	// Unknown is the zero value; also used for plain dependency edges that
	// carry no resource payload of their own.
	Unknown Kind = iota
	Dependency
	Buffer
	Image
	VirtualBuffer
	VirtualImage
	RTGeometry
	RTScene

	kindCount
)

// String renders a Kind for logs and debug output.
func (k Kind) String() string {
	switch k {
	case Unknown:
		return "Unknown"
	case Dependency:
		return "Dependency"
	case Buffer:
		return "Buffer"
	case Image:
		return "Image"
	case VirtualBuffer:
		return "VirtualBuffer"
	case VirtualImage:
		return "VirtualImage"
	case RTGeometry:
		return "RTGeometry"
	case RTScene:
		return "RTScene"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// IsVirtual reports whether the kind denotes a logical resource that has
// no driver object until the render graph binds it at submit time.
func (k Kind) IsVirtual() bool {
	return k == VirtualBuffer || k == VirtualImage
}

// KindCount is the number of valid Kind values, for sizing per-kind arrays.
const KindCount = int(kindCount)

// Handle is an opaque reference to a slot in a Kind's resource pool.
//
// A zero Handle is never alive: index 0 is a valid slot index, but
// Generation starts counting at 1 (see respool.Pool), so the zero value
// can always be used as a sentinel "no handle" value.
type Handle struct {
	index Index
	gen   Generation
	kind  Kind
}

// New constructs a Handle from its components. Only respool.Pool should
// call this when minting fresh handles; everything else treats handles as
// opaque values received from the manager.
func New(index Index, gen Generation, kind Kind) Handle {
	return Handle{index: index, gen: gen, kind: kind}
}

// Index returns the slot index.
func (h Handle) Index() Index { return h.index }

// Generation returns the slot generation at the time this handle was
// issued.
func (h Handle) Generation() Generation { return h.gen }

// Kind returns the resource kind this handle addresses.
func (h Handle) Kind() Kind { return h.kind }

// IsZero reports whether h is the zero Handle (never a live resource).
func (h Handle) IsZero() bool {
	return h == Handle{}
}

// String renders a handle for diagnostics: Kind(index,generation).
func (h Handle) String() string {
	return fmt.Sprintf("%s(%d,%d)", h.kind, h.index, h.gen)
}

// Unique wraps a Handle that owns the single live reference to its
// resource. Copying a Unique is a compile error by convention (copy the
// result of Weak() instead); Take hands the owned handle back so the
// caller can return the reference to the pool.
//
// Per spec invariant (c): a Unique holds at most one reference and gives
// it up exactly once, through Take; plain Handle copies are non-owning weak
// references that callers must validate with Pool.IsAlive before use.
type Unique struct {
	h        Handle
	released bool
}

// NewUnique wraps h as the sole owning reference.
func NewUnique(h Handle) Unique {
	return Unique{h: h}
}

// Weak returns a non-owning copy of the wrapped handle.
func (u *Unique) Weak() Handle {
	return u.h
}

// Released reports whether Take has already run.
func (u *Unique) Released() bool {
	return u.released
}

// Take marks the Unique as released and returns the wrapped handle so the
// caller can perform the single matching pool release. Calling Take twice
// panics: it indicates a double-free of the same owning handle.
func (u *Unique) Take() Handle {
	if u.released {
		panic("handle: Unique released twice")
	}
	u.released = true
	return u.h
}
