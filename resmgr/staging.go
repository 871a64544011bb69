package resmgr

import (
	"sync/atomic"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/rendergraph/driver"
	"github.com/gogpu/rendergraph/rgerrors"
)

// stagingTag distinguishes the three staging pools packed into a
// StagingIndex's top 2 bits.
type stagingTag uint32

const (
	writeStagingTag stagingTag = iota
	readStagingTag
	uniformStagingTag
)

const stagingSlotBits = 30
const stagingSlotMask = 1<<stagingSlotBits - 1

// StagingIndex packs (pool_tag:2, slot_index:30) so a single uint32
// names both which pool a staging page came from and which page within
// it.
type StagingIndex uint32

func newStagingIndex(tag stagingTag, slot uint32) StagingIndex {
	return StagingIndex(uint32(tag)<<stagingSlotBits | slot&stagingSlotMask)
}

// Tag reports which of the three staging pools index was allocated from.
func (s StagingIndex) Tag() stagingTag { return stagingTag(uint32(s) >> stagingSlotBits) }

// Slot reports the page index within that pool.
func (s StagingIndex) Slot() uint32 { return uint32(s) & stagingSlotMask }

// transferPageLadder and uniformPageLadder are the discrete MiB ladders
// for write/read and uniform staging pages respectively; pickPageSize
// snaps a configured size onto one of these so the pool matches the
// tuning observed in practice rather than an arbitrary size.
var transferPageLadder = [3]uint64{64, 128, 256}
var uniformPageLadder = [3]uint64{16, 32, 64}

const mebibyte = 1 << 20

// pickPageSize snaps requestedMiB onto the smallest ladder rung at least
// that large, defaulting to the smallest rung when requestedMiB is zero
// and clamping to the largest rung when requestedMiB overshoots it.
func pickPageSize(requestedMiB int, ladder [3]uint64) uint64 {
	if requestedMiB <= 0 {
		return ladder[0] * mebibyte
	}
	req := uint64(requestedMiB)
	for _, rung := range ladder {
		if req <= rung {
			return rung * mebibyte
		}
	}
	return ladder[len(ladder)-1] * mebibyte
}

// stagingPage is one lazily-allocated host-visible page. The driver
// buffer is created on first acquisition rather than up front, since a
// frame may never touch every page a pool was sized for.
type stagingPage struct {
	buf driver.Buffer
}

// stagingPool sub-allocates whole pages from a fixed array using an
// atomic bitmap rather than a free-list, favoring a fixed page-table
// with atomic slot bitmaps over a free-list; the page-size ladder
// mirrors common staging-buffer block allocators, simplified to
// whole-page granularity since each pool here is a fixed array of page
// buffers rather than one sub-allocated buffer per pool.
type stagingPool struct {
	tag      stagingTag
	usage    gputypes.BufferUsage
	pageSize uint64
	pages    []stagingPage
	inUse    []uint32 // 0 = free, 1 = taken; CAS'd
}

func newStagingPool(tag stagingTag, pageSize uint64, pageCount int) *stagingPool {
	usage := gputypes.BufferUsageMapWrite | gputypes.BufferUsageCopySrc
	switch tag {
	case readStagingTag:
		usage = gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst
	case uniformStagingTag:
		usage = gputypes.BufferUsageMapWrite | gputypes.BufferUsageUniform
	}
	return &stagingPool{
		tag:      tag,
		usage:    usage,
		pageSize: pageSize,
		pages:    make([]stagingPage, pageCount),
		inUse:    make([]uint32, pageCount),
	}
}

// acquire claims the first free page, creating its driver buffer on first
// use, and returns a StagingIndex identifying it.
func (p *stagingPool) acquire(device driver.Device) (StagingIndex, driver.Buffer, error) {
	for i := range p.inUse {
		if !atomic.CompareAndSwapUint32(&p.inUse[i], 0, 1) {
			continue
		}
		if p.pages[i].buf == nil {
			buf, err := device.CreateBuffer(&driver.BufferDescriptor{
				Label: "staging", Size: p.pageSize, Usage: p.usage,
			})
			if err != nil {
				atomic.StoreUint32(&p.inUse[i], 0)
				return 0, nil, err
			}
			p.pages[i].buf = buf
		}
		return newStagingIndex(p.tag, uint32(i)), p.pages[i].buf, nil
	}
	return 0, nil, rgerrors.ErrPoolOverflow
}

// release returns the page addressed by index to the free bitmap without
// destroying its driver buffer, so a later acquire reuses the allocation.
func (p *stagingPool) release(index StagingIndex) bool {
	slot := index.Slot()
	if int(slot) >= len(p.inUse) {
		return false
	}
	return atomic.CompareAndSwapUint32(&p.inUse[slot], 1, 0)
}

// bufferAt returns the driver buffer behind a live index, if any.
func (p *stagingPool) bufferAt(index StagingIndex) (driver.Buffer, bool) {
	slot := index.Slot()
	if int(slot) >= len(p.pages) || p.pages[slot].buf == nil {
		return nil, false
	}
	return p.pages[slot].buf, true
}

// destroyAll tears down every allocated page's driver buffer; called when
// the owning ResourceManager is torn down.
func (p *stagingPool) destroyAll(device driver.Device) {
	for i := range p.pages {
		if p.pages[i].buf != nil {
			device.DestroyBuffer(p.pages[i].buf)
			p.pages[i].buf = nil
		}
	}
}

func (m *ResourceManager) stagingPoolFor(tag stagingTag) *stagingPool {
	switch tag {
	case writeStagingTag:
		return m.writeStaging
	case readStagingTag:
		return m.readStaging
	default:
		return m.uniformStaging
	}
}

// AllocStaging reserves a page from the write, read, or uniform pool
// matching usage and returns its driver buffer alongside the packed index
// callers pass to ReleaseStaging.
func (m *ResourceManager) AllocStaging(usage gputypes.BufferUsage) (driver.Buffer, StagingIndex, error) {
	tag := writeStagingTag
	switch {
	case usage&gputypes.BufferUsageMapRead != 0:
		tag = readStagingTag
	case usage&gputypes.BufferUsageUniform != 0:
		tag = uniformStagingTag
	}
	index, buf, err := m.stagingPoolFor(tag).acquire(m.device)
	if err != nil {
		return nil, 0, rgerrors.NewValidationError("AllocStaging", "", err.Error())
	}
	return buf, index, nil
}

// ReleaseStaging returns a previously allocated staging page to its pool.
func (m *ResourceManager) ReleaseStaging(index StagingIndex) bool {
	return m.stagingPoolFor(index.Tag()).release(index)
}

// StagingBuffer returns the driver buffer backing a live staging index.
func (m *ResourceManager) StagingBuffer(index StagingIndex) (driver.Buffer, bool) {
	return m.stagingPoolFor(index.Tag()).bufferAt(index)
}
