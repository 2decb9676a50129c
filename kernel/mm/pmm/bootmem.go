// Package pmm implements the physical memory manager that hands out page
// frames during kernel bootstrap.
package pmm

import (
	"github.com/nearsyh/near-os/kernel"
	"github.com/nearsyh/near-os/kernel/bootinfo"
	"github.com/nearsyh/near-os/kernel/kfmt"
	"github.com/nearsyh/near-os/kernel/mm"
)

var (
	// ErrFrameExhausted is returned by frame allocators once every usable
	// frame has been handed out.
	ErrFrameExhausted = &kernel.Error{Module: "pmm", Message: "out of physical frames"}
)

// BootMemAllocator implements a rudimentary physical memory allocator which is
// used to bootstrap the kernel.
//
// The allocator treats the usable regions of the boot memory map, in the
// order they are reported, as one sequence of page frames and keeps a cursor
// into that sequence. Every call to AllocFrame returns the frame under the
// cursor and advances it; the cursor advances even when the sequence has been
// exhausted so once AllocFrame fails it keeps failing.
//
// Allocated frames can never be freed. A more advanced allocator can take
// over once the kernel is initialized.
type BootMemAllocator struct {
	memMap *bootinfo.MemoryMap

	// next is the index of the next frame to hand out.
	next uint64

	// allocCount tracks the total number of allocated frames.
	allocCount uint64
}

// Init sets up the allocator to serve frames from the usable regions of
// memMap. The allocator keeps a reference to memMap which must not be
// modified afterwards.
func (alloc *BootMemAllocator) Init(memMap *bootinfo.MemoryMap) {
	alloc.memMap = memMap
	alloc.next = 0
	alloc.allocCount = 0
}

// AllocFrame reserves the next available free frame. It returns
// ErrFrameExhausted if no more memory can be allocated.
func (alloc *BootMemAllocator) AllocFrame() (mm.Frame, *kernel.Error) {
	var (
		index = alloc.next
		frame = mm.InvalidFrame
	)
	alloc.next++

	if alloc.memMap == nil {
		return mm.InvalidFrame, ErrFrameExhausted
	}

	alloc.memMap.Visit(func(region *bootinfo.MemoryRegion) bool {
		startFrame, endFrame, ok := regionFrames(region)
		if !ok {
			return true
		}

		if count := endFrame - startFrame; index >= count {
			index -= count
			return true
		}

		frame = mm.Frame(startFrame + index)
		return false
	})

	if !frame.Valid() {
		return mm.InvalidFrame, ErrFrameExhausted
	}

	alloc.allocCount++
	return frame, nil
}

// AllocatedFrames returns the number of frames handed out so far.
func (alloc *BootMemAllocator) AllocatedFrames() uint64 {
	return alloc.allocCount
}

// PrintMemoryMap prints out the system's memory map and the amount of usable
// memory.
func (alloc *BootMemAllocator) PrintMemoryMap() {
	kfmt.Printf("[pmm] system memory map:\n")
	if alloc.memMap == nil {
		return
	}

	var totalFree mm.Size
	alloc.memMap.Visit(func(region *bootinfo.MemoryRegion) bool {
		kfmt.Printf("\t[0x%10x - 0x%10x], size: %10d, type: %s\n", region.Start, region.End, region.Length(), region.Type.String())

		if startFrame, endFrame, ok := regionFrames(region); ok {
			totalFree += mm.Size((endFrame - startFrame) << mm.PageShift)
		}
		return true
	})
	kfmt.Printf("[pmm] free memory: %dKb\n", uint64(totalFree/mm.Kb))
}

// regionFrames returns the [start, end) frame numbers covered by a usable
// region. Reported addresses may not be page-aligned; the start is rounded up
// and the end rounded down so partial pages are never used.
func regionFrames(region *bootinfo.MemoryRegion) (uint64, uint64, bool) {
	if !region.Usable() {
		return 0, 0, false
	}

	pageSizeMinus1 := uint64(mm.PageSize - 1)
	startFrame := ((region.Start + pageSizeMinus1) & ^pageSizeMinus1) >> mm.PageShift
	endFrame := (region.End & ^pageSizeMinus1) >> mm.PageShift
	if endFrame <= startFrame {
		return 0, 0, false
	}

	return startFrame, endFrame, true
}
