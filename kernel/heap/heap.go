// Package heap maps the kernel heap region and manages dynamic allocations
// inside it.
package heap

import (
	"github.com/nearsyh/near-os/kernel"
	"github.com/nearsyh/near-os/kernel/kfmt"
	"github.com/nearsyh/near-os/kernel/mm"
	"github.com/nearsyh/near-os/kernel/mm/vmm"
)

const (
	// Start is the virtual address where the kernel heap begins.
	Start = uintptr(0x4444_4444_0000)

	// Size is the size of the kernel heap.
	Size = 100 * mm.Kb
)

var (
	// ErrHeapInitialized is returned when Init is called more than once.
	ErrHeapInitialized = &kernel.Error{Module: "heap", Message: "heap already initialized"}

	kernelHeap        LockedHeap
	heapInitAttempted bool
)

// Mapper is implemented by types that can map virtual pages to physical frames.
type Mapper interface {
	MapTo(page mm.Page, frame mm.Frame, flags vmm.PageTableEntryFlag, frames mm.FrameAllocator) (vmm.TLBFlush, *kernel.Error)
}

// Init maps every page of the heap region to a frame obtained from frames and
// sets up the kernel heap on top of it. The first failure aborts Init; pages
// mapped up to that point are left in place.
//
// Init may only be called once. Further calls return ErrHeapInitialized
// without touching any mapping.
func Init(mapper Mapper, frames mm.FrameAllocator) (*LockedHeap, *kernel.Error) {
	if heapInitAttempted {
		return nil, ErrHeapInitialized
	}
	heapInitAttempted = true

	if err := mapRegion(Start, Size, mapper, frames); err != nil {
		return nil, err
	}

	kernelHeap.init(Start, uintptr(Size))
	kfmt.Printf("[heap] initialized %dKb heap at 0x%x\n", uint64(Size/mm.Kb), Start)
	return &kernelHeap, nil
}

// mapRegion maps the pages covering [start, start+size) to newly allocated
// frames as present and writable.
func mapRegion(start uintptr, size mm.Size, mapper Mapper, frames mm.FrameAllocator) *kernel.Error {
	firstPage, lastPage := mm.PageRange(start, size)

	for page := firstPage; page <= lastPage; page++ {
		frame, err := frames.AllocFrame()
		if err != nil {
			return err
		}

		flush, err := mapper.MapTo(page, frame, vmm.FlagPresent|vmm.FlagRW, frames)
		if err != nil {
			return err
		}
		flush.Flush()
	}

	return nil
}
