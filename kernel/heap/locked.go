package heap

import (
	"github.com/nearsyh/near-os/kernel"
	"github.com/nearsyh/near-os/kernel/sync"
)

// LockedHeap is the kernel's dynamic memory allocator. All operations are
// serialized by a spinlock so the heap can be shared with interrupt handlers;
// allocating from a handler that interrupted a heap operation deadlocks.
type LockedHeap struct {
	lock sync.Spinlock
	list holeList
}

func (h *LockedHeap) init(start, size uintptr) {
	h.lock.Acquire()
	h.list.init(start, size)
	h.lock.Release()
}

// Alloc reserves size bytes aligned to align and returns the block address.
// align must be a power of two. Sizes are rounded up to a multiple of 8 bytes
// with a minimum of 16 bytes.
func (h *LockedHeap) Alloc(size, align uintptr) (uintptr, *kernel.Error) {
	h.lock.Acquire()
	addr, err := h.list.alloc(size, align)
	h.lock.Release()
	return addr, err
}

// Free releases a block returned by Alloc. size and align must match the
// values passed to Alloc.
func (h *LockedHeap) Free(addr, size, align uintptr) *kernel.Error {
	h.lock.Acquire()
	err := h.list.free(addr, size, align)
	h.lock.Release()
	return err
}

// Realloc moves the block at addr to a new block of newSize bytes with the
// same alignment, copying the contents that fit. The old block is freed; on
// failure it is left untouched. The old block is validated the way Free does
// before anything is allocated.
func (h *LockedHeap) Realloc(addr, size, align, newSize uintptr) (uintptr, *kernel.Error) {
	h.lock.Acquire()
	defer h.lock.Release()

	if _, _, err := h.list.checkFree(addr, size, align); err != nil {
		return 0, err
	}

	newAddr, err := h.list.alloc(newSize, align)
	if err != nil {
		return 0, err
	}

	copySize := size
	if newSize < copySize {
		copySize = newSize
	}
	kernel.Memcopy(addr, newAddr, copySize)

	if err = h.list.free(addr, size, align); err != nil {
		_ = h.list.free(newAddr, newSize, align)
		return 0, err
	}

	return newAddr, nil
}

// Stats returns the number of bytes currently allocated and the number of
// bytes still available.
func (h *LockedHeap) Stats() (used, free uintptr) {
	h.lock.Acquire()
	used, free = h.list.used, h.list.freeBytes()
	h.lock.Release()
	return used, free
}

// Bounds returns the address range [bottom, top) managed by the heap.
func (h *LockedHeap) Bounds() (bottom, top uintptr) {
	h.lock.Acquire()
	bottom, top = h.list.bottom, h.list.top
	h.lock.Release()
	return bottom, top
}
