package heap

import (
	"unsafe"

	"github.com/nearsyh/near-os/kernel"
)

var (
	// ErrOutOfMemory is returned when no free block can satisfy an allocation.
	ErrOutOfMemory = &kernel.Error{Module: "heap", Message: "out of memory"}

	// ErrInvalidLayout is returned when the requested alignment is not a power of two.
	ErrInvalidLayout = &kernel.Error{Module: "heap", Message: "alignment must be a power of two"}

	// ErrInvalidFree is returned when freeing a block that does not belong to the heap.
	ErrInvalidFree = &kernel.Error{Module: "heap", Message: "freed block is outside the heap or already free"}
)

const (
	// minBlockSize is the smallest block the heap hands out. Every free
	// block must be able to hold a hole header.
	minBlockSize = unsafe.Sizeof(hole{})

	// blockAlign is the alignment of every block and hole.
	blockAlign = unsafe.Alignof(hole{})
)

// hole is the header written at the start of each free block.
type hole struct {
	size uintptr

	// next is the address of the following hole or 0 for the last hole.
	next uintptr
}

func holeAt(addr uintptr) *hole {
	return (*hole)(unsafe.Pointer(addr))
}

// holeList is a first-fit allocator that keeps the free blocks of a memory
// region in an address-ordered linked list. The list is stored inside the free
// blocks themselves; adjacent free blocks are merged when a block is freed.
type holeList struct {
	// head is a zero-sized sentinel whose next field points to the
	// lowest hole.
	head hole

	bottom, top uintptr
	used        uintptr
}

// init hands the region [start, start+size) to the allocator.
func (l *holeList) init(start, size uintptr) {
	l.bottom = alignUp(start, blockAlign)
	l.top = (start + size) &^ (blockAlign - 1)
	l.used = 0
	l.head = hole{}

	if l.top <= l.bottom || l.top-l.bottom < minBlockSize {
		l.top = l.bottom
		return
	}

	*holeAt(l.bottom) = hole{size: l.top - l.bottom}
	l.head.next = l.bottom
}

// alloc reserves a block of at least size bytes aligned to align. The list
// is left untouched if no hole is large enough.
func (l *holeList) alloc(size, align uintptr) (uintptr, *kernel.Error) {
	size, align, err := normalizeLayout(size, align)
	if err != nil {
		return 0, err
	}

	for prev := &l.head; prev.next != 0; prev = holeAt(prev.next) {
		var (
			cur       = holeAt(prev.next)
			holeStart = prev.next
			holeEnd   = holeStart + cur.size
			allocAddr = alignUp(holeStart, align)
		)

		// The space in front of the block must either be empty or large
		// enough to remain a hole.
		if frontPad := allocAddr - holeStart; frontPad != 0 && frontPad < minBlockSize {
			allocAddr = alignUp(holeStart+minBlockSize, align)
		}

		allocEnd := allocAddr + size
		if allocAddr < holeStart || allocEnd < allocAddr || allocEnd > holeEnd {
			continue
		}

		// Same for the space behind it.
		backPad := holeEnd - allocEnd
		if backPad != 0 && backPad < minBlockSize {
			continue
		}

		next := cur.next
		if backPad != 0 {
			*holeAt(allocEnd) = hole{size: backPad, next: next}
			next = allocEnd
		}

		if allocAddr != holeStart {
			cur.size = allocAddr - holeStart
			cur.next = next
		} else {
			prev.next = next
		}

		l.used += size
		return allocAddr, nil
	}

	return 0, ErrOutOfMemory
}

// free returns a block obtained from alloc with the same size and align.
func (l *holeList) free(addr, size, align uintptr) *kernel.Error {
	size, prev, err := l.checkFree(addr, size, align)
	if err != nil {
		return err
	}

	var (
		end      = addr + size
		prevAddr = uintptr(unsafe.Pointer(prev))
	)

	block := holeAt(addr)
	*block = hole{size: size, next: prev.next}
	prev.next = addr

	if block.next != 0 && end == block.next {
		next := holeAt(block.next)
		block.size += next.size
		block.next = next.next
	}

	if prev != &l.head && prevAddr+prev.size == addr {
		prev.size += block.size
		prev.next = block.next
	}

	l.used -= size
	return nil
}

// checkFree verifies that the block [addr, addr+size) lies inside the heap
// without overlapping any hole. It returns the normalized block size and the
// hole (or the list head) that precedes the block.
func (l *holeList) checkFree(addr, size, align uintptr) (uintptr, *hole, *kernel.Error) {
	size, _, err := normalizeLayout(size, align)
	if err == ErrOutOfMemory {
		return 0, nil, ErrInvalidFree
	} else if err != nil {
		return 0, nil, err
	}

	end := addr + size
	if addr < l.bottom || end > l.top || end < addr || addr&(blockAlign-1) != 0 {
		return 0, nil, ErrInvalidFree
	}

	prev := &l.head
	for prev.next != 0 && prev.next < addr {
		prev = holeAt(prev.next)
	}

	if prev != &l.head && uintptr(unsafe.Pointer(prev))+prev.size > addr {
		return 0, nil, ErrInvalidFree
	}

	if prev.next != 0 && end > prev.next {
		return 0, nil, ErrInvalidFree
	}

	return size, prev, nil
}

// freeBytes returns the total size of all holes.
func (l *holeList) freeBytes() uintptr {
	var total uintptr
	for cur := l.head.next; cur != 0; cur = holeAt(cur).next {
		total += holeAt(cur).size
	}
	return total
}

// normalizeLayout validates align and rounds size up to a multiple of
// blockAlign with a minimum of minBlockSize. Sizes that cannot be rounded
// without overflowing yield ErrOutOfMemory.
func normalizeLayout(size, align uintptr) (uintptr, uintptr, *kernel.Error) {
	if align == 0 || align&(align-1) != 0 {
		return 0, 0, ErrInvalidLayout
	}

	if align < blockAlign {
		align = blockAlign
	}

	if size < minBlockSize {
		size = minBlockSize
	} else if size > ^uintptr(0)-blockAlign {
		return 0, 0, ErrOutOfMemory
	}

	return alignUp(size, blockAlign), align, nil
}

func alignUp(addr, align uintptr) uintptr {
	return (addr + align - 1) &^ (align - 1)
}
